// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package modbus

import (
	"fmt"
	"sync"
)

// ErrHandlesExhausted is returned by a handlePool's Open when every slot is
// already in use.
var ErrHandlesExhausted = fmt.Errorf("modbus: no free handle")

// handlePool is a fixed-capacity, integer-handle-addressed registry, the Go
// replacement for the original firmware's hand-duplicated fixed arrays of
// slaves/masters/transports (Design Notes §9 on cyclic references and
// fixed-size pools): every handle is an index into entries, never an owning
// pointer, so the pool can be copied or inspected without worrying about
// aliasing. The lock guards the slot table itself (Open/Close and the
// Get/Each lookups); traffic through an already-open handle's value takes
// no lock, matching the single named resource lock described for the
// transport/slave/master tables.
type handlePool[T any] struct {
	mu      sync.Mutex
	entries []T
	inUse   []bool
}

// newHandlePool returns a pool with capacity fixed slots, all free.
func newHandlePool[T any](capacity int) *handlePool[T] {
	return &handlePool[T]{
		entries: make([]T, capacity),
		inUse:   make([]bool, capacity),
	}
}

// Open claims the first free slot, stores value in it, and returns its
// handle. It returns ErrHandlesExhausted if the pool is full.
func (p *handlePool[T]) Open(value T) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, used := range p.inUse {
		if !used {
			p.inUse[i] = true
			p.entries[i] = value
			return i, nil
		}
	}
	return -1, ErrHandlesExhausted
}

// Close releases handle, zeroing its slot so it holds no stale reference.
func (p *handlePool[T]) Close(handle int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.valid(handle) {
		return fmt.Errorf("modbus: invalid handle %d", handle)
	}
	var zero T
	p.entries[handle] = zero
	p.inUse[handle] = false
	return nil
}

// Get returns the value stored at handle and whether it is currently open.
func (p *handlePool[T]) Get(handle int) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var zero T
	if !p.valid(handle) || !p.inUse[handle] {
		return zero, false
	}
	return p.entries[handle], true
}

// Each calls fn for every currently open slot, in handle order.
func (p *handlePool[T]) Each(fn func(handle int, value T)) {
	p.mu.Lock()
	snapshot := make([]T, len(p.entries))
	used := make([]bool, len(p.inUse))
	copy(snapshot, p.entries)
	copy(used, p.inUse)
	p.mu.Unlock()

	for i, v := range snapshot {
		if used[i] {
			fn(i, v)
		}
	}
}

func (p *handlePool[T]) valid(handle int) bool {
	return handle >= 0 && handle < len(p.entries)
}
