// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package modbus

import "testing"

func TestHandlePoolOpenCloseGet(t *testing.T) {
	p := newHandlePool[string](2)

	h1, err := p.Open("a")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	h2, err := p.Open("b")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if h1 == h2 {
		t.Fatalf("Open() returned the same handle twice: %d", h1)
	}

	if _, err := p.Open("c"); err != ErrHandlesExhausted {
		t.Errorf("Open() on a full pool error = %v, want ErrHandlesExhausted", err)
	}

	v, ok := p.Get(h1)
	if !ok || v != "a" {
		t.Errorf("Get(%d) = (%q, %v), want (\"a\", true)", h1, v, ok)
	}

	if err := p.Close(h1); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, ok := p.Get(h1); ok {
		t.Error("Get() after Close() still reports the handle open")
	}

	h3, err := p.Open("c")
	if err != nil {
		t.Fatalf("Open() after Close() error = %v", err)
	}
	if h3 != h1 {
		t.Errorf("Open() reused handle = %d, want the freed handle %d", h3, h1)
	}
}

func TestHandlePoolCloseInvalidHandle(t *testing.T) {
	p := newHandlePool[int](1)
	if err := p.Close(5); err == nil {
		t.Error("Close() on an out-of-range handle succeeded, want an error")
	}
	if err := p.Close(-1); err == nil {
		t.Error("Close() on a negative handle succeeded, want an error")
	}
}

func TestHandlePoolEach(t *testing.T) {
	p := newHandlePool[int](4)
	h1, _ := p.Open(10)
	h2, _ := p.Open(20)
	p.Close(h1)

	seen := make(map[int]int)
	p.Each(func(handle int, value int) {
		seen[handle] = value
	})

	if len(seen) != 1 {
		t.Fatalf("Each() visited %d entries, want 1", len(seen))
	}
	if seen[h2] != 20 {
		t.Errorf("Each() saw value %d at handle %d, want 20", seen[h2], h2)
	}
}
