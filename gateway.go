// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package modbus

import (
	"fmt"
	"log"
	"time"
)

// ErrBroadcastRead is returned when a read-type operation (any function
// code other than 0x05, 0x06, 0x0F, 0x10) is requested against slave-id 0.
// The Modbus spec defines broadcast only for writes; there is no response to
// collect for a read, so it is rejected rather than silently dropped.
var ErrBroadcastRead = fmt.Errorf("modbus: broadcast read not permitted")

const broadcastSlaveID = 0

func isWriteFunction(function byte) bool {
	switch function {
	case FuncCodeWriteSingleCoil, FuncCodeWriteSingleRegister,
		FuncCodeWriteMultipleCoils, FuncCodeWriteMultipleRegisters:
		return true
	default:
		return false
	}
}

// routeKind distinguishes a locally hosted slave from one reached only
// through a registered transport.
type routeKind int

const (
	routeLocalSlave routeKind = iota
	routeTransport
)

type routeTarget struct {
	kind   routeKind
	handle int
}

// slaveEntry is what a Gateway's slave handle pool stores: the slave-id it
// answers to and the command table the stateless engine dispatches against.
type slaveEntry struct {
	id    byte
	table *CommandTable
}

// Gateway is the routing fabric that couples transports, locally hosted
// slaves, and locally hosted masters by slave-id, per §4.5. Handles for all
// three are issued from fixed-capacity handlePools; the route map itself is
// the only gateway-owned reference, never an owning pointer into another
// component, per Design Notes §9 on cyclic references.
type Gateway struct {
	Logger *log.Logger

	transports *handlePool[*Transport]
	slaves     *handlePool[*slaveEntry]
	masters    *handlePool[*Master]

	// functions gates which function codes this gateway's locally hosted
	// slaves will answer and its locally hosted masters may issue, per
	// Config.Functions. It does not gate traffic this gateway only forwards
	// between two transports, since that traffic never touches a command
	// table or Master of this gateway's own.
	functions FunctionEnable

	routes map[byte]routeTarget
	// forwarding tracks a request this gateway forwarded to a remote
	// transport on behalf of another transport's caller, so the eventual
	// response can be sent back out the originating transport without a
	// locally registered Master standing in for the remote caller.
	forwarding map[byte]int
	// masterInFlight tracks a request a locally registered Master sent onto
	// a routed transport, keyed by slave-id, so the eventual inbound frame
	// on that transport is recognized as the awaited response and handed to
	// Master.SendToMaster instead of being dispatched or forwarded as a new
	// request.
	masterInFlight map[byte]int
}

// NewGateway allocates a Gateway with pools sized from cfg.
func NewGateway(cfg Config) *Gateway {
	return &Gateway{
		transports:     newHandlePool[*Transport](cfg.TotalTransportASCII + cfg.TotalTransportRTU + cfg.TotalTransportTCP),
		slaves:         newHandlePool[*slaveEntry](cfg.TotalSlaves),
		masters:        newHandlePool[*Master](cfg.TotalMasters),
		functions:      cfg.Functions,
		routes:         make(map[byte]routeTarget),
		forwarding:     make(map[byte]int),
		masterInFlight: make(map[byte]int),
	}
}

// AddTransport registers t with the gateway and returns its handle. The
// transport is not yet reachable by any slave-id until AddRemoteSlave routes
// one to it.
func (g *Gateway) AddTransport(t *Transport) (int, error) {
	return g.transports.Open(t)
}

// RemoveTransport closes a transport handle and drops any routes pointing
// at it.
func (g *Gateway) RemoveTransport(handle int) error {
	if err := g.transports.Close(handle); err != nil {
		return err
	}
	for id, r := range g.routes {
		if r.kind == routeTransport && r.handle == handle {
			delete(g.routes, id)
		}
	}
	return nil
}

// AddSlave registers a locally hosted slave answering to id, dispatching
// against table, and routes id to it.
func (g *Gateway) AddSlave(id byte, table *CommandTable) (int, error) {
	handle, err := g.slaves.Open(&slaveEntry{id: id, table: table})
	if err != nil {
		return -1, err
	}
	g.routes[id] = routeTarget{kind: routeLocalSlave, handle: handle}
	return handle, nil
}

// RemoveSlave closes a slave handle and drops its route.
func (g *Gateway) RemoveSlave(handle int) error {
	entry, ok := g.slaves.Get(handle)
	if ok {
		delete(g.routes, entry.id)
	}
	return g.slaves.Close(handle)
}

// AddRemoteSlave routes id to a device reachable through the transport
// registered at transportHandle, for bridging across a gateway.
func (g *Gateway) AddRemoteSlave(id byte, transportHandle int) error {
	if _, ok := g.transports.Get(transportHandle); !ok {
		return fmt.Errorf("modbus: no such transport handle %d", transportHandle)
	}
	g.routes[id] = routeTarget{kind: routeTransport, handle: transportHandle}
	return nil
}

// AddMaster registers a new asynchronous Master handle and returns it.
func (g *Gateway) AddMaster() (int, *Master, error) {
	m := NewMaster()
	handle, err := g.masters.Open(m)
	if err != nil {
		return -1, nil, err
	}
	return handle, m, nil
}

// RemoveMaster closes a master handle and drops any in-flight bookkeeping
// for it, so a freed handle index reused by a later AddMaster cannot be
// mistaken for the awaited response of a request this master never sent.
func (g *Gateway) RemoveMaster(handle int) error {
	for id, h := range g.masterInFlight {
		if h == handle {
			delete(g.masterInFlight, id)
		}
	}
	return g.masters.Close(handle)
}

// MainTask drives one round of gateway work: polling transports for pending
// I/O, dispatching or forwarding inbound requests, pulling outbound master
// requests onto their routed transport (or short-circuiting straight to a
// locally hosted slave), delivering inbound responses to the awaiting
// master, and expiring timed-out masters. The host calls this repeatedly
// from its own task loop, per §5's cooperative scheduling model.
func (g *Gateway) MainTask(now time.Time) {
	g.transports.Each(func(_ int, t *Transport) {
		if err := t.Task(); err != nil {
			g.logf("modbus: gateway transport task: %v", err)
		}
	})

	g.pumpMasterRequests(now)
	g.pumpTransportInbound()

	g.masters.Each(func(_ int, m *Master) {
		m.Tick(now)
	})
}

// pumpMasterRequests pulls any pending outbound request from each
// registered master, rejects it outright with an illegal-function exception
// if its function code is disabled in Config.Functions, and otherwise either
// short-circuits it straight to a locally hosted slave or hands it to the
// transport routed for its target slave-id.
func (g *Gateway) pumpMasterRequests(now time.Time) {
	g.masters.Each(func(handle int, m *Master) {
		slaveID, pdu, ok := m.RecvFromMaster()
		if !ok {
			return
		}
		if len(pdu) > 0 && !g.functions.allows(pdu[0]) {
			m.SendToMaster(slaveID, exceptionResponse(pdu[0], ExceptionCodeIllegalFunction))
			return
		}
		route, routed := g.routes[slaveID]
		switch {
		case !routed:
			g.logf("modbus: master %d: no route for slave %d", handle, slaveID)
		case route.kind == routeLocalSlave:
			entry, _ := g.slaves.Get(route.handle)
			response := Dispatch(entry.table, pdu)
			m.SendToMaster(slaveID, response)
		case route.kind == routeTransport:
			transport, _ := g.transports.Get(route.handle)
			if err := transport.Send(slaveID, pdu); err != nil {
				g.logf("modbus: master %d: %v", handle, err)
				return
			}
			g.masterInFlight[slaveID] = handle
		}
	})
}

// pumpTransportInbound drains every transport's decoded frame queue,
// dispatching requests destined for locally hosted slaves, forwarding
// requests destined for a different transport, and delivering responses to
// whichever locally registered master is awaiting them (or, for a
// previously forwarded request, straight back out the originating
// transport).
func (g *Gateway) pumpTransportInbound() {
	g.transports.Each(func(handle int, t *Transport) {
		for {
			slaveID, pdu, ok := t.Recv()
			if !ok {
				return
			}
			g.routeInbound(handle, t, slaveID, pdu)
		}
	})
}

func (g *Gateway) routeInbound(fromHandle int, from *Transport, slaveID byte, pdu []byte) {
	// A frame whose slave-id matches a request this gateway itself
	// forwarded, or one a locally registered Master sent onto this
	// transport, is a response; everything else is treated as a request to
	// dispatch or forward.
	if origin, forwarded := g.forwarding[slaveID]; forwarded && len(pdu) > 0 {
		delete(g.forwarding, slaveID)
		if originTransport, ok := g.transports.Get(origin); ok {
			if err := originTransport.Send(slaveID, pdu); err != nil {
				g.logf("modbus: forwarding response: %v", err)
			}
		}
		return
	}

	if masterHandle, awaited := g.masterInFlight[slaveID]; awaited {
		delete(g.masterInFlight, slaveID)
		if m, ok := g.masters.Get(masterHandle); ok {
			m.SendToMaster(slaveID, pdu)
		}
		return
	}

	if slaveID == broadcastSlaveID {
		g.broadcast(pdu)
		return
	}

	route, routed := g.routes[slaveID]
	if !routed {
		g.logf("modbus: no route for inbound slave %d", slaveID)
		return
	}
	switch route.kind {
	case routeLocalSlave:
		entry, _ := g.slaves.Get(route.handle)
		var response []byte
		if len(pdu) > 0 && !g.functions.allows(pdu[0]) {
			response = exceptionResponse(pdu[0], ExceptionCodeIllegalFunction)
		} else {
			response = Dispatch(entry.table, pdu)
		}
		if err := from.Send(slaveID, response); err != nil {
			g.logf("modbus: replying to slave %d: %v", slaveID, err)
		}
	case routeTransport:
		target, _ := g.transports.Get(route.handle)
		g.forwarding[slaveID] = fromHandle
		if err := target.Send(slaveID, pdu); err != nil {
			g.logf("modbus: forwarding request for slave %d: %v", slaveID, err)
		}
	}
}

// broadcast fans a write-function PDU out to every locally hosted slave and
// every registered transport (including the one it arrived on), collecting
// no response, per §4.5's broadcast resolution. A broadcast read arriving on
// a transport is dropped here without a reply; a local Master rejects a
// broadcast read before it is ever queued (ErrBroadcastRead).
func (g *Gateway) broadcast(pdu []byte) {
	if len(pdu) == 0 || !isWriteFunction(pdu[0]) {
		return
	}
	if !g.functions.allows(pdu[0]) {
		return
	}
	g.slaves.Each(func(_ int, entry *slaveEntry) {
		Dispatch(entry.table, pdu)
	})
	g.transports.Each(func(_ int, t *Transport) {
		_ = t.Send(broadcastSlaveID, pdu)
	})
}

func (g *Gateway) logf(format string, v ...interface{}) {
	if g.Logger != nil {
		g.Logger.Printf(format, v...)
	}
}
