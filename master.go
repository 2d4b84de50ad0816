// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package modbus

import (
	"encoding/binary"
	"fmt"
	"time"
)

// masterState is the per-handle lifecycle of an asynchronous Master request.
type masterState int

const (
	masterIdle masterState = iota
	masterRequested
	masterAwaiting
)

// ExceptionTimeout is the exception code surfaced to a Master completion
// callback when a request's deadline elapses with no matching response. It
// does not appear on the wire; it is a local value distinguishing a timeout
// from a protocol exception.
const ExceptionTimeout byte = 0xFF

// MasterCallback is invoked when a Master request completes, whether by a
// matching response or by timeout. exceptionCode is 0 on success.
type MasterCallback func(slaveID, functionCode, exceptionCode byte)

// masterPending captures everything needed to correlate an inbound response
// with the request that is awaiting it and to decode that response into the
// caller's buffers.
type masterPending struct {
	slaveID      byte
	functionCode byte
	callback     MasterCallback
	deadline     time.Time
	decode       func(body []byte) error
}

// Master is a single asynchronous request/response handle: at most one
// request in flight at a time, advanced explicitly by RecvFromMaster,
// SendToMaster and Tick rather than by a blocking call. This is the engine a
// Gateway drives; Client (client.go) is a separate, synchronous API for
// direct point-to-point use.
type Master struct {
	state   masterState
	pending masterPending
	pdu     []byte // built request PDU, consumed by RecvFromMaster
}

// NewMaster returns a Master handle in the Idle state.
func NewMaster() *Master {
	return &Master{state: masterIdle}
}

// Idle reports whether the handle can accept a new request.
func (m *Master) Idle() bool {
	return m.state == masterIdle
}

// request transitions Idle -> Requested, building the outbound PDU and
// capturing what is needed to correlate and decode the response. It is an
// error to call while a request is already in flight.
func (m *Master) request(slaveID, functionCode byte, pdu []byte, timeout time.Duration, now time.Time, callback MasterCallback, decode func([]byte) error) error {
	if m.state != masterIdle {
		return fmt.Errorf("modbus: master handle busy")
	}
	m.pdu = pdu
	m.pending = masterPending{
		slaveID:      slaveID,
		functionCode: functionCode,
		callback:     callback,
		deadline:     now.Add(timeout),
		decode:       decode,
	}
	m.state = masterRequested
	return nil
}

// RequestReadCoils issues function code 0x01.
func (m *Master) RequestReadCoils(slaveID byte, address, quantity uint16, out []bool, timeout time.Duration, now time.Time, callback MasterCallback) error {
	if slaveID == broadcastSlaveID {
		return ErrBroadcastRead
	}
	return m.request(slaveID, FuncCodeReadCoils, append([]byte{FuncCodeReadCoils}, dataBlock(address, quantity)...), timeout, now, callback, decodeBitsResponse(quantity, out))
}

// RequestReadDiscreteInputs issues function code 0x02.
func (m *Master) RequestReadDiscreteInputs(slaveID byte, address, quantity uint16, out []bool, timeout time.Duration, now time.Time, callback MasterCallback) error {
	if slaveID == broadcastSlaveID {
		return ErrBroadcastRead
	}
	return m.request(slaveID, FuncCodeReadDiscreteInputs, append([]byte{FuncCodeReadDiscreteInputs}, dataBlock(address, quantity)...), timeout, now, callback, decodeBitsResponse(quantity, out))
}

// RequestReadHoldingRegisters issues function code 0x03.
func (m *Master) RequestReadHoldingRegisters(slaveID byte, address, quantity uint16, out []uint16, timeout time.Duration, now time.Time, callback MasterCallback) error {
	if slaveID == broadcastSlaveID {
		return ErrBroadcastRead
	}
	return m.request(slaveID, FuncCodeReadHoldingRegisters, append([]byte{FuncCodeReadHoldingRegisters}, dataBlock(address, quantity)...), timeout, now, callback, decodeRegistersResponse(quantity, out))
}

// RequestReadInputRegisters issues function code 0x04.
func (m *Master) RequestReadInputRegisters(slaveID byte, address, quantity uint16, out []uint16, timeout time.Duration, now time.Time, callback MasterCallback) error {
	if slaveID == broadcastSlaveID {
		return ErrBroadcastRead
	}
	return m.request(slaveID, FuncCodeReadInputRegisters, append([]byte{FuncCodeReadInputRegisters}, dataBlock(address, quantity)...), timeout, now, callback, decodeRegistersResponse(quantity, out))
}

// RequestWriteSingleCoil issues function code 0x05.
func (m *Master) RequestWriteSingleCoil(slaveID byte, address uint16, value bool, timeout time.Duration, now time.Time, callback MasterCallback) error {
	raw := uint16(0x0000)
	if value {
		raw = 0xFF00
	}
	return m.request(slaveID, FuncCodeWriteSingleCoil, append([]byte{FuncCodeWriteSingleCoil}, dataBlock(address, raw)...), timeout, now, callback, nil)
}

// RequestWriteSingleRegister issues function code 0x06.
func (m *Master) RequestWriteSingleRegister(slaveID byte, address, value uint16, timeout time.Duration, now time.Time, callback MasterCallback) error {
	return m.request(slaveID, FuncCodeWriteSingleRegister, append([]byte{FuncCodeWriteSingleRegister}, dataBlock(address, value)...), timeout, now, callback, nil)
}

// RequestWriteMultipleCoils issues function code 0x0F.
func (m *Master) RequestWriteMultipleCoils(slaveID byte, address uint16, values []bool, timeout time.Duration, now time.Time, callback MasterCallback) error {
	body := boolsToBytes(values)
	pdu := append([]byte{FuncCodeWriteMultipleCoils}, dataBlock(address, uint16(len(values)))...)
	pdu = append(pdu, body...)
	return m.request(slaveID, FuncCodeWriteMultipleCoils, pdu, timeout, now, callback, nil)
}

// RequestWriteMultipleRegisters issues function code 0x10.
func (m *Master) RequestWriteMultipleRegisters(slaveID byte, address uint16, values []uint16, timeout time.Duration, now time.Time, callback MasterCallback) error {
	pdu := dataBlockSuffix(registersToBytesNoCount(values), address, uint16(len(values)))
	return m.request(slaveID, FuncCodeWriteMultipleRegisters, append([]byte{FuncCodeWriteMultipleRegisters}, pdu...), timeout, now, callback, nil)
}

func registersToBytesNoCount(values []uint16) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(out[i*2:], v)
	}
	return out
}

func decodeBitsResponse(quantity uint16, out []bool) func([]byte) error {
	return func(body []byte) error {
		if len(body) < 1 || int(body[0]) != (int(quantity)+7)/8 || len(body)-1 != int(body[0]) {
			return ErrInvalidResponse
		}
		copy(out, bytesToBools(body[1:], quantity))
		return nil
	}
}

func decodeRegistersResponse(quantity uint16, out []uint16) func([]byte) error {
	return func(body []byte) error {
		if len(body) < 1 || int(body[0]) != int(quantity)*2 || len(body)-1 != int(body[0]) {
			return ErrInvalidResponse
		}
		copy(out, bytesToRegisters(body[1:]))
		return nil
	}
}

// RecvFromMaster is called by the transport/gateway to pull the next
// outbound request PDU, if any. It transitions Requested -> Awaiting and
// returns (slaveID, pdu, true); returns (0, nil, false) when idle or already
// awaiting a response.
func (m *Master) RecvFromMaster() (slaveID byte, pdu []byte, ok bool) {
	if m.state != masterRequested {
		return 0, nil, false
	}
	m.state = masterAwaiting
	return m.pending.slaveID, m.pdu, true
}

// SendToMaster delivers an inbound response PDU addressed to this handle.
// Mismatched slave id or function code (modulo the exception bit) is
// silently dropped, per the correlation-level error tier: the handle stays
// Awaiting and the transport must keep calling RecvFromMaster/SendToMaster
// as further data arrives. A matching response always completes the
// request, successful or exception, and returns the handle to Idle.
func (m *Master) SendToMaster(fromSlaveID byte, responsePDU []byte) {
	if m.state != masterAwaiting {
		return
	}
	if len(responsePDU) == 0 || fromSlaveID != m.pending.slaveID {
		return
	}
	function := responsePDU[0]
	isException := function == (m.pending.functionCode | 0x80)
	if function != m.pending.functionCode && !isException {
		return
	}

	cb, function2 := m.pending.callback, m.pending.functionCode
	if isException {
		exception := byte(0)
		if len(responsePDU) > 1 {
			exception = responsePDU[1]
		}
		m.complete()
		if cb != nil {
			cb(fromSlaveID, function2, exception)
		}
		return
	}

	var err error
	if m.pending.decode != nil {
		err = m.pending.decode(responsePDU[1:])
	}
	m.complete()
	if cb == nil {
		return
	}
	if err != nil {
		cb(fromSlaveID, function2, ExceptionCodeIllegalDataValue)
		return
	}
	cb(fromSlaveID, function2, 0)
}

// Tick advances deadline handling: if the handle is Awaiting and now is past
// its deadline, the completion callback fires with ExceptionTimeout and the
// handle returns to Idle. Tick is a no-op otherwise.
func (m *Master) Tick(now time.Time) {
	if m.state != masterAwaiting {
		return
	}
	if now.Before(m.pending.deadline) {
		return
	}
	cb, slaveID, function := m.pending.callback, m.pending.slaveID, m.pending.functionCode
	m.complete()
	if cb != nil {
		cb(slaveID, function, ExceptionTimeout)
	}
}

func (m *Master) complete() {
	m.state = masterIdle
	m.pdu = nil
	m.pending = masterPending{}
}
