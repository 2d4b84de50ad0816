// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package modbus

import (
	"bytes"
	"testing"
	"time"
)

func TestMasterReadHoldingRegistersRoundTrip(t *testing.T) {
	m := NewMaster()
	if !m.Idle() {
		t.Fatal("new Master is not Idle")
	}

	out := make([]uint16, 2)
	var gotSlaveID, gotFunc, gotException byte
	called := false
	now := time.Unix(0, 0)

	err := m.RequestReadHoldingRegisters(0x11, 0x006B, 2, out, time.Second, now, func(slaveID, functionCode, exceptionCode byte) {
		called = true
		gotSlaveID, gotFunc, gotException = slaveID, functionCode, exceptionCode
	})
	if err != nil {
		t.Fatalf("RequestReadHoldingRegisters() error = %v", err)
	}
	if m.Idle() {
		t.Fatal("Master is Idle right after a request was queued")
	}

	slaveID, pdu, ok := m.RecvFromMaster()
	if !ok {
		t.Fatal("RecvFromMaster() ok = false, want a pending request")
	}
	if slaveID != 0x11 {
		t.Errorf("RecvFromMaster() slaveID = 0x%02X, want 0x11", slaveID)
	}
	wantPDU := append([]byte{FuncCodeReadHoldingRegisters}, dataBlock(0x006B, 2)...)
	if !bytes.Equal(pdu, wantPDU) {
		t.Errorf("RecvFromMaster() pdu = % X, want % X", pdu, wantPDU)
	}

	response := append([]byte{FuncCodeReadHoldingRegisters}, registersToBytes([]uint16{0x1234, 0x5678})...)
	m.SendToMaster(0x11, response)

	if !called {
		t.Fatal("completion callback was not invoked")
	}
	if gotSlaveID != 0x11 || gotFunc != FuncCodeReadHoldingRegisters || gotException != 0 {
		t.Errorf("callback got (%d, %d, %d), want (17, %d, 0)", gotSlaveID, gotFunc, gotException, FuncCodeReadHoldingRegisters)
	}
	if out[0] != 0x1234 || out[1] != 0x5678 {
		t.Errorf("decoded registers = %v, want [0x1234 0x5678]", out)
	}
	if !m.Idle() {
		t.Error("Master did not return to Idle after a matching response")
	}
}

func TestMasterBroadcastReadRejected(t *testing.T) {
	m := NewMaster()
	out := make([]bool, 1)
	err := m.RequestReadCoils(broadcastSlaveID, 0, 1, out, time.Second, time.Unix(0, 0), nil)
	if err != ErrBroadcastRead {
		t.Errorf("RequestReadCoils(broadcast) error = %v, want ErrBroadcastRead", err)
	}
}

func TestMasterMismatchedResponseDropped(t *testing.T) {
	m := NewMaster()
	called := false
	err := m.RequestReadHoldingRegisters(0x11, 0, 1, make([]uint16, 1), time.Second, time.Unix(0, 0), func(byte, byte, byte) {
		called = true
	})
	if err != nil {
		t.Fatalf("RequestReadHoldingRegisters() error = %v", err)
	}
	m.RecvFromMaster()

	// Wrong slave id: silently dropped, handle stays Awaiting.
	m.SendToMaster(0x22, append([]byte{FuncCodeReadHoldingRegisters}, registersToBytes([]uint16{1})...))
	if called {
		t.Fatal("callback fired for a response from the wrong slave id")
	}
	if m.Idle() {
		t.Fatal("Master left Awaiting state on a dropped response")
	}

	// Correct slave id now completes it.
	m.SendToMaster(0x11, append([]byte{FuncCodeReadHoldingRegisters}, registersToBytes([]uint16{1})...))
	if !called {
		t.Fatal("callback did not fire for the matching response")
	}
}

func TestMasterExceptionResponse(t *testing.T) {
	m := NewMaster()
	var gotException byte
	m.RequestReadHoldingRegisters(0x11, 0, 1, make([]uint16, 1), time.Second, time.Unix(0, 0), func(_, _, exceptionCode byte) {
		gotException = exceptionCode
	})
	m.RecvFromMaster()

	m.SendToMaster(0x11, []byte{FuncCodeReadHoldingRegisters | 0x80, ExceptionCodeIllegalDataAddress})
	if gotException != ExceptionCodeIllegalDataAddress {
		t.Errorf("exception code = %d, want %d", gotException, ExceptionCodeIllegalDataAddress)
	}
	if !m.Idle() {
		t.Error("Master did not return to Idle after an exception response")
	}
}

func TestMasterTickTimeout(t *testing.T) {
	m := NewMaster()
	var gotException byte
	called := false
	now := time.Unix(0, 0)
	m.RequestReadHoldingRegisters(0x11, 0, 1, make([]uint16, 1), 100*time.Millisecond, now, func(_, _, exceptionCode byte) {
		called = true
		gotException = exceptionCode
	})
	m.RecvFromMaster()

	m.Tick(now.Add(50 * time.Millisecond))
	if called {
		t.Fatal("Tick fired before the deadline elapsed")
	}

	m.Tick(now.Add(200 * time.Millisecond))
	if !called {
		t.Fatal("Tick did not fire after the deadline elapsed")
	}
	if gotException != ExceptionTimeout {
		t.Errorf("exception code = %d, want ExceptionTimeout", gotException)
	}
	if !m.Idle() {
		t.Error("Master did not return to Idle after a timeout")
	}
}

func TestMasterRequestWhileBusy(t *testing.T) {
	m := NewMaster()
	now := time.Unix(0, 0)
	if err := m.RequestReadHoldingRegisters(0x11, 0, 1, make([]uint16, 1), time.Second, now, nil); err != nil {
		t.Fatalf("first request error = %v", err)
	}
	if err := m.RequestReadHoldingRegisters(0x12, 0, 1, make([]uint16, 1), time.Second, now, nil); err == nil {
		t.Error("second request on a busy handle succeeded, want an error")
	}
}
