// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package modbus

import (
	"bytes"
	"testing"
)

func TestNewTransportRejectsUnimplementedModes(t *testing.T) {
	for _, mode := range []TransportMode{RTUMaster, RTUSlave, TCPMaster, TCPSlave} {
		if _, err := NewTransport(mode, &bytes.Buffer{}); err != ErrTransportNotImplemented {
			t.Errorf("NewTransport(mode=%d) error = %v, want ErrTransportNotImplemented", mode, err)
		}
	}
}

func TestNewTransportAcceptsASCIIModes(t *testing.T) {
	for _, mode := range []TransportMode{ASCIIMaster, ASCIISlave} {
		if _, err := NewTransport(mode, &bytes.Buffer{}); err != nil {
			t.Errorf("NewTransport(mode=%d) error = %v, want nil", mode, err)
		}
	}
}

func TestTransportTaskAndRecv(t *testing.T) {
	device := &bytes.Buffer{}
	device.Write(Encode([]byte{0x01, FuncCodeReadCoils, 0x00, 0x00, 0x00, 0x08}))

	tr, err := NewTransport(ASCIISlave, device)
	if err != nil {
		t.Fatalf("NewTransport() error = %v", err)
	}
	if err := tr.Task(); err != nil {
		t.Fatalf("Task() error = %v", err)
	}

	slaveID, pdu, ok := tr.Recv()
	if !ok {
		t.Fatal("Recv() ok = false, want a decoded frame")
	}
	if slaveID != 0x01 {
		t.Errorf("Recv() slaveID = %d, want 1", slaveID)
	}
	want := []byte{FuncCodeReadCoils, 0x00, 0x00, 0x00, 0x08}
	if !bytes.Equal(pdu, want) {
		t.Errorf("Recv() pdu = % X, want % X", pdu, want)
	}

	if _, _, ok := tr.Recv(); ok {
		t.Error("Recv() returned a second frame, want none")
	}
}

func TestTransportSend(t *testing.T) {
	device := &bytes.Buffer{}
	tr, err := NewTransport(ASCIIMaster, device)
	if err != nil {
		t.Fatalf("NewTransport() error = %v", err)
	}

	pdu := []byte{FuncCodeReadCoils, 0x00, 0x00, 0x00, 0x08}
	if err := tr.Send(0x01, pdu); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	want := Encode(append([]byte{0x01}, pdu...))
	if !bytes.Equal(device.Bytes(), want) {
		t.Errorf("device received % X, want % X", device.Bytes(), want)
	}
}
