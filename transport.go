// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package modbus

import (
	"fmt"
	"io"
	"log"
)

// TransportMode identifies the framing and master/slave role of a
// registered Transport. Only the ASCII pair is backed by a working codec;
// the RTU and TCP identifiers are reserved, matching spec Non-goals, and
// NewTransport on them returns ErrTransportNotImplemented rather than a
// working transport.
type TransportMode int

const (
	ASCIIMaster TransportMode = iota
	ASCIISlave
	RTUMaster
	RTUSlave
	TCPMaster
	TCPSlave
)

// ErrTransportNotImplemented is returned by NewTransport for any non-ASCII
// TransportMode.
var ErrTransportNotImplemented = fmt.Errorf("modbus: transport mode not implemented")

func (m TransportMode) implemented() bool {
	return m == ASCIIMaster || m == ASCIISlave
}

// Transport binds a byte device to an ASCII framing pipeline: a streaming
// Decoder consumes inbound bytes and queues complete frames; Send encodes
// and writes outbound PDUs. The device is the external byte-oriented I/O
// collaborator the core treats abstractly (§6); a real serial port
// implements io.ReadWriter directly.
type Transport struct {
	Mode   TransportMode
	Device io.ReadWriter
	Logger *log.Logger

	decoder *Decoder
	scratch []byte
}

// NewTransport wires device into a Transport of the given mode. It returns
// ErrTransportNotImplemented for any non-ASCII mode.
func NewTransport(mode TransportMode, device io.ReadWriter) (*Transport, error) {
	if !mode.implemented() {
		return nil, ErrTransportNotImplemented
	}
	return &Transport{
		Mode:    mode,
		Device:  device,
		decoder: NewDecoder(),
		scratch: make([]byte, asciiAccumMax),
	}, nil
}

// Task performs one non-blocking unit of pending I/O: a single Read from the
// device, fed through the ASCII decoder. It is meant to be polled by a
// Gateway's main loop. io.EOF and similar "nothing to read right now"
// conditions are not propagated as errors since a Read is expected to be
// mostly empty between frames; genuine device errors are returned for the
// caller to act on (e.g. close and reopen the transport).
func (t *Transport) Task() error {
	n, err := t.Device.Read(t.scratch)
	if n > 0 {
		_, _ = t.decoder.Write(t.scratch[:n])
	}
	if err != nil && err != io.EOF {
		return fmt.Errorf("modbus: transport read: %w", err)
	}
	return nil
}

// Recv returns the next decoded (slaveID, pdu) pair queued by Task, if any.
func (t *Transport) Recv() (slaveID byte, pdu []byte, ok bool) {
	frame, ok := t.decoder.Next()
	if !ok {
		return 0, nil, false
	}
	if len(frame) < 1 {
		return 0, nil, false
	}
	return frame[0], frame[1:], true
}

// Send frames (slaveID, pdu) and writes it to the device.
func (t *Transport) Send(slaveID byte, pdu []byte) error {
	slaveAndPDU := make([]byte, 0, 1+len(pdu))
	slaveAndPDU = append(slaveAndPDU, slaveID)
	slaveAndPDU = append(slaveAndPDU, pdu...)
	if _, err := t.Device.Write(Encode(slaveAndPDU)); err != nil {
		return fmt.Errorf("modbus: transport write: %w", err)
	}
	return nil
}

func (t *Transport) logf(format string, v ...interface{}) {
	if t.Logger != nil {
		t.Logger.Printf(format, v...)
	}
}
