// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package modbus

import "context"

// RTUClientHandler is a reserved identifier: RTU framing (address + PDU +
// CRC16, inter-frame timing derived from baud rate) is not implemented by
// this module. It is kept as a named type, rather than removed outright, so
// that code written against the wider Modbus client family has somewhere to
// land if RTU support is added later.
type RTUClientHandler struct {
	SlaveID byte
	Address string
}

// NewRTUClientHandler allocates an RTUClientHandler. Every operation on the
// returned handler fails with ErrTransportNotImplemented.
func NewRTUClientHandler(address string) *RTUClientHandler {
	return &RTUClientHandler{Address: address}
}

// RTUClient would create an RTU client with default handler and given
// connect string; RTU is not implemented, so this always returns an error.
func RTUClient(address string) (Client, error) {
	return nil, ErrTransportNotImplemented
}

// Encode implements Packager. Always fails: see ErrTransportNotImplemented.
func (mb *RTUClientHandler) Encode(pdu *ProtocolDataUnit) ([]byte, error) {
	return nil, ErrTransportNotImplemented
}

// Decode implements Packager. Always fails: see ErrTransportNotImplemented.
func (mb *RTUClientHandler) Decode(adu []byte) (*ProtocolDataUnit, error) {
	return nil, ErrTransportNotImplemented
}

// Verify implements Packager. Always fails: see ErrTransportNotImplemented.
func (mb *RTUClientHandler) Verify(aduRequest, aduResponse []byte) error {
	return ErrTransportNotImplemented
}

// Send implements Transporter. Always fails: see ErrTransportNotImplemented.
func (mb *RTUClientHandler) Send(ctx context.Context, aduRequest []byte) ([]byte, error) {
	return nil, ErrTransportNotImplemented
}
