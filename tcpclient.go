// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package modbus

import "context"

// TCPClientHandler is a reserved identifier: Modbus TCP (MBAP header framing
// over a TCP socket) is not implemented by this module. It is kept as a
// named type, rather than removed outright, so that code written against
// the wider Modbus client family has somewhere to land if TCP support is
// added later.
type TCPClientHandler struct {
	SlaveID byte
	Address string
}

// NewTCPClientHandler allocates a TCPClientHandler. Every operation on the
// returned handler fails with ErrTransportNotImplemented.
func NewTCPClientHandler(address string) *TCPClientHandler {
	return &TCPClientHandler{Address: address}
}

// TCPClient would create a TCP client with default handler and given
// connect string; TCP is not implemented, so this always returns an error.
func TCPClient(address string) (Client, error) {
	return nil, ErrTransportNotImplemented
}

// Encode implements Packager. Always fails: see ErrTransportNotImplemented.
func (mb *TCPClientHandler) Encode(pdu *ProtocolDataUnit) ([]byte, error) {
	return nil, ErrTransportNotImplemented
}

// Decode implements Packager. Always fails: see ErrTransportNotImplemented.
func (mb *TCPClientHandler) Decode(adu []byte) (*ProtocolDataUnit, error) {
	return nil, ErrTransportNotImplemented
}

// Verify implements Packager. Always fails: see ErrTransportNotImplemented.
func (mb *TCPClientHandler) Verify(aduRequest, aduResponse []byte) error {
	return ErrTransportNotImplemented
}

// Send implements Transporter. Always fails: see ErrTransportNotImplemented.
func (mb *TCPClientHandler) Send(ctx context.Context, aduRequest []byte) ([]byte, error) {
	return nil, ErrTransportNotImplemented
}
