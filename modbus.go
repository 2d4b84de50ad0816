// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package modbus

import (
	"context"
	"fmt"
)

// Function codes implemented in this package, as defined in the Modbus
// Application Protocol specification.
const (
	FuncCodeReadCoils                  = 0x01
	FuncCodeReadDiscreteInputs         = 0x02
	FuncCodeReadHoldingRegisters       = 0x03
	FuncCodeReadInputRegisters         = 0x04
	FuncCodeWriteSingleCoil            = 0x05
	FuncCodeWriteSingleRegister        = 0x06
	FuncCodeWriteMultipleCoils         = 0x0F
	FuncCodeWriteMultipleRegisters     = 0x10
	FuncCodeMaskWriteRegister          = 0x16
	FuncCodeReadWriteMultipleRegisters = 0x17
	FuncCodeReadFIFOQueue              = 0x18
)

// Exception codes, as defined in the Modbus Application Protocol
// specification.
const (
	ExceptionCodeIllegalFunction                    = 0x01
	ExceptionCodeIllegalDataAddress                 = 0x02
	ExceptionCodeIllegalDataValue                   = 0x03
	ExceptionCodeServerDeviceFailure                 = 0x04
	ExceptionCodeAcknowledge                        = 0x05
	ExceptionCodeServerDeviceBusy                    = 0x06
	ExceptionCodeMemoryParityError                   = 0x08
	ExceptionCodeGatewayPathUnavailable              = 0x0A
	ExceptionCodeGatewayTargetDeviceFailedToRespond  = 0x0B
)

var (
	// ErrInvalidQuantity is returned when a request quantity falls outside
	// the range mandated for its function code.
	ErrInvalidQuantity = fmt.Errorf("modbus: invalid quantity")
	// ErrInvalidData is returned when a request or response data field has
	// an invalid value or length.
	ErrInvalidData = fmt.Errorf("modbus: invalid data")
	// ErrInvalidResponse is returned when a response does not match its
	// request in a way the protocol mandates (echo fields, byte counts).
	ErrInvalidResponse = fmt.Errorf("modbus: invalid response")
	// ErrShortFrame is returned when a received ADU is shorter than the
	// minimum size for its framing mode.
	ErrShortFrame = fmt.Errorf("modbus: short frame")
	// ErrProtocolError is returned when a framing-level field (transaction,
	// protocol, unit id, LRC, CRC) fails verification.
	ErrProtocolError = fmt.Errorf("modbus: protocol error")
	// ErrDataSizeExceeded is returned when encoded PDU data would exceed the
	// 253-byte PDU payload limit.
	ErrDataSizeExceeded = fmt.Errorf("modbus: data size exceeds limit")
)

// ProtocolDataUnit (PDU) is the function code and data of a Modbus message,
// independent of the framing/transport that carries it.
type ProtocolDataUnit struct {
	FunctionCode byte
	Data         []byte
}

// ModbusError implements the error interface. It is returned by the
// synchronous Client when a slave/server responds with an exception.
type ModbusError struct {
	FunctionCode  byte
	ExceptionCode byte
}

func (e *ModbusError) Error() string {
	var name string
	switch e.ExceptionCode {
	case ExceptionCodeIllegalFunction:
		name = "illegal function"
	case ExceptionCodeIllegalDataAddress:
		name = "illegal data address"
	case ExceptionCodeIllegalDataValue:
		name = "illegal data value"
	case ExceptionCodeServerDeviceFailure:
		name = "server device failure"
	case ExceptionCodeAcknowledge:
		name = "acknowledge"
	case ExceptionCodeServerDeviceBusy:
		name = "server device busy"
	case ExceptionCodeMemoryParityError:
		name = "memory parity error"
	case ExceptionCodeGatewayPathUnavailable:
		name = "gateway path unavailable"
	case ExceptionCodeGatewayTargetDeviceFailedToRespond:
		name = "gateway target device failed to respond"
	default:
		name = "unknown exception"
	}
	return fmt.Sprintf("modbus: function code 0x%02X, exception code 0x%02X (%s)", e.FunctionCode, e.ExceptionCode, name)
}

// Packager specifies the interface for encoding/decoding Modbus
// Application Data Units (ADU) to/from Protocol Data Units (PDU).
type Packager interface {
	Encode(pdu *ProtocolDataUnit) (adu []byte, err error)
	Decode(adu []byte) (pdu *ProtocolDataUnit, err error)
	Verify(aduRequest []byte, aduResponse []byte) (err error)
}

// Transporter specifies the interface for a synchronous request/response
// exchange of already-framed ADUs.
type Transporter interface {
	Send(ctx context.Context, aduRequest []byte) (aduResponse []byte, err error)
}

// Client is the synchronous, blocking Modbus master API: one request, one
// response, per call. It is a convenience layer for point-to-point use
// without a Gateway; see Master for the asynchronous, callback-driven engine
// used by the gateway and by multi-request masters.
type Client interface {
	ReadCoils(ctx context.Context, address, quantity uint16) (results []byte, err error)
	ReadDiscreteInputs(ctx context.Context, address, quantity uint16) (results []byte, err error)
	ReadHoldingRegisters(ctx context.Context, address, quantity uint16) (results []byte, err error)
	ReadInputRegisters(ctx context.Context, address, quantity uint16) (results []byte, err error)
	WriteSingleCoil(ctx context.Context, address, value uint16) (results []byte, err error)
	WriteSingleRegister(ctx context.Context, address, value uint16) (results []byte, err error)
	WriteMultipleCoils(ctx context.Context, address, quantity uint16, value []byte) (results []byte, err error)
	WriteMultipleRegisters(ctx context.Context, address, quantity uint16, value []byte) (results []byte, err error)
	MaskWriteRegister(ctx context.Context, address, andMask, orMask uint16) (results []byte, err error)
	ReadWriteMultipleRegisters(ctx context.Context, readAddress, readQuantity, writeAddress, writeQuantity uint16, value []byte) (results []byte, err error)
	ReadFIFOQueue(ctx context.Context, address uint16) (results []byte, err error)
}

// StopBits defines the number of stop bits for a serial connection.
type StopBits int

const (
	OneStopBit StopBits = iota
	TwoStopBits
)

// Parity defines the parity setting for a serial connection.
type Parity int

const (
	EvenParity Parity = iota
	OddParity
	NoParity
)
