// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package modbus

import "fmt"

// FunctionEnable flags which function codes a Gateway's locally hosted
// slaves and masters are permitted to use, mirroring the original firmware's
// per-function compile-time enable switches (CIAAMODBUS_READ_HOLDING_REGISTERS
// == CIAAMODBUS_EN and siblings) as a runtime Config field instead.
type FunctionEnable struct {
	ReadCoils                  bool
	ReadDiscreteInputs         bool
	ReadHoldingRegisters       bool
	ReadInputRegisters         bool
	WriteSingleCoil            bool
	WriteSingleRegister        bool
	WriteMultipleCoils         bool
	WriteMultipleRegisters     bool
	ReadWriteMultipleRegisters bool
}

// Config enumerates the compile-time knobs from spec §6 as runtime pool
// sizes: the fixed-capacity handle pools (slaves, masters, gateways,
// transports-by-mode-family) are all sized from a Config passed once at
// startup, per Design Notes §9's "lift global mutable state into explicit
// context objects".
type Config struct {
	TotalSlaves   int
	TotalMasters  int
	TotalGateways int

	TotalTransportASCII int
	TotalTransportRTU   int
	TotalTransportTCP   int

	Functions FunctionEnable
}

// allows reports whether fe permits functionCode. Function codes this
// package does not recognize are never allowed, regardless of fe's fields.
func (fe FunctionEnable) allows(functionCode byte) bool {
	switch functionCode {
	case FuncCodeReadCoils:
		return fe.ReadCoils
	case FuncCodeReadDiscreteInputs:
		return fe.ReadDiscreteInputs
	case FuncCodeReadHoldingRegisters:
		return fe.ReadHoldingRegisters
	case FuncCodeReadInputRegisters:
		return fe.ReadInputRegisters
	case FuncCodeWriteSingleCoil:
		return fe.WriteSingleCoil
	case FuncCodeWriteSingleRegister:
		return fe.WriteSingleRegister
	case FuncCodeWriteMultipleCoils:
		return fe.WriteMultipleCoils
	case FuncCodeWriteMultipleRegisters:
		return fe.WriteMultipleRegisters
	case FuncCodeReadWriteMultipleRegisters:
		return fe.ReadWriteMultipleRegisters
	default:
		return false
	}
}

// DefaultConfig returns a Config with modest fixed pool sizes and every
// function code enabled.
func DefaultConfig() Config {
	return Config{
		TotalSlaves:         8,
		TotalMasters:        8,
		TotalGateways:       1,
		TotalTransportASCII: 8,
		TotalTransportRTU:   0,
		TotalTransportTCP:   0,
		Functions: FunctionEnable{
			ReadCoils:                  true,
			ReadDiscreteInputs:         true,
			ReadHoldingRegisters:       true,
			ReadInputRegisters:         true,
			WriteSingleCoil:            true,
			WriteSingleRegister:        true,
			WriteMultipleCoils:         true,
			WriteMultipleRegisters:     true,
			ReadWriteMultipleRegisters: true,
		},
	}
}

// Verify checks that every pool size is non-negative, that at least one
// gateway is configured, and that no RTU or TCP transports are requested
// (ErrTransportNotImplemented). It does not require any slave, master or
// transport to be configured. It follows the teacher's
// Config.Verify/Options.Verify pattern of returning a descriptive error
// rather than panicking on a bad configuration.
func (c Config) Verify() error {
	for name, n := range map[string]int{
		"TotalSlaves":         c.TotalSlaves,
		"TotalMasters":        c.TotalMasters,
		"TotalGateways":       c.TotalGateways,
		"TotalTransportASCII": c.TotalTransportASCII,
		"TotalTransportRTU":   c.TotalTransportRTU,
		"TotalTransportTCP":   c.TotalTransportTCP,
	} {
		if n < 0 {
			return fmt.Errorf("modbus: %s must not be negative, got %d", name, n)
		}
	}
	if c.TotalGateways == 0 {
		return fmt.Errorf("modbus: TotalGateways must be at least 1")
	}
	if c.TotalTransportRTU > 0 || c.TotalTransportTCP > 0 {
		return fmt.Errorf("modbus: %w: RTU and TCP transports are reserved identifiers only", ErrTransportNotImplemented)
	}
	return nil
}
