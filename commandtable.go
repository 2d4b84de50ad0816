// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package modbus

// AddressRange is an inclusive [Min, Max] register/coil address window
// covered by a single handler. Ranges may overlap across entries of the
// same CommandTable; Dispatch always honors the first entry whose range
// contains the request address.
type AddressRange struct {
	Min uint16
	Max uint16
}

// Contains reports whether address falls within the range, inclusive.
func (r AddressRange) Contains(address uint16) bool {
	return address >= r.Min && address <= r.Max
}

// ReadHandler is the bare read-handler shape: it answers a read over
// address..address+quantity-1 without returning values. On success it
// returns the number of coils/registers read (> 0); on failure it returns a
// non-positive count and the exception code to report. CommandTable does not
// accept it: the read functions register a ReadValuesHandler or a
// ReadBitsHandler.
type ReadHandler func(address, quantity uint16) (count int, exception byte)

// ReadValuesHandler additionally receives a buffer it must fill with the
// values read, one uint16 per register. Used by the register-read functions,
// which need the values to encode the response body.
type ReadValuesHandler func(address, quantity uint16, out []uint16) (count int, exception byte)

// ReadBitsHandler fills out with one bool per coil/discrete input read.
type ReadBitsHandler func(address, quantity uint16, out []bool) (count int, exception byte)

// WriteSingleRegisterHandler handles function code 0x06.
type WriteSingleRegisterHandler func(address, value uint16) (ok bool, exception byte)

// WriteSingleCoilHandler handles function code 0x05. value is true for
// 0xFF00, false for 0x0000 (any other on-wire value is an illegal data value
// rejected before the handler is consulted).
type WriteSingleCoilHandler func(address uint16, value bool) (ok bool, exception byte)

// WriteMultipleRegistersHandler handles function code 0x10.
type WriteMultipleRegistersHandler func(address uint16, values []uint16) (ok bool, exception byte)

// WriteMultipleCoilsHandler handles function code 0x0F.
type WriteMultipleCoilsHandler func(address uint16, values []bool) (ok bool, exception byte)

// registerRange pairs an AddressRange with a register read handler.
type registerRange struct {
	Range   AddressRange
	Handler ReadValuesHandler
}

// bitRange pairs an AddressRange with a coil/discrete-input read handler.
type bitRange struct {
	Range   AddressRange
	Handler ReadBitsHandler
}

// writeSingleRegisterRange pairs an AddressRange with a single-register
// write handler.
type writeSingleRegisterRange struct {
	Range   AddressRange
	Handler WriteSingleRegisterHandler
}

// writeSingleCoilRange pairs an AddressRange with a single-coil write
// handler.
type writeSingleCoilRange struct {
	Range   AddressRange
	Handler WriteSingleCoilHandler
}

// writeMultipleRegistersRange pairs an AddressRange with a multiple-register
// write handler.
type writeMultipleRegistersRange struct {
	Range   AddressRange
	Handler WriteMultipleRegistersHandler
}

// writeMultipleCoilsRange pairs an AddressRange with a multiple-coil write
// handler.
type writeMultipleCoilsRange struct {
	Range   AddressRange
	Handler WriteMultipleCoilsHandler
}

// CommandTable is the slave-side dispatch table: up to nine ordered lists of
// address-range handlers, one list per supported function code. It replaces
// the original firmware's null-terminated arrays of function pointers with a
// bounded, ordered Go slice per function; an empty slice plays the role of a
// first-entry-NULL table (function not supported, exception 0x01), and a
// non-empty slice with no matching range yields exception 0x02.
//
// A CommandTable is built once, by the application, and is read-only from
// Dispatch's perspective: the slave engine never mutates it.
type CommandTable struct {
	ReadCoils              []bitRange
	ReadDiscreteInputs     []bitRange
	ReadHoldingRegisters   []registerRange
	ReadInputRegisters     []registerRange
	WriteSingleCoil        []writeSingleCoilRange
	WriteSingleRegister    []writeSingleRegisterRange
	WriteMultipleCoils     []writeMultipleCoilsRange
	WriteMultipleRegisters []writeMultipleRegistersRange
	ReadWriteMultipleRegisters struct {
		Read  []registerRange
		Write []writeMultipleRegistersRange
	}
}

// AddReadCoils appends a handler for FuncCodeReadCoils over r.
func (t *CommandTable) AddReadCoils(r AddressRange, h ReadBitsHandler) {
	t.ReadCoils = append(t.ReadCoils, bitRange{r, h})
}

// AddReadDiscreteInputs appends a handler for FuncCodeReadDiscreteInputs over r.
func (t *CommandTable) AddReadDiscreteInputs(r AddressRange, h ReadBitsHandler) {
	t.ReadDiscreteInputs = append(t.ReadDiscreteInputs, bitRange{r, h})
}

// AddReadHoldingRegisters appends a handler for FuncCodeReadHoldingRegisters over r.
func (t *CommandTable) AddReadHoldingRegisters(r AddressRange, h ReadValuesHandler) {
	t.ReadHoldingRegisters = append(t.ReadHoldingRegisters, registerRange{r, h})
}

// AddReadInputRegisters appends a handler for FuncCodeReadInputRegisters over r.
func (t *CommandTable) AddReadInputRegisters(r AddressRange, h ReadValuesHandler) {
	t.ReadInputRegisters = append(t.ReadInputRegisters, registerRange{r, h})
}

// AddWriteSingleCoil appends a handler for FuncCodeWriteSingleCoil over r.
func (t *CommandTable) AddWriteSingleCoil(r AddressRange, h WriteSingleCoilHandler) {
	t.WriteSingleCoil = append(t.WriteSingleCoil, writeSingleCoilRange{r, h})
}

// AddWriteSingleRegister appends a handler for FuncCodeWriteSingleRegister over r.
func (t *CommandTable) AddWriteSingleRegister(r AddressRange, h WriteSingleRegisterHandler) {
	t.WriteSingleRegister = append(t.WriteSingleRegister, writeSingleRegisterRange{r, h})
}

// AddWriteMultipleCoils appends a handler for FuncCodeWriteMultipleCoils over r.
func (t *CommandTable) AddWriteMultipleCoils(r AddressRange, h WriteMultipleCoilsHandler) {
	t.WriteMultipleCoils = append(t.WriteMultipleCoils, writeMultipleCoilsRange{r, h})
}

// AddWriteMultipleRegisters appends a handler for FuncCodeWriteMultipleRegisters over r.
func (t *CommandTable) AddWriteMultipleRegisters(r AddressRange, h WriteMultipleRegistersHandler) {
	t.WriteMultipleRegisters = append(t.WriteMultipleRegisters, writeMultipleRegistersRange{r, h})
}

// AddReadWriteMultipleRegistersRead appends a read-side handler for
// FuncCodeReadWriteMultipleRegisters over r.
func (t *CommandTable) AddReadWriteMultipleRegistersRead(r AddressRange, h ReadValuesHandler) {
	t.ReadWriteMultipleRegisters.Read = append(t.ReadWriteMultipleRegisters.Read, registerRange{r, h})
}

// AddReadWriteMultipleRegistersWrite appends a write-side handler for
// FuncCodeReadWriteMultipleRegisters over r.
func (t *CommandTable) AddReadWriteMultipleRegistersWrite(r AddressRange, h WriteMultipleRegistersHandler) {
	t.ReadWriteMultipleRegisters.Write = append(t.ReadWriteMultipleRegisters.Write, writeMultipleRegistersRange{r, h})
}

// lookupResult distinguishes "no handlers registered at all" from "handlers
// registered but none cover this address" — the two are different exception
// codes and the distinction is part of the wire contract.
type lookupResult int

const (
	lookupNoTable lookupResult = iota
	lookupNoMatch
	lookupMatched
)

func lookupRegisterRange(ranges []registerRange, address uint16) (ReadValuesHandler, lookupResult) {
	if len(ranges) == 0 {
		return nil, lookupNoTable
	}
	for _, e := range ranges {
		if e.Range.Contains(address) {
			return e.Handler, lookupMatched
		}
	}
	return nil, lookupNoMatch
}

func lookupBitRange(ranges []bitRange, address uint16) (ReadBitsHandler, lookupResult) {
	if len(ranges) == 0 {
		return nil, lookupNoTable
	}
	for _, e := range ranges {
		if e.Range.Contains(address) {
			return e.Handler, lookupMatched
		}
	}
	return nil, lookupNoMatch
}

func lookupWriteSingleRegister(ranges []writeSingleRegisterRange, address uint16) (WriteSingleRegisterHandler, lookupResult) {
	if len(ranges) == 0 {
		return nil, lookupNoTable
	}
	for _, e := range ranges {
		if e.Range.Contains(address) {
			return e.Handler, lookupMatched
		}
	}
	return nil, lookupNoMatch
}

func lookupWriteSingleCoil(ranges []writeSingleCoilRange, address uint16) (WriteSingleCoilHandler, lookupResult) {
	if len(ranges) == 0 {
		return nil, lookupNoTable
	}
	for _, e := range ranges {
		if e.Range.Contains(address) {
			return e.Handler, lookupMatched
		}
	}
	return nil, lookupNoMatch
}

func lookupWriteMultipleRegisters(ranges []writeMultipleRegistersRange, address uint16) (WriteMultipleRegistersHandler, lookupResult) {
	if len(ranges) == 0 {
		return nil, lookupNoTable
	}
	for _, e := range ranges {
		if e.Range.Contains(address) {
			return e.Handler, lookupMatched
		}
	}
	return nil, lookupNoMatch
}

func lookupWriteMultipleCoils(ranges []writeMultipleCoilsRange, address uint16) (WriteMultipleCoilsHandler, lookupResult) {
	if len(ranges) == 0 {
		return nil, lookupNoTable
	}
	for _, e := range ranges {
		if e.Range.Contains(address) {
			return e.Handler, lookupMatched
		}
	}
	return nil, lookupNoMatch
}
