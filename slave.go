// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package modbus

import "encoding/binary"

// Quantity bounds mandated by the Modbus Application Protocol for the
// read/write functions this engine supports.
const (
	minReadBits  = 1
	maxReadBits  = 2000
	minRegisters = 1
	maxRegisters = 0x007D
	minWriteBits = 1
	maxWriteBits = 1968
	minWriteRegs = 1
	maxWriteRegs = 0x007B
	maxRWReadRegs  = 0x007D
	maxRWWriteRegs = 0x0079
)

// Dispatch is the stateless slave engine: it decodes a request PDU, consults
// table for a handler covering the request, and returns the encoded response
// PDU (function byte first). It never blocks and never retains state across
// calls; table is read-only from Dispatch's perspective. Slave-id framing is
// the caller's concern — pdu must already have any leading slave-id byte
// stripped.
func Dispatch(table *CommandTable, pdu []byte) []byte {
	if len(pdu) == 0 {
		return exceptionResponse(0, ExceptionCodeIllegalFunction)
	}
	function := pdu[0]
	data := pdu[1:]

	switch function {
	case FuncCodeReadCoils:
		return dispatchReadBits(function, data, table.ReadCoils)
	case FuncCodeReadDiscreteInputs:
		return dispatchReadBits(function, data, table.ReadDiscreteInputs)
	case FuncCodeReadHoldingRegisters:
		return dispatchReadRegisters(function, data, table.ReadHoldingRegisters)
	case FuncCodeReadInputRegisters:
		return dispatchReadRegisters(function, data, table.ReadInputRegisters)
	case FuncCodeWriteSingleCoil:
		return dispatchWriteSingleCoil(function, data, table.WriteSingleCoil)
	case FuncCodeWriteSingleRegister:
		return dispatchWriteSingleRegister(function, data, table.WriteSingleRegister)
	case FuncCodeWriteMultipleCoils:
		return dispatchWriteMultipleCoils(function, data, table.WriteMultipleCoils)
	case FuncCodeWriteMultipleRegisters:
		return dispatchWriteMultipleRegisters(function, data, table.WriteMultipleRegisters)
	case FuncCodeReadWriteMultipleRegisters:
		return dispatchReadWriteMultipleRegisters(function, data, table)
	default:
		return exceptionResponse(function, ExceptionCodeIllegalFunction)
	}
}

func exceptionResponse(function, exception byte) []byte {
	return []byte{function | 0x80, exception}
}

// lookupException maps a lookupResult that was not lookupMatched to its
// wire exception code: an empty table means the function has no registered
// handlers at all (illegal function); a non-empty table with no covering
// range means the request address is out of range.
func lookupException(r lookupResult) byte {
	if r == lookupNoTable {
		return ExceptionCodeIllegalFunction
	}
	return ExceptionCodeIllegalDataAddress
}

func dispatchReadBits(function byte, data []byte, ranges []bitRange) []byte {
	if len(data) != 4 {
		return exceptionResponse(function, ExceptionCodeIllegalDataValue)
	}
	address := binary.BigEndian.Uint16(data[0:2])
	quantity := binary.BigEndian.Uint16(data[2:4])
	if quantity < minReadBits || quantity > maxReadBits {
		return exceptionResponse(function, ExceptionCodeIllegalDataValue)
	}

	handler, result := lookupBitRange(ranges, address)
	if result != lookupMatched {
		return exceptionResponse(function, lookupException(result))
	}

	out := make([]bool, quantity)
	n, exception := handler(address, quantity, out)
	if n <= 0 {
		return exceptionResponse(function, exception)
	}

	body := boolsToBytes(out[:n])
	return append([]byte{function}, body...)
}

func dispatchReadRegisters(function byte, data []byte, ranges []registerRange) []byte {
	if len(data) != 4 {
		return exceptionResponse(function, ExceptionCodeIllegalDataValue)
	}
	address := binary.BigEndian.Uint16(data[0:2])
	quantity := binary.BigEndian.Uint16(data[2:4])
	if quantity < minRegisters || quantity > maxRegisters {
		return exceptionResponse(function, ExceptionCodeIllegalDataValue)
	}

	handler, result := lookupRegisterRange(ranges, address)
	if result != lookupMatched {
		return exceptionResponse(function, lookupException(result))
	}

	out := make([]uint16, quantity)
	n, exception := handler(address, quantity, out)
	if n <= 0 {
		return exceptionResponse(function, exception)
	}

	body := registersToBytes(out[:n])
	return append([]byte{function}, body...)
}

func dispatchWriteSingleCoil(function byte, data []byte, ranges []writeSingleCoilRange) []byte {
	if len(data) != 4 {
		return exceptionResponse(function, ExceptionCodeIllegalDataValue)
	}
	address := binary.BigEndian.Uint16(data[0:2])
	raw := binary.BigEndian.Uint16(data[2:4])
	var value bool
	switch raw {
	case 0xFF00:
		value = true
	case 0x0000:
		value = false
	default:
		return exceptionResponse(function, ExceptionCodeIllegalDataValue)
	}

	handler, result := lookupWriteSingleCoil(ranges, address)
	if result != lookupMatched {
		return exceptionResponse(function, lookupException(result))
	}

	ok, exception := handler(address, value)
	if !ok {
		return exceptionResponse(function, exception)
	}
	return append([]byte{function}, data...)
}

func dispatchWriteSingleRegister(function byte, data []byte, ranges []writeSingleRegisterRange) []byte {
	if len(data) != 4 {
		return exceptionResponse(function, ExceptionCodeIllegalDataValue)
	}
	address := binary.BigEndian.Uint16(data[0:2])
	value := binary.BigEndian.Uint16(data[2:4])

	handler, result := lookupWriteSingleRegister(ranges, address)
	if result != lookupMatched {
		return exceptionResponse(function, lookupException(result))
	}

	ok, exception := handler(address, value)
	if !ok {
		return exceptionResponse(function, exception)
	}
	return append([]byte{function}, data...)
}

func dispatchWriteMultipleCoils(function byte, data []byte, ranges []writeMultipleCoilsRange) []byte {
	if len(data) < 5 {
		return exceptionResponse(function, ExceptionCodeIllegalDataValue)
	}
	address := binary.BigEndian.Uint16(data[0:2])
	quantity := binary.BigEndian.Uint16(data[2:4])
	byteCount := data[4]
	if quantity < minWriteBits || quantity > maxWriteBits || int(byteCount) != (int(quantity)+7)/8 || len(data) != 5+int(byteCount) {
		return exceptionResponse(function, ExceptionCodeIllegalDataValue)
	}

	handler, result := lookupWriteMultipleCoils(ranges, address)
	if result != lookupMatched {
		return exceptionResponse(function, lookupException(result))
	}

	ok, exception := handler(address, bytesToBools(data[5:], quantity))
	if !ok {
		return exceptionResponse(function, exception)
	}
	return append([]byte{function}, data[0:4]...)
}

func dispatchWriteMultipleRegisters(function byte, data []byte, ranges []writeMultipleRegistersRange) []byte {
	if len(data) < 5 {
		return exceptionResponse(function, ExceptionCodeIllegalDataValue)
	}
	address := binary.BigEndian.Uint16(data[0:2])
	quantity := binary.BigEndian.Uint16(data[2:4])
	byteCount := data[4]
	if quantity < minWriteRegs || quantity > maxWriteRegs || int(byteCount) != int(quantity)*2 || len(data) != 5+int(byteCount) {
		return exceptionResponse(function, ExceptionCodeIllegalDataValue)
	}

	handler, result := lookupWriteMultipleRegisters(ranges, address)
	if result != lookupMatched {
		return exceptionResponse(function, lookupException(result))
	}

	ok, exception := handler(address, bytesToRegisters(data[5:]))
	if !ok {
		return exceptionResponse(function, exception)
	}
	return append([]byte{function}, data[0:4]...)
}

// dispatchReadWriteMultipleRegisters implements function code 0x17: the
// write side is performed before the read side, per the Modbus spec, and
// the response carries only the read result.
func dispatchReadWriteMultipleRegisters(function byte, data []byte, table *CommandTable) []byte {
	if len(data) < 9 {
		return exceptionResponse(function, ExceptionCodeIllegalDataValue)
	}
	readAddress := binary.BigEndian.Uint16(data[0:2])
	readQuantity := binary.BigEndian.Uint16(data[2:4])
	writeAddress := binary.BigEndian.Uint16(data[4:6])
	writeQuantity := binary.BigEndian.Uint16(data[6:8])
	byteCount := data[8]

	if readQuantity < minRegisters || readQuantity > maxRWReadRegs ||
		writeQuantity < minRegisters || writeQuantity > maxRWWriteRegs ||
		int(byteCount) != int(writeQuantity)*2 || len(data) != 9+int(byteCount) {
		return exceptionResponse(function, ExceptionCodeIllegalDataValue)
	}

	writeHandler, writeResult := lookupWriteMultipleRegisters(table.ReadWriteMultipleRegisters.Write, writeAddress)
	if writeResult != lookupMatched {
		return exceptionResponse(function, lookupException(writeResult))
	}
	ok, exception := writeHandler(writeAddress, bytesToRegisters(data[9:]))
	if !ok {
		return exceptionResponse(function, exception)
	}

	readHandler, readResult := lookupRegisterRange(table.ReadWriteMultipleRegisters.Read, readAddress)
	if readResult != lookupMatched {
		return exceptionResponse(function, lookupException(readResult))
	}
	out := make([]uint16, readQuantity)
	n, exception := readHandler(readAddress, readQuantity, out)
	if n <= 0 {
		return exceptionResponse(function, exception)
	}

	body := registersToBytes(out[:n])
	return append([]byte{function}, body...)
}

// boolsToBytes packs values into Modbus byte-count-prefixed, LSB-first bits.
func boolsToBytes(values []bool) []byte {
	byteCount := (len(values) + 7) / 8
	result := make([]byte, 1+byteCount)
	result[0] = byte(byteCount)
	for i, v := range values {
		if v {
			result[1+i/8] |= 1 << uint(i%8)
		}
	}
	return result
}

// bytesToBools unpacks quantity LSB-first bits from data.
func bytesToBools(data []byte, quantity uint16) []bool {
	result := make([]bool, quantity)
	for i := uint16(0); i < quantity; i++ {
		result[i] = data[i/8]&(1<<uint(i%8)) != 0
	}
	return result
}

// registersToBytes packs registers into Modbus byte-count-prefixed,
// big-endian 16-bit values.
func registersToBytes(registers []uint16) []byte {
	result := make([]byte, 1+2*len(registers))
	result[0] = byte(2 * len(registers))
	for i, v := range registers {
		binary.BigEndian.PutUint16(result[1+i*2:], v)
	}
	return result
}

// bytesToRegisters decodes big-endian 16-bit values from data.
func bytesToRegisters(data []byte) []uint16 {
	result := make([]uint16, len(data)/2)
	for i := range result {
		result[i] = binary.BigEndian.Uint16(data[i*2:])
	}
	return result
}
