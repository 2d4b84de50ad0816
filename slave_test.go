// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package modbus

import (
	"bytes"
	"testing"
)

func TestDispatchUnsupportedFunction(t *testing.T) {
	table := &CommandTable{}
	got := Dispatch(table, []byte{0x99})
	want := []byte{0x99 | 0x80, ExceptionCodeIllegalFunction}
	if !bytes.Equal(got, want) {
		t.Errorf("Dispatch() = % X, want % X", got, want)
	}
}

func TestDispatchEmptyPDU(t *testing.T) {
	table := &CommandTable{}
	got := Dispatch(table, nil)
	want := []byte{0x80, ExceptionCodeIllegalFunction}
	if !bytes.Equal(got, want) {
		t.Errorf("Dispatch() = % X, want % X", got, want)
	}
}

func TestDispatchReadHoldingRegistersNoTable(t *testing.T) {
	table := &CommandTable{}
	pdu := append([]byte{FuncCodeReadHoldingRegisters}, dataBlock(0, 1)...)
	got := Dispatch(table, pdu)
	want := []byte{FuncCodeReadHoldingRegisters | 0x80, ExceptionCodeIllegalFunction}
	if !bytes.Equal(got, want) {
		t.Errorf("Dispatch() = % X, want % X (empty table should read as unsupported function)", got, want)
	}
}

func TestDispatchReadHoldingRegistersOutOfRange(t *testing.T) {
	table := &CommandTable{}
	table.AddReadHoldingRegisters(AddressRange{Min: 100, Max: 199}, func(address, quantity uint16, out []uint16) (int, byte) {
		for i := range out {
			out[i] = 0
		}
		return len(out), 0
	})

	pdu := append([]byte{FuncCodeReadHoldingRegisters}, dataBlock(0, 1)...)
	got := Dispatch(table, pdu)
	want := []byte{FuncCodeReadHoldingRegisters | 0x80, ExceptionCodeIllegalDataAddress}
	if !bytes.Equal(got, want) {
		t.Errorf("Dispatch() = % X, want % X (address outside registered range)", got, want)
	}
}

func TestDispatchReadHoldingRegistersQuantityTooLarge(t *testing.T) {
	table := &CommandTable{}
	table.AddReadHoldingRegisters(AddressRange{Min: 0, Max: 0xFFFF}, func(address, quantity uint16, out []uint16) (int, byte) {
		return len(out), 0
	})

	pdu := append([]byte{FuncCodeReadHoldingRegisters}, dataBlock(0, 126)...)
	got := Dispatch(table, pdu)
	want := []byte{FuncCodeReadHoldingRegisters | 0x80, ExceptionCodeIllegalDataValue}
	if !bytes.Equal(got, want) {
		t.Errorf("Dispatch() = % X, want % X (quantity over the 125-register limit)", got, want)
	}
}

func TestDispatchReadHoldingRegistersSuccess(t *testing.T) {
	table := &CommandTable{}
	table.AddReadHoldingRegisters(AddressRange{Min: 0, Max: 9}, func(address, quantity uint16, out []uint16) (int, byte) {
		for i := range out {
			out[i] = address + uint16(i) + 1
		}
		return len(out), 0
	})

	pdu := append([]byte{FuncCodeReadHoldingRegisters}, dataBlock(2, 3)...)
	got := Dispatch(table, pdu)
	want := append([]byte{FuncCodeReadHoldingRegisters}, registersToBytes([]uint16{3, 4, 5})...)
	if !bytes.Equal(got, want) {
		t.Errorf("Dispatch() = % X, want % X", got, want)
	}
}

func TestDispatchReadCoilsSuccess(t *testing.T) {
	table := &CommandTable{}
	table.AddReadCoils(AddressRange{Min: 0, Max: 7}, func(address, quantity uint16, out []bool) (int, byte) {
		for i := range out {
			out[i] = i%2 == 0
		}
		return len(out), 0
	})

	pdu := append([]byte{FuncCodeReadCoils}, dataBlock(0, 8)...)
	got := Dispatch(table, pdu)
	want := append([]byte{FuncCodeReadCoils}, boolsToBytes([]bool{true, false, true, false, true, false, true, false})...)
	if !bytes.Equal(got, want) {
		t.Errorf("Dispatch() = % X, want % X", got, want)
	}
}

func TestDispatchWriteSingleCoil(t *testing.T) {
	var written uint16
	var wrote bool
	table := &CommandTable{}
	table.AddWriteSingleCoil(AddressRange{Min: 0, Max: 9}, func(address uint16, value bool) (bool, byte) {
		written = address
		wrote = value
		return true, 0
	})

	pdu := append([]byte{FuncCodeWriteSingleCoil}, dataBlock(3, 0xFF00)...)
	got := Dispatch(table, pdu)
	if !bytes.Equal(got, pdu) {
		t.Errorf("Dispatch() = % X, want echoed request % X", got, pdu)
	}
	if written != 3 || !wrote {
		t.Errorf("handler saw address=%d value=%v, want address=3 value=true", written, wrote)
	}
}

func TestDispatchWriteSingleCoilInvalidValue(t *testing.T) {
	table := &CommandTable{}
	table.AddWriteSingleCoil(AddressRange{Min: 0, Max: 9}, func(address uint16, value bool) (bool, byte) {
		return true, 0
	})

	pdu := append([]byte{FuncCodeWriteSingleCoil}, dataBlock(3, 0x1234)...)
	got := Dispatch(table, pdu)
	want := []byte{FuncCodeWriteSingleCoil | 0x80, ExceptionCodeIllegalDataValue}
	if !bytes.Equal(got, want) {
		t.Errorf("Dispatch() = % X, want % X", got, want)
	}
}

func TestDispatchWriteMultipleRegisters(t *testing.T) {
	var gotValues []uint16
	table := &CommandTable{}
	table.AddWriteMultipleRegisters(AddressRange{Min: 0, Max: 9}, func(address uint16, values []uint16) (bool, byte) {
		gotValues = values
		return true, 0
	})

	body := dataBlockSuffix(registersToBytesNoCount([]uint16{10, 20}), 4, 2)
	pdu := append([]byte{FuncCodeWriteMultipleRegisters}, body...)
	got := Dispatch(table, pdu)
	want := append([]byte{FuncCodeWriteMultipleRegisters}, dataBlock(4, 2)...)
	if !bytes.Equal(got, want) {
		t.Errorf("Dispatch() = % X, want % X", got, want)
	}
	if len(gotValues) != 2 || gotValues[0] != 10 || gotValues[1] != 20 {
		t.Errorf("handler saw values %v, want [10 20]", gotValues)
	}
}

func TestDispatchReadWriteMultipleRegisters(t *testing.T) {
	store := map[uint16]uint16{7: 77, 8: 88}
	table := &CommandTable{}
	table.AddReadWriteMultipleRegistersWrite(AddressRange{Min: 0, Max: 9}, func(address uint16, values []uint16) (bool, byte) {
		for i, v := range values {
			store[address+uint16(i)] = v
		}
		return true, 0
	})
	table.AddReadWriteMultipleRegistersRead(AddressRange{Min: 0, Max: 9}, func(address, quantity uint16, out []uint16) (int, byte) {
		for i := range out {
			out[i] = store[address+uint16(i)]
		}
		return len(out), 0
	})

	writeBody := registersToBytesNoCount([]uint16{100})
	data := make([]byte, 0, 9+len(writeBody))
	data = append(data, dataBlock(7, 2, 8, 1)...)
	data = append(data, byte(len(writeBody)))
	data = append(data, writeBody...)
	pdu := append([]byte{FuncCodeReadWriteMultipleRegisters}, data...)

	got := Dispatch(table, pdu)
	want := append([]byte{FuncCodeReadWriteMultipleRegisters}, registersToBytes([]uint16{77, 100})...)
	if !bytes.Equal(got, want) {
		t.Errorf("Dispatch() = % X, want % X", got, want)
	}
	if store[8] != 100 {
		t.Errorf("write side did not apply before read side: store[8] = %d, want 100", store[8])
	}
}

func TestBoolsBytesRoundTrip(t *testing.T) {
	values := []bool{true, false, true, true, false, false, false, true, true}
	packed := boolsToBytes(values)
	unpacked := bytesToBools(packed[1:], uint16(len(values)))
	if len(unpacked) != len(values) {
		t.Fatalf("bytesToBools() len = %d, want %d", len(unpacked), len(values))
	}
	for i := range values {
		if unpacked[i] != values[i] {
			t.Errorf("bit %d = %v, want %v", i, unpacked[i], values[i])
		}
	}
}

func TestRegistersBytesRoundTrip(t *testing.T) {
	values := []uint16{0x0001, 0xBEEF, 0x0000, 0xFFFF}
	packed := registersToBytes(values)
	unpacked := bytesToRegisters(packed[1:])
	if len(unpacked) != len(values) {
		t.Fatalf("bytesToRegisters() len = %d, want %d", len(unpacked), len(values))
	}
	for i := range values {
		if unpacked[i] != values[i] {
			t.Errorf("register %d = 0x%04X, want 0x%04X", i, unpacked[i], values[i])
		}
	}
}
