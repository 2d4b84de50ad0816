// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package modbus

import "testing"

func TestDefaultConfigVerifies(t *testing.T) {
	if err := DefaultConfig().Verify(); err != nil {
		t.Errorf("DefaultConfig().Verify() error = %v, want nil", err)
	}
}

func TestConfigVerifyRejectsNegativePoolSize(t *testing.T) {
	c := DefaultConfig()
	c.TotalSlaves = -1
	if err := c.Verify(); err == nil {
		t.Error("Verify() with a negative pool size succeeded, want an error")
	}
}

func TestConfigVerifyRequiresAtLeastOneGateway(t *testing.T) {
	c := DefaultConfig()
	c.TotalGateways = 0
	if err := c.Verify(); err == nil {
		t.Error("Verify() with TotalGateways=0 succeeded, want an error")
	}
}

func TestFunctionEnableAllows(t *testing.T) {
	fe := FunctionEnable{ReadHoldingRegisters: true, WriteSingleCoil: true}

	if !fe.allows(FuncCodeReadHoldingRegisters) {
		t.Error("allows(ReadHoldingRegisters) = false, want true")
	}
	if !fe.allows(FuncCodeWriteSingleCoil) {
		t.Error("allows(WriteSingleCoil) = false, want true")
	}
	if fe.allows(FuncCodeReadCoils) {
		t.Error("allows(ReadCoils) = true, want false")
	}
	if fe.allows(0x7F) {
		t.Error("allows(unrecognized function code) = true, want false")
	}
}

func TestConfigVerifyRejectsRTUAndTCPTransports(t *testing.T) {
	c := DefaultConfig()
	c.TotalTransportRTU = 1
	if err := c.Verify(); err == nil {
		t.Error("Verify() with TotalTransportRTU>0 succeeded, want an error")
	}

	c = DefaultConfig()
	c.TotalTransportTCP = 1
	if err := c.Verify(); err == nil {
		t.Error("Verify() with TotalTransportTCP>0 succeeded, want an error")
	}
}
