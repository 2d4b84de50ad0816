// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package testutil

import (
	"testing"

	"github.com/modbusgw/modbus/internal/simulator"
)

// ASCIISimulatorOption configures an ASCII simulator.
type ASCIISimulatorOption func(*asciiSimulatorConfig)

type asciiSimulatorConfig struct {
	slaveID  byte
	baudRate int
	config   *simulator.DataStoreConfig
}

// WithASCIISlaveID sets the slave ID for the simulator.
func WithASCIISlaveID(id byte) ASCIISimulatorOption {
	return func(c *asciiSimulatorConfig) {
		c.slaveID = id
	}
}

// WithASCIIBaudRate sets the baud rate for the simulator.
func WithASCIIBaudRate(rate int) ASCIISimulatorOption {
	return func(c *asciiSimulatorConfig) {
		c.baudRate = rate
	}
}

// WithASCIIDataStoreConfig sets initial data values for the simulator.
func WithASCIIDataStoreConfig(config *simulator.DataStoreConfig) ASCIISimulatorOption {
	return func(c *asciiSimulatorConfig) {
		c.config = config
	}
}

// StartASCIISimulator creates and starts an ASCII Modbus simulator for
// testing. It returns a cleanup function that should be deferred, and the
// device path that clients should use to connect.
//
// Example usage:
//
//	cleanup, devicePath := testutil.StartASCIISimulator(t,
//	    testutil.WithASCIISlaveID(17),
//	    testutil.WithASCIIBaudRate(19200))
//	defer cleanup()
//
//	client := modbus.NewASCIIClientHandler(devicePath)
//	// ... use client ...
func StartASCIISimulator(t *testing.T, opts ...ASCIISimulatorOption) (cleanup func(), devicePath string) {
	t.Helper()

	config := &asciiSimulatorConfig{
		slaveID:  1,
		baudRate: 19200,
	}
	for _, opt := range opts {
		opt(config)
	}

	ds := simulator.NewDataStore(config.config)

	server, err := simulator.NewASCIIServer(ds, &simulator.ASCIIServerConfig{
		SlaveID:  config.slaveID,
		BaudRate: config.baudRate,
	})
	if err != nil {
		t.Fatalf("failed to create ASCII simulator: %v", err)
	}

	if err := server.Start(); err != nil {
		t.Fatalf("failed to start ASCII simulator: %v", err)
	}

	devicePath = server.ClientDevicePath()
	t.Logf("ASCII simulator started on %s (slave ID: %d)", devicePath, config.slaveID)

	cleanup = func() {
		if err := server.Stop(); err != nil {
			t.Errorf("failed to stop ASCII simulator: %v", err)
		}
		t.Logf("ASCII simulator stopped")
	}

	return cleanup, devicePath
}
