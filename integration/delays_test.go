// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/modbusgw/modbus"
	"github.com/modbusgw/modbus/internal/simulator"
	"github.com/modbusgw/modbus/internal/testutil"
)

func TestASCIIClientWithDelay(t *testing.T) {
	// Setup simulator with delay configuration
	config := &simulator.DataStoreConfig{
		NamedCoils: map[uint16]simulator.CoilConfig{
			0: {Name: "RELAY", Value: true},
		},
		Delays: &simulator.DelayConfigSet{
			Coils: map[uint16]simulator.DelayConfig{
				0: {
					Delay:  "100ms",
					Jitter: 0,
				},
			},
		},
	}

	cleanup, devicePath := testutil.StartASCIISimulator(t, testutil.WithASCIIDataStoreConfig(config))
	defer cleanup()

	handler := modbus.NewASCIIClientHandler(devicePath)
	handler.BaudRate = 19200
	handler.DataBits = 8
	handler.Parity = modbus.EvenParity
	handler.StopBits = modbus.OneStopBit
	handler.Timeout = 5 * time.Second
	handler.SlaveID = 1

	if err := handler.Connect(); err != nil {
		t.Fatal(err)
	}
	defer handler.Close()

	client := modbus.NewClient(handler)
	ctx := context.Background()

	start := time.Now()
	results, err := client.ReadCoils(ctx, 0, 1)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("expected successful read with delay, got error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 byte, got %d", len(results))
	}

	// Verify delay was applied (should be around 100ms)
	expectedDelay := 100 * time.Millisecond
	if elapsed < expectedDelay-50*time.Millisecond {
		t.Errorf("delay too short: expected ~%v, got %v", expectedDelay, elapsed)
	}

	t.Logf("ASCII read with 100ms delay took %v", elapsed)
}

func TestASCIIClientTimeoutWithLongDelay(t *testing.T) {
	// Test ASCII client timeout when delay is longer than client timeout
	config := &simulator.DataStoreConfig{
		NamedCoils: map[uint16]simulator.CoilConfig{
			0: {Name: "SLOW_COIL", Value: true},
		},
		Delays: &simulator.DelayConfigSet{
			Coils: map[uint16]simulator.DelayConfig{
				0: {
					Delay: "2s", // Delay longer than client timeout
				},
			},
		},
	}

	cleanup, devicePath := testutil.StartASCIISimulator(t, testutil.WithASCIIDataStoreConfig(config))
	defer cleanup()

	handler := modbus.NewASCIIClientHandler(devicePath)
	handler.BaudRate = 19200
	handler.DataBits = 8
	handler.Parity = modbus.EvenParity
	handler.StopBits = modbus.OneStopBit
	handler.Timeout = 500 * time.Millisecond // Short timeout
	handler.SlaveID = 1

	if err := handler.Connect(); err != nil {
		t.Fatal(err)
	}
	defer handler.Close()

	client := modbus.NewClient(handler)
	ctx := context.Background()

	start := time.Now()
	_, err := client.ReadCoils(ctx, 0, 1)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected timeout error when delay exceeds timeout, got nil")
	}

	// Should timeout around the configured timeout duration
	if elapsed < 400*time.Millisecond || elapsed > 700*time.Millisecond {
		t.Errorf("unexpected timeout duration: %v (expected ~500ms)", elapsed)
	}

	t.Logf("ASCII timeout with long delay took %v", elapsed)
}

func TestASCIIClientTimeoutThenSuccessfulRequest(t *testing.T) {
	// Test that after a timeout, the next successful request still works
	config := &simulator.DataStoreConfig{
		NamedHoldingRegs: map[uint16]simulator.RegisterConfig{
			100: {Name: "TIMEOUT_REG", Value: 1234},
			200: {Name: "GOOD_REG", Value: 5678},
		},
		Delays: &simulator.DelayConfigSet{
			HoldingRegs: map[uint16]simulator.DelayConfig{
				100: {
					TimeoutProbability: 1.0, // Always timeout
				},
				// Register 200 has no delay config, so it responds normally
			},
		},
	}

	cleanup, devicePath := testutil.StartASCIISimulator(t, testutil.WithASCIIDataStoreConfig(config))
	defer cleanup()

	handler := modbus.NewASCIIClientHandler(devicePath)
	handler.BaudRate = 19200
	handler.DataBits = 8
	handler.Parity = modbus.EvenParity
	handler.StopBits = modbus.OneStopBit
	handler.Timeout = 500 * time.Millisecond
	handler.SlaveID = 1
	if err := handler.Connect(); err != nil {
		t.Fatal(err)
	}
	defer handler.Close()

	client := modbus.NewClient(handler)
	ctx := context.Background()

	// First request should timeout
	start := time.Now()
	_, err := client.ReadHoldingRegisters(ctx, 100, 1)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected timeout error for register 100")
	}
	t.Logf("First request (timeout) took %v", elapsed)

	// Second request should succeed
	start = time.Now()
	result, err := client.ReadHoldingRegisters(ctx, 200, 1)
	elapsed = time.Since(start)

	if err != nil {
		t.Fatalf("expected successful read for register 200, got error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 bytes, got %d", len(result))
	}
	t.Logf("Second request (success) took %v", elapsed)
}

func TestASCIIClientWithJitter(t *testing.T) {
	// NOTE: timing-sensitive; run locally with:
	// go test -v -run TestASCIIClientWithJitter ./integration
	config := &simulator.DataStoreConfig{
		NamedHoldingRegs: map[uint16]simulator.RegisterConfig{
			0: {Name: "JITTER_REG", Value: 1111},
		},
		Delays: &simulator.DelayConfigSet{
			HoldingRegs: map[uint16]simulator.DelayConfig{
				0: {
					Delay:  "100ms",
					Jitter: 50, // +-50%
				},
			},
		},
	}

	cleanup, devicePath := testutil.StartASCIISimulator(t, testutil.WithASCIIDataStoreConfig(config))
	defer cleanup()

	handler := modbus.NewASCIIClientHandler(devicePath)
	handler.BaudRate = 19200
	handler.DataBits = 8
	handler.Parity = modbus.EvenParity
	handler.StopBits = modbus.OneStopBit
	handler.Timeout = 5 * time.Second
	handler.SlaveID = 1
	if err := handler.Connect(); err != nil {
		t.Fatal(err)
	}
	defer handler.Close()

	client := modbus.NewClient(handler)
	ctx := context.Background()

	start := time.Now()
	result, err := client.ReadHoldingRegisters(ctx, 0, 1)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("expected successful read with jittered delay, got error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 bytes, got %d", len(result))
	}

	// The jittered delay itself is 50ms-150ms; the 500ms upper bound leaves
	// room for the serial round trip.
	if elapsed < 50*time.Millisecond || elapsed > 500*time.Millisecond {
		t.Errorf("jittered delay out of expected range: %v", elapsed)
	}

	t.Logf("ASCII read with jittered delay took %v", elapsed)
}

func TestASCIIClientContextCancellation(t *testing.T) {
	config := &simulator.DataStoreConfig{
		NamedCoils: map[uint16]simulator.CoilConfig{
			0: {Name: "SLOW_COIL", Value: true},
		},
		Delays: &simulator.DelayConfigSet{
			Coils: map[uint16]simulator.DelayConfig{
				0: {Delay: "1s"},
			},
		},
	}

	cleanup, devicePath := testutil.StartASCIISimulator(t, testutil.WithASCIIDataStoreConfig(config))
	defer cleanup()

	handler := modbus.NewASCIIClientHandler(devicePath)
	handler.BaudRate = 19200
	handler.DataBits = 8
	handler.Parity = modbus.EvenParity
	handler.StopBits = modbus.OneStopBit
	handler.Timeout = 5 * time.Second
	handler.SlaveID = 1
	if err := handler.Connect(); err != nil {
		t.Fatal(err)
	}
	defer handler.Close()

	client := modbus.NewClient(handler)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.ReadCoils(ctx, 0, 1)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected context deadline error, got nil")
	}

	t.Logf("ASCII context cancellation test result: err=%v, elapsed=%v", err, elapsed)
}
