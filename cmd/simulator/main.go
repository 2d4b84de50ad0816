// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/modbusgw/modbus/internal/simulator"
)

func main() {
	// Parse command line flags
	slaveID := flag.Int("slave-id", 1, "Slave ID (1-247)")
	baudRate := flag.Int("baud", 19200, "Baud rate")
	configFile := flag.String("config", "", "JSON config file for initial data values")
	flag.Parse()

	if *slaveID < 1 || *slaveID > 247 {
		log.Fatalf("invalid slave ID %d: must be between 1 and 247", *slaveID)
	}

	// Load configuration
	var config *simulator.DataStoreConfig
	if *configFile != "" {
		var err error
		config, err = loadConfig(*configFile)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		log.Printf("loaded initial data from %s", *configFile)
	}

	// Create data store
	ds := simulator.NewDataStore(config)

	// Create and start the ASCII server
	server, err := simulator.NewASCIIServer(ds, &simulator.ASCIIServerConfig{
		SlaveID:  byte(*slaveID),
		BaudRate: *baudRate,
	})
	if err != nil {
		log.Fatalf("failed to create ASCII server: %v", err)
	}

	if err := server.Start(); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	fmt.Printf("Modbus ASCII simulator running\n")
	fmt.Printf("Client device path: %s\n", server.ClientDevicePath())
	fmt.Printf("Slave ID: %d\n", *slaveID)
	fmt.Printf("Baud rate: %d\n", *baudRate)
	fmt.Println("Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	if err := server.Stop(); err != nil {
		log.Printf("error stopping server: %v", err)
	}
}

// loadConfig loads a DataStoreConfig from a JSON file.
func loadConfig(filename string) (*simulator.DataStoreConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config simulator.DataStoreConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &config, nil
}
