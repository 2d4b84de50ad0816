// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package simulator

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/modbusgw/modbus"
)

// ASCIIServer implements a Modbus ASCII server. Framing is delegated to the
// package's own streaming modbus.Decoder/modbus.Encode rather than a
// simulator-local codec, so the simulator exercises the same wire path real
// transports use.
type ASCIIServer struct {
	handler  *Handler
	decoder  *modbus.Decoder
	pty      *PtyPair
	slaveID  byte
	baudRate int
	logger   *log.Logger
	stopChan chan struct{}
	doneChan chan struct{}
}

// ASCIIServerConfig holds configuration for the ASCII server.
type ASCIIServerConfig struct {
	SlaveID  byte
	BaudRate int
	Logger   *log.Logger
}

// NewASCIIServer creates a new ASCII server with the given data store and configuration.
func NewASCIIServer(ds *DataStore, config *ASCIIServerConfig) (*ASCIIServer, error) {
	if config == nil {
		config = &ASCIIServerConfig{}
	}
	if config.SlaveID == 0 {
		config.SlaveID = 1
	}
	if config.BaudRate == 0 {
		config.BaudRate = 19200
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stdout, "ascii-server: ", log.LstdFlags)
	}

	pty, err := CreatePtyPair()
	if err != nil {
		return nil, fmt.Errorf("failed to create pty: %w", err)
	}

	return &ASCIIServer{
		handler:  NewHandler(ds),
		decoder:  modbus.NewDecoder(),
		pty:      pty,
		slaveID:  config.SlaveID,
		baudRate: config.BaudRate,
		logger:   config.Logger,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}, nil
}

// ClientDevicePath returns the device path that clients should connect to.
func (s *ASCIIServer) ClientDevicePath() string {
	return s.pty.SlavePath
}

// Start starts the ASCII server in a goroutine.
func (s *ASCIIServer) Start() error {
	go s.serve()
	// Give the server and pty time to fully initialize
	time.Sleep(200 * time.Millisecond)
	return nil
}

// Stop stops the ASCII server and waits for it to finish.
func (s *ASCIIServer) Stop() error {
	close(s.stopChan)

	// Close the pty to unblock any pending reads
	if err := s.pty.Close(); err != nil {
		s.logger.Printf("error closing pty: %v", err)
	}

	// Wait for server goroutine to finish with a timeout
	select {
	case <-s.doneChan:
		// Clean shutdown
	case <-time.After(1 * time.Second):
		// Timeout - the goroutine is stuck in a blocking read
		s.logger.Printf("ASCII server stop timed out (goroutine may still be reading)")
	}

	return nil
}

// serve is the main server loop that reads requests and sends responses.
func (s *ASCIIServer) serve() {
	defer close(s.doneChan)

	s.logger.Printf("ASCII server listening - server pty: %s, client pty: %s (slave ID: %d)", s.pty.MasterPath, s.pty.SlavePath, s.slaveID)

	for {
		select {
		case <-s.stopChan:
			s.logger.Printf("ASCII server stopping")
			return
		default:
			if err := s.handleRequest(); err != nil {
				if err == io.EOF {
					// File closed, stop serving
					s.logger.Printf("ASCII server stopping (pty closed)")
					return
				}
				s.logger.Printf("error handling request: %v", err)
			}
		}
	}
}

// handleRequest pulls bytes into the streaming decoder until a frame is
// available (or the deadline trips), dispatches it, and writes the encoded
// response back.
func (s *ASCIIServer) handleRequest() error {
	slaveAndPDU, err := s.nextFrame()
	if err != nil {
		if os.IsTimeout(err) {
			// Timeout is expected, allows checking stopChan
			return nil
		}
		if err == io.EOF || err == os.ErrClosed {
			return io.EOF
		}
		s.logger.Printf("error reading frame: %v", err)
		return nil
	}
	if slaveAndPDU == nil {
		return nil
	}

	s.logger.Printf("received: slave=%d % x", slaveAndPDU[0], slaveAndPDU[1:])

	if slaveAndPDU[0] != s.slaveID && slaveAndPDU[0] != 0 {
		// Not for us, ignore.
		return nil
	}

	pdu := &modbus.ProtocolDataUnit{FunctionCode: slaveAndPDU[1], Data: slaveAndPDU[2:]}

	// Apply any delay or simulated timeout configured for the addressed
	// register type and starting address before answering.
	regType := RegisterTypeHoldingReg
	switch pdu.FunctionCode {
	case modbus.FuncCodeReadCoils, modbus.FuncCodeWriteSingleCoil, modbus.FuncCodeWriteMultipleCoils:
		regType = RegisterTypeCoil
	case modbus.FuncCodeReadDiscreteInputs:
		regType = RegisterTypeDiscreteInput
	case modbus.FuncCodeReadInputRegisters:
		regType = RegisterTypeInputReg
	}
	if len(pdu.Data) >= 2 && !s.handler.dataStore.ApplyDelay(regType, uint16(pdu.Data[0])<<8|uint16(pdu.Data[1])) {
		return nil // simulated timeout: send no response
	}

	responsePDU := s.handler.HandleRequest(pdu)

	responseSlaveAndPDU := append([]byte{s.slaveID, responsePDU.FunctionCode}, responsePDU.Data...)
	responseADU := modbus.Encode(responseSlaveAndPDU)

	s.logger.Printf("sending: %s", strings.TrimSpace(string(responseADU)))

	n, err := s.pty.Master.Write(responseADU)
	if err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	s.logger.Printf("wrote %d bytes", n)

	return nil
}

// nextFrame reads bytes from the pty into the streaming decoder, a chunk at
// a time, until a complete frame is available or the read deadline trips.
func (s *ASCIIServer) nextFrame() ([]byte, error) {
	if frame, ok := s.decoder.Next(); ok {
		return frame, nil
	}

	if err := s.pty.Master.SetReadDeadline(time.Now().Add(500 * time.Millisecond)); err != nil {
		s.logger.Printf("warning: failed to set read deadline: %v", err)
	}

	buf := make([]byte, 256)
	n, err := s.pty.Master.Read(buf)
	if n > 0 {
		_, _ = s.decoder.Write(buf[:n])
	}
	if err != nil {
		return nil, err
	}
	frame, ok := s.decoder.Next()
	if !ok {
		return nil, nil
	}
	return frame, nil
}
