// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package cu300

import (
	"context"
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/chr15toffer/GrundfosCU300/pkg/genibus"
)

// SerialTransport speaks GENIBus over a directly attached serial adapter.
// The bus runs 8N1; CU300 units default to 9600 baud.
type SerialTransport struct {
	portName string
	baudRate int
	port     serial.Port
}

// NewSerialTransport creates a serial transport for the given device path.
// A baudRate of 0 selects the CU300 default of 9600.
func NewSerialTransport(portName string, baudRate int) *SerialTransport {
	if baudRate == 0 {
		baudRate = 9600
	}
	return &SerialTransport{portName: portName, baudRate: baudRate}
}

// Connect opens the serial port.
func (s *SerialTransport) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mode := &serial.Mode{
		BaudRate: s.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.portName, mode)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.portName, err)
	}
	s.port = port
	return nil
}

// Close releases the serial port.
func (s *SerialTransport) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// Write sends p and drains the output buffer before returning.
func (s *SerialTransport) Write(p []byte) error {
	if s.port == nil {
		return ErrNotConnected
	}
	for len(p) > 0 {
		n, err := s.port.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return s.port.Drain()
}

// ReadExact reads exactly n bytes, or fails. The port's read timeout is
// re-armed with the remaining budget on every iteration so a trickling
// stream cannot extend the deadline.
func (s *SerialTransport) ReadExact(n int, timeout time.Duration) ([]byte, error) {
	if s.port == nil {
		return nil, ErrNotConnected
	}
	deadline := time.Now().Add(timeout)
	buf := make([]byte, n)
	got := 0
	for got < n {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w: %d of %d bytes after %v", genibus.ErrTimeout, got, n, timeout)
		}
		if err := s.port.SetReadTimeout(remaining); err != nil {
			return nil, err
		}
		k, err := s.port.Read(buf[got:])
		if err != nil {
			return nil, err
		}
		if k == 0 {
			// go.bug.st/serial signals a read timeout as (0, nil).
			return nil, fmt.Errorf("%w: %d of %d bytes after %v", genibus.ErrTimeout, got, n, timeout)
		}
		got += k
	}
	return buf, nil
}

func (s *SerialTransport) String() string {
	return fmt.Sprintf("serial %s @ %d baud", s.portName, s.baudRate)
}
