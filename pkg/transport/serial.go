// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport adapts concrete byte-stream connections (a serial
// port, a WebSocket) to the xmodem.Transport port.
package transport

import (
	"context"
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/uxmodem/engine/pkg/xmodem"
)

// Serial wraps a go.bug.st/serial port as an xmodem.Transport. The
// underlying port's own read timeout is reprogrammed on every ReadFull
// call to track the remaining budget, since a single serial.Read call
// returns as soon as any bytes arrive, possibly short of the request.
type Serial struct {
	port serial.Port
	name string
	baud int
}

// OpenSerial opens portName at baudRate with 8-N-1 framing, the framing
// XMODEM assumes throughout.
func OpenSerial(portName string, baudRate int) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	return &Serial{port: port, name: portName, baud: baudRate}, nil
}

// String identifies the connection for status output.
func (s *Serial) String() string {
	return fmt.Sprintf("serial:%s@%d", s.name, s.baud)
}

// Close releases the underlying port.
func (s *Serial) Close() error { return s.port.Close() }

// ReadFull blocks until buf is completely filled or timeout elapses.
// go.bug.st/serial reports a per-call timeout as (0, nil), so the
// deadline is tracked across possibly-partial reads.
func (s *Serial) ReadFull(ctx context.Context, buf []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	total := 0
	for total < len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return xmodem.ErrPortTimeout
		}
		if err := s.port.SetReadTimeout(remaining); err != nil {
			return fmt.Errorf("set read timeout: %w", err)
		}
		n, err := s.port.Read(buf[total:])
		if err != nil {
			return fmt.Errorf("serial read: %w", err)
		}
		if n == 0 {
			return xmodem.ErrPortTimeout
		}
		total += n
	}
	return nil
}

// Write blocks until all of buf has been transmitted.
func (s *Serial) Write(ctx context.Context, buf []byte) error {
	total := 0
	for total < len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := s.port.Write(buf[total:])
		if err != nil {
			return fmt.Errorf("serial write: %w", err)
		}
		total += n
	}
	return nil
}
