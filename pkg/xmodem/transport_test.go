// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xmodem

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/uxmodem/engine/pkg/storage"
)

// connTransport adapts a net.Conn (typically one end of net.Pipe) to the
// Transport port, turning a read deadline into ErrPortTimeout the same way
// a real serial or socket transport would.
type connTransport struct {
	conn net.Conn
}

func newConnPair() (a, b Transport) {
	ca, cb := net.Pipe()
	return &connTransport{conn: ca}, &connTransport{conn: cb}
}

func (c *connTransport) ReadFull(ctx context.Context, buf []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = c.conn.SetReadDeadline(deadline)
	_, err := io.ReadFull(c.conn, buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ErrPortTimeout
		}
		return err
	}
	return nil
}

func (c *connTransport) Write(ctx context.Context, buf []byte) error {
	_ = c.conn.SetWriteDeadline(time.Time{})
	_, err := c.conn.Write(buf)
	return err
}

// instantClock never actually sleeps, keeping retry-heavy tests fast.
type instantClock struct{}

func (instantClock) Sleep(time.Duration) {}

// memSink and memSource are the scenario tests' Sink/Source doubles;
// storage.MemorySink/MemorySource already implement exactly these
// contracts, so the state-machine tests exercise the real package
// instead of a parallel test-only copy.
type memSink = storage.MemorySink
type memSource = storage.MemorySource

func newMemSource(data []byte) *memSource { return storage.NewMemorySource(data) }

// failingSink always errors, simulating a storage-layer fault.
type failingSink struct {
	err error
}

func (s *failingSink) Write(p []byte) error { return s.err }
