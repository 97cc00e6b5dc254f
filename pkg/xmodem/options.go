// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xmodem

import (
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultStartTimeout is the blocking-read timeout used by every state
// that waits on a byte, unless overridden with WithStartTimeout.
const DefaultStartTimeout = 3000 * time.Millisecond

// DefaultMaxErrCount caps the number of consecutive soft errors a machine
// tolerates before terminating with ErrRetryExhausted.
const DefaultMaxErrCount = 15

// config holds the tunables shared by Receiver and Sender.
type config struct {
	timeout     time.Duration
	maxErrCount int
	logger      *logrus.Entry
	onPacket    func(id uint8, n int)
	mode        *Mode
}

func newConfig() config {
	return config{
		timeout:     DefaultStartTimeout,
		maxErrCount: DefaultMaxErrCount,
		logger:      logrus.NewEntry(logrus.StandardLogger()),
	}
}

// Option customizes a Receiver or Sender at construction time.
type Option func(*config)

// WithStartTimeout overrides the timeout applied to each blocking read
// (a single byte, or the remainder of an ADU in PACKET_GET).
func WithStartTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithMaxErrCount overrides the consecutive soft-error retry cap.
func WithMaxErrCount(n int) Option {
	return func(c *config) { c.maxErrCount = n }
}

// WithLogger attaches a logrus entry used for per-phase debug logging.
func WithLogger(logger *logrus.Entry) Option {
	return func(c *config) { c.logger = logger }
}

// WithOnPacket registers a callback invoked after each packet is
// acknowledged, reporting the packet id and the number of payload bytes
// transferred. Used by the CLI to drive progress reporting.
func WithOnPacket(fn func(id uint8, n int)) Option {
	return func(c *config) { c.onPacket = fn }
}

func (c *config) notify(id uint8, n int) {
	if c.onPacket != nil {
		c.onPacket(id, n)
	}
}
