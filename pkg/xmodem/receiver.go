// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xmodem

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/uxmodem/engine/internal/fsm"
)

type receiverPhase int

const (
	phaseStart receiverPhase = iota
	phasePacketGet
	phasePacketProc
	phaseAwaitNext
	phaseEnd
)

func (p receiverPhase) String() string {
	switch p {
	case phaseStart:
		return "START"
	case phasePacketGet:
		return "PACKET_GET"
	case phasePacketProc:
		return "PACKET_PROC"
	case phaseAwaitNext:
		return "AWAIT_NEXT"
	case phaseEnd:
		return "END"
	default:
		return "UNKNOWN"
	}
}

// Receiver implements the XMODEM receiver (server) role: it negotiates a
// handshake, accepts packets, verifies them, acknowledges or rejects,
// detects duplicates, and terminates cleanly on end-of-transmission. A
// Receiver is constructed fresh for each transfer and run to completion
// by a single goroutine.
type Receiver struct {
	transport Transport
	sink      Sink
	cfg       config

	mode       Mode
	frame      *Frame
	expectedId uint8
	prevId     uint8
	hasPrev    bool
	phase      receiverPhase

	ctx context.Context
}

// NewReceiver constructs a Receiver bound to transport and sink. The
// handshake always offers CRC-16 mode unless overridden with WithMode.
func NewReceiver(transport Transport, sink Sink, opts ...Option) *Receiver {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	mode := ModeCRC16
	r := &Receiver{
		transport: transport,
		sink:      sink,
		cfg:       cfg,
		mode:      mode,
		frame:     NewFrame(mode),
	}
	return r
}

// WithMode overrides the checksum mode the receiver advertises during the
// handshake. It has no effect once Run has started.
func WithMode(mode Mode) Option {
	return func(c *config) { c.mode = &mode }
}

// Run drives the receiver state machine to completion: Ok on clean EOT,
// or a *TransferError otherwise.
func (r *Receiver) Run(ctx context.Context) error {
	r.ctx = ctx
	if r.cfg.mode != nil {
		r.mode = *r.cfg.mode
	}
	r.frame.SetMode(r.mode)
	r.phase = phaseStart
	r.expectedId = 1
	r.hasPrev = false

	err := fsm.Run(r.cfg.maxErrCount, r.step)
	if errors.Is(err, fsm.ErrRetryExhausted) {
		return newFatal(ErrRetryExhausted, err)
	}
	return err
}

func (r *Receiver) step() fsm.Result {
	if err := r.ctx.Err(); err != nil {
		return fsm.Result{Err: newFatal(ErrCancelled, err)}
	}
	from := r.phase
	res := r.dispatch()
	if r.phase != from {
		r.cfg.logger.WithFields(logrus.Fields{
			"role": "receiver",
			"from": from,
			"to":   r.phase,
		}).Debug("phase transition")
	}
	return res
}

func (r *Receiver) dispatch() fsm.Result {
	switch r.phase {
	case phaseStart:
		return r.stepStart()
	case phasePacketGet:
		return r.stepPacketGet()
	case phasePacketProc:
		return r.stepPacketProc()
	case phaseAwaitNext:
		return r.stepAwaitNext()
	case phaseEnd:
		return r.stepEnd()
	default:
		return fsm.Result{Err: newFatal(ErrInternal, nil)}
	}
}

func (r *Receiver) stepStart() fsm.Result {
	r.frame.Reset()
	var b [1]byte
	err := r.transport.ReadFull(r.ctx, b[:], r.cfg.timeout)
	if err != nil {
		if errors.Is(err, ErrPortTimeout) {
			if sendErr := r.transport.Write(r.ctx, []byte{r.mode.handshakeByte()}); sendErr != nil {
				return fsm.Result{Err: newFatal(ErrTransport, sendErr)}
			}
			r.cfg.logger.WithFields(logrus.Fields{
				"role":  "receiver",
				"phase": r.phase,
				"sent":  r.mode.handshakeByte(),
			}).Debug("handshake timeout, re-sent handshake byte")
			return fsm.Result{Err: newSoft(ErrTimeout)}
		}
		return fsm.Result{Err: newFatal(ErrTransport, err)}
	}
	switch b[0] {
	case ctrlSOH:
		r.frame.Bytes()[0] = ctrlSOH
		r.phase = phasePacketGet
		return fsm.Result{}
	case ctrlEOT:
		// A 0-byte source: the sender skips straight from SEND to EOT
		// without ever transmitting a packet, so the handshake loop is
		// where we first see it.
		r.cfg.logger.WithFields(logrus.Fields{
			"role": "receiver",
		}).Debug("EOT received during handshake")
		r.phase = phaseEnd
		return fsm.Result{}
	case ctrlCAN:
		return fsm.Result{Err: newFatal(ErrCancelled, nil)}
	default:
		return fsm.Result{Err: newSoft(ErrDecodePreamble)}
	}
}

func (r *Receiver) stepPacketGet() fsm.Result {
	rest := r.frame.Bytes()[1:]
	err := r.transport.ReadFull(r.ctx, rest, r.cfg.timeout)
	if err != nil {
		if errors.Is(err, ErrPortTimeout) {
			r.cfg.logger.WithFields(logrus.Fields{
				"role": "receiver",
			}).Debug("truncated packet, timed out mid-ADU")
			r.phase = phaseAwaitNext
			return fsm.Result{Err: newSoft(ErrTimeout)}
		}
		return fsm.Result{Err: newFatal(ErrTransport, err)}
	}
	r.phase = phasePacketProc
	return fsm.Result{}
}

func (r *Receiver) stepPacketProc() fsm.Result {
	id, payload, decodeErr := r.frame.Decode()
	if decodeErr != nil {
		if sendErr := r.transport.Write(r.ctx, []byte{ctrlNAK}); sendErr != nil {
			return fsm.Result{Err: newFatal(ErrTransport, sendErr)}
		}
		r.cfg.logger.WithFields(logrus.Fields{
			"role": "receiver",
			"sent": "NAK",
			"err":  decodeErr,
		}).Debug("decode failed, sent NAK")
		r.phase = phaseAwaitNext
		return fsm.Result{Err: decodeErr}
	}

	switch {
	case r.hasPrev && id == r.prevId:
		// Duplicate retransmission: the sender never saw our ACK.
		// Acknowledge again but do not write to storage a second time.
		if err := r.transport.Write(r.ctx, []byte{ctrlACK}); err != nil {
			return fsm.Result{Err: newFatal(ErrTransport, err)}
		}
		r.cfg.logger.WithFields(logrus.Fields{
			"role": "receiver",
			"id":   id,
			"sent": "ACK",
		}).Debug("duplicate packet, acked without rewrite")
		r.phase = phaseAwaitNext
		return fsm.Result{}

	case id == r.expectedId:
		if err := r.sink.Write(payload); err != nil {
			// Fatal: do not send ACK, discard the pending buffer.
			return fsm.Result{Err: newFatal(ErrStorage, err)}
		}
		if err := r.transport.Write(r.ctx, []byte{ctrlACK}); err != nil {
			return fsm.Result{Err: newFatal(ErrTransport, err)}
		}
		r.prevId = r.expectedId
		r.hasPrev = true
		r.expectedId++
		r.cfg.notify(id, len(payload))
		r.cfg.logger.WithFields(logrus.Fields{
			"role":  "receiver",
			"id":    id,
			"bytes": len(payload),
			"sent":  "ACK",
		}).Debug("packet accepted")
		r.phase = phaseAwaitNext
		return fsm.Result{Reset: true}

	default:
		if err := r.transport.Write(r.ctx, []byte{ctrlNAK}); err != nil {
			return fsm.Result{Err: newFatal(ErrTransport, err)}
		}
		r.cfg.logger.WithFields(logrus.Fields{
			"role":     "receiver",
			"id":       id,
			"expected": r.expectedId,
			"sent":     "NAK",
		}).Debug("unexpected packet id, sent NAK")
		r.phase = phaseAwaitNext
		return fsm.Result{Err: newSoft(ErrDecodeId)}
	}
}

func (r *Receiver) stepAwaitNext() fsm.Result {
	r.frame.Reset()
	var b [1]byte
	err := r.transport.ReadFull(r.ctx, b[:], r.cfg.timeout)
	if err != nil {
		if errors.Is(err, ErrPortTimeout) {
			return fsm.Result{Err: newSoft(ErrTimeout)}
		}
		return fsm.Result{Err: newFatal(ErrTransport, err)}
	}
	switch b[0] {
	case ctrlSOH:
		r.frame.Bytes()[0] = ctrlSOH
		r.phase = phasePacketGet
		return fsm.Result{}
	case ctrlEOT:
		r.cfg.logger.WithFields(logrus.Fields{
			"role": "receiver",
		}).Debug("EOT received")
		r.phase = phaseEnd
		return fsm.Result{}
	case ctrlCAN:
		return fsm.Result{Err: newFatal(ErrCancelled, nil)}
	default:
		return fsm.Result{Err: newSoft(ErrDecodePreamble)}
	}
}

func (r *Receiver) stepEnd() fsm.Result {
	if err := r.transport.Write(r.ctx, []byte{ctrlACK}); err != nil {
		return fsm.Result{Err: newFatal(ErrTransport, err)}
	}
	r.cfg.logger.WithFields(logrus.Fields{
		"role": "receiver",
		"sent": "ACK",
	}).Debug("transfer complete")
	return fsm.Result{Done: true}
}
