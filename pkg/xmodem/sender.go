// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xmodem

import (
	"context"
	"errors"
	"time"

	"github.com/uxmodem/engine/internal/fsm"
)

// retryBackoff paces consecutive retransmissions of the same packet so a
// flaky link isn't hammered with back-to-back frames.
const retryBackoff = 50 * time.Millisecond

type senderPhase int

const (
	phaseWaitHandshake senderPhase = iota
	phaseSend
	phaseWaitResp
	phaseEOT
)

func (p senderPhase) String() string {
	switch p {
	case phaseWaitHandshake:
		return "WAIT_HANDSHAKE"
	case phaseSend:
		return "SEND"
	case phaseWaitResp:
		return "WAIT_RESP"
	case phaseEOT:
		return "EOT"
	default:
		return "UNKNOWN"
	}
}

// Sender implements the XMODEM sender (client) role: it waits for the
// receiver's handshake byte, streams source data one packet at a time,
// retransmits on NAK or timeout without ever advancing past an
// unacknowledged packet, and closes the transfer with an EOT handshake.
type Sender struct {
	transport Transport
	clock     Clock
	source    Source
	cfg       config

	mode       Mode
	frame      *Frame
	nextId     uint8
	byteOffset int64
	payloadLen int
	phase      senderPhase

	ctx context.Context
}

// NewSender constructs a Sender bound to transport and source. The
// checksum mode is not chosen here: it is determined by whichever
// handshake byte the receiver sends.
func NewSender(transport Transport, clock Clock, source Source, opts ...Option) *Sender {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Sender{
		transport: transport,
		clock:     clock,
		source:    source,
		cfg:       cfg,
		mode:      ModeCRC16,
		frame:     NewFrame(ModeCRC16),
	}
}

// Run drives the sender state machine to completion.
func (s *Sender) Run(ctx context.Context) error {
	s.ctx = ctx
	s.phase = phaseWaitHandshake
	s.nextId = 1
	s.byteOffset = 0

	err := fsm.Run(s.cfg.maxErrCount, s.step)
	if errors.Is(err, fsm.ErrRetryExhausted) {
		return newFatal(ErrRetryExhausted, err)
	}
	return err
}

func (s *Sender) step() fsm.Result {
	if err := s.ctx.Err(); err != nil {
		return fsm.Result{Err: newFatal(ErrCancelled, err)}
	}
	switch s.phase {
	case phaseWaitHandshake:
		return s.stepWaitHandshake()
	case phaseSend:
		return s.stepSend()
	case phaseWaitResp:
		return s.stepWaitResp()
	case phaseEOT:
		return s.stepEOT()
	default:
		return fsm.Result{Err: newFatal(ErrInternal, nil)}
	}
}

func (s *Sender) stepWaitHandshake() fsm.Result {
	var b [1]byte
	err := s.transport.ReadFull(s.ctx, b[:], s.cfg.timeout)
	if err != nil {
		if errors.Is(err, ErrPortTimeout) {
			return fsm.Result{Err: newSoft(ErrTimeout)}
		}
		return fsm.Result{Err: newFatal(ErrTransport, err)}
	}
	switch b[0] {
	case ctrlC:
		s.mode = ModeCRC16
		s.frame.SetMode(ModeCRC16)
		s.phase = phaseSend
		return fsm.Result{Reset: true}
	case ctrlNAK:
		s.mode = ModeCRC8
		s.frame.SetMode(ModeCRC8)
		s.phase = phaseSend
		return fsm.Result{Reset: true}
	case ctrlCAN:
		return fsm.Result{Err: newFatal(ErrCancelled, nil)}
	default:
		return fsm.Result{Err: newSoft(ErrDecodePreamble)}
	}
}

func (s *Sender) stepSend() fsm.Result {
	var buf [PayloadSize]byte
	n, err := s.source.ReadAt(s.byteOffset, buf[:])
	if err != nil {
		return fsm.Result{Err: newFatal(ErrStorage, err)}
	}
	if n == 0 {
		s.phase = phaseEOT
		return fsm.Result{}
	}
	if err := s.frame.Encode(buf[:n], s.nextId); err != nil {
		return fsm.Result{Err: newFatal(ErrInternal, err)}
	}
	if err := s.transport.Write(s.ctx, s.frame.Bytes()); err != nil {
		return fsm.Result{Err: newFatal(ErrTransport, err)}
	}
	s.payloadLen = n
	s.phase = phaseWaitResp
	return fsm.Result{}
}

func (s *Sender) stepWaitResp() fsm.Result {
	var b [1]byte
	err := s.transport.ReadFull(s.ctx, b[:], s.cfg.timeout)
	if err != nil {
		if errors.Is(err, ErrPortTimeout) {
			return s.retransmit(newSoft(ErrTimeout))
		}
		return fsm.Result{Err: newFatal(ErrTransport, err)}
	}
	switch b[0] {
	case ctrlACK:
		s.cfg.notify(s.nextId, s.payloadLen)
		s.byteOffset += int64(s.payloadLen)
		s.nextId++
		s.phase = phaseSend
		return fsm.Result{Reset: true}
	case ctrlNAK:
		return s.retransmit(newSoft(ErrDecodeCrc))
	case ctrlCAN:
		return fsm.Result{Err: newFatal(ErrCancelled, nil)}
	default:
		// Garbage on the line: stay in WAIT_RESP without retransmitting,
		// the same way AWAIT_NEXT absorbs noise on the receiver side.
		return fsm.Result{Err: newSoft(ErrDecodePreamble)}
	}
}

// retransmit resends the frame already sitting in the scratch buffer,
// without re-reading from the source or moving byteOffset/nextId: the
// receiver has not acknowledged this packet.
func (s *Sender) retransmit(soft error) fsm.Result {
	s.clock.Sleep(retryBackoff)
	if err := s.transport.Write(s.ctx, s.frame.Bytes()); err != nil {
		return fsm.Result{Err: newFatal(ErrTransport, err)}
	}
	return fsm.Result{Err: soft}
}

func (s *Sender) stepEOT() fsm.Result {
	if err := s.transport.Write(s.ctx, []byte{ctrlEOT}); err != nil {
		return fsm.Result{Err: newFatal(ErrTransport, err)}
	}
	var b [1]byte
	err := s.transport.ReadFull(s.ctx, b[:], s.cfg.timeout)
	if err != nil {
		if errors.Is(err, ErrPortTimeout) {
			return fsm.Result{Err: newSoft(ErrTimeout)}
		}
		return fsm.Result{Err: newFatal(ErrTransport, err)}
	}
	switch b[0] {
	case ctrlACK:
		return fsm.Result{Done: true}
	case ctrlCAN:
		return fsm.Result{Err: newFatal(ErrCancelled, nil)}
	default:
		return fsm.Result{Err: newSoft(ErrDecodePreamble)}
	}
}
