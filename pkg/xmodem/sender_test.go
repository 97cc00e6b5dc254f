// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xmodem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSender(transport Transport, source Source) *Sender {
	s := NewSender(transport, instantClock{}, source, WithStartTimeout(10*time.Millisecond))
	s.ctx = context.Background()
	return s
}

func TestSender_HandshakeSelectsCRC16OnC(t *testing.T) {
	transport := &scriptedTransport{reads: []readStep{{data: []byte{ctrlC}}}}
	s := newTestSender(transport, newMemSource([]byte("x")))
	s.phase = phaseWaitHandshake

	res := s.stepWaitHandshake()
	require.NoError(t, res.Err)
	assert.True(t, res.Reset)
	assert.Equal(t, ModeCRC16, s.mode)
	assert.Equal(t, phaseSend, s.phase)
}

func TestSender_HandshakeSelectsCRC8OnNak(t *testing.T) {
	transport := &scriptedTransport{reads: []readStep{{data: []byte{ctrlNAK}}}}
	s := newTestSender(transport, newMemSource([]byte("x")))
	s.phase = phaseWaitHandshake

	res := s.stepWaitHandshake()
	require.NoError(t, res.Err)
	assert.Equal(t, ModeCRC8, s.mode)
	assert.Equal(t, ModeCRC8, s.frame.Mode())
}

func TestSender_RetransmitOnNak_DoesNotAdvanceOffsetOrId(t *testing.T) {
	transport := &scriptedTransport{}
	s := newTestSender(transport, newMemSource([]byte("payload")))
	s.mode = ModeCRC16
	s.frame.SetMode(ModeCRC16)
	require.NoError(t, s.frame.Encode([]byte("payload"), 1))
	s.nextId = 1
	s.byteOffset = 0
	s.payloadLen = 7
	s.phase = phaseWaitResp

	transport.reads = []readStep{{data: []byte{ctrlNAK}}}
	res := s.stepWaitResp()
	require.Error(t, res.Err)
	var te *TransferError
	require.ErrorAs(t, res.Err, &te)
	assert.True(t, te.Soft())
	assert.EqualValues(t, 1, s.nextId)
	assert.EqualValues(t, 0, s.byteOffset)
	require.Len(t, transport.writes, 1)
	assert.Equal(t, s.frame.Bytes(), transport.writes[0])
}

func TestSender_RetransmitOnTimeout_DoesNotAdvance(t *testing.T) {
	transport := &scriptedTransport{reads: []readStep{{timeout: true}}}
	s := newTestSender(transport, newMemSource([]byte("payload")))
	require.NoError(t, s.frame.Encode([]byte("payload"), 3))
	s.nextId = 3
	s.byteOffset = 128
	s.payloadLen = 7
	s.phase = phaseWaitResp

	res := s.stepWaitResp()
	require.Error(t, res.Err)
	var te *TransferError
	require.ErrorAs(t, res.Err, &te)
	assert.Equal(t, ErrTimeout, te.Kind)
	assert.EqualValues(t, 3, s.nextId)
	assert.EqualValues(t, 128, s.byteOffset)
	require.Len(t, transport.writes, 1)
}

func TestSender_AckAdvancesOffsetAndId(t *testing.T) {
	transport := &scriptedTransport{reads: []readStep{{data: []byte{ctrlACK}}}}
	s := newTestSender(transport, newMemSource([]byte("payload")))
	s.nextId = 5
	s.byteOffset = 256
	s.payloadLen = 42
	s.phase = phaseWaitResp

	var notified bool
	s.cfg.onPacket = func(id uint8, n int) {
		notified = true
		assert.EqualValues(t, 5, id)
		assert.Equal(t, 42, n)
	}

	res := s.stepWaitResp()
	require.NoError(t, res.Err)
	assert.True(t, res.Reset)
	assert.True(t, notified)
	assert.EqualValues(t, 6, s.nextId)
	assert.EqualValues(t, 298, s.byteOffset)
	assert.Equal(t, phaseSend, s.phase)
}

func TestSender_ShortFinalPacket_PaddedWithSubByte(t *testing.T) {
	transport := &scriptedTransport{}
	source := newMemSource([]byte("tail"))
	s := newTestSender(transport, source)
	s.phase = phaseSend

	res := s.stepSend()
	require.NoError(t, res.Err)
	require.Len(t, transport.writes, 1)
	sent := transport.writes[0]
	pdu := sent[3 : 3+PayloadSize]
	assert.Equal(t, []byte("tail"), pdu[:4])
	for _, b := range pdu[4:] {
		assert.Equal(t, byte(subByte), b)
	}
}

func TestSender_EmptySource_GoesStraightToEOT(t *testing.T) {
	transport := &scriptedTransport{}
	s := newTestSender(transport, newMemSource(nil))
	s.phase = phaseSend

	res := s.stepSend()
	require.NoError(t, res.Err)
	assert.Equal(t, phaseEOT, s.phase)
	assert.Empty(t, transport.writes)
}

func TestSender_CancelDuringWaitResp_IsFatal(t *testing.T) {
	transport := &scriptedTransport{reads: []readStep{{data: []byte{ctrlCAN}}}}
	s := newTestSender(transport, newMemSource([]byte("x")))
	require.NoError(t, s.frame.Encode([]byte("x"), 1))
	s.phase = phaseWaitResp

	res := s.stepWaitResp()
	require.Error(t, res.Err)
	var te *TransferError
	require.ErrorAs(t, res.Err, &te)
	assert.Equal(t, ErrCancelled, te.Kind)
	assert.False(t, te.Soft())
}

func TestSender_HandshakeExhausted(t *testing.T) {
	transport := &scriptedTransport{}
	sender := NewSender(transport, instantClock{}, newMemSource([]byte("x")),
		WithStartTimeout(time.Millisecond), WithMaxErrCount(4))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := sender.Run(ctx)
	require.Error(t, err)
	var te *TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ErrRetryExhausted, te.Kind)
}
