// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xmodem

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransferError_SoftClassification(t *testing.T) {
	soft := []ErrorKind{ErrDecodePreamble, ErrDecodeId, ErrDecodeCrc, ErrTimeout}
	fatal := []ErrorKind{ErrInvalidArgs, ErrStorage, ErrTransport, ErrCancelled, ErrRetryExhausted, ErrInternal}

	for _, kind := range soft {
		err := &TransferError{Kind: kind}
		assert.Truef(t, err.Soft(), "%s should be soft", kind)
	}
	for _, kind := range fatal {
		err := &TransferError{Kind: kind}
		assert.Falsef(t, err.Soft(), "%s should be fatal", kind)
	}
}

func TestTransferError_UnwrapExposesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := &TransferError{Kind: ErrStorage, Err: cause}
	assert.Same(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "disk full")
}

func TestTransferError_ImplementsFsmSoftInterface(t *testing.T) {
	var err error = &TransferError{Kind: ErrTimeout}
	type soft interface {
		error
		Soft() bool
	}
	var s soft
	assert.True(t, errors.As(err, &s))
	assert.True(t, s.Soft())
}
