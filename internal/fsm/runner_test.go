// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fsm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type softErr struct{ msg string }

func (e *softErr) Error() string { return e.msg }
func (e *softErr) Soft() bool    { return true }

type fatalErr struct{ msg string }

func (e *fatalErr) Error() string { return e.msg }
func (e *fatalErr) Soft() bool    { return false }

func TestRun_CompletesOnDone(t *testing.T) {
	calls := 0
	err := Run(15, func() Result {
		calls++
		return Result{Done: calls == 3}
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRun_BoundedRetries(t *testing.T) {
	calls := 0
	err := Run(15, func() Result {
		calls++
		return Result{Err: &softErr{"timeout"}}
	})
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, 15, calls)
}

func TestRun_FatalErrorPropagatesImmediately(t *testing.T) {
	calls := 0
	sentinel := &fatalErr{"storage"}
	err := Run(15, func() Result {
		calls++
		return Result{Err: sentinel}
	})
	assert.Same(t, sentinel, err)
	assert.Equal(t, 1, calls)
}

func TestRun_ResetClearsBudget(t *testing.T) {
	calls := 0
	err := Run(3, func() Result {
		calls++
		if calls > 20 {
			return Result{Done: true}
		}
		if calls%2 == 0 {
			return Result{Reset: true}
		}
		return Result{Err: &softErr{"nak"}}
	})
	// Budget never reaches 3 consecutive failures because every other
	// call resets it, so this never exhausts retries; it only stops
	// once calls exceeds 20 and returns Done.
	require.NoError(t, err)
	assert.True(t, calls > 20)
}

func TestRun_NonSoftCustomErrorIsFatal(t *testing.T) {
	plain := errors.New("boom")
	err := Run(15, func() Result {
		return Result{Err: plain}
	})
	assert.Same(t, plain, err)
}
