// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemorySink_AccumulatesInOrder(t *testing.T) {
	sink := &MemorySink{}
	require := assert.New(t)
	require.NoError(sink.Write([]byte("abc")))
	require.NoError(sink.Write([]byte("def")))
	require.Equal([]byte("abcdef"), sink.Bytes())
}

func TestMemorySource_ReadAtWithinBounds(t *testing.T) {
	src := NewMemorySource([]byte("0123456789"))
	buf := make([]byte, 4)

	n, err := src.ReadAt(2, buf)
	assert.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("2345"), buf)
}

func TestMemorySource_ReadAtPastEndReturnsZero(t *testing.T) {
	src := NewMemorySource([]byte("short"))
	buf := make([]byte, 10)

	n, err := src.ReadAt(100, buf)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMemorySource_ReadAtTailReturnsPartial(t *testing.T) {
	src := NewMemorySource([]byte("0123456789"))
	buf := make([]byte, 8)

	n, err := src.ReadAt(6, buf)
	assert.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("6789"), buf[:n])
}
