// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package storage implements the Sink and Source ports a transfer reads
// from or writes to, backed by a file on disk or an in-memory buffer.
package storage

import (
	"errors"
	"io"
	"os"
)

// FileSink appends every packet payload it receives to a file, in order,
// closing no earlier than the caller explicitly calls Close.
type FileSink struct {
	file *os.File
}

// CreateFileSink creates (truncating if it already exists) the file at
// path and returns a Sink that writes to it.
func CreateFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileSink{file: f}, nil
}

func (s *FileSink) Write(p []byte) error {
	_, err := s.file.Write(p)
	return err
}

// Close flushes and closes the backing file.
func (s *FileSink) Close() error { return s.file.Close() }

// FileSource serves ReadAt calls from an open file, exposing end-of-data
// as (0, nil) rather than an io.EOF error.
type FileSource struct {
	file *os.File
}

// OpenFileSource opens path read-only.
func OpenFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{file: f}, nil
}

func (s *FileSource) ReadAt(offset int64, buf []byte) (int, error) {
	n, err := s.file.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	return n, nil
}

// Close closes the backing file.
func (s *FileSource) Close() error { return s.file.Close() }
