// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xmodem

import "github.com/uxmodem/engine/internal/crc"

// crc16CCITT and sum8 are thin wrappers kept local to this package so
// frame.go reads as pure ADU logic; the algorithms themselves live in
// internal/crc where they can be tested and reused independently of the
// frame layout.

func crc16CCITT(payload []byte) uint16 { return crc.CCITT16(payload) }

func sum8(payload []byte) uint8 { return crc.Sum8(payload) }
