// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// uxmodem - an XMODEM transfer engine with serial and WebSocket
// transports, a sender and receiver CLI, and a passive wire monitor.

package main

import (
	"fmt"
	"os"

	"github.com/uxmodem/engine/cmd/uxmodem"
)

func main() {
	if err := uxmodem.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
