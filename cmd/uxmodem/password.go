// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package uxmodem

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"
)

const wsPasswordEnvVar = "UXMODEM_WS_PASSWORD"

// readPassword returns the WebSocket Basic auth password from
// UXMODEM_WS_PASSWORD, or prompts for it on stderr with input echo
// disabled if the variable is unset.
func readPassword() (string, error) {
	if pw := os.Getenv(wsPasswordEnvVar); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	defer fmt.Fprintln(os.Stderr)

	b, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
