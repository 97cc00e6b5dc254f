// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package uxmodem

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/uxmodem/engine/pkg/xmodem"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print every control byte seen on the wire",
	Long: `monitor passively decodes the raw XMODEM control-byte stream without
driving a transfer, useful for diagnosing a stalled handshake or a chatty
line.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func controlByteName(b byte) string {
	switch b {
	case 0x01:
		return "SOH"
	case 0x04:
		return "EOT"
	case 0x06:
		return "ACK"
	case 0x15:
		return "NAK"
	case 0x18:
		return "CAN"
	case 'C':
		return "C"
	default:
		return fmt.Sprintf("0x%02X", b)
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	conn, closeConn, desc, err := dialTransport(ctx)
	if err != nil {
		return err
	}
	defer closeConn()

	fmt.Printf("uxmodem monitor - %s\n", desc)
	fmt.Println("Press Ctrl+C to exit")

	timeout := time.Duration(timeoutMs) * time.Millisecond
	var buf [1]byte
	for {
		err := conn.ReadFull(ctx, buf[:], timeout)
		if err != nil {
			if errors.Is(err, xmodem.ErrPortTimeout) {
				continue
			}
			return err
		}
		fmt.Printf("[%s] %s\n", time.Now().Format(time.RFC3339Nano), controlByteName(buf[0]))
	}
}
