// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package uxmodem is the command-line front end for the XMODEM transfer
// engine: send, receive, and monitor subcommands driven over a serial
// port or a WebSocket.
package uxmodem

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/uxmodem/engine/pkg/transport"
	"github.com/uxmodem/engine/pkg/xmodem"
)

var (
	portName    string
	baudRate    int
	wsURL       string
	wsUsername  string
	wsNoVerify  bool
	useCRC8     bool
	timeoutMs   int
	maxErrCount int
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:     "uxmodem",
	Short:   "XMODEM transfer engine",
	Version: "1.0.0",
	Long: `uxmodem drives an XMODEM file transfer over a serial port or a
WebSocket, as either the sending or the receiving party.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate")
	rootCmd.PersistentFlags().StringVar(&wsURL, "url", "", "WebSocket URL (ws:// or wss://) instead of a serial port")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "ws-user", "", "WebSocket Basic auth username")
	rootCmd.PersistentFlags().BoolVar(&wsNoVerify, "ws-insecure", false, "skip TLS verification for wss://")
	rootCmd.PersistentFlags().BoolVar(&useCRC8, "crc8", false, "receive: advertise the legacy 8-bit checksum instead of CRC-16 (send follows the receiver's handshake)")
	rootCmd.PersistentFlags().IntVar(&timeoutMs, "timeout-ms", int(xmodem.DefaultStartTimeout/time.Millisecond), "timeout in milliseconds for each blocking read (one byte, or the rest of a packet)")
	rootCmd.PersistentFlags().IntVar(&maxErrCount, "max-errors", xmodem.DefaultMaxErrCount, "consecutive soft-error budget before giving up")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger() *logrus.Entry {
	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return logrus.NewEntry(log)
}

func dialTransport(ctx context.Context) (xmodem.Transport, func() error, string, error) {
	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = readPassword()
			if err != nil {
				return nil, nil, "", err
			}
		}
		conn, err := transport.DialWebSocket(ctx, wsURL, wsUsername, password, wsNoVerify)
		if err != nil {
			return nil, nil, "", err
		}
		return conn, conn.Close, conn.String(), nil
	}
	if portName == "" {
		return nil, nil, "", fmt.Errorf("either --port or --url must be specified")
	}
	conn, err := transport.OpenSerial(portName, baudRate)
	if err != nil {
		return nil, nil, "", err
	}
	return conn, conn.Close, conn.String(), nil
}

func checksumMode() xmodem.Mode {
	if useCRC8 {
		return xmodem.ModeCRC8
	}
	return xmodem.ModeCRC16
}
