// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package uxmodem

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/uxmodem/engine/pkg/storage"
	"github.com/uxmodem/engine/pkg/xmodem"
)

var receiveNoTUI bool

var receiveCmd = &cobra.Command{
	Use:   "receive <file>",
	Short: "Receive a file as the XMODEM receiver",
	Args:  cobra.ExactArgs(1),
	RunE:  runReceive,
}

func init() {
	receiveCmd.Flags().BoolVar(&receiveNoTUI, "no-tui", false, "disable the progress TUI and log plainly")
	rootCmd.AddCommand(receiveCmd)
}

func runReceive(cmd *cobra.Command, args []string) error {
	path := args[0]
	sink, err := storage.CreateFileSink(path)
	if err != nil {
		return err
	}
	defer sink.Close()

	ctx := context.Background()
	conn, closeConn, desc, err := dialTransport(ctx)
	if err != nil {
		return err
	}
	defer closeConn()

	opts := []xmodem.Option{
		xmodem.WithStartTimeout(time.Duration(timeoutMs) * time.Millisecond),
		xmodem.WithMaxErrCount(maxErrCount),
		xmodem.WithLogger(newLogger()),
		xmodem.WithMode(checksumMode()),
	}

	run := func(onPacket func(id uint8, n int)) error {
		receiver := xmodem.NewReceiver(conn, sink, append(opts, xmodem.WithOnPacket(onPacket))...)
		return receiver.Run(ctx)
	}

	if receiveNoTUI {
		log := newLogger()
		log.Infof("receiving %s over %s", path, desc)
		err := run(func(id uint8, n int) {
			log.Debugf("packet %d written (%d bytes)", id, n)
		})
		if err != nil {
			return err
		}
		log.Info("transfer complete")
		return nil
	}

	return runProgressTUI(fmt.Sprintf("receiving %s", path), 0, run)
}
