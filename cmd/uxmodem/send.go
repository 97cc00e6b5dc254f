// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package uxmodem

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/uxmodem/engine/pkg/storage"
	"github.com/uxmodem/engine/pkg/xmodem"
)

var (
	sendNoTUI bool
)

var sendCmd = &cobra.Command{
	Use:   "send <file>",
	Short: "Send a file as the XMODEM sender",
	Args:  cobra.ExactArgs(1),
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().BoolVar(&sendNoTUI, "no-tui", false, "disable the progress TUI and log plainly")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	source, err := storage.OpenFileSource(path)
	if err != nil {
		return err
	}
	defer source.Close()

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
	}

	run := func(onPacket func(id uint8, n int)) error {
		sender := xmodem.NewSender(conn, xmodem.RealClock{}, source, append(opts, xmodem.WithOnPacket(onPacket))...)
		return sender.Run(ctx)
	}

	if sendNoTUI {
		log := newLogger()
		log.Infof("sending %s (%d bytes) over %s", path, info.Size(), desc)
		err := run(func(id uint8, n int) {
			log.Debugf("packet %d acked (%d bytes)", id, n)
		})
		if err != nil {
			return err
		}
		log.Info("transfer complete")
		return nil
	}

	return runProgressTUI(fmt.Sprintf("sending %s", path), info.Size(), run)
}
