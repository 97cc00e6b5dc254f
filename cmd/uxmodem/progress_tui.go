// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package uxmodem

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// packetMsg reports one acknowledged packet, fed into the program by the
// transfer's OnPacket hook.
type packetMsg struct {
	id    uint8
	bytes int
}

// doneMsg terminates the program, err nil on success.
type doneMsg struct{ err error }

// progressModel renders either a determinate progress bar, when the
// total transfer size is known up front (sending a file of known size),
// or a spinner with a running byte count, when it is not (receiving,
// whose final size is only known at EOT).
type progressModel struct {
	label      string
	totalBytes int64
	sentBytes  int64
	packets    int
	bar        progress.Model
	spin       spinner.Model
	done       bool
	err        error
}

func newProgressModel(label string, totalBytes int64) progressModel {
	bar := progress.New(progress.WithDefaultGradient())
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return progressModel{label: label, totalBytes: totalBytes, bar: bar, spin: sp}
}

func (m progressModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 4
		return m, nil
	case packetMsg:
		m.packets++
		m.sentBytes += int64(msg.bytes)
		return m, nil
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		if m.err != nil {
			return errStyle.Render(fmt.Sprintf("%s failed: %v\n", m.label, m.err))
		}
		return okStyle.Render(fmt.Sprintf("%s complete: %d packets, %d bytes\n", m.label, m.packets, m.sentBytes))
	}
	header := labelStyle.Render(m.label)
	if m.totalBytes > 0 {
		pct := float64(m.sentBytes) / float64(m.totalBytes)
		if pct > 1 {
			pct = 1
		}
		return fmt.Sprintf("%s\n%s %d/%d bytes\n", header, m.bar.ViewAs(pct), m.sentBytes, m.totalBytes)
	}
	return fmt.Sprintf("%s\n%s %d packets, %d bytes\n", header, m.spin.View(), m.packets, m.sentBytes)
}

// runProgressTUI drives a bubbletea program for the duration of run,
// translating each acknowledged packet into a progress update. It
// returns the bubbletea program's error if the program itself fails,
// and otherwise run's own error.
func runProgressTUI(label string, totalBytes int64, run func(onPacket func(id uint8, n int)) error) error {
	p := tea.NewProgram(newProgressModel(label, totalBytes))

	var transferErr error
	go func() {
		transferErr = run(func(id uint8, n int) {
			p.Send(packetMsg{id: id, bytes: n})
		})
		p.Send(doneMsg{err: transferErr})
	}()

	if _, err := p.Run(); err != nil {
		return err
	}
	return transferErr
}
