// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tui is a terminal inspector for the navigator: it shows the stack
// and lets the user feed URLs and back presses into it.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/noldarim/navlink/internal/protocol"
)

// StartTUI runs the inspector until the user quits or the navigator asks to
// exit. Events are forwarded to the program after deduplication.
func StartTUI(ctx context.Context, cmdChan chan<- protocol.Command, eventChan <-chan protocol.Event, online bool) error {
	p := tea.NewProgram(NewMainModel(cmdChan, online), tea.WithAltScreen(), tea.WithContext(ctx))

	deduplicator := NewEventDeduplicator(DefaultDedupTTL)
	go func() {
		for {
			select {
			case event, ok := <-eventChan:
				if !ok {
					return
				}
				if deduplicator.ShouldProcess(event) {
					p.Send(event)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	_, err := p.Run()
	return err
}
