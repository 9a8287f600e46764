// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package layout renders the inspector chrome: a header with the stack trail,
// the content area and a footer of key bindings.
package layout

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

const (
	MinWidth  = 40
	MinHeight = 12
)

// Frame describes the chrome around the content area.
type Frame struct {
	Title     string
	Trail     []string
	StatusBar string
	Keys      []HelpItem
}

// CheckSize returns a description of why width x height cannot hold the
// inspector, or nil.
func CheckSize(width, height int) error {
	switch {
	case width < MinWidth:
		return fmt.Errorf("terminal is %d columns wide, need %d", width, MinWidth)
	case height < MinHeight:
		return fmt.Errorf("terminal is %d lines tall, need %d", height, MinHeight)
	}
	return nil
}

// Render places content between header and footer, clipped to the space
// left over. Too small a terminal gets a centered notice instead.
func Render(content string, f Frame, width, height int) string {
	if err := CheckSize(width, height); err != nil {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
			ErrorStyle.Render("Terminal too small")+"\n"+EmptyStyle.Render(err.Error()))
	}

	header := Header(f.Title, f.Trail, f.StatusBar, width)
	footer := Footer(f.Keys, width)
	room := max(height-lipgloss.Height(header)-lipgloss.Height(footer), 1)

	body := lipgloss.NewStyle().
		Width(width).
		Height(room).
		MaxHeight(room).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}
