// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package layout

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/noldarim/navlink/internal/route"
)

// Palette. Adaptive colors keep the inspector readable on light terminals.
var (
	Ink    = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"}
	Faint  = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	Rule   = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#374151"}
	Brand  = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	Good   = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	Caught = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	Bad    = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
)

var (
	TitleStyle      = lipgloss.NewStyle().Foreground(Brand).Bold(true)
	BreadcrumbStyle = lipgloss.NewStyle().Foreground(Faint)
	StatusBarStyle  = lipgloss.NewStyle().Foreground(Faint)
	EmptyStyle      = lipgloss.NewStyle().Foreground(Faint).Italic(true)

	// Stack rows. The top entry is the visible screen.
	TopEntryStyle = lipgloss.NewStyle().Bold(true)
	EntryStyle    = lipgloss.NewStyle().Foreground(Faint)
	ContextStyle  = lipgloss.NewStyle().Foreground(Faint).Italic(true)
	ModalTagStyle = lipgloss.NewStyle().Foreground(Brand).Italic(true)

	HelpKeyStyle  = lipgloss.NewStyle().Foreground(Brand).Bold(true)
	HelpDescStyle = lipgloss.NewStyle().Foreground(Ink)

	InfoStyle    = lipgloss.NewStyle().Foreground(Good)
	WarningStyle = lipgloss.NewStyle().Foreground(Caught).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Bad).Bold(true)
)

var categoryColors = map[route.Category]lipgloss.TerminalColor{
	route.CategoryFile:                    Good,
	route.CategoryLTI:                     Caught,
	route.CategoryNotificationPreferences: Brand,
	route.CategoryExternal:                Bad,
}

// KindStyle colors a screen kind by its route category so file, LTI and
// external routes stand out in the stack.
func KindStyle(c route.Category) lipgloss.Style {
	if color, ok := categoryColors[c]; ok {
		return lipgloss.NewStyle().Foreground(color)
	}
	return lipgloss.NewStyle().Foreground(Ink)
}

// Divider is a horizontal rule of width cells.
func Divider(width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().Foreground(Rule).Render(strings.Repeat("─", width))
}
