// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package layout

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HelpItem is one key binding shown in the footer
type HelpItem struct {
	Key         string
	Description string
}

const trailSeparator = " › "

// Header renders the title and stack trail on one line, the status bar below
// it, then a divider.
func Header(title string, trail []string, statusBar string, width int) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(title))
	if len(trail) > 0 {
		b.WriteString("  ")
		b.WriteString(BreadcrumbStyle.Render(strings.Join(trail, trailSeparator)))
	}
	if statusBar != "" {
		b.WriteString("\n")
		b.WriteString(StatusBarStyle.Render(statusBar))
	}
	b.WriteString("\n")
	b.WriteString(Divider(width))
	return b.String()
}

// Footer renders the key bindings under a divider, or nothing without keys.
func Footer(keys []HelpItem, width int) string {
	if len(keys) == 0 {
		return ""
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = HelpKeyStyle.Render(k.Key) + " " + HelpDescStyle.Render(k.Description)
	}
	return Divider(width) + "\n" + lipgloss.NewStyle().Width(width).Padding(0, 1).Render(strings.Join(parts, "  "))
}
