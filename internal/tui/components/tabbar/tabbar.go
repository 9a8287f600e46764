// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package tabbar

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Tab is a single entry in the tab bar
type Tab struct {
	ID    string
	Label string
}

// Model is the tab bar state. It only renders; switching tabs is driven by
// the navigation stack.
type Model struct {
	tabs   []Tab
	active string
	hidden bool
	width  int
}

// New creates a tab bar. No tab is active until SetActive is called.
func New(tabs []Tab) Model {
	return Model{tabs: tabs, width: 80}
}

// SetActive marks the tab with id as active. Unknown ids clear the selection.
func (m *Model) SetActive(id string) {
	m.active = id
}

// Active returns the id of the active tab
func (m Model) Active() string {
	return m.active
}

// SetHidden hides the bar, as when a detail screen covers the chrome.
func (m *Model) SetHidden(hidden bool) {
	m.hidden = hidden
}

func (m Model) Hidden() bool {
	return m.hidden
}

func (m *Model) SetWidth(width int) {
	m.width = width
}

var (
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250")).
				Background(lipgloss.Color("236")).
				Padding(0, 2)

	barStyle = lipgloss.NewStyle().Background(lipgloss.Color("234"))
)

// View renders the tab bar, or nothing when hidden.
func (m Model) View() string {
	if m.hidden || len(m.tabs) == 0 {
		return ""
	}

	views := make([]string, 0, len(m.tabs))
	for _, tab := range m.tabs {
		if tab.ID == m.active {
			views = append(views, activeTabStyle.Render(tab.Label))
		} else {
			views = append(views, inactiveTabStyle.Render(tab.Label))
		}
	}

	return barStyle.Width(m.width).Render(strings.Join(views, barStyle.Render(" ")))
}
