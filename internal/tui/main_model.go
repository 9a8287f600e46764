// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/noldarim/navlink/internal/logger"
	"github.com/noldarim/navlink/internal/navigation"
	"github.com/noldarim/navlink/internal/protocol"
	"github.com/noldarim/navlink/internal/route"
	"github.com/noldarim/navlink/internal/tui/components/tabbar"
	"github.com/noldarim/navlink/internal/tui/layout"
)

type statusLevel int

const (
	statusInfo statusLevel = iota
	statusWarn
	statusError
)

var tabLabels = map[navigation.Tab]string{
	navigation.TabHome:          "Dashboard",
	navigation.TabCalendar:      "Calendar",
	navigation.TabTodo:          "To Do",
	navigation.TabNotifications: "Notifications",
	navigation.TabInbox:         "Inbox",
}

// MainModel is the navigation inspector. It mirrors the navigator's stack
// from events and turns key presses into navigator commands.
type MainModel struct {
	cmdChan chan<- protocol.Command

	snapshot navigation.Snapshot
	tabs     tabbar.Model
	input    textinput.Model
	spinner  spinner.Model

	loading     bool
	online      bool
	status      string
	statusLevel statusLevel

	width, height int
}

// NewMainModel creates the inspector. online is the initial connectivity
// shown and toggled with the o key.
func NewMainModel(cmdChan chan<- protocol.Command, online bool) MainModel {
	tabs := make([]tabbar.Tab, 0, len(navigation.Tabs))
	for _, t := range navigation.Tabs {
		tabs = append(tabs, tabbar.Tab{ID: string(t), Label: tabLabels[t]})
	}

	input := textinput.New()
	input.Placeholder = "https://school.example.com/courses/42/assignments"
	input.Prompt = "URL › "
	input.CharLimit = 2048

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return MainModel{
		cmdChan: cmdChan,
		tabs:    tabbar.New(tabs),
		input:   input,
		spinner: s,
		online:  online,
	}
}

func (m MainModel) Init() tea.Cmd {
	return nil
}

// send delivers cmd to the navigator off the update loop.
func (m MainModel) send(cmd protocol.Command) tea.Cmd {
	ch := m.cmdChan
	return func() tea.Msg {
		ch <- cmd
		return nil
	}
}

func (m *MainModel) setStatus(level statusLevel, format string, args ...any) {
	m.statusLevel = level
	m.status = fmt.Sprintf(format, args...)
}

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.tabs.SetWidth(msg.Width)
		m.input.Width = max(msg.Width-10, 10)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case protocol.StackChangedEvent:
		m.snapshot = msg.Snapshot
		m.tabs.SetActive(string(msg.Snapshot.Tab))
		m.tabs.SetHidden(!msg.Snapshot.ChromeVisible)
		return m, nil

	case protocol.ScreenPresentedEvent:
		switch {
		case msg.File != nil && msg.Download:
			m.setStatus(statusInfo, "Downloading %s", msg.File.DisplayName)
		case msg.File != nil:
			m.setStatus(statusInfo, "Previewing %s", msg.File.DisplayName)
		default:
			m.setStatus(statusInfo, "Presented %s", msg.Entry.Kind)
		}
		return m, nil

	case protocol.MessageEvent:
		m.setStatus(statusWarn, "%s", msg.Text)
		return m, nil

	case protocol.LoadingEvent:
		m.loading = msg.Visible
		if m.loading {
			return m, m.spinner.Tick
		}
		return m, nil

	case protocol.ExternalLinkEvent:
		m.setStatus(statusInfo, "Open in browser (%s): %s", msg.Reason, msg.URL)
		return m, nil

	case protocol.ErrorEvent:
		log := logger.GetTUILogger()
		log.Error().Str("context", msg.Context).Msg(msg.Message)
		m.setStatus(statusError, "%s", msg.Message)
		return m, nil

	case protocol.ExitRequestedEvent:
		return m, tea.Quit
	}

	return m, nil
}

func (m MainModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.input.Focused() {
		switch msg.Type {
		case tea.KeyEnter:
			url := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			m.input.Blur()
			if url == "" {
				return m, nil
			}
			return m, m.send(protocol.RouteURLCommand{Metadata: protocol.NewMetadata(), URL: url})
		case tea.KeyEsc:
			m.input.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "b", "esc", "backspace":
		return m, m.send(protocol.BackCommand{Metadata: protocol.NewMetadata()})
	case "h":
		return m, m.send(protocol.ReturnToLandingCommand{Metadata: protocol.NewMetadata()})
	case "o":
		m.online = !m.online
		return m, m.send(protocol.SetConnectivityCommand{Metadata: protocol.NewMetadata(), Online: m.online})
	case "/", "i":
		cmd := m.input.Focus()
		return m, cmd
	}
	return m, nil
}

func (m MainModel) View() string {
	var b strings.Builder

	if bar := m.tabs.View(); bar != "" {
		b.WriteString(bar)
		b.WriteString("\n\n")
	}

	entries := m.snapshot.Entries
	if len(entries) == 0 {
		b.WriteString(layout.EmptyStyle.Render("(empty stack)"))
		b.WriteString("\n")
	}
	for i := len(entries) - 1; i >= 0; i-- {
		b.WriteString(renderEntry(entries[i], i == len(entries)-1))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())

	if m.status != "" {
		b.WriteString("\n\n")
		switch m.statusLevel {
		case statusError:
			b.WriteString(layout.ErrorStyle.Render(m.status))
		case statusWarn:
			b.WriteString(layout.WarningStyle.Render(m.status))
		default:
			b.WriteString(layout.InfoStyle.Render(m.status))
		}
	}

	return layout.Render(b.String(), layout.Frame{
		Title:     "navlink",
		Trail:     m.breadcrumbs(),
		StatusBar: m.statusLine(),
		Keys:      m.helpItems(),
	}, m.width, m.height)
}

func renderEntry(e navigation.Entry, top bool) string {
	line := layout.KindStyle(e.Route.Category()).Render(string(e.Kind))
	if ctx := e.Route.Context(); ctx != nil {
		line += "  " + layout.ContextStyle.Render(route.ContextString(ctx))
	}
	if e.Modal {
		line += " " + layout.ModalTagStyle.Render("[modal]")
	}
	if top {
		return layout.TopEntryStyle.Render("▸ " + line)
	}
	return layout.EntryStyle.Render("  " + line)
}

func (m MainModel) breadcrumbs() []string {
	crumbs := make([]string, 0, len(m.snapshot.Entries))
	for _, e := range m.snapshot.Entries {
		crumbs = append(crumbs, string(e.Kind))
	}
	return crumbs
}

func (m MainModel) statusLine() string {
	parts := []string{fmt.Sprintf("depth %d", m.snapshot.Depth())}
	if m.online {
		parts = append(parts, "online")
	} else {
		parts = append(parts, "offline")
	}
	if m.loading {
		parts = append(parts, m.spinner.View()+" resolving")
	}
	return strings.Join(parts, " · ")
}

func (m MainModel) helpItems() []layout.HelpItem {
	if m.input.Focused() {
		return []layout.HelpItem{
			{Key: "enter", Description: "route"},
			{Key: "esc", Description: "cancel"},
		}
	}
	return []layout.HelpItem{
		{Key: "/", Description: "open URL"},
		{Key: "b", Description: "back"},
		{Key: "h", Description: "landing"},
		{Key: "o", Description: "toggle online"},
		{Key: "q", Description: "quit"},
	}
}
