// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package testutil

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

// SendMessage runs one Update.
func SendMessage(model tea.Model, msg tea.Msg) (tea.Model, tea.Cmd) {
	return model.Update(msg)
}

// TypeText feeds text to the model one rune at a time, as a user typing it.
func TypeText(model tea.Model, text string) tea.Model {
	for _, r := range text {
		model, _ = model.Update(KeyPress(string(r)))
	}
	return model
}

// ExecuteCommand runs cmd synchronously. Commands that send to the navigator
// block until the capture drains them.
func ExecuteCommand(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

func AssertViewContains(t *testing.T, model tea.Model, want string) {
	t.Helper()
	assert.Contains(t, model.View(), want)
}

func KeyPress(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func SpecialKey(keyType tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: keyType}
}

func WindowSizeMsg(width, height int) tea.WindowSizeMsg {
	return tea.WindowSizeMsg{Width: width, Height: height}
}
