// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package testutil

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/noldarim/navlink/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DefaultWait bounds how long assertions wait for asynchronous events
const DefaultWait = 2 * time.Second

// AssertCommandSent verifies that a command of the expected type was sent
func AssertCommandSent(t *testing.T, capture *CommandCapture, expectedType interface{}) {
	t.Helper()
	require.True(t, capture.WaitForCommands(1, DefaultWait), "Expected at least one command to be sent")
	assert.IsType(t, expectedType, capture.LastCommand(), "Command type mismatch")
}

// AssertRouteURLCommand verifies that a RouteURLCommand for url was sent
func AssertRouteURLCommand(t *testing.T, capture *CommandCapture, url string) {
	t.Helper()
	AssertCommandSent(t, capture, protocol.RouteURLCommand{})
	cmd := capture.LastCommand().(protocol.RouteURLCommand)
	assert.Equal(t, url, cmd.URL, "RouteURLCommand url mismatch")
}

// AssertNoCommands verifies that no commands were sent
func AssertNoCommands(t *testing.T, capture *CommandCapture) {
	t.Helper()
	assert.Equal(t, 0, capture.CommandCount(), "Command count mismatch")
}

// AssertQuitMessage verifies that a quit message was generated
func AssertQuitMessage(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd, "Expected a command to be generated")
	assert.IsType(t, tea.QuitMsg{}, ExecuteCommand(cmd), "Expected quit message")
}

// WaitForEvent waits for the first event with the given wire name and
// returns it typed as T.
func WaitForEvent[T protocol.Event](t *testing.T, capture *EventCapture, name string) T {
	t.Helper()
	e, ok := capture.WaitFor(func(e protocol.Event) bool {
		return protocol.EventName(e) == name
	}, DefaultWait)
	require.True(t, ok, "timed out waiting for %s event", name)
	typed, ok := e.(T)
	require.True(t, ok, "event %s has type %T", name, e)
	return typed
}

// WaitForEventCount waits until n events with the given wire name exist.
func WaitForEventCount(t *testing.T, capture *EventCapture, name string, n int) []protocol.Event {
	t.Helper()
	deadline := time.Now().Add(DefaultWait)
	for {
		got := capture.OfType(name)
		if len(got) >= n {
			return got
		}
		if time.Now().After(deadline) {
			require.Failf(t, "timed out", "waiting for %d %s events, got %d", n, name, len(got))
			return got
		}
		time.Sleep(time.Millisecond)
	}
}
