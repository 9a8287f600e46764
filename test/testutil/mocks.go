// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/noldarim/navlink/internal/models"
	"github.com/noldarim/navlink/internal/protocol"
	"github.com/stretchr/testify/mock"
)

// MockBackend is a testify mock of the resolution backend.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) FetchCourse(ctx context.Context, id int64) (*models.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}

func (m *MockBackend) FetchGroup(ctx context.Context, id int64) (*models.Group, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Group), args.Error(1)
}

func (m *MockBackend) FetchFileMetadata(ctx context.Context, id int64) (*models.FileMeta, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FileMeta), args.Error(1)
}

// BlockUntilCancelled is a mock Run func that waits for the call's context
// to end. Use it to keep a resolution job in flight.
func BlockUntilCancelled(args mock.Arguments) {
	ctx := args.Get(0).(context.Context)
	<-ctx.Done()
}

// CommandCapture captures commands sent through a channel
type CommandCapture struct {
	Commands []protocol.Command
	ch       chan protocol.Command
	mu       sync.RWMutex
}

// NewCommandCapture creates a new command capture instance
func NewCommandCapture() *CommandCapture {
	capture := &CommandCapture{
		Commands: make([]protocol.Command, 0),
		ch:       make(chan protocol.Command, 100),
	}

	go func() {
		for cmd := range capture.ch {
			capture.mu.Lock()
			capture.Commands = append(capture.Commands, cmd)
			capture.mu.Unlock()
		}
	}()

	return capture
}

// Channel returns the send channel for commands
func (c *CommandCapture) Channel() chan<- protocol.Command {
	return c.ch
}

// LastCommand returns the most recent command sent, or nil if none
func (c *CommandCapture) LastCommand() protocol.Command {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.Commands) == 0 {
		return nil
	}
	return c.Commands[len(c.Commands)-1]
}

// CommandCount returns the number of commands captured
func (c *CommandCapture) CommandCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.Commands)
}

// Close closes the capture channel
func (c *CommandCapture) Close() {
	close(c.ch)
}

// WaitForCommands waits until at least n commands have been captured or the
// timeout passes. It reports whether n was reached.
func (c *CommandCapture) WaitForCommands(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.CommandCount() >= n {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return c.CommandCount() >= n
}

// EventCapture drains an event channel into a slice.
type EventCapture struct {
	mu     sync.RWMutex
	events []protocol.Event
	done   chan struct{}
}

// NewEventCapture starts draining ch until it is closed.
func NewEventCapture(ch <-chan protocol.Event) *EventCapture {
	c := &EventCapture{done: make(chan struct{})}
	go func() {
		defer close(c.done)
		for e := range ch {
			c.mu.Lock()
			c.events = append(c.events, e)
			c.mu.Unlock()
		}
	}()
	return c
}

// Events returns a copy of the captured events
func (c *EventCapture) Events() []protocol.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]protocol.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Count returns the number of captured events
func (c *EventCapture) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}

// Stopped is closed once the source channel is closed and drained
func (c *EventCapture) Stopped() <-chan struct{} {
	return c.done
}

// WaitFor waits until an event matching pred is captured and returns it.
func (c *EventCapture) WaitFor(pred func(protocol.Event) bool, timeout time.Duration) (protocol.Event, bool) {
	deadline := time.Now().Add(timeout)
	for {
		for _, e := range c.Events() {
			if pred(e) {
				return e, true
			}
		}
		if time.Now().After(deadline) {
			return nil, false
		}
		time.Sleep(time.Millisecond)
	}
}

// OfType returns the captured events with the given wire name.
func (c *EventCapture) OfType(name string) []protocol.Event {
	var out []protocol.Event
	for _, e := range c.Events() {
		if protocol.EventName(e) == name {
			out = append(out, e)
		}
	}
	return out
}
