// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package navigation keeps the back stack of presented screens and the
// chrome state derived from it.
package navigation

import (
	"sync"

	"github.com/google/uuid"
	"github.com/noldarim/navlink/internal/logger"
	"github.com/noldarim/navlink/internal/route"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetNavigationLogger()
		log = &l
	})
	return log
}

// Tab is a bottom-bar destination.
type Tab string

const (
	TabHome          Tab = "home"
	TabCalendar      Tab = "calendar"
	TabTodo          Tab = "todo"
	TabNotifications Tab = "notifications"
	TabInbox         Tab = "inbox"
)

// Tabs lists the bottom-bar tabs in display order.
var Tabs = []Tab{TabHome, TabCalendar, TabTodo, TabNotifications, TabInbox}

var tabByKind = map[route.Kind]Tab{
	route.KindCalendar:         TabCalendar,
	route.KindTodoList:         TabTodo,
	route.KindNotificationList: TabNotifications,
	route.KindInbox:            TabInbox,
	route.KindConversation:     TabInbox,
}

var rootKinds = map[route.Kind]struct{}{
	route.KindDashboard:        {},
	route.KindCalendar:         {},
	route.KindTodoList:         {},
	route.KindNotificationList: {},
	route.KindInbox:            {},
}

// TabFor returns the tab highlighted while kind is on top.
func TabFor(kind route.Kind) Tab {
	if t, ok := tabByKind[kind]; ok {
		return t
	}
	return TabHome
}

// RootEligible reports whether kind is a bottom-bar root screen.
func RootEligible(kind route.Kind) bool {
	_, ok := rootKinds[kind]
	return ok
}

// Entry is one presented screen.
type Entry struct {
	Tag   uuid.UUID   `json:"tag"`
	Kind  route.Kind  `json:"kind"`
	Route route.Route `json:"route"`
	Modal bool        `json:"modal"`
}

// Snapshot is an immutable copy of the stack and its derived state.
type Snapshot struct {
	Entries       []Entry `json:"entries"`
	Tab           Tab     `json:"tab"`
	ChromeVisible bool    `json:"chrome_visible"`
}

// Top returns the last entry of the snapshot.
func (s Snapshot) Top() (Entry, bool) {
	return last(s.Entries)
}

// Depth returns the number of entries.
func (s Snapshot) Depth() int {
	return len(s.Entries)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLargeScreen presents DIALOG routes as modal entries.
func WithLargeScreen(large bool) Option {
	return func(c *Controller) {
		c.largeScreen = large
	}
}

// Controller owns the back stack. It is not safe for concurrent use; one
// goroutine mutates it and other readers use Snapshot.
type Controller struct {
	entries     []Entry
	largeScreen bool

	tab    Tab
	chrome bool
}

// NewController creates an empty stack.
func NewController(opts ...Option) *Controller {
	c := &Controller{tab: TabHome}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) newEntry(r route.Route) Entry {
	return Entry{
		Tag:   uuid.New(),
		Kind:  r.Kind(),
		Route: r,
		Modal: c.largeScreen && r.Style() == route.StyleDialog,
	}
}

// Push presents r on top of the stack.
func (c *Controller) Push(r route.Route) Entry {
	e := c.newEntry(r)
	c.entries = append(c.entries, e)
	c.recompute()
	getLog().Debug().Str("kind", string(e.Kind)).Int("depth", len(c.entries)).Bool("modal", e.Modal).Msg("Pushed screen")
	return e
}

// Pop removes the top entry. At depth one it leaves the stack alone and
// returns false so the caller can apply its own policy.
func (c *Controller) Pop() (Entry, bool) {
	switch len(c.entries) {
	case 0:
		getLog().Warn().Msg("Pop on empty stack ignored")
		return Entry{}, false
	case 1:
		return Entry{}, false
	}
	top := c.entries[len(c.entries)-1]
	c.entries = c.entries[:len(c.entries)-1]
	c.recompute()
	getLog().Debug().Str("kind", string(top.Kind)).Int("depth", len(c.entries)).Msg("Popped screen")
	return top, true
}

// ClearToRoot drops every entry above the first entry of kind. It reports
// whether kind is on the stack. A top entry of kind leaves the stack as is.
func (c *Controller) ClearToRoot(kind route.Kind) bool {
	if top, ok := last(c.entries); ok && top.Kind == kind {
		return true
	}
	_, idx, found := lo.FindIndexOf(c.entries, func(e Entry) bool { return e.Kind == kind })
	if !found {
		getLog().Warn().Str("kind", string(kind)).Msg("Clear to root ignored, kind not on stack")
		return false
	}
	c.entries = c.entries[:idx+1]
	c.recompute()
	getLog().Debug().Str("kind", string(kind)).Int("depth", len(c.entries)).Msg("Cleared to root")
	return true
}

// Reset replaces the whole stack with a single entry for r.
func (c *Controller) Reset(r route.Route) Entry {
	e := c.newEntry(r)
	c.entries = []Entry{e}
	c.recompute()
	getLog().Debug().Str("kind", string(e.Kind)).Msg("Reset stack")
	return e
}

// ReplaceTop swaps the top entry for r, or pushes when the stack is empty.
func (c *Controller) ReplaceTop(r route.Route) Entry {
	if len(c.entries) == 0 {
		return c.Push(r)
	}
	e := c.newEntry(r)
	c.entries[len(c.entries)-1] = e
	c.recompute()
	getLog().Debug().Str("kind", string(e.Kind)).Int("depth", len(c.entries)).Msg("Replaced top screen")
	return e
}

func (c *Controller) Top() (Entry, bool) {
	return last(c.entries)
}

// Peeking returns the entry under the top.
func (c *Controller) Peeking() (Entry, bool) {
	if len(c.entries) < 2 {
		return Entry{}, false
	}
	return c.entries[len(c.entries)-2], true
}

func (c *Controller) Depth() int {
	return len(c.entries)
}

func (c *Controller) Contains(kind route.Kind) bool {
	return lo.ContainsBy(c.entries, func(e Entry) bool { return e.Kind == kind })
}

func (c *Controller) Tab() Tab {
	return c.tab
}

func (c *Controller) ChromeVisible() bool {
	return c.chrome
}

// Snapshot copies the current state.
func (c *Controller) Snapshot() Snapshot {
	entries := make([]Entry, len(c.entries))
	copy(entries, c.entries)
	return Snapshot{Entries: entries, Tab: c.tab, ChromeVisible: c.chrome}
}

func (c *Controller) recompute() {
	top, ok := c.Top()
	if !ok {
		c.tab = TabHome
		c.chrome = false
		return
	}
	c.tab = TabFor(top.Kind)
	c.chrome = RootEligible(top.Kind) || len(c.entries) == 1
}

func last(entries []Entry) (Entry, bool) {
	if len(entries) == 0 {
		return Entry{}, false
	}
	return entries[len(entries)-1], true
}
