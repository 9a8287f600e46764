// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Here lies the definition of the data that the navigator can receive from
// its hosts (app shell, API server, TUI). All such data is named Command.
//
// Commands state the end goal ("route this url", "go back") and never carry
// stack positions or sequence numbers; the navigator owns those.
package protocol

import (
	"github.com/noldarim/navlink/internal/route"
	"github.com/noldarim/navlink/internal/signal"
)

// Command represents commands that can be sent to the navigator
type Command interface {
	// All commands must embed Metadata for correlation and versioning
	GetBaseMessage() Metadata
}

// HandleSignalCommand delivers an external signal for classification
type HandleSignalCommand struct {
	Metadata
	Signal signal.Signal
}

func (c HandleSignalCommand) GetBaseMessage() Metadata {
	return c.Metadata
}

// RouteURLCommand asks the navigator to route a URL. Domain is an optional
// hint naming the domain the URL came from.
type RouteURLCommand struct {
	Metadata
	URL    string
	Domain string
}

func (c RouteURLCommand) GetBaseMessage() Metadata {
	return c.Metadata
}

// NavigateCommand presents an explicit route, resolving its context first
type NavigateCommand struct {
	Metadata
	Route route.Route
}

func (c NavigateCommand) GetBaseMessage() Metadata {
	return c.Metadata
}

// BackCommand pops the top screen
type BackCommand struct {
	Metadata
}

func (c BackCommand) GetBaseMessage() Metadata {
	return c.Metadata
}

// ReturnToLandingCommand drops everything and shows the landing screen
type ReturnToLandingCommand struct {
	Metadata
}

func (c ReturnToLandingCommand) GetBaseMessage() Metadata {
	return c.Metadata
}

// SetConnectivityCommand reports a connectivity change
type SetConnectivityCommand struct {
	Metadata
	Online bool
}

func (c SetConnectivityCommand) GetBaseMessage() Metadata {
	return c.Metadata
}
