// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Here lies the definition of the data that the navigator sends to its hosts.
// All such data is named Event. Most events answer a Command and carry its
// request id; MessageEvent and ExternalLinkEvent may also come from
// resolution work that finished after the command was handled.
package protocol

import (
	"github.com/noldarim/navlink/internal/models"
	"github.com/noldarim/navlink/internal/navigation"
)

// GetIdempotencyKey extracts the idempotency key from any event
func GetIdempotencyKey(event Event) string {
	return event.GetMetadata().IdempotencyKey
}

// StackChangedEvent is sent after every stack mutation
type StackChangedEvent struct {
	Metadata
	Snapshot navigation.Snapshot `json:"snapshot"`
}

func (e StackChangedEvent) GetMetadata() Metadata {
	return e.Metadata
}

// ScreenPresentedEvent is sent when a screen becomes visible. File is set
// for file routes; Download marks a direct download request.
type ScreenPresentedEvent struct {
	Metadata
	Entry    navigation.Entry `json:"entry"`
	Replaced bool             `json:"replaced"`
	File     *models.FileMeta `json:"file,omitempty"`
	Download bool             `json:"download,omitempty"`
}

func (e ScreenPresentedEvent) GetMetadata() Metadata {
	return e.Metadata
}

// MessageEvent asks the host to show a message. ID is the catalog id for
// engine-generated messages and empty for messages carried by a signal.
type MessageEvent struct {
	Metadata
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
	Type string `json:"type,omitempty"`
}

func (e MessageEvent) GetMetadata() Metadata {
	return e.Metadata
}

// LoadingEvent toggles the loading affordance
type LoadingEvent struct {
	Metadata
	Visible bool `json:"visible"`
}

func (e LoadingEvent) GetMetadata() Metadata {
	return e.Metadata
}

// ExternalLinkEvent hands a URL to the host browser
type ExternalLinkEvent struct {
	Metadata
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

func (e ExternalLinkEvent) GetMetadata() Metadata {
	return e.Metadata
}

// ExitRequestedEvent is sent when back is pressed on the root screen and
// the configured policy is to exit
type ExitRequestedEvent struct {
	Metadata
}

func (e ExitRequestedEvent) GetMetadata() Metadata {
	return e.Metadata
}

type ErrorEvent struct {
	Metadata
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}

func (e ErrorEvent) GetMetadata() Metadata {
	return e.Metadata
}

// EventName returns the wire name of an event, used by subscribers to
// filter and by the websocket envelope.
func EventName(event Event) string {
	switch event.(type) {
	case StackChangedEvent:
		return "stack_changed"
	case ScreenPresentedEvent:
		return "screen_presented"
	case MessageEvent:
		return "message"
	case LoadingEvent:
		return "loading"
	case ExternalLinkEvent:
		return "external_link"
	case ExitRequestedEvent:
		return "exit_requested"
	case ErrorEvent:
		return "error"
	default:
		return "unknown"
	}
}
