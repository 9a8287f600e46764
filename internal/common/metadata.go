// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package common provides shared types used across multiple packages.
package common

import "github.com/google/uuid"

// Metadata contains common fields for all messages exchanged with the
// navigator. This includes Commands (host -> navigator) and Events
// (navigator -> host).
type Metadata struct {
	// RequestID correlates events with the command that caused them.
	// Optional - events raised by background work carry the id of the
	// command that started that work.
	RequestID string `json:"request_id,omitempty"`

	// IdempotencyKey is used for event deduplication by subscribers.
	// Optional - events without this key will always be processed
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// Version indicates the protocol version for backward compatibility.
	// Format: "v{major}.{minor}.{patch}" (e.g., "v1.0.0")
	Version string `json:"version"`
}

// CurrentProtocolVersion defines the current version of the protocol.
// This should be updated when making breaking changes to the protocol.
const CurrentProtocolVersion = "v1.0.0"

// NewMetadata returns metadata for a new message with a fresh request id.
func NewMetadata() Metadata {
	return Metadata{RequestID: uuid.NewString(), Version: CurrentProtocolVersion}
}

// Reply derives event metadata from a command's metadata.
func (m Metadata) Reply() Metadata {
	return Metadata{
		RequestID:      m.RequestID,
		IdempotencyKey: uuid.NewString(),
		Version:        CurrentProtocolVersion,
	}
}

// Event represents events that can be sent from the navigator to its hosts.
// Any type implementing this interface can be sent through the event channel.
type Event interface {
	GetMetadata() Metadata
}
