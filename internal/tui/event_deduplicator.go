// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"sync"
	"time"

	"github.com/noldarim/navlink/internal/protocol"
)

// DefaultDedupTTL is how long an idempotency key is remembered.
const DefaultDedupTTL = 10 * time.Minute

// EventDeduplicator drops events whose idempotency key was already seen.
// The websocket bridge and the in-process channel can both deliver the same
// navigator event to an inspector.
type EventDeduplicator struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewEventDeduplicator creates a deduplicator remembering keys for ttl.
func NewEventDeduplicator(ttl time.Duration) *EventDeduplicator {
	return &EventDeduplicator{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// ShouldProcess reports whether event is new. Events without an idempotency
// key are always processed. Expired keys are pruned on the way.
func (d *EventDeduplicator) ShouldProcess(event protocol.Event) bool {
	key := protocol.GetIdempotencyKey(event)
	if key == "" {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.prune(now)
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = now
	return true
}

// Len returns the number of remembered keys.
func (d *EventDeduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

func (d *EventDeduplicator) prune(now time.Time) {
	for key, at := range d.seen {
		if now.Sub(at) > d.ttl {
			delete(d.seen, key)
		}
	}
}
