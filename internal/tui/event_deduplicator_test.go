// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/noldarim/navlink/internal/protocol"
	"github.com/stretchr/testify/assert"
)

func messageEvent(key string) protocol.MessageEvent {
	return protocol.MessageEvent{
		Metadata: protocol.Metadata{IdempotencyKey: key, Version: protocol.CurrentProtocolVersion},
		Text:     "hello",
	}
}

func TestEventDeduplicator_BasicDeduplication(t *testing.T) {
	d := NewEventDeduplicator(DefaultDedupTTL)

	assert.True(t, d.ShouldProcess(messageEvent("key-1")), "first event should be processed")
	assert.False(t, d.ShouldProcess(messageEvent("key-1")), "duplicate should be dropped")
	assert.True(t, d.ShouldProcess(messageEvent("key-2")))

	// Same key on a different event type is still a duplicate.
	assert.False(t, d.ShouldProcess(protocol.LoadingEvent{
		Metadata: protocol.Metadata{IdempotencyKey: "key-2"},
	}))
}

func TestEventDeduplicator_NoKeyAlwaysProcessed(t *testing.T) {
	d := NewEventDeduplicator(DefaultDedupTTL)

	for range 3 {
		assert.True(t, d.ShouldProcess(messageEvent("")))
	}
	assert.Equal(t, 0, d.Len())
}

func TestEventDeduplicator_TTLExpiration(t *testing.T) {
	d := NewEventDeduplicator(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	assert.True(t, d.ShouldProcess(messageEvent("key-1")))

	now = now.Add(30 * time.Second)
	assert.False(t, d.ShouldProcess(messageEvent("key-1")))

	now = now.Add(2 * time.Minute)
	assert.True(t, d.ShouldProcess(messageEvent("key-1")), "expired key should be processed again")
	assert.Equal(t, 1, d.Len())
}

func TestEventDeduplicator_ConcurrentAccess(t *testing.T) {
	d := NewEventDeduplicator(DefaultDedupTTL)

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	processed := 0

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				// Every worker races on the same 50 keys.
				if d.ShouldProcess(messageEvent(fmt.Sprintf("key-%d", i))) {
					mu.Lock()
					processed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, processed)
	assert.Equal(t, 50, d.Len())
}
