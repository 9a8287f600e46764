// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides a REST + WebSocket API. Handlers translate requests
// into navigator commands and broadcast the resulting navigator events to
// connected WebSocket clients.
package server

import (
	"context"
	"sync"

	"github.com/noldarim/navlink/internal/logger"
	"github.com/noldarim/navlink/internal/protocol"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetAPILogger()
		log = &l
	})
	return log
}

// EventBroadcaster drains the navigator's event channel into a Hub. The
// channel has a single reader, so the broadcaster is also where events are
// tapped and counted.
type EventBroadcaster struct {
	events <-chan protocol.Event
	hub    *Hub
	tap    func(protocol.Event)
	count  metric.Int64Counter
}

func NewEventBroadcaster(events <-chan protocol.Event, hub *Hub) *EventBroadcaster {
	count, err := otel.Meter("github.com/noldarim/navlink/internal/server").Int64Counter(
		"navlink.api.events",
		metric.WithDescription("Navigator events broadcast to subscribers, by event name"))
	if err != nil {
		getLog().Warn().Err(err).Msg("Failed to create event counter")
	}
	return &EventBroadcaster{events: events, hub: hub, count: count}
}

// Run returns when the channel closes or ctx is done.
func (b *EventBroadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			getLog().Info().Msg("Event broadcaster stopped")
			return
		case event, ok := <-b.events:
			if !ok {
				getLog().Info().Msg("Navigator event channel closed, broadcaster stopped")
				return
			}
			b.dispatch(ctx, event)
		}
	}
}

func (b *EventBroadcaster) dispatch(ctx context.Context, event protocol.Event) {
	name := protocol.EventName(event)
	if b.count != nil {
		b.count.Add(ctx, 1, metric.WithAttributes(attribute.String("event", name)))
	}
	getLog().Debug().
		Str("event", name).
		Str("request_id", event.GetMetadata().RequestID).
		Int("subscribers", b.hub.Len()).
		Msg("Broadcasting navigator event")

	if b.tap != nil {
		b.tap(event)
	}
	b.hub.Broadcast(event)
}
