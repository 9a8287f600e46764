// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/noldarim/navlink/internal/config"
	"github.com/noldarim/navlink/internal/matcher"
	"github.com/noldarim/navlink/internal/protocol"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the REST + WebSocket API server.
type Server struct {
	httpServer  *http.Server
	broadcaster *EventBroadcaster
	hub         *Hub
	metrics     http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithEventTap registers fn to see every event before it is broadcast.
func WithEventTap(fn func(protocol.Event)) Option {
	return func(s *Server) {
		s.broadcaster.tap = fn
	}
}

// WithMetrics mounts h at /metrics. A nil handler leaves the route out.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// New creates and wires up the API server. It does NOT start listening;
// call Run() for that.
func New(
	cfg *config.AppConfig,
	cmdChan chan<- protocol.Command,
	eventChan <-chan protocol.Event,
	stack StackReader,
	m *matcher.Matcher,
	opts ...Option,
) *Server {
	hub := NewHub()
	s := &Server{
		broadcaster: NewEventBroadcaster(eventChan, hub),
		hub:         hub,
	}
	for _, opt := range opts {
		opt(s)
	}

	handlers := NewHandlers(cmdChan, stack, m, cfg.Session.Domain)

	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Observe)
	r.Use(Recovery)
	r.Use(CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.RequestSize(1 << 20))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(CommandRateLimit(cfg.Server.CommandRate, cfg.Server.CommandBurst))

		r.Get("/stack", handlers.GetStack)
		r.Get("/match", handlers.Match)

		r.Post("/signals", handlers.PostSignal)
		r.Post("/navigate", handlers.Navigate)
		r.Post("/back", handlers.Back)
		r.Post("/landing", handlers.ReturnToLanding)
		r.Post("/connectivity", handlers.SetConnectivity)
	})

	r.Get("/ws", HandleWebSocket(hub, stack, cfg.Server.AllowedOrigins))
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Hub returns the websocket subscriber hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// RunBroadcaster fans out navigator events until ctx ends or the event
// channel closes. A panic while broadcasting restarts the loop a bounded
// number of times.
func (s *Server) RunBroadcaster(ctx context.Context) {
	const maxRestarts = 3
	for attempt := 1; ; attempt++ {
		if !s.runBroadcasterOnce(ctx, attempt) || ctx.Err() != nil {
			return
		}
		if attempt == maxRestarts {
			getLog().Error().Msg("Event broadcaster kept panicking, events are no longer dispatched")
			return
		}
		getLog().Warn().Int("attempt", attempt).Msg("Restarting event broadcaster after panic")
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// runBroadcasterOnce reports whether the broadcaster stopped by panicking.
func (s *Server) runBroadcasterOnce(ctx context.Context, attempt int) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			getLog().Error().Interface("panic", r).Int("attempt", attempt).Msg("Event broadcaster panic")
			panicked = true
		}
	}()
	s.broadcaster.Run(ctx)
	return false
}

// Run starts the event broadcaster goroutine and the HTTP server.
// Blocks until the server is shut down.
func (s *Server) Run(ctx context.Context) error {
	go s.RunBroadcaster(ctx)

	getLog().Info().Str("addr", s.httpServer.Addr).Msg("API server listening")
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
