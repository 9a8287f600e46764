// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noldarim/navlink/internal/config"
	"github.com/noldarim/navlink/internal/logger"
	"github.com/noldarim/navlink/internal/navigator"
	"github.com/noldarim/navlink/internal/protocol"
	"github.com/noldarim/navlink/internal/resolver"
	"github.com/noldarim/navlink/internal/server"
	"github.com/noldarim/navlink/internal/store"
	"github.com/noldarim/navlink/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.CloseGlobal()

	mainLog := logger.GetLogger("main")
	mainLog.Info().Msg("Starting navlink API server")

	// This context drives the navigator's lifetime.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		mainLog.Error().Err(err).Msg("Error initializing telemetry")
		fmt.Fprintf(os.Stderr, "Error initializing telemetry: %v\n", err)
		os.Exit(1)
	}

	st, err := store.Open(&cfg.Backend)
	if err != nil {
		mainLog.Error().Err(err).Msg("Error opening store")
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	cmdChan := make(chan protocol.Command, 100)
	eventChan := make(chan protocol.Event, 100)

	nav, err := navigator.New(cmdChan, eventChan, cfg,
		resolver.NewSharedBackend(st, cfg.Backend.CacheTTL),
		st.Identity(cfg.Session),
	)
	if err != nil {
		mainLog.Error().Err(err).Msg("Error creating navigator")
		fmt.Fprintf(os.Stderr, "Error creating navigator: %v\n", err)
		os.Exit(1)
	}

	go func() {
		mainLog.Info().Msg("Starting navigator...")
		nav.Run(ctx)
		mainLog.Info().Msg("Navigator stopped")
	}()

	srv := server.New(cfg, cmdChan, eventChan, nav, nav.Matcher(),
		server.WithMetrics(telemetry.MetricsHandler()),
	)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- srv.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		mainLog.Info().Msgf("Received signal %v, shutting down...", sig)
	case err := <-serverErrChan:
		if err != nil {
			mainLog.Error().Err(err).Msg("Server error")
		}
	}

	// Fresh context: the server drains requests before the navigator stops.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLog.Error().Err(err).Msg("Error shutting down server")
	}

	mainLog.Info().Msg("Shutting down navigator...")
	cancel()
	select {
	case <-nav.Done():
	case <-shutdownCtx.Done():
		mainLog.Warn().Msg("Navigator did not stop before the shutdown deadline")
	}

	if err := shutdownTelemetry(shutdownCtx); err != nil {
		mainLog.Error().Err(err).Msg("Error flushing telemetry")
	}

	mainLog.Info().Msg("API server shut down")
}
