// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/noldarim/navlink/internal/config"
	"github.com/noldarim/navlink/internal/logger"
	"github.com/noldarim/navlink/internal/navigator"
	"github.com/noldarim/navlink/internal/protocol"
	"github.com/noldarim/navlink/internal/resolver"
	"github.com/noldarim/navlink/internal/store"
	"github.com/noldarim/navlink/internal/tui"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		fmt.Fprintln(os.Stderr, "The inspector needs an interactive terminal; use cmd/server or the navlink CLI instead.")
		os.Exit(1)
	}

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		// Only log to stderr on critical startup errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.CloseGlobal()

	mainLog := logger.GetLogger("main")
	mainLog.Info().Msg("Starting navlink inspector")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(&cfg.Backend)
	if err != nil {
		mainLog.Error().Err(err).Msg("Error opening store")
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	// Channels between the TUI and the navigator
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

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		mainLog.Info().Msg("Starting navigator...")
		nav.Run(ctx)
		mainLog.Info().Msg("Navigator stopped")
	}()

	tuiErrChan := make(chan error, 1)
	go func() {
		mainLog.Info().Msg("Starting TUI")
		tuiErrChan <- tui.StartTUI(ctx, cmdChan, eventChan, cfg.Session.Online)
	}()

	select {
	case sig := <-sigChan:
		mainLog.Info().Msgf("Received signal %v, shutting down...", sig)
	case err := <-tuiErrChan:
		if err != nil {
			mainLog.Error().Err(err).Msg("Error running TUI")
			// Log to stderr since TUI has exited
			fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		}
	}
	cancel()

	mainLog.Info().Msg("Application shutting down")
}
