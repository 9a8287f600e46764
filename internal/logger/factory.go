// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package logger

import (
	"github.com/rs/zerolog"
)

// Static logger getters that map directly to config.yaml log.levels

// GetMatcherLogger returns a logger for the route matcher
func GetMatcherLogger() zerolog.Logger {
	return GetLogger("matcher")
}

// GetSignalLogger returns a logger for signal classification
func GetSignalLogger() zerolog.Logger {
	return GetLogger("signal")
}

// GetResolverLogger returns a logger for context resolution
func GetResolverLogger() zerolog.Logger {
	return GetLogger("resolver")
}

// GetNavigationLogger returns a logger for the navigation stack
func GetNavigationLogger() zerolog.Logger {
	return GetLogger("navigation")
}

// GetNavigatorLogger returns a logger for the screen-hosting loop
func GetNavigatorLogger() zerolog.Logger {
	return GetLogger("navigator")
}

// GetStoreLogger returns a logger for database operations
func GetStoreLogger() zerolog.Logger {
	return GetLogger("store")
}

// GetAPILogger returns a logger for API operations
func GetAPILogger() zerolog.Logger {
	return GetLogger("api")
}

// GetTUILogger returns a logger for TUI components
func GetTUILogger() zerolog.Logger {
	return GetLogger("tui")
}

// GetTelemetryLogger returns a logger for tracing setup
func GetTelemetryLogger() zerolog.Logger {
	return GetLogger("telemetry")
}

// GetMessagesLogger returns a logger for message localization
func GetMessagesLogger() zerolog.Logger {
	return GetLogger("messages")
}
