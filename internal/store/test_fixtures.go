// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/noldarim/navlink/internal/config"

	"github.com/stretchr/testify/require"
)

// StoreFixture represents a database setup with cleanup
type StoreFixture struct {
	Store   *Store
	Cleanup func()
}

// UseFreshInMemoryStore creates a private in-memory SQLite database with
// AutoMigrate applied.
func UseFreshInMemoryStore(t *testing.T) *StoreFixture {
	t.Helper()
	cfg := &config.BackendConfig{
		Database: config.DatabaseConfig{
			Driver:   "sqlite",
			Database: "file:navlink-" + uuid.NewString() + "?mode=memory&cache=shared",
		},
		FetchTimeout: 5 * time.Second,
	}

	s, err := Open(cfg)
	require.NoError(t, err, "Failed to create in-memory database")

	err = s.AutoMigrate()
	require.NoError(t, err, "Failed to run migrations on in-memory database")

	return &StoreFixture{
		Store: s,
		Cleanup: func() {
			s.Close()
		},
	}
}
