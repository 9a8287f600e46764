// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/noldarim/navlink/internal/config"
	"github.com/noldarim/navlink/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	seed := flag.String("seed", "", "YAML fixtures to load after migrating (defaults to backend.fixtures_path)")
	flag.Parse()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	st, err := store.Open(&cfg.Backend)
	if err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	fmt.Println("Starting database migration...")
	fmt.Printf("Database: %s\n", cfg.Backend.Database.GetDSN())

	if err := st.AutoMigrate(); err != nil {
		fmt.Printf("Migration failed: %v\n", err)
		os.Exit(1)
	}
	if err := st.ValidateSchema(); err != nil {
		fmt.Printf("Schema validation failed after migration: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Database migration completed")

	path := *seed
	if path == "" {
		path = cfg.Backend.FixturesPath
	}
	if path == "" {
		return
	}

	fixtures, err := store.LoadFixtures(path)
	if err != nil {
		fmt.Printf("Error loading fixtures: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := st.Seed(ctx, fixtures); err != nil {
		fmt.Printf("Seeding failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Seeded %d courses, %d groups, %d users, %d files from %s\n",
		len(fixtures.Courses), len(fixtures.Groups), len(fixtures.Users), len(fixtures.Files), path)
}
