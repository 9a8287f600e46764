// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store is the gorm-backed resolution backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/noldarim/navlink/internal/config"
	"github.com/noldarim/navlink/internal/logger"
	"github.com/noldarim/navlink/internal/models"
	"github.com/noldarim/navlink/internal/resolver"
	"github.com/rs/zerolog"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetStoreLogger()
		log = &l
	})
	return log
}

// Store wraps the GORM database connection and serves lookups by id.
type Store struct {
	db           *gorm.DB
	fetchTimeout time.Duration
}

// Open connects to the configured database.
func Open(cfg *config.BackendConfig) (*Store, error) {
	var dialector gorm.Dialector

	switch cfg.Database.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.GetDSN())
	case "postgres":
		dialector = postgres.Open(cfg.Database.GetDSN())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	getLog().Info().Str("driver", cfg.Database.Driver).Msg("Connected to database")
	return &Store{db: db, fetchTimeout: cfg.FetchTimeout}, nil
}

// AutoMigrate creates or updates the tables.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(
		&models.Course{},
		&models.Group{},
		&models.User{},
		&models.FileMeta{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// ValidateSchema checks that every table exists.
func (s *Store) ValidateSchema() error {
	var missing []string
	for name, model := range map[string]any{
		"courses": &models.Course{},
		"groups":  &models.Group{},
		"users":   &models.User{},
		"files":   &models.FileMeta{},
	} {
		if !s.db.Migrator().HasTable(model) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing tables: %v (run 'navlink-migrate' to create them)", missing)
	}
	return nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) FetchCourse(ctx context.Context, id int64) (*models.Course, error) {
	var c models.Course
	if err := s.first(ctx, &c, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) FetchGroup(ctx context.Context, id int64) (*models.Group, error) {
	var g models.Group
	if err := s.first(ctx, &g, id); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) FetchFileMetadata(ctx context.Context, id int64) (*models.FileMeta, error) {
	var f models.FileMeta
	if err := s.first(ctx, &f, id); err != nil {
		return nil, err
	}
	return &f, nil
}

// FetchUser loads a user by id.
func (s *Store) FetchUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	if err := s.first(ctx, &u, id); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) first(ctx context.Context, dest any, id int64) error {
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	err := s.db.WithContext(ctx).First(dest, id).Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%T %d: %w", dest, id, resolver.ErrNotFound)
	default:
		getLog().Warn().Err(err).Int64("id", id).Msgf("Lookup of %T failed", dest)
		return fmt.Errorf("failed to load %T %d: %w", dest, id, err)
	}
}

// Identity is the signed-in user of a session, loaded once on first use.
type Identity struct {
	store    *Store
	userID   int64
	fallback string

	once sync.Once
	user *models.User
}

// Identity returns the resolver identity for session. A session without a
// user id is signed out.
func (s *Store) Identity(session config.SessionConfig) *Identity {
	return &Identity{store: s, userID: session.UserID, fallback: session.UserName}
}

func (i *Identity) CurrentUser() *models.User {
	i.once.Do(func() {
		if i.userID == 0 {
			return
		}
		u, err := i.store.FetchUser(context.Background(), i.userID)
		if err == nil {
			i.user = u
			return
		}
		getLog().Warn().Err(err).Int64("user_id", i.userID).Msg("Session user not in store, using configured name")
		i.user = &models.User{ID: i.userID, Name: i.fallback, ShortName: i.fallback}
	})
	return i.user
}
