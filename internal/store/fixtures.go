// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"os"

	"github.com/noldarim/navlink/internal/models"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Fixtures is the YAML seed file layout.
type Fixtures struct {
	Courses []models.Course   `yaml:"courses"`
	Groups  []models.Group    `yaml:"groups"`
	Users   []models.User     `yaml:"users"`
	Files   []models.FileMeta `yaml:"files"`
}

// LoadFixtures reads a YAML seed file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes YAML seed data.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return &f, nil
}

// Seed upserts every fixture row in one transaction.
func (s *Store) Seed(ctx context.Context, f *Fixtures) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := tx.Clauses(clause.OnConflict{UpdateAll: true})
		if len(f.Courses) > 0 {
			if err := upsert.Create(&f.Courses).Error; err != nil {
				return fmt.Errorf("courses: %w", err)
			}
		}
		if len(f.Groups) > 0 {
			if err := upsert.Create(&f.Groups).Error; err != nil {
				return fmt.Errorf("groups: %w", err)
			}
		}
		if len(f.Users) > 0 {
			if err := upsert.Create(&f.Users).Error; err != nil {
				return fmt.Errorf("users: %w", err)
			}
		}
		if len(f.Files) > 0 {
			if err := upsert.Create(&f.Files).Error; err != nil {
				return fmt.Errorf("files: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to seed: %w", err)
	}

	getLog().Info().
		Int("courses", len(f.Courses)).
		Int("groups", len(f.Groups)).
		Int("users", len(f.Users)).
		Int("files", len(f.Files)).
		Msg("Seeded fixtures")
	return nil
}
