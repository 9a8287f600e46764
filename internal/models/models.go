// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package models holds the domain objects a route can be bound to.
package models

import (
	"time"
)

// Course represents the GORM model for courses
type Course struct {
	ID         int64     `gorm:"primaryKey;autoIncrement:false" json:"id" yaml:"id"`
	Name       string    `gorm:"not null;type:text" json:"name" yaml:"name"`
	CourseCode string    `gorm:"type:text" json:"course_code" yaml:"course_code"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at" yaml:"-"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at" yaml:"-"`
}

// Group represents the GORM model for groups. CourseID is zero for
// account-level groups.
type Group struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id" yaml:"id"`
	Name      string    `gorm:"not null;type:text" json:"name" yaml:"name"`
	CourseID  int64     `gorm:"index" json:"course_id,omitempty" yaml:"course_id,omitempty"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at" yaml:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at" yaml:"-"`
}

// User represents the GORM model for users
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id" yaml:"id"`
	Name      string    `gorm:"not null;type:text" json:"name" yaml:"name"`
	ShortName string    `gorm:"type:text" json:"short_name" yaml:"short_name"`
	Email     string    `gorm:"type:text" json:"email,omitempty" yaml:"email,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at" yaml:"-"`
}

// FileMeta represents the GORM model for file metadata
type FileMeta struct {
	ID            int64     `gorm:"primaryKey;autoIncrement:false" json:"id" yaml:"id"`
	DisplayName   string    `gorm:"type:text" json:"display_name" yaml:"display_name"`
	ContentType   string    `gorm:"type:text" json:"content_type" yaml:"content_type"`
	URL           string    `gorm:"type:text" json:"url" yaml:"url"`
	Size          int64     `json:"size" yaml:"size"`
	CourseID      int64     `gorm:"index" json:"course_id,omitempty" yaml:"course_id,omitempty"`
	Locked        bool      `json:"locked" yaml:"locked"`
	LockedForUser bool      `json:"locked_for_user" yaml:"locked_for_user"`
	HiddenForUser bool      `json:"hidden_for_user" yaml:"hidden_for_user"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at" yaml:"-"`
}

// TableName keeps the table name stable regardless of struct naming.
func (FileMeta) TableName() string {
	return "files"
}

// IsRestricted reports whether the file may not be opened by the current user.
func (f *FileMeta) IsRestricted() bool {
	return f.Locked || f.LockedForUser || f.HiddenForUser
}
