// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolver

import (
	"context"
	"errors"

	"github.com/noldarim/navlink/internal/models"
)

var (
	// ErrNotFound is returned by a Backend when the object does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when the session may not read the object.
	ErrUnauthorized = errors.New("unauthorized")
)

// Backend fetches domain objects by id. Implementations must honor ctx
// cancellation and apply their own timeout.
type Backend interface {
	FetchCourse(ctx context.Context, id int64) (*models.Course, error)
	FetchGroup(ctx context.Context, id int64) (*models.Group, error)
	FetchFileMetadata(ctx context.Context, id int64) (*models.FileMeta, error)
}

// Identity exposes the signed-in user. CurrentUser returns nil when signed out.
type Identity interface {
	CurrentUser() *models.User
}

// StaticIdentity is an Identity backed by a fixed user.
type StaticIdentity struct {
	User *models.User
}

func (s StaticIdentity) CurrentUser() *models.User {
	return s.User
}
