// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package route

import (
	"fmt"

	"github.com/noldarim/navlink/internal/models"
)

// ContextType tags the domain object a route is scoped to.
type ContextType string

const (
	ContextCourse ContextType = "course"
	ContextGroup  ContextType = "group"
	ContextUser   ContextType = "user"
)

// Context is the bound context of a route. A nil Context means none.
// Implementations are the three *Ref types, which only carry an id, and the
// three Resolved* types, which carry the fetched object.
type Context interface {
	Type() ContextType
	ID() int64
	Resolved() bool
	isContext()
}

type CourseRef struct{ CourseID int64 }

type GroupRef struct{ GroupID int64 }

type UserRef struct{ UserID int64 }

type ResolvedCourse struct{ Course *models.Course }

type ResolvedGroup struct{ Group *models.Group }

type ResolvedUser struct{ User *models.User }

func (CourseRef) Type() ContextType { return ContextCourse }
func (GroupRef) Type() ContextType  { return ContextGroup }
func (UserRef) Type() ContextType   { return ContextUser }

func (r CourseRef) ID() int64 { return r.CourseID }
func (r GroupRef) ID() int64  { return r.GroupID }
func (r UserRef) ID() int64   { return r.UserID }

func (CourseRef) Resolved() bool { return false }
func (GroupRef) Resolved() bool  { return false }
func (UserRef) Resolved() bool   { return false }

func (CourseRef) isContext() {}
func (GroupRef) isContext()  {}
func (UserRef) isContext()   {}

func (ResolvedCourse) Type() ContextType { return ContextCourse }
func (ResolvedGroup) Type() ContextType  { return ContextGroup }
func (ResolvedUser) Type() ContextType   { return ContextUser }

func (r ResolvedCourse) ID() int64 {
	if r.Course == nil {
		return 0
	}
	return r.Course.ID
}

func (r ResolvedGroup) ID() int64 {
	if r.Group == nil {
		return 0
	}
	return r.Group.ID
}

func (r ResolvedUser) ID() int64 {
	if r.User == nil {
		return 0
	}
	return r.User.ID
}

func (ResolvedCourse) Resolved() bool { return true }
func (ResolvedGroup) Resolved() bool  { return true }
func (ResolvedUser) Resolved() bool   { return true }

func (ResolvedCourse) isContext() {}
func (ResolvedGroup) isContext()  {}
func (ResolvedUser) isContext()   {}

// NewRef builds the unresolved reference for a context type.
func NewRef(t ContextType, id int64) (Context, error) {
	switch t {
	case ContextCourse:
		return CourseRef{CourseID: id}, nil
	case ContextGroup:
		return GroupRef{GroupID: id}, nil
	case ContextUser:
		return UserRef{UserID: id}, nil
	default:
		return nil, fmt.Errorf("unknown context type %q", t)
	}
}

// RefOf strips a resolved context down to its reference form.
func RefOf(c Context) Context {
	if c == nil || !c.Resolved() {
		return c
	}
	ref, _ := NewRef(c.Type(), c.ID())
	return ref
}

// ContextString formats a context for logs, "none" when nil.
func ContextString(c Context) string {
	if c == nil {
		return "none"
	}
	state := "ref"
	if c.Resolved() {
		state = "resolved"
	}
	return fmt.Sprintf("%s:%d(%s)", c.Type(), c.ID(), state)
}
