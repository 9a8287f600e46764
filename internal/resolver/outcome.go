// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolver

import (
	"context"

	"github.com/noldarim/navlink/internal/models"
	"github.com/noldarim/navlink/internal/route"
)

// Status is the terminal state of a resolution job.
type Status string

const (
	StatusResolved   Status = "resolved"
	StatusFailed     Status = "failed"
	StatusBlocked    Status = "blocked"
	StatusSuperseded Status = "superseded"
)

// Failure names what could not be resolved. It selects the user message.
type Failure string

const (
	FailureNone           Failure = ""
	FailureCourseNotFound Failure = "course_not_found"
	FailureGroupNotFound  Failure = "group_not_found"
	FailureUnknownContext Failure = "unknown_context"
	FailureFileNotFound   Failure = "file_not_found"
)

// Outcome is delivered once per job.
//
// Route is the route to present when Status is StatusResolved. It may differ
// in kind from the requested route when a file lookup fell back to the file
// list. File is set for FILE routes whose metadata was fetched.
type Outcome struct {
	Seq      int64
	Route    route.Route
	Status   Status
	Failure  Failure
	Err      error
	File     *models.FileMeta
	Download bool
}

// Job is one resolution attempt. The zero value is not usable.
type Job struct {
	seq    int64
	route  route.Route
	cancel context.CancelFunc
	done   chan Outcome
}

func newJob(seq int64, r route.Route, cancel context.CancelFunc) *Job {
	return &Job{seq: seq, route: r, cancel: cancel, done: make(chan Outcome, 1)}
}

func (j *Job) Seq() int64 {
	return j.seq
}

func (j *Job) Route() route.Route {
	return j.route
}

// Done delivers exactly one outcome and is then closed.
func (j *Job) Done() <-chan Outcome {
	return j.done
}

// Wait blocks until the outcome is available or ctx ends.
func (j *Job) Wait(ctx context.Context) (Outcome, error) {
	select {
	case o := <-j.done:
		return o, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (j *Job) finish(o Outcome) {
	o.Seq = j.seq
	j.done <- o
	close(j.done)
	if j.cancel != nil {
		j.cancel()
	}
}
