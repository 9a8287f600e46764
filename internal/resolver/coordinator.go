// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package resolver turns routes carrying context references into routes
// carrying fetched domain objects, one job at a time.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/noldarim/navlink/internal/logger"
	"github.com/noldarim/navlink/internal/models"
	"github.com/noldarim/navlink/internal/route"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once

	meter = otel.Meter("navlink.resolver")

	instrumentsOnce sync.Once
	jobCounter      metric.Int64Counter
	jobDuration     metric.Float64Histogram
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetResolverLogger()
		log = &l
	})
	return log
}

func instruments() (metric.Int64Counter, metric.Float64Histogram) {
	instrumentsOnce.Do(func() {
		var err error
		jobCounter, err = meter.Int64Counter("navlink.resolver.jobs",
			metric.WithDescription("Resolution jobs by terminal status"))
		if err != nil {
			getLog().Warn().Err(err).Msg("Failed to create job counter")
		}
		jobDuration, err = meter.Float64Histogram("navlink.resolver.job_duration",
			metric.WithDescription("Resolution job latency"),
			metric.WithUnit("ms"))
		if err != nil {
			getLog().Warn().Err(err).Msg("Failed to create job histogram")
		}
	})
	return jobCounter, jobDuration
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLoading registers the loading affordance callback. It is invoked with
// the coordinator lock held and must not block or call back into the
// coordinator.
func WithLoading(fn func(visible bool)) Option {
	return func(c *Coordinator) {
		c.onLoading = fn
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Coordinator) {
		c.tracer = t
	}
}

// Coordinator runs at most one resolution job at a time. Starting a job
// cancels the previous one, whose outcome is then reported as superseded.
type Coordinator struct {
	backend   Backend
	identity  Identity
	tracer    trace.Tracer
	onLoading func(bool)

	seq atomic.Int64

	mu      sync.Mutex
	active  *Job
	loading bool
}

// NewCoordinator creates a coordinator. identity may be nil, in which case
// user contexts never resolve.
func NewCoordinator(backend Backend, identity Identity, opts ...Option) *Coordinator {
	c := &Coordinator{
		backend:  backend,
		identity: identity,
		tracer:   otel.Tracer("navlink.resolver"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve starts resolving r and returns its job. Routes that are not FILE
// routes and carry no context, a resolved one or a user ref complete before
// Resolve returns; the call still supersedes any in-flight job.
func (c *Coordinator) Resolve(ctx context.Context, r route.Route) *Job {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq := c.seq.Inc()
	if c.active != nil {
		getLog().Debug().Int64("superseded", c.active.seq).Int64("seq", seq).Msg("Superseding resolution job")
		c.active.cancel()
		c.active = nil
	}

	if !needsJob(r) {
		out := Outcome{Route: r, Status: StatusResolved}
		if r.NeedsResolution() {
			// User contexts come from the identity, no backend round trip.
			out = c.resolve(ctx, r)
		}
		job := newJob(seq, r, nil)
		c.setLoading(false)
		job.finish(out)
		c.record(context.Background(), out.Status, 0)
		return job
	}

	jobCtx, cancel := context.WithCancel(ctx)
	job := newJob(seq, r, cancel)
	c.active = job
	c.setLoading(true)

	getLog().Debug().
		Int64("seq", seq).
		Str("kind", string(r.Kind())).
		Str("context", route.ContextString(r.Context())).
		Msg("Starting resolution job")

	go c.run(jobCtx, job)
	return job
}

// IsCurrent reports whether seq belongs to the most recent Resolve call that
// has not been cancelled.
func (c *Coordinator) IsCurrent(seq int64) bool {
	return c.seq.Load() == seq
}

// Latest returns the most recent sequence number handed out.
func (c *Coordinator) Latest() int64 {
	return c.seq.Load()
}

// Cancel drops the in-flight job, if any. Its outcome is reported as
// superseded.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq.Inc()

	if c.active != nil {
		getLog().Debug().Int64("seq", c.active.seq).Msg("Cancelling resolution job")
		c.active.cancel()
		c.active = nil
	}
	c.setLoading(false)
}

func needsJob(r route.Route) bool {
	if r.Category() == route.CategoryFile {
		return true
	}
	return r.NeedsResolution() && r.Context().Type() != route.ContextUser
}

func (c *Coordinator) run(ctx context.Context, job *Job) {
	start := time.Now()
	r := job.route

	ctx, span := c.tracer.Start(ctx, "resolver.Resolve",
		trace.WithAttributes(
			attribute.Int64("resolver.seq", job.seq),
			attribute.String("route.kind", string(r.Kind())),
			attribute.String("route.category", string(r.Category())),
			attribute.String("route.context", route.ContextString(r.Context())),
		),
	)
	defer span.End()

	out := c.resolve(ctx, r)

	c.mu.Lock()
	if !c.IsCurrent(job.seq) {
		out = Outcome{Route: r, Status: StatusSuperseded, Err: context.Canceled}
	} else {
		if c.active == job {
			c.active = nil
		}
		c.setLoading(false)
	}
	c.mu.Unlock()

	switch out.Status {
	case StatusResolved:
		span.SetStatus(codes.Ok, "")
	case StatusSuperseded:
		span.SetStatus(codes.Error, "superseded")
	default:
		if out.Err != nil {
			span.RecordError(out.Err)
		}
		span.SetStatus(codes.Error, string(out.Failure))
	}
	span.SetAttributes(attribute.String("resolver.status", string(out.Status)))

	c.record(ctx, out.Status, time.Since(start))

	getLog().Debug().
		Int64("seq", job.seq).
		Str("status", string(out.Status)).
		Str("failure", string(out.Failure)).
		Dur("elapsed", time.Since(start)).
		Msg("Resolution job settled")

	job.finish(out)
}

func (c *Coordinator) resolve(ctx context.Context, r route.Route) Outcome {
	var out Outcome

	if r.Category() == route.CategoryFile {
		meta, err := c.fetchFile(ctx, r)
		switch {
		case err == nil && meta.IsRestricted() && !inGroup(r):
			getLog().Info().Int64("file_id", meta.ID).Msg("File is locked or hidden for this user")
			return Outcome{Route: r, Status: StatusBlocked, File: meta}
		case err == nil:
			out.File = meta
			out.Download = isDownload(r)
		case ctx.Err() != nil:
			return Outcome{Route: r, Status: StatusFailed, Failure: FailureFileNotFound, Err: ctx.Err()}
		case r.Context() != nil && r.Context().Type() != route.ContextUser:
			getLog().Info().Err(err).Str("context", route.ContextString(r.Context())).Msg("File lookup failed, falling back to file list")
			r = r.WithKind(route.KindFileList, route.CategoryDefault)
		default:
			return Outcome{Route: r, Status: StatusFailed, Failure: FailureFileNotFound, Err: err}
		}
	}

	if r.NeedsResolution() {
		resolved, failure, err := c.resolveContext(ctx, r.Context())
		if err != nil {
			return Outcome{Route: r, Status: StatusFailed, Failure: failure, Err: err, File: out.File}
		}
		r = r.Bind(resolved)
	}

	out.Route = r
	out.Status = StatusResolved
	return out
}

func (c *Coordinator) fetchFile(ctx context.Context, r route.Route) (*models.FileMeta, error) {
	id, err := fileIDOf(r)
	if err != nil {
		return nil, err
	}
	meta, err := c.backend.FetchFileMetadata(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch file %d: %w", id, err)
	}
	if meta == nil {
		return nil, fmt.Errorf("fetch file %d: %w", id, ErrNotFound)
	}
	return meta, nil
}

func (c *Coordinator) resolveContext(ctx context.Context, ref route.Context) (route.Context, Failure, error) {
	switch ref := ref.(type) {
	case route.CourseRef:
		course, err := c.backend.FetchCourse(ctx, ref.CourseID)
		if err == nil && course == nil {
			err = ErrNotFound
		}
		if err != nil {
			return nil, FailureCourseNotFound, fmt.Errorf("fetch course %d: %w", ref.CourseID, err)
		}
		return route.ResolvedCourse{Course: course}, FailureNone, nil
	case route.GroupRef:
		group, err := c.backend.FetchGroup(ctx, ref.GroupID)
		if err == nil && group == nil {
			err = ErrNotFound
		}
		if err != nil {
			return nil, FailureGroupNotFound, fmt.Errorf("fetch group %d: %w", ref.GroupID, err)
		}
		return route.ResolvedGroup{Group: group}, FailureNone, nil
	case route.UserRef:
		var user *models.User
		if c.identity != nil {
			user = c.identity.CurrentUser()
		}
		if user == nil {
			return nil, FailureUnknownContext, errors.New("no signed-in user")
		}
		if ref.UserID != 0 && ref.UserID != user.ID {
			return nil, FailureUnknownContext, fmt.Errorf("user %d is not the signed-in user", ref.UserID)
		}
		return route.ResolvedUser{User: user}, FailureNone, nil
	default:
		return nil, FailureUnknownContext, fmt.Errorf("unknown context %s", route.ContextString(ref))
	}
}

func (c *Coordinator) setLoading(visible bool) {
	if c.loading == visible {
		return
	}
	c.loading = visible
	if c.onLoading != nil {
		c.onLoading(visible)
	}
}

func (c *Coordinator) record(ctx context.Context, status Status, elapsed time.Duration) {
	counter, hist := instruments()
	attrs := metric.WithAttributes(attribute.String("status", string(status)))
	if counter != nil {
		counter.Add(ctx, 1, attrs)
	}
	if hist != nil {
		hist.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	}
}

func fileIDOf(r route.Route) (int64, error) {
	if _, ok := r.PathParam("fileId"); ok {
		return r.IntPathParam("fileId")
	}
	if v, ok := r.QueryParam("preview"); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("preview parameter: %w", err)
		}
		return id, nil
	}
	return 0, fmt.Errorf("route has no file id: %w", ErrNotFound)
}

func inGroup(r route.Route) bool {
	return r.Context() != nil && r.Context().Type() == route.ContextGroup
}

func isDownload(r route.Route) bool {
	_, verifier := r.QueryParam("verifier")
	_, frd := r.QueryParam("download_frd")
	return verifier && frd
}
