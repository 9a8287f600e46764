// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/noldarim/navlink/internal/models"
	"golang.org/x/sync/singleflight"
)

type cacheEntry struct {
	value   any
	expires time.Time
}

// SharedBackend wraps a Backend so that concurrent fetches of the same
// object share one call, and successful results are reused for a while.
// Errors are never cached.
type SharedBackend struct {
	inner Backend
	ttl   time.Duration
	group singleflight.Group
	now   func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewSharedBackend wraps inner. A ttl of zero disables caching but keeps
// call sharing.
func NewSharedBackend(inner Backend, ttl time.Duration) *SharedBackend {
	return &SharedBackend{
		inner: inner,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[string]cacheEntry),
	}
}

func (b *SharedBackend) FetchCourse(ctx context.Context, id int64) (*models.Course, error) {
	return shared(ctx, b, fmt.Sprintf("course:%d", id), func(ctx context.Context) (*models.Course, error) {
		return b.inner.FetchCourse(ctx, id)
	})
}

func (b *SharedBackend) FetchGroup(ctx context.Context, id int64) (*models.Group, error) {
	return shared(ctx, b, fmt.Sprintf("group:%d", id), func(ctx context.Context) (*models.Group, error) {
		return b.inner.FetchGroup(ctx, id)
	})
}

func (b *SharedBackend) FetchFileMetadata(ctx context.Context, id int64) (*models.FileMeta, error) {
	return shared(ctx, b, fmt.Sprintf("file:%d", id), func(ctx context.Context) (*models.FileMeta, error) {
		return b.inner.FetchFileMetadata(ctx, id)
	})
}

// Invalidate drops every cached object.
func (b *SharedBackend) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.cache)
}

func (b *SharedBackend) lookup(key string) (any, bool) {
	if b.ttl <= 0 {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.cache[key]
	if !ok {
		return nil, false
	}
	if b.now().After(e.expires) {
		delete(b.cache, key)
		return nil, false
	}
	return e.value, true
}

func (b *SharedBackend) store(key string, v any) {
	if b.ttl <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache[key] = cacheEntry{value: v, expires: b.now().Add(b.ttl)}
}

// shared runs fetch once per key among concurrent callers. The shared call
// is detached from the first caller's cancellation so that other waiters
// are not failed by it; each caller still returns early on its own ctx.
func shared[T any](ctx context.Context, b *SharedBackend, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := b.lookup(key); ok {
		getLog().Trace().Str("key", key).Msg("Backend cache hit")
		return v.(T), nil
	}

	ch := b.group.DoChan(key, func() (any, error) {
		v, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		b.store(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			getLog().Trace().Str("key", key).Msg("Backend call shared")
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
