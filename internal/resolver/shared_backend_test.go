// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/noldarim/navlink/internal/models"
	"github.com/noldarim/navlink/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSharedBackend_DedupesConcurrentFetches(t *testing.T) {
	inner := &testutil.MockBackend{}
	release := make(chan time.Time)
	inner.On("FetchCourse", mock.Anything, int64(1)).
		WaitUntil(release).
		Return(testutil.SampleCourse(1), nil).
		Once()

	b := NewSharedBackend(inner, time.Minute)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*models.Course, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = b.FetchCourse(context.Background(), 1)
		}(i)
	}

	// Give every caller time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, int64(1), results[i].ID)
	}
	inner.AssertNumberOfCalls(t, "FetchCourse", 1)
}

func TestSharedBackend_CachesUntilTTL(t *testing.T) {
	inner := &testutil.MockBackend{}
	inner.On("FetchGroup", mock.Anything, int64(2)).Return(testutil.SampleGroup(2), nil).Twice()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b := NewSharedBackend(inner, 30*time.Second)
	b.now = func() time.Time { return now }

	_, err := b.FetchGroup(context.Background(), 2)
	require.NoError(t, err)
	_, err = b.FetchGroup(context.Background(), 2)
	require.NoError(t, err)
	inner.AssertNumberOfCalls(t, "FetchGroup", 1)

	now = now.Add(31 * time.Second)
	_, err = b.FetchGroup(context.Background(), 2)
	require.NoError(t, err)
	inner.AssertNumberOfCalls(t, "FetchGroup", 2)
}

func TestSharedBackend_ErrorsAreNotCached(t *testing.T) {
	inner := &testutil.MockBackend{}
	inner.On("FetchFileMetadata", mock.Anything, int64(7)).Return(nil, ErrNotFound).Once()
	inner.On("FetchFileMetadata", mock.Anything, int64(7)).Return(testutil.SampleFile(7), nil).Once()

	b := NewSharedBackend(inner, time.Minute)

	_, err := b.FetchFileMetadata(context.Background(), 7)
	assert.True(t, errors.Is(err, ErrNotFound))

	f, err := b.FetchFileMetadata(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), f.ID)
}

func TestSharedBackend_ZeroTTLDisablesCache(t *testing.T) {
	inner := &testutil.MockBackend{}
	inner.On("FetchCourse", mock.Anything, int64(3)).Return(testutil.SampleCourse(3), nil)

	b := NewSharedBackend(inner, 0)
	for i := 0; i < 3; i++ {
		_, err := b.FetchCourse(context.Background(), 3)
		require.NoError(t, err)
	}
	inner.AssertNumberOfCalls(t, "FetchCourse", 3)
}

func TestSharedBackend_Invalidate(t *testing.T) {
	inner := &testutil.MockBackend{}
	inner.On("FetchCourse", mock.Anything, int64(3)).Return(testutil.SampleCourse(3), nil)

	b := NewSharedBackend(inner, time.Hour)
	_, _ = b.FetchCourse(context.Background(), 3)
	b.Invalidate()
	_, _ = b.FetchCourse(context.Background(), 3)
	inner.AssertNumberOfCalls(t, "FetchCourse", 2)
}

func TestSharedBackend_CallerCancellation(t *testing.T) {
	inner := &testutil.MockBackend{}
	release := make(chan time.Time)
	inner.On("FetchCourse", mock.Anything, int64(4)).WaitUntil(release).Return(testutil.SampleCourse(4), nil).Once()

	b := NewSharedBackend(inner, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := b.FetchCourse(ctx, 4)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(testutil.DefaultWait):
		t.Fatal("cancelled caller did not return")
	}

	// The detached call still completes and fills the cache.
	close(release)
	assert.Eventually(t, func() bool {
		_, ok := b.lookup("course:4")
		return ok
	}, testutil.DefaultWait, time.Millisecond)
}
