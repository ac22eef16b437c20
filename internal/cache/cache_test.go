// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetComputesOnMissAndCachesOnHit(t *testing.T) {
	c := New[string, int](DefaultOptions())
	var calls int64

	compute := func(ctx context.Context) (int, error) {
		atomic.AddInt64(&calls, 1)
		return 42, nil
	}

	v, err := c.Get(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = c.Get(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestGetDeduplicatesConcurrentMisses(t *testing.T) {
	c := New[string, int](DefaultOptions())
	var calls int64
	release := make(chan struct{})

	compute := func(ctx context.Context) (int, error) {
		atomic.AddInt64(&calls, 1)
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			v, err := c.Get(context.Background(), "shared", compute)
			require.NoError(t, err)
			results[idx] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
	for _, v := range results {
		assert.Equal(t, 7, v)
	}
}

func TestGetPropagatesComputeError(t *testing.T) {
	c := New[string, int](DefaultOptions())
	wantErr := errors.New("boom")

	_, err := c.Get(context.Background(), "k", func(ctx context.Context) (int, error) {
		return 0, wantErr
	})
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 0, c.Len())
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	c := New[string, int](Options{MaxSize: 10, TTL: 10 * time.Millisecond})
	c.Set("k", 1)

	v, ok := c.peek("k")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.peek("k")
	assert.False(t, ok)
}

func TestEvictionRemovesExpiredBeforeHeadSample(t *testing.T) {
	c := New[string, int](Options{MaxSize: 5, TTL: 5 * time.Millisecond})
	c.Set("expired", 1)
	time.Sleep(10 * time.Millisecond)

	for i := 0; i < 5; i++ {
		c.Set(string(rune('a'+i)), i)
	}

	_, ok := c.peek("expired")
	assert.False(t, ok, "expired entry should have been evicted first")
}

func TestStatsTracksHitsAndMisses(t *testing.T) {
	c := New[string, int](DefaultOptions())
	_, _ = c.Get(context.Background(), "k", func(ctx context.Context) (int, error) { return 1, nil })
	_, _ = c.Get(context.Background(), "k", func(ctx context.Context) (int, error) { return 1, nil })

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Hits)
	assert.InDelta(t, 50.0, stats.HitRate(), 1e-9)
}

func TestHotKeyTrackerTracksTopAccessedKeys(t *testing.T) {
	tr := NewHotKeyTracker(10)
	for i := 0; i < 5; i++ {
		tr.RecordAccess("hot")
	}
	tr.RecordAccess("cold")

	top := tr.Top(1)
	require.Len(t, top, 1)
	assert.Equal(t, "hot", top[0])
}

func TestHotKeyTrackerEvictsLeastAccessedAtCapacity(t *testing.T) {
	tr := NewHotKeyTracker(2)
	tr.RecordAccess("a")
	tr.RecordAccess("a")
	tr.RecordAccess("b")
	tr.RecordAccess("c") // evicts least accessed tracked key

	top := tr.Top(10)
	assert.Contains(t, top, "a")
	assert.NotContains(t, top, "b")
}

func TestInvalidateRemovesEntry(t *testing.T) {
	c := New[string, int](DefaultOptions())
	c.Set("k", 1)
	c.Invalidate("k")
	_, ok := c.peek("k")
	assert.False(t, ok)
}
