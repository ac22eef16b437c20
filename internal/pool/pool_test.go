// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxmemory/engine/internal/store"
)

func newTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestAcquireReturnsConnAndReleaseFreesSlot(t *testing.T) {
	db := newTestDB(t)
	p := New(db, Config{MaxConnections: 1})

	conn, release, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, db, conn.DB())
	assert.Equal(t, 1, p.Stats().InUse)

	release()
	assert.Equal(t, 0, p.Stats().InUse)
}

func TestReleaseIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	p := New(db, Config{MaxConnections: 1})

	_, release, err := p.Acquire(context.Background())
	require.NoError(t, err)

	release()
	assert.NotPanics(t, func() { release() })
	assert.Equal(t, 0, p.Stats().InUse)
}

func TestAcquireBlocksAtCapacityUntilReleased(t *testing.T) {
	db := newTestDB(t)
	p := New(db, Config{MaxConnections: 1})

	_, release1, err := p.Acquire(context.Background())
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		_, release2, err := p.Acquire(context.Background())
		require.NoError(t, err)
		close(acquired)
		release2()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should not have completed while pool is full")
	case <-time.After(30 * time.Millisecond):
	}

	release1()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire did not complete after release")
	}
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	db := newTestDB(t)
	p := New(db, Config{MaxConnections: 1})

	_, _, err := p.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, err = p.Acquire(ctx)
	require.Error(t, err)
}

func TestStatsCountsAcquiredAndReleased(t *testing.T) {
	db := newTestDB(t)
	p := New(db, Config{MaxConnections: 4})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, release, err := p.Acquire(context.Background())
			require.NoError(t, err)
			release()
		}()
	}
	wg.Wait()

	stats := p.Stats()
	assert.Equal(t, int64(4), stats.Acquired)
	assert.Equal(t, int64(4), stats.Released)
	assert.Equal(t, 0, stats.InUse)
}
