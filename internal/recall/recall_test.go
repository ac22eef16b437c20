// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package recall

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxmemory/engine/internal/model"
	"github.com/ctxmemory/engine/internal/store"
)

func newTestRecaller(t *testing.T) (*Recaller, store.Persistence) {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s := store.NewBadgerStore(db)
	return New(s), s
}

func saveMemory(t *testing.T, s store.Persistence, m *model.Memory) {
	t.Helper()
	require.NoError(t, s.SaveMemory(context.Background(), m))
}

func TestSemanticScoreZeroWhenNoTokenMatches(t *testing.T) {
	m := &model.Memory{Content: "the user likes coffee", Gist: "coffee preference"}
	assert.Equal(t, 0.0, semanticScore("golang testing", m))
}

func TestSemanticScoreMonotonicInCoverage(t *testing.T) {
	m := &model.Memory{Content: "go testing frameworks are essential for quality"}
	partial := semanticScore("go banana", m)
	full := semanticScore("go testing quality", m)
	assert.Greater(t, full, partial)
	assert.Greater(t, partial, 0.0)
}

func TestTemporalTierBoundaries(t *testing.T) {
	assert.Equal(t, 1.0, temporalTier(30*time.Minute))
	assert.Equal(t, 0.9, temporalTier(12*time.Hour))
	assert.Equal(t, 0.7, temporalTier(3*24*time.Hour))
	assert.Equal(t, 0.5, temporalTier(15*24*time.Hour))
	assert.Equal(t, 0.3, temporalTier(60*24*time.Hour))
}

func TestHybridSearchFusesThreePaths(t *testing.T) {
	r, s := newTestRecaller(t)
	ctx := context.Background()
	now := time.Now().UTC()

	saveMemory(t, s, &model.Memory{
		ID: "m1", TenantID: "t1", UserID: "u1", MemoryType: model.MemorySemantic,
		Content: "The user prefers Go and writes unit tests often.", Gist: "Go testing preference",
		Topics: []string{"go", "testing"}, Importance: 0.8, Status: model.MemoryActive,
		CreatedAt: now.Add(-30 * time.Minute),
	})
	saveMemory(t, s, &model.Memory{
		ID: "m2", TenantID: "t1", UserID: "u1", MemoryType: model.MemoryEpisodic,
		Content: "The user went hiking over the weekend.", Gist: "hiking trip",
		Topics: []string{"hiking"}, Importance: 0.4, Status: model.MemoryActive,
		CreatedAt: now.Add(-60 * 24 * time.Hour),
	})

	results, err := r.HybridSearch(ctx, "t1", "u1", "go testing", nil, Options{Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "m1", results[0].Memory.ID)
	assert.Contains(t, results[0].MatchReasons, "semantic match")
}

func TestHybridSearchFiltersByMinImportance(t *testing.T) {
	r, s := newTestRecaller(t)
	ctx := context.Background()
	now := time.Now().UTC()

	saveMemory(t, s, &model.Memory{
		ID: "low", TenantID: "t1", UserID: "u1", MemoryType: model.MemoryEpisodic,
		Content: "low importance note", Importance: 0.1, Status: model.MemoryActive, CreatedAt: now,
	})

	threshold := 0.5
	results, err := r.HybridSearch(ctx, "t1", "u1", "note", nil, Options{MinImportance: &threshold, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
}

// TestHybridSearchCachesRepeatedQuery exercises the C12 cache wiring: a
// memory saved after the first call must not appear in a second, identical
// call until the cache entry expires, proving HybridSearch actually served
// the second call from cache instead of re-querying the store.
func TestHybridSearchCachesRepeatedQuery(t *testing.T) {
	r, s := newTestRecaller(t)
	ctx := context.Background()
	now := time.Now().UTC()

	saveMemory(t, s, &model.Memory{
		ID: "m1", TenantID: "t1", UserID: "u1", MemoryType: model.MemorySemantic,
		Content: "release notes for go testing", Importance: 0.8, Status: model.MemoryActive, CreatedAt: now,
	})

	first, err := r.HybridSearch(ctx, "t1", "u1", "go testing", nil, Options{Limit: 10})
	require.NoError(t, err)
	require.Len(t, first, 1)

	saveMemory(t, s, &model.Memory{
		ID: "m2", TenantID: "t1", UserID: "u1", MemoryType: model.MemorySemantic,
		Content: "another note about go testing", Importance: 0.8, Status: model.MemoryActive, CreatedAt: now,
	})

	second, err := r.HybridSearch(ctx, "t1", "u1", "go testing", nil, Options{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, second, 1, "identical query within the TTL must be served from cache, ignoring the newly saved memory")
}

func TestGetRecentMemoriesSortsDescending(t *testing.T) {
	r, s := newTestRecaller(t)
	ctx := context.Background()
	now := time.Now().UTC()

	saveMemory(t, s, &model.Memory{ID: "old", TenantID: "t1", UserID: "u1", CreatedAt: now.Add(-time.Hour), Status: model.MemoryActive})
	saveMemory(t, s, &model.Memory{ID: "new", TenantID: "t1", UserID: "u1", CreatedAt: now, Status: model.MemoryActive})

	recent, err := r.GetRecentMemories(ctx, "t1", "u1", 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "new", recent[0].ID)
}
