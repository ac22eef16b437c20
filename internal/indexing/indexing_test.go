// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package indexing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxmemory/engine/internal/apperrors"
	"github.com/ctxmemory/engine/internal/embedding"
	"github.com/ctxmemory/engine/internal/fulltext"
	"github.com/ctxmemory/engine/internal/model"
	"github.com/ctxmemory/engine/internal/store"
	"github.com/ctxmemory/engine/internal/vectorindex"
)

const testDimension = 16

func newTestCoordinator(t *testing.T) (*Coordinator, store.Persistence) {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s := store.NewBadgerStore(db)
	v := vectorindex.New(testDimension)
	f := fulltext.New()
	e := embedding.NewSimple(testDimension)
	return New(s, v, f, e), s
}

func TestTruncateGist(t *testing.T) {
	short := "hello world"
	assert.Equal(t, short, truncateGist(short))

	long := ""
	for i := 0; i < 150; i++ {
		long += "a"
	}
	truncated := truncateGist(long)
	assert.Equal(t, maxGistLength+1, len([]rune(truncated)))
}

func TestIndexTurnSucceedsAndPersistsRecord(t *testing.T) {
	coord, s := newTestCoordinator(t)
	ctx := context.Background()

	turn := &model.Turn{
		ID:         "t1",
		SessionID:  "s1",
		TurnNumber: 1,
		RawContent: "the quick brown fox jumps over the lazy dog",
	}

	record, err := coord.IndexTurn(ctx, turn)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "t1", record.TurnID)
	assert.Equal(t, "s1", record.SessionID)
	assert.Equal(t, "vec_t1", record.VectorID)
	assert.Equal(t, turn.RawContent, record.Gist)

	stored, err := s.GetIndexRecord(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, record.TurnID, stored.TurnID)
}

func TestIndexTurnTruncatesLongRawContentToGist(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	long := ""
	for i := 0; i < 150; i++ {
		long += "x"
	}
	turn := &model.Turn{ID: "t2", SessionID: "s1", TurnNumber: 1, RawContent: long}

	record, err := coord.IndexTurn(ctx, turn)
	require.NoError(t, err)
	assert.Equal(t, maxGistLength+1, len([]rune(record.Gist)))
}

func TestIndexTurnPrefersDehydratedGistAndEmbedding(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	turn := &model.Turn{
		ID:         "t3",
		SessionID:  "s1",
		TurnNumber: 1,
		RawContent: "irrelevant raw content",
		Dehydrated: &model.Dehydrated{
			Gist:      "precomputed gist",
			Topics:    []string{"topic-a"},
			Tags:      []string{"tag-a"},
			Embedding: make([]float32, testDimension),
		},
	}
	turn.Dehydrated.Embedding[0] = 1

	record, err := coord.IndexTurn(ctx, turn)
	require.NoError(t, err)
	assert.Equal(t, "precomputed gist", record.Gist)
	assert.Equal(t, []string{"topic-a"}, record.Topics)
	assert.Equal(t, []string{"tag-a"}, record.Tags)
}

func TestIndexTurnRejectsDoubleIndex(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()
	turn := &model.Turn{ID: "t4", SessionID: "s1", TurnNumber: 1, RawContent: "content"}

	_, err := coord.IndexTurn(ctx, turn)
	require.NoError(t, err)

	_, err = coord.IndexTurn(ctx, turn)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyIndexed))
}

func TestDeleteIndexRemovesBothEntries(t *testing.T) {
	coord, s := newTestCoordinator(t)
	ctx := context.Background()
	turn := &model.Turn{ID: "t5", SessionID: "s1", TurnNumber: 1, RawContent: "content to delete"}

	_, err := coord.IndexTurn(ctx, turn)
	require.NoError(t, err)

	require.NoError(t, coord.DeleteIndex(ctx, "t5"))

	_, err = s.GetIndexRecord(ctx, "t5")
	assert.Error(t, err)

	// re-indexing after deletion must succeed
	_, err = coord.IndexTurn(ctx, turn)
	assert.NoError(t, err)
}

func TestFusedSearchOrdersBySharedRank(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	for i, content := range []string{"alpha beta gamma", "beta gamma delta", "gamma delta epsilon"} {
		turn := &model.Turn{
			ID:         string(rune('a' + i)),
			SessionID:  "s1",
			TurnNumber: i + 1,
			RawContent: content,
		}
		_, err := coord.IndexTurn(ctx, turn)
		require.NoError(t, err)
	}

	query, err := embedding.NewSimple(testDimension).Embed(ctx, "gamma")
	require.NoError(t, err)

	fused, err := coord.FusedSearch(ctx, query, "gamma", "s1", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, fused)
}

// TestFusedSearchSharesRanksAcrossPrefixedIndexes guards against the
// vec_/doc_ id-prefix mismatch between the vector and full-text indexes:
// a turn present in both result sets must be keyed the same way so RRF
// actually fuses (and boosts) it, rather than treating it as two unrelated
// ids that never combine.
func TestFusedSearchSharesRanksAcrossPrefixedIndexes(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	both := &model.Turn{ID: "both", SessionID: "s1", TurnNumber: 1, RawContent: "rust async programming with tokio"}
	_, err := coord.IndexTurn(ctx, both)
	require.NoError(t, err)

	// vecOnly shares no tokens with the full-text query "tokio", so the
	// full-text index (which requires every query token present) never
	// returns it; the vector index returns every session doc up to k
	// regardless of similarity, so it still appears there.
	vecOnly := &model.Turn{ID: "vec-only", SessionID: "s1", TurnNumber: 2, RawContent: "unrelated gardening notes"}
	_, err = coord.IndexTurn(ctx, vecOnly)
	require.NoError(t, err)

	embedder := embedding.NewSimple(testDimension)
	query, err := embedder.Embed(ctx, "rust async programming with tokio")
	require.NoError(t, err)

	matches, err := coord.FusedSearch(ctx, query, "tokio", "s1", 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	byID := make(map[string]TurnMatch, len(matches))
	for _, m := range matches {
		byID[m.TurnID] = m
	}

	bothMatch, ok := byID["both"]
	require.True(t, ok, "turn hit by both the vector and full-text search must appear under its bare turn id")
	assert.ElementsMatch(t, []string{"vector", "full_text"}, bothMatch.MatchReasons)

	vecOnlyMatch, ok := byID["vec-only"]
	require.True(t, ok)
	assert.Equal(t, []string{"vector"}, vecOnlyMatch.MatchReasons)
	assert.Greater(t, bothMatch.Score, vecOnlyMatch.Score, "a turn fused from both sources must outscore one fused from only one")
}
