// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pattern

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxmemory/engine/internal/model"
	"github.com/ctxmemory/engine/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, store.Persistence) {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s := store.NewBadgerStore(db)
	return New(s), s
}

func TestRecordOutcomeUpdatesOnlineMeanAndCounters(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	p, err := e.CreatePattern(ctx, &model.Pattern{TenantID: "t1", Trigger: "deploy rollback"})
	require.NoError(t, err)

	p, err = e.RecordOutcome(ctx, p.ID, OutcomeInput{Outcome: 1.0})
	require.NoError(t, err)
	assert.Equal(t, 1, p.UsageCount)
	assert.Equal(t, 1, p.SuccessCount)
	assert.InDelta(t, 1.0, p.AvgOutcome, 1e-9)

	p, err = e.RecordOutcome(ctx, p.ID, OutcomeInput{Outcome: -1.0})
	require.NoError(t, err)
	assert.Equal(t, 2, p.UsageCount)
	assert.Equal(t, 1, p.FailureCount)
	assert.InDelta(t, 0.0, p.AvgOutcome, 1e-9) // (1*1 + -1) / 2 = 0

	p, err = e.RecordOutcome(ctx, p.ID, OutcomeInput{Outcome: 0.5})
	require.NoError(t, err)
	assert.InDelta(t, (0.0*2+0.5)/3.0, p.AvgOutcome, 1e-9)
}

func TestMatchPatternsOrdersByUsageCountDescending(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	low, err := e.CreatePattern(ctx, &model.Pattern{TenantID: "t1", Trigger: "database migration error", UsageCount: 2})
	require.NoError(t, err)
	high, err := e.CreatePattern(ctx, &model.Pattern{TenantID: "t1", Trigger: "database connection timeout", UsageCount: 9})
	require.NoError(t, err)
	_, err = e.CreatePattern(ctx, &model.Pattern{TenantID: "t1", Trigger: "unrelated topic", UsageCount: 100})
	require.NoError(t, err)

	matched, err := e.MatchPatterns(ctx, "t1", "database is throwing an error", 10)
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, high.ID, matched[0].ID)
	assert.Equal(t, low.ID, matched[1].ID)
}

func TestGetRecommendationsScoresAndFiltersNonPositive(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	now := time.Now().UTC()

	relevant, err := e.CreatePattern(ctx, &model.Pattern{
		TenantID: "t1", Trigger: "database timeout retry",
		SuccessCount: 9, FailureCount: 1, UsageCount: 20, LastUsed: &now,
	})
	require.NoError(t, err)

	_, err = e.CreatePattern(ctx, &model.Pattern{
		TenantID: "t1", Trigger: "completely unrelated gardening tips",
	})
	require.NoError(t, err)

	recs, err := e.GetRecommendations(ctx, "t1", RecommendationInput{
		Context: "We are seeing a database timeout during retries.",
	}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	assert.Equal(t, relevant.ID, recs[0].ID)
}

func TestAutoGenerateFromMemoriesDedupesAndRespectsThreshold(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	memories := []*model.Memory{
		{TenantID: "t1", Gist: "database query error", Content: "The database query timed out with an error code.", Importance: 0.8},
		{TenantID: "t1", Gist: "database query error", Content: "The database query timed out with an error code.", Importance: 0.9}, // duplicate
		{TenantID: "t1", Gist: "low importance", Content: "casual chat about weather", Importance: 0.1},
	}

	created, err := e.AutoGenerateFromMemories(ctx, "t1", memories, 0.3, nil)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, model.PatternCommonError, created[0].PatternType)
}
