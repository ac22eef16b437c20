// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package memorybuilder

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxmemory/engine/internal/dehydrate"
	"github.com/ctxmemory/engine/internal/graph"
	"github.com/ctxmemory/engine/internal/model"
	"github.com/ctxmemory/engine/internal/store"
)

func newTestBuilder(t *testing.T) (*Builder, store.Persistence) {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s := store.NewBadgerStore(db)
	summarizer := dehydrate.NewRuleBased(200, 5, 5)
	g := graph.New(s)
	return New(s, summarizer, g, nil), s
}

func TestComputeImportanceBaseAndWordCountTiers(t *testing.T) {
	short := ComputeImportance("hi", model.MemoryEpisodic)
	assert.InDelta(t, 0.4, short, 1e-9) // base 0.5 - 0.10 (word count < 10)

	long := make([]byte, 0, 600)
	for i := 0; i < 110; i++ {
		long = append(long, []byte("word ")...)
	}
	score := ComputeImportance(string(long), model.MemoryEpisodic)
	assert.InDelta(t, 0.75, score, 1e-9) // 0.5 + 0.15 (>100 words) + 0.10 (>500 chars)

	mid := "remember " + strings.Repeat("filler ", 39) // 40 words, in the (10,50] no-tier band
	midScore := ComputeImportance(mid, model.MemoryEpisodic)
	assert.InDelta(t, 0.65, midScore, 1e-9) // 0.5 (no tier) + 0.15 high keyword

	upperMid := "remember " + strings.Repeat("filler ", 59) // 60 words, in the (50,100] +0.10 band
	upperMidScore := ComputeImportance(upperMid, model.MemoryEpisodic)
	assert.InDelta(t, 0.75, upperMidScore, 1e-9) // 0.5 + 0.10 (>50 words) + 0.15 high keyword
}

func TestComputeImportanceKeywordsAndTypeWeightAndQuestionPenalty(t *testing.T) {
	content := "remember " + strings.Repeat("filler ", 14) // 15 words, no tier adjustment
	score := ComputeImportance(content, model.MemoryProfile)
	// base 0.5, word count 15 (no tier), +0.15 high keyword, +0.15 profile type
	assert.InDelta(t, 0.8, score, 1e-9)

	question := ComputeImportance("Is this important?", model.MemoryEpisodic)
	// base 0.5, word count 3 (<10, -0.10), +0.15 high keyword, -0.05 trailing-"?" question
	assert.InDelta(t, 0.5, question, 1e-9)

	leading := ComputeImportance("?This starts with a question mark and has enough words to clear the tier", model.MemoryEpisodic)
	// word count 14 (no tier), leading '?' counts as a question even without a trailing one
	assert.InDelta(t, 0.45, leading, 1e-9) // 0.5 - 0.05 question

	howTo := ComputeImportance("How to remember where I left my keys without writing it down anywhere", model.MemoryEpisodic)
	// word count 13 (no tier), +0.15 high keyword ("remember"), -0.05 "how to" phrase
	assert.InDelta(t, 0.6, howTo, 1e-9)
}

func TestComputeImportanceClampsToUnitInterval(t *testing.T) {
	score := ComputeImportance("remember this critical essential urgent password secret allergy preference thing that matters a lot to me always", model.MemoryProfile)
	assert.LessOrEqual(t, score, 1.0)
	assert.GreaterOrEqual(t, score, 0.0)
}

func TestMemorySimilarityWeightsAndCardinality(t *testing.T) {
	a := &model.Memory{
		Topics:     []string{"go", "testing"},
		Tags:       []string{"backend"},
		MemoryType: model.MemorySemantic,
		Source:     model.SourceConversation,
	}
	b := &model.Memory{
		Topics:     []string{"go", "testing", "databases"},
		Tags:       []string{"backend"},
		MemoryType: model.MemorySemantic,
		Source:     model.SourceConversation,
	}
	// topic overlap = 2/2 = 1.0 (using a's cardinality), tag overlap = 1/1 = 1.0
	sim := MemorySimilarity(a, b)
	assert.InDelta(t, 1.0, sim, 1e-9)
}

func TestMemorySimilarityEmptyTopicsContributesZero(t *testing.T) {
	a := &model.Memory{MemoryType: model.MemoryEpisodic, Source: model.SourceConversation}
	b := &model.Memory{MemoryType: model.MemoryEpisodic, Source: model.SourceConversation}
	sim := MemorySimilarity(a, b)
	assert.InDelta(t, 0.3, sim, 1e-9) // 0.2 same type + 0.1 same source, no topics/tags
}

func TestBuildMemoryPersistsAndScoresImportance(t *testing.T) {
	b, s := newTestBuilder(t)
	ctx := context.Background()

	mem, err := b.BuildMemory(ctx, Input{
		TenantID:   "t1",
		UserID:     "u1",
		MemoryType: model.MemoryEpisodic,
		Content:    "The user prefers dark mode and always uses vim.",
		Source:     model.SourceConversation,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, mem.ID)
	assert.NotEmpty(t, mem.Gist)
	assert.Equal(t, model.MemoryActive, mem.Status)

	stored, err := s.GetMemory(ctx, mem.ID)
	require.NoError(t, err)
	assert.Equal(t, mem.Content, stored.Content)
}

func TestBuildMemoryRejectsEmptyContent(t *testing.T) {
	b, _ := newTestBuilder(t)
	_, err := b.BuildMemory(context.Background(), Input{TenantID: "t1", UserID: "u1", Content: "   "})
	assert.Error(t, err)
}

func TestBuildMemoryExtractsEntitiesBestEffort(t *testing.T) {
	b, s := newTestBuilder(t)
	ctx := context.Background()

	_, err := b.BuildMemory(ctx, Input{
		TenantID:   "t1",
		UserID:     "u1",
		MemoryType: model.MemoryEpisodic,
		Content:    "Backend Service uses Redis Cache for session storage.",
		Source:     model.SourceConversation,
	})
	require.NoError(t, err)

	entities, err := s.ListEntities(ctx, store.Filter{TenantID: "t1"})
	require.NoError(t, err)
	assert.NotEmpty(t, entities)
}

func TestBuildMemoryLinksRelatedMemoriesAboveThreshold(t *testing.T) {
	b, s := newTestBuilder(t)
	ctx := context.Background()

	first, err := b.BuildMemory(ctx, Input{
		TenantID:   "t1",
		UserID:     "u1",
		MemoryType: model.MemorySemantic,
		Content:    "The user enjoys working on Go microservices and testing frameworks important to the team.",
		Source:     model.SourceConversation,
	})
	require.NoError(t, err)
	first.Topics = []string{"go", "testing"}
	require.NoError(t, s.SaveMemory(ctx, first))

	second, err := b.BuildMemory(ctx, Input{
		TenantID:   "t1",
		UserID:     "u1",
		MemoryType: model.MemorySemantic,
		Content:    "The user also enjoys Go tooling and automated testing important to the team.",
		Source:     model.SourceConversation,
	})
	require.NoError(t, err)
	second.Topics = []string{"go", "testing"}
	require.NoError(t, s.SaveMemory(ctx, second))

	third, err := b.BuildMemory(ctx, Input{
		TenantID:   "t1",
		UserID:     "u1",
		MemoryType: model.MemoryProcedural,
		Content:    "Completely unrelated content about gardening.",
		Source:     model.SourceExecution,
	})
	require.NoError(t, err)

	assert.Contains(t, second.RelatedIDs, first.ID)
	assert.NotContains(t, third.RelatedIDs, first.ID)
}
