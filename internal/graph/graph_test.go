// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxmemory/engine/internal/model"
	"github.com/ctxmemory/engine/internal/store"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(store.NewBadgerStore(db))
}

func TestExtractEntitiesInfersTypeFromContext(t *testing.T) {
	entities := ExtractEntities("Acme Corp is a company. John Smith works there. He uses Go Tooling software daily.")
	byName := make(map[string]ExtractedEntity)
	for _, e := range entities {
		byName[e.Name] = e
	}

	require.Contains(t, byName, "Acme Corp")
	assert.Equal(t, model.EntityOrganization, byName["Acme Corp"].Type)
}

func TestExtractEntitiesConfidenceClampedAndMentionCounted(t *testing.T) {
	entities := ExtractEntities("Redis Cache is fast. Redis Cache is reliable. Redis Cache scales.")
	require.Len(t, entities, 1)
	assert.Equal(t, 3, entities[0].Mentions)
	assert.InDelta(t, 0.4, entities[0].Confidence(), 1e-9) // 3/10 = 0.3, content-initial +0.1
}

func TestExtractRelationshipsMatchesConnectivePatterns(t *testing.T) {
	rels := ExtractRelationships("Backend Service uses Redis Cache extensively. Frontend App depends on Backend Service.")
	require.Len(t, rels, 2)
	assert.Equal(t, "Backend Service", rels[0].SourceName)
	assert.Equal(t, "Redis Cache", rels[0].TargetName)
	assert.Equal(t, model.RelUses, rels[0].Type)
	assert.Equal(t, model.RelDependsOn, rels[1].Type)
}

func TestCreateEntityAndDiscoverByAlias(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	e, err := m.CreateEntity(ctx, &model.Entity{
		TenantID:   "t1",
		Name:       "Backend Service",
		EntityType: model.EntityProject,
		Aliases:    []string{"backend", "svc"},
	})
	require.NoError(t, err)

	found, err := m.DiscoverEntity(ctx, "t1", "svc", "all")
	require.NoError(t, err)
	assert.Equal(t, e.ID, found.ID)

	_, err = m.DiscoverEntity(ctx, "t1", "nonexistent", "all")
	assert.Error(t, err)
}

func TestMergeEntitiesFollowsSpecAlgorithm(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	target, err := m.CreateEntity(ctx, &model.Entity{
		TenantID:        "t1",
		Name:            "Target Entity",
		EntityType:      model.EntityConcept,
		Confidence:      0.6,
		Aliases:         []string{"t-alias"},
		Properties:      map[string]interface{}{"color": "blue"},
		SourceMemoryIDs: []string{"mem1"},
		Frequency:       3,
	})
	require.NoError(t, err)

	source, err := m.CreateEntity(ctx, &model.Entity{
		TenantID:        "t1",
		Name:            "Source Entity",
		EntityType:      model.EntityConcept,
		Confidence:      0.8,
		Aliases:         []string{"s-alias"},
		Properties:      map[string]interface{}{"color": "red", "size": "large"},
		SourceMemoryIDs: []string{"mem2"},
		Frequency:       5,
	})
	require.NoError(t, err)

	rel, err := m.CreateRelationship(ctx, &model.Relationship{
		TenantID:         "t1",
		SourceEntityID:   source.ID,
		TargetEntityID:   target.ID,
		RelationshipType: model.RelRelatesTo,
		Strength:         0.5,
	})
	require.NoError(t, err)

	merged, err := m.MergeEntities(ctx, target.ID, source.ID)
	require.NoError(t, err)

	assert.Equal(t, target.ID, merged.ID)
	assert.Equal(t, 8, merged.Frequency)
	assert.InDelta(t, 0.7, merged.Confidence, 1e-9)
	assert.ElementsMatch(t, []string{"t-alias", "s-alias", "target entity", "source entity"}, merged.Aliases)
	assert.Equal(t, "blue", merged.Properties["color"]) // target wins on collision
	assert.Equal(t, "large", merged.Properties["size"])
	assert.ElementsMatch(t, []string{"mem1", "mem2"}, merged.SourceMemoryIDs)

	_, err = m.GetEntity(ctx, source.ID)
	assert.Error(t, err)

	_, err = m.GetRelationship(ctx, rel.ID)
	assert.Error(t, err) // old relationship deleted

	remapped, err := m.ListRelationships(ctx, store.Filter{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, remapped, 1)
	assert.Equal(t, target.ID, remapped[0].SourceEntityID)
	assert.Equal(t, target.ID, remapped[0].TargetEntityID)
}

// TestMergeEntitiesSeedsNamesAsAliases exercises spec.md Scenario D: merging
// two differently-cased, empty-alias duplicates must leave both original
// names, lowercased, in the surviving entity's Aliases.
func TestMergeEntitiesSeedsNamesAsAliases(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	e1, err := m.CreateEntity(ctx, &model.Entity{
		TenantID:   "t1",
		Name:       "Rust",
		EntityType: model.EntityConcept,
		Confidence: 0.6,
		Frequency:  3,
	})
	require.NoError(t, err)

	e2, err := m.CreateEntity(ctx, &model.Entity{
		TenantID:   "t1",
		Name:       "rust",
		EntityType: model.EntityConcept,
		Confidence: 0.8,
		Frequency:  5,
	})
	require.NoError(t, err)

	e3, err := m.CreateEntity(ctx, &model.Entity{TenantID: "t1", Name: "Systems Programming", EntityType: model.EntityConcept})
	require.NoError(t, err)
	rel, err := m.CreateRelationship(ctx, &model.Relationship{
		TenantID:         "t1",
		SourceEntityID:   e1.ID,
		TargetEntityID:   e3.ID,
		RelationshipType: model.RelRelatesTo,
		Strength:         0.5,
	})
	require.NoError(t, err)

	merged, err := m.MergeEntities(ctx, e1.ID, e2.ID)
	require.NoError(t, err)

	_, err = m.GetEntity(ctx, e2.ID)
	assert.Error(t, err, "E2 must be gone")
	assert.InDelta(t, 0.7, merged.Confidence, 1e-9)
	assert.Equal(t, 8, merged.Frequency)
	assert.ElementsMatch(t, []string{"rust"}, merged.Aliases)

	remapped, err := m.ListRelationships(ctx, store.Filter{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, remapped, 1)
	assert.Equal(t, rel.ID, remapped[0].ID)
	assert.Equal(t, e1.ID, remapped[0].SourceEntityID)
}

func TestFindSimilarEntitiesScoresAboveThreshold(t *testing.T) {
	candidates := []*model.Entity{
		{ID: "a", Name: "Backend Service", EntityType: model.EntityProject, Aliases: []string{"backend"}},
		{ID: "b", Name: "Completely Unrelated Thing", EntityType: model.EntityConcept},
	}
	results := FindSimilarEntities("Backend Svc", []string{"backend"}, nil, model.EntityProject, candidates)
	require.NotEmpty(t, results)
	assert.Equal(t, "a", results[0].Entity.ID)
	assert.Greater(t, results[0].Score, 0.5)
}

func TestQueryGraphBFSDeterministicOrderingAndShortestPath(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	center, err := m.CreateEntity(ctx, &model.Entity{TenantID: "t1", Name: "Center", EntityType: model.EntityConcept})
	require.NoError(t, err)
	a, err := m.CreateEntity(ctx, &model.Entity{TenantID: "t1", Name: "A", EntityType: model.EntityConcept})
	require.NoError(t, err)
	b, err := m.CreateEntity(ctx, &model.Entity{TenantID: "t1", Name: "B", EntityType: model.EntityConcept})
	require.NoError(t, err)
	c, err := m.CreateEntity(ctx, &model.Entity{TenantID: "t1", Name: "C", EntityType: model.EntityConcept})
	require.NoError(t, err)

	_, err = m.CreateRelationship(ctx, &model.Relationship{TenantID: "t1", SourceEntityID: center.ID, TargetEntityID: a.ID, RelationshipType: model.RelRelatesTo, Strength: 0.9})
	require.NoError(t, err)
	_, err = m.CreateRelationship(ctx, &model.Relationship{TenantID: "t1", SourceEntityID: center.ID, TargetEntityID: b.ID, RelationshipType: model.RelRelatesTo, Strength: 0.8})
	require.NoError(t, err)
	_, err = m.CreateRelationship(ctx, &model.Relationship{TenantID: "t1", SourceEntityID: a.ID, TargetEntityID: c.ID, RelationshipType: model.RelRelatesTo, Strength: 0.5})
	require.NoError(t, err)

	result, err := m.QueryGraph(ctx, "t1", center.ID, QueryOptions{MaxDepth: 2, LimitPerDepth: 10})
	require.NoError(t, err)

	assert.Len(t, result.Entities, 4)
	assert.Contains(t, result.Entities, a.ID)
	assert.Contains(t, result.Entities, b.ID)
	assert.Contains(t, result.Entities, c.ID)

	pathToC := result.Paths[c.ID]
	assert.Equal(t, []string{center.ID, a.ID, c.ID}, pathToC.EntityIDs)
	assert.InDelta(t, 0.5, pathToC.Strength, 1e-9) // min(0.9, 0.5)
}

func TestQueryGraphRespectsLimitPerDepth(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	center, err := m.CreateEntity(ctx, &model.Entity{TenantID: "t1", Name: "Center", EntityType: model.EntityConcept})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		n, err := m.CreateEntity(ctx, &model.Entity{TenantID: "t1", Name: "Neighbor", EntityType: model.EntityConcept})
		require.NoError(t, err)
		_, err = m.CreateRelationship(ctx, &model.Relationship{TenantID: "t1", SourceEntityID: center.ID, TargetEntityID: n.ID, RelationshipType: model.RelRelatesTo, Strength: 0.5})
		require.NoError(t, err)
	}

	result, err := m.QueryGraph(ctx, "t1", center.ID, QueryOptions{MaxDepth: 1, LimitPerDepth: 2})
	require.NoError(t, err)
	assert.Len(t, result.Entities, 3) // center + 2 admitted neighbors
}
