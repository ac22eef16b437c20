// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph implements the Entity Graph contract (C9): entity and
// relationship CRUD, text-extraction heuristics, BFS traversal with
// shortest-path reconstruction, entity merging, and disambiguation.
package graph

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ctxmemory/engine/internal/apperrors"
	"github.com/ctxmemory/engine/internal/metrics"
	"github.com/ctxmemory/engine/internal/model"
	"github.com/ctxmemory/engine/internal/obslog"
	"github.com/ctxmemory/engine/internal/store"
)

// Manager implements C9 over a Persistence store.
type Manager struct {
	store store.Persistence
}

// New builds a Manager over s.
func New(s store.Persistence) *Manager {
	return &Manager{store: s}
}

// CreateEntity persists a new Entity, assigning an id and timestamps.
func (m *Manager) CreateEntity(ctx context.Context, e *model.Entity) (*model.Entity, error) {
	now := time.Now().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.Confidence == 0 {
		e.Confidence = 0.5
	}
	if err := m.store.SaveEntity(ctx, e); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "save entity", err)
	}
	metrics.GraphOperationsTotal.WithLabelValues("create_entity", "success").Inc()
	return e, nil
}

// GetEntity fetches an entity by id.
func (m *Manager) GetEntity(ctx context.Context, id string) (*model.Entity, error) {
	return m.store.GetEntity(ctx, id)
}

// ListEntities lists entities matching f.
func (m *Manager) ListEntities(ctx context.Context, f store.Filter) ([]*model.Entity, error) {
	return m.store.ListEntities(ctx, f)
}

// DeleteEntity removes an entity.
func (m *Manager) DeleteEntity(ctx context.Context, id string) error {
	if err := m.store.DeleteEntity(ctx, id); err != nil {
		return err
	}
	metrics.GraphOperationsTotal.WithLabelValues("delete_entity", "success").Inc()
	return nil
}

// CreateRelationship persists a new Relationship, assigning an id and
// timestamps.
func (m *Manager) CreateRelationship(ctx context.Context, r *model.Relationship) (*model.Relationship, error) {
	now := time.Now().UTC()
	r.ID = uuid.NewString()
	r.CreatedAt = now
	r.UpdatedAt = now
	if err := m.store.SaveRelationship(ctx, r); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "save relationship", err)
	}
	metrics.GraphOperationsTotal.WithLabelValues("create_relationship", "success").Inc()
	return r, nil
}

// GetRelationship fetches a relationship by id.
func (m *Manager) GetRelationship(ctx context.Context, id string) (*model.Relationship, error) {
	return m.store.GetRelationship(ctx, id)
}

// ListRelationships lists relationships matching f.
func (m *Manager) ListRelationships(ctx context.Context, f store.Filter) ([]*model.Relationship, error) {
	return m.store.ListRelationships(ctx, f)
}

// DeleteRelationship removes a relationship.
func (m *Manager) DeleteRelationship(ctx context.Context, id string) error {
	return m.store.DeleteRelationship(ctx, id)
}

// DiscoverEntity resolves name to an existing entity within tenant,
// optionally restricted to entityType ("all" matches any type), doing an
// exact (case-insensitive) name or alias match. Returns NotFound if no
// entity matches.
func (m *Manager) DiscoverEntity(ctx context.Context, tenantID, name, entityType string) (*model.Entity, error) {
	entities, err := m.store.ListEntities(ctx, store.Filter{TenantID: tenantID, Limit: 0})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "discover entity", err)
	}
	lowerName := strings.ToLower(name)
	for _, e := range entities {
		if entityType != "all" && entityType != "" && string(e.EntityType) != entityType {
			continue
		}
		if strings.ToLower(e.Name) == lowerName {
			return e, nil
		}
		for _, alias := range e.Aliases {
			if strings.ToLower(alias) == lowerName {
				return e, nil
			}
		}
	}
	return nil, apperrors.NewNotFound("entity", name)
}

// IncrementFrequency bumps an entity's frequency counter, version, and
// UpdatedAt. Idempotent to call repeatedly; each call is one increment.
func (m *Manager) IncrementFrequency(ctx context.Context, id string) (*model.Entity, error) {
	e, err := m.store.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Frequency++
	e.Version++
	e.UpdatedAt = time.Now().UTC()
	if err := m.store.SaveEntity(ctx, e); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "increment frequency", err)
	}
	return e, nil
}

// VerifyRelationship marks a relationship verified, bumping version and
// UpdatedAt.
func (m *Manager) VerifyRelationship(ctx context.Context, id string) (*model.Relationship, error) {
	r, err := m.store.GetRelationship(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Verified = true
	r.Version++
	r.UpdatedAt = time.Now().UTC()
	if err := m.store.SaveRelationship(ctx, r); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "verify relationship", err)
	}
	return r, nil
}

// MergeEntities merges source into target, following spec.md §4.C9's
// 8-step algorithm: choose the higher-confidence entity as base (ties
// favor target), union aliases/properties (target wins on key collision)/
// source_memory_ids, sum frequencies, average confidence, persist under
// target_id, delete source, and remap every relationship referencing
// source to target.
func (m *Manager) MergeEntities(ctx context.Context, targetID, sourceID string) (*model.Entity, error) {
	ctx, span := obslog.StartSpan(ctx, "graph", "MergeEntities")
	defer span.End()

	target, err := m.store.GetEntity(ctx, targetID)
	if err != nil {
		return nil, err
	}
	source, err := m.store.GetEntity(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	base := target
	if source.Confidence > target.Confidence {
		base = source
	}

	merged := *base
	merged.ID = targetID

	nameAliases := []string{strings.ToLower(target.Name), strings.ToLower(source.Name)}
	merged.Aliases = unionStrings(unionStrings(target.Aliases, source.Aliases), nameAliases)
	merged.Properties = unionProperties(target.Properties, source.Properties)
	merged.SourceMemoryIDs = unionStrings(target.SourceMemoryIDs, source.SourceMemoryIDs)
	merged.Frequency = target.Frequency + source.Frequency
	merged.Confidence = (target.Confidence + source.Confidence) / 2
	merged.Version = target.Version + 1
	merged.UpdatedAt = time.Now().UTC()

	if err := m.store.SaveEntity(ctx, &merged); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "persist merged entity", err)
	}
	if err := m.store.DeleteEntity(ctx, sourceID); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "delete merged source entity", err)
	}

	rels, err := m.store.ListRelationships(ctx, store.Filter{TenantID: target.TenantID, Limit: 0})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list relationships for remap", err)
	}
	for _, r := range rels {
		if r.SourceEntityID != sourceID && r.TargetEntityID != sourceID {
			continue
		}
		remapped := *r
		remapped.ID = uuid.NewString()
		if remapped.SourceEntityID == sourceID {
			remapped.SourceEntityID = targetID
		}
		if remapped.TargetEntityID == sourceID {
			remapped.TargetEntityID = targetID
		}
		remapped.UpdatedAt = time.Now().UTC()
		if err := m.store.DeleteRelationship(ctx, r.ID); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "delete stale relationship during merge", err)
		}
		if err := m.store.SaveRelationship(ctx, &remapped); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "save remapped relationship", err)
		}
	}

	metrics.GraphOperationsTotal.WithLabelValues("merge_entity", "success").Inc()
	return &merged, nil
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func unionProperties(target, source map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(target)+len(source))
	for k, v := range source {
		out[k] = v
	}
	for k, v := range target {
		out[k] = v // target wins on collision
	}
	return out
}

// SimilarEntity is one disambiguation candidate with its blended score.
type SimilarEntity struct {
	Entity *model.Entity
	Score  float64
}

// FindSimilarEntities scores candidates against (name, aliases, properties,
// entityType) using the weighted blend from spec.md §4.C9 (character-bigram
// name Jaccard w=0.4, alias overlap w=0.3, property-key overlap w=0.2,
// same-type bonus +0.1, normalized over applicable weighted components).
// Only candidates scoring > 0.5 are returned, descending.
func FindSimilarEntities(name string, aliases []string, properties map[string]interface{}, entityType model.EntityType, candidates []*model.Entity) []SimilarEntity {
	var out []SimilarEntity
	for _, c := range candidates {
		score := blendedSimilarity(name, aliases, properties, entityType, c)
		if score > 0.5 {
			out = append(out, SimilarEntity{Entity: c, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func blendedSimilarity(name string, aliases []string, properties map[string]interface{}, entityType model.EntityType, c *model.Entity) float64 {
	var weightedSum, weightTotal float64

	weightedSum += 0.4 * bigramJaccard(name, c.Name)
	weightTotal += 0.4

	if len(aliases) > 0 || len(c.Aliases) > 0 {
		weightedSum += 0.3 * stringSetJaccard(aliases, c.Aliases)
		weightTotal += 0.3
	}
	if len(properties) > 0 || len(c.Properties) > 0 {
		weightedSum += 0.2 * keySetJaccard(properties, c.Properties)
		weightTotal += 0.2
	}

	score := 0.0
	if weightTotal > 0 {
		score = weightedSum / weightTotal
	}
	if entityType == c.EntityType {
		score += 0.1
	}
	return score
}

func bigrams(s string) map[string]bool {
	s = strings.ToLower(s)
	runes := []rune(s)
	out := make(map[string]bool)
	if len(runes) < 2 {
		out[s] = true
		return out
	}
	for i := 0; i+2 <= len(runes); i++ {
		out[string(runes[i:i+2])] = true
	}
	return out
}

func bigramJaccard(a, b string) float64 {
	return setJaccard(bigrams(a), bigrams(b))
}

func stringSetJaccard(a, b []string) float64 {
	sa := make(map[string]bool)
	for _, s := range a {
		sa[strings.ToLower(s)] = true
	}
	sb := make(map[string]bool)
	for _, s := range b {
		sb[strings.ToLower(s)] = true
	}
	return setJaccard(sa, sb)
}

func keySetJaccard(a, b map[string]interface{}) float64 {
	sa := make(map[string]bool, len(a))
	for k := range a {
		sa[k] = true
	}
	sb := make(map[string]bool, len(b))
	for k := range b {
		sb[k] = true
	}
	return setJaccard(sa, sb)
}

func setJaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
