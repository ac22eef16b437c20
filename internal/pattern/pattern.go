// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pattern implements the Pattern Engine contract (C11): pattern
// CRUD, outcome recording, trigger matching, recommendation scoring, and
// rule-based pattern generation from high-importance memories.
package pattern

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ctxmemory/engine/internal/apperrors"
	"github.com/ctxmemory/engine/internal/metrics"
	"github.com/ctxmemory/engine/internal/model"
	"github.com/ctxmemory/engine/internal/store"
)

// Engine implements C11 over a Persistence store.
type Engine struct {
	store store.Persistence
}

// New builds an Engine.
func New(s store.Persistence) *Engine {
	return &Engine{store: s}
}

// CreatePattern persists a new Pattern, assigning an id and timestamps.
func (e *Engine) CreatePattern(ctx context.Context, p *model.Pattern) (*model.Pattern, error) {
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Confidence == 0 {
		p.Confidence = 0.5
	}
	if err := e.store.SavePattern(ctx, p); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "save pattern", err)
	}
	return p, nil
}

// GetPattern, ListPatterns, DeletePattern thinly wrap the store.
func (e *Engine) GetPattern(ctx context.Context, id string) (*model.Pattern, error) {
	return e.store.GetPattern(ctx, id)
}

func (e *Engine) ListPatterns(ctx context.Context, f store.Filter) ([]*model.Pattern, error) {
	return e.store.ListPatterns(ctx, f)
}

func (e *Engine) DeletePattern(ctx context.Context, id string) error {
	return e.store.DeletePattern(ctx, id)
}

// OutcomeInput carries the fields needed to record one pattern usage.
type OutcomeInput struct {
	Input    string
	Output   string
	Outcome  float64
	Feedback string
	Context  string
}

func outcomeBucket(outcome float64) string {
	if outcome >= 0 {
		return "success"
	}
	return "failure"
}

// RecordOutcome implements spec.md §4.C11's outcome accounting: append a
// PatternUsage, then atomically update usage_count, last_used,
// success/failure counts, and the online mean avg_outcome.
func (e *Engine) RecordOutcome(ctx context.Context, patternID string, in OutcomeInput) (*model.Pattern, error) {
	p, err := e.store.GetPattern(ctx, patternID)
	if err != nil {
		return nil, err
	}

	usage := &model.PatternUsage{
		ID:        uuid.NewString(),
		PatternID: patternID,
		Input:     in.Input,
		Output:    in.Output,
		Outcome:   in.Outcome,
		Feedback:  in.Feedback,
		Context:   in.Context,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.SavePatternUsage(ctx, usage); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "save pattern usage", err)
	}

	p.UsageCount++
	now := usage.CreatedAt
	p.LastUsed = &now
	if in.Outcome >= 0 {
		p.SuccessCount++
	} else {
		p.FailureCount++
	}
	n := p.SuccessCount + p.FailureCount
	p.AvgOutcome = (p.AvgOutcome*float64(n-1) + in.Outcome) / float64(n)
	p.Version++
	p.UpdatedAt = now

	if err := e.store.SavePattern(ctx, p); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "save pattern", err)
	}
	metrics.PatternUsageTotal.WithLabelValues(patternID, outcomeBucket(in.Outcome)).Inc()
	return p, nil
}

func tokenizeInput(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
}

// MatchPatterns implements spec.md §4.C11's trigger matching: tokenize
// input case-insensitively, return patterns whose trigger contains any
// token, ordered by usage_count descending.
func (e *Engine) MatchPatterns(ctx context.Context, tenantID, input string, limit int) ([]*model.Pattern, error) {
	tokens := tokenizeInput(input)
	if len(tokens) == 0 {
		return nil, nil
	}
	all, err := e.store.ListPatterns(ctx, store.Filter{TenantID: tenantID, Limit: 0})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list patterns", err)
	}

	var matched []*model.Pattern
	for _, p := range all {
		trigger := strings.ToLower(p.Trigger)
		for _, t := range tokens {
			if strings.Contains(trigger, t) {
				matched = append(matched, p)
				break
			}
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].UsageCount > matched[j].UsageCount })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

const (
	highQualitySuccessRate = 0.7
	highUsageThreshold     = 10
	recentWindow           = 7 * 24 * time.Hour
	staleWindow            = 30 * 24 * time.Hour
)

func triggerCoverage(trigger, context string) float64 {
	triggerTokens := tokenizeInput(trigger)
	if len(triggerTokens) == 0 {
		return 0
	}
	lowerContext := strings.ToLower(context)
	matched := 0
	for _, t := range triggerTokens {
		if strings.Contains(lowerContext, t) {
			matched++
		}
	}
	return float64(matched) / float64(len(triggerTokens))
}

// RecommendationInput carries the context a recommendation is scored
// against, including recent memories whose gist/content may overlap.
type RecommendationInput struct {
	Context        string
	RecentMemories []*model.Memory
}

// GetRecommendations implements spec.md §4.C11's recommendation scoring:
// 40% trigger-coverage, +0.2 high-quality, +0.1 usage_count > 10, +0.1
// recently used within 7d (else +0.05 within 30d), +0.1 if any recent
// memory's gist/content appears in the context. Normalized to [0,1],
// only positive scores kept, top limit returned.
func (e *Engine) GetRecommendations(ctx context.Context, tenantID string, in RecommendationInput, limit int) ([]*model.Pattern, error) {
	all, err := e.store.ListPatterns(ctx, store.Filter{TenantID: tenantID, Limit: 0})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list patterns", err)
	}

	now := time.Now().UTC()
	type scored struct {
		pattern *model.Pattern
		score   float64
	}
	var candidates []scored

	for _, p := range all {
		score := 0.4 * triggerCoverage(p.Trigger, in.Context)
		if p.IsHighQuality() {
			score += 0.2
		}
		if p.UsageCount > highUsageThreshold {
			score += 0.1
		}
		if p.LastUsed != nil {
			age := now.Sub(*p.LastUsed)
			if age <= recentWindow {
				score += 0.1
			} else if age <= staleWindow {
				score += 0.05
			}
		}
		if memoryOverlapsContext(in.RecentMemories, in.Context) {
			score += 0.1
		}
		score = model.Clamp01(score)
		if score > 0 {
			candidates = append(candidates, scored{pattern: p, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]*model.Pattern, len(candidates))
	for i, c := range candidates {
		out[i] = c.pattern
	}
	return out, nil
}

func memoryOverlapsContext(memories []*model.Memory, context string) bool {
	lower := strings.ToLower(context)
	for _, m := range memories {
		if m.Gist != "" && strings.Contains(lower, strings.ToLower(m.Gist)) {
			return true
		}
		if m.Content != "" && strings.Contains(lower, strings.ToLower(m.Content)) {
			return true
		}
	}
	return false
}
