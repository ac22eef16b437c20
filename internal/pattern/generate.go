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
	"strings"

	"github.com/ctxmemory/engine/internal/apperrors"
	"github.com/ctxmemory/engine/internal/model"
	"github.com/ctxmemory/engine/internal/store"
)

// Generator produces a Pattern from a high-importance Memory using an
// external (e.g. LLM-backed) method. When nil, AutoGenerateFromMemories
// falls back to rule-based extraction.
type Generator interface {
	Generate(ctx context.Context, memory *model.Memory) (*model.Pattern, error)
}

// techVocabulary is the closed set of trigger keywords rule-based
// generation scans for, mirroring internal/dehydrate's topic-pattern
// vocabulary but scoped to pattern triggers rather than topic labels.
var techVocabulary = []string{
	"api", "database", "sql", "query", "server", "client", "endpoint",
	"request", "function", "class", "bug", "compile", "error", "test",
	"deploy", "config", "cache", "queue", "auth", "token", "schema",
}

func extractTriggerKeywords(content string) []string {
	lower := strings.ToLower(content)
	var found []string
	for _, kw := range techVocabulary {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// inferPatternType classifies a pattern type from content verbs, per
// spec.md §4.C11: error/fail -> CommonError, step/workflow -> Workflow,
// best/practice -> BestPractice, "how to" -> Skill, else ProblemSolution.
func inferPatternType(content string) model.PatternType {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "error") || strings.Contains(lower, "fail"):
		return model.PatternCommonError
	case strings.Contains(lower, "step") || strings.Contains(lower, "workflow"):
		return model.PatternWorkflow
	case strings.Contains(lower, "best") || strings.Contains(lower, "practice"):
		return model.PatternBestPractice
	case strings.Contains(lower, "how to"):
		return model.PatternSkill
	default:
		return model.PatternProblemSolution
	}
}

func ruleBasedPattern(m *model.Memory) *model.Pattern {
	keywords := extractTriggerKeywords(m.Content)
	if len(keywords) == 0 {
		return nil
	}
	return &model.Pattern{
		TenantID:    m.TenantID,
		PatternType: inferPatternType(m.Content),
		Name:        m.Gist,
		Description: m.Gist,
		Trigger:     strings.Join(keywords, " "),
		Solution:    m.Content,
		Confidence:  m.Importance,
		CreatedBy:   "auto_generate_from_memories",
	}
}

func dedupeKey(p *model.Pattern) string {
	return strings.ToLower(p.Description) + "\x00" + strings.ToLower(p.Solution)
}

// AutoGenerateFromMemories implements spec.md §4.C11's auto_generate_from_
// memories: iterate memories at or above minImportance, call gen if
// supplied, else fall back to rule-based trigger/type extraction,
// deduplicating by (gist, content) and persisting each distinct candidate.
func (e *Engine) AutoGenerateFromMemories(ctx context.Context, tenantID string, memories []*model.Memory, minImportance float64, gen Generator) ([]*model.Pattern, error) {
	existing, err := e.store.ListPatterns(ctx, store.Filter{TenantID: tenantID, Limit: 0})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list patterns", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[dedupeKey(p)] = true
	}

	var created []*model.Pattern
	for _, m := range memories {
		if m.Importance < minImportance {
			continue
		}

		var candidate *model.Pattern
		if gen != nil {
			candidate, err = gen.Generate(ctx, m)
			if err != nil {
				continue
			}
		} else {
			candidate = ruleBasedPattern(m)
		}
		if candidate == nil {
			continue
		}
		candidate.TenantID = tenantID

		key := dedupeKey(candidate)
		if seen[key] {
			continue
		}
		seen[key] = true

		saved, err := e.CreatePattern(ctx, candidate)
		if err != nil {
			continue
		}
		created = append(created, saved)
	}
	return created, nil
}
