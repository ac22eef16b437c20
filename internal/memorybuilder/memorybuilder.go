// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package memorybuilder implements the Memory Builder contract (C8):
// importance scoring, gist/topic/tag extraction via the Summarizer, and
// best-effort entity/relationship discovery over the Entity Graph.
package memorybuilder

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ctxmemory/engine/internal/apperrors"
	"github.com/ctxmemory/engine/internal/dehydrate"
	"github.com/ctxmemory/engine/internal/graph"
	"github.com/ctxmemory/engine/internal/metrics"
	"github.com/ctxmemory/engine/internal/model"
	"github.com/ctxmemory/engine/internal/obslog"
	"github.com/ctxmemory/engine/internal/store"
)

var highImportanceKeywords = []string{
	"important", "critical", "urgent", "essential", "vital",
	"remember", "never forget", "always", "preference", "allergy",
	"password", "secret",
	// localized equivalents
	"importante", "urgente", "crítico", "critico", "esencial",
	"recuerda", "nunca olvides", "siempre", "preferencia",
}

var mediumImportanceKeywords = []string{
	"prefer", "usually", "typically", "often", "like to", "tend to",
	"should", "note", "reminder",
}

var questionPattern = regexp.MustCompile(`^\?|\?$`)

var questionPhrases = []string{"how to", "what is"}

// ComputeImportance implements spec.md §4.C8's importance scoring formula:
// a base score adjusted by word-count tier, character count, keyword
// presence, memory type weight, and a question penalty, clamped to [0,1].
func ComputeImportance(content string, memoryType model.MemoryType) float64 {
	score := 0.5
	lower := strings.ToLower(content)
	words := strings.Fields(content)
	wordCount := len(words)

	switch {
	case wordCount > 100:
		score += 0.15
	case wordCount > 50:
		score += 0.10
	case wordCount < 10:
		score -= 0.10
	}

	if len(content) > 500 {
		score += 0.10
	}

	for _, kw := range highImportanceKeywords {
		if strings.Contains(lower, kw) {
			score += 0.15
			break
		}
	}
	for _, kw := range mediumImportanceKeywords {
		if strings.Contains(lower, kw) {
			score += 0.05
			break
		}
	}

	switch memoryType {
	case model.MemoryProfile:
		score += 0.15
	case model.MemoryProcedural:
		score += 0.10
	case model.MemorySemantic:
		score += 0.05
	}

	isQuestion := questionPattern.MatchString(strings.TrimSpace(content))
	for _, phrase := range questionPhrases {
		if strings.Contains(lower, phrase) {
			isQuestion = true
			break
		}
	}
	if isQuestion {
		score -= 0.05
	}

	return model.Clamp01(score)
}

// Builder implements C8 over a Persistence store, a Summarizer, and an
// Entity Graph manager.
type Builder struct {
	store      store.Persistence
	summarizer dehydrate.Summarizer
	graph      *graph.Manager
	logger     *slog.Logger
}

// New builds a Builder.
func New(s store.Persistence, summarizer dehydrate.Summarizer, g *graph.Manager, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{store: s, summarizer: summarizer, graph: g, logger: logger}
}

// Input carries the fields needed to construct a new Memory.
type Input struct {
	TenantID   string
	UserID     string
	MemoryType model.MemoryType
	Content    string
	Source     model.MemorySource
	SourceID   string
}

const (
	relatedCandidateLimit = 20
	similarityThreshold   = 0.3
)

// BuildMemory implements spec.md §4.C8's 7-step pipeline: construct and
// score the Memory, summarize it for gist/topics/tags, persist it, then
// best-effort extract entities and discover related memories.
func (b *Builder) BuildMemory(ctx context.Context, in Input) (*model.Memory, error) {
	ctx, span := obslog.StartSpan(ctx, "memorybuilder", "BuildMemory")
	defer span.End()

	if strings.TrimSpace(in.Content) == "" {
		return nil, apperrors.NewValidation("content must not be empty")
	}

	now := time.Now().UTC()
	mem := &model.Memory{
		ID:         uuid.NewString(),
		TenantID:   in.TenantID,
		UserID:     in.UserID,
		MemoryType: in.MemoryType,
		Content:    in.Content,
		Source:     in.Source,
		SourceID:   in.SourceID,
		Confidence: 0.7,
		CreatedAt:  now,
		UpdatedAt:  now,
		AccessedAt: now,
		Status:     model.MemoryActive,
		Version:    1,
	}
	mem.Importance = ComputeImportance(in.Content, in.MemoryType)

	dehydrated, err := b.summarizer.Summarize(ctx, in.Content)
	if err != nil {
		b.logger.WarnContext(ctx, "summarize failed, falling back to raw content", "error", err)
	} else {
		mem.Gist = dehydrated.Gist
		mem.Topics = dehydrated.Topics
		mem.Tags = dehydrated.Tags
		mem.Embedding = dehydrated.Embedding
	}
	if mem.Gist == "" {
		mem.Gist = in.Content
	}

	if err := b.store.SaveMemory(ctx, mem); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "save memory", err)
	}
	metrics.MemoriesTotal.WithLabelValues(string(mem.MemoryType), "active").Inc()

	b.attachEntities(ctx, mem)
	b.linkRelatedMemories(ctx, mem)

	return mem, nil
}

// attachEntities extracts candidate entities from the memory's content and
// best-effort creates or discovers them in the graph, continuing past any
// single failure since entity extraction never blocks memory persistence.
func (b *Builder) attachEntities(ctx context.Context, mem *model.Memory) {
	if b.graph == nil {
		return
	}
	for _, extracted := range graph.ExtractEntities(mem.Content) {
		if existing, err := b.graph.DiscoverEntity(ctx, mem.TenantID, extracted.Name, "all"); err == nil {
			if _, err := b.graph.IncrementFrequency(ctx, existing.ID); err != nil {
				b.logger.WarnContext(ctx, "increment entity frequency failed", "entity_id", existing.ID, "error", err)
			}
			continue
		}
		_, err := b.graph.CreateEntity(ctx, &model.Entity{
			TenantID:        mem.TenantID,
			Name:            extracted.Name,
			EntityType:      extracted.Type,
			Confidence:      extracted.Confidence(),
			SourceMemoryIDs: []string{mem.ID},
			Frequency:       extracted.Mentions,
		})
		if err != nil {
			b.logger.WarnContext(ctx, "create entity failed", "name", extracted.Name, "error", err)
		}
	}

	for _, rel := range graph.ExtractRelationships(mem.Content) {
		source, err := b.graph.DiscoverEntity(ctx, mem.TenantID, rel.SourceName, "all")
		if err != nil {
			continue
		}
		target, err := b.graph.DiscoverEntity(ctx, mem.TenantID, rel.TargetName, "all")
		if err != nil {
			continue
		}
		_, err = b.graph.CreateRelationship(ctx, &model.Relationship{
			TenantID:         mem.TenantID,
			SourceEntityID:   source.ID,
			TargetEntityID:   target.ID,
			RelationshipType: rel.Type,
			Strength:         0.5,
			Confidence:       0.5,
			SourceMemoryID:   mem.ID,
		})
		if err != nil {
			b.logger.WarnContext(ctx, "create relationship failed", "source", rel.SourceName, "target", rel.TargetName, "error", err)
		}
	}
}

// linkRelatedMemories finds up to relatedCandidateLimit other memories for
// the same user with importance >= 0.3, scores memory-to-memory
// similarity, and persists a Relationship-less link by recording related
// ids on the new memory when similarity clears similarityThreshold; the
// candidate memories are not modified.
func (b *Builder) linkRelatedMemories(ctx context.Context, mem *model.Memory) {
	threshold := similarityThreshold
	candidates, err := b.store.ListMemories(ctx, store.Filter{
		TenantID:      mem.TenantID,
		UserID:        mem.UserID,
		ImportanceMin: &threshold,
		Limit:         relatedCandidateLimit + 1,
	})
	if err != nil {
		b.logger.WarnContext(ctx, "list candidate memories failed", "error", err)
		return
	}

	related := make([]string, 0, relatedCandidateLimit)
	for _, cand := range candidates {
		if cand.ID == mem.ID {
			continue
		}
		if len(related) >= relatedCandidateLimit {
			break
		}
		sim := MemorySimilarity(mem, cand)
		if sim < similarityThreshold {
			continue
		}
		related = append(related, cand.ID)
	}
	if len(related) > 0 {
		mem.RelatedIDs = related
		if err := b.store.SaveMemory(ctx, mem); err != nil {
			b.logger.WarnContext(ctx, "save memory related ids failed", "error", err)
		}
	}
}

func overlap(a, b []string) float64 {
	if len(a) == 0 {
		return 0
	}
	set := make(map[string]bool, len(b))
	for _, v := range b {
		set[strings.ToLower(v)] = true
	}
	matches := 0
	for _, v := range a {
		if set[strings.ToLower(v)] {
			matches++
		}
	}
	return model.Clamp01(float64(matches) / float64(len(a)))
}

// MemorySimilarity computes spec.md §4.C8's memory-to-memory similarity:
// 0.4*topic_overlap + 0.3*tag_overlap + 0.2*same_type + 0.1*same_source,
// where overlap(a,b) = |a∩b|/|a| using the first memory's cardinality.
func MemorySimilarity(a, b *model.Memory) float64 {
	score := 0.4*overlap(a.Topics, b.Topics) + 0.3*overlap(a.Tags, b.Tags)
	if a.MemoryType == b.MemoryType {
		score += 0.2
	}
	if a.Source == b.Source {
		score += 0.1
	}
	return model.Clamp01(score)
}
