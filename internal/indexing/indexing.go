// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package indexing implements the Index Coordinator contract (C6): one-shot
// indexing of a Turn into the vector (C4) and full-text (C5) indexes with
// rollback on partial failure, plus the reciprocal-rank-fusion helper
// shared with the Memory Recall contract (C10).
package indexing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ctxmemory/engine/internal/apperrors"
	"github.com/ctxmemory/engine/internal/embedding"
	"github.com/ctxmemory/engine/internal/fulltext"
	"github.com/ctxmemory/engine/internal/metrics"
	"github.com/ctxmemory/engine/internal/model"
	"github.com/ctxmemory/engine/internal/obslog"
	"github.com/ctxmemory/engine/internal/store"
	"github.com/ctxmemory/engine/internal/vectorindex"
)

const maxGistLength = 100

func vectorDocID(turnID string) string   { return "vec_" + turnID }
func fullTextDocID(turnID string) string { return "doc_" + turnID }

// Coordinator implements C6 over a Persistence store, a Vector Index, a
// Full-text Index and an Embedding Provider.
type Coordinator struct {
	store      store.Persistence
	vectors    vectorindex.Index
	fulltext   fulltext.Index
	embeddings embedding.Provider
}

// New builds a Coordinator from its four collaborators.
func New(s store.Persistence, v vectorindex.Index, f fulltext.Index, e embedding.Provider) *Coordinator {
	return &Coordinator{store: s, vectors: v, fulltext: f, embeddings: e}
}

func truncateGist(content string) string {
	runes := []rune(content)
	if len(runes) <= maxGistLength {
		return content
	}
	return string(runes[:maxGistLength]) + "…"
}

// IndexTurn produces exactly one IndexRecord and exactly one entry each in
// the vector and full-text indexes, or fails atomically leaving no partial
// state, per spec.md §4.C6's numbered sequence.
func (c *Coordinator) IndexTurn(ctx context.Context, turn *model.Turn) (record *model.IndexRecord, err error) {
	start := time.Now()
	status := "success"
	defer func() {
		if err != nil {
			status = "error"
		}
		metrics.IndexDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}()

	ctx, span := obslog.StartSpan(ctx, "indexing", "IndexTurn")
	defer span.End()

	vecID := vectorDocID(turn.ID)
	docID := fullTextDocID(turn.ID)

	vecExists, err := c.vectors.Exists(ctx, vecID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrVectorIndex, "check existing vector entry", err)
	}
	_, err = c.store.GetIndexRecord(ctx, turn.ID)
	recordExists := err == nil
	if vecExists || recordExists {
		return nil, apperrors.NewAlreadyIndexed(turn.ID)
	}

	gist := ""
	var topics, tags []string
	if turn.Dehydrated != nil && turn.Dehydrated.Gist != "" {
		gist = turn.Dehydrated.Gist
		topics = turn.Dehydrated.Topics
		tags = turn.Dehydrated.Tags
	} else {
		gist = truncateGist(turn.RawContent)
	}

	var vec []float32
	if turn.Dehydrated != nil && len(turn.Dehydrated.Embedding) > 0 {
		vec = turn.Dehydrated.Embedding
	} else {
		vec, err = c.embeddings.Embed(ctx, gist)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrEmbedding, "embed gist", err)
		}
	}

	meta := vectorindex.Metadata{
		SessionID:  turn.SessionID,
		TurnID:     turn.ID,
		TurnNumber: turn.TurnNumber,
		Timestamp:  time.Now().UTC(),
	}
	if err := c.vectors.Add(ctx, vecID, vec, meta); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrVectorIndex, "insert vector entry", err)
	}

	content := gist
	if turn.RawContent != "" {
		content = gist + " " + turn.RawContent
	}
	if err := c.fulltext.Add(ctx, docID, content, turn.SessionID); err != nil {
		if delErr := c.vectors.Delete(ctx, vecID); delErr != nil {
			return nil, apperrors.Wrap(apperrors.ErrFullTextIndex, "insert full-text entry (rollback also failed)", fmt.Errorf("%v; rollback: %w", err, delErr))
		}
		return nil, apperrors.Wrap(apperrors.ErrFullTextIndex, "insert full-text entry", err)
	}

	record = &model.IndexRecord{
		TurnID:     turn.ID,
		SessionID:  turn.SessionID,
		Gist:       gist,
		Topics:     topics,
		Tags:       tags,
		Timestamp:  meta.Timestamp,
		TurnNumber: turn.TurnNumber,
		VectorID:   vecID,
	}
	if err := c.store.SaveIndexRecord(ctx, record); err != nil {
		_ = c.fulltext.Delete(ctx, docID)
		_ = c.vectors.Delete(ctx, vecID)
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "persist index record", err)
	}

	return record, nil
}

// DeleteIndex removes both the vector and full-text entries for turnID,
// reporting success if either deletion reported success, per spec.md
// §4.C6.
func (c *Coordinator) DeleteIndex(ctx context.Context, turnID string) error {
	vecErr := c.vectors.Delete(ctx, vectorDocID(turnID))
	ftErr := c.fulltext.Delete(ctx, fullTextDocID(turnID))
	if err := c.store.DeleteIndexRecord(ctx, turnID); err != nil && vecErr != nil && ftErr != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "delete index record", err)
	}
	if vecErr != nil && ftErr != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "delete index", vecErr)
	}
	return nil
}

// SearchVector runs a vector-index search scoped to sessionID.
func (c *Coordinator) SearchVector(ctx context.Context, query []float32, sessionID string, k int) ([]vectorindex.Result, error) {
	return c.vectors.Search(ctx, query, sessionID, k)
}

// SearchFullText runs a full-text search scoped to sessionID.
func (c *Coordinator) SearchFullText(ctx context.Context, q, sessionID string, k int) ([]fulltext.Result, error) {
	return c.fulltext.Search(ctx, q, sessionID, k)
}

// TurnMatch is one turn's fused hybrid_search hit: its RRF score plus which
// of the index-plane sources ("vector", "full_text") surfaced it, per
// spec.md Scenario B.
type TurnMatch struct {
	TurnID       string
	Score        float64
	MatchReasons []string
}

// FusedSearch runs both C4 and C5 over the same session and fuses them via
// RRF with equal weights, the "index plane" use of fusion spec.md §4.C6
// describes (distinct from C10's three-way memory-recall fusion). Results
// from both sides are keyed by bare turn id -- vector and full-text entries
// are stored under "vec_"/"doc_" prefixed ids (see vectorDocID/
// fullTextDocID), and Fuse matches purely on string equality, so the
// prefixes must be stripped here or a turn hit by both sources would never
// share a key and RRF would degenerate into two independent rankings.
func (c *Coordinator) FusedSearch(ctx context.Context, query []float32, q, sessionID string, k int) ([]TurnMatch, error) {
	vecResults, err := c.SearchVector(ctx, query, sessionID, k)
	if err != nil {
		return nil, err
	}
	ftResults, err := c.SearchFullText(ctx, q, sessionID, k)
	if err != nil {
		return nil, err
	}

	vecList := make(RankedList, len(vecResults))
	vecHit := make(map[string]bool, len(vecResults))
	for i, r := range vecResults {
		turnID := strings.TrimPrefix(r.ID, "vec_")
		vecList[i] = turnID
		vecHit[turnID] = true
	}
	ftList := make(RankedList, len(ftResults))
	ftHit := make(map[string]bool, len(ftResults))
	for i, r := range ftResults {
		turnID := strings.TrimPrefix(r.ID, "doc_")
		ftList[i] = turnID
		ftHit[turnID] = true
	}

	fused := Fuse([]RankedList{vecList, ftList}, []float64{0.5, 0.5})
	if k > 0 && len(fused) > k {
		fused = fused[:k]
	}

	out := make([]TurnMatch, len(fused))
	for i, f := range fused {
		var reasons []string
		if vecHit[f.ID] {
			reasons = append(reasons, "vector")
		}
		if ftHit[f.ID] {
			reasons = append(reasons, "full_text")
		}
		out[i] = TurnMatch{TurnID: f.ID, Score: f.Score, MatchReasons: reasons}
	}
	return out, nil
}

// HybridSearch embeds query and runs FusedSearch with it, the single-string
// entry point spec.md Scenario B describes as
// hybrid_search(session, query, limit).
func (c *Coordinator) HybridSearch(ctx context.Context, query, sessionID string, k int) ([]TurnMatch, error) {
	vec, err := c.embeddings.Embed(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrEmbedding, "embed hybrid search query", err)
	}
	return c.FusedSearch(ctx, vec, query, sessionID, k)
}
