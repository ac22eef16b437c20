// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package vectorindex implements the Vector Index contract (C4): storing
// (vector_id, vector, metadata) tuples and serving cosine-similarity
// search scoped to one session. The default backend (Index) is an
// in-memory reference implementation; internal/vectorindex/weaviate
// provides a wire-compatible Weaviate-backed alternative.
package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ctxmemory/engine/internal/apperrors"
)

// Metadata describes a stored vector's provenance.
type Metadata struct {
	SessionID  string
	TurnID     string
	TurnNumber int
	Timestamp  time.Time
}

// Result is one scored hit from Search.
type Result struct {
	ID       string
	Score    float64
	Metadata Metadata
}

// Index is the Vector Index contract. Implementations must filter by
// session before scoring (not top-k then filter), so per-session recall
// is preserved regardless of corpus size.
type Index interface {
	Add(ctx context.Context, id string, vector []float32, meta Metadata) error
	Search(ctx context.Context, query []float32, sessionID string, k int) ([]Result, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, sessionID string) (int, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type entry struct {
	id       string
	vector   []float32
	meta     Metadata
	inserted int
}

// MemoryIndex is the in-memory reference implementation of Index.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	entries   map[string]*entry
	seq       int
}

// New builds an empty MemoryIndex with the given vector dimension.
func New(dimension int) *MemoryIndex {
	return &MemoryIndex{
		dimension: dimension,
		entries:   make(map[string]*entry),
	}
}

// Add inserts id with vector and meta. Fails with a DimensionMismatchError
// wrapped in ErrValidation if len(vector) != the configured dimension.
func (idx *MemoryIndex) Add(_ context.Context, id string, vector []float32, meta Metadata) error {
	if len(vector) != idx.dimension {
		return &apperrors.DimensionMismatchError{Expected: idx.dimension, Actual: len(vector)}
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.seq++
	cp := make([]float32, len(vector))
	copy(cp, vector)
	idx.entries[id] = &entry{id: id, vector: cp, meta: meta, inserted: idx.seq}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Search scores every vector belonging to sessionID by cosine similarity
// against query, filtering by session before scoring, and returns up to k
// results sorted descending by score with ties broken by insertion order.
func (idx *MemoryIndex) Search(_ context.Context, query []float32, sessionID string, k int) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var candidates []*entry
	for _, e := range idx.entries {
		if e.meta.SessionID == sessionID {
			candidates = append(candidates, e)
		}
	}

	results := make([]Result, 0, len(candidates))
	for _, e := range candidates {
		score := cosineSimilarity(query, e.vector)
		results = append(results, Result{ID: e.id, Score: score, Metadata: e.meta})
	}

	insertionOf := make(map[string]int, len(candidates))
	for _, e := range candidates {
		insertionOf[e.id] = e.inserted
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return insertionOf[results[i].ID] < insertionOf[results[j].ID]
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Delete removes id, if present. Deleting an unknown id is a no-op.
func (idx *MemoryIndex) Delete(_ context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.entries, id)
	return nil
}

// Count returns the number of vectors stored for sessionID.
func (idx *MemoryIndex) Count(_ context.Context, sessionID string) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	n := 0
	for _, e := range idx.entries {
		if e.meta.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

// Exists reports whether id is currently stored.
func (idx *MemoryIndex) Exists(_ context.Context, id string) (bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.entries[id]
	return ok, nil
}
