// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fulltext implements the Full-text Index contract (C5): a simple
// substring-token baseline scored by Σ count(token,content)/(len(token)+1),
// intentionally not a full BM25 implementation (spec.md §4.C5 requires
// only monotonicity in frequency and token count, determinism, and a zero
// score on no match).
package fulltext

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Result is one scored hit from Search.
type Result struct {
	ID    string
	Score float64
}

// Index is the Full-text Index contract.
type Index interface {
	Add(ctx context.Context, id, content, sessionID string) error
	Search(ctx context.Context, query, sessionID string, k int) ([]Result, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, sessionID string) (int, error)
}

type doc struct {
	id        string
	content   string
	sessionID string
	inserted  int
}

// MemoryIndex is the in-memory reference implementation of Index.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]*doc
	seq  int
}

// New builds an empty MemoryIndex.
func New() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]*doc)}
}

// Add stores content under id, scoped to sessionID.
func (idx *MemoryIndex) Add(_ context.Context, id, content, sessionID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.seq++
	idx.docs[id] = &doc{id: id, content: content, sessionID: sessionID, inserted: idx.seq}
	return nil
}

func scoreContent(content string, tokens []string) (float64, bool) {
	lowerContent := strings.ToLower(content)
	var score float64
	matched := true
	for _, token := range tokens {
		count := strings.Count(lowerContent, token)
		if count == 0 {
			matched = false
			break
		}
		score += float64(count) / float64(len(token)+1)
	}
	return score, matched
}

// Search requires every whitespace-separated query token to appear
// (case-insensitive substring) in a document's content. Score is
// Σ count(token,content)/(len(token)+1); results are sorted descending by
// score, ties broken by insertion order.
func (idx *MemoryIndex) Search(_ context.Context, query, sessionID string, k int) ([]Result, error) {
	tokens := strings.Fields(strings.ToLower(query))

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	type scored struct {
		id       string
		score    float64
		inserted int
	}
	var hits []scored
	for _, d := range idx.docs {
		if d.sessionID != sessionID {
			continue
		}
		score, matched := scoreContent(d.content, tokens)
		if !matched {
			continue
		}
		hits = append(hits, scored{id: d.id, score: score, inserted: d.inserted})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].inserted < hits[j].inserted
	})

	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	out := make([]Result, len(hits))
	for i, h := range hits {
		out[i] = Result{ID: h.id, Score: h.score}
	}
	return out, nil
}

// Delete removes id, if present.
func (idx *MemoryIndex) Delete(_ context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.docs, id)
	return nil
}

// Count returns the number of documents stored for sessionID.
func (idx *MemoryIndex) Count(_ context.Context, sessionID string) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	n := 0
	for _, d := range idx.docs {
		if d.sessionID == sessionID {
			n++
		}
	}
	return n, nil
}
