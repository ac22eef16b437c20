// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package indexing

import "sort"

// rrfK is the reciprocal rank fusion smoothing constant, fixed at 60 per
// spec.md §4.C6.
const rrfK = 60

// RankedList is one source's ranked result list, most relevant first.
// Ranks are derived from list position (1-based); ties within a list are
// not modeled, the caller must already have broken them deterministically.
type RankedList []string

// Fused is one document's fused RRF score.
type Fused struct {
	ID    string
	Score float64
}

// Fuse combines ranked lists with per-list weights via reciprocal rank
// fusion: score(doc) = Σ_i w_i · 1/(k+rank_i(doc)), ranks 1-based, missing
// documents contribute 0. Final ordering is descending by score, ties
// broken by first-seen order across lists (deterministic and stable).
func Fuse(lists []RankedList, weights []float64) []Fused {
	scores := make(map[string]float64)
	firstSeen := make(map[string]int)
	order := 0

	for li, list := range lists {
		w := 1.0
		if li < len(weights) {
			w = weights[li]
		}
		for rank, id := range list {
			if _, ok := firstSeen[id]; !ok {
				firstSeen[id] = order
				order++
			}
			scores[id] += w * (1.0 / float64(rrfK+rank+1))
		}
	}

	out := make([]Fused, 0, len(scores))
	for id, score := range scores {
		out = append(out, Fused{ID: id, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return firstSeen[out[i].ID] < firstSeen[out[j].ID]
	})
	return out
}
