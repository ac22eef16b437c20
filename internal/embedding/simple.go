// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// SimpleProvider produces deterministic, offline embeddings by hashing
// overlapping character trigrams into a fixed-size vector and L2
// normalizing the result. It is not semantically meaningful in the way a
// trained model's embeddings are, but it is stable, dependency-free, and
// sufficient for exercising the vector index and recall paths without a
// network call. No third-party library in the retrieval pack offers a
// deterministic, trained-model-free embedding; this is implemented on the
// standard library for that reason.
type SimpleProvider struct {
	dimension int
}

// NewSimple builds a SimpleProvider producing vectors of the given dimension.
func NewSimple(dimension int) *SimpleProvider {
	if dimension <= 0 {
		dimension = 768
	}
	return &SimpleProvider{dimension: dimension}
}

func (p *SimpleProvider) Dimension() int { return p.dimension }

// Embed hashes text's trigrams into buckets, then L2-normalizes.
func (p *SimpleProvider) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float64, p.dimension)
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return toFloat32(vec), nil
	}

	runes := []rune(normalized)
	n := 3
	if len(runes) < n {
		n = len(runes)
	}
	for i := 0; i+n <= len(runes); i++ {
		gram := string(runes[i : i+n])
		h := fnv.New64a()
		h.Write([]byte(gram))
		sum := h.Sum64()
		bucket := int(sum % uint64(p.dimension))
		sign := 1.0
		if (sum>>63)&1 == 1 {
			sign = -1.0
		}
		vec[bucket] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return toFloat32(vec), nil
}

// EmbedBatch embeds each text independently.
func (p *SimpleProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}
