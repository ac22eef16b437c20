// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package embedding provides the Embedding Provider contract (C1) and its
// concrete backends: Ollama (local models), OpenAI (hosted), and a
// deterministic hash-based fallback that requires no network access.
package embedding

import (
	"context"
	"fmt"

	"github.com/ctxmemory/engine/internal/apperrors"
	"github.com/ctxmemory/engine/internal/config"
)

// Provider converts text into dense vector embeddings for semantic search.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Embed computes a single embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch computes embeddings for multiple texts in one call. The
	// returned slice has the same length and order as texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the length of vectors this provider produces.
	Dimension() int
}

// New constructs the Provider selected by cfg.Backend.
func New(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Backend {
	case config.EmbeddingBackendOllama:
		return NewOllama(cfg.Ollama, cfg.Dimension), nil
	case config.EmbeddingBackendOpenAI:
		return NewOpenAI(cfg.OpenAI, cfg.Dimension)
	case config.EmbeddingBackendSimple, "":
		return NewSimple(cfg.Dimension), nil
	default:
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown embedding backend %q", cfg.Backend))
	}
}
