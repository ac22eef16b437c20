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
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ctxmemory/engine/internal/apperrors"
	"github.com/ctxmemory/engine/internal/config"
	"github.com/ctxmemory/engine/internal/metrics"
)

// OpenAIProvider calls the OpenAI embeddings API via sashabaranov/go-openai.
// Not required by the spec's external interface contract, but a recognized
// option since the contract only says "no others required", not "no others
// permitted".
type OpenAIProvider struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dimension int
}

// NewOpenAI builds an OpenAIProvider from the given config section.
func NewOpenAI(cfg config.OpenAIConfig, dimension int) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.NewValidation("openai embedding backend requires an api_key")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     openai.EmbeddingModel(cfg.EmbeddingModel),
		dimension: dimension,
	}, nil
}

func (p *OpenAIProvider) Dimension() int { return p.dimension }

// Embed computes a single embedding via EmbedBatch.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch calls the OpenAI embeddings endpoint for all texts.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, apperrors.NewValidation("texts must not be empty")
	}
	start := time.Now()
	status := "ok"
	defer func() {
		metrics.EmbeddingDuration.WithLabelValues("openai", status).Observe(time.Since(start).Seconds())
	}()

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: p.model,
	})
	if err != nil {
		status = "error"
		return nil, apperrors.Wrap(apperrors.ErrEmbedding, "call openai embeddings", err)
	}
	if len(resp.Data) != len(texts) {
		status = "error"
		return nil, apperrors.Wrap(apperrors.ErrEmbedding, "openai embeddings", apperrors.ErrInternal)
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		out[d.Index] = d.Embedding
	}
	return out, nil
}
