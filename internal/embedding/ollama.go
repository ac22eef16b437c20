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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ctxmemory/engine/internal/apperrors"
	"github.com/ctxmemory/engine/internal/config"
	"github.com/ctxmemory/engine/internal/metrics"
)

// OllamaProvider calls a local Ollama server's /api/embed endpoint.
//
// Thread safety: OllamaProvider is safe for concurrent use; it holds no
// mutable state beyond the underlying http.Client.
type OllamaProvider struct {
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
}

// NewOllama builds an OllamaProvider from the given config section.
func NewOllama(cfg config.OllamaConfig, dimension int) *OllamaProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OllamaProvider{
		baseURL:   cfg.HostURL,
		model:     cfg.EmbeddingModel,
		dimension: dimension,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *OllamaProvider) Dimension() int { return p.dimension }

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed computes a single embedding via EmbedBatch.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrEmbedding, "ollama embed", fmt.Errorf("empty response"))
	}
	return vectors[0], nil
}

// EmbedBatch calls the Ollama server's embeddings endpoint for all texts.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, apperrors.NewValidation("texts must not be empty")
	}
	start := time.Now()
	status := "ok"
	defer func() {
		metrics.EmbeddingDuration.WithLabelValues("ollama", status).Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		status = "error"
		return nil, apperrors.Wrap(apperrors.ErrEmbedding, "marshal ollama request", err)
	}

	url := p.baseURL + "/api/embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		status = "error"
		return nil, apperrors.Wrap(apperrors.ErrEmbedding, "build ollama request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		status = "error"
		return nil, apperrors.Wrap(apperrors.ErrEmbedding, "call ollama", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		status = "error"
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperrors.Wrap(apperrors.ErrEmbedding, "ollama embeddings", fmt.Errorf("status %d: %s", resp.StatusCode, data))
	}

	var parsed ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		status = "error"
		return nil, apperrors.Wrap(apperrors.ErrEmbedding, "decode ollama response", err)
	}
	if len(parsed.Embeddings) != len(texts) {
		status = "error"
		return nil, apperrors.Wrap(apperrors.ErrEmbedding, "ollama embeddings", fmt.Errorf("expected %d vectors, got %d", len(texts), len(parsed.Embeddings)))
	}
	return parsed.Embeddings, nil
}
