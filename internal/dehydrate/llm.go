// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dehydrate

import (
	"context"
	"strings"
	"time"

	"github.com/ctxmemory/engine/internal/model"
)

// Generator is the minimal LLM surface a dehydration backend needs: a
// single-prompt completion call. Shaped after the LLMClient.Generate
// method so any of the engine's embedding/chat backends can supply one.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMSummarizer asks a Generator for a one-line gist and falls back to the
// RuleBasedSummarizer on any failure, so indexing never blocks on LLM
// availability.
type LLMSummarizer struct {
	gen      Generator
	fallback *RuleBasedSummarizer
}

// NewLLMSummarizer wraps gen with rule-based fallback behavior.
func NewLLMSummarizer(gen Generator, fallback *RuleBasedSummarizer) *LLMSummarizer {
	if fallback == nil {
		fallback = NewRuleBased(0, 0, 0)
	}
	return &LLMSummarizer{gen: gen, fallback: fallback}
}

// Summarize asks the LLM for a gist, reuses the rule-based topic/tag
// extraction (cheap, deterministic), and falls back entirely to the
// rule-based path if the LLM call fails.
func (s *LLMSummarizer) Summarize(ctx context.Context, content string) (model.Dehydrated, error) {
	base, err := s.fallback.Summarize(ctx, content)
	if err != nil {
		return model.Dehydrated{}, err
	}

	prompt := "Summarize the following in one short sentence:\n\n" + content
	gist, err := s.gen.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(gist) == "" {
		return base, nil
	}

	base.Gist = strings.TrimSpace(gist)
	base.GeneratedAt = time.Now().UTC()
	base.Generator = "llm-dehydration"
	return base, nil
}
