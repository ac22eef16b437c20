// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dehydrate provides the Summarizer contract (C2): turning a raw
// turn's content into a gist, topic list, and tag list suitable for
// full-text indexing and quick display.
package dehydrate

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ctxmemory/engine/internal/model"
)

// Summarizer produces a Dehydrated view of raw turn content.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (model.Dehydrated, error)
}

var stopWords = map[string]struct{}{
	"that": {}, "the": {}, "is": {}, "a": {}, "an": {}, "and": {}, "or": {},
	"but": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "from": {}, "as": {}, "be": {}, "was": {}, "were": {},
	"been": {}, "it": {}, "this": {}, "these": {}, "those": {}, "are": {},
}

var topicPatterns = []struct {
	topic    string
	patterns []string
}{
	{"programming", []string{"code", "function", "class", "api", "programming", "bug", "compile"}},
	{"ai", []string{"ai", "model", "llm", "gpt", "machine learning", "embedding", "neural"}},
	{"database", []string{"database", "sql", "query", "db", "schema", "index"}},
	{"web", []string{"http", "web", "server", "client", "endpoint", "request"}},
	{"system", []string{"system", "os", "linux", "windows", "process", "thread", "kernel"}},
}

// RuleBasedSummarizer implements Summarizer with no external dependency:
// clean whitespace, truncate to a gist, extract frequency-ranked keywords
// as tags, and classify topics from keyword patterns with a keyword
// fallback. Grounded on the dehydration algorithm of the system this spec
// was distilled from; no ecosystem summarization library offers this
// offline, deterministic behavior, so it is implemented on the standard
// library.
type RuleBasedSummarizer struct {
	MaxGistLength int
	MaxTopics     int
	MaxTags       int
}

// NewRuleBased builds a RuleBasedSummarizer with the given limits. Zero
// values fall back to sane defaults.
func NewRuleBased(maxGistLength, maxTopics, maxTags int) *RuleBasedSummarizer {
	if maxGistLength <= 0 {
		maxGistLength = 200
	}
	if maxTopics <= 0 {
		maxTopics = 5
	}
	if maxTags <= 0 {
		maxTags = 10
	}
	return &RuleBasedSummarizer{MaxGistLength: maxGistLength, MaxTopics: maxTopics, MaxTags: maxTags}
}

func cleanText(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, " ")
}

func isWordChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
}

func extractKeywords(cleaned string, maxTags int) []string {
	fields := strings.Fields(cleaned)
	freq := make(map[string]int)
	order := make([]string, 0, len(fields))
	for _, word := range fields {
		if len(word) < 2 {
			continue
		}
		lower := strings.ToLower(word)
		if _, stop := stopWords[lower]; stop {
			continue
		}
		valid := true
		for _, r := range word {
			if !isWordChar(r) {
				valid = false
				break
			}
		}
		if !valid {
			continue
		}
		if freq[lower] == 0 {
			order = append(order, lower)
		}
		freq[lower]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})
	if len(order) > maxTags {
		order = order[:maxTags]
	}
	return order
}

func classifyTopics(content string, keywords []string, maxTopics int) []string {
	lower := strings.ToLower(content)
	topics := make([]string, 0, maxTopics)
	seen := make(map[string]struct{})
	for _, tp := range topicPatterns {
		for _, pattern := range tp.patterns {
			if strings.Contains(lower, pattern) {
				if _, ok := seen[tp.topic]; !ok {
					topics = append(topics, tp.topic)
					seen[tp.topic] = struct{}{}
				}
				break
			}
		}
	}
	if len(topics) == 0 {
		for _, kw := range keywords {
			if len(topics) >= maxTopics {
				break
			}
			topics = append(topics, kw)
		}
	}
	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	return topics
}

// Summarize cleans content, derives a gist, tags, and topics.
func (s *RuleBasedSummarizer) Summarize(_ context.Context, content string) (model.Dehydrated, error) {
	cleaned := cleanText(content)

	gist := cleaned
	runes := []rune(cleaned)
	if len(runes) > s.MaxGistLength {
		gist = string(runes[:s.MaxGistLength]) + "..."
	}

	keywords := extractKeywords(cleaned, s.MaxTags)
	topics := classifyTopics(cleaned, keywords, s.MaxTopics)

	return model.Dehydrated{
		Gist:        gist,
		Topics:      topics,
		Tags:        keywords,
		GeneratedAt: time.Now().UTC(),
		Generator:   "rule-based-dehydration",
	}, nil
}
