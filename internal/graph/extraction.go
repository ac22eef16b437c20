// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"regexp"
	"strings"

	"github.com/ctxmemory/engine/internal/model"
)

// capitalizedPhrase matches runs of two or more capitalized words, the
// fallback entity candidate shape when no external NER is configured.
var capitalizedPhrase = regexp.MustCompile(`\b[A-Z][a-zA-Z]*(?:\s+[A-Z][a-zA-Z]*)+\b`)

var pronouns = map[string]bool{
	"he": true, "she": true, "him": true, "her": true,
	"they": true, "them": true, "his": true, "hers": true, "their": true,
}

var organizationWords = []string{"company", "team", "organization", "inc", "corp", "corporation", "llc"}
var projectWords = []string{"project", "initiative"}
var toolWords = []string{"software", "tool", "framework", "library"}

// ExtractedEntity is one candidate entity surfaced from free text, not yet
// persisted.
type ExtractedEntity struct {
	Name       string
	Type       model.EntityType
	Mentions   int
	ContentInitial bool
}

func contextWindow(content string, start, end int) string {
	lo := start - 40
	if lo < 0 {
		lo = 0
	}
	hi := end + 40
	if hi > len(content) {
		hi = len(content)
	}
	return strings.ToLower(content[lo:hi])
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func inferEntityType(context string) model.EntityType {
	words := strings.Fields(context)
	for _, w := range words {
		if pronouns[strings.Trim(w, ".,!?;:")] {
			return model.EntityPerson
		}
	}
	switch {
	case containsAny(context, organizationWords):
		return model.EntityOrganization
	case containsAny(context, projectWords):
		return model.EntityProject
	case containsAny(context, toolWords):
		return model.EntityTool
	default:
		return model.EntityConcept
	}
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ExtractEntities regex-identifies capitalized multi-word phrases (2-50
// characters) in content, infers an EntityType from the surrounding
// context tokens, and computes a mention-frequency confidence score, per
// spec.md §4.C9's extraction contract.
func ExtractEntities(content string) []ExtractedEntity {
	matches := capitalizedPhrase.FindAllStringIndex(content, -1)
	byName := make(map[string]*ExtractedEntity)
	var order []string

	for _, m := range matches {
		name := content[m[0]:m[1]]
		if len(name) < 2 || len(name) > 50 {
			continue
		}
		ctx := contextWindow(content, m[0], m[1])
		if existing, ok := byName[name]; ok {
			existing.Mentions++
			continue
		}
		entityType := inferEntityType(ctx)
		e := &ExtractedEntity{
			Name:           name,
			Type:           entityType,
			Mentions:       1,
			ContentInitial: m[0] == 0,
		}
		byName[name] = e
		order = append(order, name)
	}

	out := make([]ExtractedEntity, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out
}

// Confidence computes clamp(mentions/10 + 0.1 boost when the name is
// content-initial, 0.1, 0.9), per spec.md §4.C9.
func (e ExtractedEntity) Confidence() float64 {
	score := float64(e.Mentions) / 10.0
	if e.ContentInitial {
		score += 0.1
	}
	return clampRange(score, 0.1, 0.9)
}

// connectivePattern pairs a regex (capturing X and Y) with the
// relationship type it denotes.
type connectivePattern struct {
	re   *regexp.Regexp
	kind model.RelationshipType
}

var connectivePatterns = []connectivePattern{
	{regexp.MustCompile(`\b([A-Z][a-zA-Z]*(?:\s+[A-Z][a-zA-Z]*)*)\s+uses\s+([A-Z][a-zA-Z]*(?:\s+[A-Z][a-zA-Z]*)*)\b`), model.RelUses},
	{regexp.MustCompile(`\b([A-Z][a-zA-Z]*(?:\s+[A-Z][a-zA-Z]*)*)\s+depends on\s+([A-Z][a-zA-Z]*(?:\s+[A-Z][a-zA-Z]*)*)\b`), model.RelDependsOn},
	{regexp.MustCompile(`\b([A-Z][a-zA-Z]*(?:\s+[A-Z][a-zA-Z]*)*)\s+works on\s+([A-Z][a-zA-Z]*(?:\s+[A-Z][a-zA-Z]*)*)\b`), model.RelWorksOn},
	{regexp.MustCompile(`\b([A-Z][a-zA-Z]*(?:\s+[A-Z][a-zA-Z]*)*)\s+part of\s+([A-Z][a-zA-Z]*(?:\s+[A-Z][a-zA-Z]*)*)\b`), model.RelPartOf},
	{regexp.MustCompile(`\b([A-Z][a-zA-Z]*(?:\s+[A-Z][a-zA-Z]*)*)\s+belongs to\s+([A-Z][a-zA-Z]*(?:\s+[A-Z][a-zA-Z]*)*)\b`), model.RelBelongsTo},
}

// ExtractedRelationship is one connective-pattern match, naming the two
// entity names involved and the type it denotes. Callers resolve the
// names to entity ids via discover_entity before persisting.
type ExtractedRelationship struct {
	SourceName string
	TargetName string
	Type       model.RelationshipType
}

// ExtractRelationships scans content for the closed set of connective
// patterns spec.md §4.C9 names ("X uses Y", "X depends on Y", ...).
func ExtractRelationships(content string) []ExtractedRelationship {
	var out []ExtractedRelationship
	for _, p := range connectivePatterns {
		for _, m := range p.re.FindAllStringSubmatch(content, -1) {
			out = append(out, ExtractedRelationship{
				SourceName: m[1],
				TargetName: m[2],
				Type:       p.kind,
			})
		}
	}
	return out
}
