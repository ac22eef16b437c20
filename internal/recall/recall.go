// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package recall implements the Memory Recall contract (C10): a
// hybrid_search over semantic, temporal, and contextual paths run
// concurrently and fused by reciprocal rank fusion (C6's Fuse helper).
package recall

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ctxmemory/engine/internal/cache"
	"github.com/ctxmemory/engine/internal/indexing"
	"github.com/ctxmemory/engine/internal/metrics"
	"github.com/ctxmemory/engine/internal/model"
	"github.com/ctxmemory/engine/internal/obslog"
	"github.com/ctxmemory/engine/internal/store"
)

// defaultWeights holds the default RRF fusion weights for the three recall paths.
var defaultWeights = []float64{0.6, 0.3, 0.1}

// Options bounds a hybrid_search call.
type Options struct {
	MinImportance *float64
	Types         []model.MemoryType
	Limit         int
	Weights       []float64 // semantic, temporal, contextual; defaults to 0.6/0.3/0.1
}

// SearchResultItem is one fused recall hit with its per-path match reasons.
type SearchResultItem struct {
	Memory       *model.Memory
	Score        float64
	MatchReasons []string
}

// Recaller implements C10 over a Persistence store. HybridSearch results
// are cached per (tenant, user, query, keywords, opts) through C12's TTL
// cache (spec.md §9: "the core does not require caching for correctness"
// -- a cache miss or a disabled cache still produces the same result, only
// slower), so repeated recalls for the same query don't re-run all three
// paths.
type Recaller struct {
	store store.Persistence
	cache *cache.Cache[string, []SearchResultItem]
}

// New builds a Recaller.
func New(s store.Persistence) *Recaller {
	return &Recaller{store: s, cache: cache.New[string, []SearchResultItem](cache.DefaultOptions())}
}

func matchesTypes(t model.MemoryType, allowed []model.MemoryType) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}

func (r *Recaller) candidateMemories(ctx context.Context, tenantID, userID string, opts Options) ([]*model.Memory, error) {
	mems, err := r.store.ListMemories(ctx, store.Filter{
		TenantID:      tenantID,
		UserID:        userID,
		ImportanceMin: opts.MinImportance,
		Limit:         0,
	})
	if err != nil {
		return nil, err
	}
	out := mems[:0]
	for _, m := range mems {
		if matchesTypes(m.MemoryType, opts.Types) {
			out = append(out, m)
		}
	}
	return out, nil
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	return fields
}

// semanticScore computes deterministic, zero-when-no-token-matches,
// coverage-monotonic scoring over content/gist/tags/topics, the Open
// Question #1 fallback spec.md §4.C10 names when no embeddings are
// available to the recall path.
func semanticScore(query string, m *model.Memory) float64 {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return 0
	}
	haystack := strings.ToLower(strings.Join([]string{m.Content, m.Gist, strings.Join(m.Tags, " "), strings.Join(m.Topics, " ")}, " "))
	matched := 0
	for _, t := range tokens {
		if strings.Contains(haystack, t) {
			matched++
		}
	}
	return model.Clamp01(float64(matched) / float64(len(tokens)))
}

func temporalTier(age time.Duration) float64 {
	switch {
	case age < time.Hour:
		return 1.0
	case age < 24*time.Hour:
		return 0.9
	case age < 7*24*time.Hour:
		return 0.7
	case age < 30*24*time.Hour:
		return 0.5
	default:
		return 0.3
	}
}

func temporalScore(now time.Time, m *model.Memory) float64 {
	return temporalTier(now.Sub(m.CreatedAt)) * m.Importance
}

func (r *Recaller) contextualScore(profile *model.Profile, contextKeywords []string, m *model.Memory) float64 {
	if profile == nil {
		return 0
	}
	points := 0.0
	total := 0.0

	total++
	if overlapsAny(m.Topics, profile.Interests) || overlapsAny(m.Tags, profile.Interests) {
		points++
	}
	total++
	if overlapsAny(m.Topics, profile.ToolsUsed) || overlapsAny(m.Tags, profile.ToolsUsed) {
		points++
	}
	if len(contextKeywords) > 0 {
		total++
		lower := strings.ToLower(m.Content)
		for _, kw := range contextKeywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				points++
				break
			}
		}
	}
	total++
	if len(m.Topics) > 0 {
		points++
	}

	if total == 0 {
		return 0
	}
	return model.Clamp01(points / total)
}

func overlapsAny(a, b []string) bool {
	set := make(map[string]bool, len(b))
	for _, v := range b {
		set[strings.ToLower(v)] = true
	}
	for _, v := range a {
		if set[strings.ToLower(v)] {
			return true
		}
	}
	return false
}

type pathResult struct {
	ranked indexing.RankedList
	scores map[string]float64
}

// recallCacheKey derives a deterministic cache key from HybridSearch's
// inputs. MinImportance is dereferenced (not formatted by pointer address)
// so identical queries actually share a cache entry across calls.
func recallCacheKey(tenantID, userID, query string, contextKeywords []string, opts Options) string {
	types := make([]string, len(opts.Types))
	for i, t := range opts.Types {
		types[i] = string(t)
	}
	minImportance := "nil"
	if opts.MinImportance != nil {
		minImportance = strconv.FormatFloat(*opts.MinImportance, 'f', -1, 64)
	}
	return strings.Join([]string{
		tenantID, userID, query,
		strings.Join(contextKeywords, ","),
		strings.Join(types, ","),
		minImportance,
		fmt.Sprint(opts.Limit),
		fmt.Sprint(opts.Weights),
	}, "|")
}

// HybridSearch implements spec.md §4.C10's three-path concurrent recall,
// fusing semantic/temporal/contextual rankings via RRF with default
// weights 0.6/0.3/0.1. Any path error propagates and cancels the others.
// Results are served from the C12 cache on a repeated query within its TTL.
func (r *Recaller) HybridSearch(ctx context.Context, tenantID, userID, query string, contextKeywords []string, opts Options) ([]SearchResultItem, error) {
	key := recallCacheKey(tenantID, userID, query, contextKeywords, opts)
	return r.cache.Get(ctx, key, func(ctx context.Context) ([]SearchResultItem, error) {
		return r.hybridSearchUncached(ctx, tenantID, userID, query, contextKeywords, opts)
	})
}

func (r *Recaller) hybridSearchUncached(ctx context.Context, tenantID, userID, query string, contextKeywords []string, opts Options) ([]SearchResultItem, error) {
	ctx, span := obslog.StartSpan(ctx, "recall", "HybridSearch")
	defer span.End()

	start := time.Now()
	status := "success"
	defer func() {
		metrics.RecallDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}()

	var semantic, temporal, contextual pathResult
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pathStart := time.Now()
		mems, err := r.candidateMemories(gctx, tenantID, userID, opts)
		pathStatus := "success"
		defer func() {
			metrics.RecallPathDuration.WithLabelValues("semantic", pathStatus).Observe(time.Since(pathStart).Seconds())
		}()
		if err != nil {
			pathStatus = "error"
			return err
		}
		semantic = rankByScore(mems, func(m *model.Memory) float64 { return semanticScore(query, m) })
		return nil
	})

	g.Go(func() error {
		pathStart := time.Now()
		mems, err := r.candidateMemories(gctx, tenantID, userID, opts)
		pathStatus := "success"
		defer func() {
			metrics.RecallPathDuration.WithLabelValues("temporal", pathStatus).Observe(time.Since(pathStart).Seconds())
		}()
		if err != nil {
			pathStatus = "error"
			return err
		}
		now := time.Now().UTC()
		temporal = rankByScore(mems, func(m *model.Memory) float64 { return temporalScore(now, m) })
		return nil
	})

	g.Go(func() error {
		pathStart := time.Now()
		mems, err := r.candidateMemories(gctx, tenantID, userID, opts)
		pathStatus := "success"
		defer func() {
			metrics.RecallPathDuration.WithLabelValues("contextual", pathStatus).Observe(time.Since(pathStart).Seconds())
		}()
		if err != nil {
			pathStatus = "error"
			return err
		}
		profile, perr := r.store.GetProfileByUser(gctx, tenantID, userID)
		if perr != nil {
			profile = nil
		}
		contextual = rankByScore(mems, func(m *model.Memory) float64 { return r.contextualScore(profile, contextKeywords, m) })
		return nil
	})

	if err := g.Wait(); err != nil {
		status = "error"
		return nil, err
	}

	weights := opts.Weights
	if len(weights) == 0 {
		weights = defaultWeights
	}
	fused := indexing.Fuse([]indexing.RankedList{semantic.ranked, temporal.ranked, contextual.ranked}, weights)

	byID := make(map[string]*model.Memory)
	all, err := r.candidateMemories(ctx, tenantID, userID, opts)
	if err != nil {
		status = "error"
		return nil, err
	}
	for _, m := range all {
		byID[m.ID] = m
	}

	limit := opts.Limit
	items := make([]SearchResultItem, 0, len(fused))
	for _, f := range fused {
		m, ok := byID[f.ID]
		if !ok {
			continue
		}
		reasons := matchReasons(f.ID, semantic.scores, temporal.scores, contextual.scores)
		items = append(items, SearchResultItem{Memory: m, Score: f.Score, MatchReasons: reasons})
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func rankByScore(mems []*model.Memory, score func(*model.Memory) float64) pathResult {
	type scored struct {
		id  string
		val float64
		seq int
	}
	ranked := make([]scored, 0, len(mems))
	scores := make(map[string]float64, len(mems))
	for i, m := range mems {
		s := score(m)
		scores[m.ID] = s
		ranked = append(ranked, scored{id: m.ID, val: s, seq: i})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].val != ranked[j].val {
			return ranked[i].val > ranked[j].val
		}
		return ranked[i].seq < ranked[j].seq
	})

	list := make(indexing.RankedList, 0, len(ranked))
	for _, r := range ranked {
		if r.val <= 0 {
			continue
		}
		list = append(list, r.id)
	}
	return pathResult{ranked: list, scores: scores}
}

func matchReasons(id string, semantic, temporal, contextual map[string]float64) []string {
	var reasons []string
	if v, ok := semantic[id]; ok && v > 0 {
		reasons = append(reasons, "semantic match")
	}
	if v, ok := temporal[id]; ok && v > 0 {
		reasons = append(reasons, "temporal relevance")
	}
	if v, ok := contextual[id]; ok && v > 0 {
		reasons = append(reasons, "contextual overlap")
	}
	return reasons
}

// GetRecentMemories is a convenience over ListMemories, sorted descending
// by CreatedAt and truncated to limit.
func (r *Recaller) GetRecentMemories(ctx context.Context, tenantID, userID string, limit int) ([]*model.Memory, error) {
	mems, err := r.store.ListMemories(ctx, store.Filter{TenantID: tenantID, UserID: userID, Limit: 0})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(mems, func(i, j int) bool { return mems[i].CreatedAt.After(mems[j].CreatedAt) })
	if limit > 0 && len(mems) > limit {
		mems = mems[:limit]
	}
	return mems, nil
}
