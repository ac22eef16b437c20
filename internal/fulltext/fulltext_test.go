// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fulltext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchRequiresAllTokens(t *testing.T) {
	idx := New()
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, "a", "the quick brown fox", "s1"))
	require.NoError(t, idx.Add(ctx, "b", "the quick fox", "s1"))

	results, err := idx.Search(ctx, "quick brown", "s1", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestSearchIsCaseInsensitiveSubstring(t *testing.T) {
	idx := New()
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, "a", "Hello World", "s1"))

	results, err := idx.Search(ctx, "hello", "s1", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestSearchFiltersBySession(t *testing.T) {
	idx := New()
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, "a", "shared token content", "s1"))
	require.NoError(t, idx.Add(ctx, "b", "shared token content", "s2"))

	results, err := idx.Search(ctx, "shared", "s1", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestScoreFormulaShortTokensAndRepeats(t *testing.T) {
	idx := New()
	ctx := context.Background()
	// token "go" (len 2) appears twice: 2/(2+1) = 0.6667
	require.NoError(t, idx.Add(ctx, "a", "go go lang", "s1"))
	// token "lang" (len 4) appears once: 1/(4+1) = 0.2
	require.NoError(t, idx.Add(ctx, "b", "lang only", "s1"))

	resultsGo, err := idx.Search(ctx, "go", "s1", 10)
	require.NoError(t, err)
	require.Len(t, resultsGo, 1)
	assert.InDelta(t, 2.0/3.0, resultsGo[0].Score, 1e-9)

	resultsLang, err := idx.Search(ctx, "lang", "s1", 10)
	require.NoError(t, err)
	require.Len(t, resultsLang, 2)
	assert.InDelta(t, 0.2, resultsLang[0].Score, 1e-9)
}

func TestSearchStableTieBreakByInsertionOrder(t *testing.T) {
	idx := New()
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, "first", "match token", "s1"))
	require.NoError(t, idx.Add(ctx, "second", "match token", "s1"))

	results, err := idx.Search(ctx, "match", "s1", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].ID)
	assert.Equal(t, "second", results[1].ID)
}

func TestSearchNoMatchReturnsEmpty(t *testing.T) {
	idx := New()
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, "a", "nothing relevant here", "s1"))

	results, err := idx.Search(ctx, "absent", "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDeleteAndCount(t *testing.T) {
	idx := New()
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, "a", "content one", "s1"))
	require.NoError(t, idx.Add(ctx, "b", "content two", "s1"))

	count, err := idx.Count(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, idx.Delete(ctx, "a"))
	count, err = idx.Count(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := idx.Search(ctx, "content", "s1", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestSearchRespectsK(t *testing.T) {
	idx := New()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, idx.Add(ctx, id, "shared token", "s1"))
	}

	results, err := idx.Search(ctx, "shared", "s1", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
