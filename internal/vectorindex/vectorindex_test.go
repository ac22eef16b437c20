// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package vectorindex

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxmemory/engine/internal/apperrors"
)

func TestAddDimensionMismatch(t *testing.T) {
	idx := New(3)
	err := idx.Add(context.Background(), "v1", []float32{1, 2}, Metadata{SessionID: "s1"})
	require.Error(t, err)
	var dim *apperrors.DimensionMismatchError
	require.True(t, errors.As(err, &dim))
	assert.Equal(t, 3, dim.Expected)
	assert.Equal(t, 2, dim.Actual)
}

func TestSearchFiltersBySessionBeforeScoring(t *testing.T) {
	idx := New(2)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, "a", []float32{1, 0}, Metadata{SessionID: "s1"}))
	require.NoError(t, idx.Add(ctx, "b", []float32{1, 0}, Metadata{SessionID: "s2"}))

	results, err := idx.Search(ctx, []float32{1, 0}, "s1", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestSearchStableTieBreakByInsertionOrder(t *testing.T) {
	idx := New(2)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, "first", []float32{1, 0}, Metadata{SessionID: "s1"}))
	require.NoError(t, idx.Add(ctx, "second", []float32{2, 0}, Metadata{SessionID: "s1"}))

	results, err := idx.Search(ctx, []float32{1, 0}, "s1", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].ID)
	assert.Equal(t, "second", results[1].ID)
	assert.InDelta(t, results[0].Score, results[1].Score, 1e-9)
}

func TestSearchZeroNormScoresZero(t *testing.T) {
	idx := New(2)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, "zero", []float32{0, 0}, Metadata{SessionID: "s1"}))

	results, err := idx.Search(ctx, []float32{1, 1}, "s1", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].Score)
}

func TestDeleteAndCountAndExists(t *testing.T) {
	idx := New(2)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, "a", []float32{1, 0}, Metadata{SessionID: "s1"}))

	count, err := idx.Count(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	exists, err := idx.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, idx.Delete(ctx, "a"))
	exists, err = idx.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, exists)

	count, err = idx.Count(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
