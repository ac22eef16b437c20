// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctxmemory/engine/internal/memorybuilder"
	"github.com/ctxmemory/engine/internal/model"
)

func TestRecallOptionsFromFlagsTranslatesTypesAndLimit(t *testing.T) {
	opts := recallOptionsFromFlags([]string{"episodic", "semantic"}, 5)
	require.Equal(t, 5, opts.Limit)
	require.Equal(t, []model.MemoryType{model.MemoryEpisodic, model.MemorySemantic}, opts.Types)
}

func TestRecallOptionsFromFlagsEmptyTypes(t *testing.T) {
	opts := recallOptionsFromFlags(nil, 10)
	require.Empty(t, opts.Types)
	require.Equal(t, 10, opts.Limit)
}

func TestBuildMemoryThenHybridSearchFindsIt(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	mem, err := a.builder.BuildMemory(ctx, memorybuilder.Input{
		TenantID:   "t1",
		UserID:     "u1",
		MemoryType: model.MemorySemantic,
		Content:    "the release ships next Tuesday",
		Source:     model.SourceConversation,
	})
	require.NoError(t, err)
	require.NotEmpty(t, mem.ID)

	opts := recallOptionsFromFlags(nil, 10)
	results, err := a.recaller.HybridSearch(ctx, "t1", "u1", "release ships", nil, opts)
	require.NoError(t, err)
	require.NotEmpty(t, results)
}
