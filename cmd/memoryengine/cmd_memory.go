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

	"github.com/spf13/cobra"

	"github.com/ctxmemory/engine/internal/memorybuilder"
	"github.com/ctxmemory/engine/internal/model"
	"github.com/ctxmemory/engine/internal/recall"
)

func runMemoryCreate(cmd *cobra.Command, args []string) {
	if err := requireFlags(map[string]string{"tenant": memTenantID, "user": memUserID, "content": memContent},
		[]string{"tenant", "user", "content"}); err != nil {
		emit("memory create", nil, err)
		return
	}
	in := memorybuilder.Input{
		TenantID:   memTenantID,
		UserID:     memUserID,
		MemoryType: model.MemoryType(memType),
		Content:    memContent,
		Source:     model.MemorySource(memSource),
		SourceID:   memSourceID,
	}
	result, err := withApp(func(ctx context.Context, a *app) (interface{}, error) {
		return a.builder.BuildMemory(ctx, in)
	})
	emit("memory create", result, err)
}

// recallOptionsFromFlags translates the "memory recall" flag set into
// recall.Options.
func recallOptionsFromFlags(types []string, limit int) recall.Options {
	out := make([]model.MemoryType, 0, len(types))
	for _, t := range types {
		out = append(out, model.MemoryType(t))
	}
	return recall.Options{Types: out, Limit: limit}
}

func runMemoryRecall(cmd *cobra.Command, args []string) {
	if err := requireFlags(map[string]string{"tenant": memTenantID, "user": memUserID, "query": recallQuery},
		[]string{"tenant", "user", "query"}); err != nil {
		emit("memory recall", nil, err)
		return
	}
	opts := recallOptionsFromFlags(recallTypes, recallLimit)
	result, err := withApp(func(ctx context.Context, a *app) (interface{}, error) {
		return a.recaller.HybridSearch(ctx, memTenantID, memUserID, recallQuery, recallKeywords, opts)
	})
	emit("memory recall", result, err)
}
