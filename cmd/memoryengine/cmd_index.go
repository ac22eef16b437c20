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

	"github.com/ctxmemory/engine/internal/indexing"
	"github.com/ctxmemory/engine/internal/model"
)

// indexTurn fetches the named turn and runs it through the indexing
// coordinator, the composition the "index turn" command exists to drive.
func indexTurn(ctx context.Context, a *app, sessionID, turnID string) (*model.IndexRecord, error) {
	turn, err := a.store.GetTurn(ctx, sessionID, turnID)
	if err != nil {
		return nil, err
	}
	return a.indexer.IndexTurn(ctx, turn)
}

func runIndexTurn(cmd *cobra.Command, args []string) {
	sessionID, turnID := args[0], args[1]
	result, err := withApp(func(ctx context.Context, a *app) (interface{}, error) {
		return indexTurn(ctx, a, sessionID, turnID)
	})
	emit("index turn", result, err)
}

// hybridSearchSession runs the index-plane fused search (C6) over one
// session's turns, the command behind spec.md Scenario B's
// hybrid_search(session, query, limit).
func hybridSearchSession(ctx context.Context, a *app, sessionID, query string, limit int) ([]indexing.TurnMatch, error) {
	return a.indexer.HybridSearch(ctx, query, sessionID, limit)
}

func runIndexSearch(cmd *cobra.Command, args []string) {
	sessionID := args[0]
	if err := requireFlags(map[string]string{"query": indexSearchQuery}, []string{"query"}); err != nil {
		emit("index search", nil, err)
		return
	}
	result, err := withApp(func(ctx context.Context, a *app) (interface{}, error) {
		return hybridSearchSession(ctx, a, sessionID, indexSearchQuery, indexSearchLimit)
	})
	emit("index search", result, err)
}
