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

	"github.com/ctxmemory/engine/internal/model"
	"github.com/ctxmemory/engine/internal/store"
)

func runGraphDiscover(cmd *cobra.Command, args []string) {
	if err := requireFlags(map[string]string{"tenant": entityTenantID, "name": entityName, "type": entityType},
		[]string{"tenant", "name", "type"}); err != nil {
		emit("graph discover", nil, err)
		return
	}
	result, err := withApp(func(ctx context.Context, a *app) (interface{}, error) {
		return a.graphs.DiscoverEntity(ctx, entityTenantID, entityName, entityType)
	})
	emit("graph discover", result, err)
}

// graphQueryResult bundles an entity with the relationships it participates
// in on either side, the "query one node's neighborhood" shape a caller
// doing graph traversal needs from a single command.
type graphQueryResult struct {
	Entity        *model.Entity         `json:"entity"`
	Relationships []*model.Relationship `json:"relationships"`
}

// queryGraph fetches entityID and every relationship touching it.
func queryGraph(ctx context.Context, a *app, entityID string) (*graphQueryResult, error) {
	entity, err := a.graphs.GetEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	all, err := a.graphs.ListRelationships(ctx, store.Filter{TenantID: entity.TenantID})
	if err != nil {
		return nil, err
	}
	rels := make([]*model.Relationship, 0)
	for _, r := range all {
		if r.SourceEntityID == entityID || r.TargetEntityID == entityID {
			rels = append(rels, r)
		}
	}
	return &graphQueryResult{Entity: entity, Relationships: rels}, nil
}

func runGraphQuery(cmd *cobra.Command, args []string) {
	entityID := args[0]
	result, err := withApp(func(ctx context.Context, a *app) (interface{}, error) {
		return queryGraph(ctx, a, entityID)
	})
	emit("graph query", result, err)
}

func runGraphMerge(cmd *cobra.Command, args []string) {
	if err := requireFlags(map[string]string{"target": mergeTargetID, "source": mergeSourceID}, []string{"target", "source"}); err != nil {
		emit("graph merge", nil, err)
		return
	}
	result, err := withApp(func(ctx context.Context, a *app) (interface{}, error) {
		return a.graphs.MergeEntities(ctx, mergeTargetID, mergeSourceID)
	})
	emit("graph merge", result, err)
}
