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
	"context"
	"sort"

	"github.com/ctxmemory/engine/internal/apperrors"
	"github.com/ctxmemory/engine/internal/model"
	"github.com/ctxmemory/engine/internal/store"
)

// QueryOptions bounds a BFS graph query.
type QueryOptions struct {
	MaxDepth                 int
	LimitPerDepth            int
	AllowedRelationshipTypes map[model.RelationshipType]bool // nil/empty = all
	AllowedEntityTypes       map[model.EntityType]bool       // nil/empty = all
	MinStrength              float64
}

// Path is a shortest path from the BFS center to one visited entity.
type Path struct {
	EntityIDs       []string
	RelationshipIDs []string
	Strength        float64 // minimum edge strength along the path
}

// QueryResult is the outcome of a graph BFS query.
type QueryResult struct {
	Entities      map[string]*model.Entity
	Relationships map[string]*model.Relationship
	Paths         map[string]Path // entity id -> shortest path from center
}

type edge struct {
	relationship *model.Relationship
	neighborID   string
	seq          int // insertion order of the underlying relationship
}

// buildAdjacency treats every relationship as traversable in both
// directions (a graph query walks the undirected shape of the directed
// edge set) and orders each entity's neighbor list by relationship
// insertion order, the determinism spec.md §4.C9 requires.
func buildAdjacency(rels []*model.Relationship, opts QueryOptions) map[string][]edge {
	adjacency := make(map[string][]edge)
	for seq, r := range rels {
		if len(opts.AllowedRelationshipTypes) > 0 && !opts.AllowedRelationshipTypes[r.RelationshipType] {
			continue
		}
		if r.Strength < opts.MinStrength {
			continue
		}
		adjacency[r.SourceEntityID] = append(adjacency[r.SourceEntityID], edge{relationship: r, neighborID: r.TargetEntityID, seq: seq})
		adjacency[r.TargetEntityID] = append(adjacency[r.TargetEntityID], edge{relationship: r, neighborID: r.SourceEntityID, seq: seq})
	}
	for id := range adjacency {
		edges := adjacency[id]
		sort.SliceStable(edges, func(i, j int) bool {
			if edges[i].seq != edges[j].seq {
				return edges[i].seq < edges[j].seq
			}
			return edges[i].neighborID < edges[j].neighborID
		})
		adjacency[id] = edges
	}
	return adjacency
}

type predecessorEntry struct {
	parentID       string
	relationshipID string
	edgeStrength   float64
}

// bfsCandidate is one not-yet-visited neighbor discovered while expanding
// the current BFS frontier.
type bfsCandidate struct {
	neighborID     string
	relationshipID string
	strength       float64
	seq            int
}

// QueryGraph expands outward from centerEntityID up to opts.MaxDepth hops,
// admitting at most opts.LimitPerDepth entities per level, filtering by
// allowed relationship/entity type sets and opts.MinStrength. It returns
// the visited entity set, the traversed relationship set, and the
// shortest path (via a BFS predecessor table) from the center to every
// other visited entity; path strength is the minimum edge strength along
// the path.
func (m *Manager) QueryGraph(ctx context.Context, tenantID, centerEntityID string, opts QueryOptions) (*QueryResult, error) {
	center, err := m.store.GetEntity(ctx, centerEntityID)
	if err != nil {
		return nil, err
	}

	rels, err := m.store.ListRelationships(ctx, store.Filter{TenantID: tenantID, Limit: 0})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list relationships for graph query", err)
	}
	adjacency := buildAdjacency(rels, opts)

	entities := map[string]*model.Entity{centerEntityID: center}
	relationships := make(map[string]*model.Relationship)
	predecessors := make(map[string]predecessorEntry)
	visited := map[string]bool{centerEntityID: true}

	frontier := []string{centerEntityID}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 1
	}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var candidates []bfsCandidate
		for _, id := range frontier {
			for _, e := range adjacency[id] {
				if visited[e.neighborID] {
					continue
				}
				candidates = append(candidates, bfsCandidate{
					neighborID:     e.neighborID,
					relationshipID: e.relationship.ID,
					strength:       e.relationship.Strength,
					seq:            e.seq,
				})
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].seq != candidates[j].seq {
				return candidates[i].seq < candidates[j].seq
			}
			return candidates[i].neighborID < candidates[j].neighborID
		})

		var nextFrontier []string
		admitted := 0
		for _, c := range candidates {
			if visited[c.neighborID] {
				continue
			}
			if opts.LimitPerDepth > 0 && admitted >= opts.LimitPerDepth {
				break
			}
			entity, err := m.store.GetEntity(ctx, c.neighborID)
			if err != nil {
				continue // entity may have been deleted since the relationship was written
			}
			if len(opts.AllowedEntityTypes) > 0 && !opts.AllowedEntityTypes[entity.EntityType] {
				continue
			}

			visited[c.neighborID] = true
			entities[c.neighborID] = entity
			predecessors[c.neighborID] = predecessorEntry{
				parentID:       parentOf(frontier, c, adjacency),
				relationshipID: c.relationshipID,
				edgeStrength:   c.strength,
			}
			nextFrontier = append(nextFrontier, c.neighborID)
			admitted++
		}
		frontier = nextFrontier
	}

	for _, pred := range predecessors {
		if r, err := m.store.GetRelationship(ctx, pred.relationshipID); err == nil {
			relationships[r.ID] = r
		}
	}

	paths := make(map[string]Path, len(entities)-1)
	for id := range entities {
		if id == centerEntityID {
			continue
		}
		paths[id] = reconstructPath(id, centerEntityID, predecessors)
	}

	return &QueryResult{Entities: entities, Relationships: relationships, Paths: paths}, nil
}

// parentOf finds which frontier entity produced candidate c by scanning
// that entity's adjacency list for the matching relationship id.
func parentOf(frontier []string, c bfsCandidate, adjacency map[string][]edge) string {
	for _, id := range frontier {
		for _, e := range adjacency[id] {
			if e.neighborID == c.neighborID && e.relationship.ID == c.relationshipID {
				return id
			}
		}
	}
	return ""
}

func reconstructPath(entityID, centerID string, predecessors map[string]predecessorEntry) Path {
	var entityIDs []string
	var relationshipIDs []string
	strength := 1.0

	cur := entityID
	entityIDs = append(entityIDs, cur)
	for cur != centerID {
		pred, ok := predecessors[cur]
		if !ok {
			break
		}
		relationshipIDs = append(relationshipIDs, pred.relationshipID)
		if pred.edgeStrength < strength {
			strength = pred.edgeStrength
		}
		cur = pred.parentID
		entityIDs = append(entityIDs, cur)
	}

	// entityIDs was built center-ward; reverse to center->entity order.
	for i, j := 0, len(entityIDs)-1; i < j; i, j = i+1, j-1 {
		entityIDs[i], entityIDs[j] = entityIDs[j], entityIDs[i]
	}
	for i, j := 0, len(relationshipIDs)-1; i < j; i, j = i+1, j-1 {
		relationshipIDs[i], relationshipIDs[j] = relationshipIDs[j], relationshipIDs[i]
	}

	return Path{EntityIDs: entityIDs, RelationshipIDs: relationshipIDs, Strength: strength}
}
