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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath string

	// session flags
	sessionTenantID string
	sessionName     string
	turnContent     string
	turnUserID      string
	turnRole        string
	listPage        int
	listPageSize    int

	// index flags
	indexSearchQuery string
	indexSearchLimit int

	// memory flags
	memTenantID    string
	memUserID      string
	memType        string
	memContent     string
	memSource      string
	memSourceID    string
	recallQuery    string
	recallLimit    int
	recallTypes    []string
	recallKeywords []string

	// graph flags
	entityTenantID string
	entityName     string
	entityType     string
	mergeTargetID  string
	mergeSourceID  string

	// pattern flags
	patternTenantID string
	patternUserID   string
	matchInput      string
	matchLimit      int
	outcomeValue    float64
	outcomeFeedback string
	recContext      string

	// profile flags
	profileTenantID string
	profileUserID   string
	profileField    string
	profileValue    string
	profileReason   string
	factContent     string
	factCategory    string

	rootCmd = &cobra.Command{
		Use:   "memoryengine",
		Short: "A CLI front door to the persistent context-memory engine",
		Long: `memoryengine exposes the session, indexing, recall, graph, and
pattern components of the context-memory engine as one-shot commands, each
printing a JSON result to stdout.`,
	}

	// --- Sessions ---
	sessionCmd = &cobra.Command{
		Use:   "session",
		Short: "Manage conversation sessions",
	}
	sessionCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Create a new session",
		Run:   runSessionCreate, // Defined in cmd_session.go
	}
	sessionAppendCmd = &cobra.Command{
		Use:   "append [session-id]",
		Short: "Append a turn to a session",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionAppend, // Defined in cmd_session.go
	}
	sessionListCmd = &cobra.Command{
		Use:   "list [session-id]",
		Short: "List turns in a session",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionListTurns, // Defined in cmd_session.go
	}
	sessionArchiveCmd = &cobra.Command{
		Use:   "archive [session-id]",
		Short: "Archive a session",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionArchive, // Defined in cmd_session.go
	}
	sessionDeleteCmd = &cobra.Command{
		Use:   "delete [session-id]",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionDelete, // Defined in cmd_session.go
	}

	// --- Indexing ---
	indexCmd = &cobra.Command{
		Use:   "index",
		Short: "Project turns into the retrieval plane",
	}
	indexTurnCmd = &cobra.Command{
		Use:   "turn [session-id] [turn-id]",
		Short: "Index a single turn (embed, vector/full-text write)",
		Args:  cobra.ExactArgs(2),
		Run:   runIndexTurn, // Defined in cmd_index.go
	}
	indexSearchCmd = &cobra.Command{
		Use:   "search [session-id]",
		Short: "Hybrid-search a session's indexed turns (vector + full-text, RRF-fused)",
		Args:  cobra.ExactArgs(1),
		Run:   runIndexSearch, // Defined in cmd_index.go
	}

	// --- Memory ---
	memoryCmd = &cobra.Command{
		Use:   "memory",
		Short: "Build and recall durable memories",
	}
	memoryCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Build a new memory from content",
		Run:   runMemoryCreate, // Defined in cmd_memory.go
	}
	memoryRecallCmd = &cobra.Command{
		Use:   "recall",
		Short: "Hybrid-search memories for a tenant/user",
		Run:   runMemoryRecall, // Defined in cmd_memory.go
	}

	// --- Graph ---
	graphCmd = &cobra.Command{
		Use:   "graph",
		Short: "Manage the entity/relationship knowledge graph",
	}
	graphDiscoverCmd = &cobra.Command{
		Use:   "discover",
		Short: "Discover or update an entity by name",
		Run:   runGraphDiscover, // Defined in cmd_graph.go
	}
	graphQueryCmd = &cobra.Command{
		Use:   "query [entity-id]",
		Short: "Fetch an entity and its relationships",
		Args:  cobra.ExactArgs(1),
		Run:   runGraphQuery, // Defined in cmd_graph.go
	}
	graphMergeCmd = &cobra.Command{
		Use:   "merge",
		Short: "Merge a duplicate entity into a target entity",
		Run:   runGraphMerge, // Defined in cmd_graph.go
	}

	// --- Patterns ---
	patternCmd = &cobra.Command{
		Use:   "pattern",
		Short: "Match, recommend, and score reusable patterns",
	}
	patternMatchCmd = &cobra.Command{
		Use:   "match",
		Short: "Match patterns against an input string",
		Run:   runPatternMatch, // Defined in cmd_pattern.go
	}
	patternRecommendCmd = &cobra.Command{
		Use:   "recommend",
		Short: "Recommend patterns for the current context",
		Run:   runPatternRecommend, // Defined in cmd_pattern.go
	}
	patternOutcomeCmd = &cobra.Command{
		Use:   "record-outcome [pattern-id]",
		Short: "Record a usage outcome against a pattern",
		Args:  cobra.ExactArgs(1),
		Run:   runPatternRecordOutcome, // Defined in cmd_pattern.go
	}

	// --- Profiles ---
	profileCmd = &cobra.Command{
		Use:   "profile",
		Short: "Manage per-user profiles",
	}
	profileGetCmd = &cobra.Command{
		Use:   "get",
		Short: "Get or create a user's profile summary",
		Run:   runProfileGet, // Defined in cmd_profile.go
	}
	profileUpdateCmd = &cobra.Command{
		Use:   "update",
		Short: "Update a scalar profile field",
		Run:   runProfileUpdate, // Defined in cmd_profile.go
	}
	profileAddFactCmd = &cobra.Command{
		Use:   "add-fact",
		Short: "Add a fact to a user's profile",
		Run:   runProfileAddFact, // Defined in cmd_profile.go
	}
)

func init() {
	sessionCreateCmd.Flags().StringVar(&sessionTenantID, "tenant", "", "tenant id (required)")
	sessionCreateCmd.Flags().StringVar(&sessionName, "name", "", "session name (required)")

	sessionAppendCmd.Flags().StringVar(&turnContent, "content", "", "raw turn content (required)")
	sessionAppendCmd.Flags().StringVar(&turnUserID, "user", "", "user id")
	sessionAppendCmd.Flags().StringVar(&turnRole, "role", "user", "message role")

	sessionListCmd.Flags().IntVar(&listPage, "page", 1, "page number")
	sessionListCmd.Flags().IntVar(&listPageSize, "page-size", 20, "page size")

	indexSearchCmd.Flags().StringVar(&indexSearchQuery, "query", "", "search text (required)")
	indexSearchCmd.Flags().IntVar(&indexSearchLimit, "limit", 10, "max results")

	memoryCreateCmd.Flags().StringVar(&memTenantID, "tenant", "", "tenant id (required)")
	memoryCreateCmd.Flags().StringVar(&memUserID, "user", "", "user id (required)")
	memoryCreateCmd.Flags().StringVar(&memType, "type", "episodic", "memory type: episodic|semantic|procedural|profile")
	memoryCreateCmd.Flags().StringVar(&memContent, "content", "", "memory content (required)")
	memoryCreateCmd.Flags().StringVar(&memSource, "source", "conversation", "source: conversation|research|execution|user_config")
	memoryCreateCmd.Flags().StringVar(&memSourceID, "source-id", "", "id of the originating record")

	memoryRecallCmd.Flags().StringVar(&memTenantID, "tenant", "", "tenant id (required)")
	memoryRecallCmd.Flags().StringVar(&memUserID, "user", "", "user id (required)")
	memoryRecallCmd.Flags().StringVar(&recallQuery, "query", "", "search query (required)")
	memoryRecallCmd.Flags().IntVar(&recallLimit, "limit", 10, "max results")
	memoryRecallCmd.Flags().StringSliceVar(&recallTypes, "types", nil, "restrict to these memory types")
	memoryRecallCmd.Flags().StringSliceVar(&recallKeywords, "keywords", nil, "contextual keywords")

	graphDiscoverCmd.Flags().StringVar(&entityTenantID, "tenant", "", "tenant id (required)")
	graphDiscoverCmd.Flags().StringVar(&entityName, "name", "", "entity name (required)")
	graphDiscoverCmd.Flags().StringVar(&entityType, "type", "", "entity type (required)")

	graphMergeCmd.Flags().StringVar(&mergeTargetID, "target", "", "surviving entity id (required)")
	graphMergeCmd.Flags().StringVar(&mergeSourceID, "source", "", "duplicate entity id to merge and delete (required)")

	patternMatchCmd.Flags().StringVar(&patternTenantID, "tenant", "", "tenant id (required)")
	patternMatchCmd.Flags().StringVar(&matchInput, "input", "", "text to match triggers against (required)")
	patternMatchCmd.Flags().IntVar(&matchLimit, "limit", 5, "max patterns returned")

	patternRecommendCmd.Flags().StringVar(&patternTenantID, "tenant", "", "tenant id (required)")
	patternRecommendCmd.Flags().StringVar(&patternUserID, "user", "", "user id whose recent memories seed the recommendation")
	patternRecommendCmd.Flags().StringVar(&recContext, "context", "", "current context text")
	patternRecommendCmd.Flags().IntVar(&matchLimit, "limit", 5, "max patterns returned")

	patternOutcomeCmd.Flags().Float64Var(&outcomeValue, "outcome", 0, "outcome score, -1..1")
	patternOutcomeCmd.Flags().StringVar(&outcomeFeedback, "feedback", "", "free-text feedback")

	profileGetCmd.Flags().StringVar(&profileTenantID, "tenant", "", "tenant id (required)")
	profileGetCmd.Flags().StringVar(&profileUserID, "user", "", "user id (required)")

	profileUpdateCmd.Flags().StringVar(&profileTenantID, "tenant", "", "tenant id (required)")
	profileUpdateCmd.Flags().StringVar(&profileUserID, "user", "", "user id (required)")
	profileUpdateCmd.Flags().StringVar(&profileField, "field", "", "field name (required)")
	profileUpdateCmd.Flags().StringVar(&profileValue, "value", "", "new value")
	profileUpdateCmd.Flags().StringVar(&profileReason, "reason", "", "reason recorded in the change history")

	profileAddFactCmd.Flags().StringVar(&profileTenantID, "tenant", "", "tenant id (required)")
	profileAddFactCmd.Flags().StringVar(&profileUserID, "user", "", "user id (required)")
	profileAddFactCmd.Flags().StringVar(&factContent, "content", "", "fact content (required)")
	profileAddFactCmd.Flags().StringVar(&factCategory, "category", "personal", "fact category")

	sessionCmd.AddCommand(sessionCreateCmd, sessionAppendCmd, sessionListCmd, sessionArchiveCmd, sessionDeleteCmd)
	indexCmd.AddCommand(indexTurnCmd, indexSearchCmd)
	memoryCmd.AddCommand(memoryCreateCmd, memoryRecallCmd)
	graphCmd.AddCommand(graphDiscoverCmd, graphQueryCmd, graphMergeCmd)
	patternCmd.AddCommand(patternMatchCmd, patternRecommendCmd, patternOutcomeCmd)
	profileCmd.AddCommand(profileGetCmd, profileUpdateCmd, profileAddFactCmd)

	rootCmd.AddCommand(sessionCmd, indexCmd, memoryCmd, graphCmd, patternCmd, profileCmd)
}
