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
	"github.com/ctxmemory/engine/internal/pattern"
)

func runPatternMatch(cmd *cobra.Command, args []string) {
	if err := requireFlags(map[string]string{"tenant": patternTenantID, "input": matchInput}, []string{"tenant", "input"}); err != nil {
		emit("pattern match", nil, err)
		return
	}
	result, err := withApp(func(ctx context.Context, a *app) (interface{}, error) {
		return a.patterns.MatchPatterns(ctx, patternTenantID, matchInput, matchLimit)
	})
	emit("pattern match", result, err)
}

// recommendPatterns seeds a recommendation with the user's recent memories
// and returns the top-scoring patterns for the given context.
func recommendPatterns(ctx context.Context, a *app, tenantID, userID, contextText string, limit int) ([]*model.Pattern, error) {
	recent, err := a.recaller.GetRecentMemories(ctx, tenantID, userID, 10)
	if err != nil {
		return nil, err
	}
	in := pattern.RecommendationInput{Context: contextText, RecentMemories: recent}
	return a.patterns.GetRecommendations(ctx, tenantID, in, limit)
}

func runPatternRecommend(cmd *cobra.Command, args []string) {
	if err := requireFlags(map[string]string{"tenant": patternTenantID}, []string{"tenant"}); err != nil {
		emit("pattern recommend", nil, err)
		return
	}
	result, err := withApp(func(ctx context.Context, a *app) (interface{}, error) {
		return recommendPatterns(ctx, a, patternTenantID, patternUserID, recContext, matchLimit)
	})
	emit("pattern recommend", result, err)
}

func runPatternRecordOutcome(cmd *cobra.Command, args []string) {
	patternID := args[0]
	result, err := withApp(func(ctx context.Context, a *app) (interface{}, error) {
		in := pattern.OutcomeInput{
			Outcome:  outcomeValue,
			Feedback: outcomeFeedback,
			Context:  recContext,
		}
		return a.patterns.RecordOutcome(ctx, patternID, in)
	})
	emit("pattern record-outcome", result, err)
}
