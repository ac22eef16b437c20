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

	"github.com/ctxmemory/engine/internal/apperrors"
	"github.com/ctxmemory/engine/internal/model"
)

func TestIndexTurnIndexesExistingTurn(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	sess, err := a.sessions.CreateSession(ctx, "tenant-1", "standup")
	require.NoError(t, err)
	turn, err := a.sessions.AppendTurn(ctx, sess.ID, "let's ship the release", model.TurnMetadata{
		UserID:      "u1",
		MessageType: model.MessageUser,
		Role:        "user",
	})
	require.NoError(t, err)

	rec, err := indexTurn(ctx, a, sess.ID, turn.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, turn.ID, rec.TurnID)
	require.Equal(t, sess.ID, rec.SessionID)
}

func TestIndexTurnMissingTurnReturnsNotFound(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	_, err := indexTurn(ctx, a, "no-such-session", "no-such-turn")
	require.Error(t, err)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

// TestHybridSearchSessionMatchesScenarioB exercises spec.md Scenario B
// end-to-end through the CLI's extracted orchestration function: append a
// turn, index it, hybrid_search the session, and check the shape the
// scenario requires.
func TestHybridSearchSessionMatchesScenarioB(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	sess, err := a.sessions.CreateSession(ctx, "tenant-1", "scenario-b")
	require.NoError(t, err)
	turn, err := a.sessions.AppendTurn(ctx, sess.ID, "Rust async programming with tokio", model.TurnMetadata{
		UserID:      "u1",
		MessageType: model.MessageUser,
		Role:        "user",
	})
	require.NoError(t, err)

	_, err = indexTurn(ctx, a, sess.ID, turn.ID)
	require.NoError(t, err)

	matches, err := hybridSearchSession(ctx, a, sess.ID, "tokio", 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(matches), 1)

	first := matches[0]
	require.Equal(t, turn.ID, first.TurnID)
	require.NotEmpty(t, first.MatchReasons)
	for _, reason := range first.MatchReasons {
		require.Contains(t, []string{"semantic", "full_text", "vector"}, reason)
	}
	require.Greater(t, first.Score, 0.0)
}
