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
)

func TestGetProfileWithSummaryCreatesOnFirstUse(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	summary, err := getProfileWithSummary(ctx, a, "t1", "u1")
	require.NoError(t, err)
	require.NotNil(t, summary)

	profile, err := a.profiles.GetProfile(ctx, "t1", "u1")
	require.NoError(t, err)
	require.Equal(t, "t1", profile.TenantID)
	require.Equal(t, "u1", profile.UserID)
}

func TestGetProfileWithSummaryReflectsUpdatedField(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	_, err := getProfileWithSummary(ctx, a, "t1", "u2")
	require.NoError(t, err)

	_, err = a.profiles.UpdateField(ctx, "t1", "u2", "communication_style", "concise", "user stated preference")
	require.NoError(t, err)

	summary, err := getProfileWithSummary(ctx, a, "t1", "u2")
	require.NoError(t, err)
	require.NotNil(t, summary)
	require.Equal(t, "concise", summary.Profile.CommunicationStyle)
}
