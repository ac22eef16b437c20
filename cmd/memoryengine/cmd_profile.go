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

	"github.com/ctxmemory/engine/internal/profile"
)

// getProfileWithSummary ensures tenantID/userID has a profile, creating an
// empty one on first use, and returns its summary.
func getProfileWithSummary(ctx context.Context, a *app, tenantID, userID string) (*profile.Summary, error) {
	if _, err := a.profiles.GetOrCreateProfile(ctx, tenantID, userID); err != nil {
		return nil, err
	}
	return a.profiles.GetProfileSummary(ctx, tenantID, userID)
}

func runProfileGet(cmd *cobra.Command, args []string) {
	if err := requireFlags(map[string]string{"tenant": profileTenantID, "user": profileUserID}, []string{"tenant", "user"}); err != nil {
		emit("profile get", nil, err)
		return
	}
	result, err := withApp(func(ctx context.Context, a *app) (interface{}, error) {
		return getProfileWithSummary(ctx, a, profileTenantID, profileUserID)
	})
	emit("profile get", result, err)
}

func runProfileUpdate(cmd *cobra.Command, args []string) {
	if err := requireFlags(map[string]string{"tenant": profileTenantID, "user": profileUserID, "field": profileField},
		[]string{"tenant", "user", "field"}); err != nil {
		emit("profile update", nil, err)
		return
	}
	result, err := withApp(func(ctx context.Context, a *app) (interface{}, error) {
		return a.profiles.UpdateField(ctx, profileTenantID, profileUserID, profileField, profileValue, profileReason)
	})
	emit("profile update", result, err)
}

func runProfileAddFact(cmd *cobra.Command, args []string) {
	if err := requireFlags(map[string]string{"tenant": profileTenantID, "user": profileUserID, "content": factContent},
		[]string{"tenant", "user", "content"}); err != nil {
		emit("profile add-fact", nil, err)
		return
	}
	result, err := withApp(func(ctx context.Context, a *app) (interface{}, error) {
		return a.profiles.AddFact(ctx, profileTenantID, profileUserID, factContent, factCategory, "")
	})
	emit("profile add-fact", result, err)
}
