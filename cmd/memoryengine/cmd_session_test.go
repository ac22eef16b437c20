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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctxmemory/engine/internal/model"
)

func TestTurnMetadataFromFlagsStampsCurrentTime(t *testing.T) {
	before := turnMetadataFromFlags("u1", "user")
	require.Equal(t, "u1", before.UserID)
	require.Equal(t, model.MessageUser, before.MessageType)
	require.Equal(t, "user", before.Role)
	require.False(t, before.Timestamp.IsZero())
}

func TestTurnMetadataFromFlagsUnknownRolePassesThrough(t *testing.T) {
	meta := turnMetadataFromFlags("u2", "moderator")
	require.Equal(t, model.MessageType("moderator"), meta.MessageType)
}
