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
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ctxmemory/engine/internal/model"
)

// emit prints result as a JSON success envelope, or err as a failure
// envelope, and exits the process with the matching code. Every cmd_*.go
// Run function ends by calling this.
func emit(command string, result interface{}, err error) {
	if err != nil {
		os.Exit(OutputError(command, err))
	}
	os.Exit(OutputJSON(command, result))
}

func runSessionCreate(cmd *cobra.Command, args []string) {
	if err := requireFlags(map[string]string{"tenant": sessionTenantID, "name": sessionName}, []string{"tenant", "name"}); err != nil {
		emit("session create", nil, err)
		return
	}
	result, err := withApp(func(ctx context.Context, a *app) (interface{}, error) {
		return a.sessions.CreateSession(ctx, sessionTenantID, sessionName)
	})
	emit("session create", result, err)
}

// turnMetadataFromFlags builds the TurnMetadata a "session append" call
// attaches to its new turn, stamped with the current time.
func turnMetadataFromFlags(userID, role string) model.TurnMetadata {
	return model.TurnMetadata{
		Timestamp:   time.Now().UTC(),
		UserID:      userID,
		MessageType: model.MessageType(role),
		Role:        role,
	}
}

func runSessionAppend(cmd *cobra.Command, args []string) {
	if err := requireFlags(map[string]string{"content": turnContent}, []string{"content"}); err != nil {
		emit("session append", nil, err)
		return
	}
	meta := turnMetadataFromFlags(turnUserID, turnRole)
	result, err := withApp(func(ctx context.Context, a *app) (interface{}, error) {
		return a.sessions.AppendTurn(ctx, args[0], turnContent, meta)
	})
	emit("session append", result, err)
}

func runSessionListTurns(cmd *cobra.Command, args []string) {
	result, err := withApp(func(ctx context.Context, a *app) (interface{}, error) {
		return a.sessions.ListTurns(ctx, args[0], listPage, listPageSize)
	})
	emit("session list", result, err)
}

func runSessionArchive(cmd *cobra.Command, args []string) {
	result, err := withApp(func(ctx context.Context, a *app) (interface{}, error) {
		return a.sessions.Archive(ctx, args[0])
	})
	emit("session archive", result, err)
}

func runSessionDelete(cmd *cobra.Command, args []string) {
	result, err := withApp(func(ctx context.Context, a *app) (interface{}, error) {
		return nil, a.sessions.DeleteSession(ctx, args[0])
	})
	if err == nil && result == nil {
		result = fmt.Sprintf("session %s deleted", args[0])
	}
	emit("session delete", result, err)
}
