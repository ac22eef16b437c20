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
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ctxmemory/engine/internal/apperrors"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess = 0 // Operation completed successfully
	CLIExitError   = 2 // Operation failed
)

// CommandResult wraps command output with metadata, matching every
// subcommand's stdout shape so callers can script against one envelope.
type CommandResult struct {
	APIVersion string      `json:"api_version"`
	Command    string      `json:"command"`
	Timestamp  time.Time   `json:"timestamp"`
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// OutputJSON writes data as an indented JSON envelope to stdout and returns
// the process exit code the caller should use.
func OutputJSON(command string, data interface{}) int {
	result := CommandResult{
		APIVersion: "1.0",
		Command:    command,
		Timestamp:  time.Now(),
		Success:    true,
		Data:       data,
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode JSON: %v\n", err)
		return CLIExitError
	}
	return CLIExitSuccess
}

// OutputError writes a failed command's envelope to stdout and returns
// CLIExitError.
func OutputError(command string, err error) int {
	result := CommandResult{
		APIVersion: "1.0",
		Command:    command,
		Timestamp:  time.Now(),
		Success:    false,
		Error:      err.Error(),
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(result)
	return CLIExitError
}

// requireFlags validates that every named flag value is non-empty, in the
// order given, returning a ValidationError naming the first missing one.
func requireFlags(flags map[string]string, order []string) error {
	for _, name := range order {
		if flags[name] == "" {
			return apperrors.NewValidation(fmt.Sprintf("--%s is required", name))
		}
	}
	return nil
}
