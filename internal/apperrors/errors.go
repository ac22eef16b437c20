// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package apperrors defines the error taxonomy shared by every component of
// the memory engine. Every fallible method returns one of these kinds,
// either bare or wrapped in one of the structured error types below, so
// callers can always recover the kind with errors.Is.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Components return these directly when no further detail
// is useful, or wrap them via the structured types below.
var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrAlreadyIndexed = errors.New("turn already indexed")
	ErrDatabase       = errors.New("persistence failure")
	ErrEmbedding      = errors.New("embedding provider failure")
	ErrVectorIndex    = errors.New("vector index failure")
	ErrFullTextIndex  = errors.New("full-text index failure")
	ErrTimeout        = errors.New("deadline exceeded")
	ErrRateLimited    = errors.New("rate limited")
	ErrInternal       = errors.New("internal error")
)

// NotFoundError names the entity kind and id that could not be located.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFound builds a NotFoundError for the given entity/id pair.
func NewNotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError names the invariant that the caller violated.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidation builds a ValidationError with the given reason.
func NewValidation(reason string) error {
	return &ValidationError{Reason: reason}
}

// AlreadyIndexedError names the turn that was already indexed.
type AlreadyIndexedError struct {
	TurnID string
}

func (e *AlreadyIndexedError) Error() string {
	return fmt.Sprintf("turn %q already indexed", e.TurnID)
}

func (e *AlreadyIndexedError) Unwrap() error { return ErrAlreadyIndexed }

// NewAlreadyIndexed builds an AlreadyIndexedError for the given turn.
func NewAlreadyIndexed(turnID string) error {
	return &AlreadyIndexedError{TurnID: turnID}
}

// DimensionMismatchError reports a vector add with the wrong dimension.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrValidation }

// TimeoutError names the operation that exceeded its deadline.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, ErrTimeout)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// NewTimeout builds a TimeoutError for the named operation.
func NewTimeout(op string) error {
	return &TimeoutError{Op: op}
}

// Wrap annotates cause with a message while preserving errors.Is/As behavior
// against both kind and cause (Go 1.20+ supports multiple %w verbs).
func Wrap(kind error, msg string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", msg, kind)
	}
	return fmt.Errorf("%s: %w: %w", msg, kind, cause)
}
