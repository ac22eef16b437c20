// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import "time"

// Filter is the shared predicate shape for every List* method: user_id,
// tenant_id, session_id, type, status, created_range, importance_range,
// pagination. Each List method applies only the fields relevant to its
// collection and ignores the rest. Zero-value fields are treated as unset.
type Filter struct {
	UserID          string
	TenantID        string
	SessionID       string
	Type            string
	Status          string
	CreatedFrom     time.Time
	CreatedTo       time.Time
	ImportanceMin   *float64
	ImportanceMax   *float64
	Limit           int
	Offset          int
}

func (f Filter) matchesCreated(ts time.Time) bool {
	if !f.CreatedFrom.IsZero() && ts.Before(f.CreatedFrom) {
		return false
	}
	if !f.CreatedTo.IsZero() && ts.After(f.CreatedTo) {
		return false
	}
	return true
}

func (f Filter) matchesImportance(v float64) bool {
	if f.ImportanceMin != nil && v < *f.ImportanceMin {
		return false
	}
	if f.ImportanceMax != nil && v > *f.ImportanceMax {
		return false
	}
	return true
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
