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

const (
	prefixSession      = "session:"
	prefixTurn         = "turn:"
	prefixIndexRecord  = "index:"
	prefixMemory       = "memory:"
	prefixEntity       = "entity:"
	prefixRelationship = "relationship:"
	prefixPattern      = "pattern:"
	prefixPatternUsage = "pattern_usage:"
	prefixProfile      = "profile:"
)

func sessionKey(id string) []byte { return []byte(prefixSession + id) }
func turnKey(sessionID, turnID string) []byte {
	return []byte(prefixTurn + sessionID + ":" + turnID)
}
func turnPrefix(sessionID string) []byte { return []byte(prefixTurn + sessionID + ":") }
func indexKey(turnID string) []byte      { return []byte(prefixIndexRecord + turnID) }
func memoryKey(id string) []byte         { return []byte(prefixMemory + id) }
func entityKey(id string) []byte         { return []byte(prefixEntity + id) }
func relationshipKey(id string) []byte   { return []byte(prefixRelationship + id) }
func patternKey(id string) []byte        { return []byte(prefixPattern + id) }
func patternUsageKey(patternID, usageID string) []byte {
	return []byte(prefixPatternUsage + patternID + ":" + usageID)
}
func patternUsagePrefix(patternID string) []byte {
	return []byte(prefixPatternUsage + patternID + ":")
}
func profileKey(id string) []byte { return []byte(prefixProfile + id) }
