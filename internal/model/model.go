// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package model defines the shared data types of the memory engine: Session,
// Turn, IndexRecord, Memory, Entity, Relationship, Pattern, and Profile.
// Components in sibling packages operate on these types through the
// Persistence contract defined in internal/store.
package model

import "time"

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionArchived  SessionStatus = "archived"
	SessionDeleted   SessionStatus = "deleted"
)

// SessionConfig holds per-session tunables.
type SessionConfig struct {
	SummaryLimit           int           `json:"summary_limit"`
	MaxTurns                int           `json:"max_turns"`
	SemanticSearchEnabled   bool          `json:"semantic_search_enabled"`
	AutoSummarize           bool          `json:"auto_summarize"`
	IndexRefreshInterval    time.Duration `json:"index_refresh_interval"`
}

// DefaultSessionConfig returns sane defaults for a new session.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		SummaryLimit:         100,
		MaxTurns:             10000,
		SemanticSearchEnabled: true,
		AutoSummarize:        true,
		IndexRefreshInterval: time.Minute,
	}
}

// SessionStats tracks aggregate counters for a Session.
type SessionStats struct {
	TotalTurns    int       `json:"total_turns"`
	TotalTokens   int       `json:"total_tokens"`
	StorageSize   int64     `json:"storage_size"`
	LastIndexedAt time.Time `json:"last_indexed_at"`
}

// Session is a named, tenant-scoped conversation container.
type Session struct {
	ID           string            `json:"id"`
	TenantID     string            `json:"tenant_id"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActiveAt time.Time         `json:"last_active_at"`
	Status       SessionStatus     `json:"status"`
	Config       SessionConfig     `json:"config"`
	Stats        SessionStats      `json:"stats"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Touch updates LastActiveAt to now. Called on every turn append.
func (s *Session) Touch(now time.Time) { s.LastActiveAt = now }

// MessageType classifies who authored a Turn.
type MessageType string

const (
	MessageUser      MessageType = "user"
	MessageAssistant MessageType = "assistant"
	MessageSystem    MessageType = "system"
)

// TurnMetadata carries auxiliary information about a Turn.
type TurnMetadata struct {
	Timestamp   time.Time         `json:"timestamp"`
	UserID      string            `json:"user_id,omitempty"`
	MessageType MessageType       `json:"message_type"`
	Role        string            `json:"role,omitempty"`
	Model       string            `json:"model,omitempty"`
	TokenCount  int               `json:"token_count,omitempty"`
	Custom      map[string]string `json:"custom,omitempty"`
}

// Dehydrated is the gist/topics/tags/embedding produced by the Summarizer.
type Dehydrated struct {
	Gist        string    `json:"gist"`
	Topics      []string  `json:"topics,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Embedding   []float32 `json:"embedding,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Generator   string    `json:"generator,omitempty"`
}

// TurnStatus is the lifecycle state of a Turn.
type TurnStatus string

const (
	TurnPending    TurnStatus = "pending"
	TurnProcessing TurnStatus = "processing"
	TurnIndexed    TurnStatus = "indexed"
	TurnArchived   TurnStatus = "archived"
)

// Turn is one message in a Session.
type Turn struct {
	ID          string       `json:"id"`
	SessionID   string       `json:"session_id"`
	TurnNumber  int          `json:"turn_number"`
	RawContent  string       `json:"raw_content"`
	Metadata    TurnMetadata `json:"metadata"`
	Dehydrated  *Dehydrated  `json:"dehydrated,omitempty"`
	Status      TurnStatus   `json:"status"`
	ParentID    string       `json:"parent_id,omitempty"`
	ChildrenIDs []string     `json:"children_ids,omitempty"`
}

// IndexRecord is the projection of a Turn into the retrieval plane.
type IndexRecord struct {
	TurnID         string    `json:"turn_id"`
	SessionID      string    `json:"session_id"`
	Gist           string    `json:"gist"`
	Topics         []string  `json:"topics,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	TurnNumber     int       `json:"turn_number"`
	VectorID       string    `json:"vector_id"`
	RelevanceScore *float64  `json:"relevance_score,omitempty"`
}

// MemoryType classifies the kind of distillation a Memory represents.
type MemoryType string

const (
	MemoryEpisodic   MemoryType = "episodic"
	MemorySemantic   MemoryType = "semantic"
	MemoryProcedural MemoryType = "procedural"
	MemoryProfile    MemoryType = "profile"
)

// MemorySource names where a Memory originated.
type MemorySource string

const (
	SourceConversation MemorySource = "conversation"
	SourceResearch     MemorySource = "research"
	SourceExecution    MemorySource = "execution"
	SourceUserConfig   MemorySource = "user_config"
)

// MemoryStatus is the lifecycle state of a Memory.
type MemoryStatus string

const (
	MemoryActive   MemoryStatus = "active"
	MemoryArchived MemoryStatus = "archived"
	MemoryDeleted  MemoryStatus = "deleted"
)

// Memory is a durable, typed distillation of information.
type Memory struct {
	ID           string       `json:"id"`
	TenantID     string       `json:"tenant_id"`
	UserID       string       `json:"user_id"`
	MemoryType   MemoryType   `json:"memory_type"`
	Content      string       `json:"content"`
	Gist         string       `json:"gist"`
	FullSummary  string       `json:"full_summary,omitempty"`
	Embedding    []float32    `json:"embedding,omitempty"`
	Importance   float64      `json:"importance"`
	Confidence   float64      `json:"confidence"`
	Source       MemorySource `json:"source"`
	SourceID     string       `json:"source_id,omitempty"`
	ParentID     string       `json:"parent_id,omitempty"`
	RelatedIDs   []string     `json:"related_ids,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	Topics       []string     `json:"topics,omitempty"`
	Keywords     []string     `json:"keywords,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	AccessedAt   time.Time    `json:"accessed_at"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
	Status       MemoryStatus `json:"status"`
	Version      int          `json:"version"`
}

// Clamp01 clamps v to the closed interval [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampFields clamps Importance and Confidence to [0,1] in place.
func (m *Memory) ClampFields() {
	m.Importance = Clamp01(m.Importance)
	m.Confidence = Clamp01(m.Confidence)
}

// IsRetrievable reports whether the memory is active and unexpired as of now.
func (m *Memory) IsRetrievable(now time.Time) bool {
	if m.Status != MemoryActive {
		return false
	}
	if m.ExpiresAt != nil && !m.ExpiresAt.IsZero() && now.After(*m.ExpiresAt) {
		return false
	}
	return true
}

// EntityType classifies what kind of thing an Entity represents.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityProject      EntityType = "project"
	EntityTool         EntityType = "tool"
	EntityConcept      EntityType = "concept"
	EntityDocument     EntityType = "document"
	EntityEvent        EntityType = "event"
	EntityLocation     EntityType = "location"
	EntityProduct      EntityType = "product"
	EntityOther        EntityType = "other"
)

// Entity is a real-world or conceptual item in the knowledge graph.
type Entity struct {
	ID              string                 `json:"id"`
	TenantID        string                 `json:"tenant_id"`
	Name            string                 `json:"name"`
	EntityType      EntityType             `json:"entity_type"`
	Description     string                 `json:"description,omitempty"`
	Properties      map[string]interface{} `json:"properties,omitempty"`
	Aliases         []string               `json:"aliases,omitempty"`
	Embedding       []float32              `json:"embedding,omitempty"`
	Confidence      float64                `json:"confidence"`
	SourceMemoryIDs []string               `json:"source_memory_ids,omitempty"`
	LastVerified    *time.Time             `json:"last_verified,omitempty"`
	Verified        bool                   `json:"verified"`
	Frequency       int                    `json:"frequency"`
	Version         int                    `json:"version"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// RelationshipType is a closed set of edge labels in the knowledge graph.
type RelationshipType string

const (
	RelUses        RelationshipType = "uses"
	RelUsedBy      RelationshipType = "used_by"
	RelDependsOn   RelationshipType = "depends_on"
	RelDependedBy  RelationshipType = "depended_by"
	RelWorksOn     RelationshipType = "works_on"
	RelWorkedOnBy  RelationshipType = "worked_on_by"
	RelPartOf      RelationshipType = "part_of"
	RelHasPart     RelationshipType = "has_part"
	RelBelongsTo   RelationshipType = "belongs_to"
	RelHasMember   RelationshipType = "has_member"
	RelCreates     RelationshipType = "creates"
	RelCreatedBy   RelationshipType = "created_by"
	RelManages     RelationshipType = "manages"
	RelManagedBy   RelationshipType = "managed_by"
	RelRelatesTo   RelationshipType = "relates_to"
	RelLocatedIn   RelationshipType = "located_in"
	RelHasLocation RelationshipType = "has_location"
	RelPrecedes    RelationshipType = "precedes"
	RelFollows     RelationshipType = "follows"
	RelMentions    RelationshipType = "mentions"
	RelMentionedBy RelationshipType = "mentioned_by"
)

// reverseTypes maps every relationship type to its inverse. Symmetric
// pairs (Uses/UsedBy, DependsOn/DependedBy, ...) map to each other;
// RelatesTo maps to itself.
var reverseTypes = map[RelationshipType]RelationshipType{
	RelUses:        RelUsedBy,
	RelUsedBy:      RelUses,
	RelDependsOn:   RelDependedBy,
	RelDependedBy:  RelDependsOn,
	RelWorksOn:     RelWorkedOnBy,
	RelWorkedOnBy:  RelWorksOn,
	RelPartOf:      RelHasPart,
	RelHasPart:     RelPartOf,
	RelBelongsTo:   RelHasMember,
	RelHasMember:   RelBelongsTo,
	RelCreates:     RelCreatedBy,
	RelCreatedBy:   RelCreates,
	RelManages:     RelManagedBy,
	RelManagedBy:   RelManages,
	RelRelatesTo:   RelRelatesTo,
	RelLocatedIn:   RelHasLocation,
	RelHasLocation: RelLocatedIn,
	RelPrecedes:    RelFollows,
	RelFollows:     RelPrecedes,
	RelMentions:    RelMentionedBy,
	RelMentionedBy: RelMentions,
}

// ReverseType returns the inverse of a relationship type. ReverseType is an
// involution: ReverseType(ReverseType(t)) == t for every known t.
func ReverseType(t RelationshipType) RelationshipType {
	if rev, ok := reverseTypes[t]; ok {
		return rev
	}
	return t
}

// Relationship is a directed edge between two entities.
type Relationship struct {
	ID               string           `json:"id"`
	TenantID         string           `json:"tenant_id"`
	SourceEntityID   string           `json:"source_entity_id"`
	TargetEntityID   string           `json:"target_entity_id"`
	RelationshipType RelationshipType `json:"relationship_type"`
	Strength         float64          `json:"strength"`
	Context          string           `json:"context,omitempty"`
	SourceMemoryID   string           `json:"source_memory_id"`
	Verified         bool             `json:"verified"`
	Confidence       float64          `json:"confidence"`
	Version          int              `json:"version"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// PatternType classifies the kind of reusable artifact a Pattern represents.
type PatternType string

const (
	PatternProblemSolution PatternType = "problem_solution"
	PatternWorkflow        PatternType = "workflow"
	PatternBestPractice    PatternType = "best_practice"
	PatternCommonError     PatternType = "common_error"
	PatternSkill           PatternType = "skill"
)

// PatternExample is one recorded (input, output, outcome) triple.
type PatternExample struct {
	Input   string  `json:"input"`
	Output  string  `json:"output"`
	Outcome float64 `json:"outcome"`
}

// Pattern is a named, reusable problem -> solution artifact.
type Pattern struct {
	ID              string           `json:"id"`
	TenantID        string           `json:"tenant_id"`
	PatternType     PatternType      `json:"pattern_type"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Trigger         string           `json:"trigger"`
	Context         string           `json:"context"`
	Problem         string           `json:"problem"`
	Solution        string           `json:"solution"`
	Explanation     string           `json:"explanation,omitempty"`
	Examples        []PatternExample `json:"examples,omitempty"`
	SuccessCount    int              `json:"success_count"`
	FailureCount    int              `json:"failure_count"`
	AvgOutcome      float64          `json:"avg_outcome"`
	UsageCount      int              `json:"usage_count"`
	LastUsed        *time.Time       `json:"last_used,omitempty"`
	Tags            []string         `json:"tags,omitempty"`
	CreatedBy       string           `json:"created_by"`
	IsPublic        bool             `json:"is_public"`
	Confidence      float64          `json:"confidence"`
	Version         int              `json:"version"`
	ParentPatternID string           `json:"parent_pattern_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// SuccessRate returns success_count/(success_count+failure_count), defined
// as 0.5 when neither counter is nonzero.
func (p *Pattern) SuccessRate() float64 {
	total := p.SuccessCount + p.FailureCount
	if total == 0 {
		return 0.5
	}
	return float64(p.SuccessCount) / float64(total)
}

// IsHighQuality reports confidence >= 0.7 and success_rate >= 0.7.
func (p *Pattern) IsHighQuality() bool {
	return p.Confidence >= 0.7 && p.SuccessRate() >= 0.7
}

// PatternUsage records one invocation of a Pattern for outcome tracking.
type PatternUsage struct {
	ID        string    `json:"id"`
	PatternID string    `json:"pattern_id"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Outcome   float64   `json:"outcome"`
	Feedback  string    `json:"feedback,omitempty"`
	Context   string    `json:"context,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FactCategory classifies a single fact in a Profile.
type FactCategory string

const (
	FactPersonal      FactCategory = "personal"
	FactProfessional   FactCategory = "professional"
	FactTechnical      FactCategory = "technical"
	FactProject        FactCategory = "project"
	FactCommunication  FactCategory = "communication"
	FactLifestyle      FactCategory = "lifestyle"
	FactOther          FactCategory = "other"
)

// ProfileFact is one learned fact about a user.
type ProfileFact struct {
	Category       FactCategory `json:"category"`
	Content        string       `json:"content"`
	Confidence     float64      `json:"confidence"`
	Verified       bool         `json:"verified"`
	VerifiedBy     string       `json:"verified_by,omitempty"`
	SourceMemoryID string       `json:"source_memory_id,omitempty"`
}

// WorkingHours describes a recurring availability window.
type WorkingHours struct {
	StartDayOfWeek int    `json:"start_day_of_week"`
	EndDayOfWeek   int    `json:"end_day_of_week"`
	StartHour      int    `json:"start_hour"`
	EndHour        int    `json:"end_hour"`
	Timezone       string `json:"timezone"`
	Flexible       bool   `json:"flexible"`
}

// ProfileChangeType classifies an entry in a Profile's ChangeHistory.
type ProfileChangeType string

const (
	ChangeCreated ProfileChangeType = "created"
	ChangeUpdated ProfileChangeType = "updated"
	ChangeVerified ProfileChangeType = "verified"
	ChangeMerged  ProfileChangeType = "merged"
	ChangeReset   ProfileChangeType = "reset"
)

// ProfileChange is one append-only audit entry in a Profile's history.
type ProfileChange struct {
	Version    int               `json:"version"`
	ChangeType ProfileChangeType `json:"change_type"`
	Field      string            `json:"field,omitempty"`
	OldValue   string            `json:"old_value,omitempty"`
	NewValue   string            `json:"new_value,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Profile holds per-user persona and preferences, keyed 1:1 by UserID.
type Profile struct {
	ID                 string                 `json:"id"`
	TenantID           string                 `json:"tenant_id"`
	UserID             string                 `json:"user_id"`
	Name               string                 `json:"name,omitempty"`
	Role               string                 `json:"role,omitempty"`
	Organization       string                 `json:"organization,omitempty"`
	Location           string                 `json:"location,omitempty"`
	Language           string                 `json:"language,omitempty"`
	CommunicationStyle string                 `json:"communication_style,omitempty"`
	TechnicalLevel     string                 `json:"technical_level,omitempty"`
	Preferences        map[string]interface{} `json:"preferences,omitempty"`
	Facts              []ProfileFact          `json:"facts,omitempty"`
	Interests          []string               `json:"interests,omitempty"`
	ToolsUsed          []string               `json:"tools_used,omitempty"`
	CommonTasks        []string               `json:"common_tasks,omitempty"`
	WorkingHours       *WorkingHours          `json:"working_hours,omitempty"`
	Confidence         float64                `json:"confidence"`
	Version            int                    `json:"version"`
	ChangeHistory      []ProfileChange        `json:"change_history,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}
