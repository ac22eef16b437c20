// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package profile implements per-user Profile management: get-or-create,
// field updates, fact verification, working-hours tracking, and merging
// for multi-device scenarios. Creation, field updates, fact verification,
// working-hours updates, merges and resets append an entry to the
// Profile's ChangeHistory; AddPreference, AddFact, AddTool, AddInterest and
// AddCommonTask do not.
package profile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ctxmemory/engine/internal/apperrors"
	"github.com/ctxmemory/engine/internal/model"
	"github.com/ctxmemory/engine/internal/store"
)

// Manager implements Profile management over a Persistence store.
type Manager struct {
	store store.Persistence
}

// New builds a Manager.
func New(s store.Persistence) *Manager {
	return &Manager{store: s}
}

func recordChange(p *model.Profile, changeType model.ProfileChangeType, field, oldValue, newValue, reason string) {
	p.ChangeHistory = append(p.ChangeHistory, model.ProfileChange{
		Version:    p.Version + 1,
		ChangeType: changeType,
		Field:      field,
		OldValue:   oldValue,
		NewValue:   newValue,
		Reason:     reason,
		Timestamp:  time.Now().UTC(),
	})
}

// GetOrCreateProfile returns the existing profile for userID, or creates
// one with default values and a "created" ChangeHistory entry.
func (m *Manager) GetOrCreateProfile(ctx context.Context, tenantID, userID string) (*model.Profile, error) {
	if existing, err := m.store.GetProfileByUser(ctx, tenantID, userID); err == nil {
		return existing, nil
	}

	now := time.Now().UTC()
	p := &model.Profile{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		UserID:     userID,
		Confidence: 0.5,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	recordChange(p, model.ChangeCreated, "", "", "", "profile created")
	if err := m.store.SaveProfile(ctx, p); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "save profile", err)
	}
	return p, nil
}

// GetProfile fetches a profile by user id.
func (m *Manager) GetProfile(ctx context.Context, tenantID, userID string) (*model.Profile, error) {
	return m.store.GetProfileByUser(ctx, tenantID, userID)
}

// DeleteProfile removes a user's profile.
func (m *Manager) DeleteProfile(ctx context.Context, tenantID, userID string) error {
	p, err := m.store.GetProfileByUser(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	return m.store.DeleteProfile(ctx, p.ID)
}

// UpdateField sets one simple string field on a user's profile (name,
// role, organization, location, communication_style, technical_level,
// language) and records the change in history. Unknown field names fail
// with Validation.
func (m *Manager) UpdateField(ctx context.Context, tenantID, userID, field, value, reason string) (*model.Profile, error) {
	p, err := m.store.GetProfileByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	var old string
	switch field {
	case "name":
		old, p.Name = p.Name, value
	case "role":
		old, p.Role = p.Role, value
	case "organization":
		old, p.Organization = p.Organization, value
	case "location":
		old, p.Location = p.Location, value
	case "communication_style":
		old, p.CommunicationStyle = p.CommunicationStyle, value
	case "technical_level":
		old, p.TechnicalLevel = p.TechnicalLevel, value
	case "language":
		old, p.Language = p.Language, value
	default:
		return nil, apperrors.NewValidation("unknown profile field: " + field)
	}

	if reason == "" {
		reason = "profile update"
	}
	recordChange(p, model.ChangeUpdated, field, old, value, reason)
	p.Version++
	p.UpdatedAt = time.Now().UTC()

	if err := m.store.SaveProfile(ctx, p); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "save profile", err)
	}
	return p, nil
}

// AddPreference sets a key in the profile's freeform preferences map.
func (m *Manager) AddPreference(ctx context.Context, tenantID, userID, key string, value interface{}) (*model.Profile, error) {
	p, err := m.store.GetProfileByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if p.Preferences == nil {
		p.Preferences = make(map[string]interface{})
	}
	p.Preferences[key] = value
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	if err := m.store.SaveProfile(ctx, p); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "save profile", err)
	}
	return p, nil
}

func parseFactCategory(category string) model.FactCategory {
	switch strings.ToLower(category) {
	case "personal":
		return model.FactPersonal
	case "professional":
		return model.FactProfessional
	case "technical":
		return model.FactTechnical
	case "project":
		return model.FactProject
	case "communication":
		return model.FactCommunication
	case "lifestyle":
		return model.FactLifestyle
	default:
		return model.FactOther
	}
}

// AddFact appends a ProfileFact with default confidence 0.7, returning the
// updated profile.
func (m *Manager) AddFact(ctx context.Context, tenantID, userID, content, category, sourceMemoryID string) (*model.Profile, error) {
	p, err := m.store.GetProfileByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	fact := model.ProfileFact{
		Category:       parseFactCategory(category),
		Content:        content,
		Confidence:     0.7,
		SourceMemoryID: sourceMemoryID,
	}
	p.Facts = append(p.Facts, fact)
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	if err := m.store.SaveProfile(ctx, p); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "save profile", err)
	}
	return p, nil
}

// VerifyFact marks the fact at factIndex as verified, recording a
// "verified" ChangeHistory entry. factIndex must be a valid index into
// Facts, since ProfileFact carries no independent id.
func (m *Manager) VerifyFact(ctx context.Context, tenantID, userID string, factIndex int, verifiedBy string) (*model.Profile, error) {
	p, err := m.store.GetProfileByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if factIndex < 0 || factIndex >= len(p.Facts) {
		return nil, apperrors.NewValidation("fact index out of range")
	}
	if p.Facts[factIndex].Verified {
		return p, nil
	}

	p.Facts[factIndex].Verified = true
	p.Facts[factIndex].VerifiedBy = verifiedBy
	recordChange(p, model.ChangeVerified, "facts", "unverified", "verified", "fact verification")
	p.Version++
	p.UpdatedAt = time.Now().UTC()

	if err := m.store.SaveProfile(ctx, p); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "save profile", err)
	}
	return p, nil
}

// UpdateWorkingHours replaces a user's working-hours window, recording the
// prior window (if any) in ChangeHistory.
func (m *Manager) UpdateWorkingHours(ctx context.Context, tenantID, userID string, wh model.WorkingHours) (*model.Profile, error) {
	p, err := m.store.GetProfileByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	old := "none"
	if p.WorkingHours != nil {
		old = p.WorkingHours.Timezone
	}
	p.WorkingHours = &wh
	recordChange(p, model.ChangeUpdated, "working_hours", old, wh.Timezone, "working hours update")
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	if err := m.store.SaveProfile(ctx, p); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "save profile", err)
	}
	return p, nil
}

func unionStrings(a, b []string) []string {
	out := append([]string{}, a...)
	for _, v := range b {
		out = appendUnique(out, v)
	}
	return out
}

// MergeProfiles merges sourceID into targetID for multi-device/multi-
// session consolidation, mirroring internal/graph's MergeEntities shape:
// higher-confidence profile wins scalar field conflicts, collection
// fields (Facts/Interests/ToolsUsed/CommonTasks) union, the source
// profile is deleted, and a "merged" ChangeHistory entry records the
// outcome on the surviving profile.
func (m *Manager) MergeProfiles(ctx context.Context, targetID, sourceID string) (*model.Profile, error) {
	target, err := m.store.GetProfile(ctx, targetID)
	if err != nil {
		return nil, err
	}
	source, err := m.store.GetProfile(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	base := target
	if source.Confidence > target.Confidence {
		base = source
	}

	merged := *base
	merged.ID = targetID
	merged.TenantID = target.TenantID
	merged.UserID = target.UserID
	merged.Facts = append(append([]model.ProfileFact{}, target.Facts...), source.Facts...)
	merged.Interests = unionStrings(target.Interests, source.Interests)
	merged.ToolsUsed = unionStrings(target.ToolsUsed, source.ToolsUsed)
	merged.CommonTasks = unionStrings(target.CommonTasks, source.CommonTasks)
	if target.WorkingHours == nil {
		merged.WorkingHours = source.WorkingHours
	} else {
		merged.WorkingHours = target.WorkingHours
	}
	merged.Confidence = (target.Confidence + source.Confidence) / 2
	merged.ChangeHistory = append(append([]model.ProfileChange{}, target.ChangeHistory...), source.ChangeHistory...)
	merged.Version = target.Version + 1
	merged.UpdatedAt = time.Now().UTC()

	recordChange(&merged, model.ChangeMerged, "", sourceID, targetID, "profile merge")
	merged.Version = target.Version + 1

	if err := m.store.SaveProfile(ctx, &merged); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "save merged profile", err)
	}
	if err := m.store.DeleteProfile(ctx, sourceID); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "delete merged source profile", err)
	}
	return &merged, nil
}

// WorkingHoursStatus reports whether "now" falls inside a profile's
// configured working-hours window.
type WorkingHoursStatus struct {
	IsConfigured         bool   `json:"is_configured"`
	CurrentDayOfWeek     int    `json:"current_day_of_week"`
	CurrentHour          int    `json:"current_hour"`
	IsWithinWorkingHours bool   `json:"is_within_working_hours"`
	Display              string `json:"display"`
}

func workingHoursStatus(wh *model.WorkingHours, now time.Time) WorkingHoursStatus {
	day := int(now.Weekday())
	hour := now.Hour()
	if wh == nil {
		return WorkingHoursStatus{CurrentDayOfWeek: day, CurrentHour: hour}
	}

	within := wh.Flexible
	if !within {
		dayInRange := wh.StartDayOfWeek <= wh.EndDayOfWeek &&
			day >= wh.StartDayOfWeek && day <= wh.EndDayOfWeek
		if wh.StartDayOfWeek > wh.EndDayOfWeek {
			dayInRange = day >= wh.StartDayOfWeek || day <= wh.EndDayOfWeek
		}
		hourInRange := hour >= wh.StartHour && hour < wh.EndHour
		within = dayInRange && hourInRange
	}

	return WorkingHoursStatus{
		IsConfigured:         true,
		CurrentDayOfWeek:     day,
		CurrentHour:          hour,
		IsWithinWorkingHours: within,
		Display:              fmt.Sprintf("%d-%d (%s)", wh.StartHour, wh.EndHour, wh.Timezone),
	}
}

// Summary is a condensed view of a Profile for display: top interests and
// a count of verified facts, plus the computed working-hours status.
type Summary struct {
	Profile           *model.Profile
	TopInterests      []string
	VerifiedFactCount int
	WorkingHours      WorkingHoursStatus
}

const topInterestLimit = 5

// GetProfileSummary builds a Summary for a user's profile.
func (m *Manager) GetProfileSummary(ctx context.Context, tenantID, userID string) (*Summary, error) {
	p, err := m.store.GetProfileByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	verified := 0
	for _, f := range p.Facts {
		if f.Verified {
			verified++
		}
	}

	top := p.Interests
	if len(top) > topInterestLimit {
		top = top[:topInterestLimit]
	}

	return &Summary{
		Profile:           p,
		TopInterests:      top,
		VerifiedFactCount: verified,
		WorkingHours:      workingHoursStatus(p.WorkingHours, time.Now().UTC()),
	}, nil
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if strings.EqualFold(existing, v) {
			return list
		}
	}
	return append(list, v)
}

// AddTool, AddInterest, AddCommonTask append a deduplicated entry to the
// corresponding profile list.
func (m *Manager) AddTool(ctx context.Context, tenantID, userID, tool string) (*model.Profile, error) {
	return m.appendListField(ctx, tenantID, userID, tool, func(p *model.Profile, v string) { p.ToolsUsed = appendUnique(p.ToolsUsed, v) })
}

func (m *Manager) AddInterest(ctx context.Context, tenantID, userID, interest string) (*model.Profile, error) {
	return m.appendListField(ctx, tenantID, userID, interest, func(p *model.Profile, v string) { p.Interests = appendUnique(p.Interests, v) })
}

func (m *Manager) AddCommonTask(ctx context.Context, tenantID, userID, task string) (*model.Profile, error) {
	return m.appendListField(ctx, tenantID, userID, task, func(p *model.Profile, v string) { p.CommonTasks = appendUnique(p.CommonTasks, v) })
}

func (m *Manager) appendListField(ctx context.Context, tenantID, userID, value string, apply func(*model.Profile, string)) (*model.Profile, error) {
	p, err := m.store.GetProfileByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	apply(p, value)
	p.UpdatedAt = time.Now().UTC()
	if err := m.store.SaveProfile(ctx, p); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "save profile", err)
	}
	return p, nil
}

// Reset clears a profile's mutable fields back to defaults (preserving
// id/tenant/user/created_at), recording a "reset" ChangeHistory entry.
func (m *Manager) Reset(ctx context.Context, tenantID, userID, reason string) (*model.Profile, error) {
	p, err := m.store.GetProfileByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	reset := &model.Profile{
		ID:            p.ID,
		TenantID:      p.TenantID,
		UserID:        p.UserID,
		Confidence:    0.5,
		Version:       p.Version + 1,
		ChangeHistory: append([]model.ProfileChange{}, p.ChangeHistory...),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     time.Now().UTC(),
	}
	if reason == "" {
		reason = "profile reset"
	}
	recordChange(reset, model.ChangeReset, "", "", "", reason)
	reset.Version = p.Version + 1

	if err := m.store.SaveProfile(ctx, reset); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "save profile", err)
	}
	return reset, nil
}
