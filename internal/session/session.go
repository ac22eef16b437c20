// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session implements the Session/Turn Log contract (C7): session
// lifecycle management and gapless, serialized turn appends.
package session

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ctxmemory/engine/internal/apperrors"
	"github.com/ctxmemory/engine/internal/model"
	"github.com/ctxmemory/engine/internal/obslog"
	"github.com/ctxmemory/engine/internal/store"
)

// indexPurger is the slice of indexing.Coordinator the Session/Turn Log
// needs to keep spec.md §8 invariant #2 (IndexRecord(T) exists iff the
// vector/full-text entries for T exist) from drifting once a session's
// turns are gone.
type indexPurger interface {
	DeleteIndex(ctx context.Context, turnID string) error
}

// duplicateNameScanLimit bounds the "first page of existing sessions" scan
// create_session performs when rejecting duplicate names, per spec.md
// §4.C7.
const duplicateNameScanLimit = 100

// Manager implements C7 over a Persistence store. Turn appends to the same
// session are serialized by a per-session mutex so concurrent callers
// still produce gapless, monotonically increasing turn numbers.
type Manager struct {
	store   store.Persistence
	indexer indexPurger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds a Manager over s. indexer is optional (nil is accepted for
// callers that never index turns, e.g. tests exercising session lifecycle
// in isolation); when set, DeleteSession purges each deleted turn's vector
// and full-text entries through it.
func New(s store.Persistence, indexer indexPurger) *Manager {
	return &Manager{store: s, indexer: indexer, locks: make(map[string]*sync.Mutex)}
}

func (m *Manager) sessionLock(sessionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[sessionID] = l
	}
	return l
}

// CreateSession rejects a duplicate name within tenant (scanning the first
// page of existing sessions) and returns a new Active Session.
func (m *Manager) CreateSession(ctx context.Context, tenantID, name string) (*model.Session, error) {
	ctx, span := obslog.StartSpan(ctx, "session", "CreateSession")
	defer span.End()

	if name == "" {
		return nil, apperrors.NewValidation("session name must not be empty")
	}

	existing, err := m.store.ListSessions(ctx, store.Filter{TenantID: tenantID, Limit: duplicateNameScanLimit})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "scan existing sessions", err)
	}
	for _, s := range existing {
		if s.Name == name {
			return nil, apperrors.NewValidation(fmt.Sprintf("session name %q already exists in tenant %q", name, tenantID))
		}
	}

	now := time.Now().UTC()
	sess := &model.Session{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Name:         name,
		CreatedAt:    now,
		LastActiveAt: now,
		Status:       model.SessionActive,
		Config:       model.DefaultSessionConfig(),
	}
	if err := m.store.SaveSession(ctx, sess); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "save session", err)
	}
	return sess, nil
}

// AppendTurn fetches the session, allocates the next gapless turn_number,
// persists a Pending Turn, and returns it. Appends to the same session
// serialize via a per-session mutex.
func (m *Manager) AppendTurn(ctx context.Context, sessionID, content string, meta model.TurnMetadata) (*model.Turn, error) {
	ctx, span := obslog.StartSpan(ctx, "session", "AppendTurn")
	defer span.End()

	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	existing, err := m.store.ListTurns(ctx, sessionID, 0, math.MaxInt32)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list existing turns", err)
	}
	nextNumber := 1
	for _, t := range existing {
		if t.TurnNumber >= nextNumber {
			nextNumber = t.TurnNumber + 1
		}
	}

	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}
	turn := &model.Turn{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		TurnNumber: nextNumber,
		RawContent: content,
		Metadata:   meta,
		Status:     model.TurnPending,
	}
	if err := m.store.SaveTurn(ctx, turn); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "save turn", err)
	}

	sess.Touch(time.Now().UTC())
	sess.Stats.TotalTurns = nextNumber
	sess.Stats.TotalTokens += meta.TokenCount
	if err := m.store.SaveSession(ctx, sess); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "touch session", err)
	}

	return turn, nil
}

// ListTurns returns page page (1-based) of page_size turns, rejecting pages
// beyond ceil(total/page_size) with Validation.
func (m *Manager) ListTurns(ctx context.Context, sessionID string, page, pageSize int) ([]*model.Turn, error) {
	if page < 1 {
		return nil, apperrors.NewValidation("page must be >= 1")
	}
	if pageSize < 1 {
		return nil, apperrors.NewValidation("page_size must be >= 1")
	}

	total, err := m.store.CountTurns(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "count turns", err)
	}
	maxPage := int(math.Ceil(float64(total) / float64(pageSize)))
	if maxPage == 0 {
		maxPage = 1
	}
	if page > maxPage {
		return nil, apperrors.NewValidation(fmt.Sprintf("page %d exceeds max page %d", page, maxPage))
	}

	offset := (page - 1) * pageSize
	return m.store.ListTurns(ctx, sessionID, offset, pageSize)
}

// GetSession fetches a session by id.
func (m *Manager) GetSession(ctx context.Context, id string) (*model.Session, error) {
	return m.store.GetSession(ctx, id)
}

// DeleteSession purges every turn's vector and full-text index entries
// (so deleted content stops being searchable, per spec.md §8 invariant #2),
// then cascades Turn + IndexRecord deletion in batches of 100, tolerating
// interruption and resuming cleanly, and finally deletes the Session. The
// batching itself lives in internal/store; this method is the C7 entry
// point that also discards the session's in-process append lock.
func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	ctx, span := obslog.StartSpan(ctx, "session", "DeleteSession")
	defer span.End()

	if m.indexer != nil {
		turns, err := m.store.ListTurns(ctx, id, 0, math.MaxInt32)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrDatabase, "list turns for index purge", err)
		}
		for _, t := range turns {
			if err := m.indexer.DeleteIndex(ctx, t.ID); err != nil {
				return apperrors.Wrap(apperrors.ErrDatabase, "purge turn index entries", err)
			}
		}
	}

	if err := m.store.DeleteSession(ctx, id); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.locks, id)
	m.mu.Unlock()
	return nil
}

// Archive transitions a session to Archived, regardless of its current
// status.
func (m *Manager) Archive(ctx context.Context, id string) (*model.Session, error) {
	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Status = model.SessionArchived
	if err := m.store.SaveSession(ctx, sess); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "archive session", err)
	}
	return sess, nil
}

// Restore transitions an Archived session back to Active, rejecting
// sessions that are not currently Archived.
func (m *Manager) Restore(ctx context.Context, id string) (*model.Session, error) {
	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.SessionArchived {
		return nil, apperrors.NewValidation(fmt.Sprintf("session %q is not archived", id))
	}
	sess.Status = model.SessionActive
	if err := m.store.SaveSession(ctx, sess); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "restore session", err)
	}
	return sess, nil
}
