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

import (
	"context"
	"encoding/json"

	"github.com/dgraph-io/badger/v4"

	"github.com/ctxmemory/engine/internal/apperrors"
	"github.com/ctxmemory/engine/internal/model"
)

// deleteBatchSize bounds cascade-delete transaction size, per spec.md's
// "iterates Turns in batches of 100, deletes each" requirement.
const deleteBatchSize = 100

// Persistence is the typed CRUD + filtered query contract (C3). Every
// write is one Badger transaction; cascade delete on a Session is batched
// and resumable (re-running DeleteSession on a partially-deleted session
// is a no-op past the already-removed keys).
type Persistence interface {
	SaveSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	ListSessions(ctx context.Context, f Filter) ([]*model.Session, error)
	DeleteSession(ctx context.Context, id string) error

	SaveTurn(ctx context.Context, t *model.Turn) error
	GetTurn(ctx context.Context, sessionID, turnID string) (*model.Turn, error)
	ListTurns(ctx context.Context, sessionID string, offset, limit int) ([]*model.Turn, error)
	CountTurns(ctx context.Context, sessionID string) (int, error)
	DeleteTurn(ctx context.Context, sessionID, turnID string) error

	SaveIndexRecord(ctx context.Context, r *model.IndexRecord) error
	GetIndexRecord(ctx context.Context, turnID string) (*model.IndexRecord, error)
	DeleteIndexRecord(ctx context.Context, turnID string) error
	ListIndexRecordsBySession(ctx context.Context, sessionID string, limit, offset int) ([]*model.IndexRecord, error)

	SaveMemory(ctx context.Context, m *model.Memory) error
	GetMemory(ctx context.Context, id string) (*model.Memory, error)
	ListMemories(ctx context.Context, f Filter) ([]*model.Memory, error)
	DeleteMemory(ctx context.Context, id string) error

	SaveEntity(ctx context.Context, e *model.Entity) error
	GetEntity(ctx context.Context, id string) (*model.Entity, error)
	ListEntities(ctx context.Context, f Filter) ([]*model.Entity, error)
	DeleteEntity(ctx context.Context, id string) error

	SaveRelationship(ctx context.Context, r *model.Relationship) error
	GetRelationship(ctx context.Context, id string) (*model.Relationship, error)
	ListRelationships(ctx context.Context, f Filter) ([]*model.Relationship, error)
	DeleteRelationship(ctx context.Context, id string) error

	SavePattern(ctx context.Context, p *model.Pattern) error
	GetPattern(ctx context.Context, id string) (*model.Pattern, error)
	ListPatterns(ctx context.Context, f Filter) ([]*model.Pattern, error)
	DeletePattern(ctx context.Context, id string) error

	SavePatternUsage(ctx context.Context, u *model.PatternUsage) error
	ListPatternUsages(ctx context.Context, patternID string) ([]*model.PatternUsage, error)

	SaveProfile(ctx context.Context, p *model.Profile) error
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	GetProfileByUser(ctx context.Context, tenantID, userID string) (*model.Profile, error)
	DeleteProfile(ctx context.Context, id string) error

	// ExportCollection and ImportCollection are minimal migration hooks,
	// not a full migration CLI (out of scope): dump/restore every key
	// under prefix verbatim.
	ExportCollection(ctx context.Context, prefix string) (map[string][]byte, error)
	ImportCollection(ctx context.Context, data map[string][]byte) error
}

// BadgerStore implements Persistence over a *DB.
type BadgerStore struct {
	db *DB
}

// NewBadgerStore wraps db in a BadgerStore.
func NewBadgerStore(db *DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func putJSON(ctx context.Context, db *DB, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "marshal value", err)
	}
	err = db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "put", err)
	}
	return nil
}

func getJSON(ctx context.Context, db *DB, key []byte, entity string, v interface{}) error {
	err := db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if err == badger.ErrKeyNotFound {
		return apperrors.NewNotFound(entity, string(key))
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "get", err)
	}
	return nil
}

func deleteKey(ctx context.Context, db *DB, key []byte) error {
	err := db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "delete", err)
	}
	return nil
}

// scanPrefix returns all values under prefix, each unmarshaled via decode.
func scanPrefix(ctx context.Context, db *DB, prefix []byte, decode func([]byte) error) error {
	return db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if err := item.Value(decode); err != nil {
				return err
			}
		}
		return nil
	})
}

// --- Session ---

func (s *BadgerStore) SaveSession(ctx context.Context, sess *model.Session) error {
	return putJSON(ctx, s.db, sessionKey(sess.ID), sess)
}

func (s *BadgerStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var sess model.Session
	if err := getJSON(ctx, s.db, sessionKey(id), "session", &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *BadgerStore) ListSessions(ctx context.Context, f Filter) ([]*model.Session, error) {
	var out []*model.Session
	err := scanPrefix(ctx, s.db, []byte(prefixSession), func(val []byte) error {
		var sess model.Session
		if err := json.Unmarshal(val, &sess); err != nil {
			return err
		}
		if f.TenantID != "" && sess.TenantID != f.TenantID {
			return nil
		}
		if f.Status != "" && string(sess.Status) != f.Status {
			return nil
		}
		if !f.matchesCreated(sess.CreatedAt) {
			return nil
		}
		out = append(out, &sess)
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list sessions", err)
	}
	return paginate(out, f.Offset, f.Limit), nil
}

// DeleteSession cascades: deletes all Turns and IndexRecords referencing
// id in batches of deleteBatchSize, then the Session itself. Idempotent:
// re-running after a partial failure only touches remaining keys.
func (s *BadgerStore) DeleteSession(ctx context.Context, id string) error {
	prefix := turnPrefix(id)
	for {
		var keys [][]byte
		var turnIDs []string
		err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			opts.PrefetchValues = false
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Seek(prefix); it.ValidForPrefix(prefix) && len(keys) < deleteBatchSize; it.Next() {
				k := it.Item().KeyCopy(nil)
				keys = append(keys, k)
				var t model.Turn
				_ = it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &t)
				})
				turnIDs = append(turnIDs, t.ID)
			}
			return nil
		})
		if err != nil {
			return apperrors.Wrap(apperrors.ErrDatabase, "scan turns for cascade delete", err)
		}
		if len(keys) == 0 {
			break
		}
		err = s.db.WithTxn(ctx, func(txn *badger.Txn) error {
			for _, k := range keys {
				if err := txn.Delete(k); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return apperrors.Wrap(apperrors.ErrDatabase, "delete turn batch", err)
		}
		for _, turnID := range turnIDs {
			if turnID == "" {
				continue
			}
			_ = deleteKey(ctx, s.db, indexKey(turnID))
		}
	}
	if err := deleteKey(ctx, s.db, sessionKey(id)); err != nil {
		return err
	}
	return nil
}

// --- Turn ---

func (s *BadgerStore) SaveTurn(ctx context.Context, t *model.Turn) error {
	return putJSON(ctx, s.db, turnKey(t.SessionID, t.ID), t)
}

func (s *BadgerStore) GetTurn(ctx context.Context, sessionID, turnID string) (*model.Turn, error) {
	var t model.Turn
	if err := getJSON(ctx, s.db, turnKey(sessionID, turnID), "turn", &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *BadgerStore) ListTurns(ctx context.Context, sessionID string, offset, limit int) ([]*model.Turn, error) {
	var out []*model.Turn
	err := scanPrefix(ctx, s.db, turnPrefix(sessionID), func(val []byte) error {
		var t model.Turn
		if err := json.Unmarshal(val, &t); err != nil {
			return err
		}
		out = append(out, &t)
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list turns", err)
	}
	sortTurnsByNumber(out)
	return paginate(out, offset, limit), nil
}

func sortTurnsByNumber(turns []*model.Turn) {
	for i := 1; i < len(turns); i++ {
		j := i
		for j > 0 && turns[j-1].TurnNumber > turns[j].TurnNumber {
			turns[j-1], turns[j] = turns[j], turns[j-1]
			j--
		}
	}
}

func (s *BadgerStore) CountTurns(ctx context.Context, sessionID string) (int, error) {
	count := 0
	err := scanPrefix(ctx, s.db, turnPrefix(sessionID), func(val []byte) error {
		count++
		return nil
	})
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "count turns", err)
	}
	return count, nil
}

func (s *BadgerStore) DeleteTurn(ctx context.Context, sessionID, turnID string) error {
	if err := deleteKey(ctx, s.db, turnKey(sessionID, turnID)); err != nil {
		return err
	}
	return deleteKey(ctx, s.db, indexKey(turnID))
}

// --- IndexRecord ---

func (s *BadgerStore) SaveIndexRecord(ctx context.Context, r *model.IndexRecord) error {
	return putJSON(ctx, s.db, indexKey(r.TurnID), r)
}

func (s *BadgerStore) GetIndexRecord(ctx context.Context, turnID string) (*model.IndexRecord, error) {
	var r model.IndexRecord
	if err := getJSON(ctx, s.db, indexKey(turnID), "index_record", &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *BadgerStore) DeleteIndexRecord(ctx context.Context, turnID string) error {
	return deleteKey(ctx, s.db, indexKey(turnID))
}

// ListIndexRecordsBySession is the true-enumeration path resolving the
// spec's open question about IndexService::list_indices degrading to a
// zero-vector search: here it is a plain prefix scan with a predicate,
// never touching the vector index.
func (s *BadgerStore) ListIndexRecordsBySession(ctx context.Context, sessionID string, limit, offset int) ([]*model.IndexRecord, error) {
	var out []*model.IndexRecord
	err := scanPrefix(ctx, s.db, []byte(prefixIndexRecord), func(val []byte) error {
		var r model.IndexRecord
		if err := json.Unmarshal(val, &r); err != nil {
			return err
		}
		if r.SessionID != sessionID {
			return nil
		}
		out = append(out, &r)
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list index records", err)
	}
	return paginate(out, offset, limit), nil
}

// --- Memory ---

func (s *BadgerStore) SaveMemory(ctx context.Context, m *model.Memory) error {
	return putJSON(ctx, s.db, memoryKey(m.ID), m)
}

func (s *BadgerStore) GetMemory(ctx context.Context, id string) (*model.Memory, error) {
	var m model.Memory
	if err := getJSON(ctx, s.db, memoryKey(id), "memory", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *BadgerStore) ListMemories(ctx context.Context, f Filter) ([]*model.Memory, error) {
	var out []*model.Memory
	err := scanPrefix(ctx, s.db, []byte(prefixMemory), func(val []byte) error {
		var m model.Memory
		if err := json.Unmarshal(val, &m); err != nil {
			return err
		}
		if f.UserID != "" && m.UserID != f.UserID {
			return nil
		}
		if f.TenantID != "" && m.TenantID != f.TenantID {
			return nil
		}
		if f.Type != "" && string(m.MemoryType) != f.Type {
			return nil
		}
		if f.Status != "" && string(m.Status) != f.Status {
			return nil
		}
		if !f.matchesCreated(m.CreatedAt) {
			return nil
		}
		if !f.matchesImportance(m.Importance) {
			return nil
		}
		out = append(out, &m)
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list memories", err)
	}
	return paginate(out, f.Offset, f.Limit), nil
}

func (s *BadgerStore) DeleteMemory(ctx context.Context, id string) error {
	return deleteKey(ctx, s.db, memoryKey(id))
}

// --- Entity ---

func (s *BadgerStore) SaveEntity(ctx context.Context, e *model.Entity) error {
	return putJSON(ctx, s.db, entityKey(e.ID), e)
}

func (s *BadgerStore) GetEntity(ctx context.Context, id string) (*model.Entity, error) {
	var e model.Entity
	if err := getJSON(ctx, s.db, entityKey(id), "entity", &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *BadgerStore) ListEntities(ctx context.Context, f Filter) ([]*model.Entity, error) {
	var out []*model.Entity
	err := scanPrefix(ctx, s.db, []byte(prefixEntity), func(val []byte) error {
		var e model.Entity
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		if f.TenantID != "" && e.TenantID != f.TenantID {
			return nil
		}
		if f.Type != "" && string(e.EntityType) != f.Type {
			return nil
		}
		out = append(out, &e)
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list entities", err)
	}
	return paginate(out, f.Offset, f.Limit), nil
}

func (s *BadgerStore) DeleteEntity(ctx context.Context, id string) error {
	return deleteKey(ctx, s.db, entityKey(id))
}

// --- Relationship ---

func (s *BadgerStore) SaveRelationship(ctx context.Context, r *model.Relationship) error {
	return putJSON(ctx, s.db, relationshipKey(r.ID), r)
}

func (s *BadgerStore) GetRelationship(ctx context.Context, id string) (*model.Relationship, error) {
	var r model.Relationship
	if err := getJSON(ctx, s.db, relationshipKey(id), "relationship", &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *BadgerStore) ListRelationships(ctx context.Context, f Filter) ([]*model.Relationship, error) {
	var out []*model.Relationship
	err := scanPrefix(ctx, s.db, []byte(prefixRelationship), func(val []byte) error {
		var r model.Relationship
		if err := json.Unmarshal(val, &r); err != nil {
			return err
		}
		if f.TenantID != "" && r.TenantID != f.TenantID {
			return nil
		}
		if f.Type != "" && string(r.RelationshipType) != f.Type {
			return nil
		}
		out = append(out, &r)
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list relationships", err)
	}
	return paginate(out, f.Offset, f.Limit), nil
}

func (s *BadgerStore) DeleteRelationship(ctx context.Context, id string) error {
	return deleteKey(ctx, s.db, relationshipKey(id))
}

// --- Pattern ---

func (s *BadgerStore) SavePattern(ctx context.Context, p *model.Pattern) error {
	return putJSON(ctx, s.db, patternKey(p.ID), p)
}

func (s *BadgerStore) GetPattern(ctx context.Context, id string) (*model.Pattern, error) {
	var p model.Pattern
	if err := getJSON(ctx, s.db, patternKey(id), "pattern", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *BadgerStore) ListPatterns(ctx context.Context, f Filter) ([]*model.Pattern, error) {
	var out []*model.Pattern
	err := scanPrefix(ctx, s.db, []byte(prefixPattern), func(val []byte) error {
		var p model.Pattern
		if err := json.Unmarshal(val, &p); err != nil {
			return err
		}
		if f.TenantID != "" && p.TenantID != f.TenantID {
			return nil
		}
		if f.Type != "" && string(p.PatternType) != f.Type {
			return nil
		}
		out = append(out, &p)
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list patterns", err)
	}
	return paginate(out, f.Offset, f.Limit), nil
}

func (s *BadgerStore) DeletePattern(ctx context.Context, id string) error {
	return deleteKey(ctx, s.db, patternKey(id))
}

func (s *BadgerStore) SavePatternUsage(ctx context.Context, u *model.PatternUsage) error {
	return putJSON(ctx, s.db, patternUsageKey(u.PatternID, u.ID), u)
}

func (s *BadgerStore) ListPatternUsages(ctx context.Context, patternID string) ([]*model.PatternUsage, error) {
	var out []*model.PatternUsage
	err := scanPrefix(ctx, s.db, patternUsagePrefix(patternID), func(val []byte) error {
		var u model.PatternUsage
		if err := json.Unmarshal(val, &u); err != nil {
			return err
		}
		out = append(out, &u)
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list pattern usages", err)
	}
	return out, nil
}

// --- Profile ---

func (s *BadgerStore) SaveProfile(ctx context.Context, p *model.Profile) error {
	return putJSON(ctx, s.db, profileKey(p.ID), p)
}

func (s *BadgerStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	if err := getJSON(ctx, s.db, profileKey(id), "profile", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *BadgerStore) GetProfileByUser(ctx context.Context, tenantID, userID string) (*model.Profile, error) {
	var found *model.Profile
	err := scanPrefix(ctx, s.db, []byte(prefixProfile), func(val []byte) error {
		var p model.Profile
		if err := json.Unmarshal(val, &p); err != nil {
			return err
		}
		if p.TenantID == tenantID && p.UserID == userID {
			found = &p
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "get profile by user", err)
	}
	if found == nil {
		return nil, apperrors.NewNotFound("profile", userID)
	}
	return found, nil
}

func (s *BadgerStore) DeleteProfile(ctx context.Context, id string) error {
	return deleteKey(ctx, s.db, profileKey(id))
}

// --- Migration hooks ---

func (s *BadgerStore) ExportCollection(ctx context.Context, prefix string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			err := item.Value(func(val []byte) error {
				cp := make([]byte, len(val))
				copy(cp, val)
				out[key] = cp
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "export collection", err)
	}
	return out, nil
}

func (s *BadgerStore) ImportCollection(ctx context.Context, data map[string][]byte) error {
	err := s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		for k, v := range data {
			if err := txn.Set([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "import collection", err)
	}
	return nil
}
