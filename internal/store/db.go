// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store implements the Persistence contract (C3) over an embedded
// Badger key-value database. Every other persisted component (session log,
// index records, memories, graph, patterns, profiles) goes through this
// package using named key prefixes within one shared DB.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ctxmemory/engine/internal/apperrors"
)

// DBConfig configures a DB's underlying Badger instance.
type DBConfig struct {
	Dir               string
	InMemory          bool
	SyncWrites        bool
	NumVersionsToKeep int
	GCInterval        time.Duration
	ValueLogGCRatio   float64
}

// DefaultConfig returns sane on-disk defaults.
func DefaultConfig(dir string) DBConfig {
	return DBConfig{
		Dir:               dir,
		SyncWrites:        false,
		NumVersionsToKeep: 1,
		GCInterval:        10 * time.Minute,
		ValueLogGCRatio:   0.5,
	}
}

// InMemoryConfig returns a configuration for a throwaway in-memory DB, used
// by tests through OpenInMemory.
func InMemoryConfig() DBConfig {
	return DBConfig{
		InMemory:          true,
		SyncWrites:        false,
		NumVersionsToKeep: 1,
		GCInterval:        0,
		ValueLogGCRatio:   0.5,
	}
}

// DB wraps a *badger.DB with context-aware transaction helpers and a
// background value-log GC loop.
type DB struct {
	bdb        *badger.DB
	gcInterval time.Duration
	gcRatio    float64
	stopGC     chan struct{}
}

// OpenDB opens (or creates) a Badger database per cfg.
func OpenDB(cfg DBConfig) (*DB, error) {
	opts := badger.DefaultOptions(cfg.Dir)
	opts = opts.WithInMemory(cfg.InMemory)
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(cfg.NumVersionsToKeep)
	opts = opts.WithLogger(nil)

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "open badger db", err)
	}

	db := &DB{
		bdb:        bdb,
		gcInterval: cfg.GCInterval,
		gcRatio:    cfg.ValueLogGCRatio,
		stopGC:     make(chan struct{}),
	}
	if !cfg.InMemory && cfg.GCInterval > 0 {
		go db.runGC()
	}
	return db, nil
}

// OpenInMemory opens a throwaway in-memory database, used by tests.
func OpenInMemory() (*DB, error) {
	return OpenDB(InMemoryConfig())
}

// OpenWithPath opens a persistent database rooted at dir.
func OpenWithPath(dir string) (*DB, error) {
	return OpenDB(DefaultConfig(dir))
}

func (db *DB) runGC() {
	ticker := time.NewTicker(db.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for {
				if err := db.bdb.RunValueLogGC(db.gcRatio); err != nil {
					break
				}
			}
		case <-db.stopGC:
			return
		}
	}
}

// Close flushes and closes the underlying Badger database.
func (db *DB) Close() error {
	close(db.stopGC)
	return db.bdb.Close()
}

// WithTxn runs fn inside a read-write Badger transaction, committing on
// success and discarding on error. Returns early if ctx is already done.
func (db *DB) WithTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	return db.bdb.Update(fn)
}

// WithReadTxn runs fn inside a read-only Badger transaction.
func (db *DB) WithReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	return db.bdb.View(fn)
}
