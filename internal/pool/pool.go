// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pool implements the bounded connection pool substrate (C13)
// over a single *store.DB handle. Badger serializes its own transactions
// internally, so the pool here rate-limits concurrent callers rather
// than multiplexing distinct database handles, matching spec.md §5's
// "bounded number of connections" contract without requiring a
// connection-per-handle database.
package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ctxmemory/engine/internal/apperrors"
	"github.com/ctxmemory/engine/internal/store"
)

// Config bounds the pool's concurrent callers.
type Config struct {
	// MinConnections is kept for parity with spec.md's connection-pool
	// language; the semaphore itself is sized by MaxConnections since a
	// single shared *store.DB needs no warm idle handles.
	MinConnections int
	MaxConnections int

	// AcquireTimeout bounds how long Acquire waits for a slot before
	// giving up, in addition to ctx cancellation. Zero disables the
	// timeout.
	AcquireTimeout time.Duration
}

// DefaultConfig returns sensible pool bounds.
func DefaultConfig() Config {
	return Config{MinConnections: 1, MaxConnections: 10, AcquireTimeout: 5 * time.Second}
}

// Conn is a leased handle to the shared database. Callers use DB() to
// reach the underlying store.DB and must call the release func returned
// by Acquire exactly once (though it is safe to call more than once).
type Conn struct {
	db *store.DB
}

// DB returns the underlying database handle.
func (c *Conn) DB() *store.DB { return c.db }

// Pool bounds concurrent access to a single *store.DB behind a
// fixed-size semaphore, mirroring services/trace/context/concurrency.go's
// Semaphore shape.
type Pool struct {
	db       *store.DB
	sem      chan struct{}
	cfg      Config
	acquired int64
	released int64
}

// New builds a Pool around db, sized by cfg.MaxConnections.
func New(db *store.DB, cfg Config) *Pool {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = DefaultConfig().MaxConnections
	}
	return &Pool{
		db:  db,
		sem: make(chan struct{}, cfg.MaxConnections),
		cfg: cfg,
	}
}

// Acquire blocks until a slot is available (or ctx/the configured
// timeout expires), returning a Conn and a release func. release is
// idempotent and should be invoked via defer at call sites so a slot is
// always returned even if the caller panics.
func (p *Pool) Acquire(ctx context.Context) (*Conn, func(), error) {
	acquireCtx := ctx
	var cancel context.CancelFunc
	if p.cfg.AcquireTimeout > 0 {
		acquireCtx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
		defer cancel()
	}

	select {
	case p.sem <- struct{}{}:
	case <-acquireCtx.Done():
		return nil, nil, apperrors.Wrap(apperrors.ErrDatabase, "acquire connection", acquireCtx.Err())
	}

	atomic.AddInt64(&p.acquired, 1)
	conn := &Conn{db: p.db}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-p.sem
			atomic.AddInt64(&p.released, 1)
		})
	}
	return conn, release, nil
}

// Stats reports pool utilization counters.
type Stats struct {
	MaxConnections int
	InUse          int
	Acquired       int64
	Released       int64
}

// Stats returns current pool utilization.
func (p *Pool) Stats() Stats {
	return Stats{
		MaxConnections: cap(p.sem),
		InUse:          len(p.sem),
		Acquired:       atomic.LoadInt64(&p.acquired),
		Released:       atomic.LoadInt64(&p.released),
	}
}

// Close releases pool resources. The underlying *store.DB is owned by
// the caller and is not closed here.
func (p *Pool) Close() {}
