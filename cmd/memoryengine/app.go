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
	"context"
	"fmt"
	"log/slog"

	weaviateclient "github.com/weaviate/weaviate-go-client/v5/weaviate"

	"github.com/ctxmemory/engine/internal/config"
	"github.com/ctxmemory/engine/internal/dehydrate"
	"github.com/ctxmemory/engine/internal/embedding"
	"github.com/ctxmemory/engine/internal/fulltext"
	"github.com/ctxmemory/engine/internal/graph"
	"github.com/ctxmemory/engine/internal/indexing"
	"github.com/ctxmemory/engine/internal/memorybuilder"
	"github.com/ctxmemory/engine/internal/obslog"
	"github.com/ctxmemory/engine/internal/pattern"
	"github.com/ctxmemory/engine/internal/pool"
	"github.com/ctxmemory/engine/internal/profile"
	"github.com/ctxmemory/engine/internal/recall"
	"github.com/ctxmemory/engine/internal/session"
	"github.com/ctxmemory/engine/internal/store"
	"github.com/ctxmemory/engine/internal/vectorindex"
	"github.com/ctxmemory/engine/internal/vectorindex/weaviate"
)

// app is the composition root: every manager the CLI dispatches to, wired
// from one *store.DB behind a bounded pool. Each cobra Run builds an app,
// does one unit of work, and tears it down -- there is no long-lived
// daemon, matching spec.md's "library with a thin CLI front door" shape.
type app struct {
	db            *store.DB
	pool          *pool.Pool
	logger        *slog.Logger
	store         store.Persistence
	shutdownTrace func(context.Context) error

	sessions *session.Manager
	graphs   *graph.Manager
	indexer  *indexing.Coordinator
	builder  *memorybuilder.Builder
	recaller *recall.Recaller
	patterns *pattern.Engine
	profiles *profile.Manager
}

// newApp loads the active configuration, opens the Badger store behind a
// connection pool, and wires every component manager per the selected
// vector/embedding backends.
func newApp() (*app, error) {
	cfg := config.Get()
	logger := obslog.New(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	shutdownTrace := obslog.InitTracing(cfg.Observability.TracingEnabled)

	dbCfg := store.DefaultConfig(cfg.Database.DataDir)
	dbCfg.GCInterval = cfg.Database.GCInterval
	dbCfg.ValueLogGCRatio = cfg.Database.ValueLogGC
	db, err := store.OpenDB(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	p := pool.New(db, pool.Config{
		MinConnections: cfg.Database.MinConnections,
		MaxConnections: cfg.Database.MaxConnections,
		AcquireTimeout: cfg.Database.AcquireTimeout,
	})

	s := store.NewBadgerStore(db)

	vidx, err := buildVectorIndex(cfg.Vector)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build vector index: %w", err)
	}
	ftidx := fulltext.New()
	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build embedding provider: %w", err)
	}

	summarizer := dehydrate.NewRuleBased(200, 5, 5)
	graphs := graph.New(s)
	builder := memorybuilder.New(s, summarizer, graphs, logger)
	indexer := indexing.New(s, vidx, ftidx, embedder)

	return &app{
		db:            db,
		pool:          p,
		logger:        logger,
		store:         s,
		shutdownTrace: shutdownTrace,
		sessions:      session.New(s, indexer),
		graphs:        graphs,
		indexer:       indexer,
		builder:       builder,
		recaller:      recall.New(s),
		patterns:      pattern.New(s),
		profiles:      profile.New(s),
	}, nil
}

// buildVectorIndex selects the in-memory reference Index or a Weaviate-backed
// one per cfg.Backend, matching internal/vectorindex/weaviate's bring-your-own-
// vector schema for the latter.
func buildVectorIndex(cfg config.VectorConfig) (vectorindex.Index, error) {
	switch cfg.Backend {
	case config.VectorBackendWeaviate:
		client, err := weaviateclient.NewClient(weaviateclient.Config{
			Scheme: cfg.Weaviate.Scheme,
			Host:   cfg.Weaviate.Host,
		})
		if err != nil {
			return nil, fmt.Errorf("create weaviate client: %w", err)
		}
		return weaviate.New(client), nil
	case config.VectorBackendMemory, "":
		return vectorindex.New(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Backend)
	}
}

// Close flushes the tracer provider and releases the app's database
// handle. The pool itself owns no resources beyond the semaphore.
func (a *app) Close() {
	if a.shutdownTrace != nil {
		_ = a.shutdownTrace(context.Background())
	}
	a.db.Close()
}

// withApp opens a fresh composition root, leases one slot from its
// connection pool for the duration of fn, and tears everything down
// afterward. Every subcommand runs its body through this helper so the
// pool's concurrency bound applies uniformly even though each CLI
// invocation is a short-lived, single-command process.
func withApp(fn func(ctx context.Context, a *app) (interface{}, error)) (interface{}, error) {
	a, err := newApp()
	if err != nil {
		return nil, err
	}
	defer a.Close()

	ctx := context.Background()
	_, release, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer release()

	return fn(ctx, a)
}
