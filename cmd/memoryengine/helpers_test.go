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
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctxmemory/engine/internal/dehydrate"
	"github.com/ctxmemory/engine/internal/embedding"
	"github.com/ctxmemory/engine/internal/fulltext"
	"github.com/ctxmemory/engine/internal/graph"
	"github.com/ctxmemory/engine/internal/indexing"
	"github.com/ctxmemory/engine/internal/memorybuilder"
	"github.com/ctxmemory/engine/internal/pattern"
	"github.com/ctxmemory/engine/internal/pool"
	"github.com/ctxmemory/engine/internal/profile"
	"github.com/ctxmemory/engine/internal/recall"
	"github.com/ctxmemory/engine/internal/session"
	"github.com/ctxmemory/engine/internal/store"
	"github.com/ctxmemory/engine/internal/vectorindex"
)

// newTestApp builds an *app around an in-memory store, bypassing
// newApp's config.Load/filesystem dependency so the extracted
// orchestration functions can be exercised directly in-process.
func newTestApp(t *testing.T) *app {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := store.NewBadgerStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := graph.New(s)
	summarizer := dehydrate.NewRuleBased(200, 5, 5)
	indexer := indexing.New(s, vectorindex.New(8), fulltext.New(), embedding.NewSimple(8))

	return &app{
		db:       db,
		pool:     pool.New(db, pool.DefaultConfig()),
		logger:   logger,
		store:    s,
		sessions: session.New(s, indexer),
		graphs:   g,
		indexer:  indexer,
		builder:  memorybuilder.New(s, summarizer, g, logger),
		recaller: recall.New(s),
		patterns: pattern.New(s),
		profiles: profile.New(s),
	}
}
