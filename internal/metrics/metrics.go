// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package metrics holds the engine's Prometheus instrumentation, registered
// once at process startup via promauto and read by every component package.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IndexDuration tracks time spent in the Index Coordinator's 6-step
	// pipeline, labeled by outcome.
	IndexDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ctxmemory_index_duration_seconds",
		Help:    "Time to index a turn through the coordinator pipeline",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"status"})

	// RecallDuration tracks time spent in hybrid_search, labeled by outcome.
	RecallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ctxmemory_recall_duration_seconds",
		Help:    "Time to run a hybrid_search recall",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"status"})

	// RecallPathDuration tracks each of the three concurrent recall paths
	// independently.
	RecallPathDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ctxmemory_recall_path_duration_seconds",
		Help:    "Time spent in a single recall path (semantic/temporal/contextual)",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"path", "status"})

	// MemoriesTotal counts memories by type and status, as a point-in-time
	// gauge refreshed by the memory builder on every write.
	MemoriesTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ctxmemory_memories_total",
		Help: "Current count of memories by type and status",
	}, []string{"memory_type", "status"})

	// GraphOperationsTotal counts entity graph mutations by kind.
	GraphOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ctxmemory_graph_operations_total",
		Help: "Total entity graph operations by kind and status",
	}, []string{"operation", "status"})

	// PatternUsageTotal counts pattern outcome recordings by result.
	PatternUsageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ctxmemory_pattern_usage_total",
		Help: "Total pattern usages recorded by outcome bucket",
	}, []string{"pattern_id", "bucket"})

	// CacheOperationsTotal counts cache hits/misses/evictions.
	CacheOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ctxmemory_cache_operations_total",
		Help: "Total cache operations by kind",
	}, []string{"cache", "kind"})

	// PoolInUse tracks the number of in-use connections in the bounded pool.
	PoolInUse = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ctxmemory_pool_in_use",
		Help: "Number of connections currently checked out of the pool",
	}, []string{"pool"})

	// EmbeddingDuration tracks embedding provider call latency.
	EmbeddingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ctxmemory_embedding_duration_seconds",
		Help:    "Time spent calling the embedding provider",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"backend", "status"})
)
