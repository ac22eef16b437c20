// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package config provides configuration types and loading for the memory
engine.

# Overview

This package defines the configuration schema for the engine, including:
  - Persistence (Badger data directory, connection pool sizing)
  - Vector index backend selection (in-memory or Weaviate)
  - Embedding provider selection (ollama, openai, simple)
  - Recall fusion weights
  - Cache and performance tunables

# Configuration File

The configuration is stored at the path passed to Load, or
~/.ctxmemory/engine.yaml by default, and is created automatically on first
run with sensible defaults. Load itself does not watch the file; a Watcher
built with NewWatcher reloads the whole file into the Global singleton
whenever the file is written.
*/
package config

import "time"

// VectorBackend selects the Vector Index implementation.
type VectorBackend string

const (
	VectorBackendMemory   VectorBackend = "memory"
	VectorBackendWeaviate VectorBackend = "weaviate"
)

// IsValid reports whether b is a known backend.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendWeaviate:
		return true
	}
	return false
}

// EmbeddingBackend selects the Embedding Provider implementation.
type EmbeddingBackend string

const (
	EmbeddingBackendOllama EmbeddingBackend = "ollama"
	EmbeddingBackendOpenAI EmbeddingBackend = "openai"
	EmbeddingBackendSimple EmbeddingBackend = "simple"
)

// IsValid reports whether b is a known backend.
func (b EmbeddingBackend) IsValid() bool {
	switch b {
	case EmbeddingBackendOllama, EmbeddingBackendOpenAI, EmbeddingBackendSimple:
		return true
	}
	return false
}

// DatabaseConfig configures the Badger-backed persistence layer.
type DatabaseConfig struct {
	DataDir         string        `yaml:"data_dir"`
	MaxConnections  int           `yaml:"max_connections"`
	MinConnections  int           `yaml:"min_connections"`
	AcquireTimeout  time.Duration `yaml:"acquire_timeout"`
	GCInterval      time.Duration `yaml:"gc_interval"`
	ValueLogGC      float64       `yaml:"value_log_gc_ratio"`
}

// WeaviateConfig configures the Weaviate vector-index backend.
type WeaviateConfig struct {
	Scheme  string `yaml:"scheme"`
	Host    string `yaml:"host"`
	APIKey  string `yaml:"api_key,omitempty"`
	ClassName string `yaml:"class_name"`
}

// VectorConfig configures the Vector Index component (C4).
type VectorConfig struct {
	Backend   VectorBackend  `yaml:"backend"`
	Dimension int            `yaml:"dimension"`
	Weaviate  WeaviateConfig `yaml:"weaviate"`
}

// OllamaConfig configures the Ollama embedding/summarization backend.
type OllamaConfig struct {
	HostURL        string        `yaml:"host_url"`
	EmbeddingModel string        `yaml:"embedding_model"`
	ChatModel      string        `yaml:"chat_model"`
	Timeout        time.Duration `yaml:"timeout"`
}

// OpenAIConfig configures the OpenAI embedding/summarization backend.
type OpenAIConfig struct {
	APIKey         string        `yaml:"api_key,omitempty"`
	BaseURL        string        `yaml:"base_url,omitempty"`
	EmbeddingModel string        `yaml:"embedding_model"`
	ChatModel      string        `yaml:"chat_model"`
	Timeout        time.Duration `yaml:"timeout"`
}

// EmbeddingConfig configures the Embedding Provider component (C1).
type EmbeddingConfig struct {
	Backend   EmbeddingBackend `yaml:"backend"`
	Dimension int              `yaml:"dimension"`
	Ollama    OllamaConfig     `yaml:"ollama"`
	OpenAI    OpenAIConfig     `yaml:"openai"`
}

// RecallWeights are the fusion weights applied to Memory Recall's three
// concurrent paths (semantic, temporal, contextual). Hot-reloadable.
type RecallWeights struct {
	Semantic   float64 `yaml:"semantic"`
	Temporal   float64 `yaml:"temporal"`
	Contextual float64 `yaml:"contextual"`
}

// DefaultRecallWeights returns the spec-mandated default weights.
func DefaultRecallWeights() RecallWeights {
	return RecallWeights{Semantic: 0.6, Temporal: 0.3, Contextual: 0.1}
}

// RecallConfig configures Memory Recall (C10).
type RecallConfig struct {
	Weights       RecallWeights `yaml:"weights"`
	RRFK          int           `yaml:"rrf_k"`
	DefaultLimit  int           `yaml:"default_limit"`
	MaxLimit      int           `yaml:"max_limit"`
}

// CacheConfig configures the Cache substrate (C12). Hot-reloadable.
type CacheConfig struct {
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// PerformanceConfig holds engine-wide concurrency and timeout tunables.
type PerformanceConfig struct {
	IndexWorkers   int           `yaml:"index_workers"`
	RecallTimeout  time.Duration `yaml:"recall_timeout"`
	GraphMaxHops   int           `yaml:"graph_max_hops"`
}

// ObservabilityConfig configures logging, tracing, and metrics.
type ObservabilityConfig struct {
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	MetricsAddr   string `yaml:"metrics_addr"`
	TracingEnabled bool  `yaml:"tracing_enabled"`
}

// EngineConfig is the root configuration structure for the memory engine.
type EngineConfig struct {
	Database      DatabaseConfig      `yaml:"database"`
	Vector        VectorConfig        `yaml:"vector"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Recall        RecallConfig        `yaml:"recall"`
	Cache         CacheConfig         `yaml:"cache"`
	Performance   PerformanceConfig   `yaml:"performance"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// DefaultConfig returns the engine configuration used on first run.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		Database: DatabaseConfig{
			DataDir:        "~/.ctxmemory/data",
			MaxConnections: 8,
			MinConnections: 1,
			AcquireTimeout: 5 * time.Second,
			GCInterval:     10 * time.Minute,
			ValueLogGC:     0.5,
		},
		Vector: VectorConfig{
			Backend:   VectorBackendMemory,
			Dimension: 768,
			Weaviate: WeaviateConfig{
				Scheme:    "http",
				Host:      "localhost:8080",
				ClassName: "CtxMemory",
			},
		},
		Embedding: EmbeddingConfig{
			Backend:   EmbeddingBackendSimple,
			Dimension: 768,
			Ollama: OllamaConfig{
				HostURL:        "http://localhost:11434",
				EmbeddingModel: "nomic-embed-text-v2-moe",
				ChatModel:      "gpt-oss",
				Timeout:        60 * time.Second,
			},
			OpenAI: OpenAIConfig{
				EmbeddingModel: "text-embedding-3-small",
				ChatModel:      "gpt-4o-mini",
				Timeout:        60 * time.Second,
			},
		},
		Recall: RecallConfig{
			Weights:      DefaultRecallWeights(),
			RRFK:         60,
			DefaultLimit: 10,
			MaxLimit:     100,
		},
		Cache: CacheConfig{
			MaxEntries: 1024,
			TTL:        5 * time.Minute,
		},
		Performance: PerformanceConfig{
			IndexWorkers:  4,
			RecallTimeout: 10 * time.Second,
			GraphMaxHops:  6,
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      "json",
			MetricsAddr:    ":9090",
			TracingEnabled: false,
		},
	}
}
