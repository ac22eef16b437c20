// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	// Global is the process-wide singleton, loaded once via Load.
	Global atomic.Pointer[EngineConfig]
	once   sync.Once

	validate = validator.New()
)

// loadErr holds the result of the first Load call.
var loadErr error

// Load ensures the config is loaded into Global exactly once. Subsequent
// calls are no-ops and return the error (if any) from the first call.
func Load(path string) error {
	once.Do(func() {
		loadErr = loadInternal(path)
	})
	return loadErr
}

func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".ctxmemory", "engine.yaml"), nil
}

func loadInternal(path string) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(resolved); os.IsNotExist(err) {
		if err := createDefault(resolved); err != nil {
			return err
		}
	}
	cfg, err := readConfig(resolved)
	if err != nil {
		return err
	}
	Global.Store(cfg)
	return nil
}

func readConfig(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if !cfg.Vector.Backend.IsValid() {
		return nil, fmt.Errorf("config validation failed: unknown vector backend %q", cfg.Vector.Backend)
	}
	if !cfg.Embedding.Backend.IsValid() {
		return nil, fmt.Errorf("config validation failed: unknown embedding backend %q", cfg.Embedding.Backend)
	}
	return &cfg, nil
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	defaultCfg := DefaultConfig()
	data, err := yaml.Marshal(defaultCfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Get returns the current config snapshot. It is safe to call concurrently
// with Watch's hot-reload writes; Load must have succeeded first.
func Get() *EngineConfig {
	return Global.Load()
}

// Watcher reloads Global when the backing file changes on disk. Only
// RecallWeights and Cache settings are intended to change at runtime; other
// sections (database paths, backend selection) require a process restart
// to take effect safely, but the watcher reloads the whole struct verbatim
// since EngineConfig is replaced atomically.
type Watcher struct {
	path    string
	fsw     *fsnotify.Watcher
	logger  *slog.Logger
	closeCh chan struct{}
}

// NewWatcher starts watching path for changes and hot-reloading Global.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(resolved)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{path: resolved, fsw: fsw, logger: logger, closeCh: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := readConfig(w.path)
			if err != nil {
				w.logger.Warn("config reload failed, keeping previous config", "error", err, "path", w.path)
				continue
			}
			Global.Store(cfg)
			w.logger.Info("config reloaded", "path", w.path)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		case <-w.closeCh:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.closeCh)
	return w.fsw.Close()
}
