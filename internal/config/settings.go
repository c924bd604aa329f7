// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/staranto/kvcache/internal/cacheutil"
	"github.com/staranto/kvcache/internal/codec"
)

// Store kinds.
const (
	StoreDisk   = "disk"
	StoreMemory = "memory"
)

// Compression mirrors the compression block of the config file.
type Compression struct {
	Enabled   bool
	Level     int
	Threshold int
	Method    codec.Method
}

// Settings is the typed view of the config file with defaults applied.
type Settings struct {
	Dir             string
	Store           string
	CleanupInterval time.Duration
	Compression     Compression
	Lzma2Limit      int
	Output          string
	Color           bool
}

// Defaults returns the settings used when no config file is present.
func Defaults() Settings {
	dir, _ := cacheutil.Dir()
	return Settings{
		Dir:             dir,
		Store:           StoreDisk,
		CleanupInterval: 60 * time.Second,
		Compression: Compression{
			Enabled:   true,
			Level:     codec.DefaultLevel,
			Threshold: 1024,
			Method:    codec.Zlib,
		},
		Lzma2Limit: 10 << 20,
		Output:     "text",
		Color:      false,
	}
}

// Resolve overlays Config on Defaults. KVCACHE_DIR beats the file's dir and
// KVCACHE_CACHE=0 forces the memory store.
func Resolve() (Settings, error) {
	s := Defaults()
	var err error

	if s.Dir, err = GetString("dir", s.Dir); err != nil {
		return s, fmt.Errorf("dir: %w", err)
	}
	if dir := os.Getenv(cacheutil.EnvDir); dir != "" {
		s.Dir = dir
	}
	if s.Store, err = GetString("store", s.Store); err != nil {
		return s, fmt.Errorf("store: %w", err)
	}
	s.Store = strings.ToLower(strings.TrimSpace(s.Store))
	if !cacheutil.Enabled() {
		s.Store = StoreMemory
	}
	if s.CleanupInterval, err = GetDuration("cleanup_interval", s.CleanupInterval); err != nil {
		return s, fmt.Errorf("cleanup_interval: %w", err)
	}
	if s.Compression.Enabled, err = GetBool("compression.enabled", s.Compression.Enabled); err != nil {
		return s, fmt.Errorf("compression.enabled: %w", err)
	}
	if s.Compression.Level, err = GetInt("compression.level", s.Compression.Level); err != nil {
		return s, fmt.Errorf("compression.level: %w", err)
	}
	if s.Compression.Threshold, err = GetBytes("compression.threshold", s.Compression.Threshold); err != nil {
		return s, fmt.Errorf("compression.threshold: %w", err)
	}
	method, err := GetString("compression.method", s.Compression.Method.String())
	if err != nil {
		return s, fmt.Errorf("compression.method: %w", err)
	}
	if s.Compression.Method, err = codec.ParseMethod(method); err != nil {
		return s, fmt.Errorf("compression.method: %w", err)
	}
	if s.Lzma2Limit, err = GetBytes("lzma2_limit", s.Lzma2Limit); err != nil {
		return s, fmt.Errorf("lzma2_limit: %w", err)
	}
	if s.Output, err = GetString("output", s.Output); err != nil {
		return s, fmt.Errorf("output: %w", err)
	}
	if s.Color, err = GetBool("color", s.Color); err != nil {
		return s, fmt.Errorf("color: %w", err)
	}

	return s, s.Validate()
}

// Validate rejects settings the engine cannot run with.
func (s Settings) Validate() error {
	switch s.Store {
	case StoreDisk, StoreMemory:
	default:
		return fmt.Errorf("store: unknown kind %q", s.Store)
	}
	if s.Store == StoreDisk && s.Dir == "" {
		return fmt.Errorf("dir: must be set for the disk store")
	}
	if s.Compression.Level < codec.MinLevel || s.Compression.Level > codec.MaxLevel {
		return fmt.Errorf("compression.level: %d not in %d..%d", s.Compression.Level, codec.MinLevel, codec.MaxLevel)
	}
	if s.Compression.Threshold < 0 {
		return fmt.Errorf("compression.threshold: must not be negative")
	}
	if s.Lzma2Limit <= 0 {
		return fmt.Errorf("lzma2_limit: must be positive")
	}
	return nil
}
