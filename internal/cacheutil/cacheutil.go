// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
)

// TempPrefix marks files that are still being written. They are never read as
// entries.
const TempPrefix = ".tmp-"

// Environment variables read by this package.
const (
	EnvDir     = "KVCACHE_DIR"
	EnvEnabled = "KVCACHE_CACHE"
)

// Dir resolves the base cache directory.
// Precedence:
//  1. KVCACHE_DIR, if set and non-empty
//  2. os.UserCacheDir()/kvcache
//
// Returns ("", false) if a base cannot be resolved (treat as disabled).
func Dir() (string, bool) {
	if c, ok := os.LookupEnv(EnvDir); ok && c != "" {
		return c, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "kvcache"), true
	}
	return "", false
}

// Enabled returns true unless KVCACHE_CACHE explicitly disables durable
// storage ("0"/"false").
func Enabled() bool {
	enabled, _ := os.LookupEnv(EnvEnabled)
	return enabled == "" || (enabled != "0" && enabled != "false")
}

// EnsureDir creates dir if needed and returns it.
func EnsureDir(dir string) (string, error) {
	if dir == "" {
		return "", errors.New("cache directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return dir, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return dir, nil
}

// EnsureBaseDir creates the base cache directory if durable storage is
// enabled and a base path can be resolved. Returns the path, whether it is
// usable, and an error if creation failed.
func EnsureBaseDir() (string, bool, error) {
	if !Enabled() {
		return "", false, nil
	}
	base, ok := Dir()
	if !ok {
		return "", false, nil
	}
	if _, err := EnsureDir(base); err != nil {
		return base, false, err
	}
	return base, true, nil
}

// EncodeKey hashes k with MD5 and returns the hex string. Distinct keys with
// the same digest map to the same file; callers must compare the clear key
// stored inside the file.
func EncodeKey(k string) string {
	h := md5.New()
	_, _ = h.Write([]byte(k))
	return hex.EncodeToString(h.Sum(nil))
}

// EntryPath returns the path where the entry for clearKey lives beneath dir.
func EntryPath(dir, clearKey string) string {
	return filepath.Join(dir, EncodeKey(clearKey))
}

// IsTemp reports whether name is an in-flight write.
func IsTemp(name string) bool {
	return strings.HasPrefix(name, TempPrefix)
}

// WriteAtomic writes data to dir/name so that a concurrent reader sees either
// the previous file or the complete new one: the bytes go to a temp file in
// the same directory, are synced, and the temp file is renamed over the
// target.
func WriteAtomic(dir, name string, data []byte) (err error) {
	f, err := os.CreateTemp(dir, TempPrefix+name+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync cache file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err = os.Chmod(tmp, os.FileMode(0o600)); err != nil { //nolint:mnd
		return fmt.Errorf("failed to chmod cache file: %w", err)
	}
	if err = os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// PurgeTemp removes temp files under dir older than maxAge. These are left
// behind only when a process dies mid-write. If maxAge <= 0 it is a no-op.
func PurgeTemp(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		log.Debug("temp purge disabled")
		return 0, nil
	}
	removed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !IsTemp(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if time.Since(info.ModTime()) > maxAge {
			if err := os.Remove(path); err == nil {
				removed++
				log.Debugf("removed stale temp file %s", path)
			} else {
				log.WithError(err).Warnf("failed to remove temp file %s", path)
			}
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to purge temp files: %w", err)
	}
	return removed, nil
}
