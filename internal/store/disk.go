// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/apex/log"

	"github.com/staranto/kvcache/internal/cacheutil"
	"github.com/staranto/kvcache/internal/entry"
)

// EntriesDir is the subdirectory of the cache directory holding entry files.
const EntriesDir = "entries"

// staleTempAge is how old an orphaned temp file must be before Open removes it.
const staleTempAge = time.Hour

// Disk is a Store with one JSON record file per key. File names are the MD5
// of the key; the clear key is kept inside the record and checked on every
// read so that two keys sharing a digest are never confused. Such a pair
// cannot both be stored: the later Put replaces the earlier one.
type Disk struct {
	dir    string
	closed atomic.Bool
}

// NewDisk opens (creating if needed) a durable store rooted at dir.
func NewDisk(dir string) (*Disk, error) {
	entries := filepath.Join(dir, EntriesDir)
	if _, err := cacheutil.EnsureDir(entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if n, err := cacheutil.PurgeTemp(entries, staleTempAge); err != nil {
		log.WithError(err).Warn("could not purge stale temp files")
	} else if n > 0 {
		log.Debugf("purged %d stale temp files from %s", n, entries)
	}
	return &Disk{dir: entries}, nil
}

// Dir is the directory holding the entry files.
func (d *Disk) Dir() string { return d.dir }

// Path returns the file that holds key.
func (d *Disk) Path(key string) string {
	return cacheutil.EntryPath(d.dir, key)
}

func (d *Disk) check(ctx context.Context) error {
	if d.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}

func (d *Disk) Get(ctx context.Context, key string) (entry.Entry, bool, error) {
	if err := d.check(ctx); err != nil {
		return entry.Entry{}, false, err
	}
	b, err := os.ReadFile(d.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return entry.Entry{}, false, nil
	}
	if err != nil {
		return entry.Entry{}, false, fmt.Errorf("%w: failed to read cache file: %v", ErrStorage, err)
	}
	e, err := entry.Unmarshal(b)
	if err != nil {
		return entry.Entry{}, false, fmt.Errorf("key %q: %w", key, err)
	}
	if e.Key != key {
		log.WithField("key", key).WithField("stored", e.Key).Warn("cache file name collision")
		return entry.Entry{}, false, nil
	}
	return e, true, nil
}

func (d *Disk) Put(ctx context.Context, e entry.Entry) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	b, err := entry.Marshal(e)
	if err != nil {
		return err
	}
	if err := cacheutil.WriteAtomic(d.dir, cacheutil.EncodeKey(e.Key), b); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// Delete leaves the file alone when it holds a different key with the same
// digest. Corrupt files are removed.
func (d *Disk) Delete(ctx context.Context, key string) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	path := d.Path(key)
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err == nil {
		if e, perr := entry.Unmarshal(b); perr == nil && e.Key != key {
			return nil
		}
	}
	return d.remove(path)
}

func (d *Disk) remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: failed to remove cache file: %v", ErrStorage, err)
	}
	return nil
}

func (d *Disk) files() ([]os.DirEntry, error) {
	files, err := os.ReadDir(d.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list cache directory: %v", ErrStorage, err)
	}
	return files, nil
}

// Clear removes every entry file, in-flight temp files included.
func (d *Disk) Clear(ctx context.Context) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	files, err := d.files()
	if err != nil {
		return err
	}
	var errs []error
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if err := d.remove(filepath.Join(d.dir, f.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Scan reads the files one at a time. Units that vanish mid-scan are skipped;
// corrupt units are logged and skipped.
func (d *Disk) Scan(ctx context.Context, fn func(entry.Entry) bool) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	files, err := d.files()
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := d.check(ctx); err != nil {
			return err
		}
		if f.IsDir() || cacheutil.IsTemp(f.Name()) {
			continue
		}
		path := filepath.Join(d.dir, f.Name())
		b, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: failed to read cache file: %v", ErrStorage, err)
		}
		e, err := entry.Unmarshal(b)
		if err != nil {
			log.WithError(err).WithField("file", f.Name()).Warn("skipping corrupt cache file")
			continue
		}
		if !fn(e) {
			return nil
		}
	}
	return nil
}

// Len counts entry files without parsing them.
func (d *Disk) Len(ctx context.Context) (int, error) {
	if err := d.check(ctx); err != nil {
		return 0, err
	}
	files, err := d.files()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range files {
		if !f.IsDir() && !cacheutil.IsTemp(f.Name()) {
			n++
		}
	}
	return n, nil
}

func (d *Disk) Close() error {
	d.closed.Store(true)
	return nil
}
