// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

// Package diskcache implements the on-disk derivative store.  Entries are
// sharded two levels deep by key prefix and written through a temp file plus
// atomic rename, so concurrent readers never observe partial writes.  The
// directory is a pure cache: it can be wiped at any time and entries are
// re-derived on demand.
package diskcache

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/peterbourgon/diskv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const tempDirName = ".tmp"

var storeFailures = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "store_failures",
	Help: "Derivative writes that failed to persist.",
})

func init() {
	prometheus.MustRegister(storeFailures)
}

// EntryInfo is the metadata exposed for external eviction policies.
type EntryInfo struct {
	Size    int64
	ModTime time.Time
}

// Cache is a disk-backed derivative store.
type Cache struct {
	d    *diskv.Diskv
	base string
	tmp  string
	log  zerolog.Logger
}

// New creates a disk cache rooted at basePath, creating the directory if
// absent.
func New(basePath string, logger zerolog.Logger) (*Cache, error) {
	if basePath == "" {
		return nil, errors.New("diskcache: base path is empty")
	}
	tmp := filepath.Join(basePath, tempDirName)
	if err := os.MkdirAll(tmp, 0700); err != nil {
		return nil, err
	}

	d := diskv.New(diskv.Options{
		BasePath: basePath,
		TempDir:  tmp,

		// For key "c0ffee...", store file as "c0/ff/c0ffee..."
		Transform: shard,
	})
	return &Cache{d: d, base: basePath, tmp: tmp, log: logger}, nil
}

func shard(key string) []string {
	if len(key) < 4 {
		return nil
	}
	return []string{key[0:2], key[2:4]}
}

// Get returns the cached bytes for key.
func (c *Cache) Get(key string) ([]byte, bool) {
	b, err := c.d.Read(key)
	if err != nil {
		return nil, false
	}
	return b, true
}

// Set persists data under key.  The write goes through a temp file and an
// atomic rename; failures are logged and dropped, leaving no partial entry.
func (c *Cache) Set(key string, data []byte) {
	// recreate the temp dir so the cache survives being wiped at runtime
	if err := os.MkdirAll(c.tmp, 0700); err != nil {
		storeFailures.Inc()
		c.log.Error().Str("key", key).Err(err).Msg("cache write failed")
		return
	}
	if err := c.d.Write(key, data); err != nil {
		storeFailures.Inc()
		c.log.Error().Str("key", key).Err(err).Msg("cache write failed")
	}
}

// Delete removes the entry for key, if present.
func (c *Cache) Delete(key string) {
	if err := c.d.Erase(key); err != nil && !os.IsNotExist(err) {
		c.log.Warn().Str("key", key).Err(err).Msg("cache delete failed")
	}
}

// Stat returns entry metadata without reading the content.  The path layout
// is deterministic, so this is a single stat call.
func (c *Cache) Stat(key string) (EntryInfo, bool) {
	parts := append([]string{c.base}, shard(key)...)
	parts = append(parts, key)
	fi, err := os.Stat(filepath.Join(parts...))
	if err != nil || !fi.Mode().IsRegular() {
		return EntryInfo{}, false
	}
	return EntryInfo{Size: fi.Size(), ModTime: fi.ModTime()}, true
}
