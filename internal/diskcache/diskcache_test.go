// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

package diskcache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

const testKey = "c0ffee00deadbeef"

func newTestCache(t *testing.T) (*Cache, string) {
	t.Helper()
	dir := t.TempDir()
	c, err := New(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, dir
}

func TestSetGetDelete(t *testing.T) {
	c, _ := newTestCache(t)

	if _, ok := c.Get(testKey); ok {
		t.Error("Get on empty cache returned ok")
	}

	want := []byte("derivative bytes")
	c.Set(testKey, want)

	got, ok := c.Get(testKey)
	if !ok || !bytes.Equal(got, want) {
		t.Errorf("Get = %q, %t; want %q, true", got, ok, want)
	}

	c.Delete(testKey)
	if _, ok := c.Get(testKey); ok {
		t.Error("Get after Delete returned ok")
	}
	// deleting a missing key is not an error
	c.Delete(testKey)
}

func TestShardLayout(t *testing.T) {
	c, dir := newTestCache(t)
	c.Set(testKey, []byte("x"))

	// For key "c0ffee...", the entry lives at "c0/ff/c0ffee..."
	path := filepath.Join(dir, "c0", "ff", testKey)
	if _, err := os.Stat(path); err != nil {
		t.Errorf("entry not at sharded path %s: %v", path, err)
	}
}

func TestStat(t *testing.T) {
	c, _ := newTestCache(t)

	if _, ok := c.Stat(testKey); ok {
		t.Error("Stat on missing entry returned ok")
	}

	data := []byte("0123456789")
	c.Set(testKey, data)

	info, ok := c.Stat(testKey)
	if !ok {
		t.Fatal("Stat on existing entry returned !ok")
	}
	if info.Size != int64(len(data)) {
		t.Errorf("Stat Size = %d, want %d", info.Size, len(data))
	}
	if info.ModTime.IsZero() {
		t.Error("Stat ModTime is zero")
	}
}

func TestSurvivesWipe(t *testing.T) {
	c, dir := newTestCache(t)
	c.Set(testKey, []byte("before"))

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get(testKey); ok {
		t.Error("Get returned ok after wipe")
	}
	c.Set(testKey, []byte("after"))
	got, ok := c.Get(testKey)
	if !ok || !bytes.Equal(got, []byte("after")) {
		t.Errorf("Get after wipe+Set = %q, %t; want %q, true", got, ok, "after")
	}
}

func TestFailedWriteCounted(t *testing.T) {
	c, dir := newTestCache(t)

	// occupy the shard directory path with a regular file so the write
	// cannot create it
	if err := os.WriteFile(filepath.Join(dir, testKey[0:2]), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	before := testutil.ToFloat64(storeFailures)
	c.Set(testKey, []byte("payload"))
	if got := testutil.ToFloat64(storeFailures); got != before+1 {
		t.Errorf("store_failures = %v, want %v", got, before+1)
	}
	if _, ok := c.Get(testKey); ok {
		t.Error("Get returned ok after failed write")
	}
}

func TestNoStrayTempFiles(t *testing.T) {
	c, dir := newTestCache(t)
	c.Set(testKey, []byte("payload"))

	entries, err := os.ReadDir(filepath.Join(dir, tempDirName))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir contains %d leftover files after Set", len(entries))
	}
}
