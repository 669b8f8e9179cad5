// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

package imgcache

// Cache persists derivatives keyed by their derivation key.  Implementations
// must be safe for concurrent use and must never expose partially written
// entries to readers.
//
// The interface matches the shape used by die-net/lrucache and twotier, so
// those can be stacked in front of the disk store without adapters.
type Cache interface {
	// Get retrieves the cached bytes for key.
	Get(key string) ([]byte, bool)

	// Set caches data under key.  Implementations log and drop failed
	// writes; a failed Set must leave no partial entry behind.
	Set(key string, data []byte)

	// Delete removes the entry for key.
	Delete(key string)
}

// NopCache is a Cache that stores nothing, for tests and cache-disabled
// operation.
var NopCache Cache = nopCache{}

type nopCache struct{}

func (nopCache) Get(string) ([]byte, bool) { return nil, false }
func (nopCache) Set(string, []byte)        {}
func (nopCache) Delete(string)             {}
