// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

package imgcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"

	"github.com/imgcache/imgcache/format"
)

// Key uniquely identifies one cached derivative.  Two requests producing the
// same Key must produce the same cached output.
type Key struct {
	Source      string // source path as requested, relative to the roots
	Preset      string
	Format      format.Format
	Fingerprint string // fingerprint of the source file content
}

// String returns the fixed-width cache key for the tuple: a sha256 hex
// digest, collision-free for distinct tuples since the fields are joined
// with NUL separators.
func (k Key) String() string {
	h := sha256.New()
	h.Write([]byte(k.Source))
	h.Write([]byte{0})
	h.Write([]byte(k.Preset))
	h.Write([]byte{0})
	h.Write([]byte(k.Format))
	h.Write([]byte{0})
	h.Write([]byte(k.Fingerprint))
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint derives a source content fingerprint from file metadata.  Size
// plus modification time changes whenever the source is rewritten, which is
// what invalidates stale derivatives.
func Fingerprint(fi fs.FileInfo) string {
	return fmt.Sprintf("%x-%x", fi.Size(), fi.ModTime().UnixNano())
}
