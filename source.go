// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

package imgcache

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ResolveSource locates a source image by searching roots in order for the
// first existing regular file.  The request path is normalized inside each
// root before the lookup, so the returned path can never escape a root
// regardless of traversal segments in the input.
func ResolveSource(roots []string, path string) (string, fs.FileInfo, error) {
	for _, root := range roots {
		abs := assembleFilePath(root, path)
		fi, err := os.Stat(abs)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		return abs, fi, nil
	}
	return "", nil, fmt.Errorf("%w: %q", ErrSourceNotFound, path)
}

// assembleFilePath joins root and a request path so that the result stays
// inside root.  Parent segments pop a previously pushed segment and are
// otherwise ignored; there is no filesystem access and therefore no symlink
// resolution, which can matter for multitenant roots.
func assembleFilePath(root, path string) string {
	var components []string
	for _, c := range strings.Split(path, "/") {
		switch c {
		case "", ".":
		case "..":
			if len(components) > 0 {
				components = components[:len(components)-1]
			}
		default:
			components = append(components, c)
		}
	}
	return filepath.Join(append([]string{root}, components...)...)
}
