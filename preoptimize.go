// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

package imgcache

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/imgcache/imgcache/format"
)

// preoptimizeJob is one (source, preset, format) combination to materialize.
type preoptimizeJob struct {
	rel    string
	abs    string
	fi     fs.FileInfo
	preset *Preset
	f      format.Format
}

// PreOptimize eagerly generates derivatives for every preset flagged with
// pre_optimize, across all configured output formats, so first-request
// latency for those paths is eliminated.  The pass is best effort: per-file
// failures are logged and skipped, and only the cache directory is written,
// never the roots.  Enumeration stops early if ctx is cancelled.
func (e *Engine) PreOptimize(ctx context.Context) {
	var presets []*Preset
	for _, p := range e.cfg.Sizes {
		if p.PreOptimize {
			presets = append(presets, p)
		}
	}
	if len(presets) == 0 {
		return
	}

	jobs := make(chan preoptimizeJob)
	var wg sync.WaitGroup
	workers := runtime.GOMAXPROCS(0)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				e.preoptimizeOne(ctx, job)
			}
		}()
	}

	// first root wins for duplicate relative paths, matching source
	// resolution order
	seen := make(map[string]bool)
	for _, root := range e.cfg.Roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				e.log.Warn().Str("path", path).Err(err).Msg("preoptimize: walk error")
				return nil
			}
			if ctx.Err() != nil {
				return fs.SkipAll
			}
			if d.IsDir() || !isImagePath(path) {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)
			if seen[rel] {
				return nil
			}
			seen[rel] = true

			fi, err := d.Info()
			if err != nil || !fi.Mode().IsRegular() {
				return nil
			}

			for _, p := range presets {
				if !p.Matches(rel) {
					continue
				}
				for _, f := range e.cfg.Formats() {
					select {
					case jobs <- preoptimizeJob{rel: rel, abs: path, fi: fi, preset: p, f: f}:
					case <-ctx.Done():
						return fs.SkipAll
					}
				}
			}
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			e.log.Warn().Str("root", root).Err(err).Msg("preoptimize: root enumeration failed")
		}
	}
	close(jobs)
	wg.Wait()
}

func (e *Engine) preoptimizeOne(ctx context.Context, job preoptimizeJob) {
	key := Key{
		Source:      job.rel,
		Preset:      job.preset.Name,
		Format:      job.f,
		Fingerprint: Fingerprint(job.fi),
	}
	_, hit, err := e.EnsureCached(ctx, key, job.abs, job.preset)
	if err != nil {
		e.log.Warn().
			Str("path", job.rel).
			Str("size", job.preset.Name).
			Str("format", string(job.f)).
			Err(err).
			Msg("preoptimize: skipped")
		return
	}
	if !hit {
		preoptimizeCount.Inc()
	}
}

// isImagePath reports whether the file extension names a decodable format.
// Extension-less files are skipped during enumeration; they are still served
// on demand since request-time decoding sniffs content, not names.
func isImagePath(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return false
	}
	_, ok := format.ByName(ext)
	return ok
}
