// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

// Package imgcache implements an image derivative cache: it resolves request
// paths to source images and size presets, negotiates an output format, and
// serves previously materialized derivatives or synthesizes them exactly
// once under concurrent load.  For typical use of creating an Engine behind
// an HTTP server, see cmd/imgcache/main.go.
package imgcache

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/imgcache/imgcache/format"
)

// Engine serves image derivative requests.
type Engine struct {
	cfg    *Config
	router *Router
	cache  Cache
	log    zerolog.Logger

	// group deduplicates concurrent derivations per key.  This is the only
	// process-wide mutable state besides the cache directory itself.
	group singleflight.Group

	// transform is the derivation pipeline, replaceable in tests
	transform func(data []byte, p *Preset, target format.Format) ([]byte, error)
}

// Result is the outcome of a served request.
type Result struct {
	Bytes       []byte
	ContentType string
	Format      format.Format

	// LastModified is the source file's modification time, for
	// conditional request handling by callers.
	LastModified time.Time

	// CacheHit reports whether the derivative was served from cache
	// without any derivation work on this request's behalf.
	CacheHit bool
}

// New constructs an Engine from a validated configuration.  If cache is nil,
// derivatives are rebuilt on every request.
func New(cfg *Config, cache Cache, logger zerolog.Logger) (*Engine, error) {
	router, err := NewRouter(cfg)
	if err != nil {
		return nil, err
	}
	if cache == nil {
		cache = NopCache
	}
	return &Engine{
		cfg:       cfg,
		router:    router,
		cache:     cache,
		log:       logger,
		transform: transformBytes,
	}, nil
}

// Serve handles one request: route the path, negotiate the output format,
// resolve the source, and return the cached or freshly derived bytes.
// accepts is the client's acceptable-format list in preference order, as
// produced by Config.ParseAccept.
func (e *Engine) Serve(ctx context.Context, path string, accepts []format.Format) (*Result, error) {
	route, err := e.router.Match(path)
	if err != nil {
		e.log.Debug().Str("path", path).Err(err).Msg("route not resolved")
		return nil, err
	}

	f := Negotiate(route.ExplicitExt, accepts, e.cfg)
	e.log.Debug().
		Str("path", route.SourcePath).
		Str("size", route.SizeName).
		Str("format", string(f)).
		Msg("route resolved")

	abs, fi, err := ResolveSource(e.cfg.Roots, route.SourcePath)
	if err != nil {
		e.log.Debug().Str("path", route.SourcePath).Err(err).Msg("source not resolved")
		return nil, err
	}

	key := Key{
		Source:      route.SourcePath,
		Preset:      route.SizeName,
		Format:      f,
		Fingerprint: Fingerprint(fi),
	}

	b, hit, err := e.EnsureCached(ctx, key, abs, route.Preset)
	if err != nil {
		return nil, err
	}
	return &Result{
		Bytes:        b,
		ContentType:  f.ContentType(),
		Format:       f,
		LastModified: fi.ModTime(),
		CacheHit:     hit,
	}, nil
}

// EnsureCached returns the derivative for key, deriving and persisting it if
// absent.  Concurrent calls for the same key run at most one derivation; the
// rest wait for its outcome.  Failures are surfaced to every waiter and are
// never cached, so the next request retries.  Cancelling ctx abandons only
// this caller's wait; an in-flight derivation runs to completion and still
// populates the cache.
func (e *Engine) EnsureCached(ctx context.Context, key Key, srcPath string, p *Preset) ([]byte, bool, error) {
	ks := key.String()
	if b, ok := e.cache.Get(ks); ok {
		cacheHitCount.Inc()
		e.log.Debug().Str("key", ks).Msg("cache hit")
		return b, true, nil
	}
	cacheMissCount.Inc()

	ch := e.group.DoChan(ks, func() (interface{}, error) {
		b, err := e.derive(key, srcPath, p)
		if err != nil {
			return nil, err
		}
		e.cache.Set(ks, b)
		return b, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			// decode failures are a property of the source, not the server
			var decodeErr *format.DecodeError
			ev := e.log.Error()
			if errors.As(res.Err, &decodeErr) {
				ev = e.log.Warn()
			}
			ev.Str("key", ks).Err(res.Err).Msg("derivation failed")
			return nil, false, res.Err
		}
		if res.Shared {
			dedupedWaitCount.Inc()
		}
		return res.Val.([]byte), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// derive reads the source and runs the transformation pipeline.
func (e *Engine) derive(key Key, srcPath string, p *Preset) ([]byte, error) {
	start := time.Now()
	defer func() {
		derivationSummary.Observe(time.Since(start).Seconds())
	}()

	src, err := os.ReadFile(srcPath)
	if err != nil {
		derivationFailures.Inc()
		return nil, err
	}
	b, err := e.transform(src, p, key.Format)
	if err != nil {
		derivationFailures.Inc()
		return nil, err
	}
	return b, nil
}
