// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

// imgcache starts an HTTP server that serves resized and transcoded
// derivatives of local source images, caching each derivative on disk.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/die-net/lrucache"
	"github.com/die-net/lrucache/twotier"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/imgcache/imgcache"
	"github.com/imgcache/imgcache/format"
	"github.com/imgcache/imgcache/internal/diskcache"
)

var addr = flag.String("addr", "localhost:8080", "TCP address to listen on")
var configPath = flag.String("config", "imgcache.yaml", "path to configuration file")
var cacheFlag = flag.String("cache", "", "optional memory tier in front of the disk cache, of the form memory:maxSizeMB[:maxAge]")
var preOptimize = flag.Bool("preoptimize", true, "run the eager generation pass for flagged presets at startup")

func main() {
	flag.Parse()

	cfg, err := imgcache.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "imgcache: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "imgcache: %v\n", err)
		os.Exit(1)
	}

	disk, err := diskcache.New(cfg.CacheDirectory, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("opening cache directory")
	}
	var cache imgcache.Cache = disk
	if *cacheFlag != "" {
		lru, err := parseCache(*cacheFlag)
		if err != nil {
			logger.Fatal().Err(err).Msg("parsing cache flag")
		}
		cache = twotier.New(lru, disk)
	}

	engine, err := imgcache.New(cfg, cache, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("creating engine")
	}

	if *preOptimize {
		go engine.PreOptimize(context.Background())
	}

	r := mux.NewRouter().SkipClean(true)
	r.Handle("/metrics", promhttp.Handler())
	r.PathPrefix("/").Handler(&handler{engine: engine, cfg: cfg, log: logger})

	server := &http.Server{
		Addr:    *addr,
		Handler: r,

		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	fmt.Printf("imgcache listening on %s\n", server.Addr)
	logger.Fatal().Err(server.ListenAndServe()).Msg("server exited")
}

// newLogger builds the structured logger from config.  An empty path logs to
// stderr.
func newLogger(c imgcache.LoggerConfig) (zerolog.Logger, error) {
	out := os.Stderr
	if c.Path != "" {
		f, err := os.OpenFile(c.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("opening log file: %w", err)
		}
		out = f
	}
	level := zerolog.WarnLevel
	if c.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(strings.ToLower(c.Level))
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("invalid log level %q", c.Level)
		}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// parseCache creates the memory tier from a cache flag of the form
// "memory:maxSizeMB[:maxAge]".  maxSize is specified in megabytes, maxAge
// is a duration.
func parseCache(c string) (*lrucache.LruCache, error) {
	scheme, options, ok := strings.Cut(c, ":")
	if !ok || scheme != "memory" {
		return nil, fmt.Errorf("unsupported cache %q", c)
	}
	parts := strings.SplitN(options, ":", 2)
	size, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, err
	}

	var age time.Duration
	if len(parts) > 1 {
		age, err = time.ParseDuration(parts[1])
		if err != nil {
			return nil, err
		}
	}

	return lrucache.New(size*1e6, int64(age.Seconds())), nil
}

type handler struct {
	engine *imgcache.Engine
	cfg    *imgcache.Config
	log    zerolog.Logger
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accepts := h.cfg.ParseAccept(r.Header.Get("Accept"))
	res, err := h.engine.Serve(r.Context(), r.URL.Path, accepts)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.log.Error().Str("path", r.URL.Path).Err(err).Msg("request failed")
		}
		http.Error(w, err.Error(), status)
		return
	}

	etag := contentETag(res.Bytes)
	w.Header().Set("Etag", etag)
	w.Header().Set("Last-Modified", res.LastModified.UTC().Format(http.TimeFormat))
	if notModified(r, etag, res.LastModified) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Bytes)))
	if res.CacheHit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	if r.Method == http.MethodHead {
		return
	}
	w.Write(res.Bytes)
}

// notModified reports whether a conditional request can be answered with
// 304.  If-None-Match takes precedence over If-Modified-Since; the modtime
// comparison drops sub-second precision, matching the header's resolution.
func notModified(r *http.Request, etag string, modified time.Time) bool {
	if inm := r.Header.Get("If-None-Match"); inm != "" {
		return inm == etag || strings.TrimPrefix(inm, "W/") == etag
	}
	if ims := r.Header.Get("If-Modified-Since"); ims != "" {
		t, err := http.ParseTime(ims)
		if err != nil {
			return false
		}
		return !modified.Truncate(time.Second).After(t)
	}
	return false
}

// errorStatus maps engine errors onto HTTP status codes.
func errorStatus(err error) int {
	var decodeErr *format.DecodeError
	switch {
	case errors.Is(err, imgcache.ErrRouteMismatch),
		errors.Is(err, imgcache.ErrUnknownPreset),
		errors.Is(err, imgcache.ErrPresetMismatch),
		errors.Is(err, imgcache.ErrSourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, imgcache.ErrBadExtension):
		return http.StatusBadRequest
	case errors.As(err, &decodeErr):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, context.Canceled):
		return 499 // client closed request
	}
	return http.StatusInternalServerError
}

func contentETag(b []byte) string {
	sum := sha256.Sum256(b)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
