// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

package imgcache

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/imgcache/imgcache/format"
)

// Route is a successfully matched request.
type Route struct {
	SizeName   string
	SourcePath string
	Preset     *Preset

	// ExplicitExt is the requested output format when the request carried
	// an explicit extension suffix, empty otherwise.
	ExplicitExt format.Format
}

// Router matches request paths against the configured URL template.  The
// template is compiled once; Match is safe for concurrent use.
type Router struct {
	cfg *Config
	re  *regexp.Regexp

	// capture group index per placeholder; 0 = not present
	sizeIdx, pathIdx, extIdx int
}

// placeholder tokens recognized in the url template
const (
	tokSize = "{size}"
	tokPath = "{path}"
	tokExt  = "[.{ext}]"
)

// NewRouter compiles the configured URL template.  The template must contain
// exactly one {size} and one {path}, and at most one trailing [.{ext}].
func NewRouter(cfg *Config) (*Router, error) {
	tmpl := cfg.URL
	if strings.Count(tmpl, tokSize) != 1 || strings.Count(tmpl, tokPath) != 1 {
		return nil, fmt.Errorf("url template %q must contain exactly one {size} and one {path}", tmpl)
	}
	if n := strings.Count(tmpl, tokExt); n > 1 {
		return nil, fmt.Errorf("url template %q may contain at most one [.{ext}]", tmpl)
	} else if n == 1 && !strings.HasSuffix(tmpl, tokExt) {
		return nil, fmt.Errorf("url template %q: [.{ext}] must be the final segment", tmpl)
	}

	rt := &Router{cfg: cfg}
	var b strings.Builder
	b.WriteString("^")
	group := 0
	rest := tmpl
	for rest != "" {
		i := strings.IndexByte(rest, '{')
		j := strings.IndexByte(rest, '[')
		cut := i
		if cut < 0 || (j >= 0 && j < cut) {
			cut = j
		}
		if cut < 0 {
			b.WriteString(regexp.QuoteMeta(rest))
			break
		}
		b.WriteString(regexp.QuoteMeta(rest[:cut]))
		rest = rest[cut:]
		switch {
		case strings.HasPrefix(rest, tokSize):
			group++
			rt.sizeIdx = group
			b.WriteString(`([^/]+)`)
			rest = rest[len(tokSize):]
		case strings.HasPrefix(rest, tokPath):
			group++
			rt.pathIdx = group
			b.WriteString(`(.+?)`)
			rest = rest[len(tokPath):]
		case strings.HasPrefix(rest, tokExt):
			group++
			rt.extIdx = group
			b.WriteString(`(?:\.(`)
			for i, ext := range cfg.Extensions {
				if i > 0 {
					b.WriteByte('|')
				}
				b.WriteString(regexp.QuoteMeta(strings.ToLower(ext)))
			}
			b.WriteString(`))?`)
			rest = rest[len(tokExt):]
		default:
			return nil, fmt.Errorf("url template %q: unrecognized placeholder at %q", tmpl, rest)
		}
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("compiling url template %q: %w", tmpl, err)
	}
	rt.re = re
	return rt, nil
}

// Match resolves a request path to a Route.
//
// An explicit extension is only recognized when it is the exact string
// configured in extensions; a source file's own extension (for example
// "products/shoe-1.jpg" with "jpeg" configured) stays part of the source
// path.  A request that instead stacks an unconfigured output extension on
// top of a source name ("shoe-1.jpg.png") fails with ErrBadExtension.
func (rt *Router) Match(reqPath string) (*Route, error) {
	m := rt.re.FindStringSubmatch(reqPath)
	if m == nil {
		return nil, ErrRouteMismatch
	}

	r := &Route{
		SizeName:   m[rt.sizeIdx],
		SourcePath: m[rt.pathIdx],
	}
	if rt.extIdx > 0 {
		if ext := m[rt.extIdx]; ext != "" {
			f, _ := format.ByName(ext)
			r.ExplicitExt = f
		} else if ext, ok := strayExtension(r.SourcePath); ok {
			return nil, fmt.Errorf("%w: %q", ErrBadExtension, ext)
		}
	}

	p, ok := rt.cfg.Sizes[r.SizeName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, r.SizeName)
	}
	if !p.Matches(r.SourcePath) {
		return nil, fmt.Errorf("%w: preset %q, path %q", ErrPresetMismatch, r.SizeName, r.SourcePath)
	}
	r.Preset = p
	return r, nil
}

// strayExtension detects a disallowed output extension stacked on top of a
// source filename, e.g. "shoe-1.jpg.png" when png is not configured.  A
// single format-named suffix is treated as the source file's own extension
// and is not an override request.
func strayExtension(path string) (string, bool) {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	parts := strings.Split(base, ".")
	if len(parts) < 3 {
		return "", false
	}
	last := parts[len(parts)-1]
	prev := parts[len(parts)-2]
	if _, ok := format.ByName(strings.ToLower(last)); !ok {
		return "", false
	}
	if _, ok := format.ByName(strings.ToLower(prev)); !ok {
		return "", false
	}
	return last, true
}
