// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

package imgcache

import (
	"sort"
	"strconv"
	"strings"

	"github.com/imgcache/imgcache/format"
)

// Negotiate resolves the output format for a request.
//
// An explicit extension wins unconditionally (the router already validated
// it against the configured extensions).  Otherwise the first client-accepted
// format that is also configured wins; client order encodes client
// preference.  With no usable client signal the configured default applies.
func Negotiate(explicit format.Format, accepts []format.Format, cfg *Config) format.Format {
	if explicit != "" {
		return explicit
	}
	for _, f := range accepts {
		if cfg.allows(f) {
			return f
		}
	}
	return cfg.Default()
}

// ParseAccept converts an Accept header into the ordered list of formats the
// client will take, most preferred first.  Only image media types that map to
// a configured output format are kept.  Wildcards ("image/*", "*/*") expand
// to all configured formats in configured order, so a client that accepts
// anything defers to configured preference on ties.  Entries with q=0 are
// excluded.
func (c *Config) ParseAccept(header string) []format.Format {
	if header == "" {
		return nil
	}

	type entry struct {
		f format.Format
		q float64
	}
	var entries []entry
	add := func(f format.Format, q float64) {
		if q <= 0 || !c.allows(f) {
			return
		}
		for i, e := range entries {
			if e.f == f {
				// a more specific mention can raise a wildcard's q
				if q > e.q {
					entries[i].q = q
				}
				return
			}
		}
		entries = append(entries, entry{f, q})
	}

	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(strings.TrimSpace(part), ";")
		mediaType := strings.ToLower(strings.TrimSpace(fields[0]))

		q := 1.0
		for _, param := range fields[1:] {
			param = strings.TrimSpace(param)
			if v, ok := strings.CutPrefix(param, "q="); ok {
				if parsed, err := strconv.ParseFloat(v, 64); err == nil {
					q = parsed
				}
			}
		}

		switch {
		case mediaType == "*/*" || mediaType == "image/*":
			for _, f := range c.formats {
				add(f, q)
			}
		case strings.HasPrefix(mediaType, "image/"):
			if f, ok := format.ByName(strings.TrimPrefix(mediaType, "image/")); ok {
				add(f, q)
			}
		}
	}

	// stable sort keeps header order (and configured order for wildcard
	// expansions) among equal q values
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].q > entries[j].q })

	out := make([]format.Format, len(entries))
	for i, e := range entries {
		out[i] = e.f
	}
	return out
}
