// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

package imgcache

import (
	"errors"
	"testing"

	"github.com/imgcache/imgcache/format"
)

func routeConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{
		Extensions:     []string{"avif", "webp", "jpeg"},
		DefaultFormat:  "jpeg",
		Roots:          []string{"/srv/images"},
		URL:            "/img/{size}/{path}[.{ext}]",
		CacheDirectory: "/var/cache/imgcache",
		Sizes: map[string]*Preset{
			"thumb":   {Width: 200, Height: 200},
			"high":    {Width: 1200, Height: 1200},
			"product": {Width: 800, Height: 800, Pattern: "^products/"},
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return cfg
}

func TestRouterMatch(t *testing.T) {
	cfg := routeConfig(t)
	router, err := NewRouter(cfg)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	tests := []struct {
		path    string
		size    string
		source  string
		ext     format.Format
		wantErr error
	}{
		// plain matches; a source file's own extension stays in the path
		{path: "/img/thumb/products/shoe-1.jpg", size: "thumb", source: "products/shoe-1.jpg"},
		{path: "/img/high/banner.gif", size: "high", source: "banner.gif"},
		{path: "/img/thumb/a/b/c/deep.png.store", size: "thumb", source: "a/b/c/deep.png.store"},

		// explicit extension overrides
		{path: "/img/high/products/shoe-1.webp", size: "high", source: "products/shoe-1", ext: format.WebP},
		{path: "/img/high/products/shoe-1.jpg.webp", size: "high", source: "products/shoe-1.jpg", ext: format.WebP},
		{path: "/img/thumb/pic.avif", size: "thumb", source: "pic", ext: format.AVIF},

		// template mismatch
		{path: "/other/thumb/pic.jpg", wantErr: ErrRouteMismatch},
		{path: "/img/thumb", wantErr: ErrRouteMismatch},

		// unknown preset is distinct from preset-pattern mismatch
		{path: "/img/huge/products/shoe-1.jpg", wantErr: ErrUnknownPreset},
		{path: "/img/product/catalog/shoe-1.jpg", wantErr: ErrPresetMismatch},
		{path: "/img/product/products/shoe-1.jpg", size: "product", source: "products/shoe-1.jpg"},

		// output extension stacked on a source name must be configured
		{path: "/img/high/products/shoe-1.jpg.png", wantErr: ErrBadExtension},
	}

	for _, tt := range tests {
		r, err := router.Match(tt.path)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Match(%q) error = %v, want %v", tt.path, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("Match(%q) returned error %v", tt.path, err)
			continue
		}
		if r.SizeName != tt.size || r.SourcePath != tt.source || r.ExplicitExt != tt.ext {
			t.Errorf("Match(%q) = {size:%q source:%q ext:%q}, want {size:%q source:%q ext:%q}",
				tt.path, r.SizeName, r.SourcePath, r.ExplicitExt, tt.size, tt.source, tt.ext)
		}
	}
}

func TestNewRouterRejectsBadTemplates(t *testing.T) {
	tests := []string{
		"/img/{size}",                       // no {path}
		"/img/{path}",                       // no {size}
		"/img/{size}/{size}/{path}",         // duplicate {size}
		"/img/{size}/[.{ext}]/{path}",       // ext not final
		"/img/{size}/{path}[.{ext}][.{ext}]", // duplicate ext
	}
	for _, url := range tests {
		cfg := routeConfig(t)
		cfg.URL = url
		if _, err := NewRouter(cfg); err == nil {
			t.Errorf("NewRouter with url %q returned nil error", url)
		}
	}
}

func TestRouterTemplateWithoutExt(t *testing.T) {
	cfg := routeConfig(t)
	cfg.URL = "/derive/{size}/{path}"
	router, err := NewRouter(cfg)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	r, err := router.Match("/derive/thumb/products/shoe-1.webp")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	// without [.{ext}] in the template there is no override: the suffix
	// stays in the path
	if r.SourcePath != "products/shoe-1.webp" || r.ExplicitExt != "" {
		t.Errorf("Match = {source:%q ext:%q}, want {source:%q ext:%q}",
			r.SourcePath, r.ExplicitExt, "products/shoe-1.webp", "")
	}
}
