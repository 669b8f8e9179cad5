// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

package imgcache

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAssembleFilePath(t *testing.T) {
	tests := []struct {
		root, path, want string
	}{
		{"/foo/bar", "/baz/qux", "/foo/bar/baz/qux"},
		{"/foo/bar/", "/baz/qux", "/foo/bar/baz/qux"},
		{"/foo/bar", "/bar/../qux", "/foo/bar/qux"},
		{"/foo/bar", "/bar/../../qux", "/foo/bar/qux"},
		{"/foo/bar", "/bar/././qux", "/foo/bar/bar/qux"},
		{"/foo/bar", "../../../etc/passwd", "/foo/bar/etc/passwd"},
		{"/foo/bar", "a//b", "/foo/bar/a/b"},
	}
	for _, tt := range tests {
		if got := assembleFilePath(tt.root, tt.path); got != tt.want {
			t.Errorf("assembleFilePath(%q, %q) = %q, want %q", tt.root, tt.path, got, tt.want)
		}
	}
}

func TestResolveSource(t *testing.T) {
	root1 := t.TempDir()
	root2 := t.TempDir()

	write := func(root, name string) string {
		t.Helper()
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	inBoth := write(root1, "both.jpg")
	write(root2, "both.jpg")
	onlySecond := write(root2, "products/second.jpg")

	roots := []string{root1, root2}

	// first root wins
	if got, _, err := ResolveSource(roots, "both.jpg"); err != nil || got != inBoth {
		t.Errorf("ResolveSource(both.jpg) = %q, %v, want %q", got, err, inBoth)
	}

	// later roots are searched in order
	if got, _, err := ResolveSource(roots, "products/second.jpg"); err != nil || got != onlySecond {
		t.Errorf("ResolveSource(products/second.jpg) = %q, %v, want %q", got, err, onlySecond)
	}

	if _, _, err := ResolveSource(roots, "missing.jpg"); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("ResolveSource(missing.jpg) error = %v, want ErrSourceNotFound", err)
	}

	// directories are not sources
	if _, _, err := ResolveSource(roots, "products"); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("ResolveSource(products) error = %v, want ErrSourceNotFound", err)
	}
}

func TestResolveSourceNeverEscapesRoots(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(filepath.Dir(root), "outside.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Remove(outside) })

	attempts := []string{
		"../outside.txt",
		"../../outside.txt",
		"a/../../outside.txt",
		"/../outside.txt",
	}
	for _, path := range attempts {
		abs, _, err := ResolveSource([]string{root}, path)
		if err == nil && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
			t.Errorf("ResolveSource(%q) escaped root: %q", path, abs)
		}
	}
}
