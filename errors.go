// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

package imgcache

import "errors"

// Routing and resolution errors.  These are client-facing and returned
// before any derivation is attempted; callers map them to HTTP responses.
var (
	// ErrRouteMismatch is returned when a request path does not match the
	// configured URL template at all.
	ErrRouteMismatch = errors.New("request path does not match url template")

	// ErrUnknownPreset is returned when the size segment names no
	// configured preset.
	ErrUnknownPreset = errors.New("preset not found")

	// ErrPresetMismatch is returned when the preset exists but its pattern
	// rejects the source path.  Distinct from ErrUnknownPreset so the two
	// conditions stay distinguishable in diagnostics.
	ErrPresetMismatch = errors.New("preset not applicable to path")

	// ErrBadExtension is returned when a request carries an explicit
	// output extension that is not a configured extension.
	ErrBadExtension = errors.New("extension not allowed")

	// ErrSourceNotFound is returned when no configured root contains the
	// source path.
	ErrSourceNotFound = errors.New("source image not found")
)
