// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

package format

import (
	"image"
	"io"

	"github.com/gen2brain/avif"
)

// avifQuality and avifSpeed trade size for encode time; speed 8 keeps
// synchronous derivation latency acceptable.
const (
	avifQuality = 60
	avifSpeed   = 8
)

func init() {
	codecs[AVIF] = codec{
		decode: func(r io.Reader) (image.Image, error) {
			return avif.Decode(r)
		},
		encode: func(w io.Writer, m image.Image) error {
			return avif.Encode(w, m, avif.Options{
				Quality: avifQuality,
				Speed:   avifSpeed,
			})
		},
	}
}
