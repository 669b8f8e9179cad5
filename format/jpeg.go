// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

package format

import (
	"image"
	"image/jpeg"
	"io"
)

// compression quality of encoded jpegs
const jpegQuality = 95

func init() {
	codecs[JPEG] = codec{
		decode: func(r io.Reader) (image.Image, error) {
			return jpeg.Decode(r)
		},
		encode: func(w io.Writer, m image.Image) error {
			return jpeg.Encode(w, m, &jpeg.Options{Quality: jpegQuality})
		},
	}
}
