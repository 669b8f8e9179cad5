// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

package format

import (
	"image"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// BMP and TIFF are accepted as source formats only.

func init() {
	codecs[BMP] = codec{
		decode: func(r io.Reader) (image.Image, error) {
			return bmp.Decode(r)
		},
	}
	codecs[TIFF] = codec{
		decode: func(r io.Reader) (image.Image, error) {
			return tiff.Decode(r)
		},
	}
}
