// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

package format

import (
	"image"
	"image/png"
	"io"
)

func init() {
	codecs[PNG] = codec{
		decode: func(r io.Reader) (image.Image, error) {
			return png.Decode(r)
		},
		encode: func(w io.Writer, m image.Image) error {
			return png.Encode(w, m)
		},
	}
}
