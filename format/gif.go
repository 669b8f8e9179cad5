// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

package format

import (
	"image"
	"image/gif"
	"io"
)

func init() {
	codecs[GIF] = codec{
		decode: func(r io.Reader) (image.Image, error) {
			return gif.Decode(r)
		},
		encode: func(w io.Writer, m image.Image) error {
			return gif.Encode(w, m, nil)
		},
	}
}
