// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

package format

import (
	"image"
	"io"

	genwebp "github.com/gen2brain/webp"
	xwebp "golang.org/x/image/webp"
)

// webpQuality and webpMethod balance size against encode time for lossy
// output; method 3 keeps per-request encoding latency reasonable.
const (
	webpQuality = 80
	webpMethod  = 3
)

func init() {
	codecs[WebP] = codec{
		decode: func(r io.Reader) (image.Image, error) {
			return xwebp.Decode(r)
		},
		encode: func(w io.Writer, m image.Image) error {
			return genwebp.Encode(w, m, genwebp.Options{
				Quality: webpQuality,
				Method:  webpMethod,
			})
		},
	}
}
