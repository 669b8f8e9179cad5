// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

package imgcache

import (
	"bytes"
	"image"
	"image/gif"

	"github.com/disintegration/imaging"
	"github.com/muesli/smartcrop"
	"github.com/muesli/smartcrop/nfnt"
	"github.com/rwcarlsen/goexif/exif"
	"willnorris.com/go/gifresize"

	"github.com/imgcache/imgcache/format"
)

// transformBytes runs the derivation pipeline: decode the source, apply EXIF
// orientation, resize to the preset geometry, and encode in the target
// format.  Decode failures surface as *format.DecodeError and encode
// failures as *format.EncodeError.
func transformBytes(data []byte, p *Preset, target format.Format) ([]byte, error) {
	src, err := format.Sniff(data)
	if err != nil {
		return nil, err
	}

	// Animated GIF to GIF resizes every frame; any other target collapses
	// the animation to its first frame via the normal path.
	if src == format.GIF && target == format.GIF && isAnimatedGIF(data) {
		buf := new(bytes.Buffer)
		fn := func(m image.Image) image.Image { return resizeImage(m, p) }
		if err := gifresize.Process(buf, bytes.NewReader(data), fn); err != nil {
			return nil, &format.DecodeError{Format: src, Err: err}
		}
		return buf.Bytes(), nil
	}

	m, src, err := format.Decode(data)
	if err != nil {
		return nil, err
	}
	if src == format.JPEG {
		m = exifOrient(m, data)
	}

	m = resizeImage(m, p)

	buf := new(bytes.Buffer)
	if err := format.Encode(buf, m, target); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// resizeImage resizes m to the preset's bounding box.  The target is clamped
// to the source dimensions first, so output never exceeds source resolution.
func resizeImage(m image.Image, p *Preset) image.Image {
	w, h, resize := presetTarget(m, p)
	if !resize {
		return m
	}

	if p.Crop == CropSmart {
		if r, err := smartCrop(m, w, h); err == nil {
			m = imaging.Crop(m, r)
		}
		return imaging.Thumbnail(m, w, h, imaging.Lanczos)
	}
	return imaging.Fit(m, w, h, imaging.Lanczos)
}

// presetTarget computes the clamped target dimensions for m, and whether any
// resize is needed at all.
func presetTarget(m image.Image, p *Preset) (w, h int, resize bool) {
	b := m.Bounds()
	imgW, imgH := b.Dx(), b.Dy()

	w, h = p.Width, p.Height

	// never resize larger than the original image
	if w > imgW {
		w = imgW
	}
	if h > imgH {
		h = imgH
	}

	if p.Crop == CropSmart {
		return w, h, w != imgW || h != imgH
	}
	return w, h, imgW > w || imgH > h
}

// smartCrop returns the subject-centered crop rectangle with the target
// aspect ratio.
func smartCrop(m image.Image, w, h int) (image.Rectangle, error) {
	analyzer := smartcrop.NewAnalyzer(nfnt.NewDefaultResizer())
	return analyzer.FindBestCrop(m, w, h)
}

// exifOrient applies the EXIF orientation tag, if any.  Unreadable or absent
// EXIF data leaves the image untouched.
func exifOrient(m image.Image, data []byte) image.Image {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return m
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return m
	}
	orient, err := tag.Int(0)
	if err != nil {
		return m
	}

	switch orient {
	case 2:
		return imaging.FlipH(m)
	case 3:
		return imaging.Rotate180(m)
	case 4:
		return imaging.FlipV(m)
	case 5:
		return imaging.Transpose(m)
	case 6:
		return imaging.Rotate270(m)
	case 7:
		return imaging.Transverse(m)
	case 8:
		return imaging.Rotate90(m)
	}
	return m
}

// isAnimatedGIF reports whether data is a GIF with more than one frame.
func isAnimatedGIF(data []byte) bool {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	return err == nil && len(g.Image) > 1
}
