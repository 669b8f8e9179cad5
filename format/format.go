// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

// Package format implements the image codecs used by imgcache.  The set of
// formats is closed: each member of Formats pairs a decoder with an optional
// encoder, and all dispatch goes through that fixed table.  JPEG, PNG and GIF
// use the standard library codecs, WebP decoding comes from golang.org/x/image,
// and WebP/AVIF encoding use the gen2brain wazero-based codecs.
package format

import (
	"bytes"
	"fmt"
	"image"
	"io"
)

// Format identifies a single image format.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	GIF  Format = "gif"
	WebP Format = "webp"
	AVIF Format = "avif"

	// decode-only source formats
	BMP  Format = "bmp"
	TIFF Format = "tiff"
)

// Formats lists every format known to the package, in no particular order.
var Formats = []Format{JPEG, PNG, GIF, WebP, AVIF, BMP, TIFF}

// codec is the capability pair implemented by each format variant.  A nil
// encode func marks a decode-only format.
type codec struct {
	decode func(r io.Reader) (image.Image, error)
	encode func(w io.Writer, m image.Image) error
}

// codecs is the dispatch table.  Entries are registered by the per-format
// files in this package and never change after init.
var codecs = map[Format]codec{}

var aliases = map[string]Format{
	"jpeg": JPEG,
	"jpg":  JPEG,
	"png":  PNG,
	"gif":  GIF,
	"webp": WebP,
	"avif": AVIF,
	"bmp":  BMP,
	"tiff": TIFF,
	"tif":  TIFF,
}

// ByName maps a format identifier or file extension (without the dot) to its
// canonical Format.  Common aliases such as "jpg" are accepted.
func ByName(name string) (Format, bool) {
	f, ok := aliases[name]
	return f, ok
}

// ContentType returns the media type for the format.
func (f Format) ContentType() string {
	return "image/" + string(f)
}

// CanEncode reports whether the format has an encoder.
func (f Format) CanEncode() bool {
	c, ok := codecs[f]
	return ok && c.encode != nil
}

// A DecodeError reports a failure to decode source image data.  Decode
// failures are attributable to the content (corrupt or unsupported source),
// as opposed to EncodeError.
type DecodeError struct {
	Format Format // sniffed source format; empty if unrecognized
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("decode: unrecognized image data: %v", e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// An EncodeError reports a failure to encode to a target format.  Encode
// failures are server-side conditions.
type EncodeError struct {
	Format Format
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Sniff identifies the format of encoded image data by its magic bytes.
func Sniff(data []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return JPEG, nil
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return PNG, nil
	case bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a")):
		return GIF, nil
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return WebP, nil
	case len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")) &&
		(bytes.Equal(data[8:12], []byte("avif")) || bytes.Equal(data[8:12], []byte("avis"))):
		return AVIF, nil
	case bytes.HasPrefix(data, []byte("BM")):
		return BMP, nil
	case bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*")):
		return TIFF, nil
	}
	return "", &DecodeError{Err: fmt.Errorf("unrecognized magic bytes")}
}

// Decode sniffs and decodes encoded image data, returning the raster image
// and the detected source format.  Failures are returned as *DecodeError.
func Decode(data []byte) (image.Image, Format, error) {
	f, err := Sniff(data)
	if err != nil {
		return nil, "", err
	}
	c, ok := codecs[f]
	if !ok || c.decode == nil {
		return nil, f, &DecodeError{Format: f, Err: fmt.Errorf("no decoder registered")}
	}
	m, err := c.decode(bytes.NewReader(data))
	if err != nil {
		return nil, f, &DecodeError{Format: f, Err: err}
	}
	return m, f, nil
}

// Encode writes m to w in the target format.  Failures are returned as
// *EncodeError.
func Encode(w io.Writer, m image.Image, f Format) error {
	c, ok := codecs[f]
	if !ok || c.encode == nil {
		return &EncodeError{Format: f, Err: fmt.Errorf("no encoder registered")}
	}
	if err := c.encode(w, m); err != nil {
		return &EncodeError{Format: f, Err: err}
	}
	return nil
}
