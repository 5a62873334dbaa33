package container

import (
	"bytes"

	"github.com/h2non/filetype"

	"github.com/h0rv/epub-stream-sub001/bookenum"
	"github.com/h0rv/epub-stream-sub001/bookerr"
	"github.com/h0rv/epub-stream-sub001/limits"
)

// isLikelySVG sniffs for an XML or SVG prologue within the first portion of
// the entry. filetype's magic-byte matchers don't cover SVG (it has no
// magic number, being plain text XML), so it gets its own check ahead of
// the byte-signature lookup.
func isLikelySVG(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(head, []byte("<svg")) || bytes.Contains(head, []byte("<?xml"))
}

// ReadImage reads an image entry under the caps and allow-list in opts,
// sniffing its real type from content rather than trusting the manifest's
// declared media-type, the way a hostile or simply mislabelled EPUB might
// lie about an entry's extension.
func (c *Container) ReadImage(name string, opts limits.ImageReadOptions) ([]byte, string, error) {
	data, err := c.ReadEntryCapped(name, opts.MaxBytes)
	if err != nil {
		return nil, "", err
	}

	if isLikelySVG(data) {
		if !opts.AllowSVG {
			return nil, "", bookerr.New(bookerr.KindMalformed, "entry %q: SVG images disabled by configuration", name)
		}
		return data, "image/svg+xml", nil
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown || !filetype.IsImage(data) {
		if opts.AllowUnknownImages {
			return data, "", nil
		}
		return nil, "", bookerr.New(bookerr.KindMalformed, "entry %q: could not identify a supported raster image type", name)
	}
	return data, kind.MIME.Value, nil
}

// ReadImageForSvgMode is ReadImage with svgMode applied on top of the
// result: under SvgModeIgnore an SVG entry is rejected outright, and under
// SvgModeRasterizeFallback or SvgModeNative (which is handled exactly like
// RasterizeFallback) it is rasterized at its intrinsic (viewBox) size and
// re-encoded as JPEG, using the stroke-scale, quality and density
// parameters in opts. Non-SVG entries are returned unchanged regardless of
// svgMode.
func (c *Container) ReadImageForSvgMode(name string, opts limits.ImageReadOptions, svgMode bookenum.SvgMode) ([]byte, string, error) {
	data, mime, err := c.ReadImage(name, opts)
	if err != nil {
		return nil, "", err
	}
	if mime != "image/svg+xml" {
		return data, mime, nil
	}
	switch svgMode {
	case bookenum.SvgModeIgnore:
		return nil, "", bookerr.New(bookerr.KindMalformed, "entry %q: svg images disabled by configuration", name)
	default: // SvgModeRasterizeFallback, SvgModeNative
		img, err := rasterizeSVG(data, opts)
		if err != nil {
			return nil, "", bookerr.Wrap(bookerr.KindMalformed, err, "rasterizing svg entry %q", name)
		}
		out, err := encodeFallbackJPEG(img, opts)
		if err != nil {
			return nil, "", bookerr.Wrap(bookerr.KindMalformed, err, "encoding rasterized svg entry %q", name)
		}
		return out, "image/jpeg", nil
	}
}
