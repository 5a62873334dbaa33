package container

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"
	"regexp"
	"strconv"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/h0rv/epub-stream-sub001/bookerr"
	"github.com/h0rv/epub-stream-sub001/limits"
)

// svgFallbackSizePx bounds the raster when an SVG declares no usable
// viewBox. E-paper panels top out well below this on either axis.
const svgFallbackSizePx = 1024

// strokeWidthDecl matches stroke-width declarations in both attribute
// (stroke-width="2") and inline-style (stroke-width: 2) form. The closing
// quote, if any, sits outside the match and is left in place.
var strokeWidthDecl = regexp.MustCompile(`(stroke-width\s*[:=]\s*["']?)([0-9]*\.?[0-9]+)`)

// scaleSVGStrokeWidths multiplies every stroke-width declaration in svg by
// scale. A scale of 1 or less leaves the document untouched.
func scaleSVGStrokeWidths(svg []byte, scale float64) []byte {
	if scale <= 1 {
		return svg
	}
	return strokeWidthDecl.ReplaceAllFunc(svg, func(m []byte) []byte {
		parts := strokeWidthDecl.FindSubmatch(m)
		w, err := strconv.ParseFloat(string(parts[2]), 64)
		if err != nil {
			return m
		}
		scaled := strconv.FormatFloat(w*scale, 'f', -1, 64)
		return append(append(make([]byte, 0, len(parts[1])+len(scaled)), parts[1]...), scaled...)
	})
}

// rasterizeSVG renders an SVG document to an opaque white-backed RGBA
// image at its intrinsic viewBox size, scaling strokes per
// opts.SVGStrokeWidthScale first. Documents without usable dimensions get
// a bounded square raster rather than an error.
func rasterizeSVG(svg []byte, opts limits.ImageReadOptions) (image.Image, error) {
	svg = scaleSVGStrokeWidths(svg, opts.SVGStrokeWidthScale)

	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg))
	if err != nil {
		return nil, err
	}

	w := int(math.Ceil(icon.ViewBox.W))
	h := int(math.Ceil(icon.ViewBox.H))
	if w < 1 || h < 1 {
		w, h = svgFallbackSizePx, svgFallbackSizePx
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	icon.Draw(rasterx.NewDasher(w, h, rasterx.NewScannerGV(w, h, dst, dst.Bounds())), 1.0)
	return dst, nil
}

// jfifAPP0 is a complete APP0 segment declaring JFIF 1.02 with
// dots-per-inch density units. The four density bytes are patched before
// insertion. Some embedded JPEG decoders reject files without this
// segment.
var jfifAPP0 = []byte{
	0xFF, 0xE0, // APP0 marker
	0x00, 0x10, // segment length
	'J', 'F', 'I', 'F', 0x00,
	0x01, 0x02, // JFIF version 1.02
	0x01,       // density units: dots per inch
	0x00, 0x00, // x density (patched)
	0x00, 0x00, // y density (patched)
	0x00, 0x00, // no thumbnail
}

// encodeFallbackJPEG compresses img with the configured quality and stamps
// the configured panel pixel density into a JFIF APP0 header when the
// encoder did not emit one.
func encodeFallbackJPEG(img image.Image, opts limits.ImageReadOptions) ([]byte, error) {
	quality := opts.FallbackJPEGQuality
	if quality <= 0 {
		quality = 90
	}
	density := opts.FallbackDensityPPI
	if density <= 0 {
		density = 96
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return ensureJFIFHeader(buf.Bytes(), density)
}

// ensureJFIFHeader inserts a density-stamped APP0 segment directly after
// the SOI marker unless one is already present.
func ensureJFIFHeader(data []byte, densityPPI int) ([]byte, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, bookerr.New(bookerr.KindMalformed, "encoded image is not a jpeg")
	}
	if data[2] == 0xFF && data[3] == 0xE0 {
		return data, nil
	}

	seg := append([]byte(nil), jfifAPP0...)
	seg[12], seg[13] = byte(densityPPI>>8), byte(densityPPI)
	seg[14], seg[15] = byte(densityPPI>>8), byte(densityPPI)

	out := make([]byte, 0, len(data)+len(seg))
	out = append(out, data[:2]...)
	out = append(out, seg...)
	out = append(out, data[2:]...)
	return out, nil
}
