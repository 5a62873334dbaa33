package container

import (
	"bytes"
	"testing"

	"github.com/h0rv/epub-stream-sub001/limits"
)

func TestScaleSVGStrokeWidthsMultipliesAttributeAndStyleForms(t *testing.T) {
	svg := []byte(`<rect stroke-width="2"/><path style="stroke-width: 1.5"/>`)
	out := scaleSVGStrokeWidths(svg, 8)
	want := `<rect stroke-width="16"/><path style="stroke-width: 12"/>`
	if string(out) != want {
		t.Fatalf("scaled stroke widths = %s, want %s", out, want)
	}
}

func TestScaleSVGStrokeWidthsNoopAtUnitScale(t *testing.T) {
	svg := []byte(`<rect stroke-width="2"/>`)
	if out := scaleSVGStrokeWidths(svg, 1); !bytes.Equal(out, svg) {
		t.Fatalf("expected unit scale to leave the document untouched, got %s", out)
	}
	if out := scaleSVGStrokeWidths(svg, 0); !bytes.Equal(out, svg) {
		t.Fatalf("expected zero scale to leave the document untouched, got %s", out)
	}
}

func TestRasterizeSVGUsesViewBoxSize(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 200 50"><rect width="200" height="50"/></svg>`)
	img, err := rasterizeSVG(svg, limits.DefaultImageReadOptions())
	if err != nil {
		t.Fatalf("rasterizeSVG: %v", err)
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 50 {
		t.Fatalf("expected intrinsic 200x50 raster from the viewBox, got %v", img.Bounds())
	}
}

func TestRasterizeSVGFallsBackToBoundedSquare(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><rect width="10" height="10"/></svg>`)
	img, err := rasterizeSVG(svg, limits.DefaultImageReadOptions())
	if err != nil {
		t.Fatalf("rasterizeSVG: %v", err)
	}
	if img.Bounds().Dx() != svgFallbackSizePx || img.Bounds().Dy() != svgFallbackSizePx {
		t.Fatalf("expected %dx%d fallback raster without a viewBox, got %v", svgFallbackSizePx, svgFallbackSizePx, img.Bounds())
	}
}

func TestEnsureJFIFHeaderInsertsDensityStampedSegment(t *testing.T) {
	// Minimal JPEG prefix without an APP0 segment.
	data := []byte{0xFF, 0xD8, 0xFF, 0xDB, 0x00, 0x04}

	out, err := ensureJFIFHeader(data, 226)
	if err != nil {
		t.Fatalf("ensureJFIFHeader: %v", err)
	}
	if len(out) != len(data)+len(jfifAPP0) {
		t.Fatalf("expected output to grow by the APP0 segment, got %d bytes", len(out))
	}
	if out[0] != 0xFF || out[1] != 0xD8 {
		t.Fatal("expected SOI marker preserved")
	}
	if out[2] != 0xFF || out[3] != 0xE0 {
		t.Fatal("expected APP0 marker directly after SOI")
	}
	wantDensity := []byte{0x00, 0xE2} // 226
	if !bytes.Equal(out[14:16], wantDensity) || !bytes.Equal(out[16:18], wantDensity) {
		t.Fatalf("expected 226 PPI stamped into both density fields, got x=%v y=%v", out[14:16], out[16:18])
	}
}

func TestEnsureJFIFHeaderLeavesExistingSegmentAlone(t *testing.T) {
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	out, err := ensureJFIFHeader(data, 226)
	if err != nil {
		t.Fatalf("ensureJFIFHeader: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("expected an already-present APP0 to pass through unchanged, got %v", out)
	}
}

func TestEnsureJFIFHeaderRejectsNonJPEG(t *testing.T) {
	if _, err := ensureJFIFHeader([]byte{0x00, 0x01, 0x02, 0x03}, 96); err == nil {
		t.Fatal("expected a non-JPEG buffer to be rejected")
	}
}
