// Package limits defines the hard resource caps threaded through every
// reading/parsing/layout path, and the structured error they raise when
// breached. Caps are checked at the point of allocation, never after the
// fact, so a breach never leaves a partially grown buffer behind.
package limits

import "github.com/h0rv/epub-stream-sub001/bookerr"

// MemoryBudget bounds peak heap usage across the pipeline. Every field is a
// hard cap: exceeding it aborts the current operation with a
// bookerr.Error{Kind: KindLimitExceeded}.
type MemoryBudget struct {
	MaxEntryBytes       int64 `yaml:"max_entry_bytes" validate:"min=1024"`
	MaxCSSBytes         int64 `yaml:"max_css_bytes" validate:"min=0"`
	MaxNavBytes         int64 `yaml:"max_nav_bytes" validate:"min=0"`
	MaxInlineStyleBytes int64 `yaml:"max_inline_style_bytes" validate:"min=0"`
	MaxPagesInMemory    int   `yaml:"max_pages_in_memory" validate:"min=1"`
}

// DefaultMemoryBudget mirrors a generously sized desktop/tablet reader.
func DefaultMemoryBudget() MemoryBudget {
	return MemoryBudget{
		MaxEntryBytes:       8 << 20,
		MaxCSSBytes:         256 << 10,
		MaxNavBytes:         512 << 10,
		MaxInlineStyleBytes: 64 << 10,
		MaxPagesInMemory:    4096,
	}
}

// EmbeddedMemoryBudget mirrors a fragmented few-hundred-KiB e-paper heap.
func EmbeddedMemoryBudget() MemoryBudget {
	return MemoryBudget{
		MaxEntryBytes:       256 << 10,
		MaxCSSBytes:         16 << 10,
		MaxNavBytes:         64 << 10,
		MaxInlineStyleBytes: 4 << 10,
		MaxPagesInMemory:    8,
	}
}

// MetadataLimits bounds OPF metadata/manifest parsing.
type MetadataLimits struct {
	MaxMetadataStringBytes int `yaml:"max_metadata_string_bytes" validate:"min=16"`
}

func DefaultMetadataLimits() MetadataLimits {
	return MetadataLimits{MaxMetadataStringBytes: 8192}
}

// NavigationLimits bounds nav-XHTML/NCX parsing.
type NavigationLimits struct {
	MaxPoints     int `yaml:"max_points" validate:"min=1"`
	MaxDepth      int `yaml:"max_depth" validate:"min=1"`
	MaxLabelBytes int `yaml:"max_label_bytes" validate:"min=1"`
	MaxHrefBytes  int `yaml:"max_href_bytes" validate:"min=1"`
}

func DefaultNavigationLimits() NavigationLimits {
	return NavigationLimits{MaxPoints: 4096, MaxDepth: 64, MaxLabelBytes: 4096, MaxHrefBytes: 4096}
}

func EmbeddedNavigationLimits() NavigationLimits {
	return NavigationLimits{MaxPoints: 1024, MaxDepth: 32, MaxLabelBytes: 1024, MaxHrefBytes: 2048}
}

// ImageReadOptions bounds cover/inline image retrieval from the container
// and parameterises the SVG rasterize-fallback path.
type ImageReadOptions struct {
	MaxBytes           int64 `yaml:"max_bytes" validate:"min=1024"`
	AllowSVG           bool  `yaml:"allow_svg"`
	AllowUnknownImages bool  `yaml:"allow_unknown_images"`

	// SVGStrokeWidthScale multiplies stroke-width values before an SVG is
	// rasterized for a backend without native SVG support. Hairline strokes
	// that read fine on a desktop renderer vanish on a high-density
	// monochrome panel; values <= 1 leave the document untouched.
	SVGStrokeWidthScale float64 `yaml:"svg_stroke_width_scale" validate:"gte=0"`

	// FallbackJPEGQuality is the encoder quality for rasterized SVG
	// replacement images. 0 falls back to 90.
	FallbackJPEGQuality int `yaml:"fallback_jpeg_quality" validate:"gte=0,lte=100"`

	// FallbackDensityPPI is the pixel density stamped into a fallback
	// JPEG's JFIF header for decoders that insist on one. 0 falls back
	// to 96.
	FallbackDensityPPI int `yaml:"fallback_density_ppi" validate:"gte=0"`
}

func DefaultImageReadOptions() ImageReadOptions {
	return ImageReadOptions{
		MaxBytes:            4 << 20,
		AllowSVG:            true,
		AllowUnknownImages:  false,
		SVGStrokeWidthScale: 1,
		FallbackJPEGQuality: 90,
		FallbackDensityPPI:  96,
	}
}

// EmbeddedImageReadOptions mirrors a high-density monochrome e-paper
// panel: a tighter byte budget, exaggerated strokes so rasterized SVG line
// art stays visible, and the panel's native pixel density.
func EmbeddedImageReadOptions() ImageReadOptions {
	return ImageReadOptions{
		MaxBytes:            1 << 20,
		AllowSVG:            true,
		AllowUnknownImages:  false,
		SVGStrokeWidthScale: 8,
		FallbackJPEGQuality: 75,
		FallbackDensityPPI:  226,
	}
}

// Check raises a LimitExceeded error if observed exceeds limit. limit <= 0
// means "unbounded" and always passes.
func Check(limitTag string, limit, observed int64) error {
	if limit > 0 && observed > limit {
		return bookerr.LimitExceeded(limitTag, limit, observed)
	}
	return nil
}

// CheckInt is the int-count counterpart of Check, used for page/point/depth
// caps where limit and observed are both small positive counts.
func CheckInt(limitTag string, limit, observed int) error {
	return Check(limitTag, int64(limit), int64(observed))
}
