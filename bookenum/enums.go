// Package bookenum holds the small closed enumerations that drive layout,
// typography, and render-target behaviour across the engine. Values are
// plain ints so they serialise compactly into a PaginationProfileId digest
// and into YAML config without allocation.
package bookenum

import "fmt"

// HyphenationMode controls how an existing soft hyphen (U+00AD) in styled
// text is treated by the tokenizer and layout engine.
// ENUM(ignore, discretionary)
type HyphenationMode int

const (
	HyphenationModeIgnore HyphenationMode = iota
	HyphenationModeDiscretionary
)

func (m HyphenationMode) String() string {
	switch m {
	case HyphenationModeIgnore:
		return "ignore"
	case HyphenationModeDiscretionary:
		return "discretionary"
	default:
		return fmt.Sprintf("HyphenationMode(%d)", int(m))
	}
}

// JustificationStrategy selects how a line's trailing slack is distributed.
// ENUM(adaptiveInterWord, fullInterWord, alignLeft, alignRight, alignCenter)
type JustificationStrategy int

const (
	JustificationAdaptiveInterWord JustificationStrategy = iota
	JustificationFullInterWord
	JustificationAlignLeft
	JustificationAlignRight
	JustificationAlignCenter
)

func (j JustificationStrategy) String() string {
	switch j {
	case JustificationAdaptiveInterWord:
		return "adaptiveInterWord"
	case JustificationFullInterWord:
		return "fullInterWord"
	case JustificationAlignLeft:
		return "alignLeft"
	case JustificationAlignRight:
		return "alignRight"
	case JustificationAlignCenter:
		return "alignCenter"
	default:
		return fmt.Sprintf("JustificationStrategy(%d)", int(j))
	}
}

// CoverPageMode governs placement of the manifest-declared cover image on
// the first page of the first spine item.
// ENUM(contain, fullBleed, respectCss)
type CoverPageMode int

const (
	CoverPageContain CoverPageMode = iota
	CoverPageFullBleed
	CoverPageRespectCss
)

func (c CoverPageMode) String() string {
	switch c {
	case CoverPageContain:
		return "contain"
	case CoverPageFullBleed:
		return "fullBleed"
	case CoverPageRespectCss:
		return "respectCss"
	default:
		return fmt.Sprintf("CoverPageMode(%d)", int(c))
	}
}

// FloatSupport selects how much CSS float layout the engine attempts.
// Basic is reserved; it currently behaves identically to None.
// ENUM(none, basic)
type FloatSupport int

const (
	FloatSupportNone FloatSupport = iota
	FloatSupportBasic
)

func (f FloatSupport) String() string {
	switch f {
	case FloatSupportNone:
		return "none"
	case FloatSupportBasic:
		return "basic"
	default:
		return fmt.Sprintf("FloatSupport(%d)", int(f))
	}
}

// SvgMode selects how inline/cover SVG content is handled. Native is
// reserved; it currently behaves identically to RasterizeFallback.
// ENUM(ignore, rasterizeFallback, native)
type SvgMode int

const (
	SvgModeIgnore SvgMode = iota
	SvgModeRasterizeFallback
	SvgModeNative
)

func (s SvgMode) String() string {
	switch s {
	case SvgModeIgnore:
		return "ignore"
	case SvgModeRasterizeFallback:
		return "rasterizeFallback"
	case SvgModeNative:
		return "native"
	default:
		return fmt.Sprintf("SvgMode(%d)", int(s))
	}
}

// PageChromeTextStyle selects the font variant used for header/footer/progress text.
// ENUM(regular, bold, italic, boldItalic)
type PageChromeTextStyle int

const (
	PageChromeTextRegular PageChromeTextStyle = iota
	PageChromeTextBold
	PageChromeTextItalic
	PageChromeTextBoldItalic
)

func (p PageChromeTextStyle) String() string {
	switch p {
	case PageChromeTextRegular:
		return "regular"
	case PageChromeTextBold:
		return "bold"
	case PageChromeTextItalic:
		return "italic"
	case PageChromeTextBoldItalic:
		return "boldItalic"
	default:
		return fmt.Sprintf("PageChromeTextStyle(%d)", int(p))
	}
}

// GrayscaleMode selects the colour-reduction intent applied by the backend.
// ENUM(off, luminosity)
type GrayscaleMode int

const (
	GrayscaleOff GrayscaleMode = iota
	GrayscaleLuminosity
)

func (g GrayscaleMode) String() string {
	switch g {
	case GrayscaleOff:
		return "off"
	case GrayscaleLuminosity:
		return "luminosity"
	default:
		return fmt.Sprintf("GrayscaleMode(%d)", int(g))
	}
}

// DitherMode selects the dithering algorithm hint carried alongside a render
// intent; the core never dithers pixels itself, it only threads the choice
// through to the backend.
// ENUM(none, ordered, errorDiffusion)
type DitherMode int

const (
	DitherNone DitherMode = iota
	DitherOrdered
	DitherErrorDiffusion
)

func (d DitherMode) String() string {
	switch d {
	case DitherNone:
		return "none"
	case DitherOrdered:
		return "ordered"
	case DitherErrorDiffusion:
		return "errorDiffusion"
	default:
		return fmt.Sprintf("DitherMode(%d)", int(d))
	}
}

// SoftHyphenPolicy controls discretionary-break handling for an existing
// U+00AD in source text; see HyphenationMode for the config knob that
// selects between these two behaviours.
// ENUM(ignore, discretionary)
type SoftHyphenPolicy int

const (
	SoftHyphenIgnore SoftHyphenPolicy = iota
	SoftHyphenDiscretionary
)

func (s SoftHyphenPolicy) String() string {
	switch s {
	case SoftHyphenIgnore:
		return "ignore"
	case SoftHyphenDiscretionary:
		return "discretionary"
	default:
		return fmt.Sprintf("SoftHyphenPolicy(%d)", int(s))
	}
}
