// Package page defines the backend-agnostic render intermediate
// representation: draw commands, per-page metrics, the pagination profile
// digest, and the split-layer RenderPage record that the layout and render
// engines emit. Command variants are modelled as a closed interface rather
// than one struct with a tag field, keeping each variant's payload typed.
package page

import "github.com/h0rv/epub-stream-sub001/bookenum"

// DrawCommand is the closed set of backend-agnostic page draw operations.
// Concrete types implement the unexported marker method so the set stays
// closed to this package.
type DrawCommand interface {
	isDrawCommand()
}

// TextCommand draws a run of text at a baseline position.
type TextCommand struct {
	X         int
	BaselineY int
	Text      string
	FontID    *uint32
	Style     ResolvedTextStyle
}

func (TextCommand) isDrawCommand() {}

// RuleCommand draws a horizontal or vertical line rule.
type RuleCommand struct {
	X, Y       int
	Length     uint32
	Thickness  uint32
	Horizontal bool
}

func (RuleCommand) isDrawCommand() {}

// RectCommand draws a filled or stroked rectangle.
type RectCommand struct {
	X, Y          int
	Width, Height uint32
	Fill          bool
}

func (RectCommand) isDrawCommand() {}

// ImageObjectCommand draws an inline image box. Src is the OPF-relative
// resource path, unchanged, for the backend to resolve.
type ImageObjectCommand struct {
	Src           string
	Alt           string
	X, Y          int
	Width, Height uint32
}

func (ImageObjectCommand) isDrawCommand() {}

// PageChromeKind identifies which page-level chrome marker a PageChromeCommand carries.
type PageChromeKind int

const (
	PageChromeHeader PageChromeKind = iota
	PageChromeFooter
	PageChromeProgress
)

func (k PageChromeKind) String() string {
	switch k {
	case PageChromeHeader:
		return "header"
	case PageChromeFooter:
		return "footer"
	case PageChromeProgress:
		return "progress"
	default:
		return "unknown"
	}
}

// PageChromeCommand marks header/footer/progress chrome content.
type PageChromeCommand struct {
	Kind    PageChromeKind
	Text    *string
	Current *int
	Total   *int
}

func (PageChromeCommand) isDrawCommand() {}

// JustifyMode is the justification decision layout made for one line,
// carried into the resolved style so a backend can re-measure if it wants
// to, without re-running the layout algorithm.
type JustifyMode struct {
	Kind         JustifyKind
	ExtraPxTotal int // populated for JustifyInterWord
	OffsetPx     int // populated for JustifyAlignRight / JustifyAlignCenter
}

type JustifyKind int

const (
	JustifyNone JustifyKind = iota
	JustifyInterWord
	JustifyAlignRight
	JustifyAlignCenter
)

// ResolvedTextStyle is the fully cascaded, layout-resolved style attached to
// every TextCommand.
type ResolvedTextStyle struct {
	FontID        *uint32
	Family        string
	Weight        uint16
	Italic        bool
	SizePx        float32
	LineHeight    float32
	LetterSpacing float32
	Role          BlockRole
	Justify       JustifyMode
}

// BlockRole is the semantic role of the block a styled run belongs to,
// used by the measurer/layout to apply role-specific defaults (headings,
// for example, are exempt from body-text justification caps).
type BlockRole int

const (
	BlockRoleBody BlockRole = iota
	BlockRoleParagraph
	BlockRoleHeading
	BlockRoleListItem
	BlockRoleBlockquote
	BlockRoleOther
)

// RenderIntent carries theme/colour-reduction hints through to the backend;
// the core never performs pixel-level dithering itself.
type RenderIntent struct {
	GrayscaleMode bookenum.GrayscaleMode
	Dither        bookenum.DitherMode
	ContrastBoost uint8 // percent, 100 = neutral
}

func DefaultRenderIntent() RenderIntent {
	return RenderIntent{GrayscaleMode: bookenum.GrayscaleOff, Dither: bookenum.DitherNone, ContrastBoost: 100}
}
