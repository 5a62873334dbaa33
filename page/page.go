package page

import "crypto/sha256"

// PaginationProfileID is a 32-byte digest over every layout-affecting
// option (page geometry, font set, justification strategy, hyphenation
// mode, margins, line spacing...). Two engines configured identically
// produce the same id, which is the cache key's stable half; the other
// half is chapter index.
type PaginationProfileID [32]byte

// NewPaginationProfileID hashes the canonical byte encoding of a render
// configuration (produced by the render package) into a profile id.
func NewPaginationProfileID(canonical []byte) PaginationProfileID {
	return PaginationProfileID(sha256.Sum256(canonical))
}

// PageMetrics is the navigational metadata attached to every RenderPage:
// where it sits in its chapter and, once known, in the whole book.
type PageMetrics struct {
	ChapterIndex            int
	ChapterPageIndex        int
	ChapterPageCount        *int
	GlobalPageIndex         *int
	GlobalPageCountEstimate *int
	ProgressChapter         float32
	ProgressBook            *float32
}

// PageAnnotationKind is an open string enumeration: known tags round-trip
// through String/ParsePageAnnotationKind, anything else is preserved
// losslessly as Unknown so a newer container's custom annotation tags
// never get silently dropped by an older engine build.
type PageAnnotationKind struct {
	tag string
}

var (
	PageAnnotationNote           = PageAnnotationKind{"note"}
	PageAnnotationInlineImageSrc = PageAnnotationKind{"inline_image_src"}
)

// UnknownPageAnnotationKind wraps an unrecognised annotation tag verbatim.
func UnknownPageAnnotationKind(tag string) PageAnnotationKind {
	return PageAnnotationKind{tag}
}

// ParsePageAnnotationKind maps a wire tag to a known kind, or Unknown(tag).
func ParsePageAnnotationKind(tag string) PageAnnotationKind {
	switch tag {
	case "note":
		return PageAnnotationNote
	case "inline_image_src":
		return PageAnnotationInlineImageSrc
	default:
		return UnknownPageAnnotationKind(tag)
	}
}

func (k PageAnnotationKind) String() string { return k.tag }

// GobEncode serialises the kind as its wire tag so annotated pages survive
// a gob round trip through a persisted cache store despite the unexported
// field.
func (k PageAnnotationKind) GobEncode() ([]byte, error) { return []byte(k.tag), nil }

// GobDecode restores a kind from its wire tag.
func (k *PageAnnotationKind) GobDecode(data []byte) error {
	k.tag = string(data)
	return nil
}

// IsUnknown reports whether this kind fell through to the Unknown fallback.
func (k PageAnnotationKind) IsUnknown() bool {
	return k.tag != "note" && k.tag != "inline_image_src"
}

// PageAnnotation is a sidecar marker for a page, e.g. a footnote reference
// or the source href of an inline image, carried alongside draw commands
// without being one itself.
type PageAnnotation struct {
	Kind  PageAnnotationKind
	Value *string
}

// OverlaySlotKind is the anchor position for an overlay item. Custom
// carries an explicit rect and ignores Kind's implied anchor.
type OverlaySlotKind int

const (
	OverlayTopLeft OverlaySlotKind = iota
	OverlayTopCenter
	OverlayTopRight
	OverlayBottomLeft
	OverlayBottomCenter
	OverlayBottomRight
	OverlayCustom
)

// OverlayRect is an explicit overlay placement in page pixel space.
type OverlayRect struct {
	X, Y          int32
	Width, Height uint32
}

// OverlaySlot is the resolved placement for one overlay item.
type OverlaySlot struct {
	Kind   OverlaySlotKind
	Custom OverlayRect // populated only when Kind == OverlayCustom
}

// OverlaySize is the draw-target dimensions an OverlayComposer lays items
// out against.
type OverlaySize struct {
	Width, Height uint32
}

// OverlayContent is either literal text or a fully-formed draw command,
// letting a composer either delegate to the page's own text style or draw
// something bespoke (a battery glyph, a progress bar rect).
type OverlayContent struct {
	Text    *string
	Command DrawCommand
}

// OverlayItem is one placed overlay element returned by an OverlayComposer.
type OverlayItem struct {
	Slot    OverlaySlot
	Z       int32
	Content OverlayContent
}

// RenderPage is the per-page intermediate representation produced by the
// layout engine. Commands are split into three layers so a backend can
// redraw only the overlay (e.g. a clock) without re-issuing content/chrome
// draws; Commands is a legacy merged view kept in sync on request via
// SyncCommands for callers that haven't migrated to the split layers.
type RenderPage struct {
	PageNumber      int
	ContentCommands []DrawCommand
	ChromeCommands  []DrawCommand
	OverlayCommands []DrawCommand
	OverlayItems    []OverlayItem
	Annotations     []PageAnnotation
	Metrics         PageMetrics

	// Embedded marks a page produced for a constrained e-paper target.
	// SyncCommands is a no-op while this is set: the legacy merged layer is
	// intentionally left empty to save heap, and callers on that target are
	// expected to iterate the split layers directly via MergedCommands.
	Embedded bool

	// Commands is the legacy merged content+chrome+overlay view. It is not
	// kept live; call SyncCommands after mutating the split layers to bring
	// it up to date. Stays empty when Embedded is set.
	Commands []DrawCommand
}

// NewRenderPage returns an empty page ready to accumulate commands.
func NewRenderPage(pageNumber int) *RenderPage {
	return &RenderPage{PageNumber: pageNumber}
}

// Reset clears a page for reuse under a new page number, retaining the
// underlying slice capacity so repeated pagination passes over a long
// book don't re-allocate per page.
func (p *RenderPage) Reset(newPageNumber int) {
	p.PageNumber = newPageNumber
	p.ContentCommands = p.ContentCommands[:0]
	p.ChromeCommands = p.ChromeCommands[:0]
	p.OverlayCommands = p.OverlayCommands[:0]
	p.OverlayItems = p.OverlayItems[:0]
	p.Annotations = p.Annotations[:0]
	p.Commands = p.Commands[:0]
	p.Metrics = PageMetrics{}
}

func (p *RenderPage) PushContentCommand(c DrawCommand) {
	p.ContentCommands = append(p.ContentCommands, c)
}

func (p *RenderPage) PushChromeCommand(c DrawCommand) {
	p.ChromeCommands = append(p.ChromeCommands, c)
}

func (p *RenderPage) PushOverlayCommand(c DrawCommand) {
	p.OverlayCommands = append(p.OverlayCommands, c)
}

// MergedCommandsLen returns the combined length of the three split layers,
// i.e. what Commands would hold once synced.
func (p *RenderPage) MergedCommandsLen() int {
	return len(p.ContentCommands) + len(p.ChromeCommands) + len(p.OverlayCommands)
}

// MergedCommands returns the content/chrome/overlay layers concatenated in
// draw order, without mutating p.Commands.
func (p *RenderPage) MergedCommands() []DrawCommand {
	out := make([]DrawCommand, 0, p.MergedCommandsLen())
	out = append(out, p.ContentCommands...)
	out = append(out, p.ChromeCommands...)
	out = append(out, p.OverlayCommands...)
	return out
}

// SyncCommands brings the legacy Commands slice up to date with the split
// layers. If Commands is already a valid prefix of the merged sequence
// (the common case: only the overlay layer changed since the last sync),
// it appends just the new tail; otherwise it rebuilds from scratch. On a
// page marked Embedded this is a no-op: the merged layer stays empty.
func (p *RenderPage) SyncCommands() {
	if p.Embedded {
		return
	}
	merged := p.MergedCommands()
	if len(p.Commands) <= len(merged) && commandsEqualPrefix(p.Commands, merged) {
		p.Commands = append(p.Commands, merged[len(p.Commands):]...)
		return
	}
	p.Commands = merged
}

func commandsEqualPrefix(prefix, full []DrawCommand) bool {
	for i := range prefix {
		if prefix[i] != full[i] {
			return false
		}
	}
	return true
}
