// Package layout consumes a chapter's styled event stream and produces
// ordered RenderPages of DrawCommands: greedy line breaking, justification,
// widow/orphan control, image placement and pagination.
//
// Layout is a greedy fit over measured words: paragraphs flatten into
// word/space atoms, lines break at the last opportunity that fits, and a
// y-cursor walks the content area emitting a page whenever the next unit
// would overflow it.
package layout

import (
	"strings"

	"github.com/h0rv/epub-stream-sub001/bookenum"
	"github.com/h0rv/epub-stream-sub001/diag"
	"github.com/h0rv/epub-stream-sub001/measure"
	"github.com/h0rv/epub-stream-sub001/page"
	"github.com/h0rv/epub-stream-sub001/text"
	"github.com/h0rv/epub-stream-sub001/tokenize"
)

// Geometry is the page geometry a chapter is laid out against.
type Geometry struct {
	DisplayWidthPx    int
	DisplayHeightPx   int
	MarginTopPx       int
	MarginBottomPx    int
	MarginLeftPx      int
	MarginRightPx     int
	FirstLineIndentPx int
	LineGapPx         int
	ParagraphGapPx    int
}

func (g Geometry) ContentWidth() int  { return g.DisplayWidthPx - g.MarginLeftPx - g.MarginRightPx }
func (g Geometry) ContentTop() int    { return g.MarginTopPx }
func (g Geometry) ContentBottom() int { return g.DisplayHeightPx - g.MarginBottomPx }
func (g Geometry) ContentHeight() int { return g.ContentBottom() - g.ContentTop() }

// JustificationConfig parameterises the AdaptiveInterWord decision: a line is stretch-justified only when it has enough words, is
// filled enough already, and the per-space stretch required stays under the
// cap; otherwise it falls back to AlignLeft.
type JustificationConfig struct {
	Strategy             bookenum.JustificationStrategy
	MinWords             int
	MinFillRatio         float32
	MaxSpaceStretchRatio float32
}

func DefaultJustificationConfig() JustificationConfig {
	return JustificationConfig{
		Strategy:             bookenum.JustificationAdaptiveInterWord,
		MinWords:             4,
		MinFillRatio:         0.85,
		MaxSpaceStretchRatio: 2.5,
	}
}

// ObjectConfig bounds inline image placement.
type ObjectConfig struct {
	MaxInlineImageHeightRatio float32
	CoverPage                 bookenum.CoverPageMode
}

func DefaultObjectConfig() ObjectConfig {
	return ObjectConfig{MaxInlineImageHeightRatio: 0.8, CoverPage: bookenum.CoverPageContain}
}

// Config is everything the layout engine needs beyond the styled event
// stream itself and a measurer.
type Config struct {
	Geometry         Geometry
	Justification    JustificationConfig
	Hyphenation      bookenum.HyphenationMode
	WidowOrphanLines int
	Objects          ObjectConfig

	// HangingPunctuation is an informational hint for backends that nudge
	// trailing commas/periods past the right margin. It never feeds the
	// fill-ratio computation here, so it cannot turn an underfilled line
	// into a justified one.
	HangingPunctuation bool
}

// DefaultConfig mirrors a 480x800 monochrome e-paper panel.
func DefaultConfig() Config {
	return Config{
		Geometry: Geometry{
			DisplayWidthPx: 480, DisplayHeightPx: 800,
			MarginTopPx: 24, MarginBottomPx: 24, MarginLeftPx: 16, MarginRightPx: 16,
			FirstLineIndentPx: 24, LineGapPx: 4, ParagraphGapPx: 12,
		},
		Justification:    DefaultJustificationConfig(),
		Hyphenation:      bookenum.HyphenationModeDiscretionary,
		WidowOrphanLines: 2,
		Objects:          DefaultObjectConfig(),
	}
}

// atom is one piece of a paragraph's flattened word/space stream.
type atomKind int

const (
	atomWord atomKind = iota
	atomSpace
)

type atom struct {
	kind        atomKind
	text        string
	style       tokenize.ComputedTextStyle
	fontID      *uint32
	width       float32
	hyphenBreak bool // a discretionary break was taken right after this atom
}

type placedAtom struct {
	atom atom
	x    int
}

// builtLine is one already-broken, already-justified line of a paragraph.
type builtLine struct {
	atoms       []placedAtom
	role        page.BlockRole
	isFirst     bool // first line of its paragraph (gets the first-line indent)
	isLast      bool // last line of its paragraph
	forced      bool // ended on an explicit LineBreak
	heightPx    int
	paragraphID int
}

// imageBox is a single placed (already scaled) image, treated as its own
// pseudo-paragraph for pagination purposes.
type imageBox struct {
	src, alt    string
	w, h        int
	fullBleed   bool
	paragraphID int
}

type unit struct {
	line  *builtLine
	image *imageBox
}

func (u unit) height(g Geometry) int {
	if u.line != nil {
		return u.line.heightPx
	}
	return u.image.h
}

func (u unit) paragraphID() int {
	if u.line != nil {
		return u.line.paragraphID
	}
	return u.image.paragraphID
}

// Paginate lays a chapter's styled event stream out into pages. measurer
// may be nil, in which case measure.EstimatingMeasurer is used; sink may be
// nil, in which case diagnostics are discarded.
func Paginate(items []tokenize.Item, cfg Config, measurer measure.TextMeasurer, isCoverChapter bool, sink diag.Sink) ([]*page.RenderPage, error) {
	if measurer == nil {
		measurer = measure.EstimatingMeasurer{}
	}
	if sink == nil {
		sink = diag.NopSink
	}

	units := buildUnits(items, cfg, measurer, isCoverChapter, sink)
	pageUnits := paginateUnits(units, cfg.Geometry, cfg.WidowOrphanLines)

	pages := make([]*page.RenderPage, 0, len(pageUnits))
	total := len(pageUnits)
	for i, us := range pageUnits {
		p := renderPageFromUnits(i+1, us, cfg.Geometry)
		p.Metrics.ChapterPageIndex = i
		count := total
		p.Metrics.ChapterPageCount = &count
		p.Metrics.ProgressChapter = chapterProgress(i, total)
		pages = append(pages, p)
	}
	return pages, nil
}

func chapterProgress(i, total int) float32 {
	if total <= 1 {
		return 1
	}
	return float32(i) / float32(total-1)
}

// buildUnits walks the styled event stream, producing paragraphs of
// already-broken-and-justified lines interleaved with image boxes, in
// reading order.
func buildUnits(items []tokenize.Item, cfg Config, measurer measure.TextMeasurer, isCoverChapter bool, sink diag.Sink) []unit {
	var units []unit
	paragraphID := 0
	contentSeen := false

	var curAtoms []atom
	curRole := page.BlockRoleBody
	open := false

	flushParagraph := func() {
		if !open {
			return
		}
		if len(curAtoms) > 0 {
			lines := breakParagraph(curAtoms, curRole, paragraphID, cfg, measurer)
			for i := range lines {
				units = append(units, unit{line: &lines[i]})
			}
		}
		paragraphID++
		curAtoms = nil
		open = false
	}

	for _, raw := range items {
		switch it := raw.(type) {
		case tokenize.BlockStart:
			flushParagraph()
			curRole = it.Role
			open = true
		case tokenize.BlockEnd:
			flushParagraph()
		case tokenize.LineBreak:
			if !open {
				open = true
			}
			curAtoms = append(curAtoms, atom{kind: atomSpace, text: "\x00forced\x00"})
		case tokenize.StyledRun:
			if !open {
				open = true
				curRole = it.Style.BlockRole
			}
			curAtoms = append(curAtoms, wordsFromRun(it, cfg.Hyphenation, measurer)...)
			if strings.TrimSpace(it.Text) != "" {
				contentSeen = true
			}
		case tokenize.StyledImage:
			flushParagraph()
			// Structural events before the image (an enclosing div/figure)
			// don't disqualify it: cover handling applies to the first
			// visible content of a declared-cover spine item.
			isCover := isCoverChapter && !contentSeen
			box := buildImageBox(it, cfg, isCover, paragraphID, sink)
			units = append(units, unit{image: &box})
			paragraphID++
			contentSeen = true
		}
	}
	flushParagraph()
	return units
}

// wordsFromRun splits one styled run's already-whitespace-collapsed text
// into word/space atoms, further splitting a word at soft hyphens into
// discretionary-break segments when the configured hyphenation mode allows
// it.
func wordsFromRun(run tokenize.StyledRun, mode bookenum.HyphenationMode, measurer measure.TextMeasurer) []atom {
	var out []atom
	parts := strings.Split(run.Text, " ")
	for i, part := range parts {
		if part == "" {
			if i > 0 && i < len(parts)-1 {
				// An interior empty part means the original text had two
				// consecutive spaces, which collapseWhitespace already
				// prevents; defensively skip rather than emit a zero-width
				// space atom.
				continue
			}
			if len(out) == 0 && i == 0 {
				out = append(out, atom{kind: atomSpace, style: run.Style, width: spaceWidth(run, measurer)})
				continue
			}
			if i == len(parts)-1 && len(out) > 0 {
				out = append(out, atom{kind: atomSpace, style: run.Style, width: spaceWidth(run, measurer)})
			}
			continue
		}
		if i > 0 {
			out = append(out, atom{kind: atomSpace, style: run.Style, width: spaceWidth(run, measurer)})
		}
		segs := []string{part}
		if mode == bookenum.HyphenationModeDiscretionary {
			segs = text.SplitAtSoftHyphens(part)
		} else {
			segs = []string{strings.ReplaceAll(part, string(text.SoftHyphen), "")}
		}
		for si, seg := range segs {
			if seg == "" {
				continue
			}
			w := measurer.MeasureTextPx(seg, resolvedStyle(run.Style, page.JustifyMode{}))
			out = append(out, atom{
				kind:   atomWord,
				text:   seg,
				style:  run.Style,
				fontID: run.FontID,
				width:  w,
				// hyphenBreak is provisional: only rendered if the line
				// breaker actually takes the break here.
				hyphenBreak: si < len(segs)-1,
			})
		}
	}
	return out
}

func spaceWidth(run tokenize.StyledRun, measurer measure.TextMeasurer) float32 {
	return measurer.MeasureTextPx(" ", resolvedStyle(run.Style, page.JustifyMode{}))
}

func resolvedStyle(s tokenize.ComputedTextStyle, justify page.JustifyMode) page.ResolvedTextStyle {
	return page.ResolvedTextStyle{
		Family:        s.Family(),
		Weight:        s.Weight,
		Italic:        s.Italic,
		SizePx:        s.SizePx,
		LineHeight:    s.LineHeight,
		LetterSpacing: s.LetterSpacing,
		Role:          s.BlockRole,
		Justify:       justify,
	}
}

// breakParagraph runs the greedy line-breaking + justification pass over
// one paragraph's flattened atom stream.
func breakParagraph(atoms []atom, role page.BlockRole, paragraphID int, cfg Config, measurer measure.TextMeasurer) []builtLine {
	var rawLines [][]atom
	var forcedEnds []bool

	var cur []atom
	lineWidth := float32(0)
	pendingSpace := -1 // index into cur of a trailing space not yet committed to width

	availFor := func(isFirst bool) float32 {
		w := cfg.Geometry.ContentWidth()
		if isFirst {
			w -= cfg.Geometry.FirstLineIndentPx
		}
		if w < 1 {
			w = 1
		}
		return float32(w)
	}

	commitLine := func(forced bool) {
		// Trim a trailing pending space: it never counts toward width or
		// rendering.
		if pendingSpace >= 0 {
			cur = cur[:pendingSpace]
		}
		rawLines = append(rawLines, cur)
		forcedEnds = append(forcedEnds, forced)
		cur = nil
		lineWidth = 0
		pendingSpace = -1
	}

	isFirstLine := func() bool { return len(rawLines) == 0 }

	i := 0
	for i < len(atoms) {
		a := atoms[i]
		if a.kind == atomSpace && a.text == "\x00forced\x00" {
			commitLine(true)
			i++
			continue
		}
		if a.kind == atomSpace {
			pendingSpace = len(cur)
			cur = append(cur, a)
			i++
			continue
		}

		avail := availFor(isFirstLine())
		extra := float32(0)
		if pendingSpace >= 0 {
			extra = cur[pendingSpace].width
		}
		candidate := lineWidth + extra + a.width
		if candidate <= avail || len(cur) == 0 {
			if pendingSpace >= 0 {
				lineWidth += cur[pendingSpace].width
				pendingSpace = -1
			}
			cur = append(cur, a)
			lineWidth += a.width
			i++
			continue
		}

		// Doesn't fit: drop any pending trailing space and break here.
		if pendingSpace >= 0 {
			cur = cur[:pendingSpace]
			pendingSpace = -1
		}
		if len(cur) == 0 {
			// The single word itself exceeds the available width: place it
			// alone rather than loop forever.
			cur = append(cur, a)
			lineWidth += a.width
			i++
			commitLine(false)
			continue
		}
		commitLine(false)
	}
	if len(cur) > 0 {
		if pendingSpace >= 0 {
			cur = cur[:pendingSpace]
		}
		rawLines = append(rawLines, cur)
		forcedEnds = append(forcedEnds, false)
	}
	if len(rawLines) == 0 {
		return nil
	}

	lines := make([]builtLine, len(rawLines))
	for li, la := range rawLines {
		isFirst := li == 0
		isLast := li == len(rawLines)-1
		forced := forcedEnds[li]
		lines[li] = justifyLine(la, role, isFirst, isLast, forced, paragraphID, cfg, measurer)
	}
	return lines
}

// justifyLine computes per-atom x offsets for one already-broken line per
// the configured JustificationStrategy, and the resulting line height.
func justifyLine(atoms []atom, role page.BlockRole, isFirst, isLast, forced bool, paragraphID int, cfg Config, measurer measure.TextMeasurer) builtLine {
	avail := cfg.Geometry.ContentWidth()
	if isFirst {
		avail -= cfg.Geometry.FirstLineIndentPx
	}

	lineWidth := float32(0)
	spaceCount := 0
	var spaceWidths []float32
	maxLineHeight := float32(0)
	for _, a := range atoms {
		lineWidth += a.width
		if a.kind == atomSpace {
			spaceCount++
			spaceWidths = append(spaceWidths, a.width)
		} else {
			lh := a.style.LineHeight * a.style.SizePx
			if lh > maxLineHeight {
				maxLineHeight = lh
			}
		}
	}
	if maxLineHeight == 0 {
		maxLineHeight = 16 * 1.4
	}

	wordCount := 0
	for _, a := range atoms {
		if a.kind == atomWord {
			wordCount++
		}
	}

	strategy := cfg.Justification.Strategy
	useAlignLeft := isLast || forced
	justify := page.JustifyMode{Kind: page.JustifyNone}

	extraTotal := 0
	offset := 0

	if !useAlignLeft {
		switch strategy {
		case bookenum.JustificationAlignRight:
			offset = int(float32(avail) - lineWidth)
			justify = page.JustifyMode{Kind: page.JustifyAlignRight, OffsetPx: offset}
		case bookenum.JustificationAlignCenter:
			offset = int((float32(avail) - lineWidth) / 2)
			justify = page.JustifyMode{Kind: page.JustifyAlignCenter, OffsetPx: offset}
		case bookenum.JustificationFullInterWord:
			if spaceCount > 0 {
				extraTotal = int(float32(avail) - lineWidth)
				if extraTotal < 0 {
					extraTotal = 0
				}
				justify = page.JustifyMode{Kind: page.JustifyInterWord, ExtraPxTotal: extraTotal}
			}
		case bookenum.JustificationAdaptiveInterWord:
			slack := float32(avail) - lineWidth
			fillRatio := lineWidth / float32(avail)
			avgSpace := float32(0)
			if spaceCount > 0 {
				for _, w := range spaceWidths {
					avgSpace += w
				}
				avgSpace /= float32(spaceCount)
			}
			perSpace := float32(0)
			if spaceCount > 0 {
				perSpace = slack / float32(spaceCount)
			}
			if spaceCount > 0 && wordCount >= cfg.Justification.MinWords &&
				fillRatio >= cfg.Justification.MinFillRatio &&
				avgSpace > 0 && perSpace <= cfg.Justification.MaxSpaceStretchRatio*avgSpace {
				extraTotal = int(slack)
				if extraTotal < 0 {
					extraTotal = 0
				}
				justify = page.JustifyMode{Kind: page.JustifyInterWord, ExtraPxTotal: extraTotal}
			}
			// else: falls back to AlignLeft (justify stays JustifyNone).
		}
	}

	// Assign x offsets, distributing extraTotal across interior spaces,
	// remainder to the leftmost spaces (deterministic integer pixels).
	perSpace, remainder := 0, 0
	if extraTotal > 0 && spaceCount > 0 {
		perSpace = extraTotal / spaceCount
		remainder = extraTotal % spaceCount
	}

	x := offset
	spaceSeen := 0
	placed := make([]placedAtom, 0, len(atoms))
	for _, a := range atoms {
		placed = append(placed, placedAtom{atom: a, x: x})
		adv := a.width
		if a.kind == atomSpace {
			extra := perSpace
			if spaceSeen < remainder {
				extra++
			}
			adv += float32(extra)
			spaceSeen++
		}
		x += int(adv)
	}

	for i := range placed {
		placed[i].atom.style.BlockRole = role
	}

	return builtLine{
		atoms:       withLineJustify(placed, justify),
		role:        role,
		isFirst:     isFirst,
		isLast:      isLast,
		forced:      forced,
		heightPx:    int(maxLineHeight) + cfg.Geometry.LineGapPx,
		paragraphID: paragraphID,
	}
}

// withLineJustify is a no-op placeholder kept for clarity: justify mode is
// attached at render time per-command from the line, not stored per atom.
func withLineJustify(placed []placedAtom, _ page.JustifyMode) []placedAtom { return placed }

func buildImageBox(img tokenize.StyledImage, cfg Config, isCover bool, paragraphID int, sink diag.Sink) imageBox {
	intrinsicW, intrinsicH := 0, 0
	if img.IntrinsicWPx != nil {
		intrinsicW = *img.IntrinsicWPx
	}
	if img.IntrinsicHPx != nil {
		intrinsicH = *img.IntrinsicHPx
	}
	if intrinsicW <= 0 || intrinsicH <= 0 {
		sink.Emit(diag.ImageFallbackDraw{Src: img.Src})
		intrinsicW, intrinsicH = 4, 3
	}

	if isCover {
		switch cfg.Objects.CoverPage {
		case bookenum.CoverPageFullBleed:
			w, h := scaleToFill(intrinsicW, intrinsicH, cfg.Geometry.DisplayWidthPx, cfg.Geometry.DisplayHeightPx)
			return imageBox{src: img.Src, alt: img.Alt, w: w, h: h, fullBleed: true, paragraphID: paragraphID}
		case bookenum.CoverPageContain:
			w, h := scaleToFit(intrinsicW, intrinsicH, cfg.Geometry.ContentWidth(), cfg.Geometry.ContentHeight())
			return imageBox{src: img.Src, alt: img.Alt, w: w, h: h, paragraphID: paragraphID}
		case bookenum.CoverPageRespectCss:
			// falls through to the ordinary inline-image path below
		}
	}

	maxH := int(float32(cfg.Geometry.ContentHeight()) * cfg.Objects.MaxInlineImageHeightRatio)
	w, h := scaleToFit(intrinsicW, intrinsicH, cfg.Geometry.ContentWidth(), maxH)
	return imageBox{src: img.Src, alt: img.Alt, w: w, h: h, paragraphID: paragraphID}
}

func scaleToFit(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= 0 || srcH <= 0 || maxW <= 0 || maxH <= 0 {
		return maxW, maxH
	}
	ratio := float64(srcW) / float64(srcH)
	w, h := maxW, int(float64(maxW)/ratio)
	if h > maxH {
		h = maxH
		w = int(float64(maxH) * ratio)
	}
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return w, h
}

// scaleToFill scales to cover the viewport, preserving aspect, for
// FullBleed cover placement; the backend is expected to clip to the
// viewport since the scaled box may exceed it on one axis.
func scaleToFill(srcW, srcH, viewW, viewH int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return viewW, viewH
	}
	ratio := float64(srcW) / float64(srcH)
	w, h := viewW, int(float64(viewW)/ratio)
	if h < viewH {
		h = viewH
		w = int(float64(viewH) * ratio)
	}
	return w, h
}

// paginateUnits assigns the flattened unit stream to pages by walking a
// y-cursor across the content area, then applies a single widow/orphan
// correction pass.
func paginateUnits(units []unit, g Geometry, widowOrphanLines int) [][]unit {
	var pages [][]unit
	var cur []unit
	y := g.ContentTop()
	lastParagraphID := -1

	flush := func() {
		if len(cur) > 0 {
			pages = append(pages, cur)
		}
		cur = nil
		y = g.ContentTop()
		lastParagraphID = -1
	}

	for _, u := range units {
		h := u.height(g)
		gap := 0
		if u.line != nil && u.line.isFirst && lastParagraphID != -1 && len(cur) > 0 {
			gap = g.ParagraphGapPx
		}
		if u.image != nil && len(cur) > 0 {
			gap = g.ParagraphGapPx
		}
		if len(cur) > 0 && y+gap+h > g.ContentBottom() {
			flush()
			gap = 0
		}
		y += gap + h
		cur = append(cur, u)
		lastParagraphID = u.paragraphID()
	}
	flush()

	return applyWidowOrphan(pages, widowOrphanLines, g)
}

// applyWidowOrphan pulls one line back from the previous page when a
// paragraph's tail on the new page would be fewer than k lines, provided
// the previous page would still retain at least k lines of that paragraph
// and doing so doesn't overflow the next page.
func applyWidowOrphan(pages [][]unit, k int, g Geometry) [][]unit {
	if k <= 0 {
		return pages
	}
	for i := 0; i < len(pages)-1; i++ {
		prev, next := pages[i], pages[i+1]
		if len(prev) == 0 || len(next) == 0 {
			continue
		}
		lastLine := prev[len(prev)-1].line
		if lastLine == nil {
			continue
		}
		pid := lastLine.paragraphID

		prevCount := 0
		for j := len(prev) - 1; j >= 0 && prev[j].line != nil && prev[j].line.paragraphID == pid; j-- {
			prevCount++
		}

		tailCount := 0
		for _, u := range next {
			if u.line != nil && u.line.paragraphID == pid {
				tailCount++
			} else {
				break
			}
		}
		// Only meaningful when the paragraph actually ends within this
		// tail run (otherwise it's not a widow/orphan situation at all).
		if tailCount == 0 || tailCount >= k {
			continue
		}
		if !next[tailCount-1].line.isLast {
			continue
		}
		if prevCount-1 < k {
			continue
		}

		moved := prev[len(prev)-1]
		movedHeight := moved.height(g)
		nextHeight := 0
		for _, u := range next {
			nextHeight += u.height(g)
		}
		if g.ContentTop()+nextHeight+movedHeight > g.ContentBottom() {
			continue
		}

		pages[i] = prev[:len(prev)-1]
		pages[i+1] = append([]unit{moved}, next...)
	}
	// Drop any page that widow/orphan correction emptied out.
	out := pages[:0]
	for _, p := range pages {
		if len(p) > 0 {
			out = append(out, p)
		}
	}
	return out
}

func renderPageFromUnits(pageNumber int, units []unit, g Geometry) *page.RenderPage {
	p := page.NewRenderPage(pageNumber)
	y := g.ContentTop()
	lastParagraphID := -1
	first := true

	for _, u := range units {
		if u.line != nil {
			l := u.line
			if l.isFirst && !first && lastParagraphID != l.paragraphID {
				y += g.ParagraphGapPx
			}
			baseline := y + int(float32(l.heightPx)*0.75)
			lastWord := -1
			for ai, pa := range l.atoms {
				if pa.atom.kind == atomWord {
					lastWord = ai
				}
			}
			for ai, pa := range l.atoms {
				if pa.atom.kind != atomWord {
					continue
				}
				txt := pa.atom.text
				// A discretionary hyphen renders only where the break was
				// actually taken, i.e. when the segment ends its line.
				if pa.atom.hyphenBreak && ai == lastWord && !l.isLast {
					txt += "-"
				}
				cmd := page.TextCommand{
					X:         g.MarginLeftPx + boolIndent(l.isFirst, g) + pa.x,
					BaselineY: baseline,
					Text:      txt,
					FontID:    pa.atom.fontID,
					Style:     resolvedStyle(pa.atom.style, page.JustifyMode{}),
				}
				p.PushContentCommand(cmd)
			}
			y += l.heightPx
			lastParagraphID = l.paragraphID
			first = false
		} else {
			img := u.image
			if !first {
				y += g.ParagraphGapPx
			}
			x := g.MarginLeftPx
			if !img.fullBleed {
				x = g.MarginLeftPx + (g.ContentWidth()-img.w)/2
			} else {
				x = 0
				y = 0
			}
			p.PushContentCommand(page.ImageObjectCommand{
				Src: img.src, Alt: img.alt, X: x, Y: y, Width: uint32(img.w), Height: uint32(img.h),
			})
			p.Annotations = append(p.Annotations, page.PageAnnotation{
				Kind: page.PageAnnotationInlineImageSrc, Value: &img.src,
			})
			y += img.h
			lastParagraphID = img.paragraphID
			first = false
		}
	}
	return p
}

func boolIndent(isFirst bool, g Geometry) int {
	if isFirst {
		return g.FirstLineIndentPx
	}
	return 0
}
