// Package render orchestrates a chapter's journey from book bytes to
// emitted RenderPages: tokenize, lay out, apply page chrome, fill metrics,
// compose overlays, consult the page cache, and report diagnostics. It is
// the one component that touches every other package in this module.
//
// Every PrepareChapter* entry point funnels through one pipeline; the
// variants differ only in how pages reach the caller (returned, iterated,
// streamed, or emitted through a PageSink callback).
package render

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/h0rv/epub-stream-sub001/book"
	"github.com/h0rv/epub-stream-sub001/bookenum"
	"github.com/h0rv/epub-stream-sub001/bookerr"
	"github.com/h0rv/epub-stream-sub001/cache"
	"github.com/h0rv/epub-stream-sub001/config"
	"github.com/h0rv/epub-stream-sub001/diag"
	"github.com/h0rv/epub-stream-sub001/layout"
	"github.com/h0rv/epub-stream-sub001/limits"
	"github.com/h0rv/epub-stream-sub001/measure"
	"github.com/h0rv/epub-stream-sub001/navdoc"
	"github.com/h0rv/epub-stream-sub001/overlay"
	"github.com/h0rv/epub-stream-sub001/page"
	"github.com/h0rv/epub-stream-sub001/pagemap"
	"github.com/h0rv/epub-stream-sub001/tokenize"
)

// CancelToken is the cooperative cancellation capability polled once per
// page boundary. A nil CancelToken is never cancelled.
type CancelToken interface {
	IsCancelled() bool
}

// CancelTokenFunc adapts a plain function to the CancelToken interface.
type CancelTokenFunc func() bool

func (f CancelTokenFunc) IsCancelled() bool { return f() }

// PageSink receives finished pages one at a time from the callback-style
// PrepareChapter* variants, strictly in increasing page_number order. A nil
// sink is allowed and discards pages (the prep still runs, e.g. to warm
// the cache).
type PageSink func(*page.RenderPage)

// Config is everything an Engine needs beyond the book and chapter index
// themselves: layout geometry/typography, page chrome, render intent, the
// resource budget, a text measurer and a page cache. Every field here that
// affects laid-out pixels feeds the PaginationProfileID digest.
type Config struct {
	Layout        layout.Config
	PageChrome    config.PageChromeConfig
	RenderIntent  config.RenderIntentConfig
	Memory        limits.MemoryBudget
	EmbeddedFonts bool

	// BaseFontSizePx is the body font size the tokenizer's cascade starts
	// from; per-element styles scale relative to it. A zero value falls back
	// to 16px.
	BaseFontSizePx float32

	// Embedded marks a constrained e-paper target (the config.Embedded()
	// profile): RenderPage.SyncCommands is skipped so the legacy merged
	// command layer is never materialised, and callers iterate the split
	// layers directly instead.
	Embedded bool

	Measurer measure.TextMeasurer
	Cache    cache.Store
	Log      *zap.Logger

	// Diag is the engine-owned diagnostics sink. SetDiagnosticSink
	// replaces it after construction.
	Diag diag.Sink
}

// DefaultConfig mirrors a desktop/tablet-class reading surface.
func DefaultConfig() Config {
	return Config{
		Layout:         layout.DefaultConfig(),
		PageChrome:     config.DefaultPageChromeConfig(),
		RenderIntent:   config.DefaultRenderIntentConfig(),
		Memory:         limits.DefaultMemoryBudget(),
		BaseFontSizePx: 16,
	}
}

// NewEngineOptionsForDisplay is a convenience constructor for the common
// case of targeting one specific panel size: it starts from DefaultConfig
// and overrides only the display dimensions, keeping every other default.
func NewEngineOptionsForDisplay(widthPx, heightPx int) Config {
	cfg := DefaultConfig()
	cfg.Layout.Geometry.DisplayWidthPx = widthPx
	cfg.Layout.Geometry.DisplayHeightPx = heightPx
	return cfg
}

// WithEmbeddedFonts toggles whether the engine assumes a fixed embedded
// font set is available on the backend (affecting nothing in this pure-Go
// reference layout beyond the pagination profile digest, since real font
// substitution happens in the backend) and returns the updated Config,
// fluent-builder style.
func (c Config) WithEmbeddedFonts(embedded bool) Config {
	c.EmbeddedFonts = embedded
	return c
}

// WithEmbedded toggles whether pages are produced for a constrained
// e-paper target, suppressing the legacy merged command layer, and returns
// the updated Config, fluent-builder style.
func (c Config) WithEmbedded(embedded bool) Config {
	c.Embedded = embedded
	return c
}

// WithCache attaches a page cache and returns the updated Config,
// fluent-builder style.
func (c Config) WithCache(store cache.Store) Config {
	c.Cache = store
	return c
}

func (c Config) normalized() Config {
	if c.Measurer == nil {
		c.Measurer = measure.EstimatingMeasurer{}
	}
	if c.Cache == nil {
		c.Cache = cache.NopStore{}
	}
	if c.Log == nil {
		c.Log = zap.NewNop()
	}
	if c.Diag == nil {
		c.Diag = diag.NopSink
	}
	if c.BaseFontSizePx <= 0 {
		c.BaseFontSizePx = 16
	}
	return c
}

// Engine prepares chapters under one fixed Config. Construct with NewEngine;
// the zero value is not usable.
type Engine struct {
	cfg        Config
	instanceID uuid.UUID
}

// NewEngine returns an Engine ready to prepare chapters, filling in
// conservative defaults for any unset Measurer/Cache/Log.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.normalized(), instanceID: uuid.New()}
}

// InstanceID is this engine's correlation id for diagnostics and logs.
func (e *Engine) InstanceID() uuid.UUID { return e.instanceID }

// SetDiagnosticSink replaces the engine's diagnostics sink. A nil sink
// reverts to discarding diagnostics. The sink does not feed the pagination
// profile digest, so swapping it never invalidates cached pages.
func (e *Engine) SetDiagnosticSink(sink diag.Sink) {
	if sink == nil {
		sink = diag.NopSink
	}
	e.cfg.Diag = sink
}

// ProfileID returns the 32-byte pagination profile digest for this
// engine's current configuration.
func (e *Engine) ProfileID() page.PaginationProfileID {
	return page.NewPaginationProfileID(canonicalEncode(e.cfg))
}

// canonicalEncode serialises every layout-affecting Config field into a
// fixed, versioned byte sequence: same fields in, same bytes out,
// independent of map iteration order or struct padding.
func canonicalEncode(cfg Config) []byte {
	var buf bytes.Buffer
	buf.WriteByte(1) // encoding version

	writeInt64 := func(v int64) { _ = binary.Write(&buf, binary.LittleEndian, v) }
	writeInt := func(v int) { writeInt64(int64(v)) }
	writeFloat := func(v float32) { _ = binary.Write(&buf, binary.LittleEndian, v) }
	writeBool := func(v bool) {
		if v {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	}
	writeString := func(s string) {
		writeInt(len(s))
		buf.WriteString(s)
	}

	g := cfg.Layout.Geometry
	for _, v := range []int{
		g.DisplayWidthPx, g.DisplayHeightPx,
		g.MarginTopPx, g.MarginBottomPx, g.MarginLeftPx, g.MarginRightPx,
		g.FirstLineIndentPx, g.LineGapPx, g.ParagraphGapPx,
	} {
		writeInt(v)
	}

	j := cfg.Layout.Justification
	writeInt(int(j.Strategy))
	writeInt(j.MinWords)
	writeFloat(j.MinFillRatio)
	writeFloat(j.MaxSpaceStretchRatio)

	writeInt(int(cfg.Layout.Hyphenation))
	writeInt(cfg.Layout.WidowOrphanLines)
	writeBool(cfg.Layout.HangingPunctuation)

	o := cfg.Layout.Objects
	writeFloat(o.MaxInlineImageHeightRatio)
	writeInt(int(o.CoverPage))

	pc := cfg.PageChrome
	writeInt(int(pc.TextStyle))
	writeBool(pc.ShowPageNumber)
	writeBool(pc.ShowChapterTitle)
	writeString(pc.HeaderTemplate)
	writeString(pc.FooterTemplate)

	ri := cfg.RenderIntent
	writeInt(int(ri.Grayscale))
	writeInt(int(ri.Dither))
	writeFloat(ri.ContrastBoost)

	writeFloat(cfg.BaseFontSizePx)
	writeBool(cfg.EmbeddedFonts)

	return buf.Bytes()
}

// prepareRequest bundles the optional knobs the various PrepareChapter*
// entry points layer on top of the common pipeline.
type prepareRequest struct {
	chapterBytes    []byte // nil => read from book
	overlayComposer overlay.Composer
	viewport        page.OverlaySize
	enforceMaxPages bool
}

// emitPages feeds already-prepared pages to a PageSink in order; a nil
// sink discards them.
func emitPages(pages []*page.RenderPage, sink PageSink) {
	if sink == nil {
		return
	}
	for _, p := range pages {
		sink(p)
	}
}

// PrepareChapter materialises every page of chapter ch.
func (e *Engine) PrepareChapter(b *book.Book, ch int) ([]*page.RenderPage, error) {
	return e.prepare(b, ch, prepareRequest{})
}

// PrepareChapterBytesWith lays out chapter ch using caller-supplied bytes
// instead of reading them from the container, emitting each page through
// sink; chapter metadata (href, cover status) still comes from book.
func (e *Engine) PrepareChapterBytesWith(b *book.Book, ch int, chapterBytes []byte, sink PageSink) error {
	pages, err := e.prepare(b, ch, prepareRequest{chapterBytes: chapterBytes})
	if err != nil {
		return err
	}
	emitPages(pages, sink)
	return nil
}

// PrepareChapterWithConfig lays out chapter ch under cfg instead of a
// pre-built engine's configuration, emitting each page through sink and
// retaining none of them. It is implemented as a one-shot Engine built
// from cfg so the same pipeline code path runs either way.
func PrepareChapterWithConfig(b *book.Book, ch int, cfg Config, sink PageSink) error {
	eng := NewEngine(cfg)
	pages, err := eng.prepare(b, ch, prepareRequest{})
	if err != nil {
		return err
	}
	emitPages(pages, sink)
	return nil
}

// PrepareChapterWithConfigCollect is PrepareChapterWithConfig's collecting
// counterpart: it retains and returns every page, enforcing
// cfg.Memory.MaxPagesInMemory.
func PrepareChapterWithConfigCollect(b *book.Book, ch int, cfg Config) ([]*page.RenderPage, error) {
	eng := NewEngine(cfg)
	return eng.prepare(b, ch, prepareRequest{enforceMaxPages: true})
}

// PrepareChapterPageRange materialises only pages [start, end) of chapter
// ch. Output equals PrepareChapter(b, ch)[start:end].
func (e *Engine) PrepareChapterPageRange(b *book.Book, ch, start, end int) ([]*page.RenderPage, error) {
	pages, err := e.PrepareChapter(b, ch)
	if err != nil {
		return nil, err
	}
	if start < 0 {
		start = 0
	}
	if end > len(pages) {
		end = len(pages)
	}
	if start > end {
		start = end
	}
	return pages[start:end], nil
}

// PrepareChapterWithCancel polls token.IsCancelled() before the first page
// and once per page boundary before handing that page to sink, stopping
// with bookerr.Cancelled the moment it reports true. Pages already handed
// to sink remain valid. The layout pass fully materialises a chapter
// before chrome and metrics are applied, so an already-cancelled token
// means the sink sees no pages at all.
func (e *Engine) PrepareChapterWithCancel(b *book.Book, ch int, token CancelToken, sink PageSink) error {
	if token != nil && token.IsCancelled() {
		return bookerr.Cancelled
	}
	pages, err := e.prepare(b, ch, prepareRequest{})
	if err != nil {
		return err
	}
	for _, p := range pages {
		if token != nil && token.IsCancelled() {
			return bookerr.Cancelled
		}
		if sink != nil {
			sink(p)
		}
	}
	return nil
}

// PrepareChapterWithOverlayComposer lays out chapter ch, attaches
// composer's OverlayItems (and their derived overlay commands) to every
// page, and emits each page through sink.
func (e *Engine) PrepareChapterWithOverlayComposer(b *book.Book, ch int, viewport page.OverlaySize, composer overlay.Composer, sink PageSink) error {
	pages, err := e.prepare(b, ch, prepareRequest{overlayComposer: composer, viewport: viewport})
	if err != nil {
		return err
	}
	emitPages(pages, sink)
	return nil
}

// PageIterator is a restartable lazy sequence over an already-materialised
// chapter's pages: restartable because the underlying slice never mutates,
// so Reset just rewinds the cursor.
type PageIterator struct {
	pages []*page.RenderPage
	idx   int
}

// Next returns the next page, or (nil, false) once exhausted.
func (it *PageIterator) Next() (*page.RenderPage, bool) {
	if it.idx >= len(it.pages) {
		return nil, false
	}
	p := it.pages[it.idx]
	it.idx++
	return p, true
}

// Reset rewinds the iterator to its first page.
func (it *PageIterator) Reset() { it.idx = 0 }

// Collect drains the iterator (from its current position) into a slice.
func (it *PageIterator) Collect() []*page.RenderPage {
	out := make([]*page.RenderPage, 0, len(it.pages)-it.idx)
	for p, ok := it.Next(); ok; p, ok = it.Next() {
		out = append(out, p)
	}
	return out
}

// PrepareChapterIter returns a restartable iterator over the same pages
// PrepareChapter would return.
func (e *Engine) PrepareChapterIter(b *book.Book, ch int) (*PageIterator, error) {
	pages, err := e.PrepareChapter(b, ch)
	if err != nil {
		return nil, err
	}
	return &PageIterator{pages: pages}, nil
}

// StreamingPageIterator owns its book handle conceptually (the caller
// should not prepare further chapters from it concurrently) and yields at
// most one terminal error, after which every subsequent Next reports
// exhausted.
type StreamingPageIterator struct {
	pages   []*page.RenderPage
	err     error
	idx     int
	errSent bool
	stopped bool
}

// Next returns the next page, a terminal error (reported exactly once), or
// (nil, nil, false) once the stream is exhausted or has already errored.
func (it *StreamingPageIterator) Next() (*page.RenderPage, error, bool) {
	if it.stopped {
		return nil, nil, false
	}
	if it.err != nil {
		if it.errSent {
			it.stopped = true
			return nil, nil, false
		}
		it.errSent = true
		it.stopped = true
		return nil, it.err, true
	}
	if it.idx >= len(it.pages) {
		it.stopped = true
		return nil, nil, false
	}
	p := it.pages[it.idx]
	it.idx++
	return p, nil, true
}

// PrepareChapterIterStreaming takes conceptual ownership of b for the
// duration of iteration and returns a StreamingPageIterator. Since the
// engine materialises a chapter's pages eagerly, any layout/tokenize
// failure is captured now and replayed as the iterator's single terminal
// error on first Next.
func (e *Engine) PrepareChapterIterStreaming(b *book.Book, ch int) *StreamingPageIterator {
	pages, err := e.PrepareChapter(b, ch)
	return &StreamingPageIterator{pages: pages, err: err}
}

// ApplyPageMap fills GlobalPageIndex, GlobalPageCountEstimate and
// ProgressBook on every page of an already-prepared chapter, using a
// whole-book BookPageMap built once all chapters have been paginated. A
// streaming caller cannot know book-wide metrics a priori; this is the
// step that fills them in once it does learn the totals.
func ApplyPageMap(pages []*page.RenderPage, pm *pagemap.BookPageMap, chapterIndex int) {
	if pm == nil {
		return
	}
	total := pm.TotalPages()
	start := pm.ChapterStartPageIndex(chapterIndex)
	for _, p := range pages {
		global := start + p.Metrics.ChapterPageIndex
		p.Metrics.GlobalPageIndex = &global
		totalCopy := total
		p.Metrics.GlobalPageCountEstimate = &totalCopy
		progress := 0.0
		if total > 1 {
			progress = float64(global) / float64(total-1)
		}
		progress32 := float32(progress)
		p.Metrics.ProgressBook = &progress32
	}
}

// prepare is the single pipeline every PrepareChapter* entry point
// funnels through: cache consult, tokenize+layout on miss, chrome, metrics,
// overlay, cache store, diagnostics.
func (e *Engine) prepare(b *book.Book, ch int, req prepareRequest) ([]*page.RenderPage, error) {
	sink := e.cfg.Diag

	href, err := b.ChapterHref(ch)
	if err != nil {
		return nil, err
	}

	profile := e.ProfileID()
	start := time.Now()

	pages, cached := e.cfg.Cache.LoadChapterPages(profile, ch)
	if cached {
		sink.Emit(diag.CacheHit{ChapterIndex: ch})
	} else {
		sink.Emit(diag.CacheMiss{ChapterIndex: ch})

		chapterBytes := req.chapterBytes
		if chapterBytes == nil {
			chapterBytes, err = b.ReadChapter(ch)
			if err != nil {
				return nil, err
			}
		}

		items, err := tokenize.Tokenize(chapterBytes, tokenize.Options{
			Limits:         e.cfg.Memory,
			Hyphen:         e.cfg.Layout.Hyphenation,
			BaseFontSizePx: e.cfg.BaseFontSizePx,
			Log:            e.cfg.Log,
		})
		if err != nil {
			// Tokenize already returns typed Malformed/LimitExceeded errors;
			// re-kinding them here would mask the limit breach from callers.
			return nil, err
		}

		pages, err = layout.Paginate(items, e.cfg.Layout, e.cfg.Measurer, b.IsCoverChapter(ch), sink)
		if err != nil {
			return nil, bookerr.Wrap(bookerr.KindLayoutFailed, err, "laying out chapter %d (%s)", ch, href)
		}

		chromeStyle := e.chromeTextStyle()
		title := e.chapterTitle(b, ch, href)
		for _, p := range pages {
			p.Metrics.ChapterIndex = ch
			p.Embedded = e.cfg.Embedded
			e.applyChrome(p, chromeStyle, title)
			p.SyncCommands()
		}

		if req.enforceMaxPages {
			if limit := e.cfg.Memory.MaxPagesInMemory; limit > 0 && len(pages) > limit {
				return nil, bookerr.LimitExceeded("max_pages_in_memory", int64(limit), int64(len(pages)))
			}
		}

		e.cfg.Cache.StoreChapterPages(profile, ch, pages)
	}

	if req.overlayComposer != nil {
		chromeStyle := e.chromeTextStyle()
		for _, p := range pages {
			items := req.overlayComposer.Compose(p.Metrics, req.viewport)
			p.OverlayItems = items
			// Replace, not append: a cache hit hands back the same page
			// values a previous composed prep may have already decorated.
			p.OverlayCommands = overlay.MaterializeTextCommands(items, chromeStyle, req.viewport, req.viewport.Width/3, uint32(chromeStyle.SizePx)+4)
			p.SyncCommands()
		}
	}

	sink.Emit(diag.ReflowTimeMs(uint32(time.Since(start).Milliseconds())))
	return pages, nil
}

func (e *Engine) chromeTextStyle() page.ResolvedTextStyle {
	weight := uint16(400)
	italic := false
	switch e.cfg.PageChrome.TextStyle {
	case bookenum.PageChromeTextBold:
		weight = 700
	case bookenum.PageChromeTextItalic:
		italic = true
	case bookenum.PageChromeTextBoldItalic:
		weight, italic = 700, true
	}
	return page.ResolvedTextStyle{
		Family:     "sans-serif",
		Weight:     weight,
		Italic:     italic,
		SizePx:     14,
		LineHeight: 1.2,
		Role:       page.BlockRoleOther,
	}
}

func (e *Engine) chapterTitle(b *book.Book, ch int, href string) string {
	nav, err := b.Navigation()
	if err == nil {
		if label, ok := findNavLabelForHref(nav.TOC, href); ok {
			return label
		}
	}
	return b.Metadata().Title
}

// findNavLabelForHref walks a TOC tree depth-first for the first entry
// whose href (ignoring any #fragment) matches href exactly, the way a
// reader's chapter-title chrome looks up a TOC label by spine href.
func findNavLabelForHref(points []navdoc.NavPoint, href string) (string, bool) {
	for _, p := range points {
		if navHrefBase(p.Href) == href {
			return p.Label, true
		}
		if label, ok := findNavLabelForHref(p.Children, href); ok {
			return label, true
		}
	}
	return "", false
}

func navHrefBase(href string) string {
	for i := 0; i < len(href); i++ {
		if href[i] == '#' {
			return href[:i]
		}
	}
	return href
}

// applyChrome pushes header/page-number chrome commands onto p, following
// e.cfg.PageChrome.
func (e *Engine) applyChrome(p *page.RenderPage, style page.ResolvedTextStyle, chapterTitle string) {
	geom := e.cfg.Layout.Geometry
	data := chromeTemplateData{
		ChapterTitle: chapterTitle,
		PageNumber:   p.Metrics.ChapterPageIndex + 1,
	}
	if p.Metrics.ChapterPageCount != nil {
		data.PageCount = *p.Metrics.ChapterPageCount
	}

	if e.cfg.PageChrome.ShowChapterTitle {
		text := chapterTitle
		if e.cfg.PageChrome.HeaderTemplate != "" {
			text = renderChromeTemplate(e.cfg.PageChrome.HeaderTemplate, data)
		}
		p.PushChromeCommand(page.TextCommand{X: geom.MarginLeftPx, BaselineY: geom.MarginTopPx / 2, Text: text, Style: style})
		p.PushChromeCommand(page.PageChromeCommand{Kind: page.PageChromeHeader, Text: &text})
	}

	if e.cfg.PageChrome.ShowPageNumber {
		current := p.Metrics.ChapterPageIndex + 1
		var total *int
		text := fmt.Sprintf("%d", current)
		if p.Metrics.ChapterPageCount != nil {
			t := *p.Metrics.ChapterPageCount
			total = &t
			text = fmt.Sprintf("%d / %d", current, t)
		}
		if e.cfg.PageChrome.FooterTemplate != "" {
			text = renderChromeTemplate(e.cfg.PageChrome.FooterTemplate, data)
		}
		p.PushChromeCommand(page.TextCommand{
			X: geom.DisplayWidthPx/2 - len(text)*3, BaselineY: geom.DisplayHeightPx - geom.MarginBottomPx/2,
			Text: text, Style: style,
		})
		p.PushChromeCommand(page.PageChromeCommand{Kind: page.PageChromeProgress, Text: &text, Current: &current, Total: total})
	}
}

type chromeTemplateData struct {
	ChapterTitle string
	PageNumber   int
	PageCount    int
}

func renderChromeTemplate(tmplText string, data chromeTemplateData) string {
	t, err := template.New("chrome").Funcs(sprig.TxtFuncMap()).Parse(tmplText)
	if err != nil {
		return tmplText
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return tmplText
	}
	return buf.String()
}

// AggregateDiagnosticSinkErrors combines errors reported by sinks that
// choose to surface rather than silently swallow a failure.
func AggregateDiagnosticSinkErrors(errs ...error) error {
	var combined error
	for _, err := range errs {
		combined = multierr.Append(combined, err)
	}
	return combined
}
