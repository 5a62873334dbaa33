// Package diag defines the render engine's structured diagnostics sink: a
// pluggable single-writer callback plus a ZapSink adapter onto a zap core.
package diag

import "go.uber.org/zap"

// FallbackKind identifies why a text substitution had to happen.
type FallbackKind int

const (
	FallbackUnknownFamily FallbackKind = iota
	FallbackMissingGlyph
)

func (k FallbackKind) String() string {
	switch k {
	case FallbackUnknownFamily:
		return "unknown_family"
	case FallbackMissingGlyph:
		return "missing_glyph"
	default:
		return "unknown"
	}
}

// Diagnostic is the closed set of telemetry events a render pass can
// raise. Concrete types implement the unexported marker method so the set
// stays closed to this package.
type Diagnostic interface{ isDiagnostic() }

// ReflowTimeMs reports the wall-clock cost of one chapter's layout pass.
// At most one is emitted per PrepareChapter* call.
type ReflowTimeMs uint32

func (ReflowTimeMs) isDiagnostic() {}

// TextFallback reports a substitution the layout engine had to make for a
// run it couldn't measure/render as styled.
type TextFallback struct{ Kind FallbackKind }

func (TextFallback) isDiagnostic() {}

// ImageFallbackDraw reports that an image could not be placed as a real
// image object and was drawn as its alt-text fallback instead.
type ImageFallbackDraw struct{ Src string }

func (ImageFallbackDraw) isDiagnostic() {}

// CacheHit reports a cache.Store hit for a chapter's pages.
type CacheHit struct {
	ChapterIndex int
}

func (CacheHit) isDiagnostic() {}

// CacheMiss reports a cache.Store miss for a chapter's pages.
type CacheMiss struct {
	ChapterIndex int
}

func (CacheMiss) isDiagnostic() {}

// ImageRegistrySlotPressurePercent reports how full a backend's bitmap
// registry is, as a percentage, letting a caller pre-emptively evict
// before the next image placement would fail.
type ImageRegistrySlotPressurePercent uint8

func (ImageRegistrySlotPressurePercent) isDiagnostic() {}

// Sink receives Diagnostic values synchronously, in emission order. A sink
// must never panic: the render engine treats a panicking sink as a bug in
// the caller, not something it protects against, but any error a sink
// itself wants to report is its own business to swallow or log.
type Sink interface {
	Emit(Diagnostic)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(Diagnostic)

func (f SinkFunc) Emit(d Diagnostic) { f(d) }

// NopSink discards every diagnostic. Used when the caller supplies none.
var NopSink Sink = SinkFunc(func(Diagnostic) {})

// ZapSink adapts Diagnostic values onto a *zap.Logger at Debug level;
// diagnostics are app telemetry, not operator-facing console output, so a
// single logger suffices.
type ZapSink struct {
	Log *zap.Logger
}

// NewZapSink wraps log (falling back to a no-op logger when nil) as a Sink.
func NewZapSink(log *zap.Logger) *ZapSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapSink{Log: log}
}

func (z *ZapSink) Emit(d Diagnostic) {
	switch v := d.(type) {
	case ReflowTimeMs:
		z.Log.Debug("reflow", zap.Uint32("ms", uint32(v)))
	case TextFallback:
		z.Log.Debug("text fallback", zap.String("kind", v.Kind.String()))
	case ImageFallbackDraw:
		z.Log.Debug("image fallback draw", zap.String("src", v.Src))
	case CacheHit:
		z.Log.Debug("cache hit", zap.Int("chapter_index", v.ChapterIndex))
	case CacheMiss:
		z.Log.Debug("cache miss", zap.Int("chapter_index", v.ChapterIndex))
	case ImageRegistrySlotPressurePercent:
		z.Log.Debug("image registry slot pressure", zap.Uint8("percent", uint8(v)))
	}
}

// CountingSink counts diagnostics by concrete type, for tests that need to
// assert "zero ReflowTimeMs emitted twice" style invariants without
// parsing log output.
type CountingSink struct {
	ReflowCount    int
	TextFallbacks  int
	ImageFallbacks int
	CacheHits      int
	CacheMisses    int
}

func (c *CountingSink) Emit(d Diagnostic) {
	switch d.(type) {
	case ReflowTimeMs:
		c.ReflowCount++
	case TextFallback:
		c.TextFallbacks++
	case ImageFallbackDraw:
		c.ImageFallbacks++
	case CacheHit:
		c.CacheHits++
	case CacheMiss:
		c.CacheMisses++
	}
}
