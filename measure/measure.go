// Package measure defines the text-measurement capability the layout
// engine consumes and a deterministic conservative fallback implementation
// for when no backend-specific measurer is supplied.
package measure

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"

	"github.com/h0rv/epub-stream-sub001/page"
)

// TextMeasurer measures the pixel advance of a run of text in a given
// resolved style, excluding any trailing space. Implementations are
// pluggable so the engine stays decoupled from any one font/glyph backend.
type TextMeasurer interface {
	MeasureTextPx(text string, style page.ResolvedTextStyle) float32
}

// TextMeasurerFunc adapts a plain function to the TextMeasurer interface.
type TextMeasurerFunc func(text string, style page.ResolvedTextStyle) float32

func (f TextMeasurerFunc) MeasureTextPx(text string, style page.ResolvedTextStyle) float32 {
	return f(text, style)
}

// EstimatingMeasurer is the deterministic conservative estimator used when
// the caller supplies no backend-specific TextMeasurer: per-rune advances
// scaled by font size, distinguishing proportional, monospace, and
// East-Asian wide glyph widths. It never under-estimates by more than the
// layout's own slack budget because averageAdvanceEm/wideAdvanceEm are
// themselves chosen slightly above typical real-font averages, not because
// of any rounding performed while summing.
type EstimatingMeasurer struct{}

// averageAdvanceEm is the per-character advance, in ems, used for a
// proportional font absent real glyph metrics: a conservative figure
// slightly above typical Latin text book-face averages so lines don't
// overflow when substituted for a real font at render time.
const averageAdvanceEm = 0.52

// monospaceAdvanceEm is the fixed per-character advance for a detected
// monospace family.
const monospaceAdvanceEm = 0.60

// wideAdvanceEm is the advance for an East-Asian "wide"/"fullwidth" rune,
// which occupies roughly two Latin character cells.
const wideAdvanceEm = 1.0

func (EstimatingMeasurer) MeasureTextPx(text string, style page.ResolvedTextStyle) float32 {
	if text == "" {
		return 0
	}
	trimmed := strings.TrimRight(text, " \t")
	if trimmed == "" {
		// text is entirely spaces/tabs, as spaceWidth measures a standalone
		// " " to get the inter-word space advance: trimming it away would
		// leave nothing to measure and silently collapse every inter-word
		// gap to zero.
		trimmed = text
	}
	mono := isMonospaceFamily(style.Family)

	var total float32
	for _, r := range trimmed {
		total += runeAdvanceEm(r, mono) * style.SizePx
	}
	if style.LetterSpacing != 0 {
		n := float32(runeCount(trimmed))
		if n > 1 {
			total += style.LetterSpacing * (n - 1)
		}
	}
	return total
}

func runeCount(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

func runeAdvanceEm(r rune, mono bool) float32 {
	if unicode.IsSpace(r) {
		if mono {
			return monospaceAdvanceEm
		}
		return averageAdvanceEm * 0.6
	}
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return wideAdvanceEm
	}
	if mono {
		return monospaceAdvanceEm
	}
	return averageAdvanceEm
}

// isMonospaceFamily detects a monospace intent from the family stack
// without a real font table: a family name mentioning "mono" or "fixed"
// (case-insensitively) is treated as monospace, mirroring the CSS
// generic-family fallback convention ("monospace").
func isMonospaceFamily(familyStack string) bool {
	lower := strings.ToLower(familyStack)
	return strings.Contains(lower, "mono") || strings.Contains(lower, "fixed")
}
