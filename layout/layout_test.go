package layout

import (
	"strings"
	"testing"

	"github.com/h0rv/epub-stream-sub001/bookenum"
	"github.com/h0rv/epub-stream-sub001/page"
	"github.com/h0rv/epub-stream-sub001/tokenize"
)

func paragraphRun(text string) []tokenize.Item {
	return []tokenize.Item{
		tokenize.BlockStart{Role: page.BlockRoleParagraph},
		tokenize.StyledRun{Text: text, Style: tokenize.ComputedTextStyle{
			FamilyStack: []string{"serif"}, SizePx: 16, LineHeight: 1.4,
		}},
		tokenize.BlockEnd{},
	}
}

func repeatWords(word string, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = word
	}
	return strings.Join(words, " ")
}

func tinyGeometry() Geometry {
	return Geometry{
		DisplayWidthPx: 200, DisplayHeightPx: 120,
		MarginTopPx: 10, MarginBottomPx: 10, MarginLeftPx: 10, MarginRightPx: 10,
		FirstLineIndentPx: 0, LineGapPx: 2, ParagraphGapPx: 8,
	}
}

func TestPaginateSinglePageProgress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Geometry = tinyGeometry()
	cfg.Geometry.DisplayHeightPx = 800 // tall enough for one page

	items := paragraphRun("A short paragraph that fits on a single page.")
	pages, err := Paginate(items, cfg, nil, false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected exactly one page, got %d", len(pages))
	}
	if pages[0].PageNumber != 1 {
		t.Fatalf("expected page_number 1, got %d", pages[0].PageNumber)
	}
	if pages[0].Metrics.ProgressChapter < 0.99 {
		t.Fatalf("single-page chapter progress should be >= 0.99, got %v", pages[0].Metrics.ProgressChapter)
	}
}

// TestPaginateMultiPageInvariants: page_number == chapter_page_index+1 ==
// i+1, progress non-decreasing, first page <= 0.05 and last page >= 0.95
// when count > 1.
func TestPaginateMultiPageInvariants(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Geometry = tinyGeometry()
	cfg.Justification.Strategy = bookenum.JustificationAlignLeft

	text := repeatWords("word", 400)
	pages, err := Paginate(paragraphRun(text), cfg, nil, false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) < 2 {
		t.Fatalf("expected multiple pages from a long paragraph, got %d", len(pages))
	}

	prevProgress := float32(-1)
	for i, p := range pages {
		if p.PageNumber != i+1 {
			t.Fatalf("page %d: expected page_number %d, got %d", i, i+1, p.PageNumber)
		}
		if p.Metrics.ChapterPageIndex != i {
			t.Fatalf("page %d: expected chapter_page_index %d, got %d", i, i, p.Metrics.ChapterPageIndex)
		}
		if p.Metrics.ProgressChapter < prevProgress {
			t.Fatalf("page %d: progress_chapter decreased (%v -> %v)", i, prevProgress, p.Metrics.ProgressChapter)
		}
		prevProgress = p.Metrics.ProgressChapter
	}
	if pages[0].Metrics.ProgressChapter > 0.05 {
		t.Fatalf("first page progress should be <= 0.05, got %v", pages[0].Metrics.ProgressChapter)
	}
	if pages[len(pages)-1].Metrics.ProgressChapter < 0.95 {
		t.Fatalf("last page progress should be >= 0.95, got %v", pages[len(pages)-1].Metrics.ProgressChapter)
	}
}

// TestBodyTextNeverOverrunsDisplayWidth: every body text command stays
// inside the display width, with a 2px tolerance.
func TestBodyTextNeverOverrunsDisplayWidth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Geometry = tinyGeometry()
	measurer := measurerStub{}

	pages, err := Paginate(paragraphRun(repeatWords("alpha", 60)), cfg, measurer, false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	limit := len(pages)
	if limit > 4 {
		limit = 4
	}
	for i := 0; i < limit; i++ {
		for _, cmd := range pages[i].ContentCommands {
			tc, ok := cmd.(page.TextCommand)
			if !ok {
				continue
			}
			w := measurer.MeasureTextPx(tc.Text, tc.Style)
			if tc.X < 0 {
				t.Fatalf("page %d: text command x < 0: %+v", i, tc)
			}
			if float32(tc.X)+w > float32(cfg.Geometry.DisplayWidthPx)-2 {
				t.Fatalf("page %d: text command overruns display width: x=%d w=%v display=%d",
					i, tc.X, w, cfg.Geometry.DisplayWidthPx)
			}
		}
	}
}

// measurerStub gives every character a fixed width so line-fit math in the
// test is easy to reason about independent of EstimatingMeasurer's rune
// table.
type measurerStub struct{}

func (measurerStub) MeasureTextPx(text string, _ page.ResolvedTextStyle) float32 {
	return float32(len(text)) * 8
}

// TestLargerFontNeverDecreasesPageCount: a larger font size never produces
// fewer pages, all else equal.
func TestLargerFontNeverDecreasesPageCount(t *testing.T) {
	baseCfg := DefaultConfig()
	baseCfg.Geometry = tinyGeometry()
	baseCfg.Geometry.DisplayHeightPx = 400
	baseCfg.Justification.Strategy = bookenum.JustificationAlignLeft

	makeItems := func(sizePx float32) []tokenize.Item {
		return []tokenize.Item{
			tokenize.BlockStart{Role: page.BlockRoleParagraph},
			tokenize.StyledRun{Text: repeatWords("word", 200), Style: tokenize.ComputedTextStyle{
				FamilyStack: []string{"serif"}, SizePx: sizePx, LineHeight: 1.4,
			}},
			tokenize.BlockEnd{},
		}
	}

	small, err := Paginate(makeItems(16), baseCfg, nil, false, nil)
	if err != nil {
		t.Fatalf("unexpected error (small): %v", err)
	}
	large, err := Paginate(makeItems(30), baseCfg, nil, false, nil)
	if err != nil {
		t.Fatalf("unexpected error (large): %v", err)
	}
	if len(large) < len(small) {
		t.Fatalf("larger font produced fewer pages: small=%d large=%d", len(small), len(large))
	}
}

// TestAdaptiveInterWordJustifiesWithDefaultMeasurer exercises the
// AdaptiveInterWord path using the real default measurer (nil, resolving to
// measure.EstimatingMeasurer): a fully-measured inter-word space width is
// required for the fillRatio/avgSpace guard at the justification decision
// to ever fire, so a run of short filler words wide enough to trigger
// justification must produce at least one inter-word-justified line.
func TestAdaptiveInterWordJustifiesWithDefaultMeasurer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Geometry = tinyGeometry()
	cfg.Geometry.DisplayWidthPx = 400
	cfg.Justification.Strategy = bookenum.JustificationAdaptiveInterWord

	text := repeatWords("wide", 200)
	pages, err := Paginate(paragraphRun(text), cfg, nil, false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, p := range pages {
		for _, cmd := range p.ContentCommands {
			tc, ok := cmd.(page.TextCommand)
			if !ok {
				continue
			}
			if tc.Style.Justify.Kind == page.JustifyInterWord {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("expected at least one inter-word-justified line with the default measurer")
	}
}

// TestSoftHyphenRendersOnlyAtTakenBreak: a discretionary hyphen inside a
// word renders a "-" only when the line actually breaks there; a word whose
// segments stay on one line shows no hyphen at all.
func TestSoftHyphenRendersOnlyAtTakenBreak(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Geometry = tinyGeometry()
	cfg.Geometry.DisplayWidthPx = 2000 // wide enough that nothing breaks
	cfg.Hyphenation = bookenum.HyphenationModeDiscretionary

	items := paragraphRun("extra­ordinary word")
	pages, err := Paginate(items, cfg, measurerStub{}, false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, cmd := range pages[0].ContentCommands {
		if tc, ok := cmd.(page.TextCommand); ok && strings.HasSuffix(tc.Text, "-") {
			t.Fatalf("no line break was taken, but a hyphen rendered: %+v", tc)
		}
	}

	// Now a viewport narrow enough that the word must break at the soft
	// hyphen: "extra" fits (5 chars * 8px = 40px <= 48px avail) but
	// "extraordinary" (104px) does not.
	cfg.Geometry.DisplayWidthPx = 68 // 48px content width at 10px margins
	pages, err = Paginate(items, cfg, measurerStub{}, false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hyphenated := false
	for _, p := range pages {
		for _, cmd := range p.ContentCommands {
			if tc, ok := cmd.(page.TextCommand); ok && tc.Text == "extra-" {
				hyphenated = true
			}
		}
	}
	if !hyphenated {
		t.Fatalf("expected the taken discretionary break to render \"extra-\"")
	}
}

// TestCoverImageInsideWrapperBlockStillGetsCoverTreatment: an enclosing
// div/figure before the cover chapter's first image must not demote it to
// an ordinary inline image.
func TestCoverImageInsideWrapperBlockStillGetsCoverTreatment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Objects.CoverPage = bookenum.CoverPageFullBleed
	w, h := 300, 500

	items := []tokenize.Item{
		tokenize.BlockStart{Role: page.BlockRoleOther},
		tokenize.StyledImage{Src: "cover.jpg", IntrinsicWPx: &w, IntrinsicHPx: &h},
		tokenize.BlockEnd{},
	}
	pages, err := Paginate(items, cfg, nil, true, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected a single cover page, got %d", len(pages))
	}
	var img *page.ImageObjectCommand
	for _, cmd := range pages[0].ContentCommands {
		if ic, ok := cmd.(page.ImageObjectCommand); ok {
			img = &ic
		}
	}
	if img == nil {
		t.Fatal("expected an image object command on the cover page")
	}
	if img.X != 0 || img.Y != 0 {
		t.Fatalf("expected full-bleed placement at the viewport origin, got (%d,%d)", img.X, img.Y)
	}
	if int(img.Width) < cfg.Geometry.DisplayWidthPx && int(img.Height) < cfg.Geometry.DisplayHeightPx {
		t.Fatalf("expected the scaled cover to fill at least one viewport axis, got %dx%d", img.Width, img.Height)
	}
}

func TestForcedLineBreakAlwaysAlignsLeft(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Geometry = tinyGeometry()
	cfg.Justification.Strategy = bookenum.JustificationFullInterWord

	items := []tokenize.Item{
		tokenize.BlockStart{Role: page.BlockRoleParagraph},
		tokenize.StyledRun{Text: "short line", Style: tokenize.ComputedTextStyle{
			FamilyStack: []string{"serif"}, SizePx: 16, LineHeight: 1.4,
		}},
		tokenize.LineBreak{},
		tokenize.StyledRun{Text: "another short line", Style: tokenize.ComputedTextStyle{
			FamilyStack: []string{"serif"}, SizePx: 16, LineHeight: 1.4,
		}},
		tokenize.BlockEnd{},
	}
	pages, err := Paginate(items, cfg, nil, false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) == 0 {
		t.Fatalf("expected at least one page")
	}
	for _, cmd := range pages[0].ContentCommands {
		tc, ok := cmd.(page.TextCommand)
		if !ok {
			continue
		}
		if tc.Style.Justify.Kind == page.JustifyInterWord {
			t.Fatalf("a line ending on a forced break must not be inter-word justified: %+v", tc)
		}
	}
}
