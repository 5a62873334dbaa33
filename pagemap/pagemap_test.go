package pagemap

import "testing"

func TestResolveHrefFragmentFallback(t *testing.T) {
	m := New([]ChapterInput{
		{Href: "cover.xhtml", PageCount: 1},
		{Href: "ch1.xhtml", PageCount: 4},
		{Href: "ch2.xhtml", PageCount: 5},
		{Href: "ch3.xhtml", PageCount: 4},
		{Href: "ch4.xhtml", PageCount: 2},
	})

	loc, ok := m.ResolveHref("ch3.xhtml#__missing__")
	if !ok {
		t.Fatalf("expected href to resolve")
	}
	if loc.ChapterIndex != 3 || loc.PageIndex != 10 || loc.Kind != LocatorFragmentFallbackChapterStart {
		t.Fatalf("unexpected locator: %+v", loc)
	}

	loc2, ok := m.ResolveHref("ch3.xhtml#__missing__")
	if !ok || loc2 != loc {
		t.Fatalf("expected idempotent resolution, got %+v vs %+v", loc2, loc)
	}
}

func TestResolveHrefFragmentAnchor(t *testing.T) {
	m := New([]ChapterInput{
		{Href: "ch1.xhtml", PageCount: 3, Anchors: map[string]int{"s2": 1}},
	})
	loc, ok := m.ResolveHref("ch1.xhtml#s2")
	if !ok || loc.Kind != LocatorFragment || loc.PageIndex != 1 {
		t.Fatalf("unexpected locator: %+v", loc)
	}
}

func TestResolveTOCHrefRejectsEmptyChapter(t *testing.T) {
	m := New([]ChapterInput{{Href: "empty.xhtml", PageCount: 0}})
	if _, ok := m.ResolveTOCHref("empty.xhtml"); ok {
		t.Fatalf("expected a zero-page chapter to be unresolvable via ResolveTOCHref")
	}
}

func TestRemapReadingPositionTokenAfterReflow(t *testing.T) {
	baseline := New([]ChapterInput{
		{Href: "ch1.xhtml", PageCount: 3},
		{Href: "ch2.xhtml", PageCount: 4},
		{Href: "ch3.xhtml", PageCount: 2},
	})
	token, ok := baseline.ReadingPositionTokenForPageIndex(4)
	if !ok {
		t.Fatalf("expected token at global index 4")
	}
	if token.ChapterIndex != 1 || token.ChapterPageIndex != 1 {
		t.Fatalf("unexpected token: %+v", token)
	}
	wantProgress := 1.0 / 3.0
	if diff := token.ChapterProgress - wantProgress; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected chapter_progress %.6f, got %.6f", wantProgress, token.ChapterProgress)
	}

	reflowed := New([]ChapterInput{
		{Href: "ch1.xhtml", PageCount: 3},
		{Href: "ch2.xhtml", PageCount: 6},
		{Href: "ch3.xhtml", PageCount: 2},
	})
	remapped, ok := reflowed.RemapReadingPositionToken(token)
	if !ok {
		t.Fatalf("expected remap to succeed")
	}
	// round(0.333... * 5) = round(1.666...) = 2; chapter 1 starts at 3.
	if remapped != 5 {
		t.Fatalf("expected remapped global index 5, got %d", remapped)
	}
}

func TestRemapMonotonicitySweepingChapterPageIndex(t *testing.T) {
	baseline := New([]ChapterInput{
		{Href: "ch1.xhtml", PageCount: 10},
		{Href: "ch2.xhtml", PageCount: 5},
	})
	reflowed := New([]ChapterInput{
		{Href: "ch1.xhtml", PageCount: 10},
		{Href: "ch2.xhtml", PageCount: 9},
	})

	prev := -1
	for i := 0; i < 10; i++ {
		token, ok := baseline.ReadingPositionTokenForPageIndex(i)
		if !ok {
			t.Fatalf("expected token at index %d", i)
		}
		remapped, ok := reflowed.RemapReadingPositionToken(token)
		if !ok {
			t.Fatalf("expected remap at index %d", i)
		}
		if remapped < prev {
			t.Fatalf("expected non-decreasing remap sequence, got %d after %d at source index %d", remapped, prev, i)
		}
		prev = remapped
	}
}

func TestRemapFallsBackToGlobalProgressWhenChapterGone(t *testing.T) {
	baseline := New([]ChapterInput{
		{Href: "ch1.xhtml", PageCount: 3},
		{Href: "ch2.xhtml", PageCount: 3},
	})
	token, _ := baseline.ReadingPositionTokenForPageIndex(4)
	token.ChapterHref = "renamed.xhtml"
	token.ChapterIndex = 99

	reflowed := New([]ChapterInput{
		{Href: "only-one.xhtml", PageCount: 6},
	})
	remapped, ok := reflowed.RemapReadingPositionToken(token)
	if !ok {
		t.Fatalf("expected fallback remap to succeed")
	}
	if remapped < 0 || remapped > 5 {
		t.Fatalf("expected remap clamped into [0,5], got %d", remapped)
	}
}

func TestRemapReturnsFalseWhenMapEmpty(t *testing.T) {
	empty := New(nil)
	token := ReadingPositionToken{ChapterHref: "x", GlobalPageCount: 1}
	if _, ok := empty.RemapReadingPositionToken(token); ok {
		t.Fatalf("expected remap against an empty map to return false")
	}
}

func TestChapterStartIndicesAreContiguous(t *testing.T) {
	m := New([]ChapterInput{
		{Href: "a", PageCount: 2},
		{Href: "b", PageCount: 3},
		{Href: "c", PageCount: 1},
	})
	if m.ChapterStartPageIndex(0) != 0 || m.ChapterStartPageIndex(1) != 2 || m.ChapterStartPageIndex(2) != 5 {
		t.Fatalf("unexpected start indices: %d %d %d", m.ChapterStartPageIndex(0), m.ChapterStartPageIndex(1), m.ChapterStartPageIndex(2))
	}
	if m.TotalPages() != 6 {
		t.Fatalf("expected total 6 pages, got %d", m.TotalPages())
	}
}
