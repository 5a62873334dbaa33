// Package pagemap builds the whole-book page map from per-chapter page
// counts and resolves hrefs and reading-position tokens against it. It is
// pure data and stdlib-only: a caller builds one with New once every
// chapter's page count is known, render.ApplyPageMap reads it, and nothing
// modifies it after New.
package pagemap

import "math"

// LocatorKind identifies how an href resolved to a page.
type LocatorKind int

const (
	// LocatorChapterStart is a bare chapter href (no fragment).
	LocatorChapterStart LocatorKind = iota
	// LocatorFragment is a fragment href resolved to its recorded anchor page.
	LocatorFragment
	// LocatorFragmentFallbackChapterStart is a fragment href whose anchor
	// isn't recorded, so it fell back to the chapter's first page.
	LocatorFragmentFallbackChapterStart
)

// Locator is the result of resolving an href against the page map.
type Locator struct {
	ChapterIndex int
	PageIndex    int
	Kind         LocatorKind
}

// chapterEntry is one chapter's contribution to the book-wide page map.
type chapterEntry struct {
	href       string
	startIndex int
	pageCount  int
	// anchors maps a fragment (without '#') to its 0-based page index
	// within the chapter, when the render engine recorded one.
	anchors map[string]int
}

// BookPageMap is the whole-book page index: chapter boundaries plus
// fragment anchors, built once per pagination profile.
type BookPageMap struct {
	chapters   []chapterEntry
	totalPages int
}

// ChapterInput is one chapter's page count and optional anchor map, as
// supplied by the render engine after laying out every chapter.
type ChapterInput struct {
	Href      string
	PageCount int
	Anchors   map[string]int // fragment (no '#') -> chapter-relative page index
}

// New builds a BookPageMap from chapters in spine order. Entries are laid
// out back to back: chapter i's global start index is the sum of every
// preceding chapter's page count.
func New(chapters []ChapterInput) *BookPageMap {
	m := &BookPageMap{chapters: make([]chapterEntry, 0, len(chapters))}
	start := 0
	for _, c := range chapters {
		m.chapters = append(m.chapters, chapterEntry{
			href: c.Href, startIndex: start, pageCount: c.PageCount, anchors: c.Anchors,
		})
		start += c.PageCount
	}
	m.totalPages = start
	return m
}

// TotalPages returns the whole book's page count.
func (m *BookPageMap) TotalPages() int { return m.totalPages }

// ChapterCount returns the number of chapters in the map.
func (m *BookPageMap) ChapterCount() int { return len(m.chapters) }

// ChapterStartPageIndex returns chapter i's first global page index. It
// panics on an out-of-range index, the same contract as slice indexing.
func (m *BookPageMap) ChapterStartPageIndex(i int) int { return m.chapters[i].startIndex }

// ChapterPageCount returns chapter i's page count.
func (m *BookPageMap) ChapterPageCount(i int) int { return m.chapters[i].pageCount }

// ChapterHref returns chapter i's href.
func (m *BookPageMap) ChapterHref(i int) string { return m.chapters[i].href }

func (m *BookPageMap) chapterIndexForHref(href string) (int, bool) {
	for i, c := range m.chapters {
		if c.href == href {
			return i, true
		}
	}
	return 0, false
}

func splitFragment(href string) (base, fragment string, hasFragment bool) {
	for i := 0; i < len(href); i++ {
		if href[i] == '#' {
			return href[:i], href[i+1:], true
		}
	}
	return href, "", false
}

// ResolveHref resolves an href (optionally carrying a #fragment) to a
// Locator. A fragment with a recorded anchor resolves to LocatorFragment;
// one without falls back to the chapter's first page as
// LocatorFragmentFallbackChapterStart.
func (m *BookPageMap) ResolveHref(href string) (Locator, bool) {
	base, fragment, hasFragment := splitFragment(href)
	idx, ok := m.chapterIndexForHref(base)
	if !ok {
		return Locator{}, false
	}
	chapter := m.chapters[idx]
	if hasFragment && chapter.anchors != nil {
		if page, ok := chapter.anchors[fragment]; ok {
			return Locator{ChapterIndex: idx, PageIndex: chapter.startIndex + page, Kind: LocatorFragment}, true
		}
	}
	kind := LocatorChapterStart
	if hasFragment {
		kind = LocatorFragmentFallbackChapterStart
	}
	return Locator{ChapterIndex: idx, PageIndex: chapter.startIndex, Kind: kind}, true
}

// ResolveTOCHref is ResolveHref restricted to chapters with at least one
// page: a TOC entry pointing at an empty chapter has nowhere to land.
func (m *BookPageMap) ResolveTOCHref(href string) (Locator, bool) {
	loc, ok := m.ResolveHref(href)
	if !ok {
		return Locator{}, false
	}
	if m.chapters[loc.ChapterIndex].pageCount == 0 {
		return Locator{}, false
	}
	return loc, true
}

// ReadingPositionToken is the opaque locator the page map issues and
// consumes across pagination-profile changes. Consumers
// should treat every field as opaque.
type ReadingPositionToken struct {
	ChapterIndex     int
	ChapterHref      string
	ChapterPageIndex int
	ChapterPageCount int
	ChapterProgress  float64
	GlobalPageIndex  int
	GlobalPageCount  int
}

// ReadingPositionTokenForPageIndex builds a token for a global page index,
// capturing both chapter-relative and whole-book progress so a later
// profile change can remap it via either axis.
func (m *BookPageMap) ReadingPositionTokenForPageIndex(globalIdx int) (ReadingPositionToken, bool) {
	if globalIdx < 0 || globalIdx >= m.totalPages {
		return ReadingPositionToken{}, false
	}
	for i, c := range m.chapters {
		if globalIdx < c.startIndex+c.pageCount {
			chapterPageIdx := globalIdx - c.startIndex
			progress := 0.0
			if c.pageCount > 1 {
				progress = float64(chapterPageIdx) / float64(c.pageCount-1)
			}
			return ReadingPositionToken{
				ChapterIndex:     i,
				ChapterHref:      c.href,
				ChapterPageIndex: chapterPageIdx,
				ChapterPageCount: c.pageCount,
				ChapterProgress:  progress,
				GlobalPageIndex:  globalIdx,
				GlobalPageCount:  m.totalPages,
			}, true
		}
	}
	return ReadingPositionToken{}, false
}

// RemapReadingPositionToken maps a token issued against a previous
// pagination profile onto this (reflowed) page map, trying three targets
// in order: chapter href match, then chapter index match, then whole-book
// progress clamp. Returns false iff this map has zero total pages.
func (m *BookPageMap) RemapReadingPositionToken(token ReadingPositionToken) (int, bool) {
	if m.totalPages == 0 {
		return 0, false
	}

	if token.ChapterHref != "" {
		if idx, ok := m.chapterIndexForHref(token.ChapterHref); ok && m.chapters[idx].pageCount >= 1 {
			return m.mapWithinChapter(idx, token.ChapterProgress), true
		}
	}
	if token.ChapterIndex >= 0 && token.ChapterIndex < len(m.chapters) && m.chapters[token.ChapterIndex].pageCount >= 1 {
		return m.mapWithinChapter(token.ChapterIndex, token.ChapterProgress), true
	}

	denom := token.GlobalPageCount
	if denom < 1 {
		denom = 1
	}
	progress := float64(token.GlobalPageIndex) / float64(denom)
	progress = clampProgress(progress)
	idx := int(math.Round(progress * float64(m.totalPages-1)))
	return clampInt(idx, 0, m.totalPages-1), true
}

func (m *BookPageMap) mapWithinChapter(idx int, progress float64) int {
	c := m.chapters[idx]
	progress = clampProgress(progress)
	pageWithin := 0
	if c.pageCount > 1 {
		pageWithin = int(math.Round(progress * float64(c.pageCount-1)))
		pageWithin = clampInt(pageWithin, 0, c.pageCount-1)
	}
	return c.startIndex + pageWithin
}

func clampProgress(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
