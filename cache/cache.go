// Package cache defines the pluggable chapter-page persistence capability:
// the render engine always consults Load before laying a chapter out, and
// calls Store exactly once on a miss.
package cache

import (
	"sync"

	"github.com/h0rv/epub-stream-sub001/page"
)

// Store persists rendered pages keyed by (pagination profile, chapter
// index). Implementations must be safe for the single-threaded call
// pattern the render engine uses: Load, then at most one Store, per
// prepare call.
type Store interface {
	LoadChapterPages(profile page.PaginationProfileID, chapterIndex int) ([]*page.RenderPage, bool)
	StoreChapterPages(profile page.PaginationProfileID, chapterIndex int, pages []*page.RenderPage)
}

type memoryKey struct {
	profile page.PaginationProfileID
	chapter int
}

// MemoryStore is an in-process map-backed Store, the default used by tests
// and by callers that don't need persistence across runs.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[memoryKey][]*page.RenderPage
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[memoryKey][]*page.RenderPage)}
}

func (m *MemoryStore) LoadChapterPages(profile page.PaginationProfileID, chapterIndex int) ([]*page.RenderPage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pages, ok := m.entries[memoryKey{profile, chapterIndex}]
	return pages, ok
}

func (m *MemoryStore) StoreChapterPages(profile page.PaginationProfileID, chapterIndex int, pages []*page.RenderPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[memoryKey{profile, chapterIndex}] = pages
}

// NopStore never hits and discards every store, for callers that want the
// engine's cache-consultation code path exercised without retaining
// anything.
type NopStore struct{}

func (NopStore) LoadChapterPages(page.PaginationProfileID, int) ([]*page.RenderPage, bool) {
	return nil, false
}
func (NopStore) StoreChapterPages(page.PaginationProfileID, int, []*page.RenderPage) {}
