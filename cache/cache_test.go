package cache

import (
	"testing"

	"github.com/h0rv/epub-stream-sub001/page"
)

func TestMemoryStoreMissThenHit(t *testing.T) {
	s := NewMemoryStore()
	profile := page.PaginationProfileID{1}

	if _, ok := s.LoadChapterPages(profile, 0); ok {
		t.Fatalf("expected a miss on an empty store")
	}

	pages := []*page.RenderPage{page.NewRenderPage(1), page.NewRenderPage(2)}
	s.StoreChapterPages(profile, 0, pages)

	got, ok := s.LoadChapterPages(profile, 0)
	if !ok {
		t.Fatalf("expected a hit after store")
	}
	if len(got) != len(pages) {
		t.Fatalf("expected %d pages back, got %d", len(pages), len(got))
	}
}

func TestMemoryStoreKeysByProfileAndChapter(t *testing.T) {
	s := NewMemoryStore()
	profileA := page.PaginationProfileID{1}
	profileB := page.PaginationProfileID{2}

	s.StoreChapterPages(profileA, 0, []*page.RenderPage{page.NewRenderPage(1)})

	if _, ok := s.LoadChapterPages(profileB, 0); ok {
		t.Fatalf("expected a miss under a different profile id")
	}
	if _, ok := s.LoadChapterPages(profileA, 1); ok {
		t.Fatalf("expected a miss under a different chapter index")
	}
	if _, ok := s.LoadChapterPages(profileA, 0); !ok {
		t.Fatalf("expected the original key to still hit")
	}
}

func TestShardKeyIsStableAndFilesystemSafe(t *testing.T) {
	profile := page.PaginationProfileID{0xDE, 0xAD, 0xBE, 0xEF, 1, 2, 3, 4}
	key := ShardKey(profile)
	if key == "" {
		t.Fatal("expected a non-empty shard key")
	}
	if key != ShardKey(profile) {
		t.Fatal("expected the shard key to be deterministic")
	}
	for _, r := range key {
		if r == '/' || r == '\\' || r == ' ' {
			t.Fatalf("expected a filesystem-safe key, got %q", key)
		}
	}
	other := page.PaginationProfileID{0xCA, 0xFE}
	if key == ShardKey(other) {
		t.Fatal("expected different profiles to shard differently")
	}
}

func TestPagesSurviveGobRoundTrip(t *testing.T) {
	src := "images/fig1.png"
	p := page.NewRenderPage(1)
	p.PushContentCommand(page.TextCommand{X: 10, BaselineY: 40, Text: "hello"})
	p.PushContentCommand(page.ImageObjectCommand{Src: src, X: 10, Y: 60, Width: 100, Height: 80})
	p.Annotations = append(p.Annotations, page.PageAnnotation{Kind: page.PageAnnotationInlineImageSrc, Value: &src})

	payload, err := encodePages([]*page.RenderPage{p})
	if err != nil {
		t.Fatalf("encodePages: %v", err)
	}
	pages, err := decodePages(payload)
	if err != nil {
		t.Fatalf("decodePages: %v", err)
	}
	if len(pages) != 1 || len(pages[0].ContentCommands) != 2 {
		t.Fatalf("unexpected decoded pages: %+v", pages)
	}
	if len(pages[0].Annotations) != 1 || pages[0].Annotations[0].Kind != page.PageAnnotationInlineImageSrc {
		t.Fatalf("annotation kind lost in round trip: %+v", pages[0].Annotations)
	}
}

func TestNopStoreNeverHits(t *testing.T) {
	var s NopStore
	s.StoreChapterPages(page.PaginationProfileID{}, 0, []*page.RenderPage{page.NewRenderPage(1)})
	if _, ok := s.LoadChapterPages(page.PaginationProfileID{}, 0); ok {
		t.Fatalf("NopStore must never report a hit")
	}
}
