package overlay

import (
	"testing"

	"github.com/h0rv/epub-stream-sub001/page"
)

func TestResolveRectNamedSlots(t *testing.T) {
	viewport := page.OverlaySize{Width: 480, Height: 800}

	cases := []struct {
		kind page.OverlaySlotKind
		x, y int32
	}{
		{page.OverlayTopLeft, 0, 0},
		{page.OverlayTopRight, 480 - 60, 0},
		{page.OverlayBottomLeft, 0, 800 - 20},
		{page.OverlayBottomRight, 480 - 60, 800 - 20},
	}
	for _, c := range cases {
		rect := ResolveRect(page.OverlaySlot{Kind: c.kind}, viewport, 60, 20)
		if rect.X != c.x || rect.Y != c.y {
			t.Fatalf("slot %v: expected (%d,%d), got (%d,%d)", c.kind, c.x, c.y, rect.X, rect.Y)
		}
	}
}

func TestResolveRectCustomSlotIgnoresGridBox(t *testing.T) {
	custom := page.OverlayRect{X: 12, Y: 34, Width: 5, Height: 6}
	rect := ResolveRect(page.OverlaySlot{Kind: page.OverlayCustom, Custom: custom}, page.OverlaySize{Width: 480, Height: 800}, 999, 999)
	if rect != custom {
		t.Fatalf("expected the custom rect verbatim, got %+v", rect)
	}
}

func TestMaterializeTextCommandsOrdersByZAscending(t *testing.T) {
	t1, t2, t3 := "first", "second", "third"
	items := []page.OverlayItem{
		{Slot: page.OverlaySlot{Kind: page.OverlayTopLeft}, Z: 2, Content: page.OverlayContent{Text: &t3}},
		{Slot: page.OverlaySlot{Kind: page.OverlayTopLeft}, Z: -1, Content: page.OverlayContent{Text: &t1}},
		{Slot: page.OverlaySlot{Kind: page.OverlayTopLeft}, Z: 0, Content: page.OverlayContent{Text: &t2}},
	}
	cmds := MaterializeTextCommands(items, page.ResolvedTextStyle{SizePx: 14}, page.OverlaySize{Width: 480, Height: 800}, 100, 20)
	if len(cmds) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(cmds))
	}
	want := []string{t1, t2, t3}
	for i, c := range cmds {
		tc, ok := c.(page.TextCommand)
		if !ok {
			t.Fatalf("command %d is not a TextCommand: %T", i, c)
		}
		if tc.Text != want[i] {
			t.Fatalf("command %d: expected %q, got %q", i, want[i], tc.Text)
		}
	}
}

func TestMaterializeTextCommandsPassesThroughExplicitCommand(t *testing.T) {
	rule := page.RuleCommand{X: 1, Y: 2, Length: 3, Thickness: 1, Horizontal: true}
	items := []page.OverlayItem{
		{Slot: page.OverlaySlot{Kind: page.OverlayTopLeft}, Z: 0, Content: page.OverlayContent{Command: rule}},
	}
	cmds := MaterializeTextCommands(items, page.ResolvedTextStyle{}, page.OverlaySize{Width: 480, Height: 800}, 100, 20)
	if len(cmds) != 1 || cmds[0] != rule {
		t.Fatalf("expected the explicit command to pass through unchanged, got %+v", cmds)
	}
}

func TestTemplateComposerRendersConfiguredSlots(t *testing.T) {
	c := TemplateComposer{TopText: "{{.ChapterIndex}}", BottomText: "{{.ChapterPageIndex}}/{{.ChapterPageCount}}"}
	count := 4
	metrics := page.PageMetrics{ChapterIndex: 2, ChapterPageIndex: 1, ChapterPageCount: &count}
	items := c.Compose(metrics, page.OverlaySize{Width: 480, Height: 800})
	if len(items) != 2 {
		t.Fatalf("expected top and bottom items, got %d", len(items))
	}
	if *items[0].Content.Text != "2" {
		t.Fatalf("expected top text \"2\", got %q", *items[0].Content.Text)
	}
	if *items[1].Content.Text != "1/4" {
		t.Fatalf("expected bottom text \"1/4\", got %q", *items[1].Content.Text)
	}
}

func TestTemplateComposerOmitsEmptyTemplates(t *testing.T) {
	c := TemplateComposer{TopText: "", BottomText: ""}
	items := c.Compose(page.PageMetrics{}, page.OverlaySize{Width: 480, Height: 800})
	if len(items) != 0 {
		t.Fatalf("expected no items when both templates are empty, got %d", len(items))
	}
}
