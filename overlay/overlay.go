// Package overlay resolves app-supplied per-page overlay items into
// concrete placements and, for text content, draw commands. Composers are modelled as pure functions of (metrics, viewport)
// so they stay stateless and trivially testable; z-ordering and
// slot-to-rect resolution happen in MaterializeTextCommands and ResolveRect
// below, which the engine (package render) applies to composed items.
package overlay

import (
	"bytes"
	"fmt"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"github.com/h0rv/epub-stream-sub001/page"
)

// Composer produces overlay items for one page. Implementations must be
// pure: same metrics and viewport in, same items out.
type Composer interface {
	Compose(metrics page.PageMetrics, viewport page.OverlaySize) []page.OverlayItem
}

// ComposerFunc adapts a plain function to the Composer interface.
type ComposerFunc func(page.PageMetrics, page.OverlaySize) []page.OverlayItem

func (f ComposerFunc) Compose(m page.PageMetrics, v page.OverlaySize) []page.OverlayItem { return f(m, v) }

// ResolveRect computes slot's placement rect within viewport. The named
// grid slots reserve a fixed-size corner/edge box; OverlayCustom returns
// slot.Custom unchanged.
func ResolveRect(slot page.OverlaySlot, viewport page.OverlaySize, boxW, boxH uint32) page.OverlayRect {
	if slot.Kind == page.OverlayCustom {
		return slot.Custom
	}
	var x, y int32
	switch slot.Kind {
	case page.OverlayTopLeft:
		x, y = 0, 0
	case page.OverlayTopCenter:
		x, y = int32(viewport.Width-boxW)/2, 0
	case page.OverlayTopRight:
		x, y = int32(viewport.Width - boxW), 0
	case page.OverlayBottomLeft:
		x, y = 0, int32(viewport.Height-boxH)
	case page.OverlayBottomCenter:
		x, y = int32(viewport.Width-boxW)/2, int32(viewport.Height-boxH)
	case page.OverlayBottomRight:
		x, y = int32(viewport.Width-boxW), int32(viewport.Height-boxH)
	}
	return page.OverlayRect{X: x, Y: y, Width: boxW, Height: boxH}
}

// MaterializeTextCommands converts any OverlayItem carrying literal text
// into a page.TextCommand using the supplied chrome text style, ascending
// by Z, leaving items that already carry an explicit Command untouched.
func MaterializeTextCommands(items []page.OverlayItem, style page.ResolvedTextStyle, viewport page.OverlaySize, textBoxW, textBoxH uint32) []page.DrawCommand {
	sorted := append([]page.OverlayItem(nil), items...)
	insertionSort(sorted)

	cmds := make([]page.DrawCommand, 0, len(sorted))
	for _, item := range sorted {
		if item.Content.Text != nil {
			rect := ResolveRect(item.Slot, viewport, textBoxW, textBoxH)
			cmds = append(cmds, page.TextCommand{
				X:         int(rect.X),
				BaselineY: int(rect.Y) + int(textBoxH),
				Text:      *item.Content.Text,
				Style:     style,
			})
			continue
		}
		if item.Content.Command != nil {
			cmds = append(cmds, item.Content.Command)
		}
	}
	return cmds
}

// insertionSort orders items by ascending Z; overlay lists are small
// (a handful of slots per page), so an O(n^2) stable sort keeps this
// package free of a sort.Slice closure allocation per call.
func insertionSort(items []page.OverlayItem) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].Z < items[j-1].Z; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

// TemplateComposer renders header/footer-style text from Go templates with
// sprig's function set available. TopText/BottomText may reference
// .ChapterIndex, .ChapterPageIndex, .ChapterPageCount, .GlobalPageIndex,
// .GlobalPageCount, .ProgressChapter, .ProgressBook.
type TemplateComposer struct {
	TopText, BottomText string
	TextBoxW, TextBoxH  uint32
}

type templateData struct {
	ChapterIndex     int
	ChapterPageIndex int
	ChapterPageCount int
	GlobalPageIndex  int
	GlobalPageCount  int
	ProgressChapter  float32
	ProgressBook     float32
}

func (t TemplateComposer) Compose(m page.PageMetrics, viewport page.OverlaySize) []page.OverlayItem {
	data := templateData{
		ChapterIndex:     m.ChapterIndex,
		ChapterPageIndex: m.ChapterPageIndex,
		ProgressChapter:  m.ProgressChapter,
	}
	if m.ChapterPageCount != nil {
		data.ChapterPageCount = *m.ChapterPageCount
	}
	if m.GlobalPageIndex != nil {
		data.GlobalPageIndex = *m.GlobalPageIndex
	}
	if m.GlobalPageCountEstimate != nil {
		data.GlobalPageCount = *m.GlobalPageCountEstimate
	}
	if m.ProgressBook != nil {
		data.ProgressBook = *m.ProgressBook
	}

	var items []page.OverlayItem
	if text, ok := renderTemplate(t.TopText, data); ok {
		items = append(items, page.OverlayItem{
			Slot: page.OverlaySlot{Kind: page.OverlayTopRight}, Z: 0,
			Content: page.OverlayContent{Text: &text},
		})
	}
	if text, ok := renderTemplate(t.BottomText, data); ok {
		items = append(items, page.OverlayItem{
			Slot: page.OverlaySlot{Kind: page.OverlayBottomRight}, Z: 0,
			Content: page.OverlayContent{Text: &text},
		})
	}
	return items
}

func renderTemplate(tmpl string, data templateData) (string, bool) {
	if tmpl == "" {
		return "", false
	}
	t, err := template.New("overlay").Funcs(sprig.TxtFuncMap()).Parse(tmpl)
	if err != nil {
		return fmt.Sprintf("(template error: %v)", err), true
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Sprintf("(template error: %v)", err), true
	}
	return buf.String(), true
}
