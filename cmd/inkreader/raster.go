package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/h0rv/epub-stream-sub001/book"
	"github.com/h0rv/epub-stream-sub001/config"
	"github.com/h0rv/epub-stream-sub001/page"
	"github.com/h0rv/epub-stream-sub001/render"
)

// writeCoverImage writes the manifest-declared cover image to outDir under
// a name matching its resolved MIME type, applying cfg.Layout.Svg so an SVG
// cover is rasterized to JPEG under both SvgModeRasterizeFallback and
// SvgModeNative, and rejected under SvgModeIgnore.
func writeCoverImage(outDir string, b *book.Book, cfg *config.EngineConfig) error {
	data, mime, err := b.CoverImage(cfg.Images, cfg.Layout.Svg)
	if err != nil {
		return err
	}
	ext := ".img"
	switch mime {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	case "image/svg+xml":
		ext = ".svg"
	case "image/gif":
		ext = ".gif"
	}
	return os.WriteFile(filepath.Join(outDir, "cover"+ext), data, 0o644)
}

// writePGM rasterises p's merged draw commands into a binary (P5) PGM
// frame at fname. This is a demo rasteriser for the visualiser collaborator
// only: it approximates text as a filled box sized from
// character count and font size rather than shaping real glyphs, since the
// core engine deliberately stops at the draw-command IR and leaves glyph
// rendering to a real backend. Iterates the split layers directly via
// MergedCommands rather than p.Commands, since p.Embedded pages never
// materialise the legacy merged layer.
func writePGM(fname string, p *page.RenderPage, cfg render.Config) error {
	w := cfg.Layout.Geometry.DisplayWidthPx
	h := cfg.Layout.Geometry.DisplayHeightPx
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid display geometry %dx%d", w, h)
	}

	frame := make([]byte, w*h)
	for i := range frame {
		frame[i] = 255
	}

	for _, cmd := range p.MergedCommands() {
		drawCommand(frame, w, h, cmd)
	}

	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	fmt.Fprintf(bw, "P5\n%d %d\n255\n", w, h)
	if _, err := bw.Write(frame); err != nil {
		return err
	}
	return bw.Flush()
}

func drawCommand(frame []byte, w, h int, cmd page.DrawCommand) {
	switch c := cmd.(type) {
	case page.RectCommand:
		if c.Fill {
			fillRect(frame, w, h, c.X, c.Y, int(c.Width), int(c.Height), 0)
		} else {
			strokeRect(frame, w, h, c.X, c.Y, int(c.Width), int(c.Height), 0)
		}
	case page.RuleCommand:
		if c.Horizontal {
			fillRect(frame, w, h, c.X, c.Y, int(c.Length), int(c.Thickness), 32)
		} else {
			fillRect(frame, w, h, c.X, c.Y, int(c.Thickness), int(c.Length), 32)
		}
	case page.TextCommand:
		width := int(float32(len([]rune(c.Text))) * c.Style.SizePx * 0.52)
		height := int(c.Style.LineHeight * c.Style.SizePx)
		if height <= 0 {
			height = int(c.Style.SizePx)
		}
		fillRect(frame, w, h, c.X, c.BaselineY-height, width, height, 180)
	case page.ImageObjectCommand:
		fillRect(frame, w, h, c.X, c.Y, int(c.Width), int(c.Height), 128)
	case page.PageChromeCommand:
		// metadata only, no pixels of its own beyond the text/rule commands
		// the render engine already pushed alongside it.
	}
}

func fillRect(frame []byte, w, h, x, y, rw, rh int, gray byte) {
	x0, y0 := clamp(x, 0, w), clamp(y, 0, h)
	x1, y1 := clamp(x+rw, 0, w), clamp(y+rh, 0, h)
	for yy := y0; yy < y1; yy++ {
		row := yy * w
		for xx := x0; xx < x1; xx++ {
			frame[row+xx] = gray
		}
	}
}

func strokeRect(frame []byte, w, h, x, y, rw, rh int, gray byte) {
	fillRect(frame, w, h, x, y, rw, 1, gray)
	fillRect(frame, w, h, x, y+rh-1, rw, 1, gray)
	fillRect(frame, w, h, x, y, 1, rh, gray)
	fillRect(frame, w, h, x+rw-1, y, 1, rh, gray)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
