// Package tokenize streams a spine item's XHTML into a finite, restartable
// sequence of styled events: block boundaries, text runs carrying their
// fully cascaded style, and images. It is pure over (bytes, limits,
// hyphenation mode): re-tokenising the same chapter bytes always produces
// an identical event sequence.
//
// The tokenizer is built on golang.org/x/net/html's streaming token reader
// rather than a DOM, since a chapter's text is exactly the kind of large,
// linear content the heap budget cares about.
package tokenize

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/h0rv/epub-stream-sub001/bookenum"
	"github.com/h0rv/epub-stream-sub001/bookerr"
	"github.com/h0rv/epub-stream-sub001/limits"
	"github.com/h0rv/epub-stream-sub001/page"
	"github.com/h0rv/epub-stream-sub001/text"
)

// ComputedTextStyle is the fully cascaded style in effect for a text run,
// before layout resolves it into a page.ResolvedTextStyle (which adds
// justification decisions layout itself makes).
type ComputedTextStyle struct {
	FamilyStack   []string
	Weight        uint16
	Italic        bool
	SizePx        float32
	LineHeight    float32
	LetterSpacing float32
	BlockRole     page.BlockRole
}

// Family returns the cascaded family stack joined the way a ResolvedTextStyle
// carries it: a single comma-separated fallback string.
func (s ComputedTextStyle) Family() string { return strings.Join(s.FamilyStack, ", ") }

// Item is the closed set of styled events a tokenize pass produces.
type Item interface{ isStyledItem() }

// BlockStart opens a structural block (paragraph, heading, list item,
// blockquote, ...). Level is only meaningful when Role is BlockRoleHeading
// (1-6); it is 0 otherwise.
type BlockStart struct {
	Role  page.BlockRole
	Level int
}

func (BlockStart) isStyledItem() {}

// BlockEnd closes the most recently opened BlockStart.
type BlockEnd struct{}

func (BlockEnd) isStyledItem() {}

// LineBreak is an explicit <br>, forcing a line break without closing the
// enclosing block.
type LineBreak struct{}

func (LineBreak) isStyledItem() {}

// StyledRun is a contiguous run of text sharing one computed style.
type StyledRun struct {
	Text   string
	Style  ComputedTextStyle
	FontID *uint32
}

func (StyledRun) isStyledItem() {}

// StyledImage is an inline or figure image reference.
type StyledImage struct {
	Src          string
	Alt          string
	IntrinsicWPx *int
	IntrinsicHPx *int
	InFigure     bool
}

func (StyledImage) isStyledItem() {}

func defaultStyle() ComputedTextStyle {
	return ComputedTextStyle{
		FamilyStack:   []string{"serif"},
		Weight:        400,
		Italic:        false,
		SizePx:        16,
		LineHeight:    1.4,
		LetterSpacing: 0,
		BlockRole:     page.BlockRoleBody,
	}
}

// blockTags maps a block-level element's local tag name to the BlockRole
// it establishes. Elements in neither this map nor headingLevels emit no
// block events; they only contribute their style through pushStyle.
var blockTags = map[string]page.BlockRole{
	"p": page.BlockRoleParagraph, "div": page.BlockRoleOther, "section": page.BlockRoleOther,
	"article": page.BlockRoleOther, "aside": page.BlockRoleOther, "nav": page.BlockRoleOther,
	"header": page.BlockRoleOther, "footer": page.BlockRoleOther, "main": page.BlockRoleOther,
	"blockquote": page.BlockRoleBlockquote, "li": page.BlockRoleListItem,
	"figure": page.BlockRoleOther, "figcaption": page.BlockRoleOther,
	"ul": page.BlockRoleOther, "ol": page.BlockRoleOther,
}

var headingLevels = map[string]int{
	"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6,
}

// Options configures a tokenize pass.
type Options struct {
	Limits limits.MemoryBudget
	Hyphen bookenum.HyphenationMode

	// BaseFontSizePx overrides the body size the cascade starts from;
	// <= 0 keeps the 16px default.
	BaseFontSizePx float32

	Log *zap.Logger
}

// Tokenize converts one chapter's XHTML/XML bytes into a styled event
// sequence. Inline "style" attributes are parsed up to
// opts.Limits.MaxInlineStyleBytes per element; a longer one is a hard
// LimitExceeded failure rather than a silent truncation.
func Tokenize(data []byte, opts Options) ([]Item, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	tok := html.NewTokenizer(bytes.NewReader(data))
	var items []Item

	base := defaultStyle()
	if opts.BaseFontSizePx > 0 {
		base.SizePx = opts.BaseFontSizePx
	}
	styleStack := []ComputedTextStyle{base}
	blockStack := []string{} // local tag names, for matched-close bookkeeping
	var textBuf strings.Builder
	var inFigure bool

	flushText := func() {
		raw := textBuf.String()
		textBuf.Reset()
		collapsed := collapseWhitespace(raw)
		if collapsed == "" {
			return
		}
		collapsed = text.ApplySoftHyphenPolicy(collapsed, bookenum.SoftHyphenPolicy(opts.Hyphen))
		items = append(items, StyledRun{Text: collapsed, Style: styleStack[len(styleStack)-1]})
	}

	for {
		tt := tok.Next()
		switch tt {
		case html.ErrorToken:
			if tok.Err() == io.EOF {
				flushText()
				return items, nil
			}
			return nil, bookerr.Wrap(bookerr.KindMalformed, tok.Err(), "tokenizing chapter content")

		case html.TextToken:
			textBuf.Write(tok.Text())

		case html.StartTagToken, html.SelfClosingTagToken:
			flushText()
			name, hasAttr := tok.TagName()
			tag := string(name)
			attrs := map[string]string{}
			if hasAttr {
				for {
					k, v, more := tok.TagAttr()
					attrs[string(k)] = string(v)
					if !more {
						break
					}
				}
			}

			switch tag {
			case "br":
				items = append(items, LineBreak{})
				continue
			case "img":
				img, err := buildImage(attrs, inFigure)
				if err != nil {
					return nil, err
				}
				items = append(items, img)
				continue
			}

			next, err := pushStyle(styleStack[len(styleStack)-1], tag, attrs, opts.Limits.MaxInlineStyleBytes)
			if err != nil {
				return nil, err
			}

			if tag == "figure" {
				inFigure = true
			}
			if role, ok := blockTags[tag]; ok {
				items = append(items, BlockStart{Role: role})
				next.BlockRole = role
			} else if level, ok := headingLevels[tag]; ok {
				next.BlockRole = page.BlockRoleHeading
				next.Weight = 700
				next.SizePx = headingSizePx(level, styleStack[0].SizePx)
				items = append(items, BlockStart{Role: page.BlockRoleHeading, Level: level})
			}

			styleStack = append(styleStack, next)
			if tt != html.SelfClosingTagToken {
				blockStack = append(blockStack, tag)
			} else if len(styleStack) > 1 {
				styleStack = styleStack[:len(styleStack)-1]
			}

		case html.EndTagToken:
			flushText()
			name, _ := tok.TagName()
			tag := string(name)
			if tag == "figure" {
				inFigure = false
			}
			if len(blockStack) > 0 && blockStack[len(blockStack)-1] == tag {
				blockStack = blockStack[:len(blockStack)-1]
				if len(styleStack) > 1 {
					styleStack = styleStack[:len(styleStack)-1]
				}
				if _, ok := blockTags[tag]; ok {
					items = append(items, BlockEnd{})
				} else if _, ok := headingLevels[tag]; ok {
					items = append(items, BlockEnd{})
				}
			}
		}
	}
}

// collapseWhitespace folds XML space plus runs of ASCII whitespace into a
// single space, preserving a leading/trailing space if one was present so
// layout can decide whether adjacent runs need a joining space.
func collapseWhitespace(s string) string {
	var b strings.Builder
	lastWasSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !lastWasSpace {
				b.WriteByte(' ')
			}
			lastWasSpace = true
			continue
		}
		b.WriteRune(r)
		lastWasSpace = false
	}
	return b.String()
}

func headingSizePx(level int, bodySizePx float32) float32 {
	scale := []float32{0, 2.0, 1.6, 1.35, 1.2, 1.05, 1.0}
	if level < 1 || level > 6 {
		return bodySizePx
	}
	return bodySizePx * scale[level]
}

// pushStyle returns the computed style in effect for children of an
// element named tag, given the parent's style and the element's own
// attributes. It covers the small set of presentational elements and
// inline-style declarations this engine's pragmatic HTML/CSS subset
// supports.
func pushStyle(parent ComputedTextStyle, tag string, attrs map[string]string, maxInlineStyleBytes int64) (ComputedTextStyle, error) {
	next := parent
	switch tag {
	case "strong", "b":
		next.Weight = 700
	case "em", "i":
		next.Italic = true
	case "small":
		next.SizePx *= 0.83
	case "sup", "sub":
		next.SizePx *= 0.7
	case "code", "pre", "tt", "kbd", "samp":
		next.FamilyStack = append([]string{"monospace"}, next.FamilyStack...)
	}

	if styleAttr, ok := attrs["style"]; ok && styleAttr != "" {
		if int64(len(styleAttr)) > maxInlineStyleBytes && maxInlineStyleBytes > 0 {
			return ComputedTextStyle{}, bookerr.LimitExceeded("max_inline_style_bytes", maxInlineStyleBytes, int64(len(styleAttr)))
		}
		applyInlineStyle(&next, styleAttr)
	}
	return next, nil
}

// applyInlineStyle parses a style="..." attribute's declarations with
// tdewolff/parse/v2's CSS tokenizer in inline mode and folds the handful
// of typography-relevant properties into next.
func applyInlineStyle(next *ComputedTextStyle, raw string) {
	input := parse.NewInput(bytes.NewReader([]byte(raw)))
	p := css.NewParser(input, true)

	for {
		gt, _, data := p.Next()
		if gt == css.ErrorGrammar {
			return
		}
		if gt != css.DeclarationGrammar {
			continue
		}
		prop := strings.ToLower(string(data))
		val := declValueString(p.Values())
		switch prop {
		case "font-weight":
			if w, err := strconv.Atoi(val); err == nil {
				next.Weight = uint16(w)
			} else if val == "bold" {
				next.Weight = 700
			} else if val == "normal" {
				next.Weight = 400
			}
		case "font-style":
			next.Italic = val == "italic" || val == "oblique"
		case "font-size":
			if px, ok := parsePx(val); ok {
				next.SizePx = px
			}
		case "font-family":
			var stack []string
			for _, f := range strings.Split(val, ",") {
				f = strings.Trim(strings.TrimSpace(f), `"'`)
				if f != "" {
					stack = append(stack, f)
				}
			}
			if len(stack) > 0 {
				next.FamilyStack = stack
			}
		case "letter-spacing":
			if px, ok := parsePx(val); ok {
				next.LetterSpacing = px
			}
		case "line-height":
			if f, err := strconv.ParseFloat(val, 32); err == nil {
				next.LineHeight = float32(f)
			}
		}
	}
}

func declValueString(tokens []css.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		if t.TokenType == css.WhitespaceToken {
			continue
		}
		b.Write(t.Data)
	}
	return strings.TrimSpace(b.String())
}

func parsePx(val string) (float32, bool) {
	val = strings.TrimSpace(val)
	if strings.HasSuffix(val, "px") {
		if f, err := strconv.ParseFloat(strings.TrimSuffix(val, "px"), 32); err == nil {
			return float32(f), true
		}
	}
	if f, err := strconv.ParseFloat(val, 32); err == nil {
		return float32(f), true
	}
	return 0, false
}

func buildImage(attrs map[string]string, inFigure bool) (StyledImage, error) {
	img := StyledImage{Src: attrs["src"], Alt: attrs["alt"], InFigure: inFigure}
	if w, ok := attrs["width"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(w)); err == nil {
			img.IntrinsicWPx = &n
		}
	}
	if h, ok := attrs["height"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(h)); err == nil {
			img.IntrinsicHPx = &n
		}
	}
	return img, nil
}
