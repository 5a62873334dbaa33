// Package navdoc parses EPUB navigation artefacts, the EPUB3 nav-XHTML
// document and the EPUB2 NCX, into a shared Navigation tree. ParseNavXHTML
// is a nested-element stack machine over x/net/html tokens; ParseNCX walks
// an etree DOM the way opf parses OPF. In both, unexpected children are
// tolerated, and apart from unparseable input only the resource limits in
// limits.NavigationLimits are hard failures.
package navdoc

import (
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html"

	"github.com/h0rv/epub-stream-sub001/bookerr"
	"github.com/h0rv/epub-stream-sub001/limits"
)

// NavPoint is one navigation entry, possibly with nested children.
type NavPoint struct {
	Label    string
	Href     string
	Children []NavPoint
}

// Navigation is the parsed result of a nav-XHTML document or an NCX: a
// table of contents plus the optional flat page-list and landmarks
// sections. All three are empty on a zero-value Navigation.
type Navigation struct {
	TOC       []NavPoint
	PageList  []NavPoint
	Landmarks []NavPoint
}

// HasTOC reports whether any TOC entries were parsed.
func (n Navigation) HasTOC() bool { return len(n.TOC) > 0 }

// TOCCount returns the total number of TOC entries, nested ones included.
func (n Navigation) TOCCount() int { return countPoints(n.TOC) }

func countPoints(points []NavPoint) int {
	total := len(points)
	for _, p := range points {
		total += countPoints(p.Children)
	}
	return total
}

// navType identifies which Navigation field a <nav epub:type="..."> or NCX
// section populates.
type navType int

const (
	navNone navType = iota
	navTOC
	navPageList
	navLandmarks
)

func parseNavType(v string) navType {
	switch strings.TrimSpace(v) {
	case "toc":
		return navTOC
	case "page-list":
		return navPageList
	case "landmarks":
		return navLandmarks
	default:
		return navNone
	}
}

type partialNavPoint struct {
	href     string
	hasHref  bool
	label    string
	hasLabel bool
	children []NavPoint
}

func (p *partialNavPoint) finalize() (NavPoint, bool) {
	if !p.hasHref || !p.hasLabel {
		return NavPoint{}, false
	}
	return NavPoint{Label: p.label, Href: p.href, Children: p.children}, true
}

// ParseNavXHTML parses an EPUB3 nav document, recognising the toc,
// page-list and landmarks epub:type sections. A nav item missing either a
// label or an href is dropped rather than emitted with a zero value.
func ParseNavXHTML(data []byte, lim limits.NavigationLimits) (Navigation, error) {
	tok := html.NewTokenizer(newCappedReader(data))
	var nav Navigation

	var current navType
	var stack []*partialNavPoint
	var results []NavPoint
	inAnchor := false
	points := 0

	finishSection := func() error {
		if current == navNone {
			return nil
		}
		switch current {
		case navTOC:
			nav.TOC = results
		case navPageList:
			nav.PageList = results
		case navLandmarks:
			nav.Landmarks = results
		}
		current = navNone
		results = nil
		stack = stack[:0]
		return nil
	}

	for {
		tt := tok.Next()
		switch tt {
		case html.ErrorToken:
			if tok.Err() == io.EOF {
				if err := finishSection(); err != nil {
					return Navigation{}, err
				}
				return nav, nil
			}
			return Navigation{}, bookerr.Wrap(bookerr.KindNavigation, tok.Err(), "parsing nav-xhtml")

		case html.StartTagToken, html.SelfClosingTagToken:
			tagName, hasAttr := tok.TagName()
			switch string(tagName) {
			case "nav":
				if err := finishSection(); err != nil {
					return Navigation{}, err
				}
				if hasAttr {
					if v, ok := tagAttr(tok, "type"); ok {
						current = parseNavType(v)
					}
				}
			case "li":
				if current == navNone {
					break
				}
				if len(stack) >= lim.MaxDepth {
					return Navigation{}, bookerr.New(bookerr.KindNavigation,
						"navigation depth exceeds max_depth (%d > %d)", len(stack)+1, lim.MaxDepth)
				}
				stack = append(stack, &partialNavPoint{})
			case "a":
				if current == navNone {
					break
				}
				inAnchor = true
				if hasAttr {
					if href, ok := tagAttr(tok, "href"); ok {
						if len(href) > lim.MaxHrefBytes {
							return Navigation{}, bookerr.New(bookerr.KindNavigation,
								"navigation href exceeds max_href_bytes (%d > %d)", len(href), lim.MaxHrefBytes)
						}
						if len(stack) > 0 {
							top := stack[len(stack)-1]
							top.href, top.hasHref = href, true
						}
					}
				}
			}
			if tt == html.SelfClosingTagToken && string(tagName) == "a" {
				inAnchor = false
			}

		case html.TextToken:
			if !inAnchor || current == navNone || len(stack) == 0 {
				break
			}
			text := strings.TrimSpace(string(tok.Text()))
			if text == "" {
				break
			}
			top := stack[len(stack)-1]
			if top.hasLabel && top.label != "" && !strings.HasSuffix(top.label, " ") && !strings.HasPrefix(text, " ") {
				top.label += " "
			}
			top.label += text
			top.hasLabel = true
			if len(top.label) > lim.MaxLabelBytes {
				return Navigation{}, bookerr.New(bookerr.KindNavigation,
					"navigation label exceeds max_label_bytes (%d > %d)", len(top.label), lim.MaxLabelBytes)
			}

		case html.EndTagToken:
			tagName, _ := tok.TagName()
			switch string(tagName) {
			case "a":
				inAnchor = false
			case "li":
				if current == navNone || len(stack) == 0 {
					break
				}
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				point, ok := top.finalize()
				if !ok {
					break
				}
				points++
				if points > lim.MaxPoints {
					return Navigation{}, bookerr.New(bookerr.KindNavigation,
						"navigation points exceed max_points (%d > %d)", points, lim.MaxPoints)
				}
				if len(stack) > 0 {
					parent := stack[len(stack)-1]
					parent.children = append(parent.children, point)
				} else {
					results = append(results, point)
				}
			case "nav":
				if err := finishSection(); err != nil {
					return Navigation{}, err
				}
			}
		}
	}
}

// tagAttr reads one attribute's value from the tokenizer's current start
// tag, regardless of how many attributes precede it.
func tagAttr(tok *html.Tokenizer, name string) (string, bool) {
	for {
		key, val, more := tok.TagAttr()
		if localAttrName(key) == name {
			return string(val), true
		}
		if !more {
			return "", false
		}
	}
}

// localAttrName strips a namespace prefix from an attribute name, so both
// "href" and the (invalid but occasionally seen) "xlink:href" forms and
// "epub:type"/"type" resolve the same way callers ask for them.
func localAttrName(key []byte) string {
	s := string(key)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func newCappedReader(data []byte) *strReader { return &strReader{data: data} }

// strReader adapts a byte slice to io.Reader without copying, since
// html.NewTokenizer wants a reader but the whole document is already
// resident (it was read in under MaxNavBytes by the caller).
type strReader struct {
	data []byte
	pos  int
}

func (r *strReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

// ParseNCX parses an EPUB2 NCX document: navMap → TOC, pageList → PageList.
// NCX has no landmarks equivalent so Navigation.Landmarks is always empty
// for this parser.
func ParseNCX(data []byte, lim limits.NavigationLimits) (Navigation, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return Navigation{}, bookerr.Wrap(bookerr.KindNavigation, err, "parsing ncx")
	}
	root := doc.Root()
	if root == nil {
		return Navigation{}, bookerr.New(bookerr.KindNavigation, "ncx document has no root element")
	}

	var nav Navigation
	points := 0

	for _, child := range root.ChildElements() {
		switch localName(child.Tag) {
		case "navMap":
			toc, err := walkNavPoints(child, "navPoint", lim, &points)
			if err != nil {
				return Navigation{}, err
			}
			nav.TOC = toc
		case "pageList":
			pl, err := walkNavPoints(child, "pageTarget", lim, &points)
			if err != nil {
				return Navigation{}, err
			}
			nav.PageList = pl
		}
	}
	return nav, nil
}

// walkNavPoints recurses over <navPoint> (nested) or <pageTarget> (flat)
// elements, pulling label text from <navLabel><text> and href from
// <content src="...">.
func walkNavPoints(parent *etree.Element, childTag string, lim limits.NavigationLimits, points *int) ([]NavPoint, error) {
	var out []NavPoint
	for _, el := range parent.ChildElements() {
		if localName(el.Tag) != childTag {
			continue
		}
		point, ok, err := buildNavPoint(el, childTag, lim, points, 1)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, point)
		}
	}
	return out, nil
}

func buildNavPoint(el *etree.Element, childTag string, lim limits.NavigationLimits, points *int, depth int) (NavPoint, bool, error) {
	if depth > lim.MaxDepth {
		return NavPoint{}, false, bookerr.New(bookerr.KindNavigation,
			"navigation depth exceeds max_depth (%d > %d)", depth, lim.MaxDepth)
	}
	var label, href string
	var hasLabel, hasHref bool
	var children []NavPoint

	for _, child := range el.ChildElements() {
		switch localName(child.Tag) {
		case "navLabel":
			for _, t := range child.ChildElements() {
				if localName(t.Tag) != "text" {
					continue
				}
				text := strings.TrimSpace(t.Text())
				if len(text) > lim.MaxLabelBytes {
					return NavPoint{}, false, bookerr.New(bookerr.KindNavigation,
						"navigation label exceeds max_label_bytes (%d > %d)", len(text), lim.MaxLabelBytes)
				}
				// Whitespace-only anchor text counts as a missing label, so
				// the item is dropped the same way the nav-XHTML parser
				// drops it.
				if text != "" {
					label, hasLabel = text, true
				}
			}
		case "content":
			src := child.SelectAttrValue("src", "")
			if len(src) > lim.MaxHrefBytes {
				return NavPoint{}, false, bookerr.New(bookerr.KindNavigation,
					"navigation href exceeds max_href_bytes (%d > %d)", len(src), lim.MaxHrefBytes)
			}
			href, hasHref = src, true
		case childTag:
			child, ok, err := buildNavPoint(child, childTag, lim, points, depth+1)
			if err != nil {
				return NavPoint{}, false, err
			}
			if ok {
				children = append(children, child)
			}
		}
	}

	if !hasLabel || !hasHref {
		return NavPoint{}, false, nil
	}
	*points++
	if *points > lim.MaxPoints {
		return NavPoint{}, false, bookerr.New(bookerr.KindNavigation,
			"navigation points exceed max_points (%d > %d)", *points, lim.MaxPoints)
	}
	return NavPoint{Label: label, Href: href, Children: children}, true, nil
}

func localName(tag string) string {
	if i := strings.IndexByte(tag, ':'); i >= 0 {
		return tag[i+1:]
	}
	return tag
}
