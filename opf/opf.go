// Package opf parses an EPUB's package document (content.opf): metadata,
// manifest, and spine. Parsing walks the etree DOM exhaustively and
// tolerantly: unexpected elements are logged and skipped rather than
// failing the whole document, since real-world EPUBs routinely carry
// vendor extensions outside the OPF schema.
package opf

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/h0rv/epub-stream-sub001/bookerr"
	"github.com/h0rv/epub-stream-sub001/limits"
)

// ManifestItem is one <manifest><item> entry.
type ManifestItem struct {
	ID         string
	Href       string // resolved relative to the OPF's own directory
	MediaType  string
	Properties []string // e.g. "nav", "cover-image", "svg"
}

// HasProperty reports whether a manifest property (space-separated in the
// source attribute) is present on this item.
func (m ManifestItem) HasProperty(p string) bool {
	for _, prop := range m.Properties {
		if prop == p {
			return true
		}
	}
	return false
}

// SpineItemRef is one <spine><itemref> entry.
type SpineItemRef struct {
	IDRef  string
	Linear bool
}

// Metadata is the subset of Dublin Core / OPF metadata the engine needs.
type Metadata struct {
	Title      string
	Authors    []string
	Language   language.Tag
	Identifier string
}

// Package is a fully parsed content.opf.
type Package struct {
	UniqueIdentifier string
	Metadata         Metadata
	Manifest         map[string]ManifestItem // keyed by manifest id
	Spine            []SpineItemRef
	NCXIDRef         string // spine/@toc, EPUB2 NCX reference; empty if absent
}

// ItemByID looks up a manifest item, returning ok=false if absent.
func (p *Package) ItemByID(id string) (ManifestItem, bool) {
	item, ok := p.Manifest[id]
	return item, ok
}

// SpineHrefs resolves the reading order to manifest hrefs, skipping any
// itemref whose idref doesn't resolve (malformed but non-fatal) and
// logging a warning for each.
func (p *Package) SpineHrefs(log *zap.Logger) []string {
	hrefs := make([]string, 0, len(p.Spine))
	for _, ref := range p.Spine {
		item, ok := p.Manifest[ref.IDRef]
		if !ok {
			log.Warn("spine itemref has no matching manifest item, skipping", zap.String("idref", ref.IDRef))
			continue
		}
		hrefs = append(hrefs, item.Href)
	}
	return hrefs
}

// NavItem returns the EPUB3 navigation document's manifest item, if the
// manifest declares one via properties="nav".
func (p *Package) NavItem() (ManifestItem, bool) {
	for _, item := range p.Manifest {
		if item.HasProperty("nav") {
			return item, true
		}
	}
	return ManifestItem{}, false
}

// CoverImageItem returns the manifest item marked properties="cover-image",
// the EPUB3 way of declaring a cover.
func (p *Package) CoverImageItem() (ManifestItem, bool) {
	for _, item := range p.Manifest {
		if item.HasProperty("cover-image") {
			return item, true
		}
	}
	return ManifestItem{}, false
}

// NCXItem resolves the spine's toc idref (EPUB2) to its manifest item.
func (p *Package) NCXItem() (ManifestItem, bool) {
	if p.NCXIDRef == "" {
		return ManifestItem{}, false
	}
	return p.ItemByID(p.NCXIDRef)
}

// Parse reads a content.opf document. opfDir is the directory the OPF
// itself lives in within the container, used to resolve every manifest
// href to a container-relative path.
func Parse(data []byte, opfDir string, lim limits.MetadataLimits, log *zap.Logger) (*Package, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, bookerr.Wrap(bookerr.KindMalformed, err, "parsing content.opf")
	}
	root := doc.Root()
	if root == nil {
		return nil, bookerr.New(bookerr.KindMalformed, "content.opf has no root element")
	}
	if localName(root.Tag) != "package" {
		return nil, bookerr.New(bookerr.KindMalformed, "unexpected root element %q in content.opf", root.Tag)
	}

	pkg := &Package{
		UniqueIdentifier: root.SelectAttrValue("unique-identifier", ""),
		Manifest:         make(map[string]ManifestItem),
	}

	for _, child := range root.ChildElements() {
		switch localName(child.Tag) {
		case "metadata":
			md, err := parseMetadata(child, lim, log)
			if err != nil {
				return nil, fmt.Errorf("metadata: %w", err)
			}
			pkg.Metadata = md
		case "manifest":
			for _, item := range child.ChildElements() {
				if localName(item.Tag) != "item" {
					log.Warn("unexpected element in manifest, ignoring", zap.String("tag", item.Tag))
					continue
				}
				id := item.SelectAttrValue("id", "")
				href := item.SelectAttrValue("href", "")
				if id == "" || href == "" {
					log.Warn("manifest item missing id or href, skipping")
					continue
				}
				resolved, err := joinOPFPath(opfDir, href)
				if err != nil {
					return nil, fmt.Errorf("manifest item %q: %w", id, err)
				}
				var props []string
				if raw := item.SelectAttrValue("properties", ""); raw != "" {
					props = strings.Fields(raw)
				}
				pkg.Manifest[id] = ManifestItem{
					ID:         id,
					Href:       resolved,
					MediaType:  item.SelectAttrValue("media-type", ""),
					Properties: props,
				}
			}
		case "spine":
			pkg.NCXIDRef = child.SelectAttrValue("toc", "")
			for _, ref := range child.ChildElements() {
				if localName(ref.Tag) != "itemref" {
					log.Warn("unexpected element in spine, ignoring", zap.String("tag", ref.Tag))
					continue
				}
				idref := ref.SelectAttrValue("idref", "")
				if idref == "" {
					log.Warn("spine itemref missing idref, skipping")
					continue
				}
				linear := ref.SelectAttrValue("linear", "yes") != "no"
				pkg.Spine = append(pkg.Spine, SpineItemRef{IDRef: idref, Linear: linear})
			}
		case "guide", "collection", "bindings", "tours":
			// Legacy or optional OPF sections with no bearing on reading
			// order or metadata; acknowledged, not parsed.
		default:
			log.Warn("unexpected top-level element in content.opf, ignoring", zap.String("tag", child.Tag))
		}
	}

	if len(pkg.Manifest) == 0 {
		return nil, bookerr.New(bookerr.KindMalformed, "content.opf has no manifest items")
	}
	if len(pkg.Spine) == 0 {
		return nil, bookerr.New(bookerr.KindMalformed, "content.opf has no spine itemrefs")
	}
	return pkg, nil
}

func parseMetadata(el *etree.Element, lim limits.MetadataLimits, log *zap.Logger) (Metadata, error) {
	md := Metadata{Language: language.Und}
	for _, child := range el.ChildElements() {
		text := strings.TrimSpace(child.Text())
		if len(text) > lim.MaxMetadataStringBytes {
			return Metadata{}, bookerr.LimitExceeded("max_metadata_string_bytes", int64(lim.MaxMetadataStringBytes), int64(len(text)))
		}
		switch localName(child.Tag) {
		case "title":
			if md.Title == "" {
				md.Title = text
			}
		case "creator":
			if text != "" {
				md.Authors = append(md.Authors, text)
			}
		case "language":
			if tag, err := language.Parse(text); err == nil {
				md.Language = tag
			} else {
				log.Warn("unparseable dc:language, leaving undetermined", zap.String("value", text))
			}
		case "identifier":
			if md.Identifier == "" {
				md.Identifier = text
			}
		case "meta":
			// Free-form EPUB3 meta elements (cover, rendition hints, etc.)
			// are outside this engine's scope; acknowledged, not stored.
		default:
			// Other Dublin Core elements (publisher, date, rights, ...)
			// aren't needed for pagination; silently ignored rather than
			// warned on, since they're common and expected.
		}
	}
	return md, nil
}

// joinOPFPath resolves href relative to opfDir the way a browser resolves a
// relative link, rejecting any result that escapes the container root.
func joinOPFPath(opfDir, href string) (string, error) {
	joined := href
	if opfDir != "" && opfDir != "." {
		joined = opfDir + "/" + href
	}
	depth := 0
	for _, s := range strings.Split(strings.TrimPrefix(joined, "/"), "/") {
		switch s {
		case "", ".":
		case "..":
			if depth--; depth < 0 {
				return "", bookerr.New(bookerr.KindMalformed, "href %q escapes the container root", href)
			}
		default:
			depth++
		}
	}
	return cleanJoin(joined), nil
}

func cleanJoin(p string) string {
	segs := strings.Split(strings.TrimPrefix(p, "/"), "/")
	var out []string
	for _, s := range segs {
		switch s {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}

// localName strips an XML namespace prefix ("opf:package" -> "package");
// etree leaves prefixes in Tag for documents that use them.
func localName(tag string) string {
	if i := strings.IndexByte(tag, ':'); i >= 0 {
		return tag[i+1:]
	}
	return tag
}
