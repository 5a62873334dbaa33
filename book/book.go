// Package book opens an EPUB container and caches its parsed OPF manifest
// and resolved navigation artefact, giving the render engine a single
// handle to open-once, read-many-times from.
package book

import (
	"path"

	"go.uber.org/zap"

	"github.com/h0rv/epub-stream-sub001/bookenum"
	"github.com/h0rv/epub-stream-sub001/bookerr"
	"github.com/h0rv/epub-stream-sub001/container"
	"github.com/h0rv/epub-stream-sub001/limits"
	"github.com/h0rv/epub-stream-sub001/navdoc"
	"github.com/h0rv/epub-stream-sub001/opf"
)

// Options bounds every parsing path a Book performs.
type Options struct {
	Memory     limits.MemoryBudget
	Metadata   limits.MetadataLimits
	Navigation limits.NavigationLimits
	Images     limits.ImageReadOptions
	Log        *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		Memory:     limits.DefaultMemoryBudget(),
		Metadata:   limits.DefaultMetadataLimits(),
		Navigation: limits.DefaultNavigationLimits(),
		Images:     limits.DefaultImageReadOptions(),
	}
}

// Book is an opened EPUB: its container handle plus the OPF manifest,
// parsed once on Open and cached for the book's lifetime.
type Book struct {
	c       *container.Container
	opfPath string
	opfDir  string
	pkg     *opf.Package
	opts    Options

	navCached bool
	nav       navdoc.Navigation
}

// Open reads path as a zip, verifies the EPUB mimetype marker, locates and
// parses the package document, and returns a ready-to-use Book. The
// navigation document is resolved lazily on first Navigation() call.
func Open(path string, opts Options) (*Book, error) {
	c, err := container.Open(path, opts.Memory)
	if err != nil {
		return nil, err
	}
	b, err := fromContainer(c, opts)
	if err != nil {
		c.Close()
		return nil, err
	}
	return b, nil
}

// OpenBytes is Open's in-memory counterpart: data is the whole EPUB zip
// archive already held in memory.
func OpenBytes(data []byte, opts Options) (*Book, error) {
	c, err := container.OpenBytes(data, opts.Memory)
	if err != nil {
		return nil, err
	}
	b, err := fromContainer(c, opts)
	if err != nil {
		c.Close()
		return nil, err
	}
	return b, nil
}

func fromContainer(c *container.Container, opts Options) (*Book, error) {
	if err := c.VerifyMimetype(); err != nil {
		return nil, err
	}
	opfPath, err := c.OPFPath()
	if err != nil {
		return nil, err
	}
	opfBytes, err := c.ReadEntry(opfPath)
	if err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	pkg, err := opf.Parse(opfBytes, path.Dir(opfPath), opts.Metadata, log)
	if err != nil {
		return nil, err
	}
	return &Book{c: c, opfPath: opfPath, opfDir: path.Dir(opfPath), pkg: pkg, opts: opts}, nil
}

// Close releases the underlying container handle.
func (b *Book) Close() error { return b.c.Close() }

// Metadata returns the parsed OPF metadata.
func (b *Book) Metadata() opf.Metadata { return b.pkg.Metadata }

// ChapterCount returns the number of spine items whose idref resolves to a
// manifest item; items marked linear="no" are counted too.
func (b *Book) ChapterCount() int { return len(b.pkg.SpineHrefs(zap.NewNop())) }

// ChapterHref returns spine item i's resolved, container-relative href.
func (b *Book) ChapterHref(i int) (string, error) {
	hrefs := b.pkg.SpineHrefs(zap.NewNop())
	if i < 0 || i >= len(hrefs) {
		return "", bookerr.New(bookerr.KindNotFound, "chapter index %d out of range [0,%d)", i, len(hrefs))
	}
	return hrefs[i], nil
}

// ChapterIndexForHref returns the spine index whose href matches (ignoring
// any #fragment), or false if none does.
func (b *Book) ChapterIndexForHref(href string) (int, bool) {
	base := href
	for i := 0; i < len(href); i++ {
		if href[i] == '#' {
			base = href[:i]
			break
		}
	}
	hrefs := b.pkg.SpineHrefs(zap.NewNop())
	for i, h := range hrefs {
		if h == base {
			return i, true
		}
	}
	return 0, false
}

// ReadChapter reads spine item i's XHTML bytes under the book's
// MaxEntryBytes budget.
func (b *Book) ReadChapter(i int) ([]byte, error) {
	href, err := b.ChapterHref(i)
	if err != nil {
		return nil, err
	}
	return b.c.ReadEntry(href)
}

// IsCoverChapter reports whether spine item i is the spine's first item and
// the manifest declares an EPUB3 cover-image property, the condition
// cover-page handling is gated on.
func (b *Book) IsCoverChapter(i int) bool {
	if i != 0 {
		return false
	}
	_, ok := b.pkg.CoverImageItem()
	return ok
}

// Navigation resolves and caches the book's navigation document: an EPUB3
// nav-XHTML item declared with the nav property, else the EPUB2 NCX
// referenced by the spine's toc attribute.
func (b *Book) Navigation() (navdoc.Navigation, error) {
	if b.navCached {
		return b.nav, nil
	}
	log := b.opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	if item, ok := b.pkg.NavItem(); ok {
		data, err := b.c.ReadEntryCapped(item.Href, b.opts.Memory.MaxNavBytes)
		if err != nil {
			return navdoc.Navigation{}, err
		}
		nav, err := navdoc.ParseNavXHTML(data, b.opts.Navigation)
		if err != nil {
			return navdoc.Navigation{}, err
		}
		nav = resolveNavigationHrefs(nav, item.Href)
		b.nav, b.navCached = nav, true
		return nav, nil
	}
	if item, ok := b.pkg.NCXItem(); ok {
		data, err := b.c.ReadEntryCapped(item.Href, b.opts.Memory.MaxNavBytes)
		if err != nil {
			return navdoc.Navigation{}, err
		}
		nav, err := navdoc.ParseNCX(data, b.opts.Navigation)
		if err != nil {
			return navdoc.Navigation{}, err
		}
		nav = resolveNavigationHrefs(nav, item.Href)
		b.nav, b.navCached = nav, true
		return nav, nil
	}
	log.Warn("epub declares no nav document or ncx, returning empty navigation")
	b.nav, b.navCached = navdoc.Navigation{}, true
	return b.nav, nil
}

// resolveNavigationHrefs rewrites every NavPoint.Href in nav from a
// reference relative to the navigation document itself (what navdoc's
// parsers emit, since they're pure over the document's own bytes) into a
// container-relative path comparable against book.ChapterHref and
// pagemap's chapter hrefs, mirroring how the OPF manifest's own hrefs are
// resolved relative to the OPF's directory in opf.Parse.
func resolveNavigationHrefs(nav navdoc.Navigation, navDocHref string) navdoc.Navigation {
	return navdoc.Navigation{
		TOC:       resolveNavPoints(nav.TOC, navDocHref),
		PageList:  resolveNavPoints(nav.PageList, navDocHref),
		Landmarks: resolveNavPoints(nav.Landmarks, navDocHref),
	}
}

func resolveNavPoints(points []navdoc.NavPoint, navDocHref string) []navdoc.NavPoint {
	if points == nil {
		return nil
	}
	out := make([]navdoc.NavPoint, len(points))
	for i, p := range points {
		href := p.Href
		if href != "" {
			target, fragment := splitHrefFragment(href)
			if resolved, err := container.Resolve(navDocHref, target); err == nil {
				href = resolved + fragment
			}
		}
		out[i] = navdoc.NavPoint{Label: p.Label, Href: href, Children: resolveNavPoints(p.Children, navDocHref)}
	}
	return out
}

func splitHrefFragment(href string) (target, fragment string) {
	for i := 0; i < len(href); i++ {
		if href[i] == '#' {
			return href[:i], href[i:]
		}
	}
	return href, ""
}

// CoverImage reads the manifest-declared cover image's bytes and MIME
// type, or bookerr.KindNotFound if the manifest declares none. svgMode
// governs what happens if that image is an SVG:
// SvgModeRasterizeFallback returns a rasterized JPEG instead of raw SVG
// bytes for backends with no native SVG renderer.
func (b *Book) CoverImage(opts limits.ImageReadOptions, svgMode bookenum.SvgMode) ([]byte, string, error) {
	item, ok := b.pkg.CoverImageItem()
	if !ok {
		return nil, "", bookerr.New(bookerr.KindNotFound, "manifest declares no cover-image item")
	}
	return b.c.ReadImageForSvgMode(item.Href, opts, svgMode)
}
