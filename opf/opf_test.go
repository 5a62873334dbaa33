package opf

import (
	"testing"

	"go.uber.org/zap"

	"github.com/h0rv/epub-stream-sub001/limits"
)

const sampleOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" unique-identifier="bookid" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Test Book</dc:title>
    <dc:creator>Jane Author</dc:creator>
    <dc:language>en-US</dc:language>
    <dc:identifier id="bookid">urn:uuid:1234</dc:identifier>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="chap1" href="text/chapter1.xhtml" media-type="application/xhtml+xml"/>
    <item id="cover-img" href="images/cover.jpg" media-type="image/jpeg" properties="cover-image"/>
    <item id="css" href="styles/main.css" media-type="text/css"/>
  </manifest>
  <spine>
    <itemref idref="chap1"/>
  </spine>
</package>`

func TestParseBasicOPF(t *testing.T) {
	log := zap.NewNop()
	pkg, err := Parse([]byte(sampleOPF), "OEBPS", limits.DefaultMetadataLimits(), log)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pkg.Metadata.Title != "Test Book" {
		t.Errorf("Title = %q, want %q", pkg.Metadata.Title, "Test Book")
	}
	if len(pkg.Metadata.Authors) != 1 || pkg.Metadata.Authors[0] != "Jane Author" {
		t.Errorf("Authors = %v", pkg.Metadata.Authors)
	}
	if pkg.Metadata.Language.String() == "und" {
		t.Errorf("expected language to be parsed, got %v", pkg.Metadata.Language)
	}

	item, ok := pkg.ItemByID("chap1")
	if !ok {
		t.Fatal("expected chap1 manifest item")
	}
	if item.Href != "OEBPS/text/chapter1.xhtml" {
		t.Errorf("Href = %q, want OEBPS/text/chapter1.xhtml", item.Href)
	}

	navItem, ok := pkg.NavItem()
	if !ok || navItem.Href != "OEBPS/nav.xhtml" {
		t.Fatalf("NavItem() = %+v, ok=%v", navItem, ok)
	}

	coverItem, ok := pkg.CoverImageItem()
	if !ok || coverItem.Href != "OEBPS/images/cover.jpg" {
		t.Fatalf("CoverImageItem() = %+v, ok=%v", coverItem, ok)
	}

	hrefs := pkg.SpineHrefs(log)
	if len(hrefs) != 1 || hrefs[0] != "OEBPS/text/chapter1.xhtml" {
		t.Fatalf("SpineHrefs = %v", hrefs)
	}
}

func TestParseRejectsMissingManifest(t *testing.T) {
	const noManifest = `<package unique-identifier="x"><spine><itemref idref="a"/></spine></package>`
	_, err := Parse([]byte(noManifest), "", limits.DefaultMetadataLimits(), zap.NewNop())
	if err == nil {
		t.Fatal("expected error for missing manifest")
	}
}

func TestParseRejectsMissingSpine(t *testing.T) {
	const noSpine = `<package unique-identifier="x"><manifest><item id="a" href="a.xhtml" media-type="application/xhtml+xml"/></manifest></package>`
	_, err := Parse([]byte(noSpine), "", limits.DefaultMetadataLimits(), zap.NewNop())
	if err == nil {
		t.Fatal("expected error for missing spine")
	}
}

func TestSpineHrefsSkipsDanglingIDRef(t *testing.T) {
	const dangling = `<package unique-identifier="x">
		<manifest><item id="a" href="a.xhtml" media-type="application/xhtml+xml"/></manifest>
		<spine><itemref idref="a"/><itemref idref="ghost"/></spine>
	</package>`
	pkg, err := Parse([]byte(dangling), "", limits.DefaultMetadataLimits(), zap.NewNop())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	hrefs := pkg.SpineHrefs(zap.NewNop())
	if len(hrefs) != 1 || hrefs[0] != "a.xhtml" {
		t.Fatalf("SpineHrefs = %v, want [a.xhtml]", hrefs)
	}
}

func TestJoinOPFPathResolvesUnderNestedOPFDir(t *testing.T) {
	p, _ := Parse([]byte(sampleOPF), "OEBPS/nested", limits.DefaultMetadataLimits(), zap.NewNop())
	item, _ := p.ItemByID("chap1")
	if item.Href == "" {
		t.Fatal("expected resolved href")
	}
}
