package container

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/h0rv/epub-stream-sub001/bookenum"
	"github.com/h0rv/epub-stream-sub001/bookerr"
	"github.com/h0rv/epub-stream-sub001/limits"
)

const testSVGEntry = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 40 20"><rect width="40" height="20"/></svg>`

func writeTestZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "book.epub")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("creating test zip: %v", err)
	}
	w := zip.NewWriter(f)
	for name, content := range entries {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("creating entry %q: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("writing entry %q: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing zip file: %v", err)
	}
	return zipPath
}

func TestOpenAndReadEntry(t *testing.T) {
	zipPath := writeTestZip(t, map[string]string{
		"mimetype":         "application/epub+zip",
		"OEBPS/content.opf": "<package/>",
	})

	c, err := Open(zipPath, limits.DefaultMemoryBudget())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if !c.Has("OEBPS/content.opf") {
		t.Fatal("expected container to report the OPF entry present")
	}
	data, err := c.ReadEntry("OEBPS/content.opf")
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if string(data) != "<package/>" {
		t.Fatalf("ReadEntry content = %q, want %q", data, "<package/>")
	}
}

func buildTestZipBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("creating entry %q: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("writing entry %q: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}
	return buf.Bytes()
}

func TestOpenBytesAndReadEntry(t *testing.T) {
	data := buildTestZipBytes(t, map[string]string{
		"mimetype":          "application/epub+zip",
		"OEBPS/content.opf": "<package/>",
	})

	c, err := OpenBytes(data, limits.DefaultMemoryBudget())
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	defer c.Close()

	got, err := c.ReadEntry("OEBPS/content.opf")
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if string(got) != "<package/>" {
		t.Fatalf("ReadEntry content = %q, want %q", got, "<package/>")
	}
}

func TestOpenBytesRejectsZipSlipEntries(t *testing.T) {
	data := buildTestZipBytes(t, map[string]string{"../../etc/passwd": "pwned"})
	_, err := OpenBytes(data, limits.DefaultMemoryBudget())
	var be *bookerr.Error
	if !asBookErr(err, &be) || be.Kind != bookerr.KindMalformed {
		t.Fatalf("expected KindMalformed for zip-slip entry, got %v", err)
	}
}

func TestReadEntryNotFound(t *testing.T) {
	zipPath := writeTestZip(t, map[string]string{"mimetype": "application/epub+zip"})
	c, err := Open(zipPath, limits.DefaultMemoryBudget())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	_, err = c.ReadEntry("missing.xhtml")
	var be *bookerr.Error
	if err == nil {
		t.Fatal("expected error for missing entry")
	}
	if !asBookErr(err, &be) || be.Kind != bookerr.KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}

func TestReadEntryCappedRejectsOversized(t *testing.T) {
	zipPath := writeTestZip(t, map[string]string{
		"big.xhtml": string(bytes.Repeat([]byte("a"), 1024)),
	})
	c, err := Open(zipPath, limits.DefaultMemoryBudget())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	_, err = c.ReadEntryCapped("big.xhtml", 100)
	var be *bookerr.Error
	if !asBookErr(err, &be) || be.Kind != bookerr.KindLimitExceeded || be.LimitTag != "max_entry_bytes" {
		t.Fatalf("expected KindLimitExceeded/max_entry_bytes, got %v", err)
	}
}

func TestOpenRejectsZipSlipEntries(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.epub")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("creating test zip: %v", err)
	}
	w := zip.NewWriter(f)
	fw, err := w.Create("../../etc/passwd")
	if err != nil {
		t.Fatalf("creating malicious entry: %v", err)
	}
	fw.Write([]byte("pwned"))
	w.Close()
	f.Close()

	_, err = Open(zipPath, limits.DefaultMemoryBudget())
	var be *bookerr.Error
	if !asBookErr(err, &be) || be.Kind != bookerr.KindMalformed {
		t.Fatalf("expected KindMalformed for zip-slip entry, got %v", err)
	}
}

func TestResolveRejectsEscapingHref(t *testing.T) {
	if _, err := Resolve("OEBPS/content.opf", "../../../etc/passwd"); err == nil {
		t.Fatal("expected Resolve to reject an escaping href")
	}
	got, err := Resolve("OEBPS/content.opf", "text/chapter1.xhtml")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "OEBPS/text/chapter1.xhtml" {
		t.Fatalf("Resolve = %q, want %q", got, "OEBPS/text/chapter1.xhtml")
	}
}

func TestReadImageForSvgModeNativeRasterizesLikeFallback(t *testing.T) {
	zipPath := writeTestZip(t, map[string]string{"cover.svg": testSVGEntry})
	c, err := Open(zipPath, limits.DefaultMemoryBudget())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	data, mime, err := c.ReadImageForSvgMode("cover.svg", limits.DefaultImageReadOptions(), bookenum.SvgModeNative)
	if err != nil {
		t.Fatalf("ReadImageForSvgMode: %v", err)
	}
	if mime != "image/jpeg" || len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Fatalf("expected Native to rasterize to JPEG like RasterizeFallback, got mime=%q", mime)
	}
}

func TestReadImageForSvgModeIgnoreRejects(t *testing.T) {
	zipPath := writeTestZip(t, map[string]string{"cover.svg": testSVGEntry})
	c, err := Open(zipPath, limits.DefaultMemoryBudget())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	_, _, err = c.ReadImageForSvgMode("cover.svg", limits.DefaultImageReadOptions(), bookenum.SvgModeIgnore)
	var be *bookerr.Error
	if !asBookErr(err, &be) || be.Kind != bookerr.KindMalformed {
		t.Fatalf("expected KindMalformed for SvgModeIgnore, got %v", err)
	}
}

func TestReadImageForSvgModeRasterizeFallbackProducesJPEG(t *testing.T) {
	zipPath := writeTestZip(t, map[string]string{"cover.svg": testSVGEntry})
	c, err := Open(zipPath, limits.DefaultMemoryBudget())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	data, mime, err := c.ReadImageForSvgMode("cover.svg", limits.DefaultImageReadOptions(), bookenum.SvgModeRasterizeFallback)
	if err != nil {
		t.Fatalf("ReadImageForSvgMode: %v", err)
	}
	if mime != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %q", mime)
	}
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Fatalf("expected a JPEG SOI marker, got %v", data[:min(4, len(data))])
	}
}

func TestReadImageForSvgModePassesThroughNonSVG(t *testing.T) {
	zipPath := writeTestZip(t, map[string]string{"plain.txt": "not an image"})
	c, err := Open(zipPath, limits.DefaultMemoryBudget())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	data, _, err := c.ReadImageForSvgMode("plain.txt", limits.ImageReadOptions{MaxBytes: 1024, AllowUnknownImages: true}, bookenum.SvgModeRasterizeFallback)
	if err != nil {
		t.Fatalf("ReadImageForSvgMode: %v", err)
	}
	if string(data) != "not an image" {
		t.Fatalf("expected unchanged bytes for a non-image entry, got %q", data)
	}
}

func asBookErr(err error, target **bookerr.Error) bool {
	be, ok := err.(*bookerr.Error)
	if !ok {
		return false
	}
	*target = be
	return true
}
