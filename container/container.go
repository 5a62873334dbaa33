// Package container opens an EPUB as a zip archive and serves byte-capped
// reads of its entries. It never materialises the whole archive in memory:
// every entry read is streamed through a size-checked copy so a corrupt or
// hostile container cannot exhaust the host's heap.
//
// Grounded on archive/walker.go's Walk/isSafePath zip-slip guard, adapted
// from a filesystem-extraction walker into an in-memory entry reader, and
// on convert/epub/epub.go's use of github.com/hidez8891/zip in place of the
// standard library's archive/zip (fixzip tolerates the malformed local-file
// headers real-world EPUBs sometimes ship, in particular ambiguous data
// descriptor flags that trip up archive/zip's stricter reader).
package container

import (
	"bytes"
	"io"
	"path"
	"strings"

	fixzip "github.com/hidez8891/zip"

	"github.com/h0rv/epub-stream-sub001/bookerr"
	"github.com/h0rv/epub-stream-sub001/limits"
)

// Container is an opened EPUB zip archive. The zero value is not usable;
// construct with Open or OpenBytes.
type Container struct {
	closer func() error
	byName map[string]*fixzip.File
	budget limits.MemoryBudget
}

// Open reads the zip central directory at path and indexes entries by
// name. It does not read any entry contents; that happens lazily on
// ReadEntry.
func Open(path string, budget limits.MemoryBudget) (*Container, error) {
	r, err := fixzip.OpenReader(path)
	if err != nil {
		return nil, bookerr.Wrap(bookerr.KindOpenFailed, err, "opening epub container %q", path)
	}
	return indexFiles(r.File, r.Close, budget)
}

// OpenBytes indexes a zip central directory already held in memory,
// without ever touching the filesystem. Useful for EPUBs fetched over the
// network or unpacked by a caller ahead of time.
func OpenBytes(data []byte, budget limits.MemoryBudget) (*Container, error) {
	r, err := fixzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, bookerr.Wrap(bookerr.KindOpenFailed, err, "opening in-memory epub container")
	}
	return indexFiles(r.File, func() error { return nil }, budget)
}

func indexFiles(files []*fixzip.File, closer func() error, budget limits.MemoryBudget) (*Container, error) {
	c := &Container{closer: closer, byName: make(map[string]*fixzip.File, len(files)), budget: budget}
	for _, f := range files {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			closer()
			return nil, bookerr.New(bookerr.KindMalformed, "zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		c.byName[name] = f
	}
	return c, nil
}

// Close releases the underlying archive handle.
func (c *Container) Close() error {
	return c.closer()
}

// Has reports whether name exists in the archive.
func (c *Container) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Names returns every entry path in the archive, directories included.
func (c *Container) Names() []string {
	names := make([]string, 0, len(c.byName))
	for n := range c.byName {
		names = append(names, n)
	}
	return names
}

// ReadEntry streams the named entry's contents, aborting with a
// KindLimitExceeded error the moment more than budget.MaxEntryBytes have
// been read, rather than after allocating an oversized buffer.
func (c *Container) ReadEntry(name string) ([]byte, error) {
	f, ok := c.byName[name]
	if !ok {
		return nil, bookerr.New(bookerr.KindNotFound, "entry %q not present in container", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, bookerr.Wrap(bookerr.KindMalformed, err, "opening entry %q", name)
	}
	defer rc.Close()
	return readCapped(rc, name, c.budget.MaxEntryBytes)
}

// ReadEntryCapped is like ReadEntry but checks an explicit caller-supplied
// cap instead of the container's general MaxEntryBytes budget, for entries
// with their own tighter limit (CSS, nav documents, inline styles).
func (c *Container) ReadEntryCapped(name string, maxBytes int64) ([]byte, error) {
	f, ok := c.byName[name]
	if !ok {
		return nil, bookerr.New(bookerr.KindNotFound, "entry %q not present in container", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, bookerr.Wrap(bookerr.KindMalformed, err, "opening entry %q", name)
	}
	defer rc.Close()
	return readCapped(rc, name, maxBytes)
}

func readCapped(r io.Reader, name string, maxBytes int64) ([]byte, error) {
	limited := io.LimitReader(r, maxBytes+1)
	var buf bytes.Buffer
	n, err := io.Copy(&buf, limited)
	if err != nil {
		return nil, bookerr.Wrap(bookerr.KindMalformed, err, "reading entry %q", name)
	}
	if maxBytes > 0 && n > maxBytes {
		return nil, bookerr.LimitExceeded("max_entry_bytes", maxBytes, n)
	}
	return buf.Bytes(), nil
}

// Resolve joins an href found inside entry `base` (an OPF, nav document,
// or chapter) against base's own directory, producing a container-relative
// path the way a browser would resolve a relative link, then rejects the
// result if it still contains unsafe components.
func Resolve(base, href string) (string, error) {
	if strings.HasPrefix(href, "/") {
		href = strings.TrimPrefix(href, "/")
	}
	dir := path.Dir(base)
	var joined string
	if dir == "." {
		joined = path.Clean(href)
	} else {
		joined = path.Clean(path.Join(dir, href))
	}
	if !isSafePath(joined) {
		return "", bookerr.New(bookerr.KindMalformed, "href %q from %q resolves outside the container", href, base)
	}
	return joined, nil
}

// isSafePath returns false for paths that could escape the archive root:
// absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
