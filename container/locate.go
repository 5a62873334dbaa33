package container

import (
	"bytes"
	"strings"

	"github.com/beevik/etree"

	"github.com/h0rv/epub-stream-sub001/bookerr"
)

// VerifyMimetype checks the zip's first, uncompressed "mimetype" entry
// declares "application/epub+zip". hidez8891/zip indexes by
// name rather than physical order, so this checks content, not position;
// a container whose mimetype entry is merely present and correct passes.
func (c *Container) VerifyMimetype() error {
	if !c.Has("mimetype") {
		return bookerr.New(bookerr.KindMalformed, "container is missing the mimetype entry")
	}
	data, err := c.ReadEntryCapped("mimetype", 256)
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(bytes.TrimSpace(data))) != "application/epub+zip" {
		return bookerr.New(bookerr.KindMalformed, "mimetype entry does not declare application/epub+zip")
	}
	return nil
}

// OPFPath reads META-INF/container.xml and returns the first rootfile's
// full-path, the container-relative location of the package document.
func (c *Container) OPFPath() (string, error) {
	data, err := c.ReadEntryCapped("META-INF/container.xml", 64<<10)
	if err != nil {
		return "", err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return "", bookerr.Wrap(bookerr.KindMalformed, err, "parsing META-INF/container.xml")
	}
	root := doc.Root()
	if root == nil {
		return "", bookerr.New(bookerr.KindMalformed, "container.xml has no root element")
	}
	for _, rootfiles := range root.SelectElements("rootfiles") {
		for _, rootfile := range rootfiles.SelectElements("rootfile") {
			if p := rootfile.SelectAttrValue("full-path", ""); p != "" {
				return p, nil
			}
		}
	}
	return "", bookerr.New(bookerr.KindMalformed, "container.xml declares no rootfile with a full-path")
}
