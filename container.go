package shelf

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// containerXMLPath is the well-known location of container.xml in an ePub archive.
const containerXMLPath = "META-INF/container.xml"

// Container is an opened container archive. It owns the decompression state
// until Close is called. A Container is not cached between operations;
// each ingestion or chapter request opens its own.
type Container struct {
	zr       *zip.ReadCloser
	entries  []Entry
	exact    map[string]*zip.File
	lower    map[string]*zip.File
	maxEntry int64
}

// OpenContainer opens the container at path. It fails with an error wrapping
// ErrContainerOpen when the file is unreadable or is not a zip archive.
// The caller must call Close when done.
func OpenContainer(path string) (*Container, error) {
	return openContainer(path, defaultMaxEntrySize)
}

func openContainer(path string, maxEntry int64) (*Container, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrContainerOpen, path, err)
	}
	if maxEntry <= 0 {
		maxEntry = defaultMaxEntrySize
	}

	c := &Container{
		zr:       zr,
		entries:  make([]Entry, 0, len(zr.File)),
		exact:    make(map[string]*zip.File, len(zr.File)),
		lower:    make(map[string]*zip.File, len(zr.File)),
		maxEntry: maxEntry,
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		c.entries = append(c.entries, Entry{
			Name: f.Name,
			Size: f.UncompressedSize64,
			Kind: classifyEntry(f.Name),
		})
		// First match wins for both indexes.
		if _, ok := c.exact[f.Name]; !ok {
			c.exact[f.Name] = f
		}
		lower := strings.ToLower(f.Name)
		if _, ok := c.lower[lower]; !ok {
			c.lower[lower] = f
		}
	}
	return c, nil
}

// Close releases the archive. Close is idempotent.
func (c *Container) Close() error {
	if c.zr == nil {
		return nil
	}
	err := c.zr.Close()
	c.zr = nil
	return err
}

// Entries returns the entries in archive directory order. The order depends
// on the tool that wrote the archive; callers that need a stable order must
// sort.
func (c *Container) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// EntriesOfKind returns the entries of the given kind in directory order.
func (c *Container) EntriesOfKind(kind EntryKind) []Entry {
	var out []Entry
	for _, e := range c.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// ReadEntry returns the raw bytes of the named entry. The lookup tries an
// exact match first, then a case-insensitive one. It fails with
// ErrEntryNotFound when no entry matches.
func (c *Container) ReadEntry(name string) ([]byte, error) {
	f := c.exact[name]
	if f == nil {
		f = c.lower[strings.ToLower(name)]
	}
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	return readZipFile(f, c.maxEntry)
}

// rootfilePath returns the full-path of the package document named in
// META-INF/container.xml, preferring a rootfile with the OPF media type.
// It returns "" when container.xml is absent or unusable.
func (c *Container) rootfilePath() string {
	data, err := c.ReadEntry(containerXMLPath)
	if err != nil {
		return ""
	}
	doc, err := xmlquery.Parse(bytes.NewReader(stripBOM(data)))
	if err != nil {
		return ""
	}

	var fallback string
	for _, rf := range xmlquery.Find(doc, "//*[local-name()='rootfile']") {
		fullPath := strings.TrimSpace(rf.SelectAttr("full-path"))
		if fullPath == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(rf.SelectAttr("media-type")), "application/oebps-package+xml") {
			return fullPath
		}
		if fallback == "" {
			fallback = fullPath
		}
	}
	return fallback
}
