package shelf

import (
	"archive/zip"
	"bytes"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// zipEntry is one file of a test archive. Order is preserved when written.
type zipEntry struct {
	Name    string
	Content string
}

// buildTestZipBytes creates an in-memory zip archive from entries, in order.
func buildTestZipBytes(t testing.TB, entries []zipEntry) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, e := range entries {
		fw, err := zw.Create(e.Name)
		if err != nil {
			t.Fatalf("buildTestZipBytes: create %s: %v", e.Name, err)
		}
		if _, err := io.WriteString(fw, e.Content); err != nil {
			t.Fatalf("buildTestZipBytes: write %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("buildTestZipBytes: close writer: %v", err)
	}
	return buf.Bytes()
}

// buildTestEPubFile writes the entries as a zip archive named name inside a
// fresh temporary directory and returns its path.
func buildTestEPubFile(t *testing.T, name string, entries []zipEntry) string {
	t.Helper()
	fp := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(fp, buildTestZipBytes(t, entries), 0644); err != nil {
		t.Fatalf("buildTestEPubFile: write file: %v", err)
	}
	return fp
}

// openTestContainer builds an archive and opens it, closing it at cleanup.
func openTestContainer(t *testing.T, entries []zipEntry) *Container {
	t.Helper()
	c, err := OpenContainer(buildTestEPubFile(t, "test.epub", entries))
	if err != nil {
		t.Fatalf("OpenContainer: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// newTestEngine returns an engine writing covers under a temporary
// directory and discarding logs.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(Config{
		CoverDir: filepath.Join(t.TempDir(), "covers"),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

// listFiles returns the names of the regular files in dir.
func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	var names []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			names = append(names, d.Name())
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("listFiles: %v", err)
	}
	return names
}

const testContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:title>Sample</dc:title>
    <dc:creator opf:role="aut" opf:file-as="Doe, Jane">Jane Doe</dc:creator>
    <dc:language>fr</dc:language>
    <dc:publisher>Quill &amp; Ink</dc:publisher>
    <dc:date>2019-05-04</dc:date>
    <dc:subject>Fiction</dc:subject>
    <dc:description>
      A short book used in tests.
    </dc:description>
  </metadata>
</package>`

const testNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="np1" playOrder="1">
      <navLabel>
        <text>Loomings</text>
      </navLabel>
      <content src="chapter01.xhtml"/>
    </navPoint>
    <navPoint id="np2" playOrder="2">
      <navLabel><text>The Carpet-Bag</text></navLabel>
      <content src="chapter02.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

func chapterXHTML(title, body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en">
<head>
  <title>` + title + `</title>
  <meta charset="utf-8"/>
  <link rel="stylesheet" href="style.css"/>
</head>
<body>
` + body + `
</body>
</html>`
}
