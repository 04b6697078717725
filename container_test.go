package shelf

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenContainer_NotAZip(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "broken.epub")
	if err := os.WriteFile(fp, []byte("this is not a zip archive"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := OpenContainer(fp)
	if !errors.Is(err, ErrContainerOpen) {
		t.Fatalf("error = %v, want wrapped ErrContainerOpen", err)
	}
}

func TestOpenContainer_MissingFile(t *testing.T) {
	_, err := OpenContainer(filepath.Join(t.TempDir(), "nope.epub"))
	if !errors.Is(err, ErrContainerOpen) {
		t.Fatalf("error = %v, want wrapped ErrContainerOpen", err)
	}
}

func TestContainer_EntriesKeepDirectoryOrder(t *testing.T) {
	c := openTestContainer(t, []zipEntry{
		{"mimetype", "application/epub+zip"},
		{"OEBPS/", ""},
		{"OEBPS/content.opf", testOPF},
		{"OEBPS/b.xhtml", "<p>b</p>"},
		{"OEBPS/a.xhtml", "<p>a</p>"},
		{"OEBPS/toc.ncx", testNCX},
		{"OEBPS/images/Cover.JPG", "jpeg"},
	})

	entries := c.Entries()
	want := []struct {
		name string
		kind EntryKind
	}{
		{"mimetype", KindOther},
		{"OEBPS/content.opf", KindDescriptor},
		{"OEBPS/b.xhtml", KindMarkup},
		{"OEBPS/a.xhtml", KindMarkup},
		{"OEBPS/toc.ncx", KindNavigation},
		{"OEBPS/images/Cover.JPG", KindImage},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(entries), len(want), entries)
	}
	for i, w := range want {
		if entries[i].Name != w.name || entries[i].Kind != w.kind {
			t.Errorf("entries[%d] = {%q, %v}, want {%q, %v}", i, entries[i].Name, entries[i].Kind, w.name, w.kind)
		}
	}
}

func TestContainer_EntriesReturnsCopy(t *testing.T) {
	c := openTestContainer(t, []zipEntry{{"a.xhtml", "<p/>"}})

	entries := c.Entries()
	entries[0].Name = "mutated"
	if got := c.Entries()[0].Name; got != "a.xhtml" {
		t.Errorf("Entries()[0].Name = %q after mutating a copy", got)
	}
}

func TestContainer_ReadEntry(t *testing.T) {
	c := openTestContainer(t, []zipEntry{
		{"OEBPS/Chapter1.xhtml", "<p>one</p>"},
	})

	tests := []struct {
		name    string
		lookup  string
		want    string
		wantErr error
	}{
		{"exact", "OEBPS/Chapter1.xhtml", "<p>one</p>", nil},
		{"case-insensitive", "oebps/chapter1.XHTML", "<p>one</p>", nil},
		{"missing", "OEBPS/chapter2.xhtml", "", ErrEntryNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := c.ReadEntry(tt.lookup)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadEntry: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("ReadEntry = %q, want %q", data, tt.want)
			}
		})
	}
}

func TestContainer_ReadEntryRespectsLimit(t *testing.T) {
	fp := buildTestEPubFile(t, "big.epub", []zipEntry{
		{"big.xhtml", strings.Repeat("x", 2048)},
	})
	c, err := openContainer(fp, 1024)
	if err != nil {
		t.Fatalf("openContainer: %v", err)
	}
	defer c.Close()

	if _, err := c.ReadEntry("big.xhtml"); err == nil {
		t.Fatal("expected size limit error, got nil")
	}
}

func TestContainer_CloseIdempotent(t *testing.T) {
	c, err := OpenContainer(buildTestEPubFile(t, "x.epub", []zipEntry{{"a.html", ""}}))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestContainer_RootfilePath(t *testing.T) {
	tests := []struct {
		name      string
		container string
		want      string
	}{
		{"normal", testContainerXML, "OEBPS/content.opf"},
		{
			"prefers package media type",
			`<container xmlns="urn:oasis:names:tc:opendocument:xmlns:container"><rootfiles>
<rootfile full-path="OPS/preview.opf" media-type="application/x-preview+xml"/>
<rootfile full-path="OPS/book.opf" media-type="application/oebps-package+xml"/>
</rootfiles></container>`,
			"OPS/book.opf",
		},
		{
			"first non-empty fallback",
			`<container><rootfiles>
<rootfile full-path="" media-type="application/oebps-package+xml"/>
<rootfile full-path="OPS/other.opf" media-type="text/plain"/>
</rootfiles></container>`,
			"OPS/other.opf",
		},
		{"with BOM", "\xEF\xBB\xBF" + testContainerXML, "OEBPS/content.opf"},
		{"malformed", "<container><rootfiles>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := openTestContainer(t, []zipEntry{{"META-INF/container.xml", tt.container}})
			if got := c.rootfilePath(); got != tt.want {
				t.Errorf("rootfilePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContainer_RootfilePathMissing(t *testing.T) {
	c := openTestContainer(t, []zipEntry{{"content.opf", testOPF}})
	if got := c.rootfilePath(); got != "" {
		t.Errorf("rootfilePath() = %q, want empty", got)
	}
}
