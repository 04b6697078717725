package shelf

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// defaultMaxEntrySize is the maximum allowed decompressed size for a single
// zip entry. This guards against zip bomb attacks.
const defaultMaxEntrySize int64 = 256 * 1024 * 1024

var (
	markupExts = []string{".xhtml", ".html", ".htm"}
	imageExts  = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
)

// classifyEntry infers the kind of an entry from its name.
// Markup wins over navigation so that an XHTML nav document is still
// counted as content, matching how chapters are enumerated.
func classifyEntry(name string) EntryKind {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".opf"):
		return KindDescriptor
	case hasAnySuffix(lower, imageExts):
		return KindImage
	case hasAnySuffix(lower, markupExts):
		return KindMarkup
	case strings.HasSuffix(lower, ".ncx"):
		return KindNavigation
	default:
		return KindOther
	}
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

// isSafePath checks whether p is a safe zip-internal path that does not
// escape the archive root via path traversal (e.g., "../../../etc/passwd").
func isSafePath(p string) bool {
	cleaned := path.Clean(p)
	if strings.HasPrefix(cleaned, "/") {
		return false
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	return true
}

// stripBOM removes a leading UTF-8 BOM (0xEF 0xBB 0xBF) from data, if present.
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// readZipFile reads the full contents of a zip entry, refusing entries with
// unsafe names or a decompressed size above limit.
func readZipFile(f *zip.File, limit int64) ([]byte, error) {
	if !isSafePath(f.Name) {
		return nil, fmt.Errorf("shelf: unsafe zip entry path: %s", f.Name)
	}

	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("shelf: zip entry %s too large: %d bytes (max %d)", f.Name, f.UncompressedSize64, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("shelf: open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	// The declared size may be forged; read one byte past the limit to tell.
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("shelf: read zip entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("shelf: zip entry %s decompressed size exceeds limit (%d bytes)", f.Name, limit)
	}

	return data, nil
}

var xmlEncodingPattern = regexp.MustCompile(`(?i)<\?xml[^>]*encoding\s*=\s*["']([^"']+)["']`)

// decodeText returns data as a UTF-8 string. Valid UTF-8 is returned as is;
// otherwise the XML prolog's encoding label is honoured, falling back to
// charset sniffing.
func decodeText(data []byte) string {
	data = stripBOM(data)
	if utf8.Valid(data) {
		return string(data)
	}

	if m := xmlEncodingPattern.FindSubmatch(data); m != nil {
		if enc, _ := charset.Lookup(string(m[1])); enc != nil {
			if out, err := enc.NewDecoder().Bytes(data); err == nil {
				return string(out)
			}
		}
	}

	enc, _, _ := charset.DetermineEncoding(data, "text/html")
	if out, err := enc.NewDecoder().Bytes(data); err == nil {
		return string(out)
	}
	return string(data)
}
