package shelf

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// NavSelection decides which navigation candidate is parsed when a
// container has several.
type NavSelection int

const (
	// NavFirstMatch parses the first candidate in directory order.
	NavFirstMatch NavSelection = iota

	// NavRanked prefers a .ncx document, then a name containing "nav",
	// then any other candidate, keeping directory order within each rank.
	NavRanked
)

// isNavCandidate reports whether an entry name looks like a navigation
// document: it contains "nav" or "toc", or ends in ".ncx".
func isNavCandidate(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "nav") ||
		strings.Contains(lower, "toc") ||
		strings.HasSuffix(lower, ".ncx")
}

func navRank(name string) int {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".ncx"):
		return 0
	case strings.Contains(lower, "nav"):
		return 1
	default:
		return 2
	}
}

// findNavigation returns the navigation entry to parse, if any.
func findNavigation(entries []Entry, sel NavSelection) (Entry, bool) {
	var (
		best  Entry
		found bool
	)
	for _, e := range entries {
		if !isNavCandidate(e.Name) {
			continue
		}
		if sel == NavFirstMatch {
			return e, true
		}
		if !found || navRank(e.Name) < navRank(best.Name) {
			best, found = e, true
		}
	}
	return best, found
}

// navLabelPattern captures the text of every navLabel/text pairing.
var navLabelPattern = regexp.MustCompile(`(?is)<navLabel\b[^>]*>.*?<text\b[^>]*>([^<]+)</text>`)

// parseNavLabels scans navigation text for navLabel/text pairings and
// numbers them from 1 in scan order.
func parseNavLabels(text string) []TOCEntry {
	matches := navLabelPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	rows := make([]TOCEntry, 0, len(matches))
	for i, m := range matches {
		title := strings.TrimSpace(html.UnescapeString(m[1]))
		if title == "" {
			title = syntheticTitle(i + 1)
		}
		rows = append(rows, TOCEntry{Title: title, Chapter: i + 1})
	}
	return rows
}

// parseNavAnchors reads the <nav epub:type="toc"> list of an XHTML
// navigation document and returns one row per anchor, depth first.
func parseNavAnchors(data []byte) ([]TOCEntry, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("shelf: parse nav document: %w", err)
	}

	nav := findNode(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "nav" && hasEpubType(n, "toc")
	})
	if nav == nil {
		return nil, nil
	}

	var rows []TOCEntry
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if title := strings.TrimSpace(collapseWhitespace(nodeTextContent(n))); title != "" {
				rows = append(rows, TOCEntry{
					Title:   title,
					Href:    getAttr(n, "href"),
					Chapter: len(rows) + 1,
				})
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(nav)
	return rows, nil
}

// readNavigation extracts table-of-contents rows from the selected
// navigation entry. It returns nil when there is no usable candidate.
func (e *Engine) readNavigation(c *Container) []TOCEntry {
	entry, ok := findNavigation(c.Entries(), e.cfg.NavSelection)
	if !ok {
		return nil
	}
	data, err := c.ReadEntry(entry.Name)
	if err != nil {
		e.log.Warn("navigation document unreadable", "entry", entry.Name, "error", err)
		return nil
	}

	if rows := parseNavLabels(decodeText(data)); len(rows) > 0 {
		return rows
	}
	if entry.Kind != KindMarkup {
		return nil
	}
	rows, err := parseNavAnchors(data)
	if err != nil {
		e.log.Debug("nav document not parsed", "entry", entry.Name, "error", err)
		return nil
	}
	return rows
}

// syntheticTOC builds one "Chapter n" row per markup entry, with at least
// one row.
func syntheticTOC(markupCount int) []TOCEntry {
	n := max(markupCount, 1)
	rows := make([]TOCEntry, n)
	for i := range rows {
		rows[i] = TOCEntry{Title: syntheticTitle(i + 1), Chapter: i + 1}
	}
	return rows
}

func syntheticTitle(n int) string {
	return fmt.Sprintf("Chapter %d", n)
}

// hasEpubType checks whether n has an epub:type attribute containing the
// given token.
func hasEpubType(n *html.Node, typeName string) bool {
	for _, t := range strings.Fields(getAttr(n, "epub:type")) {
		if t == typeName {
			return true
		}
	}
	return false
}

// getAttr returns the value of the attribute with the given key on n.
func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key || (a.Namespace != "" && a.Namespace+":"+a.Key == key) {
			return a.Val
		}
	}
	return ""
}

// findNode performs a depth-first search for the first node matching fn.
func findNode(n *html.Node, fn func(*html.Node) bool) *html.Node {
	if fn(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, fn); found != nil {
			return found
		}
	}
	return nil
}

// nodeTextContent recursively collects all text content within a node.
func nodeTextContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeTextContent(c))
	}
	return sb.String()
}
