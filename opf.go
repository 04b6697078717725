package shelf

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Field names a bibliographic field read from the descriptor document.
type Field string

// Descriptor fields, in the order they are extracted.
const (
	FieldTitle       Field = "title"
	FieldAuthor      Field = "author"
	FieldDescription Field = "description"
	FieldLanguage    Field = "language"
	FieldPublisher   Field = "publisher"
	FieldDate        Field = "date"
	FieldGenre       Field = "genre"
)

// fieldMatcher pairs a field with the pattern whose first capture is its value.
type fieldMatcher struct {
	Field   Field
	Pattern *regexp.Regexp
}

// dcElement builds a case-insensitive matcher for a Dublin Core element.
// Any namespace prefix and any attributes are accepted.
func dcElement(local string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?i)<(?:[\w.-]+:)?%[1]s\b[^>]*>([^<]+)</(?:[\w.-]+:)?%[1]s\s*>`, local))
}

// descriptorFields is the lenient field scan applied to descriptor text.
// Descriptors vary in namespace prefixes and attribute order, so values are
// taken from the first matching tag rather than from a strict schema.
var descriptorFields = []fieldMatcher{
	{FieldTitle, dcElement("title")},
	{FieldAuthor, dcElement("creator")},
	{FieldDescription, dcElement("description")},
	{FieldLanguage, dcElement("language")},
	{FieldPublisher, dcElement("publisher")},
	{FieldDate, dcElement("date")},
	{FieldGenre, dcElement("subject")},
}

// extractFields runs the matcher table over text. Only fields with a
// non-empty, trimmed value are present in the result.
func extractFields(text string) map[Field]string {
	out := make(map[Field]string, len(descriptorFields))
	for _, m := range descriptorFields {
		match := m.Pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		if v := strings.TrimSpace(html.UnescapeString(match[1])); v != "" {
			out[m.Field] = v
		}
	}
	return out
}

// findDescriptor picks the descriptor entry. When several .opf entries
// exist, the rootfile named by container.xml wins, then a name containing
// "content.opf", then the first in directory order.
func findDescriptor(c *Container) (Entry, bool) {
	candidates := c.EntriesOfKind(KindDescriptor)
	if len(candidates) == 0 {
		return Entry{}, false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	if root := c.rootfilePath(); root != "" {
		for _, e := range candidates {
			if strings.EqualFold(e.Name, root) {
				return e, true
			}
		}
	}
	for _, e := range candidates {
		if strings.Contains(strings.ToLower(e.Name), "content.opf") {
			return e, true
		}
	}
	return candidates[0], true
}

// readDescriptor locates the descriptor and extracts its fields.
// A missing or unreadable descriptor yields no fields.
func (e *Engine) readDescriptor(c *Container) map[Field]string {
	entry, ok := findDescriptor(c)
	if !ok {
		return nil
	}
	data, err := c.ReadEntry(entry.Name)
	if err != nil {
		e.log.Warn("descriptor unreadable", "entry", entry.Name, "error", err)
		return nil
	}
	return extractFields(decodeText(data))
}

// publishDateLayouts are the dc:date forms accepted, most specific first.
var publishDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// parsePublishDate parses a dc:date value. ok is false if no layout fits.
func parsePublishDate(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	for _, layout := range publishDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
