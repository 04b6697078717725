package shelf

import (
	"sort"
	"strings"
)

// Placeholder content returned instead of a chapter body.
const (
	PlaceholderNotFound   = "<p>Chapter not found.</p>"
	PlaceholderEmpty      = "<p>Chapter content could not be loaded.</p>"
	PlaceholderUnreadable = "<p>Error loading chapter content.</p>"
)

// markupEntries returns the markup-content entries sorted by name. This
// ordering defines chapter indexes; it is rebuilt on every call and is only
// as stable as the entry names.
func markupEntries(c *Container) []Entry {
	entries := c.EntriesOfKind(KindMarkup)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Chapter returns the sanitized content of the chapter at the 0-based index
// of the container at path. It never fails: an unknown index, an unreadable
// container or an empty chapter yields a placeholder, and Status tells
// which.
func (e *Engine) Chapter(path string, index int) ChapterRef {
	ref := ChapterRef{
		ChapterIndex: index,
		Title:        syntheticTitle(index + 1),
	}

	c, err := openContainer(path, e.cfg.MaxEntrySize)
	if err != nil {
		e.log.Warn("chapter container unreadable", "path", path, "error", err)
		return ref.placeholder(ChapterUnreadable)
	}
	defer c.Close()

	entries := markupEntries(c)
	if index < 0 || index >= len(entries) {
		return ref.placeholder(ChapterNotFound)
	}

	data, err := c.ReadEntry(entries[index].Name)
	if err != nil {
		e.log.Warn("chapter entry unreadable", "path", path, "entry", entries[index].Name, "error", err)
		return ref.placeholder(ChapterUnreadable)
	}

	ref.Content = sanitizeChapter(decodeText(data))
	if ref.Content == "" {
		return ref.placeholder(ChapterEmpty)
	}
	ref.Status = ChapterOK
	return ref
}

func (r ChapterRef) placeholder(status ChapterStatus) ChapterRef {
	r.Status = status
	switch status {
	case ChapterNotFound:
		r.Content = PlaceholderNotFound
	case ChapterEmpty:
		r.Content = PlaceholderEmpty
	default:
		r.Content = PlaceholderUnreadable
	}
	return r
}

// previewText returns the plain text of the first chapter, shortened to
// limit runes. It returns "" when there is nothing to show.
func (e *Engine) previewText(c *Container) string {
	entries := markupEntries(c)
	if len(entries) == 0 {
		return ""
	}
	data, err := c.ReadEntry(entries[0].Name)
	if err != nil {
		return ""
	}
	text, err := extractText([]byte(decodeText(data)))
	if err != nil {
		return ""
	}
	return truncateRunes(strings.TrimSpace(text), e.cfg.PreviewLength)
}
