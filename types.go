package shelf

import "time"

// EntryKind classifies a container entry by its name.
type EntryKind int

const (
	// KindOther is any entry not covered by another kind.
	KindOther EntryKind = iota

	// KindDescriptor is a package descriptor document (.opf).
	KindDescriptor

	// KindNavigation is a legacy navigation-control document (.ncx).
	KindNavigation

	// KindMarkup is a markup-content document (.html, .xhtml, .htm).
	KindMarkup

	// KindImage is an image resource.
	KindImage
)

// String returns the lowercase name of the kind.
func (k EntryKind) String() string {
	switch k {
	case KindDescriptor:
		return "descriptor"
	case KindNavigation:
		return "navigation"
	case KindMarkup:
		return "markup"
	case KindImage:
		return "image"
	default:
		return "other"
	}
}

// Entry is a named member of a container. Content is read on demand with
// Container.ReadEntry.
type Entry struct {
	// Name is the zip-internal path of the entry.
	Name string

	// Size is the declared uncompressed size in bytes.
	Size uint64

	// Kind is inferred from the entry name.
	Kind EntryKind
}

// TOCEntry is one row of a book's table of contents.
type TOCEntry struct {
	// Title is the display text of the row.
	Title string `json:"title"`

	// Href is the content reference from the navigation document.
	// It is empty for synthetic rows and for NCX labels.
	Href string `json:"href"`

	// Chapter is the 1-based chapter number, assigned in scan order.
	Chapter int `json:"chapter"`
}

// Bundle is the result of ingesting a container. It is produced once and
// handed to the caller for storage; the engine never mutates it afterwards.
//
// TotalChapters always equals len(TableOfContents) and is at least 1.
type Bundle struct {
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	Description     string     `json:"description"`
	Language        string     `json:"language"`
	Publisher       string     `json:"publisher"`
	PublishDate     time.Time  `json:"publishDate"`
	Genre           string     `json:"genre,omitempty"`
	CoverImage      string     `json:"coverImage,omitempty"`
	TableOfContents []TOCEntry `json:"tableOfContents"`
	TotalChapters   int        `json:"totalChapters"`
	ExtractedText   string     `json:"extractedText"`

	// Warnings lists non-fatal problems found while ingesting,
	// such as DRM markers.
	Warnings []string `json:"warnings,omitempty"`
}

// ChapterStatus tells whether a ChapterRef carries real content or a
// placeholder.
type ChapterStatus int

const (
	// ChapterOK means Content is the sanitized markup of the chapter.
	ChapterOK ChapterStatus = iota

	// ChapterNotFound means the index was outside the chapter range.
	ChapterNotFound

	// ChapterEmpty means sanitization left nothing to display.
	ChapterEmpty

	// ChapterUnreadable means the container or the entry could not be read.
	ChapterUnreadable
)

// String returns a short name for the status.
func (s ChapterStatus) String() string {
	switch s {
	case ChapterOK:
		return "ok"
	case ChapterNotFound:
		return "not-found"
	case ChapterEmpty:
		return "empty"
	case ChapterUnreadable:
		return "unreadable"
	default:
		return "unknown"
	}
}

// ChapterRef is the result of retrieving one chapter. It is built fresh on
// every request. When Status is not ChapterOK, Content holds a placeholder
// paragraph so a reading UI can always render something.
type ChapterRef struct {
	ChapterIndex int           `json:"chapterIndex"`
	Title        string        `json:"title"`
	Content      string        `json:"content"`
	Status       ChapterStatus `json:"-"`
}

// Found reports whether the reference carries real chapter content.
func (c ChapterRef) Found() bool {
	return c.Status == ChapterOK
}

// Bookmark is a reader's saved position. The engine passes bookmarks
// through untouched; they are indexed against chapter numbers from the
// table of contents.
type Bookmark struct {
	Chapter   int       `json:"chapter"`
	Position  string    `json:"position"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"createdAt"`
}
