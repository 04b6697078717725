package shelf

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Defaults holds the field values used when a container does not provide
// its own. Obtain it with DefaultFields.
type Defaults struct {
	Author              string
	Description         string
	FallbackDescription string
	Language            string
	Publisher           string
	Preview             string
	FallbackPreview     string
	UntitledBook        string
}

var defaults = Defaults{
	Author:              "Unknown Author",
	Description:         "EPUB book uploaded successfully.",
	FallbackDescription: "EPUB file uploaded. Metadata extraction was limited.",
	Language:            "en",
	Publisher:           "",
	Preview:             "Start reading to view content.",
	FallbackPreview:     "Content available when reading.",
	UntitledBook:        "Untitled Book",
}

// DefaultFields returns the default metadata values. The returned value is
// a copy; changing it has no effect on ingestion.
func DefaultFields() Defaults {
	return defaults
}

var (
	// uploadPrefixPattern matches the "<id>-<timestamp>-" prefix that
	// uploads are stored under.
	uploadPrefixPattern = regexp.MustCompile(`^\d+-\d+-`)
	separatorPattern    = regexp.MustCompile(`[-_]`)
	wordStartPattern    = regexp.MustCompile(`\b\w`)
)

// TitleFromFilename derives a readable title from a stored container path:
// the numeric upload prefix is dropped, separators become spaces and every
// word is capitalised. It returns "Untitled Book" if nothing is left.
func TitleFromFilename(path string) string {
	name := filepath.Base(path)
	if ext := filepath.Ext(name); strings.EqualFold(ext, ".epub") {
		name = strings.TrimSuffix(name, ext)
	}
	name = uploadPrefixPattern.ReplaceAllString(name, "")
	name = separatorPattern.ReplaceAllString(name, " ")
	name = wordStartPattern.ReplaceAllStringFunc(name, strings.ToUpper)
	name = strings.TrimSpace(name)
	if name == "" || name == "." {
		return defaults.UntitledBook
	}
	return name
}
