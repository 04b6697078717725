package shelf

import (
	"fmt"
	"log/slog"
	"time"
)

// Config controls an Engine. The zero value is usable; DefaultConfig
// documents the defaults.
type Config struct {
	// CoverDir is where extracted cover images are written. When empty,
	// covers go to a "covers" directory next to the container.
	CoverDir string

	// CoverURLPrefix is prepended to the cover file name to form the
	// reference stored in Bundle.CoverImage.
	CoverURLPrefix string

	// MaxEntrySize caps the decompressed size of a single entry.
	MaxEntrySize int64

	// PreviewLength is the maximum number of runes of Bundle.ExtractedText.
	PreviewLength int

	// NavSelection picks between several navigation candidates.
	NavSelection NavSelection

	// Logger receives warnings about soft failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		CoverURLPrefix: "/uploads/covers",
		MaxEntrySize:   defaultMaxEntrySize,
		PreviewLength:  500,
		NavSelection:   NavFirstMatch,
	}
}

// Engine ingests containers and serves their chapters. It holds no state
// besides its configuration and is safe for concurrent use; every call
// opens and releases its own container.
type Engine struct {
	cfg Config
	log *slog.Logger
	now func() time.Time
}

// New returns an Engine for cfg. Zero fields take their DefaultConfig value.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.CoverURLPrefix == "" {
		cfg.CoverURLPrefix = def.CoverURLPrefix
	}
	if cfg.MaxEntrySize <= 0 {
		cfg.MaxEntrySize = def.MaxEntrySize
	}
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = def.PreviewLength
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg, log: log, now: time.Now}
}

// Parse ingests the container at path and returns its metadata bundle.
//
// Only a container that cannot be opened is an error (wrapping
// ErrContainerOpen). Any later failure, including a panic while reading a
// malformed entry, is absorbed into the fallback bundle: filename title,
// default fields, one synthetic chapter and no cover.
func (e *Engine) Parse(path string) (*Bundle, error) {
	c, err := openContainer(path, e.cfg.MaxEntrySize)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	b, err := e.safeParse(c, path)
	if err != nil {
		e.log.Warn("metadata extraction failed, using fallback", "path", path, "error", err)
		return e.fallbackBundle(path), nil
	}
	return b, nil
}

// safeParse runs parse inside a recovery boundary.
func (e *Engine) safeParse(c *Container, path string) (b *Bundle, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, err = nil, fmt.Errorf("shelf: panic while parsing %s: %v", path, r)
		}
	}()
	return e.parse(c, path), nil
}

func (e *Engine) parse(c *Container, path string) *Bundle {
	b := e.baseBundle(path)
	b.Description = defaults.Description
	b.ExtractedText = defaults.Preview

	fields := e.readDescriptor(c)
	applyFields(b, fields)

	toc := e.readNavigation(c)
	if len(toc) == 0 {
		toc = syntheticTOC(len(c.EntriesOfKind(KindMarkup)))
	}
	b.TableOfContents = toc
	b.TotalChapters = len(toc)

	b.CoverImage = e.extractCover(c, path)

	if text := e.previewText(c); text != "" {
		b.ExtractedText = text
	}
	b.Warnings = protectionWarnings(c)

	e.log.Debug("container parsed",
		"path", path,
		"title", b.Title,
		"chapters", b.TotalChapters,
		"cover", b.CoverImage != "",
	)
	return b
}

// applyFields copies extracted descriptor fields over the defaults in b.
func applyFields(b *Bundle, fields map[Field]string) {
	if v, ok := fields[FieldTitle]; ok {
		b.Title = v
	}
	if v, ok := fields[FieldAuthor]; ok {
		b.Author = v
	}
	if v, ok := fields[FieldDescription]; ok {
		b.Description = v
	}
	if v, ok := fields[FieldLanguage]; ok {
		b.Language = v
	}
	if v, ok := fields[FieldPublisher]; ok {
		b.Publisher = v
	}
	if v, ok := fields[FieldGenre]; ok {
		b.Genre = v
	}
	if v, ok := fields[FieldDate]; ok {
		if t, ok := parsePublishDate(v); ok {
			b.PublishDate = t
		}
	}
}

// baseBundle returns a bundle holding only defaults.
func (e *Engine) baseBundle(path string) *Bundle {
	return &Bundle{
		Title:       TitleFromFilename(path),
		Author:      defaults.Author,
		Language:    defaults.Language,
		Publisher:   defaults.Publisher,
		PublishDate: e.now(),
	}
}

// fallbackBundle is the result used when extraction fails past opening.
func (e *Engine) fallbackBundle(path string) *Bundle {
	b := e.baseBundle(path)
	b.Description = defaults.FallbackDescription
	b.ExtractedText = defaults.FallbackPreview
	b.TableOfContents = syntheticTOC(1)
	b.TotalChapters = 1
	return b
}
