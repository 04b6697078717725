package shelf

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// findCover returns the first image entry whose name contains "cover",
// case-insensitively.
func findCover(entries []Entry) (Entry, bool) {
	for _, e := range entries {
		if e.Kind == KindImage && containsFold(e.Name, "cover") {
			return e, true
		}
	}
	return Entry{}, false
}

// coverFileName derives the stored cover file name from the container's
// file name, keeping the image's extension.
func coverFileName(containerPath, imageName string) string {
	base := filepath.Base(containerPath)
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".epub") {
		base = strings.TrimSuffix(base, ext)
	}
	return base + "-cover" + strings.ToLower(path.Ext(imageName))
}

// extractCover writes the cover image of c, if any, to the configured
// cover directory and returns its public reference. Every failure is
// logged and reported as "no cover".
func (e *Engine) extractCover(c *Container, containerPath string) string {
	entry, ok := findCover(c.Entries())
	if !ok {
		return ""
	}
	data, err := c.ReadEntry(entry.Name)
	if err != nil {
		e.log.Warn("cover image unreadable", "entry", entry.Name, "error", err)
		return ""
	}

	name := coverFileName(containerPath, entry.Name)
	if err := writeCover(e.coverDir(containerPath), name, data); err != nil {
		e.log.Warn("cover image not written", "entry", entry.Name, "error", err)
		return ""
	}
	return strings.TrimSuffix(e.cfg.CoverURLPrefix, "/") + "/" + name
}

// coverDir returns the configured cover directory, or a "covers"
// directory next to the container when none is configured.
func (e *Engine) coverDir(containerPath string) string {
	if e.cfg.CoverDir != "" {
		return e.cfg.CoverDir
	}
	return filepath.Join(filepath.Dir(containerPath), "covers")
}

// writeCover writes the complete image buffer before returning.
func writeCover(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("shelf: create cover directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("shelf: write cover: %w", err)
	}
	return nil
}

// containsFold reports whether s contains substr, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
