package server

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/zeebo/blake3"

	"github.com/simp-lee/shelf"
	"github.com/simp-lee/shelf/internal/logging"
	"github.com/simp-lee/shelf/internal/store"
)

const (
	uploadField   = "epub"
	epubMediaType = "application/epub+zip"
)

// acceptUpload reports whether the part looks like an ePub by media type
// or extension.
func acceptUpload(h *multipart.FileHeader) bool {
	return h.Header.Get("Content-Type") == epubMediaType ||
		strings.EqualFold(filepath.Ext(h.Filename), ".epub")
}

// storedName returns the on-disk name of an upload:
// <unix-ms>-<random>-<original base name>.
func storedName(original string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	if base == "." || base == "/" {
		base = "book.epub"
	}
	return fmt.Sprintf("%d-%d-%s", now.UnixMilli(), rand.Intn(1e9), base)
}

// saveUpload copies src into dir/name and returns the path and the blake3
// hash of the content.
func saveUpload(src io.Reader, dir, name string) (string, string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("creating upload directory: %w", err)
	}
	dst := filepath.Join(dir, name)
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", "", fmt.Errorf("creating upload file: %w", err)
	}

	h := blake3.New()
	_, err = io.Copy(io.MultiWriter(f, h), src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return "", "", fmt.Errorf("writing upload file: %w", err)
	}
	return dst, hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Server) tooLarge(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest,
		fmt.Sprintf("File too large. Maximum size is %s.", humanize.IBytes(uint64(s.cfg.MaxUploadSize))))
}

// uploadBook handles POST /api/books/upload
func (s *Server) uploadBook(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.tooLarge(w)
			return
		}
		writeError(w, http.StatusBadRequest, "No EPUB file uploaded")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No EPUB file uploaded")
		return
	}
	defer file.Close()

	if !acceptUpload(header) {
		writeError(w, http.StatusBadRequest, "Only EPUB files are allowed!")
		return
	}
	if header.Size > s.cfg.MaxUploadSize {
		s.tooLarge(w)
		return
	}

	path, hash, err := saveUpload(file, s.cfg.BooksDir, storedName(header.Filename, time.Now()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store EPUB file: "+err.Error())
		return
	}

	bundle, err := s.engine.Parse(path)
	if err != nil {
		s.removeFile(r, path)
		writeError(w, http.StatusInternalServerError, "Failed to process EPUB file: "+err.Error())
		return
	}

	book := bookFromBundle(userFrom(r), path, hash, bundle)
	if err := s.books.Create(r.Context(), book); err != nil {
		s.removeFile(r, path)
		writeError(w, http.StatusInternalServerError, "Failed to process EPUB file: "+err.Error())
		return
	}

	logging.BookEvent(r.Context(), "uploaded", book.ID,
		"title", book.Title,
		"chapters", book.TotalChapters,
		"size", humanize.IBytes(uint64(header.Size)),
		"warnings", bundle.Warnings,
	)
	writeJSON(w, http.StatusCreated, book)
}

// bookFromBundle builds a new record from an ingestion result.
func bookFromBundle(userID, path, hash string, b *shelf.Bundle) *store.Book {
	book := &store.Book{
		UserID:          userID,
		Title:           b.Title,
		Author:          b.Author,
		Description:     b.Description,
		EpubPath:        path,
		CoverImage:      b.CoverImage,
		Genre:           b.Genre,
		Language:        b.Language,
		Publisher:       b.Publisher,
		TotalChapters:   b.TotalChapters,
		TableOfContents: b.TableOfContents,
		ExtractedText:   b.ExtractedText,
		ContentHash:     hash,
	}
	if !b.PublishDate.IsZero() {
		d := b.PublishDate
		book.PublishDate = &d
	}
	return book
}
