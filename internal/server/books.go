package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/simp-lee/shelf"
	"github.com/simp-lee/shelf/internal/logging"
	"github.com/simp-lee/shelf/internal/store"
)

// listBooks handles GET /api/books
func (s *Server) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.books.List(r.Context(), userFrom(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// listFavorites handles GET /api/books/favorites
func (s *Server) listFavorites(w http.ResponseWriter, r *http.Request) {
	books, err := s.books.ListFavorites(r.Context(), userFrom(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// ownedBook loads the {id} book and checks it belongs to the caller. It
// writes the error response itself and returns nil on failure.
func (s *Server) ownedBook(w http.ResponseWriter, r *http.Request) *store.Book {
	b, err := s.books.Get(r.Context(), chi.URLParam(r, "id"))
	if err == nil && b.UserID != userFrom(r) {
		err = store.ErrNotFound
	}
	if err != nil {
		writeStoreError(w, err)
		return nil
	}
	return b
}

// updateBook handles PUT /api/books/{id}
func (s *Server) updateBook(w http.ResponseWriter, r *http.Request) {
	var u store.BookUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	b := s.ownedBook(w, r)
	if b == nil {
		return
	}

	updated, err := s.books.Update(r.Context(), b.ID, u)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// toggleFavorite handles PUT /api/books/{id}/favorite
func (s *Server) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	b := s.ownedBook(w, r)
	if b == nil {
		return
	}

	fav, err := s.books.ToggleFavorite(r.Context(), b.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	msg := "Removed from favorites"
	if fav {
		msg = "Added to favorites"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    msg,
		"isFavorite": fav,
	})
}

// deleteBook handles DELETE /api/books/{id}. The container and its cover
// are removed along with the record.
func (s *Server) deleteBook(w http.ResponseWriter, r *http.Request) {
	b := s.ownedBook(w, r)
	if b == nil {
		return
	}

	if err := s.books.Delete(r.Context(), b.ID); err != nil {
		writeStoreError(w, err)
		return
	}
	s.removeFile(r, b.EpubPath)
	if b.CoverImage != "" {
		s.removeFile(r, filepath.Join(s.cfg.CoverDir, path.Base(b.CoverImage)))
	}

	logging.BookEvent(r.Context(), "deleted", b.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Book deleted"})
}

func (s *Server) removeFile(r *http.Request, name string) {
	if name == "" {
		return
	}
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.LoggerFromContext(r.Context()).Warn("removing file failed", "path", name, "error", err)
	}
}

// readingView is the reader's view of a book.
type readingView struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Author          string           `json:"author"`
	CurrentChapter  int              `json:"currentChapter"`
	CurrentPosition string           `json:"currentPosition"`
	TotalChapters   int              `json:"totalChapters"`
	TableOfContents []shelf.TOCEntry `json:"tableOfContents"`
	Bookmarks       []shelf.Bookmark `json:"bookmarks"`
	EpubPath        string           `json:"epubPath"`
}

// readBook handles GET /api/books/{id}/read
func (s *Server) readBook(w http.ResponseWriter, r *http.Request) {
	b := s.ownedBook(w, r)
	if b == nil {
		return
	}
	writeJSON(w, http.StatusOK, readingView{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		CurrentChapter:  b.CurrentChapter,
		CurrentPosition: b.CurrentPosition,
		TotalChapters:   b.TotalChapters,
		TableOfContents: b.TableOfContents,
		Bookmarks:       b.Bookmarks,
		EpubPath:        b.EpubPath,
	})
}

// chapter handles GET /api/books/{id}/chapter/{chapterIndex}. A
// non-numeric index reads as 0.
func (s *Server) chapter(w http.ResponseWriter, r *http.Request) {
	b := s.ownedBook(w, r)
	if b == nil {
		return
	}

	index, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "chapterIndex")))
	if err != nil {
		index = 0
	}

	ref := s.engine.Chapter(b.EpubPath, index)
	if ref.Status == shelf.ChapterUnreadable {
		logging.LoggerFromContext(r.Context()).Warn("chapter unreadable", "book_id", b.ID, "chapter", index)
	}
	if s.cfg.SanitizeHTML && ref.Found() {
		ref.Content = s.policy.Sanitize(ref.Content)
	}
	writeJSON(w, http.StatusOK, ref)
}
