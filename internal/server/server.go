// Package server exposes the book library over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/microcosm-cc/bluemonday"

	"github.com/simp-lee/shelf"
	"github.com/simp-lee/shelf/internal/logging"
	"github.com/simp-lee/shelf/internal/store"
)

// UserHeader carries the opaque identity of the caller.
const UserHeader = "X-User-ID"

// Config controls the HTTP surface.
type Config struct {
	// BooksDir receives uploaded containers.
	BooksDir string
	// CoverDir is served under /uploads/covers/. It should match the
	// engine's CoverDir.
	CoverDir string
	// MaxUploadSize caps the size of an uploaded file in bytes.
	MaxUploadSize int64
	// SanitizeHTML applies a display policy to chapter content.
	SanitizeHTML bool
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		BooksDir:      "uploads/books",
		CoverDir:      "uploads/covers",
		MaxUploadSize: 50 << 20,
		SanitizeHTML:  true,
	}
}

// Server holds the HTTP handler dependencies.
type Server struct {
	cfg    Config
	engine *shelf.Engine
	books  *store.Store
	policy *bluemonday.Policy
	router chi.Router
}

// New builds a Server and its routes.
func New(cfg Config, engine *shelf.Engine, books *store.Store) *Server {
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultConfig().MaxUploadSize
	}
	s := &Server{
		cfg:    cfg,
		engine: engine,
		books:  books,
		policy: bluemonday.UGCPolicy(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(logging.CombinedMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Handle("/uploads/covers/*", http.StripPrefix("/uploads/covers/", http.FileServer(http.Dir(s.cfg.CoverDir))))

	r.Route("/api/books", func(r chi.Router) {
		r.Use(requireUser)

		r.Get("/", s.listBooks)
		r.Get("/favorites", s.listFavorites)
		r.Post("/upload", s.uploadBook)
		r.Put("/{id}", s.updateBook)
		r.Delete("/{id}", s.deleteBook)
		r.Put("/{id}/favorite", s.toggleFavorite)
		r.Get("/{id}/read", s.readBook)
		r.Get("/{id}/chapter/{chapterIndex}", s.chapter)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userKey struct{}

func userFrom(r *http.Request) string {
	user, _ := r.Context().Value(userKey{}).(string)
	return user
}

// requireUser rejects requests without a user identity.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get(UserHeader)
		if user == "" {
			writeError(w, http.StatusUnauthorized, "Not authorized, no user")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeStoreError maps a store failure to a response.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
