// Package store persists ingested books and their reading state in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/simp-lee/shelf"
)

// ErrNotFound is returned when no book has the requested ID.
var ErrNotFound = errors.New("store: book not found")

// Book is a stored book: the ingestion bundle plus per-user reading state.
type Book struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	Title           string           `json:"title"`
	Author          string           `json:"author"`
	Description     string           `json:"description"`
	EpubPath        string           `json:"epubPath"`
	CoverImage      string           `json:"coverImage"`
	Genre           string           `json:"genre"`
	Language        string           `json:"language"`
	Publisher       string           `json:"publisher"`
	PublishDate     *time.Time       `json:"publishDate,omitempty"`
	TotalChapters   int              `json:"totalChapters"`
	CurrentChapter  int              `json:"currentChapter"`
	CurrentPosition string           `json:"currentPosition"`
	IsFavorite      bool             `json:"isFavorite"`
	IsCompleted     bool             `json:"isCompleted"`
	DateAdded       time.Time        `json:"dateAdded"`
	LastRead        time.Time        `json:"lastRead"`
	ReadingProgress float64          `json:"readingProgress"`
	Bookmarks       []shelf.Bookmark `json:"bookmarks"`
	ExtractedText   string           `json:"extractedText"`
	TableOfContents []shelf.TOCEntry `json:"tableOfContents"`
	ContentHash     string           `json:"contentHash,omitempty"`
}

// BookUpdate holds the reading-state fields a client may change. Nil fields
// are left untouched.
type BookUpdate struct {
	CurrentChapter  *int              `json:"currentChapter,omitempty"`
	CurrentPosition *string           `json:"currentPosition,omitempty"`
	IsFavorite      *bool             `json:"isFavorite,omitempty"`
	IsCompleted     *bool             `json:"isCompleted,omitempty"`
	ReadingProgress *float64          `json:"readingProgress,omitempty"`
	Bookmarks       *[]shelf.Bookmark `json:"bookmarks,omitempty"`
}

func (u BookUpdate) apply(b *Book) {
	if u.CurrentChapter != nil {
		b.CurrentChapter = *u.CurrentChapter
	}
	if u.CurrentPosition != nil {
		b.CurrentPosition = *u.CurrentPosition
	}
	if u.IsFavorite != nil {
		b.IsFavorite = *u.IsFavorite
	}
	if u.IsCompleted != nil {
		b.IsCompleted = *u.IsCompleted
	}
	if u.ReadingProgress != nil {
		b.ReadingProgress = *u.ReadingProgress
	}
	if u.Bookmarks != nil {
		b.Bookmarks = *u.Bookmarks
	}
}

// Store is a SQLite-backed book repository. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}
	for _, pragma := range allPragmas() {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}
	for _, stmt := range allSchemaStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts b, assigning its ID and timestamps. A zero CurrentChapter
// or TotalChapters becomes 1.
func (s *Store) Create(ctx context.Context, b *Book) error {
	now := s.now().UTC()
	b.ID = uuid.New().String()
	b.DateAdded = now
	b.LastRead = now
	if b.CurrentChapter == 0 {
		b.CurrentChapter = 1
	}
	if b.TotalChapters == 0 {
		b.TotalChapters = 1
	}
	if b.Bookmarks == nil {
		b.Bookmarks = []shelf.Bookmark{}
	}
	if b.TableOfContents == nil {
		b.TableOfContents = []shelf.TOCEntry{}
	}

	bookmarks, toc, err := marshalLists(b)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO books (` + bookColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		b.ID,
		b.UserID,
		b.Title,
		b.Author,
		b.Description,
		b.EpubPath,
		b.CoverImage,
		b.Genre,
		b.Language,
		b.Publisher,
		formatDate(b.PublishDate),
		b.TotalChapters,
		b.CurrentChapter,
		b.CurrentPosition,
		boolToInt(b.IsFavorite),
		boolToInt(b.IsCompleted),
		b.DateAdded.UnixMilli(),
		b.LastRead.UnixMilli(),
		b.ReadingProgress,
		bookmarks,
		b.ExtractedText,
		toc,
		b.ContentHash,
	)
	if err != nil {
		return fmt.Errorf("inserting book: %w", err)
	}
	return nil
}

// Get returns the book with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	return scanBook(row)
}

// List returns the user's books, most recently read first.
func (s *Store) List(ctx context.Context, userID string) ([]*Book, error) {
	return s.query(ctx, `
		SELECT `+bookColumns+`
		FROM books
		WHERE user_id = ?
		ORDER BY last_read DESC, date_added DESC
	`, userID)
}

// ListFavorites returns the user's favorite books, most recently read first.
func (s *Store) ListFavorites(ctx context.Context, userID string) ([]*Book, error) {
	return s.query(ctx, `
		SELECT `+bookColumns+`
		FROM books
		WHERE user_id = ? AND is_favorite = 1
		ORDER BY last_read DESC, date_added DESC
	`, userID)
}

// Update applies u to the book and stamps its last-read time.
func (s *Store) Update(ctx context.Context, id string, u BookUpdate) (*Book, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	b, err := scanBook(tx.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	u.apply(b)
	b.LastRead = s.now().UTC()

	bookmarks, _, err := marshalLists(b)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE books
		SET current_chapter = ?, current_position = ?, is_favorite = ?, is_completed = ?,
		    reading_progress = ?, bookmarks = ?, last_read = ?
		WHERE id = ?
	`,
		b.CurrentChapter,
		b.CurrentPosition,
		boolToInt(b.IsFavorite),
		boolToInt(b.IsCompleted),
		b.ReadingProgress,
		bookmarks,
		b.LastRead.UnixMilli(),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating book: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing update: %w", err)
	}
	return b, nil
}

// ToggleFavorite flips the favorite flag and returns its new value.
func (s *Store) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	var fav int
	err := s.db.QueryRowContext(ctx, `
		UPDATE books SET is_favorite = 1 - is_favorite WHERE id = ? RETURNING is_favorite
	`, id).Scan(&fav)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return false, fmt.Errorf("toggling favorite: %w", err)
	}
	return fav == 1, nil
}

// Delete removes the book record. The container file is the caller's
// responsibility.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting book: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*Book, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying books: %w", err)
	}
	defer rows.Close()

	books := []*Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating books: %w", err)
	}
	return books, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBook(row scanner) (*Book, error) {
	var (
		b                        Book
		publishDate              sql.NullString
		isFavorite, isCompleted  int
		dateAdded, lastRead      int64
		bookmarks, tableContents string
	)
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.Title,
		&b.Author,
		&b.Description,
		&b.EpubPath,
		&b.CoverImage,
		&b.Genre,
		&b.Language,
		&b.Publisher,
		&publishDate,
		&b.TotalChapters,
		&b.CurrentChapter,
		&b.CurrentPosition,
		&isFavorite,
		&isCompleted,
		&dateAdded,
		&lastRead,
		&b.ReadingProgress,
		&bookmarks,
		&b.ExtractedText,
		&tableContents,
		&b.ContentHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning book: %w", err)
	}

	b.IsFavorite = isFavorite == 1
	b.IsCompleted = isCompleted == 1
	b.DateAdded = time.UnixMilli(dateAdded).UTC()
	b.LastRead = time.UnixMilli(lastRead).UTC()
	if publishDate.Valid && publishDate.String != "" {
		if t, err := time.Parse(time.RFC3339, publishDate.String); err == nil {
			b.PublishDate = &t
		}
	}
	if err := json.Unmarshal([]byte(bookmarks), &b.Bookmarks); err != nil {
		return nil, fmt.Errorf("decoding bookmarks of %s: %w", b.ID, err)
	}
	if err := json.Unmarshal([]byte(tableContents), &b.TableOfContents); err != nil {
		return nil, fmt.Errorf("decoding table of contents of %s: %w", b.ID, err)
	}
	if b.Bookmarks == nil {
		b.Bookmarks = []shelf.Bookmark{}
	}
	return &b, nil
}

func marshalLists(b *Book) (bookmarks, toc string, err error) {
	bm, err := json.Marshal(b.Bookmarks)
	if err != nil {
		return "", "", fmt.Errorf("encoding bookmarks: %w", err)
	}
	tc, err := json.Marshal(b.TableOfContents)
	if err != nil {
		return "", "", fmt.Errorf("encoding table of contents: %w", err)
	}
	return string(bm), string(tc), nil
}

func formatDate(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
