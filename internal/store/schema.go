package store

const schemaBooks = `
CREATE TABLE IF NOT EXISTS books (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    title TEXT NOT NULL,
    author TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    epub_path TEXT NOT NULL DEFAULT '',
    cover_image TEXT NOT NULL DEFAULT '',
    genre TEXT NOT NULL DEFAULT '',
    language TEXT NOT NULL DEFAULT '',
    publisher TEXT NOT NULL DEFAULT '',
    publish_date TEXT,
    total_chapters INTEGER NOT NULL DEFAULT 1,
    current_chapter INTEGER NOT NULL DEFAULT 1,
    current_position TEXT NOT NULL DEFAULT '',
    is_favorite INTEGER NOT NULL DEFAULT 0,
    is_completed INTEGER NOT NULL DEFAULT 0,
    date_added INTEGER NOT NULL,
    last_read INTEGER NOT NULL,
    reading_progress REAL NOT NULL DEFAULT 0,
    bookmarks TEXT NOT NULL DEFAULT '[]',
    extracted_text TEXT NOT NULL DEFAULT '',
    table_of_contents TEXT NOT NULL DEFAULT '[]',
    content_hash TEXT NOT NULL DEFAULT ''
)`

const indexBooksUserLastRead = `CREATE INDEX IF NOT EXISTS idx_books_user_last_read ON books(user_id, last_read DESC)`
const indexBooksUserFavorite = `CREATE INDEX IF NOT EXISTS idx_books_user_favorite ON books(user_id, is_favorite)`

// Pragmas applied on open.
const (
	pragmaWAL         = `PRAGMA journal_mode=WAL`
	pragmaBusyTimeout = `PRAGMA busy_timeout=5000`
	pragmaSynchronous = `PRAGMA synchronous=NORMAL`
)

func allSchemaStatements() []string {
	return []string{
		schemaBooks,
		indexBooksUserLastRead,
		indexBooksUserFavorite,
	}
}

func allPragmas() []string {
	return []string{
		pragmaWAL,
		pragmaBusyTimeout,
		pragmaSynchronous,
	}
}

// bookColumns is the column list shared by every SELECT.
const bookColumns = `id, user_id, title, author, description, epub_path, cover_image,
       genre, language, publisher, publish_date, total_chapters, current_chapter,
       current_position, is_favorite, is_completed, date_added, last_read,
       reading_progress, bookmarks, extracted_text, table_of_contents, content_hash`
