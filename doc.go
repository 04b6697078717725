// Package shelf ingests ePub containers and serves their chapters for reading.
//
// It opens the zip container, finds the package descriptor and navigation
// documents, recovers bibliographic metadata and a chapter list, extracts an
// optional cover image, and on demand returns the sanitized markup of a
// single chapter. Malformed books degrade to defaults instead of failing.
//
// # Ingesting a container
//
// Use [New] to build an [Engine] and [Engine.Parse] to ingest a file:
//
//	eng := shelf.New(shelf.Config{CoverDir: "uploads/covers"})
//	bundle, err := eng.Parse("uploads/books/moby-dick.epub")
//	if err != nil {
//	    log.Fatal(err) // not a zip archive at all
//	}
//	fmt.Println(bundle.Title, bundle.TotalChapters)
//
// Metadata is read with a lenient, first-match tag scan of the descriptor
// (.opf). Missing fields take the values from [DefaultFields]; a missing
// title is derived from the file name with [TitleFromFilename]. The table of
// contents comes from the first navigation-like entry and falls back to one
// "Chapter n" row per markup document, so [Bundle.TotalChapters] is never
// zero.
//
// # Reading chapters
//
// [Engine.Chapter] reopens the container, orders markup documents by name
// and returns the one at the requested 0-based index:
//
//	ch := eng.Chapter("uploads/books/moby-dick.epub", 0)
//	if !ch.Found() {
//	    // ch.Content holds a placeholder paragraph
//	}
//
// The content has its prolog, doctype, head section and meta/link tags
// removed. It is not otherwise cleaned; apply a display policy before
// embedding it in a page.
//
// # Error Handling
//
// Only two sentinel errors exist:
//   - [ErrContainerOpen] – the file is unreadable or not a zip archive
//   - [ErrEntryNotFound] – a requested entry is not in the container
//
// [Engine.Parse] surfaces only ErrContainerOpen. Everything else, including
// missing descriptors, broken navigation documents, missing covers and
// unknown chapter indexes, is absorbed into documented fallback values.
package shelf
