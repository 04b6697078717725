package shelf

import "errors"

// Sentinel errors returned by the shelf package.
var (
	// ErrContainerOpen indicates the container file could not be read or is
	// not a valid zip archive. It is the only error that escapes ingestion.
	ErrContainerOpen = errors.New("shelf: cannot open container")

	// ErrEntryNotFound indicates the requested entry does not exist
	// in the container.
	ErrEntryNotFound = errors.New("shelf: entry not found in container")
)
