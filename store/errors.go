package store

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable means the backing medium could not be reached and
	// no usable cached document exists.
	ErrStoreUnavailable = errors.New("content store unavailable")
	// ErrNotConfigured is returned by the gist engine when its id or token is
	// missing. It is a StoreUnavailable condition.
	ErrNotConfigured = fmt.Errorf("%w: remote store not configured", ErrStoreUnavailable)
	// ErrWriteInProgress is returned by the local engine when another write
	// already holds the write lock.
	ErrWriteInProgress = errors.New("write already in progress")
	// ErrNotAnArray is returned by item operations on a section that is not
	// a sequence.
	ErrNotAnArray = errors.New("section is not an array")
	// ErrItemNotFound is returned when no item carries the requested id.
	ErrItemNotFound = errors.New("item not found")
	// ErrInvalidItem is returned when an item or patch is not a JSON object
	// or carries a non-string id.
	ErrInvalidItem = errors.New("invalid item")
	// ErrDuplicateItem is returned when an added item reuses an existing id.
	ErrDuplicateItem = errors.New("duplicate item id")
	// ErrConflict is returned by engines with conditional writes when the
	// document changed between read and write.
	ErrConflict = errors.New("content changed concurrently")
	// ErrUnsupported is returned when the engine lacks an optional capability.
	ErrUnsupported = errors.New("operation not supported")
	// ErrNoBackup is returned by a restore when no backup generation exists.
	ErrNoBackup = errors.New("no backup available")
)

// RemoteError is a non-2xx response from the remote document host.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote store error: %d %s", e.StatusCode, e.Message)
}

func notAnArray(section string) error {
	return fmt.Errorf("%w: %q", ErrNotAnArray, section)
}

func itemNotFound(section, id string) error {
	return fmt.Errorf("%w: id %q in %q", ErrItemNotFound, id, section)
}
