package layer

import "errors"

var (
	// ErrLimitExceeded is returned when an operation's byte range extends
	// past the configured strict size enforcement limit.
	ErrLimitExceeded = errors.New("layer: range exceeds strict size enforcement")

	// ErrOutOfRange is returned by the strict variant's Read when the
	// requested range extends past the current logical size.
	ErrOutOfRange = errors.New("layer: read extends past current size")

	// ErrNotFound is returned at open time when the backend file does not
	// exist and CreateIfMissing is false.
	ErrNotFound = errors.New("layer: backend does not exist")

	// ErrClosed is returned by any operation issued after Close.
	ErrClosed = errors.New("layer: store is closed")

	// ErrUnlinked is returned by any operation issued after Unlink.
	ErrUnlinked = errors.New("layer: store is unlinked")

	// ErrPageNotPinnable names an invalid pin/unpin range. Store.Pin and
	// Store.Unpin have no error result and never return it: a
	// non-positive size covers the single page holding offset.
	ErrPageNotPinnable = errors.New("layer: invalid pin range")
)
