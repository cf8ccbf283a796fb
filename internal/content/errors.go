package content

import "errors"

var (
	// ErrContentIO is returned when a payload or the index cannot be read or written.
	ErrContentIO = errors.New("content: io failure")

	// ErrCorrupt is returned when a payload or the index fails validation.
	ErrCorrupt = errors.New("content: corrupt data")

	// ErrNoContent is returned by Get for a link without payload.
	ErrNoContent = errors.New("content: link has no payload")

	// ErrStale is returned by Set when a newer occupant of the slot owns the entry.
	ErrStale = errors.New("content: stale address")

	// ErrUnknownCodec is returned for frames with an unknown codec byte.
	ErrUnknownCodec = errors.New("content: unknown codec")
)
