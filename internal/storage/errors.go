package storage

import "errors"

var (
	// ErrStorageUnavailable is returned when the repository directories cannot be created.
	ErrStorageUnavailable = errors.New("storage: unavailable")

	// ErrInvalidRepository is returned when root is missing or not a directory,
	// or when the segment files are not numbered densely.
	ErrInvalidRepository = errors.New("storage: invalid repository")

	// ErrSizeMismatch is returned when a segment file does not have the block size.
	ErrSizeMismatch = errors.New("storage: segment size mismatch")

	// ErrLocked is returned when another store holds the repository.
	ErrLocked = errors.New("storage: repository locked")
)
