package segment

import "errors"

var (
	// ErrSizeMismatch is returned when a block does not have exactly BlockSize bytes.
	ErrSizeMismatch = errors.New("segment: block size mismatch")

	// ErrInvalidMagic is returned when a block does not start with the segment magic.
	ErrInvalidMagic = errors.New("segment: invalid magic")

	// ErrIncompatibleVersion is returned for blocks written by an unknown format version.
	ErrIncompatibleVersion = errors.New("segment: incompatible version")

	// ErrChecksumMismatch is returned when the record area fails its CRC32C check.
	ErrChecksumMismatch = errors.New("segment: checksum mismatch")

	// ErrIDMismatch is returned when the header id differs from the file index.
	ErrIDMismatch = errors.New("segment: id mismatch")

	// ErrInvalidRecord is returned for live records with impossible contents.
	ErrInvalidRecord = errors.New("segment: invalid record")

	// ErrFull is returned when allocating from a segment without free slots.
	ErrFull = errors.New("segment: full")

	// ErrInvalidOffset is returned for offsets outside the segment.
	ErrInvalidOffset = errors.New("segment: invalid offset")
)
