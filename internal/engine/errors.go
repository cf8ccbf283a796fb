package engine

import "errors"

var (
	// ErrClosed is returned when an operation is attempted on a closed engine.
	ErrClosed = errors.New("engine closed")

	// ErrInvalidAddress is returned when an address does not name a live element.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidEndpoint is returned by CreateArc when an endpoint is not live.
	ErrInvalidEndpoint = errors.New("invalid arc endpoint")

	// ErrNotAnArc is returned by arc accessors on nodes and links.
	ErrNotAnArc = errors.New("element is not an arc")

	// ErrNotALink is returned by content accessors on nodes and arcs.
	ErrNotALink = errors.New("element is not a link")

	// ErrImmutableBitsViolation is returned when a subtype touches category,
	// polarity or permanence bits.
	ErrImmutableBitsViolation = errors.New("subtype intersects immutable type bits")

	// ErrInvalidType is returned when a creation type has the wrong category.
	ErrInvalidType = errors.New("invalid element type")

	// ErrUnsupportedTemplate is returned for iterator templates without an anchor.
	ErrUnsupportedTemplate = errors.New("unsupported iterator template")

	// ErrAccessDenied is returned when the caller's access levels are too low.
	ErrAccessDenied = errors.New("access denied")

	// ErrCorrupt is returned when data corruption is detected during load.
	ErrCorrupt = errors.New("data corruption detected")

	// ErrNoContent is returned when a link never received content.
	ErrNoContent = errors.New("link has no content")

	// ErrGenerationExhausted is returned once the generation clock has issued
	// its last value. Addresses would alias older ones past that point.
	ErrGenerationExhausted = errors.New("generation clock exhausted")

	// ErrBackpressure is returned when a new segment would exceed the memory limit.
	ErrBackpressure = errors.New("backpressure: resource limit exceeded")
)
