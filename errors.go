package scmemory

import (
	"errors"
	"fmt"

	"github.com/hupe1980/scmemory/internal/content"
	"github.com/hupe1980/scmemory/internal/engine"
	"github.com/hupe1980/scmemory/internal/storage"
)

var (
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
	ErrImmutableBitsViolation = errors.New("immutable type bits violation")

	// ErrStorageUnavailable is returned when the repository cannot be created or locked.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidRepository is returned when the repository root is missing or unusable.
	ErrInvalidRepository = errors.New("invalid repository")

	// ErrContentIO is returned when link content cannot be read or written.
	ErrContentIO = errors.New("content io failure")

	// ErrInvalidType is returned when a creation type has the wrong category.
	ErrInvalidType = errors.New("invalid element type")

	// ErrUnsupportedTemplate is returned for iterator templates without a fixed position.
	ErrUnsupportedTemplate = errors.New("unsupported iterator template")

	// ErrAccessDenied is returned when the context's access levels are too low.
	ErrAccessDenied = errors.New("access denied")

	// ErrCorrupt is returned when the repository fails validation on load.
	// It always comes together with ErrInvalidRepository.
	ErrCorrupt = errors.New("repository corrupt")

	// ErrClosed is returned by a closed Memory or a destroyed MemoryContext.
	ErrClosed = errors.New("closed")

	// ErrNotFound is returned when an identifier lookup has no result.
	ErrNotFound = errors.New("not found")

	// ErrNoContent is returned by LinkContent for a link that never received
	// content. It matches ErrNotFound.
	ErrNoContent = fmt.Errorf("%w: link has no content", ErrNotFound)

	// ErrIdentifierInUse is returned when a system identifier belongs to another element.
	ErrIdentifierInUse = errors.New("identifier in use")

	// ErrInvalidIdentifier is returned for an empty identifier.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrBackpressure is returned when the memory limit prevents a new segment.
	ErrBackpressure = errors.New("backpressure: resource limit exceeded")

	// ErrGenerationExhausted is returned by creations once the repository has
	// issued every element generation.
	ErrGenerationExhausted = errors.New("generation clock exhausted")
)

var errorMap = []struct {
	internal error
	public   error
}{
	{engine.ErrInvalidAddress, ErrInvalidAddress},
	{engine.ErrInvalidEndpoint, ErrInvalidEndpoint},
	{engine.ErrNotAnArc, ErrNotAnArc},
	{engine.ErrNotALink, ErrNotALink},
	{engine.ErrImmutableBitsViolation, ErrImmutableBitsViolation},
	{engine.ErrInvalidType, ErrInvalidType},
	{engine.ErrUnsupportedTemplate, ErrUnsupportedTemplate},
	{engine.ErrAccessDenied, ErrAccessDenied},
	{engine.ErrClosed, ErrClosed},
	{engine.ErrBackpressure, ErrBackpressure},
	{engine.ErrNoContent, ErrNoContent},
	{engine.ErrGenerationExhausted, ErrGenerationExhausted},
	{storage.ErrInvalidRepository, ErrInvalidRepository},
	{storage.ErrStorageUnavailable, ErrStorageUnavailable},
	{storage.ErrLocked, ErrStorageUnavailable},
	{content.ErrContentIO, ErrContentIO},
	{content.ErrCorrupt, ErrContentIO},
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Load integrity failures make the repository unusable.
	if errors.Is(err, engine.ErrCorrupt) {
		return fmt.Errorf("%w: %w: %w", ErrInvalidRepository, ErrCorrupt, err)
	}

	for _, m := range errorMap {
		if errors.Is(err, m.internal) {
			return fmt.Errorf("%w: %w", m.public, err)
		}
	}

	return err
}
