package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing tile record.
	ErrNotFound = errors.New("tile not found")
	// ErrDuplicateURL signals that a tile URL is already indexed under another id.
	ErrDuplicateURL = errors.New("url already indexed")
	// ErrFetch signals a failed tile download after retries were exhausted.
	ErrFetch = errors.New("tile fetch failed")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrStore signals a metadata or vector store failure.
	ErrStore = errors.New("store operation failed")
)

// DuplicateURLError wraps ErrDuplicateURL with the id that already owns the URL.
// It is a success-with-caveat signal, not an operational failure: the indexing
// request is skipped and no store is mutated.
type DuplicateURLError struct {
	ExistingID string
}

func (e *DuplicateURLError) Error() string {
	return fmt.Sprintf("%s: existing image_id is %s", ErrDuplicateURL.Error(), e.ExistingID)
}

func (e *DuplicateURLError) Unwrap() error { return ErrDuplicateURL }

// NewDuplicateURL creates a duplicate-URL error naming the existing record.
func NewDuplicateURL(existingID string) error {
	return &DuplicateURLError{ExistingID: existingID}
}

// Invalid wraps a specific validation reason with ErrValidation.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}
