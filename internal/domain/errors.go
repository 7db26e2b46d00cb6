package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals a malformed filter request; never retried.
	ErrValidation = errors.New("validation failed")
	// ErrUnknownAttribute signals a filter on an undeclared attribute code.
	// It is a validation error: errors.Is(err, ErrValidation) holds.
	ErrUnknownAttribute = fmt.Errorf("%w: unknown attribute", ErrValidation)
	// ErrDocumentNotFound signals a missing filter index document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrCategoryNotFound signals an unresolvable category slug.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrProductNotFound signals that the write side has no such product.
	ErrProductNotFound = errors.New("product not found")
	// ErrJobNotFound signals a missing reindex job.
	ErrJobNotFound = errors.New("job not found")
	// ErrSourceUnavailable signals a transient failure fetching write-side state.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrCorruptedDocument signals a document that failed to decode.
	ErrCorruptedDocument = errors.New("corrupted document")
)
