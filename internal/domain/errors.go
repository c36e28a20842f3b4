package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrIndexNotFound signals a missing search index.
	ErrIndexNotFound = errors.New("index not found")
	// ErrKeyFieldNotFound signals an index schema without a key field.
	ErrKeyFieldNotFound = errors.New("key field not found")
	// ErrInvalidSchema signals an invalid schema definition.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrInvalidConfig signals a missing or malformed configuration value.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrSourceFieldMissing signals a document without a value at a mapping source field.
	ErrSourceFieldMissing = errors.New("source field missing")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrUnsupportedContent signals record content that cannot be vectorized yet.
	ErrUnsupportedContent = errors.New("unsupported content")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")
)

// DimensionError wraps ErrVectorDimMismatch with the expected and actual lengths.
type DimensionError struct {
	Field    string
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: field %q expects %d, got %d",
		ErrVectorDimMismatch.Error(), e.Field, e.Expected, e.Actual)
}

func (e *DimensionError) Unwrap() error { return ErrVectorDimMismatch }

// NewDimensionError creates a vector dimension mismatch error.
func NewDimensionError(field string, expected, actual int) error {
	return &DimensionError{Field: field, Expected: expected, Actual: actual}
}
