package domain

import "errors"

var (
	// ErrNoDocuments is returned when the source directory contains no
	// matching files. The run ends immediately with zero side effects.
	ErrNoDocuments = errors.New("no documents found")

	// ErrDimensionMismatch is returned when an embedding provider hands back
	// the wrong number of vectors or a vector of the wrong length. Partial
	// vectors are never written.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
