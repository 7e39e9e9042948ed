package rag

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery is returned for blank retrieval queries.
	ErrEmptyQuery = errors.New("query must not be empty")

	// ErrUnknownRiskLevel is returned when a retrieval filter names no known level.
	ErrUnknownRiskLevel = errors.New("unknown risk level")

	// ErrEmbeddingFailed matches every *EmbeddingError.
	ErrEmbeddingFailed = errors.New("embedding provider failed")

	// ErrIndexNotBuilt is returned when retrieval runs before any index snapshot exists.
	ErrIndexNotBuilt = errors.New("knowledge index not built")

	errEmptyVector = errors.New("embedder returned an empty vector")

	errNonFinite    = errors.New("embedder returned a non-finite component")
	errIncomparable = errors.New("query embedding is not comparable with any document embedding")
)

// EmbeddingError wraps a provider failure with the operation that hit it.
type EmbeddingError struct {
	Op  string
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrEmbeddingFailed) true for any EmbeddingError.
func (e *EmbeddingError) Is(target error) bool {
	return target == ErrEmbeddingFailed
}
