package domain

import "errors"

var (
	// ErrNotFound signals a missing story or resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery signals a request that cannot be executed as given.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorIndexUnavailable signals that the vector index could not be queried.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")
	// ErrGeneratorUnavailable signals that the response generator failed.
	ErrGeneratorUnavailable = errors.New("response generator unavailable")
)

// KeyPrefix namespaces every key storydex writes to the shared store.
const KeyPrefix = "storydex:"
