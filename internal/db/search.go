package db

import "github.com/kailas-cloud/storydex/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	// VectorField defaults to "vector".
	VectorField string
	// Prefilter restricts candidates by tag before KNN ranking.
	Prefilter    filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit. Score is cosine similarity in [0, 1], higher is better.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
