package retrieval

import (
	"context"

	"github.com/kailas-cloud/storydex/internal/domain"
	"github.com/kailas-cloud/storydex/internal/domain/story"
	"github.com/kailas-cloud/storydex/internal/repository/vectorindex"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.Embedding, error)
}

// VectorIndex returns nearest stories. Failures come back in the Outcome, never as panics.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, topK int, opts vectorindex.QueryOptions) vectorindex.Outcome
}

// Corpus is the read-only story set.
type Corpus interface {
	All() []*story.Story
	Lookup(id string) (*story.Story, bool)
}

// RuleFilter rejects queries by pattern and records rejections.
type RuleFilter interface {
	Classify(query string) (category string, rejected bool)
	Record(query, category string)
}
