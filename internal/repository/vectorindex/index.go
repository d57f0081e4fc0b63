// Package vectorindex adapts the Redis FT index to story similarity queries.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/storydex/internal/db"
	"github.com/kailas-cloud/storydex/internal/domain"
	"github.com/kailas-cloud/storydex/internal/domain/search/filter"
	"github.com/kailas-cloud/storydex/internal/metrics"
	"github.com/kailas-cloud/storydex/internal/retry"
)

const (
	// DefaultTopK is used when a query asks for zero or fewer matches.
	DefaultTopK = 7
	// DefaultNamespace selects the index when none is given.
	DefaultNamespace = "default"

	vectorField = "vector"
)

// store is the consumer interface for index operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, keys ...string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Match is one index hit. Score is cosine similarity in [0, 1], higher is better.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// Outcome is the result of a query: matches on success, Err on failure, never both.
type Outcome struct {
	Matches []Match
	Err     error
}

// Failed reports whether the query could not be served.
func (o Outcome) Failed() bool { return o.Err != nil }

// QueryOptions narrows a query.
type QueryOptions struct {
	// Namespace selects the index. Blank means DefaultNamespace.
	Namespace string
	// Filters is passed through to the index as a tag pre-filter.
	Filters filter.Expression
}

// Index queries and maintains the story vector index.
type Index struct {
	store  store
	policy retry.Policy
	logger *zap.Logger
}

// New creates an index adapter.
func New(s store, policy retry.Policy, logger *zap.Logger) *Index {
	return &Index{store: s, policy: policy, logger: logger}
}

// IndexName returns the FT index name for a namespace.
func IndexName(namespace string) string {
	return domain.KeyPrefix + orDefault(namespace) + ":idx"
}

// KeyPrefix returns the hash key prefix for a namespace.
func KeyPrefix(namespace string) string {
	return domain.KeyPrefix + orDefault(namespace) + ":story:"
}

func orDefault(namespace string) string {
	if namespace == "" {
		return DefaultNamespace
	}
	return namespace
}

// Query returns up to topK nearest stories. Failures are reported in Outcome.Err.
func (ix *Index) Query(ctx context.Context, vector []float32, topK int, opts QueryOptions) Outcome {
	if len(vector) == 0 {
		return Outcome{Err: fmt.Errorf("empty query vector: %w", domain.ErrInvalidQuery)}
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	q := &db.KNNQuery{
		IndexName:    IndexName(opts.Namespace),
		VectorField:  vectorField,
		Prefilter:    opts.Filters,
		Vector:       vector,
		K:            topK,
		ReturnFields: metadataFields,
	}

	start := time.Now()
	res, err := retry.Do(ctx, ix.policy, func(actx context.Context) (*db.SearchResult, error) {
		r, err := ix.store.SearchKNN(actx, q)
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, retry.Permanent(err)
		}
		return r, err
	}, func(err error, wait time.Duration) {
		ix.logger.Warn("vector query failed, retrying",
			zap.String("index", q.IndexName), zap.Duration("wait", wait), zap.Error(err))
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		metrics.VectorQueryDuration.WithLabelValues("error").Observe(elapsed)
		return Outcome{Err: fmt.Errorf("query %s: %w: %w", q.IndexName, domain.ErrVectorIndexUnavailable, err)}
	}
	metrics.VectorQueryDuration.WithLabelValues("success").Observe(elapsed)

	return Outcome{Matches: toMatches(res, KeyPrefix(opts.Namespace))}
}

func toMatches(res *db.SearchResult, prefix string) []Match {
	if res == nil || len(res.Entries) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(res.Entries))
	for _, e := range res.Entries {
		id := e.Fields[fieldID]
		if id == "" {
			id = strings.TrimPrefix(e.Key, prefix)
		}
		meta := make(map[string]string, len(e.Fields))
		for k, v := range e.Fields {
			if k != fieldID {
				meta[k] = v
			}
		}
		matches = append(matches, Match{ID: id, Score: e.Score, Metadata: meta})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches
}
