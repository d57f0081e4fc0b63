// Package request holds the validated retrieval query.
package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/storydex/internal/domain/search/filter"
)

// Query limits and defaults.
const (
	// MaxQueryLength is the maximum allowed query length in bytes.
	MaxQueryLength = 2048
	DefaultTopK    = 7
	MaxTopK        = 100
	DefaultLimit   = 3
	MaxLimit       = 20
)

// Query is a validated retrieval request. Blank text is allowed and yields an empty response.
type Query struct {
	text      string
	filters   filter.Expression
	prefilter filter.Expression
	namespace string
	topK      int
	limit     int
	trusted   bool
	sessionID string
}

// Option customizes a Query.
type Option func(*Query)

// WithFilters sets metadata filters applied locally after retrieval.
func WithFilters(f filter.Expression) Option { return func(q *Query) { q.filters = f } }

// WithPrefilter sets tag filters passed through to the vector index.
func WithPrefilter(f filter.Expression) Option { return func(q *Query) { q.prefilter = f } }

// WithNamespace selects the vector index namespace.
func WithNamespace(ns string) Option { return func(q *Query) { q.namespace = ns } }

// WithTopK overrides the number of vector candidates.
func WithTopK(k int) Option { return func(q *Query) { q.topK = k } }

// WithLimit overrides the number of returned stories.
func WithLimit(n int) Option { return func(q *Query) { q.limit = n } }

// WithTrustedSource marks a query as originating from a curated entry point.
// Trusted queries skip the low-overlap rejection.
func WithTrustedSource(trusted bool) Option { return func(q *Query) { q.trusted = trusted } }

// WithSession attaches a conversation session ID.
func WithSession(id string) Option { return func(q *Query) { q.sessionID = id } }

// New validates and normalizes query parameters. topK and limit are clamped; limit never exceeds topK.
func New(text string, opts ...Option) (Query, error) {
	if len(text) > MaxQueryLength {
		return Query{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	q := Query{text: strings.TrimSpace(text)}
	for _, opt := range opts {
		opt(&q)
	}

	if q.topK <= 0 {
		q.topK = DefaultTopK
	}
	if q.topK > MaxTopK {
		q.topK = MaxTopK
	}
	if q.limit <= 0 {
		q.limit = DefaultLimit
	}
	if q.limit > MaxLimit {
		q.limit = MaxLimit
	}
	if q.limit > q.topK {
		q.limit = q.topK
	}
	if strings.ContainsAny(q.namespace, ": \t") {
		return Query{}, fmt.Errorf("invalid namespace %q", q.namespace)
	}
	return q, nil
}

// Text returns the trimmed query text.
func (q Query) Text() string { return q.text }

// IsBlank reports whether there is nothing to search for.
func (q Query) IsBlank() bool { return q.text == "" }

// Filters returns the local metadata filters.
func (q Query) Filters() filter.Expression { return q.filters }

// Prefilter returns the index pass-through filters.
func (q Query) Prefilter() filter.Expression { return q.prefilter }

// Namespace returns the index namespace, "" for the default index.
func (q Query) Namespace() string { return q.namespace }

// TopK returns the number of vector candidates to request.
func (q Query) TopK() int { return q.topK }

// Limit returns the maximum number of stories to return.
func (q Query) Limit() int { return q.limit }

// TrustedSource reports whether low-overlap rejection is skipped.
func (q Query) TrustedSource() bool { return q.trusted }

// SessionID returns the conversation session, "" when stateless.
func (q Query) SessionID() string { return q.sessionID }
