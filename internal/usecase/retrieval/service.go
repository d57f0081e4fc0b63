// Package retrieval turns a question into ranked, diversified stories with a confidence band.
package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/storydex/internal/domain/search/candidate"
	"github.com/kailas-cloud/storydex/internal/domain/search/confidence"
	"github.com/kailas-cloud/storydex/internal/domain/search/request"
	"github.com/kailas-cloud/storydex/internal/domain/search/response"
	"github.com/kailas-cloud/storydex/internal/logger"
	"github.com/kailas-cloud/storydex/internal/metrics"
	"github.com/kailas-cloud/storydex/internal/offdomain"
	"github.com/kailas-cloud/storydex/internal/repository/vectorindex"
	"github.com/kailas-cloud/storydex/internal/tokenize"
)

// DefaultMaxPerClient caps results per client before backfill.
const DefaultMaxPerClient = 2

// Config tunes ranking and gating.
type Config struct {
	Thresholds confidence.Thresholds
	Weights    Weights
	// MaxPerClient <= 0 disables diversity.
	MaxPerClient int
	// LowOverlapThreshold rejects untrusted queries with no vector hits and less overlap than this.
	LowOverlapThreshold float64
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		Thresholds:          confidence.DefaultThresholds(),
		Weights:             DefaultWeights(),
		MaxPerClient:        DefaultMaxPerClient,
		LowOverlapThreshold: offdomain.DefaultLowOverlapThreshold,
	}
}

// Validate checks thresholds and weights.
func (c Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("weights: %w", err)
	}
	if c.LowOverlapThreshold < 0 {
		return fmt.Errorf("low overlap threshold must be non-negative")
	}
	return nil
}

// Service runs the retrieval pipeline. Safe for concurrent use once built.
type Service struct {
	embed  Embedder
	index  VectorIndex
	corpus Corpus
	rules  RuleFilter
	vocab  offdomain.Vocabulary
	cfg    Config
	logger *zap.Logger
}

// New builds a Service and harvests the off-domain vocabulary from corpus.
func New(
	embed Embedder, index VectorIndex, corpus Corpus, rules RuleFilter,
	cfg Config, log *zap.Logger,
) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service{
		embed:  embed,
		index:  index,
		corpus: corpus,
		rules:  rules,
		vocab:  offdomain.BuildVocabulary(corpus.All()),
		cfg:    cfg,
		logger: log,
	}, nil
}

// Retrieve answers q with ranked stories. Dependency failures degrade to the
// local keyword fallback and are never returned as errors.
func (s *Service) Retrieve(ctx context.Context, q request.Query) (response.Response, error) {
	log := logger.FromContextOr(ctx, s.logger)

	if q.IsBlank() {
		return s.finish(metrics.PathEmpty, response.Empty()), nil
	}

	if category, rejected := s.rules.Classify(q.Text()); rejected {
		log.Info("Query rejected by rule", zap.String("category", category))
		metrics.OffDomainRejectionsTotal.WithLabelValues(category).Inc()
		return s.finish(metrics.PathRejected, response.Rejected(category)), nil
	}

	terms := tokenize.UniqueTerms(q.Text())

	emb, err := s.embed.Embed(ctx, q.Text())
	if err != nil {
		log.Warn("Query embedding failed, using keyword fallback", zap.Error(err))
		return s.fallback(q, terms), nil
	}

	outcome := s.index.Query(ctx, emb.Vector, q.TopK(), vectorindex.QueryOptions{
		Namespace: q.Namespace(),
		Filters:   q.Prefilter(),
	})
	if outcome.Failed() {
		log.Warn("Vector query failed, using keyword fallback", zap.Error(outcome.Err))
		return s.fallback(q, terms), nil
	}

	cands := s.resolve(outcome.Matches)
	if len(cands) == 0 {
		log.Debug("Vector query returned no citable stories", zap.Int("matches", len(outcome.Matches)))
		return s.fallback(q, terms), nil
	}

	score(cands, terms, s.cfg.Weights)
	Rank(cands)

	top := candidate.TopSimilarity(cands)
	band := s.cfg.Thresholds.Classify(top)
	log.Debug("Vector candidates ranked",
		zap.Int("candidates", len(cands)),
		zap.Float64("top_score", top),
		zap.String("confidence", string(band)),
	)

	if band == confidence.None {
		return s.finish(metrics.PathVector, response.Response{Confidence: confidence.None, TopScore: top}), nil
	}

	resp := s.shape(cands, q)
	resp.TopScore = top
	if len(resp.Results) > 0 {
		resp.Confidence = band
	}
	return s.finish(metrics.PathVector, resp), nil
}

// fallback handles an empty or failed vector path: the overlap gate first, then
// keyword ranking over the stories the prefilter admits, with confidence capped at low.
func (s *Service) fallback(q request.Query, terms []string) response.Response {
	if !q.TrustedSource() {
		ratio := offdomain.OverlapRatio(q.Text(), s.vocab)
		if ratio < s.cfg.LowOverlapThreshold {
			s.rules.Record(q.Text(), offdomain.CategoryLowOverlap)
			metrics.OffDomainRejectionsTotal.WithLabelValues(offdomain.CategoryLowOverlap).Inc()
			return s.finish(metrics.PathRejected, response.Rejected(offdomain.CategoryLowOverlap))
		}
	}

	resp := s.shape(Fallback(filterStories(s.corpus.All(), q.Prefilter()), terms, s.cfg.Weights), q)
	resp.Fallback = true
	if len(resp.Results) > 0 {
		resp.Confidence = confidence.Low
	}
	return s.finish(metrics.PathFallback, resp)
}

// shape applies metadata filters, diversity and the result limit.
// Confidence is left as none; callers raise it when results survive.
func (s *Service) shape(ranked []candidate.Candidate, q request.Query) response.Response {
	resp := response.Empty()

	kept, relaxed := applyFilters(ranked, q.Filters())
	if relaxed > 0 {
		resp.RelaxedCount = relaxed
		resp.ActiveFilters = q.Filters().Active()
		return resp
	}

	results := Diversify(kept, s.cfg.MaxPerClient, q.Limit())
	if len(results) > q.Limit() {
		results = results[:q.Limit()]
	}
	resp.Results = results
	return resp
}

// resolve maps index matches to corpus stories. Unknown, blank and repeated IDs are dropped.
func (s *Service) resolve(matches []vectorindex.Match) []candidate.Candidate {
	cands := make([]candidate.Candidate, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		if m.ID == "" || seen[m.ID] {
			continue
		}
		st, ok := s.corpus.Lookup(m.ID)
		if !ok || !st.Citable() {
			continue
		}
		seen[m.ID] = true
		cands = append(cands, candidate.Candidate{Story: st, Similarity: m.Score})
	}
	return cands
}

func (s *Service) finish(path string, resp response.Response) response.Response {
	metrics.RetrievalTotal.WithLabelValues(path).Inc()
	metrics.ConfidenceTotal.WithLabelValues(string(resp.Confidence)).Inc()
	return resp
}
