// Package ingest embeds the curated corpus and writes it to the vector index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/storydex/internal/domain"
	"github.com/kailas-cloud/storydex/internal/domain/story"
	"github.com/kailas-cloud/storydex/internal/repository/vectorindex"
)

// Defaults for batch size and concurrency.
const (
	DefaultBatchSize   = 16
	DefaultConcurrency = 4
)

// Config controls one ingest run.
type Config struct {
	Namespace   string
	Dimensions  int
	HNSW        vectorindex.HNSW
	BatchSize   int
	Concurrency int
	// Prune removes indexed stories that are no longer in the corpus.
	Prune bool
}

// Failure is one story that could not be indexed.
type Failure struct {
	ID  string
	Err error
}

// Report summarizes an ingest run.
type Report struct {
	Indexed  int
	Created  bool
	Pruned   []string
	Failures []Failure
}

// Service indexes stories.
type Service struct {
	embedder domain.Embedder
	index    Index
	cfg      Config
	logger   *zap.Logger
}

// New creates an ingest service. embedder should carry the document instruction.
func New(embedder domain.Embedder, index Index, cfg Config, logger *zap.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Service{embedder: embedder, index: index, cfg: cfg, logger: logger}
}

// Index creates the namespace index when missing, then embeds and upserts stories
// in batches. Per-story failures are collected in the report; only index creation
// failure and cancellation are returned as errors.
func (s *Service) Index(ctx context.Context, stories []*story.Story) (Report, error) {
	if s.cfg.Dimensions <= 0 {
		return Report{}, errors.New("ingest: dimensions must be positive")
	}

	def := vectorindex.Definition(s.cfg.Namespace, s.cfg.Dimensions, s.cfg.HNSW)
	created, err := s.index.EnsureIndex(ctx, def)
	if err != nil {
		return Report{}, fmt.Errorf("ensure index: %w", err)
	}

	var (
		mu  sync.Mutex
		rep = Report{Created: created}
	)
	fail := func(id string, err error) {
		mu.Lock()
		rep.Failures = append(rep.Failures, Failure{ID: id, Err: err})
		mu.Unlock()
	}

	citable := make([]*story.Story, 0, len(stories))
	for i, st := range stories {
		if !st.Citable() {
			fail(fmt.Sprintf("#%d", i), errors.New("story has no id"))
			continue
		}
		citable = append(citable, st)
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for start := 0; start < len(citable); start += s.cfg.BatchSize {
		batch := citable[start:min(start+s.cfg.BatchSize, len(citable))]
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			n := s.indexBatch(ctx, batch, fail)
			mu.Lock()
			rep.Indexed += n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return rep, fmt.Errorf("ingest interrupted: %w", err)
	}

	sort.Slice(rep.Failures, func(i, j int) bool { return rep.Failures[i].ID < rep.Failures[j].ID })

	if s.cfg.Prune {
		keep := make([]string, len(citable))
		for i, st := range citable {
			keep[i] = st.ID
		}
		pruned, err := s.index.Prune(ctx, s.cfg.Namespace, keep)
		if err != nil {
			return rep, fmt.Errorf("prune: %w", err)
		}
		rep.Pruned = pruned
	}
	s.logger.Info("Ingest finished",
		zap.String("namespace", s.cfg.Namespace),
		zap.Int("indexed", rep.Indexed),
		zap.Int("failed", len(rep.Failures)),
		zap.Bool("created", rep.Created),
		zap.Int("pruned", len(rep.Pruned)),
	)
	return rep, nil
}

// indexBatch embeds and upserts one batch and returns how many stories were written.
func (s *Service) indexBatch(ctx context.Context, batch []*story.Story, fail func(string, error)) int {
	texts := make([]string, len(batch))
	for i, st := range batch {
		texts[i] = st.EmbeddingText()
	}

	res, err := domain.EmbedAll(ctx, s.embedder, texts)
	if err == nil && len(res.Vectors) != len(batch) {
		err = fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrEmbeddingProviderError, len(res.Vectors), len(batch))
	}
	if err != nil {
		s.logger.Warn("Batch embedding failed", zap.Int("stories", len(batch)), zap.Error(err))
		for _, st := range batch {
			fail(st.ID, err)
		}
		return 0
	}

	keep := make([]*story.Story, 0, len(batch))
	vectors := make([][]float32, 0, len(batch))
	for i, st := range batch {
		if len(res.Vectors[i]) != s.cfg.Dimensions {
			fail(st.ID, fmt.Errorf("vector has %d dimensions, index expects %d", len(res.Vectors[i]), s.cfg.Dimensions))
			continue
		}
		keep = append(keep, st)
		vectors = append(vectors, res.Vectors[i])
	}

	if err := s.index.Upsert(ctx, s.cfg.Namespace, keep, vectors); err != nil {
		s.logger.Warn("Batch upsert failed", zap.Int("stories", len(keep)), zap.Error(err))
		for _, st := range keep {
			fail(st.ID, err)
		}
		return 0
	}
	return len(keep)
}

// Drop removes the namespace index.
func (s *Service) Drop(ctx context.Context) error {
	if err := s.index.Drop(ctx, s.cfg.Namespace); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	s.logger.Info("Dropped vector index", zap.String("namespace", s.cfg.Namespace))
	return nil
}
