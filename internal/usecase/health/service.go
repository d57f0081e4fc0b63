// Package health aggregates dependency checks into a single status.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure. Retrieval still answers from the local fallback.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// DefaultCheckTimeout bounds each dependency probe.
const DefaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status  Status
	Checks  map[string]CheckResult
	Stories int
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	corpus    Corpus
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a Service. embedding and corpus can be nil.
func New(db DBPinger, embedding EmbeddingChecker, corpus Corpus, logger *zap.Logger) *Service {
	return &Service{
		db:        db,
		embedding: embedding,
		corpus:    corpus,
		timeout:   DefaultCheckTimeout,
		logger:    logger,
	}
}

// Check probes all components concurrently.
// An empty corpus counts as a failure because the fallback has nothing to rank.
func (s *Service) Check(ctx context.Context) Report {
	var mu sync.Mutex
	checks := make(map[string]CheckResult)
	set := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			s.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
			checks[name] = CheckError
			return
		}
		checks[name] = CheckOK
	}

	var g errgroup.Group
	g.Go(func() error {
		set("database", s.probe(ctx, s.db.Ping))
		return nil
	})
	if s.embedding != nil {
		g.Go(func() error {
			set("embedding", s.probe(ctx, s.embedding.HealthCheck))
			return nil
		})
	}
	_ = g.Wait()

	stories := 0
	if s.corpus != nil {
		stories = s.corpus.Len()
		if stories == 0 {
			checks["corpus"] = CheckError
		} else {
			checks["corpus"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks, Stories: stories}
}

func (s *Service) probe(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}
