package domain

import (
	"context"
	"fmt"
)

// Embedder turns text into a fixed-dimension vector.
// Implementations must be deterministic for the same model and text.
type Embedder interface {
	Embed(ctx context.Context, text string) (Embedding, error)
}

// BatchEmbedder vectorizes several texts in one provider call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbedding, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Embedding is a single vector plus the tokens spent producing it.
type Embedding struct {
	Vector       []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbedding holds vectors in input order and aggregate token usage.
type BatchEmbedding struct {
	Vectors      [][]float32
	PromptTokens int
	TotalTokens  int
}

// EmbedAll vectorizes texts through BatchEmbed when e supports it,
// otherwise one Embed call per text.
func EmbedAll(ctx context.Context, e Embedder, texts []string) (BatchEmbedding, error) {
	if be, ok := e.(BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return BatchEmbedding{}, fmt.Errorf("batch embed: %w", err)
		}
		return res, nil
	}

	out := BatchEmbedding{Vectors: make([][]float32, len(texts))}
	for i, text := range texts {
		res, err := e.Embed(ctx, text)
		if err != nil {
			return BatchEmbedding{}, fmt.Errorf("embed [%d]: %w", i, err)
		}
		out.Vectors[i] = res.Vector
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}
	return out, nil
}

// PrefixEmbedder prepends a fixed instruction to every text before embedding.
// Asymmetric models expect different instructions for queries and stories.
type PrefixEmbedder struct {
	inner  Embedder
	prefix string
}

// NewPrefixEmbedder wraps inner with an instruction prefix.
func NewPrefixEmbedder(inner Embedder, prefix string) *PrefixEmbedder {
	return &PrefixEmbedder{inner: inner, prefix: prefix}
}

// Embed prepends the prefix and delegates.
func (e *PrefixEmbedder) Embed(ctx context.Context, text string) (Embedding, error) {
	res, err := e.inner.Embed(ctx, e.prefix+text)
	if err != nil {
		return Embedding{}, fmt.Errorf("prefixed embed: %w", err)
	}
	return res, nil
}

// BatchEmbed prepends the prefix to every text and delegates through EmbedAll.
func (e *PrefixEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbedding, error) {
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = e.prefix + t
	}
	return EmbedAll(ctx, e.inner, prefixed)
}

// HealthCheck forwards to the wrapped embedder when it supports health checks.
func (e *PrefixEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
