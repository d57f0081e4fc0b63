package domain

import "context"

type usageKey struct{}

// TokenUsage collects provider tokens spent while serving one request.
// The HTTP layer installs it; services add to it; the handler reports it in headers.
type TokenUsage struct {
	EmbeddingTokens int
	GeneratorTokens int
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *TokenUsage) {
	u := &TokenUsage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext returns the collector, or nil when none was installed.
func UsageFromContext(ctx context.Context) *TokenUsage {
	u, _ := ctx.Value(usageKey{}).(*TokenUsage)
	return u
}

// AddEmbedding records embedding tokens. Safe on a nil receiver.
func (u *TokenUsage) AddEmbedding(n int) {
	if u != nil {
		u.EmbeddingTokens += n
	}
}

// AddGenerator records chat-completion tokens. Safe on a nil receiver.
func (u *TokenUsage) AddGenerator(n int) {
	if u != nil {
		u.GeneratorTokens += n
	}
}
