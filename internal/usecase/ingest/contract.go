package ingest

import (
	"context"

	"github.com/kailas-cloud/storydex/internal/db"
	"github.com/kailas-cloud/storydex/internal/domain/story"
)

// Index is the write side of the vector index.
type Index interface {
	EnsureIndex(ctx context.Context, def *db.IndexDefinition) (bool, error)
	Upsert(ctx context.Context, namespace string, stories []*story.Story, vectors [][]float32) error
	Prune(ctx context.Context, namespace string, keep []string) ([]string, error)
	Drop(ctx context.Context, namespace string) error
}
