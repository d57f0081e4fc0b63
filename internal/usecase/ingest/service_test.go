package ingest

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/storydex/internal/db"
	"github.com/kailas-cloud/storydex/internal/domain"
	"github.com/kailas-cloud/storydex/internal/domain/story"
)

const dim = 3

// stubEmbedder returns a dim-sized vector per text. Texts containing "fail" fail
// the whole call; texts containing "short" get a truncated vector.
type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, text string) (domain.Embedding, error) {
	if strings.Contains(text, "fail") {
		return domain.Embedding{}, domain.ErrEmbeddingProviderError
	}
	if strings.Contains(text, "short") {
		return domain.Embedding{Vector: []float32{1}}, nil
	}
	return domain.Embedding{Vector: []float32{1, 0, 0}}, nil
}

type stubIndex struct {
	mu        sync.Mutex
	exists    bool
	ensureErr error
	upsertErr error
	defs      []*db.IndexDefinition
	upserts   [][]string
	dropped   []string
	indexed   []string
	keep      []string
}

func (ix *stubIndex) EnsureIndex(_ context.Context, def *db.IndexDefinition) (bool, error) {
	ix.defs = append(ix.defs, def)
	if ix.ensureErr != nil {
		return false, ix.ensureErr
	}
	return !ix.exists, nil
}

func (ix *stubIndex) Upsert(_ context.Context, _ string, stories []*story.Story, vectors [][]float32) error {
	if len(stories) != len(vectors) {
		return errors.New("length mismatch")
	}
	if ix.upsertErr != nil {
		return ix.upsertErr
	}
	ids := make([]string, len(stories))
	for i, s := range stories {
		ids[i] = s.ID
	}
	ix.mu.Lock()
	ix.upserts = append(ix.upserts, ids)
	ix.mu.Unlock()
	return nil
}

func (ix *stubIndex) Prune(_ context.Context, _ string, keep []string) ([]string, error) {
	ix.keep = keep
	var stale []string
	for _, id := range ix.indexed {
		if !slices.Contains(keep, id) {
			stale = append(stale, id)
		}
	}
	return stale, nil
}

func (ix *stubIndex) Drop(_ context.Context, ns string) error {
	ix.dropped = append(ix.dropped, ns)
	return nil
}

func stories(titles ...string) []*story.Story {
	out := make([]*story.Story, len(titles))
	for i, t := range titles {
		out[i] = &story.Story{ID: "s" + string(rune('a'+i)), Title: t}
	}
	return out
}

func newService(ix *stubIndex, batch int) *Service {
	return New(stubEmbedder{}, ix, Config{Namespace: "demo", Dimensions: dim, BatchSize: batch, Concurrency: 2}, zap.NewNop())
}

func TestIndex_Batches(t *testing.T) {
	ix := &stubIndex{}
	svc := newService(ix, 2)

	rep, err := svc.Index(context.Background(), stories("one", "two", "three", "four", "five"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Indexed != 5 || len(rep.Failures) != 0 || !rep.Created {
		t.Errorf("unexpected report %+v", rep)
	}
	if len(ix.upserts) != 3 {
		t.Errorf("expected 3 batches, got %d", len(ix.upserts))
	}
	if len(ix.defs) != 1 || ix.defs[0].Name != "storydex:demo:idx" {
		t.Errorf("unexpected index definition %+v", ix.defs)
	}
}

func TestIndex_ExistingIndex(t *testing.T) {
	ix := &stubIndex{exists: true}
	rep, err := newService(ix, 10).Index(context.Background(), stories("one"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Created || rep.Indexed != 1 {
		t.Errorf("unexpected report %+v", rep)
	}
}

func TestIndex_EmbeddingFailureReportsBatch(t *testing.T) {
	ix := &stubIndex{}
	svc := newService(ix, 2)

	rep, err := svc.Index(context.Background(), stories("one", "fail here", "three"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Indexed != 1 {
		t.Errorf("indexed = %d, want 1", rep.Indexed)
	}
	if len(rep.Failures) != 2 || rep.Failures[0].ID != "sa" || rep.Failures[1].ID != "sb" {
		t.Fatalf("unexpected failures %+v", rep.Failures)
	}
	if !errors.Is(rep.Failures[0].Err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected provider error, got %v", rep.Failures[0].Err)
	}
}

func TestIndex_DimensionMismatchSkipsStory(t *testing.T) {
	ix := &stubIndex{}
	rep, err := newService(ix, 10).Index(context.Background(), stories("one", "short one"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Indexed != 1 || len(rep.Failures) != 1 || rep.Failures[0].ID != "sb" {
		t.Errorf("unexpected report %+v", rep)
	}
	if len(ix.upserts) != 1 || len(ix.upserts[0]) != 1 || ix.upserts[0][0] != "sa" {
		t.Errorf("unexpected upserts %v", ix.upserts)
	}
}

func TestIndex_UpsertFailure(t *testing.T) {
	ix := &stubIndex{upsertErr: errors.New("redis down")}
	rep, err := newService(ix, 10).Index(context.Background(), stories("one", "two"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Indexed != 0 || len(rep.Failures) != 2 {
		t.Errorf("unexpected report %+v", rep)
	}
}

func TestIndex_UncitableStory(t *testing.T) {
	ix := &stubIndex{}
	in := stories("one")
	in = append(in, &story.Story{Title: "no id"})

	rep, err := newService(ix, 10).Index(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Indexed != 1 || len(rep.Failures) != 1 || rep.Failures[0].ID != "#1" {
		t.Errorf("unexpected report %+v", rep)
	}
}

func TestIndex_EnsureFailureIsFatal(t *testing.T) {
	ix := &stubIndex{ensureErr: errors.New("no search module")}
	if _, err := newService(ix, 10).Index(context.Background(), stories("one")); err == nil {
		t.Fatal("expected error")
	}
	if len(ix.upserts) != 0 {
		t.Error("nothing should be written without an index")
	}
}

func TestIndex_RequiresDimensions(t *testing.T) {
	svc := New(stubEmbedder{}, &stubIndex{}, Config{Namespace: "demo"}, zap.NewNop())
	if _, err := svc.Index(context.Background(), stories("one")); err == nil {
		t.Fatal("expected error")
	}
}

func TestIndex_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(&stubIndex{}, 1).Index(ctx, stories("one", "two"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDrop(t *testing.T) {
	ix := &stubIndex{}
	if err := newService(ix, 10).Drop(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ix.dropped) != 1 || ix.dropped[0] != "demo" {
		t.Errorf("unexpected drops %v", ix.dropped)
	}
}

func TestIndex_Prune(t *testing.T) {
	ix := &stubIndex{indexed: []string{"sa", "retired"}}
	svc := New(stubEmbedder{}, ix, Config{Namespace: "demo", Dimensions: dim, Prune: true}, zap.NewNop())

	rep, err := svc.Index(context.Background(), stories("one", "two"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ix.keep) != 2 {
		t.Errorf("keep = %v", ix.keep)
	}
	if len(rep.Pruned) != 1 || rep.Pruned[0] != "retired" {
		t.Errorf("pruned = %v", rep.Pruned)
	}
}

func TestIndex_NoPruneByDefault(t *testing.T) {
	ix := &stubIndex{indexed: []string{"retired"}}
	rep, err := newService(ix, 10).Index(context.Background(), stories("one"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Pruned != nil || ix.keep != nil {
		t.Errorf("prune ran without being enabled: %v", rep.Pruned)
	}
}
