package vectorindex

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/storydex/internal/db"
	"github.com/kailas-cloud/storydex/internal/domain"
	"github.com/kailas-cloud/storydex/internal/domain/search/filter"
)

func TestIndexName(t *testing.T) {
	if got := IndexName(""); got != "storydex:default:idx" {
		t.Errorf("IndexName(\"\") = %s", got)
	}
	if got := IndexName("demo"); got != "storydex:demo:idx" {
		t.Errorf("IndexName(demo) = %s", got)
	}
	if got := KeyPrefix("demo"); got != "storydex:demo:story:" {
		t.Errorf("KeyPrefix(demo) = %s", got)
	}
}

func TestQuery_BuildsKNNQuery(t *testing.T) {
	ix, ms := newTestIndex(t, 0)
	must, _ := filter.NewMatch("industry", "Banking")
	expr, _ := filter.NewExpression([]filter.Condition{must}, nil)

	var got *db.KNNQuery
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		got = q
		return &db.SearchResult{}, nil
	}

	out := ix.Query(context.Background(), []float32{0.1, 0.2}, 0, QueryOptions{Namespace: "demo", Filters: expr})
	if out.Failed() {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	if got.IndexName != "storydex:demo:idx" {
		t.Errorf("IndexName = %s", got.IndexName)
	}
	if got.K != DefaultTopK {
		t.Errorf("K = %d, want %d", got.K, DefaultTopK)
	}
	if got.VectorField != "vector" {
		t.Errorf("VectorField = %s", got.VectorField)
	}
	if len(got.Prefilter.Must()) != 1 {
		t.Errorf("prefilter not passed through: %v", got.Prefilter.Active())
	}
	if len(out.Matches) != 0 {
		t.Errorf("expected no matches, got %d", len(out.Matches))
	}
}

func TestQuery_OrdersMatchesAndStripsPrefix(t *testing.T) {
	ix, ms := newTestIndex(t, 0)
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 3, Entries: []db.SearchEntry{
			{Key: "storydex:default:story:low", Score: 0.2, Fields: map[string]string{"client": "acme"}},
			{Key: "storydex:default:story:ignored", Score: 0.9, Fields: map[string]string{"id": "pay-01", "title": "Payments"}},
			{Key: "storydex:default:story:mid", Score: 0.5},
		}}, nil
	}

	out := ix.Query(context.Background(), []float32{1}, 3, QueryOptions{})
	if out.Failed() {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	ids := []string{out.Matches[0].ID, out.Matches[1].ID, out.Matches[2].ID}
	want := []string{"pay-01", "mid", "low"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order = %v, want %v", ids, want)
		}
	}
	if out.Matches[0].Metadata["title"] != "Payments" {
		t.Errorf("metadata lost: %v", out.Matches[0].Metadata)
	}
	if _, ok := out.Matches[0].Metadata["id"]; ok {
		t.Error("id should not be repeated in metadata")
	}
	if out.Matches[2].Metadata["client"] != "acme" {
		t.Errorf("metadata lost: %v", out.Matches[2].Metadata)
	}
}

func TestQuery_FailureIsOutcome(t *testing.T) {
	ix, ms := newTestIndex(t, 2)
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: errors.New("connection refused")}
	}

	out := ix.Query(context.Background(), []float32{1}, 5, QueryOptions{})
	if !out.Failed() {
		t.Fatal("expected failed outcome")
	}
	if !errors.Is(out.Err, domain.ErrVectorIndexUnavailable) {
		t.Errorf("expected ErrVectorIndexUnavailable, got %v", out.Err)
	}
	if len(out.Matches) != 0 {
		t.Errorf("failed outcome must carry no matches")
	}
	if ms.searchCalls != 3 {
		t.Errorf("expected 3 attempts, got %d", ms.searchCalls)
	}
}

func TestQuery_RecoversAfterTransientError(t *testing.T) {
	ix, ms := newTestIndex(t, 2)
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		if ms.searchCalls == 1 {
			return nil, errors.New("timeout")
		}
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{Key: "storydex:default:story:a", Score: 0.7}}}, nil
	}

	out := ix.Query(context.Background(), []float32{1}, 5, QueryOptions{})
	if out.Failed() {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	if len(out.Matches) != 1 || out.Matches[0].ID != "a" {
		t.Errorf("unexpected matches %+v", out.Matches)
	}
}

func TestQuery_MissingIndexNotRetried(t *testing.T) {
	ix, ms := newTestIndex(t, 2)
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
	}

	out := ix.Query(context.Background(), []float32{1}, 5, QueryOptions{})
	if !errors.Is(out.Err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound in chain, got %v", out.Err)
	}
	if ms.searchCalls != 1 {
		t.Errorf("expected a single attempt, got %d", ms.searchCalls)
	}
}

func TestQuery_EmptyVector(t *testing.T) {
	ix, ms := newTestIndex(t, 0)
	out := ix.Query(context.Background(), nil, 5, QueryOptions{})
	if !errors.Is(out.Err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", out.Err)
	}
	if ms.searchCalls != 0 {
		t.Error("store must not be called for an empty vector")
	}
}
