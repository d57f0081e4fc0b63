package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/storydex/internal/domain"
	"github.com/kailas-cloud/storydex/internal/domain/search/filter"
	"github.com/kailas-cloud/storydex/internal/domain/story"
)

func TestRead_NDJSON(t *testing.T) {
	in := strings.Join([]string{
		`{"id":"a","Title":"Payments","Client":"Acme","Industry":"Banking"}`,
		``,
		`{"id":"b","Title":"Claims","Client":"Beta","Industry":"Insurance"}`,
		`{broken`,
		`{"Title":"no id"}`,
		`{"id":"c","Client":"Gamma"}`,
		`{"id":"a","Title":"dup","Client":"Acme"}`,
	}, "\n")

	c, skipped, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 stories, got %d", c.Len())
	}
	if len(skipped) != 4 {
		t.Fatalf("expected 4 skipped, got %d: %v", len(skipped), skipped)
	}
	if !errors.Is(skipped[1], errMissingID) || !errors.Is(skipped[2], errMissingTitle) || !errors.Is(skipped[3], errDuplicate) {
		t.Errorf("unexpected skip reasons: %v", skipped)
	}
	if s, _ := c.Lookup("a"); s.Title != "Payments" {
		t.Errorf("first occurrence must win, got %q", s.Title)
	}
}

func TestRead_Array(t *testing.T) {
	in := `  [{"id":"a","Title":"A","Situation":"x"},{"id":"b","Title":"B","Situation":["y","z"]}]`
	c, skipped, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 2 || len(skipped) != 0 {
		t.Fatalf("got %d stories, %d skipped", c.Len(), len(skipped))
	}
	if c.All()[0].ID != "a" || c.All()[1].ID != "b" {
		t.Error("file order not preserved")
	}
}

func TestRead_Empty(t *testing.T) {
	c, _, err := Read(strings.NewReader("  \n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty corpus, got %d", c.Len())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"), zap.NewNop())
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LoadError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped ErrNotExist, got %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stories.jsonl")
	if err := os.WriteFile(path, []byte(`{"id":"a","Title":"T","Client":"Acme"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 story, got %d", c.Len())
	}
}

func TestLoad_WarnsOnBlankClient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stories.jsonl")
	data := `{"id":"a","Title":"Team building","Client":""}` + "\n" + `{"id":"b","Title":"Payments","Client":"Acme"}` + "\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	core, logs := observer.New(zap.WarnLevel)

	c, err := Load(path, zap.New(core))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("blank client must still load, got %d stories", c.Len())
	}
	warned := logs.FilterMessage("corpus record has no Client").All()
	if len(warned) != 1 || warned[0].ContextMap()["id"] != "a" {
		t.Errorf("expected one warning for a, got %v", warned)
	}
}

func TestCorpus_GetAndList(t *testing.T) {
	c := New([]story.Story{
		{ID: "a", Industry: "Banking"},
		{ID: "", Industry: "Banking"},
		{ID: "b", Industry: "Retail"},
		{ID: "c", Industry: "banking"},
	})

	if _, err := c.Get("zzz"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if s, err := c.Get("b"); err != nil || s.Industry != "Retail" {
		t.Errorf("Get(b) = %v, %v", s, err)
	}

	expr, _ := filter.FromMap(map[string]string{"industry": "Banking"})
	got := c.List(expr, 0)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("unexpected list %v", got)
	}
	if got := c.List(expr, 1); len(got) != 1 {
		t.Errorf("limit not applied, got %d", len(got))
	}
}
