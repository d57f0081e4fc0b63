// Package corpus loads the curated story collection and serves it read-only.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/kailas-cloud/storydex/internal/domain"
	"github.com/kailas-cloud/storydex/internal/domain/search/filter"
	"github.com/kailas-cloud/storydex/internal/domain/story"
)

const maxRecordBytes = 4 << 20

var (
	errMissingID    = errors.New("missing id")
	errMissingTitle = errors.New("missing Title")
	errDuplicate    = errors.New("duplicate id")
)

// Corpus is the in-memory story collection in file order.
// It is immutable after construction and safe for concurrent readers.
type Corpus struct {
	stories []*story.Story
	byID    map[string]*story.Story
}

// New builds a corpus from already-parsed stories. Blank and duplicate IDs are dropped.
func New(stories []story.Story) *Corpus {
	c := &Corpus{byID: make(map[string]*story.Story, len(stories))}
	for i := range stories {
		s := stories[i]
		if !s.Citable() {
			continue
		}
		if _, dup := c.byID[s.ID]; dup {
			continue
		}
		c.stories = append(c.stories, &s)
		c.byID[s.ID] = &s
	}
	return c
}

// Load reads path as a JSON array or newline-delimited JSON.
// Unreadable files return *LoadError; bad records are skipped with a warning.
func Load(path string, log *zap.Logger) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}
	defer func() { _ = f.Close() }()

	c, skipped, err := Read(f)
	if err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}
	for _, s := range skipped {
		log.Warn("skipping corpus record", zap.String("path", path), zap.Error(s))
	}
	// Stories without a client stay citable; diversity never caps them.
	for _, s := range c.All() {
		if s.Client == "" {
			log.Warn("corpus record has no Client", zap.String("path", path), zap.String("id", s.ID))
		}
	}
	log.Info("corpus loaded", zap.String("path", path),
		zap.Int("stories", c.Len()), zap.Int("skipped", len(skipped)))
	return c, nil
}

// Read parses records from r. The returned slice lists records that were skipped.
func Read(r io.Reader) (*Corpus, []error, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return New(nil), nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var raws []json.RawMessage
	if first == '[' {
		if err := json.NewDecoder(br).Decode(&raws); err != nil {
			return nil, nil, fmt.Errorf("decode array: %w", err)
		}
	} else {
		sc := bufio.NewScanner(br)
		sc.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			raws = append(raws, json.RawMessage(bytes.Clone(line)))
		}
		if err := sc.Err(); err != nil {
			return nil, nil, fmt.Errorf("scan lines: %w", err)
		}
	}

	var (
		stories []story.Story
		skipped []error
		seen    = make(map[string]bool, len(raws))
	)
	for i, raw := range raws {
		s, err := story.Parse(raw)
		switch {
		case err != nil:
			skipped = append(skipped, &RecordError{Index: i, Cause: err})
			continue
		case !s.Citable():
			skipped = append(skipped, &RecordError{Index: i, Cause: errMissingID})
			continue
		case s.Title == "":
			skipped = append(skipped, &RecordError{Index: i, ID: s.ID, Cause: errMissingTitle})
			continue
		case seen[s.ID]:
			skipped = append(skipped, &RecordError{Index: i, ID: s.ID, Cause: errDuplicate})
			continue
		}
		seen[s.ID] = true
		stories = append(stories, s)
	}
	return New(stories), skipped, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}

// All returns every story in file order. Callers must not modify the stories.
func (c *Corpus) All() []*story.Story {
	return c.stories
}

// Len returns the number of stories.
func (c *Corpus) Len() int {
	return len(c.stories)
}

// Get returns a story by ID or domain.ErrNotFound.
func (c *Corpus) Get(id string) (*story.Story, error) {
	s, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("story %q: %w", id, domain.ErrNotFound)
	}
	return s, nil
}

// Lookup returns a story by ID and whether it exists.
func (c *Corpus) Lookup(id string) (*story.Story, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// List returns stories matching expr in file order, at most limit when limit > 0.
func (c *Corpus) List(expr filter.Expression, limit int) []*story.Story {
	var out []*story.Story
	for _, s := range c.stories {
		if !expr.Matches(s) {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
