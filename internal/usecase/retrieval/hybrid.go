package retrieval

import (
	"errors"
	"sort"

	"github.com/kailas-cloud/storydex/internal/domain/search/candidate"
	"github.com/kailas-cloud/storydex/internal/domain/story"
	"github.com/kailas-cloud/storydex/internal/tokenize"
)

// Weights blend vector similarity and keyword overlap into the hybrid score.
type Weights struct {
	Similarity float64
	Keyword    float64
}

// DefaultWeights ranks by similarity alone.
func DefaultWeights() Weights {
	return Weights{Similarity: 1.0, Keyword: 0.0}
}

// Validate rejects negative weights.
func (w Weights) Validate() error {
	if w.Similarity < 0 || w.Keyword < 0 {
		return errors.New("weights must be non-negative")
	}
	return nil
}

// Score returns Similarity*sim + Keyword*kw.
func (w Weights) Score(sim, kw float64) float64 {
	return w.Similarity*sim + w.Keyword*kw
}

// KeywordScore measures how many unique query terms appear in the story's
// title, client, role, sub-category, tags and summary. Title and sub-category
// hits weigh 2, the rest 1. The sum is divided by 2*len(terms) and capped at 1.
func KeywordScore(terms []string, s *story.Story) float64 {
	if len(terms) == 0 || s == nil {
		return 0
	}

	strong := termSet(s.Title, s.SubCategory)
	weak := termSet(append([]string{s.Client, s.Role, s.Summary}, s.Tags...)...)

	hits := 0
	for _, t := range terms {
		switch {
		case strong[t]:
			hits += 2
		case weak[t]:
			hits++
		}
	}
	return min(1.0, float64(hits)/float64(2*len(terms)))
}

func termSet(fields ...string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range fields {
		for _, t := range tokenize.Terms(f) {
			set[t] = true
		}
	}
	return set
}

// score fills Keyword and Hybrid on every candidate.
func score(cands []candidate.Candidate, terms []string, w Weights) {
	for i := range cands {
		cands[i].Keyword = KeywordScore(terms, cands[i].Story)
		cands[i].Hybrid = w.Score(cands[i].Similarity, cands[i].Keyword)
	}
}

// Rank sorts by hybrid desc, then keyword desc, then similarity desc, then ID asc.
func Rank(cands []candidate.Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Hybrid != b.Hybrid {
			return a.Hybrid > b.Hybrid
		}
		if a.Keyword != b.Keyword {
			return a.Keyword > b.Keyword
		}
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		return a.ID() < b.ID()
	})
}
