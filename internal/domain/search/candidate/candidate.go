// Package candidate holds the request-scoped scoring wrapper around a story.
package candidate

import "github.com/kailas-cloud/storydex/internal/domain/story"

// Candidate is a story plus the scores computed for one query.
// It is never written back to the corpus.
type Candidate struct {
	Story      *story.Story
	Similarity float64
	Keyword    float64
	Hybrid     float64
}

// ID returns the underlying story ID.
func (c Candidate) ID() string { return c.Story.ID }

// Client returns the underlying story client.
func (c Candidate) Client() string { return c.Story.Client }

// TopSimilarity returns the highest similarity in cands, or 0 for none.
func TopSimilarity(cands []Candidate) float64 {
	top := 0.0
	for _, c := range cands {
		if c.Similarity > top {
			top = c.Similarity
		}
	}
	return top
}

// Stories unwraps candidates in order.
func Stories(cands []Candidate) []*story.Story {
	out := make([]*story.Story, len(cands))
	for i := range cands {
		out[i] = cands[i].Story
	}
	return out
}
