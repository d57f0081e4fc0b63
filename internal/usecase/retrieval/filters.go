package retrieval

import (
	"github.com/kailas-cloud/storydex/internal/domain/search/candidate"
	"github.com/kailas-cloud/storydex/internal/domain/search/filter"
	"github.com/kailas-cloud/storydex/internal/domain/story"
)

// filterStories keeps the stories expr admits. The index applies the same
// expression as a tag pre-filter, so local ranking sees the same pool.
func filterStories(stories []*story.Story, expr filter.Expression) []*story.Story {
	if expr.IsEmpty() {
		return stories
	}
	kept := make([]*story.Story, 0, len(stories))
	for _, s := range stories {
		if expr.Matches(s) {
			kept = append(kept, s)
		}
	}
	return kept
}

// applyFilters keeps candidates matching expr. When expr removes every
// candidate of a non-empty set, relaxed is the size of that set.
func applyFilters(cands []candidate.Candidate, expr filter.Expression) (kept []candidate.Candidate, relaxed int) {
	if expr.IsEmpty() || len(cands) == 0 {
		return cands, 0
	}
	kept = make([]candidate.Candidate, 0, len(cands))
	for _, c := range cands {
		if expr.Matches(c.Story) {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil, len(cands)
	}
	return kept, 0
}
