package retrieval

import (
	"github.com/kailas-cloud/storydex/internal/domain/search/candidate"
	"github.com/kailas-cloud/storydex/internal/domain/story"
)

// Fallback ranks the whole corpus by keyword score alone. Stories scoring zero
// and stories that cannot be cited are dropped. Similarity stays 0.
func Fallback(stories []*story.Story, terms []string, w Weights) []candidate.Candidate {
	var out []candidate.Candidate
	for _, s := range stories {
		if !s.Citable() {
			continue
		}
		kw := KeywordScore(terms, s)
		if kw <= 0 {
			continue
		}
		out = append(out, candidate.Candidate{Story: s, Keyword: kw, Hybrid: w.Score(0, kw)})
	}
	Rank(out)
	return out
}
