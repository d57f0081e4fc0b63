package offdomain

import (
	"github.com/kailas-cloud/storydex/internal/domain/story"
	"github.com/kailas-cloud/storydex/internal/tokenize"
)

// DefaultLowOverlapThreshold is the overlap ratio below which a query with no vector hits is rejected.
const DefaultLowOverlapThreshold = 0.15

// CategoryLowOverlap labels rejections by the vocabulary overlap check.
const CategoryLowOverlap = "low_overlap"

// Vocabulary is the set of domain terms harvested from the corpus. Read-only after build.
type Vocabulary map[string]struct{}

// BuildVocabulary collects terms from story title, client, role, industry, sub-category and tags.
func BuildVocabulary(stories []*story.Story) Vocabulary {
	v := make(Vocabulary)
	for _, s := range stories {
		fields := []string{s.Title, s.Client, s.Role, s.Industry, s.SubCategory}
		fields = append(fields, s.Tags...)
		for _, f := range fields {
			for _, t := range tokenize.Terms(f) {
				v[t] = struct{}{}
			}
		}
	}
	return v
}

// Contains reports whether term is in the vocabulary.
func (v Vocabulary) Contains(term string) bool {
	_, ok := v[term]
	return ok
}

// OverlapRatio is the number of query term occurrences found in vocab divided by
// the number of unique query terms. Repeated hits count each time, so the ratio may exceed 1.
// A query with no terms scores 0.
func OverlapRatio(query string, vocab Vocabulary) float64 {
	terms := tokenize.Terms(query)
	if len(terms) == 0 {
		return 0
	}
	unique := make(map[string]struct{}, len(terms))
	hits := 0
	for _, t := range terms {
		unique[t] = struct{}{}
		if vocab.Contains(t) {
			hits++
		}
	}
	return float64(hits) / float64(len(unique))
}
