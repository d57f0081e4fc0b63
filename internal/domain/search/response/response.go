// Package response holds the retrieval pipeline result.
package response

import (
	"github.com/kailas-cloud/storydex/internal/domain/search/candidate"
	"github.com/kailas-cloud/storydex/internal/domain/search/confidence"
	"github.com/kailas-cloud/storydex/internal/domain/search/filter"
)

// Response is what the retrieval pipeline hands to the caller.
type Response struct {
	Results    []candidate.Candidate
	Confidence confidence.Band
	// TopScore is the best similarity seen before diversity re-ranking.
	TopScore float64
	// RelaxedCount is the number of candidates that metadata filters removed
	// when they removed all of them.
	RelaxedCount  int
	ActiveFilters []filter.Active
	// OffDomain names the rejection category; empty when the query was accepted.
	OffDomain string
	// Fallback is set when results came from local keyword ranking.
	Fallback bool
}

// Empty returns a response with no results and confidence none.
func Empty() Response {
	return Response{Confidence: confidence.None}
}

// Rejected returns an off-domain response for category.
func Rejected(category string) Response {
	return Response{Confidence: confidence.None, OffDomain: category}
}

// IDs returns the story IDs of the results in order.
func (r Response) IDs() []string {
	ids := make([]string, len(r.Results))
	for i, c := range r.Results {
		ids[i] = c.ID()
	}
	return ids
}

// IsOffDomain reports whether the query was rejected.
func (r Response) IsOffDomain() bool { return r.OffDomain != "" }
