package retrieval

import (
	"strings"

	"github.com/kailas-cloud/storydex/internal/domain/search/candidate"
)

// Diversify keeps at most maxPerClient candidates per client (case-insensitive)
// in score order and defers the rest. Deferred candidates are appended in their
// original order until want results exist; want <= 0 appends all of them.
// maxPerClient <= 0 returns ranked unchanged. Candidates with a blank client are never capped.
func Diversify(ranked []candidate.Candidate, maxPerClient, want int) []candidate.Candidate {
	if maxPerClient <= 0 {
		return ranked
	}

	kept := make([]candidate.Candidate, 0, len(ranked))
	var overflow []candidate.Candidate
	perClient := make(map[string]int)

	for _, c := range ranked {
		client := strings.ToLower(strings.TrimSpace(c.Client()))
		if client == "" {
			kept = append(kept, c)
			continue
		}
		if perClient[client] >= maxPerClient {
			overflow = append(overflow, c)
			continue
		}
		perClient[client]++
		kept = append(kept, c)
	}

	if want <= 0 {
		return append(kept, overflow...)
	}
	for _, c := range overflow {
		if len(kept) >= want {
			break
		}
		kept = append(kept, c)
	}
	return kept
}
