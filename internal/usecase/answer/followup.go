package answer

import (
	"strings"

	"github.com/kailas-cloud/storydex/internal/tokenize"
)

// maxFollowUpWords keeps long questions that happen to contain a follow-up phrase on the retrieval path.
const maxFollowUpWords = 8

var followUpPhrases = []string{
	"tell me more",
	"more details",
	"more detail",
	"go deeper",
	"dig deeper",
	"say more",
	"elaborate",
	"expand on that",
	"more about that",
	"more on that",
	"keep going",
	"continue",
}

// IsFollowUp reports whether text asks to expand on the previous answer
// rather than posing a new question.
func IsFollowUp(text string) bool {
	words := tokenize.Words(text)
	if len(words) == 0 || len(words) > maxFollowUpWords {
		return false
	}
	norm := " " + strings.Join(words, " ") + " "
	for _, p := range followUpPhrases {
		if strings.Contains(norm, " "+p+" ") {
			return true
		}
	}
	return false
}
