// Package tokenize splits free text into comparable lowercase terms.
package tokenize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinTermLength is the shortest token kept as a term.
const MinTermLength = 3

var wordRe = regexp.MustCompile(`[\p{L}\p{M}\p{N}]+`)

// stopwords are common English words excluded from overlap and keyword scoring.
var stopwords = map[string]bool{
	"the": true, "and": true, "are": true, "was": true, "were": true,
	"does": true, "did": true, "have": true, "has": true, "had": true,
	"been": true, "being": true, "will": true, "would": true, "could": true,
	"should": true, "may": true, "might": true, "can": true, "shall": true,
	"not": true, "but": true, "then": true, "than": true, "for": true,
	"from": true, "into": true, "with": true, "about": true, "out": true,
	"its": true, "this": true, "that": true, "these": true, "those": true,
	"what": true, "which": true, "who": true, "whom": true, "how": true,
	"when": true, "where": true, "why": true, "you": true, "your": true,
	"they": true, "them": true, "she": true, "her": true, "him": true,
	"his": true, "our": true, "any": true, "all": true, "some": true,
	"tell": true, "show": true, "give": true, "more": true, "most": true,
	"very": true, "just": true, "also": true, "there": true, "here": true,
	"done": true, "get": true, "got": true, "one": true,
}

// Words returns every lowercase run of letters and digits in text, in order.
func Words(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// Terms returns words of at least MinTermLength runes that are not stopwords, in order, with repeats.
func Terms(text string) []string {
	words := Words(text)
	out := words[:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) < MinTermLength || stopwords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// UniqueTerms returns Terms with duplicates removed, preserving first occurrence.
func UniqueTerms(text string) []string {
	terms := Terms(text)
	seen := make(map[string]bool, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// IsStopword reports whether w is excluded from scoring.
func IsStopword(w string) bool {
	return stopwords[strings.ToLower(w)]
}
