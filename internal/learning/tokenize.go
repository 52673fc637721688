// Package learning implements the orchestration core's learning loop:
// TF-IDF backed knowledge and lesson search, mission-outcome harvesting,
// pattern detection, and agent recommendation by historical success rate.
package learning

import (
	"regexp"
	"strings"
)

var wordRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"is": true, "in": true, "to": true, "of": true, "for": true,
	"it": true, "on": true, "at": true, "by": true, "this": true,
	"that": true, "with": true, "from": true, "as": true, "be": true,
	"was": true, "are": true, "been": true, "being": true, "have": true,
	"has": true, "had": true, "do": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true,
	"i": true, "you": true, "we": true, "they": true, "he": true, "she": true,
}

// Tokenize lowercases text and splits it into word terms, dropping
// stopwords and anything shorter than two characters.
func Tokenize(text string) []string {
	matches := wordRegex.FindAllString(strings.ToLower(text), -1)

	terms := make([]string, 0, len(matches))
	for _, term := range matches {
		if len(term) >= 2 && !stopwords[term] {
			terms = append(terms, term)
		}
	}
	return terms
}

// ComputeTermFrequency returns each term's frequency normalized against
// the document's most frequent term: 0.5 + 0.5*count/maxCount.
func ComputeTermFrequency(terms []string) map[string]float64 {
	counts := make(map[string]int)
	for _, term := range terms {
		counts[term]++
	}

	maxFreq := 0
	for _, count := range counts {
		if count > maxFreq {
			maxFreq = count
		}
	}

	tf := make(map[string]float64, len(counts))
	for term, count := range counts {
		tf[term] = 0.5 + 0.5*float64(count)/float64(maxFreq)
	}
	return tf
}
