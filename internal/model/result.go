package model

import "strings"

// ScoredNode is a content element kept by the node filter
type ScoredNode struct {
	Tag         string
	Text        string
	TextDensity float64
	LinkDensity float64
}

// Result is the extraction record of one page
type Result struct {
	Link  string
	Title string

	// Nodes are the kept content elements in document order
	Nodes []ScoredNode

	Content   string
	Sentences [][]string
	Tags      [][]string

	// Valid marks a result that needs no further processing. Cached marks
	// one that was accepted from the site cache without relevance scoring.
	Valid  bool
	Cached bool

	TopWords  []string
	Summary   string
	Entities  map[string][]string
	Sentiment int
}

// Words returns every token of the result's sentences
func (r *Result) Words() []string {
	var words []string
	for _, s := range r.Sentences {
		words = append(words, s...)
	}
	return words
}

// MatchesAny reports whether any of the result's top words equals one of
// terms, case-insensitively
func (r *Result) MatchesAny(terms []string) bool {
	for _, w := range r.TopWords {
		for _, t := range terms {
			if strings.EqualFold(w, strings.TrimSpace(t)) {
				return true
			}
		}
	}
	return false
}
