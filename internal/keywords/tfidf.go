// Package keywords ranks a document's distinguishing terms with TF-IDF.
package keywords

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Document is a tokenized document: one token list per sentence
type Document [][]string

// Vocabulary returns the lowercase alphanumeric non-stop-word terms that
// occur in at least threshold documents
func Vocabulary(docs []Document, threshold int) map[string]int {
	df := documentFrequencies(docs)
	vocab := make(map[string]int)
	for term, count := range df {
		if count >= threshold {
			vocab[term] = count
		}
	}
	return vocab
}

func documentFrequencies(docs []Document) map[string]int {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, sentence := range doc {
			for _, token := range sentence {
				term, ok := normalize(token)
				if !ok || seen[term] {
					continue
				}
				seen[term] = true
				df[term]++
			}
		}
	}
	return df
}

// normalize lowercases token and reports whether it can be a vocabulary term
func normalize(token string) (string, bool) {
	term := strings.ToLower(token)
	if term == "" || IsStopWord(term) {
		return "", false
	}
	for _, r := range term {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return "", false
		}
	}
	return term, true
}

// IDF returns ln(n/df), falling back to ln(1+df) when the ratio is zero or
// undefined
func IDF(n, df int) float64 {
	if n <= 0 || df <= 0 {
		return math.Log(1 + float64(df))
	}
	return math.Log(float64(n) / float64(df))
}

// Transform scores every vocabulary term of each document with its raw term
// count times its inverse document frequency
func Transform(docs []Document, vocabularyThreshold int) []map[string]float64 {
	vocab := Vocabulary(docs, vocabularyThreshold)

	idf := make(map[string]float64, len(vocab))
	for term, df := range vocab {
		idf[term] = IDF(len(docs), df)
	}

	scores := make([]map[string]float64, len(docs))
	for i, doc := range docs {
		tf := make(map[string]int)
		for _, sentence := range doc {
			for _, token := range sentence {
				term, ok := normalize(token)
				if !ok {
					continue
				}
				if _, inVocab := vocab[term]; inVocab {
					tf[term]++
				}
			}
		}

		scores[i] = make(map[string]float64, len(tf))
		for term, count := range tf {
			scores[i][term] = float64(count) * idf[term]
		}
	}
	return scores
}

// Top returns up to n terms with a positive score, highest first, ties
// broken alphabetically
func Top(scores map[string]float64, n int) []string {
	terms := make([]string, 0, len(scores))
	for term, score := range scores {
		if score > 0 {
			terms = append(terms, term)
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		si, sj := scores[terms[i]], scores[terms[j]]
		if si != sj {
			return si > sj
		}
		return terms[i] < terms[j]
	})
	if n >= 0 && len(terms) > n {
		terms = terms[:n]
	}
	return terms
}
