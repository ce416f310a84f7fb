// Package summary builds extractive summaries by ranking a page's sentences
// with PageRank over their pairwise similarity.
package summary

import (
	"math"
	"sort"
	"strings"

	"github.com/alvmarrod/template-weaver/internal/embeddings"
	"github.com/alvmarrod/template-weaver/internal/model"
)

// Similarity scores how alike two tokenized sentences are
type Similarity func(a, b []string) float64

// Overlap is the TextRank sentence similarity: shared words normalised by
// the log of both sentence lengths
func Overlap(a, b []string) float64 {
	if len(a) < 2 || len(b) < 2 {
		return 0
	}
	words := make(map[string]bool, len(a))
	for _, w := range a {
		words[strings.ToLower(w)] = true
	}
	common := 0
	for _, w := range b {
		lw := strings.ToLower(w)
		if words[lw] {
			common++
			delete(words, lw)
		}
	}
	return float64(common) / (math.Log(float64(len(a))) + math.Log(float64(len(b))))
}

// Vectors compares the summed word vectors of two sentences by cosine.
// Sentences without any known word fall back to Overlap.
func Vectors(lookup embeddings.Lookup) Similarity {
	return func(a, b []string) float64 {
		va, vb := sentenceVector(lookup, a), sentenceVector(lookup, b)
		if va == nil || vb == nil {
			return Overlap(a, b)
		}
		return math.Max(0, cosine(va, vb))
	}
}

func sentenceVector(lookup embeddings.Lookup, words []string) []float64 {
	var sum []float64
	for _, w := range words {
		v := lookup.VectorFor(w)
		if len(v) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(v))
		}
		for i := 0; i < len(v) && i < len(sum); i++ {
			sum[i] += float64(v[i])
		}
	}
	return sum
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := 0; i < len(a) && i < len(b); i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Matrix builds the row-normalised sentence similarity matrix with a zero
// diagonal
func Matrix(sentences [][]string, sim Similarity) [][]float64 {
	n := len(sentences)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		var sum float64
		for j := range m[i] {
			if i == j {
				continue
			}
			m[i][j] = sim(sentences[i], sentences[j])
			sum += m[i][j]
		}
		if sum > 0 {
			for j := range m[i] {
				m[i][j] /= sum
			}
		}
	}
	return m
}

// Summarizer picks a page's best ranked sentences mentioning its keywords
type Summarizer struct {
	sim       Similarity
	wordLimit int
	damping   float64
}

// New creates a summarizer. A nil lookup compares sentences by word overlap.
func New(lookup embeddings.Lookup, wordLimit int) *Summarizer {
	sim := Similarity(Overlap)
	if lookup != nil {
		sim = Vectors(lookup)
	}
	return &Summarizer{sim: sim, wordLimit: wordLimit, damping: 0.85}
}

// Summarize returns the highest ranked sentences that contain one of the
// result's top words, restored to document order, stopping once the word
// limit is passed
func (s *Summarizer) Summarize(r *model.Result) string {
	if len(r.Sentences) == 0 {
		return ""
	}

	ranks := PageRank(Matrix(r.Sentences, s.sim), s.damping, 100)
	order := make([]int, len(ranks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ranks[order[a]] > ranks[order[b]]
	})

	top := make(map[string]bool, len(r.TopWords))
	for _, w := range r.TopWords {
		top[strings.ToLower(w)] = true
	}

	var picked []int
	words := 0
	for _, idx := range order {
		if !mentions(r.Sentences[idx], top) {
			continue
		}
		picked = append(picked, idx)
		words += len(r.Sentences[idx])
		if words > s.wordLimit {
			break
		}
	}
	sort.Ints(picked)

	var sb strings.Builder
	for _, idx := range picked {
		sb.WriteString(strings.Join(r.Sentences[idx], " "))
		sb.WriteString("\n")
	}
	return tidy(sb.String())
}

func mentions(sentence []string, words map[string]bool) bool {
	for _, w := range sentence {
		if words[strings.ToLower(w)] {
			return true
		}
	}
	return false
}

// tidy removes the space tokenization leaves before periods and commas
func tidy(s string) string {
	return strings.NewReplacer(" .", ".", " ,", ",").Replace(s)
}
