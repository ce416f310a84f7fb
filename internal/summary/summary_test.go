package summary

import (
	"math"
	"strings"
	"testing"

	"github.com/alvmarrod/template-weaver/internal/model"
)

func TestPageRankSymmetricGraphIsUniform(t *testing.T) {
	w := [][]float64{
		{0, 1, 1},
		{1, 0, 1},
		{1, 1, 0},
	}
	ranks := PageRank(w, 0.85, 100)
	for i, r := range ranks {
		if math.Abs(r-1.0/3.0) > 1e-6 {
			t.Errorf("rank[%d] = %v, want 1/3", i, r)
		}
	}
}

func TestPageRankFavoursHub(t *testing.T) {
	// Every node points at node 0, node 0 points back at everyone.
	w := [][]float64{
		{0, 1, 1, 1},
		{1, 0, 0, 0},
		{1, 0, 0, 0},
		{1, 0, 0, 0},
	}
	ranks := PageRank(w, 0.85, 100)

	var total float64
	for i, r := range ranks {
		total += r
		if i > 0 && r >= ranks[0] {
			t.Errorf("rank[%d] = %v not below hub %v", i, r, ranks[0])
		}
	}
	if math.Abs(total-1) > 1e-6 {
		t.Errorf("ranks sum to %v, want 1", total)
	}
}

func TestPageRankDanglingNodes(t *testing.T) {
	ranks := PageRank([][]float64{{0, 0}, {0, 0}}, 0.85, 50)
	if math.Abs(ranks[0]-0.5) > 1e-9 || math.Abs(ranks[1]-0.5) > 1e-9 {
		t.Errorf("ranks = %v, want uniform", ranks)
	}
	if PageRank(nil, 0.85, 10) != nil {
		t.Error("PageRank(nil) != nil")
	}
}

func TestMatrixRowsNormalised(t *testing.T) {
	sentences := [][]string{
		{"the", "crawler", "fetches", "pages"},
		{"the", "crawler", "parses", "pages"},
		{"unrelated", "words", "only", "here"},
	}
	m := Matrix(sentences, Overlap)

	for i, row := range m {
		if row[i] != 0 {
			t.Errorf("diagonal m[%d][%d] = %v", i, i, row[i])
		}
	}
	if sum := m[0][1] + m[0][2]; math.Abs(sum-1) > 1e-9 {
		t.Errorf("row 0 sums to %v", sum)
	}
	for _, v := range m[2] {
		if v != 0 {
			t.Errorf("isolated sentence row = %v, want zeros", m[2])
		}
	}
}

type fakeLookup map[string][]float32

func (l fakeLookup) VectorFor(word string) []float32 { return l[word] }

func TestVectorsSimilarity(t *testing.T) {
	sim := Vectors(fakeLookup{
		"cat": {1, 0},
		"dog": {0.9, 0.1},
		"car": {0, 1},
	})

	if a, b := sim([]string{"cat"}, []string{"dog"}), sim([]string{"cat"}, []string{"car"}); a <= b {
		t.Errorf("cat~dog %v should exceed cat~car %v", a, b)
	}
	// No known words falls back to overlap.
	if got := sim([]string{"x", "y"}, []string{"x", "y"}); got <= 0 {
		t.Errorf("fallback similarity = %v, want > 0", got)
	}
}

func TestSummarizeRespectsWordLimitAndOrder(t *testing.T) {
	r := &model.Result{
		TopWords: []string{"crawler"},
		Sentences: [][]string{
			{"the", "crawler", "visits", "pages", "."},
			{"nothing", "relevant", "in", "this", "one", "."},
			{"a", "crawler", "follows", "links", ",", "quickly", "."},
			{"the", "crawler", "stores", "pages", "."},
		},
	}

	s := New(nil, 4)
	got := s.Summarize(r)

	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 1 {
		t.Fatalf("Summarize() = %q, want a single sentence past the limit", got)
	}
	if strings.Contains(got, " .") || strings.Contains(got, " ,") {
		t.Errorf("Summarize() kept tokenization spaces: %q", got)
	}

	all := New(nil, 100).Summarize(r)
	want := "the crawler visits pages.\na crawler follows links, quickly.\nthe crawler stores pages.\n"
	if all != want {
		t.Errorf("Summarize() = %q, want %q", all, want)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if got := New(nil, 10).Summarize(&model.Result{}); got != "" {
		t.Errorf("Summarize(empty) = %q", got)
	}
}
