package keywords

import (
	"math"
	"reflect"
	"testing"
)

func doc(sentences ...[]string) Document {
	return Document(sentences)
}

func TestIDF(t *testing.T) {
	tests := []struct {
		name  string
		n, df int
		want  float64
	}{
		{name: "every document", n: 10, df: 10, want: 0},
		{name: "three of ten", n: 10, df: 3, want: math.Log(10.0 / 3.0)},
		{name: "no documents", n: 0, df: 2, want: math.Log(3)},
		{name: "zero frequency", n: 5, df: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IDF(tt.n, tt.df); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("IDF(%d, %d) = %v, want %v", tt.n, tt.df, got, tt.want)
			}
		})
	}
}

func TestTransformUbiquitousTermWeighsLess(t *testing.T) {
	docs := make([]Document, 10)
	for i := range docs {
		sentence := []string{"common"}
		if i < 3 {
			sentence = append(sentence, "rare")
		}
		docs[i] = doc(sentence)
	}

	scores := Transform(docs, 3)

	if got := scores[0]["common"]; got > 1e-9 {
		t.Errorf("score of ubiquitous term = %v, want ~0", got)
	}
	if scores[0]["rare"] <= scores[0]["common"] {
		t.Errorf("rare term %v should outweigh common term %v", scores[0]["rare"], scores[0]["common"])
	}
	if _, ok := scores[5]["rare"]; ok {
		t.Error("document without the term was scored for it")
	}
}

func TestVocabularyFilters(t *testing.T) {
	docs := []Document{
		doc([]string{"The", "crawler", "v2", "node-filter", "!"}),
		doc([]string{"the", "Crawler", "v2"}),
		doc([]string{"crawler", "V2", "once"}),
	}

	vocab := Vocabulary(docs, 3)
	want := map[string]int{"crawler": 3, "v2": 3}
	if !reflect.DeepEqual(vocab, want) {
		t.Errorf("Vocabulary() = %v, want %v", vocab, want)
	}
}

func TestTransformCountsRawFrequency(t *testing.T) {
	docs := []Document{
		doc([]string{"alpha", "alpha"}, []string{"alpha", "beta"}),
		doc([]string{"beta"}),
		doc([]string{"gamma"}),
	}

	scores := Transform(docs, 1)
	want := 3 * math.Log(3.0)
	if math.Abs(scores[0]["alpha"]-want) > 1e-12 {
		t.Errorf("alpha score = %v, want %v", scores[0]["alpha"], want)
	}
}

func TestTop(t *testing.T) {
	scores := map[string]float64{
		"zeta":  2,
		"alpha": 2,
		"beta":  5,
		"gamma": 0,
		"delta": 1,
	}

	tests := []struct {
		n    int
		want []string
	}{
		{n: 2, want: []string{"beta", "alpha"}},
		{n: 10, want: []string{"beta", "alpha", "zeta", "delta"}},
		{n: 0, want: []string{}},
	}
	for _, tt := range tests {
		if got := Top(scores, tt.n); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Top(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}
