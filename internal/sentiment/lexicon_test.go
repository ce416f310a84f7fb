package sentiment

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alvmarrod/template-weaver/internal/model"
)

const afinn = "abandon\t-2\ngood\t3\nbad\t-3\nsuperb\t5\n"

func TestScoreSentence(t *testing.T) {
	lex, err := ReadLexicon(strings.NewReader(afinn))
	if err != nil {
		t.Fatalf("ReadLexicon() error = %v", err)
	}
	if lex.Len() != 4 {
		t.Errorf("Len() = %d, want 4", lex.Len())
	}

	tests := []struct {
		name   string
		tokens []string
		want   int
	}{
		{"empty", nil, 0},
		{"unknown words", []string{"the", "crawler"}, 0},
		{"case insensitive", []string{"Good", "SUPERB"}, 8},
		{"mixed", []string{"good", "but", "bad", "bad"}, -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lex.ScoreSentence(tt.tokens); got != tt.want {
				t.Errorf("ScoreSentence(%v) = %d, want %d", tt.tokens, got, tt.want)
			}
		})
	}
}

func TestScoreDocument(t *testing.T) {
	lex, _ := ReadLexicon(strings.NewReader(afinn))
	r := &model.Result{Sentences: [][]string{
		{"a", "good", "day", "."},
		{"we", "abandon", "it", "."},
	}}
	if got := lex.ScoreDocument(r); got != 1 {
		t.Errorf("ScoreDocument() = %d, want 1", got)
	}
}

func TestLoadLexiconErrors(t *testing.T) {
	if _, err := LoadLexicon(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("LoadLexicon(missing) error = nil")
	}

	path := filepath.Join(t.TempDir(), "afinn.txt")
	if err := os.WriteFile(path, []byte("good\tvery\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLexicon(path); err == nil {
		t.Error("LoadLexicon(bad score) error = nil")
	}
}
