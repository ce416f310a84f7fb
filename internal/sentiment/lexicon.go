// Package sentiment scores text polarity against an AFINN style word list.
package sentiment

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alvmarrod/template-weaver/internal/model"
)

// Lexicon maps lowercase words to their polarity
type Lexicon struct {
	words map[string]int
}

// LoadLexicon reads a lexicon file of word<TAB>score lines
func LoadLexicon(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open lexicon: %w", err)
	}
	defer f.Close()

	lex, err := ReadLexicon(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon %s: %w", path, err)
	}
	return lex, nil
}

// ReadLexicon parses word<TAB>score lines from r. Later entries override
// earlier ones.
func ReadLexicon(r io.Reader) (*Lexicon, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = 2
	cr.LazyQuotes = true

	lex := &Lexicon{words: make(map[string]int)}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		score, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, fmt.Errorf("bad score for %q: %w", record[0], err)
		}
		lex.words[strings.ToLower(strings.TrimSpace(record[0]))] = score
	}
	return lex, nil
}

// Len returns the number of words in the lexicon
func (l *Lexicon) Len() int {
	return len(l.words)
}

// ScoreSentence sums the polarity of every token found in the lexicon
func (l *Lexicon) ScoreSentence(tokens []string) int {
	score := 0
	for _, tok := range tokens {
		score += l.words[strings.ToLower(tok)]
	}
	return score
}

// ScoreDocument sums the polarity of every sentence of r
func (l *Lexicon) ScoreDocument(r *model.Result) int {
	score := 0
	for _, s := range r.Sentences {
		score += l.ScoreSentence(s)
	}
	return score
}
