package nlp

import (
	"strings"

	"github.com/jdkato/prose/v2"
	"github.com/mingrammer/commonregex"
	"github.com/sirupsen/logrus"
)

// Prose implements Analyzer and EntityFinder with prose models
type Prose struct{}

// NewProse creates a prose backed analyzer
func NewProse() *Prose {
	return &Prose{}
}

// SplitSentences segments text into sentences
func (p *Prose) SplitSentences(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithTokenization(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		logrus.Debugf("Sentence segmentation failed: %v", err)
		return nil
	}

	var sentences []string
	for _, s := range doc.Sentences() {
		if t := strings.TrimSpace(s.Text); t != "" {
			sentences = append(sentences, t)
		}
	}
	return sentences
}

// Tokenize splits a sentence into word and punctuation tokens
func (p *Prose) Tokenize(sentence string) []string {
	doc, err := prose.NewDocument(sentence,
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		logrus.Debugf("Tokenization failed: %v", err)
		return nil
	}

	tokens := make([]string, 0, len(doc.Tokens()))
	for _, t := range doc.Tokens() {
		tokens = append(tokens, t.Text)
	}
	return tokens
}

// PosTag returns one Penn Treebank tag per token
func (p *Prose) PosTag(tokens []string) []string {
	tags := make([]string, len(tokens))
	if len(tokens) == 0 {
		return tags
	}

	doc, err := prose.NewDocument(strings.Join(tokens, " "),
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		logrus.Debugf("Tagging failed: %v", err)
		return tags
	}

	tagged := doc.Tokens()
	if len(tagged) == len(tokens) {
		for i, t := range tagged {
			tags[i] = t.Tag
		}
		return tags
	}

	// The tagger re-tokenized differently: give each input token the tag of
	// the first tagged piece that starts it.
	j := 0
	for i, tok := range tokens {
		if j >= len(tagged) {
			break
		}
		tags[i] = tagged[j].Tag
		consumed := 0
		for j < len(tagged) && consumed < len(tok) {
			consumed += len(tagged[j].Text)
			j++
		}
	}
	return tags
}

// FindNamedEntities marks people and organizations found by the prose entity
// model, and dates and times matched by pattern
func (p *Prose) FindNamedEntities(text string) string {
	var spans []span

	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		logrus.Debugf("Entity extraction failed: %v", err)
	} else {
		var people, orgs []string
		for _, e := range doc.Entities() {
			switch e.Label {
			case "PERSON":
				people = append(people, e.Text)
			case "ORG", "ORGANIZATION":
				orgs = append(orgs, e.Text)
			}
		}
		spans = append(spans, locate(text, people, KindPerson)...)
		spans = append(spans, locate(text, orgs, KindOrganization)...)
	}

	spans = append(spans, locate(text, commonregex.Date(text), KindDate)...)
	spans = append(spans, locate(text, commonregex.Time(text), KindTime)...)

	return markup(text, spans)
}
