// Package nlp wraps the sentence, token, part-of-speech and named-entity
// services used by the content pipeline.
package nlp

import (
	"sort"
	"strings"
)

// Analyzer splits text into sentences and tokens and tags parts of speech
type Analyzer interface {
	SplitSentences(text string) []string
	Tokenize(sentence string) []string
	PosTag(tokens []string) []string
}

// EntityFinder returns text with named entities wrapped in inline markup
// such as <person>Ada Lovelace</person>
type EntityFinder interface {
	FindNamedEntities(text string) string
}

// Entity kinds understood by ExtractEntities
const (
	KindDate         = "date"
	KindPerson       = "person"
	KindTime         = "time"
	KindOrganization = "organization"
)

// Kinds lists every entity kind in report order
var Kinds = []string{KindDate, KindPerson, KindTime, KindOrganization}

// IsVerb reports whether a part-of-speech tag denotes a verb
func IsVerb(tag string) bool {
	return strings.Contains(tag, "V")
}

// allIndexes returns the start offset of every occurrence of sub in s
func allIndexes(s, sub string) []int {
	var out []int
	for offset := 0; ; {
		i := strings.Index(s[offset:], sub)
		if i < 0 {
			return out
		}
		out = append(out, offset+i)
		offset += i + len(sub)
	}
}

// ExtractEntities returns the text between each matched <kind></kind> pair
// of markup. Unbalanced trailing tags are ignored.
func ExtractEntities(markup, kind string) []string {
	open := "<" + kind + ">"
	opens := allIndexes(markup, open)
	closes := allIndexes(markup, "</"+kind+">")

	var entities []string
	for i := 0; i < len(opens) && i < len(closes); i++ {
		start := opens[i] + len(open)
		if closes[i] < start {
			continue
		}
		entity := strings.TrimSpace(markup[start:closes[i]])
		if entity != "" {
			entities = append(entities, entity)
		}
	}
	return entities
}

// ExtractAll groups every entity of markup by kind, dropping duplicates
func ExtractAll(markup string) map[string][]string {
	out := make(map[string][]string)
	for _, kind := range Kinds {
		seen := make(map[string]bool)
		for _, e := range ExtractEntities(markup, kind) {
			if !seen[e] {
				seen[e] = true
				out[kind] = append(out[kind], e)
			}
		}
	}
	return out
}

type span struct {
	start, end int
	kind       string
}

// markup wraps each span of text in <kind></kind> tags. Overlapping spans
// keep the earliest, longest one.
func markup(text string, spans []span) string {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	var sb strings.Builder
	cursor := 0
	for _, s := range spans {
		if s.start < cursor {
			continue
		}
		sb.WriteString(text[cursor:s.start])
		sb.WriteString("<" + s.kind + ">")
		sb.WriteString(text[s.start:s.end])
		sb.WriteString("</" + s.kind + ">")
		cursor = s.end
	}
	sb.WriteString(text[cursor:])
	return sb.String()
}

// locate finds every occurrence of each value in text and tags it with kind
func locate(text string, values []string, kind string) []span {
	var spans []span
	seen := make(map[string]bool)
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		for _, i := range allIndexes(text, v) {
			spans = append(spans, span{start: i, end: i + len(v), kind: kind})
		}
	}
	return spans
}
