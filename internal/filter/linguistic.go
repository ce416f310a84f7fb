package filter

import (
	"sort"
	"strings"

	"github.com/alvmarrod/template-weaver/internal/model"
	"github.com/alvmarrod/template-weaver/internal/nlp"
)

// CommonStrings returns the node texts present on every result, sorted
func CommonStrings(results []*model.Result) []string {
	if len(results) == 0 {
		return nil
	}

	common := make(map[string]bool)
	for _, n := range results[0].Nodes {
		common[n.Text] = true
	}
	for _, r := range results[1:] {
		texts := make(map[string]bool, len(r.Nodes))
		for _, n := range r.Nodes {
			texts[n.Text] = true
		}
		for text := range common {
			if !texts[text] {
				delete(common, text)
			}
		}
	}

	out := make([]string, 0, len(common))
	for text := range common {
		if text != "" {
			out = append(out, text)
		}
	}
	// Longest first so a common string never breaks up a longer one
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// StripCommonStrings removes every text shared by all results from every
// node and drops nodes left empty. It returns the number of common strings.
func StripCommonStrings(results []*model.Result) int {
	common := CommonStrings(results)
	if len(common) == 0 {
		return 0
	}

	for _, r := range results {
		nodes := r.Nodes[:0]
		for _, n := range r.Nodes {
			for _, s := range common {
				n.Text = strings.ReplaceAll(n.Text, s, "")
			}
			if strings.TrimSpace(n.Text) != "" {
				nodes = append(nodes, n)
			}
		}
		r.Nodes = nodes
	}
	return len(common)
}

// applyLinguistics splits the result's node texts into sentences and keeps
// the ones that read like prose
func (f *NodeFilter) applyLinguistics(r *model.Result, prune bool) {
	r.Content = ""
	r.Sentences = nil
	r.Tags = nil
	if len(r.Nodes) == 0 || f.analyzer == nil {
		return
	}

	var blob strings.Builder
	for _, n := range r.Nodes {
		blob.WriteString(n.Text)
		blob.WriteString(".")
	}

	sentences := f.analyzer.SplitSentences(blob.String())
	words := make([][]string, 0, len(sentences))
	tags := make([][]string, 0, len(sentences))
	rejected := make(map[int]bool)

	for i, sentence := range sentences {
		sentence = strings.NewReplacer("\n", "", "\t", "").Replace(sentence)
		tokens := f.analyzer.Tokenize(sentence)
		posTags := f.analyzer.PosTag(tokens)
		words = append(words, tokens)
		tags = append(tags, posTags)

		if !hasVerb(posTags) || hasLongWord(tokens, f.opts.MaxWordLength) {
			rejected[i] = true
		}
	}

	if prune {
		for i := range words {
			words[i], tags[i] = f.pruneUnknown(words[i], tags[i])
		}
	}

	var content strings.Builder
	for i := range words {
		if rejected[i] || len(words[i]) < f.opts.MinSentenceSize {
			continue
		}
		r.Sentences = append(r.Sentences, words[i])
		r.Tags = append(r.Tags, tags[i])
		content.WriteString(strings.Join(words[i], " "))
		content.WriteString("\n")
	}
	r.Content = content.String()
}

func hasVerb(tags []string) bool {
	for _, t := range tags {
		if nlp.IsVerb(t) {
			return true
		}
	}
	return false
}

func hasLongWord(tokens []string, max int) bool {
	for _, t := range tokens {
		if len(t) > max {
			return true
		}
	}
	return false
}

// pruneUnknown repeatedly removes three consecutive tokens that all lack an
// embedding until no such run is left
func (f *NodeFilter) pruneUnknown(words, tags []string) ([]string, []string) {
	words = append([]string(nil), words...)
	tags = append([]string(nil), tags...)

	known := make([]bool, len(words))
	for i, w := range words {
		known[i] = len(f.lookup.VectorFor(w)) > 0
	}

	for changed := true; changed; {
		changed = false
		for i := 1; i < len(words)-1; i++ {
			if known[i-1] || known[i] || known[i+1] {
				continue
			}
			words = append(words[:i-1], words[i+2:]...)
			known = append(known[:i-1], known[i+2:]...)
			if len(tags) >= i+2 {
				tags = append(tags[:i-1], tags[i+2:]...)
			}
			changed = true
			break
		}
	}
	return words, tags
}
