// Package filter separates article content from template boilerplate using
// node density heuristics, cross-page common strings and linguistic checks.
package filter

import (
	"strings"

	"github.com/alvmarrod/template-weaver/internal/config"
	"github.com/alvmarrod/template-weaver/internal/embeddings"
	"github.com/alvmarrod/template-weaver/internal/fetcher"
	"github.com/alvmarrod/template-weaver/internal/model"
	"github.com/alvmarrod/template-weaver/internal/nlp"
	"github.com/sirupsen/logrus"
)

// Mode selects how much linguistic filtering is applied
type Mode int

const (
	// ModeTemplate also prunes runs of words unknown to the embeddings
	ModeTemplate Mode = iota
	// ModeGathering skips embedding lookups
	ModeGathering
)

// Options tunes the filter
type Options struct {
	ContentTags     []string
	DensityMode     string
	TextThreshold   float64
	LinkThreshold   float64
	MaxWordLength   int
	MinSentenceSize int
	PruneUnknown    bool
}

// OptionsFromConfig builds filter options from the runtime configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ContentTags:     cfg.ContentTags,
		DensityMode:     cfg.DensityMode,
		TextThreshold:   cfg.TextDensityThreshold,
		LinkThreshold:   cfg.HyperlinkDensityThreshold,
		MaxWordLength:   cfg.MaxWordLength,
		MinSentenceSize: cfg.MinSentenceSize,
		PruneUnknown:    cfg.PruneUnknownWords,
	}
}

// NodeFilter turns fetched pages into extraction results
type NodeFilter struct {
	opts     Options
	tags     map[string]bool
	analyzer nlp.Analyzer
	lookup   embeddings.Lookup
}

// New creates a node filter. lookup may be nil, which disables unknown
// word pruning.
func New(opts Options, analyzer nlp.Analyzer, lookup embeddings.Lookup) *NodeFilter {
	tags := make(map[string]bool, len(opts.ContentTags))
	for _, t := range opts.ContentTags {
		tags[strings.ToLower(t)] = true
	}
	return &NodeFilter{
		opts:     opts,
		tags:     tags,
		analyzer: analyzer,
		lookup:   lookup,
	}
}

// Run filters pages in order. Results in prior that are already valid are
// passed through untouched, every other page is (re)processed. Output
// follows page order.
func (f *NodeFilter) Run(pages []*fetcher.Document, prior []*model.Result, mode Mode) []*model.Result {
	known := make(map[string]*model.Result, len(prior))
	for _, r := range prior {
		known[r.Link] = r
	}

	results := make([]*model.Result, len(pages))
	var fresh []*model.Result
	for i, page := range pages {
		if r, ok := known[page.URL]; ok && r.Valid {
			results[i] = r
			continue
		}

		r := &model.Result{
			Link:  page.URL,
			Title: page.Title,
			Nodes: f.scoreNodes(page),
		}
		if p, ok := known[page.URL]; ok {
			r.Cached = p.Cached
		}
		results[i] = r
		fresh = append(fresh, r)
	}

	if len(fresh) >= 2 {
		removed := StripCommonStrings(fresh)
		logrus.Debugf("Common string filter removed %d strings across %d pages", removed, len(fresh))
	}

	prune := mode == ModeTemplate && f.opts.PruneUnknown && f.lookup != nil
	for _, r := range fresh {
		f.applyLinguistics(r, prune)
	}

	return results
}

// scoreNodes runs content selection, containment de-duplication, density
// scoring and neighbour smoothing over one page
func (f *NodeFilter) scoreNodes(page *fetcher.Document) []model.ScoredNode {
	var selected []fetcher.Element
	for _, el := range page.Elements {
		if f.tags[el.Tag] && strings.TrimSpace(el.Text) != "" {
			selected = append(selected, el)
		}
	}

	selected = dedupContained(selected)
	if len(selected) == 0 {
		return nil
	}

	nodes := make([]model.ScoredNode, len(selected))
	for i, el := range selected {
		nodes[i] = Score(el)
	}

	textThr, linkThr := f.opts.TextThreshold, f.opts.LinkThreshold
	if f.opts.DensityMode != config.DensityFixed {
		textThr, linkThr = meanDensities(nodes)
	}

	return Smooth(nodes, textThr, linkThr)
}

// dedupContained drops every element whose text is contained in another
// element's text until no such pair is left. Of identical texts the first
// occurrence survives.
func dedupContained(elements []fetcher.Element) []fetcher.Element {
	out := make([]fetcher.Element, len(elements))
	copy(out, elements)

	for changed := true; changed; {
		changed = false
	scan:
		for i := range out {
			for j := range out {
				if i == j || !strings.Contains(out[i].Text, out[j].Text) {
					continue
				}
				if out[i].Text == out[j].Text && j < i {
					continue
				}
				out = append(out[:j], out[j+1:]...)
				changed = true
				break scan
			}
		}
	}
	return out
}

// Score computes the densities of one element
func Score(el fetcher.Element) model.ScoredNode {
	node := model.ScoredNode{Tag: el.Tag, Text: el.Text}
	if len(el.InnerHTML) == 0 {
		return node
	}

	base := el.BaseURI
	if strings.Contains(base, "about") && strings.Contains(base, "blank") {
		base = ""
	}

	node.TextDensity = float64(len(el.Text)) / float64(len(el.InnerHTML))
	node.LinkDensity = float64(len(base)) / float64(len(el.InnerHTML))
	return node
}

func meanDensities(nodes []model.ScoredNode) (float64, float64) {
	var text, link float64
	for _, n := range nodes {
		text += n.TextDensity
		link += n.LinkDensity
	}
	count := float64(len(nodes))
	return text / count, link / count
}

// Smooth keeps interior nodes whose link density is below linkThr and whose
// own or either neighbour's text density reaches textThr. A dropped node is
// removed before its position is tested again, so neighbours always refer
// to surviving nodes. The first and last nodes only act as neighbours.
func Smooth(nodes []model.ScoredNode, textThr, linkThr float64) []model.ScoredNode {
	work := make([]model.ScoredNode, len(nodes))
	copy(work, nodes)

	var kept []model.ScoredNode
	for i := 1; i < len(work)-1; {
		prev, cur, next := work[i-1], work[i], work[i+1]

		dense := cur.TextDensity >= textThr || next.TextDensity >= textThr || prev.TextDensity >= textThr
		if cur.LinkDensity < linkThr && dense {
			kept = append(kept, cur)
			i++
			continue
		}

		work = append(work[:i], work[i+1:]...)
	}
	return kept
}
