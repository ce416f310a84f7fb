// Package search discovers a site's template by looking for a cluster of
// mutually linked pages whose tag histograms agree.
package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/alvmarrod/template-weaver/internal/fetcher"
	"github.com/alvmarrod/template-weaver/internal/graph"
	"github.com/alvmarrod/template-weaver/internal/links"
	"github.com/alvmarrod/template-weaver/internal/similarity"
	"github.com/alvmarrod/template-weaver/internal/status"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Kind tells how a search result was reached
type Kind int

const (
	// None means no cluster of linked pages was found at all
	None Kind = iota
	// Partial is the largest cluster found, smaller than the minimum size
	Partial
	// Accepted is a cluster whose similarity score passed the threshold
	Accepted
	// BestEffort is the lowest scoring tested cluster after exhaustion
	BestEffort
)

func (k Kind) String() string {
	switch k {
	case Partial:
		return "partial"
	case Accepted:
		return "accepted"
	case BestEffort:
		return "best_effort"
	default:
		return "none"
	}
}

// ParseKind is the inverse of Kind.String
func ParseKind(s string) Kind {
	for _, k := range []Kind{Partial, Accepted, BestEffort} {
		if k.String() == s {
			return k
		}
	}
	return None
}

// Options bounds the search
type Options struct {
	MinSize        int
	MaxConnections int
	Threshold      float64
	Parallelism    int
}

// Result is the outcome of a template search
type Result struct {
	Kind      Kind
	Cluster   []string
	Pages     []*fetcher.Document
	Template  similarity.Profile
	Score     float64
	Processed []string
	Tested    int
}

// tested is a scored cluster kept for the best-effort fallback
type tested struct {
	cluster  []string
	pages    []*fetcher.Document
	template similarity.Profile
	score    float64
}

// Searcher runs template searches. Fetched documents are memoised for the
// searcher's lifetime so cluster pages are downloaded once.
type Searcher struct {
	fetcher  fetcher.Fetcher
	opts     Options
	notifier *status.Notifier

	mu   sync.Mutex
	docs map[string]*fetcher.Document // nil value marks a failed fetch
}

// NewSearcher creates a searcher
func NewSearcher(f fetcher.Fetcher, opts Options, notifier *status.Notifier) *Searcher {
	if opts.Parallelism < 1 {
		opts.Parallelism = 4
	}
	return &Searcher{
		fetcher:  f,
		opts:     opts,
		notifier: notifier,
		docs:     make(map[string]*fetcher.Document),
	}
}

// Document returns a memoised document, fetching it on first use.
// It returns nil when the page is unavailable.
func (s *Searcher) Document(ctx context.Context, link string) (*fetcher.Document, error) {
	s.mu.Lock()
	doc, ok := s.docs[link]
	s.mu.Unlock()
	if ok {
		return doc, nil
	}

	doc, err := s.fetcher.Fetch(ctx, link)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logrus.Debugf("Skipping unavailable page %s: %v", link, err)
		doc = nil
	}

	s.mu.Lock()
	s.docs[link] = doc
	s.mu.Unlock()
	return doc, nil
}

// Run explores the root page's links, growing g, until a cluster of at
// least MinSize mutually linked pages scores below the threshold. Only
// context cancellation is reported as an error.
func (s *Searcher) Run(ctx context.Context, rootURL string, root *fetcher.Document, g *graph.LinkGraph) (*Result, error) {
	candidates := links.Candidates(rootURL, root.Links)
	candidateSet := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		candidateSet[c] = true
	}
	logrus.Infof("Template search over %d candidate links of %s", len(candidates), rootURL)

	var (
		processed []string
		history   []*tested
		seen      = make(map[string]bool)
		fallback  []string
	)

	for _, link := range candidates {
		doc, err := s.Document(ctx, link)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		processed = append(processed, link)

		var menu []string
		for _, l := range doc.Links {
			if l != link && candidateSet[l] {
				menu = append(menu, l)
			}
		}
		if len(menu) <= 1 {
			continue
		}
		for _, m := range menu {
			g.AddConnection(link, m)
		}

		s.notifier.Notify(status.Update{
			Phase:        "template",
			Message:      fmt.Sprintf("processed %s (%d connections)", link, g.Len()),
			PagesScraped: len(processed),
		})

		clusters := g.CompleteSubdigraphs(processed, s.opts.MinSize)
		for _, cluster := range clusters {
			key := graph.Key(cluster)
			if seen[key] {
				continue
			}
			seen[key] = true

			t, err := s.score(ctx, cluster)
			if err != nil {
				return nil, err
			}
			logrus.Infof("Tested cluster of %d pages: score=%.4f", len(cluster), t.score)

			if similarity.Accepts(t.score, s.opts.Threshold) {
				return s.result(Accepted, t, processed, len(history)+1), nil
			}
			history = append(history, t)
		}

		if len(clusters) == 0 {
			if largest := g.Largest(processed); len(largest) > len(fallback) {
				fallback = largest
			}
		}

		if g.Len() > s.opts.MaxConnections && len(history) > 0 {
			logrus.Warnf("Connection bound %d exceeded, ending template search", s.opts.MaxConnections)
			break
		}
	}

	if len(history) > 0 {
		return s.result(BestEffort, bestOf(history), processed, len(history)), nil
	}

	if len(fallback) > 0 {
		t, err := s.score(ctx, fallback)
		if err != nil {
			return nil, err
		}
		return s.result(Partial, t, processed, 0), nil
	}

	logrus.Warnf("No linked page cluster found for %s", rootURL)
	return &Result{Kind: None, Template: similarity.Profile{}, Processed: processed}, nil
}

// score fetches the cluster's pages concurrently and scores their profiles.
// Unavailable pages are left out.
func (s *Searcher) score(ctx context.Context, cluster []string) (*tested, error) {
	docs := make([]*fetcher.Document, len(cluster))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.opts.Parallelism)
	for i, link := range cluster {
		i, link := i, link
		group.Go(func() error {
			doc, err := s.Document(gctx, link)
			docs[i] = doc
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	t := &tested{}
	var profiles []similarity.Profile
	for i, doc := range docs {
		if doc == nil {
			continue
		}
		t.cluster = append(t.cluster, cluster[i])
		t.pages = append(t.pages, doc)
		profiles = append(profiles, doc.TagProfile())
	}
	t.score, t.template = similarity.Score(profiles)
	return t, nil
}

// bestOf picks the lowest score, zero included. Ties keep the first found.
func bestOf(history []*tested) *tested {
	best := history[0]
	for _, t := range history[1:] {
		if t.score < best.score {
			best = t
		}
	}
	return best
}

func (s *Searcher) result(kind Kind, t *tested, processed []string, testedCount int) *Result {
	return &Result{
		Kind:      kind,
		Cluster:   t.cluster,
		Pages:     t.pages,
		Template:  t.template,
		Score:     t.score,
		Processed: processed,
		Tested:    testedCount,
	}
}
