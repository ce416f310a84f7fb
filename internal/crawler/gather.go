package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/alvmarrod/template-weaver/internal/fetcher"
	"github.com/alvmarrod/template-weaver/internal/filter"
	"github.com/alvmarrod/template-weaver/internal/links"
	"github.com/alvmarrod/template-weaver/internal/model"
	"github.com/alvmarrod/template-weaver/internal/search"
	"github.com/alvmarrod/template-weaver/internal/similarity"
	"github.com/alvmarrod/template-weaver/internal/status"
	"github.com/sirupsen/logrus"
)

// gathering is the state of one information gathering pass
type gathering struct {
	s         *Scheduler
	frontier  *Frontier
	processed map[string]bool

	// pages awaiting or past evaluation, results holds the valid ones
	pages   []*fetcher.Document
	results []*model.Result

	fetched   int
	lastFlush int
}

// Gather walks the site from the template cluster, accepting pages that
// share the template until PagesToGather of them match the query. It
// returns the valid results and the termination reason. Frontier
// exhaustion is not an error.
func (s *Scheduler) Gather(ctx context.Context) ([]*model.Result, string, error) {
	if s.template == nil || s.template.Kind == search.None {
		return nil, ReasonNoTemplate, errors.New("gathering requires an extracted template")
	}

	g := &gathering{
		s:         s,
		frontier:  NewFrontier(s.cfg.SiteURL),
		processed: map[string]bool{s.cfg.SiteURL: true},
	}
	for _, link := range s.template.Cluster {
		g.processed[link] = true
	}

	g.frontier.PushAll(s.cfg.SiteURL, s.root.Links, DefaultPriority)
	for _, page := range s.template.Pages {
		g.frontier.PushAll(page.URL, page.Links, DefaultPriority)
	}
	logrus.Infof("Gathering %d pages for %v, frontier seeded with %d links", s.cfg.PagesToGather, s.query, g.frontier.Len())

	if err := g.preseed(ctx); err != nil {
		return g.stop(ReasonCancelled, err)
	}

	target := s.cfg.PagesToGather
	for {
		if err := ctx.Err(); err != nil {
			return g.stop(ReasonCancelled, err)
		}

		if len(g.pages) >= target {
			g.evaluate()
			if len(g.results) >= target {
				return g.stop(ReasonTargetReached, nil)
			}
			continue
		}

		next, ok := g.frontier.Pop()
		if !ok {
			g.evaluate()
			return g.stop(ReasonExhausted, nil)
		}

		if err := g.visit(ctx, next); err != nil {
			return g.stop(ReasonCancelled, err)
		}
	}
}

// preseed fetches the cached pages of this site whose keywords match the
// query. They skip relevance scoring.
func (g *gathering) preseed(ctx context.Context) error {
	if g.s.svc.Cache == nil || len(g.s.query) == 0 {
		return nil
	}

	for _, e := range g.s.svc.Cache.Matching(links.Host(g.s.cfg.SiteURL), g.s.query) {
		if len(g.pages) >= g.s.cfg.PagesToGather {
			break
		}
		if g.processed[e.PageURL] {
			continue
		}
		g.processed[e.PageURL] = true

		doc, err := g.s.svc.Fetcher.Fetch(ctx, e.PageURL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logrus.Debugf("Cached page %s unavailable: %v", e.PageURL, err)
			continue
		}

		g.pages = append(g.pages, doc)
		g.results = append(g.results, &model.Result{Link: e.PageURL, Cached: true, TopWords: e.TopWords})
	}

	if len(g.pages) > 0 {
		logrus.Infof("Pre-seeded %d pages from the site cache", len(g.pages))
	}
	return nil
}

// visit fetches one frontier link and accepts it if it shares the template.
// Only context cancellation is returned as an error.
func (g *gathering) visit(ctx context.Context, next LinkToBeProcessed) error {
	s := g.s
	link := next.Link

	if g.processed[link] || (s.svc.Cache != nil && s.svc.Cache.Known(link)) {
		return nil
	}
	if !links.SameHost(s.cfg.SiteURL, link) {
		return nil
	}
	g.processed[link] = true

	doc, err := s.svc.Fetcher.Fetch(ctx, link)
	g.fetched++
	g.maybeFlush()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logrus.Debugf("Skipping %s: %v", link, err)
		return nil
	}

	score, _ := similarity.Score([]similarity.Profile{s.template.Template, doc.TagProfile()})
	if score < 0 || score > s.cfg.GatheringThreshold {
		s.metrics.IncrementPagesRejected()
		logrus.Debugf("Rejected %s: template score %.4f", link, score)
		return nil
	}

	for _, child := range doc.Links {
		if !g.processed[child] {
			g.frontier.Push(child, link, DefaultPriority)
		}
	}

	if s.cfg.Shallow() && !doc.ContainsAny(s.query) {
		s.metrics.IncrementPagesRejected()
		logrus.Debugf("Rejected %s: no query term in page text", link)
		return nil
	}

	g.pages = append(g.pages, doc)
	s.metrics.IncrementPagesAccepted()
	s.svc.Notifier.Notify(status.Update{
		Phase:        "gathering",
		Message:      "accepted " + link,
		PagesScraped: g.fetched,
		QueueDepth:   g.frontier.Len(),
		Accepted:     len(g.pages),
	})
	return nil
}

// evaluate filters the pending pages, scores their keywords and keeps the
// relevant ones. Every newly scored page is cached, relevant or not.
func (g *gathering) evaluate() {
	s := g.s
	if len(g.pages) == 0 {
		return
	}

	results := s.filter.Run(g.pages, g.results, filter.ModeGathering)

	var fresh, corpus []*model.Result
	for _, r := range results {
		if r.Valid {
			corpus = append(corpus, r)
		} else {
			fresh = append(fresh, r)
		}
	}
	if len(fresh) == 0 {
		return
	}
	s.scoreKeywords(fresh, append(corpus, s.templateResults...))

	var keptPages []*fetcher.Document
	var kept []*model.Result
	for i, r := range results {
		if !r.Valid {
			switch {
			case len(r.Sentences) == 0:
				logrus.Debugf("Dropped %s: no content left after filtering", r.Link)
			case r.Cached:
				r.Valid = true
			case len(s.query) == 0 || r.MatchesAny(s.query):
				r.Valid = true
				s.metrics.IncrementPagesRelevant()
				if n := g.frontier.Boost(r.Link, s.cfg.RelevanceBoost); n > 0 {
					logrus.Debugf("Boosted %d links found on %s", n, r.Link)
				}
			default:
				logrus.Debugf("Dropped %s: keywords %v miss the query", r.Link, r.TopWords)
			}
			s.remember(r)
		}
		if r.Valid {
			keptPages = append(keptPages, g.pages[i])
			kept = append(kept, r)
		}
	}

	g.pages, g.results = keptPages, kept
	logrus.Infof("Evaluated %d pages: %d valid of %d wanted", len(fresh), len(kept), s.cfg.PagesToGather)
	s.svc.Notifier.Notify(status.Update{
		Phase:        "gathering",
		Message:      fmt.Sprintf("%d valid pages", len(kept)),
		PagesScraped: g.fetched,
		QueueDepth:   g.frontier.Len(),
		Accepted:     len(kept),
	})
}

func (g *gathering) maybeFlush() {
	every := g.s.cfg.CacheFlushEvery
	if every <= 0 || g.fetched-g.lastFlush < every {
		return
	}
	g.lastFlush = g.fetched
	g.s.saveCache()
}

func (g *gathering) stop(reason string, err error) ([]*model.Result, string, error) {
	g.s.saveCache()

	// cached stubs are still unvalidated when a pass is cut short
	var valid []*model.Result
	for _, r := range g.results {
		if r.Valid {
			valid = append(valid, r)
		}
	}

	logrus.Infof("Gathering finished (%s): %d valid pages after %d fetches", reason, len(valid), g.fetched)
	g.s.svc.Notifier.Notify(status.Update{
		Phase:        "done",
		Message:      reason,
		PagesScraped: g.fetched,
		Accepted:     len(valid),
	})
	return valid, reason, err
}
