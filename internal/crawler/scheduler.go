// Package crawler drives a site crawl in two phases: template extraction
// over the site's linked page clusters, then query driven gathering of
// pages that share the template.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alvmarrod/template-weaver/internal/cache"
	"github.com/alvmarrod/template-weaver/internal/config"
	"github.com/alvmarrod/template-weaver/internal/embeddings"
	"github.com/alvmarrod/template-weaver/internal/fetcher"
	"github.com/alvmarrod/template-weaver/internal/filter"
	"github.com/alvmarrod/template-weaver/internal/graph"
	"github.com/alvmarrod/template-weaver/internal/keywords"
	"github.com/alvmarrod/template-weaver/internal/metrics"
	"github.com/alvmarrod/template-weaver/internal/model"
	"github.com/alvmarrod/template-weaver/internal/nlp"
	"github.com/alvmarrod/template-weaver/internal/search"
	"github.com/alvmarrod/template-weaver/internal/sentiment"
	"github.com/alvmarrod/template-weaver/internal/similarity"
	"github.com/alvmarrod/template-weaver/internal/status"
	"github.com/alvmarrod/template-weaver/internal/storage"
	"github.com/alvmarrod/template-weaver/internal/summary"
	"github.com/sirupsen/logrus"
)

// Termination reasons reported by Run
const (
	ReasonTargetReached = "target_reached"
	ReasonExhausted     = "frontier_exhausted"
	ReasonCancelled     = "cancelled"
	ReasonTemplateOnly  = "template_only"
	ReasonNoTemplate    = "no_template"
	ReasonFailed        = "failed"
)

// Store persists sessions, templates and the link graph
type Store interface {
	graph.ConnectionStore
	StartSession(siteURL, query string) (string, error)
	FinishSession(sessionID, reason string) error
	SaveTemplate(t *storage.Template) error
	LoadTemplate(siteURL string) (*storage.Template, error)
	LoadConnections(siteURL string) ([]storage.Connection, error)
}

// Services are the scheduler's collaborators. Fetcher and Analyzer are
// required, every other service is optional.
type Services struct {
	Fetcher  fetcher.Fetcher
	Analyzer nlp.Analyzer
	Entities nlp.EntityFinder
	Lookup   embeddings.Lookup
	Lexicon  *sentiment.Lexicon
	Store    Store
	Cache    *cache.SiteCache
	Metrics  *metrics.Tracker
	Notifier *status.Notifier
}

// Report is the outcome of a crawl
type Report struct {
	SiteURL         string
	SessionID       string
	Template        *search.Result
	TemplateResults []*model.Result
	Results         []*model.Result
	Reason          string
}

// Scheduler orchestrates one crawl of the configured site. It is not safe
// for concurrent use.
type Scheduler struct {
	cfg        *config.Config
	svc        Services
	metrics    *metrics.Tracker
	searcher   *search.Searcher
	filter     *filter.NodeFilter
	summarizer *summary.Summarizer
	graph      *graph.LinkGraph
	query      []string

	sessionID       string
	root            *fetcher.Document
	template        *search.Result
	templateResults []*model.Result
}

// NewScheduler creates a scheduler for cfg.SiteURL
func NewScheduler(cfg *config.Config, svc Services) (*Scheduler, error) {
	if svc.Fetcher == nil {
		return nil, errors.New("scheduler requires a fetcher")
	}
	if svc.Analyzer == nil {
		return nil, errors.New("scheduler requires an analyzer")
	}

	tracker := svc.Metrics
	if tracker == nil {
		tracker = metrics.NewTracker()
	}

	var query []string
	for _, q := range cfg.QueryTerms {
		if q = strings.TrimSpace(q); q != "" {
			query = append(query, q)
		}
	}

	return &Scheduler{
		cfg:     cfg,
		svc:     svc,
		metrics: tracker,
		searcher: search.NewSearcher(svc.Fetcher, search.Options{
			MinSize:        cfg.MinSubdigraphSize,
			MaxConnections: cfg.MaxConnections,
			Threshold:      cfg.TemplateThreshold,
		}, svc.Notifier),
		filter:     filter.New(filter.OptionsFromConfig(cfg), svc.Analyzer, svc.Lookup),
		summarizer: summary.New(svc.Lookup, cfg.SummaryWordLimit),
		graph:      graph.NewLinkGraph(),
		query:      query,
	}, nil
}

// Graph returns the link graph built so far
func (s *Scheduler) Graph() *graph.LinkGraph {
	return s.graph
}

// Run extracts the site template and, when enabled, gathers pages for the
// query. On cancellation the partial report is returned along with the
// context error.
func (s *Scheduler) Run(ctx context.Context) (*Report, error) {
	report := &Report{SiteURL: s.cfg.SiteURL}

	if s.svc.Store != nil {
		id, err := s.svc.Store.StartSession(s.cfg.SiteURL, strings.Join(s.query, ";"))
		if err != nil {
			logrus.Warnf("Failed to start session: %v", err)
		}
		s.sessionID = id
		report.SessionID = id
	}

	res, err := s.ExtractTemplate(ctx)
	if err != nil {
		report.Reason = ReasonFailed
		if ctx.Err() != nil {
			report.Reason = ReasonCancelled
		}
		s.finish(report.Reason)
		return report, err
	}
	report.Template = res
	report.TemplateResults = s.templateResults

	var results []*model.Result
	switch {
	case res.Kind == search.None:
		report.Reason = ReasonNoTemplate
		s.svc.Notifier.Notify(status.Update{Phase: "template", Message: "no template found, nothing to extract"})
	case !s.cfg.InformationGathering:
		report.Reason = ReasonTemplateOnly
		results = s.templateResults
	default:
		results, report.Reason, err = s.Gather(ctx)
	}

	s.enrich(results)
	report.Results = results
	s.finish(report.Reason)
	return report, err
}

func (s *Scheduler) finish(reason string) {
	if s.svc.Store == nil || s.sessionID == "" {
		return
	}
	if err := s.svc.Store.FinishSession(s.sessionID, reason); err != nil {
		logrus.Warnf("Failed to finish session: %v", err)
	}
}

// ExtractTemplate fetches the root page and finds the site template, either
// from storage or by searching the link graph. The template cluster's pages
// are filtered and keyworded, then recorded in the cache.
func (s *Scheduler) ExtractTemplate(ctx context.Context) (*search.Result, error) {
	site := s.cfg.SiteURL
	s.svc.Notifier.Notify(status.Update{Phase: "template", Message: "fetching " + site})

	root, err := s.svc.Fetcher.Fetch(ctx, site)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to fetch root page %s: %w", site, err)
	}
	s.root = root

	res, err := s.reuseTemplate(ctx)
	if err != nil {
		return nil, err
	}
	reused := res != nil
	if !reused {
		res, err = s.searcher.Run(ctx, site, root, s.graph)
		if err != nil {
			return nil, err
		}
	}

	s.template = res
	s.metrics.SetTemplate(res.Kind.String(), res.Score)
	s.metrics.AddClustersTested(res.Tested)
	s.metrics.SetConnections(s.graph.Len())
	logrus.Infof("Template for %s: %s cluster of %d pages (score %.4f)", site, res.Kind, len(res.Cluster), res.Score)

	if res.Kind == search.None {
		return res, nil
	}

	results := s.filter.Run(res.Pages, nil, filter.ModeTemplate)
	s.scoreKeywords(results, nil)
	for _, r := range results {
		r.Valid = true
		s.remember(r)
	}
	s.templateResults = results

	if !reused {
		s.persistTemplate(res)
	}

	s.svc.Notifier.Notify(status.Update{
		Phase:        "template",
		Message:      fmt.Sprintf("%s template from %d pages", res.Kind, len(res.Pages)),
		PagesScraped: len(res.Processed),
		Accepted:     len(results),
	})
	return res, nil
}

// reuseTemplate loads a stored template and refetches its cluster pages.
// It returns nil when reuse is disabled or nothing usable is stored.
func (s *Scheduler) reuseTemplate(ctx context.Context) (*search.Result, error) {
	if !s.cfg.ReuseTemplate || s.svc.Store == nil {
		return nil, nil
	}

	stored, err := s.svc.Store.LoadTemplate(s.cfg.SiteURL)
	if err != nil {
		logrus.Warnf("Failed to load stored template: %v", err)
		return nil, nil
	}
	if stored == nil {
		return nil, nil
	}

	conns, err := s.svc.Store.LoadConnections(s.cfg.SiteURL)
	if err != nil {
		logrus.Warnf("Failed to load stored connections: %v", err)
	}
	s.graph.Load(conns)

	res := &search.Result{
		Kind:      search.ParseKind(stored.Kind),
		Template:  similarity.Profile(stored.Tags),
		Score:     stored.Score,
		Processed: stored.Pages,
	}
	for _, link := range stored.Pages {
		doc, err := s.searcher.Document(ctx, link)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		res.Cluster = append(res.Cluster, link)
		res.Pages = append(res.Pages, doc)
	}
	if len(res.Pages) == 0 {
		logrus.Warnf("No page of the stored template for %s is reachable, searching again", s.cfg.SiteURL)
		return nil, nil
	}

	logrus.Infof("Reusing stored %s template of %s (%d pages)", stored.Kind, s.cfg.SiteURL, len(res.Pages))
	return res, nil
}

func (s *Scheduler) persistTemplate(res *search.Result) {
	if s.svc.Store == nil {
		return
	}

	err := s.svc.Store.SaveTemplate(&storage.Template{
		SiteURL:   s.cfg.SiteURL,
		SessionID: s.sessionID,
		Kind:      res.Kind.String(),
		Score:     res.Score,
		Tags:      map[string]int(res.Template),
		Pages:     res.Cluster,
	})
	if err != nil {
		logrus.Warnf("Failed to save template: %v", err)
	}

	if err := s.graph.Flush(s.svc.Store, s.cfg.SiteURL, s.sessionID); err != nil {
		logrus.Warnf("%v", err)
	}
}

// scoreKeywords sets the top words of every target, ranking terms against
// targets and corpus together
func (s *Scheduler) scoreKeywords(targets, corpus []*model.Result) {
	docs := make([]keywords.Document, 0, len(targets)+len(corpus))
	for _, r := range targets {
		docs = append(docs, r.Sentences)
	}
	for _, r := range corpus {
		docs = append(docs, r.Sentences)
	}

	scores := keywords.Transform(docs, s.cfg.VocabularyThreshold)
	for i, r := range targets {
		r.TopWords = keywords.Top(scores[i], s.cfg.TopKeywords)
	}
}

// remember records a scored page in the site cache
func (s *Scheduler) remember(r *model.Result) {
	if s.svc.Cache == nil {
		return
	}
	s.svc.Cache.Add(cache.Entry{PageURL: r.Link, TopWords: r.TopWords})
}

func (s *Scheduler) saveCache() {
	if s.svc.Cache == nil {
		return
	}
	if err := s.svc.Cache.Save(); err != nil {
		logrus.Errorf("Failed to save site cache: %v", err)
		return
	}
	s.metrics.IncrementCacheFlushes()
	logrus.Debugf("Site cache saved (%d pages)", s.svc.Cache.Len())
}

// enrich adds the summary, named entities and sentiment of each result
func (s *Scheduler) enrich(results []*model.Result) {
	for _, r := range results {
		if s.cfg.SummaryWordLimit > 0 {
			r.Summary = s.summarizer.Summarize(r)
		}
		if s.svc.Entities != nil && r.Content != "" {
			r.Entities = nlp.ExtractAll(s.svc.Entities.FindNamedEntities(r.Content))
		}
		if s.svc.Lexicon != nil {
			r.Sentiment = s.svc.Lexicon.ScoreDocument(r)
		}
	}
}
