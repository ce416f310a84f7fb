package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alvmarrod/template-weaver/internal/config"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrUnavailable is returned for any page that could not be fetched or parsed
var ErrUnavailable = errors.New("page unavailable")

// Fetcher fetches a page by URL
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Document, error)
}

// FetchCallback observes every fetch attempt's outcome
type FetchCallback func(pageURL string, elapsed time.Duration, err error)

// Colly fetches pages with a colly collector, one clone per request
type Colly struct {
	root     *url.URL
	base     *colly.Collector
	limiter  *rate.Limiter
	detail   map[string]bool
	retries  int
	fetched  atomic.Int64
	callback FetchCallback
}

// NewColly creates a fetcher for the configured site
func NewColly(cfg *config.Config, callback FetchCallback) (*Colly, error) {
	root, err := url.Parse(cfg.SiteURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse site url: %w", err)
	}

	base := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	base.SetRequestTimeout(time.Duration(cfg.RequestTimeoutMs) * time.Millisecond)

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	detail := make(map[string]bool, len(cfg.ContentTags))
	for _, tag := range cfg.ContentTags {
		detail[strings.ToLower(tag)] = true
	}

	return &Colly{
		root:     root,
		base:     base,
		limiter:  rate.NewLimiter(limit, 1),
		detail:   detail,
		retries:  cfg.RetryAttempts,
		callback: callback,
	}, nil
}

// Fetched returns the number of pages fetched successfully so far
func (f *Colly) Fetched() int {
	return int(f.fetched.Load())
}

// Fetch downloads and parses pageURL. Relative URLs are resolved against the
// site root. Every failure is reported as ErrUnavailable.
func (f *Colly) Fetch(ctx context.Context, pageURL string) (*Document, error) {
	target, err := f.root.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, pageURL, err)
	}

	var doc *Document
	for attempt := 0; attempt <= f.retries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		var status int
		doc, status, err = f.visit(ctx, target.String())
		if f.callback != nil {
			f.callback(target.String(), time.Since(start), err)
		}
		if err == nil {
			f.fetched.Add(1)
			return doc, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// HTTP errors are final, only transport failures are retried
		if status != 0 {
			break
		}
		logrus.Debugf("Retrying %s after error: %v", target, err)
	}

	return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, target, err)
}

func (f *Colly) visit(ctx context.Context, target string) (*Document, int, error) {
	c := f.base.Clone()

	var (
		body     []byte
		finalURL string
		status   int
		fetchErr error
	)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		contentType := r.Headers.Get("Content-Type")
		if contentType != "" && !strings.Contains(contentType, "html") {
			fetchErr = fmt.Errorf("unsupported content type %q", contentType)
			return
		}
		body = r.Body
		finalURL = r.Request.URL.String()
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	if err := c.Visit(target); err != nil {
		return nil, status, err
	}
	if ctx.Err() != nil {
		return nil, status, ctx.Err()
	}
	if fetchErr != nil {
		return nil, status, fetchErr
	}
	if body == nil {
		return nil, status, errors.New("empty response")
	}

	// Identifiers stay the requested URL, redirects only change link resolution
	doc, err := Parse(finalURL, body, f.detail)
	if err != nil {
		return nil, status, fmt.Errorf("failed to parse html: %w", err)
	}
	doc.URL = target
	return doc, status, nil
}
