package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alvmarrod/template-weaver/internal/cache"
	"github.com/alvmarrod/template-weaver/internal/config"
	"github.com/alvmarrod/template-weaver/internal/crawler"
	"github.com/alvmarrod/template-weaver/internal/embeddings"
	"github.com/alvmarrod/template-weaver/internal/fetcher"
	"github.com/alvmarrod/template-weaver/internal/metrics"
	"github.com/alvmarrod/template-weaver/internal/nlp"
	"github.com/alvmarrod/template-weaver/internal/sentiment"
	"github.com/alvmarrod/template-weaver/internal/status"
	"github.com/alvmarrod/template-weaver/internal/storage"
	"github.com/alvmarrod/template-weaver/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	siteURL    string
	query      string
	pages      int
	gather     bool
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "weaver",
		Short: "Template Weaver: unsupervised template discovery and content extraction",
		Long: `Template Weaver learns the structural template of a site from clusters of
mutually linked pages, then walks the site collecting the pages that share
the template and whose keywords match the query.

Examples:
  # Learn the template only
  weaver --site https://example.com/

  # Gather 20 pages about two topics
  weaver --site https://example.com/ --gather --pages 20 --query "volcano;earthquake"`,
		RunE:         run,
		SilenceUsage: true,
		Version:      version.Version,
	}

	rootCmd.Flags().StringVar(&configPath, "config", "config.json", "JSON config file")
	rootCmd.Flags().StringVar(&siteURL, "site", "", "root URL of the site to crawl")
	rootCmd.Flags().StringVar(&query, "query", "", "query terms separated by ';'")
	rootCmd.Flags().IntVar(&pages, "pages", 0, "number of pages to gather")
	rootCmd.Flags().BoolVar(&gather, "gather", false, "gather pages after extracting the template")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, applies flag overrides, then defaults
// and validation. A missing default config file is not an error.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.ReadConfig(configPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("config") {
			return nil, err
		}
		logrus.Infof("No config file at %s, using defaults", configPath)
		cfg = config.New()
	}

	flags := cmd.Flags()
	if flags.Changed("site") {
		cfg.SiteURL = siteURL
	}
	if flags.Changed("query") {
		cfg.QueryTerms = splitQuery(query)
	}
	if flags.Changed("pages") {
		cfg.PagesToGather = pages
	}
	if flags.Changed("gather") {
		cfg.InformationGathering = gather
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitQuery(q string) []string {
	var terms []string
	for _, t := range strings.Split(q, ";") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func run(cmd *cobra.Command, _ []string) error {
	// Configure logging
	logrus.SetLevel(logrus.InfoLevel)
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logrus.Infof("Template Weaver v%s starting...", version.Version)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logrus.Infof("Configuration loaded: site=%s, query=%v, pages=%d, gathering=%v",
		cfg.SiteURL, cfg.QueryTerms, cfg.PagesToGather, cfg.InformationGathering)

	// Initialize storage
	store, err := storage.NewStorage(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	// Closed explicitly during shutdown, the deferred close covers early returns
	defer store.Close()

	logrus.Infof("Database initialized: %s", cfg.DBPath)

	siteCache, err := cache.Load(cfg.CachePath)
	if err != nil {
		return err
	}
	logrus.Infof("Site cache loaded: %d pages from %s", siteCache.Len(), cfg.CachePath)

	tracker := metrics.NewTracker()

	f, err := fetcher.NewColly(cfg, tracker.RecordFetch)
	if err != nil {
		return err
	}

	prose := nlp.NewProse()
	notifier := status.NewNotifier(256)
	svc := crawler.Services{
		Fetcher:  f,
		Analyzer: prose,
		Entities: prose,
		Store:    store,
		Cache:    siteCache,
		Metrics:  tracker,
		Notifier: notifier,
	}

	if cfg.EmbeddingsPath != "" {
		vectors := embeddings.NewStore(cfg.EmbeddingsPath, cfg.EmbeddingsMaxWords)
		if err := vectors.Open(); err == nil {
			defer vectors.Close()
			svc.Lookup = vectors
			logrus.Infof("Word embeddings loaded: %d words of dimension %d", vectors.Size(), vectors.Dimension())
		}
	}

	if cfg.LexiconPath != "" {
		lex, err := sentiment.LoadLexicon(cfg.LexiconPath)
		if err != nil {
			logrus.Warnf("Sentiment scoring disabled: %v", err)
		} else {
			svc.Lexicon = lex
			logrus.Infof("Sentiment lexicon loaded: %d words", lex.Len())
		}
	}

	scheduler, err := crawler.NewScheduler(cfg, svc)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	consumerDone := make(chan struct{})

	// Status updates
	go func() {
		defer close(consumerDone)
		for u := range notifier.Updates() {
			logrus.Debugf("[%s] %s (fetched %d, queued %d, accepted %d)",
				u.Phase, u.Message, u.PagesScraped, u.QueueDepth, u.Accepted)
		}
	}()

	// Progress logger
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				logrus.Info(tracker.LogProgress())
			case <-done:
				return
			}
		}
	}()

	// Handle force quit on second signal
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		logrus.Warn("Interrupted, finishing the current page (signal again to force exit)")

		forceQuit := make(chan os.Signal, 1)
		signal.Notify(forceQuit, os.Interrupt, syscall.SIGTERM)
		select {
		case sig := <-forceQuit:
			logrus.Warnf("Received second signal (%v) - forcing immediate exit!", sig)
			if err := siteCache.Save(); err != nil {
				logrus.Errorf("Emergency cache save failed: %v", err)
			}
			if err := tracker.WriteToFile(cfg.MetricsPath, "forced_exit"); err != nil {
				logrus.Errorf("Emergency metrics save failed: %v", err)
			}
			os.Exit(1)
		case <-done:
		}
	}()

	report, runErr := scheduler.Run(ctx)

	terminationReason := crawler.ReasonFailed
	if report != nil {
		terminationReason = report.Reason
	}

	logrus.Info("Initiating shutdown...")
	logrus.Info("Step 1/4: Stopping background tasks...")
	close(done)
	notifier.Close()
	select {
	case <-consumerDone:
	case <-time.After(5 * time.Second):
		logrus.Warn("Status consumer timeout (5s), continuing with shutdown")
	}
	if n := notifier.Dropped(); n > 0 {
		logrus.Debugf("%d status updates were dropped", n)
	}

	logrus.Info("Step 2/4: Saving site cache...")
	if err := siteCache.Save(); err != nil {
		logrus.Errorf("Failed to save site cache: %v", err)
	} else {
		logrus.Infof("Site cache saved: %d pages", siteCache.Len())
	}

	logrus.Info("Step 3/4: Writing final metrics...")
	logrus.Info("Final stats: " + tracker.LogProgress())
	if err := tracker.WriteToFile(cfg.MetricsPath, terminationReason); err != nil {
		logrus.Errorf("Failed to write metrics: %v", err)
	} else {
		logrus.Infof("Metrics written to %s", cfg.MetricsPath)
	}

	logrus.Info("Step 4/4: Closing database connection...")
	if err := store.Close(); err != nil {
		logrus.Errorf("Failed to close database: %v", err)
	} else {
		logrus.Info("Database closed")
	}

	if report != nil {
		printReport(os.Stdout, report, cfg.ReportKeywords)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	logrus.Info("Shutdown complete. Goodbye!")
	return nil
}

// printReport writes every extracted page to w
func printReport(w io.Writer, report *crawler.Report, keywords int) {
	if report.Template != nil {
		fmt.Fprintf(w, "Template: %s (score %.4f) from %d pages\n",
			report.Template.Kind, report.Template.Score, len(report.Template.Cluster))
	}

	if len(report.Results) == 0 {
		fmt.Fprintf(w, "No qualifying pages found (%s)\n", report.Reason)
		return
	}

	for _, r := range report.Results {
		fmt.Fprintf(w, "\n== %s ==\n", r.Link)
		if r.Title != "" {
			fmt.Fprintln(w, r.Title)
		}

		top := r.TopWords
		if keywords > 0 && len(top) > keywords {
			top = top[:keywords]
		}
		fmt.Fprintf(w, "Keywords: %s\n", strings.Join(top, ", "))
		fmt.Fprintf(w, "Sentiment: %d\n", r.Sentiment)

		for _, kind := range nlp.Kinds {
			if values := r.Entities[kind]; len(values) > 0 {
				fmt.Fprintf(w, "%s: %s\n", kind, strings.Join(values, "; "))
			}
		}

		if r.Summary != "" {
			fmt.Fprintf(w, "Summary:\n%s", r.Summary)
		}
		fmt.Fprintf(w, "Content:\n%s", r.Content)
	}
	fmt.Fprintf(w, "\n%d pages (%s)\n", len(report.Results), report.Reason)
}
