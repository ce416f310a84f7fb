package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"site_url": "https://example.com"}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.MinSubdigraphSize != 4 {
		t.Errorf("MinSubdigraphSize = %d, want 4", cfg.MinSubdigraphSize)
	}
	if cfg.MaxConnections != 3000 {
		t.Errorf("MaxConnections = %d, want 3000", cfg.MaxConnections)
	}
	if cfg.VocabularyThreshold != 3 {
		t.Errorf("VocabularyThreshold = %d, want 3", cfg.VocabularyThreshold)
	}
	if cfg.MaxWordLength != 20 || cfg.MinSentenceSize != 5 {
		t.Errorf("word bounds = %d/%d, want 20/5", cfg.MaxWordLength, cfg.MinSentenceSize)
	}
	if cfg.CacheFlushEvery != 100 {
		t.Errorf("CacheFlushEvery = %d, want 100", cfg.CacheFlushEvery)
	}
	if strings.Join(cfg.ContentTags, ",") != "div,p,td" {
		t.Errorf("ContentTags = %v", cfg.ContentTags)
	}
	if cfg.DensityMode != DensityDynamic {
		t.Errorf("DensityMode = %q, want %q", cfg.DensityMode, DensityDynamic)
	}
	if !cfg.Shallow() {
		t.Error("Shallow() = false, want true by default")
	}
}

func TestLoadConfigKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `{
		"site_url": "https://example.com",
		"template_threshold": 15,
		"density_mode": "fixed",
		"shallow_prefilter": false,
		"query_terms": ["go", "weaver"]
	}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.TemplateThreshold != 15 {
		t.Errorf("TemplateThreshold = %v, want 15", cfg.TemplateThreshold)
	}
	if cfg.DensityMode != DensityFixed {
		t.Errorf("DensityMode = %q", cfg.DensityMode)
	}
	if cfg.Shallow() {
		t.Error("Shallow() = true, want false")
	}
	if len(cfg.QueryTerms) != 2 {
		t.Errorf("QueryTerms = %v", cfg.QueryTerms)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed", body: `{"site_url":`},
		{name: "missing site", body: `{}`},
		{name: "relative site", body: `{"site_url": "/news"}`},
		{name: "bad density mode", body: `{"site_url": "https://example.com", "density_mode": "median"}`},
		{name: "tiny subdigraph", body: `{"site_url": "https://example.com", "min_subdigraph_size": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.body)); err == nil {
				t.Error("LoadConfig() error = nil, want error")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("LoadConfig() error = nil, want error")
	}
}

func TestReadConfigThenOverride(t *testing.T) {
	path := writeConfig(t, `{"pages_to_gather": 3}`)

	cfg, err := ReadConfig(path)
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}
	if err := cfg.Finalize(); err == nil {
		t.Fatal("Finalize() without site_url error = nil")
	}

	cfg.SiteURL = "https://example.com/"
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.PagesToGather != 3 {
		t.Errorf("PagesToGather = %d, want 3", cfg.PagesToGather)
	}
}

func TestLoadConfigKeepsExplicitZero(t *testing.T) {
	path := writeConfig(t, `{"site_url": "https://x.com", "rate_limit": 0, "retry_attempts": 0}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit = %v, want 0", cfg.RateLimit)
	}
	if cfg.RetryAttempts != 0 {
		t.Errorf("RetryAttempts = %d, want 0", cfg.RetryAttempts)
	}

	defaults, err := LoadConfig(writeConfig(t, `{"site_url": "https://x.com"}`))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if defaults.RateLimit != 5 || defaults.RetryAttempts != 1 {
		t.Errorf("defaults = rate %v, retries %d, want 5 and 1", defaults.RateLimit, defaults.RetryAttempts)
	}
}
