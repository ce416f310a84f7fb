package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
)

// Density threshold modes used by the node filter
const (
	DensityDynamic = "dynamic"
	DensityFixed   = "fixed"
)

// Unset marks numeric fields where zero is a meaningful value
const Unset = -1

// Config holds all runtime configuration parameters
type Config struct {
	SiteURL              string   `json:"site_url"`
	QueryTerms           []string `json:"query_terms"`
	PagesToGather        int      `json:"pages_to_gather"`
	InformationGathering bool     `json:"information_gathering"`

	// Template discovery
	MinSubdigraphSize  int     `json:"min_subdigraph_size"`
	MaxConnections     int     `json:"max_connections"`
	TemplateThreshold  float64 `json:"template_threshold"`
	GatheringThreshold float64 `json:"gathering_threshold"`
	ReuseTemplate      bool    `json:"reuse_template"`

	// Keyword extraction
	VocabularyThreshold int `json:"vocabulary_threshold"`
	TopKeywords         int `json:"top_keywords"`
	ReportKeywords      int `json:"report_keywords"`

	// Node filtering
	ContentTags               []string `json:"content_tags"`
	DensityMode               string   `json:"density_mode"`
	TextDensityThreshold      float64  `json:"text_density_threshold"`
	HyperlinkDensityThreshold float64  `json:"hyperlink_density_threshold"`
	MaxWordLength             int      `json:"max_word_length"`
	MinSentenceSize           int      `json:"min_sentence_size"`
	PruneUnknownWords         bool     `json:"prune_unknown_words"`

	// Gathering
	ShallowPrefilter *bool  `json:"shallow_prefilter"`
	RelevanceBoost   int    `json:"relevance_boost"`
	CachePath        string `json:"cache_path"`
	CacheFlushEvery  int    `json:"cache_flush_every"`

	// External services
	EmbeddingsPath     string `json:"embeddings_path"`
	EmbeddingsMaxWords int    `json:"embeddings_max_words"`
	LexiconPath        string `json:"lexicon_path"`
	SummaryWordLimit   int    `json:"summary_word_limit"`

	// Transport
	RequestTimeoutMs int     `json:"request_timeout_ms"`
	RetryAttempts    int     `json:"retry_attempts"`
	RateLimit        float64 `json:"rate_limit"`
	UserAgent        string  `json:"user_agent"`

	DBPath      string `json:"db_path"`
	MetricsPath string `json:"metrics_path"`
}

// LoadConfig reads and validates configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ReadConfig decodes a JSON config file without defaults or validation
func ReadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := New()
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return cfg, nil
}

// New returns an empty configuration. Fields that accept zero start as Unset
// so an explicit 0 in a config file is kept.
func New() *Config {
	return &Config{
		RetryAttempts: Unset,
		RateLimit:     Unset,
	}
}

// Default returns a configuration with every default applied and no site set
func Default() *Config {
	cfg := New()
	applyDefaults(cfg)
	return cfg
}

// Finalize applies defaults for missing values and validates the result.
// Callers that mutate a loaded config (CLI overrides) call it again.
func (c *Config) Finalize() error {
	applyDefaults(c)
	if err := validate(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Shallow reports whether the substring pre-filter is enabled
func (c *Config) Shallow() bool {
	return c.ShallowPrefilter == nil || *c.ShallowPrefilter
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.PagesToGather == 0 {
		cfg.PagesToGather = 10
	}
	if cfg.MinSubdigraphSize == 0 {
		cfg.MinSubdigraphSize = 4
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 3000
	}
	if cfg.TemplateThreshold == 0 {
		cfg.TemplateThreshold = 1.0
	}
	if cfg.GatheringThreshold == 0 {
		cfg.GatheringThreshold = 1.0
	}
	if cfg.VocabularyThreshold == 0 {
		cfg.VocabularyThreshold = 3
	}
	if cfg.TopKeywords == 0 {
		cfg.TopKeywords = 10
	}
	if cfg.ReportKeywords == 0 {
		cfg.ReportKeywords = 5
	}
	if len(cfg.ContentTags) == 0 {
		cfg.ContentTags = []string{"div", "p", "td"}
	}
	if cfg.DensityMode == "" {
		cfg.DensityMode = DensityDynamic
	}
	if cfg.TextDensityThreshold == 0 {
		cfg.TextDensityThreshold = 0.5
	}
	if cfg.HyperlinkDensityThreshold == 0 {
		cfg.HyperlinkDensityThreshold = 0.1
	}
	if cfg.MaxWordLength == 0 {
		cfg.MaxWordLength = 20
	}
	if cfg.MinSentenceSize == 0 {
		cfg.MinSentenceSize = 5
	}
	if cfg.RelevanceBoost == 0 {
		cfg.RelevanceBoost = 10
	}
	if cfg.CachePath == "" {
		cfg.CachePath = "../Files/siteDatabase.json"
	}
	if cfg.CacheFlushEvery == 0 {
		cfg.CacheFlushEvery = 100
	}
	if cfg.EmbeddingsMaxWords == 0 {
		cfg.EmbeddingsMaxWords = 150000
	}
	if cfg.SummaryWordLimit == 0 {
		cfg.SummaryWordLimit = 100
	}
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = 10000
	}
	if cfg.RetryAttempts < 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.RateLimit < 0 {
		cfg.RateLimit = 5
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "template-weaver/1.0"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "weaver.db"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "metrics.log"
	}
}

// validate checks that required fields are present and values are sensible
func validate(cfg *Config) error {
	if cfg.SiteURL == "" {
		return fmt.Errorf("site_url is required")
	}
	u, err := url.Parse(cfg.SiteURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("site_url must be an absolute URL")
	}
	if cfg.PagesToGather < 1 {
		return fmt.Errorf("pages_to_gather must be >= 1")
	}
	if cfg.MinSubdigraphSize < 2 {
		return fmt.Errorf("min_subdigraph_size must be >= 2")
	}
	if cfg.TemplateThreshold <= 0 || cfg.GatheringThreshold <= 0 {
		return fmt.Errorf("similarity thresholds must be > 0")
	}
	if cfg.DensityMode != DensityDynamic && cfg.DensityMode != DensityFixed {
		return fmt.Errorf("density_mode must be %q or %q", DensityDynamic, DensityFixed)
	}
	if cfg.MinSentenceSize < 1 {
		return fmt.Errorf("min_sentence_size must be >= 1")
	}
	if cfg.RequestTimeoutMs < 1000 {
		return fmt.Errorf("request_timeout_ms must be >= 1000")
	}
	if cfg.RateLimit < 0 || cfg.RetryAttempts < 0 {
		return fmt.Errorf("rate_limit and retry_attempts must be >= 0")
	}
	return nil
}
