package storage

import "time"

// Session is one run of the weaver against a site
type Session struct {
	SessionID         string
	SiteURL           string
	Query             string
	StartedAt         time.Time
	FinishedAt        *time.Time
	TerminationReason string
}

// Template is a learned site template: per-tag median counts of the
// accepted page cluster plus the cluster members themselves
type Template struct {
	TemplateID int
	SiteURL    string
	SessionID  string
	Kind       string
	Score      float64
	Tags       map[string]int
	Pages      []string
	CreatedAt  time.Time
}

// Connection is a directed link discovered between two pages of a site
type Connection struct {
	From string
	To   string
}

// Metrics tracks crawl statistics for export on exit
type Metrics struct {
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	PagesFetched      int       `json:"pages_fetched"`
	PagesFailed       int       `json:"pages_failed"`
	ConnectionsFound  int       `json:"connections_found"`
	ClustersTested    int       `json:"clusters_tested"`
	PagesAccepted     int       `json:"pages_accepted"`
	PagesRejected     int       `json:"pages_rejected"`
	PagesRelevant     int       `json:"pages_relevant"`
	CacheFlushes      int       `json:"cache_flushes"`
	TotalFetchTimeMs  int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs    int64     `json:"avg_fetch_time_ms"`
	TemplateKind      string    `json:"template_kind"`
	TemplateScore     float64   `json:"template_score"`
	TerminationReason string    `json:"termination_reason"`
}
