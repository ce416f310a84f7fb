package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alvmarrod/template-weaver/internal/storage"
)

// Tracker holds and manages crawl metrics
type Tracker struct {
	mu               sync.Mutex
	data             storage.Metrics
	totalFetchTimeMs int64
	fetchCount       int
}

// NewTracker creates a new metrics tracker
func NewTracker() *Tracker {
	return &Tracker{
		data: storage.Metrics{
			StartTime: time.Now(),
		},
	}
}

// RecordFetch records one fetch attempt, its duration and outcome.
// Its signature matches fetcher.FetchCallback.
func (t *Tracker) RecordFetch(_ string, elapsed time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalFetchTimeMs += elapsed.Milliseconds()
	t.fetchCount++
	if err != nil {
		t.data.PagesFailed++
	} else {
		t.data.PagesFetched++
	}
}

// SetConnections records the current size of the link graph
func (t *Tracker) SetConnections(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ConnectionsFound = n
}

// AddClustersTested adds n scored clusters
func (t *Tracker) AddClustersTested(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ClustersTested += n
}

// IncrementPagesAccepted counts a page that matched the site template
func (t *Tracker) IncrementPagesAccepted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesAccepted++
}

// IncrementPagesRejected counts a page that failed the template gate
func (t *Tracker) IncrementPagesRejected() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesRejected++
}

// IncrementPagesRelevant counts a page whose keywords matched the query
func (t *Tracker) IncrementPagesRelevant() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesRelevant++
}

// IncrementCacheFlushes counts a cache checkpoint
func (t *Tracker) IncrementCacheFlushes() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.CacheFlushes++
}

// SetTemplate records how the template was found
func (t *Tracker) SetTemplate(kind string, score float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.TemplateKind = kind
	t.data.TemplateScore = score
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.data
	snapshot.TotalFetchTimeMs = t.totalFetchTimeMs
	if t.fetchCount > 0 {
		snapshot.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}

	return snapshot
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason
	t.data.TotalFetchTimeMs = t.totalFetchTimeMs
	if t.fetchCount > 0 {
		t.data.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}

	jsonData, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress formats current metrics for periodic console updates
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Pages: %d fetched, %d failed | Connections: %d | Clusters: %d | Accepted: %d, rejected %d, relevant %d",
		t.data.PagesFetched,
		t.data.PagesFailed,
		t.data.ConnectionsFound,
		t.data.ClustersTested,
		t.data.PagesAccepted,
		t.data.PagesRejected,
		t.data.PagesRelevant,
	)
}
