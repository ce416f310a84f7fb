package metrics

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alvmarrod/template-weaver/internal/storage"
)

func TestTrackerCounts(t *testing.T) {
	tr := NewTracker()
	tr.RecordFetch("a", 10*time.Millisecond, nil)
	tr.RecordFetch("b", 30*time.Millisecond, nil)
	tr.RecordFetch("c", 20*time.Millisecond, errors.New("boom"))
	tr.SetConnections(12)
	tr.AddClustersTested(2)
	tr.IncrementPagesAccepted()
	tr.IncrementPagesRejected()
	tr.IncrementPagesRelevant()
	tr.IncrementCacheFlushes()
	tr.SetTemplate("accepted", 0.3)

	snap := tr.GetSnapshot()
	if snap.PagesFetched != 2 || snap.PagesFailed != 1 {
		t.Errorf("fetched/failed = %d/%d", snap.PagesFetched, snap.PagesFailed)
	}
	if snap.AvgFetchTimeMs != 20 || snap.TotalFetchTimeMs != 60 {
		t.Errorf("fetch times = %d avg, %d total", snap.AvgFetchTimeMs, snap.TotalFetchTimeMs)
	}
	if snap.ConnectionsFound != 12 || snap.ClustersTested != 2 || snap.CacheFlushes != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.TemplateKind != "accepted" {
		t.Errorf("TemplateKind = %q", snap.TemplateKind)
	}

	if p := tr.LogProgress(); !strings.Contains(p, "2 fetched, 1 failed") {
		t.Errorf("LogProgress() = %q", p)
	}
}

func TestWriteToFile(t *testing.T) {
	tr := NewTracker()
	tr.IncrementPagesAccepted()

	path := filepath.Join(t.TempDir(), "metrics.log")
	if err := tr.WriteToFile(path, "target_reached"); err != nil {
		t.Fatalf("WriteToFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var m storage.Metrics
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("metrics file is not JSON: %v", err)
	}
	if m.TerminationReason != "target_reached" || m.PagesAccepted != 1 {
		t.Errorf("metrics = %+v", m)
	}
	if m.EndTime.Before(m.StartTime) {
		t.Error("EndTime before StartTime")
	}
}
