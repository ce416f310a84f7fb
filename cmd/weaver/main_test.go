package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alvmarrod/template-weaver/internal/crawler"
	"github.com/alvmarrod/template-weaver/internal/model"
	"github.com/alvmarrod/template-weaver/internal/search"
)

func TestSplitQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"volcano", "volcano"},
		{" volcano ; ash;;lava ", "volcano|ash|lava"},
	}
	for _, tt := range tests {
		if got := strings.Join(splitQuery(tt.in), "|"); got != tt.want {
			t.Errorf("splitQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrintReport(t *testing.T) {
	report := &crawler.Report{
		Template: &search.Result{Kind: search.Accepted, Score: 0.25, Cluster: []string{"a", "b", "c", "d"}},
		Reason:   crawler.ReasonTargetReached,
		Results: []*model.Result{{
			Link:      "https://x.com/1",
			Title:     "One",
			TopWords:  []string{"volcano", "ash", "lava"},
			Content:   "the volcano erupted\n",
			Summary:   "the volcano erupted\n",
			Entities:  map[string][]string{"person": {"Ada"}},
			Sentiment: -2,
		}},
	}

	var buf bytes.Buffer
	printReport(&buf, report, 2)
	out := buf.String()

	for _, want := range []string{
		"Template: accepted (score 0.2500) from 4 pages",
		"== https://x.com/1 ==",
		"Keywords: volcano, ash\n",
		"Sentiment: -2",
		"person: Ada",
		"1 pages (target_reached)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestPrintReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &crawler.Report{Reason: crawler.ReasonExhausted}, 5)
	if !strings.Contains(buf.String(), "No qualifying pages found (frontier_exhausted)") {
		t.Errorf("output = %q", buf.String())
	}
}
