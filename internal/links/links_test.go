package links

import (
	"reflect"
	"testing"
)

func TestHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://News.Example.com/a", "news.example.com"},
		{"//cdn.example.com/x", "cdn.example.com"},
		{"/relative/path", ""},
		{"javascript:void(0)", ""},
		{"http://[::1", ""},
	}
	for _, tt := range tests {
		if got := Host(tt.in); got != tt.want {
			t.Errorf("Host(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNavigable(t *testing.T) {
	root := "https://x.com"
	tests := []struct {
		link string
		want bool
	}{
		{"https://x.com/article", true},
		{"https://x.com", false},
		{"https://x.co", false},
		{"https://y.com/article", false},
		{"javascript:void(0)", false},
		{"mailto:someone@x.com", false},
		{"https://x.com/report.pdf", false},
		{"https://x.com/logo.PNG", false},
		{"https://x.com/feed/", false},
		{"https://x.com/news?page=2", true},
	}
	for _, tt := range tests {
		if got := Navigable(root, tt.link); got != tt.want {
			t.Errorf("Navigable(%q) = %v, want %v", tt.link, got, tt.want)
		}
	}
}

func TestCandidatesOrder(t *testing.T) {
	root := "https://x.com"
	got := Candidates(root, []string{
		"https://x.com/b",
		"https://x.com/longer",
		"https://x.com/a",
		"https://x.com/b",
		"javascript:void(0)",
		"https://other.com/zzzzzzzz",
	})
	want := []string{"https://x.com/longer", "https://x.com/a", "https://x.com/b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Candidates() = %v, want %v", got, want)
	}
}
