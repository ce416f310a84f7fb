package crawler

import "testing"

func TestFrontierPopsHigherPriorityFirst(t *testing.T) {
	f := NewFrontier("https://x.com")
	f.Push("https://x.com/a", "https://x.com", 1)
	f.Push("https://x.com/b", "https://x.com", 10)

	first, _ := f.Pop()
	second, _ := f.Pop()
	if first.Link != "https://x.com/b" || second.Link != "https://x.com/a" {
		t.Errorf("pop order = %s, %s; want b then a", first.Link, second.Link)
	}
	if _, ok := f.Pop(); ok {
		t.Error("Pop() on empty frontier returned ok")
	}
}

func TestFrontierOrdering(t *testing.T) {
	f := NewFrontier("https://x.com")
	f.Push("https://x.com/bb", "p", 1)
	f.Push("https://x.com/longest", "p", 1)
	f.Push("https://x.com/aa", "p", 1)
	f.Push("https://x.com/z", "p", 2)

	want := []string{
		"https://x.com/z",
		"https://x.com/longest",
		"https://x.com/bb",
		"https://x.com/aa",
	}
	for i, w := range want {
		got, ok := f.Pop()
		if !ok || got.Link != w {
			t.Fatalf("pop %d = %q, want %q", i, got.Link, w)
		}
	}
}

func TestFrontierFiltersAndDeduplicates(t *testing.T) {
	f := NewFrontier("https://x.com")

	tests := []struct {
		link string
		want bool
	}{
		{"https://x.com/page", true},
		{"https://x.com/page", false},
		{"https://other.com/page", false},
		{"https://x.com", false},
		{"javascript:void(0)", false},
		{"https://x.com/files/report.pdf", false},
	}
	for _, tt := range tests {
		if got := f.Push(tt.link, "", DefaultPriority); got != tt.want {
			t.Errorf("Push(%q) = %v, want %v", tt.link, got, tt.want)
		}
	}

	// A popped link is not queued again.
	f.Pop()
	if f.Push("https://x.com/page", "", DefaultPriority) {
		t.Error("Push() accepted an already processed link")
	}
	if !f.IsEmpty() {
		t.Errorf("Len() = %d, want 0", f.Len())
	}
}

func TestFrontierBoost(t *testing.T) {
	f := NewFrontier("https://x.com")
	f.PushAll("https://x.com/hub", []string{"https://x.com/from-hub"}, 1)
	f.PushAll("https://x.com/other", []string{
		"https://x.com/a-much-longer-link",
		"https://x.com/already-high",
	}, 1)
	f.Boost("https://x.com/nothing", 50)

	if n := f.Boost("https://x.com/hub", 10); n != 1 {
		t.Errorf("Boost() raised %d, want 1", n)
	}

	got, _ := f.Pop()
	if got.Link != "https://x.com/from-hub" || got.Priority != 10 {
		t.Errorf("Pop() = %+v, want boosted hub child", got)
	}
	if got.Parent != "https://x.com/hub" {
		t.Errorf("Parent = %q", got.Parent)
	}
}
