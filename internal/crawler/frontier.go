package crawler

import (
	"container/heap"
	"sync"

	"github.com/alvmarrod/template-weaver/internal/links"
)

// DefaultPriority is the priority of a freshly discovered link
const DefaultPriority = 1

// LinkToBeProcessed is a frontier entry: a link, the page it was found on
// and its crawl priority
type LinkToBeProcessed struct {
	Link     string
	Parent   string
	Priority int

	seq   int
	index int
}

// linkHeap orders entries by priority, then longer links, then insertion
type linkHeap []*LinkToBeProcessed

func (h linkHeap) Len() int { return len(h) }

func (h linkHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	if len(h[i].Link) != len(h[j].Link) {
		return len(h[i].Link) > len(h[j].Link)
	}
	return h[i].seq < h[j].seq
}

func (h linkHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *linkHeap) Push(x any) {
	e := x.(*LinkToBeProcessed)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *linkHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Frontier implements a thread-safe priority queue of links with
// deduplication. Only navigable links of the root's host are accepted.
type Frontier struct {
	mu      sync.Mutex
	root    string
	items   linkHeap
	visited map[string]bool
	seq     int
}

// NewFrontier creates an empty frontier for the site at root
func NewFrontier(root string) *Frontier {
	return &Frontier{
		root:    root,
		visited: make(map[string]bool),
	}
}

// Push adds link if it is navigable and was never queued before.
// Returns true if added, false if filtered or duplicate.
func (f *Frontier) Push(link, parent string, priority int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.visited[link] || !links.Navigable(f.root, link) {
		return false
	}

	f.visited[link] = true
	f.seq++
	heap.Push(&f.items, &LinkToBeProcessed{
		Link:     link,
		Parent:   parent,
		Priority: priority,
		seq:      f.seq,
	})
	return true
}

// PushAll pushes every link found on parent, returning how many were added
func (f *Frontier) PushAll(parent string, found []string, priority int) int {
	added := 0
	for _, link := range found {
		if f.Push(link, parent, priority) {
			added++
		}
	}
	return added
}

// Pop removes and returns the highest priority entry.
// Returns (entry, false) when the frontier is empty.
func (f *Frontier) Pop() (LinkToBeProcessed, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.items) == 0 {
		return LinkToBeProcessed{}, false
	}
	e := heap.Pop(&f.items).(*LinkToBeProcessed)
	return *e, true
}

// Boost raises every queued entry found on parent to priority.
// Entries already at or above it are left alone. Returns the number raised.
func (f *Frontier) Boost(parent string, priority int) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	raised := 0
	for _, e := range f.items {
		if e.Parent == parent && e.Priority < priority {
			e.Priority = priority
			raised++
		}
	}
	if raised > 0 {
		heap.Init(&f.items)
	}
	return raised
}

// Len returns the current number of queued links
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// IsEmpty returns true if no links are queued
func (f *Frontier) IsEmpty() bool {
	return f.Len() == 0
}
