package graph

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alvmarrod/template-weaver/internal/storage"
	"github.com/sirupsen/logrus"
)

// ConnectionStore persists discovered connections
type ConnectionStore interface {
	SaveConnections(siteURL, sessionID string, conns []storage.Connection) (int, error)
}

// LinkGraph holds the directed connections discovered between a site's pages
type LinkGraph struct {
	out   map[string]map[string]struct{} // from -> set of to
	count int
	mu    sync.RWMutex
}

// NewLinkGraph creates an empty link graph
func NewLinkGraph() *LinkGraph {
	return &LinkGraph{
		out: make(map[string]map[string]struct{}),
	}
}

// AddConnection records that page from links to page to.
// Returns false if the connection was already known or is a self link.
func (g *LinkGraph) AddConnection(from, to string) bool {
	if from == to {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	targets, ok := g.out[from]
	if !ok {
		targets = make(map[string]struct{})
		g.out[from] = targets
	}
	if _, exists := targets[to]; exists {
		return false
	}
	targets[to] = struct{}{}
	g.count++
	return true
}

// Has reports whether from links to to
func (g *LinkGraph) Has(from, to string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.has(from, to)
}

func (g *LinkGraph) has(from, to string) bool {
	_, ok := g.out[from][to]
	return ok
}

// Reciprocal reports whether a and b link to each other
func (g *LinkGraph) Reciprocal(a, b string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.has(a, b) && g.has(b, a)
}

// Len returns the number of distinct connections
func (g *LinkGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.count
}

// Connections returns a sorted snapshot of every connection
func (g *LinkGraph) Connections() []storage.Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()

	conns := make([]storage.Connection, 0, g.count)
	for from, targets := range g.out {
		for to := range targets {
			conns = append(conns, storage.Connection{From: from, To: to})
		}
	}
	sort.Slice(conns, func(i, j int) bool {
		if conns[i].From != conns[j].From {
			return conns[i].From < conns[j].From
		}
		return conns[i].To < conns[j].To
	})
	return conns
}

// cluster builds the complete subdigraph around pivot: every page linked to
// and from the pivot, kept only while it stays reciprocally connected to all
// members gathered so far
func (g *LinkGraph) cluster(pivot string) []string {
	var candidates []string
	for y := range g.out[pivot] {
		if g.has(y, pivot) {
			candidates = append(candidates, y)
		}
	}
	sort.Strings(candidates)

	members := []string{pivot}
	for _, y := range candidates {
		complete := true
		for _, m := range members {
			if !g.has(y, m) || !g.has(m, y) {
				complete = false
				break
			}
		}
		if complete {
			members = append(members, y)
		}
	}

	sort.Strings(members)
	return members
}

// CompleteSubdigraphs returns, for each processed pivot in order, its
// complete subdigraph. Duplicate sets and sets smaller than minSize are
// discarded.
func (g *LinkGraph) CompleteSubdigraphs(processed []string, minSize int) [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.count == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var clusters [][]string
	for _, p := range processed {
		members := g.cluster(p)
		if len(members) < minSize {
			continue
		}
		key := Key(members)
		if seen[key] {
			continue
		}
		seen[key] = true
		clusters = append(clusters, members)
	}
	return clusters
}

// Largest returns the biggest complete subdigraph around any processed
// pivot regardless of size, first found on ties
func (g *LinkGraph) Largest(processed []string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var best []string
	for _, p := range processed {
		members := g.cluster(p)
		if len(members) > 1 && len(members) > len(best) {
			best = members
		}
	}
	return best
}

// Key identifies a cluster independently of member order
func Key(members []string) string {
	sorted := make([]string, len(members))
	copy(sorted, members)
	sort.Strings(sorted)
	return strings.Join(sorted, "\n")
}

// Load adds previously stored connections to the graph
func (g *LinkGraph) Load(conns []storage.Connection) int {
	added := 0
	for _, c := range conns {
		if g.AddConnection(c.From, c.To) {
			added++
		}
	}
	return added
}

// Flush writes all in-memory connections to storage
func (g *LinkGraph) Flush(store ConnectionStore, siteURL, sessionID string) error {
	startTime := time.Now()
	conns := g.Connections()
	logrus.Infof("Flushing %d connections for %s...", len(conns), siteURL)

	written, err := store.SaveConnections(siteURL, sessionID, conns)
	if err != nil {
		return fmt.Errorf("failed to flush connections: %w", err)
	}

	logrus.Infof("Flush complete: %d new connections written in %v", written, time.Since(startTime))
	return nil
}
