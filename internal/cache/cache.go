// Package cache persists the keywords of every page scored on a site so
// later sessions can skip or directly reuse them.
package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alvmarrod/template-weaver/internal/links"
)

// Entry is one scored page and its top keywords
type Entry struct {
	PageURL  string   `json:"pageUrl"`
	TopWords []string `json:"topWords"`
}

// SiteCache is the in-memory view of the cache file
type SiteCache struct {
	path    string
	mu      sync.Mutex
	entries []Entry
	index   map[string]int
}

// New creates an empty cache that saves to path
func New(path string) *SiteCache {
	return &SiteCache{path: path, index: make(map[string]int)}
}

// Load reads the cache at path. A missing or empty file yields an empty
// cache; malformed JSON is an error.
func Load(path string) (*SiteCache, error) {
	c := New(path)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return c, nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse cache file %s: %w", path, err)
	}
	for _, e := range entries {
		c.add(e)
	}
	return c, nil
}

// Add records e, replacing the keywords of an already cached page.
// Returns true if the page was new.
func (c *SiteCache) Add(e Entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.add(e)
}

func (c *SiteCache) add(e Entry) bool {
	if i, ok := c.index[e.PageURL]; ok {
		c.entries[i].TopWords = e.TopWords
		return false
	}
	c.index[e.PageURL] = len(c.entries)
	c.entries = append(c.entries, e)
	return true
}

// Known reports whether pageURL has been cached
func (c *SiteCache) Known(pageURL string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.index[pageURL]
	return ok
}

// Len returns the number of cached pages
func (c *SiteCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Entries returns a copy of every entry in insertion order
func (c *SiteCache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Matching returns the entries on host whose keywords include any of terms,
// case-insensitively
func (c *SiteCache) Matching(host string, terms []string) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Entry
	for _, e := range c.entries {
		if links.Host(e.PageURL) != host {
			continue
		}
		if matchesAny(e.TopWords, terms) {
			out = append(out, e)
		}
	}
	return out
}

func matchesAny(words, terms []string) bool {
	for _, w := range words {
		for _, t := range terms {
			if t = strings.TrimSpace(t); t != "" && strings.EqualFold(w, t) {
				return true
			}
		}
	}
	return false
}

// Save rewrites the whole cache file
func (c *SiteCache) Save() error {
	c.mu.Lock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	if string(data) == "null" {
		data = []byte("[]")
	}

	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}
