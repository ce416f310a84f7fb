// Package links normalises and screens the hyperlinks found on a site.
package links

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Excluded link patterns (binary assets, feeds, non-page resources)
var excludedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\.(pdf|docx?|xlsx?|pptx?|zip|gz|tar|rar|7z|exe|dmg)$`),
	regexp.MustCompile(`(?i)\.(jpe?g|png|gif|svg|webp|ico|bmp|mp3|mp4|avi|mov|webm)$`),
	regexp.MustCompile(`(?i)\.(css|js|json|xml|rss|atom)$`),
	regexp.MustCompile(`(?i)/(feed|rss)/?$`),
}

var pseudoSchemes = []string{"javascript:", "mailto:", "tel:", "data:", "about:"}

// Host extracts the lowercase hostname from an absolute URL string.
// Relative and unparsable URLs yield an empty host.
func Host(rawURL string) string {
	if strings.HasPrefix(rawURL, "//") {
		rawURL = "https:" + rawURL
	}
	if !strings.Contains(rawURL, "://") {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// SameHost reports whether both URLs point at the same, non-empty host
func SameHost(a, b string) bool {
	h := Host(a)
	return h != "" && h == Host(b)
}

// IsPseudo reports whether link is not navigable, e.g. javascript:void(0)
func IsPseudo(link string) bool {
	lower := strings.ToLower(strings.TrimSpace(link))
	for _, scheme := range pseudoSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

// IsExcluded reports whether link targets a non-page resource
func IsExcluded(link string) bool {
	path := link
	if u, err := url.Parse(link); err == nil {
		path = u.Path
	}
	for _, pattern := range excludedPatterns {
		if pattern.MatchString(path) {
			return true
		}
	}
	return false
}

// Navigable reports whether link is worth fetching while exploring root:
// a real page on the root's host whose URL is longer than the root's
func Navigable(root, link string) bool {
	if IsPseudo(link) || IsExcluded(link) {
		return false
	}
	if len(link) <= len(root) {
		return false
	}
	return SameHost(root, link)
}

// Candidates filters links to the navigable ones, dropping duplicates, and
// orders them longest first with ties broken alphabetically
func Candidates(root string, links []string) []string {
	seen := make(map[string]bool)
	var filtered []string
	for _, link := range links {
		link = strings.TrimSpace(link)
		if seen[link] || !Navigable(root, link) {
			continue
		}
		seen[link] = true
		filtered = append(filtered, link)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if len(filtered[i]) != len(filtered[j]) {
			return len(filtered[i]) > len(filtered[j])
		}
		return filtered[i] < filtered[j]
	})
	return filtered
}
