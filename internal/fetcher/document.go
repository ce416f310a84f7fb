package fetcher

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvmarrod/template-weaver/internal/similarity"
	"golang.org/x/net/html"
)

// Element is one element of a fetched page, in document order
type Element struct {
	Tag       string
	Text      string
	InnerHTML string
	BaseURI   string
}

// Document is a fetched and parsed page
type Document struct {
	URL      string
	Title    string
	Links    []string
	Elements []Element
	BodyText string
}

// TagProfile counts the page's elements per tag name
func (d *Document) TagProfile() similarity.Profile {
	profile := make(similarity.Profile)
	for _, el := range d.Elements {
		profile[el.Tag]++
	}
	return profile
}

// ContainsAny reports whether the page text contains any of terms as a
// literal substring. Blank terms are ignored and an empty term list matches
// every page.
func (d *Document) ContainsAny(terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	for _, term := range terms {
		if strings.TrimSpace(term) != "" && strings.Contains(d.BodyText, term) {
			return true
		}
	}
	return false
}

var skipText = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// Parse builds a Document from raw HTML served at pageURL. Text and inner
// HTML are materialised only for elements whose tag is in detail; a nil
// detail set materialises every element.
func Parse(pageURL string, body []byte, detail map[string]bool) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	gq := goquery.NewDocumentFromNode(root)
	if href, ok := gq.Find("base[href]").First().Attr("href"); ok {
		if ref, err := base.Parse(href); err == nil {
			base = ref
		}
	}

	doc := &Document{
		URL:   pageURL,
		Title: strings.TrimSpace(gq.Find("title").First().Text()),
	}

	baseURI := base.String()
	if baseURI == "about:blank" {
		baseURI = ""
	}

	seen := make(map[string]bool)
	gq.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link := absoluteURL(base, href)
		if link == "" || seen[link] {
			return
		}
		seen[link] = true
		doc.Links = append(doc.Links, link)
	})

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			el := Element{Tag: n.Data, BaseURI: baseURI}
			if detail == nil || detail[n.Data] {
				el.Text = strings.TrimSpace(textContent(n))
				el.InnerHTML = innerHTML(n)
			}
			doc.Elements = append(doc.Elements, el)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if sel := gq.Find("body").First(); sel.Length() > 0 {
		doc.BodyText = strings.Join(strings.Fields(textContent(sel.Get(0))), " ")
	}

	return doc, nil
}

// absoluteURL resolves href against base, dropping fragments.
// Pseudo links such as javascript: are returned untouched.
func absoluteURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return href
	}
	ref, err := base.Parse(href)
	if err != nil {
		return ""
	}
	ref.Fragment = ""
	return ref.String()
}

// textContent concatenates every descendant text node, skipping script-like elements
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && skipText[n.Data] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return buf.String()
		}
	}
	return buf.String()
}
