// Package search turns a free-text query into an ordered list of page addresses.
package search

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/scholarship-agent/internal/fetch"
	"github.com/jonathan/scholarship-agent/internal/types"
)

// Searcher returns up to limit result URLs for query, in rank order.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// HTMLSource loads a page and returns its HTML.
type HTMLSource func(ctx context.Context, pageURL string) (string, error)

// HTTPSource fetches pages over plain HTTP.
func HTTPSource(opts *fetch.Options) HTMLSource {
	return func(ctx context.Context, pageURL string) (string, error) {
		page, err := fetch.Get(ctx, pageURL, opts)
		if err != nil {
			return "", err
		}
		return page.HTML, nil
	}
}

// ResultsPage scrapes a search engine results page. Every http(s) anchor that
// does not point back at the engine's own host is a result.
type ResultsPage struct {
	// URLTemplate holds one %s, replaced by the escaped query.
	URLTemplate string
	Source      HTMLSource
}

// Search loads the results page for query and extracts result links.
func (r *ResultsPage) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &Error{Message: "empty query"}
	}
	pageURL := fmt.Sprintf(r.URLTemplate, url.QueryEscape(query))
	html, err := r.Source(ctx, pageURL)
	if err != nil {
		return nil, &Error{Message: "failed to load results page", Cause: err}
	}
	links, err := ExtractResultLinks(html, pageURL)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}
	return links, nil
}

// ExtractResultLinks returns result anchors from a results page in document
// order, deduplicated. Redirect links of the form /url?q=<target> are unwrapped.
func ExtractResultLinks(html, pageURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &Error{Message: "failed to parse results page", Cause: err}
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, &Error{Message: "invalid results page URL", Cause: err}
	}
	engine := registrableHost(base.Hostname())

	var links []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		target := resolve(base, href)
		if target == nil {
			return
		}
		if target.Scheme != "http" && target.Scheme != "https" {
			return
		}
		if engine != "" && registrableHost(target.Hostname()) == engine {
			return
		}
		target.Fragment = ""
		target.RawFragment = ""
		s := target.String()
		if seen[s] {
			return
		}
		seen[s] = true
		links = append(links, s)
	})
	return links, nil
}

func resolve(base *url.URL, href string) *url.URL {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil
	}
	abs := base.ResolveReference(ref)
	if abs.Path == "/url" {
		if q := abs.Query().Get("q"); q != "" {
			if inner, err := url.Parse(q); err == nil && inner.IsAbs() {
				return inner
			}
		}
		if q := abs.Query().Get("url"); q != "" {
			if inner, err := url.Parse(q); err == nil && inner.IsAbs() {
				return inner
			}
		}
	}
	return abs
}

// registrableHost drops a leading "www." and keeps the last two labels, so
// news.google.com and www.google.com compare equal.
func registrableHost(host string) string {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// LinksFile reads candidates from a "url | status" file instead of searching.
// Lines with no status or status open are candidates; the query is ignored.
type LinksFile struct {
	Path string
}

// Search returns candidate URLs from the file in file order.
func (l *LinksFile) Search(_ context.Context, _ string, limit int) ([]string, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, &Error{Message: "failed to open links file", Cause: err}
	}
	defer f.Close()

	var links []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		link := strings.TrimSpace(parts[0])
		if len(parts) > 1 {
			status, err := types.ParseLinkStatus(parts[1])
			if err != nil || (status != types.StatusNone && status != types.StatusOpen) {
				continue
			}
		}
		links = append(links, link)
		if limit > 0 && len(links) == limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &Error{Message: "failed to read links file", Cause: err}
	}
	return links, nil
}

// Error represents a search failure.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("search error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("search error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
