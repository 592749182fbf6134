// Package fetch provides URL fetching and HTML-to-text processing used to
// judge candidate pages before a browser session is opened for them.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "Mozilla/5.0 (compatible; ScholarshipAgent/1.0)"
	// MaxBodyBytes caps how much of a response is read.
	MaxBodyBytes = 4 << 20
)

// noiseSelector matches page chrome that never says anything about
// eligibility or deadlines.
const noiseSelector = "nav, footer, header, script, style, noscript, svg, iframe, " +
	".ad, .ads, .advertisement, .sidebar, .cookie-banner, #cookie-banner, .popup, [role=dialog]"

// Page is a fetched HTML document.
type Page struct {
	URL         string
	FinalURL    string // after redirects
	HTML        string
	ContentType string
	StatusCode  int
}

// Error represents an error during URL fetching.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the fetch behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
		Headers:   map[string]string{"Accept-Language": "en-US,en;q=0.9"},
	}
}

// Get retrieves an HTML page. Any 2xx status is success. Non-HTML responses
// such as PDFs are rejected since they never hold a fillable form.
func Get(ctx context.Context, rawURL string, opts *Options) (*Page, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &Error{URL: rawURL, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	client := &http.Client{Timeout: opts.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "failed to read response body", Cause: err}
	}

	page := &Page{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		HTML:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return page, &Error{URL: rawURL, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}
	if !isHTML(page.ContentType) {
		return page, &Error{URL: rawURL, Message: fmt.Sprintf("not an HTML page (%s)", page.ContentType)}
	}
	return page, nil
}

// isHTML accepts HTML media types and a missing header.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// MainText returns the readable text of the first element matching one of
// selectors, or of the body when none match. Page chrome is dropped first.
// Block elements end a line so paragraphs stay apart.
func MainText(html string, selectors []string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find(noiseSelector).Remove()
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6, tr, section, label").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	content := doc.Find("body")
	for _, selector := range selectors {
		if s := doc.Find(selector); s.Length() > 0 {
			content = s.First()
			break
		}
	}
	return collapseLines(content.Text()), nil
}

// ScholarshipSelectors returns selectors for scholarship listing and detail pages.
func ScholarshipSelectors() []string {
	return []string{
		".scholarship-details",
		".scholarship-description",
		"#scholarship",
		".award-details",
		".eligibility",
		"main",
		"article",
		"[role=main]",
		".content",
		"#content",
	}
}

// collapseLines trims every line, squeezes inner whitespace runs and drops
// blank lines.
func collapseLines(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
