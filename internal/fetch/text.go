package fetch

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultPrefixSize is the number of characters of page text kept for
// applicability and status questions.
const DefaultPrefixSize = 5000

// RenderFunc renders a URL in a browser and returns its HTML.
type RenderFunc func(ctx context.Context, url string, timeout time.Duration, logger *zap.Logger) (string, error)

// PageFetcher returns a bounded prefix of a page's readable text.
type PageFetcher struct {
	Options    *Options
	PrefixSize int
	// Render is used when plain HTTP returns too little text. Nil disables the fallback.
	Render RenderFunc
	logger *zap.Logger
}

// NewPageFetcher creates a fetcher that falls back to headless rendering for
// script-built pages.
func NewPageFetcher(prefixSize int, timeout time.Duration, logger *zap.Logger) *PageFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := DefaultOptions()
	if timeout > 0 {
		opts.Timeout = timeout
	}
	if prefixSize <= 0 {
		prefixSize = DefaultPrefixSize
	}
	return &PageFetcher{
		Options:    opts,
		PrefixSize: prefixSize,
		Render:     Render,
		logger:     logger.Named("fetch"),
	}
}

// Text fetches url and returns at most PrefixSize characters of its main text.
func (f *PageFetcher) Text(ctx context.Context, url string) (string, error) {
	page, err := Get(ctx, url, f.Options)
	if err != nil {
		return "", err
	}

	text, err := MainText(page.HTML, ScholarshipSelectors())
	if err != nil {
		return "", &Error{URL: url, Message: "failed to extract text", Cause: err}
	}

	if f.Render != nil && NeedsRender(text) {
		f.logger.Debug("page text too short, rendering", zap.String("url", url), zap.Int("chars", len(text)))
		html, err := f.Render(ctx, url, f.Options.Timeout, f.logger)
		if err != nil {
			// Keep the short HTTP text rather than failing the page.
			f.logger.Warn("render fallback failed", zap.String("url", url), zap.Error(err))
		} else if rendered, err := MainText(html, ScholarshipSelectors()); err == nil && len(rendered) > len(text) {
			text = rendered
		}
	}

	return Prefix(text, f.PrefixSize), nil
}

// Prefix returns the first n characters of text without splitting a rune.
func Prefix(text string, n int) string {
	if n <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
