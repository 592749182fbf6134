package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// MinContentLength is the shortest HTTP text trusted as the real page. Shorter
// text usually means the page is built by scripts.
const MinContentLength = 500

// settleDelay gives scripts time to render after the document completes.
const settleDelay = 2 * time.Second

// dismissSelector matches common cookie-consent accept buttons.
const dismissSelector = `button[id*="accept"], button[class*="accept"], #onetrust-accept-btn-handler`

// NeedsRender reports whether text extracted over HTTP is too short to judge.
func NeedsRender(text string) bool {
	return len(strings.TrimSpace(text)) < MinContentLength
}

// Render loads url in a throwaway headless Chrome and returns the HTML once
// the document is complete. It satisfies RenderFunc.
func Render(ctx context.Context, url string, timeout time.Duration, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("rendering page in headless browser", zap.String("url", url))

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()
	tabCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		waitComplete(200*time.Millisecond),
		chromedp.Sleep(settleDelay),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// Consent banners are optional; a missing button is not an error.
			var clicked bool
			_ = chromedp.Evaluate(fmt.Sprintf(
				`(() => { const b = document.querySelector(%q); if (b) { b.click(); return true } return false })()`,
				dismissSelector), &clicked).Do(ctx)
			return nil
		}),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}

	logger.Debug("rendered page", zap.String("url", url), zap.Int("bytes", len(html)))
	return html, nil
}

// waitComplete polls document.readyState until it is "complete".
func waitComplete(interval time.Duration) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			var state string
			if err := chromedp.Evaluate(`document.readyState`, &state).Do(ctx); err == nil && state == "complete" {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}
}
