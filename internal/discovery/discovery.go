// Package discovery turns a search query into the candidate links worth visiting.
package discovery

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jonathan/scholarship-agent/internal/ledger"
	"github.com/jonathan/scholarship-agent/internal/prompts"
	"github.com/jonathan/scholarship-agent/internal/search"
	"github.com/jonathan/scholarship-agent/internal/types"
)

// PageTextFetcher returns a bounded prefix of a page's readable text.
type PageTextFetcher interface {
	Text(ctx context.Context, url string) (string, error)
}

// Judge answers the questions discovery asks about a page.
type Judge interface {
	IsApplicable(ctx context.Context, pageText, gradeLevel string) (bool, error)
	ClassifyStatus(ctx context.Context, pageText string) (types.LinkStatus, string, error)
}

// Ledger is the part of the completed-link ledger discovery needs.
type Ledger interface {
	Processed(ctx context.Context) (map[string]types.LinkStatus, error)
	Record(ctx context.Context, url string, status types.LinkStatus, details string) error
}

// Options configures a Discoverer.
type Options struct {
	GradeLevel string
	// ReviewStatus also classifies each applicable page as open, closed,
	// not found or ad. Pages that are not open are recorded and dropped.
	ReviewStatus bool
	// ReviewInterval is the minimum gap between page reviews.
	ReviewInterval time.Duration
}

// Discoverer produces ordered, deduplicated candidate links.
type Discoverer struct {
	searcher search.Searcher
	fetcher  PageTextFetcher
	judge    Judge
	ledger   Ledger
	opts     Options
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// New creates a Discoverer. A nil logger disables logging.
func New(searcher search.Searcher, fetcher PageTextFetcher, judge Judge, ldg Ledger, opts Options, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if opts.ReviewInterval > 0 {
		limit = rate.Every(opts.ReviewInterval)
	}
	return &Discoverer{
		searcher: searcher,
		fetcher:  fetcher,
		judge:    judge,
		ledger:   ldg,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger.Named("discovery"),
	}
}

// Discover searches for query and returns at most limit candidates. Links the
// ledger already excludes are removed before any page is fetched. An empty
// result is not an error.
func (d *Discoverer) Discover(ctx context.Context, query string, limit int) ([]types.CandidateLink, error) {
	processed, err := d.ledger.Processed(ctx)
	if err != nil {
		return nil, err
	}

	urls, err := d.searcher.Search(ctx, query, 0)
	if err != nil {
		return nil, err
	}
	d.logger.Info("search returned results", zap.String("query", query), zap.Int("results", len(urls)))

	fresh := Filter(urls, processed, d.logger)

	candidates := make([]types.CandidateLink, 0, limit)
	for _, url := range fresh {
		if limit > 0 && len(candidates) >= limit {
			break
		}
		if err := d.limiter.Wait(ctx); err != nil {
			return candidates, err
		}
		link, keep := d.review(ctx, url)
		if keep {
			candidates = append(candidates, link)
		}
	}
	return candidates, nil
}

// review fetches url and decides whether it stays a candidate.
func (d *Discoverer) review(ctx context.Context, url string) (types.CandidateLink, bool) {
	link := types.CandidateLink{URL: url}

	text, err := d.fetcher.Text(ctx, url)
	if err != nil {
		// Permissive: a page we cannot read is still shown to the human.
		d.logger.Warn("page text unavailable, treating as applicable", zap.String("url", url), zap.Error(err))
		link.Details = "page text unavailable"
		return link, true
	}

	applicable, err := d.judge.IsApplicable(ctx, text, d.opts.GradeLevel)
	switch {
	case err != nil:
		d.logger.Warn("applicability check failed, treating as applicable", zap.String("url", url), zap.Error(err))
	case !applicable:
		d.logger.Info("skipping link: not applicable",
			zap.String("url", url),
			zap.String("grade_level", d.opts.GradeLevel))
		return link, false
	default:
		d.logger.Info("link applicable", zap.String("url", url))
	}

	if !d.opts.ReviewStatus {
		return link, true
	}

	status, rationale, err := d.judge.ClassifyStatus(ctx, text)
	if err != nil {
		d.logger.Warn("status check failed, leaving status unset", zap.String("url", url), zap.Error(err))
		return link, true
	}
	d.logger.Info("link status determined",
		zap.String("url", url),
		zap.String("status", string(status)),
		zap.String("rationale", rationale))

	link.Status = status
	link.Details = rationale
	if status == types.StatusOpen {
		return link, true
	}
	if err := d.ledger.Record(ctx, url, status, rationale); err != nil && !errors.Is(err, ledger.ErrAlreadyTerminal) {
		d.logger.Error("failed to record link status", zap.String("url", url), zap.Error(err))
	}
	return link, false
}

// Filter normalizes and deduplicates urls, keeping first occurrences, and
// drops every URL the ledger excludes.
func Filter(urls []string, processed map[string]types.LinkStatus, logger *zap.Logger) []string {
	if logger == nil {
		logger = zap.NewNop()
	}
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		url := ledger.NormalizeURL(raw)
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true
		if status := processed[url]; ledger.Excluded(status) {
			logger.Debug("skipping processed link", zap.String("url", url), zap.String("status", string(status)))
			continue
		}
		out = append(out, url)
	}
	return out
}

// BuildQuery renders the search query for p. City and state are added when present.
func BuildQuery(p *types.Profile) string {
	key := "search-query"
	if p.City != "" || p.State != "" {
		key = "search-query-local"
	}
	query := prompts.Format(prompts.MustGet("discovery.json", key), map[string]string{
		"GradeLevel": p.GradeLevel,
		"Race":       p.Race,
		"Ethnicity":  p.Ethnicity,
		"School":     p.School,
		"City":       p.City,
		"State":      p.State,
	})
	return strings.Join(strings.Fields(query), " ")
}
