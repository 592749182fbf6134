package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"

	"github.com/jonathan/scholarship-agent/internal/browser"
	"github.com/jonathan/scholarship-agent/internal/config"
	"github.com/jonathan/scholarship-agent/internal/discovery"
	"github.com/jonathan/scholarship-agent/internal/fetch"
	"github.com/jonathan/scholarship-agent/internal/human"
	"github.com/jonathan/scholarship-agent/internal/interpret"
	"github.com/jonathan/scholarship-agent/internal/ledger"
	"github.com/jonathan/scholarship-agent/internal/llm"
	"github.com/jonathan/scholarship-agent/internal/navigator"
	"github.com/jonathan/scholarship-agent/internal/orchestrator"
	"github.com/jonathan/scholarship-agent/internal/profile"
	"github.com/jonathan/scholarship-agent/internal/search"
	"github.com/jonathan/scholarship-agent/internal/types"
)

// errNoAPIKey is returned by commands that need the page interpreter.
var errNoAPIKey = errors.New("GEMINI_API_KEY environment variable or --api-key flag is required")

// openLedger opens the configured ledger backend. Entries written through it
// share one run ID.
func openLedger(ctx context.Context, cfg config.Config) (*ledger.Ledger, error) {
	store, err := ledger.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return ledger.New(store, uuid.New(), logger), nil
}

// newInterpreter builds the Gemini-backed page interpreter. The returned
// closer releases the client.
func newInterpreter(ctx context.Context, cfg config.Config) (*interpret.Service, func(), error) {
	if cfg.APIKey == "" {
		return nil, nil, errNoAPIKey
	}
	llmCfg := llm.DefaultConfig()
	if cfg.Model != "" {
		llmCfg = llmCfg.WithModel(llm.TierStandard, cfg.Model)
	}
	if cfg.EssayModel != "" {
		llmCfg = llmCfg.WithModel(llm.TierAdvanced, cfg.EssayModel)
	}
	client, err := llm.NewClient(ctx, llmCfg, cfg.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	svc := interpret.NewService(interpret.NewGemini(client), logger)
	return svc, func() { _ = client.Close() }, nil
}

// newSearcher returns the links file when one is configured, otherwise the
// search results page scraper.
func newSearcher(cfg config.Config) search.Searcher {
	if cfg.LinksFile != "" {
		return &search.LinksFile{Path: cfg.LinksFile}
	}
	opts := fetch.DefaultOptions()
	opts.Timeout = cfg.PageLoadTimeout.Std()
	return &search.ResultsPage{URLTemplate: cfg.SearchURL, Source: search.HTTPSource(opts)}
}

func newDiscoverer(cfg config.Config, judge discovery.Judge, ldg discovery.Ledger, p *types.Profile) *discovery.Discoverer {
	fetcher := fetch.NewPageFetcher(cfg.TextPrefixSize, cfg.PageLoadTimeout.Std(), logger)
	return discovery.New(newSearcher(cfg), fetcher, judge, ldg, discovery.Options{
		GradeLevel:     p.GradeLevel,
		ReviewStatus:   cfg.ReviewStatus,
		ReviewInterval: cfg.ReviewInterval.Std(),
	}, logger)
}

// sessionOpener starts a fresh Chrome session per attempt.
func sessionOpener(cfg config.Config) orchestrator.OpenSessionFunc {
	factory := browser.Factory{
		Options: browser.Options{
			Headless:        cfg.Headless,
			PageLoadTimeout: cfg.PageLoadTimeout.Std(),
		},
		Logger: logger,
	}
	return func(ctx context.Context) (orchestrator.Session, error) {
		s, err := factory.Open(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func navigatorOptions(cfg config.Config) navigator.Options {
	return navigator.Options{
		MaxSteps:        cfg.MaxSteps,
		PageLoadTimeout: cfg.PageLoadTimeout.Std(),
		FormWaitTimeout: cfg.FormWaitTimeout.Std(),
		PollInterval:    cfg.PollInterval.Std(),
		ApplyKeywords:   navigator.DefaultApplyKeywords,
	}
}

// loadProfile reads the saved profile, collecting it interactively when none
// exists yet, and attaches transcript and essays.
func loadProfile(ctx context.Context, cfg config.Config, prompter human.Prompter) (*types.Profile, error) {
	var p *types.Profile
	if profile.Exists(cfg.Profile) {
		loaded, err := profile.Load(cfg.Profile)
		if err != nil {
			return nil, err
		}
		p = loaded
	} else {
		fmt.Printf("No profile at %s, let's create one.\n", cfg.Profile)
		collected, err := profile.Collect(ctx, prompter, nil)
		if err != nil {
			return nil, err
		}
		if err := profile.Save(cfg.Profile, collected); err != nil {
			return nil, err
		}
		fmt.Printf("Saved profile to %s\n", cfg.Profile)
		p = collected
	}
	if err := profile.LoadMaterials(p, cfg.Transcript, cfg.Essays); err != nil {
		return nil, err
	}
	return p, nil
}

func consolePrompter() *human.Console {
	return human.NewConsole(os.Stdin, os.Stdout)
}

// interruptContext is cancelled by the first Ctrl-C. The default handler is
// restored afterwards so a second Ctrl-C exits immediately.
func interruptContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}
