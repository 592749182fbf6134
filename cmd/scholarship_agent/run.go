package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/scholarship-agent/internal/config"
	"github.com/jonathan/scholarship-agent/internal/discovery"
	"github.com/jonathan/scholarship-agent/internal/observability"
	"github.com/jonathan/scholarship-agent/internal/orchestrator"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Discover scholarships and fill their application forms",
	Long: `Runs the whole agent: loads (or collects) the profile, searches for scholarships that fit it, walks each site
to its application form, fills the fields it can and submits.

Use --test for a dry run: forms are filled but never submitted and nothing is written to the ledger.`,
	RunE: runAgentCmd,
}

var (
	runTest         bool
	runQuery        string
	runLimit        int
	runHeadless     bool
	runMaxSteps     int
	runAnalysis     string
	runPreLogin     string
	runLinksFile    string
	runSearchURL    string
	runReviewStatus bool
)

func init() {
	addSessionFlags(runCommand)
	runCommand.Flags().StringVarP(&runQuery, "query", "q", "", "Search query (default built from the profile)")
	addDiscoveryFlags(runCommand)

	rootCmd.AddCommand(runCommand)
}

// addSessionFlags registers the flags that control form filling.
func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&runTest, "test", false, "Dry run: fill forms but never submit or write the ledger")
	cmd.Flags().BoolVar(&runHeadless, "headless", false, "Run Chrome without a window (logins and CAPTCHAs need a window)")
	cmd.Flags().IntVar(&runMaxSteps, "max-steps", 0, "Navigation steps allowed per link before giving up")
	cmd.Flags().StringVar(&runAnalysis, "analysis", "", "Form analysis mode: dom or vision")
	cmd.Flags().StringVar(&runPreLogin, "pre-login", "", "URL to open first in every session so you can sign in")
}

// addDiscoveryFlags registers the flags that control candidate discovery.
func addDiscoveryFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&runLimit, "limit", 0, "Maximum number of search results to consider")
	cmd.Flags().StringVar(&runLinksFile, "links-file", "", "Read candidate links from a file instead of searching")
	cmd.Flags().StringVar(&runSearchURL, "search-url", "", "Search results URL template with a %s placeholder for the query")
	cmd.Flags().BoolVar(&runReviewStatus, "review-status", false, "Also classify each page as open, closed, not found or ad")
}

// applyRunFlags copies the explicitly set session and discovery flags onto
// cfg. Flags a command does not register are never Changed.
func applyRunFlags(cmd *cobra.Command) func(cfg *config.Config) {
	return func(cfg *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("test") {
			cfg.Test = runTest
		}
		if flags.Changed("limit") {
			cfg.SearchLimit = runLimit
		}
		if flags.Changed("headless") {
			cfg.Headless = runHeadless
		}
		if flags.Changed("max-steps") {
			cfg.MaxSteps = runMaxSteps
		}
		if flags.Changed("analysis") {
			cfg.AnalysisMode = runAnalysis
		}
		if flags.Changed("pre-login") {
			cfg.PreLoginURL = runPreLogin
		}
		if flags.Changed("links-file") {
			cfg.LinksFile = runLinksFile
		}
		if flags.Changed("search-url") {
			cfg.SearchURL = runSearchURL
		}
		if flags.Changed("review-status") {
			cfg.ReviewStatus = runReviewStatus
		}
	}
}

func runAgentCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd, applyRunFlags(cmd))
	if err != nil {
		return err
	}
	ctx, stop := interruptContext()
	defer stop()

	prompter := consolePrompter()
	p, err := loadProfile(ctx, cfg, prompter)
	if err != nil {
		return err
	}

	svc, closeLLM, err := newInterpreter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLLM()

	ldg, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = ldg.Close() }()

	out := cmd.OutOrStdout()
	o := newOrchestrator(cfg, orchestrator.Deps{
		Discoverer:  newDiscoverer(cfg, svc, ldg, p),
		Ledger:      ldg,
		OpenSession: sessionOpener(cfg),
		Prompter:    prompter,
		Essays:      svc,
		Analyzer:    svc,
	}, out)

	if cfg.Verbose {
		observability.NewPrinter(out).PrintProfile(p)
	}

	query := runQuery
	if query == "" {
		query = discovery.BuildQuery(p)
	}

	start := time.Now()
	summary, err := o.Run(ctx, p, query)
	if errors.Is(err, orchestrator.ErrNoCandidates) {
		return nil
	}
	if summary != nil {
		printSummary(out, summary, cfg.Test)
	}
	if err != nil {
		return err
	}
	logger.Info("run complete", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// newOrchestrator wires the options shared by run and fill.
func newOrchestrator(cfg config.Config, deps orchestrator.Deps, out io.Writer) *orchestrator.Orchestrator {
	if cfg.Verbose {
		deps.Printer = observability.NewPrinter(out)
	}
	opts := orchestrator.Options{
		Live:           !cfg.Test,
		SearchLimit:    cfg.SearchLimit,
		MaxSteps:       cfg.MaxSteps,
		SubmitKeywords: cfg.SubmitKeywords,
		AnalysisMode:   cfg.AnalysisMode,
		PreLoginURL:    cfg.PreLoginURL,
		Navigator:      navigatorOptions(cfg),
		Out:            out,
		OnProgress: func(event orchestrator.ProgressEvent) {
			logger.Debug(event.Message,
				zap.String("step", event.Step),
				zap.String("category", event.Category),
				zap.Any("content", event.Content))
		},
	}
	return orchestrator.New(deps, opts, logger)
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func printSummary(out io.Writer, summary *orchestrator.Summary, dryRun bool) {
	counts := make(map[orchestrator.Outcome]int)
	fmt.Fprintln(out)
	if dryRun {
		fmt.Fprintln(out, "Summary (test mode, nothing submitted):")
	} else {
		fmt.Fprintln(out, "Summary:")
	}
	for _, link := range summary.Links {
		counts[link.Outcome]++
		line := fmt.Sprintf("  %-10s %s", link.Outcome, link.URL)
		if link.Filled > 0 {
			line += fmt.Sprintf(" (%d filled)", link.Filled)
		}
		if link.Detail != "" {
			line += " - " + link.Detail
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "%d link(s): %d submitted, %d dry run, %d not found, %d skipped\n",
		len(summary.Links),
		counts[orchestrator.OutcomeSubmitted],
		counts[orchestrator.OutcomeDryRun],
		counts[orchestrator.OutcomeNotFound],
		counts[orchestrator.OutcomeSkipped])
	if summary.Aborted {
		fmt.Fprintln(out, "Run stopped early; remaining links were left untouched.")
	}
}
