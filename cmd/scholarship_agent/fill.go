package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/scholarship-agent/internal/config"
	"github.com/jonathan/scholarship-agent/internal/orchestrator"
	"github.com/jonathan/scholarship-agent/internal/types"
)

var fillCommand = &cobra.Command{
	Use:   "fill",
	Short: "Fill the application form reachable from one URL",
	Long: `Skips discovery and runs form discovery, field mapping and submission for the given URLs.

Without an API key the DOM analysis still works; essay fields are left empty.`,
	RunE: runFillCmd,
}

var fillURLs []string

func init() {
	fillCommand.Flags().StringSliceVarP(&fillURLs, "url", "u", nil, "Scholarship page URL (repeatable)")
	addSessionFlags(fillCommand)
	_ = fillCommand.MarkFlagRequired("url")

	rootCmd.AddCommand(fillCommand)
}

func runFillCmd(cmd *cobra.Command, _ []string) error {
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

	ldg, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = ldg.Close() }()

	deps := orchestrator.Deps{
		Ledger:      ldg,
		OpenSession: sessionOpener(cfg),
		Prompter:    prompter,
	}
	svc, closeLLM, err := newInterpreter(ctx, cfg)
	switch {
	case err == nil:
		defer closeLLM()
		deps.Essays = svc
		deps.Analyzer = svc
	case errors.Is(err, errNoAPIKey) && cfg.AnalysisMode == config.AnalysisDOM:
		logger.Warn("no API key, essay fields will be skipped")
	default:
		return err
	}

	links := make([]types.CandidateLink, len(fillURLs))
	for i, u := range fillURLs {
		links[i] = types.CandidateLink{URL: u}
	}

	out := cmd.OutOrStdout()
	summary, err := newOrchestrator(cfg, deps, out).RunLinks(ctx, p, links)
	if summary != nil {
		printSummary(out, summary, cfg.Test)
	}
	if err != nil {
		return err
	}
	logger.Debug("fill complete", zap.Int("links", len(summary.Links)))
	return nil
}
