package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/scholarship-agent/internal/discovery"
	"github.com/jonathan/scholarship-agent/internal/observability"
)

var discoverCommand = &cobra.Command{
	Use:   "discover",
	Short: "List candidate scholarship links without filling anything",
	Long: `Searches for scholarships that fit the profile and prints the candidate links that pass the ledger and
applicability filters. With --review-status, pages that are closed, missing or ads are recorded in the ledger.`,
	RunE: runDiscoverCmd,
}

var discoverJSON bool

func init() {
	discoverCommand.Flags().StringVarP(&runQuery, "query", "q", "", "Search query (default built from the profile)")
	addDiscoveryFlags(discoverCommand)
	discoverCommand.Flags().BoolVar(&discoverJSON, "json", false, "Print candidates as JSON")

	rootCmd.AddCommand(discoverCommand)
}

func runDiscoverCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd, applyRunFlags(cmd))
	if err != nil {
		return err
	}
	ctx, stop := interruptContext()
	defer stop()

	p, err := loadProfile(ctx, cfg, consolePrompter())
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

	query := runQuery
	if query == "" {
		query = discovery.BuildQuery(p)
	}
	logger.Sugar().Infof("searching: %s", query)

	links, err := newDiscoverer(cfg, svc, ldg, p).Discover(ctx, query, cfg.SearchLimit)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if discoverJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(links)
	}
	observability.NewPrinter(out).PrintCandidates(links)
	return nil
}
