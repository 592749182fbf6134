package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/scholarship-agent/internal/observability"
	"github.com/jonathan/scholarship-agent/internal/types"
)

var ledgerCommand = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect or edit the processed-link ledger",
}

var ledgerListCommand = &cobra.Command{
	Use:   "list",
	Short: "Print the effective status of every recorded link",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := resolveConfig(cmd, nil)
		if err != nil {
			return err
		}
		ctx := context.Background()
		ldg, err := openLedger(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = ldg.Close() }()

		entries, err := ldg.Entries(ctx)
		if err != nil {
			return err
		}
		observability.NewPrinter(cmd.OutOrStdout()).PrintLedger(entries)
		return nil
	},
}

var ledgerAddCommand = &cobra.Command{
	Use:   "add <url> <status> [details...]",
	Short: "Record a status for a link by hand (e.g. a form you submitted yourself)",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := types.ParseLinkStatus(args[1])
		if err != nil {
			return err
		}
		if status == types.StatusNone {
			return fmt.Errorf("a status is required")
		}
		cfg, err := resolveConfig(cmd, nil)
		if err != nil {
			return err
		}
		ctx := context.Background()
		ldg, err := openLedger(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = ldg.Close() }()

		if err := ldg.Record(ctx, args[0], status, strings.Join(args[2:], " ")); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s as %s\n", args[0], status)
		return nil
	},
}

func init() {
	ledgerCommand.AddCommand(ledgerListCommand, ledgerAddCommand)
	rootCmd.AddCommand(ledgerCommand)
}
