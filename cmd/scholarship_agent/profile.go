package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/scholarship-agent/internal/observability"
	"github.com/jonathan/scholarship-agent/internal/profile"
	"github.com/jonathan/scholarship-agent/internal/types"
)

var profileCommand = &cobra.Command{
	Use:   "profile",
	Short: "Create, inspect and edit the applicant profile",
}

var profileInitCommand = &cobra.Command{
	Use:   "init",
	Short: "Collect the profile interactively (existing values are kept on empty answers)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := resolveConfig(cmd, nil)
		if err != nil {
			return err
		}
		var existing *types.Profile
		if profile.Exists(cfg.Profile) {
			if existing, err = profile.Load(cfg.Profile); err != nil {
				return err
			}
		}
		p, err := profile.Collect(context.Background(), consolePrompter(), existing)
		if err != nil {
			return err
		}
		if err := profile.Save(cfg.Profile, p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved profile to %s\n", cfg.Profile)
		return nil
	},
}

var profileShowCommand = &cobra.Command{
	Use:   "show",
	Short: "Print the saved profile with its transcript and essay counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := resolveConfig(cmd, nil)
		if err != nil {
			return err
		}
		p, err := profile.Load(cfg.Profile)
		if err != nil {
			return err
		}
		if err := profile.LoadMaterials(p, cfg.Transcript, cfg.Essays); err != nil {
			return err
		}
		observability.NewPrinter(cmd.OutOrStdout()).PrintProfile(p)
		return nil
	},
}

var profileImportCommand = &cobra.Command{
	Use:   "import <legacy-file>",
	Short: `Import a "key: value" profile file and save it as JSON`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd, nil)
		if err != nil {
			return err
		}
		p, err := profile.ImportLegacy(args[0])
		if err != nil {
			return err
		}
		if err := profile.Save(cfg.Profile, p); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Imported %s into %s\n", args[0], cfg.Profile)
		if missing := p.MissingRequired(); len(missing) > 0 {
			fmt.Fprintf(out, "Missing required attributes: %v (run 'profile init' to fill them)\n", missing)
		}
		return nil
	},
}

var profileSetCommand = &cobra.Command{
	Use:   "set <attribute> <value>",
	Short: "Set one profile attribute",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd, nil)
		if err != nil {
			return err
		}
		p := &types.Profile{}
		if profile.Exists(cfg.Profile) {
			if p, err = profile.Load(cfg.Profile); err != nil {
				return err
			}
		}
		if err := p.Set(args[0], profile.CleanText(args[1])); err != nil {
			return err
		}
		return profile.Save(cfg.Profile, p)
	},
}

func init() {
	profileCommand.AddCommand(profileInitCommand, profileShowCommand, profileImportCommand, profileSetCommand)
	rootCmd.AddCommand(profileCommand)
}
