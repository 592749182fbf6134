package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/scholarship-agent/internal/config"
)

// globals holds the persistent flags shared by every command.
var globals struct {
	configPath    string
	verbose       bool
	profile       string
	transcript    string
	essays        []string
	ledgerBackend string
	ledgerPath    string
	databaseURL   string
	apiKey        string
	model         string
	essayModel    string
}

func init() {
	f := rootCmd.PersistentFlags()
	// Config file flag (processed first)
	f.StringVar(&globals.configPath, "config", "", "Path to config file, .json or .yaml (values can be overridden by other flags)")
	f.BoolVarP(&globals.verbose, "verbose", "v", false, "Print detailed debug information")

	f.StringVarP(&globals.profile, "profile", "p", "", "Path to the saved profile (default user_info.json)")
	f.StringVar(&globals.transcript, "transcript", "", "Path to a transcript text file")
	f.StringSliceVar(&globals.essays, "essay", nil, "Path to an essay text file (repeatable, order is kept)")

	f.StringVar(&globals.ledgerBackend, "ledger-backend", "", "Ledger backend: file, sqlite or postgres (default file)")
	f.StringVar(&globals.ledgerPath, "ledger", "", "Ledger file or sqlite database path (default links.txt)")
	// Database URL for the postgres ledger
	f.StringVar(&globals.databaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	f.StringVar(&globals.apiKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	f.StringVar(&globals.model, "model", "", "Override the model used for page analysis")
	f.StringVar(&globals.essayModel, "essay-model", "", "Override the model used for essay writing")
}

// resolveConfig loads the config file, applies explicitly set flags and
// environment fallbacks, then fills defaults. Command-specific overrides are
// applied by the caller through apply.
func resolveConfig(cmd *cobra.Command, apply func(cfg *config.Config)) (config.Config, error) {
	// Step 1: Load config file if provided
	var cfg config.Config
	if globals.configPath != "" {
		loaded, err := config.LoadConfig(globals.configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
		logger.Debug("loaded config")
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Verbose = globals.verbose
	}
	if flags.Changed("profile") {
		cfg.Profile = globals.profile
	}
	if flags.Changed("transcript") {
		cfg.Transcript = globals.transcript
	}
	if flags.Changed("essay") {
		cfg.Essays = globals.essays
	}
	if flags.Changed("ledger-backend") {
		cfg.LedgerBackend = globals.ledgerBackend
	}
	if flags.Changed("ledger") {
		cfg.LedgerPath = globals.ledgerPath
	}
	if flags.Changed("db-url") {
		cfg.DatabaseURL = globals.databaseURL
	}
	if flags.Changed("api-key") {
		cfg.APIKey = globals.apiKey
	}
	if flags.Changed("model") {
		cfg.Model = globals.model
	}
	if flags.Changed("essay-model") {
		cfg.EssayModel = globals.essayModel
	}
	if apply != nil {
		apply(&cfg)
	}

	// Step 3: Environment fallbacks
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	// Step 4: Apply defaults for unset values
	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
