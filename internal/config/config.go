// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Ledger backends.
const (
	LedgerFile     = "file"
	LedgerSQLite   = "sqlite"
	LedgerPostgres = "postgres"
)

// Analysis modes for describing a discovered form.
const (
	AnalysisDOM    = "dom"
	AnalysisVision = "vision"
)

// Config represents the CLI configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	Profile        string   `json:"profile,omitempty" yaml:"profile,omitempty"`                 // Path to persisted profile JSON
	Transcript     string   `json:"transcript,omitempty" yaml:"transcript,omitempty"`           // Path to transcript text file
	Essays         []string `json:"essays,omitempty" yaml:"essays,omitempty"`                   // Paths to essay files, in order
	LinksFile      string   `json:"links_file,omitempty" yaml:"links_file,omitempty"`           // "url | status" list used instead of search
	LedgerBackend  string   `json:"ledger_backend,omitempty" yaml:"ledger_backend,omitempty"`   // file, sqlite or postgres
	LedgerPath     string   `json:"ledger_path,omitempty" yaml:"ledger_path,omitempty"`         // File or sqlite path
	DatabaseURL    string   `json:"database_url,omitempty" yaml:"database_url,omitempty"`       // PostgreSQL connection URL
	SearchURL      string   `json:"search_url,omitempty" yaml:"search_url,omitempty"`           // Results page template with %s for the query
	PreLoginURL    string   `json:"pre_login_url,omitempty" yaml:"pre_login_url,omitempty"`     // Opened once before links so the user can sign in
	AnalysisMode   string   `json:"analysis_mode,omitempty" yaml:"analysis_mode,omitempty"`     // dom or vision
	SubmitKeywords []string `json:"submit_keywords,omitempty" yaml:"submit_keywords,omitempty"` // Submit affordance keywords in priority order

	// Limits
	MaxSteps       int `json:"max_steps,omitempty" yaml:"max_steps,omitempty"`             // Affordance follows per link
	SearchLimit    int `json:"search_limit,omitempty" yaml:"search_limit,omitempty"`       // Candidate links per run
	TextPrefixSize int `json:"text_prefix_size,omitempty" yaml:"text_prefix_size,omitempty"` // Characters sent for applicability

	// Timing
	PageLoadTimeout Duration `json:"page_load_timeout,omitempty" yaml:"page_load_timeout,omitempty"`
	FormWaitTimeout Duration `json:"form_wait_timeout,omitempty" yaml:"form_wait_timeout,omitempty"`
	PollInterval    Duration `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
	ReviewInterval  Duration `json:"review_interval,omitempty" yaml:"review_interval,omitempty"`

	// Behavior
	APIKey       string `json:"api_key,omitempty" yaml:"api_key,omitempty"`             // Gemini API key
	Model        string `json:"model,omitempty" yaml:"model,omitempty"`                 // Override for the standard tier
	EssayModel   string `json:"essay_model,omitempty" yaml:"essay_model,omitempty"`     // Override for the advanced tier
	Headless     bool   `json:"headless,omitempty" yaml:"headless,omitempty"`           // Run Chrome headless (login/CAPTCHA need a visible window)
	Test         bool   `json:"test,omitempty" yaml:"test,omitempty"`                   // Dry run: never click submit
	ReviewStatus bool   `json:"review_status,omitempty" yaml:"review_status,omitempty"` // Classify open/closed/ad during discovery
	Verbose      bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`             // Print detailed debug information
}

// Duration is a time.Duration that reads "30s" style strings from config files.
type Duration time.Duration

// UnmarshalJSON accepts a Go duration string or integer nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(n)
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalYAML accepts a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Defaults returns the values used for anything a config file or flag leaves unset.
func Defaults() Config {
	return Config{
		Profile:         "user_info.json",
		LedgerBackend:   LedgerFile,
		LedgerPath:      "links.txt",
		SearchURL:       "https://www.google.com/search?q=%s",
		AnalysisMode:    AnalysisDOM,
		SubmitKeywords:  []string{"submit", "next", "continue", "apply", "finish", "save"},
		MaxSteps:        5,
		SearchLimit:     5,
		TextPrefixSize:  5000,
		PageLoadTimeout: Duration(30 * time.Second),
		FormWaitTimeout: Duration(30 * time.Second),
		PollInterval:    Duration(500 * time.Millisecond),
		ReviewInterval:  Duration(2500 * time.Millisecond),
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	switch c.LedgerBackend {
	case "", LedgerFile, LedgerSQLite, LedgerPostgres:
	default:
		return fmt.Errorf("config error: unknown 'ledger_backend' %q (want file, sqlite or postgres)", c.LedgerBackend)
	}
	switch c.AnalysisMode {
	case "", AnalysisDOM, AnalysisVision:
	default:
		return fmt.Errorf("config error: unknown 'analysis_mode' %q (want dom or vision)", c.AnalysisMode)
	}

	// Validate numeric ranges
	if c.MaxSteps < 0 {
		return fmt.Errorf("config error: 'max_steps' must be non-negative")
	}
	if c.SearchLimit < 0 {
		return fmt.Errorf("config error: 'search_limit' must be non-negative")
	}
	if c.TextPrefixSize < 0 {
		return fmt.Errorf("config error: 'text_prefix_size' must be non-negative")
	}
	for name, d := range map[string]Duration{
		"page_load_timeout": c.PageLoadTimeout,
		"form_wait_timeout": c.FormWaitTimeout,
		"poll_interval":     c.PollInterval,
		"review_interval":   c.ReviewInterval,
	} {
		if d < 0 {
			return fmt.Errorf("config error: '%s' must be non-negative", name)
		}
	}

	if c.SearchURL != "" && !strings.Contains(c.SearchURL, "%s") {
		return fmt.Errorf("config error: 'search_url' must contain %%s for the query")
	}

	// Validate file paths exist (if specified)
	if c.LinksFile != "" {
		if _, err := os.Stat(c.LinksFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: links file not found: %s", c.LinksFile)
		}
	}
	if c.Transcript != "" {
		if _, err := os.Stat(c.Transcript); os.IsNotExist(err) {
			return fmt.Errorf("config error: transcript file not found: %s", c.Transcript)
		}
	}
	for _, essay := range c.Essays {
		if _, err := os.Stat(essay); os.IsNotExist(err) {
			return fmt.Errorf("config error: essay file not found: %s", essay)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Profile == "" {
		result.Profile = defaults.Profile
	}
	if result.Transcript == "" {
		result.Transcript = defaults.Transcript
	}
	if result.LinksFile == "" {
		result.LinksFile = defaults.LinksFile
	}
	if result.LedgerBackend == "" {
		result.LedgerBackend = defaults.LedgerBackend
	}
	if result.LedgerPath == "" {
		result.LedgerPath = defaults.LedgerPath
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.SearchURL == "" {
		result.SearchURL = defaults.SearchURL
	}
	if result.PreLoginURL == "" {
		result.PreLoginURL = defaults.PreLoginURL
	}
	if result.AnalysisMode == "" {
		result.AnalysisMode = defaults.AnalysisMode
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.EssayModel == "" {
		result.EssayModel = defaults.EssayModel
	}

	// Slices
	if len(result.Essays) == 0 {
		result.Essays = defaults.Essays
	}
	if len(result.SubmitKeywords) == 0 {
		result.SubmitKeywords = defaults.SubmitKeywords
	}

	// Int fields: use default if zero
	if result.MaxSteps == 0 {
		result.MaxSteps = defaults.MaxSteps
	}
	if result.SearchLimit == 0 {
		result.SearchLimit = defaults.SearchLimit
	}
	if result.TextPrefixSize == 0 {
		result.TextPrefixSize = defaults.TextPrefixSize
	}

	// Durations
	if result.PageLoadTimeout == 0 {
		result.PageLoadTimeout = defaults.PageLoadTimeout
	}
	if result.FormWaitTimeout == 0 {
		result.FormWaitTimeout = defaults.FormWaitTimeout
	}
	if result.PollInterval == 0 {
		result.PollInterval = defaults.PollInterval
	}
	if result.ReviewInterval == 0 {
		result.ReviewInterval = defaults.ReviewInterval
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
