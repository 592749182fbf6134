package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/scholarship-agent/internal/ledger"
	"github.com/jonathan/scholarship-agent/internal/profile"
	"github.com/jonathan/scholarship-agent/internal/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestProfileImportAndShow(t *testing.T) {
	dir := t.TempDir()
	legacy := filepath.Join(dir, "user_info.txt")
	writeFile(t, legacy, "name: Alex Lee\ngrade level: 12\nschool: Lincoln HS\nfavorite color: blue\n")
	profilePath := filepath.Join(dir, "profile.json")

	out, err := execute(t, "profile", "import", legacy, "--profile", profilePath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported")
	assert.NotContains(t, out, "Missing required")

	p, err := profile.Load(profilePath)
	require.NoError(t, err)
	assert.Equal(t, "Alex Lee", p.Name)
	assert.Equal(t, "12", p.GradeLevel)

	essay := filepath.Join(dir, "essay.txt")
	writeFile(t, essay, "I build robots.")
	out, err = execute(t, "profile", "show", "--profile", profilePath, "--essay", essay)
	require.NoError(t, err)
	assert.Contains(t, out, "APPLICANT PROFILE")
	assert.Contains(t, out, "Alex Lee")
	assert.Contains(t, out, "Essays:       1")
}

func TestProfileImport_ReportsMissing(t *testing.T) {
	dir := t.TempDir()
	legacy := filepath.Join(dir, "user_info.txt")
	writeFile(t, legacy, "name: Alex Lee\n")

	out, err := execute(t, "profile", "import", legacy, "--profile", filepath.Join(dir, "p.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "Missing required attributes")
	assert.Contains(t, out, types.AttrSchool)
}

func TestProfileSet(t *testing.T) {
	profilePath := filepath.Join(t.TempDir(), "p.json")

	_, err := execute(t, "profile", "set", "gpa", "  3.9 ", "--profile", profilePath)
	require.NoError(t, err)
	_, err = execute(t, "profile", "set", "school", "Lincoln HS", "--profile", profilePath)
	require.NoError(t, err)

	p, err := profile.Load(profilePath)
	require.NoError(t, err)
	assert.Equal(t, "3.9", p.GPAWeighted)
	assert.Equal(t, "Lincoln HS", p.School)

	_, err = execute(t, "profile", "set", "shoe_size", "9", "--profile", profilePath)
	assert.ErrorContains(t, err, "unknown profile attribute")
}

func TestLedgerAddAndList(t *testing.T) {
	ledgerPath := filepath.Join(t.TempDir(), "links.txt")

	out, err := execute(t, "ledger", "add", "https://award.example/apply/", "Completed", "submitted", "by", "hand", "--ledger", ledgerPath)
	require.NoError(t, err)
	assert.Contains(t, out, "as completed")

	out, err = execute(t, "ledger", "list", "--ledger", ledgerPath)
	require.NoError(t, err)
	assert.Contains(t, out, "LEDGER")
	assert.Contains(t, out, "completed  https://award.example/apply")

	_, err = execute(t, "ledger", "add", "https://award.example/apply", "open", "--ledger", ledgerPath)
	assert.ErrorIs(t, err, ledger.ErrAlreadyTerminal)

	_, err = execute(t, "ledger", "add", "https://award.example", "maybe", "--ledger", ledgerPath)
	assert.ErrorContains(t, err, "unknown link status")
}

func TestLedgerAdd_SQLiteBackend(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	_, err := execute(t, "ledger", "add", "https://award.example", "not found", "--ledger-backend", "sqlite", "--ledger", dbPath)
	require.NoError(t, err)

	out, err := execute(t, "ledger", "list", "--ledger-backend", "sqlite", "--ledger", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "not_found  https://award.example")
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	fromConfig := filepath.Join(dir, "from_config.txt")
	fromFlag := filepath.Join(dir, "from_flag.txt")
	cfgPath := filepath.Join(dir, "agent.yaml")
	writeFile(t, cfgPath, "ledger_path: "+fromConfig+"\nmax_steps: 3\n")

	_, err := execute(t, "ledger", "add", "https://a.example", "ad", "--config", cfgPath)
	require.NoError(t, err)
	assert.FileExists(t, fromConfig)

	_, err = execute(t, "ledger", "add", "https://b.example", "ad", "--config", cfgPath, "--ledger", fromFlag)
	require.NoError(t, err)
	assert.FileExists(t, fromFlag)

	data, err := os.ReadFile(fromConfig)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "b.example")
}

func TestConfigFile_InvalidBackend(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "agent.json")
	writeFile(t, cfgPath, `{"ledger_backend": "redis"}`)

	_, err := execute(t, "ledger", "list", "--config", cfgPath)
	assert.ErrorContains(t, err, "unknown 'ledger_backend'")
}

func TestRunCommand_MissingAPIKey(t *testing.T) {
	dir := t.TempDir()
	profilePath := filepath.Join(dir, "p.json")
	require.NoError(t, profile.Save(profilePath, &types.Profile{Name: "Alex Lee", GradeLevel: "12", School: "Lincoln HS"}))
	t.Setenv("GEMINI_API_KEY", "")

	_, err := execute(t, "run", "--test", "--profile", profilePath, "--ledger", filepath.Join(dir, "links.txt"))
	assert.ErrorIs(t, err, errNoAPIKey)
}

func TestFillCommand_RequiresURL(t *testing.T) {
	_, err := execute(t, "fill", "--profile", filepath.Join(t.TempDir(), "p.json"))
	assert.ErrorContains(t, err, `required flag(s) "url" not set`)
}
