package profile

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/scholarship-agent/internal/types"
)

// Load reads a persisted profile. Long-text fields are never stored, so the
// returned profile has no essays or transcript until LoadMaterials is called.
func Load(path string) (*types.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &StoreError{Message: fmt.Sprintf("profile not found: %s", path), Cause: err}
		}
		return nil, &StoreError{Message: "failed to read profile", Cause: err}
	}

	var p types.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &StoreError{Message: fmt.Sprintf("failed to parse profile %s", path), Cause: err}
	}
	return &p, nil
}

// Save writes the short attributes of p as JSON. Essays and transcript are omitted.
func Save(path string, p *types.Profile) error {
	if p == nil {
		return &StoreError{Message: "profile is nil"}
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return &StoreError{Message: "failed to marshal profile", Cause: err}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &StoreError{Message: "failed to create profile directory", Cause: err}
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return &StoreError{Message: "failed to write profile", Cause: err}
	}
	return nil
}

// Exists reports whether a profile file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ImportLegacy reads a "key: value" profile file. Blank lines, lines without a
// colon, long-text keys and unknown keys are ignored.
func ImportLegacy(path string) (*types.Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &StoreError{Message: "failed to open legacy profile", Cause: err}
	}
	defer f.Close()

	p := &types.Profile{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		key = strings.ReplaceAll(key, " ", "_")
		if key == "essays" || key == "transcript" {
			continue
		}
		// Unknown keys are tolerated so older files with extra lines still import.
		_ = p.Set(key, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, &StoreError{Message: "failed to read legacy profile", Cause: err}
	}
	return p, nil
}

// LoadMaterials reads the transcript and essays into p. Essays keep the order
// of essayPaths. Plain text, markdown and PDF files are accepted.
func LoadMaterials(p *types.Profile, transcriptPath string, essayPaths []string) error {
	if p == nil {
		return &StoreError{Message: "profile is nil"}
	}
	if transcriptPath != "" {
		text, err := readMaterial(transcriptPath)
		if err != nil {
			return err
		}
		p.Transcript = text
	}

	essays := make([]string, 0, len(essayPaths))
	for _, path := range essayPaths {
		text, err := readMaterial(path)
		if err != nil {
			return err
		}
		if text == "" {
			continue
		}
		essays = append(essays, text)
	}
	if len(essays) > 0 {
		p.Essays = essays
	}
	return nil
}

func readMaterial(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".md", ".markdown", "":
	case ".pdf":
		if _, err := os.Stat(path); err != nil {
			return "", &StoreError{Message: fmt.Sprintf("material not found: %s", path), Cause: err}
		}
		text, err := readPDF(path)
		if err != nil {
			return "", &StoreError{Message: fmt.Sprintf("failed to extract text from %s", path), Cause: err}
		}
		return CleanText(text), nil
	default:
		return "", &UnsupportedMaterialError{Path: path, Format: ext}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &StoreError{Message: fmt.Sprintf("material not found: %s", path), Cause: err}
		}
		return "", &StoreError{Message: "failed to read material", Cause: err}
	}
	return CleanText(string(content)), nil
}
