package interpret

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/scholarship-agent/internal/llm"
	"github.com/jonathan/scholarship-agent/internal/prompts"
	"github.com/jonathan/scholarship-agent/internal/schemas"
	"github.com/jonathan/scholarship-agent/internal/types"
)

// Service asks the page interpreter the questions the rest of the agent needs.
type Service struct {
	in     Interpreter
	logger *zap.Logger
}

// NewService creates a Service. A nil logger disables logging.
func NewService(in Interpreter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{in: in, logger: logger.Named("interpret")}
}

// PageAnalysis is the structured description of a screenshot.
type PageAnalysis struct {
	Fields  []types.PageFieldDescriptor `json:"fields"`
	Buttons []Button                    `json:"buttons"`
}

// Button is a clickable control reported by page analysis.
type Button struct {
	Label    string `json:"label"`
	Selector string `json:"selector"`
}

// Descriptors returns fields followed by buttons as submit descriptors.
// Descriptors with an empty selector are dropped.
func (a *PageAnalysis) Descriptors() []types.PageFieldDescriptor {
	out := make([]types.PageFieldDescriptor, 0, len(a.Fields)+len(a.Buttons))
	out = append(out, a.Fields...)
	for _, b := range a.Buttons {
		out = append(out, types.PageFieldDescriptor{Label: b.Label, Kind: types.KindSubmit, Selector: b.Selector})
	}
	return types.ActionableFields(out)
}

// ParseStructured strips code-fence wrapping and decodes the answer into v.
// On failure the returned *ParseError carries the raw answer.
func ParseStructured(raw string, v any) error {
	cleaned := llm.CleanJSONBlock(raw)
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return &ParseError{Raw: raw, Cause: err}
	}
	return nil
}

// AnalyzePage asks the interpreter to describe the form in a screenshot.
// A malformed answer is a *ParseError; callers abandon structured filling for the page.
func (s *Service) AnalyzePage(ctx context.Context, screenshot []byte) (*PageAnalysis, error) {
	instruction := llm.BuildExtractionPrompt(llm.PageAnalysisSchema(), "")
	raw, err := s.in.Interpret(ctx, instruction, ImageArtifact(screenshot))
	if err != nil {
		return nil, err
	}

	cleaned := llm.CleanJSONBlock(raw)
	if err := schemas.ValidatePageAnalysis(cleaned); err != nil {
		s.logger.Warn("page analysis rejected", zap.Error(err), zap.Int("raw_len", len(raw)))
		return nil, &ParseError{Raw: raw, Cause: err}
	}

	var wire struct {
		Fields []struct {
			Label       string   `json:"label"`
			Type        string   `json:"type"`
			Selector    string   `json:"selector"`
			Prompt      string   `json:"prompt"`
			Name        string   `json:"name"`
			ID          string   `json:"id"`
			Placeholder string   `json:"placeholder"`
			Options     []string `json:"options"`
		} `json:"fields"`
		Buttons []Button `json:"buttons"`
	}
	if err := ParseStructured(cleaned, &wire); err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Raw = raw
		}
		return nil, err
	}

	analysis := &PageAnalysis{Buttons: wire.Buttons}
	for _, f := range wire.Fields {
		analysis.Fields = append(analysis.Fields, types.PageFieldDescriptor{
			Label:       f.Label,
			Kind:        types.ParseFieldKind(f.Type),
			Selector:    f.Selector,
			Prompt:      f.Prompt,
			Name:        f.Name,
			ID:          f.ID,
			Placeholder: f.Placeholder,
			Options:     f.Options,
		})
	}
	s.logger.Debug("page analyzed", zap.Int("fields", len(analysis.Fields)), zap.Int("buttons", len(analysis.Buttons)))
	return analysis, nil
}

// IsApplicable asks whether the page text describes a scholarship open to the
// given grade level. Errors are returned to the caller, which owns the default policy.
func (s *Service) IsApplicable(ctx context.Context, pageText, gradeLevel string) (bool, error) {
	instruction := prompts.Format(prompts.MustGet("interpret.json", "applicability"), map[string]string{
		"GradeLevel": gradeLevel,
	})
	raw, err := s.in.Interpret(ctx, instruction, TextArtifact(pageText))
	if err != nil {
		return false, err
	}
	return parseYesNo(raw), nil
}

// ClassifyStatus asks whether the page is open, closed, not found or an ad.
// The second return value is the model's rationale, or the raw answer when no
// rationale line was given.
func (s *Service) ClassifyStatus(ctx context.Context, pageText string) (types.LinkStatus, string, error) {
	raw, err := s.in.Interpret(ctx, prompts.MustGet("interpret.json", "classify-status"), TextArtifact(pageText))
	if err != nil {
		return types.StatusNone, "", err
	}
	status, rationale := parseStatus(raw)
	return status, rationale, nil
}

// WriteEssay synthesizes an answer to an essay prompt from the applicant's materials.
func (s *Service) WriteEssay(ctx context.Context, prompt, essays string) (string, error) {
	instruction := prompts.Format(prompts.MustGet("interpret.json", "write-essay"), map[string]string{
		"Prompt": prompt,
		"Essays": essays,
	})
	s.logger.Info("synthesizing essay", zap.String("prompt", truncate(prompt, 120)))
	text, err := s.in.Interpret(ctx, instruction, Artifact{Kind: ArtifactNone})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// parseYesNo reads a yes/no answer. Anything without a leading or standalone
// "yes" is treated as no.
func parseYesNo(raw string) bool {
	answer := strings.ToLower(strings.TrimSpace(llm.CleanJSONBlock(raw)))
	answer = strings.Trim(answer, " .!\"'`*")
	if strings.HasPrefix(answer, "yes") {
		return true
	}
	for _, word := range strings.FieldsFunc(answer, func(r rune) bool {
		return r == ' ' || r == '\n' || r == ',' || r == '.' || r == ':'
	}) {
		if word == "yes" {
			return true
		}
		if word == "no" {
			return false
		}
	}
	return false
}

// parseStatus maps a classification answer onto a link status. Checks run in
// the order open, closed, not found, ad and default to not found.
func parseStatus(raw string) (types.LinkStatus, string) {
	text := strings.TrimSpace(raw)
	first, rest, _ := strings.Cut(text, "\n")
	label := strings.ToLower(strings.Trim(strings.TrimSpace(first), ".*`\"'"))
	rationale := strings.TrimSpace(rest)
	if rationale == "" {
		rationale = text
	}

	switch {
	case strings.Contains(label, "open"):
		return types.StatusOpen, rationale
	case strings.Contains(label, "closed"):
		return types.StatusClosed, rationale
	case strings.Contains(label, "not found"), strings.Contains(label, "not_found"):
		return types.StatusNotFound, rationale
	case label == "ad" || strings.HasPrefix(label, "ad ") || strings.HasPrefix(label, "ad:"):
		return types.StatusAd, rationale
	}
	return types.StatusNotFound, rationale
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
