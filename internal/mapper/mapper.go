package mapper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/scholarship-agent/internal/types"
)

// Filler performs the page actions the mapper needs.
type Filler interface {
	SetText(ctx context.Context, selector, value string) error
	// SelectOption picks the option whose visible text equals optionText.
	SelectOption(ctx context.Context, selector, optionText string) error
	Click(ctx context.Context, selector string) error
}

// EssayWriter synthesizes an answer to an essay prompt.
type EssayWriter interface {
	WriteEssay(ctx context.Context, prompt, essays string) (string, error)
}

// Action is what happened to one descriptor.
type Action string

// Actions recorded in a Report.
const (
	ActionFilled     Action = "filled"
	ActionSkipped    Action = "skipped"
	ActionFailed     Action = "failed"
	ActionClicked    Action = "clicked"
	ActionWouldClick Action = "would_click"
)

// FieldResult records the decision and outcome for one descriptor.
type FieldResult struct {
	Label     string          `json:"label"`
	Selector  string          `json:"selector"`
	Kind      types.FieldKind `json:"kind"`
	Rule      string          `json:"rule,omitempty"`
	Attribute string          `json:"attribute,omitempty"`
	Action    Action          `json:"action"`
	Value     string          `json:"value,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Err       error           `json:"-"`
}

// Report is the ordered outcome of a fill.
type Report struct {
	Results []FieldResult `json:"results"`
}

// Filled counts fields that received a value.
func (r *Report) Filled() int {
	n := 0
	for _, res := range r.Results {
		if res.Action == ActionFilled {
			n++
		}
	}
	return n
}

// Failed returns the results recorded as failures.
func (r *Report) Failed() []FieldResult {
	var out []FieldResult
	for _, res := range r.Results {
		if res.Action == ActionFailed {
			out = append(out, res)
		}
	}
	return out
}

// Assignments maps selector to value for every filled field.
func (r *Report) Assignments() map[string]string {
	out := make(map[string]string)
	for _, res := range r.Results {
		if res.Action == ActionFilled {
			out[res.Selector] = res.Value
		}
	}
	return out
}

// Assignment is a planned action for one field. Essay assignments carry the
// question in Value until the essay is written.
type Assignment struct {
	Field     types.PageFieldDescriptor
	Rule      string
	Attribute string
	Essay     bool
	Value     string
}

// Mapper assigns profile values to form fields and fills them.
type Mapper struct {
	filler      Filler
	writer      EssayWriter
	textRules   []Rule
	selectRules []Rule
	logger      *zap.Logger
}

// New creates a Mapper with the default rules. writer may be nil, in which
// case essay fields are skipped. A nil logger disables logging.
func New(filler Filler, writer EssayWriter, logger *zap.Logger) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mapper{
		filler:      filler,
		writer:      writer,
		textRules:   DefaultTextRules,
		selectRules: DefaultSelectRules,
		logger:      logger.Named("mapper"),
	}
}

// Plan decides, without touching the page, what each descriptor receives.
// Descriptors without a selector and repeated selectors are dropped. The
// second return value holds the descriptors that were skipped with a reason.
func (m *Mapper) Plan(descriptors []types.PageFieldDescriptor, p *types.Profile) ([]Assignment, []FieldResult) {
	var plan []Assignment
	var skipped []FieldResult
	seen := make(map[string]bool)

	for _, d := range descriptors {
		if !d.Actionable() || d.Kind == types.KindSubmit {
			continue
		}
		if seen[d.Selector] {
			continue
		}
		seen[d.Selector] = true

		rules := m.textRules
		if d.Kind == types.KindSelect {
			rules = m.selectRules
		}
		rule, ok := Match(rules, d)
		if !ok {
			skipped = append(skipped, skip(d, Rule{}, "no matching rule"))
			continue
		}
		if rule.Essay {
			plan = append(plan, Assignment{Field: d, Rule: rule.Name, Essay: true, Value: essayPrompt(d)})
			continue
		}
		value := p.Get(rule.Attribute)
		if value == "" {
			skipped = append(skipped, skip(d, rule, fmt.Sprintf("profile has no %s", rule.Attribute)))
			continue
		}
		plan = append(plan, Assignment{Field: d, Rule: rule.Name, Attribute: rule.Attribute, Value: value})
	}
	return plan, skipped
}

func skip(d types.PageFieldDescriptor, rule Rule, reason string) FieldResult {
	return FieldResult{
		Label:     d.Label,
		Selector:  d.Selector,
		Kind:      d.Kind,
		Rule:      rule.Name,
		Attribute: rule.Attribute,
		Action:    ActionSkipped,
		Reason:    reason,
	}
}

// MapAndFill fills every field the rules assign a value to. A field that
// cannot be filled is recorded as failed and the rest continue; only context
// cancellation aborts the fill.
func (m *Mapper) MapAndFill(ctx context.Context, descriptors []types.PageFieldDescriptor, p *types.Profile) (*Report, error) {
	plan, skipped := m.Plan(descriptors, p)
	report := &Report{}
	for _, s := range skipped {
		m.logger.Debug("field skipped", zap.String("label", s.Label), zap.String("reason", s.Reason))
	}
	report.Results = append(report.Results, skipped...)

	for _, a := range plan {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Results = append(report.Results, m.fill(ctx, a, p))
		if err := ctx.Err(); err != nil {
			return report, err
		}
	}

	m.logger.Info("form filled",
		zap.Int("filled", report.Filled()),
		zap.Int("failed", len(report.Failed())),
		zap.Int("fields", len(descriptors)))
	return report, nil
}

func (m *Mapper) fill(ctx context.Context, a Assignment, p *types.Profile) FieldResult {
	res := FieldResult{
		Label:     a.Field.Label,
		Selector:  a.Field.Selector,
		Kind:      a.Field.Kind,
		Rule:      a.Rule,
		Attribute: a.Attribute,
		Value:     a.Value,
	}
	log := m.logger.With(zap.String("label", a.Field.Label), zap.String("selector", a.Field.Selector), zap.String("rule", a.Rule))

	switch {
	case a.Essay:
		if m.writer == nil {
			res.Action, res.Reason, res.Value = ActionSkipped, "no essay writer configured", ""
			log.Info("essay field skipped", zap.String("reason", res.Reason))
			return res
		}
		essay, err := m.writer.WriteEssay(ctx, a.Value, p.EssayMaterial())
		if err == nil && strings.TrimSpace(essay) == "" {
			err = errors.New("empty essay")
		}
		if err != nil {
			return m.failed(log, res, "essay synthesis failed", err)
		}
		res.Value = essay
		if err := m.filler.SetText(ctx, a.Field.Selector, essay); err != nil {
			return m.failed(log, res, "could not enter essay", err)
		}

	case a.Field.Kind == types.KindSelect:
		if len(a.Field.Options) > 0 && !hasOption(a.Field.Options, a.Value) {
			return m.failed(log, res, fmt.Sprintf("no option equals %q", a.Value), nil)
		}
		if err := m.filler.SelectOption(ctx, a.Field.Selector, a.Value); err != nil {
			return m.failed(log, res, "could not select option", err)
		}

	default:
		if err := m.filler.SetText(ctx, a.Field.Selector, a.Value); err != nil {
			return m.failed(log, res, "could not enter text", err)
		}
	}

	res.Action = ActionFilled
	log.Info("field filled", zap.String("attribute", a.Attribute), zap.Int("chars", len(res.Value)))
	return res
}

func (m *Mapper) failed(log *zap.Logger, res FieldResult, reason string, err error) FieldResult {
	res.Action = ActionFailed
	res.Reason = reason
	res.Err = err
	if err != nil {
		res.Reason = reason + ": " + err.Error()
	}
	log.Warn("field not filled", zap.String("reason", res.Reason))
	return res
}

func hasOption(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}

// Submit finds the submit affordance and clicks it when live is set. In
// dry-run mode it only logs what it would have clicked. The boolean result
// reports whether an affordance was found.
func (m *Mapper) Submit(ctx context.Context, descriptors []types.PageFieldDescriptor, keywords []string, live bool) (FieldResult, bool, error) {
	d, ok := ChooseSubmit(descriptors, keywords)
	if !ok {
		m.logger.Info("no submit affordance found")
		return FieldResult{Action: ActionSkipped, Reason: "no submit affordance"}, false, nil
	}
	res := FieldResult{Label: d.Label, Selector: d.Selector, Kind: d.Kind}
	if !live {
		res.Action = ActionWouldClick
		m.logger.Info("dry run: would click submit", zap.String("label", d.Label), zap.String("selector", d.Selector))
		return res, true, nil
	}
	if err := m.filler.Click(ctx, d.Selector); err != nil {
		res.Action, res.Err, res.Reason = ActionFailed, err, err.Error()
		m.logger.Warn("submit click failed", zap.String("selector", d.Selector), zap.Error(err))
		return res, true, err
	}
	res.Action = ActionClicked
	m.logger.Info("clicked submit", zap.String("label", d.Label), zap.String("selector", d.Selector))
	return res, true, nil
}
