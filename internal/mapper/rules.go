// Package mapper assigns profile values to discovered form fields and fills them.
package mapper

import (
	"strings"

	"github.com/jonathan/scholarship-agent/internal/types"
)

// Rule maps fields whose key contains any keyword to a profile attribute, or
// to essay synthesis when Essay is set.
type Rule struct {
	Name      string
	Keywords  []string
	Attribute string
	Essay     bool
	// AnyTextarea makes the rule match every textarea regardless of keywords.
	AnyTextarea bool
}

// DefaultTextRules apply to text and textarea fields. Order matters: the first
// matching rule wins, so "School Name Verification" resolves to name.
var DefaultTextRules = []Rule{
	{Name: "name", Keywords: []string{"name"}, Attribute: types.AttrName},
	{Name: "school", Keywords: []string{"school"}, Attribute: types.AttrSchool},
	{Name: "gpa", Keywords: []string{"gpa"}, Attribute: types.AttrGPAWeighted},
	{Name: "email", Keywords: []string{"email"}, Attribute: types.AttrEmail},
	{Name: "essay", Keywords: []string{"essay", "personal statement"}, Essay: true, AnyTextarea: true},
}

// DefaultSelectRules apply to select fields. The chosen option's visible text
// must equal the profile value exactly.
var DefaultSelectRules = []Rule{
	{Name: "race", Keywords: []string{"race"}, Attribute: types.AttrRace},
	{Name: "ethnicity", Keywords: []string{"ethnicity"}, Attribute: types.AttrEthnicity},
	{Name: "gender", Keywords: []string{"gender"}, Attribute: types.AttrGender},
}

// DefaultSubmitKeywords are tried in order by ChooseSubmit.
var DefaultSubmitKeywords = []string{"submit", "next", "continue", "apply", "finish", "save"}

// FieldKey is the lowercase text a rule matches against.
func FieldKey(d types.PageFieldDescriptor) string {
	var parts []string
	switch d.Kind {
	case types.KindSelect:
		parts = []string{d.Label, d.Name}
	default:
		parts = []string{d.Label, d.Name, d.ID, d.Placeholder}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Match returns the first rule in rules that matches d.
func Match(rules []Rule, d types.PageFieldDescriptor) (Rule, bool) {
	key := FieldKey(d)
	for _, r := range rules {
		if r.AnyTextarea && d.Kind == types.KindTextarea {
			return r, true
		}
		for _, kw := range r.Keywords {
			if strings.Contains(key, kw) {
				return r, true
			}
		}
	}
	return Rule{}, false
}

// ChooseSubmit picks the submit affordance: keywords in order, and for each
// keyword the first submit descriptor whose label contains it.
func ChooseSubmit(descriptors []types.PageFieldDescriptor, keywords []string) (types.PageFieldDescriptor, bool) {
	if len(keywords) == 0 {
		keywords = DefaultSubmitKeywords
	}
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		for _, d := range descriptors {
			if d.Kind != types.KindSubmit || !d.Actionable() {
				continue
			}
			if strings.Contains(strings.ToLower(d.Label), kw) {
				return d, true
			}
		}
	}
	return types.PageFieldDescriptor{}, false
}

// essayPrompt is the question an essay field asks.
func essayPrompt(d types.PageFieldDescriptor) string {
	for _, s := range []string{d.Prompt, d.Label, d.Placeholder, d.Name, d.ID} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
