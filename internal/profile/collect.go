package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/scholarship-agent/internal/human"
	"github.com/jonathan/scholarship-agent/internal/types"
)

var questions = map[string]string{
	types.AttrName:        "Full name",
	types.AttrEmail:       "Email address",
	types.AttrGradeLevel:  "Grade level (e.g. high school senior)",
	types.AttrGender:      "Gender",
	types.AttrPreferences: "Scholarship preferences (e.g. STEM, need-based)",
	types.AttrRace:        "Race",
	types.AttrEthnicity:   "Ethnicity",
	types.AttrSchool:      "School name",
	types.AttrGPAWeighted: "Weighted GPA",
	types.AttrCity:        "City",
	types.AttrState:       "State",
	types.AttrCountry:     "Country",
}

// Collect asks for every profile attribute in order, starting from existing
// values. An empty answer keeps the existing value. Required attributes are
// asked again until they are non-empty.
func Collect(ctx context.Context, prompter human.Prompter, existing *types.Profile) (*types.Profile, error) {
	p := &types.Profile{}
	if existing != nil {
		*p = *existing
	}

	required := make(map[string]bool, len(types.RequiredAttributes))
	for _, attr := range types.RequiredAttributes {
		required[attr] = true
	}

	for _, attr := range types.ProfileAttributes {
		question := questions[attr]
		if current := p.Get(attr); current != "" {
			question = fmt.Sprintf("%s [%s]", question, current)
		}
		for {
			answer, err := prompter.Ask(ctx, question)
			if err != nil {
				return nil, fmt.Errorf("failed to collect %s: %w", attr, err)
			}
			if strings.TrimSpace(answer) != "" {
				if err := p.Set(attr, answer); err != nil {
					return nil, err
				}
			}
			if !required[attr] || p.Get(attr) != "" {
				break
			}
		}
	}
	return p, nil
}
