// Package types provides type definitions for structured data used throughout the scholarship agent.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Profile attribute names. These are the keys used in persisted profile files and
// the values the field mapper looks up.
const (
	AttrName        = "name"
	AttrEmail       = "email"
	AttrGradeLevel  = "grade_level"
	AttrGender      = "gender"
	AttrPreferences = "preferences"
	AttrRace        = "race"
	AttrEthnicity   = "ethnicity"
	AttrSchool      = "school"
	AttrGPAWeighted = "gpa_weighted"
	AttrCity        = "city"
	AttrState       = "state"
	AttrCountry     = "country"
)

// ProfileAttributes lists the short attributes in the order they are collected.
var ProfileAttributes = []string{
	AttrName,
	AttrEmail,
	AttrGradeLevel,
	AttrGender,
	AttrPreferences,
	AttrRace,
	AttrEthnicity,
	AttrSchool,
	AttrGPAWeighted,
	AttrCity,
	AttrState,
	AttrCountry,
}

// Profile holds the applicant's static attributes and free-text materials.
// Essays and Transcript are long-text fields and are never written to the
// persisted profile file.
type Profile struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Email       string `json:"email,omitempty" yaml:"email,omitempty" validate:"omitempty,email"`
	GradeLevel  string `json:"grade_level" yaml:"grade_level" validate:"required"`
	Gender      string `json:"gender,omitempty" yaml:"gender,omitempty"`
	Preferences string `json:"preferences,omitempty" yaml:"preferences,omitempty"`
	Race        string `json:"race,omitempty" yaml:"race,omitempty"`
	Ethnicity   string `json:"ethnicity,omitempty" yaml:"ethnicity,omitempty"`
	School      string `json:"school" yaml:"school" validate:"required"`
	GPAWeighted string `json:"gpa_weighted,omitempty" yaml:"gpa_weighted,omitempty"`
	City        string `json:"city,omitempty" yaml:"city,omitempty"`
	State       string `json:"state,omitempty" yaml:"state,omitempty"`
	Country     string `json:"country,omitempty" yaml:"country,omitempty"`

	// Essays keeps the order in which essays were supplied.
	Essays     []string `json:"-" yaml:"-"`
	Transcript string   `json:"-" yaml:"-"`
}

// RequiredAttributes are the attributes that must be non-empty before search or fill.
var RequiredAttributes = []string{AttrName, AttrGradeLevel, AttrSchool}

// Get returns the value of a short attribute, or "" for unknown names.
func (p *Profile) Get(attr string) string {
	if p == nil {
		return ""
	}
	switch attr {
	case AttrName:
		return p.Name
	case AttrEmail:
		return p.Email
	case AttrGradeLevel:
		return p.GradeLevel
	case AttrGender:
		return p.Gender
	case AttrPreferences:
		return p.Preferences
	case AttrRace:
		return p.Race
	case AttrEthnicity:
		return p.Ethnicity
	case AttrSchool:
		return p.School
	case AttrGPAWeighted:
		return p.GPAWeighted
	case AttrCity:
		return p.City
	case AttrState:
		return p.State
	case AttrCountry:
		return p.Country
	}
	return ""
}

// Set assigns a short attribute. Unknown names return an error.
func (p *Profile) Set(attr, value string) error {
	value = strings.TrimSpace(value)
	switch attr {
	case AttrName:
		p.Name = value
	case AttrEmail:
		p.Email = value
	case AttrGradeLevel:
		p.GradeLevel = value
	case AttrGender:
		p.Gender = value
	case AttrPreferences:
		p.Preferences = value
	case AttrRace:
		p.Race = value
	case AttrEthnicity:
		p.Ethnicity = value
	case AttrSchool:
		p.School = value
	case AttrGPAWeighted, "gpa":
		p.GPAWeighted = value
	case AttrCity:
		p.City = value
	case AttrState:
		p.State = value
	case AttrCountry:
		p.Country = value
	default:
		return fmt.Errorf("unknown profile attribute %q", attr)
	}
	return nil
}

// MissingRequired returns the required attributes that are empty, in declaration order.
func (p *Profile) MissingRequired() []string {
	var missing []string
	for _, attr := range RequiredAttributes {
		if strings.TrimSpace(p.Get(attr)) == "" {
			missing = append(missing, attr)
		}
	}
	return missing
}

// Validate checks the required subset and attribute formats.
func (p *Profile) Validate() error {
	if p == nil {
		return errors.New("profile is nil")
	}
	if missing := p.MissingRequired(); len(missing) > 0 {
		return &MissingAttributesError{Attributes: missing}
	}
	validate := validator.New()
	return validate.Struct(p)
}

// EssayMaterial joins the supplied essays, then the transcript, into one block
// for prompt construction.
func (p *Profile) EssayMaterial() string {
	if p == nil {
		return ""
	}
	blocks := append([]string(nil), p.Essays...)
	if p.Transcript != "" {
		blocks = append(blocks, "Transcript:\n"+p.Transcript)
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// MissingAttributesError reports required profile attributes that are empty.
type MissingAttributesError struct {
	Attributes []string
}

func (e *MissingAttributesError) Error() string {
	return fmt.Sprintf("profile is missing required attributes: %s", strings.Join(e.Attributes, ", "))
}
