package types

import "strings"

// FieldKind classifies an observed form control.
type FieldKind string

// Field kinds understood by the field mapper.
const (
	KindText     FieldKind = "text"
	KindTextarea FieldKind = "textarea"
	KindSelect   FieldKind = "select"
	KindSubmit   FieldKind = "submit-button"
)

// ParseFieldKind maps loose kind labels from page analysis onto a FieldKind.
// Unrecognized input types collapse to text.
func ParseFieldKind(s string) FieldKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "textarea":
		return KindTextarea
	case "select", "dropdown":
		return KindSelect
	case "submit", "submit-button", "button":
		return KindSubmit
	}
	return KindText
}

// PageFieldDescriptor is one observed form control on a page.
type PageFieldDescriptor struct {
	Label       string    `json:"label"`
	Kind        FieldKind `json:"type"`
	Selector    string    `json:"selector"`
	Prompt      string    `json:"prompt,omitempty"`
	Name        string    `json:"name,omitempty"`
	ID          string    `json:"id,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Options     []string  `json:"options,omitempty"`
}

// Actionable reports whether the page driver can resolve this descriptor.
func (d PageFieldDescriptor) Actionable() bool {
	return strings.TrimSpace(d.Selector) != ""
}

// ActionableFields drops descriptors with an empty selector, keeping order.
func ActionableFields(fields []PageFieldDescriptor) []PageFieldDescriptor {
	out := make([]PageFieldDescriptor, 0, len(fields))
	for _, f := range fields {
		if f.Actionable() {
			out = append(out, f)
		}
	}
	return out
}
