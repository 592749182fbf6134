package navigator

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/scholarship-agent/internal/types"
)

// Input types that never hold applicant data.
var nonDataInputs = map[string]bool{
	"hidden":   true,
	"submit":   true,
	"button":   true,
	"reset":    true,
	"image":    true,
	"file":     true,
	"checkbox": true,
	"radio":    true,
	"password": true,
}

// ScanFields lists the form controls in html as descriptors, in document order.
// Controls without an id or name get an empty selector and are dropped later.
func ScanFields(html string) ([]types.PageFieldDescriptor, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	var fields []types.PageFieldDescriptor
	doc.Find("input, textarea, select, button").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		inputType := strings.ToLower(strings.TrimSpace(s.AttrOr("type", "")))

		var kind types.FieldKind
		switch tag {
		case "textarea":
			kind = types.KindTextarea
		case "select":
			kind = types.KindSelect
		case "button":
			if inputType != "" && inputType != "submit" {
				return
			}
			kind = types.KindSubmit
		default:
			switch {
			case inputType == "submit" || inputType == "image":
				kind = types.KindSubmit
			case nonDataInputs[inputType]:
				return
			default:
				kind = types.KindText
			}
		}

		id := strings.TrimSpace(s.AttrOr("id", ""))
		name := strings.TrimSpace(s.AttrOr("name", ""))
		d := types.PageFieldDescriptor{
			Kind:        kind,
			Name:        name,
			ID:          id,
			Placeholder: strings.TrimSpace(s.AttrOr("placeholder", "")),
			Selector:    selectorFor(tag, id, name),
		}
		d.Label = labelFor(doc, s, id)
		if kind == types.KindSubmit && d.Label == "" {
			d.Label = strings.TrimSpace(s.AttrOr("value", ""))
		}
		if kind == types.KindTextarea {
			d.Prompt = d.Label
		}
		if kind == types.KindSelect {
			s.Find("option").Each(func(_ int, o *goquery.Selection) {
				if text := collapse(o.Text()); text != "" {
					d.Options = append(d.Options, text)
				}
			})
		}
		fields = append(fields, d)
	})
	return fields, nil
}

// selectorFor prefers the id, then tag plus name.
func selectorFor(tag, id, name string) string {
	if id != "" {
		return "#" + cssEscapeIdent(id)
	}
	if name != "" {
		return fmt.Sprintf(`%s[name="%s"]`, tag, strings.ReplaceAll(name, `"`, `\"`))
	}
	return ""
}

// labelFor resolves the display text of a control: label[for=id], a wrapping
// label, aria-label, then the element's own text for buttons.
func labelFor(doc *goquery.Document, s *goquery.Selection, id string) string {
	if id != "" {
		var text string
		doc.Find("label").EachWithBreak(func(_ int, l *goquery.Selection) bool {
			if l.AttrOr("for", "") == id {
				text = collapse(l.Text())
				return false
			}
			return true
		})
		if text != "" {
			return text
		}
	}
	if wrap := s.ParentsFiltered("label").First(); wrap.Length() > 0 {
		clone := wrap.Clone()
		clone.Find("input, select, textarea, option").Remove()
		if text := collapse(clone.Text()); text != "" {
			return text
		}
	}
	if aria := strings.TrimSpace(s.AttrOr("aria-label", "")); aria != "" {
		return aria
	}
	if goquery.NodeName(s) == "button" {
		return collapse(s.Text())
	}
	return ""
}

// cssEscapeIdent escapes characters that would break an #id selector.
func cssEscapeIdent(id string) string {
	var b strings.Builder
	for i, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_', r > 127:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				fmt.Fprintf(&b, `\%x `, r)
			} else {
				b.WriteRune(r)
			}
		default:
			b.WriteRune('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// PageSummary counts what the sufficiency check looks at.
type PageSummary struct {
	// DataControls counts inputs, selects and textareas that take applicant
	// data, excluding search boxes.
	DataControls int
	SearchBoxes  int
	HasPassword  bool
}

// Summarize inspects html for the sufficiency and login checks.
func Summarize(html string) (PageSummary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return PageSummary{}, fmt.Errorf("failed to parse page: %w", err)
	}

	var sum PageSummary
	doc.Find("input, textarea, select").Each(func(_ int, s *goquery.Selection) {
		inputType := strings.ToLower(strings.TrimSpace(s.AttrOr("type", "")))
		if inputType == "password" {
			sum.HasPassword = true
		}
		if goquery.NodeName(s) == "input" && nonDataInputs[inputType] && inputType != "checkbox" && inputType != "radio" {
			return
		}
		if isSearchBox(s, inputType) {
			sum.SearchBoxes++
			return
		}
		sum.DataControls++
	})
	return sum, nil
}

func isSearchBox(s *goquery.Selection, inputType string) bool {
	if goquery.NodeName(s) != "input" {
		return false
	}
	if inputType == "search" || s.AttrOr("role", "") == "searchbox" {
		return true
	}
	for _, attr := range []string{"placeholder", "name", "id", "aria-label"} {
		if v := strings.ToLower(s.AttrOr(attr, "")); v == "q" || strings.Contains(v, "search") {
			return true
		}
	}
	return false
}

// FormSufficient reports whether the page holds a genuine multi-field form:
// more than two data controls. A lone search box never qualifies.
func (p PageSummary) FormSufficient() bool {
	return p.DataControls > 2
}
