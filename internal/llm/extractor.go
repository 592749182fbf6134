// Package llm - extractor.go provides generic LLM-based structured extraction prompts.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "PageAnalysis")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "[]string", "[{...}]"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
// inputText may be empty when the artifact is an image sent alongside the prompt.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Report only what is visible, do not invent fields or selectors.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n")

	if inputText != "" {
		sb.WriteString("\nInput text:\n\"\"\"\n")
		sb.WriteString(inputText)
		sb.WriteString("\n\"\"\"\n")
	}

	return sb.String()
}

// PageAnalysisSchema describes the form fields and buttons of a screenshot.
func PageAnalysisSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "PageAnalysis",
		Description: `You are analyzing a screenshot of a web page that may contain a scholarship application form.
Describe every form field (inputs, selects, textareas) with its visible label, its type, and a CSS selector
(an #id or [name="..."] if visible). For textareas include the full prompt or question text.
Also describe buttons and their purpose (e.g., submit, next).`,
		Fields: []SchemaField{
			{
				Name:        "fields",
				Type:        `[{"label": "string", "type": "text|textarea|select", "selector": "string", "prompt": "string", "options": ["string"]}]`,
				Description: "Form controls in top-to-bottom order",
				Required:    true,
			},
			{
				Name:        "buttons",
				Type:        `[{"label": "string", "selector": "string"}]`,
				Description: "Clickable buttons such as Submit, Next, Continue",
				Required:    true,
			},
		},
	}
}
