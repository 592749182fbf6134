package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageAnalysisSchema_IsValidJSON(t *testing.T) {
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(PageAnalysisSchema()), &v))
	assert.Equal(t, "PageAnalysis", v["title"])
}

func TestValidatePageAnalysis(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{
			name: "valid with buttons",
			doc: `{"fields": [{"label": "First Name", "type": "text", "selector": "#fname"},
				{"label": "Essay", "type": "textarea", "selector": "#essay", "prompt": "Tell us about yourself"}],
				"buttons": [{"label": "Submit", "selector": "#submit"}]}`,
		},
		{
			name: "valid without buttons",
			doc:  `{"fields": []}`,
		},
		{
			name:    "missing fields",
			doc:     `{"buttons": []}`,
			wantErr: true,
		},
		{
			name:    "field missing label",
			doc:     `{"fields": [{"type": "text"}]}`,
			wantErr: true,
		},
		{
			name:    "options wrong type",
			doc:     `{"fields": [{"label": "Race", "type": "select", "options": "Asian"}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePageAnalysis(tt.doc)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.NotEmpty(t, validationErr.Errors)
		})
	}
}

func TestValidatePageAnalysis_NotJSON(t *testing.T) {
	err := ValidatePageAnalysis("I see a login page.")
	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, err.Error(), "page_analysis.schema.json")
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Errors: []FieldError{{Field: "fields.0", Message: "label is required"}}}
	assert.Contains(t, err.Error(), "1. fields.0: label is required")
}
