package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	prompt, err := Get("interpret.json", "applicability")
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.GradeLevel}}")

	_, err = Get("nonexistent.json", "some-key")
	assert.ErrorContains(t, err, "prompt file nonexistent.json not found")

	_, err = Get("interpret.json", "nonexistent-key")
	assert.ErrorContains(t, err, "not found")
}

func TestMustGet(t *testing.T) {
	assert.Panics(t, func() { MustGet("nonexistent.json", "some-key") })
	assert.NotEmpty(t, MustGet("interpret.json", "write-essay"))
}

func TestFormat(t *testing.T) {
	template := MustGet("discovery.json", "search-query")
	result := Format(template, map[string]string{
		"GradeLevel": "high school senior",
		"Race":       "Asian",
		"Ethnicity":  "Korean",
		"School":     "Lincoln HS",
	})
	assert.Equal(t, "scholarships for high school senior Asian Korean students at Lincoln HS", result)
}

func TestFormat_LeavesUnknownPlaceholders(t *testing.T) {
	assert.Equal(t, "No placeholders here", Format("No placeholders here", map[string]string{"Key": "Value"}))
	assert.Equal(t, "Hello {{.Name}}", Format("Hello {{.Name}}", nil))
	assert.Equal(t, []string{"Name"}, Placeholders(Format("Hello {{.Name}} from {{.School}}", map[string]string{"School": "Lincoln HS"})))
}

func TestFormat_ValueIsNotReexpanded(t *testing.T) {
	out := Format("Prompt: {{.Prompt}} / {{.Essays}}", map[string]string{
		"Prompt": "Describe {{.Essays}}",
		"Essays": "robots",
	})
	assert.Equal(t, "Prompt: Describe {{.Essays}} / robots", out)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"Essays", "Prompt"}, Placeholders(MustGet("interpret.json", "write-essay")))
	assert.Equal(t, []string{"City", "Ethnicity", "GradeLevel", "Race", "School", "State"},
		Placeholders(MustGet("discovery.json", "search-query-local")))
	assert.Empty(t, Placeholders(MustGet("interpret.json", "classify-status")))
}

func TestKeys(t *testing.T) {
	keys, err := Keys("interpret.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"applicability", "classify-status", "write-essay"}, keys)

	keys, err = Keys("discovery.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"search-query", "search-query-local"}, keys)
}
