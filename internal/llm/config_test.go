package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", config.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TierStandard))
	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
}

func TestGetModel_Fallback(t *testing.T) {
	config := &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite: "fallback-model",
		},
	}

	// Unknown tier should fallback to TierStandard, then TierLite
	assert.Equal(t, "fallback-model", config.GetModel("unknown"))
}

func TestGetModel_EmptyConfig(t *testing.T) {
	config := &Config{
		Provider: ProviderGemini,
		Models:   map[ModelTier]string{},
	}

	assert.Equal(t, "", config.GetModel(TierAdvanced))
}

func TestWithModel(t *testing.T) {
	config := DefaultConfig()
	newConfig := config.WithModel(TierAdvanced, "custom-model")

	// Original should be unchanged
	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
	assert.Equal(t, "custom-model", newConfig.GetModel(TierAdvanced))
	assert.Equal(t, "gemini-2.5-flash-lite", newConfig.GetModel(TierLite))
	assert.Equal(t, float32(0.7), newConfig.temperature(TierAdvanced))
}

func TestTemperature(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, DefaultTemperature, config.temperature(TierLite))
	assert.Equal(t, float32(0.7), config.temperature(TierAdvanced))

	bare := &Config{Models: map[ModelTier]string{}}
	assert.Equal(t, DefaultTemperature, bare.temperature(TierStandard))
}

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), DefaultConfig(), "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestBuildExtractionPrompt_PageAnalysis(t *testing.T) {
	prompt := BuildExtractionPrompt(PageAnalysisSchema(), "")

	assert.Contains(t, prompt, `"fields"`)
	assert.Contains(t, prompt, `"buttons"`)
	assert.Contains(t, prompt, "(required)")
	assert.NotContains(t, prompt, "Input text:")

	withText := BuildExtractionPrompt(PageAnalysisSchema(), "<form></form>")
	assert.Contains(t, withText, "Input text:")
	assert.Contains(t, withText, "<form></form>")
}
