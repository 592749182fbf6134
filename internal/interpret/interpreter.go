// Package interpret adapts a multimodal model into the page interpreter used by
// discovery, navigation and field mapping. Model output is treated as unreliable:
// every structured answer is defensively parsed and validated before use.
package interpret

import (
	"context"
	"fmt"

	"github.com/jonathan/scholarship-agent/internal/llm"
)

// ArtifactKind identifies what accompanies an instruction.
type ArtifactKind int

const (
	// ArtifactNone sends the instruction alone (free generation such as essays).
	ArtifactNone ArtifactKind = iota
	// ArtifactText sends a text excerpt of a page.
	ArtifactText
	// ArtifactImage sends a page screenshot.
	ArtifactImage
)

// Artifact is the page material an instruction refers to.
type Artifact struct {
	Kind   ArtifactKind
	Text   string
	Image  []byte
	Format string // image subtype, "png" when empty
}

// TextArtifact wraps a page text excerpt.
func TextArtifact(text string) Artifact {
	return Artifact{Kind: ArtifactText, Text: text}
}

// ImageArtifact wraps a PNG screenshot.
func ImageArtifact(png []byte) Artifact {
	return Artifact{Kind: ArtifactImage, Image: png, Format: "png"}
}

// Interpreter turns an instruction plus a page artifact into free text.
type Interpreter interface {
	Interpret(ctx context.Context, instruction string, artifact Artifact) (string, error)
}

// Gemini implements Interpreter over an llm.Client.
// Screenshots use the standard tier, text excerpts the lite tier and
// instruction-only generation the advanced tier.
type Gemini struct {
	client llm.Client
}

// NewGemini wraps an existing client. The caller keeps ownership of the client.
func NewGemini(client llm.Client) *Gemini {
	return &Gemini{client: client}
}

// Interpret sends the instruction and artifact to the model.
func (g *Gemini) Interpret(ctx context.Context, instruction string, artifact Artifact) (string, error) {
	if g.client == nil {
		return "", &Error{Message: "no model client configured"}
	}

	var (
		text string
		err  error
	)
	switch artifact.Kind {
	case ArtifactImage:
		text, err = g.client.GenerateWithImage(ctx, instruction, artifact.Image, artifact.Format, llm.TierStandard)
	case ArtifactText:
		text, err = g.client.GenerateContent(ctx, withPageText(instruction, artifact.Text), llm.TierLite)
	default:
		text, err = g.client.GenerateContent(ctx, instruction, llm.TierAdvanced)
	}
	if err != nil {
		return "", &Error{Message: fmt.Sprintf("model call failed (%s)", artifact.Kind), Cause: err}
	}
	return text, nil
}

func (k ArtifactKind) String() string {
	switch k {
	case ArtifactText:
		return "text"
	case ArtifactImage:
		return "image"
	}
	return "none"
}

func withPageText(instruction, text string) string {
	return instruction + "\n\nPage text:\n\"\"\"\n" + text + "\n\"\"\"\n"
}
