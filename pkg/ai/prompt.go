package ai

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"
)

// Style phrase banks appended to the scene text when building an image
// prompt. Unknown styles fall back to realistic.
var stylePrompts = map[string]string{
	"realistic":    "photorealistic, highly detailed, 8k, professional photography",
	"cinematic":    "cinematic lighting, movie scene, dramatic, epic",
	"anime":        "anime style, studio ghibli, vibrant colors, detailed",
	"digital_art":  "digital art, concept art, trending on artstation",
	"oil_painting": "oil painting, artistic, brushstrokes, classical art",
	"cartoon":      "3d cartoon, pixar style, vibrant, cute",
}

const promptQualifiers = "high quality, masterpiece, vertical format, portrait orientation"

// BuildImagePrompt combines the scene text with the style phrase bank and
// the quality/orientation qualifiers.
func BuildImagePrompt(sceneText, style string) string {
	base, ok := stylePrompts[style]
	if !ok {
		base = stylePrompts["realistic"]
	}
	return sceneText + ", " + base + ", " + promptQualifiers
}

const enhancerInstruction = "Rewrite the following narration line as a single concise visual " +
	"description suitable as an image generation prompt. Describe the subject, setting and " +
	"mood in one sentence. Reply with the description only, no preamble:"

// PromptEnhancer optionally rewrites scene text into a richer visual prompt
// with one Gemini call. It is best-effort: callers use the plain constructed
// prompt when enhancement fails.
type PromptEnhancer struct {
	client *genai.Client
	model  string
}

// NewPromptEnhancer builds a Gemini-backed enhancer. The client reads its
// API key from the environment.
func NewPromptEnhancer(ctx context.Context, model string) (*PromptEnhancer, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &PromptEnhancer{client: client, model: model}, nil
}

// Enhance returns a full image prompt built from the model's rewrite of the
// scene text.
func (e *PromptEnhancer) Enhance(ctx context.Context, sceneText, style string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(enhancerInstruction),
		genai.NewPartFromText(sceneText),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := e.client.Models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", errors.New("genai: empty generate response")
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", errors.New("genai: empty prompt rewrite")
	}
	return BuildImagePrompt(text, style), nil
}
