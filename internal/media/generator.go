// Package media generates images through the Google GenAI SDK.
package media

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"datanerd/internal/logging"
)

// GenAIGenerator produces images from text prompts using a Gemini image
// model. It implements types.ImageGenerator.
type GenAIGenerator struct {
	client *genai.Client
	model  string
}

// NewGenAIGenerator creates a new image generation engine.
func NewGenAIGenerator(apiKey, model string) (*GenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}

	if model == "" {
		model = "gemini-2.5-flash-image"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIGenerator{
		client: client,
		model:  model,
	}, nil
}

// Generate renders the prompt to image bytes. anchor, when non-nil, is a
// source image the generation should riff on (for example a thumbnail).
func (g *GenAIGenerator) Generate(ctx context.Context, prompt string, anchor []byte) ([]byte, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if len(anchor) > 0 {
		parts = append(parts, genai.NewPartFromBytes(anchor, "image/png"))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, fmt.Errorf("GenAI image generation failed: %w", err)
	}

	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				logging.API("[GenAI] Generated image: %d bytes (%s)", len(part.InlineData.Data), part.InlineData.MIMEType)
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, fmt.Errorf("no image returned")
}

// Name returns the engine name.
func (g *GenAIGenerator) Name() string {
	return fmt.Sprintf("genai:%s", g.model)
}
