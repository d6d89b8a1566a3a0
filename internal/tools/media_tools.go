package tools

import (
	"context"
	"fmt"
	"strings"

	"datanerd/internal/types"
)

// ImageResult carries generated image bytes. The session layer never
// sends the bytes to the model; it substitutes an acknowledgement string
// and keeps the payload for the caller.
type ImageResult struct {
	Prompt   string `json:"prompt"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// RegisterMediaTools installs the image generation tool. Skipped when no
// generator is configured (for example, missing API key).
func RegisterMediaTools(r *Registry, gen types.ImageGenerator) {
	if gen == nil {
		return
	}
	r.MustRegister(NewGenerateImageTool(gen))
}

// NewGenerateImageTool wraps the image generation backend.
func NewGenerateImageTool(gen types.ImageGenerator) *Tool {
	return &Tool{
		Name:        "generate_image",
		Description: "Generate an image from a text prompt, for example a stylized thumbnail or visual summary.",
		Schema: ToolSchema{
			Required: []string{"prompt"},
			Properties: map[string]Property{
				"prompt": {Type: "string", Description: "What the image should depict"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			prompt := strings.TrimSpace(stringArg(args, "prompt"))
			if prompt == "" {
				return nil, fmt.Errorf("%w: prompt must be a non-empty string", ErrInvalidArgType)
			}
			data, err := gen.Generate(ctx, prompt, nil)
			if err != nil {
				return nil, fmt.Errorf("image generation failed: %w", err)
			}
			return &ImageResult{
				Prompt:   prompt,
				MIMEType: "image/png",
				Data:     data,
			}, nil
		},
	}
}
