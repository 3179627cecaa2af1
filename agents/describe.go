package agents

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/brunobiangulo/labcheck/docparse"
	"github.com/brunobiangulo/labcheck/llm"
)

// VisualDescriber turns a single extracted visual into a text description
// for use in prompts that cannot carry images.
type VisualDescriber struct {
	vision llm.VisionProvider
}

// NewVisualDescriber creates a describer over a vision provider.
func NewVisualDescriber(provider llm.VisionProvider) *VisualDescriber {
	return &VisualDescriber{vision: provider}
}

// Describe classifies and describes one visual element.
func (d *VisualDescriber) Describe(ctx context.Context, v docparse.VisualElement) (string, error) {
	if len(v.PNG) == 0 {
		return "", fmt.Errorf("visual %s has no image data", v.Token())
	}

	start := time.Now()
	resp, err := d.vision.ChatWithImages(ctx, llm.VisionChatRequest{
		Messages: []llm.VisionMessage{
			{
				Role: "user",
				Content: []llm.ContentPart{
					{Type: "text", Text: describeVisualPrompt},
					{
						Type: "image_url",
						ImageURL: &llm.ImageURL{
							URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(v.PNG),
						},
					},
				},
			},
		},
		Temperature: 0,
		MaxTokens:   agentMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("describing %s: %w", v.Token(), err)
	}

	description := resp.Content
	if result, ok := ParseTaggedSections(description)["result"]; ok {
		description = result
	}

	slog.Info("agents: visual described",
		"visual", v.Token(), "tokens", resp.TotalTokens,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return description, nil
}
