package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/brunobiangulo/labcheck/docparse"
	"github.com/brunobiangulo/labcheck/llm"
)

const agentMaxTokens = 4096

// AssignmentExtractor turns a parsed assignment specification into a
// structured Assignment via a multimodal LLM call.
type AssignmentExtractor struct {
	vision llm.VisionProvider
}

// NewAssignmentExtractor creates an extractor over a vision provider.
func NewAssignmentExtractor(provider llm.VisionProvider) *AssignmentExtractor {
	return &AssignmentExtractor{vision: provider}
}

// Extract sends the document's content blocks (text interleaved with page
// snapshots) to the model and parses the JSON reply into an Assignment.
// An assignment with no tasks is an error; there is nothing to grade.
func (a *AssignmentExtractor) Extract(ctx context.Context, doc *docparse.ParsedDocument) (*Assignment, error) {
	parts := []llm.ContentPart{{Type: "text", Text: extractAssignmentPrompt}}
	parts = append(parts, contentParts(doc.ContentBlocks())...)

	start := time.Now()
	resp, err := a.vision.ChatWithImages(ctx, llm.VisionChatRequest{
		Messages: []llm.VisionMessage{
			{Role: "user", Content: parts},
		},
		Temperature:    0,
		MaxTokens:      agentMaxTokens,
		ResponseFormat: "json_object",
	})
	if err != nil {
		return nil, fmt.Errorf("assignment extraction: %w", err)
	}
	slog.Info("agents: assignment extracted",
		"tokens", resp.TotalTokens, "elapsed", time.Since(start).Round(time.Millisecond))

	raw := ExtractJSONBlock(resp.Content)
	if raw == "" {
		return nil, fmt.Errorf("assignment extraction: no JSON object in response")
	}

	var assignment Assignment
	if err := json.Unmarshal([]byte(raw), &assignment); err != nil {
		return nil, fmt.Errorf("decoding assignment: %w", err)
	}
	if len(assignment.Tasks) == 0 {
		return nil, fmt.Errorf("assignment has no tasks")
	}

	for i := range assignment.Tasks {
		if assignment.Tasks[i].Number == 0 {
			assignment.Tasks[i].Number = i + 1
		}
		if assignment.Tasks[i].MaxScore == 0 {
			assignment.Tasks[i].MaxScore = 100
		}
	}
	assignment.Metadata.Pages = doc.PageCount

	return &assignment, nil
}

// contentParts converts parsed-document content blocks into vision message
// parts, keeping text and images in document order.
func contentParts(blocks []docparse.ContentBlock) []llm.ContentPart {
	parts := make([]llm.ContentPart, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case docparse.BlockImage:
			parts = append(parts, llm.ContentPart{
				Type:     "image_url",
				ImageURL: &llm.ImageURL{URL: b.DataURI()},
			})
		default:
			parts = append(parts, llm.ContentPart{Type: "text", Text: b.Text})
		}
	}
	return parts
}
