package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brunobiangulo/labcheck/docparse"
	"github.com/brunobiangulo/labcheck/llm"
)

// SubmissionAnalyzer locates and analyzes a student's work on individual
// tasks inside a parsed submission.
type SubmissionAnalyzer struct {
	chat llm.Provider
}

// NewSubmissionAnalyzer creates an analyzer over a chat provider.
func NewSubmissionAnalyzer(chat llm.Provider) *SubmissionAnalyzer {
	return &SubmissionAnalyzer{chat: chat}
}

// FindAnswer extracts the submission fragment that addresses the given
// task. Found is false when the submission contains nothing for it.
func (s *SubmissionAnalyzer) FindAnswer(ctx context.Context, task Task, doc *docparse.ParsedDocument) (*TaskAnswer, error) {
	start := time.Now()
	resp, err := s.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: graderSystemPrompt},
			{Role: "user", Content: buildFindAnswerPrompt(task, doc.Text)},
		},
		Temperature: 0,
		MaxTokens:   agentMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("task %d answer extraction: %w", task.Number, err)
	}

	_, final := SplitThinking(resp.Content)
	raw := ExtractJSONBlock(final)
	if raw == "" {
		return nil, fmt.Errorf("task %d answer extraction: no JSON object in response", task.Number)
	}

	var answer TaskAnswer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return nil, fmt.Errorf("decoding task %d answer: %w", task.Number, err)
	}
	answer.TaskNumber = task.Number
	if strings.TrimSpace(answer.Content) == "" {
		answer.Found = false
	}

	slog.Info("agents: task answer located",
		"task", task.Number, "found", answer.Found,
		"tokens", resp.TotalTokens, "elapsed", time.Since(start).Round(time.Millisecond))
	return &answer, nil
}

// Analyze produces the qualitative analysis of the student's work on one
// task. visualNotes are descriptions of the figures the answer references;
// they are carried into the result.
func (s *SubmissionAnalyzer) Analyze(ctx context.Context, task Task, answer *TaskAnswer, visualNotes []string) (*TaskAnalysis, error) {
	start := time.Now()
	resp, err := s.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: graderSystemPrompt},
			{Role: "user", Content: buildAnalyzePrompt(task, answer, visualNotes)},
		},
		Temperature: 0,
		MaxTokens:   agentMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("task %d analysis: %w", task.Number, err)
	}

	body := resp.Content
	if result, ok := ParseTaggedSections(body)["result"]; ok {
		body = result
	}
	raw := ExtractJSONBlock(body)
	if raw == "" {
		return nil, fmt.Errorf("task %d analysis: no JSON object in response", task.Number)
	}

	var analysis TaskAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, fmt.Errorf("decoding task %d analysis: %w", task.Number, err)
	}
	analysis.TaskNumber = task.Number
	analysis.VisualNotes = visualNotes

	slog.Info("agents: task analyzed",
		"task", task.Number, "tokens", resp.TotalTokens,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return &analysis, nil
}
