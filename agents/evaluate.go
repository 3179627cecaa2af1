package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/brunobiangulo/labcheck/llm"
)

// Evaluator grades analyzed task work against the task requirements.
type Evaluator struct {
	chat llm.Provider
}

// NewEvaluator creates an evaluator over a chat provider.
func NewEvaluator(chat llm.Provider) *Evaluator {
	return &Evaluator{chat: chat}
}

type evaluationReply struct {
	Verdict         string           `json:"verdict"`
	Score           float64          `json:"score"`
	CriterionScores []CriterionScore `json:"criterion_scores"`
}

// Evaluate grades one task. The returned score is clamped to
// [0, task.MaxScore].
func (e *Evaluator) Evaluate(ctx context.Context, task Task, analysis *TaskAnalysis) (*TaskEvaluation, error) {
	start := time.Now()
	resp, err := e.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: graderSystemPrompt},
			{Role: "user", Content: buildEvaluatePrompt(task, analysis)},
		},
		Temperature: 0,
		MaxTokens:   agentMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("task %d evaluation: %w", task.Number, err)
	}

	_, final := SplitThinking(resp.Content)
	raw := ExtractJSONBlock(final)
	if raw == "" {
		return nil, fmt.Errorf("task %d evaluation: no JSON object in response", task.Number)
	}

	var reply evaluationReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("decoding task %d evaluation: %w", task.Number, err)
	}

	score := reply.Score
	if score < 0 {
		score = 0
	}
	if score > task.MaxScore {
		score = task.MaxScore
	}
	verdict := reply.Verdict
	if verdict == "" {
		verdict = "incomplete"
	}

	slog.Info("agents: task evaluated",
		"task", task.Number, "score", score, "max_score", task.MaxScore,
		"verdict", verdict, "tokens", resp.TotalTokens,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return &TaskEvaluation{
		TaskNumber: task.Number,
		Scores:     reply.CriterionScores,
		Score:      score,
		MaxScore:   task.MaxScore,
		Verdict:    verdict,
	}, nil
}

// Overall aggregates task evaluations into the final grade. Tasks weigh in
// proportion to their MaxScore. Pure; no LLM call.
func (e *Evaluator) Overall(evals []TaskEvaluation) OverallEvaluation {
	if len(evals) == 0 {
		return OverallEvaluation{Grade: "F", Summary: "No evaluations provided"}
	}

	var total, max float64
	for _, ev := range evals {
		total += ev.Score
		max += ev.MaxScore
	}

	var percent float64
	if max > 0 {
		percent = total / max * 100
	}
	percent = round2(percent)

	return OverallEvaluation{
		TotalScore: round2(total),
		MaxScore:   round2(max),
		Percent:    percent,
		Grade:      letterGrade(percent),
		Summary:    fmt.Sprintf("Overall grade: %.2f%% based on %d tasks", percent, len(evals)),
	}
}

func letterGrade(percent float64) string {
	switch {
	case percent >= 90:
		return "A"
	case percent >= 80:
		return "B"
	case percent >= 70:
		return "C"
	case percent >= 60:
		return "D"
	default:
		return "F"
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
