// Package agents implements the LLM agents of the grading workflow:
// assignment extraction, per-task submission analysis, evaluation, and
// visual description.
package agents

// Task is a single task extracted from an assignment specification.
type Task struct {
	Number             int      `json:"number"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Requirements       []string `json:"requirements,omitempty"`
	Deliverables       []string `json:"deliverables,omitempty"`
	EvaluationCriteria []string `json:"evaluation_criteria,omitempty"`
	MaxScore           float64  `json:"max_score"`
}

// DocumentMeta describes the source document an assignment came from.
type DocumentMeta struct {
	Pages  int    `json:"pages"`
	Source string `json:"source,omitempty"`
}

// Assignment is the structured form of an assignment specification.
type Assignment struct {
	Title              string       `json:"title"`
	Subject            string       `json:"subject,omitempty"`
	Tasks              []Task       `json:"tasks"`
	GlobalRequirements []string     `json:"global_requirements,omitempty"`
	Metadata           DocumentMeta `json:"metadata"`
}

// TaskAnswer is the fragment of a submission that addresses one task.
// Found is false when the submission contains nothing for the task.
type TaskAnswer struct {
	TaskNumber   int      `json:"task_number"`
	Content      string   `json:"content"`
	CodeExcerpts []string `json:"code_excerpts,omitempty"`
	VisualTags   []string `json:"visual_tags,omitempty"`
	Found        bool     `json:"found"`
}

// TaskAnalysis is the qualitative analysis of a student's work on one task.
type TaskAnalysis struct {
	TaskNumber  int      `json:"task_number"`
	Summary     string   `json:"summary"`
	Strengths   []string `json:"strengths,omitempty"`
	Weaknesses  []string `json:"weaknesses,omitempty"`
	VisualNotes []string `json:"visual_notes,omitempty"`
}

// CriterionScore is one scored criterion within a task evaluation.
type CriterionScore struct {
	Criterion string  `json:"criterion"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"max_score"`
	Comment   string  `json:"comment,omitempty"`
}

// TaskEvaluation is the graded result for one task.
// Verdict is one of complete, partial, incomplete, or ungraded when a
// workflow step failed for the task.
type TaskEvaluation struct {
	TaskNumber int              `json:"task_number"`
	Scores     []CriterionScore `json:"scores,omitempty"`
	Score      float64          `json:"score"`
	MaxScore   float64          `json:"max_score"`
	Verdict    string           `json:"verdict"`
}

// OverallEvaluation aggregates task evaluations into a final grade,
// weighted by each task's MaxScore.
type OverallEvaluation struct {
	TotalScore float64 `json:"total_score"`
	MaxScore   float64 `json:"max_score"`
	Percent    float64 `json:"percent"`
	Grade      string  `json:"grade"`
	Summary    string  `json:"summary"`
}
