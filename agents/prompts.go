package agents

import (
	"encoding/json"
	"fmt"
	"strings"
)

const graderSystemPrompt = `You are an expert reviewer of laboratory assignment submissions.
Rules:
1. Base every statement only on the provided assignment and submission content.
2. Never invent information. If something is absent, say so.
3. Be fair but thorough; give partial credit for incomplete but correct work.
4. Respond in the exact format the instructions request.`

const extractAssignmentPrompt = `Analyze the laboratory assignment specification that follows (text plus page
snapshots) and extract every task with its requirements.

Respond with a single JSON object:
{
  "title": "<assignment title>",
  "subject": "<course or subject name if stated>",
  "global_requirements": ["<requirements that apply to all tasks>"],
  "tasks": [
    {
      "number": <task number>,
      "title": "<task name>",
      "description": "<what the task asks for>",
      "requirements": ["<detailed requirements>"],
      "deliverables": ["<required deliverables>"],
      "evaluation_criteria": ["<criteria for grading, inferred when not stated>"],
      "max_score": <maximum points for the task, 100 when not stated>
    }
  ]
}

Guidelines:
- Use both the textual and the visual content of the specification.
- Identify every task; do not merge or skip tasks.
- Infer reasonable evaluation criteria when the specification states none.
- Never invent tasks or requirements that are not in the specification.

Assignment specification content follows.`

func buildFindAnswerPrompt(task Task, submission string) string {
	taskJSON, _ := json.Marshal(task)
	return fmt.Sprintf(`Find the part of the student submission that answers the task below.

Task specification:
%s

Student submission:
%s

FINAL_OUTPUT must be a single JSON object:
{
  "found": <true when the submission addresses this task>,
  "content": "<the submission fragment answering the task, verbatim where possible>",
  "code_excerpts": ["<code fragments belonging to this task>"],
  "visual_tags": ["<visual placeholder tags like <<IMAGE_2>> relevant to this task>"]
}

Guidelines:
- Extract only content related to this task; other tasks' work does not belong here.
- Keep visual placeholder tags exactly as they appear in the submission.
- When the submission contains nothing for this task, set found to false.

Response template (strictly follow):
THINKING: <numbered reasoning steps, 8 max, 20 words each>
FINAL_OUTPUT: <answer_json>`, taskJSON, submission)
}

func buildAnalyzePrompt(task Task, answer *TaskAnswer, visualNotes []string) string {
	taskJSON, _ := json.Marshal(task)
	answerJSON, _ := json.Marshal(answer)

	visuals := "none"
	if len(visualNotes) > 0 {
		visuals = strings.Join(visualNotes, "\n")
	}

	return fmt.Sprintf(`Analyze the student's work on the task below.

Task specification:
%s

Student's answer for this task:
%s

Descriptions of referenced figures:
%s

Inside <result>, respond with a single JSON object:
{
  "summary": "<what the student implemented and how>",
  "strengths": ["<positive aspects of the work>"],
  "weaknesses": ["<mistakes, omissions, or deviations from the requirements>"]
}

Guidelines:
- Compare the work against the task requirements point by point.
- Use the figure descriptions; diagrams often carry requirements or results.
- Note missing deliverables explicitly.

Response template (strict, include both tags):
<reasoning>numbered reasoning steps, 8 max, 20 words each</reasoning>
<result>analysis_json</result>`, taskJSON, answerJSON, visuals)
}

func buildEvaluatePrompt(task Task, analysis *TaskAnalysis) string {
	taskJSON, _ := json.Marshal(task)
	analysisJSON, _ := json.Marshal(analysis)

	return fmt.Sprintf(`Grade the student's work on the task below.

Task specification:
%s

Analysis of the student's work:
%s

FINAL_OUTPUT must be a single JSON object:
{
  "verdict": "<complete|partial|incomplete>",
  "score": <overall score from 0 to %.0f>,
  "criterion_scores": [
    {"criterion": "functionality", "score": <0-10>, "max_score": 10, "comment": "<does the implementation work as required>"},
    {"criterion": "completeness", "score": <0-10>, "max_score": 10, "comment": "<are all requirements addressed>"},
    {"criterion": "code quality", "score": <0-10>, "max_score": 10, "comment": "<is the work well organized and readable>"},
    {"criterion": "documentation", "score": <0-10>, "max_score": 10, "comment": "<is the work properly documented>"}
  ]
}

Guidelines:
- Grade against the task requirements and evaluation criteria.
- Give partial credit for incomplete but correct implementations.
- The overall score must be consistent with the criterion scores and the verdict.

Response template (strictly follow):
THINKING: <numbered reasoning steps, 8 max, 20 words each>
FINAL_OUTPUT: <evaluation_json>`, taskJSON, analysisJSON, task.MaxScore)
}

const describeVisualPrompt = `Describe the content of this image from a student's lab submission.

First classify it (flowchart, UML diagram, chart, code or pseudocode, table,
schematic, screenshot, text, other), then parse its content in the most
appropriate structured form: markdown tables for tables, pseudocode for
algorithms, structured text for diagrams. Preserve all labels, values, and
connections exactly.

Response template (strict, include both tags):
<reasoning>numbered reasoning steps, 8 max, 20 words each</reasoning>
<result>image type, parsed content, and a one-line description</result>`
