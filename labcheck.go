// Package labcheck grades laboratory assignment submissions. It parses
// the assignment specification and the student submission PDFs into
// positioned text and visual elements, extracts the assignment's task
// list with a vision LLM, then locates, analyzes, and scores each
// task's answer in the submission. Runs can be archived in SQLite with
// submission embeddings for similarity lookup across prior submissions.
package labcheck

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brunobiangulo/labcheck/agents"
	"github.com/brunobiangulo/labcheck/docparse"
	"github.com/brunobiangulo/labcheck/llm"
	"github.com/brunobiangulo/labcheck/report"
	"github.com/brunobiangulo/labcheck/store"
)

// Checker is the main entry point for assignment grading.
type Checker interface {
	// ParseDocument runs the core PDF pipeline on one file.
	ParseDocument(ctx context.Context, path string, opts ...docparse.Option) (*docparse.ParsedDocument, error)

	// ExtractAssignment parses an assignment PDF and extracts its task list.
	ExtractAssignment(ctx context.Context, assignmentPath string, opts ...docparse.Option) (*agents.Assignment, error)

	// RunFullAnalysis grades a submission against an assignment end to end.
	RunFullAnalysis(ctx context.Context, assignmentPath, submissionPath string, opts ...AnalyzeOption) (*AnalysisReport, error)

	// SimilarSubmissions finds archived submissions closest to the given text.
	SimilarSubmissions(ctx context.Context, text string, k int) ([]store.SimilarSubmission, error)

	// Store returns the underlying archive for diagnostic access.
	Store() *store.Store

	// Close cleanly shuts down the checker.
	Close() error
}

// AnalysisReport is the full result of one grading run.
type AnalysisReport struct {
	Assignment     *agents.Assignment       `json:"assignment"`
	TaskAnswers    []agents.TaskAnswer      `json:"task_answers,omitempty"`
	Analyses       []agents.TaskAnalysis    `json:"analyses,omitempty"`
	Evaluations    []agents.TaskEvaluation  `json:"evaluations,omitempty"`
	Overall        agents.OverallEvaluation `json:"overall"`
	Student        string                   `json:"student,omitempty"`
	AssignmentPath string                   `json:"assignment_path"`
	SubmissionPath string                   `json:"submission_path"`
	ParseStats     ParseStats               `json:"parse_stats"`
	Errors         []string                 `json:"errors,omitempty"`
	RunDir         string                   `json:"run_dir,omitempty"`
	RunID          int64                    `json:"run_id,omitempty"`
}

// ParseStats summarizes the two parsed documents.
type ParseStats struct {
	AssignmentPages   int `json:"assignment_pages"`
	AssignmentVisuals int `json:"assignment_visuals"`
	SubmissionPages   int `json:"submission_pages"`
	SubmissionVisuals int `json:"submission_visuals"`
}

// AnalyzeOption configures a grading run.
type AnalyzeOption func(*analyzeOptions)

type analyzeOptions struct {
	student   string
	outputDir string
	archive   bool
	parseOpts []docparse.Option
}

// WithStudent attaches a student identifier to the run.
func WithStudent(name string) AnalyzeOption {
	return func(o *analyzeOptions) { o.student = name }
}

// WithOutputDir overrides the configured artifact base directory for this run.
func WithOutputDir(dir string) AnalyzeOption {
	return func(o *analyzeOptions) { o.outputDir = dir }
}

// WithArchive stores the run and its submission embedding in the archive.
func WithArchive() AnalyzeOption {
	return func(o *analyzeOptions) { o.archive = true }
}

// WithParseOptions forwards options to both document parses.
func WithParseOptions(opts ...docparse.Option) AnalyzeOption {
	return func(o *analyzeOptions) { o.parseOpts = append(o.parseOpts, opts...) }
}

// checker is the concrete implementation of Checker.
type checker struct {
	cfg       Config
	store     *store.Store
	chatLLM   llm.Provider
	visionLLM llm.VisionProvider
	embedLLM  llm.Provider // nil when no embedding provider configured

	extractor *agents.AssignmentExtractor
	analyzer  *agents.SubmissionAnalyzer
	evaluator *agents.Evaluator
	describer *agents.VisualDescriber
}

// New creates a new checker with the given configuration.
func New(cfg Config) (Checker, error) {
	if cfg.Chat.Provider == "" {
		return nil, fmt.Errorf("%w: chat provider not set", ErrInvalidConfig)
	}
	// Vision defaults to the chat endpoint; every supported provider
	// speaks the multimodal chat format.
	if cfg.Vision.Provider == "" {
		cfg.Vision = cfg.Chat
	}
	if cfg.EmbeddingDim == 0 {
		cfg.EmbeddingDim = 768
	}

	s, err := store.New(cfg.resolveDBPath(), cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("opening archive store: %w", err)
	}

	chatLLM, err := llm.NewProvider(llm.Config{
		Provider: cfg.Chat.Provider,
		Model:    cfg.Chat.Model,
		BaseURL:  cfg.Chat.BaseURL,
		APIKey:   cfg.Chat.APIKey,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating chat provider: %w", err)
	}

	visionP, err := llm.NewProvider(llm.Config{
		Provider: cfg.Vision.Provider,
		Model:    cfg.Vision.Model,
		BaseURL:  cfg.Vision.BaseURL,
		APIKey:   cfg.Vision.APIKey,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating vision provider: %w", err)
	}
	visionLLM, ok := visionP.(llm.VisionProvider)
	if !ok {
		s.Close()
		return nil, fmt.Errorf("%w: provider %q cannot serve vision requests", ErrInvalidConfig, cfg.Vision.Provider)
	}

	var embedLLM llm.Provider
	if cfg.Embedding.Provider != "" {
		embedLLM, err = llm.NewProvider(llm.Config{
			Provider: cfg.Embedding.Provider,
			Model:    cfg.Embedding.Model,
			BaseURL:  cfg.Embedding.BaseURL,
			APIKey:   cfg.Embedding.APIKey,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("creating embedding provider: %w", err)
		}
	}

	return &checker{
		cfg:       cfg,
		store:     s,
		chatLLM:   chatLLM,
		visionLLM: visionLLM,
		embedLLM:  embedLLM,
		extractor: agents.NewAssignmentExtractor(visionLLM),
		analyzer:  agents.NewSubmissionAnalyzer(chatLLM),
		evaluator: agents.NewEvaluator(chatLLM),
		describer: agents.NewVisualDescriber(visionLLM),
	}, nil
}

// ParseDocument runs the core PDF pipeline on one file.
func (c *checker) ParseDocument(ctx context.Context, path string, opts ...docparse.Option) (*docparse.ParsedDocument, error) {
	return docparse.Parse(ctx, path, opts...)
}

// ExtractAssignment parses an assignment PDF and extracts its task list.
func (c *checker) ExtractAssignment(ctx context.Context, assignmentPath string, opts ...docparse.Option) (*agents.Assignment, error) {
	doc, err := docparse.Parse(ctx, assignmentPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("parsing assignment: %w", err)
	}

	assignment, err := c.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: extracting assignment: %v", ErrLLMRequest, err)
	}
	assignment.Metadata.Source = assignmentPath
	return assignment, nil
}

// RunFullAnalysis runs the whole grading workflow: parse both documents,
// extract the task list, then per task locate the answer, analyze it, and
// score it. Per-task agent failures mark that task ungraded and continue;
// document open and assignment extraction failures abort the run.
func (c *checker) RunFullAnalysis(ctx context.Context, assignmentPath, submissionPath string, opts ...AnalyzeOption) (*AnalysisReport, error) {
	options := &analyzeOptions{}
	for _, o := range opts {
		o(options)
	}

	start := time.Now()

	outBase := c.cfg.OutputDir
	if options.outputDir != "" {
		outBase = options.outputDir
	}
	var runDir string
	if outBase != "" {
		var err error
		runDir, err = report.NewRunDir(outBase)
		if err != nil {
			return nil, err
		}
		slog.Info("analysis: run directory created", "dir", runDir)
	}

	// Artifact writes are best-effort; a failed write never fails the run.
	writeArtifact := func(name string, v any) {
		if runDir == "" {
			return
		}
		if err := report.WriteArtifact(runDir, name, v); err != nil {
			slog.Warn("analysis: artifact write failed", "name", name, "error", err)
		}
	}
	writeTaskArtifact := func(n int, step string, v any) {
		if runDir == "" {
			return
		}
		if err := report.WriteTaskArtifact(runDir, n, step, v); err != nil {
			slog.Warn("analysis: artifact write failed", "task", n, "step", step, "error", err)
		}
	}

	meta := map[string]any{
		"assignment":   assignmentPath,
		"submission":   submissionPath,
		"student":      options.student,
		"chat_model":   c.cfg.Chat.Model,
		"vision_model": c.cfg.Vision.Model,
		"started_at":   start.Format(time.RFC3339),
	}
	writeArtifact("metadata", meta)

	// Parse both documents. Open failures abort the run.
	assignmentDoc, err := docparse.Parse(ctx, assignmentPath, options.parseOpts...)
	if err != nil {
		return nil, fmt.Errorf("parsing assignment: %w", err)
	}
	submissionDoc, err := docparse.Parse(ctx, submissionPath, options.parseOpts...)
	if err != nil {
		return nil, fmt.Errorf("parsing submission: %w", err)
	}
	slog.Info("analysis: documents parsed",
		"assignment_pages", assignmentDoc.PageCount,
		"submission_pages", submissionDoc.PageCount,
		"submission_visuals", len(submissionDoc.Visuals),
		"elapsed", time.Since(start).Round(time.Millisecond))

	// Extract the task list. Fatal: nothing to grade against without it.
	assignment, err := c.extractor.Extract(ctx, assignmentDoc)
	if err != nil {
		return nil, fmt.Errorf("%w: extracting assignment: %v", ErrLLMRequest, err)
	}
	assignment.Metadata.Source = assignmentPath
	writeArtifact("assignment", assignment)

	rep := &AnalysisReport{
		Assignment:     assignment,
		Student:        options.student,
		AssignmentPath: assignmentPath,
		SubmissionPath: submissionPath,
		RunDir:         runDir,
		ParseStats: ParseStats{
			AssignmentPages:   assignmentDoc.PageCount,
			AssignmentVisuals: len(assignmentDoc.Visuals),
			SubmissionPages:   submissionDoc.PageCount,
			SubmissionVisuals: len(submissionDoc.Visuals),
		},
	}

	// Visual descriptions are cached per token; answers to different
	// tasks often reference the same figure.
	visualByToken := make(map[string]docparse.VisualElement, len(submissionDoc.Visuals))
	for _, v := range submissionDoc.Visuals {
		visualByToken[v.Token()] = v
	}
	descCache := make(map[string]string)

	failTask := func(task agents.Task, step string, err error) {
		slog.Warn("analysis: task step failed", "task", task.Number, "step", step, "error", err)
		rep.Errors = append(rep.Errors, fmt.Sprintf("task %d: %s: %v", task.Number, step, err))
		rep.Evaluations = append(rep.Evaluations, agents.TaskEvaluation{
			TaskNumber: task.Number,
			MaxScore:   task.MaxScore,
			Verdict:    "ungraded",
		})
	}

	for _, task := range assignment.Tasks {
		answer, err := c.analyzer.FindAnswer(ctx, task, submissionDoc)
		if err != nil {
			failTask(task, "finding answer", err)
			continue
		}
		rep.TaskAnswers = append(rep.TaskAnswers, *answer)
		writeTaskArtifact(task.Number, "answer", answer)

		var visualNotes []string
		for _, tag := range answer.VisualTags {
			token := strings.ToUpper(strings.TrimSpace(tag))
			desc, cached := descCache[token]
			if !cached {
				v, found := visualByToken[token]
				if !found {
					continue
				}
				d, derr := c.describer.Describe(ctx, v)
				if derr != nil {
					slog.Warn("analysis: visual description failed", "visual", token, "error", derr)
					continue
				}
				desc = d
				descCache[token] = d
			}
			visualNotes = append(visualNotes, fmt.Sprintf("%s: %s", token, desc))
		}

		analysis, err := c.analyzer.Analyze(ctx, task, answer, visualNotes)
		if err != nil {
			failTask(task, "analyzing answer", err)
			continue
		}
		rep.Analyses = append(rep.Analyses, *analysis)
		writeTaskArtifact(task.Number, "analysis", analysis)

		eval, err := c.evaluator.Evaluate(ctx, task, analysis)
		if err != nil {
			failTask(task, "evaluating", err)
			continue
		}
		rep.Evaluations = append(rep.Evaluations, *eval)
		writeTaskArtifact(task.Number, "evaluation", eval)
	}

	rep.Overall = c.evaluator.Overall(rep.Evaluations)
	slog.Info("analysis: run complete",
		"tasks", len(assignment.Tasks),
		"failed_steps", len(rep.Errors),
		"percent", rep.Overall.Percent,
		"grade", rep.Overall.Grade,
		"elapsed", time.Since(start).Round(time.Millisecond))

	// Optional archive. Failures are recorded, never fatal: the grading
	// result already exists.
	if options.archive {
		runID, err := c.archiveRun(ctx, rep, submissionDoc)
		if err != nil {
			slog.Warn("analysis: archiving failed", "error", err)
			rep.Errors = append(rep.Errors, fmt.Sprintf("archiving: %v", err))
		} else {
			rep.RunID = runID
		}
	}

	meta["elapsed"] = time.Since(start).Round(time.Millisecond).String()
	writeArtifact("metadata", meta)
	writeArtifact("report", rep)

	return rep, nil
}

// SimilarSubmissions embeds the given text and searches the archive for
// the k closest prior submissions.
func (c *checker) SimilarSubmissions(ctx context.Context, text string, k int) ([]store.SimilarSubmission, error) {
	if c.embedLLM == nil {
		return nil, ErrNoEmbedding
	}
	if k <= 0 {
		k = 5
	}

	vecs, err := c.embedLLM.Embed(ctx, []string{truncateForEmbed(text)})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query text: %v", ErrLLMRequest, err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("%w: embedding query text: empty response", ErrLLMRequest)
	}
	return c.store.SimilarSubmissions(ctx, vecs[0], k)
}

// Store returns the underlying archive for diagnostic access.
func (c *checker) Store() *store.Store {
	return c.store
}

// Close cleanly shuts down the checker.
func (c *checker) Close() error {
	return c.store.Close()
}

// archiveRun persists the run, its task results, and the submission
// embedding. The embedding is skipped (with a warning) when no embedding
// provider is configured.
func (c *checker) archiveRun(ctx context.Context, rep *AnalysisReport, submission *docparse.ParsedDocument) (int64, error) {
	reportJSON, err := json.Marshal(rep)
	if err != nil {
		return 0, fmt.Errorf("marshaling report: %w", err)
	}

	titles := make(map[int]string, len(rep.Assignment.Tasks))
	for _, t := range rep.Assignment.Tasks {
		titles[t.Number] = t.Title
	}
	tasks := make([]store.TaskResult, 0, len(rep.Evaluations))
	for _, ev := range rep.Evaluations {
		tasks = append(tasks, store.TaskResult{
			TaskNumber: ev.TaskNumber,
			Title:      titles[ev.TaskNumber],
			Score:      ev.Score,
			MaxScore:   ev.MaxScore,
			Verdict:    ev.Verdict,
		})
	}

	runID, err := c.store.ArchiveRun(ctx, store.Run{
		AssignmentPath:  rep.AssignmentPath,
		AssignmentTitle: rep.Assignment.Title,
		SubmissionPath:  rep.SubmissionPath,
		Student:         rep.Student,
		TotalScore:      rep.Overall.TotalScore,
		MaxScore:        rep.Overall.MaxScore,
		Percent:         rep.Overall.Percent,
		Grade:           rep.Overall.Grade,
		Report:          string(reportJSON),
	}, tasks)
	if err != nil {
		return 0, fmt.Errorf("archiving run: %w", err)
	}
	slog.Info("archive: run stored", "run_id", runID, "tasks", len(tasks))

	hash := textHash(submission.Text)
	if prior, err := c.store.RunsWithSubmissionHash(ctx, hash); err == nil && len(prior) > 0 {
		slog.Warn("archive: identical submission text already archived", "runs", prior)
	}

	if c.embedLLM == nil {
		slog.Warn("archive: no embedding provider, skipping submission embedding")
		return runID, nil
	}
	vecs, err := c.embedLLM.Embed(ctx, []string{truncateForEmbed(submission.Text)})
	if err != nil || len(vecs) == 0 {
		slog.Warn("archive: embedding submission failed", "error", err)
		return runID, nil
	}
	if _, err := c.store.InsertSubmissionEmbedding(ctx, runID, hash, excerpt(submission.Text), vecs[0]); err != nil {
		slog.Warn("archive: storing embedding failed", "error", err)
	}
	return runID, nil
}

// textHash hashes the parsed text rather than the file bytes, so the
// same content re-exported to a byte-different PDF still matches.
func textHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// maxEmbedChars is the maximum character length for a single text sent
// to the embedding model. Most embedding models have a context window of
// 8192 tokens; ~24000 chars (~6000 tokens) leaves headroom for varied
// tokenisers and languages where token/char ratios differ from English.
const maxEmbedChars = 24000

// truncateForEmbed truncates text to maxEmbedChars on a word boundary.
func truncateForEmbed(text string) string {
	if len(text) <= maxEmbedChars {
		return text
	}
	// Cut at the last space before the limit to avoid splitting a word.
	cut := strings.LastIndex(text[:maxEmbedChars], " ")
	if cut <= 0 {
		cut = maxEmbedChars
	}
	return text[:cut]
}

// excerptLen caps the archived submission excerpt; the full text lives
// in the report JSON.
const excerptLen = 500

func excerpt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= excerptLen {
		return text
	}
	cut := strings.LastIndex(text[:excerptLen], " ")
	if cut <= 0 {
		cut = excerptLen
	}
	return strings.TrimSpace(text[:cut])
}
