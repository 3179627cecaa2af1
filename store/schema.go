package store

import "fmt"

// schemaSQL returns the DDL for all tables. embeddingDim controls the
// vec0 virtual table dimension.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
-- One row per completed grading run
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY,
    assignment_path TEXT NOT NULL,
    assignment_title TEXT,
    submission_path TEXT NOT NULL,
    student TEXT,
    total_score REAL NOT NULL DEFAULT 0,
    max_score REAL NOT NULL DEFAULT 0,
    percent REAL NOT NULL DEFAULT 0,
    grade TEXT,
    report JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Per-task outcome of a run
CREATE TABLE IF NOT EXISTS task_results (
    id INTEGER PRIMARY KEY,
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    task_number INTEGER NOT NULL,
    title TEXT,
    score REAL NOT NULL DEFAULT 0,
    max_score REAL NOT NULL DEFAULT 0,
    verdict TEXT
);

-- Submission text registry with hash-based duplicate detection
CREATE TABLE IF NOT EXISTS submissions (
    id INTEGER PRIMARY KEY,
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    content_hash TEXT NOT NULL,
    excerpt TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Submission embeddings via sqlite-vec
CREATE VIRTUAL TABLE IF NOT EXISTS vec_submissions USING vec0(
    submission_id INTEGER PRIMARY KEY,
    embedding float[%d] distance_metric=cosine
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_task_results_run ON task_results(run_id);
CREATE INDEX IF NOT EXISTS idx_submissions_run ON submissions(run_id);
CREATE INDEX IF NOT EXISTS idx_submissions_hash ON submissions(content_hash);
CREATE INDEX IF NOT EXISTS idx_runs_student ON runs(student);
`, embeddingDim)
}
