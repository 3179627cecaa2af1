// Package store persists grading runs in SQLite and answers
// similarity queries over archived submission embeddings.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// Run represents a row in the runs table.
type Run struct {
	ID              int64   `json:"id"`
	AssignmentPath  string  `json:"assignment_path"`
	AssignmentTitle string  `json:"assignment_title,omitempty"`
	SubmissionPath  string  `json:"submission_path"`
	Student         string  `json:"student,omitempty"`
	TotalScore      float64 `json:"total_score"`
	MaxScore        float64 `json:"max_score"`
	Percent         float64 `json:"percent"`
	Grade           string  `json:"grade,omitempty"`
	Report          string  `json:"report,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// TaskResult represents a row in the task_results table.
type TaskResult struct {
	ID         int64   `json:"id"`
	RunID      int64   `json:"run_id"`
	TaskNumber int     `json:"task_number"`
	Title      string  `json:"title,omitempty"`
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"max_score"`
	Verdict    string  `json:"verdict,omitempty"`
}

// SimilarSubmission is one hit from a KNN search over archived submissions.
type SimilarSubmission struct {
	SubmissionID   int64   `json:"submission_id"`
	RunID          int64   `json:"run_id"`
	Student        string  `json:"student,omitempty"`
	SubmissionPath string  `json:"submission_path"`
	Excerpt        string  `json:"excerpt,omitempty"`
	Score          float64 `json:"score"`
}

// Store wraps the SQLite database for all grading persistence.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including the sqlite-vec virtual table.
func New(dbPath string, embeddingDim int) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Create schema
	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, embeddingDim: embeddingDim}

	// Run pending migrations.
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EmbeddingDim returns the configured embedding dimension.
func (s *Store) EmbeddingDim() int {
	return s.embeddingDim
}

// --- Run operations ---

// ArchiveRun stores a completed grading run with its per-task results
// in a single transaction. Returns the new run ID.
func (s *Store) ArchiveRun(ctx context.Context, run Run, tasks []TaskResult) (int64, error) {
	var runID int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO runs (assignment_path, assignment_title, submission_path, student,
				total_score, max_score, percent, grade, report)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.AssignmentPath, run.AssignmentTitle, run.SubmissionPath, run.Student,
			run.TotalScore, run.MaxScore, run.Percent, run.Grade, run.Report)
		if err != nil {
			return err
		}
		runID, err = res.LastInsertId()
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO task_results (run_id, task_number, title, score, max_score, verdict)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, t := range tasks {
			if _, err := stmt.ExecContext(ctx,
				runID, t.TaskNumber, t.Title, t.Score, t.MaxScore, t.Verdict); err != nil {
				return err
			}
		}
		return nil
	})
	return runID, err
}

// ListRuns returns all runs newest first. The report JSON is omitted
// from the listing; use GetRun to load it.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, assignment_path, COALESCE(assignment_title, ''), submission_path,
			COALESCE(student, ''), total_score, max_score, percent, COALESCE(grade, ''), created_at
		FROM runs ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.AssignmentPath, &r.AssignmentTitle, &r.SubmissionPath,
			&r.Student, &r.TotalScore, &r.MaxScore, &r.Percent, &r.Grade, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun retrieves a run with its full report JSON and per-task results.
func (s *Store) GetRun(ctx context.Context, id int64) (*Run, []TaskResult, error) {
	r := &Run{}
	var title, student, grade, report sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, assignment_path, assignment_title, submission_path, student,
			total_score, max_score, percent, grade, report, created_at
		FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.AssignmentPath, &title, &r.SubmissionPath, &student,
		&r.TotalScore, &r.MaxScore, &r.Percent, &grade, &report, &r.CreatedAt)
	if err != nil {
		return nil, nil, err
	}
	r.AssignmentTitle = title.String
	r.Student = student.String
	r.Grade = grade.String
	r.Report = report.String

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, task_number, COALESCE(title, ''), score, max_score, COALESCE(verdict, '')
		FROM task_results WHERE run_id = ? ORDER BY task_number
	`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var tasks []TaskResult
	for rows.Next() {
		var t TaskResult
		if err := rows.Scan(&t.ID, &t.RunID, &t.TaskNumber, &t.Title,
			&t.Score, &t.MaxScore, &t.Verdict); err != nil {
			return nil, nil, err
		}
		tasks = append(tasks, t)
	}
	return r, tasks, rows.Err()
}

// DeleteRun removes a run and cascades to its task results, submission
// rows, and embeddings.
func (s *Store) DeleteRun(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		// vec0 tables have no FK support, delete embeddings explicitly.
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM vec_submissions WHERE submission_id IN (
				SELECT id FROM submissions WHERE run_id = ?
			)`, id); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM submissions WHERE run_id = ?", id); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM task_results WHERE run_id = ?", id); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM runs WHERE id = ?", id); err != nil {
			return err
		}

		return nil
	})
}

// --- Submission embedding operations ---

// InsertSubmissionEmbedding registers the submission text of a run and
// stores its vector embedding. Returns the submission ID.
func (s *Store) InsertSubmissionEmbedding(ctx context.Context, runID int64, contentHash, excerpt string, embedding []float32) (int64, error) {
	var subID int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO submissions (run_id, content_hash, excerpt) VALUES (?, ?, ?)",
			runID, contentHash, excerpt)
		if err != nil {
			return err
		}
		subID, err = res.LastInsertId()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO vec_submissions (submission_id, embedding) VALUES (?, ?)",
			subID, serializeFloat32(embedding))
		return err
	})
	return subID, err
}

// SimilarSubmissions performs a KNN search returning the top-k archived
// submissions closest to the query embedding.
func (s *Store) SimilarSubmissions(ctx context.Context, queryEmbedding []float32, k int) ([]SimilarSubmission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.submission_id, v.distance,
			sub.run_id, COALESCE(sub.excerpt, ''),
			r.submission_path, COALESCE(r.student, '')
		FROM vec_submissions v
		JOIN submissions sub ON sub.id = v.submission_id
		JOIN runs r ON r.id = sub.run_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, serializeFloat32(queryEmbedding), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SimilarSubmission
	for rows.Next() {
		var hit SimilarSubmission
		var distance float64
		if err := rows.Scan(&hit.SubmissionID, &distance,
			&hit.RunID, &hit.Excerpt, &hit.SubmissionPath, &hit.Student); err != nil {
			return nil, err
		}
		// Cosine distance to similarity score.
		hit.Score = 1.0 - distance
		results = append(results, hit)
	}
	return results, rows.Err()
}

// RunsWithSubmissionHash returns IDs of runs that already archived a
// submission with the given content hash. Used to flag resubmissions.
func (s *Store) RunsWithSubmissionHash(ctx context.Context, contentHash string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT run_id FROM submissions WHERE content_hash = ? ORDER BY run_id", contentHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
