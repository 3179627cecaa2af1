// Package report writes grading run artifacts: a timestamped run
// directory with per-step JSON files and an optional XLSX gradebook.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// NewRunDir creates base/<timestamp>/ and returns its path. An empty
// base defaults to "runs". When two runs start within the same second
// the later one gets a numeric suffix.
func NewRunDir(base string) (string, error) {
	if base == "" {
		base = "runs"
	}
	if err := os.MkdirAll(base, 0755); err != nil {
		return "", fmt.Errorf("creating run base directory: %w", err)
	}

	ts := time.Now().Format("2006-01-02_15-04-05")
	for i := 1; i <= 100; i++ {
		name := ts
		if i > 1 {
			name = fmt.Sprintf("%s_%d", ts, i)
		}
		dir := filepath.Join(base, name)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("creating run directory: %w", err)
		}
	}
	return "", fmt.Errorf("creating run directory: too many runs at %s", ts)
}

// WriteJSON marshals v to indented JSON and writes it to path.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// WriteArtifact writes v as <dir>/<name>.json.
func WriteArtifact(dir, name string, v any) error {
	return WriteJSON(filepath.Join(dir, name+".json"), v)
}

// WriteTaskArtifact writes v as <dir>/task_<n>_<step>.json, the naming
// used for per-task workflow steps (answer, analysis, evaluation).
func WriteTaskArtifact(dir string, taskNumber int, step string, v any) error {
	return WriteArtifact(dir, fmt.Sprintf("task_%d_%s", taskNumber, step), v)
}
