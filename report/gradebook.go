package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/labcheck/agents"
)

const (
	sheetSummary = "Summary"
	sheetTasks   = "Tasks"
)

// GradebookRow is one task line on the Tasks sheet.
type GradebookRow struct {
	Number   int
	Title    string
	Score    float64
	MaxScore float64
	Verdict  string
}

// Gradebook holds everything WriteGradebook needs to lay out a workbook.
type Gradebook struct {
	Student         string
	AssignmentTitle string
	Rows            []GradebookRow
	Overall         agents.OverallEvaluation
}

// WriteGradebook writes an XLSX workbook at path with a Summary sheet
// (student, totals, grade) and a Tasks sheet (one row per task).
// Scores stay numeric cells so the workbook remains spreadsheet-usable.
func WriteGradebook(path string, g Gradebook) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("renaming summary sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetTasks); err != nil {
		return fmt.Errorf("creating tasks sheet: %w", err)
	}

	// Cell writes only fail on malformed references, collect the first.
	var firstErr error
	set := func(sheet, cell string, v any) {
		if err := f.SetCellValue(sheet, cell, v); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	set(sheetSummary, "A1", "Student")
	set(sheetSummary, "B1", g.Student)
	set(sheetSummary, "A2", "Assignment")
	set(sheetSummary, "B2", g.AssignmentTitle)
	set(sheetSummary, "A3", "Tasks graded")
	set(sheetSummary, "B3", len(g.Rows))
	set(sheetSummary, "A4", "Total score")
	set(sheetSummary, "B4", g.Overall.TotalScore)
	set(sheetSummary, "A5", "Max score")
	set(sheetSummary, "B5", g.Overall.MaxScore)
	set(sheetSummary, "A6", "Percent")
	set(sheetSummary, "B6", g.Overall.Percent)
	set(sheetSummary, "A7", "Grade")
	set(sheetSummary, "B7", g.Overall.Grade)
	set(sheetSummary, "A8", "Summary")
	set(sheetSummary, "B8", g.Overall.Summary)

	set(sheetTasks, "A1", "#")
	set(sheetTasks, "B1", "Title")
	set(sheetTasks, "C1", "Score")
	set(sheetTasks, "D1", "Max score")
	set(sheetTasks, "E1", "Verdict")

	for i, row := range g.Rows {
		r := i + 2
		set(sheetTasks, fmt.Sprintf("A%d", r), row.Number)
		set(sheetTasks, fmt.Sprintf("B%d", r), row.Title)
		set(sheetTasks, fmt.Sprintf("C%d", r), row.Score)
		set(sheetTasks, fmt.Sprintf("D%d", r), row.MaxScore)
		set(sheetTasks, fmt.Sprintf("E%d", r), row.Verdict)
	}
	if firstErr != nil {
		return fmt.Errorf("filling gradebook cells: %w", firstErr)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	if err := f.SetCellStyle(sheetTasks, "A1", "E1", headerStyle); err != nil {
		return fmt.Errorf("styling tasks header: %w", err)
	}
	if err := f.SetCellStyle(sheetSummary, "A1", "A8", headerStyle); err != nil {
		return fmt.Errorf("styling summary labels: %w", err)
	}
	if err := f.SetColWidth(sheetTasks, "B", "B", 40); err != nil {
		return fmt.Errorf("sizing title column: %w", err)
	}

	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving gradebook: %w", err)
	}
	return nil
}
