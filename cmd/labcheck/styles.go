package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/brunobiangulo/labcheck"
	"github.com/brunobiangulo/labcheck/docparse"
	"github.com/brunobiangulo/labcheck/store"
)

var (
	// titleStyle for bold section headers
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	// dimStyle for muted metadata text
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// passStyle for passing verdicts and grades
	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	// warnStyle for partial verdicts
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	// failStyle for failing verdicts and errors
	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	// boxStyle for the report summary box
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1)
)

func verdictStyle(verdict string) lipgloss.Style {
	switch verdict {
	case "complete":
		return passStyle
	case "partial":
		return warnStyle
	default:
		return failStyle
	}
}

func gradeStyle(grade string) lipgloss.Style {
	switch grade {
	case "A", "B":
		return passStyle
	case "C", "D":
		return warnStyle
	default:
		return failStyle
	}
}

// formatReport renders the grading summary box: one line per task, the
// weighted overall grade, and any absorbed step failures.
func formatReport(w io.Writer, rep *labcheck.AnalysisReport) {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Grading Report"))
	b.WriteString("\n")
	if rep.Student != "" {
		b.WriteString(fmt.Sprintf("%s %s\n", dimStyle.Render("Student:"), rep.Student))
	}
	if rep.Assignment != nil && rep.Assignment.Title != "" {
		b.WriteString(fmt.Sprintf("%s %s\n", dimStyle.Render("Assignment:"), rep.Assignment.Title))
	}
	b.WriteString("\n")

	titles := make(map[int]string)
	if rep.Assignment != nil {
		for _, t := range rep.Assignment.Tasks {
			titles[t.Number] = t.Title
		}
	}
	for _, ev := range rep.Evaluations {
		title := titles[ev.TaskNumber]
		if len(title) > 38 {
			title = title[:35] + "..."
		}
		b.WriteString(fmt.Sprintf("%s %-38s %6.1f/%-6.1f %s\n",
			dimStyle.Render(fmt.Sprintf("Task %2d", ev.TaskNumber)),
			title,
			ev.Score, ev.MaxScore,
			verdictStyle(ev.Verdict).Render(ev.Verdict)))
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %.1f/%.1f (%.2f%%)  %s %s",
		dimStyle.Render("Total:"),
		rep.Overall.TotalScore, rep.Overall.MaxScore, rep.Overall.Percent,
		dimStyle.Render("Grade:"),
		gradeStyle(rep.Overall.Grade).Render(rep.Overall.Grade)))

	fmt.Fprintln(w, boxStyle.Render(b.String()))

	if len(rep.Errors) > 0 {
		fmt.Fprintln(w, failStyle.Render(fmt.Sprintf("%d step(s) failed:", len(rep.Errors))))
		for _, e := range rep.Errors {
			fmt.Fprintln(w, dimStyle.Render("  "+e))
		}
	}
	if rep.RunDir != "" {
		fmt.Fprintln(w, dimStyle.Render("Artifacts: "+rep.RunDir))
	}
	if rep.RunID != 0 {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("Archived as run %d", rep.RunID)))
	}
}

// formatParseSummary renders a short header for a standalone parse.
func formatParseSummary(w io.Writer, path string, doc *docparse.ParsedDocument) {
	images, diagrams := 0, 0
	for _, v := range doc.Visuals {
		if v.Kind == docparse.VisualDiagram {
			diagrams++
		} else {
			images++
		}
	}
	content := fmt.Sprintf("%s %s\n%s %d  %s %d  %s %d",
		dimStyle.Render("Document:"), titleStyle.Render(path),
		dimStyle.Render("Pages:"), doc.PageCount,
		dimStyle.Render("Images:"), images,
		dimStyle.Render("Diagrams:"), diagrams)
	fmt.Fprintln(w, boxStyle.Render(content))
}

// formatSimilar renders archive similarity hits, best first.
func formatSimilar(w io.Writer, hits []store.SimilarSubmission) {
	if len(hits) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No archived submissions matched."))
		return
	}
	for i, hit := range hits {
		student := hit.Student
		if student == "" {
			student = "(unknown)"
		}
		fmt.Fprintf(w, "%s %s  %s  %s\n",
			titleStyle.Render(fmt.Sprintf("%d.", i+1)),
			passStyle.Render(fmt.Sprintf("%.3f", hit.Score)),
			student,
			dimStyle.Render(fmt.Sprintf("run %d, %s", hit.RunID, hit.SubmissionPath)))
		if hit.Excerpt != "" {
			excerpt := hit.Excerpt
			if len(excerpt) > 120 {
				excerpt = excerpt[:117] + "..."
			}
			fmt.Fprintln(w, dimStyle.Render("   "+excerpt))
		}
	}
}
