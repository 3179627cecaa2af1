package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/labcheck"
	"github.com/brunobiangulo/labcheck/report"
)

var (
	flagExportReport string
	flagExportXLSX   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write an XLSX gradebook from a saved report",
	Long: `Export reads a report.json produced by a grading run and writes its
scores as an XLSX gradebook.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(flagExportReport)
		if err != nil {
			return fmt.Errorf("reading report: %w", err)
		}
		var rep labcheck.AnalysisReport
		if err := json.Unmarshal(data, &rep); err != nil {
			return fmt.Errorf("decoding report %s: %w", flagExportReport, err)
		}

		if err := report.WriteGradebook(flagExportXLSX, gradebookFromReport(&rep)); err != nil {
			return fmt.Errorf("writing gradebook: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("Gradebook: "+flagExportXLSX))
		return nil
	},
}

// gradebookFromReport flattens a run report into gradebook rows, one per
// task evaluation, titled from the assignment's task list.
func gradebookFromReport(rep *labcheck.AnalysisReport) report.Gradebook {
	titles := make(map[int]string)
	title := ""
	if rep.Assignment != nil {
		title = rep.Assignment.Title
		for _, t := range rep.Assignment.Tasks {
			titles[t.Number] = t.Title
		}
	}

	rows := make([]report.GradebookRow, 0, len(rep.Evaluations))
	for _, ev := range rep.Evaluations {
		rows = append(rows, report.GradebookRow{
			Number:   ev.TaskNumber,
			Title:    titles[ev.TaskNumber],
			Score:    ev.Score,
			MaxScore: ev.MaxScore,
			Verdict:  ev.Verdict,
		})
	}

	return report.Gradebook{
		Student:         rep.Student,
		AssignmentTitle: title,
		Rows:            rows,
		Overall:         rep.Overall,
	}
}

func init() {
	exportCmd.Flags().StringVar(&flagExportReport, "run-json", "", "report.json from a grading run (required)")
	exportCmd.Flags().StringVar(&flagExportXLSX, "xlsx", "", "output XLSX path (required)")
	exportCmd.MarkFlagRequired("run-json")
	exportCmd.MarkFlagRequired("xlsx")
	rootCmd.AddCommand(exportCmd)
}
