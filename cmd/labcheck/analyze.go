package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/labcheck"
	"github.com/brunobiangulo/labcheck/docparse"
	"github.com/brunobiangulo/labcheck/report"
)

var (
	flagAssignment     string
	flagSubmission     string
	flagStudent        string
	flagOutDir         string
	flagAnalyzeVisuals string
	flagXLSX           string
	flagArchive        bool
	flagAnalyzePasswd  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Grade a submission against an assignment",
	Long: `Analyze parses the assignment and submission PDFs, extracts the
assignment's task list, locates and analyzes each task's answer in the
submission, and grades every task plus the overall result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		checker, err := labcheck.New(cfg)
		if err != nil {
			return err
		}
		defer checker.Close()

		var opts []labcheck.AnalyzeOption
		if flagStudent != "" {
			opts = append(opts, labcheck.WithStudent(flagStudent))
		}
		if flagOutDir != "" {
			opts = append(opts, labcheck.WithOutputDir(flagOutDir))
		}
		if flagArchive {
			opts = append(opts, labcheck.WithArchive())
		}
		var parseOpts []docparse.Option
		if flagAnalyzePasswd != "" {
			parseOpts = append(parseOpts, docparse.WithPassword(flagAnalyzePasswd))
		}
		if flagAnalyzeVisuals != "" {
			parseOpts = append(parseOpts, docparse.WithVisualDir(flagAnalyzeVisuals))
		}
		if len(parseOpts) > 0 {
			opts = append(opts, labcheck.WithParseOptions(parseOpts...))
		}

		rep, err := checker.RunFullAnalysis(cmd.Context(), flagAssignment, flagSubmission, opts...)
		if err != nil {
			return err
		}

		formatReport(cmd.OutOrStdout(), rep)

		if flagXLSX != "" {
			if err := report.WriteGradebook(flagXLSX, gradebookFromReport(rep)); err != nil {
				return fmt.Errorf("writing gradebook: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("Gradebook: "+flagXLSX))
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&flagAssignment, "assignment", "", "assignment specification PDF (required)")
	analyzeCmd.Flags().StringVar(&flagSubmission, "submission", "", "student submission PDF (required)")
	analyzeCmd.Flags().StringVar(&flagStudent, "student", "", "student identifier for the report and archive")
	analyzeCmd.Flags().StringVar(&flagOutDir, "outdir", "", "base directory for run artifacts (overrides config)")
	analyzeCmd.Flags().StringVar(&flagAnalyzeVisuals, "save-visuals", "", "also save extracted visuals as PNGs under this directory")
	analyzeCmd.Flags().StringVar(&flagXLSX, "xlsx", "", "write an XLSX gradebook to this path")
	analyzeCmd.Flags().BoolVar(&flagArchive, "archive", false, "archive the run and submission embedding")
	analyzeCmd.Flags().StringVar(&flagAnalyzePasswd, "password", "", "password for encrypted PDFs")
	analyzeCmd.MarkFlagRequired("assignment")
	analyzeCmd.MarkFlagRequired("submission")
	rootCmd.AddCommand(analyzeCmd)
}
