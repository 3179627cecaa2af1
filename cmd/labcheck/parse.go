package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/labcheck/docparse"
	"github.com/brunobiangulo/labcheck/report"
)

var (
	flagParsePasswd  string
	flagParseVisuals string
	flagParseJSON    string
)

var parseCmd = &cobra.Command{
	Use:   "parse <file.pdf>",
	Short: "Run the document pipeline on one PDF",
	Long: `Parse extracts a PDF into text with visual placeholder tokens plus the
visual elements themselves, without any LLM calls. The token-annotated
text goes to stdout; --json writes the full parse result instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []docparse.Option
		if flagParsePasswd != "" {
			opts = append(opts, docparse.WithPassword(flagParsePasswd))
		}
		if flagParseVisuals != "" {
			opts = append(opts, docparse.WithVisualDir(flagParseVisuals))
		}

		doc, err := docparse.Parse(cmd.Context(), args[0], opts...)
		if err != nil {
			return err
		}

		if flagParseJSON != "" {
			if err := report.WriteJSON(flagParseJSON, doc); err != nil {
				return err
			}
			formatParseSummary(cmd.OutOrStdout(), args[0], doc)
			fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("Parse result: "+flagParseJSON))
			return nil
		}

		formatParseSummary(cmd.ErrOrStderr(), args[0], doc)
		fmt.Fprintln(cmd.OutOrStdout(), doc.Text)
		return nil
	},
}

func init() {
	parseCmd.Flags().StringVar(&flagParsePasswd, "password", "", "password for encrypted PDFs")
	parseCmd.Flags().StringVar(&flagParseVisuals, "save-visuals", "", "save extracted visuals as PNGs under this directory")
	parseCmd.Flags().StringVar(&flagParseJSON, "json", "", "write the parse result as JSON to this path")
	rootCmd.AddCommand(parseCmd)
}
