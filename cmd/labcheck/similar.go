package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/labcheck"
)

var (
	flagSimilarText string
	flagSimilarFrom string
	flagSimilarPDF  string
	flagSimilarK    int
)

var similarCmd = &cobra.Command{
	Use:   "similar",
	Short: "Find archived submissions similar to a text",
	Long: `Similar embeds the given text and searches the archive for the closest
previously graded submissions. Requires an embedding provider in the
configuration and archived runs to search against.`,
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

		text := flagSimilarText
		switch {
		case flagSimilarFrom != "":
			data, err := os.ReadFile(flagSimilarFrom)
			if err != nil {
				return fmt.Errorf("reading text file: %w", err)
			}
			text = string(data)
		case flagSimilarPDF != "":
			doc, err := checker.ParseDocument(cmd.Context(), flagSimilarPDF)
			if err != nil {
				return err
			}
			text = doc.Text
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("no query text: pass --text, --text-from, or --pdf")
		}

		hits, err := checker.SimilarSubmissions(cmd.Context(), text, flagSimilarK)
		if err != nil {
			return err
		}
		formatSimilar(cmd.OutOrStdout(), hits)
		return nil
	},
}

func init() {
	similarCmd.Flags().StringVar(&flagSimilarText, "text", "", "query text")
	similarCmd.Flags().StringVar(&flagSimilarFrom, "text-from", "", "read query text from this file")
	similarCmd.Flags().StringVar(&flagSimilarPDF, "pdf", "", "parse this PDF and use its text as the query")
	similarCmd.Flags().IntVar(&flagSimilarK, "k", 5, "number of results")
	rootCmd.AddCommand(similarCmd)
}
