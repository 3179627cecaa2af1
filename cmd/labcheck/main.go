// Command labcheck grades lab assignment submissions from the terminal.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/labcheck"
)

var (
	flagConfig  string
	flagVerbose bool
	flagLogFile string

	logFile *os.File
)

var rootCmd = &cobra.Command{
	Use:   "labcheck",
	Short: "Grade lab assignment submissions with LLM agents",
	Long: `labcheck parses assignment and submission PDFs into positioned text and
visual elements, extracts the assignment's task list, then locates,
analyzes, and grades each task's answer in the submission.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logFile != nil {
			logFile.Close()
		}
	},
}

// setupLogging installs the slog text handler, optionally teeing to a file.
func setupLogging(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if flagLogFile != "" {
		f, err := os.Create(flagLogFile)
		if err != nil {
			return fmt.Errorf("creating log file: %w", err)
		}
		logFile = f
		w = io.MultiWriter(os.Stderr, f)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig resolves the effective configuration for a command.
func loadConfig() (labcheck.Config, error) {
	if flagConfig != "" {
		return labcheck.LoadConfig(flagConfig)
	}
	return labcheck.DefaultConfig(), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "also write logs to this file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
