package main

import (
	"github.com/spf13/cobra"

	"file-assistant/internal/scheduler"
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count lines in files with the given extensions",
	Long: `Counts the lines of every file below the root whose name ends with one of
the extensions. Directories matching a skip pattern are not entered.
Unreadable or non-UTF-8 files are reported and count as zero.`,
	Args: cobra.NoArgs,
	RunE: runCount,
}

func init() {
	countCmd.Flags().StringSlice("ext", nil, "File name suffixes to count (e.g. .py,.js,html)")
	countCmd.Flags().StringSlice("skip", nil, "Directory patterns to skip (e.g. venv,__pycache__)")

	rootCmd.AddCommand(countCmd)
}

func runCount(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	w, err := scheduler.NewWalker(e.cfg, e.deps())
	if err != nil {
		return &configError{err: err}
	}

	report, err := w.Count(e.cfg.Extensions, e.cfg.SkipPatterns)
	if err != nil {
		return err
	}

	printCount(cmd.OutOrStdout(), report)
	return nil
}
