package main

import (
	"github.com/spf13/cobra"

	"file-assistant/internal/scheduler"
)

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Recursively delete directories matching the given patterns",
	Long: `Deletes every directory below the root matched by one of the patterns,
with all of its contents. Deletion is permanent. The first directory that
cannot be removed stops the run; directories removed before it stay removed.`,
	Args: cobra.NoArgs,
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().StringSlice("pattern", nil, "Directory patterns to remove (e.g. test,trash)")
	removeCmd.Flags().Bool("dry-run", false, "Report what would be removed without deleting")

	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	w, err := scheduler.NewWalker(e.cfg, e.deps())
	if err != nil {
		return &configError{err: err}
	}

	report, err := w.Remove(e.cfg.RemovePatterns)
	if report != nil {
		printRemove(cmd.OutOrStdout(), report)
	}
	return err
}
