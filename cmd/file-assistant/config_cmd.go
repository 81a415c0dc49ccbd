package main

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the effective configuration as YAML",
	Long: `Prints the configuration after the config file, FILE_ASSISTANT_*
environment variables and flags have been applied, with defaults filled in.`,
	Args: cobra.NoArgs,
	RunE: runConfigPrint,
}

func init() {
	configPrintCmd.Flags().StringSlice("ext", nil, "File name suffixes to count")
	configPrintCmd.Flags().StringSlice("skip", nil, "Directory patterns to skip while counting")
	configPrintCmd.Flags().StringSlice("pattern", nil, "Directory patterns to remove")
	configPrintCmd.Flags().Bool("dry-run", false, "Report what would be removed without deleting")
	configPrintCmd.Flags().Int("interval", 0, "Minutes between cycles")

	configCmd.AddCommand(configPrintCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigPrint(cmd *cobra.Command, args []string) error {
	v, err := newViper(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(v)
	if err != nil {
		return &configError{err: err}
	}

	out, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
