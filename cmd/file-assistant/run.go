package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"file-assistant/internal/metrics"
	"file-assistant/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Count and then remove, once or on an interval",
	Long: `Runs the configured line count followed by the configured directory
removal. Without --once the cycle repeats every --interval minutes, and
whenever POST /trigger is sent to the metrics server, until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Bool("once", false, "Run one cycle and exit")
	runCmd.Flags().Int("interval", 0, "Minutes between cycles (default 60)")
	runCmd.Flags().StringSlice("ext", nil, "File name suffixes to count")
	runCmd.Flags().StringSlice("skip", nil, "Directory patterns to skip while counting")
	runCmd.Flags().StringSlice("pattern", nil, "Directory patterns to remove")
	runCmd.Flags().Bool("dry-run", false, "Report what would be removed without deleting")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	logger := e.logger
	cfg := e.cfg
	once, _ := cmd.Flags().GetBool("once")

	logger.Info().Str("root", cfg.Root).Bool("dry_run", cfg.DryRun).Msg("file-assistant starting")
	if cfg.DryRun {
		logger.Info().Msg("DRY RUN MODE: no directories will be deleted")
	}

	metrics.Init()
	if cfg.Prometheus.Port > 0 {
		if err := metrics.StartServer(cfg.PrometheusAddress(), logger); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metrics.Shutdown(ctx, logger)
		}()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down gracefully")
			cancel()
		case <-ctx.Done():
		}
	}()

	if once {
		res, err := scheduler.RunOnce(ctx, cfg, e.deps())
		if res != nil && res.Count != nil {
			printCount(cmd.OutOrStdout(), res.Count)
		}
		if res != nil && res.Remove != nil {
			printRemove(cmd.OutOrStdout(), res.Remove)
		}
		return err
	}

	if err := scheduler.Run(ctx, cfg, e.deps()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("file-assistant stopped")
	return nil
}
