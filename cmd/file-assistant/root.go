package main

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"file-assistant/internal/config"
	"file-assistant/internal/database"
	"file-assistant/internal/logging"
	"file-assistant/internal/scheduler"
)

const envPrefix = "FILE_ASSISTANT"

var rootCmd = &cobra.Command{
	Use:   "file-assistant",
	Short: "Count source lines and prune matching directories",
	Long: `file-assistant walks a directory tree to count the lines of files with
selected extensions, skipping directories that match skip patterns, and
removes directories whose names match removal patterns.

A pattern matches a directory when it lines up with consecutive path
segments below the root, the last one by prefix: "test" selects test/ and
test_data/ but not contest/. A trailing "/" requires the whole segment.

Every flag can also be set through a FILE_ASSISTANT_* environment variable
(for example FILE_ASSISTANT_DRY_RUN=true) or in the YAML file given to --config.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to YAML configuration file")
	pf.String("root", "", "Directory to walk (default: current directory)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-file", "", "Also write JSON logs to this file")
	pf.String("db", "", "Record history in this sqlite database")
	pf.Int("metrics-port", 0, "Serve Prometheus metrics on this port (0 disables)")
	pf.Float64("max-cpu", 0, "Throttle traversal to this CPU percentage (0 disables)")
}

// env holds everything a command needs once configuration is resolved
type env struct {
	cfg    *config.Config
	logger zerolog.Logger
	db     *database.HistoryDB
}

func (e *env) deps() scheduler.Deps {
	return scheduler.Deps{Logger: e.logger, DB: e.db}
}

func (e *env) close() {
	if e.db == nil {
		return
	}
	if err := e.db.Close(); err != nil {
		e.logger.Error().Err(err).Msg("Failed to close database")
	}
}

// newViper layers FILE_ASSISTANT_* variables over the command's flags
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	return v, nil
}

// setup resolves configuration (file, then env, then flags), builds the
// logger and opens the history database when one is configured.
func setup(cmd *cobra.Command) (*env, error) {
	v, err := newViper(cmd)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(v)
	if err != nil {
		return nil, &configError{err: err}
	}

	logger, err := logging.New(logging.Options{
		Level:        cfg.Logging.Level,
		File:         cfg.Logging.File,
		RotationDays: cfg.Logging.RotationDays,
		Console:      cmd.ErrOrStderr(),
	})
	if err != nil {
		logger.Warn().Err(err).Str("file", cfg.Logging.File).Msg("Cannot open log file, logging to console only")
	}

	e := &env{cfg: cfg, logger: logger}

	if cfg.DatabasePath != "" {
		logger.Debug().Str("path", cfg.DatabasePath).Msg("Opening history database")
		e.db, err = database.NewHistoryDB(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
	}

	return e, nil
}

func loadConfig(v *viper.Viper) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if path := v.GetString("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		root := v.GetString("root")
		if root == "" {
			root = "."
		}
		cfg, err = config.Default(root)
	}
	if err != nil {
		return nil, err
	}

	applyOverrides(cfg, v)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOverrides copies every explicitly set flag or environment variable
// onto cfg
func applyOverrides(cfg *config.Config, v *viper.Viper) {
	if v.IsSet("root") {
		cfg.Root = v.GetString("root")
	}
	if v.IsSet("ext") {
		cfg.Extensions = splitList(v.GetStringSlice("ext"))
	}
	if v.IsSet("skip") {
		cfg.SkipPatterns = splitList(v.GetStringSlice("skip"))
	}
	if v.IsSet("pattern") {
		cfg.RemovePatterns = splitList(v.GetStringSlice("pattern"))
	}
	if v.IsSet("dry-run") {
		cfg.DryRun = v.GetBool("dry-run")
	}
	if v.IsSet("interval") {
		cfg.IntervalMinutes = v.GetInt("interval")
	}
	if v.IsSet("db") {
		cfg.DatabasePath = v.GetString("db")
	}
	if v.IsSet("metrics-port") {
		cfg.Prometheus.Port = v.GetInt("metrics-port")
	}
	if v.IsSet("max-cpu") {
		cfg.ResourceLimits.MaxCPUPercent = v.GetFloat64("max-cpu")
	}
	if v.IsSet("log-level") {
		cfg.Logging.Level = v.GetString("log-level")
	}
	if v.IsSet("log-file") {
		cfg.Logging.File = v.GetString("log-file")
	}
}

// splitList accepts both repeated flags and comma-separated env values
func splitList(items []string) []string {
	out := []string{}
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
