package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"` // 0 disables the metrics server
}

type LoggingCfg struct {
	Level        string `yaml:"level" json:"level"`
	File         string `yaml:"file" json:"file"`                   // Optional JSON log file
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
}

type ResourceLimits struct {
	MaxCPUPercent float64 `yaml:"max_cpu_percent" json:"max_cpu_percent"` // 0 or 100 disables throttling
}

type SafetyCfg struct {
	ProtectedPaths []string `yaml:"protected_paths" json:"protected_paths"` // Absolute paths never removed
	ProtectedGlobs []string `yaml:"protected_globs" json:"protected_globs"` // doublestar globs never removed (e.g. **/.git)
}

type Config struct {
	Root            string         `yaml:"root" json:"root"`
	Extensions      []string       `yaml:"extensions" json:"extensions"`
	SkipPatterns    []string       `yaml:"skip_patterns" json:"skip_patterns"`
	RemovePatterns  []string       `yaml:"remove_patterns" json:"remove_patterns"`
	DryRun          bool           `yaml:"dry_run" json:"dry_run"`
	IntervalMinutes int            `yaml:"interval_minutes" json:"interval_minutes"`
	DatabasePath    string         `yaml:"database_path" json:"database_path"` // Empty disables history
	Prometheus      PrometheusCfg  `yaml:"prometheus" json:"prometheus"`
	Logging         LoggingCfg     `yaml:"logging" json:"logging"`
	ResourceLimits  ResourceLimits `yaml:"resource_limits" json:"resource_limits"`
	Safety          SafetyCfg      `yaml:"safety" json:"safety"`
}

var (
	errNoRoot          = errors.New("configuration must specify root")
	errEmptyEntry      = errors.New("list entries must not be empty")
	errInvalidPort     = errors.New("prometheus port out of range")
	errInvalidCPU      = errors.New("max_cpu_percent must be between 0 and 100")
	errNegativeRotate  = errors.New("rotation_days cannot be negative")
	errRelativeProtect = errors.New("protected path must be absolute")
)

// Default extensions and skip patterns mirror a typical source tree.
var (
	DefaultExtensions   = []string{".py", ".js", ".css", "html"}
	DefaultSkipPatterns = []string{"venv", "__pycache__", ".idea"}
)

// Default returns a configuration rooted at root with defaults applied
func Default(root string) (*Config, error) {
	cfg := &Config{Root: root}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate re-applies validation and defaults, e.g. after flag overrides
func (c *Config) Validate() error {
	return c.validateAndDefault()
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Config) validateAndDefault() error {
	if strings.TrimSpace(c.Root) == "" {
		return errNoRoot
	}
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("root %s: %w", c.Root, err)
	}
	c.Root = filepath.Clean(root)

	if c.Extensions == nil {
		c.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if c.SkipPatterns == nil {
		c.SkipPatterns = append([]string(nil), DefaultSkipPatterns...)
	}
	// RemovePatterns has no default: removal is permanent

	for field, list := range map[string][]string{
		"extensions":      c.Extensions,
		"skip_patterns":   c.SkipPatterns,
		"remove_patterns": c.RemovePatterns,
	} {
		if err := checkEntries(list); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}

	if c.IntervalMinutes <= 0 {
		c.IntervalMinutes = 60
	}

	if c.Prometheus.Port < 0 || c.Prometheus.Port > 65535 {
		return fmt.Errorf("%w: %d", errInvalidPort, c.Prometheus.Port)
	}

	if c.Logging.RotationDays < 0 {
		return errNegativeRotate
	}
	if c.Logging.RotationDays == 0 {
		c.Logging.RotationDays = 30
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.ResourceLimits.MaxCPUPercent < 0 || c.ResourceLimits.MaxCPUPercent > 100 {
		return fmt.Errorf("%w: %v", errInvalidCPU, c.ResourceLimits.MaxCPUPercent)
	}

	for i, p := range c.Safety.ProtectedPaths {
		cp, err := cleanAbsolute(p)
		if err != nil {
			return err
		}
		c.Safety.ProtectedPaths[i] = cp
	}

	if c.DatabasePath != "" {
		c.DatabasePath = filepath.Clean(c.DatabasePath)
	}

	return nil
}

func checkEntries(list []string) error {
	for i, v := range list {
		if v == "" {
			return fmt.Errorf("%w (index %d)", errEmptyEntry, i)
		}
	}
	return nil
}

func cleanAbsolute(p string) (string, error) {
	if p == "" {
		return "", errRelativeProtect
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errRelativeProtect, p)
	}
	return cp, nil
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}
