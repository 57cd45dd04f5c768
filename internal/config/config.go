package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the psicoscore configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Scanner    ScannerConfig    `yaml:"scanner"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Chart      ChartConfig      `yaml:"chart"`
	Store      StoreConfig      `yaml:"store"`
	Analyzer   AnalyzerConfig   `yaml:"analyzer"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// ScannerConfig holds number extraction settings.
type ScannerConfig struct {
	ContextRadius int     `yaml:"context_radius"` // Bytes of context kept each side of a match
	MinValue      float64 `yaml:"min_value"`      // Lower bound of the sanity band
	MaxValue      float64 `yaml:"max_value"`      // Upper bound of the sanity band
}

// ClassifierConfig holds rule cascade settings.
type ClassifierConfig struct {
	MinConfidence int     `yaml:"min_confidence"` // Confirmations before a learned pattern applies
	Tolerance     float64 `yaml:"tolerance"`      // Window around single-value patterns
}

// ChartConfig holds chart layout settings.
type ChartConfig struct {
	BarWidth   int    `yaml:"bar_width"`   // Cells per bar
	LabelWidth int    `yaml:"label_width"` // Columns reserved for labels
	Sort       string `yaml:"sort"`        // classified or value
	Styled     bool   `yaml:"styled"`      // Colour output on terminals
}

// StoreConfig holds pattern store settings.
type StoreConfig struct {
	Backend       string `yaml:"backend"`         // sqlite, file or memory
	Path          string `yaml:"path"`            // Overrides the default data path
	LockTimeoutMs int    `yaml:"lock_timeout_ms"` // Writer wait before giving up
}

// AnalyzerConfig holds document classification settings.
type AnalyzerConfig struct {
	Dedupe bool `yaml:"dedupe"` // Collapse repeated (value, type, context) scores
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "warn",
			Format: "json",
		},
		Scanner: ScannerConfig{
			ContextRadius: 50,
			MinValue:      -100,
			MaxValue:      200,
		},
		Classifier: ClassifierConfig{
			MinConfidence: 2,
			Tolerance:     10,
		},
		Chart: ChartConfig{
			BarWidth:   40,
			LabelWidth: 24,
			Sort:       "classified",
			Styled:     true,
		},
		Store: StoreConfig{
			Backend:       "sqlite",
			LockTimeoutMs: 5000,
		},
		Analyzer: AnalyzerConfig{
			Dedupe: true,
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	return LoadFromFile(DefaultPaths().ConfigFile())
}

// LoadFromFile loads configuration from path. A missing file yields the
// defaults. Environment overrides are applied after the file.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration to path.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LockTimeout returns the store lock timeout as a duration.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Store.LockTimeoutMs) * time.Millisecond
}

// StorePath returns the configured store path, or the default location for
// the selected backend.
func (c *Config) StorePath(p *Paths) string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	if c.Store.Backend == "file" {
		return p.PatternFile()
	}
	return p.DatabaseFile()
}

// Get returns the value of a "section.key" setting as a string.
func (c *Config) Get(key string) (string, error) {
	section, field, err := splitKey(key)
	if err != nil {
		return "", err
	}

	switch section {
	case "log":
		return c.getLogField(field)
	case "scanner":
		return c.getScannerField(field)
	case "classifier":
		return c.getClassifierField(field)
	case "chart":
		return c.getChartField(field)
	case "store":
		return c.getStoreField(field)
	case "analyzer":
		return c.getAnalyzerField(field)
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
}

// Set parses value and assigns it to a "section.key" setting.
func (c *Config) Set(key, value string) error {
	section, field, err := splitKey(key)
	if err != nil {
		return err
	}

	switch section {
	case "log":
		return c.setLogField(field, value)
	case "scanner":
		return c.setScannerField(field, value)
	case "classifier":
		return c.setClassifierField(field, value)
	case "chart":
		return c.setChartField(field, value)
	case "store":
		return c.setStoreField(field, value)
	case "analyzer":
		return c.setAnalyzerField(field, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func splitKey(key string) (string, string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", "", errors.New("key must be in format 'section.key'")
	}
	return parts[0], parts[1], nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (c *Config) getLogField(field string) (string, error) {
	switch field {
	case "level":
		return c.Log.Level, nil
	case "format":
		return c.Log.Format, nil
	default:
		return "", fmt.Errorf("unknown field: log.%s", field)
	}
}

func (c *Config) setLogField(field, value string) error {
	switch field {
	case "level":
		if !isValidLogLevel(value) {
			return fmt.Errorf("invalid log.level: %s (must be debug, info, warn, or error)", value)
		}
		c.Log.Level = value
	case "format":
		if !isValidLogFormat(value) {
			return fmt.Errorf("invalid log.format: %s (must be json or text)", value)
		}
		c.Log.Format = value
	default:
		return fmt.Errorf("unknown field: log.%s", field)
	}
	return nil
}

func (c *Config) getScannerField(field string) (string, error) {
	switch field {
	case "context_radius":
		return strconv.Itoa(c.Scanner.ContextRadius), nil
	case "min_value":
		return formatFloat(c.Scanner.MinValue), nil
	case "max_value":
		return formatFloat(c.Scanner.MaxValue), nil
	default:
		return "", fmt.Errorf("unknown field: scanner.%s", field)
	}
}

func (c *Config) setScannerField(field, value string) error {
	switch field {
	case "context_radius":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for context_radius: %w", err)
		}
		if v < 0 {
			return errors.New("invalid context_radius: must be non-negative")
		}
		c.Scanner.ContextRadius = v
	case "min_value", "max_value":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", field, err)
		}
		if field == "min_value" {
			c.Scanner.MinValue = v
		} else {
			c.Scanner.MaxValue = v
		}
	default:
		return fmt.Errorf("unknown field: scanner.%s", field)
	}
	return nil
}

func (c *Config) getClassifierField(field string) (string, error) {
	switch field {
	case "min_confidence":
		return strconv.Itoa(c.Classifier.MinConfidence), nil
	case "tolerance":
		return formatFloat(c.Classifier.Tolerance), nil
	default:
		return "", fmt.Errorf("unknown field: classifier.%s", field)
	}
}

func (c *Config) setClassifierField(field, value string) error {
	switch field {
	case "min_confidence":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for min_confidence: %w", err)
		}
		if v < 1 {
			return errors.New("invalid min_confidence: must be at least 1")
		}
		c.Classifier.MinConfidence = v
	case "tolerance":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for tolerance: %w", err)
		}
		if v < 0 {
			return errors.New("invalid tolerance: must be non-negative")
		}
		c.Classifier.Tolerance = v
	default:
		return fmt.Errorf("unknown field: classifier.%s", field)
	}
	return nil
}

func (c *Config) getChartField(field string) (string, error) {
	switch field {
	case "bar_width":
		return strconv.Itoa(c.Chart.BarWidth), nil
	case "label_width":
		return strconv.Itoa(c.Chart.LabelWidth), nil
	case "sort":
		return c.Chart.Sort, nil
	case "styled":
		return strconv.FormatBool(c.Chart.Styled), nil
	default:
		return "", fmt.Errorf("unknown field: chart.%s", field)
	}
}

func (c *Config) setChartField(field, value string) error {
	switch field {
	case "bar_width", "label_width":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", field, err)
		}
		if v < 1 {
			return fmt.Errorf("invalid %s: must be positive", field)
		}
		if field == "bar_width" {
			c.Chart.BarWidth = v
		} else {
			c.Chart.LabelWidth = v
		}
	case "sort":
		if !isValidSort(value) {
			return fmt.Errorf("invalid chart.sort: %s (must be classified or value)", value)
		}
		c.Chart.Sort = value
	case "styled":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for styled: %w", err)
		}
		c.Chart.Styled = v
	default:
		return fmt.Errorf("unknown field: chart.%s", field)
	}
	return nil
}

func (c *Config) getStoreField(field string) (string, error) {
	switch field {
	case "backend":
		return c.Store.Backend, nil
	case "path":
		return c.Store.Path, nil
	case "lock_timeout_ms":
		return strconv.Itoa(c.Store.LockTimeoutMs), nil
	default:
		return "", fmt.Errorf("unknown field: store.%s", field)
	}
}

func (c *Config) setStoreField(field, value string) error {
	switch field {
	case "backend":
		if !isValidBackend(value) {
			return fmt.Errorf("invalid store.backend: %s (must be sqlite, file, or memory)", value)
		}
		c.Store.Backend = value
	case "path":
		c.Store.Path = value
	case "lock_timeout_ms":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for lock_timeout_ms: %w", err)
		}
		if v < 0 {
			return errors.New("invalid lock_timeout_ms: must be non-negative")
		}
		c.Store.LockTimeoutMs = v
	default:
		return fmt.Errorf("unknown field: store.%s", field)
	}
	return nil
}

func (c *Config) getAnalyzerField(field string) (string, error) {
	switch field {
	case "dedupe":
		return strconv.FormatBool(c.Analyzer.Dedupe), nil
	default:
		return "", fmt.Errorf("unknown field: analyzer.%s", field)
	}
}

func (c *Config) setAnalyzerField(field, value string) error {
	switch field {
	case "dedupe":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for dedupe: %w", err)
		}
		c.Analyzer.Dedupe = v
	default:
		return fmt.Errorf("unknown field: analyzer.%s", field)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", c.Log.Level)
	}
	if !isValidLogFormat(c.Log.Format) {
		return fmt.Errorf("log.format must be json or text (got: %s)", c.Log.Format)
	}
	if c.Scanner.ContextRadius < 0 {
		return errors.New("scanner.context_radius must be >= 0")
	}
	if c.Scanner.MinValue >= c.Scanner.MaxValue {
		return errors.New("scanner.min_value must be below scanner.max_value")
	}
	if c.Classifier.MinConfidence < 1 {
		return errors.New("classifier.min_confidence must be >= 1")
	}
	if c.Classifier.Tolerance < 0 {
		return errors.New("classifier.tolerance must be >= 0")
	}
	if c.Chart.BarWidth < 1 || c.Chart.BarWidth > 200 {
		return fmt.Errorf("chart.bar_width must be between 1 and 200 (got: %d)", c.Chart.BarWidth)
	}
	if c.Chart.LabelWidth < 1 {
		return errors.New("chart.label_width must be >= 1")
	}
	if !isValidSort(c.Chart.Sort) {
		return fmt.Errorf("chart.sort must be classified or value (got: %s)", c.Chart.Sort)
	}
	if !isValidBackend(c.Store.Backend) {
		return fmt.Errorf("store.backend must be sqlite, file, or memory (got: %s)", c.Store.Backend)
	}
	if c.Store.LockTimeoutMs < 0 {
		return errors.New("store.lock_timeout_ms must be >= 0")
	}
	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidLogFormat(format string) bool {
	return format == "json" || format == "text"
}

func isValidSort(sort string) bool {
	return sort == "classified" || sort == "value"
}

func isValidBackend(backend string) bool {
	switch backend {
	case "sqlite", "file", "memory":
		return true
	default:
		return false
	}
}

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PSICOSCORE_STORE_BACKEND"); v != "" && isValidBackend(v) {
		c.Store.Backend = v
	}
	if v := os.Getenv("PSICOSCORE_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("PSICOSCORE_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Log.Level = "debug"
		}
	}
	if v := os.Getenv("PSICOSCORE_LOG_LEVEL"); v != "" && isValidLogLevel(v) {
		c.Log.Level = v
	}
	if v := os.Getenv("PSICOSCORE_BAR_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Chart.BarWidth = n
		}
	}
}

// ListKeys returns the user-facing configuration keys.
func ListKeys() []string {
	return []string{
		"log.level",
		"log.format",
		"scanner.context_radius",
		"scanner.min_value",
		"scanner.max_value",
		"classifier.min_confidence",
		"classifier.tolerance",
		"chart.bar_width",
		"chart.label_width",
		"chart.sort",
		"chart.styled",
		"store.backend",
		"store.path",
		"store.lock_timeout_ms",
		"analyzer.dedupe",
	}
}
