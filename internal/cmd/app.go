package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arkantu/psicoscore/internal/analyzer"
	"github.com/arkantu/psicoscore/internal/chart"
	"github.com/arkantu/psicoscore/internal/classify"
	"github.com/arkantu/psicoscore/internal/config"
	"github.com/arkantu/psicoscore/internal/logging"
	"github.com/arkantu/psicoscore/internal/patterns"
	"github.com/arkantu/psicoscore/internal/scan"
)

// minBarWidth keeps charts readable on very narrow terminals.
const minBarWidth = 10

// app is what a command needs once configuration is resolved.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *patterns.Store
	engine *analyzer.Engine
}

// loadConfig reads --config or the default file and applies the
// command-line store overrides.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if storeBackend != "" {
		cfg.Store.Backend = storeBackend
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(&logging.Config{
		Output: w,
		Level:  level,
		Format: cfg.Log.Format,
		Debug:  debugLogging,
	}), nil
}

// openApp resolves configuration, opens the pattern store and builds the
// engine. tweak runs on the loaded configuration before anything is built.
func openApp(cmd *cobra.Command, tweak ...func(*config.Config) error) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	for _, fn := range tweak {
		if err := fn(cfg); err != nil {
			return nil, err
		}
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		logging.LogConfigLoaded(logger, configPath)
	}

	path := cfg.StorePath(config.DefaultPaths())
	if cfg.Store.Backend != patterns.BackendMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	backend, err := patterns.OpenBackend(cfg.Store.Backend, path, cfg.LockTimeout(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open pattern store: %w", err)
	}
	logging.LogStoreOpened(logger, cfg.Store.Backend, path)

	sortOrder, err := chart.ParseSortOrder(cfg.Chart.Sort)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	store := patterns.NewStore(backend, patterns.Config{Logger: logger})
	engine := analyzer.New(store, analyzer.Options{
		Scanner: scan.Options{
			ContextRadius: cfg.Scanner.ContextRadius,
			MinValue:      cfg.Scanner.MinValue,
			MaxValue:      cfg.Scanner.MaxValue,
		},
		Classifier: classify.Options{
			MinConfidence: cfg.Classifier.MinConfidence,
			Tolerance:     cfg.Classifier.Tolerance,
		},
		Chart: chart.Options{
			BarWidth:   fitBarWidth(cfg.Chart.BarWidth, cfg.Chart.LabelWidth, terminalWidth()),
			LabelWidth: cfg.Chart.LabelWidth,
			Sort:       sortOrder,
			Styled:     cfg.Chart.Styled && colorsEnabled(),
		},
		Dedupe: cfg.Analyzer.Dedupe,
		Logger: logger,
	})

	return &app{cfg: cfg, logger: logger, store: store, engine: engine}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// fitBarWidth shrinks the bar so a chart row fits in cols columns. A row is
// the label, the value, the bar and the percentage.
func fitBarWidth(bar, label, cols int) int {
	const fixed = 1 + 6 + 1 + 1 + 4
	if avail := cols - label - fixed; avail < bar {
		return max(avail, min(bar, minBarWidth))
	}
	return bar
}
