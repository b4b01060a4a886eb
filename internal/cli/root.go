package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"smartkb/config"
	"smartkb/internal/adapter/embedding"
	"smartkb/internal/port"
	"smartkb/internal/usecase"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "smartkb",
	Short: "Hybrid semantic + keyword knowledge base",
	Long: `smartkb maintains a searchable knowledge base that combines vector
similarity with keyword matching. Documents are embedded, indexed, and
ranked by a fused score with hard quality gates.

Example usage:
  smartkb add ./docs                 # Ingest a directory
  smartkb add --text "some fact"     # Add a single document
  smartkb query "how billing works"  # Search the knowledge base
  smartkb stats                      # Show corpus statistics`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Missing .env is fine; real env vars still apply.
		_ = godotenv.Load()

		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			wd, werr := os.Getwd()
			if werr != nil {
				return fmt.Errorf("failed to get working directory: %w", werr)
			}
			cfg, err = config.LoadFromDir(wd)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = newLogger(cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./smartkb.yaml)")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}

func newEmbedder() (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai", "ollama":
		return embedding.NewClient(embedding.Options{
			Model:     cfg.Embedding.Model,
			BaseURL:   cfg.Embedding.BaseURL,
			APIKeyEnv: cfg.Embedding.APIKeyEnv,
			Dimension: cfg.Embedding.Dimension,
			BatchSize: cfg.Embedding.BatchSize,
			Timeout:   cfg.EmbeddingTimeout(),
		})
	case "mock":
		return embedding.NewMock(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

// openEngine builds the engine from config and loads any persisted
// state from the store path.
func openEngine(ctx context.Context) (*usecase.Engine, error) {
	embedder, err := newEmbedder()
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	opts := usecase.DefaultOptions()
	opts.SimilarityThreshold = cfg.Search.SimilarityThreshold
	opts.KeywordThreshold = cfg.Search.KeywordThreshold
	opts.ScoreThreshold = cfg.Search.ScoreThreshold
	opts.MinScore = cfg.Search.MinScore
	if cfg.Search.MaxQueryRunes > 0 {
		opts.MaxQueryRunes = cfg.Search.MaxQueryRunes
	}
	if cfg.Search.Strategy != "" {
		opts.Strategy = usecase.Strategy(cfg.Search.Strategy)
	}
	if cfg.Embedding.InitAttempts > 0 {
		opts.InitAttempts = cfg.Embedding.InitAttempts
	}

	engine, err := usecase.NewEngine(ctx, embedder, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}
	if err := engine.Load(ctx, cfg.Store.Path); err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}
	return engine, nil
}

func saveEngine(engine *usecase.Engine) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	if err := engine.Save(cfg.Store.Path); err != nil {
		return fmt.Errorf("failed to save store: %w", err)
	}
	return nil
}

func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}
