package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/xaenox/hypergraph/internal/cascade"
	"github.com/xaenox/hypergraph/internal/storage"
	"github.com/xaenox/hypergraph/pkg/config"
)

func main() {
	opts, cmd, err := parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, cmd, os.Stdout, logger); err != nil {
		if errors.Is(err, errFailed) {
			logger.Sync()
			os.Exit(1)
		}
		logger.Fatal("Command failed", zap.String("command", cmd.name), zap.Error(err))
	}
}

// newLogger writes to stderr so stdout carries only the result envelope.
func newLogger(c config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(c.ZapLevel())
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

func run(ctx context.Context, cfg *config.Config, cmd *command, out io.Writer, logger *zap.Logger) error {
	// Initialize storage
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	coordinator, err := cascade.Open(ctx, store, logger)
	if err != nil {
		return err
	}
	return execute(ctx, coordinator, cmd, out)
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Driver, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		logger.Info("Using PostgreSQL storage", zap.String("host", cfg.Database.Host), zap.String("dbname", cfg.Database.DBName))
		return storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
	case config.BackendSQLite:
		logger.Info("Using SQLite storage", zap.String("path", cfg.SQLite.Path))
		return storage.NewSQLiteStorage(cfg.SQLite.Path)
	case config.BackendMongo:
		logger.Info("Using MongoDB storage", zap.String("database", cfg.Mongo.Database))
		return storage.NewMongoStorage(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	default:
		logger.Info("Using in-memory storage")
		return storage.NewMemoryStorage(), nil
	}
}
