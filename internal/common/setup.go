package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"finance-ledger-go/internal/classifier"
	"finance-ledger-go/internal/database"
	"finance-ledger-go/internal/importer"
	"finance-ledger-go/internal/ledger"
	"finance-ledger-go/internal/metrics/prometheus"
	"finance-ledger-go/internal/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Ledger    *ledger.Service
	Importer  *importer.Importer
	Metrics   *prometheus.PrometheusCollector
}

// InitializeLogger builds the global zap logger from cfg.
func InitializeLogger(cfg models.LoggingConfig) (*zap.Logger, func()) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		log.Printf("Unknown log level %q, using info\n", cfg.Level)
		level = zapcore.InfoLevel
	}

	encoding := strings.ToLower(cfg.Format)
	if encoding != "console" {
		encoding = "json"
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.Encoding = encoding
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the store and builds the ledger around it.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	cls, err := classifier.Load(cfg.Ledger.CategoryFile)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	collector, err := prometheus.NewPrometheusCollector(cfg.Metrics.Namespace)
	if err != nil {
		dbService.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	ledgerService := ledger.NewService(dbService, cfg.Ledger,
		ledger.WithClassifier(cls),
		ledger.WithMetrics(collector))

	zap.L().Info("Ledger initialized",
		zap.Bool("allow_overdraft", cfg.Ledger.AllowOverdraft),
		zap.Int("max_retries", cfg.Ledger.MaxRetries),
		zap.Int("categories", len(cls.Categories())))

	return &Services{
		DbService: dbService,
		Ledger:    ledgerService,
		Importer:  importer.New(ledgerService),
		Metrics:   collector,
	}, nil
}

// InitializeDatabaseOnly initializes just the database service
// Useful for read-only operations like listing users
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
