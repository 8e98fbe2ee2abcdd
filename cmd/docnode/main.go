package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/docvault/docnode/internal/config"
	"github.com/docvault/docnode/internal/filestore"
	"github.com/docvault/docnode/internal/metrics"
	"github.com/docvault/docnode/internal/server"
	"github.com/docvault/docnode/internal/service"
	"github.com/docvault/docnode/internal/store"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Configuration loaded",
		zap.String("node_id", cfg.Server.NodeID),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("file_backend", cfg.Files.Backend))

	// Open database and apply schema
	db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	// Initialize file store
	var files filestore.Store
	switch cfg.Files.Backend {
	case "s3":
		files, err = filestore.NewS3Store(&filestore.S3Config{
			Endpoint:        cfg.Files.S3.Endpoint,
			AccessKeyID:     cfg.Files.S3.AccessKeyID,
			SecretAccessKey: cfg.Files.S3.SecretAccessKey,
			Bucket:          cfg.Files.S3.Bucket,
			Region:          cfg.Files.S3.Region,
			UseSSL:          cfg.Files.S3.UseSSL,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize object store", zap.Error(err))
		}
	default:
		files = filestore.NewLocalStore(cfg.Files.BasePath, logger)
	}

	// Initialize metrics
	m := metrics.NewMetrics(cfg.Server.NodeID)

	// The section coordinator is embedded by the API tier; this binary runs
	// the reconciliation side of the protocol.
	sweeperSvc := service.NewSweeperService(
		db,
		files,
		service.SweeperConfig{
			Interval:    cfg.Sweeper.Interval,
			GracePeriod: cfg.Sweeper.GracePeriod,
			BatchLimit:  cfg.Sweeper.BatchLimit,
			Retention:   cfg.Sweeper.Retention,
		},
		m,
		logger,
	)
	sweeperSvc.Start()
	defer sweeperSvc.Stop()

	// Start metrics server
	var metricsSrv *server.MetricsServer
	if cfg.Metrics.Enabled {
		dataDir := ""
		if cfg.Files.Backend == "local" {
			dataDir = cfg.Files.BasePath
		}
		metricsSrv = server.NewMetricsServer(
			&server.MetricsServerConfig{
				Port:    cfg.Metrics.Port,
				Path:    cfg.Metrics.Path,
				DataDir: dataDir,
			},
			m,
			db.Ping,
			logger,
		)
		if err := metricsSrv.Start(); err != nil {
			logger.Fatal("Failed to start metrics server", zap.Error(err))
		}
	}

	logger.Info("Document node started", zap.String("node_id", cfg.Server.NodeID))

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down gracefully...")

	if metricsSrv != nil {
		if err := metricsSrv.Stop(); err != nil {
			logger.Error("Failed to stop metrics server", zap.Error(err))
		}
	}
}

// initLogger initializes the zap logger
func initLogger() (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	return config.Build()
}
