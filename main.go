package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"housevalue/config"
	"housevalue/db"
	qhttp "housevalue/http"
	"housevalue/logging"
	"housevalue/ml"
	"housevalue/monitoring"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// 2. Load model bundle
	predictor, err := ml.LoadPredictor(cfg.Model.BundlePath)
	if err != nil {
		logger.Fatal("failed to load model bundle", zap.String("path", cfg.Model.BundlePath), zap.Error(err))
	}
	logger.Info("model bundle loaded",
		zap.String("path", cfg.Model.BundlePath),
		zap.String("bundle_id", predictor.ID()))
	store := ml.NewBundleStore(predictor)
	metrics := monitoring.NewMetrics()

	// 3. Initialize database
	var recorder *qhttp.PredictionRecorder
	if cfg.Database.Path != "" {
		database, err := db.Open(cfg.Database.Path)
		if err != nil {
			logger.Fatal("failed to open database", zap.String("path", cfg.Database.Path), zap.Error(err))
		}
		defer database.Close()
		recorder = qhttp.NewPredictionRecorder(database, logger, 0)
		defer recorder.Close()
		logger.Info("database initialized", zap.String("path", cfg.Database.Path))
	}

	handler, err := qhttp.NewHandler(store, qhttp.HandlerOptions{
		CacheSize:      cfg.Cache.Size,
		Metrics:        metrics,
		Recorder:       recorder,
		AllowedOrigins: cfg.Http.AllowedOrigins,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("failed to create handler", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Watch the bundle file
	if cfg.Model.Watch {
		go func() {
			err := ml.WatchBundle(ctx, cfg.Model.BundlePath, store, logger, func(_ *ml.Predictor, err error) {
				metrics.ObserveReload(err)
				if err == nil {
					handler.PurgeCache()
				}
			})
			if err != nil {
				logger.Error("bundle watcher stopped", zap.Error(err))
			}
		}()
	}

	// 5. Start HTTP server
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	}, handler, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// 6. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	cancel()
	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("exiting")
}
