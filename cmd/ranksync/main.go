package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/acmtools/ranksync/internal/api"
	"github.com/acmtools/ranksync/internal/config"
	"github.com/acmtools/ranksync/internal/fetch"
	"github.com/acmtools/ranksync/internal/predict"
	"github.com/acmtools/ranksync/internal/pubsub"
	"github.com/acmtools/ranksync/internal/store"
	"github.com/acmtools/ranksync/internal/syncer"
)

var Version = "dev-build"

func main() {

	fmt.Fprintf(os.Stderr, "ranksync %s - contest ranking state & rating prediction sidecar\n\n", Version)

	// config
	var configPath string
	flag.StringVar(&configPath, "c", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// logger
	var zapCfg zap.Config
	if cfg.Logger.Level == "debug" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	if cfg.Logger.File != "" {
		zapCfg.OutputPaths = []string{cfg.Logger.File}
		zapCfg.ErrorOutputPaths = []string{cfg.Logger.File}
	}
	logger, err := zapCfg.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// upstream client and privileged-process channel
	client := fetch.NewClient(fetch.Options{
		BaseURL:   cfg.Upstream.BaseURL,
		RatingURL: cfg.Upstream.RatingURL,
		Timeout:   cfg.Upstream.Timeout(),
		Poll: fetch.PollPolicy{
			Base:        cfg.Poll.BaseDelay(),
			Step:        cfg.Poll.Step(),
			MaxAttempts: cfg.Poll.Attempts(),
		},
	})
	messenger := fetch.NewHTTPMessenger(cfg.Upstream.PredictorURL, cfg.Upstream.Timeout())

	// state store, event broker, sync pipeline
	st := store.New()
	broker := pubsub.NewBroker()
	sy, err := syncer.New(st, client, messenger, broker, predict.NewEloPredictor(), cfg.Cache.Size())
	if err != nil {
		zap.S().Fatalf("failed to initialize syncer: %v", err)
	}
	zap.S().Info("state store and sync pipeline initialized")

	// API router
	engine := api.NewRouter(cfg, st, sy, broker)

	go func() {
		zap.S().Infof("starting server at %s", cfg.Listen)
		if err := engine.Run(cfg.Listen); err != nil {
			zap.S().Fatalf("failed to start server: %v", err)
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.S().Info("shutting down server...")
}
