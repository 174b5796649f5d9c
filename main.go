package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cardioserve/config"
	qhttp "cardioserve/http"
	"cardioserve/logger"
	"cardioserve/ml"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 2. Load model artifacts
	artifacts := ml.LoadArtifacts(ml.LoadOptions{
		ScalerPath:  cfg.Artifacts.ScalerPath,
		WeightsPath: cfg.Artifacts.WeightsPath,
		Net:         cfg.NetConfig(),
		Seed:        cfg.Model.Seed,
	}, log)
	provider, err := ml.NewCachedPredictor(ml.NewPredictor(artifacts), cfg.Cache.Size)
	if err != nil {
		log.Fatal("Failed to build prediction cache", zap.Error(err))
	}

	// 3. Start HTTP server
	server := qhttp.NewServer(qhttp.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Timeout:        cfg.Server.Timeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	}, provider, log)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 4. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
			log.Sync()
			os.Exit(1)
		}
		return
	case sig := <-quit:
		log.Info("Shutting down...", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Exiting")
}
