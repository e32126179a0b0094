package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"doctext-backend/internal/bootstrap"
	"doctext-backend/internal/shared/config"
	"doctext-backend/internal/shared/server"
	"doctext-backend/internal/shared/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := telemetry.Init(telemetry.Options{
		Level:      cfg.LogLevel,
		Path:       cfg.LogPath,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	}); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		telemetry.Error("bootstrap.failed", map[string]any{"err": err})
		telemetry.Sync()
		os.Exit(1)
	}
	defer app.Close()

	telemetry.Info("server.starting", map[string]any{
		"env":          cfg.Env,
		"object_store": cfg.ObjectStoreType,
		"ocr_engine":   cfg.OCREngine,
		"database":     app.DB != nil,
	})
	if err := server.Run(ctx, server.Addr(cfg.Port), app.Router); err != nil {
		telemetry.Error("server.failed", map[string]any{"err": err})
		telemetry.Sync()
		os.Exit(1)
	}
}
