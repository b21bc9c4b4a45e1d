package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/robfig/cron/v3"

	"github.com/hudmol/yale-accession-marc-export/config"
	"github.com/hudmol/yale-accession-marc-export/internal/export"
	"github.com/hudmol/yale-accession-marc-export/internal/notify"
	"github.com/hudmol/yale-accession-marc-export/internal/routes"
	"github.com/hudmol/yale-accession-marc-export/internal/upload"
)

func main() {
	configPath := os.Getenv("EXPORTER_CONFIG")
	if configPath == "" {
		if _, err := os.Stat("config.yml"); err == nil {
			configPath = "config.yml"
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	config.ConnectDB()
	config.ConnectRedis()

	uploader, err := upload.ForConfig(cfg)
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	slog.Info("AccessionMarcExporter: checking delivery target connection", "target", cfg.Target)
	if err := uploader.TestConnection(context.Background()); err != nil {
		slog.Error("delivery target connection test failed", "target", cfg.Target, "error", err)
		os.Exit(1)
	}
	slog.Info("AccessionMarcExporter: OK!")

	store := export.NewGormStore(config.DB, export.NewEnumSource(config.DB, config.RDB))
	notifier := notify.ForConfig(cfg.Email)
	exporter := export.New(store, uploader, notifier, cfg)

	if cfg.Schedule != "" {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.Schedule, func() {
			if err := exporter.RunWithRetry(context.Background()); err != nil {
				slog.Error("export run gave up", "error", err)
			}
		}); err != nil {
			slog.Error("failed to register export schedule", "schedule", cfg.Schedule, "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		slog.Info("export schedule registered", "schedule", cfg.Schedule)
	}

	r := routes.SetupRouter(exporter, cfg)
	if err := r.Run(cfg.ListenAddr); err != nil {
		slog.Error("http server stopped", "error", err)
		os.Exit(1)
	}
}
