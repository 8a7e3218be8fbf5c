// @title Session Control API
// @version 1.0
// @description Backend that drives classroom sessions through the tactics of a teaching strategy.

// @host localhost:5001
// @BasePath /

package main

import (
	"context"
	"flag"
	"log"

	"session_control_backend/internal/app"
	"session_control_backend/internal/config"
	"session_control_backend/pkg/configwatcher"
	"session_control_backend/pkg/logger"

	"go.uber.org/zap"
)

const configDir = "configs"

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "run the schema migration and exit")
	migrate := flag.Bool("migrate", false, "force the schema migration at startup, even in release mode")
	flag.Parse()

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if *migrateOnly {
		logger.Log.Info("Migration finished, exiting")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := configwatcher.Watch(ctx, configDir, application.ApplyConfig); err != nil {
			logger.Log.Warn("Config hot reload disabled", zap.Error(err))
		}
	}()

	application.Run()
}
