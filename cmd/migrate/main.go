package main

// Run database migrations:
//   go run ./cmd/migrate [up|down|status|reset|version]

import (
	"context"
	"os"

	"docflow-backend/internal/shared/config"
	"docflow-backend/internal/shared/storage/db"
	"docflow-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Configure(cfg.LogLevel)
	ctx := context.Background()

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.Migrate(ctx, sqlDB, command); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"command": command, "error": err.Error()})
		os.Exit(1)
	}
	telemetry.Info("migrate.done", map[string]any{"command": command})
}
