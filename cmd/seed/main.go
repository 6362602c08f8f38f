package main

// Seed a default administrator and sample employees:
//   go run ./cmd/seed

import (
	"context"
	"errors"
	"os"

	"docflow-backend/internal/shared/apperr"
	"docflow-backend/internal/shared/auth"
	"docflow-backend/internal/shared/config"
	"docflow-backend/internal/shared/storage/db"
	"docflow-backend/internal/shared/telemetry"
	"docflow-backend/internal/users"
)

var defaultAdmin = users.SignupInput{
	EmployeeID: "ADMIN001",
	Name:       "System Administrator",
	Email:      "admin@company.com",
	Password:   "Admin123!",
	Department: "IT",
	Position:   "System Administrator",
}

var sampleUsers = []users.SignupInput{
	{EmployeeID: "EMP001", Name: "John Doe", Email: "john.doe@company.com", Password: "User123!", Department: "Engineering", Position: "Software Developer"},
	{EmployeeID: "EMP002", Name: "Jane Smith", Email: "jane.smith@company.com", Password: "User123!", Department: "Marketing", Position: "Marketing Manager"},
	{EmployeeID: "EMP003", Name: "Mike Johnson", Email: "mike.johnson@company.com", Password: "User123!", Department: "HR", Position: "HR Specialist"},
	{EmployeeID: "EMP004", Name: "Sarah Wilson", Email: "sarah.wilson@company.com", Password: "User123!", Department: "Finance", Position: "Financial Analyst"},
}

// seedActor stands in for an administrator when no account exists yet.
var seedActor = auth.Principal{UserID: "seed", Role: auth.RoleAdmin}

// seed creates the default accounts. Accounts that already exist are left untouched.
func seed(ctx context.Context, svc *users.Service) (created int, err error) {
	if _, err := svc.CreateAdmin(ctx, seedActor, defaultAdmin); err != nil {
		if !errors.Is(err, apperr.ErrConflict) {
			return created, err
		}
		telemetry.Info("seed.exists", map[string]any{"employee_id": defaultAdmin.EmployeeID})
	} else {
		created++
	}
	for _, in := range sampleUsers {
		if _, err := svc.Signup(ctx, in); err != nil {
			if !errors.Is(err, apperr.ErrConflict) {
				return created, err
			}
			telemetry.Info("seed.exists", map[string]any{"employee_id": in.EmployeeID})
			continue
		}
		created++
	}
	return created, nil
}

func main() {
	cfg := config.Load()
	telemetry.Configure(cfg.LogLevel)
	ctx := context.Background()

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		telemetry.Error("seed.connect_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		telemetry.Error("seed.migrate_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL, cfg.Env == "production")
	if err != nil {
		telemetry.Error("seed.issuer_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	svc := users.NewService(&users.PGRepo{DB: sqlDB}, issuer)

	created, err := seed(ctx, svc)
	if err != nil {
		telemetry.Error("seed.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	telemetry.Info("seed.done", map[string]any{"created": created})
}
