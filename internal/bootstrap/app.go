package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/events"
	"docflow-backend/internal/reports"
	"docflow-backend/internal/services/health"
	"docflow-backend/internal/shared/auth"
	"docflow-backend/internal/shared/config"
	"docflow-backend/internal/shared/server"
	"docflow-backend/internal/shared/storage/db"
	"docflow-backend/internal/shared/storage/object"
	localstore "docflow-backend/internal/shared/storage/object/local"
	miniostore "docflow-backend/internal/shared/storage/object/minio"
	s3store "docflow-backend/internal/shared/storage/object/s3"
	"docflow-backend/internal/shared/telemetry"
	"docflow-backend/internal/users"
)

// App holds shared dependencies.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.ObjectStore
	Events           events.Publisher
	Tokens           *auth.Issuer
	UsersRepo        users.Repo
	DocumentsRepo    documents.Repo
	UsersService     *users.Service
	DocumentsService *documents.Service
	ReportsService   *reports.Service
	UsersHandler     *users.Handler
	DocumentsHandler *documents.Handler
	ReportsHandler   *reports.Handler
	Health           *health.Service
}

// Build prepares shared dependencies and wires the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	publisher, err := buildEvents(cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Events: publisher,
	}

	if err := buildServices(app); err != nil {
		_ = app.Close()
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		Authenticator:   app.UsersService,
		UserHandler:     app.UsersHandler,
		DocumentHandler: app.DocumentsHandler,
		ReportHandler:   app.ReportsHandler,
		Health:          app.Health,
	})

	return app, nil
}

// Close releases the database pool and the event publisher.
func (a *App) Close() error {
	var errs []error
	if c, ok := a.Events.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close events: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func closeDB(sqlDB *sql.DB) {
	if sqlDB != nil {
		_ = sqlDB.Close()
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildEvents(cfg config.Config) (events.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.Noop{}, nil
	}
	return events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
}

func buildServices(app *App) error {
	issuer, err := auth.NewIssuer(app.Config.JWTSecret, app.Config.JWTTTL, app.Config.Env == "production")
	if err != nil {
		return err
	}

	var userRepo users.Repo
	var docRepo documents.Repo
	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
		docRepo = &documents.PGRepo{DB: app.DB}
	} else {
		memUsers := users.NewMemoryRepo()
		userRepo = memUsers
		docRepo = documents.NewMemoryRepo(memUsers)
	}

	userSvc := users.NewService(userRepo, issuer)
	docSvc := documents.NewService(docRepo, app.Store, userSvc, app.Events)
	reportSvc := reports.NewService(docRepo, userSvc)

	var pinger health.Pinger
	if app.DB != nil {
		pinger = app.DB
	}

	app.Tokens = issuer
	app.UsersRepo = userRepo
	app.DocumentsRepo = docRepo
	app.UsersService = userSvc
	app.DocumentsService = docSvc
	app.ReportsService = reportSvc
	app.UsersHandler = users.NewHandler(userSvc)
	app.DocumentsHandler = documents.NewHandler(docSvc, app.Config.MaxUploadBytes)
	app.ReportsHandler = reports.NewHandler(reportSvc)
	app.Health = health.NewService(pinger, app.Config.ObjectStoreType)

	if app.UsersHandler == nil || app.DocumentsHandler == nil || app.ReportsHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}
