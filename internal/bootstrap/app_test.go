package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"docflow-backend/internal/events"
	"docflow-backend/internal/shared/config"
	"docflow-backend/internal/users"
)

func TestBuildDevUsesMemoryRepositories(t *testing.T) {
	cfg := config.Config{
		Env:             "dev",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
	}
	app, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	if app.DB != nil {
		t.Fatalf("expected no database in dev without DATABASE_URL")
	}
	if _, ok := app.UsersRepo.(*users.MemoryRepo); !ok {
		t.Fatalf("expected memory users repo, got %T", app.UsersRepo)
	}
	if _, ok := app.Events.(events.Noop); !ok {
		t.Fatalf("expected no-op events without brokers, got %T", app.Events)
	}

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected health 200, got %d", resp.Code)
	}
}

func TestBuildRequiresDatabaseOutsideDev(t *testing.T) {
	cfg := config.Config{Env: "production", JWTSecret: "s", LocalStoreDir: t.TempDir()}
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatalf("expected error without DATABASE_URL in production")
	}
}

func TestBuildStoreRejectsS3WithoutBucket(t *testing.T) {
	if _, err := buildStore(context.Background(), config.Config{ObjectStoreType: "s3"}); err == nil {
		t.Fatalf("expected error for s3 without bucket")
	}
}

func TestBuildEventsUsesKafkaWhenConfigured(t *testing.T) {
	pub, err := buildEvents(config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "docs"})
	if err != nil {
		t.Fatalf("buildEvents: %v", err)
	}
	kp, ok := pub.(*events.KafkaPublisher)
	if !ok {
		t.Fatalf("expected kafka publisher, got %T", pub)
	}
	_ = kp.Close()
}
