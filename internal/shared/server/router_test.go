package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/events"
	"docflow-backend/internal/reports"
	"docflow-backend/internal/services/health"
	"docflow-backend/internal/shared/auth"
	"docflow-backend/internal/shared/config"
	"docflow-backend/internal/shared/server/respond"
	localstore "docflow-backend/internal/shared/storage/object/local"
	"docflow-backend/internal/users"
)

type testServer struct {
	router *gin.Engine
	users  *users.Service
}

func newTestServer(t *testing.T, burst int) testServer {
	t.Helper()
	issuer, err := auth.NewIssuer("router-secret", time.Hour, false)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	userRepo := users.NewMemoryRepo()
	userSvc := users.NewService(userRepo, issuer)
	docRepo := documents.NewMemoryRepo(userRepo)
	docSvc := documents.NewService(docRepo, localstore.New(t.TempDir()), userSvc, events.Noop{})

	cfg := config.Config{Env: "test", AuthRateLimit: 0.001, AuthRateBurst: burst}
	r := NewRouter(RouterDeps{
		Config:          cfg,
		Authenticator:   userSvc,
		UserHandler:     users.NewHandler(userSvc),
		DocumentHandler: documents.NewHandler(docSvc, 0),
		ReportHandler:   reports.NewHandler(reports.NewService(docRepo, userSvc)),
		Health:          health.NewService(nil, "local"),
	})
	return testServer{router: r, users: userSvc}
}

func (s testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, respond.Envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	s.router.ServeHTTP(resp, req)
	var env respond.Envelope
	if resp.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %q: %v", resp.Body.String(), err)
		}
	}
	return resp, env
}

func signupBody(employeeID, email string) map[string]string {
	return map[string]string{
		"employeeId": employeeID,
		"name":       "Jane Smith",
		"email":      email,
		"password":   "Secret123",
		"department": "Finance",
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, 10)

	resp, env := s.do(t, http.MethodGet, "/api/health", "", nil)
	if resp.Code != http.StatusOK || !env.Success {
		t.Fatalf("unexpected health response %d %s", resp.Code, resp.Body.String())
	}
	data, _ := env.Data.(map[string]any)
	if data["database"] != "memory" || data["storage"] != "local" {
		t.Fatalf("unexpected health payload %#v", env.Data)
	}

	resp, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", resp.Code)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte("http_requests_total")) {
		t.Fatalf("expected request counter in metrics output")
	}
}

func TestRouteGroups(t *testing.T) {
	s := newTestServer(t, 10)

	resp, env := s.do(t, http.MethodPost, "/api/auth/signup", "", signupBody("EMP100", "jane@company.com"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", resp.Code, resp.Body.String())
	}
	session, _ := env.Data.(map[string]any)
	userToken, _ := session["token"].(string)
	if userToken == "" {
		t.Fatalf("expected token in signup response")
	}

	if resp, _ := s.do(t, http.MethodGet, "/api/documents", "", nil); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}
	if resp, _ := s.do(t, http.MethodGet, "/api/documents", userToken, nil); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for own documents, got %d %s", resp.Code, resp.Body.String())
	}
	if resp, _ := s.do(t, http.MethodGet, "/api/admin/dashboard", userToken, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", resp.Code)
	}

	in := users.SignupInput{
		EmployeeID: "ADMIN001",
		Name:       "Ada Admin",
		Email:      "admin@company.com",
		Password:   "Admin123",
		Department: "IT",
	}
	admin, err := s.users.CreateAdmin(context.Background(), auth.Principal{Role: auth.RoleAdmin}, in)
	if err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	adminToken, err := s.users.Tokens.Sign(admin.Principal())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	for _, path := range []string{"/api/admin/dashboard", "/api/admin/documents", "/api/admin/users", "/api/admin/reports/summary"} {
		if resp, _ := s.do(t, http.MethodGet, path, adminToken, nil); resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d %s", path, resp.Code, resp.Body.String())
		}
	}

	resp, env = s.do(t, http.MethodGet, "/api/nope", "", nil)
	if resp.Code != http.StatusNotFound || env.Success {
		t.Fatalf("expected 404 envelope, got %d %s", resp.Code, resp.Body.String())
	}
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	s := newTestServer(t, 2)

	creds := map[string]string{"employeeId": "EMP404", "password": "wrong"}
	for i := 0; i < 2; i++ {
		if resp, _ := s.do(t, http.MethodPost, "/api/auth/login", "", creds); resp.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, resp.Code)
		}
	}
	resp, _ := s.do(t, http.MethodPost, "/api/auth/login", "", creds)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if resp.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if resp, _ := s.do(t, http.MethodGet, "/api/health", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("health must not share the auth bucket, got %d", resp.Code)
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
