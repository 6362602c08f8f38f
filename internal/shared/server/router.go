package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/reports"
	"docflow-backend/internal/services/health"
	"docflow-backend/internal/shared/auth"
	"docflow-backend/internal/shared/config"
	"docflow-backend/internal/shared/metrics"
	"docflow-backend/internal/shared/server/middleware"
	"docflow-backend/internal/shared/server/respond"
	"docflow-backend/internal/users"
)

const authRateGroup = "AUTH"

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config          config.Config
	Authenticator   middleware.Authenticator
	UserHandler     *users.Handler
	DocumentHandler *documents.Handler
	ReportHandler   *reports.Handler
	Health          *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.IsDevLike() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		metrics.Middleware(),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.OK(c, "", gin.H{"ok": true})
			return
		}
		st := deps.Health.Status(c.Request.Context())
		if !st.OK {
			c.JSON(http.StatusServiceUnavailable, respond.Envelope{Success: false, Message: "Service degraded", Data: st})
			return
		}
		respond.OK(c, "", st)
	})

	public := api.Group("")
	public.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			authRateGroup: {Rate: deps.Config.AuthRateLimit, Burst: deps.Config.AuthRateBurst},
		},
		DefaultGroup: authRateGroup,
	}))
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterPublicRoutes(public)
	}

	authed := api.Group("")
	authed.Use(middleware.Auth(deps.Authenticator))

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireRole(auth.RoleAdmin))

	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(authed)
		deps.UserHandler.RegisterAdminRoutes(authed, admin)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(authed)
		deps.DocumentHandler.RegisterAdminRoutes(admin)
	}
	if deps.ReportHandler != nil {
		deps.ReportHandler.RegisterAdminRoutes(admin)
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "Route not found", nil)
	})

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
