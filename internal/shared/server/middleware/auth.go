package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/shared/apperr"
	"docflow-backend/internal/shared/auth"
	"docflow-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	principalKey = "principal"
)

// Authenticator resolves a bearer token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Principal, error)
}

// Auth requires a valid bearer token and stores the caller in context.
func Auth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, "Access denied. No token provided.", nil)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, "Access denied. No token provided.", nil)
			return
		}

		principal, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			msg := "Invalid or expired token"
			if m := apperr.Message(err); m != "" {
				msg = m
			}
			respond.Error(c, http.StatusUnauthorized, msg, nil)
			return
		}

		SetPrincipal(c, principal)
		c.Next()
	}
}

// RequireRole rejects callers whose role differs from role.
func RequireRole(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)
		if !ok {
			respond.Error(c, http.StatusUnauthorized, "Access denied. No token provided.", nil)
			return
		}
		if p.Role != role {
			respond.Error(c, http.StatusForbidden, "Access denied. Admin privileges required.", nil)
			return
		}
		c.Next()
	}
}

// SetPrincipal stores the caller identity on the gin context.
func SetPrincipal(c *gin.Context, p auth.Principal) {
	c.Set(principalKey, p)
	c.Set(userIDKey, p.UserID)
}

// PrincipalFromContext fetches the caller set by the auth middleware.
func PrincipalFromContext(c *gin.Context) (auth.Principal, bool) {
	if c == nil {
		return auth.Principal{}, false
	}
	val, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := val.(auth.Principal)
	return p, ok
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
