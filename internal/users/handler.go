package users

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/shared/apperr"
	"docflow-backend/internal/shared/query"
	"docflow-backend/internal/shared/server/middleware"
	"docflow-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterPublicRoutes attaches signup and login.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/signup", h.signup)
	rg.POST("/auth/login", h.login)
}

// RegisterRoutes attaches routes for any authenticated caller.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/profile", h.profile)
	rg.PUT("/auth/profile", h.updateProfile)
	rg.POST("/auth/logout", h.logout)
}

// RegisterAdminRoutes attaches routes behind the admin gate.
func (h *Handler) RegisterAdminRoutes(authed *gin.RouterGroup, admin *gin.RouterGroup) {
	authed.POST("/auth/admin/signup", h.adminSignup)
	admin.GET("/users", h.list)
	admin.PUT("/users/:id/status", h.setStatus)
}

func (h *Handler) signup(c *gin.Context) {
	var in SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	session, err := h.Svc.Signup(c.Request.Context(), in)
	if err != nil {
		respond.FromError(c, err, "Registration failed. Please try again.")
		return
	}
	respond.Created(c, "User registered successfully", session)
}

func (h *Handler) login(c *gin.Context) {
	var in LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	session, err := h.Svc.Login(c.Request.Context(), in)
	if err != nil {
		respond.FromError(c, err, "Login failed. Please try again.")
		return
	}
	c.Set("userId", session.User.ID)
	respond.OK(c, "Login successful", session)
}

func (h *Handler) adminSignup(c *gin.Context) {
	actor, _ := middleware.PrincipalFromContext(c)
	var in SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	admin, err := h.Svc.CreateAdmin(c.Request.Context(), actor, in)
	if err != nil {
		respond.FromError(c, err, "Admin registration failed. Please try again.")
		return
	}
	respond.Created(c, "Admin account created successfully", gin.H{"admin": admin})
}

func (h *Handler) profile(c *gin.Context) {
	user, err := h.Svc.GetByID(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.FromError(c, err, "Failed to fetch profile")
		return
	}
	respond.OK(c, "", gin.H{"user": user})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var upd ProfileUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	user, err := h.Svc.UpdateProfile(c.Request.Context(), middleware.UserIDFromContext(c), upd)
	if err != nil {
		respond.FromError(c, err, "Profile update failed")
		return
	}
	respond.OK(c, "Profile updated successfully", gin.H{"user": user})
}

// logout is stateless; clients discard the token.
func (h *Handler) logout(c *gin.Context) {
	respond.OK(c, "Logged out successfully", nil)
}

func (h *Handler) list(c *gin.Context) {
	var fields apperr.Fields
	page := query.ParsePage(c.Query("page"), c.Query("limit"), defaultListLimit, &fields)
	filter := ListFilter{
		Department: c.Query("department"),
		Status:     c.Query("status"),
		Role:       c.Query("role"),
		Search:     c.Query("search"),
	}
	ValidateListFilter(&filter, &fields)
	if err := fields.Err(); err != nil {
		respond.FromError(c, err, "Failed to fetch users")
		return
	}
	result, err := h.Svc.List(c.Request.Context(), filter, page)
	if err != nil {
		respond.FromError(c, err, "Failed to fetch users")
		return
	}
	respond.OK(c, "", result)
}

type statusRequest struct {
	IsActive *bool `json:"isActive"`
}

func (h *Handler) setStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		respond.FromError(c, apperr.Fields{{Field: "isActive", Message: "isActive must be a boolean value"}}.Err(), "")
		return
	}
	actor, _ := middleware.PrincipalFromContext(c)
	user, err := h.Svc.SetStatus(c.Request.Context(), actor, c.Param("id"), *req.IsActive)
	if err != nil {
		respond.FromError(c, err, "Failed to update user status")
		return
	}
	msg := "User deactivated successfully"
	if user.IsActive {
		msg = "User activated successfully"
	}
	respond.OK(c, msg, gin.H{"user": user})
}
