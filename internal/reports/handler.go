package reports

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/shared/apperr"
	"docflow-backend/internal/shared/server/respond"
	"docflow-backend/internal/shared/util"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterAdminRoutes attaches reporting routes. The group must already be admin-gated.
func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.GET("/dashboard", h.dashboard)
	admin.GET("/reports/summary", h.summary)
}

func (h *Handler) dashboard(c *gin.Context) {
	loc := time.Local
	if tz := strings.TrimSpace(c.Query("tz")); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			respond.FromError(c, apperr.Fields{{Field: "tz", Message: "Time zone must be a valid IANA name"}}.Err(), "")
			return
		}
		loc = l
	}
	d, err := h.Svc.Dashboard(c.Request.Context(), loc)
	if err != nil {
		respond.FromError(c, err, "Failed to load dashboard data")
		return
	}
	respond.OK(c, "", d)
}

func (h *Handler) summary(c *gin.Context) {
	var fields apperr.Fields
	sf := SummaryFilter{Department: strings.TrimSpace(c.Query("department"))}
	sf.StartDate = parseDate(c.Query("startDate"), "startDate", &fields)
	sf.EndDate = parseDate(c.Query("endDate"), "endDate", &fields)
	if err := fields.Err(); err != nil {
		respond.FromError(c, err, "")
		return
	}
	out, err := h.Svc.Summary(c.Request.Context(), sf)
	if err != nil {
		respond.FromError(c, err, "Failed to generate summary report")
		return
	}
	respond.OK(c, "", out)
}

func parseDate(raw, field string, fields *apperr.Fields) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	t, err := util.ParseDate(raw, time.UTC)
	if err != nil {
		fields.Add(field, field+" must be a valid ISO 8601 date")
		return nil
	}
	return &t
}
