package documents

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/shared/apperr"
	"docflow-backend/internal/shared/query"
	"docflow-backend/internal/shared/server/middleware"
	"docflow-backend/internal/shared/server/respond"
	"docflow-backend/internal/shared/util"
)

const defaultMaxUpload = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUpload
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches routes for any authenticated caller. Listings are
// always scoped to the caller's own documents.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/upload", h.upload)
	rg.POST("/documents", h.create)
	rg.GET("/documents", h.listOwn)
	rg.GET("/documents/my-stats", h.myStats)
	rg.GET("/documents/search/query", h.searchOwn)
	rg.GET("/documents/:id", h.get)
	rg.PUT("/documents/:id", h.update)
	rg.DELETE("/documents/:id", h.delete)
	rg.GET("/documents/:id/download", h.download)
}

// RegisterAdminRoutes attaches the review surface. The group must already be admin-gated.
func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.GET("/documents", h.listAll)
	admin.GET("/documents/search", h.searchAll)
	admin.GET("/documents/:id", h.get)
	admin.PUT("/documents/:id/review", h.review)
	admin.DELETE("/documents/:id", h.delete)
	admin.GET("/documents/:id/download", h.download)
}

func (h *Handler) upload(c *gin.Context) {
	actor, _ := middleware.PrincipalFromContext(c)
	if c.Request.ContentLength > h.MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, tooLargeMessage(h.MaxUploadBytes), nil)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	if err := c.Request.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		if isTooLarge(err) {
			respond.Error(c, http.StatusRequestEntityTooLarge, tooLargeMessage(h.MaxUploadBytes), nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "Invalid multipart form", nil)
		return
	}

	var fields apperr.Fields
	in, hasFile := parseUploadForm(c.Request.MultipartForm, &fields)
	if err := fields.Err(); err != nil {
		respond.FromError(c, err, "")
		return
	}

	var up *Upload
	if hasFile {
		fh, err := c.FormFile("document")
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			respond.Error(c, http.StatusBadRequest, "Unable to read uploaded file", nil)
			return
		}
		if fh != nil {
			file, err := fh.Open()
			if err != nil {
				respond.Error(c, http.StatusBadRequest, "Unable to read uploaded file", nil)
				return
			}
			defer file.Close()
			up = &Upload{FileName: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Body: file}
		}
	}

	view, err := h.Svc.Create(c.Request.Context(), actor, in, hasFile, up)
	if err != nil {
		if isTooLarge(err) {
			respond.Error(c, http.StatusRequestEntityTooLarge, tooLargeMessage(h.MaxUploadBytes), nil)
			return
		}
		respond.FromError(c, err, "Document upload failed. Please try again.")
		return
	}
	middleware.SetDocumentID(c, view.ID)
	respond.Created(c, "Document uploaded successfully", gin.H{"document": view})
}

func (h *Handler) create(c *gin.Context) {
	actor, _ := middleware.PrincipalFromContext(c)
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	view, err := h.Svc.Create(c.Request.Context(), actor, in, false, nil)
	if err != nil {
		respond.FromError(c, err, "Document creation failed. Please try again.")
		return
	}
	middleware.SetDocumentID(c, view.ID)
	respond.Created(c, "Document created successfully", gin.H{"document": view})
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func tooLargeMessage(limit int64) string {
	return "File too large. Maximum size is " + strconv.FormatInt(limit>>20, 10) + "MB."
}

func (h *Handler) listOwn(c *gin.Context) {
	h.list(c, OwnerSort, DefaultLimit, true)
}

func (h *Handler) listAll(c *gin.Context) {
	h.list(c, AdminSort, DefaultAdminLimit, false)
}

func (h *Handler) list(c *gin.Context, sorts query.SortSpec, defaultLimit int, own bool) {
	actor, _ := middleware.PrincipalFromContext(c)
	var fields apperr.Fields
	page := query.ParsePage(c.Query("page"), c.Query("limit"), defaultLimit, &fields)
	sort := ParseSort(sorts, c.Query("sortBy"), c.Query("sortOrder"), &fields)
	filter := ParseFilter(c.Query("status"), c.Query("category"), c.Query("department"), &fields)
	if own {
		filter.Department = ""
		filter.Owner = actor.UserID
	}
	if err := fields.Err(); err != nil {
		respond.FromError(c, err, "")
		return
	}
	result, err := h.Svc.List(c.Request.Context(), actor, filter, sort, page)
	if err != nil {
		respond.FromError(c, err, "Failed to fetch documents")
		return
	}
	respond.OK(c, "", result)
}

func (h *Handler) searchOwn(c *gin.Context) {
	h.search(c, true)
}

func (h *Handler) searchAll(c *gin.Context) {
	h.search(c, false)
}

func (h *Handler) search(c *gin.Context, own bool) {
	actor, _ := middleware.PrincipalFromContext(c)
	var fields apperr.Fields
	page := query.ParsePage(c.Query("page"), c.Query("limit"), DefaultLimit, &fields)
	filter := ParseFilter(c.Query("status"), c.Query("category"), c.Query("department"), &fields)
	if own {
		filter.Department = ""
		filter.Owner = actor.UserID
	}
	if err := fields.Err(); err != nil {
		respond.FromError(c, err, "")
		return
	}
	q := c.Query("q")
	result, err := h.Svc.Search(c.Request.Context(), actor, q, filter, page)
	if err != nil {
		respond.FromError(c, err, "Search failed")
		return
	}
	respond.OK(c, "", SearchResponse{
		Result:  result,
		Query:   q,
		Filters: map[string]string{"category": filter.Category, "status": filter.Status, "department": filter.Department},
	})
}

func (h *Handler) myStats(c *gin.Context) {
	actor, _ := middleware.PrincipalFromContext(c)
	stats, err := h.Svc.MyStats(c.Request.Context(), actor)
	if err != nil {
		respond.FromError(c, err, "Failed to load user statistics")
		return
	}
	respond.OK(c, "", stats)
}

func (h *Handler) get(c *gin.Context) {
	actor, _ := middleware.PrincipalFromContext(c)
	middleware.SetDocumentID(c, c.Param("id"))
	view, err := h.Svc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respond.FromError(c, err, "Failed to fetch document")
		return
	}
	respond.OK(c, "", gin.H{"document": view})
}

func (h *Handler) update(c *gin.Context) {
	actor, _ := middleware.PrincipalFromContext(c)
	middleware.SetDocumentID(c, c.Param("id"))
	var upd UpdateInput
	if err := c.ShouldBindJSON(&upd); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	view, err := h.Svc.Update(c.Request.Context(), actor, c.Param("id"), upd)
	if err != nil {
		respond.FromError(c, err, "Failed to update document")
		return
	}
	respond.OK(c, "Document updated successfully", gin.H{"document": view})
}

func (h *Handler) delete(c *gin.Context) {
	actor, _ := middleware.PrincipalFromContext(c)
	middleware.SetDocumentID(c, c.Param("id"))
	if err := h.Svc.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respond.FromError(c, err, "Failed to delete document")
		return
	}
	respond.OK(c, "Document deleted successfully", nil)
}

func (h *Handler) review(c *gin.Context) {
	actor, _ := middleware.PrincipalFromContext(c)
	middleware.SetDocumentID(c, c.Param("id"))
	var in ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	view, err := h.Svc.Review(c.Request.Context(), actor, c.Param("id"), in)
	if err != nil {
		respond.FromError(c, err, "Failed to review document")
		return
	}
	middleware.SetStatusTransition(c, string(view.Status))
	respond.OK(c, "Document "+string(view.Status)+" successfully", gin.H{"document": view})
}

func (h *Handler) download(c *gin.Context) {
	actor, _ := middleware.PrincipalFromContext(c)
	middleware.SetDocumentID(c, c.Param("id"))
	dl, err := h.Svc.Download(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respond.FromError(c, err, "Failed to download document")
		return
	}
	defer dl.Body.Close()

	mimeType := dl.MimeType
	if mimeType == "" {
		mimeType = defaultMimeType
	}
	c.Header("Content-Disposition", `attachment; filename="`+util.AttachmentName(dl.FileName)+`"`)
	c.Header("Content-Type", mimeType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, dl.Body); err != nil {
		_ = c.Error(err)
	}
}
