package query

import (
	"math"
	"strconv"
	"strings"

	"docflow-backend/internal/shared/apperr"
)

const MaxLimit = 100

// MaxPage keeps (page-1)*limit within a 32-bit offset for every allowed limit.
const MaxPage = math.MaxInt32 / MaxLimit

// PageRequest is a validated page/limit pair.
type PageRequest struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Skip is the number of rows before the page.
func (p PageRequest) Skip() int {
	return (p.Page - 1) * p.Limit
}

// Stage renders the request as a Page stage.
func (p PageRequest) Stage() Page {
	return Page{Skip: p.Skip(), Limit: p.Limit}
}

// ParsePage reads page and limit strings. Empty values take the defaults;
// page must be within 1..MaxPage and limit within 1..MaxLimit.
func ParsePage(rawPage, rawLimit string, defaultLimit int, fields *apperr.Fields) PageRequest {
	req := PageRequest{Page: 1, Limit: defaultLimit}
	if v := strings.TrimSpace(rawPage); v != "" {
		n, err := strconv.Atoi(v)
		switch {
		case err != nil || n < 1:
			fields.Add("page", "Page must be a positive integer")
		case n > MaxPage:
			fields.Add("page", "Page must be at most "+strconv.Itoa(MaxPage))
		default:
			req.Page = n
		}
	}
	if v := strings.TrimSpace(rawLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxLimit {
			fields.Add("limit", "Limit must be between 1 and "+strconv.Itoa(MaxLimit))
		} else {
			req.Limit = n
		}
	}
	return req
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit int) int64 {
	if limit <= 0 || total <= 0 {
		return 0
	}
	l := int64(limit)
	return (total + l - 1) / l
}

// Result is one page of items with its position in the full result.
type Result[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// NewResult assembles a page result. Items is never nil.
func NewResult[T any](items []T, req PageRequest, total int64) Result[T] {
	if items == nil {
		items = []T{}
	}
	return Result[T]{
		Items:      items,
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: TotalPages(total, req.Limit),
	}
}

// SortSpec maps public sort names to pipeline fields.
type SortSpec struct {
	Allowed map[string]string
	Default string
}

// ParseSort validates sortBy/sortOrder against the allow-list. The result is
// followed by createdAt desc and id as tie-breakers.
func (s SortSpec) ParseSort(sortBy, sortOrder, createdField, idField string, fields *apperr.Fields) Sort {
	by := strings.TrimSpace(sortBy)
	if by == "" {
		by = s.Default
	}
	field, ok := s.Allowed[by]
	if !ok {
		fields.Add("sortBy", "Unsupported sort field: "+by)
		field = s.Allowed[s.Default]
	}
	desc := true
	switch strings.ToLower(strings.TrimSpace(sortOrder)) {
	case "", "desc":
	case "asc":
		desc = false
	default:
		fields.Add("sortOrder", "Sort order must be asc or desc")
	}
	keys := []SortKey{{Field: field, Desc: desc}}
	if field != createdField {
		keys = append(keys, SortKey{Field: createdField, Desc: true})
	}
	keys = append(keys, SortKey{Field: idField})
	return Sort{Keys: keys}
}
