package documents

import (
	"encoding/json"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"docflow-backend/internal/shared/apperr"
	"docflow-backend/internal/shared/query"
	"docflow-backend/internal/shared/util"
)

// SearchResponse is a search page with the query echoed back.
type SearchResponse struct {
	query.Result[View]
	Query   string            `json:"query"`
	Filters map[string]string `json:"filters"`
}

// parseUploadForm reads document fields from a multipart form. hasFile
// defaults to true unless the form says otherwise.
func parseUploadForm(form *multipart.Form, fields *apperr.Fields) (CreateInput, bool) {
	get := func(key string) string {
		if vs := form.Value[key]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	in := CreateInput{
		Title:       get("title"),
		Description: get("description"),
		Category:    get("category"),
		Priority:    get("priority"),
		VendorDetails: VendorInput{
			VendorName:  get("vendorName"),
			VendorPhone: get("vendorPhone"),
			VendorNotes: get("vendorNotes"),
		},
	}

	hasFile := true
	if raw := strings.TrimSpace(get("hasFile")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			fields.Add("hasFile", "hasFile must be a boolean value")
		} else {
			hasFile = v
		}
	}

	in.Tags = parseTags(form.Value["tags"], fields)
	in.ExpiryDate = parseOptionalDate(get("expiryDate"), "expiryDate", "Expiry date must be a valid date", fields)
	in.VendorDetails.VendorDate = parseOptionalDate(get("vendorDate"), "vendorDate", "Vendor date must be a valid date", fields)

	if raw := strings.TrimSpace(get("metadata")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Metadata); err != nil {
			fields.Add("metadata", "Metadata must be a JSON object")
		}
	}
	for key, dst := range map[string]*string{
		"projectId":      &in.Metadata.ProjectID,
		"clientName":     &in.Metadata.ClientName,
		"documentNumber": &in.Metadata.DocumentNumber,
		"version":        &in.Metadata.Version,
	} {
		if v := get(key); v != "" {
			*dst = v
		}
	}
	return in, hasFile
}

// parseTags accepts a JSON array, a comma-separated list, or repeated form values.
func parseTags(values []string, fields *apperr.Fields) []string {
	var out []string
	for _, raw := range values {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "[") {
			var tags []string
			if err := json.Unmarshal([]byte(raw), &tags); err != nil {
				fields.Add("tags", "Tags must be an array")
				continue
			}
			out = append(out, tags...)
			continue
		}
		out = append(out, strings.Split(raw, ",")...)
	}
	return out
}

func parseOptionalDate(raw, field, msg string, fields *apperr.Fields) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	t, err := util.ParseDate(raw, time.UTC)
	if err != nil {
		fields.Add(field, msg)
		return nil
	}
	return &t
}
