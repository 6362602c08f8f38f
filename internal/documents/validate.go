package documents

import (
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"docflow-backend/internal/shared/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var fieldMessages = map[string]string{
	"title":          "Title is required and must be less than 200 characters",
	"description":    "Description must be less than 1000 characters",
	"category":       "Please select a valid category",
	"priority":       "Priority must be one of: low, medium, high, urgent",
	"vendorName":     "Vendor name must be less than 100 characters",
	"vendorPhone":    "Vendor phone must be less than 30 characters",
	"vendorNotes":    "Vendor notes must be less than 500 characters",
	"projectId":      "Project ID must be less than 100 characters",
	"clientName":     "Client name must be less than 100 characters",
	"documentNumber": "Document number must be less than 100 characters",
	"version":        "Version must be less than 20 characters",
	"status":         "Status must be approved, rejected, or under_review",
	"reviewComments": "Review comments must be less than 500 characters",
}

func check(v any, fields *apperr.Fields) {
	err := validate.Struct(v)
	if err == nil {
		return
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		fields.Add("body", "Invalid request body")
		return
	}
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Field()]
		if !ok {
			msg = fe.Field() + " is invalid"
		}
		fields.Add(fe.Field(), msg)
	}
}

// MetadataInput is the caller-editable part of Metadata.
type MetadataInput struct {
	ProjectID      string `json:"projectId" validate:"max=100"`
	ClientName     string `json:"clientName" validate:"max=100"`
	DocumentNumber string `json:"documentNumber" validate:"max=100"`
	Version        string `json:"version" validate:"max=20"`
}

// VendorInput is the upload form's vendor section.
type VendorInput struct {
	VendorName  string     `json:"vendorName" validate:"max=100"`
	VendorPhone string     `json:"vendorPhone" validate:"max=30"`
	VendorDate  *time.Time `json:"vendorDate"`
	VendorNotes string     `json:"vendorNotes" validate:"max=500"`
}

// CreateInput is everything a caller supplies for a new document besides the file.
type CreateInput struct {
	Title         string        `json:"title" validate:"min=1,max=200"`
	Description   string        `json:"description" validate:"max=1000"`
	Category      string        `json:"category" validate:"oneof=leave_application expense_report project_document personal_document compliance hr_document finance_document other"`
	Priority      string        `json:"priority" validate:"oneof=low medium high urgent"`
	Tags          []string      `json:"tags"`
	ExpiryDate    *time.Time    `json:"expiryDate"`
	VendorDetails VendorInput   `json:"vendorDetails"`
	Metadata      MetadataInput `json:"metadata"`
}

func (in *CreateInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Priority = strings.ToLower(strings.TrimSpace(in.Priority))
	if in.Priority == "" {
		in.Priority = string(PriorityMedium)
	}
	in.Tags = NormalizeTags(in.Tags)
	v := &in.VendorDetails
	v.VendorName = strings.TrimSpace(v.VendorName)
	v.VendorPhone = strings.TrimSpace(v.VendorPhone)
	v.VendorNotes = strings.TrimSpace(v.VendorNotes)
	m := &in.Metadata
	m.ProjectID = strings.TrimSpace(m.ProjectID)
	m.ClientName = strings.TrimSpace(m.ClientName)
	m.DocumentNumber = strings.TrimSpace(m.DocumentNumber)
	m.Version = strings.TrimSpace(m.Version)
	if m.Version == "" {
		m.Version = defaultVersion
	}
}

func (in CreateInput) vendor() *VendorDetails {
	v := &VendorDetails{
		VendorName:  in.VendorDetails.VendorName,
		VendorPhone: in.VendorDetails.VendorPhone,
		VendorDate:  in.VendorDetails.VendorDate,
		VendorNotes: in.VendorDetails.VendorNotes,
	}
	if v.empty() {
		return nil
	}
	return v
}

// ValidateCreate normalizes in, applies defaults and checks every field.
func ValidateCreate(in *CreateInput) error {
	in.normalize()
	var fields apperr.Fields
	check(in, &fields)
	return fields.Err()
}

// NormalizeTags trims and lowercases tags, dropping empties and keeping order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ValidateFile enforces that file fields exist exactly when hasFile is set,
// and derives the file type when it is missing.
func ValidateFile(hasFile bool, f *File) error {
	var fields apperr.Fields
	switch {
	case !hasFile && f != nil:
		fields.Add("hasFile", "File details are only allowed when hasFile is true")
	case hasFile && f == nil:
		fields.Add("document", "No file uploaded")
	case hasFile:
		if f.FileName == "" || f.FilePath == "" {
			fields.Add("document", "File name and path are required")
		}
		if f.OriginalName == "" {
			fields.Add("originalName", "Original file name is required")
		}
		if f.MimeType == "" {
			fields.Add("mimeType", "MIME type is required")
		}
		if f.FileSize <= 0 {
			fields.Add("fileSize", "Uploaded file is empty")
		}
		if f.FileType == "" {
			f.FileType = DeriveFileType(f.MimeType, f.OriginalName)
		}
	}
	return fields.Err()
}

// UpdateInput holds owner-editable metadata. Nil means unchanged.
type UpdateInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Category    *string    `json:"category"`
	Priority    *string    `json:"priority"`
	Tags        *[]string  `json:"tags"`
	ExpiryDate  *time.Time `json:"expiryDate"`
}

func (u UpdateInput) empty() bool {
	return u.Title == nil && u.Description == nil && u.Category == nil &&
		u.Priority == nil && u.Tags == nil && u.ExpiryDate == nil
}

// ValidateUpdate normalizes the set fields and rejects empty or out-of-range updates.
func ValidateUpdate(u *UpdateInput) error {
	if u.empty() {
		return apperr.Invalid("No valid fields to update")
	}
	var fields apperr.Fields
	if u.Title != nil {
		*u.Title = strings.TrimSpace(*u.Title)
		if n := utf8.RuneCountInString(*u.Title); n < 1 || n > 200 {
			fields.Add("title", fieldMessages["title"])
		}
	}
	if u.Description != nil {
		*u.Description = strings.TrimSpace(*u.Description)
		if utf8.RuneCountInString(*u.Description) > 1000 {
			fields.Add("description", fieldMessages["description"])
		}
	}
	if u.Category != nil {
		*u.Category = strings.TrimSpace(*u.Category)
		if !Category(*u.Category).Valid() {
			fields.Add("category", fieldMessages["category"])
		}
	}
	if u.Priority != nil {
		*u.Priority = strings.ToLower(strings.TrimSpace(*u.Priority))
		if !Priority(*u.Priority).Valid() {
			fields.Add("priority", fieldMessages["priority"])
		}
	}
	if u.Tags != nil {
		tags := NormalizeTags(*u.Tags)
		u.Tags = &tags
	}
	return fields.Err()
}

// ReviewInput is an admin's review decision.
type ReviewInput struct {
	Status         string `json:"status" validate:"oneof=approved rejected under_review"`
	ReviewComments string `json:"reviewComments" validate:"max=500"`
}

// ValidateReview checks the target status and comment length.
func ValidateReview(in *ReviewInput) error {
	in.Status = strings.TrimSpace(in.Status)
	in.ReviewComments = strings.TrimSpace(in.ReviewComments)
	var fields apperr.Fields
	check(in, &fields)
	return fields.Err()
}

// Filter narrows listings, searches and reports. Empty strings and "all" match everything.
type Filter struct {
	Owner       string
	Status      string
	Category    string
	Department  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ParseFilter validates the enumerated selectors.
func ParseFilter(status, category, department string, fields *apperr.Fields) Filter {
	f := Filter{
		Status:     strings.TrimSpace(status),
		Category:   strings.TrimSpace(category),
		Department: strings.TrimSpace(department),
	}
	if f.Status != "" && f.Status != "all" && !Status(f.Status).Valid() {
		fields.Add("status", "Status must be one of: pending, approved, rejected, under_review")
	}
	if f.Category != "" && f.Category != "all" && !Category(f.Category).Valid() {
		fields.Add("category", fieldMessages["category"])
	}
	return f
}
