package documents

import "time"

// Status is the review state of a document.
type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusUnderReview}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Decided reports whether s closes the document for owner edits.
func (s Status) Decided() bool {
	return s == StatusApproved || s == StatusRejected
}

type Category string

const (
	CategoryLeaveApplication Category = "leave_application"
	CategoryExpenseReport    Category = "expense_report"
	CategoryProjectDocument  Category = "project_document"
	CategoryPersonalDocument Category = "personal_document"
	CategoryCompliance       Category = "compliance"
	CategoryHRDocument       Category = "hr_document"
	CategoryFinanceDocument  Category = "finance_document"
	CategoryOther            Category = "other"
)

var Categories = []Category{
	CategoryLeaveApplication,
	CategoryExpenseReport,
	CategoryProjectDocument,
	CategoryPersonalDocument,
	CategoryCompliance,
	CategoryHRDocument,
	CategoryFinanceDocument,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeDoc   FileType = "doc"
	FileTypeDocx  FileType = "docx"
	FileTypeImage FileType = "image"
	FileTypeOther FileType = "other"
)

// VendorDetails is optional supplier information attached at upload.
type VendorDetails struct {
	VendorName  string     `json:"vendorName,omitempty"`
	VendorPhone string     `json:"vendorPhone,omitempty"`
	VendorDate  *time.Time `json:"vendorDate,omitempty"`
	VendorNotes string     `json:"vendorNotes,omitempty"`
}

func (v *VendorDetails) empty() bool {
	return v == nil || (v.VendorName == "" && v.VendorPhone == "" && v.VendorDate == nil && v.VendorNotes == "")
}

// Metadata carries business references. Department is a snapshot of the uploader's.
type Metadata struct {
	Department     string `json:"department,omitempty"`
	ProjectID      string `json:"projectId,omitempty"`
	ClientName     string `json:"clientName,omitempty"`
	DocumentNumber string `json:"documentNumber,omitempty"`
	Version        string `json:"version"`
}

const defaultVersion = "1.0"

// File identifies the stored blob. It is present only when HasFile is set.
type File struct {
	FileName     string   `json:"fileName"`
	OriginalName string   `json:"originalName"`
	FilePath     string   `json:"filePath"`
	FileSize     int64    `json:"fileSize"`
	MimeType     string   `json:"mimeType"`
	FileType     FileType `json:"fileType"`
}

// Document is a metadata record, optionally backed by a stored file.
type Document struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Category         Category       `json:"category"`
	Status           Status         `json:"status"`
	Priority         Priority       `json:"priority"`
	UploadedBy       string         `json:"uploadedBy"`
	ReviewedBy       *string        `json:"reviewedBy"`
	ReviewDate       *time.Time     `json:"reviewDate"`
	ReviewComments   string         `json:"reviewComments,omitempty"`
	Tags             []string       `json:"tags"`
	IsArchived       bool           `json:"isArchived"`
	ExpiryDate       *time.Time     `json:"expiryDate"`
	DownloadCount    int64          `json:"downloadCount"`
	LastDownloadDate *time.Time     `json:"lastDownloadDate"`
	VendorDetails    *VendorDetails `json:"vendorDetails,omitempty"`
	Metadata         Metadata       `json:"metadata"`
	HasFile          bool           `json:"hasFile"`
	*File
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserRef is the public slice of a user shown next to a document.
type UserRef struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	EmployeeID string `json:"employeeId,omitempty"`
	Department string `json:"department,omitempty"`
}

// View is a document with its owner and reviewer resolved.
type View struct {
	Document
	Owner    UserRef  `json:"uploadedBy"`
	Reviewer *UserRef `json:"reviewedBy"`
}

// Stats counts one owner's documents by status.
type Stats struct {
	TotalDocuments       int64 `json:"totalDocuments"`
	PendingDocuments     int64 `json:"pendingDocuments"`
	ApprovedDocuments    int64 `json:"approvedDocuments"`
	RejectedDocuments    int64 `json:"rejectedDocuments"`
	UnderReviewDocuments int64 `json:"underReviewDocuments"`
}
