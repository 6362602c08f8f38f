// Package reports builds the admin dashboard and summary reports from the
// document and user directories.
package reports

import (
	"context"
	"errors"
	"time"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/shared/auth"
	"docflow-backend/internal/shared/query"
	"docflow-backend/internal/shared/util"
	"docflow-backend/internal/users"
)

const (
	recentDocuments = 10
	recentUsers     = 5
)

// DocumentQueries is the read side of the document store.
type DocumentQueries interface {
	Find(ctx context.Context, p query.Pipeline) ([]documents.View, error)
	Count(ctx context.Context, p query.Pipeline) (int64, error)
	Aggregate(ctx context.Context, p query.Pipeline) ([]query.Row, error)
}

// UserDirectory is the part of the user service reports read from.
type UserDirectory interface {
	CountByRole(ctx context.Context, role auth.Role) (int64, error)
	Recent(ctx context.Context, role auth.Role, n int) ([]users.User, error)
}

type Service struct {
	Docs  DocumentQueries
	Users UserDirectory
	Now   func() time.Time
}

func NewService(docs DocumentQueries, dir UserDirectory) *Service {
	return &Service{Docs: docs, Users: dir, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) configured() error {
	if s == nil || s.Docs == nil || s.Users == nil {
		return errors.New("reports service not configured")
	}
	return nil
}

// Bucket is one group of a breakdown.
type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type Statistics struct {
	TotalUsers           int64 `json:"totalUsers"`
	TotalDocuments       int64 `json:"totalDocuments"`
	PendingDocuments     int64 `json:"pendingDocuments"`
	ApprovedDocuments    int64 `json:"approvedDocuments"`
	RejectedDocuments    int64 `json:"rejectedDocuments"`
	UnderReviewDocuments int64 `json:"underReviewDocuments"`
	TodayUploads         int64 `json:"todayUploads"`
}

type Charts struct {
	DocumentsByStatus   map[string]int64 `json:"documentsByStatus"`
	DocumentsByCategory []Bucket         `json:"documentsByCategory"`
}

// RecentUser is the public part of a newly registered user.
type RecentUser struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	EmployeeID string    `json:"employeeId"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"createdAt"`
}

type RecentActivity struct {
	RecentDocuments []documents.View `json:"recentDocuments"`
	RecentUsers     []RecentUser     `json:"recentUsers"`
}

// Dashboard is the admin landing page.
type Dashboard struct {
	Statistics     Statistics     `json:"statistics"`
	Charts         Charts         `json:"charts"`
	RecentActivity RecentActivity `json:"recentActivity"`
}

// Dashboard counts employees and non-archived documents. Today's uploads
// include archived documents; "today" is the calendar day containing now in loc.
func (s *Service) Dashboard(ctx context.Context, loc *time.Location) (Dashboard, error) {
	if err := s.configured(); err != nil {
		return Dashboard{}, err
	}
	var d Dashboard

	n, err := s.Users.CountByRole(ctx, auth.RoleUser)
	if err != nil {
		return Dashboard{}, err
	}
	d.Statistics.TotalUsers = n

	byStatus, err := s.group(ctx, documents.Filter{}, "status")
	if err != nil {
		return Dashboard{}, err
	}
	d.Charts.DocumentsByStatus = make(map[string]int64, len(documents.Statuses))
	for _, st := range documents.Statuses {
		d.Charts.DocumentsByStatus[string(st)] = 0
	}
	for _, b := range byStatus {
		d.Charts.DocumentsByStatus[b.Key] = b.Count
		d.Statistics.TotalDocuments += b.Count
	}
	d.Statistics.PendingDocuments = d.Charts.DocumentsByStatus[string(documents.StatusPending)]
	d.Statistics.ApprovedDocuments = d.Charts.DocumentsByStatus[string(documents.StatusApproved)]
	d.Statistics.RejectedDocuments = d.Charts.DocumentsByStatus[string(documents.StatusRejected)]
	d.Statistics.UnderReviewDocuments = d.Charts.DocumentsByStatus[string(documents.StatusUnderReview)]

	start, end := util.DayBounds(s.now(), loc)
	today, err := s.Docs.Count(ctx, documents.UploadsPipeline(start, end))
	if err != nil {
		return Dashboard{}, err
	}
	d.Statistics.TodayUploads = today

	if d.Charts.DocumentsByCategory, err = s.group(ctx, documents.Filter{}, "category"); err != nil {
		return Dashboard{}, err
	}

	docs, err := s.Docs.Find(ctx, documents.RecentPipeline(recentDocuments))
	if err != nil {
		return Dashboard{}, err
	}
	if docs == nil {
		docs = []documents.View{}
	}
	d.RecentActivity.RecentDocuments = docs

	newest, err := s.Users.Recent(ctx, auth.RoleUser, recentUsers)
	if err != nil {
		return Dashboard{}, err
	}
	d.RecentActivity.RecentUsers = make([]RecentUser, 0, len(newest))
	for _, u := range newest {
		d.RecentActivity.RecentUsers = append(d.RecentActivity.RecentUsers, RecentUser{
			ID:         u.ID,
			Name:       u.Name,
			EmployeeID: u.EmployeeID,
			Department: u.Department,
			CreatedAt:  u.CreatedAt,
		})
	}
	return d, nil
}

func (s *Service) group(ctx context.Context, f documents.Filter, key string) ([]Bucket, error) {
	rows, err := s.Docs.Aggregate(ctx, documents.GroupPipeline(f, key, false))
	if err != nil {
		return nil, err
	}
	out := make([]Bucket, 0, len(rows))
	for _, row := range rows {
		out = append(out, Bucket{Key: query.String(row, query.KeyField), Count: query.Int(row, query.CountField)})
	}
	return out, nil
}

// SummaryFilter narrows the summary report. Nil bounds are open.
type SummaryFilter struct {
	StartDate  *time.Time `json:"startDate,omitempty"`
	EndDate    *time.Time `json:"endDate,omitempty"`
	Department string     `json:"department,omitempty"`
}

// Totals are the headline numbers of a summary report. The average covers
// reviewed documents only and is nil when none were reviewed.
type Totals struct {
	Total               int64    `json:"total"`
	TotalSize           int64    `json:"totalSize"`
	AvgProcessingTimeMs *float64 `json:"avgProcessingTimeMs"`
	AvgProcessingTime   string   `json:"avgProcessingTime,omitempty"`
}

type Breakdown struct {
	ByCategory   []Bucket `json:"byCategory"`
	ByDepartment []Bucket `json:"byDepartment"`
	ByStatus     []Bucket `json:"byStatus"`
}

type Summary struct {
	Summary   Totals        `json:"summary"`
	Breakdown Breakdown     `json:"breakdown"`
	Filters   SummaryFilter `json:"filters"`
}

// Summary totals non-archived documents created within the filter range.
func (s *Service) Summary(ctx context.Context, sf SummaryFilter) (Summary, error) {
	if err := s.configured(); err != nil {
		return Summary{}, err
	}
	f := documents.Filter{Department: sf.Department, CreatedFrom: sf.StartDate, CreatedTo: sf.EndDate}
	out := Summary{Filters: sf}

	rows, err := s.Docs.Aggregate(ctx, documents.SummaryPipeline(f))
	if err != nil {
		return Summary{}, err
	}
	if len(rows) > 0 {
		row := rows[0]
		out.Summary.Total = query.Int(row, documents.SummaryTotal)
		out.Summary.TotalSize = query.Int(row, documents.SummaryTotalSize)
		if ms, ok := query.Float(row, documents.SummaryLatency); ok {
			out.Summary.AvgProcessingTimeMs = &ms
			out.Summary.AvgProcessingTime = time.Duration(ms * float64(time.Millisecond)).Round(time.Second).String()
		}
	}

	if out.Breakdown.ByCategory, err = s.group(ctx, f, "category"); err != nil {
		return Summary{}, err
	}
	if out.Breakdown.ByDepartment, err = s.group(ctx, f, documents.OwnerDepartment); err != nil {
		return Summary{}, err
	}
	if out.Breakdown.ByStatus, err = s.group(ctx, f, "status"); err != nil {
		return Summary{}, err
	}
	return out, nil
}
