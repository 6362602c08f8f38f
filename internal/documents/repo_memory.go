package documents

import (
	"context"
	"sync"
	"time"

	"docflow-backend/internal/shared/query"
	"docflow-backend/internal/users"
)

// UserRows supplies user rows for owner and reviewer joins.
type UserRows interface {
	Rows() []query.Row
}

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu    sync.RWMutex
	docs  map[string]Document
	users UserRows
}

func NewMemoryRepo(users UserRows) *MemoryRepo {
	return &MemoryRepo{docs: make(map[string]Document), users: users}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = clone(doc)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return clone(doc), nil
}

func (r *MemoryRepo) UpdateMetadata(ctx context.Context, id string, upd UpdateInput, at time.Time) error {
	return r.mutate(ctx, id, func(d *Document) {
		if upd.Title != nil {
			d.Title = *upd.Title
		}
		if upd.Description != nil {
			d.Description = *upd.Description
		}
		if upd.Category != nil {
			d.Category = Category(*upd.Category)
		}
		if upd.Priority != nil {
			d.Priority = Priority(*upd.Priority)
		}
		if upd.Tags != nil {
			d.Tags = append([]string{}, (*upd.Tags)...)
		}
		if upd.ExpiryDate != nil {
			t := *upd.ExpiryDate
			d.ExpiryDate = &t
		}
		d.UpdatedAt = at
	})
}

func (r *MemoryRepo) ApplyReview(ctx context.Context, id string, u ReviewUpdate) error {
	return r.mutate(ctx, id, func(d *Document) {
		*d = u.Apply(*d)
	})
}

func (r *MemoryRepo) RecordDownload(ctx context.Context, id string, count int64, at time.Time) error {
	return r.mutate(ctx, id, func(d *Document) {
		d.DownloadCount = count
		t := at
		d.LastDownloadDate = &t
	})
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

func (r *MemoryRepo) mutate(ctx context.Context, id string, fn func(*Document)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return ErrNotFound
	}
	fn(&doc)
	r.docs[id] = doc
	return nil
}

func (r *MemoryRepo) Find(ctx context.Context, p query.Pipeline) ([]View, error) {
	rows, err := r.Aggregate(ctx, p)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]View, 0, len(rows))
	for _, row := range rows {
		doc, ok := r.docs[query.String(row, "id")]
		if !ok {
			continue
		}
		out = append(out, viewFromRow(clone(doc), row))
	}
	return out, nil
}

func (r *MemoryRepo) Count(ctx context.Context, p query.Pipeline) (int64, error) {
	rows, err := r.Aggregate(ctx, p.Unpaged().Then(query.Count{}))
	if err != nil {
		return 0, err
	}
	return query.Int(rows[0], query.CountField), nil
}

func (r *MemoryRepo) Aggregate(ctx context.Context, p query.Pipeline) ([]query.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return query.Exec(r.rows(), p, r.lookup)
}

func (r *MemoryRepo) lookup(collection string) []query.Row {
	if collection != users.Collection || r.users == nil {
		return nil
	}
	return r.users.Rows()
}

func (r *MemoryRepo) rows() []query.Row {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]query.Row, 0, len(r.docs))
	for _, d := range r.docs {
		out = append(out, toRow(d))
	}
	return out
}

func toRow(d Document) query.Row {
	row := query.Row{
		"id":                  d.ID,
		"title":               d.Title,
		"description":         d.Description,
		"category":            string(d.Category),
		"status":              string(d.Status),
		"priority":            string(d.Priority),
		"uploaded_by":         d.UploadedBy,
		"reviewed_by":         d.ReviewedBy,
		"review_date":         d.ReviewDate,
		"tags":                d.Tags,
		"is_archived":         d.IsArchived,
		"expiry_date":         d.ExpiryDate,
		"download_count":      d.DownloadCount,
		"has_file":            d.HasFile,
		"metadata_department": d.Metadata.Department,
		"created_at":          d.CreatedAt,
		"updated_at":          d.UpdatedAt,
		"file_size":           nil,
		LatencyField:          nil,
	}
	if d.File != nil {
		row["file_size"] = d.File.FileSize
	}
	if d.ReviewDate != nil {
		row[LatencyField] = float64(d.ReviewDate.Sub(d.CreatedAt).Milliseconds())
	}
	return row
}

func viewFromRow(doc Document, row query.Row) View {
	v := View{
		Document: doc,
		Owner: UserRef{
			ID:         doc.UploadedBy,
			Name:       query.String(row, ownerAlias+".name"),
			EmployeeID: query.String(row, ownerAlias+".employee_id"),
			Department: query.String(row, ownerAlias+".department"),
		},
	}
	if doc.ReviewedBy != nil {
		v.Reviewer = &UserRef{
			ID:         *doc.ReviewedBy,
			Name:       query.String(row, reviewerAlias+".name"),
			EmployeeID: query.String(row, reviewerAlias+".employee_id"),
		}
	}
	return v
}

func clone(d Document) Document {
	if d.Tags != nil {
		d.Tags = append([]string{}, d.Tags...)
	}
	if d.File != nil {
		f := *d.File
		d.File = &f
	}
	if d.VendorDetails != nil {
		v := *d.VendorDetails
		d.VendorDetails = &v
	}
	return d
}

var _ Repo = (*MemoryRepo)(nil)
