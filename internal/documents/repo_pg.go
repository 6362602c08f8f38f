package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"docflow-backend/internal/shared/query"
	"docflow-backend/internal/users"
)

var documentColumns = []string{
	"id", "title", "description", "category", "status", "priority",
	"uploaded_by", "reviewed_by", "review_date", "review_comments", "tags",
	"is_archived", "expiry_date", "download_count", "last_download_date",
	"vendor_name", "vendor_phone", "vendor_date", "vendor_notes",
	"metadata_department", "metadata_project_id", "metadata_client_name",
	"metadata_document_number", "metadata_version",
	"has_file", "file_name", "original_name", "file_path", "file_size", "mime_type", "file_type",
	"created_at", "updated_at",
}

// Schema maps document pipeline fields to SQL. Owner and reviewer joins resolve against users.
var Schema = &query.Schema{
	Table: "documents",
	Alias: "d",
	Fields: func() map[string]string {
		out := map[string]string{
			LatencyField: "(EXTRACT(EPOCH FROM (d.review_date - d.created_at)) * 1000)",
		}
		for _, c := range documentColumns {
			out[c] = "d." + c
		}
		return out
	}(),
	Relations: map[string]*query.Schema{
		ownerAlias:    users.RelationSchema(ownerAlias),
		reviewerAlias: users.RelationSchema(reviewerAlias),
	},
}

func qualified(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}

var viewColumns = append(qualified("d", documentColumns),
	"owner.name", "owner.employee_id", "owner.department",
	"reviewer.name", "reviewer.employee_id",
)

var selectDocument = "SELECT " + strings.Join(qualified("d", documentColumns), ", ") + "\nFROM documents d\nWHERE d.id = $1"

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	placeholders := make([]string, len(documentColumns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	q := "INSERT INTO documents (" + strings.Join(documentColumns, ", ") + ")\nVALUES (" + strings.Join(placeholders, ", ") + ")"

	tags, err := encodeTags(doc.Tags)
	if err != nil {
		return err
	}
	vendor := doc.VendorDetails
	if vendor == nil {
		vendor = &VendorDetails{}
	}
	file := doc.File
	var fileName, originalName, filePath, mimeType, fileType, fileSize any
	if file != nil {
		fileName, originalName, filePath = file.FileName, file.OriginalName, file.FilePath
		fileSize, mimeType, fileType = file.FileSize, file.MimeType, string(file.FileType)
	}

	_, err = r.DB.ExecContext(ctx, q,
		doc.ID,
		doc.Title,
		doc.Description,
		string(doc.Category),
		string(doc.Status),
		string(doc.Priority),
		doc.UploadedBy,
		stringPtr(doc.ReviewedBy),
		timePtr(doc.ReviewDate),
		nullString(doc.ReviewComments),
		tags,
		doc.IsArchived,
		timePtr(doc.ExpiryDate),
		doc.DownloadCount,
		timePtr(doc.LastDownloadDate),
		nullString(vendor.VendorName),
		nullString(vendor.VendorPhone),
		timePtr(vendor.VendorDate),
		nullString(vendor.VendorNotes),
		doc.Metadata.Department,
		nullString(doc.Metadata.ProjectID),
		nullString(doc.Metadata.ClientName),
		nullString(doc.Metadata.DocumentNumber),
		doc.Metadata.Version,
		doc.HasFile,
		fileName,
		originalName,
		filePath,
		fileSize,
		mimeType,
		fileType,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, selectDocument, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

func (r *PGRepo) UpdateMetadata(ctx context.Context, id string, upd UpdateInput, at time.Time) error {
	const q = `
UPDATE documents
SET title = COALESCE($2, title),
    description = COALESCE($3, description),
    category = COALESCE($4, category),
    priority = COALESCE($5, priority),
    tags = COALESCE($6::jsonb, tags),
    expiry_date = COALESCE($7, expiry_date),
    updated_at = $8
WHERE id = $1`
	var tags any
	if upd.Tags != nil {
		encoded, err := encodeTags(*upd.Tags)
		if err != nil {
			return err
		}
		tags = encoded
	}
	return r.execOne(ctx, q, id,
		stringPtr(upd.Title),
		stringPtr(upd.Description),
		stringPtr(upd.Category),
		stringPtr(upd.Priority),
		tags,
		timePtr(upd.ExpiryDate),
		at,
	)
}

func (r *PGRepo) ApplyReview(ctx context.Context, id string, u ReviewUpdate) error {
	const q = `
UPDATE documents
SET status = $2,
    reviewed_by = $3,
    review_date = COALESCE($4, review_date),
    review_comments = COALESCE($5, review_comments),
    updated_at = $6
WHERE id = $1`
	return r.execOne(ctx, q, id, string(u.Status), u.ReviewedBy, timePtr(u.ReviewDate), stringPtr(u.ReviewComments), u.UpdatedAt)
}

func (r *PGRepo) RecordDownload(ctx context.Context, id string, count int64, at time.Time) error {
	const q = `UPDATE documents SET download_count = $2, last_download_date = $3 WHERE id = $1`
	return r.execOne(ctx, q, id, count, at)
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM documents WHERE id = $1`, id)
}

func (r *PGRepo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Find(ctx context.Context, p query.Pipeline) ([]View, error) {
	stmt, err := query.Compile(p, Schema, viewColumns)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []View
	for rows.Next() {
		var ownerName, ownerEmployee, ownerDept, reviewerName, reviewerEmployee sql.NullString
		extra := []any{&ownerName, &ownerEmployee, &ownerDept, &reviewerName, &reviewerEmployee}
		if stmt.Scored {
			var score float64
			extra = append(extra, &score)
		}
		doc, err := scanDocument(rows, extra...)
		if err != nil {
			return nil, err
		}
		view := View{
			Document: doc,
			Owner: UserRef{
				ID:         doc.UploadedBy,
				Name:       ownerName.String,
				EmployeeID: ownerEmployee.String,
				Department: ownerDept.String,
			},
		}
		if doc.ReviewedBy != nil {
			view.Reviewer = &UserRef{ID: *doc.ReviewedBy, Name: reviewerName.String, EmployeeID: reviewerEmployee.String}
		}
		out = append(out, view)
	}
	return out, rows.Err()
}

func (r *PGRepo) Count(ctx context.Context, p query.Pipeline) (int64, error) {
	stmt, err := query.Compile(p.Unpaged().Then(query.Count{}), Schema, nil)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := r.DB.QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PGRepo) Aggregate(ctx context.Context, p query.Pipeline) ([]query.Row, error) {
	stmt, err := query.Compile(p, Schema, nil)
	if err != nil {
		return nil, err
	}
	return query.Run(ctx, r.DB, stmt)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner, extra ...any) (Document, error) {
	var (
		doc                                   Document
		category, status, priority            string
		reviewedBy, reviewComments            sql.NullString
		reviewDate, expiryDate, lastDownload  sql.NullTime
		tags                                  []byte
		vendorName, vendorPhone, vendorNotes  sql.NullString
		vendorDate                            sql.NullTime
		projectID, clientName, documentNumber sql.NullString
		fileName, originalName, filePath      sql.NullString
		mimeType, fileType                    sql.NullString
		fileSize                              sql.NullInt64
	)
	dest := []any{
		&doc.ID,
		&doc.Title,
		&doc.Description,
		&category,
		&status,
		&priority,
		&doc.UploadedBy,
		&reviewedBy,
		&reviewDate,
		&reviewComments,
		&tags,
		&doc.IsArchived,
		&expiryDate,
		&doc.DownloadCount,
		&lastDownload,
		&vendorName,
		&vendorPhone,
		&vendorDate,
		&vendorNotes,
		&doc.Metadata.Department,
		&projectID,
		&clientName,
		&documentNumber,
		&doc.Metadata.Version,
		&doc.HasFile,
		&fileName,
		&originalName,
		&filePath,
		&fileSize,
		&mimeType,
		&fileType,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return Document{}, err
	}

	doc.Category = Category(category)
	doc.Status = Status(status)
	doc.Priority = Priority(priority)
	if reviewedBy.Valid {
		v := reviewedBy.String
		doc.ReviewedBy = &v
	}
	doc.ReviewDate = timeOrNil(reviewDate)
	doc.ReviewComments = reviewComments.String
	doc.ExpiryDate = timeOrNil(expiryDate)
	doc.LastDownloadDate = timeOrNil(lastDownload)
	decoded, err := decodeTags(tags)
	if err != nil {
		return Document{}, err
	}
	doc.Tags = decoded
	vendor := &VendorDetails{
		VendorName:  vendorName.String,
		VendorPhone: vendorPhone.String,
		VendorDate:  timeOrNil(vendorDate),
		VendorNotes: vendorNotes.String,
	}
	if !vendor.empty() {
		doc.VendorDetails = vendor
	}
	doc.Metadata.ProjectID = projectID.String
	doc.Metadata.ClientName = clientName.String
	doc.Metadata.DocumentNumber = documentNumber.String
	if doc.HasFile {
		doc.File = &File{
			FileName:     fileName.String,
			OriginalName: originalName.String,
			FilePath:     filePath.String,
			FileSize:     fileSize.Int64,
			MimeType:     mimeType.String,
			FileType:     FileType(fileType.String),
		}
	}
	return doc, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func decodeTags(raw []byte) ([]string, error) {
	tags := []string{}
	if len(raw) == 0 {
		return tags, nil
	}
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return tags, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func stringPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func timePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func timeOrNil(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

var _ Repo = (*PGRepo)(nil)
