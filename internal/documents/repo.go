package documents

import (
	"context"
	"time"

	"docflow-backend/internal/shared/apperr"
	"docflow-backend/internal/shared/query"
)

var ErrNotFound = apperr.NotFound("Document not found")

// Repo persists document records. Every write is a single statement.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	UpdateMetadata(ctx context.Context, id string, upd UpdateInput, at time.Time) error
	ApplyReview(ctx context.Context, id string, u ReviewUpdate) error
	// RecordDownload stores an already incremented counter; concurrent callers may lose increments.
	RecordDownload(ctx context.Context, id string, count int64, at time.Time) error
	Delete(ctx context.Context, id string) error
	Find(ctx context.Context, p query.Pipeline) ([]View, error)
	Count(ctx context.Context, p query.Pipeline) (int64, error)
	Aggregate(ctx context.Context, p query.Pipeline) ([]query.Row, error)
}
