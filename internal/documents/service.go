package documents

import (
	"context"
	"errors"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"docflow-backend/internal/events"
	"docflow-backend/internal/shared/apperr"
	"docflow-backend/internal/shared/auth"
	"docflow-backend/internal/shared/metrics"
	"docflow-backend/internal/shared/query"
	"docflow-backend/internal/shared/storage/object"
	"docflow-backend/internal/shared/telemetry"
	"docflow-backend/internal/shared/util"
	"docflow-backend/internal/users"
)

const defaultMimeType = "application/octet-stream"

// UserLookup resolves the uploader for the department snapshot.
type UserLookup interface {
	GetByID(ctx context.Context, userID string) (users.User, error)
}

// Service contains the document workflow: upload, edit, review, download and delete.
type Service struct {
	Repo   Repo
	Store  object.ObjectStore
	Users  UserLookup
	Events events.Publisher
	Now    func() time.Time
}

func NewService(repo Repo, store object.ObjectStore, lookup UserLookup, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Noop{}
	}
	return &Service{Repo: repo, Store: store, Users: lookup, Events: pub, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) configured() error {
	if s == nil || s.Repo == nil {
		return errors.New("documents service not configured")
	}
	return nil
}

// Upload is a file part supplied with a new document.
type Upload struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

// Create validates in, stores the file when hasFile is set and records the
// document. A stored blob is removed again if the record cannot be written.
func (s *Service) Create(ctx context.Context, actor auth.Principal, in CreateInput, hasFile bool, up *Upload) (View, error) {
	if err := s.configured(); err != nil {
		return View{}, err
	}
	if err := ValidateCreate(&in); err != nil {
		return View{}, err
	}
	if hasFile && up == nil {
		return View{}, ValidateFile(true, nil)
	}
	if s.Users == nil {
		return View{}, errors.New("documents service missing user lookup")
	}
	owner, err := s.Users.GetByID(ctx, actor.UserID)
	if err != nil {
		return View{}, err
	}

	now := s.now()
	doc := Document{
		ID:            uuid.NewString(),
		Title:         in.Title,
		Description:   in.Description,
		Category:      Category(in.Category),
		Status:        StatusPending,
		Priority:      Priority(in.Priority),
		UploadedBy:    owner.ID,
		Tags:          in.Tags,
		ExpiryDate:    in.ExpiryDate,
		VendorDetails: in.vendor(),
		Metadata: Metadata{
			Department:     owner.Department,
			ProjectID:      in.Metadata.ProjectID,
			ClientName:     in.Metadata.ClientName,
			DocumentNumber: in.Metadata.DocumentNumber,
			Version:        in.Metadata.Version,
		},
		HasFile:   hasFile,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if hasFile {
		file, err := s.store(ctx, owner.ID, up)
		if err != nil {
			return View{}, err
		}
		doc.File = file
	}
	if err := ValidateFile(doc.HasFile, doc.File); err != nil {
		s.cleanup(ctx, doc.File)
		return View{}, err
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		s.cleanup(ctx, doc.File)
		return View{}, err
	}

	metrics.IncDocumentUploaded(doc.HasFile)
	telemetry.Info("document.created", map[string]any{
		"document_id": doc.ID,
		"user_id":     owner.ID,
		"has_file":    doc.HasFile,
		"category":    string(doc.Category),
	})
	events.Emit(ctx, s.Events, events.Event{
		Type:       events.TypeDocumentUploaded,
		DocumentID: doc.ID,
		ActorID:    owner.ID,
		Status:     string(doc.Status),
		OccurredAt: now,
	})
	return s.view(ctx, doc.ID)
}

func (s *Service) store(ctx context.Context, ownerID string, up *Upload) (*File, error) {
	if s.Store == nil {
		return nil, errors.New("documents service missing object store")
	}
	mimeType := up.ContentType
	if mimeType == "" {
		mimeType = defaultMimeType
	}
	key, size, err := s.Store.Save(ctx, ownerID, up.FileName, mimeType, up.Body)
	if err != nil {
		if errors.Is(err, util.ErrInvalidFileName) {
			return nil, apperr.Fields{{Field: "document", Message: "Invalid file name"}}.Err()
		}
		return nil, apperr.Upstream("File storage unavailable", err)
	}
	return &File{
		FileName:     path.Base(key),
		OriginalName: up.FileName,
		FilePath:     key,
		FileSize:     size,
		MimeType:     mimeType,
		FileType:     DeriveFileType(mimeType, up.FileName),
	}, nil
}

// cleanup removes a blob whose record was never written or has been deleted.
// Failures are logged and counted only.
func (s *Service) cleanup(ctx context.Context, f *File) {
	if f == nil || f.FilePath == "" || s.Store == nil {
		return
	}
	err := s.Store.Delete(context.WithoutCancel(ctx), f.FilePath)
	if err == nil || errors.Is(err, object.ErrNotFound) {
		return
	}
	metrics.IncBlobCleanupFailure()
	telemetry.Error("document.blob_cleanup_failed", map[string]any{
		"storage_key": f.FilePath,
		"error":       err.Error(),
	})
}

func (s *Service) view(ctx context.Context, id string) (View, error) {
	items, err := s.Repo.Find(ctx, ByIDPipeline(id))
	if err != nil {
		return View{}, err
	}
	if len(items) == 0 {
		return View{}, ErrNotFound
	}
	return items[0], nil
}

// load fetches a document by a caller-supplied ID. Malformed IDs are reported as missing.
func (s *Service) load(ctx context.Context, id string) (Document, error) {
	if err := s.configured(); err != nil {
		return Document{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return Document{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

// Get returns one document to its owner or an admin.
func (s *Service) Get(ctx context.Context, actor auth.Principal, id string) (View, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return View{}, err
	}
	if err := authorizeView(actor, doc); err != nil {
		return View{}, err
	}
	return s.view(ctx, id)
}

// Update applies owner metadata edits while the document is undecided.
func (s *Service) Update(ctx context.Context, actor auth.Principal, id string, upd UpdateInput) (View, error) {
	if err := ValidateUpdate(&upd); err != nil {
		return View{}, err
	}
	doc, err := s.load(ctx, id)
	if err != nil {
		return View{}, err
	}
	if err := authorizeEdit(actor, doc); err != nil {
		return View{}, err
	}
	if err := s.Repo.UpdateMetadata(ctx, id, upd, s.now()); err != nil {
		return View{}, err
	}
	telemetry.Info("document.updated", map[string]any{"document_id": id, "user_id": actor.UserID})
	return s.view(ctx, id)
}

// Review records an admin decision in one write.
func (s *Service) Review(ctx context.Context, actor auth.Principal, id string, in ReviewInput) (View, error) {
	if err := authorizeReview(actor); err != nil {
		return View{}, err
	}
	if err := ValidateReview(&in); err != nil {
		return View{}, err
	}
	doc, err := s.load(ctx, id)
	if err != nil {
		return View{}, err
	}
	now := s.now()
	upd, err := Transition(in, actor.UserID, now)
	if err != nil {
		return View{}, err
	}
	if err := s.Repo.ApplyReview(ctx, id, upd); err != nil {
		return View{}, err
	}

	metrics.IncDocumentReviewed(string(upd.Status))
	telemetry.Info("document.reviewed", map[string]any{
		"document_id": id,
		"reviewer_id": actor.UserID,
		"from":        string(doc.Status),
		"to":          string(upd.Status),
	})
	events.Emit(ctx, s.Events, events.Event{
		Type:       events.TypeDocumentReviewed,
		DocumentID: id,
		ActorID:    actor.UserID,
		Status:     string(upd.Status),
		OccurredAt: now,
	})
	return s.view(ctx, id)
}

// Delete removes the backing blob, then the record. The two steps are not
// atomic: a failed blob delete is logged and the record is still removed.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	doc, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorizeDelete(actor, doc); err != nil {
		return err
	}
	s.cleanup(ctx, doc.File)
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	telemetry.Info("document.deleted", map[string]any{"document_id": id, "user_id": actor.UserID})
	events.Emit(ctx, s.Events, events.Event{
		Type:       events.TypeDocumentDeleted,
		DocumentID: id,
		ActorID:    actor.UserID,
		OccurredAt: s.now(),
	})
	return nil
}

// Download is an open blob plus the headers needed to serve it.
type Download struct {
	Body     io.ReadCloser
	FileName string
	MimeType string
	Size     int64
}

// Download opens the file behind a document and bumps its download counter.
func (s *Service) Download(ctx context.Context, actor auth.Principal, id string) (Download, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return Download{}, err
	}
	if err := authorizeView(actor, doc); err != nil {
		return Download{}, err
	}
	if !doc.HasFile || doc.File == nil || doc.File.FilePath == "" {
		return Download{}, apperr.NotFound("No file attached to this document")
	}
	if s.Store == nil {
		return Download{}, errors.New("documents service missing object store")
	}
	body, err := s.Store.Open(ctx, doc.File.FilePath)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Download{}, apperr.NotFound("File not found on server")
		}
		return Download{}, apperr.Upstream("File storage unavailable", err)
	}
	if err := s.Repo.RecordDownload(ctx, id, doc.DownloadCount+1, s.now()); err != nil {
		_ = body.Close()
		return Download{}, err
	}
	metrics.IncDocumentDownload()
	return Download{
		Body:     body,
		FileName: doc.File.OriginalName,
		MimeType: doc.File.MimeType,
		Size:     doc.File.FileSize,
	}, nil
}

// scope restricts non-admin callers to their own documents.
func scope(actor auth.Principal, f Filter) Filter {
	if !actor.IsAdmin() {
		f.Owner = actor.UserID
	}
	return f
}

// List pages through documents matching f. Non-admins only ever see their own.
func (s *Service) List(ctx context.Context, actor auth.Principal, f Filter, sort query.Sort, page query.PageRequest) (query.Result[View], error) {
	if err := s.configured(); err != nil {
		return query.Result[View]{}, err
	}
	return s.page(ctx, ListPipeline(scope(actor, f), sort, page), page)
}

// Search ranks documents matching f by relevance to q.
func (s *Service) Search(ctx context.Context, actor auth.Principal, q string, f Filter, page query.PageRequest) (query.Result[View], error) {
	if err := s.configured(); err != nil {
		return query.Result[View]{}, err
	}
	return s.page(ctx, SearchPipeline(q, scope(actor, f), page), page)
}

func (s *Service) page(ctx context.Context, p query.Pipeline, page query.PageRequest) (query.Result[View], error) {
	items, err := s.Repo.Find(ctx, p)
	if err != nil {
		return query.Result[View]{}, err
	}
	total, err := s.Repo.Count(ctx, p)
	if err != nil {
		return query.Result[View]{}, err
	}
	return query.NewResult(items, page, total), nil
}

// MyStats counts the caller's documents by status, archived ones included.
func (s *Service) MyStats(ctx context.Context, actor auth.Principal) (Stats, error) {
	if err := s.configured(); err != nil {
		return Stats{}, err
	}
	rows, err := s.Repo.Aggregate(ctx, GroupPipeline(Filter{Owner: actor.UserID}, "status", true))
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	for _, row := range rows {
		n := query.Int(row, "count")
		st.TotalDocuments += n
		switch Status(query.String(row, query.KeyField)) {
		case StatusPending:
			st.PendingDocuments = n
		case StatusApproved:
			st.ApprovedDocuments = n
		case StatusRejected:
			st.RejectedDocuments = n
		case StatusUnderReview:
			st.UnderReviewDocuments = n
		}
	}
	return st, nil
}
