package documents

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"docflow-backend/internal/events"
	"docflow-backend/internal/shared/apperr"
	"docflow-backend/internal/shared/auth"
	"docflow-backend/internal/shared/query"
	"docflow-backend/internal/shared/storage/object"
	"docflow-backend/internal/shared/storage/object/local"
	"docflow-backend/internal/users"
)

type testEnv struct {
	svc    *Service
	repo   *MemoryRepo
	users  *users.MemoryRepo
	store  *local.Store
	events *events.Recorder
	clock  time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	userRepo := users.NewMemoryRepo()
	repo := NewMemoryRepo(userRepo)
	store := local.New(t.TempDir())
	rec := &events.Recorder{}
	env := &testEnv{
		repo:   repo,
		users:  userRepo,
		store:  store,
		events: rec,
		clock:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	env.svc = NewService(repo, store, userRepo, rec)
	env.svc.Now = func() time.Time { return env.clock }
	return env
}

func (e *testEnv) addUser(t *testing.T, id, employeeID, name, department string, role auth.Role) auth.Principal {
	t.Helper()
	u := users.User{
		ID:         id,
		EmployeeID: employeeID,
		Name:       name,
		Email:      employeeID + "@company.com",
		Department: department,
		Role:       role,
		IsActive:   true,
		CreatedAt:  e.clock,
		UpdatedAt:  e.clock,
	}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.Principal()
}

func (e *testEnv) tick(d time.Duration) {
	e.clock = e.clock.Add(d)
}

const (
	aliceID = "11111111-1111-1111-1111-111111111111"
	bobID   = "22222222-2222-2222-2222-222222222222"
	adminID = "33333333-3333-3333-3333-333333333333"
)

func seedUsers(t *testing.T, e *testEnv) (alice, bob, admin auth.Principal) {
	t.Helper()
	alice = e.addUser(t, aliceID, "EMP001", "Alice Ray", "Finance", auth.RoleUser)
	bob = e.addUser(t, bobID, "EMP002", "Bob Stone", "Engineering", auth.RoleUser)
	admin = e.addUser(t, adminID, "ADMIN001", "Ada Admin", "IT", auth.RoleAdmin)
	return alice, bob, admin
}

func validCreate(title string) CreateInput {
	return CreateInput{
		Title:       title,
		Description: "Quarterly numbers",
		Category:    string(CategoryExpenseReport),
		Tags:        []string{" Travel ", "", "Q1"},
	}
}

func pdfUpload(body string) *Upload {
	return &Upload{FileName: "report.pdf", ContentType: "application/pdf", Body: bytes.NewBufferString(body)}
}

func mustCreate(t *testing.T, e *testEnv, actor auth.Principal, in CreateInput, up *Upload) View {
	t.Helper()
	view, err := e.svc.Create(context.Background(), actor, in, up != nil, up)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	e.tick(time.Minute)
	return view
}

func TestCreateWithFile(t *testing.T) {
	e := newTestEnv(t)
	alice, _, _ := seedUsers(t, e)

	view, err := e.svc.Create(context.Background(), alice, validCreate("March expenses"), true, pdfUpload("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if view.Status != StatusPending || view.Priority != PriorityMedium {
		t.Fatalf("unexpected defaults %+v", view.Document)
	}
	if view.Metadata.Department != "Finance" || view.Metadata.Version != "1.0" {
		t.Fatalf("unexpected metadata %+v", view.Metadata)
	}
	if got := view.Tags; len(got) != 2 || got[0] != "travel" || got[1] != "q1" {
		t.Fatalf("unexpected tags %v", got)
	}
	if !view.HasFile || view.File == nil || view.FileSize != 8 || view.FileType != FileTypePDF || view.OriginalName != "report.pdf" {
		t.Fatalf("unexpected file %+v", view.File)
	}
	if view.Owner.Name != "Alice Ray" || view.Owner.EmployeeID != "EMP001" {
		t.Fatalf("unexpected owner %+v", view.Owner)
	}

	rc, err := e.store.Open(context.Background(), view.FilePath)
	if err != nil {
		t.Fatalf("stored blob missing: %v", err)
	}
	rc.Close()

	got := e.events.Events()
	if len(got) != 1 || got[0].Type != events.TypeDocumentUploaded || got[0].DocumentID != view.ID {
		t.Fatalf("unexpected events %+v", got)
	}
}

func TestCreateWithoutFile(t *testing.T) {
	e := newTestEnv(t)
	alice, _, _ := seedUsers(t, e)

	view, err := e.svc.Create(context.Background(), alice, validCreate("Leave note"), false, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if view.HasFile || view.File != nil {
		t.Fatalf("expected no file, got %+v", view.File)
	}
}

func TestCreateRejectsInvalidInputBeforeStoring(t *testing.T) {
	e := newTestEnv(t)
	alice, _, _ := seedUsers(t, e)

	in := validCreate("")
	in.Category = "memes"
	_, err := e.svc.Create(context.Background(), alice, in, true, pdfUpload("x"))
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) || len(ve.Fields) != 2 {
		t.Fatalf("expected two field errors, got %v", err)
	}
	if n, _ := e.repo.Count(context.Background(), FilterPipeline(Filter{})); n != 0 {
		t.Fatalf("expected no documents, got %d", n)
	}

	if _, err := e.svc.Create(context.Background(), alice, validCreate("x"), true, nil); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected missing file validation error, got %v", err)
	}
}

type failingRepo struct {
	*MemoryRepo
}

func (failingRepo) Create(context.Context, Document) error {
	return errors.New("disk full")
}

type recordingStore struct {
	object.ObjectStore
	deleted []string
}

func (s *recordingStore) Delete(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return s.ObjectStore.Delete(ctx, key)
}

func TestCreateCleansUpBlobWhenRecordFails(t *testing.T) {
	e := newTestEnv(t)
	alice, _, _ := seedUsers(t, e)
	store := &recordingStore{ObjectStore: e.store}
	e.svc.Store = store
	e.svc.Repo = failingRepo{e.repo}

	if _, err := e.svc.Create(context.Background(), alice, validCreate("x"), true, pdfUpload("data")); err == nil {
		t.Fatalf("expected error")
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected blob cleanup, got %v", store.deleted)
	}
	if _, err := e.store.Open(context.Background(), store.deleted[0]); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected blob removed, got %v", err)
	}
}

func TestCreateRejectsEmptyFile(t *testing.T) {
	e := newTestEnv(t)
	alice, _, _ := seedUsers(t, e)
	store := &recordingStore{ObjectStore: e.store}
	e.svc.Store = store

	_, err := e.svc.Create(context.Background(), alice, validCreate("x"), true, pdfUpload(""))
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) || ve.Fields[0].Field != "fileSize" {
		t.Fatalf("expected empty file error, got %v", err)
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected empty blob cleanup")
	}
}

func TestGetAuthorization(t *testing.T) {
	e := newTestEnv(t)
	alice, bob, admin := seedUsers(t, e)
	doc := mustCreate(t, e, alice, validCreate("Mine"), nil)

	if _, err := e.svc.Get(context.Background(), alice, doc.ID); err != nil {
		t.Fatalf("owner Get: %v", err)
	}
	if _, err := e.svc.Get(context.Background(), admin, doc.ID); err != nil {
		t.Fatalf("admin Get: %v", err)
	}
	if _, err := e.svc.Get(context.Background(), bob, doc.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := e.svc.Get(context.Background(), bob, "44444444-4444-4444-4444-444444444444"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := e.svc.Get(context.Background(), bob, "not-a-uuid"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for malformed id, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	e := newTestEnv(t)
	alice, bob, admin := seedUsers(t, e)
	doc := mustCreate(t, e, alice, validCreate("Draft"), nil)

	title := "  Final  "
	tags := []string{"A", " b "}
	view, err := e.svc.Update(context.Background(), alice, doc.ID, UpdateInput{Title: &title, Tags: &tags})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if view.Title != "Final" || len(view.Tags) != 2 || view.Tags[0] != "a" || view.Tags[1] != "b" {
		t.Fatalf("unexpected update %+v", view.Document)
	}
	if !view.UpdatedAt.After(view.CreatedAt) {
		t.Fatalf("expected updatedAt to advance")
	}

	if _, err := e.svc.Update(context.Background(), bob, doc.ID, UpdateInput{Title: &title}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}
	if _, err := e.svc.Update(context.Background(), alice, doc.ID, UpdateInput{}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for empty update, got %v", err)
	}

	if _, err := e.svc.Review(context.Background(), admin, doc.ID, ReviewInput{Status: "approved"}); err != nil {
		t.Fatalf("Review: %v", err)
	}
	_, err = e.svc.Update(context.Background(), alice, doc.ID, UpdateInput{Title: &title})
	if !errors.Is(err, apperr.ErrForbidden) || apperr.Message(err) != "Cannot edit document that has been approved or rejected" {
		t.Fatalf("expected decided edit rejection, got %v", err)
	}
}

func TestUpdateStoresNormalizedCategory(t *testing.T) {
	e := newTestEnv(t)
	alice, _, _ := seedUsers(t, e)
	ctx := context.Background()
	doc := mustCreate(t, e, alice, validCreate("Claim"), nil)

	category := "  finance_document  "
	priority := " Urgent "
	view, err := e.svc.Update(ctx, alice, doc.ID, UpdateInput{Category: &category, Priority: &priority})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if view.Category != CategoryFinanceDocument || view.Priority != PriorityUrgent {
		t.Fatalf("expected normalized category and priority, got %q %q", view.Category, view.Priority)
	}
	res, err := e.svc.List(ctx, alice, Filter{Category: string(CategoryFinanceDocument)}, ParseSort(OwnerSort, "", "", nil), query.PageRequest{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("expected the updated document under its new category, got %d", res.Total)
	}
}

func TestReviewTransitions(t *testing.T) {
	e := newTestEnv(t)
	alice, _, admin := seedUsers(t, e)
	doc := mustCreate(t, e, alice, validCreate("Claim"), nil)

	if _, err := e.svc.Review(context.Background(), alice, doc.ID, ReviewInput{Status: "approved"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden for non-admin, got %v", err)
	}
	if _, err := e.svc.Review(context.Background(), admin, doc.ID, ReviewInput{Status: "pending"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	view, err := e.svc.Review(context.Background(), admin, doc.ID, ReviewInput{Status: "under_review"})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if view.Status != StatusUnderReview || view.ReviewDate != nil || view.Reviewer == nil || view.Reviewer.Name != "Ada Admin" {
		t.Fatalf("unexpected under_review state %+v reviewer=%+v", view.Document, view.Reviewer)
	}

	e.tick(time.Hour)
	view, err = e.svc.Review(context.Background(), admin, doc.ID, ReviewInput{Status: "rejected", ReviewComments: " Missing receipt "})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if view.Status != StatusRejected || view.ReviewDate == nil || !view.ReviewDate.Equal(e.clock) {
		t.Fatalf("expected review date stamped, got %+v", view.Document)
	}
	if view.ReviewComments != "Missing receipt" {
		t.Fatalf("unexpected comments %q", view.ReviewComments)
	}

	// re-review is allowed
	if _, err := e.svc.Review(context.Background(), admin, doc.ID, ReviewInput{Status: "approved"}); err != nil {
		t.Fatalf("re-review: %v", err)
	}

	if _, err := e.svc.Review(context.Background(), admin, "44444444-4444-4444-4444-444444444444", ReviewInput{Status: "approved"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	var reviewed int
	for _, ev := range e.events.Events() {
		if ev.Type == events.TypeDocumentReviewed {
			reviewed++
		}
	}
	if reviewed != 3 {
		t.Fatalf("expected 3 review events, got %d", reviewed)
	}
}

func TestDeleteRules(t *testing.T) {
	e := newTestEnv(t)
	alice, bob, admin := seedUsers(t, e)
	ctx := context.Background()

	doc := mustCreate(t, e, alice, validCreate("With file"), pdfUpload("content"))
	if err := e.svc.Delete(ctx, bob, doc.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := e.svc.Delete(ctx, alice, doc.ID); err != nil {
		t.Fatalf("owner Delete: %v", err)
	}
	if _, err := e.store.Open(ctx, doc.FilePath); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected blob removed, got %v", err)
	}
	if _, err := e.svc.Get(ctx, alice, doc.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected deleted, got %v", err)
	}

	approved := mustCreate(t, e, alice, validCreate("Approved"), nil)
	if _, err := e.svc.Review(ctx, admin, approved.ID, ReviewInput{Status: "approved"}); err != nil {
		t.Fatalf("Review: %v", err)
	}
	err := e.svc.Delete(ctx, alice, approved.ID)
	if !errors.Is(err, apperr.ErrForbidden) || apperr.Message(err) != "Cannot delete approved document" {
		t.Fatalf("expected approved delete rejection, got %v", err)
	}
	if err := e.svc.Delete(ctx, admin, approved.ID); err != nil {
		t.Fatalf("admin Delete: %v", err)
	}
}

func TestDeleteSurvivesMissingBlob(t *testing.T) {
	e := newTestEnv(t)
	alice, _, _ := seedUsers(t, e)
	ctx := context.Background()

	doc := mustCreate(t, e, alice, validCreate("Orphan"), pdfUpload("content"))
	if err := e.store.Delete(ctx, doc.FilePath); err != nil {
		t.Fatalf("store Delete: %v", err)
	}
	if err := e.svc.Delete(ctx, alice, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestDownload(t *testing.T) {
	e := newTestEnv(t)
	alice, bob, admin := seedUsers(t, e)
	ctx := context.Background()

	doc := mustCreate(t, e, alice, validCreate("Report"), pdfUpload("%PDF-body"))
	dl, err := e.svc.Download(ctx, alice, doc.ID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	body, _ := io.ReadAll(dl.Body)
	dl.Body.Close()
	if string(body) != "%PDF-body" || dl.FileName != "report.pdf" || dl.MimeType != "application/pdf" {
		t.Fatalf("unexpected download %q %+v", body, dl)
	}

	dl, err = e.svc.Download(ctx, admin, doc.ID)
	if err != nil {
		t.Fatalf("admin Download: %v", err)
	}
	dl.Body.Close()

	got, err := e.repo.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.DownloadCount != 2 || got.LastDownloadDate == nil {
		t.Fatalf("expected two downloads recorded, got %d", got.DownloadCount)
	}

	if _, err := e.svc.Download(ctx, bob, doc.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	noFile := mustCreate(t, e, alice, validCreate("No file"), nil)
	if _, err := e.svc.Download(ctx, alice, noFile.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for file-less document, got %v", err)
	}

	if err := e.store.Delete(ctx, doc.FilePath); err != nil {
		t.Fatalf("store Delete: %v", err)
	}
	_, err = e.svc.Download(ctx, alice, doc.ID)
	if !errors.Is(err, apperr.ErrNotFound) || apperr.Message(err) != "File not found on server" {
		t.Fatalf("expected missing blob not found, got %v", err)
	}
}

func TestListScopesToOwner(t *testing.T) {
	e := newTestEnv(t)
	alice, bob, admin := seedUsers(t, e)
	ctx := context.Background()

	for _, title := range []string{"a1", "a2", "a3"} {
		mustCreate(t, e, alice, validCreate(title), nil)
	}
	mustCreate(t, e, bob, validCreate("b1"), nil)

	page := query.PageRequest{Page: 1, Limit: 2}
	sort := ParseSort(OwnerSort, "", "", nil)
	res, err := e.svc.List(ctx, alice, Filter{}, sort, page)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Total != 3 || res.TotalPages != 2 || len(res.Items) != 2 || res.Items[0].Title != "a3" {
		t.Fatalf("unexpected page %+v", res)
	}

	res, err = e.svc.List(ctx, admin, Filter{Department: "Engineering"}, sort, query.PageRequest{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("admin List: %v", err)
	}
	if res.Total != 1 || res.Items[0].Title != "b1" {
		t.Fatalf("expected department filter to select bob's document, got %+v", res)
	}

	res, err = e.svc.List(ctx, admin, Filter{}, ParseSort(AdminSort, "uploadedBy", "asc", nil), query.PageRequest{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("admin List: %v", err)
	}
	if res.Total != 4 || res.Items[0].Owner.Name != "Alice Ray" || res.Items[3].Owner.Name != "Bob Stone" {
		t.Fatalf("unexpected owner ordering %+v", res.Items)
	}
}

func TestListPagesCoverEveryDocumentOnce(t *testing.T) {
	e := newTestEnv(t)
	alice, _, _ := seedUsers(t, e)
	ctx := context.Background()

	// identical created_at so only the id tie-break orders them
	const total = 7
	for i := 0; i < total; i++ {
		if _, err := e.svc.Create(ctx, alice, validCreate("Same time"), false, nil); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	sort := ParseSort(OwnerSort, "", "", nil)
	seen := make(map[string]bool)
	var pages int64
	for page := 1; ; page++ {
		res, err := e.svc.List(ctx, alice, Filter{}, sort, query.PageRequest{Page: page, Limit: 3})
		if err != nil {
			t.Fatalf("List page %d: %v", page, err)
		}
		pages = res.TotalPages
		if int64(page) > res.TotalPages {
			if len(res.Items) != 0 || res.Total != total {
				t.Fatalf("expected an empty page past the end, got %+v", res)
			}
			break
		}
		for _, item := range res.Items {
			if seen[item.ID] {
				t.Fatalf("document %s returned on more than one page", item.ID)
			}
			seen[item.ID] = true
		}
	}
	if len(seen) != total || pages != 3 {
		t.Fatalf("walked %d documents over %d pages, want %d over 3", len(seen), pages, total)
	}
}

func TestSearchWithinCategory(t *testing.T) {
	e := newTestEnv(t)
	alice, _, _ := seedUsers(t, e)
	ctx := context.Background()

	finance := func(title, description string) CreateInput {
		in := validCreate(title)
		in.Category = string(CategoryFinanceDocument)
		in.Description = description
		in.Tags = nil
		return in
	}
	older := mustCreate(t, e, alice, finance("Quarterly close", "ledger"), nil)
	described := mustCreate(t, e, alice, finance("Ledger", "quarterly review"), nil)
	newer := mustCreate(t, e, alice, finance("Quarterly accruals", "journal"), nil)
	other := validCreate("Quarterly budget")
	other.Description = "travel"
	mustCreate(t, e, alice, other, nil)

	res, err := e.svc.Search(ctx, alice, "quarterly", Filter{Category: string(CategoryFinanceDocument)}, query.PageRequest{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []string{newer.ID, older.ID, described.ID}
	if res.Total != int64(len(want)) || len(res.Items) != len(want) {
		t.Fatalf("expected %d finance matches, got %+v", len(want), res)
	}
	for i, id := range want {
		if res.Items[i].ID != id || res.Items[i].Category != CategoryFinanceDocument {
			t.Fatalf("item %d = %s (%s), want %s", i, res.Items[i].ID, res.Items[i].Category, id)
		}
	}
}

func TestGetIsStableWithoutMutation(t *testing.T) {
	e := newTestEnv(t)
	alice, _, admin := seedUsers(t, e)
	ctx := context.Background()
	doc := mustCreate(t, e, alice, validCreate("Claim"), nil)
	if _, err := e.svc.Review(ctx, admin, doc.ID, ReviewInput{Status: "approved", ReviewComments: "ok"}); err != nil {
		t.Fatalf("Review: %v", err)
	}

	first, err := e.svc.Get(ctx, alice, doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	e.tick(time.Hour)
	second, err := e.svc.Get(ctx, alice, doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first.Status != StatusApproved || first.Reviewer == nil || first.Reviewer.ID != adminID {
		t.Fatalf("unexpected reviewed view %+v reviewer=%+v", first.Document, first.Reviewer)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated Get changed the document:\n%+v\n%+v", first, second)
	}
}

func TestSearchRanksByRelevance(t *testing.T) {
	e := newTestEnv(t)
	alice, bob, admin := seedUsers(t, e)
	ctx := context.Background()

	tagged := validCreate("Quarterly summary")
	tagged.Description = "numbers"
	tagged.Tags = []string{"budget"}
	mustCreate(t, e, alice, tagged, nil)

	described := validCreate("Quarterly summary")
	described.Description = "budget overview"
	mustCreate(t, e, alice, described, nil)

	titled := validCreate("Budget 2026")
	mustCreate(t, e, alice, titled, nil)

	mustCreate(t, e, bob, validCreate("Budget for Bob"), nil)
	mustCreate(t, e, alice, validCreate("Unrelated"), nil)

	page := query.PageRequest{Page: 1, Limit: 10}
	res, err := e.svc.Search(ctx, alice, "budget", Filter{}, page)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 3 {
		t.Fatalf("expected three of alice's matches, got %d", res.Total)
	}
	want := []string{"Budget 2026", "Quarterly summary", "Quarterly summary"}
	for i, w := range want {
		if res.Items[i].Title != w {
			t.Fatalf("item %d = %q, want %q", i, res.Items[i].Title, w)
		}
	}
	if res.Items[1].Description != "budget overview" {
		t.Fatalf("description match must outrank tag match")
	}

	res, err = e.svc.Search(ctx, admin, "budget", Filter{}, page)
	if err != nil {
		t.Fatalf("admin Search: %v", err)
	}
	if res.Total != 4 {
		t.Fatalf("expected admin to see all matches, got %d", res.Total)
	}

	res, err = e.svc.Search(ctx, alice, "  ", Filter{}, page)
	if err != nil {
		t.Fatalf("blank Search: %v", err)
	}
	if res.Total != 4 || res.Items[0].Title != "Unrelated" {
		t.Fatalf("blank query should list newest first, got %+v", res.Items)
	}
}

func TestMyStats(t *testing.T) {
	e := newTestEnv(t)
	alice, bob, admin := seedUsers(t, e)
	ctx := context.Background()

	a := mustCreate(t, e, alice, validCreate("a"), nil)
	b := mustCreate(t, e, alice, validCreate("b"), nil)
	mustCreate(t, e, alice, validCreate("c"), nil)
	mustCreate(t, e, bob, validCreate("d"), nil)

	if _, err := e.svc.Review(ctx, admin, a.ID, ReviewInput{Status: "approved"}); err != nil {
		t.Fatalf("Review: %v", err)
	}
	if _, err := e.svc.Review(ctx, admin, b.ID, ReviewInput{Status: "under_review"}); err != nil {
		t.Fatalf("Review: %v", err)
	}

	st, err := e.svc.MyStats(ctx, alice)
	if err != nil {
		t.Fatalf("MyStats: %v", err)
	}
	want := Stats{TotalDocuments: 3, PendingDocuments: 1, ApprovedDocuments: 1, UnderReviewDocuments: 1}
	if st != want {
		t.Fatalf("MyStats = %+v, want %+v", st, want)
	}
}
