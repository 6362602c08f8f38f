package users

import (
	"context"
	"time"

	"docflow-backend/internal/shared/apperr"
	"docflow-backend/internal/shared/query"
)

// Collection is the pipeline collection name for users.
const Collection = "users"

var (
	ErrNotFound            = apperr.NotFound("User not found")
	ErrDuplicateEmployeeID = apperr.Conflict("Employee ID already exists")
	ErrDuplicateEmail      = apperr.Conflict("Email already registered")
)

// Repo persists directory entries. Users are never hard-deleted.
type Repo interface {
	Create(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	GetByEmployeeID(ctx context.Context, employeeID string) (User, error)
	UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate, at time.Time) (User, error)
	SetActive(ctx context.Context, userID string, active bool, at time.Time) (User, error)
	TouchLogin(ctx context.Context, userID string, at time.Time) error
	Find(ctx context.Context, p query.Pipeline) ([]User, error)
	Count(ctx context.Context, p query.Pipeline) (int64, error)
}
