package users

import (
	"context"
	"sync"
	"time"

	"docflow-backend/internal/shared/query"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: make(map[string]User)}
}

func (r *MemoryRepo) Create(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.EmployeeID == user.EmployeeID {
			return ErrDuplicateEmployeeID
		}
		if existing.Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryRepo) GetByEmployeeID(ctx context.Context, employeeID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.EmployeeID == employeeID {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepo) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate, at time.Time) (User, error) {
	return r.mutate(ctx, userID, func(u *User) {
		if upd.Name != nil {
			u.Name = *upd.Name
		}
		if upd.Department != nil {
			u.Department = *upd.Department
		}
		if upd.Position != nil {
			u.Position = *upd.Position
		}
		u.UpdatedAt = at
	})
}

func (r *MemoryRepo) SetActive(ctx context.Context, userID string, active bool, at time.Time) (User, error) {
	return r.mutate(ctx, userID, func(u *User) {
		u.IsActive = active
		u.UpdatedAt = at
	})
}

func (r *MemoryRepo) TouchLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := r.mutate(ctx, userID, func(u *User) {
		t := at
		u.LastLogin = &t
	})
	return err
}

func (r *MemoryRepo) mutate(ctx context.Context, userID string, fn func(*User)) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	fn(&user)
	r.users[userID] = user
	return user, nil
}

func (r *MemoryRepo) Find(ctx context.Context, p query.Pipeline) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := query.Exec(r.Rows(), p, nil)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]User, 0, len(rows))
	for _, row := range rows {
		if u, ok := r.users[query.String(row, "id")]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *MemoryRepo) Count(ctx context.Context, p query.Pipeline) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	rows, err := query.Exec(r.Rows(), p.Unpaged().Then(query.Count{}), nil)
	if err != nil {
		return 0, err
	}
	return query.Int(rows[0], query.CountField), nil
}

// Rows exposes users as pipeline rows, for joins from other collections.
func (r *MemoryRepo) Rows() []query.Row {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]query.Row, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, toRow(u))
	}
	return out
}

func toRow(u User) query.Row {
	return query.Row{
		"id":          u.ID,
		"employee_id": u.EmployeeID,
		"name":        u.Name,
		"email":       u.Email,
		"department":  u.Department,
		"position":    u.Position,
		"role":        string(u.Role),
		"is_active":   u.IsActive,
		"last_login":  u.LastLogin,
		"created_at":  u.CreatedAt,
		"updated_at":  u.UpdatedAt,
	}
}

var _ Repo = (*MemoryRepo)(nil)
