package users

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"docflow-backend/internal/shared/auth"
	"docflow-backend/internal/shared/query"
)

const uniqueViolation = "23505"

// Schema maps user pipeline fields to SQL. Alias is "u".
var Schema = &query.Schema{
	Table:  "users",
	Alias:  "u",
	Fields: columnsFor("u"),
}

// RelationSchema describes users joined under alias from another collection.
func RelationSchema(alias string) *query.Schema {
	return &query.Schema{Table: "users", Alias: alias, Fields: columnsFor(alias)}
}

func columnsFor(alias string) map[string]string {
	cols := []string{"id", "employee_id", "name", "email", "department", "position", "role", "is_active", "last_login", "created_at", "updated_at"}
	out := make(map[string]string, len(cols))
	for _, c := range cols {
		out[c] = alias + "." + c
	}
	return out
}

var selectColumns = []string{
	"u.id", "u.employee_id", "u.name", "u.email", "u.password_hash", "u.department",
	"u.position", "u.role", "u.is_active", "u.last_login", "u.created_at", "u.updated_at",
}

const selectUser = `
SELECT u.id, u.employee_id, u.name, u.email, u.password_hash, u.department, u.position, u.role, u.is_active, u.last_login, u.created_at, u.updated_at
FROM users u`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, user User) error {
	const q = `
INSERT INTO users (id, employee_id, name, email, password_hash, department, position, role, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.DB.ExecContext(ctx, q,
		user.ID,
		user.EmployeeID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Department,
		user.Position,
		string(user.Role),
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return mapWriteError(err)
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if strings.Contains(pgErr.ConstraintName, "email") {
			return ErrDuplicateEmail
		}
		return ErrDuplicateEmployeeID
	}
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	return r.getOne(ctx, selectUser+"\nWHERE u.id = $1\nLIMIT 1", userID)
}

func (r *PGRepo) GetByEmployeeID(ctx context.Context, employeeID string) (User, error) {
	return r.getOne(ctx, selectUser+"\nWHERE u.employee_id = $1\nLIMIT 1", employeeID)
}

func (r *PGRepo) getOne(ctx context.Context, q string, args ...any) (User, error) {
	user, err := scanUser(r.DB.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

func (r *PGRepo) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate, at time.Time) (User, error) {
	const q = `
UPDATE users u
SET name = COALESCE($2, u.name),
    department = COALESCE($3, u.department),
    position = COALESCE($4, u.position),
    updated_at = $5
WHERE u.id = $1
RETURNING u.id, u.employee_id, u.name, u.email, u.password_hash, u.department, u.position, u.role, u.is_active, u.last_login, u.created_at, u.updated_at`
	return r.getOne(ctx, q, userID, nullable(upd.Name), nullable(upd.Department), nullable(upd.Position), at)
}

func (r *PGRepo) SetActive(ctx context.Context, userID string, active bool, at time.Time) (User, error) {
	const q = `
UPDATE users u
SET is_active = $2, updated_at = $3
WHERE u.id = $1
RETURNING u.id, u.employee_id, u.name, u.email, u.password_hash, u.department, u.position, u.role, u.is_active, u.last_login, u.created_at, u.updated_at`
	return r.getOne(ctx, q, userID, active, at)
}

func (r *PGRepo) TouchLogin(ctx context.Context, userID string, at time.Time) error {
	const q = `UPDATE users SET last_login = $2 WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, q, userID, at)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Find(ctx context.Context, p query.Pipeline) ([]User, error) {
	stmt, err := query.Compile(p, Schema, selectColumns)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (User, error) {
	var user User
	var role string
	var position sql.NullString
	var lastLogin sql.NullTime
	if err := s.Scan(
		&user.ID,
		&user.EmployeeID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Department,
		&position,
		&role,
		&user.IsActive,
		&lastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return User{}, err
	}
	user.Role = auth.Role(role)
	if position.Valid {
		user.Position = position.String
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}
	return user, nil
}

func nullable(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

var _ Repo = (*PGRepo)(nil)
