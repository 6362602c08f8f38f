package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"docflow-backend/internal/shared/apperr"
	"docflow-backend/internal/shared/auth"
	"docflow-backend/internal/shared/query"
	"docflow-backend/internal/shared/telemetry"
)

const defaultListLimit = 20

var (
	errInvalidCredentials = apperr.Unauthorized("Invalid credentials")
	errDeactivated        = apperr.Unauthorized("Account is deactivated. Please contact administrator.")
)

// Tokens issues and verifies bearer tokens.
type Tokens interface {
	Sign(p auth.Principal) (string, error)
	Verify(token string) (auth.Principal, error)
}

// Service implements the user directory.
type Service struct {
	Repo   Repo
	Tokens Tokens
	Now    func() time.Time
}

func NewService(repo Repo, tokens Tokens) *Service {
	return &Service{Repo: repo, Tokens: tokens, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) configured() error {
	if s == nil || s.Repo == nil {
		return errors.New("users service not configured")
	}
	return nil
}

// Session is a user plus a freshly signed token.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Signup registers a self-service account. Self-signup always yields role user.
func (s *Service) Signup(ctx context.Context, in SignupInput) (Session, error) {
	user, err := s.create(ctx, in, auth.RoleUser)
	if err != nil {
		return Session{}, err
	}
	token, err := s.Tokens.Sign(user.Principal())
	if err != nil {
		return Session{}, err
	}
	telemetry.Info("user.signup", map[string]any{"user_id": user.ID, "employee_id": user.EmployeeID})
	return Session{User: user, Token: token}, nil
}

// CreateAdmin registers an admin account on behalf of an existing admin.
func (s *Service) CreateAdmin(ctx context.Context, actor auth.Principal, in SignupInput) (User, error) {
	if !actor.IsAdmin() {
		return User{}, apperr.Forbidden("Only administrators can create admin accounts")
	}
	user, err := s.create(ctx, in, auth.RoleAdmin)
	if err != nil {
		return User{}, err
	}
	telemetry.Info("user.admin_created", map[string]any{"user_id": user.ID, "created_by": actor.UserID})
	return user, nil
}

func (s *Service) create(ctx context.Context, in SignupInput, role auth.Role) (User, error) {
	if err := s.configured(); err != nil {
		return User{}, err
	}
	if err := ValidateSignup(&in); err != nil {
		return User{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	now := s.now()
	user := User{
		ID:           uuid.NewString(),
		EmployeeID:   in.EmployeeID,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Department:   in.Department,
		Position:     in.Position,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Login checks credentials, stamps lastLogin and issues a token.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	if err := s.configured(); err != nil {
		return Session{}, err
	}
	if err := ValidateLogin(&in); err != nil {
		return Session{}, err
	}
	user, err := s.Repo.GetByEmployeeID(ctx, in.EmployeeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, errInvalidCredentials
		}
		return Session{}, err
	}
	if !user.IsActive {
		return Session{}, errDeactivated
	}
	if !auth.CheckPassword(in.Password, user.PasswordHash) {
		return Session{}, errInvalidCredentials
	}
	now := s.now()
	if err := s.Repo.TouchLogin(ctx, user.ID, now); err != nil {
		return Session{}, err
	}
	user.LastLogin = &now
	token, err := s.Tokens.Sign(user.Principal())
	if err != nil {
		return Session{}, err
	}
	telemetry.Info("user.login", map[string]any{"user_id": user.ID})
	return Session{User: user, Token: token}, nil
}

// Authenticate verifies a token against the directory: the account must
// still exist and be active, and the stored role wins over the token's.
func (s *Service) Authenticate(ctx context.Context, token string) (auth.Principal, error) {
	if err := s.configured(); err != nil {
		return auth.Principal{}, err
	}
	claims, err := s.Tokens.Verify(token)
	if err != nil {
		return auth.Principal{}, apperr.Unauthorized("Invalid or expired token")
	}
	user, err := s.Repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return auth.Principal{}, apperr.Unauthorized("Invalid token. User not found.")
		}
		return auth.Principal{}, err
	}
	if !user.IsActive {
		return auth.Principal{}, errDeactivated
	}
	return user.Principal(), nil
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if err := s.configured(); err != nil {
		return User{}, err
	}
	if !validID(userID) {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID)
}

// UpdateProfile applies name, department and position changes to the caller's own record.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (User, error) {
	if err := s.configured(); err != nil {
		return User{}, err
	}
	if err := ValidateProfileUpdate(&upd); err != nil {
		return User{}, err
	}
	return s.Repo.UpdateProfile(ctx, userID, upd, s.now())
}

// List returns one page of the directory for admins.
func (s *Service) List(ctx context.Context, f ListFilter, page query.PageRequest) (query.Result[User], error) {
	if err := s.configured(); err != nil {
		return query.Result[User]{}, err
	}
	p := ListPipeline(f, page)
	items, err := s.Repo.Find(ctx, p)
	if err != nil {
		return query.Result[User]{}, err
	}
	total, err := s.Repo.Count(ctx, p)
	if err != nil {
		return query.Result[User]{}, err
	}
	return query.NewResult(items, page, total), nil
}

// SetStatus activates or deactivates an account. Admins cannot deactivate themselves.
func (s *Service) SetStatus(ctx context.Context, actor auth.Principal, userID string, active bool) (User, error) {
	if err := s.configured(); err != nil {
		return User{}, err
	}
	if !actor.IsAdmin() {
		return User{}, apperr.Forbidden("Access denied. Admin privileges required.")
	}
	if !validID(userID) {
		return User{}, ErrNotFound
	}
	if _, err := s.Repo.GetByID(ctx, userID); err != nil {
		return User{}, err
	}
	if userID == actor.UserID && !active {
		return User{}, apperr.Forbidden("Cannot deactivate your own account")
	}
	user, err := s.Repo.SetActive(ctx, userID, active, s.now())
	if err != nil {
		return User{}, err
	}
	telemetry.Info("user.status_changed", map[string]any{"user_id": userID, "is_active": active, "changed_by": actor.UserID})
	return user, nil
}

// CountByRole counts users holding role.
func (s *Service) CountByRole(ctx context.Context, role auth.Role) (int64, error) {
	if err := s.configured(); err != nil {
		return 0, err
	}
	return s.Repo.Count(ctx, RolePipeline(role))
}

// Recent returns the newest n users holding role.
func (s *Service) Recent(ctx context.Context, role auth.Role, n int) ([]User, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	return s.Repo.Find(ctx, RecentPipeline(role, n))
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
