package users

import (
	"time"

	"docflow-backend/internal/shared/auth"
)

// User is a directory entry. PasswordHash never leaves the service.
type User struct {
	ID           string     `json:"id"`
	EmployeeID   string     `json:"employeeId"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Department   string     `json:"department"`
	Position     string     `json:"position,omitempty"`
	Role         auth.Role  `json:"role"`
	IsActive     bool       `json:"isActive"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Principal returns the caller identity for u.
func (u User) Principal() auth.Principal {
	return auth.Principal{UserID: u.ID, Role: u.Role, EmployeeID: u.EmployeeID}
}

// SignupInput carries self-service and admin-created registrations.
type SignupInput struct {
	EmployeeID string `json:"employeeId" validate:"min=3,max=20,alphanum"`
	Name       string `json:"name" validate:"min=2,max=100,personname"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"min=6,strongpassword"`
	Department string `json:"department" validate:"min=2,max=50"`
	Position   string `json:"position" validate:"omitempty,min=2,max=50"`
}

// LoginInput is an employee ID and password pair.
type LoginInput struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// ProfileUpdate holds the self-editable fields. Nil means unchanged.
type ProfileUpdate struct {
	Name       *string `json:"name" validate:"omitempty,min=2,max=100"`
	Department *string `json:"department" validate:"omitempty,min=2,max=50"`
	Position   *string `json:"position" validate:"omitempty,min=2,max=50"`
}

func (u ProfileUpdate) empty() bool {
	return u.Name == nil && u.Department == nil && u.Position == nil
}

// ListFilter narrows the admin user listing. Empty strings and "all" match everything.
type ListFilter struct {
	Department string
	Status     string
	Role       string
	Search     string
}
