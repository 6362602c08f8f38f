package auth

// Role is the coarse capability level of a caller.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Principal is the authenticated caller. Handlers trust it once the middleware has set it.
type Principal struct {
	UserID     string
	Role       Role
	EmployeeID string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
