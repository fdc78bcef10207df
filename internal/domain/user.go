package domain

import "time"

// Role is the closed set of staff roles the policy layer dispatches on.
type Role string

const (
	RoleEMT   Role = "EMT"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleEMT || r == RoleAdmin
}

// IsAdmin reports whether r grants administrative bypass.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// User is a field staff member or administrator.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}
