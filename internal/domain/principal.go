package domain

// Role is the privilege level of an authenticated principal.
type Role string

const (
	RoleRegular Role = "regular"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleRegular || r == RoleAdmin
}

// RoleFromAdminFlag maps the stored admin flag to a Role.
func RoleFromAdminFlag(admin bool) Role {
	if admin {
		return RoleAdmin
	}
	return RoleRegular
}

// Principal is an authenticated identity resolved for a single request.
type Principal struct {
	ID          int64
	DisplayName string
	Role        Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
