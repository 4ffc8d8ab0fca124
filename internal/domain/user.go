package domain

// User is a stored account. Hash and Salt are the scrypt credential pair.
type User struct {
	ID    int64
	Name  string
	Hash  string
	Salt  string
	Admin bool
}

// Principal projects the account onto the identity carried by a session.
func (u User) Principal() Principal {
	return Principal{
		ID:          u.ID,
		DisplayName: u.Name,
		Role:        RoleFromAdminFlag(u.Admin),
	}
}
