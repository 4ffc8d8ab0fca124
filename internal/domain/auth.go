package domain

import "time"

// CapabilityToken is a signed, self-contained assertion of (subject, role).
// It is never stored server-side.
type CapabilityToken struct {
	Value     string
	Subject   int64
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Session binds an opaque handle to exactly one principal.
type Session struct {
	Handle    string
	Principal Principal
	CreatedAt time.Time
	ExpiresAt time.Time
}
