package domain

// Role is the privilege level carried by a verified credential.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Identity is the verified caller passed explicitly into every operation
// that needs it. There is no ambient security context: the transport layer
// verifies the bearer credential once and hands the result down as a value.
type Identity struct {
	Phone string
	Role  Role
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
