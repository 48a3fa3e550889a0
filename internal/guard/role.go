package guard

import (
	"errors"
	"fmt"
)

// ErrUnknownRole is returned when a role string is outside the known set.
var ErrUnknownRole = errors.New("unknown role")

// Role is a closed set of privilege levels.
type Role int

const (
	RoleMember Role = iota
	RoleAdmin
)

// ParseRole maps a wire value to a Role. Only the exact value "admin" grants
// RoleAdmin. The backend stores regular users as "user" and "member" is a
// synonym; any other value still yields RoleMember, together with
// ErrUnknownRole so callers can log it.
func ParseRole(s string) (Role, error) {
	switch s {
	case "admin":
		return RoleAdmin, nil
	case "user", "member":
		return RoleMember, nil
	default:
		return RoleMember, fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// String returns the wire value of the role.
func (r Role) String() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "user"
}

// IsAdmin reports whether r is the administrator role.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown values decode
// to RoleMember.
func (r *Role) UnmarshalText(text []byte) error {
	*r, _ = ParseRole(string(text))
	return nil
}
