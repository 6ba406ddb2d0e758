package auth

import (
	"errors"
	"slices"
)

// Role is an authorisation tier carried in a token.
type Role string

const (
	// RoleViewer can inspect controllers, pins and the audit trail.
	RoleViewer Role = "viewer"

	// RoleOperator can also drive pins: write and blink.
	RoleOperator Role = "operator"

	// RoleAdmin can also read system internals such as cache stats.
	RoleAdmin Role = "admin"
)

// ValidRoles lists every role a token may carry.
var ValidRoles = []Role{RoleViewer, RoleOperator, RoleAdmin}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	return slices.Contains(ValidRoles, r)
}

// Sentinel errors.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrInvalidRole  = errors.New("invalid role")
	ErrNoSecret     = errors.New("token secret is empty")
	ErrForbidden    = errors.New("insufficient permissions")
)
