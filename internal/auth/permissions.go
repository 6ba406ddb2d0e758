package auth

import "slices"

// Permission represents a named capability.
type Permission string

// Permission constants.
const (
	PermPinRead     Permission = "pin:read"
	PermPinOperate  Permission = "pin:operate"
	PermAuditRead   Permission = "audit:read"
	PermSystemAdmin Permission = "system:admin"
)

// rolePermissions is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermPinRead,
		PermAuditRead,
	},
	RoleOperator: {
		PermPinRead,
		PermPinOperate,
		PermAuditRead,
	},
	RoleAdmin: {
		PermPinRead,
		PermPinOperate,
		PermAuditRead,
		PermSystemAdmin,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	return slices.Clone(rolePermissions[role])
}
