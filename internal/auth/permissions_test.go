package auth

import "testing"

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleViewer, PermPinRead, true},
		{RoleViewer, PermAuditRead, true},
		{RoleViewer, PermPinOperate, false},
		{RoleOperator, PermPinOperate, true},
		{RoleOperator, PermSystemAdmin, false},
		{RoleAdmin, PermSystemAdmin, true},
		{"unknown", PermPinRead, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.perm), func(t *testing.T) {
			if got := HasPermission(tt.role, tt.perm); got != tt.want {
				t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.role, tt.perm, got, tt.want)
			}
		})
	}
}

func TestPermissionsForRole(t *testing.T) {
	perms := PermissionsForRole(RoleOperator)
	if len(perms) != 3 {
		t.Fatalf("len = %d, want 3", len(perms))
	}

	// Mutating the result must not affect the mapping.
	perms[0] = "tampered"
	if !HasPermission(RoleOperator, PermPinRead) {
		t.Error("PermissionsForRole returned the internal slice")
	}

	if PermissionsForRole("unknown") != nil {
		t.Error("PermissionsForRole(unknown) should be nil")
	}
}

func TestIsValidRole(t *testing.T) {
	for _, r := range ValidRoles {
		if !IsValidRole(r) {
			t.Errorf("IsValidRole(%q) = false", r)
		}
	}
	if IsValidRole("panel") {
		t.Error(`IsValidRole("panel") = true`)
	}
}
