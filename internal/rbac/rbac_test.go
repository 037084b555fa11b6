package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "editor read", role: RoleEditor, action: ActionRead, allow: true},
		{name: "editor submit", role: RoleEditor, action: ActionSubmit, allow: true},
		{name: "editor approve", role: RoleEditor, action: ActionApprove, allow: false},
		{name: "moderator approve", role: RoleModerator, action: ActionApprove, allow: true},
		{name: "moderator admin", role: RoleModerator, action: ActionAdmin, allow: false},
		{name: "admin admin", role: RoleAdmin, action: ActionAdmin, allow: true},
		{name: "unknown read", role: Role("ghost"), action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("moderator") != RoleModerator {
		t.Fatal("known role must pass through")
	}
	if Normalize("") != RoleEditor {
		t.Fatal("unknown role must fall back to editor")
	}
}
