package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleAdmin, ActionAdmin, true},
		{RoleAdmin, ActionDecide, true},
		{RoleEditor, ActionDecide, true},
		{RoleEditor, ActionPublish, true},
		{RoleEditor, ActionAdmin, false},
		{RoleMember, ActionSubmit, true},
		{RoleMember, ActionComment, true},
		{RoleMember, ActionDecide, false},
		{Role("visitor"), ActionRead, false},
	}
	for _, tc := range cases {
		if got := Can(tc.role, tc.action); got != tc.want {
			t.Fatalf("Can(%s, %s) = %v, want %v", tc.role, tc.action, got, tc.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("admin") != RoleAdmin {
		t.Fatalf("admin should normalize to admin")
	}
	if Normalize("whatever") != RoleMember {
		t.Fatalf("unknown roles should normalize to member")
	}
}
