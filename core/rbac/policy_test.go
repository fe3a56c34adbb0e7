package rbac

import "testing"

func newTestPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := NewPolicy()
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	return p
}

func TestCanActSameRole(t *testing.T) {
	p := newTestPolicy(t)
	if !p.CanAct("employee", "employee") {
		t.Fatal("same role must be allowed")
	}
	if !p.CanAct("  Employee ", "employee") {
		t.Fatal("role match must be case and whitespace insensitive")
	}
}

func TestCanActOverrideRoles(t *testing.T) {
	p := newTestPolicy(t)
	for _, role := range []string{"supervisor", "manager", "qhse_manager", "site_manager", "director", "admin"} {
		if !p.CanAct(role, "employee") {
			t.Errorf("%s should be able to act on an employee step", role)
		}
	}
}

func TestCanActDeniedWithoutOverride(t *testing.T) {
	p := newTestPolicy(t)
	if p.CanAct("employee", "supervisor") {
		t.Fatal("employee must not act on a supervisor step")
	}
	if p.CanAct("responsible", "qhse_manager") {
		t.Fatal("responsible must not act on a qhse_manager step")
	}
	if p.CanAct("", "employee") {
		t.Fatal("empty actor role must be denied")
	}
	if p.CanAct("employee", "") {
		t.Fatal("empty required role must be denied")
	}
}

func TestCanOverride(t *testing.T) {
	p := newTestPolicy(t)
	if p.CanOverride("employee") {
		t.Fatal("employee must not have override")
	}
	if !p.CanOverride("director") {
		t.Fatal("director must have override")
	}
	var nilPolicy *Policy
	if nilPolicy.CanOverride("director") {
		t.Fatal("nil policy must deny")
	}
}
