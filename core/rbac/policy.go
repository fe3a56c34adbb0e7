package rbac

import (
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// Policy is the single capability check for workflow transitions. An actor
// may act on a step when their role matches the step's assigned role, or when
// their role carries the workflow.override capability (escalation targets and
// site management acting on behalf of a blocked role).
type Policy struct {
	enforcer *casbin.Enforcer
}

func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	for _, role := range overrideRoles() {
		if _, err := e.AddPolicy(role, "workflow", "override"); err != nil {
			return nil, err
		}
	}
	// Escalation chain doubles as a role hierarchy: a director can do
	// whatever a manager can, and so on down to supervisor.
	hierarchy := [][2]string{
		{"director", "site_manager"},
		{"site_manager", "qhse_manager"},
		{"qhse_manager", "supervisor"},
		{"manager", "supervisor"},
	}
	for _, pair := range hierarchy {
		if _, err := e.AddGroupingPolicy(pair[0], pair[1]); err != nil {
			return nil, err
		}
	}
	return &Policy{enforcer: e}, nil
}

func overrideRoles() []string {
	return []string{"supervisor", "manager", "qhse_manager", "site_manager", "director", "admin"}
}

// CanAct reports whether actorRole may transition a step assigned to
// requiredRole.
func (p *Policy) CanAct(actorRole, requiredRole string) bool {
	actor := normalizeRole(actorRole)
	required := normalizeRole(requiredRole)
	if actor == "" || required == "" {
		return false
	}
	if actor == required {
		return true
	}
	return p.CanOverride(actor)
}

// CanOverride reports whether a role carries the workflow.override
// capability.
func (p *Policy) CanOverride(role string) bool {
	if p == nil || p.enforcer == nil {
		return false
	}
	ok, err := p.enforcer.Enforce(normalizeRole(role), "workflow", "override")
	return err == nil && ok
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
