package workflow

import (
	"strings"
	"sync"
	"time"
)

type StepDef struct {
	Name      string        `json:"name"`
	Role      string        `json:"role"`
	DueOffset time.Duration `json:"due_offset"`
}

type Template struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Steps       []StepDef `json:"steps"`
}

// Registry holds workflow templates. Reads return copies: templates are
// materialized into steps at instantiation time, so mutating a template never
// alters an existing workflow instance.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

func NewRegistry() *Registry {
	r := &Registry{templates: map[string]Template{}}
	for _, t := range builtinTemplates() {
		r.templates[t.ID] = t
	}
	return r
}

func (r *Registry) Get(id string) (Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Template{}, ErrTemplateNotFound
	}
	return copyTemplate(t), nil
}

func (r *Registry) Register(t Template) error {
	t.ID = strings.ToLower(strings.TrimSpace(t.ID))
	if t.ID == "" || len(t.Steps) == 0 {
		return ErrInvalidInput
	}
	for _, s := range t.Steps {
		if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.Role) == "" || s.DueOffset <= 0 {
			return ErrInvalidInput
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.ID] = copyTemplate(t)
	return nil
}

func (r *Registry) List() []Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, copyTemplate(t))
	}
	return out
}

func copyTemplate(t Template) Template {
	steps := make([]StepDef, len(t.Steps))
	copy(steps, t.Steps)
	t.Steps = steps
	return t
}

func builtinTemplates() []Template {
	return []Template{
		{
			ID:          "incident_investigation",
			Name:        "Incident Investigation",
			Description: "Investigation and resolution of a reported incident",
			Steps: []StepDef{
				{Name: "Report", Role: "employee", DueOffset: 1 * time.Hour},
				{Name: "Validation", Role: "supervisor", DueOffset: 4 * time.Hour},
				{Name: "Investigation", Role: "qhse_manager", DueOffset: 24 * time.Hour},
				{Name: "Analysis", Role: "qhse_manager", DueOffset: 48 * time.Hour},
				{Name: "Action plan", Role: "qhse_manager", DueOffset: 72 * time.Hour},
				{Name: "Approval", Role: "site_manager", DueOffset: 24 * time.Hour},
				{Name: "Implementation", Role: "responsible", DueOffset: 168 * time.Hour},
				{Name: "Verification", Role: "qhse_manager", DueOffset: 24 * time.Hour},
			},
		},
		{
			ID:          "corrective_action",
			Name:        "Corrective Action",
			Description: "Planning and execution of a corrective action",
			Steps: []StepDef{
				{Name: "Identification", Role: "qhse_manager", DueOffset: 2 * time.Hour},
				{Name: "Planning", Role: "qhse_manager", DueOffset: 24 * time.Hour},
				{Name: "Approval", Role: "site_manager", DueOffset: 48 * time.Hour},
				{Name: "Execution", Role: "responsible", DueOffset: 168 * time.Hour},
				{Name: "Verification", Role: "qhse_manager", DueOffset: 24 * time.Hour},
				{Name: "Closure", Role: "qhse_manager", DueOffset: 2 * time.Hour},
			},
		},
		{
			ID:          "training_request",
			Name:        "Training Request",
			Description: "Approval of a safety training request",
			Steps: []StepDef{
				{Name: "Request", Role: "employee", DueOffset: 1 * time.Hour},
				{Name: "Validation", Role: "supervisor", DueOffset: 24 * time.Hour},
				{Name: "Approval", Role: "hr_manager", DueOffset: 48 * time.Hour},
				{Name: "Scheduling", Role: "training_manager", DueOffset: 72 * time.Hour},
				{Name: "Delivery", Role: "instructor", DueOffset: 8 * time.Hour},
				{Name: "Sign-off", Role: "instructor", DueOffset: 1 * time.Hour},
			},
		},
		{
			ID:          "equipment_inspection",
			Name:        "Equipment Inspection",
			Description: "Preventive inspection and maintenance",
			Steps: []StepDef{
				{Name: "Planning", Role: "maintenance_manager", DueOffset: 24 * time.Hour},
				{Name: "Preparation", Role: "maintenance_team", DueOffset: 4 * time.Hour},
				{Name: "Inspection", Role: "inspector", DueOffset: 8 * time.Hour},
				{Name: "Report", Role: "inspector", DueOffset: 4 * time.Hour},
				{Name: "Validation", Role: "maintenance_manager", DueOffset: 24 * time.Hour},
				{Name: "Actions", Role: "maintenance_team", DueOffset: 48 * time.Hour},
			},
		},
		{
			ID:          "regulatory_compliance",
			Name:        "Regulatory Compliance",
			Description: "Regulatory gap remediation",
			Steps: []StepDef{
				{Name: "Audit", Role: "compliance_auditor", DueOffset: 40 * time.Hour},
				{Name: "Analysis", Role: "compliance_manager", DueOffset: 24 * time.Hour},
				{Name: "Action plan", Role: "compliance_manager", DueOffset: 48 * time.Hour},
				{Name: "Approval", Role: "legal_manager", DueOffset: 72 * time.Hour},
				{Name: "Implementation", Role: "responsible", DueOffset: 720 * time.Hour},
				{Name: "Verification", Role: "compliance_auditor", DueOffset: 24 * time.Hour},
				{Name: "Validation", Role: "compliance_manager", DueOffset: 24 * time.Hour},
			},
		},
	}
}
