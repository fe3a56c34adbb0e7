package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kestrel-qhse/config"
	"kestrel-qhse/core/rbac"
	"kestrel-qhse/core/scoring"
	"kestrel-qhse/core/store"
	"kestrel-qhse/core/utils"
)

const (
	ActionComplete = "complete"
	ActionCancel   = "cancel"
)

var validPriorities = map[string]bool{
	"low":      true,
	"medium":   true,
	"high":     true,
	"urgent":   true,
	"critical": true,
}

// Service owns workflow semantics: instantiation, step transitions with
// permission checks, incident scoring, and event emission. All persistence
// goes through the stores; all concurrency control is the stores' CAS.
type Service struct {
	cfg       config.WorkflowsConfig
	workflows store.WorkflowsStore
	incidents store.IncidentsStore
	registry  *Registry
	policy    *rbac.Policy
	sink      EventSink
	logger    *utils.Logger
}

func NewService(cfg config.WorkflowsConfig, workflows store.WorkflowsStore, incidents store.IncidentsStore, registry *Registry, policy *rbac.Policy, sink EventSink, logger *utils.Logger) *Service {
	return &Service{
		cfg:       cfg,
		workflows: workflows,
		incidents: incidents,
		registry:  registry,
		policy:    policy,
		sink:      sink,
		logger:    logger,
	}
}

func (s *Service) Registry() *Registry {
	return s.registry
}

// ScoreIncident computes and persists the risk score for an incident from its
// sector risk level, incident type severity weight and reported probability.
// A concurrent update of the incident loses with ErrConflict; the caller
// re-reads and retries.
func (s *Service) ScoreIncident(ctx context.Context, incidentID int64) (*store.Incident, error) {
	inc, err := s.incidents.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if inc == nil {
		return nil, ErrNotFound
	}
	sector, err := s.incidents.GetSector(ctx, inc.SectorID)
	if err != nil {
		return nil, storeFailure(err)
	}
	itype, err := s.incidents.GetIncidentType(ctx, inc.IncidentTypeID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if sector == nil || itype == nil {
		return nil, ErrNotFound
	}
	result, err := scoring.Score(scoring.Input{
		SectorRiskLevel: sector.RiskLevel,
		SeverityWeight:  itype.SeverityWeight,
		Probability:     inc.Probability,
	})
	if err != nil {
		return nil, ErrInvalidInput
	}
	if err := s.incidents.SetIncidentScore(ctx, inc.ID, result.RiskScore, string(result.Severity), inc.Version); err != nil {
		return nil, storeFailure(err)
	}
	s.logger.Infof("scored incident %d: %.4f (%s)", inc.ID, result.RiskScore, result.Severity)
	scored, err := s.incidents.GetIncident(ctx, inc.ID)
	return scored, storeFailure(err)
}

type CreateWorkflowInput struct {
	TemplateID string `json:"template_id"`
	IncidentID *int64 `json:"incident_id,omitempty"`
	Priority   string `json:"priority"`
}

// CreateWorkflow materializes a template into a workflow instance. The first
// step comes out active with its due date set; the rest stay pending with no
// due date until their turn.
func (s *Service) CreateWorkflow(ctx context.Context, in CreateWorkflowInput) (*store.Workflow, []store.WorkflowStep, error) {
	priority := strings.ToLower(strings.TrimSpace(in.Priority))
	if priority == "" {
		priority = "medium"
	}
	if !validPriorities[priority] {
		return nil, nil, ErrInvalidInput
	}
	tmpl, err := s.registry.Get(in.TemplateID)
	if err != nil {
		return nil, nil, storeFailure(err)
	}
	if in.IncidentID != nil {
		inc, err := s.incidents.GetIncident(ctx, *in.IncidentID)
		if err != nil {
			return nil, nil, storeFailure(err)
		}
		if inc == nil {
			return nil, nil, ErrNotFound
		}
		if s.cfg.OneWorkflowPerIncident {
			open, err := s.workflows.FindOpenWorkflowByIncident(ctx, *in.IncidentID)
			if err != nil {
				return nil, nil, storeFailure(err)
			}
			if open != nil {
				return nil, nil, ErrDuplicateWorkflow
			}
		}
	}
	now := utils.NowUTC()
	seeds := make([]store.StepSeed, 0, len(tmpl.Steps))
	for i, def := range tmpl.Steps {
		seed := store.StepSeed{
			Order:     i + 1,
			Name:      def.Name,
			Role:      def.Role,
			DueOffset: def.DueOffset,
			Status:    store.StepStatusPending,
		}
		if i == 0 {
			due := now.Add(def.DueOffset)
			seed.Status = store.StepStatusActive
			seed.DueDate = &due
		}
		seeds = append(seeds, seed)
	}
	wf := &store.Workflow{
		TemplateID: tmpl.ID,
		IncidentID: in.IncidentID,
		Priority:   priority,
		CreatedAt:  now,
	}
	if _, err := s.workflows.CreateWorkflow(ctx, wf, seeds); err != nil {
		return nil, nil, storeFailure(err)
	}
	steps, err := s.workflows.ListSteps(ctx, wf.ID)
	if err != nil {
		return nil, nil, storeFailure(err)
	}
	if len(steps) > 0 {
		s.publish(ctx, stepEvent(EventStepActivated, steps[0]))
	}
	s.logger.Infof("created workflow %d from template %s (%d steps)", wf.ID, tmpl.ID, len(steps))
	return wf, steps, nil
}

type StepActionInput struct {
	WorkflowID int64
	StepID     int64
	ActorID    string `json:"actor_id"`
	ActorRole  string `json:"actor_role"`
	Action     string `json:"action"`
	Comment    string `json:"comment,omitempty"`
}

type StepActionResult struct {
	Step           store.WorkflowStep  `json:"step"`
	NextStep       *store.WorkflowStep `json:"next_step,omitempty"`
	WorkflowStatus string              `json:"workflow_status"`
}

// ApplyStepAction applies an actor transition to a step. Checks run in a fixed
// order so callers get stable error classes: existence, then step state, then
// permission, then action validity.
func (s *Service) ApplyStepAction(ctx context.Context, in StepActionInput) (*StepActionResult, error) {
	step, err := s.workflows.GetStep(ctx, in.StepID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if step == nil || step.WorkflowID != in.WorkflowID {
		return nil, ErrNotFound
	}
	if step.Status != store.StepStatusActive {
		return nil, ErrInvalidTransition
	}
	if !s.policy.CanAct(in.ActorRole, step.AssignedRole) {
		return nil, ErrPermissionDenied
	}
	action := strings.ToLower(strings.TrimSpace(in.Action))
	now := utils.NowUTC()
	var tr *store.Transition
	switch action {
	case ActionComplete:
		tr, err = s.workflows.CompleteStep(ctx, in.WorkflowID, in.StepID, in.ActorID, in.Comment, now)
	case ActionCancel:
		tr, err = s.workflows.CancelStep(ctx, in.WorkflowID, in.StepID, in.ActorID, in.Comment, now)
	default:
		return nil, ErrInvalidInput
	}
	if err != nil {
		return nil, storeFailure(err)
	}
	switch action {
	case ActionComplete:
		s.publish(ctx, stepEvent(EventStepCompleted, tr.Step))
	case ActionCancel:
		s.publish(ctx, stepEvent(EventWorkflowCancelled, tr.Step))
	}
	if tr.NextStep != nil {
		s.publish(ctx, stepEvent(EventStepActivated, *tr.NextStep))
	}
	if tr.WorkflowStatus == store.WorkflowStatusCompleted {
		s.publish(ctx, newEvent(EventWorkflowCompleted, in.WorkflowID))
	}
	s.logger.Infof("workflow %d step %d: %s by %s -> %s", in.WorkflowID, in.StepID, action, in.ActorID, tr.WorkflowStatus)
	return &StepActionResult{Step: tr.Step, NextStep: tr.NextStep, WorkflowStatus: tr.WorkflowStatus}, nil
}

// CancelWorkflow cancels the active step (and with it every pending step) of a
// workflow. Requires the override capability: cancellation is a management
// action, not a step assignee action.
func (s *Service) CancelWorkflow(ctx context.Context, workflowID int64, actorID, actorRole, comment string) (*StepActionResult, error) {
	wf, err := s.workflows.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if wf == nil {
		return nil, ErrNotFound
	}
	if !s.policy.CanOverride(actorRole) {
		return nil, ErrPermissionDenied
	}
	steps, err := s.workflows.ListSteps(ctx, workflowID)
	if err != nil {
		return nil, storeFailure(err)
	}
	var active *store.WorkflowStep
	for i := range steps {
		if steps[i].Status == store.StepStatusActive {
			active = &steps[i]
			break
		}
	}
	if active == nil {
		return nil, ErrInvalidTransition
	}
	tr, err := s.workflows.CancelStep(ctx, workflowID, active.ID, actorID, comment, utils.NowUTC())
	if err != nil {
		return nil, storeFailure(err)
	}
	s.publish(ctx, stepEvent(EventWorkflowCancelled, tr.Step))
	s.logger.Infof("workflow %d cancelled by %s", workflowID, actorID)
	return &StepActionResult{Step: tr.Step, WorkflowStatus: tr.WorkflowStatus}, nil
}

// WorkflowView is the full read model of one workflow instance.
type WorkflowView struct {
	Workflow    store.Workflow             `json:"workflow"`
	Steps       []store.WorkflowStep       `json:"steps"`
	Escalations []store.WorkflowEscalation `json:"escalations,omitempty"`
	Actions     []store.WorkflowAction     `json:"recent_actions,omitempty"`
}

func (s *Service) GetWorkflowView(ctx context.Context, workflowID int64) (*WorkflowView, error) {
	wf, err := s.workflows.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if wf == nil {
		return nil, ErrNotFound
	}
	steps, err := s.workflows.ListSteps(ctx, workflowID)
	if err != nil {
		return nil, storeFailure(err)
	}
	escalations, err := s.workflows.ListEscalations(ctx, workflowID)
	if err != nil {
		return nil, storeFailure(err)
	}
	limit := s.cfg.ActionHistoryLimit
	if limit <= 0 {
		limit = 10
	}
	actions, err := s.workflows.ListActions(ctx, workflowID, limit)
	if err != nil {
		return nil, storeFailure(err)
	}
	return &WorkflowView{Workflow: *wf, Steps: steps, Escalations: escalations, Actions: actions}, nil
}

// WorkflowsForRole lists workflows with an active step assigned to the role.
func (s *Service) WorkflowsForRole(ctx context.Context, role string) ([]store.Workflow, error) {
	if strings.TrimSpace(role) == "" {
		return nil, ErrInvalidInput
	}
	items, err := s.workflows.ListWorkflowsByRole(ctx, role)
	return items, storeFailure(err)
}

func (s *Service) ListWorkflows(ctx context.Context, filter store.WorkflowFilter) ([]store.Workflow, error) {
	items, err := s.workflows.ListWorkflows(ctx, filter)
	return items, storeFailure(err)
}

func (s *Service) Metrics(ctx context.Context, from, to time.Time) (*store.WorkflowMetrics, error) {
	if to.IsZero() {
		to = utils.NowUTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, -1, 0)
	}
	m, err := s.workflows.Metrics(ctx, from, to)
	return m, storeFailure(err)
}

// storeFailure classifies an error escaping a store call. Domain sentinels
// pass through untouched; anything else is a transient persistence failure.
func storeFailure(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrTemplateNotFound),
		errors.Is(err, ErrDuplicateWorkflow),
		errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrInvalidTransition):
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// publish delivers an event to the sink. Delivery is best effort: the
// transition is already committed, so a sink failure is logged and dropped
// rather than surfaced to the caller.
func (s *Service) publish(ctx context.Context, ev Event) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(ctx, ev); err != nil {
		s.logger.Errorf("event %s for workflow %d not delivered: %v", ev.Type, ev.WorkflowID, err)
	}
}
