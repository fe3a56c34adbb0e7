package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	StepStatusPending   = "pending"
	StepStatusActive    = "active"
	StepStatusCompleted = "completed"
	StepStatusEscalated = "escalated"
	StepStatusCancelled = "cancelled"

	WorkflowStatusPending    = "pending"
	WorkflowStatusInProgress = "in_progress"
	WorkflowStatusCompleted  = "completed"
	WorkflowStatusEscalated  = "escalated"
	WorkflowStatusCancelled  = "cancelled"
)

type Workflow struct {
	ID          int64      `json:"id"`
	TemplateID  string     `json:"template_id"`
	IncidentID  *int64     `json:"incident_id,omitempty"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Version     int        `json:"version"`
}

type WorkflowStep struct {
	ID           int64         `json:"id"`
	WorkflowID   int64         `json:"workflow_id"`
	StepOrder    int           `json:"step_order"`
	StepName     string        `json:"step_name"`
	AssignedRole string        `json:"assigned_role"`
	Status       string        `json:"status"`
	DueOffset    time.Duration `json:"due_offset"`
	DueDate      *time.Time    `json:"due_date,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type WorkflowAction struct {
	ID         int64     `json:"id"`
	WorkflowID int64     `json:"workflow_id"`
	StepID     int64     `json:"step_id"`
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action"`
	Comment    string    `json:"comment,omitempty"`
	Outcome    string    `json:"outcome"`
	CreatedAt  time.Time `json:"created_at"`
}

type WorkflowEscalation struct {
	ID          int64     `json:"id"`
	WorkflowID  int64     `json:"workflow_id"`
	StepID      int64     `json:"step_id"`
	EscalatedTo string    `json:"escalated_to"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// StepSeed is one materialized template entry at instantiation time.
type StepSeed struct {
	Order     int
	Name      string
	Role      string
	DueOffset time.Duration
	Status    string
	DueDate   *time.Time
}

// Transition is the observable outcome of one committed step transition.
type Transition struct {
	Step           WorkflowStep
	NextStep       *WorkflowStep
	WorkflowStatus string
}

// OverdueStep is a scheduler selection row: an active step past its due date
// with no escalation recorded yet.
type OverdueStep struct {
	Step       WorkflowStep
	WorkflowID int64
	Priority   string
	TemplateID string
}

type WorkflowFilter struct {
	Status     string
	TemplateID string
	IncidentID int64
	Limit      int
	Offset     int
}

type WorkflowMetrics struct {
	Total              int     `json:"total_workflows"`
	Completed          int     `json:"completed_workflows"`
	Overdue            int     `json:"overdue_workflows"`
	CompletionRate     float64 `json:"completion_rate"`
	AvgProcessingHours float64 `json:"average_processing_time_hours"`
}

type WorkflowsStore interface {
	CreateWorkflow(ctx context.Context, wf *Workflow, seeds []StepSeed) (int64, error)
	GetWorkflow(ctx context.Context, id int64) (*Workflow, error)
	ListWorkflows(ctx context.Context, filter WorkflowFilter) ([]Workflow, error)
	FindOpenWorkflowByIncident(ctx context.Context, incidentID int64) (*Workflow, error)
	ListWorkflowsByRole(ctx context.Context, role string) ([]Workflow, error)

	GetStep(ctx context.Context, stepID int64) (*WorkflowStep, error)
	ListSteps(ctx context.Context, workflowID int64) ([]WorkflowStep, error)

	CompleteStep(ctx context.Context, workflowID, stepID int64, actorID, comment string, now time.Time) (*Transition, error)
	CancelStep(ctx context.Context, workflowID, stepID int64, actorID, comment string, now time.Time) (*Transition, error)
	EscalateStep(ctx context.Context, workflowID, stepID int64, escalatedTo, reason string, now time.Time) (*Transition, error)

	ListOverdueActiveSteps(ctx context.Context, now time.Time, limit int) ([]OverdueStep, error)
	ListEscalations(ctx context.Context, workflowID int64) ([]WorkflowEscalation, error)
	ListActions(ctx context.Context, workflowID int64, limit int) ([]WorkflowAction, error)

	Metrics(ctx context.Context, from, to time.Time) (*WorkflowMetrics, error)
}

type workflowsStore struct {
	db     *sql.DB
	flavor Flavor
}

func NewWorkflowsStore(db *sql.DB, flavor Flavor) WorkflowsStore {
	return &workflowsStore{db: db, flavor: flavor}
}

// DeriveWorkflowStatus is the single aggregation of step statuses into a
// workflow status. It is recomputed inside every transition transaction and
// never set independently. Precedence: cancelled, escalated, completed,
// in_progress, pending.
func DeriveWorkflowStatus(steps []WorkflowStep) string {
	if len(steps) == 0 {
		return WorkflowStatusPending
	}
	completed := 0
	anyEscalated := false
	anyStarted := false
	for _, s := range steps {
		switch s.Status {
		case StepStatusCancelled:
			return WorkflowStatusCancelled
		case StepStatusEscalated:
			anyEscalated = true
		case StepStatusCompleted:
			completed++
			anyStarted = true
		case StepStatusActive:
			anyStarted = true
		}
	}
	if anyEscalated {
		return WorkflowStatusEscalated
	}
	if completed == len(steps) {
		return WorkflowStatusCompleted
	}
	if anyStarted {
		return WorkflowStatusInProgress
	}
	return WorkflowStatusPending
}

func (s *workflowsStore) CreateWorkflow(ctx context.Context, wf *Workflow, seeds []StepSeed) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	now := wf.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if wf.Version <= 0 {
		wf.Version = 1
	}
	if strings.TrimSpace(wf.Status) == "" {
		wf.Status = WorkflowStatusPending
	}
	var workflowID int64
	if s.flavor == FlavorPostgres {
		err = tx.QueryRowContext(ctx, rebind(s.flavor, `
			INSERT INTO workflows(template_id, incident_id, priority, status, created_at, updated_at, completed_at, version)
			VALUES(?,?,?,?,?,?,NULL,?) RETURNING id`),
			wf.TemplateID, nullableID(wf.IncidentID), wf.Priority, wf.Status, now, now, wf.Version).Scan(&workflowID)
	} else {
		var res sql.Result
		res, err = tx.ExecContext(ctx, `
			INSERT INTO workflows(template_id, incident_id, priority, status, created_at, updated_at, completed_at, version)
			VALUES(?,?,?,?,?,?,NULL,?)`,
			wf.TemplateID, nullableID(wf.IncidentID), wf.Priority, wf.Status, now, now, wf.Version)
		if err == nil {
			workflowID, _ = res.LastInsertId()
		}
	}
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	for _, seed := range seeds {
		status := seed.Status
		if strings.TrimSpace(status) == "" {
			status = StepStatusPending
		}
		if _, err := tx.ExecContext(ctx, rebind(s.flavor, `
			INSERT INTO workflow_steps(workflow_id, step_order, step_name, assigned_role, status, due_offset_seconds, due_date, completed_at, created_at, updated_at)
			VALUES(?,?,?,?,?,?,?,NULL,?,?)`),
			workflowID, seed.Order, seed.Name, seed.Role, status, int64(seed.DueOffset/time.Second), nullableTime(seed.DueDate), now, now); err != nil {
			tx.Rollback()
			return 0, err
		}
	}
	// The first step is active immediately, so the instance starts moving
	// as soon as it is materialized.
	if _, err := tx.ExecContext(ctx, rebind(s.flavor, `
		UPDATE workflows SET status=?, updated_at=? WHERE id=?`),
		WorkflowStatusInProgress, now, workflowID); err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	wf.ID = workflowID
	wf.Status = WorkflowStatusInProgress
	wf.CreatedAt = now
	wf.UpdatedAt = now
	return workflowID, nil
}

func (s *workflowsStore) GetWorkflow(ctx context.Context, id int64) (*Workflow, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.flavor, `
		SELECT id, template_id, incident_id, priority, status, created_at, updated_at, completed_at, version
		FROM workflows WHERE id=?`), id)
	return scanWorkflowRow(row)
}

func (s *workflowsStore) FindOpenWorkflowByIncident(ctx context.Context, incidentID int64) (*Workflow, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.flavor, `
		SELECT id, template_id, incident_id, priority, status, created_at, updated_at, completed_at, version
		FROM workflows
		WHERE incident_id=? AND status NOT IN (?,?)
		ORDER BY created_at DESC LIMIT 1`),
		incidentID, WorkflowStatusCompleted, WorkflowStatusCancelled)
	return scanWorkflowRow(row)
}

func (s *workflowsStore) ListWorkflows(ctx context.Context, filter WorkflowFilter) ([]Workflow, error) {
	var clauses []string
	var args []any
	if filter.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, filter.Status)
	}
	if filter.TemplateID != "" {
		clauses = append(clauses, "template_id=?")
		args = append(args, filter.TemplateID)
	}
	if filter.IncidentID > 0 {
		clauses = append(clauses, "incident_id=?")
		args = append(args, filter.IncidentID)
	}
	query := `SELECT id, template_id, incident_id, priority, status, created_at, updated_at, completed_at, version FROM workflows`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}
	rows, err := s.db.QueryContext(ctx, rebind(s.flavor, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWorkflows(rows)
}

func (s *workflowsStore) ListWorkflowsByRole(ctx context.Context, role string) ([]Workflow, error) {
	rows, err := s.db.QueryContext(ctx, rebind(s.flavor, `
		SELECT DISTINCT w.id, w.template_id, w.incident_id, w.priority, w.status, w.created_at, w.updated_at, w.completed_at, w.version
		FROM workflows w
		JOIN workflow_steps s ON s.workflow_id = w.id
		WHERE s.assigned_role=? AND s.status=?
		ORDER BY w.created_at ASC`),
		strings.ToLower(strings.TrimSpace(role)), StepStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWorkflows(rows)
}

func (s *workflowsStore) GetStep(ctx context.Context, stepID int64) (*WorkflowStep, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.flavor, `
		SELECT id, workflow_id, step_order, step_name, assigned_role, status, due_offset_seconds, due_date, completed_at, created_at, updated_at
		FROM workflow_steps WHERE id=?`), stepID)
	step, err := scanStepRow(row)
	if err != nil {
		return nil, err
	}
	return step, nil
}

func (s *workflowsStore) ListSteps(ctx context.Context, workflowID int64) ([]WorkflowStep, error) {
	rows, err := s.db.QueryContext(ctx, rebind(s.flavor, `
		SELECT id, workflow_id, step_order, step_name, assigned_role, status, due_offset_seconds, due_date, completed_at, created_at, updated_at
		FROM workflow_steps WHERE workflow_id=? ORDER BY step_order ASC`), workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []WorkflowStep
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, step)
	}
	return res, rows.Err()
}

func (s *workflowsStore) CompleteStep(ctx context.Context, workflowID, stepID int64, actorID, comment string, now time.Time) (*Transition, error) {
	return s.transitionStep(ctx, workflowID, stepID, transitionSpec{
		newStatus:    StepStatusCompleted,
		action:       "complete",
		actorID:      actorID,
		comment:      comment,
		activateNext: true,
	}, now)
}

func (s *workflowsStore) CancelStep(ctx context.Context, workflowID, stepID int64, actorID, comment string, now time.Time) (*Transition, error) {
	return s.transitionStep(ctx, workflowID, stepID, transitionSpec{
		newStatus:     StepStatusCancelled,
		action:        "cancel",
		actorID:       actorID,
		comment:       comment,
		cancelPending: true,
	}, now)
}

func (s *workflowsStore) EscalateStep(ctx context.Context, workflowID, stepID int64, escalatedTo, reason string, now time.Time) (*Transition, error) {
	return s.transitionStep(ctx, workflowID, stepID, transitionSpec{
		newStatus:    StepStatusEscalated,
		action:       "escalate",
		actorID:      "scheduler",
		comment:      reason,
		activateNext: true,
		escalatedTo:  escalatedTo,
		reason:       reason,
	}, now)
}

type transitionSpec struct {
	newStatus     string
	action        string
	actorID       string
	comment       string
	activateNext  bool
	cancelPending bool
	escalatedTo   string
	reason        string
}

// transitionStep commits one step transition atomically: the CAS on the step
// row, the escalation record (if escalating), activation of the next pending
// step, the derived workflow status, and the audit row all land in one
// transaction or not at all. The WHERE status='active' guard serializes
// racing actors and the scheduler: exactly one transition wins, the rest see
// ErrConflict.
func (s *workflowsStore) transitionStep(ctx context.Context, workflowID, stepID int64, spec transitionSpec, now time.Time) (*Transition, error) {
	now = now.UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	if spec.newStatus == StepStatusEscalated {
		res, err := tx.ExecContext(ctx, rebind(s.flavor, `
			INSERT INTO workflow_escalations(workflow_id, step_id, escalated_to, reason, created_at)
			SELECT ?,?,?,?,?
			WHERE NOT EXISTS (SELECT 1 FROM workflow_escalations WHERE step_id=?)`),
			workflowID, stepID, spec.escalatedTo, spec.reason, now, stepID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			tx.Rollback()
			return nil, ErrConflict
		}
	}
	var completedAt any
	if spec.newStatus == StepStatusCompleted {
		completedAt = now
	}
	res, err := tx.ExecContext(ctx, rebind(s.flavor, `
		UPDATE workflow_steps SET status=?, completed_at=?, updated_at=?
		WHERE id=? AND workflow_id=? AND status=?`),
		spec.newStatus, completedAt, now, stepID, workflowID, StepStatusActive)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		tx.Rollback()
		return nil, ErrConflict
	}
	if spec.cancelPending {
		if _, err := tx.ExecContext(ctx, rebind(s.flavor, `
			UPDATE workflow_steps SET status=?, updated_at=?
			WHERE workflow_id=? AND status=?`),
			StepStatusCancelled, now, workflowID, StepStatusPending); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	steps, err := listStepsTx(ctx, tx, s.flavor, workflowID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	var transitioned WorkflowStep
	var next *WorkflowStep
	for i := range steps {
		if steps[i].ID == stepID {
			transitioned = steps[i]
		}
	}
	if transitioned.ID == 0 {
		tx.Rollback()
		return nil, sql.ErrNoRows
	}
	if spec.activateNext {
		for i := range steps {
			if steps[i].Status == StepStatusPending && steps[i].StepOrder > transitioned.StepOrder {
				due := now.Add(steps[i].DueOffset)
				if _, err := tx.ExecContext(ctx, rebind(s.flavor, `
					UPDATE workflow_steps SET status=?, due_date=?, updated_at=? WHERE id=?`),
					StepStatusActive, due, now, steps[i].ID); err != nil {
					tx.Rollback()
					return nil, err
				}
				steps[i].Status = StepStatusActive
				steps[i].DueDate = &due
				steps[i].UpdatedAt = now
				cp := steps[i]
				next = &cp
				break
			}
		}
	}
	derived := DeriveWorkflowStatus(steps)
	var workflowCompletedAt any
	if derived == WorkflowStatusCompleted || derived == WorkflowStatusCancelled {
		workflowCompletedAt = now
	}
	if _, err := tx.ExecContext(ctx, rebind(s.flavor, `
		UPDATE workflows SET status=?, updated_at=?, completed_at=?, version=version+1 WHERE id=?`),
		derived, now, workflowCompletedAt, workflowID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, rebind(s.flavor, `
		INSERT INTO workflow_actions(workflow_id, step_id, actor_id, action, comment, outcome, created_at)
		VALUES(?,?,?,?,?,?,?)`),
		workflowID, stepID, spec.actorID, spec.action, spec.comment, spec.newStatus, now); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &Transition{Step: transitioned, NextStep: next, WorkflowStatus: derived}, nil
}

func (s *workflowsStore) ListOverdueActiveSteps(ctx context.Context, now time.Time, limit int) ([]OverdueStep, error) {
	query := `
		SELECT s.id, s.workflow_id, s.step_order, s.step_name, s.assigned_role, s.status, s.due_offset_seconds, s.due_date, s.completed_at, s.created_at, s.updated_at,
		       w.priority, w.template_id
		FROM workflow_steps s
		JOIN workflows w ON w.id = s.workflow_id
		WHERE s.status=? AND s.due_date IS NOT NULL AND s.due_date < ?
		  AND NOT EXISTS (SELECT 1 FROM workflow_escalations e WHERE e.step_id = s.id)
		ORDER BY s.due_date ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, rebind(s.flavor, query), StepStatusActive, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []OverdueStep
	for rows.Next() {
		var item OverdueStep
		var offsetSec int64
		var due, completed sql.NullTime
		if err := rows.Scan(&item.Step.ID, &item.Step.WorkflowID, &item.Step.StepOrder, &item.Step.StepName, &item.Step.AssignedRole, &item.Step.Status, &offsetSec, &due, &completed, &item.Step.CreatedAt, &item.Step.UpdatedAt, &item.Priority, &item.TemplateID); err != nil {
			return nil, err
		}
		item.Step.DueOffset = time.Duration(offsetSec) * time.Second
		if due.Valid {
			item.Step.DueDate = &due.Time
		}
		if completed.Valid {
			item.Step.CompletedAt = &completed.Time
		}
		item.WorkflowID = item.Step.WorkflowID
		res = append(res, item)
	}
	return res, rows.Err()
}

func (s *workflowsStore) ListEscalations(ctx context.Context, workflowID int64) ([]WorkflowEscalation, error) {
	rows, err := s.db.QueryContext(ctx, rebind(s.flavor, `
		SELECT id, workflow_id, step_id, escalated_to, reason, created_at
		FROM workflow_escalations WHERE workflow_id=? ORDER BY created_at ASC, id ASC`), workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []WorkflowEscalation
	for rows.Next() {
		var e WorkflowEscalation
		if err := rows.Scan(&e.ID, &e.WorkflowID, &e.StepID, &e.EscalatedTo, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (s *workflowsStore) ListActions(ctx context.Context, workflowID int64, limit int) ([]WorkflowAction, error) {
	query := `
		SELECT id, workflow_id, step_id, actor_id, action, comment, outcome, created_at
		FROM workflow_actions WHERE workflow_id=? ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, rebind(s.flavor, query), workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []WorkflowAction
	for rows.Next() {
		var a WorkflowAction
		if err := rows.Scan(&a.ID, &a.WorkflowID, &a.StepID, &a.ActorID, &a.Action, &a.Comment, &a.Outcome, &a.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (s *workflowsStore) Metrics(ctx context.Context, from, to time.Time) (*WorkflowMetrics, error) {
	m := &WorkflowMetrics{}
	from = from.UTC()
	to = to.UTC()
	if err := s.db.QueryRowContext(ctx, rebind(s.flavor, `
		SELECT COUNT(*) FROM workflows WHERE created_at BETWEEN ? AND ?`), from, to).Scan(&m.Total); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, rebind(s.flavor, `
		SELECT COUNT(*) FROM workflows WHERE created_at BETWEEN ? AND ? AND status=?`), from, to, WorkflowStatusCompleted).Scan(&m.Completed); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, rebind(s.flavor, `
		SELECT COUNT(DISTINCT w.id)
		FROM workflows w
		JOIN workflow_steps s ON s.workflow_id = w.id
		WHERE w.created_at BETWEEN ? AND ? AND s.status=? AND s.due_date IS NOT NULL AND s.due_date < ?`),
		from, to, StepStatusActive, time.Now().UTC()).Scan(&m.Overdue); err != nil {
		return nil, err
	}
	if m.Total > 0 {
		m.CompletionRate = float64(m.Completed) / float64(m.Total) * 100
	}
	// Average in Go rather than SQL: date arithmetic is the one place the
	// two dialects have nothing in common.
	rows, err := s.db.QueryContext(ctx, rebind(s.flavor, `
		SELECT created_at, completed_at FROM workflows
		WHERE created_at BETWEEN ? AND ? AND status=? AND completed_at IS NOT NULL`),
		from, to, WorkflowStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var totalHours float64
	var n int
	for rows.Next() {
		var created time.Time
		var completed sql.NullTime
		if err := rows.Scan(&created, &completed); err != nil {
			return nil, err
		}
		if completed.Valid {
			totalHours += completed.Time.Sub(created).Hours()
			n++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if n > 0 {
		m.AvgProcessingHours = totalHours / float64(n)
	}
	return m, nil
}

func listStepsTx(ctx context.Context, tx *sql.Tx, flavor Flavor, workflowID int64) ([]WorkflowStep, error) {
	rows, err := tx.QueryContext(ctx, rebind(flavor, `
		SELECT id, workflow_id, step_order, step_name, assigned_role, status, due_offset_seconds, due_date, completed_at, created_at, updated_at
		FROM workflow_steps WHERE workflow_id=? ORDER BY step_order ASC`), workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []WorkflowStep
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, step)
	}
	return res, rows.Err()
}

func scanStep(rows *sql.Rows) (WorkflowStep, error) {
	var step WorkflowStep
	var offsetSec int64
	var due, completed sql.NullTime
	if err := rows.Scan(&step.ID, &step.WorkflowID, &step.StepOrder, &step.StepName, &step.AssignedRole, &step.Status, &offsetSec, &due, &completed, &step.CreatedAt, &step.UpdatedAt); err != nil {
		return step, err
	}
	step.DueOffset = time.Duration(offsetSec) * time.Second
	if due.Valid {
		step.DueDate = &due.Time
	}
	if completed.Valid {
		step.CompletedAt = &completed.Time
	}
	return step, nil
}

func scanStepRow(row *sql.Row) (*WorkflowStep, error) {
	var step WorkflowStep
	var offsetSec int64
	var due, completed sql.NullTime
	if err := row.Scan(&step.ID, &step.WorkflowID, &step.StepOrder, &step.StepName, &step.AssignedRole, &step.Status, &offsetSec, &due, &completed, &step.CreatedAt, &step.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	step.DueOffset = time.Duration(offsetSec) * time.Second
	if due.Valid {
		step.DueDate = &due.Time
	}
	if completed.Valid {
		step.CompletedAt = &completed.Time
	}
	return &step, nil
}

func scanWorkflowRow(row *sql.Row) (*Workflow, error) {
	var wf Workflow
	var incident sql.NullInt64
	var completed sql.NullTime
	if err := row.Scan(&wf.ID, &wf.TemplateID, &incident, &wf.Priority, &wf.Status, &wf.CreatedAt, &wf.UpdatedAt, &completed, &wf.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if incident.Valid {
		wf.IncidentID = &incident.Int64
	}
	if completed.Valid {
		wf.CompletedAt = &completed.Time
	}
	return &wf, nil
}

func collectWorkflows(rows *sql.Rows) ([]Workflow, error) {
	var res []Workflow
	for rows.Next() {
		var wf Workflow
		var incident sql.NullInt64
		var completed sql.NullTime
		if err := rows.Scan(&wf.ID, &wf.TemplateID, &incident, &wf.Priority, &wf.Status, &wf.CreatedAt, &wf.UpdatedAt, &completed, &wf.Version); err != nil {
			return nil, err
		}
		if incident.Valid {
			wf.IncidentID = &incident.Int64
		}
		if completed.Valid {
			wf.CompletedAt = &completed.Time
		}
		res = append(res, wf)
	}
	return res, rows.Err()
}
