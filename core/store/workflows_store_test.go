package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"kestrel-qhse/config"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.AppConfig{
		DBDriver: "sqlite",
		DBURL:    filepath.Join(t.TempDir(), "test.db"),
	}
	db, err := NewDB(cfg, nil)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := ApplyMigrations(context.Background(), db, cfg.DBDriver, nil); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}
	return db
}

func threeStepSeeds(now time.Time) []StepSeed {
	due := now.Add(4 * time.Hour)
	return []StepSeed{
		{Order: 1, Name: "Report", Role: "employee", DueOffset: 4 * time.Hour, Status: StepStatusActive, DueDate: &due},
		{Order: 2, Name: "Review", Role: "supervisor", DueOffset: 24 * time.Hour, Status: StepStatusPending},
		{Order: 3, Name: "Close", Role: "qhse_manager", DueOffset: 8 * time.Hour, Status: StepStatusPending},
	}
}

func createTestWorkflow(t *testing.T, ws WorkflowsStore, now time.Time) (*Workflow, []WorkflowStep) {
	t.Helper()
	wf := &Workflow{TemplateID: "incident_investigation", Priority: "medium", CreatedAt: now}
	if _, err := ws.CreateWorkflow(context.Background(), wf, threeStepSeeds(now)); err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}
	steps, err := ws.ListSteps(context.Background(), wf.ID)
	if err != nil {
		t.Fatalf("ListSteps: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(steps))
	}
	return wf, steps
}

func TestCreateWorkflowMaterializesSteps(t *testing.T) {
	ws := NewWorkflowsStore(newTestDB(t), FlavorSQLite)
	now := time.Now().UTC().Truncate(time.Second)
	wf, steps := createTestWorkflow(t, ws, now)

	if wf.Status != WorkflowStatusInProgress {
		t.Fatalf("workflow status = %s, want in_progress", wf.Status)
	}
	for i, step := range steps {
		if step.StepOrder != i+1 {
			t.Fatalf("step %d has order %d", i, step.StepOrder)
		}
	}
	if steps[0].Status != StepStatusActive || steps[0].DueDate == nil {
		t.Fatalf("first step must be active with a due date: %+v", steps[0])
	}
	if steps[1].Status != StepStatusPending || steps[1].DueDate != nil {
		t.Fatalf("pending steps must have no due date: %+v", steps[1])
	}
}

func TestCompleteStepAdvancesToNext(t *testing.T) {
	ws := NewWorkflowsStore(newTestDB(t), FlavorSQLite)
	now := time.Now().UTC().Truncate(time.Second)
	wf, steps := createTestWorkflow(t, ws, now)

	tr, err := ws.CompleteStep(context.Background(), wf.ID, steps[0].ID, "u1", "done", now)
	if err != nil {
		t.Fatalf("CompleteStep: %v", err)
	}
	if tr.Step.Status != StepStatusCompleted || tr.Step.CompletedAt == nil {
		t.Fatalf("completed step = %+v", tr.Step)
	}
	if tr.NextStep == nil || tr.NextStep.ID != steps[1].ID {
		t.Fatalf("next step = %+v, want step %d", tr.NextStep, steps[1].ID)
	}
	if tr.NextStep.Status != StepStatusActive || tr.NextStep.DueDate == nil {
		t.Fatalf("next step must be active with due date: %+v", tr.NextStep)
	}
	wantDue := now.Add(steps[1].DueOffset)
	if !tr.NextStep.DueDate.Equal(wantDue) {
		t.Fatalf("next due = %v, want %v", tr.NextStep.DueDate, wantDue)
	}
	if tr.WorkflowStatus != WorkflowStatusInProgress {
		t.Fatalf("workflow status = %s, want in_progress", tr.WorkflowStatus)
	}
}

func TestCompleteFinalStepCompletesWorkflow(t *testing.T) {
	ws := NewWorkflowsStore(newTestDB(t), FlavorSQLite)
	now := time.Now().UTC().Truncate(time.Second)
	wf, steps := createTestWorkflow(t, ws, now)

	for _, step := range steps {
		if _, err := ws.CompleteStep(context.Background(), wf.ID, step.ID, "u1", "", now); err != nil {
			t.Fatalf("CompleteStep(%d): %v", step.ID, err)
		}
	}
	got, err := ws.GetWorkflow(context.Background(), wf.ID)
	if err != nil {
		t.Fatalf("GetWorkflow: %v", err)
	}
	if got.Status != WorkflowStatusCompleted {
		t.Fatalf("workflow status = %s, want completed", got.Status)
	}
	if got.CompletedAt == nil {
		t.Fatal("completed workflow must carry completed_at")
	}
	if got.Version <= wf.Version {
		t.Fatalf("version must advance: got %d, started at %d", got.Version, wf.Version)
	}
}

func TestCompleteStepNotActiveConflicts(t *testing.T) {
	ws := NewWorkflowsStore(newTestDB(t), FlavorSQLite)
	now := time.Now().UTC().Truncate(time.Second)
	wf, steps := createTestWorkflow(t, ws, now)

	// pending step
	if _, err := ws.CompleteStep(context.Background(), wf.ID, steps[1].ID, "u1", "", now); !errors.Is(err, ErrConflict) {
		t.Fatalf("pending step err = %v, want ErrConflict", err)
	}
	// already completed step
	if _, err := ws.CompleteStep(context.Background(), wf.ID, steps[0].ID, "u1", "", now); err != nil {
		t.Fatalf("CompleteStep: %v", err)
	}
	if _, err := ws.CompleteStep(context.Background(), wf.ID, steps[0].ID, "u1", "", now); !errors.Is(err, ErrConflict) {
		t.Fatalf("repeat complete err = %v, want ErrConflict", err)
	}
}

func TestCancelStepCancelsPendingRemainder(t *testing.T) {
	ws := NewWorkflowsStore(newTestDB(t), FlavorSQLite)
	now := time.Now().UTC().Truncate(time.Second)
	wf, steps := createTestWorkflow(t, ws, now)

	tr, err := ws.CancelStep(context.Background(), wf.ID, steps[0].ID, "mgr", "not needed", now)
	if err != nil {
		t.Fatalf("CancelStep: %v", err)
	}
	if tr.WorkflowStatus != WorkflowStatusCancelled {
		t.Fatalf("workflow status = %s, want cancelled", tr.WorkflowStatus)
	}
	after, err := ws.ListSteps(context.Background(), wf.ID)
	if err != nil {
		t.Fatalf("ListSteps: %v", err)
	}
	for _, step := range after {
		if step.Status != StepStatusCancelled {
			t.Fatalf("step %d status = %s, want cancelled", step.ID, step.Status)
		}
	}
}

func TestEscalateStepExactlyOnce(t *testing.T) {
	ws := NewWorkflowsStore(newTestDB(t), FlavorSQLite)
	now := time.Now().UTC().Truncate(time.Second)
	wf, steps := createTestWorkflow(t, ws, now)

	tr, err := ws.EscalateStep(context.Background(), wf.ID, steps[0].ID, "supervisor", "overdue", now)
	if err != nil {
		t.Fatalf("EscalateStep: %v", err)
	}
	if tr.Step.Status != StepStatusEscalated {
		t.Fatalf("step status = %s, want escalated", tr.Step.Status)
	}
	if tr.NextStep == nil || tr.NextStep.Status != StepStatusActive {
		t.Fatalf("next step must be activated: %+v", tr.NextStep)
	}
	if tr.WorkflowStatus != WorkflowStatusEscalated {
		t.Fatalf("workflow status = %s, want escalated", tr.WorkflowStatus)
	}

	if _, err := ws.EscalateStep(context.Background(), wf.ID, steps[0].ID, "manager", "overdue", now); !errors.Is(err, ErrConflict) {
		t.Fatalf("second escalation err = %v, want ErrConflict", err)
	}
	escalations, err := ws.ListEscalations(context.Background(), wf.ID)
	if err != nil {
		t.Fatalf("ListEscalations: %v", err)
	}
	if len(escalations) != 1 {
		t.Fatalf("escalations = %d, want 1", len(escalations))
	}
	if escalations[0].EscalatedTo != "supervisor" {
		t.Fatalf("escalated_to = %s, want supervisor", escalations[0].EscalatedTo)
	}
}

func TestConcurrentCompleteVsEscalateOneWinner(t *testing.T) {
	ws := NewWorkflowsStore(newTestDB(t), FlavorSQLite)
	now := time.Now().UTC().Truncate(time.Second)
	wf, steps := createTestWorkflow(t, ws, now)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = ws.CompleteStep(context.Background(), wf.ID, steps[0].ID, "u1", "", now)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = ws.EscalateStep(context.Background(), wf.ID, steps[0].ID, "supervisor", "overdue", now)
	}()
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
}

func TestListOverdueActiveSteps(t *testing.T) {
	ws := NewWorkflowsStore(newTestDB(t), FlavorSQLite)
	now := time.Now().UTC().Truncate(time.Second)
	past := now.Add(-2 * time.Hour)
	wf := &Workflow{TemplateID: "corrective_action", Priority: "high", CreatedAt: now.Add(-3 * time.Hour)}
	seeds := []StepSeed{
		{Order: 1, Name: "Identify", Role: "qhse_manager", DueOffset: time.Hour, Status: StepStatusActive, DueDate: &past},
		{Order: 2, Name: "Plan", Role: "qhse_manager", DueOffset: 24 * time.Hour, Status: StepStatusPending},
	}
	if _, err := ws.CreateWorkflow(context.Background(), wf, seeds); err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}

	overdue, err := ws.ListOverdueActiveSteps(context.Background(), now, 10)
	if err != nil {
		t.Fatalf("ListOverdueActiveSteps: %v", err)
	}
	if len(overdue) != 1 {
		t.Fatalf("overdue = %d, want 1", len(overdue))
	}
	if overdue[0].WorkflowID != wf.ID || overdue[0].Priority != "high" {
		t.Fatalf("overdue row = %+v", overdue[0])
	}

	if _, err := ws.EscalateStep(context.Background(), wf.ID, overdue[0].Step.ID, "supervisor", "overdue", now); err != nil {
		t.Fatalf("EscalateStep: %v", err)
	}
	again, err := ws.ListOverdueActiveSteps(context.Background(), now, 10)
	if err != nil {
		t.Fatalf("ListOverdueActiveSteps: %v", err)
	}
	for _, item := range again {
		if item.Step.ID == overdue[0].Step.ID {
			t.Fatal("escalated step must not reappear in the overdue selection")
		}
	}
}

func TestActionsAreAppendedPerTransition(t *testing.T) {
	ws := NewWorkflowsStore(newTestDB(t), FlavorSQLite)
	now := time.Now().UTC().Truncate(time.Second)
	wf, steps := createTestWorkflow(t, ws, now)

	if _, err := ws.CompleteStep(context.Background(), wf.ID, steps[0].ID, "u1", "first", now); err != nil {
		t.Fatalf("CompleteStep: %v", err)
	}
	if _, err := ws.CompleteStep(context.Background(), wf.ID, steps[1].ID, "u2", "second", now.Add(time.Minute)); err != nil {
		t.Fatalf("CompleteStep: %v", err)
	}
	actions, err := ws.ListActions(context.Background(), wf.ID, 10)
	if err != nil {
		t.Fatalf("ListActions: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("actions = %d, want 2", len(actions))
	}
	// newest first
	if actions[0].ActorID != "u2" || actions[0].Outcome != StepStatusCompleted {
		t.Fatalf("latest action = %+v", actions[0])
	}
}

func TestDeriveWorkflowStatus(t *testing.T) {
	mk := func(statuses ...string) []WorkflowStep {
		steps := make([]WorkflowStep, len(statuses))
		for i, st := range statuses {
			steps[i] = WorkflowStep{StepOrder: i + 1, Status: st}
		}
		return steps
	}
	cases := []struct {
		name  string
		steps []WorkflowStep
		want  string
	}{
		{"no steps", nil, WorkflowStatusPending},
		{"all pending", mk("pending", "pending"), WorkflowStatusPending},
		{"active", mk("active", "pending"), WorkflowStatusInProgress},
		{"partially completed", mk("completed", "active"), WorkflowStatusInProgress},
		{"all completed", mk("completed", "completed"), WorkflowStatusCompleted},
		{"escalated wins over progress", mk("escalated", "active"), WorkflowStatusEscalated},
		{"escalated wins over completed", mk("completed", "escalated"), WorkflowStatusEscalated},
		{"cancelled wins over everything", mk("completed", "escalated", "cancelled"), WorkflowStatusCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveWorkflowStatus(tc.steps); got != tc.want {
				t.Fatalf("DeriveWorkflowStatus = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestFindOpenWorkflowByIncident(t *testing.T) {
	db := newTestDB(t)
	ws := NewWorkflowsStore(db, FlavorSQLite)
	is := NewIncidentsStore(db, FlavorSQLite)
	now := time.Now().UTC().Truncate(time.Second)

	inc := &Incident{Title: "spill", SectorID: 1, IncidentTypeID: 1, Probability: 0.4}
	if _, err := is.CreateIncident(context.Background(), inc); err != nil {
		t.Fatalf("CreateIncident: %v", err)
	}

	open, err := ws.FindOpenWorkflowByIncident(context.Background(), inc.ID)
	if err != nil {
		t.Fatalf("FindOpenWorkflowByIncident: %v", err)
	}
	if open != nil {
		t.Fatalf("expected no open workflow, got %+v", open)
	}

	wf := &Workflow{TemplateID: "incident_investigation", IncidentID: &inc.ID, Priority: "medium", CreatedAt: now}
	if _, err := ws.CreateWorkflow(context.Background(), wf, threeStepSeeds(now)); err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}
	open, err = ws.FindOpenWorkflowByIncident(context.Background(), inc.ID)
	if err != nil {
		t.Fatalf("FindOpenWorkflowByIncident: %v", err)
	}
	if open == nil || open.ID != wf.ID {
		t.Fatalf("open workflow = %+v, want id %d", open, wf.ID)
	}

	// cancel it; the incident becomes free again
	steps, _ := ws.ListSteps(context.Background(), wf.ID)
	if _, err := ws.CancelStep(context.Background(), wf.ID, steps[0].ID, "mgr", "", now); err != nil {
		t.Fatalf("CancelStep: %v", err)
	}
	open, err = ws.FindOpenWorkflowByIncident(context.Background(), inc.ID)
	if err != nil {
		t.Fatalf("FindOpenWorkflowByIncident: %v", err)
	}
	if open != nil {
		t.Fatalf("cancelled workflow still counts as open: %+v", open)
	}
}

func TestListWorkflowsByRole(t *testing.T) {
	ws := NewWorkflowsStore(newTestDB(t), FlavorSQLite)
	now := time.Now().UTC().Truncate(time.Second)
	wf, _ := createTestWorkflow(t, ws, now)

	items, err := ws.ListWorkflowsByRole(context.Background(), "employee")
	if err != nil {
		t.Fatalf("ListWorkflowsByRole: %v", err)
	}
	if len(items) != 1 || items[0].ID != wf.ID {
		t.Fatalf("items = %+v, want workflow %d", items, wf.ID)
	}
	none, err := ws.ListWorkflowsByRole(context.Background(), "supervisor")
	if err != nil {
		t.Fatalf("ListWorkflowsByRole: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("supervisor has no active step yet, got %+v", none)
	}
}

func TestMetrics(t *testing.T) {
	ws := NewWorkflowsStore(newTestDB(t), FlavorSQLite)
	now := time.Now().UTC().Truncate(time.Second)
	wf, steps := createTestWorkflow(t, ws, now)
	for _, step := range steps {
		if _, err := ws.CompleteStep(context.Background(), wf.ID, step.ID, "u1", "", now.Add(2*time.Hour)); err != nil {
			t.Fatalf("CompleteStep: %v", err)
		}
	}
	createTestWorkflow(t, ws, now)

	m, err := ws.Metrics(context.Background(), now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if m.Total != 2 || m.Completed != 1 {
		t.Fatalf("metrics = %+v, want total 2 completed 1", m)
	}
	if m.CompletionRate != 50 {
		t.Fatalf("completion rate = %v, want 50", m.CompletionRate)
	}
	if m.AvgProcessingHours < 1.9 || m.AvgProcessingHours > 2.1 {
		t.Fatalf("avg processing hours = %v, want ~2", m.AvgProcessingHours)
	}
}
