package workflow

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"kestrel-qhse/core/store"
	"kestrel-qhse/core/utils"
)

type EventType string

const (
	EventStepActivated     EventType = "step_activated"
	EventStepCompleted     EventType = "step_completed"
	EventStepEscalated     EventType = "step_escalated"
	EventWorkflowCompleted EventType = "workflow_completed"
	EventWorkflowCancelled EventType = "workflow_cancelled"
)

// Event carries everything the external notification dispatcher needs to
// route an alert without querying the store.
type Event struct {
	ID           string     `json:"id"`
	Type         EventType  `json:"type"`
	WorkflowID   int64      `json:"workflow_id"`
	StepID       *int64     `json:"step_id,omitempty"`
	StepOrder    int        `json:"step_order,omitempty"`
	StepName     string     `json:"step_name,omitempty"`
	AssignedRole string     `json:"assigned_role,omitempty"`
	EscalatedTo  string     `json:"escalated_to,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}

func newEvent(t EventType, workflowID int64) Event {
	return Event{
		ID:         uuid.Must(uuid.NewV4()).String(),
		Type:       t,
		WorkflowID: workflowID,
		OccurredAt: utils.NowUTC(),
	}
}

func stepEvent(t EventType, step store.WorkflowStep) Event {
	ev := newEvent(t, step.WorkflowID)
	id := step.ID
	ev.StepID = &id
	ev.StepOrder = step.StepOrder
	ev.StepName = step.StepName
	ev.AssignedRole = step.AssignedRole
	if step.DueDate != nil {
		due := *step.DueDate
		ev.DueDate = &due
	}
	return ev
}
