package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"kestrel-qhse/config"
	"kestrel-qhse/core/store"
	"kestrel-qhse/core/utils"
)

// Escalation tiers by how far past due the step is. The longest matching tier
// wins, so a step that sat overdue for a week goes straight to the director.
const (
	tierDirector = 168 * time.Hour
	tierManager  = 72 * time.Hour
)

// EscalationTarget maps an overdue duration to the role that receives the
// escalation.
func EscalationTarget(overdue time.Duration) string {
	switch {
	case overdue >= tierDirector:
		return "director"
	case overdue >= tierManager:
		return "manager"
	default:
		return "supervisor"
	}
}

// Escalator periodically sweeps active steps past their due date and escalates
// each exactly once. Passes never overlap: a slow pass makes the next tick
// skip, not queue.
type Escalator struct {
	cfg    config.SchedulerConfig
	store  store.WorkflowsStore
	sink   EventSink
	logger *utils.Logger

	cron *cron.Cron
}

func NewEscalator(cfg config.SchedulerConfig, st store.WorkflowsStore, sink EventSink, logger *utils.Logger) *Escalator {
	return &Escalator{cfg: cfg, store: st, sink: sink, logger: logger}
}

// Start schedules the sweep loop. Returns immediately; the passes run on the
// cron goroutine until Stop.
func (e *Escalator) Start(ctx context.Context) error {
	if !e.cfg.Enabled {
		e.logger.Infof("escalation scheduler disabled")
		return nil
	}
	if e.cron != nil {
		return errors.New("escalator already started")
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	spec := fmt.Sprintf("@every %s", e.cfg.EffectiveInterval())
	if _, err := c.AddFunc(spec, func() {
		if err := e.RunOnce(ctx, utils.NowUTC()); err != nil {
			e.logger.Errorf("escalation pass failed: %v", err)
		}
	}); err != nil {
		return err
	}
	c.Start()
	e.cron = c
	e.logger.Infof("escalation scheduler started, interval %s", e.cfg.EffectiveInterval())
	return nil
}

// Stop halts scheduling and waits for an in-flight pass to finish.
func (e *Escalator) Stop() {
	if e.cron == nil {
		return
	}
	<-e.cron.Stop().Done()
	e.cron = nil
	e.logger.Infof("escalation scheduler stopped")
}

// RunOnce executes a single escalation pass. Per-step failures are logged and
// skipped so one bad row never stalls the sweep; a lost race (another pass or
// an actor completing the step first) is not an error at all.
func (e *Escalator) RunOnce(ctx context.Context, now time.Time) error {
	overdue, err := e.store.ListOverdueActiveSteps(ctx, now, e.cfg.MaxStepsPerPass)
	if err != nil {
		return err
	}
	if len(overdue) == 0 {
		return nil
	}
	escalated := 0
	for _, item := range overdue {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lateness := now.Sub(*item.Step.DueDate)
		target := EscalationTarget(lateness)
		reason := fmt.Sprintf("step %q overdue by %s", item.Step.StepName, lateness.Truncate(time.Minute))
		tr, err := e.store.EscalateStep(ctx, item.WorkflowID, item.Step.ID, target, reason, now)
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			e.logger.Errorf("escalation of workflow %d step %d failed: %v", item.WorkflowID, item.Step.ID, err)
			continue
		}
		escalated++
		e.publish(ctx, escalationEvent(tr.Step, target))
		if tr.NextStep != nil {
			e.publish(ctx, stepEvent(EventStepActivated, *tr.NextStep))
		}
	}
	if escalated > 0 {
		e.logger.Infof("escalation pass: %d of %d overdue steps escalated", escalated, len(overdue))
	}
	return nil
}

func (e *Escalator) publish(ctx context.Context, ev Event) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Publish(ctx, ev); err != nil {
		e.logger.Errorf("event %s for workflow %d not delivered: %v", ev.Type, ev.WorkflowID, err)
	}
}

func escalationEvent(step store.WorkflowStep, target string) Event {
	ev := stepEvent(EventStepEscalated, step)
	ev.EscalatedTo = target
	return ev
}
