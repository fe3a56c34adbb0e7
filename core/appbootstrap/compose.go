package appbootstrap

import (
	"database/sql"

	"kestrel-qhse/api"
	"kestrel-qhse/config"
	"kestrel-qhse/core/notify"
	"kestrel-qhse/core/rbac"
	"kestrel-qhse/core/store"
	"kestrel-qhse/core/utils"
	"kestrel-qhse/core/workflow"
)

type runtimeComposition struct {
	server    *api.Server
	escalator *workflow.Escalator
}

func composeRuntime(cfg *config.AppConfig, db *sql.DB, logger *utils.Logger) (*runtimeComposition, error) {
	flavor := store.DriverFlavor(cfg.DBDriver)
	incidentsStore := store.NewIncidentsStore(db, flavor)
	workflowsStore := store.NewWorkflowsStore(db, flavor)

	policy, err := rbac.NewPolicy()
	if err != nil {
		return nil, err
	}
	registry := workflow.NewRegistry()

	var sink workflow.EventSink
	if cfg.Notify.WebhookURL != "" {
		sink = notify.NewWebhookSink(cfg.Notify)
	} else {
		sink = notify.NewLogSink(logger)
	}

	svc := workflow.NewService(cfg.Workflows, workflowsStore, incidentsStore, registry, policy, sink, logger)
	escalator := workflow.NewEscalator(cfg.Scheduler, workflowsStore, sink, logger)
	server := api.NewServer(cfg, incidentsStore, svc, logger)

	return &runtimeComposition{server: server, escalator: escalator}, nil
}
