package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kestrel-qhse/api/handlers"
	"kestrel-qhse/config"
	"kestrel-qhse/core/store"
	"kestrel-qhse/core/utils"
	"kestrel-qhse/core/workflow"
)

type Server struct {
	cfg       *config.AppConfig
	incidents store.IncidentsStore
	svc       *workflow.Service
	logger    *utils.Logger

	http *http.Server
}

func NewServer(cfg *config.AppConfig, incidents store.IncidentsStore, svc *workflow.Service, logger *utils.Logger) *Server {
	s := &Server{cfg: cfg, incidents: incidents, svc: svc, logger: logger}
	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	incidentsH := handlers.NewIncidentsHandler(s.incidents, s.svc, s.logger)
	workflowsH := handlers.NewWorkflowsHandler(s.svc, s.logger)

	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.jsonMiddleware)
	r.Use(s.loggingMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Route("/incidents", func(r chi.Router) {
			r.Get("/", incidentsH.List)
			r.Post("/", incidentsH.Create)
			r.Get("/{id}", incidentsH.Get)
			r.Post("/{id}/score", incidentsH.Score)
		})
		r.Get("/sectors", incidentsH.ListSectors)
		r.Get("/incident-types", incidentsH.ListIncidentTypes)
		r.Route("/workflows", func(r chi.Router) {
			r.Get("/", workflowsH.List)
			r.Post("/", workflowsH.Create)
			r.Get("/templates", workflowsH.ListTemplates)
			r.Get("/metrics", workflowsH.Metrics)
			r.Get("/{id}", workflowsH.Get)
			r.Post("/{id}/cancel", workflowsH.Cancel)
			r.Post("/{id}/steps/{step_id}/actions", workflowsH.StepAction)
		})
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

func (s *Server) Start() error {
	s.logger.Infof("http server listening on %s", s.cfg.ListenAddr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
