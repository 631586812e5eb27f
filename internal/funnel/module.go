// Package funnel provides the lead-capture bounded context: the multi-step
// wizard, its session store, and the submit-and-score transition.
package funnel

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"leadfunnel_backend/internal/events"
	"leadfunnel_backend/internal/funnel/handler"
	"leadfunnel_backend/internal/funnel/repository"
	"leadfunnel_backend/internal/funnel/service"
	apphttp "leadfunnel_backend/internal/http"
	"leadfunnel_backend/internal/scoring"
	"leadfunnel_backend/platform/config"
	"leadfunnel_backend/platform/logger"
	"leadfunnel_backend/platform/validator"
)

// Module is the funnel bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
	repo    *repository.Repository
}

// NewModule wires the funnel's repository, tracker, service, and handler.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg config.FunnelConfig, scoringCfg scoring.Config, log *logger.Logger) *Module {
	repo := repository.New(pool)
	engine := scoring.NewEngine(scoringCfg)
	tracker := service.NewTracker(cfg.GetSessionIdleTTL(), repo.TouchTimeSpent, log)
	svc := service.New(repo, tracker, engine, val, eventBus, log)

	return &Module{
		handler: handler.New(svc),
		svc:     svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "funnel"
}

// RegisterRoutes mounts the wizard routes on the public group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Public)
}

// Repository exposes the funnel repository for sibling modules (scheduler
// cleanup, operator reads).
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// Stop releases session timers on shutdown.
func (m *Module) Stop() {
	m.svc.Stop()
}
