// Package booking provides the meeting-scheduling bounded context: the flow
// state machine, slot computation, and booking persistence.
package booking

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"leadfunnel_backend/internal/booking/handler"
	"leadfunnel_backend/internal/booking/repository"
	"leadfunnel_backend/internal/booking/service"
	"leadfunnel_backend/internal/events"
	apphttp "leadfunnel_backend/internal/http"
	"leadfunnel_backend/platform/config"
	"leadfunnel_backend/platform/logger"
	"leadfunnel_backend/platform/validator"
)

// Module is the booking bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
	repo    *repository.Repository
}

// NewModule wires the booking repository, flow manager, and handler.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg config.BookingConfig, notifCfg config.NotificationConfig, emailCfg config.EmailConfig, log *logger.Logger) (*Module, error) {
	repo := repository.New(pool)
	svc, err := service.New(repo, eventBus, log, cfg.GetBookingTimezone())
	if err != nil {
		return nil, err
	}

	h := handler.New(svc, val, notifCfg.GetAppBaseURL(), emailCfg.GetEmailFromName(), emailCfg.GetEmailFromAddress())

	return &Module{handler: h, svc: svc, repo: repo}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "booking"
}

// RegisterRoutes mounts the booking routes on the public group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Public)
}

// Repository exposes booking persistence for sibling modules.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}
