// Package operator provides the sales back office: authentication, lead
// review, bookings overview, and CSV export.
package operator

import (
	"github.com/jackc/pgx/v5/pgxpool"

	bookingrepo "leadfunnel_backend/internal/booking/repository"
	apphttp "leadfunnel_backend/internal/http"
	"leadfunnel_backend/internal/operator/handler"
	"leadfunnel_backend/internal/operator/repository"
	"leadfunnel_backend/internal/operator/service"
	"leadfunnel_backend/platform/config"
	"leadfunnel_backend/platform/validator"
)

// Module is the operator bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule wires the operator read models and handler.
func NewModule(pool *pgxpool.Pool, bookings *bookingrepo.Repository, val *validator.Validator, cfg config.OperatorConfig) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bookings, cfg)
	return &Module{handler: handler.New(svc, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "operator"
}

// RegisterRoutes mounts login on the public group and everything else behind
// operator auth.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterLogin(ctx.Public)
	m.handler.RegisterRoutes(ctx.Operator)
}
