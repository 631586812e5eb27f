// Package handler exposes the wizard session endpoints.
package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"leadfunnel_backend/internal/funnel/service"
	"leadfunnel_backend/internal/funnel/transport"
	"leadfunnel_backend/internal/scoring"
	"leadfunnel_backend/platform/httpkit"
)

// Step payloads are small JSON documents; anything larger is abuse.
const maxBodyBytes = 64 << 10

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the wizard routes under /funnel/sessions.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	sessions := rg.Group("/funnel/sessions")
	sessions.POST("", h.StartSession)
	sessions.GET("/:sessionId", h.GetSession)
	sessions.POST("/:sessionId/next", h.Next)
	sessions.POST("/:sessionId/back", h.Back)
	sessions.PUT("/:sessionId", h.Autosave)
	sessions.POST("/:sessionId/submit", h.Submit)
}

// StartSession creates a fresh wizard session.
func (h *Handler) StartSession(c *gin.Context) {
	session, err := h.svc.StartSession(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.Created(c, transport.ToSessionResponse(&session))
}

// GetSession returns the current wizard state for resumption.
func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.svc.GetSession(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToSessionResponse(&session))
}

// Next submits the current step's fields and advances the wizard.
func (h *Handler) Next(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "could not read request body", nil)
		return
	}

	session, err := h.svc.Next(c.Request.Context(), c.Param("sessionId"), json.RawMessage(raw))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToSessionResponse(&session))
}

// Back moves the wizard one step backward.
func (h *Handler) Back(c *gin.Context) {
	session, err := h.svc.Back(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToSessionResponse(&session))
}

// Autosave persists a partial draft without validation.
func (h *Handler) Autosave(c *gin.Context) {
	var req transport.AutosaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "malformed autosave payload", nil)
		return
	}

	session, err := h.svc.Autosave(c.Request.Context(), c.Param("sessionId"), req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToSessionResponse(&session))
}

// Submit finalizes the wizard: full validation, scoring, persistence.
func (h *Handler) Submit(c *gin.Context) {
	result, err := h.svc.Submit(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.Created(c, transport.SubmitResponse{
		LeadID:   result.LeadID.String(),
		Score:    toScoreResponse(result.Score),
		Insights: result.Insights,
	})
}

func toScoreResponse(s scoring.LeadScore) transport.ScoreResponse {
	factors := make([]transport.Fact, 0, len(s.Factors))
	for _, f := range s.Factors {
		factors = append(factors, transport.Fact{Component: f.Component, Score: f.Score, Weight: f.Weight})
	}
	return transport.ScoreResponse{
		TotalScore:             s.TotalScore,
		Classification:         string(s.Classification),
		Confidence:             s.Confidence,
		CompanyScore:           s.CompanyScore,
		BudgetScore:            s.BudgetScore,
		TimelineScore:          s.TimelineScore,
		PainPointScore:         s.PainPointScore,
		TechCompatibilityScore: s.TechCompatibilityScore,
		EngagementScore:        s.EngagementScore,
		Version:                s.Version,
		Factors:                factors,
	}
}
