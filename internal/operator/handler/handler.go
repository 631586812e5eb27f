// Package handler exposes the operator back-office endpoints.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	bookingtransport "leadfunnel_backend/internal/booking/transport"
	"leadfunnel_backend/internal/operator/repository"
	"leadfunnel_backend/internal/operator/service"
	"leadfunnel_backend/platform/apperr"
	"leadfunnel_backend/platform/httpkit"
	"leadfunnel_backend/platform/validator"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LeadSummaryResponse struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	Company        string    `json:"company"`
	Division       string    `json:"division"`
	TotalScore     int       `json:"totalScore"`
	Classification string    `json:"classification"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterLogin mounts the unauthenticated login route.
func (h *Handler) RegisterLogin(rg *gin.RouterGroup) {
	rg.POST("/operator/login", h.Login)
}

// RegisterRoutes mounts the authenticated back-office routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/leads", h.ListLeads)
	rg.GET("/leads/export.csv", h.ExportLeads)
	rg.GET("/leads/:leadId", h.GetLead)
	rg.GET("/bookings", h.ListBookings)
}

// Login exchanges operator credentials for a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid input", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid input", validator.FieldErrors(err))
		return
	}

	token, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"token": token})
}

// ListLeads returns scored leads, filterable by classification.
func (h *Handler) ListLeads(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	leads, err := h.svc.ListLeads(c.Request.Context(), c.Query("classification"), limit, offset)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]LeadSummaryResponse, 0, len(leads))
	for _, l := range leads {
		out = append(out, toLeadSummaryResponse(l))
	}
	httpkit.OK(c, gin.H{"leads": out})
}

// GetLead returns the full submission with its score breakdown.
func (h *Handler) GetLead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return
	}

	lead, err := h.svc.GetLead(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, toLeadDetailResponse(lead))
}

// ListBookings returns upcoming bookings.
func (h *Handler) ListBookings(c *gin.Context) {
	var from, to time.Time
	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "from must be formatted YYYY-MM-DD", nil)
			return
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "to must be formatted YYYY-MM-DD", nil)
			return
		}
		to = parsed
	}

	bookings, err := h.svc.ListBookings(c.Request.Context(), from, to)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]bookingtransport.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, bookingtransport.ToBookingResponse(b))
	}
	httpkit.OK(c, gin.H{"bookings": out})
}

// ExportLeads streams the lead list as a CSV download.
func (h *Handler) ExportLeads(c *gin.Context) {
	data, err := h.svc.ExportLeadsCSV(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="leads.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func toLeadSummaryResponse(l repository.LeadSummary) LeadSummaryResponse {
	return LeadSummaryResponse{
		ID:             l.ID.String(),
		FirstName:      l.FirstName,
		LastName:       l.LastName,
		Email:          l.Email,
		Company:        l.Company,
		Division:       l.Division,
		TotalScore:     l.TotalScore,
		Classification: l.Classification,
		CreatedAt:      l.CreatedAt,
	}
}

func toLeadDetailResponse(d repository.LeadDetail) gin.H {
	return gin.H{
		"id":        d.ID.String(),
		"sessionId": d.SessionID,
		"contact": gin.H{
			"firstName": d.FirstName,
			"lastName":  d.LastName,
			"email":     d.Email,
			"phone":     d.Phone,
			"company":   d.Company,
			"position":  d.Position,
		},
		"division": d.Division,
		"services": d.Services,
		"company": gin.H{
			"size":       d.CompanySize,
			"industry":   d.Industry,
			"location":   d.Location,
			"marketType": d.MarketType,
		},
		"project": gin.H{
			"budget":      d.Budget,
			"timeline":    d.Timeline,
			"urgency":     d.Urgency,
			"description": d.ProjectDescription,
		},
		"technical": gin.H{
			"currentTech":        d.CurrentTech,
			"painPoints":         d.PainPoints,
			"painPointSeverity":  d.PainPointSeverity,
			"expectedOutcomes":   d.ExpectedOutcomes,
			"previousExperience": d.PreviousExperience,
		},
		"score": gin.H{
			"totalScore":             d.TotalScore,
			"classification":         d.Classification,
			"confidence":             d.Confidence,
			"companyScore":           d.CompanyScore,
			"budgetScore":            d.BudgetScore,
			"timelineScore":          d.TimelineScore,
			"painPointScore":         d.PainPointScore,
			"techCompatibilityScore": d.TechCompatibilityScore,
			"engagementScore":        d.EngagementScore,
			"version":                d.ScoreVersion,
		},
		"createdAt": d.CreatedAt,
	}
}
