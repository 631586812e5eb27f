// Package handler exposes the booking widget endpoints.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leadfunnel_backend/internal/booking/calendar"
	"leadfunnel_backend/internal/booking/domain"
	"leadfunnel_backend/internal/booking/repository"
	"leadfunnel_backend/internal/booking/service"
	"leadfunnel_backend/internal/booking/transport"
	"leadfunnel_backend/platform/apperr"
	"leadfunnel_backend/platform/httpkit"
	"leadfunnel_backend/platform/validator"
)

const (
	msgInvalidInput = "Invalid input"
	dateFormat      = "2006-01-02"
)

type Handler struct {
	svc            *service.Service
	val            *validator.Validator
	appBaseURL     string
	organizerName  string
	organizerEmail string
}

func New(svc *service.Service, val *validator.Validator, appBaseURL, organizerName, organizerEmail string) *Handler {
	return &Handler{
		svc:            svc,
		val:            val,
		appBaseURL:     appBaseURL,
		organizerName:  organizerName,
		organizerEmail: organizerEmail,
	}
}

// RegisterRoutes mounts the booking routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	booking := rg.Group("/booking")
	booking.GET("/meeting-types", h.MeetingTypes)
	booking.GET("/slots", h.Slots)

	flows := booking.Group("/flows")
	flows.POST("", h.StartFlow)
	flows.GET("/:flowId", h.GetFlow)
	flows.POST("/:flowId/meeting-type", h.SelectMeetingType)
	flows.POST("/:flowId/date", h.SelectDate)
	flows.POST("/:flowId/slot", h.SelectSlot)
	flows.POST("/:flowId/details", h.SetDetails)
	flows.POST("/:flowId/back", h.Back)
	flows.POST("/:flowId/confirm", h.Confirm)
	flows.POST("/:flowId/cancel", h.Cancel)

	booking.GET("/bookings/:bookingId/calendar.ics", h.CalendarICS)
	booking.GET("/bookings/:bookingId/qr.png", h.QRCode)
}

// MeetingTypes lists the bookable formats and their durations.
func (h *Handler) MeetingTypes(c *gin.Context) {
	types := make([]transport.MeetingTypeResponse, 0, len(domain.MeetingTypes))
	for _, mt := range domain.MeetingTypes {
		types = append(types, transport.MeetingTypeResponse{
			Type:            string(mt),
			DurationMinutes: mt.DurationMinutes(),
		})
	}
	httpkit.OK(c, gin.H{"meetingTypes": types})
}

// Slots returns available windows for a date and meeting type synchronously.
func (h *Handler) Slots(c *gin.Context) {
	day, err := time.ParseInLocation(dateFormat, c.Query("date"), h.svc.Location())
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "date must be formatted YYYY-MM-DD", nil)
		return
	}

	slots, err := h.svc.AvailableSlots(c.Request.Context(), day, domain.MeetingType(c.Query("meetingType")))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]transport.SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, transport.SlotResponse{StartTime: s.StartTime, EndTime: s.EndTime})
	}
	httpkit.OK(c, gin.H{"slots": out})
}

// StartFlow opens a new booking flow.
func (h *Handler) StartFlow(c *gin.Context) {
	var req transport.StartFlowRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidInput, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidInput, validator.FieldErrors(err))
		return
	}

	var leadID *uuid.UUID
	if req.LeadID != "" {
		id, err := uuid.Parse(req.LeadID)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid leadId", nil)
			return
		}
		leadID = &id
	}

	flow := h.svc.Flows().Start(leadID)
	httpkit.Created(c, transport.ToFlowResponse(flow))
}

// GetFlow returns the flow's current state, including any fetched slots.
func (h *Handler) GetFlow(c *gin.Context) {
	flow, err := h.svc.Flows().Get(c.Param("flowId"))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToFlowResponse(flow))
}

// SelectMeetingType sets the flow's meeting format.
func (h *Handler) SelectMeetingType(c *gin.Context) {
	var req transport.SelectMeetingTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidInput, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidInput, validator.FieldErrors(err))
		return
	}

	flow, err := h.svc.Flows().SelectMeetingType(c.Param("flowId"), req.MeetingType)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToFlowResponse(flow))
}

// SelectDate picks a day and starts the asynchronous slot fetch. The response
// reports slotsLoading=true; the widget polls GetFlow for the result.
func (h *Handler) SelectDate(c *gin.Context) {
	var req transport.SelectDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidInput, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidInput, validator.FieldErrors(err))
		return
	}

	day, err := time.ParseInLocation(dateFormat, req.Date, h.svc.Location())
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "date must be formatted YYYY-MM-DD", nil)
		return
	}

	flow, err := h.svc.Flows().SelectDate(c.Param("flowId"), day)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToFlowResponse(flow))
}

// SelectSlot locks in a fetched slot and advances to confirmation.
func (h *Handler) SelectSlot(c *gin.Context) {
	var req transport.SelectSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidInput, nil)
		return
	}

	flow, err := h.svc.Flows().SelectSlot(c.Param("flowId"), req.StartTime)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToFlowResponse(flow))
}

// SetDetails stores the confirmation stage's contact fields.
func (h *Handler) SetDetails(c *gin.Context) {
	var req transport.DetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidInput, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidInput, validator.FieldErrors(err))
		return
	}

	flow, err := h.svc.Flows().SetDetails(c.Param("flowId"), domain.ContactDetails{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Notes: req.Notes,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToFlowResponse(flow))
}

// Back steps the flow backward one stage.
func (h *Handler) Back(c *gin.Context) {
	flow, err := h.svc.Flows().Back(c.Param("flowId"))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToFlowResponse(flow))
}

// Confirm persists the booking. On failure the flow remains on confirmation
// with its details intact.
func (h *Handler) Confirm(c *gin.Context) {
	flow, booking, err := h.svc.Flows().Confirm(c.Request.Context(), c.Param("flowId"))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.Created(c, transport.ConfirmResponse{
		Flow:    transport.ToFlowResponse(flow),
		Booking: transport.ToBookingResponse(booking),
	})
}

// Cancel abandons an open flow.
func (h *Handler) Cancel(c *gin.Context) {
	if err := h.svc.Flows().Cancel(c.Param("flowId")); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"cancelled": true})
}

// CalendarICS serves the booking as an iCalendar download.
func (h *Handler) CalendarICS(c *gin.Context) {
	booking, err := h.bookingFromParam(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	ics := calendar.BuildICS(booking, h.organizerName, h.organizerEmail)
	c.Header("Content-Disposition", `attachment; filename="meeting.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics))
}

// QRCode serves a PNG QR code linking to the booking page.
func (h *Handler) QRCode(c *gin.Context) {
	booking, err := h.bookingFromParam(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	png, err := calendar.BookingQR(h.appBaseURL, booking)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) bookingFromParam(c *gin.Context) (repository.Booking, error) {
	id, err := uuid.Parse(c.Param("bookingId"))
	if err != nil {
		return repository.Booking{}, apperr.BadRequest("invalid booking id")
	}
	return h.svc.GetBooking(c.Request.Context(), id)
}
