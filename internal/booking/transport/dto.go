// Package transport defines the booking widget's wire types.
package transport

import (
	"time"

	"leadfunnel_backend/internal/booking/domain"
	"leadfunnel_backend/internal/booking/repository"
)

type StartFlowRequest struct {
	LeadID string `json:"leadId" validate:"omitempty,uuid4"`
}

type SelectMeetingTypeRequest struct {
	MeetingType domain.MeetingType `json:"meetingType" validate:"required,oneof=discovery-call technical-consultation project-scoping"`
}

type SelectDateRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

type SelectSlotRequest struct {
	StartTime time.Time `json:"startTime" validate:"required"`
}

type DetailsRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=200"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,min=5,max=20"`
	Notes string `json:"notes" validate:"omitempty,max=2000"`
}

type MeetingTypeResponse struct {
	Type            string `json:"type"`
	DurationMinutes int    `json:"durationMinutes"`
}

type SlotResponse struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

type FlowResponse struct {
	FlowID       string         `json:"flowId"`
	Stage        string         `json:"stage"`
	MeetingType  string         `json:"meetingType,omitempty"`
	SelectedDate string         `json:"selectedDate,omitempty"`
	SlotsLoading bool           `json:"slotsLoading"`
	Slots        []SlotResponse `json:"slots"`
	SelectedSlot *SlotResponse  `json:"selectedSlot,omitempty"`
	BookingID    string         `json:"bookingId,omitempty"`
}

// ToFlowResponse maps a flow snapshot to its wire shape.
func ToFlowResponse(f domain.Flow) FlowResponse {
	resp := FlowResponse{
		FlowID:       f.FlowID,
		Stage:        string(f.Stage),
		MeetingType:  string(f.MeetingType),
		SlotsLoading: f.SlotsLoading,
		Slots:        make([]SlotResponse, 0, len(f.Slots)),
	}
	if !f.SelectedDate.IsZero() {
		resp.SelectedDate = f.SelectedDate.Format("2006-01-02")
	}
	for _, s := range f.Slots {
		resp.Slots = append(resp.Slots, SlotResponse{StartTime: s.StartTime, EndTime: s.EndTime})
	}
	if f.SelectedSlot != nil {
		resp.SelectedSlot = &SlotResponse{StartTime: f.SelectedSlot.StartTime, EndTime: f.SelectedSlot.EndTime}
	}
	if f.BookingID != nil {
		resp.BookingID = f.BookingID.String()
	}
	return resp
}

type BookingResponse struct {
	ID              string    `json:"id"`
	LeadID          string    `json:"leadId,omitempty"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	MeetingType     string    `json:"meetingType"`
	DurationMinutes int       `json:"durationMinutes"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	Timezone        string    `json:"timezone"`
	Notes           string    `json:"notes,omitempty"`
	Status          string    `json:"status"`
}

// ToBookingResponse maps a stored booking to its wire shape.
func ToBookingResponse(b repository.Booking) BookingResponse {
	resp := BookingResponse{
		ID:              b.ID.String(),
		Name:            b.Name,
		Email:           b.Email,
		MeetingType:     b.MeetingType,
		DurationMinutes: b.DurationMinutes,
		StartTime:       b.StartTime,
		EndTime:         b.EndTime,
		Timezone:        b.Timezone,
		Notes:           b.Notes,
		Status:          b.Status,
	}
	if b.LeadID != nil {
		resp.LeadID = b.LeadID.String()
	}
	return resp
}

type ConfirmResponse struct {
	Flow    FlowResponse    `json:"flow"`
	Booking BookingResponse `json:"booking"`
}
