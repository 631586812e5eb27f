// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"leadfunnel_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus is re-exported so composition roots need only this package.
var NewInMemoryBus = events.NewInMemoryBus

// =============================================================================
// Funnel Domain Events
// =============================================================================

// LeadScored is published when a completed submission has been scored and
// persisted. Notification fan-out (confirmation + sales alert) hangs off it.
type LeadScored struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	Email          string    `json:"email"`
	FirstName      string    `json:"firstName"`
	Company        string    `json:"company"`
	Division       string    `json:"division"`
	TotalScore     int       `json:"totalScore"`
	Classification string    `json:"classification"`
	Insights       []string  `json:"insights"`
}

func (e LeadScored) EventName() string { return "funnel.lead.scored" }

// SessionCompleted is published when a funnel session transitions to completed.
type SessionCompleted struct {
	BaseEvent
	SessionID string    `json:"sessionId"`
	LeadID    uuid.UUID `json:"leadId"`
	TimeSpent int       `json:"timeSpentSeconds"`
}

func (e SessionCompleted) EventName() string { return "funnel.session.completed" }

// =============================================================================
// Booking Domain Events
// =============================================================================

// BookingCreated is published when a booking flow reaches its success state.
type BookingCreated struct {
	BaseEvent
	BookingID   uuid.UUID  `json:"bookingId"`
	LeadID      *uuid.UUID `json:"leadId,omitempty"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	MeetingType string     `json:"meetingType"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     time.Time  `json:"endTime"`
	Timezone    string     `json:"timezone"`
}

func (e BookingCreated) EventName() string { return "booking.created" }
