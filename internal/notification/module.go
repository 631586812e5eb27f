// Package notification turns domain events into durable email intents. It
// never talks SMTP itself: every notification is written to the outbox and
// delivered by the worker, which retries on failure.
package notification

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"leadfunnel_backend/internal/events"
	"leadfunnel_backend/internal/notification/outbox"
	"leadfunnel_backend/platform/config"
	"leadfunnel_backend/platform/logger"
)

// LeadConfirmationPayload is rendered into the lead's confirmation email.
type LeadConfirmationPayload struct {
	FirstName string `json:"firstName"`
	Division  string `json:"division"`
}

// SalesAlertPayload is rendered into the sales team's new-lead alert.
type SalesAlertPayload struct {
	LeadID         string   `json:"leadId"`
	LeadName       string   `json:"leadName"`
	Company        string   `json:"company"`
	Classification string   `json:"classification"`
	TotalScore     int      `json:"totalScore"`
	Insights       []string `json:"insights"`
}

// BookingConfirmationPayload is rendered into the attendee's confirmation.
type BookingConfirmationPayload struct {
	BookingID   string `json:"bookingId"`
	Name        string `json:"name"`
	MeetingType string `json:"meetingType"`
	StartTime   string `json:"startTime"`
	Timezone    string `json:"timezone"`
}

// BookingReminderPayload is rendered into the day-before reminder.
type BookingReminderPayload struct {
	BookingID   string `json:"bookingId"`
	Name        string `json:"name"`
	MeetingType string `json:"meetingType"`
	StartTime   string `json:"startTime"`
}

// Module subscribes to funnel and booking events and records outbox intents.
type Module struct {
	outbox       *outbox.Repository
	salesAddress string
	reminderLead time.Duration
	log          *logger.Logger
}

// NewModule wires the outbox repository and event subscriptions.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, notifCfg config.NotificationConfig, bookingCfg config.BookingConfig, log *logger.Logger) *Module {
	m := &Module{
		outbox:       outbox.New(pool),
		salesAddress: notifCfg.GetSalesTeamAddress(),
		reminderLead: bookingCfg.GetBookingReminderLead(),
		log:          log,
	}

	eventBus.Subscribe(events.LeadScored{}.EventName(), events.HandlerFunc(m.onLeadScored))
	eventBus.Subscribe(events.BookingCreated{}.EventName(), events.HandlerFunc(m.onBookingCreated))

	return m
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

func (m *Module) onLeadScored(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadScored)
	if !ok {
		return nil
	}

	if _, err := m.outbox.Insert(ctx, outbox.InsertParams{
		Template:  outbox.TemplateLeadConfirmation,
		Recipient: e.Email,
		Payload: LeadConfirmationPayload{
			FirstName: e.FirstName,
			Division:  e.Division,
		},
	}); err != nil {
		m.log.Error("outbox insert failed", "template", outbox.TemplateLeadConfirmation, "error", err)
	}

	if m.salesAddress == "" {
		return nil
	}
	if _, err := m.outbox.Insert(ctx, outbox.InsertParams{
		Template:  outbox.TemplateSalesAlert,
		Recipient: m.salesAddress,
		Payload: SalesAlertPayload{
			LeadID:         e.LeadID.String(),
			LeadName:       e.FirstName,
			Company:        e.Company,
			Classification: e.Classification,
			TotalScore:     e.TotalScore,
			Insights:       e.Insights,
		},
	}); err != nil {
		m.log.Error("outbox insert failed", "template", outbox.TemplateSalesAlert, "error", err)
	}
	return nil
}

func (m *Module) onBookingCreated(ctx context.Context, event events.Event) error {
	e, ok := event.(events.BookingCreated)
	if !ok {
		return nil
	}

	if _, err := m.outbox.Insert(ctx, outbox.InsertParams{
		Template:  outbox.TemplateBookingConfirmation,
		Recipient: e.Email,
		Payload: BookingConfirmationPayload{
			BookingID:   e.BookingID.String(),
			Name:        e.Name,
			MeetingType: e.MeetingType,
			StartTime:   e.StartTime.Format(time.RFC3339),
			Timezone:    e.Timezone,
		},
	}); err != nil {
		m.log.Error("outbox insert failed", "template", outbox.TemplateBookingConfirmation, "error", err)
	}

	reminderAt := e.StartTime.Add(-m.reminderLead)
	if m.reminderLead <= 0 || !reminderAt.After(time.Now()) {
		return nil
	}
	if _, err := m.outbox.Insert(ctx, outbox.InsertParams{
		Template:  outbox.TemplateBookingReminder,
		Recipient: e.Email,
		Payload: BookingReminderPayload{
			BookingID:   e.BookingID.String(),
			Name:        e.Name,
			MeetingType: e.MeetingType,
			StartTime:   e.StartTime.Format(time.RFC3339),
		},
		RunAt: reminderAt,
	}); err != nil {
		m.log.Error("outbox insert failed", "template", outbox.TemplateBookingReminder, "error", err)
	}
	return nil
}
