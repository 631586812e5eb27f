// Package service computes available slots and drives the booking flow.
package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"leadfunnel_backend/internal/booking/domain"
	"leadfunnel_backend/internal/booking/repository"
	"leadfunnel_backend/internal/events"
	"leadfunnel_backend/platform/apperr"
	"leadfunnel_backend/platform/logger"
	"leadfunnel_backend/platform/phone"
)

// AvailabilityStore is the persistence surface slot generation and booking
// confirmation need.
type AvailabilityStore interface {
	ListRules(ctx context.Context) ([]repository.AvailabilityRule, error)
	GetOverride(ctx context.Context, day time.Time) (*repository.AvailabilityOverride, error)
	ListBookingsBetween(ctx context.Context, from, to time.Time) ([]repository.Booking, error)
	CreateBooking(ctx context.Context, b repository.Booking) (repository.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (repository.Booking, error)
}

// Default window when no rules are configured: weekdays nine to five.
const (
	defaultStartMinute = 9 * 60
	defaultEndMinute   = 17 * 60
)

type Service struct {
	store    AvailabilityStore
	flows    *FlowManager
	eventBus events.Bus
	log      *logger.Logger
	loc      *time.Location
	now      func() time.Time
}

func New(store AvailabilityStore, eventBus events.Bus, log *logger.Logger, timezone string) (*Service, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load booking timezone: %w", err)
	}

	s := &Service{
		store:    store,
		eventBus: eventBus,
		log:      log,
		loc:      loc,
		now:      time.Now,
	}
	s.flows = newFlowManager(s, log)
	return s, nil
}

// Location returns the booking timezone.
func (s *Service) Location() *time.Location {
	return s.loc
}

// AvailableSlots computes bookable windows for a day and meeting type:
// the day's window (override first, then weekday rules, then the default),
// cut into duration-sized slots, minus existing bookings and elapsed time.
func (s *Service) AvailableSlots(ctx context.Context, day time.Time, meetingType domain.MeetingType) ([]domain.Slot, error) {
	if !meetingType.Valid() {
		return nil, apperr.Validation("unknown meeting type")
	}
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return []domain.Slot{}, nil
	}

	windows, err := s.dayWindows(ctx, day)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return []domain.Slot{}, nil
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.loc)
	booked, err := s.store.ListBookingsBetween(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not load existing bookings", err)
	}

	duration := time.Duration(meetingType.DurationMinutes()) * time.Minute
	now := s.now()

	slots := make([]domain.Slot, 0, 16)
	for _, w := range windows {
		for start := dayStart.Add(time.Duration(w.startMinute) * time.Minute); ; start = start.Add(duration) {
			end := start.Add(duration)
			if end.After(dayStart.Add(time.Duration(w.endMinute) * time.Minute)) {
				break
			}
			if !start.After(now) {
				continue
			}
			if overlapsAny(start, end, booked) {
				continue
			}
			slots = append(slots, domain.Slot{StartTime: start, EndTime: end})
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime.Before(slots[j].StartTime) })
	return slots, nil
}

type window struct {
	startMinute int
	endMinute   int
}

func (s *Service) dayWindows(ctx context.Context, day time.Time) ([]window, error) {
	override, err := s.store.GetOverride(ctx, day)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not load availability override", err)
	}
	if override != nil {
		if !override.IsAvailable {
			return nil, nil
		}
		if override.StartMinute != nil && override.EndMinute != nil {
			return []window{{startMinute: *override.StartMinute, endMinute: *override.EndMinute}}, nil
		}
		// Available without explicit times: fall through to rules.
	}

	rules, err := s.store.ListRules(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not load availability rules", err)
	}

	windows := make([]window, 0, 2)
	for _, rule := range rules {
		if rule.Weekday == int(day.Weekday()) {
			windows = append(windows, window{startMinute: rule.StartMinute, endMinute: rule.EndMinute})
		}
	}
	if len(windows) == 0 && len(rules) == 0 {
		windows = append(windows, window{startMinute: defaultStartMinute, endMinute: defaultEndMinute})
	}
	return windows, nil
}

func overlapsAny(start, end time.Time, booked []repository.Booking) bool {
	for _, b := range booked {
		if start.Before(b.EndTime) && end.After(b.StartTime) {
			return true
		}
	}
	return false
}

// ConfirmBooking persists a booking for the flow's selected slot and contact
// details, publishes the created event, and returns the stored record. Slot
// conflicts surface unchanged so the widget can refresh its slot list.
func (s *Service) ConfirmBooking(ctx context.Context, flow *domain.Flow) (repository.Booking, error) {
	if flow.SelectedSlot == nil {
		return repository.Booking{}, apperr.Conflict("no slot selected")
	}
	d := flow.Details
	if d.Name == "" || d.Email == "" {
		return repository.Booking{}, apperr.Validation("name and email are required")
	}
	contactPhone := phone.NormalizeE164(d.Phone)

	booking := repository.Booking{
		ID:              uuid.New(),
		LeadID:          flow.LeadID,
		Name:            d.Name,
		Email:           d.Email,
		Phone:           contactPhone,
		MeetingType:     string(flow.MeetingType),
		DurationMinutes: flow.MeetingType.DurationMinutes(),
		StartTime:       flow.SelectedSlot.StartTime,
		EndTime:         flow.SelectedSlot.EndTime,
		Timezone:        s.loc.String(),
		Notes:           d.Notes,
	}

	saved, err := s.store.CreateBooking(ctx, booking)
	if err != nil {
		return repository.Booking{}, err
	}

	s.eventBus.Publish(ctx, events.BookingCreated{
		BaseEvent:   events.NewBaseEvent(),
		BookingID:   saved.ID,
		LeadID:      saved.LeadID,
		Name:        saved.Name,
		Email:       saved.Email,
		MeetingType: saved.MeetingType,
		StartTime:   saved.StartTime,
		EndTime:     saved.EndTime,
		Timezone:    saved.Timezone,
	})

	return saved, nil
}

// GetBooking loads a stored booking.
func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (repository.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err == repository.ErrNotFound {
		return repository.Booking{}, apperr.NotFound("booking not found")
	}
	if err != nil {
		return repository.Booking{}, apperr.Wrap(apperr.KindInternal, "could not load booking", err)
	}
	return b, nil
}

// Flows exposes the flow manager.
func (s *Service) Flows() *FlowManager {
	return s.flows
}
