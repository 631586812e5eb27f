package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"leadfunnel_backend/internal/booking/domain"
	"leadfunnel_backend/internal/booking/repository"
	"leadfunnel_backend/internal/events"
	"leadfunnel_backend/platform/apperr"
	"leadfunnel_backend/platform/logger"
)

type fakeAvailabilityStore struct {
	mu       sync.Mutex
	rules    []repository.AvailabilityRule
	override *repository.AvailabilityOverride
	bookings []repository.Booking
	created  []repository.Booking
	createRc error
}

func (f *fakeAvailabilityStore) ListRules(ctx context.Context) ([]repository.AvailabilityRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rules, nil
}

func (f *fakeAvailabilityStore) GetOverride(ctx context.Context, day time.Time) (*repository.AvailabilityOverride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.override, nil
}

func (f *fakeAvailabilityStore) ListBookingsBetween(ctx context.Context, from, to time.Time) ([]repository.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bookings, nil
}

func (f *fakeAvailabilityStore) CreateBooking(ctx context.Context, b repository.Booking) (repository.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createRc != nil {
		return repository.Booking{}, f.createRc
	}
	b.CreatedAt = time.Now()
	f.created = append(f.created, b)
	return b, nil
}

func (f *fakeAvailabilityStore) GetBooking(ctx context.Context, id uuid.UUID) (repository.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.created {
		if b.ID == id {
			return b, nil
		}
	}
	return repository.Booking{}, repository.ErrNotFound
}

type nullBus struct{}

func (nullBus) Publish(ctx context.Context, event events.Event) {}
func (nullBus) PublishSync(ctx context.Context, event events.Event) error {
	return nil
}
func (nullBus) Subscribe(eventName string, handler events.Handler) {}

func newSlotService(t *testing.T, store *fakeAvailabilityStore, now time.Time) *Service {
	t.Helper()
	svc, err := New(store, nullBus{}, logger.New("test"), "UTC")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	svc.now = func() time.Time { return now }
	return svc
}

// Tuesday, March 3rd 2026.
var slotDay = time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)

func TestAvailableSlotsDefaultWindow(t *testing.T) {
	store := &fakeAvailabilityStore{}
	svc := newSlotService(t, store, slotDay) // midnight: whole day in the future

	slots, err := svc.AvailableSlots(context.Background(), slotDay, domain.MeetingConsultation)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}

	// Nine to five cut into hour-long meetings.
	if len(slots) != 8 {
		t.Fatalf("len(slots) = %d, want 8", len(slots))
	}
	if slots[0].StartTime.Hour() != 9 {
		t.Fatalf("first slot at %v", slots[0].StartTime)
	}
	last := slots[len(slots)-1]
	if last.EndTime.Hour() != 17 {
		t.Fatalf("last slot ends at %v", last.EndTime)
	}
}

func TestAvailableSlotsWeekendEmpty(t *testing.T) {
	store := &fakeAvailabilityStore{}
	svc := newSlotService(t, store, slotDay)

	saturday := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	slots, err := svc.AvailableSlots(context.Background(), saturday, domain.MeetingDiscoveryCall)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("len(slots) = %d, want 0", len(slots))
	}
}

func TestAvailableSlotsUnknownMeetingType(t *testing.T) {
	store := &fakeAvailabilityStore{}
	svc := newSlotService(t, store, slotDay)

	_, err := svc.AvailableSlots(context.Background(), slotDay, "walkthrough")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("kind = %v, want validation", apperr.GetKind(err))
	}
}

func TestAvailableSlotsExcludesPast(t *testing.T) {
	store := &fakeAvailabilityStore{}
	// Mid-afternoon: only the tail of the day remains.
	svc := newSlotService(t, store, time.Date(2026, 3, 3, 15, 30, 0, 0, time.UTC))

	slots, err := svc.AvailableSlots(context.Background(), slotDay, domain.MeetingConsultation)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("len(slots) = %d, want 1", len(slots))
	}
	if slots[0].StartTime.Hour() != 16 {
		t.Fatalf("remaining slot at %v", slots[0].StartTime)
	}
}

func TestAvailableSlotsExcludesBooked(t *testing.T) {
	booked := repository.Booking{
		StartTime: time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 3, 11, 0, 0, 0, time.UTC),
	}
	store := &fakeAvailabilityStore{bookings: []repository.Booking{booked}}
	svc := newSlotService(t, store, slotDay)

	slots, err := svc.AvailableSlots(context.Background(), slotDay, domain.MeetingConsultation)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 7 {
		t.Fatalf("len(slots) = %d, want 7", len(slots))
	}
	for _, s := range slots {
		if s.StartTime.Before(booked.EndTime) && s.EndTime.After(booked.StartTime) {
			t.Fatalf("slot %v overlaps existing booking", s.StartTime)
		}
	}
}

func TestAvailableSlotsRespectsRules(t *testing.T) {
	store := &fakeAvailabilityStore{
		rules: []repository.AvailabilityRule{
			{Weekday: int(time.Tuesday), StartMinute: 13 * 60, EndMinute: 15 * 60},
		},
	}
	svc := newSlotService(t, store, slotDay)

	slots, err := svc.AvailableSlots(context.Background(), slotDay, domain.MeetingDiscoveryCall)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 4 {
		t.Fatalf("len(slots) = %d, want 4 half-hour slots", len(slots))
	}
	if slots[0].StartTime.Hour() != 13 {
		t.Fatalf("first slot at %v", slots[0].StartTime)
	}

	// Rules for another weekday mean this day has no window at all.
	store.mu.Lock()
	store.rules = []repository.AvailabilityRule{
		{Weekday: int(time.Wednesday), StartMinute: 9 * 60, EndMinute: 17 * 60},
	}
	store.mu.Unlock()

	slots, err = svc.AvailableSlots(context.Background(), slotDay, domain.MeetingDiscoveryCall)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("len(slots) = %d, want 0 when rules skip the day", len(slots))
	}
}

func TestAvailableSlotsOverrideBlocksDay(t *testing.T) {
	store := &fakeAvailabilityStore{
		override: &repository.AvailabilityOverride{Day: slotDay, IsAvailable: false},
	}
	svc := newSlotService(t, store, slotDay)

	slots, err := svc.AvailableSlots(context.Background(), slotDay, domain.MeetingDiscoveryCall)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("len(slots) = %d, want 0 on a blocked day", len(slots))
	}
}

func TestAvailableSlotsOverrideWindowWins(t *testing.T) {
	start := 10 * 60
	end := 12 * 60
	store := &fakeAvailabilityStore{
		override: &repository.AvailabilityOverride{Day: slotDay, IsAvailable: true, StartMinute: &start, EndMinute: &end},
		rules: []repository.AvailabilityRule{
			{Weekday: int(time.Tuesday), StartMinute: 9 * 60, EndMinute: 17 * 60},
		},
	}
	svc := newSlotService(t, store, slotDay)

	slots, err := svc.AvailableSlots(context.Background(), slotDay, domain.MeetingConsultation)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("len(slots) = %d, want 2", len(slots))
	}
	if slots[0].StartTime.Hour() != 10 || slots[1].StartTime.Hour() != 11 {
		t.Fatalf("slots = %+v", slots)
	}
}

func TestConfirmBookingPersistsAndReturns(t *testing.T) {
	store := &fakeAvailabilityStore{}
	svc := newSlotService(t, store, slotDay)

	slot := domain.Slot{
		StartTime: time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 3, 10, 30, 0, 0, time.UTC),
	}
	flow := domain.NewFlow("flow_1", nil, slotDay)
	flow.MeetingType = domain.MeetingDiscoveryCall
	flow.SelectedSlot = &slot
	flow.Details = domain.ContactDetails{Name: "Dana", Email: "dana@acme.example", Phone: "(415) 555-0123"}

	booking, err := svc.ConfirmBooking(context.Background(), flow)
	if err != nil {
		t.Fatalf("ConfirmBooking: %v", err)
	}
	if booking.DurationMinutes != 30 {
		t.Fatalf("duration = %d", booking.DurationMinutes)
	}
	if booking.Phone != "+14155550123" {
		t.Fatalf("phone = %q, want E.164", booking.Phone)
	}

	got, err := svc.GetBooking(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if got.Email != "dana@acme.example" {
		t.Fatalf("email = %q", got.Email)
	}
}

func TestConfirmBookingRequiresDetails(t *testing.T) {
	store := &fakeAvailabilityStore{}
	svc := newSlotService(t, store, slotDay)

	slot := domain.Slot{StartTime: slotDay.Add(10 * time.Hour), EndTime: slotDay.Add(10*time.Hour + 30*time.Minute)}
	flow := domain.NewFlow("flow_1", nil, slotDay)
	flow.MeetingType = domain.MeetingDiscoveryCall
	flow.SelectedSlot = &slot

	if _, err := svc.ConfirmBooking(context.Background(), flow); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("kind = %v, want validation", apperr.GetKind(err))
	}
}

func TestConfirmBookingPropagatesConflict(t *testing.T) {
	store := &fakeAvailabilityStore{createRc: apperr.Conflict("the selected slot was just taken")}
	svc := newSlotService(t, store, slotDay)

	slot := domain.Slot{StartTime: slotDay.Add(10 * time.Hour), EndTime: slotDay.Add(10*time.Hour + 30*time.Minute)}
	flow := domain.NewFlow("flow_1", nil, slotDay)
	flow.MeetingType = domain.MeetingDiscoveryCall
	flow.SelectedSlot = &slot
	flow.Details = domain.ContactDetails{Name: "Dana", Email: "dana@acme.example"}

	if _, err := svc.ConfirmBooking(context.Background(), flow); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("kind = %v, want conflict", apperr.GetKind(err))
	}
}

func TestGetBookingNotFound(t *testing.T) {
	store := &fakeAvailabilityStore{}
	svc := newSlotService(t, store, slotDay)

	if _, err := svc.GetBooking(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("kind = %v, want not found", apperr.GetKind(err))
	}
}
