package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"leadfunnel_backend/internal/booking/domain"
	"leadfunnel_backend/internal/booking/repository"
	"leadfunnel_backend/platform/apperr"
	"leadfunnel_backend/platform/logger"
)

// Flows older than this are forgotten; the widget restarts them cheaply.
const flowTTL = 2 * time.Hour

// FlowManager keeps active booking flows in memory. Slot fetches run on a
// goroutine per date selection; results are applied through the flow's
// sequence guard so a late response for an abandoned date is dropped.
type FlowManager struct {
	mu    sync.Mutex
	flows map[string]*domain.Flow

	svc *Service
	log *logger.Logger
}

func newFlowManager(svc *Service, log *logger.Logger) *FlowManager {
	return &FlowManager{
		flows: make(map[string]*domain.Flow),
		svc:   svc,
		log:   log,
	}
}

// Start opens a new flow, optionally linked to a scored lead.
func (m *FlowManager) Start(leadID *uuid.UUID) domain.Flow {
	now := m.svc.now()
	flow := domain.NewFlow(uuid.NewString(), leadID, now)

	m.mu.Lock()
	m.evictExpiredLocked(now)
	m.flows[flow.FlowID] = flow
	m.mu.Unlock()

	return *flow
}

// Get returns a snapshot of the flow.
func (m *FlowManager) Get(flowID string) (domain.Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	flow, ok := m.flows[flowID]
	if !ok {
		return domain.Flow{}, apperr.NotFound("booking flow not found")
	}
	return *flow, nil
}

// SelectMeetingType sets the meeting format.
func (m *FlowManager) SelectMeetingType(flowID string, meetingType domain.MeetingType) (domain.Flow, error) {
	return m.update(flowID, func(flow *domain.Flow) error {
		return flow.SelectMeetingType(meetingType, m.svc.now())
	})
}

// SelectDate picks a day and kicks off an asynchronous slot fetch tagged with
// the flow's new fetch sequence.
func (m *FlowManager) SelectDate(flowID string, day time.Time) (domain.Flow, error) {
	var seq uint64
	var meetingType domain.MeetingType

	snap, err := m.update(flowID, func(flow *domain.Flow) error {
		s, err := flow.SelectDate(day, m.svc.now())
		if err != nil {
			return err
		}
		seq = s
		meetingType = flow.MeetingType
		return nil
	})
	if err != nil {
		return snap, err
	}

	go m.fetchSlots(flowID, seq, day, meetingType)
	return snap, nil
}

func (m *FlowManager) fetchSlots(flowID string, seq uint64, day time.Time, meetingType domain.MeetingType) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slots, err := m.svc.AvailableSlots(ctx, day, meetingType)
	if err != nil {
		m.log.Error("slot_fetch_failed", "flow_id", flowID, "error", err)
		slots = []domain.Slot{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	flow, ok := m.flows[flowID]
	if !ok {
		return
	}
	if !flow.ApplySlots(seq, slots) {
		m.log.Debug("stale_slot_response_dropped", "flow_id", flowID, "seq", seq)
	}
}

// SelectSlot picks a fetched slot and advances to confirmation.
func (m *FlowManager) SelectSlot(flowID string, start time.Time) (domain.Flow, error) {
	return m.update(flowID, func(flow *domain.Flow) error {
		return flow.SelectSlot(start, m.svc.now())
	})
}

// SetDetails stores the contact fields for the confirmation stage.
func (m *FlowManager) SetDetails(flowID string, details domain.ContactDetails) (domain.Flow, error) {
	return m.update(flowID, func(flow *domain.Flow) error {
		return flow.SetDetails(details, m.svc.now())
	})
}

// Back steps the flow backward one stage.
func (m *FlowManager) Back(flowID string) (domain.Flow, error) {
	return m.update(flowID, func(flow *domain.Flow) error {
		return flow.Back(m.svc.now())
	})
}

// Confirm persists the booking and, only on success, moves the flow to its
// terminal stage. On failure the flow stays on confirmation with details and
// slot selection intact.
func (m *FlowManager) Confirm(ctx context.Context, flowID string) (domain.Flow, repository.Booking, error) {
	m.mu.Lock()
	flow, ok := m.flows[flowID]
	if !ok {
		m.mu.Unlock()
		return domain.Flow{}, repository.Booking{}, apperr.NotFound("booking flow not found")
	}
	snapshot := *flow
	m.mu.Unlock()

	if snapshot.Stage != domain.StageConfirmation {
		return snapshot, repository.Booking{}, apperr.Conflict("flow is not awaiting confirmation")
	}

	booking, err := m.svc.ConfirmBooking(ctx, &snapshot)
	if err != nil {
		return snapshot, repository.Booking{}, err
	}

	final, uerr := m.update(flowID, func(flow *domain.Flow) error {
		return flow.Confirm(booking.ID, m.svc.now())
	})
	if uerr != nil {
		// The booking row exists; the flow just could not transition
		// (e.g. a concurrent confirm). Surface the stored booking anyway.
		return final, booking, nil
	}
	return final, booking, nil
}

// Cancel abandons an open flow and frees its slot in the manager. Confirmed
// flows are kept; their booking already exists.
func (m *FlowManager) Cancel(flowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	flow, ok := m.flows[flowID]
	if !ok {
		return apperr.NotFound("booking flow not found")
	}
	if err := flow.Cancel(); err != nil {
		return err
	}
	delete(m.flows, flowID)
	return nil
}

func (m *FlowManager) update(flowID string, fn func(*domain.Flow) error) (domain.Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	flow, ok := m.flows[flowID]
	if !ok {
		return domain.Flow{}, apperr.NotFound("booking flow not found")
	}
	if err := fn(flow); err != nil {
		return *flow, err
	}
	return *flow, nil
}

func (m *FlowManager) evictExpiredLocked(now time.Time) {
	for id, flow := range m.flows {
		if now.Sub(flow.UpdatedAt) > flowTTL {
			delete(m.flows, id)
		}
	}
}
