package service

import (
	"context"
	"testing"
	"time"

	"leadfunnel_backend/internal/booking/domain"
	"leadfunnel_backend/platform/apperr"
)

func awaitSlots(t *testing.T, m *FlowManager, flowID string) domain.Flow {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		flow, err := m.Get(flowID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !flow.SlotsLoading {
			return flow
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("slots never finished loading")
	return domain.Flow{}
}

func TestFlowManagerEndToEnd(t *testing.T) {
	store := &fakeAvailabilityStore{}
	svc := newSlotService(t, store, slotDay)
	flows := svc.Flows()

	flow := flows.Start(nil)
	if flow.Stage != domain.StageMeetingType {
		t.Fatalf("stage = %s", flow.Stage)
	}

	if _, err := flows.SelectMeetingType(flow.FlowID, domain.MeetingDiscoveryCall); err != nil {
		t.Fatalf("SelectMeetingType: %v", err)
	}

	if _, err := flows.SelectDate(flow.FlowID, slotDay); err != nil {
		t.Fatalf("SelectDate: %v", err)
	}

	loaded := awaitSlots(t, flows, flow.FlowID)
	if len(loaded.Slots) == 0 {
		t.Fatal("no slots loaded")
	}

	if _, err := flows.SelectSlot(flow.FlowID, loaded.Slots[0].StartTime); err != nil {
		t.Fatalf("SelectSlot: %v", err)
	}
	if _, err := flows.SetDetails(flow.FlowID, domain.ContactDetails{Name: "Dana", Email: "dana@acme.example"}); err != nil {
		t.Fatalf("SetDetails: %v", err)
	}

	final, booking, err := flows.Confirm(context.Background(), flow.FlowID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if final.Stage != domain.StageSuccess {
		t.Fatalf("stage = %s, want success", final.Stage)
	}
	if booking.MeetingType != string(domain.MeetingDiscoveryCall) {
		t.Fatalf("meeting type = %q", booking.MeetingType)
	}
	if len(store.created) != 1 {
		t.Fatalf("created bookings = %d", len(store.created))
	}
}

func TestFlowManagerReselectDateDropsStaleFetch(t *testing.T) {
	store := &fakeAvailabilityStore{}
	svc := newSlotService(t, store, slotDay)
	flows := svc.Flows()

	flow := flows.Start(nil)
	if _, err := flows.SelectMeetingType(flow.FlowID, domain.MeetingDiscoveryCall); err != nil {
		t.Fatalf("SelectMeetingType: %v", err)
	}

	// Two quick reselections; only the last day's slots may land.
	if _, err := flows.SelectDate(flow.FlowID, slotDay); err != nil {
		t.Fatalf("first SelectDate: %v", err)
	}
	nextDay := slotDay.AddDate(0, 0, 1)
	if _, err := flows.SelectDate(flow.FlowID, nextDay); err != nil {
		t.Fatalf("second SelectDate: %v", err)
	}

	loaded := awaitSlots(t, flows, flow.FlowID)
	for _, s := range loaded.Slots {
		if s.StartTime.Day() != nextDay.Day() {
			t.Fatalf("slot %v belongs to an abandoned date", s.StartTime)
		}
	}
}

func TestFlowManagerConfirmFailureKeepsFlowOpen(t *testing.T) {
	store := &fakeAvailabilityStore{}
	svc := newSlotService(t, store, slotDay)
	flows := svc.Flows()

	flow := flows.Start(nil)
	if _, err := flows.SelectMeetingType(flow.FlowID, domain.MeetingDiscoveryCall); err != nil {
		t.Fatalf("SelectMeetingType: %v", err)
	}
	if _, err := flows.SelectDate(flow.FlowID, slotDay); err != nil {
		t.Fatalf("SelectDate: %v", err)
	}
	loaded := awaitSlots(t, flows, flow.FlowID)
	if _, err := flows.SelectSlot(flow.FlowID, loaded.Slots[0].StartTime); err != nil {
		t.Fatalf("SelectSlot: %v", err)
	}
	if _, err := flows.SetDetails(flow.FlowID, domain.ContactDetails{Name: "Dana", Email: "dana@acme.example", Notes: "keep me"}); err != nil {
		t.Fatalf("SetDetails: %v", err)
	}

	store.mu.Lock()
	store.createRc = apperr.Conflict("the selected slot was just taken")
	store.mu.Unlock()

	_, _, err := flows.Confirm(context.Background(), flow.FlowID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("kind = %v, want conflict", apperr.GetKind(err))
	}

	after, err := flows.Get(flow.FlowID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if after.Stage != domain.StageConfirmation {
		t.Fatalf("stage = %s, want confirmation", after.Stage)
	}
	if after.Details.Notes != "keep me" {
		t.Fatal("details lost on failed confirmation")
	}

	// Retry once the slot conflict clears.
	store.mu.Lock()
	store.createRc = nil
	store.mu.Unlock()
	final, _, err := flows.Confirm(context.Background(), flow.FlowID)
	if err != nil {
		t.Fatalf("retry Confirm: %v", err)
	}
	if final.Stage != domain.StageSuccess {
		t.Fatalf("stage = %s, want success", final.Stage)
	}
}

func TestFlowManagerCancel(t *testing.T) {
	store := &fakeAvailabilityStore{}
	svc := newSlotService(t, store, slotDay)
	flows := svc.Flows()

	flow := flows.Start(nil)
	if err := flows.Cancel(flow.FlowID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := flows.Get(flow.FlowID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("kind = %v, want not found after cancel", apperr.GetKind(err))
	}
	if err := flows.Cancel(flow.FlowID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("kind = %v, want not found on double cancel", apperr.GetKind(err))
	}
}

func TestFlowManagerCancelRejectsConfirmed(t *testing.T) {
	store := &fakeAvailabilityStore{}
	svc := newSlotService(t, store, slotDay)
	flows := svc.Flows()

	flow := flows.Start(nil)
	if _, err := flows.SelectMeetingType(flow.FlowID, domain.MeetingDiscoveryCall); err != nil {
		t.Fatalf("SelectMeetingType: %v", err)
	}
	if _, err := flows.SelectDate(flow.FlowID, slotDay); err != nil {
		t.Fatalf("SelectDate: %v", err)
	}
	loaded := awaitSlots(t, flows, flow.FlowID)
	if _, err := flows.SelectSlot(flow.FlowID, loaded.Slots[0].StartTime); err != nil {
		t.Fatalf("SelectSlot: %v", err)
	}
	if _, err := flows.SetDetails(flow.FlowID, domain.ContactDetails{Name: "Dana", Email: "dana@acme.example"}); err != nil {
		t.Fatalf("SetDetails: %v", err)
	}
	if _, _, err := flows.Confirm(context.Background(), flow.FlowID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if err := flows.Cancel(flow.FlowID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("kind = %v, want conflict cancelling a confirmed flow", apperr.GetKind(err))
	}
}

func TestFlowManagerUnknownFlow(t *testing.T) {
	store := &fakeAvailabilityStore{}
	svc := newSlotService(t, store, slotDay)

	if _, err := svc.Flows().Get("missing"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("kind = %v, want not found", apperr.GetKind(err))
	}
}
