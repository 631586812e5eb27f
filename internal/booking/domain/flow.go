// Package domain holds the booking flow state machine and its slot types.
package domain

import (
	"time"

	"github.com/google/uuid"

	"leadfunnel_backend/platform/apperr"
)

// MeetingType identifies a bookable meeting format with a fixed duration.
type MeetingType string

const (
	MeetingDiscoveryCall MeetingType = "discovery-call"
	MeetingConsultation  MeetingType = "technical-consultation"
	MeetingProjectScope  MeetingType = "project-scoping"
)

// meetingDurations fixes each meeting type's length in minutes.
var meetingDurations = map[MeetingType]int{
	MeetingDiscoveryCall: 30,
	MeetingConsultation:  60,
	MeetingProjectScope:  45,
}

// MeetingTypes lists the bookable formats in display order.
var MeetingTypes = []MeetingType{MeetingDiscoveryCall, MeetingConsultation, MeetingProjectScope}

// DurationMinutes returns the meeting length, or 0 for unknown types.
func (m MeetingType) DurationMinutes() int {
	return meetingDurations[m]
}

// Valid reports whether m is a known meeting type.
func (m MeetingType) Valid() bool {
	_, ok := meetingDurations[m]
	return ok
}

// Stage is the booking flow's position.
type Stage string

const (
	StageMeetingType  Stage = "meeting-type"
	StageDateTime     Stage = "date-time"
	StageConfirmation Stage = "confirmation"
	StageSuccess      Stage = "success"
)

// Slot is a bookable time window.
type Slot struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// ContactDetails is what the confirmation stage collects.
type ContactDetails struct {
	Name  string
	Email string
	Phone string
	Notes string
}

// Flow is one user's progress through the booking widget. Slot fetches are
// asynchronous; FetchSeq tags each date selection so that a response arriving
// after the user has moved on is discarded instead of overwriting newer data.
type Flow struct {
	FlowID       string
	Stage        Stage
	MeetingType  MeetingType
	SelectedDate time.Time
	Slots        []Slot
	SlotsLoading bool
	FetchSeq     uint64
	SelectedSlot *Slot
	Details      ContactDetails
	LeadID       *uuid.UUID
	BookingID    *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewFlow starts a flow at meeting-type selection, optionally pre-linked to a
// scored lead.
func NewFlow(flowID string, leadID *uuid.UUID, now time.Time) *Flow {
	return &Flow{
		FlowID:    flowID,
		Stage:     StageMeetingType,
		LeadID:    leadID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SelectMeetingType sets the format and moves to date selection. Changing the
// type later resets any date and slot choices.
func (f *Flow) SelectMeetingType(m MeetingType, now time.Time) error {
	if f.Stage == StageSuccess {
		return apperr.Conflict("booking already confirmed")
	}
	if !m.Valid() {
		return apperr.Validation("unknown meeting type")
	}

	if f.MeetingType != m {
		f.resetSchedule()
	}
	f.MeetingType = m
	f.Stage = StageDateTime
	f.UpdatedAt = now
	return nil
}

// SelectDate picks a day and invalidates any in-flight slot fetch by bumping
// the sequence. Returns the new sequence the caller must tag its fetch with.
// Weekends and past dates are rejected.
func (f *Flow) SelectDate(date time.Time, now time.Time) (uint64, error) {
	if f.Stage != StageDateTime && f.Stage != StageConfirmation {
		return 0, apperr.Conflict("select a meeting type first")
	}

	loc := date.Location()
	y, m, d := now.In(loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if date.Before(today) {
		return 0, apperr.Validation("cannot book a past date")
	}
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return 0, apperr.Validation("bookings are only available on weekdays")
	}

	f.SelectedDate = date
	f.SelectedSlot = nil
	f.Slots = nil
	f.SlotsLoading = true
	f.FetchSeq++
	f.Stage = StageDateTime
	f.UpdatedAt = now
	return f.FetchSeq, nil
}

// ApplySlots installs a fetch result. Responses tagged with a stale sequence
// are dropped: only the latest selection's slots may land.
func (f *Flow) ApplySlots(seq uint64, slots []Slot) bool {
	if seq != f.FetchSeq {
		return false
	}
	f.Slots = slots
	f.SlotsLoading = false
	return true
}

// SelectSlot picks one of the fetched slots and moves to confirmation.
func (f *Flow) SelectSlot(start time.Time, now time.Time) error {
	if f.Stage != StageDateTime {
		return apperr.Conflict("select a date first")
	}
	if f.SlotsLoading {
		return apperr.Conflict("slots are still loading")
	}

	for i := range f.Slots {
		if f.Slots[i].StartTime.Equal(start) {
			slot := f.Slots[i]
			f.SelectedSlot = &slot
			f.Stage = StageConfirmation
			f.UpdatedAt = now
			return nil
		}
	}
	return apperr.Validation("selected time is not an available slot")
}

// SetDetails records the contact fields gathered on the confirmation stage.
// Kept even when confirmation later fails, so the user never retypes them.
func (f *Flow) SetDetails(d ContactDetails, now time.Time) error {
	if f.Stage != StageConfirmation {
		return apperr.Conflict("select a slot first")
	}
	f.Details = d
	f.UpdatedAt = now
	return nil
}

// Confirm transitions to success once the booking row exists.
func (f *Flow) Confirm(bookingID uuid.UUID, now time.Time) error {
	if f.Stage != StageConfirmation {
		return apperr.Conflict("flow is not awaiting confirmation")
	}
	if f.SelectedSlot == nil {
		return apperr.Conflict("no slot selected")
	}
	f.BookingID = &bookingID
	f.Stage = StageSuccess
	f.UpdatedAt = now
	return nil
}

// Cancel abandons the flow. Confirmed flows cannot be cancelled; the booking
// already exists.
func (f *Flow) Cancel() error {
	if f.Stage == StageSuccess {
		return apperr.Conflict("booking already confirmed")
	}
	return nil
}

// Back moves one stage toward meeting-type selection. Details and selections
// for later stages are kept so going forward again is cheap.
func (f *Flow) Back(now time.Time) error {
	switch f.Stage {
	case StageSuccess:
		return apperr.Conflict("booking already confirmed")
	case StageConfirmation:
		f.Stage = StageDateTime
	case StageDateTime:
		f.Stage = StageMeetingType
	case StageMeetingType:
		// Already at the first stage.
	}
	f.UpdatedAt = now
	return nil
}

func (f *Flow) resetSchedule() {
	f.SelectedDate = time.Time{}
	f.SelectedSlot = nil
	f.Slots = nil
	f.SlotsLoading = false
	f.FetchSeq++
}
