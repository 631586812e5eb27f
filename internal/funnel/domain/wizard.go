package domain

import (
	"math"
	"time"

	"leadfunnel_backend/platform/apperr"
)

// TotalSteps is the fixed number of wizard sections.
const TotalSteps = 5

// Wizard step indexes.
const (
	StepBasicInfo = iota
	StepServices
	StepCompanyDetails
	StepProjectInfo
	StepTechnicalAssessment
)

// StepNames maps step indexes to their section labels.
var StepNames = [TotalSteps]string{
	"Basic Info",
	"Services & Division",
	"Company Details",
	"Project Information",
	"Technical Assessment",
}

// Session is a single user's in-progress form-filling attempt. The zero step
// is the initial state; Complete is a one-way transition reachable only from
// the final step.
type Session struct {
	SessionID   string
	CurrentStep int
	FormData    LeadFormData
	TimeSpent   int // seconds elapsed since mount
	IsCompleted bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSession creates a fresh session positioned on the first step.
func NewSession(sessionID string, now time.Time) *Session {
	return &Session{
		SessionID:   sessionID,
		CurrentStep: StepBasicInfo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CompletionPercentage derives progress from the current step.
// Invariant: always round((currentStep+1)/totalSteps*100).
func (s *Session) CompletionPercentage() int {
	return int(math.Round(float64(s.CurrentStep+1) / float64(TotalSteps) * 100))
}

// OnFinalStep reports whether the session sits on the last wizard section.
func (s *Session) OnFinalStep() bool {
	return s.CurrentStep == TotalSteps-1
}

// Advance moves one step forward. The caller must have validated the current
// step's field subset first; Advance itself only enforces the step range.
func (s *Session) Advance() error {
	if s.IsCompleted {
		return apperr.Conflict("session already completed")
	}
	if s.OnFinalStep() {
		return apperr.Conflict("already on the final step; submit instead")
	}
	s.CurrentStep++
	return nil
}

// Back moves one step backward, floored at the first step. It never fails and
// never validates; partial data on later steps is preserved.
func (s *Session) Back() {
	if s.CurrentStep > 0 {
		s.CurrentStep--
	}
}

// Complete marks the session submitted. Only reachable from the final step,
// and only once; the false→true transition never reverses.
func (s *Session) Complete() error {
	if s.IsCompleted {
		return apperr.Conflict("session already completed")
	}
	if !s.OnFinalStep() {
		return apperr.Conflict("submit is only available from the final step")
	}
	s.IsCompleted = true
	return nil
}
