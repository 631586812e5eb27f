package domain

import (
	"testing"
	"time"

	"leadfunnel_backend/platform/apperr"
)

func TestNewSessionStartsAtFirstStep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession("session_1", now)

	if s.CurrentStep != StepBasicInfo {
		t.Fatalf("current step = %d, want %d", s.CurrentStep, StepBasicInfo)
	}
	if s.IsCompleted {
		t.Fatal("new session must not be completed")
	}
	if !s.CreatedAt.Equal(now) || !s.UpdatedAt.Equal(now) {
		t.Fatal("timestamps not initialized")
	}
}

func TestCompletionPercentagePerStep(t *testing.T) {
	want := [TotalSteps]int{20, 40, 60, 80, 100}

	s := NewSession("session_1", time.Now())
	for step := 0; step < TotalSteps; step++ {
		s.CurrentStep = step
		if got := s.CompletionPercentage(); got != want[step] {
			t.Errorf("step %d: completion = %d, want %d", step, got, want[step])
		}
	}
}

func TestAdvanceWalksToFinalStep(t *testing.T) {
	s := NewSession("session_1", time.Now())

	for step := 0; step < TotalSteps-1; step++ {
		if err := s.Advance(); err != nil {
			t.Fatalf("advance from step %d: %v", step, err)
		}
	}
	if !s.OnFinalStep() {
		t.Fatalf("current step = %d, want final", s.CurrentStep)
	}

	err := s.Advance()
	if err == nil {
		t.Fatal("expected error advancing past the final step")
	}
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("kind = %v, want conflict", apperr.GetKind(err))
	}
	if s.CurrentStep != TotalSteps-1 {
		t.Fatalf("failed advance moved the step to %d", s.CurrentStep)
	}
}

func TestBackFloorsAtFirstStep(t *testing.T) {
	s := NewSession("session_1", time.Now())
	s.CurrentStep = 2

	s.Back()
	s.Back()
	if s.CurrentStep != 0 {
		t.Fatalf("current step = %d, want 0", s.CurrentStep)
	}

	s.Back()
	if s.CurrentStep != 0 {
		t.Fatal("back from the first step must be a no-op")
	}
}

func TestCompleteOnlyFromFinalStep(t *testing.T) {
	s := NewSession("session_1", time.Now())

	if err := s.Complete(); err == nil {
		t.Fatal("expected error completing from the first step")
	}

	s.CurrentStep = TotalSteps - 1
	if err := s.Complete(); err != nil {
		t.Fatalf("complete from final step: %v", err)
	}
	if !s.IsCompleted {
		t.Fatal("session not marked completed")
	}
}

func TestCompletedSessionIsFrozen(t *testing.T) {
	s := NewSession("session_1", time.Now())
	s.CurrentStep = TotalSteps - 1
	if err := s.Complete(); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if err := s.Advance(); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("advance on completed session: kind = %v, want conflict", apperr.GetKind(err))
	}
	if err := s.Complete(); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second complete: kind = %v, want conflict", apperr.GetKind(err))
	}
	if !s.IsCompleted {
		t.Fatal("completion must never reverse")
	}
}
