// Package service orchestrates the multi-step wizard: session lifecycle, step
// navigation, autosave, and the final submit-and-score transition.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"leadfunnel_backend/internal/events"
	"leadfunnel_backend/internal/funnel/domain"
	"leadfunnel_backend/internal/funnel/repository"
	"leadfunnel_backend/internal/funnel/transport"
	"leadfunnel_backend/internal/scoring"
	"leadfunnel_backend/platform/apperr"
	"leadfunnel_backend/platform/logger"
	"leadfunnel_backend/platform/phone"
	"leadfunnel_backend/platform/validator"
)

// SessionStore is the persistence surface the service needs.
type SessionStore interface {
	UpsertSession(ctx context.Context, s *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	TouchTimeSpent(ctx context.Context, sessionID string, seconds int) error
	SaveLeadWithScore(ctx context.Context, sessionID string, data domain.LeadFormData, score scoring.LeadScore) (uuid.UUID, error)
}

// SubmitResult bundles everything produced by a successful final submission.
type SubmitResult struct {
	LeadID   uuid.UUID
	Score    scoring.LeadScore
	Insights []string
}

type Service struct {
	store    SessionStore
	tracker  *Tracker
	engine   *scoring.Engine
	val      *validator.Validator
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func New(store SessionStore, tracker *Tracker, engine *scoring.Engine, val *validator.Validator, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		tracker:  tracker,
		engine:   engine,
		val:      val,
		eventBus: eventBus,
		log:      log,
		now:      time.Now,
	}
}

// StartSession creates a fresh wizard session, registers its timers, and
// persists the initial snapshot. A persistence failure is logged but does not
// block the wizard: the in-memory session remains authoritative until the
// next successful save.
func (s *Service) StartSession(ctx context.Context) (domain.Session, error) {
	now := s.now().UTC()
	sessionID := fmt.Sprintf("session_%d_%s", now.UnixMilli(), uuid.NewString()[:8])

	session := domain.NewSession(sessionID, now)
	s.tracker.Register(session)
	s.persist(ctx, session)

	return *session, nil
}

// GetSession returns the live session if tracked, falling back to the stored
// snapshot. Incomplete snapshots are re-registered so their timers resume.
func (s *Service) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	if snap, ok := s.tracker.Snapshot(sessionID); ok {
		return snap, nil
	}

	stored, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, mapStoreError(err)
	}
	if !stored.IsCompleted {
		s.tracker.Register(stored)
	}
	return *stored, nil
}

// Next validates the current step's payload, merges it into the form, and
// advances one step. Validation failures leave the session untouched.
func (s *Service) Next(ctx context.Context, sessionID string, raw json.RawMessage) (domain.Session, error) {
	return s.update(ctx, sessionID, func(session *domain.Session) error {
		if session.IsCompleted {
			return apperr.Conflict("session already completed")
		}

		// Refuse before merging: a rejected transition must not absorb
		// the payload.
		if session.OnFinalStep() {
			return apperr.Conflict("already on the final step; submit instead")
		}

		payload, err := transport.DecodeStep(s.val, session.CurrentStep, raw)
		if err != nil {
			return err
		}

		payload.Apply(&session.FormData)
		if err := session.Advance(); err != nil {
			return err
		}
		session.UpdatedAt = s.now().UTC()
		return nil
	})
}

// Back moves one step backward without validating anything. Data entered on
// later steps is preserved.
func (s *Service) Back(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.update(ctx, sessionID, func(session *domain.Session) error {
		if session.IsCompleted {
			return apperr.Conflict("session already completed")
		}
		session.Back()
		session.UpdatedAt = s.now().UTC()
		return nil
	})
}

// Autosave merges a partial form snapshot without validation and persists it
// best-effort. Drafts keep whatever the user typed, valid or not.
func (s *Service) Autosave(ctx context.Context, sessionID string, req transport.AutosaveRequest) (domain.Session, error) {
	return s.update(ctx, sessionID, func(session *domain.Session) error {
		if session.IsCompleted {
			return apperr.Conflict("session already completed")
		}
		if seconds := req.Apply(&session.FormData); seconds != nil && *seconds > session.TimeSpent {
			session.TimeSpent = *seconds
		}
		session.UpdatedAt = s.now().UTC()
		return nil
	})
}

// Submit runs the full validation gate, scores the lead, and persists lead
// and score atomically. Any failure leaves the session on the final step so
// the user can correct and retry; only a fully persisted submission flips the
// session to completed.
func (s *Service) Submit(ctx context.Context, sessionID string) (SubmitResult, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return SubmitResult{}, err
	}
	if session.IsCompleted {
		return SubmitResult{}, apperr.Conflict("session already completed")
	}
	if !session.OnFinalStep() {
		return SubmitResult{}, apperr.Conflict("submit is only available from the final step")
	}

	data := session.FormData
	data.Phone = phone.NormalizeE164(data.Phone)
	if err := data.ValidateComplete(); err != nil {
		return SubmitResult{}, err
	}

	score := s.engine.Score(data, scoring.SessionMeta{TimeSpentSeconds: session.TimeSpent})
	insights := scoring.Insights(score)

	leadID, err := s.store.SaveLeadWithScore(ctx, sessionID, data, score)
	if err != nil {
		s.log.DatabaseError("save_lead_with_score", err)
		return SubmitResult{}, apperr.Wrap(apperr.KindInternal, "could not persist submission", err)
	}

	completed, tracked, err := s.tracker.Update(sessionID, func(session *domain.Session) error {
		session.FormData = data
		if err := session.Complete(); err != nil {
			return err
		}
		session.UpdatedAt = s.now().UTC()
		return nil
	})
	if tracked && err == nil {
		s.persist(ctx, &completed)
		s.tracker.Release(sessionID)
	}

	s.log.LeadScored(leadID.String(), string(score.Classification), score.TotalScore)

	s.eventBus.Publish(ctx, events.LeadScored{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         leadID,
		Email:          data.Email,
		FirstName:      data.FirstName,
		Company:        data.Company,
		Division:       string(data.Division),
		TotalScore:     score.TotalScore,
		Classification: string(score.Classification),
		Insights:       insights,
	})
	s.eventBus.Publish(ctx, events.SessionCompleted{
		BaseEvent: events.NewBaseEvent(),
		SessionID: sessionID,
		LeadID:    leadID,
		TimeSpent: session.TimeSpent,
	})

	return SubmitResult{LeadID: leadID, Score: score, Insights: insights}, nil
}

// Stop releases all live session timers. Called on shutdown.
func (s *Service) Stop() {
	s.tracker.Stop()
}

// load returns a snapshot of the session, pulling it into the tracker first
// if only the stored copy exists.
func (s *Service) load(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.GetSession(ctx, sessionID)
}

// update applies a mutation to the live session and persists the result
// best-effort. Mutation errors propagate; persistence errors do not.
func (s *Service) update(ctx context.Context, sessionID string, fn func(*domain.Session) error) (domain.Session, error) {
	if _, err := s.load(ctx, sessionID); err != nil {
		return domain.Session{}, err
	}

	snap, tracked, err := s.tracker.Update(sessionID, fn)
	if !tracked {
		return domain.Session{}, apperr.Conflict("session is no longer active")
	}
	if err != nil {
		return domain.Session{}, err
	}

	s.persist(ctx, &snap)
	return snap, nil
}

// persist writes the snapshot, logging and swallowing failures: a broken
// database must not break the wizard mid-flow.
func (s *Service) persist(ctx context.Context, session *domain.Session) {
	if err := s.store.UpsertSession(ctx, session); err != nil {
		s.log.SessionSaveFailed(session.SessionID, err)
	}
}

func mapStoreError(err error) error {
	if err == repository.ErrNotFound {
		return apperr.NotFound("session not found")
	}
	return apperr.Wrap(apperr.KindInternal, "could not load session", err)
}
