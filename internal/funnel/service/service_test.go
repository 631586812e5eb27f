package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"leadfunnel_backend/internal/events"
	"leadfunnel_backend/internal/funnel/domain"
	"leadfunnel_backend/internal/funnel/repository"
	"leadfunnel_backend/internal/funnel/transport"
	"leadfunnel_backend/internal/scoring"
	"leadfunnel_backend/platform/apperr"
	"leadfunnel_backend/platform/logger"
	"leadfunnel_backend/platform/validator"
)

type fakeStore struct {
	mu        sync.Mutex
	sessions  map[string]domain.Session
	saveErr   error
	leadErr   error
	leadCalls int
	lastLead  domain.LeadFormData
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]domain.Session)}
}

func (f *fakeStore) UpsertSession(ctx context.Context, s *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.sessions[s.SessionID] = *s
	return nil
}

func (f *fakeStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := s
	return &copied, nil
}

func (f *fakeStore) TouchTimeSpent(ctx context.Context, sessionID string, seconds int) error {
	return nil
}

func (f *fakeStore) SaveLeadWithScore(ctx context.Context, sessionID string, data domain.LeadFormData, score scoring.LeadScore) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leadCalls++
	if f.leadErr != nil {
		return uuid.Nil, f.leadErr
	}
	f.lastLead = data
	return uuid.New(), nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(eventName string, handler events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.events))
	for _, e := range b.events {
		names = append(names, e.EventName())
	}
	return names
}

func newTestService(t *testing.T, store *fakeStore, bus events.Bus) *Service {
	t.Helper()
	log := logger.New("test")
	tracker := newTracker(time.Hour, time.Hour, 0, store.TouchTimeSpent, log)
	t.Cleanup(tracker.Stop)
	engine := scoring.NewEngine(scoring.DefaultConfig())
	return New(store, tracker, engine, validator.New(), bus, log)
}

func basicInfoBody() json.RawMessage {
	return json.RawMessage(`{
		"firstName": "Dana",
		"lastName": "Veldkamp",
		"email": "dana@acme.example",
		"phone": "+14155550123",
		"company": "Acme Logistics",
		"position": "CTO"
	}`)
}

func stepBodies() []json.RawMessage {
	return []json.RawMessage{
		basicInfoBody(),
		json.RawMessage(`{"division":"cloud-solutions","services":["cloud-migration"]}`),
		json.RawMessage(`{"companySize":"medium","industry":"logistics","location":"Rotterdam","marketType":"international"}`),
		json.RawMessage(`{"budget":"50k-100k","timeline":"1-3-months","urgency":4,"projectDescription":"Migrate our on-prem platform to the cloud."}`),
		json.RawMessage(`{"currentTech":["legacy-onprem"],"painPoints":["scaling-issues"],"painPointSeverity":{"scaling-issues":5},"previousExperience":"some"}`),
	}
}

func TestStartSessionRegistersAndPersists(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &recordingBus{})

	session, err := svc.StartSession(context.Background())
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if !strings.HasPrefix(session.SessionID, "session_") {
		t.Fatalf("session id = %q", session.SessionID)
	}
	if session.CurrentStep != 0 || session.IsCompleted {
		t.Fatalf("unexpected initial state: %+v", session)
	}

	if _, err := store.GetSession(context.Background(), session.SessionID); err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
}

func TestStartSessionSurvivesSaveFailure(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("db down")
	svc := newTestService(t, store, &recordingBus{})

	session, err := svc.StartSession(context.Background())
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	// The in-memory session stays usable even though nothing was stored.
	got, err := svc.GetSession(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.SessionID != session.SessionID {
		t.Fatalf("session id = %q", got.SessionID)
	}
}

func TestNextValidationFailureLeavesSessionUntouched(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &recordingBus{})

	session, _ := svc.StartSession(context.Background())

	_, err := svc.Next(context.Background(), session.SessionID, json.RawMessage(`{"firstName":"Dana"}`))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("kind = %v, want validation", apperr.GetKind(err))
	}

	got, _ := svc.GetSession(context.Background(), session.SessionID)
	if got.CurrentStep != 0 {
		t.Fatalf("current step = %d, want 0", got.CurrentStep)
	}
	if got.FormData.FirstName != "" {
		t.Fatal("rejected payload must not merge into the form")
	}
}

func TestNextAdvancesThroughSteps(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &recordingBus{})

	session, _ := svc.StartSession(context.Background())

	got, err := svc.Next(context.Background(), session.SessionID, basicInfoBody())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got.CurrentStep != 1 {
		t.Fatalf("current step = %d, want 1", got.CurrentStep)
	}
	if got.FormData.Email != "dana@acme.example" {
		t.Fatalf("email = %q", got.FormData.Email)
	}
}

func TestNextOnFinalStepLeavesSessionUntouched(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &recordingBus{})

	session, _ := svc.StartSession(context.Background())
	bodies := stepBodies()
	for step := 0; step < domain.TotalSteps-1; step++ {
		if _, err := svc.Next(context.Background(), session.SessionID, bodies[step]); err != nil {
			t.Fatalf("Next step %d: %v", step, err)
		}
	}

	_, err := svc.Next(context.Background(), session.SessionID, bodies[domain.TotalSteps-1])
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("kind = %v, want conflict", apperr.GetKind(err))
	}

	got, err := svc.GetSession(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.CurrentStep != domain.TotalSteps-1 {
		t.Fatalf("current step = %d, want %d", got.CurrentStep, domain.TotalSteps-1)
	}
	if len(got.FormData.PainPoints) != 0 {
		t.Fatalf("rejected payload merged into the form: painPoints = %v", got.FormData.PainPoints)
	}
}

func TestBackPreservesLaterStepData(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &recordingBus{})

	session, _ := svc.StartSession(context.Background())
	if _, err := svc.Next(context.Background(), session.SessionID, basicInfoBody()); err != nil {
		t.Fatalf("Next: %v", err)
	}

	got, err := svc.Back(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("Back: %v", err)
	}
	if got.CurrentStep != 0 {
		t.Fatalf("current step = %d, want 0", got.CurrentStep)
	}
	if got.FormData.Email != "dana@acme.example" {
		t.Fatal("back must not discard entered data")
	}
}

func TestAutosavePersistsPartialDraft(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &recordingBus{})

	session, _ := svc.StartSession(context.Background())

	company := "Acme Logistics"
	spent := 42
	got, err := svc.Autosave(context.Background(), session.SessionID, transport.AutosaveRequest{
		Company:          &company,
		TimeSpentSeconds: &spent,
	})
	if err != nil {
		t.Fatalf("Autosave: %v", err)
	}
	if got.FormData.Company != "Acme Logistics" {
		t.Fatalf("company = %q", got.FormData.Company)
	}
	if got.TimeSpent != 42 {
		t.Fatalf("time spent = %d, want 42", got.TimeSpent)
	}

	// Reported time only ever increases.
	lower := 10
	got, err = svc.Autosave(context.Background(), session.SessionID, transport.AutosaveRequest{TimeSpentSeconds: &lower})
	if err != nil {
		t.Fatalf("Autosave: %v", err)
	}
	if got.TimeSpent != 42 {
		t.Fatalf("time spent = %d, want 42 after lower report", got.TimeSpent)
	}
}

func TestAutosaveSwallowsSaveFailure(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &recordingBus{})

	session, _ := svc.StartSession(context.Background())
	store.mu.Lock()
	store.saveErr = errors.New("db down")
	store.mu.Unlock()

	company := "Acme Logistics"
	got, err := svc.Autosave(context.Background(), session.SessionID, transport.AutosaveRequest{Company: &company})
	if err != nil {
		t.Fatalf("Autosave must not surface persistence failures: %v", err)
	}
	if got.FormData.Company != "Acme Logistics" {
		t.Fatal("draft lost on save failure")
	}
}

func TestGetSessionUnknownID(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &recordingBus{})

	_, err := svc.GetSession(context.Background(), "session_missing")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("kind = %v, want not found", apperr.GetKind(err))
	}
}

func TestSubmitHappyPath(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	svc := newTestService(t, store, bus)

	session, _ := svc.StartSession(context.Background())
	for _, body := range stepBodies()[:4] {
		if _, err := svc.Next(context.Background(), session.SessionID, body); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	// Final step payload merges without advancing; apply it via autosave so
	// submit sees the full form.
	last := stepBodies()[4]
	var req transport.AutosaveRequest
	if err := json.Unmarshal(last, &req); err != nil {
		t.Fatalf("unmarshal final step: %v", err)
	}
	if _, err := svc.Autosave(context.Background(), session.SessionID, req); err != nil {
		t.Fatalf("Autosave: %v", err)
	}

	result, err := svc.Submit(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.LeadID == uuid.Nil {
		t.Fatal("missing lead id")
	}
	if result.Score.TotalScore < 0 || result.Score.TotalScore > 100 {
		t.Fatalf("total score = %d", result.Score.TotalScore)
	}

	names := bus.names()
	if len(names) != 2 || names[0] != "funnel.lead.scored" || names[1] != "funnel.session.completed" {
		t.Fatalf("published events = %v", names)
	}

	// Second submit conflicts: the stored session is completed.
	if _, err := svc.Submit(context.Background(), session.SessionID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second submit kind = %v, want conflict", apperr.GetKind(err))
	}
}

func TestSubmitBeforeFinalStep(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &recordingBus{})

	session, _ := svc.StartSession(context.Background())
	if _, err := svc.Submit(context.Background(), session.SessionID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("kind = %v, want conflict", apperr.GetKind(err))
	}
}

func TestSubmitPersistenceFailureKeepsSessionOpen(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	svc := newTestService(t, store, bus)

	session, _ := svc.StartSession(context.Background())
	for _, body := range stepBodies()[:4] {
		if _, err := svc.Next(context.Background(), session.SessionID, body); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	last := stepBodies()[4]
	var req transport.AutosaveRequest
	if err := json.Unmarshal(last, &req); err != nil {
		t.Fatalf("unmarshal final step: %v", err)
	}
	if _, err := svc.Autosave(context.Background(), session.SessionID, req); err != nil {
		t.Fatalf("Autosave: %v", err)
	}

	store.mu.Lock()
	store.leadErr = errors.New("db down")
	store.mu.Unlock()

	_, err := svc.Submit(context.Background(), session.SessionID)
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("kind = %v, want internal", apperr.GetKind(err))
	}
	if len(bus.names()) != 0 {
		t.Fatal("no events may be published for a failed submission")
	}

	got, getErr := svc.GetSession(context.Background(), session.SessionID)
	if getErr != nil {
		t.Fatalf("GetSession: %v", getErr)
	}
	if got.IsCompleted {
		t.Fatal("failed submission must not complete the session")
	}
	if !got.OnFinalStep() {
		t.Fatalf("current step = %d, want final", got.CurrentStep)
	}

	// Retry succeeds once persistence recovers.
	store.mu.Lock()
	store.leadErr = nil
	store.mu.Unlock()
	if _, err := svc.Submit(context.Background(), session.SessionID); err != nil {
		t.Fatalf("retry submit: %v", err)
	}
}

func TestSubmitNormalizesPhone(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &recordingBus{})

	session, _ := svc.StartSession(context.Background())
	body := json.RawMessage(`{
		"firstName": "Dana",
		"lastName": "Veldkamp",
		"email": "dana@acme.example",
		"phone": "(415) 555-0123",
		"company": "Acme Logistics",
		"position": "CTO"
	}`)
	if _, err := svc.Next(context.Background(), session.SessionID, body); err != nil {
		t.Fatalf("Next: %v", err)
	}
	for _, step := range stepBodies()[1:4] {
		if _, err := svc.Next(context.Background(), session.SessionID, step); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	last := stepBodies()[4]
	var req transport.AutosaveRequest
	if err := json.Unmarshal(last, &req); err != nil {
		t.Fatalf("unmarshal final step: %v", err)
	}
	if _, err := svc.Autosave(context.Background(), session.SessionID, req); err != nil {
		t.Fatalf("Autosave: %v", err)
	}

	if _, err := svc.Submit(context.Background(), session.SessionID); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	store.mu.Lock()
	saved := store.lastLead
	store.mu.Unlock()
	if saved.Phone != "+14155550123" {
		t.Fatalf("phone = %q, want E.164", saved.Phone)
	}
}
