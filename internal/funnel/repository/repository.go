// Package repository persists funnel sessions and scored leads in Postgres.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadfunnel_backend/internal/funnel/domain"
	"leadfunnel_backend/internal/scoring"
)

var ErrNotFound = errors.New("session not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertSession writes the full session snapshot keyed by session ID. Repeated
// saves for the same ID overwrite the previous snapshot.
func (r *Repository) UpsertSession(ctx context.Context, s *domain.Session) error {
	formData, err := json.Marshal(s.FormData)
	if err != nil {
		return fmt.Errorf("marshal form data: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO funnel_sessions (session_id, current_step, total_steps, form_data, completion_percentage, time_spent_seconds, is_completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id) DO UPDATE SET
			current_step          = EXCLUDED.current_step,
			form_data             = EXCLUDED.form_data,
			completion_percentage = EXCLUDED.completion_percentage,
			time_spent_seconds    = EXCLUDED.time_spent_seconds,
			is_completed          = EXCLUDED.is_completed,
			updated_at            = EXCLUDED.updated_at
	`, s.SessionID, s.CurrentStep, domain.TotalSteps, formData, s.CompletionPercentage(), s.TimeSpent, s.IsCompleted, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// GetSession loads a session snapshot by ID.
func (r *Repository) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var (
		s        domain.Session
		formData []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT session_id, current_step, form_data, time_spent_seconds, is_completed, created_at, updated_at
		FROM funnel_sessions
		WHERE session_id = $1
	`, sessionID).Scan(&s.SessionID, &s.CurrentStep, &formData, &s.TimeSpent, &s.IsCompleted, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if err := json.Unmarshal(formData, &s.FormData); err != nil {
		return nil, fmt.Errorf("unmarshal form data: %w", err)
	}
	return &s, nil
}

// TouchTimeSpent bumps only the dwell-time counter without rewriting the form
// snapshot. Used by the background tracker flush.
func (r *Repository) TouchTimeSpent(ctx context.Context, sessionID string, seconds int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE funnel_sessions
		SET time_spent_seconds = $2, updated_at = now()
		WHERE session_id = $1 AND NOT is_completed
	`, sessionID, seconds)
	if err != nil {
		return fmt.Errorf("touch time spent: %w", err)
	}
	return nil
}

// SaveLeadWithScore inserts the lead record and its score atomically. Either
// both rows land or neither does.
func (r *Repository) SaveLeadWithScore(ctx context.Context, sessionID string, data domain.LeadFormData, score scoring.LeadScore) (uuid.UUID, error) {
	severity, err := json.Marshal(nonNilSeverity(data.PainPointSeverity))
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal severity: %w", err)
	}
	factors, err := json.Marshal(score.Factors)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal factors: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin lead tx: %w", err)
	}
	defer tx.Rollback(ctx)

	leadID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO leads (id, session_id, first_name, last_name, email, phone, company, position,
			division, services, company_size, industry, location, market_type,
			budget, timeline, urgency, project_description,
			current_tech, pain_points, pain_point_severity, expected_outcomes, previous_experience)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`, leadID, sessionID, data.FirstName, data.LastName, data.Email, data.Phone, data.Company, data.Position,
		string(data.Division), nonNilSlice(data.Services), string(data.CompanySize), data.Industry, data.Location, string(data.MarketType),
		string(data.Budget), string(data.Timeline), data.Urgency, data.ProjectDescription,
		nonNilSlice(data.CurrentTech), nonNilSlice(data.PainPoints), severity, nonNilSlice(data.ExpectedOutcomes), string(data.PreviousExperience))
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert lead: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO lead_scores (id, lead_id, total_score, classification, confidence,
			company_score, budget_score, timeline_score, pain_point_score, tech_score, engagement_score,
			factors, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, uuid.New(), leadID, score.TotalScore, string(score.Classification), score.Confidence,
		score.CompanyScore, score.BudgetScore, score.TimelineScore, score.PainPointScore, score.TechCompatibilityScore, score.EngagementScore,
		factors, score.Version)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert lead score: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit lead tx: %w", err)
	}
	return leadID, nil
}

// DeleteIdleSessions removes incomplete sessions not touched since the cutoff.
func (r *Repository) DeleteIdleSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM funnel_sessions
		WHERE NOT is_completed AND updated_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete idle sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilSeverity(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
