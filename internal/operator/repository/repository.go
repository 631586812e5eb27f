// Package repository provides read models for the operator back office.
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
)

var ErrNotFound = errors.New("lead not found")

// LeadSummary is the list-view shape: contact basics plus the score headline.
type LeadSummary struct {
	ID             uuid.UUID
	FirstName      string
	LastName       string
	Email          string
	Company        string
	Division       string
	TotalScore     int
	Classification string
	CreatedAt      time.Time
}

// LeadDetail is the full submission with its complete score breakdown.
type LeadDetail struct {
	ID                 uuid.UUID
	SessionID          *string
	FirstName          string
	LastName           string
	Email              string
	Phone              string
	Company            string
	Position           string
	Division           string
	Services           []string
	CompanySize        string
	Industry           string
	Location           string
	MarketType         string
	Budget             string
	Timeline           string
	Urgency            int
	ProjectDescription string
	CurrentTech        []string
	PainPoints         []string
	PainPointSeverity  map[string]int
	ExpectedOutcomes   []string
	PreviousExperience string
	CreatedAt          time.Time

	TotalScore             int
	Classification         string
	Confidence             int
	CompanyScore           int
	BudgetScore            int
	TimelineScore          int
	PainPointScore         int
	TechCompatibilityScore int
	EngagementScore        int
	ScoreVersion           string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListLeads returns scored leads newest first, optionally filtered by
// classification.
func (r *Repository) ListLeads(ctx context.Context, classification string, limit, offset int) ([]LeadSummary, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT l.id, l.first_name, l.last_name, l.email, l.company, l.division,
			s.total_score, s.classification, l.created_at
		FROM leads l
		JOIN lead_scores s ON s.lead_id = l.id`
	args := []any{}
	if classification != "" {
		query += ` WHERE s.classification = $1`
		args = append(args, classification)
	}
	query += fmt.Sprintf(` ORDER BY l.created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]LeadSummary, 0, limit)
	for rows.Next() {
		var l LeadSummary
		if err := rows.Scan(&l.ID, &l.FirstName, &l.LastName, &l.Email, &l.Company, &l.Division,
			&l.TotalScore, &l.Classification, &l.CreatedAt); err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// GetLead loads the full submission and score breakdown.
func (r *Repository) GetLead(ctx context.Context, id uuid.UUID) (LeadDetail, error) {
	var (
		d        LeadDetail
		severity []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT l.id, l.session_id, l.first_name, l.last_name, l.email, l.phone, l.company, l.position,
			l.division, l.services, l.company_size, l.industry, l.location, l.market_type,
			l.budget, l.timeline, l.urgency, l.project_description,
			l.current_tech, l.pain_points, l.pain_point_severity, l.expected_outcomes, l.previous_experience,
			l.created_at,
			s.total_score, s.classification, s.confidence,
			s.company_score, s.budget_score, s.timeline_score, s.pain_point_score, s.tech_score, s.engagement_score,
			s.version
		FROM leads l
		JOIN lead_scores s ON s.lead_id = l.id
		WHERE l.id = $1
	`, id).Scan(&d.ID, &d.SessionID, &d.FirstName, &d.LastName, &d.Email, &d.Phone, &d.Company, &d.Position,
		&d.Division, &d.Services, &d.CompanySize, &d.Industry, &d.Location, &d.MarketType,
		&d.Budget, &d.Timeline, &d.Urgency, &d.ProjectDescription,
		&d.CurrentTech, &d.PainPoints, &severity, &d.ExpectedOutcomes, &d.PreviousExperience,
		&d.CreatedAt,
		&d.TotalScore, &d.Classification, &d.Confidence,
		&d.CompanyScore, &d.BudgetScore, &d.TimelineScore, &d.PainPointScore, &d.TechCompatibilityScore, &d.EngagementScore,
		&d.ScoreVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeadDetail{}, ErrNotFound
	}
	if err != nil {
		return LeadDetail{}, fmt.Errorf("get lead: %w", err)
	}

	if err := json.Unmarshal(severity, &d.PainPointSeverity); err != nil {
		return LeadDetail{}, fmt.Errorf("unmarshal severity: %w", err)
	}
	return d, nil
}

// ExportLeads returns every scored lead for CSV export, newest first.
func (r *Repository) ExportLeads(ctx context.Context) ([]LeadSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.first_name, l.last_name, l.email, l.company, l.division,
			s.total_score, s.classification, l.created_at
		FROM leads l
		JOIN lead_scores s ON s.lead_id = l.id
		ORDER BY l.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("export leads: %w", err)
	}
	defer rows.Close()

	leads := make([]LeadSummary, 0)
	for rows.Next() {
		var l LeadSummary
		if err := rows.Scan(&l.ID, &l.FirstName, &l.LastName, &l.Email, &l.Company, &l.Division,
			&l.TotalScore, &l.Classification, &l.CreatedAt); err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}
