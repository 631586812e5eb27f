// Package service implements operator authentication and back-office reads.
package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	bookingrepo "leadfunnel_backend/internal/booking/repository"
	"leadfunnel_backend/internal/operator/repository"
	"leadfunnel_backend/platform/apperr"
	"leadfunnel_backend/platform/config"
)

// BookingReader is the slice of booking persistence the back office needs.
type BookingReader interface {
	ListBookingsBetween(ctx context.Context, from, to time.Time) ([]bookingrepo.Booking, error)
}

type Service struct {
	repo     *repository.Repository
	bookings BookingReader
	cfg      config.OperatorConfig
	now      func() time.Time
}

func New(repo *repository.Repository, bookings BookingReader, cfg config.OperatorConfig) *Service {
	return &Service{
		repo:     repo,
		bookings: bookings,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Login verifies the operator credentials and issues a signed token. A single
// operator account is configured through the environment.
func (s *Service) Login(email, password string) (string, error) {
	if email == "" || password == "" {
		return "", apperr.Unauthorized("invalid credentials")
	}
	if email != s.cfg.GetOperatorEmail() {
		return "", apperr.Unauthorized("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.GetOperatorPasswordHash()), []byte(password)); err != nil {
		return "", apperr.Unauthorized("invalid credentials")
	}

	ttl := s.cfg.GetOperatorTokenTTL()
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  email,
		"type": "operator",
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	})

	signed, err := token.SignedString([]byte(s.cfg.GetJWTSecret()))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "could not sign token", err)
	}
	return signed, nil
}

// ListLeads returns scored leads for the list view.
func (s *Service) ListLeads(ctx context.Context, classification string, limit, offset int) ([]repository.LeadSummary, error) {
	leads, err := s.repo.ListLeads(ctx, classification, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not list leads", err)
	}
	return leads, nil
}

// GetLead returns the full submission and score breakdown.
func (s *Service) GetLead(ctx context.Context, id uuid.UUID) (repository.LeadDetail, error) {
	lead, err := s.repo.GetLead(ctx, id)
	if err == repository.ErrNotFound {
		return repository.LeadDetail{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.LeadDetail{}, apperr.Wrap(apperr.KindInternal, "could not load lead", err)
	}
	return lead, nil
}

// ListBookings returns bookings inside the window, defaulting to the coming
// month.
func (s *Service) ListBookings(ctx context.Context, from, to time.Time) ([]bookingrepo.Booking, error) {
	if from.IsZero() {
		from = s.now()
	}
	if to.IsZero() {
		to = from.AddDate(0, 1, 0)
	}

	bookings, err := s.bookings.ListBookingsBetween(ctx, from, to)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not list bookings", err)
	}
	return bookings, nil
}

// ExportLeadsCSV renders every scored lead as a CSV document.
func (s *Service) ExportLeadsCSV(ctx context.Context) ([]byte, error) {
	leads, err := s.repo.ExportLeads(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not export leads", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"id", "firstName", "lastName", "email", "company", "division", "totalScore", "classification", "createdAt"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, l := range leads {
		record := []string{
			l.ID.String(),
			l.FirstName,
			l.LastName,
			l.Email,
			l.Company,
			l.Division,
			strconv.Itoa(l.TotalScore),
			l.Classification,
			l.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
