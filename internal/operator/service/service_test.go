package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	bookingrepo "leadfunnel_backend/internal/booking/repository"
	"leadfunnel_backend/platform/apperr"
)

type stubOperatorConfig struct {
	secret       string
	email        string
	passwordHash string
	ttl          time.Duration
}

func (c stubOperatorConfig) GetJWTSecret() string               { return c.secret }
func (c stubOperatorConfig) GetOperatorEmail() string           { return c.email }
func (c stubOperatorConfig) GetOperatorPasswordHash() string    { return c.passwordHash }
func (c stubOperatorConfig) GetOperatorTokenTTL() time.Duration { return c.ttl }

type stubBookingReader struct {
	from, to time.Time
}

func (r *stubBookingReader) ListBookingsBetween(ctx context.Context, from, to time.Time) ([]bookingrepo.Booking, error) {
	r.from = from
	r.to = to
	return []bookingrepo.Booking{}, nil
}

func operatorConfig(t *testing.T, password string) stubOperatorConfig {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return stubOperatorConfig{
		secret:       "test-secret",
		email:        "ops@leadfunnel.example",
		passwordHash: string(hash),
		ttl:          time.Hour,
	}
}

func TestLoginIssuesOperatorToken(t *testing.T) {
	cfg := operatorConfig(t, "correct horse battery")
	svc := New(nil, &stubBookingReader{}, cfg)

	signed, err := svc.Login("ops@leadfunnel.example", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	parsed, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.secret), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token does not parse: %v", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("unexpected claims type")
	}
	if claims["type"] != "operator" {
		t.Fatalf("type claim = %v", claims["type"])
	}
	if claims["sub"] != "ops@leadfunnel.example" {
		t.Fatalf("sub claim = %v", claims["sub"])
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		t.Fatalf("exp claim: %v", err)
	}
	if until := time.Until(exp.Time); until < 55*time.Minute || until > 65*time.Minute {
		t.Fatalf("token lifetime = %v, want about an hour", until)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	cfg := operatorConfig(t, "correct horse battery")
	svc := New(nil, &stubBookingReader{}, cfg)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "ops@leadfunnel.example", "wrong"},
		{"wrong email", "intruder@leadfunnel.example", "correct horse battery"},
		{"empty password", "ops@leadfunnel.example", ""},
		{"empty email", "", "correct horse battery"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(tt.email, tt.password)
			if !apperr.Is(err, apperr.KindUnauthorized) {
				t.Fatalf("kind = %v, want unauthorized", apperr.GetKind(err))
			}
		})
	}
}

func TestListBookingsDefaultsToComingMonth(t *testing.T) {
	reader := &stubBookingReader{}
	svc := New(nil, reader, operatorConfig(t, "pw-not-used"))
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	if _, err := svc.ListBookings(context.Background(), time.Time{}, time.Time{}); err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if !reader.from.Equal(now) {
		t.Fatalf("from = %v, want %v", reader.from, now)
	}
	if !reader.to.Equal(now.AddDate(0, 1, 0)) {
		t.Fatalf("to = %v", reader.to)
	}

	explicitFrom := now.AddDate(0, 0, 7)
	explicitTo := now.AddDate(0, 0, 14)
	if _, err := svc.ListBookings(context.Background(), explicitFrom, explicitTo); err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if !reader.from.Equal(explicitFrom) || !reader.to.Equal(explicitTo) {
		t.Fatal("explicit window not honored")
	}
}
