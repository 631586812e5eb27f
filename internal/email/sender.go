// Package email renders and delivers transactional mail for the funnel.
package email

import (
	"context"

	"leadfunnel_backend/platform/config"
)

// Attachment represents a file attachment for an email.
type Attachment struct {
	Content  []byte
	FileName string
	MIMEType string
}

// Sender delivers the funnel's transactional emails. Implementations render
// the embedded HTML templates and ship them over their own channel.
type Sender interface {
	SendLeadConfirmationEmail(ctx context.Context, toEmail, firstName, division string) error
	SendSalesAlertEmail(ctx context.Context, toEmail, leadName, company, classification string, totalScore int, insights []string, leadURL string) error
	SendBookingConfirmationEmail(ctx context.Context, toEmail, name, meetingType, startTime, timezone string, attachments ...Attachment) error
	SendBookingReminderEmail(ctx context.Context, toEmail, name, meetingType, startTime string) error
}

// NewSender picks the SMTP implementation when email is enabled and falls
// back to the noop sender otherwise.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName())
}

// NoopSender satisfies Sender without delivering anything. Used when SMTP is
// not configured, typically in development.
type NoopSender struct{}

func (NoopSender) SendLeadConfirmationEmail(ctx context.Context, toEmail, firstName, division string) error {
	return nil
}

func (NoopSender) SendSalesAlertEmail(ctx context.Context, toEmail, leadName, company, classification string, totalScore int, insights []string, leadURL string) error {
	return nil
}

func (NoopSender) SendBookingConfirmationEmail(ctx context.Context, toEmail, name, meetingType, startTime, timezone string, attachments ...Attachment) error {
	return nil
}

func (NoopSender) SendBookingReminderEmail(ctx context.Context, toEmail, name, meetingType, startTime string) error {
	return nil
}
