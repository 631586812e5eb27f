package email

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface over a direct SMTP connection
// via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string, attachments ...Attachment) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	for _, att := range attachments {
		msg.AttachReader(att.FileName, bytes.NewReader(att.Content))
	}

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendLeadConfirmationEmail(ctx context.Context, toEmail, firstName, division string) error {
	content, err := renderEmailTemplate("lead_confirmation.html", leadConfirmationEmailData{
		baseEmailData: baseEmailData{
			Title:   "We received your request",
			Heading: "We received your request",
		},
		FirstName: firstName,
		Division:  division,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectLeadConfirmation, content)
}

func (s *SMTPSender) SendSalesAlertEmail(ctx context.Context, toEmail, leadName, company, classification string, totalScore int, insights []string, leadURL string) error {
	content, err := renderEmailTemplate("sales_alert.html", salesAlertEmailData{
		baseEmailData: baseEmailData{
			Title:    "New lead scored",
			Heading:  "New lead scored",
			CTALabel: "Open lead",
			CTAURL:   leadURL,
		},
		LeadName:       leadName,
		Company:        company,
		Classification: classification,
		TotalScore:     totalScore,
		Insights:       insights,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectSalesAlertFmt, classification, leadName, totalScore), content)
}

func (s *SMTPSender) SendBookingConfirmationEmail(ctx context.Context, toEmail, name, meetingType, startTime, timezone string, attachments ...Attachment) error {
	content, err := renderEmailTemplate("booking_confirmation.html", bookingConfirmationEmailData{
		baseEmailData: baseEmailData{
			Title:   "Your meeting is booked",
			Heading: "Your meeting is booked",
		},
		Name:        name,
		MeetingType: meetingType,
		StartTime:   startTime,
		Timezone:    timezone,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectBookingConfirmation, content, attachments...)
}

func (s *SMTPSender) SendBookingReminderEmail(ctx context.Context, toEmail, name, meetingType, startTime string) error {
	content, err := renderEmailTemplate("booking_reminder.html", bookingReminderEmailData{
		baseEmailData: baseEmailData{
			Title:   "Meeting reminder",
			Heading: "Meeting reminder",
		},
		Name:        name,
		MeetingType: meetingType,
		StartTime:   startTime,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectBookingReminderFmt, meetingType), content)
}
