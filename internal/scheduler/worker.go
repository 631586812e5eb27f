package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadfunnel_backend/internal/booking/calendar"
	bookingrepo "leadfunnel_backend/internal/booking/repository"
	"leadfunnel_backend/internal/email"
	funnelrepo "leadfunnel_backend/internal/funnel/repository"
	"leadfunnel_backend/internal/notification"
	"leadfunnel_backend/internal/notification/outbox"
	"leadfunnel_backend/platform/config"
	"leadfunnel_backend/platform/logger"
)

// After this many delivery attempts a record is parked as failed instead of
// being retried.
const maxDeliveryAttempts = 5

type Worker struct {
	server         *asynq.Server
	mux            *asynq.ServeMux
	outbox         *outbox.Repository
	sessions       *funnelrepo.Repository
	bookings       *bookingrepo.Repository
	sender         email.Sender
	appBaseURL     string
	organizerName  string
	organizerEmail string
	idleTTL        time.Duration
	log            *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, funnelCfg config.FunnelConfig, notifCfg config.NotificationConfig, emailCfg config.EmailConfig, pool *pgxpool.Pool, sender email.Sender, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:         server,
		mux:            mux,
		outbox:         outbox.New(pool),
		sessions:       funnelrepo.New(pool),
		bookings:       bookingrepo.New(pool),
		sender:         sender,
		appBaseURL:     notifCfg.GetAppBaseURL(),
		organizerName:  emailCfg.GetEmailFromName(),
		organizerEmail: emailCfg.GetEmailFromAddress(),
		idleTTL:        funnelCfg.GetSessionIdleTTL(),
		log:            log,
	}

	mux.HandleFunc(TaskEmailOutboxDue, w.handleEmailOutboxDue)
	mux.HandleFunc(TaskSessionCleanup, w.handleSessionCleanup)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleEmailOutboxDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseEmailOutboxDuePayload(task)
	if err != nil {
		return err
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return err
	}

	rec, err := w.outbox.GetByID(ctx, outboxID)
	if err != nil {
		return err
	}
	if rec.Status == outbox.StatusSucceeded {
		return nil
	}

	if err := w.outbox.MarkProcessing(ctx, outboxID); err != nil {
		return err
	}

	if err := w.deliver(ctx, rec); err != nil {
		w.log.EmailDispatchFailed(outboxID.String(), rec.Attempts+1, err)
		if rec.Attempts+1 >= maxDeliveryAttempts {
			_ = w.outbox.MarkFailed(ctx, outboxID, err.Error())
			return nil
		}
		msg := err.Error()
		_ = w.outbox.MarkPending(ctx, outboxID, &msg)
		return err
	}

	return w.outbox.MarkSucceeded(ctx, outboxID)
}

func (w *Worker) deliver(ctx context.Context, rec outbox.Record) error {
	switch rec.Template {
	case outbox.TemplateLeadConfirmation:
		var p notification.LeadConfirmationPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return w.sender.SendLeadConfirmationEmail(ctx, rec.Recipient, p.FirstName, p.Division)

	case outbox.TemplateSalesAlert:
		var p notification.SalesAlertPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		leadURL := fmt.Sprintf("%s/operator/leads/%s", w.appBaseURL, p.LeadID)
		return w.sender.SendSalesAlertEmail(ctx, rec.Recipient, p.LeadName, p.Company, p.Classification, p.TotalScore, p.Insights, leadURL)

	case outbox.TemplateBookingConfirmation:
		var p notification.BookingConfirmationPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		attachments := w.calendarAttachments(ctx, p.BookingID)
		return w.sender.SendBookingConfirmationEmail(ctx, rec.Recipient, p.Name, p.MeetingType, p.StartTime, p.Timezone, attachments...)

	case outbox.TemplateBookingReminder:
		var p notification.BookingReminderPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return w.sender.SendBookingReminderEmail(ctx, rec.Recipient, p.Name, p.MeetingType, p.StartTime)

	default:
		return fmt.Errorf("unknown outbox template %q", rec.Template)
	}
}

// calendarAttachments builds the ICS and QR attachments for a confirmation
// email. The mail still goes out without them if the booking cannot be loaded.
func (w *Worker) calendarAttachments(ctx context.Context, bookingID string) []email.Attachment {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil
	}
	booking, err := w.bookings.GetBooking(ctx, id)
	if err != nil {
		w.log.Error("booking lookup for attachments failed", "booking_id", bookingID, "error", err)
		return nil
	}

	attachments := []email.Attachment{{
		Content:  []byte(calendar.BuildICS(booking, w.organizerName, w.organizerEmail)),
		FileName: "meeting.ics",
		MIMEType: "text/calendar",
	}}
	if png, err := calendar.BookingQR(w.appBaseURL, booking); err == nil {
		attachments = append(attachments, email.Attachment{
			Content:  png,
			FileName: "meeting-qr.png",
			MIMEType: "image/png",
		})
	}
	return attachments
}

func (w *Worker) handleSessionCleanup(ctx context.Context, _ *asynq.Task) error {
	ttl := w.idleTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	removed, err := w.sessions.DeleteIdleSessions(ctx, time.Now().Add(-ttl))
	if err != nil {
		return err
	}
	if removed > 0 {
		w.log.Info("idle sessions removed", "count", removed)
	}
	return nil
}
