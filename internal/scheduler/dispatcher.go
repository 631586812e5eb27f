package scheduler

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"leadfunnel_backend/internal/notification/outbox"
	"leadfunnel_backend/platform/config"
	"leadfunnel_backend/platform/logger"
)

const (
	outboxPollInterval     = 2 * time.Second
	sessionCleanupInterval = time.Hour
)

// OutboxDispatcher polls the email outbox and enqueues a delivery task per
// claimed record. It also schedules the hourly session cleanup.
type OutboxDispatcher struct {
	client *Client
	repo   *outbox.Repository
	log    *logger.Logger
}

func NewOutboxDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, log *logger.Logger) (*OutboxDispatcher, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return &OutboxDispatcher{
		client: client,
		repo:   outbox.New(pool),
		log:    log,
	}, nil
}

func (d *OutboxDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	poll := time.NewTicker(outboxPollInterval)
	defer poll.Stop()
	cleanup := time.NewTicker(sessionCleanupInterval)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanup.C:
			if err := d.client.Enqueue(ctx, NewSessionCleanupTask()); err != nil {
				d.log.Warn("session cleanup enqueue failed", "error", err)
			}
		case <-poll.C:
			d.dispatchDue(ctx)
		}
	}
}

func (d *OutboxDispatcher) dispatchDue(ctx context.Context) {
	records, err := d.repo.ClaimPending(ctx, 50)
	if err != nil {
		d.log.Warn("outbox claim failed", "error", err)
		return
	}

	for _, rec := range records {
		task, err := NewEmailOutboxDueTask(EmailOutboxDuePayload{OutboxID: rec.ID.String()})
		if err != nil {
			msg := err.Error()
			_ = d.repo.MarkPending(ctx, rec.ID, &msg)
			continue
		}

		if err := d.client.Enqueue(ctx, task); err != nil {
			msg := err.Error()
			_ = d.repo.MarkPending(ctx, rec.ID, &msg)
		}
	}
}
