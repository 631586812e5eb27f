// Package scheduler moves background work through asynq: outbox email
// delivery and periodic session cleanup.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskEmailOutboxDue = "email.outbox.due"

const TaskSessionCleanup = "funnel.session.cleanup"

type EmailOutboxDuePayload struct {
	OutboxID string `json:"outboxId"`
}

func NewEmailOutboxDueTask(payload EmailOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEmailOutboxDue, data), nil
}

func ParseEmailOutboxDuePayload(task *asynq.Task) (EmailOutboxDuePayload, error) {
	var payload EmailOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return EmailOutboxDuePayload{}, err
	}
	return payload, nil
}

func NewSessionCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskSessionCleanup, nil)
}
