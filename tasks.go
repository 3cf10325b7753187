package mailvault

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mailvault/pkg/job"
	"github.com/dmitrymomot/mailvault/pkg/store"
)

const (
	CleanupTaskName = "mailvault.cleanup"
	ResendTaskName  = "mailvault.resend"
)

// CleanupTask applies a retention window on a cron schedule.
type CleanupTask struct {
	pipeline  *Pipeline
	schedule  string
	retention Retention
}

// NewCleanupTask creates the scheduled retention task.
func NewCleanupTask(p *Pipeline, schedule string, r Retention) *CleanupTask {
	return &CleanupTask{pipeline: p, schedule: schedule, retention: r}
}

func (t *CleanupTask) Name() string     { return CleanupTaskName }
func (t *CleanupTask) Schedule() string { return t.schedule }

func (t *CleanupTask) Handle(ctx context.Context) error {
	_, err := t.pipeline.Cleanup(ctx, t.retention)
	return err
}

// ResendPayload identifies the stored message to replay.
type ResendPayload struct {
	SentMessageID uuid.UUID `json:"sent_message_id"`
}

// ResendTask replays stored messages in the background.
type ResendTask struct {
	pipeline *Pipeline
}

// NewResendTask creates the resend task.
func NewResendTask(p *Pipeline) *ResendTask {
	return &ResendTask{pipeline: p}
}

func (t *ResendTask) Name() string { return ResendTaskName }

// Handle resends the message. Missing messages and unreadable snapshots
// cancel the job instead of retrying it.
func (t *ResendTask) Handle(ctx context.Context, payload ResendPayload) error {
	if payload.SentMessageID == uuid.Nil {
		return fmt.Errorf("%w: sent message id is required", job.ErrInvalidPayload)
	}
	_, err := t.pipeline.Resend(ctx, payload.SentMessageID)
	if errors.Is(err, store.ErrSentMessageNotFound) || errors.Is(err, ErrInvalidSnapshot) {
		return fmt.Errorf("%w: %w", job.ErrInvalidPayload, err)
	}
	return err
}
