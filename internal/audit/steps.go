// Package audit persists the turn audit trail: one telemetry row per
// pipeline step and the raw exchange behind every generated answer.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/repository"
)

// StepEvent is one executed pipeline step
type StepEvent struct {
	MessageID *int64
	Step      string
	Input     any
	Output    any
	Duration  time.Duration
	Failed    bool
}

// StepRecorder writes step telemetry. Telemetry is best effort: a failed
// write is logged and never fails the step.
type StepRecorder struct {
	repo   repository.StepLogRepository
	logger logrus.FieldLogger
}

// NewStepRecorder creates a recorder
func NewStepRecorder(repo repository.StepLogRepository, logger logrus.FieldLogger) *StepRecorder {
	return &StepRecorder{repo: repo, logger: logger}
}

// Record stores event
func (r *StepRecorder) Record(ctx context.Context, event StepEvent) {
	entry := &models.StepLog{
		MessageID: event.MessageID,
		StepName:  event.Step,
		Input:     r.encode(event.Step, event.Input),
		Output:    r.encode(event.Step, event.Output),
		TimeSec:   event.Duration.Seconds(),
		Error:     event.Failed,
	}

	// The turn's context may already be cancelled when a failure is recorded
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := r.repo.Create(ctx, entry); err != nil {
		r.logger.WithError(err).WithField("step", event.Step).Warn("Failed to record step telemetry")
	}
}

func (r *StepRecorder) encode(step string, v any) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.WithError(err).WithField("step", step).Warn("Step payload is not serializable")
		return nil
	}
	return data
}
