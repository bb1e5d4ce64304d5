package tasks

import (
	"encoding/json"
	"time"

	"carebook/models"

	"github.com/hibiken/asynq"
)

const (
	TypeBookingReminder = "booking:reminder"
	TypeSessionSweep    = "wizard:sweep"
)

// NewBookingReminderTask schedules a reminder for a confirmed booking.
func NewBookingReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeBookingReminder, b)
	opts := []asynq.Option{asynq.ProcessAt(fireAt), asynq.MaxRetry(3)}
	return task, opts, nil
}

// NewSessionSweepTask requests a sweep of orphaned wizard submit locks.
func NewSessionSweepTask() *asynq.Task {
	return asynq.NewTask(TypeSessionSweep, nil)
}
