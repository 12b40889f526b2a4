package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"papersum/internal/retry"
)

// TaskType enumerates supported task categories.
type TaskType string

const TaskTypeSummarize TaskType = "summarize"

const defaultMaxAttempts = 3

// Task is a unit of background work.
type Task struct {
	ID          uuid.UUID
	Type        TaskType
	Payload     []byte
	Attempts    int
	MaxAttempts int
	NotBefore   time.Time
}

// LastAttempt reports whether a failure now would exhaust the task's retries.
func (t Task) LastAttempt() bool {
	limit := t.MaxAttempts
	if limit == 0 {
		limit = defaultMaxAttempts
	}
	return t.Attempts+1 >= limit
}

// SummarizePayload asks the worker to summarize a stored paper.
type SummarizePayload struct {
	PaperID  uuid.UUID `json:"paper_id"`
	Provider string    `json:"provider,omitempty"`
}

type Handler func(context.Context, Task) error

// Queue exposes a minimal contract to enqueue and consume tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Worker(ctx context.Context, taskType TaskType, handler Handler) error
}

// ErrPermanent marks handler failures that must not be redelivered.
var ErrPermanent = errors.New("permanent task failure")

// Permanent wraps err so the queue drops the task instead of retrying it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// NewSummarizeTask builds a summarize task for paperID.
func NewSummarizeTask(paperID uuid.UUID, provider string) (Task, error) {
	body, err := json.Marshal(SummarizePayload{PaperID: paperID, Provider: provider})
	if err != nil {
		return Task{}, err
	}
	return Task{
		ID:          uuid.New(),
		Type:        TaskTypeSummarize,
		Payload:     body,
		MaxAttempts: defaultMaxAttempts,
	}, nil
}

// DecodeSummarize parses the payload of a summarize task.
func DecodeSummarize(task Task) (SummarizePayload, error) {
	var p SummarizePayload
	if task.Type != TaskTypeSummarize {
		return p, fmt.Errorf("unexpected task type %q", task.Type)
	}
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return p, fmt.Errorf("decode summarize payload: %w", err)
	}
	if p.PaperID == uuid.Nil {
		return p, errors.New("summarize payload missing paper_id")
	}
	return p, nil
}

// EnqueueWithRetry attempts to enqueue with retries and exponential backoff.
func EnqueueWithRetry(ctx context.Context, q Queue, task Task, attempts int, base time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = q.Enqueue(ctx, task); err == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry.ExponentialBackoff(attempt, base)):
		}
	}
	return err
}
