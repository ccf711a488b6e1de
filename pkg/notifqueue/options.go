package notifqueue

import (
	"log/slog"
	"time"
)

// QueueOption is a functional option for configuring a Queue.
type QueueOption func(*Queue)

// WithLogger sets the logger for the Queue.
func WithLogger(logger *slog.Logger) QueueOption {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// EnqueueOption is a functional option for the Enqueue method.
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	data           map[string]any
	priority       Priority
	scheduledFor   *time.Time
	maxAttempts    int
	correlationID  string
	idempotencyKey string
}

// WithData attaches an opaque payload forwarded to channel senders.
func WithData(data map[string]any) EnqueueOption {
	return func(o *enqueueOptions) {
		if len(data) > 0 {
			o.data = data
		}
	}
}

// WithPriority sets the priority for the entry.
func WithPriority(priority Priority) EnqueueOption {
	return func(o *enqueueOptions) {
		o.priority = priority
	}
}

// WithScheduledFor schedules the entry for a future delivery time.
func WithScheduledFor(t time.Time) EnqueueOption {
	return func(o *enqueueOptions) {
		o.scheduledFor = &t
	}
}

// WithMaxAttempts overrides the delivery attempt budget (1-10).
// Capped to prevent runaway retry loops on persistent failures.
func WithMaxAttempts(maxAttempts int) EnqueueOption {
	return func(o *enqueueOptions) {
		if maxAttempts >= 1 && maxAttempts <= 10 {
			o.maxAttempts = maxAttempts
		}
	}
}

// WithCorrelationID tags the entry for tracing across subsystems.
func WithCorrelationID(id string) EnqueueOption {
	return func(o *enqueueOptions) {
		if id != "" {
			o.correlationID = id
		}
	}
}

// WithIdempotencyKey makes the enqueue exactly-once: a second call with the
// same key returns the original entry unchanged.
func WithIdempotencyKey(key string) EnqueueOption {
	return func(o *enqueueOptions) {
		if key != "" {
			o.idempotencyKey = key
		}
	}
}
