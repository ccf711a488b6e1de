package delivery

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/prefs"
)

// Status represents the state of a single channel delivery attempt.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
	StatusBounced   Status = "bounced"
)

// rank positions each status along the forward pipeline. Terminal failure
// states share the highest rank so they are reachable from any pre-terminal
// state but never leave.
var rank = map[Status]int{
	StatusPending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
	StatusFailed:    4,
	StatusBounced:   4,
}

// Valid checks if the status is a known attempt state.
func (s Status) Valid() bool {
	_, ok := rank[s]
	return ok
}

// Terminal reports whether the attempt can no longer progress.
func (s Status) Terminal() bool {
	return s == StatusRead || s == StatusFailed || s == StatusBounced
}

// CanTransitionTo reports whether moving from s to next keeps the pipeline
// monotonic: pending → sent → delivered → read, with failed/bounced
// reachable from any pre-terminal state.
func (s Status) CanTransitionTo(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s.Terminal() {
		return false
	}
	return rank[next] > rank[s]
}

// Attempt is one (queue entry, channel) delivery try. Multiple attempts per
// pair are permitted; deduplication, if desired, is the caller's concern.
type Attempt struct {
	ID                uuid.UUID     `json:"id"`
	QueueID           uuid.UUID     `json:"queue_id"`
	UserID            string        `json:"user_id"`
	Channel           prefs.Channel `json:"channel"`
	Status            Status        `json:"status"`
	Provider          *string       `json:"provider,omitempty"`
	DeviceID          *string       `json:"device_id,omitempty"`
	PushToken         *string       `json:"push_token,omitempty"`
	EmailAddress      *string       `json:"email_address,omitempty"`
	ProviderMessageID *string       `json:"provider_message_id,omitempty"`
	ErrorCode         *string       `json:"error_code,omitempty"`
	ErrorMessage      *string       `json:"error_message,omitempty"`
	SentAt            *time.Time    `json:"sent_at,omitempty"`
	DeliveredAt       *time.Time    `json:"delivered_at,omitempty"`
	ReadAt            *time.Time    `json:"read_at,omitempty"`
	FailedAt          *time.Time    `json:"failed_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}
