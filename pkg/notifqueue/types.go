package notifqueue

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/prefs"
)

// Status represents the state of a queue entry.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDelivered  Status = "delivered"
	StatusPartial    Status = "partial"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status is an end state of the entry
// state machine. PARTIAL is terminal for the entry even though its
// per-channel attempts may still need operator reconciliation.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusPartial, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Priority represents the scheduling weight of an entry. Higher values
// drain first; CRITICAL additionally bypasses quiet hours.
type Priority int8

const (
	PriorityLow      Priority = 0
	PriorityNormal   Priority = 1
	PriorityHigh     Priority = 2
	PriorityCritical Priority = 3
)

// Valid checks if the priority is a known level.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// DefaultMaxAttempts is the delivery attempt budget for new entries.
const DefaultMaxAttempts = 3

// NoChannelsMessage is stored on entries cancelled at enqueue time because
// the user's preferences left no channel enabled.
const NoChannelsMessage = "No channels enabled by user preferences"

// Entry represents one notification request in the durable queue.
type Entry struct {
	ID              uuid.UUID       `json:"id"`
	UserID          string          `json:"user_id"`
	Type            prefs.Type      `json:"type"`
	Title           string          `json:"title"`
	Body            string          `json:"body"`
	Data            map[string]any  `json:"data,omitempty"`
	Channels        []prefs.Channel `json:"channels"`
	Priority        Priority        `json:"priority"`
	Status          Status          `json:"status"`
	ScheduledFor    time.Time       `json:"scheduled_for"`
	Attempts        int             `json:"attempts"`
	MaxAttempts     int             `json:"max_attempts"`
	LastAttemptAt   *time.Time      `json:"last_attempt_at,omitempty"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	FailedAt        *time.Time      `json:"failed_at,omitempty"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	DeliveryResults map[string]any  `json:"delivery_results,omitempty"`
	CorrelationID   *string         `json:"correlation_id,omitempty"`
	IdempotencyKey  *string         `json:"idempotency_key,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// PendingFilter narrows the Pending query.
type PendingFilter struct {
	Limit    int       // Maximum number of entries to return (0 = DefaultPendingLimit)
	Priority *Priority // If set, only entries at exactly this priority
}

// DefaultPendingLimit bounds Pending queries when no limit is given.
const DefaultPendingLimit = 50

// HistoryFilter narrows and pages a user's notification history.
type HistoryFilter struct {
	Limit  int
	Offset int
	Status *Status
	Type   *prefs.Type
}

// History is one page of a user's notification history, newest first.
type History struct {
	Items []Entry `json:"items"`
	Total int     `json:"total"`
}

// Stats aggregates queue counts for operational visibility. ByPriority
// breaks down the pending backlog per priority level.
type Stats struct {
	Pending    int            `json:"pending"`
	Processing int            `json:"processing"`
	Delivered  int            `json:"delivered"`
	Partial    int            `json:"partial"`
	Failed     int            `json:"failed"`
	Cancelled  int            `json:"cancelled"`
	ByPriority map[string]int `json:"by_priority"`
}
