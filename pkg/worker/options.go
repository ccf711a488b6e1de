package worker

import (
	"log/slog"
	"time"
)

// Option is a functional option for configuring a Worker.
type Option func(*options)

type options struct {
	pullInterval  time.Duration
	batchSize     int
	reclaimAfter  time.Duration
	cleanupEvery  time.Duration
	retentionDays int
	logger        *slog.Logger
}

// WithPullInterval sets how often the worker polls for due entries.
func WithPullInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.pullInterval = interval
		}
	}
}

// WithBatchSize sets how many due entries one poll claims at most.
func WithBatchSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.batchSize = size
		}
	}
}

// WithReclaimAfter sets the age after which a PROCESSING entry is treated
// as abandoned by a crashed worker and released back to PENDING. Must
// exceed the longest plausible send.
func WithReclaimAfter(age time.Duration) Option {
	return func(o *options) {
		if age > 0 {
			o.reclaimAfter = age
		}
	}
}

// WithCleanup sets the housekeeping cadence and the retention window for
// terminal entries.
func WithCleanup(every time.Duration, retentionDays int) Option {
	return func(o *options) {
		if every > 0 {
			o.cleanupEvery = every
		}
		if retentionDays > 0 {
			o.retentionDays = retentionDays
		}
	}
}

// WithLogger sets the logger for the Worker.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
