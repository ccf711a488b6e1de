package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifqueue"
	"github.com/dmitrymomot/notifykit/pkg/prefs"
)

var (
	// ErrQueueNil is returned when a nil queue is provided.
	ErrQueueNil = errors.New("queue cannot be nil")

	// ErrTrackerNil is returned when a nil delivery tracker is provided.
	ErrTrackerNil = errors.New("delivery tracker cannot be nil")

	// ErrNoSenders is returned when the worker has no channel senders.
	ErrNoSenders = errors.New("no channel senders registered")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("worker already started")

	// ErrNotStarted is returned when Stop is called before Start.
	ErrNotStarted = errors.New("worker not started")
)

// Queue is the slice of the notification queue the worker drives.
// Satisfied by *notifqueue.Queue.
type Queue interface {
	Pending(ctx context.Context, filter notifqueue.PendingFilter) ([]notifqueue.Entry, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (*notifqueue.Entry, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, results map[string]any) (*notifqueue.Entry, error)
	MarkPartial(ctx context.Context, id uuid.UUID, results map[string]any) (*notifqueue.Entry, error)
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) (*notifqueue.Entry, error)
	ReclaimStuck(ctx context.Context, olderThan time.Duration) (int64, error)
	Cleanup(ctx context.Context, daysToKeep int) (int64, error)
}

// Tracker records per-channel attempt detail. Satisfied by *delivery.Tracker.
type Tracker interface {
	Record(ctx context.Context, params delivery.RecordParams) (*delivery.Attempt, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status delivery.Status, params delivery.UpdateParams) (*delivery.Attempt, error)
}

// Worker polls the queue for due entries, fans each one out to its channel
// senders, and reports the aggregate outcome back to the queue. Multiple
// worker instances can run against the same store; the queue's atomic claim
// keeps them from processing the same entry twice.
type Worker struct {
	queue   Queue
	tracker Tracker
	senders map[prefs.Channel]Sender

	pullInterval  time.Duration
	batchSize     int
	reclaimAfter  time.Duration
	cleanupEvery  time.Duration
	retentionDays int
	logger        *slog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	workerID uuid.UUID
}

// NewWorker creates a delivery worker over the given queue and tracker.
func NewWorker(queue Queue, tracker Tracker, senders []Sender, opts ...Option) (*Worker, error) {
	if queue == nil {
		return nil, ErrQueueNil
	}
	if tracker == nil {
		return nil, ErrTrackerNil
	}
	if len(senders) == 0 {
		return nil, ErrNoSenders
	}

	options := &options{
		pullInterval:  5 * time.Second,
		batchSize:     25,
		reclaimAfter:  10 * time.Minute,
		cleanupEvery:  time.Hour,
		retentionDays: 30,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	byChannel := make(map[prefs.Channel]Sender, len(senders))
	for _, s := range senders {
		byChannel[s.Channel()] = s
	}

	return &Worker{
		queue:         queue,
		tracker:       tracker,
		senders:       byChannel,
		pullInterval:  options.pullInterval,
		batchSize:     options.batchSize,
		reclaimAfter:  options.reclaimAfter,
		cleanupEvery:  options.cleanupEvery,
		retentionDays: options.retentionDays,
		logger:        options.logger,
		workerID:      uuid.New(),
	}, nil
}

// Start begins polling in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(2)
	go w.pollLoop(runCtx)
	go w.housekeepingLoop(runCtx)

	w.logger.Info("delivery worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.Duration("pull_interval", w.pullInterval),
		slog.Int("batch_size", w.batchSize))

	return nil
}

// Stop cancels polling and waits for the in-flight batch to finish.
func (w *Worker) Stop() error {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return ErrNotStarted
	}
	cancel()
	w.wg.Wait()

	w.logger.Info("delivery worker stopped",
		slog.String("worker_id", w.workerID.String()))
	return nil
}

// Run starts the worker and returns a function suitable for errgroup.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return w.Stop()
	}
}

func (w *Worker) pollLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

func (w *Worker) housekeepingLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.queue.ReclaimStuck(ctx, w.reclaimAfter); err != nil {
				w.logger.Error("failed to reclaim stuck entries",
					slog.String("worker_id", w.workerID.String()),
					logger.Error(err))
			}
			if _, err := w.queue.Cleanup(ctx, w.retentionDays); err != nil {
				w.logger.Error("failed to clean up old entries",
					slog.String("worker_id", w.workerID.String()),
					logger.Error(err))
			}
		}
	}
}

// processBatch drains one poll's worth of due entries.
func (w *Worker) processBatch(ctx context.Context) {
	entries, err := w.queue.Pending(ctx, notifqueue.PendingFilter{Limit: w.batchSize})
	if err != nil {
		w.logger.Error("failed to poll pending entries",
			slog.String("worker_id", w.workerID.String()),
			logger.Error(err))
		return
	}

	for i := range entries {
		if ctx.Err() != nil {
			return
		}
		w.processEntry(ctx, entries[i].ID)
	}
}

// processEntry claims one entry, attempts every enabled channel, and
// reports the aggregate verdict back to the queue.
func (w *Worker) processEntry(ctx context.Context, id uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("panic while processing entry",
				slog.String("worker_id", w.workerID.String()),
				logger.EntryID(id),
				slog.Any("panic", r))
			if _, err := w.queue.MarkFailed(ctx, id, fmt.Sprintf("panic: %v", r)); err != nil {
				w.logger.Error("failed to fail panicked entry", logger.EntryID(id), logger.Error(err))
			}
		}
	}()

	entry, err := w.queue.MarkProcessing(ctx, id)
	if err != nil {
		// Losing a claim race to another worker is normal under load.
		if errors.Is(err, notifqueue.ErrAlreadyClaimed) || errors.Is(err, notifqueue.ErrEntryNotFound) {
			return
		}
		w.logger.Error("failed to claim entry",
			slog.String("worker_id", w.workerID.String()),
			logger.EntryID(id),
			logger.Error(err))
		return
	}

	results := make(map[string]any, len(entry.Channels))
	var delivered, failed int
	var failures []string

	for _, channel := range entry.Channels {
		outcome, err := w.sendOnChannel(ctx, entry, channel)
		if err != nil {
			failed++
			failures = append(failures, fmt.Sprintf("%s: %v", channel, err))
			results[string(channel)] = map[string]any{"status": "failed", "error": err.Error()}
			continue
		}
		delivered++
		results[string(channel)] = outcome
	}

	switch {
	case failed == 0:
		_, err = w.queue.MarkDelivered(ctx, entry.ID, results)
	case delivered > 0:
		_, err = w.queue.MarkPartial(ctx, entry.ID, results)
	default:
		_, err = w.queue.MarkFailed(ctx, entry.ID, strings.Join(failures, "; "))
	}
	if err != nil {
		w.logger.Error("failed to report delivery outcome",
			slog.String("worker_id", w.workerID.String()),
			logger.EntryID(entry.ID),
			logger.Error(err))
		return
	}

	w.logger.LogAttrs(ctx, slog.LevelDebug, "entry processed",
		logger.EntryID(entry.ID),
		logger.UserID(entry.UserID),
		slog.Int("channels_delivered", delivered),
		slog.Int("channels_failed", failed))
}

// sendOnChannel runs one channel attempt end to end: record, send, update.
func (w *Worker) sendOnChannel(ctx context.Context, entry *notifqueue.Entry, channel prefs.Channel) (map[string]any, error) {
	sender, ok := w.senders[channel]
	if !ok {
		return nil, fmt.Errorf("no sender registered for channel %s", channel)
	}

	attempt, err := w.tracker.Record(ctx, delivery.RecordParams{
		QueueID:  entry.ID,
		UserID:   entry.UserID,
		Channel:  channel,
		Provider: sender.Provider(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}

	messageID, sendErr := sender.Send(ctx, entry)
	if sendErr != nil {
		if _, err := w.tracker.UpdateStatus(ctx, attempt.ID, delivery.StatusFailed, delivery.UpdateParams{
			ErrorMessage: sendErr.Error(),
		}); err != nil {
			w.logger.Error("failed to mark attempt failed",
				logger.AttemptID(attempt.ID),
				logger.Error(err))
		}
		return nil, sendErr
	}

	if _, err := w.tracker.UpdateStatus(ctx, attempt.ID, delivery.StatusSent, delivery.UpdateParams{
		ProviderMessageID: messageID,
	}); err != nil {
		w.logger.Error("failed to mark attempt sent",
			logger.AttemptID(attempt.ID),
			logger.Error(err))
	}

	outcome := map[string]any{"status": "sent", "attempt_id": attempt.ID.String()}
	if messageID != "" {
		outcome["provider_message_id"] = messageID
	}
	return outcome, nil
}
