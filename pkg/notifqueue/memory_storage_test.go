package notifqueue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notifqueue"
	"github.com/dmitrymomot/notifykit/pkg/prefs"
)

func seedEntry(t *testing.T, storage *notifqueue.MemoryStorage) *notifqueue.Entry {
	t.Helper()

	entry := &notifqueue.Entry{
		ID:           uuid.New(),
		UserID:       "user-1",
		Type:         prefs.TypeMessageNew,
		Title:        "t",
		Status:       notifqueue.StatusPending,
		Priority:     notifqueue.PriorityNormal,
		MaxAttempts:  notifqueue.DefaultMaxAttempts,
		ScheduledFor: time.Now(),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, storage.Create(context.Background(), entry))
	return entry
}

func TestMemoryStorage_ConcurrentClaim(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	storage := notifqueue.NewMemoryStorage()
	entry := seedEntry(t, storage)

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	var wins, losses int

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := storage.Claim(ctx, entry.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			default:
				assert.ErrorIs(t, err, notifqueue.ErrAlreadyClaimed)
				losses++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one worker wins the claim")
	assert.Equal(t, workers-1, losses)

	claimed, err := storage.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, notifqueue.StatusProcessing, claimed.Status)
	assert.Equal(t, 1, claimed.Attempts)
}

func TestMemoryStorage_ConcurrentIdempotentCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	storage := notifqueue.NewMemoryStorage()

	const writers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	var created, rejected int

	key := "msg-42"
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry := &notifqueue.Entry{
				ID:             uuid.New(),
				UserID:         "user-1",
				Type:           prefs.TypeMessageNew,
				Title:          "t",
				Status:         notifqueue.StatusPending,
				Priority:       notifqueue.PriorityNormal,
				MaxAttempts:    notifqueue.DefaultMaxAttempts,
				ScheduledFor:   time.Now(),
				CreatedAt:      time.Now(),
				UpdatedAt:      time.Now(),
				IdempotencyKey: &key,
			}
			err := storage.Create(ctx, entry)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			default:
				assert.ErrorIs(t, err, notifqueue.ErrDuplicateIdempotencyKey)
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created, "exactly one insert wins the key")
	assert.Equal(t, writers-1, rejected)

	winner, err := storage.GetByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "user-1", winner.UserID)
}

func TestMemoryStorage_CancelPending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	storage := notifqueue.NewMemoryStorage()
	entry := seedEntry(t, storage)

	cancelled, err := storage.CancelPending(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, notifqueue.StatusCancelled, cancelled.Status)

	_, err = storage.CancelPending(ctx, entry.ID)
	assert.ErrorIs(t, err, notifqueue.ErrNotCancellable)
}

func TestMemoryStorage_ClonesOnReturn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	storage := notifqueue.NewMemoryStorage()
	entry := seedEntry(t, storage)

	got, err := storage.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	got.Title = "mutated"
	got.Status = notifqueue.StatusFailed

	again, err := storage.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", again.Title, "caller mutations never reach storage")
	assert.Equal(t, notifqueue.StatusPending, again.Status)
}
