package delivery_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/prefs"
)

func newTracker(t *testing.T) *delivery.Tracker {
	t.Helper()
	tracker, err := delivery.NewTracker(delivery.NewMemoryStorage())
	require.NoError(t, err)
	return tracker
}

func TestNewTracker(t *testing.T) {
	t.Parallel()

	tracker, err := delivery.NewTracker(nil)
	assert.ErrorIs(t, err, delivery.ErrStorageNil)
	assert.Nil(t, tracker)
}

func TestTracker_Record(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("push attempt", func(t *testing.T) {
		t.Parallel()
		tracker := newTracker(t)

		attempt, err := tracker.Record(ctx, delivery.RecordParams{
			QueueID:   uuid.New(),
			UserID:    "user-1",
			Channel:   prefs.ChannelPush,
			Provider:  "fcm",
			DeviceID:  "device-7",
			PushToken: "tok-abc",
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, attempt.ID)
		assert.Equal(t, delivery.StatusPending, attempt.Status)
		require.NotNil(t, attempt.Provider)
		assert.Equal(t, "fcm", *attempt.Provider)
		require.NotNil(t, attempt.PushToken)
		assert.Equal(t, "tok-abc", *attempt.PushToken)
		assert.Nil(t, attempt.EmailAddress)
		assert.Nil(t, attempt.SentAt)
	})

	t.Run("email attempt", func(t *testing.T) {
		t.Parallel()
		tracker := newTracker(t)

		attempt, err := tracker.Record(ctx, delivery.RecordParams{
			QueueID:      uuid.New(),
			UserID:       "user-1",
			Channel:      prefs.ChannelEmail,
			Provider:     "ses",
			EmailAddress: "user@example.com",
		})
		require.NoError(t, err)
		require.NotNil(t, attempt.EmailAddress)
		assert.Equal(t, "user@example.com", *attempt.EmailAddress)
		assert.Nil(t, attempt.DeviceID)
	})

	t.Run("retries are separate rows", func(t *testing.T) {
		t.Parallel()
		tracker := newTracker(t)
		queueID := uuid.New()

		params := delivery.RecordParams{QueueID: queueID, UserID: "user-1", Channel: prefs.ChannelPush}
		first, err := tracker.Record(ctx, params)
		require.NoError(t, err)
		second, err := tracker.Record(ctx, params)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)

		attempts, err := tracker.ListForEntry(ctx, queueID)
		require.NoError(t, err)
		assert.Len(t, attempts, 2)
	})

	t.Run("input validation", func(t *testing.T) {
		t.Parallel()
		tracker := newTracker(t)

		_, err := tracker.Record(ctx, delivery.RecordParams{UserID: "user-1", Channel: prefs.ChannelPush})
		assert.ErrorIs(t, err, delivery.ErrQueueIDRequired)

		_, err = tracker.Record(ctx, delivery.RecordParams{QueueID: uuid.New(), Channel: prefs.ChannelPush})
		assert.ErrorIs(t, err, delivery.ErrUserIDRequired)

		_, err = tracker.Record(ctx, delivery.RecordParams{QueueID: uuid.New(), UserID: "user-1"})
		assert.ErrorIs(t, err, delivery.ErrChannelRequired)
	})
}

func TestTracker_UpdateStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	record := func(t *testing.T, tracker *delivery.Tracker) *delivery.Attempt {
		t.Helper()
		attempt, err := tracker.Record(ctx, delivery.RecordParams{
			QueueID: uuid.New(),
			UserID:  "user-1",
			Channel: prefs.ChannelPush,
		})
		require.NoError(t, err)
		return attempt
	}

	t.Run("full pipeline stamps each timestamp", func(t *testing.T) {
		t.Parallel()
		tracker := newTracker(t)
		attempt := record(t, tracker)

		sent, err := tracker.UpdateStatus(ctx, attempt.ID, delivery.StatusSent, delivery.UpdateParams{
			ProviderMessageID: "fcm-msg-1",
		})
		require.NoError(t, err)
		require.NotNil(t, sent.SentAt)
		require.NotNil(t, sent.ProviderMessageID)
		assert.Equal(t, "fcm-msg-1", *sent.ProviderMessageID)

		delivered, err := tracker.UpdateStatus(ctx, attempt.ID, delivery.StatusDelivered, delivery.UpdateParams{})
		require.NoError(t, err)
		require.NotNil(t, delivered.DeliveredAt)
		assert.WithinDuration(t, time.Now(), *delivered.DeliveredAt, time.Second)

		read, err := tracker.UpdateStatus(ctx, attempt.ID, delivery.StatusRead, delivery.UpdateParams{})
		require.NoError(t, err)
		require.NotNil(t, read.ReadAt)
		require.NotNil(t, read.SentAt, "earlier stamps survive later transitions")
	})

	t.Run("failure records the error", func(t *testing.T) {
		t.Parallel()
		tracker := newTracker(t)
		attempt := record(t, tracker)

		failed, err := tracker.UpdateStatus(ctx, attempt.ID, delivery.StatusFailed, delivery.UpdateParams{
			ErrorCode:    "UNREGISTERED",
			ErrorMessage: "token no longer valid",
		})
		require.NoError(t, err)
		require.NotNil(t, failed.FailedAt)
		require.NotNil(t, failed.ErrorCode)
		assert.Equal(t, "UNREGISTERED", *failed.ErrorCode)
		require.NotNil(t, failed.ErrorMessage)
		assert.Equal(t, "token no longer valid", *failed.ErrorMessage)
	})

	t.Run("rejects backward transitions", func(t *testing.T) {
		t.Parallel()
		tracker := newTracker(t)
		attempt := record(t, tracker)

		_, err := tracker.UpdateStatus(ctx, attempt.ID, delivery.StatusDelivered, delivery.UpdateParams{})
		require.NoError(t, err)

		_, err = tracker.UpdateStatus(ctx, attempt.ID, delivery.StatusSent, delivery.UpdateParams{})
		assert.ErrorIs(t, err, delivery.ErrInvalidTransition)
	})

	t.Run("terminal attempts are locked", func(t *testing.T) {
		t.Parallel()
		tracker := newTracker(t)
		attempt := record(t, tracker)

		_, err := tracker.UpdateStatus(ctx, attempt.ID, delivery.StatusBounced, delivery.UpdateParams{})
		require.NoError(t, err)

		_, err = tracker.UpdateStatus(ctx, attempt.ID, delivery.StatusDelivered, delivery.UpdateParams{})
		assert.ErrorIs(t, err, delivery.ErrInvalidTransition)
	})

	t.Run("unknown status and attempt", func(t *testing.T) {
		t.Parallel()
		tracker := newTracker(t)
		attempt := record(t, tracker)

		_, err := tracker.UpdateStatus(ctx, attempt.ID, delivery.Status("queued"), delivery.UpdateParams{})
		assert.ErrorIs(t, err, delivery.ErrInvalidStatus)

		_, err = tracker.UpdateStatus(ctx, uuid.New(), delivery.StatusSent, delivery.UpdateParams{})
		assert.ErrorIs(t, err, delivery.ErrAttemptNotFound)
	})
}

func TestTracker_ListForEntry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tracker := newTracker(t)

	queueID := uuid.New()
	for _, ch := range []prefs.Channel{prefs.ChannelPush, prefs.ChannelEmail, prefs.ChannelInApp} {
		_, err := tracker.Record(ctx, delivery.RecordParams{QueueID: queueID, UserID: "user-1", Channel: ch})
		require.NoError(t, err)
	}
	_, err := tracker.Record(ctx, delivery.RecordParams{QueueID: uuid.New(), UserID: "user-1", Channel: prefs.ChannelPush})
	require.NoError(t, err)

	attempts, err := tracker.ListForEntry(ctx, queueID)
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	for _, a := range attempts {
		assert.Equal(t, queueID, a.QueueID)
	}

	_, err = tracker.ListForEntry(ctx, uuid.Nil)
	assert.ErrorIs(t, err, delivery.ErrQueueIDRequired)
}
