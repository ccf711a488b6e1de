package prefs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/prefs"
)

func boolPtr(b bool) *bool { return &b }

func newService(t *testing.T) *prefs.Service {
	t.Helper()
	svc, err := prefs.NewService(prefs.NewMemoryStorage())
	require.NoError(t, err)
	return svc
}

func TestNewService(t *testing.T) {
	t.Parallel()

	t.Run("nil storage", func(t *testing.T) {
		t.Parallel()

		svc, err := prefs.NewService(nil)
		assert.ErrorIs(t, err, prefs.ErrStorageNil)
		assert.Nil(t, svc)
	})
}

func TestService_GetOrCreate_Defaults(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("security types pin everything but sms", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		pref, err := svc.GetOrCreate(ctx, "user-1", prefs.TypeSecurityAlert)
		require.NoError(t, err)
		assert.True(t, pref.PushEnabled)
		assert.True(t, pref.EmailEnabled)
		assert.True(t, pref.InAppEnabled)
		assert.False(t, pref.SMSEnabled)
		assert.False(t, pref.DigestEnabled)
		assert.Equal(t, prefs.DefaultTimezone, pref.Timezone)
	})

	t.Run("marketing types are opt-in only", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		pref, err := svc.GetOrCreate(ctx, "user-1", prefs.TypeMarketingPromo)
		require.NoError(t, err)
		assert.False(t, pref.PushEnabled)
		assert.False(t, pref.EmailEnabled)
		assert.False(t, pref.InAppEnabled)
		assert.False(t, pref.SMSEnabled)
	})

	t.Run("payment types default important channels on", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		pref, err := svc.GetOrCreate(ctx, "user-1", prefs.TypePaymentReceived)
		require.NoError(t, err)
		assert.True(t, pref.PushEnabled)
		assert.True(t, pref.EmailEnabled)
		assert.True(t, pref.InAppEnabled)
		assert.False(t, pref.SMSEnabled)
	})

	t.Run("general types default push and in-app", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		pref, err := svc.GetOrCreate(ctx, "user-1", prefs.TypeMessageNew)
		require.NoError(t, err)
		assert.True(t, pref.PushEnabled)
		assert.False(t, pref.EmailEnabled)
		assert.True(t, pref.InAppEnabled)
		assert.False(t, pref.SMSEnabled)
	})

	t.Run("second call returns the stored row", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		_, err := svc.UpdatePreference(ctx, "user-1", prefs.TypeMessageNew, prefs.Update{
			PushEnabled: boolPtr(false),
		})
		require.NoError(t, err)

		pref, err := svc.GetOrCreate(ctx, "user-1", prefs.TypeMessageNew)
		require.NoError(t, err)
		assert.False(t, pref.PushEnabled)
	})

	t.Run("input validation", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		_, err := svc.GetOrCreate(ctx, "", prefs.TypeMessageNew)
		assert.ErrorIs(t, err, prefs.ErrUserIDRequired)

		_, err = svc.GetOrCreate(ctx, "user-1", "")
		assert.ErrorIs(t, err, prefs.ErrTypeRequired)
	})
}

func TestService_Get(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("no side effects on miss", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		_, err := svc.Get(ctx, "user-1", prefs.TypeMessageNew)
		assert.ErrorIs(t, err, prefs.ErrPreferenceNotFound)

		// Still absent: Get never creates defaults.
		_, err = svc.Get(ctx, "user-1", prefs.TypeMessageNew)
		assert.ErrorIs(t, err, prefs.ErrPreferenceNotFound)
	})
}

func TestService_UpdatePreference(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("security pin overrides disable requests", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		pref, err := svc.UpdatePreference(ctx, "user-1", prefs.TypeSecurityAlert, prefs.Update{
			PushEnabled:  boolPtr(false),
			EmailEnabled: boolPtr(false),
			InAppEnabled: boolPtr(false),
			SMSEnabled:   boolPtr(true),
		})
		require.NoError(t, err)
		assert.True(t, pref.PushEnabled, "push is pinned for security types")
		assert.True(t, pref.EmailEnabled, "email is pinned for security types")
		assert.True(t, pref.InAppEnabled, "in-app is pinned for security types")
		assert.True(t, pref.SMSEnabled, "sms is not pinned")
	})

	t.Run("payment types are not pinned", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		pref, err := svc.UpdatePreference(ctx, "user-1", prefs.TypePaymentReceived, prefs.Update{
			PushEnabled: boolPtr(false),
		})
		require.NoError(t, err)
		assert.False(t, pref.PushEnabled)
	})

	t.Run("rejects malformed quiet hours", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		_, err := svc.UpdatePreference(ctx, "user-1", prefs.TypeMessageNew, prefs.Update{
			QuietHoursStart: strPtr("25:00"),
		})
		assert.ErrorIs(t, err, prefs.ErrInvalidTimeFormat)

		// Nothing was persisted.
		_, err = svc.Get(ctx, "user-1", prefs.TypeMessageNew)
		assert.ErrorIs(t, err, prefs.ErrPreferenceNotFound)
	})

	t.Run("sets and clears quiet hours", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		pref, err := svc.UpdatePreference(ctx, "user-1", prefs.TypeMessageNew, prefs.Update{
			QuietHoursStart: strPtr("22:00"),
			QuietHoursEnd:   strPtr("08:00"),
			Timezone:        strPtr("Europe/Berlin"),
		})
		require.NoError(t, err)
		require.NotNil(t, pref.QuietHoursStart)
		assert.Equal(t, "22:00", *pref.QuietHoursStart)
		assert.Equal(t, "Europe/Berlin", pref.Timezone)

		pref, err = svc.UpdatePreference(ctx, "user-1", prefs.TypeMessageNew, prefs.Update{
			QuietHoursStart: strPtr(""),
			QuietHoursEnd:   strPtr(""),
		})
		require.NoError(t, err)
		assert.Nil(t, pref.QuietHoursStart)
		assert.Nil(t, pref.QuietHoursEnd)
	})

	t.Run("partial update leaves other fields alone", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		_, err := svc.UpdatePreference(ctx, "user-1", prefs.TypeMessageNew, prefs.Update{
			EmailEnabled: boolPtr(true),
		})
		require.NoError(t, err)

		pref, err := svc.Get(ctx, "user-1", prefs.TypeMessageNew)
		require.NoError(t, err)
		assert.True(t, pref.EmailEnabled)
		assert.True(t, pref.PushEnabled, "default untouched")
		assert.True(t, pref.InAppEnabled, "default untouched")
	})
}

func TestService_SetQuietHours(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("applies to every row of the user", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		_, err := svc.GetOrCreate(ctx, "user-1", prefs.TypeMessageNew)
		require.NoError(t, err)
		_, err = svc.GetOrCreate(ctx, "user-1", prefs.TypePaymentReceived)
		require.NoError(t, err)
		_, err = svc.GetOrCreate(ctx, "user-2", prefs.TypeMessageNew)
		require.NoError(t, err)

		require.NoError(t, svc.SetQuietHours(ctx, "user-1", "23:00", "07:00", "Europe/Berlin"))

		for _, typ := range []prefs.Type{prefs.TypeMessageNew, prefs.TypePaymentReceived} {
			pref, err := svc.Get(ctx, "user-1", typ)
			require.NoError(t, err)
			require.NotNil(t, pref.QuietHoursStart)
			assert.Equal(t, "23:00", *pref.QuietHoursStart)
			require.NotNil(t, pref.QuietHoursEnd)
			assert.Equal(t, "07:00", *pref.QuietHoursEnd)
			assert.Equal(t, "Europe/Berlin", pref.Timezone)
		}

		// Other users are untouched.
		pref, err := svc.Get(ctx, "user-2", prefs.TypeMessageNew)
		require.NoError(t, err)
		assert.Nil(t, pref.QuietHoursStart)
	})

	t.Run("validates both bounds", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		assert.ErrorIs(t, svc.SetQuietHours(ctx, "user-1", "22:61", "08:00", ""), prefs.ErrInvalidTimeFormat)
		assert.ErrorIs(t, svc.SetQuietHours(ctx, "user-1", "22:00", "8am", ""), prefs.ErrInvalidTimeFormat)
	})
}

func TestService_EnabledChannels(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService(t)

	channels, err := svc.EnabledChannels(ctx, "user-1", prefs.TypeMessageNew)
	require.NoError(t, err)
	assert.Equal(t, []prefs.Channel{prefs.ChannelPush, prefs.ChannelInApp}, channels)
}

func TestService_ListForUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.GetOrCreate(ctx, "user-1", prefs.TypePaymentReceived)
	require.NoError(t, err)
	_, err = svc.GetOrCreate(ctx, "user-1", prefs.TypeMessageNew)
	require.NoError(t, err)
	_, err = svc.GetOrCreate(ctx, "user-2", prefs.TypeMessageNew)
	require.NoError(t, err)

	rows, err := svc.ListForUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, prefs.TypeMessageNew, rows[0].Type, "ordered by type")
	assert.Equal(t, prefs.TypePaymentReceived, rows[1].Type)

	_, err = svc.ListForUser(ctx, "")
	assert.ErrorIs(t, err, prefs.ErrUserIDRequired)
}

func TestService_UnsubscribeFromMarketing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService(t)

	// Opt in first.
	_, err := svc.UpdatePreference(ctx, "user-1", prefs.TypeMarketingPromo, prefs.Update{
		PushEnabled:  boolPtr(true),
		EmailEnabled: boolPtr(true),
		SMSEnabled:   boolPtr(true),
		InAppEnabled: boolPtr(true),
	})
	require.NoError(t, err)

	require.NoError(t, svc.UnsubscribeFromMarketing(ctx, "user-1"))

	pref, err := svc.Get(ctx, "user-1", prefs.TypeMarketingPromo)
	require.NoError(t, err)
	assert.False(t, pref.PushEnabled)
	assert.False(t, pref.EmailEnabled)
	assert.False(t, pref.SMSEnabled)
	assert.True(t, pref.InAppEnabled, "in-app survives the marketing opt-out")

	// Non-marketing rows are untouched.
	other, err := svc.GetOrCreate(ctx, "user-1", prefs.TypeMessageNew)
	require.NoError(t, err)
	assert.True(t, other.PushEnabled)
}
