package prefs

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// marketingTypes enumerates every marketing-classified type, used for bulk
// opt-out handling.
var marketingTypes = []Type{
	TypeMarketingPromo,
	TypeMarketingNewsletter,
	TypeMarketingTips,
}

// Service resolves per-user notification preferences, creating rows with
// type-class defaults on first access.
type Service struct {
	storage Storage
}

// NewService creates a new preference service.
func NewService(storage Storage) (*Service, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	return &Service{storage: storage}, nil
}

// Get returns the stored preference row, or ErrPreferenceNotFound. It never
// creates defaults; use GetOrCreate for resolution with lazy creation.
func (s *Service) Get(ctx context.Context, userID string, typ Type) (*Preference, error) {
	if err := validatePair(userID, typ); err != nil {
		return nil, err
	}
	return s.storage.Get(ctx, userID, typ)
}

// GetOrCreate returns the stored preference row, creating one with
// type-class defaults when none exists yet.
func (s *Service) GetOrCreate(ctx context.Context, userID string, typ Type) (*Preference, error) {
	if err := validatePair(userID, typ); err != nil {
		return nil, err
	}

	pref, err := s.storage.Get(ctx, userID, typ)
	if err == nil {
		return pref, nil
	}
	if !errors.Is(err, ErrPreferenceNotFound) {
		return nil, fmt.Errorf("failed to load preference for user %s: %w", userID, err)
	}

	pref = defaultsFor(userID, typ, time.Now())
	if err := s.storage.Upsert(ctx, pref); err != nil {
		return nil, fmt.Errorf("failed to create default preference for user %s: %w", userID, err)
	}
	return pref, nil
}

// Update describes a partial preference change. Nil fields are left
// untouched; quiet-hours bounds set to an empty string are cleared.
type Update struct {
	PushEnabled     *bool
	EmailEnabled    *bool
	InAppEnabled    *bool
	SMSEnabled      *bool
	QuietHoursStart *string
	QuietHoursEnd   *string
	Timezone        *string
	DigestEnabled   *bool
	DigestFrequency *DigestFrequency
}

// UpdatePreference applies a partial change to the (user, type) row,
// creating it from defaults first when absent. Quiet-hours bounds are
// validated against the strict HH:MM pattern. For security-critical types
// the pinned channels are forced back on before persisting.
func (s *Service) UpdatePreference(ctx context.Context, userID string, typ Type, changes Update) (*Preference, error) {
	if err := validatePair(userID, typ); err != nil {
		return nil, err
	}
	if changes.QuietHoursStart != nil && *changes.QuietHoursStart != "" {
		if err := ValidateClock(*changes.QuietHoursStart); err != nil {
			return nil, err
		}
	}
	if changes.QuietHoursEnd != nil && *changes.QuietHoursEnd != "" {
		if err := ValidateClock(*changes.QuietHoursEnd); err != nil {
			return nil, err
		}
	}

	pref, err := s.GetOrCreate(ctx, userID, typ)
	if err != nil {
		return nil, err
	}

	if changes.PushEnabled != nil {
		pref.PushEnabled = *changes.PushEnabled
	}
	if changes.EmailEnabled != nil {
		pref.EmailEnabled = *changes.EmailEnabled
	}
	if changes.InAppEnabled != nil {
		pref.InAppEnabled = *changes.InAppEnabled
	}
	if changes.SMSEnabled != nil {
		pref.SMSEnabled = *changes.SMSEnabled
	}
	if changes.QuietHoursStart != nil {
		if *changes.QuietHoursStart == "" {
			pref.QuietHoursStart = nil
		} else {
			pref.QuietHoursStart = changes.QuietHoursStart
		}
	}
	if changes.QuietHoursEnd != nil {
		if *changes.QuietHoursEnd == "" {
			pref.QuietHoursEnd = nil
		} else {
			pref.QuietHoursEnd = changes.QuietHoursEnd
		}
	}
	if changes.Timezone != nil && *changes.Timezone != "" {
		pref.Timezone = *changes.Timezone
	}
	if changes.DigestEnabled != nil {
		pref.DigestEnabled = *changes.DigestEnabled
	}
	if changes.DigestFrequency != nil {
		pref.DigestFrequency = changes.DigestFrequency
	}

	applySecurityPin(pref)
	pref.UpdatedAt = time.Now()

	if err := s.storage.Upsert(ctx, pref); err != nil {
		return nil, fmt.Errorf("failed to persist preference for user %s: %w", userID, err)
	}
	return pref, nil
}

// SetQuietHours applies the same quiet-hours window to every preference row
// of the user in one batch. The timezone is updated too when non-empty.
func (s *Service) SetQuietHours(ctx context.Context, userID, start, end, timezone string) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	if err := ValidateClock(start); err != nil {
		return err
	}
	if err := ValidateClock(end); err != nil {
		return err
	}
	return s.storage.SetQuietHoursForUser(ctx, userID, &start, &end, timezone)
}

// InQuietHours reports whether the user's current local time falls inside
// the preference's quiet-hours window.
func (s *Service) InQuietHours(pref *Preference) bool {
	if pref == nil {
		return false
	}
	return pref.InQuietHoursAt(time.Now())
}

// EnabledChannels resolves the channels enabled for (user, type), creating
// the preference row from defaults when absent. The order is fixed:
// push, email, in_app, sms.
func (s *Service) EnabledChannels(ctx context.Context, userID string, typ Type) ([]Channel, error) {
	pref, err := s.GetOrCreate(ctx, userID, typ)
	if err != nil {
		return nil, err
	}
	return pref.EnabledChannels(), nil
}

// ListForUser returns every stored preference row of the user, ordered by
// notification type. Rows never touched by the user do not appear; callers
// rendering a full settings screen combine this with type-class defaults.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Preference, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	return s.storage.ListByUser(ctx, userID)
}

// UnsubscribeFromMarketing disables push, email, and sms for every
// marketing-classified type. In-app stays as-is so the inbox keeps working.
func (s *Service) UnsubscribeFromMarketing(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	for _, typ := range marketingTypes {
		pref, err := s.GetOrCreate(ctx, userID, typ)
		if err != nil {
			return err
		}
		pref.PushEnabled = false
		pref.EmailEnabled = false
		pref.SMSEnabled = false
		pref.UpdatedAt = time.Now()

		if err := s.storage.Upsert(ctx, pref); err != nil {
			return fmt.Errorf("failed to unsubscribe user %s from %s: %w", userID, typ, err)
		}
	}
	return nil
}

func validatePair(userID string, typ Type) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	if typ == "" {
		return ErrTypeRequired
	}
	return nil
}
