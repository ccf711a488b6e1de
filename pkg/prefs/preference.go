package prefs

import (
	"time"
)

// Channel represents a delivery medium.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
	ChannelInApp Channel = "in_app"
	ChannelSMS   Channel = "sms"
)

// Type represents the notification type.
type Type string

const (
	// Security-critical types. Push, email, and in-app are pinned on for
	// these regardless of requested preference updates.
	TypeSecurityAlert   Type = "security_alert"
	TypePasswordChanged Type = "password_changed"
	TypeNewDeviceLogin  Type = "new_device_login"

	// Payment-related types.
	TypePaymentReceived Type = "payment_received"
	TypePayoutSent      Type = "payout_sent"
	TypeInvoiceIssued   Type = "invoice_issued"

	// Marketing types, opt-in only.
	TypeMarketingPromo      Type = "marketing_promo"
	TypeMarketingNewsletter Type = "marketing_newsletter"
	TypeMarketingTips       Type = "marketing_tips"

	// General marketplace activity.
	TypeMessageNew         Type = "message_new"
	TypeOfferReceived      Type = "offer_received"
	TypeOfferAccepted      Type = "offer_accepted"
	TypeOfferDeclined      Type = "offer_declined"
	TypeMissionAssigned    Type = "mission_assigned"
	TypeMissionCompleted   Type = "mission_completed"
	TypeMissionReminder    Type = "mission_reminder"
	TypeReviewReceived     Type = "review_received"
	TypeDocumentExpiring   Type = "document_expiring"
)

// Class groups notification types by preference policy.
type Class int

const (
	ClassGeneral Class = iota
	ClassSecurity
	ClassPayment
	ClassMarketing
)

// Class returns the preference policy class of the notification type.
// Unknown types fall back to the general policy.
func (t Type) Class() Class {
	switch t {
	case TypeSecurityAlert, TypePasswordChanged, TypeNewDeviceLogin:
		return ClassSecurity
	case TypePaymentReceived, TypePayoutSent, TypeInvoiceIssued:
		return ClassPayment
	case TypeMarketingPromo, TypeMarketingNewsletter, TypeMarketingTips:
		return ClassMarketing
	default:
		return ClassGeneral
	}
}

// DigestFrequency represents how often digest notifications are grouped.
type DigestFrequency string

const (
	DigestHourly DigestFrequency = "hourly"
	DigestDaily  DigestFrequency = "daily"
	DigestWeekly DigestFrequency = "weekly"
)

// DefaultTimezone is the fallback IANA zone used when a preference row has
// no timezone set.
const DefaultTimezone = "Europe/Paris"

// Preference is the per-user, per-type channel configuration.
type Preference struct {
	UserID          string           `json:"user_id"`
	Type            Type             `json:"type"`
	PushEnabled     bool             `json:"push_enabled"`
	EmailEnabled    bool             `json:"email_enabled"`
	InAppEnabled    bool             `json:"in_app_enabled"`
	SMSEnabled      bool             `json:"sms_enabled"`
	QuietHoursStart *string          `json:"quiet_hours_start,omitempty"` // "HH:MM" local time
	QuietHoursEnd   *string          `json:"quiet_hours_end,omitempty"`   // "HH:MM" local time
	Timezone        string           `json:"timezone"`
	DigestEnabled   bool             `json:"digest_enabled"`
	DigestFrequency *DigestFrequency `json:"digest_frequency,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// EnabledChannels materializes the boolean flags into a channel list in
// fixed order: push, email, in_app, sms.
func (p *Preference) EnabledChannels() []Channel {
	channels := make([]Channel, 0, 4)
	if p.PushEnabled {
		channels = append(channels, ChannelPush)
	}
	if p.EmailEnabled {
		channels = append(channels, ChannelEmail)
	}
	if p.InAppEnabled {
		channels = append(channels, ChannelInApp)
	}
	if p.SMSEnabled {
		channels = append(channels, ChannelSMS)
	}
	return channels
}

// Location resolves the preference timezone, falling back to DefaultTimezone
// and ultimately UTC when the zone name cannot be loaded.
func (p *Preference) Location() *time.Location {
	tz := p.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// InQuietHoursAt reports whether the given instant falls inside the
// preference's quiet-hours window, evaluated in the preference timezone.
// Windows where start > end wrap past midnight (e.g. 22:00-08:00).
// Returns false when either bound is unset.
func (p *Preference) InQuietHoursAt(now time.Time) bool {
	if p.QuietHoursStart == nil || p.QuietHoursEnd == nil {
		return false
	}

	start, err := parseClock(*p.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := parseClock(*p.QuietHoursEnd)
	if err != nil {
		return false
	}
	if start == end {
		return false
	}

	local := now.In(p.Location())
	minute := local.Hour()*60 + local.Minute()

	if start < end {
		return minute >= start && minute < end
	}
	// Overnight window wraps past midnight.
	return minute >= start || minute < end
}

// QuietHoursEndAt returns the next instant at which the quiet-hours window
// ends, relative to now in the preference timezone. The second return value
// is false when no quiet hours are configured.
func (p *Preference) QuietHoursEndAt(now time.Time) (time.Time, bool) {
	if p.QuietHoursEnd == nil {
		return time.Time{}, false
	}
	end, err := parseClock(*p.QuietHoursEnd)
	if err != nil {
		return time.Time{}, false
	}

	local := now.In(p.Location())
	endToday := time.Date(local.Year(), local.Month(), local.Day(), end/60, end%60, 0, 0, local.Location())
	if !endToday.After(local) {
		// Roll to tomorrow's wall-clock time; time.Date normalizes the day
		// overflow, so the result stays on the HH:MM boundary across DST
		// transitions where adding 24h would drift.
		endToday = time.Date(local.Year(), local.Month(), local.Day()+1, end/60, end%60, 0, 0, local.Location())
	}
	return endToday, true
}
