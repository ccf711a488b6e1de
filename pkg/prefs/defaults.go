package prefs

import "time"

// defaultsFor builds the default preference row for a (user, type) pair.
// Kept free of persistence concerns so policy changes stay unit-testable.
func defaultsFor(userID string, typ Type, now time.Time) *Preference {
	p := &Preference{
		UserID:    userID,
		Type:      typ,
		Timezone:  DefaultTimezone,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch typ.Class() {
	case ClassSecurity:
		p.PushEnabled = true
		p.EmailEnabled = true
		p.InAppEnabled = true
	case ClassPayment:
		p.PushEnabled = true
		p.EmailEnabled = true
		p.InAppEnabled = true
	case ClassMarketing:
		// Opt-in only: every channel starts disabled.
	default:
		p.PushEnabled = true
		p.InAppEnabled = true
	}

	return p
}

// applySecurityPin forces push, email, and in-app back on for
// security-critical types. Applied after every update so the pinned
// channels cannot be disabled, no matter what the caller requested.
func applySecurityPin(p *Preference) {
	if p.Type.Class() != ClassSecurity {
		return
	}
	p.PushEnabled = true
	p.EmailEnabled = true
	p.InAppEnabled = true
}
