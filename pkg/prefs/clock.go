package prefs

import (
	"fmt"
	"regexp"
)

// clockPattern accepts strict 24-hour HH:MM values only (00:00 through 23:59).
var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidateClock checks that s is a well-formed HH:MM 24-hour time string.
func ValidateClock(s string) error {
	if !clockPattern.MatchString(s) {
		return fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return nil
}

// parseClock converts a validated "HH:MM" string into minutes since midnight.
func parseClock(s string) (int, error) {
	if err := ValidateClock(s); err != nil {
		return 0, err
	}
	hour := int(s[0]-'0')*10 + int(s[1]-'0')
	minute := int(s[3]-'0')*10 + int(s[4]-'0')
	return hour*60 + minute, nil
}
