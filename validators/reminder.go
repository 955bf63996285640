package validators

import (
	"errors"
	"regexp"
	"time"
)

var (
	ErrReminderTime = errors.New("Datetime not match")

	reminderTimeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d+$`)
)

// ParseReminderTime accepts "YYYY-MM-DD HH:MM:SS.fff" with any number of
// fractional digits and interprets it as UTC.
func ParseReminderTime(s string) (time.Time, error) {
	if !reminderTimeRe.MatchString(s) {
		return time.Time{}, ErrReminderTime
	}

	t, err := time.ParseInLocation(time.DateTime, s, time.UTC)
	if err != nil {
		return time.Time{}, ErrReminderTime
	}

	return t, nil
}
