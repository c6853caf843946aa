package roster

import (
	"strings"
	"time"
)

// Risk is the follow-up urgency bucket derived from time since admission.
type Risk string

const (
	RiskGreen  Risk = "green"
	RiskYellow Risk = "yellow"
	RiskRed    Risk = "red"
)

const (
	redAfterDays    = 90
	yellowAfterDays = 30
)

const dateOnlyLayout = "2006-01-02"

var admissionLayouts = []string{dateOnlyLayout, time.RFC3339, "2006-01-02T15:04:05"}

// ParseDate parses a roster date in any of the accepted layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range admissionLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysSince returns the whole days elapsed between admission and now. A
// date-only admission counts calendar days in now's location. An empty or
// unreadable admission date counts as today.
func DaysSince(admission string, now time.Time) int {
	admission = strings.TrimSpace(admission)
	if d, err := time.Parse(dateOnlyLayout, admission); err == nil {
		y, m, day := now.Date()
		today := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
		return max(0, int(today.Sub(d)/(24*time.Hour)))
	}
	t, ok := ParseDate(admission)
	if !ok {
		return 0
	}
	return max(0, int(now.Sub(t)/(24*time.Hour)))
}

// ClassifyRisk buckets a patient by days since admission: red after 90 days,
// yellow after 30, green otherwise.
func ClassifyRisk(admission string, now time.Time) Risk {
	days := DaysSince(admission, now)
	switch {
	case days > redAfterDays:
		return RiskRed
	case days > yellowAfterDays:
		return RiskYellow
	default:
		return RiskGreen
	}
}
