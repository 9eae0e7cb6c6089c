package cloudevents

import "time"

const (
	// TimeFormat is the CloudEvents time format.
	TimeFormat = time.RFC3339

	// TimeFormatNano is TimeFormat with nanosecond precision.
	TimeFormatNano = time.RFC3339Nano
)

// ParseTime accepts RFC3339 with or without fractional seconds.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeFormatNano, s); err == nil {
		return t, nil
	}
	return time.Parse(TimeFormat, s)
}

// FormatTime formats t in UTC, keeping sub-second precision when present.
// The zero time yields "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeFormatNano)
}

// Now returns the current UTC time.
func Now() time.Time {
	return time.Now().UTC()
}
