package domain

import "time"

const (
	// StoredTimeLayout is the wall-clock precision timestamps are persisted with.
	StoredTimeLayout = "2006-01-02 15:04:05"
	// DisplayTimeLayout is used by reports and exports.
	DisplayTimeLayout = "02-01-2006 15:04:05"
	// DateLayout is used for license expiry dates and report filters.
	DateLayout = "2006-01-02"
)

// InLocalWallClock keeps t's wall-clock reading but places it in time.Local.
// TIMESTAMP columns hold local wall-clock time and scan back as UTC.
func InLocalWallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local)
}

func inLocalWallClockPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	local := InLocalWallClock(*t)
	return &local
}

// FormatDisplayTime renders t for reports; nil stays nil.
func FormatDisplayTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DisplayTimeLayout)
	return &s
}
