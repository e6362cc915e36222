package shared

import "time"

// DateOf truncates t to midnight UTC of its calendar day.
// Calendar dates (due dates, validity windows, enrollment dates) are
// always stored in this form so they compare correctly across stores.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a calendar date
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date
func Today() time.Time {
	return DateOf(time.Now())
}

// WithinDates reports whether day lies in the closed range [from, to]
func WithinDates(day, from, to time.Time) bool {
	day = DateOf(day)
	return !day.Before(DateOf(from)) && !day.After(DateOf(to))
}
