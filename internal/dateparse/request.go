package dateparse

import "time"

// Request is everything a single message says about a booking.
// Zero fields mean "not mentioned".
type Request struct {
	Date       time.Time
	DateSource Source
	Hour       int // raw 24h hour as written
	HasHour    bool
	PartySize  int
	HasParty   bool
}

// Parse extracts date, hour and headcount from one message.
func Parse(text string, now time.Time) Request {
	var r Request
	r.Date, r.DateSource = FindDate(text, now)
	r.Hour, r.HasHour = ExtractHour(text)
	r.PartySize, r.HasParty = ExtractPartySize(text)
	return r
}

// HasDate reports whether any date was found.
func (r Request) HasDate() bool {
	return r.DateSource != SourceNone
}

// Slot snaps the hour and combines it with the date. It fails when either
// is missing or the hour is outside operating hours.
func (r Request) Slot() (time.Time, int, bool) {
	if !r.HasDate() || !r.HasHour {
		return time.Time{}, 0, false
	}
	h, ok := SnapHour(r.Hour)
	if !ok {
		return time.Time{}, 0, false
	}
	return At(r.Date, h), h, true
}

// At returns day at hour:00 in day's location.
func At(day time.Time, hour int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, day.Location())
}

// EarliestBookable moves a weekday-only slot that is too close to now a week
// ahead. "sábado" said on a Saturday afternoon means next Saturday.
// Other sources are returned unchanged.
func EarliestBookable(start time.Time, src Source, now time.Time, minAdvance time.Duration) time.Time {
	if src == SourceWeekday && start.Sub(now) < minAdvance {
		return start.AddDate(0, 0, 7)
	}
	return start
}
