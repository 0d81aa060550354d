// Package availability computes free trip departures from booked
// appointments. It fails closed: when storage cannot be read no slot is
// offered and operators are alerted.
package availability

import (
	"time"

	"github.com/hotboat/whatsapp-bot/internal/config"
	"github.com/hotboat/whatsapp-bot/internal/dateparse"
	"github.com/hotboat/whatsapp-bot/internal/storage"
)

// Service describes the bookable trip.
type Service struct {
	Name        string
	MinCapacity int
	MaxCapacity int
}

// DefaultService is the only trip HotBoat sells.
var DefaultService = Service{Name: "HotBoat Trip", MinCapacity: 2, MaxCapacity: 7}

// Config holds the scheduling rules. It is immutable after startup.
type Config struct {
	Hours            []int
	Duration         time.Duration
	Buffer           time.Duration
	ExcludedStatuses []string
	Location         *time.Location
	MinAdvance       time.Duration
	MaxDatesShown    int
	LiveCheckTimeout time.Duration
	Days             int // window length used by Upcoming
	Service          Service
}

// DefaultConfig returns the production rules in loc.
func DefaultConfig(loc *time.Location) Config {
	if loc == nil {
		loc = time.UTC
	}
	return Config{
		Hours:            dateparse.Slots,
		Duration:         2 * time.Hour,
		ExcludedStatuses: storage.ExcludedStatuses,
		Location:         loc,
		MinAdvance:       4 * time.Hour,
		MaxDatesShown:    7,
		LiveCheckTimeout: config.AvailabilityLiveCheck,
		Days:             7,
		Service:          DefaultService,
	}
}

// FromBot builds a Config from environment settings.
func FromBot(b config.BotConfig) Config {
	cfg := DefaultConfig(b.Location())
	cfg.Buffer = b.Buffer()
	if d := b.MinAdvance(); d > 0 {
		cfg.MinAdvance = d
	}
	if b.AvailabilityDays > 0 {
		cfg.Days = b.AvailabilityDays
	}
	return cfg
}

// Slot is a free departure.
type Slot struct {
	Date time.Time // midnight in the business zone
	Hour int
}

// Start returns the departure instant.
func (s Slot) Start() time.Time {
	return dateparse.At(s.Date, s.Hour)
}

// DateLabel renders the date as "6 de noviembre 2025".
func (s Slot) DateLabel() string {
	return dateparse.DateLabel(s.Date)
}

// TimeLabel renders the hour as "09:00".
func (s Slot) TimeLabel() string {
	return dateparse.TimeLabel(s.Hour)
}

// interval is a half-open time range [start, end).
type interval struct {
	start, end time.Time
}

func (i interval) overlaps(o interval) bool {
	return i.start.Before(o.end) && i.end.After(o.start)
}
