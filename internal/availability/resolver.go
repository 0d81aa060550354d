package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	domerrors "github.com/hotboat/whatsapp-bot/internal/errors"
	"github.com/hotboat/whatsapp-bot/internal/logger"
	"github.com/hotboat/whatsapp-bot/internal/metrics"
	"github.com/hotboat/whatsapp-bot/internal/storage"
)

// ModuleName identifies the resolver in logs.
const ModuleName = "availability"

// AppointmentSource bulk-loads booked appointments.
type AppointmentSource interface {
	GetBookedAppointments(ctx context.Context, start, end time.Time, excluded []string) ([]storage.Appointment, error)
}

// SlotChecker is the live, authoritative single-slot check.
type SlotChecker interface {
	IsSlotFree(ctx context.Context, start time.Time, duration, buffer time.Duration, excluded []string) (bool, error)
}

// Alerter receives storage failures. alert.Notifier satisfies it.
type Alerter interface {
	StorageError(ctx context.Context, class string, err error)
}

// Resolver answers availability questions.
type Resolver struct {
	cfg     Config
	source  AppointmentSource
	checker SlotChecker
	alerter Alerter
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver creates a Resolver. alerter and m may be nil.
func NewResolver(cfg Config, source AppointmentSource, checker SlotChecker, alerter Alerter, log *logger.Logger, m *metrics.Metrics, opts ...Option) *Resolver {
	r := &Resolver{
		cfg:     cfg,
		source:  source,
		checker: checker,
		alerter: alerter,
		logger:  log.WithModule(ModuleName),
		metrics: m,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the scheduling rules.
func (r *Resolver) Config() Config {
	return r.cfg
}

// Now returns the current time in the business zone.
func (r *Resolver) Now() time.Time {
	return r.now().In(r.cfg.Location)
}

// Upcoming returns free slots from today through the configured window.
func (r *Resolver) Upcoming(ctx context.Context) []Slot {
	today := midnight(r.Now())
	return r.AvailableSlots(ctx, today, today.AddDate(0, 0, r.cfg.Days-1))
}

// AvailableSlotsOn returns the free slots of a single day.
func (r *Resolver) AvailableSlotsOn(ctx context.Context, day time.Time) []Slot {
	return r.AvailableSlots(ctx, day, day)
}

// AvailableSlots returns free departures between the calendar dates of
// start and end, both inclusive, ascending. Any storage failure yields an
// empty result.
func (r *Resolver) AvailableSlots(ctx context.Context, start, end time.Time) []Slot {
	began := time.Now()
	slots, err := r.availableSlots(ctx, start, end)
	status := "ok"
	switch {
	case err != nil:
		status = "error"
		r.reportStorage(ctx, err)
		slots = nil
	case len(slots) == 0:
		status = "empty"
	}
	if r.metrics != nil {
		r.metrics.RecordAvailabilityQuery(status, time.Since(began).Seconds())
	}
	return slots
}

func (r *Resolver) availableSlots(ctx context.Context, start, end time.Time) ([]Slot, error) {
	loc := r.cfg.Location
	first := midnight(start.In(loc))
	last := midnight(end.In(loc))
	if last.Before(first) {
		return nil, nil
	}

	booked, err := r.source.GetBookedAppointments(ctx,
		first.Add(-r.cfg.Duration-r.cfg.Buffer),
		last.AddDate(0, 0, 1).Add(r.cfg.Buffer),
		r.cfg.ExcludedStatuses)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	occupied := make(map[string][]interval)
	for _, a := range booked {
		s := a.StartsAt.In(loc)
		key := dayKey(s)
		occupied[key] = append(occupied[key], r.buffered(s))
	}

	earliest := r.Now().Add(r.cfg.MinAdvance)
	var days [][]Slot
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		var candidates []Slot
		for _, h := range r.cfg.Hours {
			slot := Slot{Date: d, Hour: h}
			if slot.Start().Before(earliest) {
				continue
			}
			if r.collides(slot, occupied[dayKey(d)]) {
				continue
			}
			candidates = append(candidates, slot)
		}
		if len(candidates) > 0 {
			days = append(days, candidates)
		}
	}

	return r.verify(ctx, days)
}

// verify re-checks provisional slots with the live check, one goroutine per
// day. A rejected slot is dropped; any error fails the whole query.
func (r *Resolver) verify(ctx context.Context, days [][]Slot) ([]Slot, error) {
	if r.checker == nil || len(days) == 0 {
		return flatten(days), nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, r.cfg.LiveCheckTimeout)
	defer cancel()

	kept := make([][]Slot, len(days))
	g, gctx := errgroup.WithContext(checkCtx)
	for i, day := range days {
		g.Go(func() error {
			for _, slot := range day {
				free, err := r.checker.IsSlotFree(gctx, slot.Start(), r.cfg.Duration, r.cfg.Buffer, r.cfg.ExcludedStatuses)
				if err != nil {
					return fmt.Errorf("live check %s %s: %w", slot.DateLabel(), slot.TimeLabel(), err)
				}
				if !free {
					r.logger.WithField("slot", slot.Start()).DebugContext(gctx, "Live check rejected slot")
					if r.metrics != nil {
						r.metrics.RecordLiveCheckRejection()
					}
					continue
				}
				kept[i] = append(kept[i], slot)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return flatten(kept), nil
}

// CheckSlot reports whether one requested departure can be booked: it must
// be an operating hour, respect the minimum advance and pass the live check.
func (r *Resolver) CheckSlot(ctx context.Context, day time.Time, hour int) (bool, error) {
	if !r.isOperatingHour(hour) {
		return false, nil
	}
	slot := Slot{Date: midnight(day.In(r.cfg.Location)), Hour: hour}
	if slot.Start().Before(r.Now().Add(r.cfg.MinAdvance)) {
		return false, nil
	}
	if r.checker == nil {
		return true, nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, r.cfg.LiveCheckTimeout)
	defer cancel()

	free, err := r.checker.IsSlotFree(checkCtx, slot.Start(), r.cfg.Duration, r.cfg.Buffer, r.cfg.ExcludedStatuses)
	if err != nil {
		r.reportStorage(ctx, err)
		return false, domerrors.NewWrapper(ModuleName, "check_slot").
			Wrap(fmt.Errorf("%w: %w", domerrors.ErrStorageUnavailable, err), CheckFailedMessage)
	}
	if !free && r.metrics != nil {
		r.metrics.RecordLiveCheckRejection()
	}
	return free, nil
}

// TooSoon reports whether a departure falls inside the minimum advance.
func (r *Resolver) TooSoon(start time.Time) bool {
	return start.Before(r.Now().Add(r.cfg.MinAdvance))
}

func (r *Resolver) reportStorage(ctx context.Context, err error) {
	class := domerrors.ClassifyStorage(err)
	r.logger.WithError(err).WithField("error_class", class).ErrorContext(ctx, "Availability query failed, offering no slots")
	if r.alerter != nil {
		r.alerter.StorageError(ctx, class, err)
	}
}

func (r *Resolver) buffered(start time.Time) interval {
	return interval{
		start: start.Add(-r.cfg.Buffer),
		end:   start.Add(r.cfg.Duration + r.cfg.Buffer),
	}
}

func (r *Resolver) collides(slot Slot, occupied []interval) bool {
	candidate := r.buffered(slot.Start())
	for _, o := range occupied {
		if candidate.overlaps(o) {
			return true
		}
	}
	return false
}

func (r *Resolver) isOperatingHour(h int) bool {
	for _, oh := range r.cfg.Hours {
		if oh == h {
			return true
		}
	}
	return false
}

func flatten(days [][]Slot) []Slot {
	var out []Slot
	for _, d := range days {
		out = append(out, d...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start().Before(out[j].Start())
	})
	return out
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func dayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
