package bot

import (
	"context"
	"slices"
	"time"

	"github.com/hotboat/whatsapp-bot/internal/availability"
	"github.com/hotboat/whatsapp-bot/internal/cart"
	"github.com/hotboat/whatsapp-bot/internal/catalog"
	"github.com/hotboat/whatsapp-bot/internal/dateparse"
	"github.com/hotboat/whatsapp-bot/internal/session"
	"github.com/hotboat/whatsapp-bot/internal/storage"
)

// confirmationLookback is how many user messages a bare "sí" searches for
// the booking details.
const confirmationLookback = 10

func (d *Dialogue) location() *time.Location {
	return d.slots.Config().Location
}

// askForDate starts the guided flow.
func (d *Dialogue) askForDate(t *Turn) Reply {
	meta := t.Meta()
	meta.Reset()
	meta.AwaitingDate = true
	return Reply{Text: askDate}
}

func (d *Dialogue) handleReservationIntent(_ context.Context, t *Turn) (Reply, error) {
	return d.askForDate(t), nil
}

func (d *Dialogue) handleDateAnswer(ctx context.Context, t *Turn) (Reply, error) {
	r := t.Request
	if r.HasDate() && r.HasHour {
		if r.HasParty {
			return d.handleFullReservation(ctx, t)
		}
		return d.handleDateTimeOnly(ctx, t)
	}
	if !r.HasDate() {
		return Reply{Text: dateRetry}, nil
	}
	return d.offerDay(ctx, t, r.Date, ""), nil
}

// offerDay lists the free hours of day and waits for the contact to pick
// one. With no free hour it asks for another date.
func (d *Dialogue) offerDay(ctx context.Context, t *Turn, day time.Time, prefix string) Reply {
	meta := t.Meta()
	meta.Reset()

	label := dateparse.DateLabel(day)
	slots := d.slots.AvailableSlotsOn(ctx, day)
	if len(slots) == 0 {
		meta.AwaitingDate = true
		return Reply{Text: prefix + noSlotsOn(label)}
	}

	meta.AwaitingTime = true
	meta.PendingReservation = &session.PendingReservation{Date: label, DateISO: dateparse.ISODate(day)}
	return Reply{Text: prefix + availability.FormatDay(slots)}
}

func (d *Dialogue) handleTimeAnswer(ctx context.Context, t *Turn) (Reply, error) {
	meta := t.Meta()
	pending := meta.PendingReservation

	var day time.Time
	ok := pending != nil
	if ok {
		day, ok = dateparse.ParseISODate(pending.DateISO, d.location())
	}
	if !ok {
		meta.Reset()
		meta.AwaitingDate = true
		return Reply{Text: lostPendingDate}, nil
	}

	// A different date restarts the question for that date.
	if r := t.Request; r.HasDate() && dateparse.ISODate(r.Date) != pending.DateISO {
		return d.handleDateAnswer(ctx, t)
	}

	slots := d.slots.AvailableSlotsOn(ctx, day)
	if len(slots) == 0 {
		meta.Reset()
		meta.AwaitingDate = true
		return Reply{Text: noSlotsOn(pending.Date)}, nil
	}
	hours := make([]int, len(slots))
	for i, s := range slots {
		hours[i] = s.Hour
	}

	hour, ok := requestedHour(t)
	if !ok {
		return Reply{Text: timeRetry(timeLabels(hours))}, nil
	}
	snapped, ok := dateparse.SnapHour(hour)
	if !ok || !slices.Contains(hours, snapped) {
		return Reply{Text: timeUnavailable(pending.Date, timeLabels(hours))}, nil
	}

	if t.Request.HasParty && catalog.ValidPartySize(t.Request.PartySize) {
		return d.materialize(ctx, t, day, snapped, t.Request.PartySize)
	}

	pending.Time = dateparse.TimeLabel(snapped)
	meta.AwaitingTime = false
	meta.AwaitingPartySize = true
	return Reply{Text: askPartySize(pending.Date, pending.Time)}, nil
}

// requestedHour reads an hour from a reply to "¿qué horario prefieres?".
func requestedHour(t *Turn) (int, bool) {
	if t.Request.HasHour {
		return t.Request.Hour, true
	}
	h, _, ok := dateparse.ParseClock(t.Text)
	return h, ok
}

func (d *Dialogue) handlePartySize(ctx context.Context, t *Turn) (Reply, error) {
	meta := t.Meta()

	n, ok := dateparse.ExtractPartySize(t.Text)
	if !ok {
		n, ok = dateparse.FirstNumber(t.Text)
	}
	if !ok {
		return Reply{Text: askPartySizeAgain}, nil
	}
	if !catalog.ValidPartySize(n) {
		return Reply{Text: partySizeOutOfRange}, nil
	}

	pending := meta.PendingReservation
	if pending == nil {
		meta.Reset()
		return Reply{Text: lostPendingBooking}, nil
	}
	day, okDate := dateparse.ParseISODate(pending.DateISO, d.location())
	clock, err := time.Parse("15:04", pending.Time)
	if !okDate || err != nil {
		meta.Reset()
		return Reply{Text: lostPendingBooking}, nil
	}
	return d.materialize(ctx, t, day, clock.Hour(), n)
}

// materialize re-checks the departure and puts the reservation in the
// cart with the flex surcharge on.
func (d *Dialogue) materialize(ctx context.Context, t *Turn, day time.Time, hour, party int) (Reply, error) {
	meta := t.Meta()
	dateLabel := dateparse.DateLabel(day)
	timeLabel := dateparse.TimeLabel(hour)

	if d.slots.TooSoon(dateparse.At(day, hour)) {
		meta.Reset()
		return Reply{Text: minAdvanceNotice}, nil
	}

	free, err := d.slots.CheckSlot(ctx, day, hour)
	if err != nil {
		meta.Reset()
		return Reply{}, err
	}
	if !free {
		d.logger.WithField("date", dateparse.ISODate(day)).
			WithField("hour", hour).
			InfoContext(ctx, "Requested departure is taken, offering the rest of the day")
		return d.offerDay(ctx, t, day, slotTaken(dateLabel, timeLabel)), nil
	}

	item := cart.NewReservation(dateLabel, dateparse.ISODate(day), timeLabel, party)
	c, err := d.updateCart(ctx, t, func(c *cart.Cart) error {
		c.Add(item)
		c.Flex = true
		return nil
	})
	if err != nil {
		meta.Reset()
		return Reply{}, err
	}

	meta.Reset()
	return Reply{Text: reservationAdded(c, d.carts.Policy())}, nil
}

func (d *Dialogue) handleAvailability(ctx context.Context, t *Turn) (Reply, error) {
	if t.Request.HasDate() {
		return d.offerDay(ctx, t, t.Request.Date, ""), nil
	}
	slots := d.slots.Upcoming(ctx)
	return Reply{Text: availability.Format(slots, d.slots.Config().MaxDatesShown)}, nil
}

func (d *Dialogue) handleDateTimeOnly(_ context.Context, t *Turn) (Reply, error) {
	meta := t.Meta()
	r := t.Request

	start, hour, ok := r.Slot()
	if !ok {
		meta.Reset()
		return Reply{Text: hoursOutOfRange}, nil
	}
	start = dateparse.EarliestBookable(start, r.DateSource, t.Now, d.slots.Config().MinAdvance)
	if d.slots.TooSoon(start) {
		meta.Reset()
		return Reply{Text: minAdvanceShort}, nil
	}

	meta.Reset()
	meta.AwaitingPartySize = true
	meta.PendingReservation = &session.PendingReservation{
		Date:    dateparse.DateLabel(start),
		DateISO: dateparse.ISODate(start),
		Time:    dateparse.TimeLabel(hour),
	}
	return Reply{Text: dateTimeAck(meta.PendingReservation.Date, meta.PendingReservation.Time)}, nil
}

func (d *Dialogue) handleFullReservation(ctx context.Context, t *Turn) (Reply, error) {
	return d.book(ctx, t, t.Request)
}

// book materializes a request that names date, hour and headcount.
func (d *Dialogue) book(ctx context.Context, t *Turn, r dateparse.Request) (Reply, error) {
	if !catalog.ValidPartySize(r.PartySize) {
		return Reply{Text: partySizeOutOfRange}, nil
	}
	start, hour, ok := r.Slot()
	if !ok {
		t.Meta().Reset()
		return Reply{Text: hoursOutOfRange}, nil
	}
	start = dateparse.EarliestBookable(start, r.DateSource, t.Now, d.slots.Config().MinAdvance)
	return d.materialize(ctx, t, start, hour, r.PartySize)
}

// handleConfirmation books what the contact described in their own recent
// messages after a "sí" to a booking offer.
func (d *Dialogue) handleConfirmation(ctx context.Context, t *Turn) (Reply, error) {
	for _, text := range t.Conv.RecentByRole(storage.RoleUser, confirmationLookback) {
		r := dateparse.Parse(text, t.Now)
		if r.HasDate() && r.HasHour && r.HasParty {
			return d.book(ctx, t, r)
		}
	}
	return Reply{Text: confirmationMissing}, nil
}
