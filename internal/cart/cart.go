// Package cart models the per-contact shopping cart: at most one boat trip
// reservation, any number of extras, and an optional flex surcharge.
package cart

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hotboat/whatsapp-bot/internal/catalog"
	"github.com/hotboat/whatsapp-bot/internal/stringutil"
)

// Kind classifies a cart line.
type Kind string

// Line kinds.
const (
	KindReservation   Kind = "reservation"
	KindExtra         Kind = "extra"
	KindAccommodation Kind = "accommodation"
)

// Reservation metadata keys.
const (
	MetaDate        = "date"
	MetaDateISO     = "date_iso"
	MetaTime        = "time"
	MetaCapacity    = "capacity"
	MetaServiceName = "service_name"
)

// Metadata is the open string bag attached to a line. Numbers written by
// older rows (e.g. capacity) are accepted and kept as their decimal text.
type Metadata map[string]string

// UnmarshalJSON accepts any scalar value.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*m = nil
		return nil
	}
	out := make(Metadata, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	*m = out
	return nil
}

// Item is one cart line.
type Item struct {
	Kind      Kind     `json:"item_type"`
	Name      string   `json:"name"`
	UnitPrice int      `json:"price"`
	Quantity  int      `json:"quantity"`
	Metadata  Metadata `json:"metadata,omitempty"`
}

// Subtotal is unit price times quantity.
func (it Item) Subtotal() int {
	return it.UnitPrice * it.Quantity
}

// NewReservation builds the reservation line for a party on a given slot.
// dateLabel and timeLabel are display strings; dateISO is YYYY-MM-DD.
func NewReservation(dateLabel, dateISO, timeLabel string, partySize int) Item {
	return Item{
		Kind:      KindReservation,
		Name:      fmt.Sprintf("%s - %d personas", catalog.ServiceName, partySize),
		UnitPrice: catalog.PriceForPartySize(partySize),
		Quantity:  partySize,
		Metadata: Metadata{
			MetaDate:        dateLabel,
			MetaDateISO:     dateISO,
			MetaTime:        timeLabel,
			MetaCapacity:    strconv.Itoa(partySize),
			MetaServiceName: catalog.ServiceName,
		},
	}
}

// NewExtra builds an extra line.
func NewExtra(e catalog.Extra, quantity int) Item {
	if quantity < 1 {
		quantity = 1
	}
	return Item{Kind: KindExtra, Name: e.Name, UnitPrice: e.Price, Quantity: quantity}
}

// Cart is an ordered list of lines plus the flex adjustment.
// Line order is the display numbering used by "eliminar N".
type Cart struct {
	Items []Item
	Flex  bool
}

// Empty reports whether the cart has nothing to show.
func (c Cart) Empty() bool {
	return len(c.Items) == 0 && !c.Flex
}

// Reservation returns the reservation line if present.
func (c Cart) Reservation() (Item, bool) {
	for _, it := range c.Items {
		if it.Kind == KindReservation {
			return it, true
		}
	}
	return Item{}, false
}

// HasReservation reports whether the cart holds a trip.
func (c Cart) HasReservation() bool {
	_, ok := c.Reservation()
	return ok
}

// Extras returns the non-reservation lines in order.
func (c Cart) Extras() []Item {
	var out []Item
	for _, it := range c.Items {
		if it.Kind != KindReservation {
			out = append(out, it)
		}
	}
	return out
}

// ReservationSubtotal is the reservation line contribution, 0 without one.
func (c Cart) ReservationSubtotal() int {
	r, ok := c.Reservation()
	if !ok {
		return 0
	}
	return r.Subtotal()
}

// FlexAmount is the surcharge under policy. It is zero when flex is off or
// there is no reservation.
func (c Cart) FlexAmount(policy catalog.FlexPolicy) int {
	if !c.Flex {
		return 0
	}
	return policy.Amount(c.ReservationSubtotal())
}

// Total sums every line plus the flex adjustment. It is always recomputed
// from the current lines.
func (c Cart) Total(policy catalog.FlexPolicy) int {
	total := 0
	for _, it := range c.Items {
		total += it.Subtotal()
	}
	return total + c.FlexAmount(policy)
}

// Add appends an item. A reservation replaces any existing reservation and
// clears the flex adjustment tied to it.
func (c *Cart) Add(it Item) {
	if it.Kind == KindReservation {
		kept := c.Items[:0:0]
		for _, existing := range c.Items {
			if existing.Kind != KindReservation {
				kept = append(kept, existing)
			}
		}
		c.Items = kept
		c.Flex = false
	}
	c.Items = append(c.Items, it)
}

// Remove deletes the 0-indexed line. It reports false when out of range.
func (c *Cart) Remove(index int) bool {
	if index < 0 || index >= len(c.Items) {
		return false
	}
	c.Items = append(c.Items[:index:index], c.Items[index+1:]...)
	return true
}

func isFlexLine(it Item) bool {
	if it.Kind != KindExtra {
		return false
	}
	return strings.Contains(stringutil.Fold(it.Name), "reserva flex")
}

// Marshal encodes the cart in the persisted cart_data layout: a JSON array
// of lines, with flex written as the legacy surcharge line.
func Marshal(c Cart) ([]byte, error) {
	items := make([]Item, 0, len(c.Items)+1)
	items = append(items, c.Items...)
	if c.Flex {
		items = append(items, NewExtra(catalog.ReservaFlex, 1))
	}
	return json.Marshal(items)
}

// Unmarshal decodes cart_data. Legacy surcharge lines become Flex=true.
func Unmarshal(data []byte) (Cart, error) {
	var c Cart
	if len(data) == 0 {
		return c, nil
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	for _, it := range items {
		if isFlexLine(it) {
			c.Flex = true
			continue
		}
		if it.Quantity == 0 {
			it.Quantity = 1
		}
		c.Items = append(c.Items, it)
	}
	return c, nil
}
