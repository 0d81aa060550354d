package cart

import (
	"testing"

	"github.com/hotboat/whatsapp-bot/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reservation(party int) Item {
	return NewReservation("6 de noviembre 2025", "2025-11-06", "15:00", party)
}

func TestNewReservation(t *testing.T) {
	t.Parallel()
	r := reservation(3)
	assert.Equal(t, KindReservation, r.Kind)
	assert.Equal(t, "HotBoat Trip - 3 personas", r.Name)
	assert.Equal(t, 54990, r.UnitPrice)
	assert.Equal(t, 3, r.Quantity)
	assert.Equal(t, "3", r.Metadata[MetaCapacity])
	assert.Equal(t, "15:00", r.Metadata[MetaTime])
}

func TestCartAdd_ReplacesReservationAndFlex(t *testing.T) {
	t.Parallel()
	c := Cart{Flex: true}
	c.Add(reservation(2))
	c.Add(NewExtra(catalog.JugoNatural, 1))
	c.Flex = true

	c.Add(reservation(4))

	require.Len(t, c.Items, 2)
	assert.Equal(t, KindExtra, c.Items[0].Kind)
	assert.Equal(t, 4, c.Items[1].Quantity)
	assert.False(t, c.Flex)

	c.Add(reservation(5))
	reservations := 0
	for _, it := range c.Items {
		if it.Kind == KindReservation {
			reservations++
		}
	}
	assert.Equal(t, 1, reservations)
}

func TestCartAdd_ReservationOnlyCartWithFlex(t *testing.T) {
	t.Parallel()
	// [reservation A, surcharge] + reservation B = [reservation B]
	c := Cart{Items: []Item{reservation(2)}, Flex: true}
	b := reservation(6)
	c.Add(b)
	assert.Equal(t, Cart{Items: []Item{b}}, c)
}

func TestCartRemove(t *testing.T) {
	t.Parallel()
	c := Cart{Items: []Item{reservation(2), NewExtra(catalog.AguaMineral, 2)}}
	orig := c.Items

	assert.False(t, c.Remove(-1))
	assert.False(t, c.Remove(2))
	require.True(t, c.Remove(0))
	require.Len(t, c.Items, 1)
	assert.Equal(t, catalog.AguaMineral.Name, c.Items[0].Name)
	assert.Equal(t, KindReservation, orig[0].Kind, "remove must not alias the previous slice")
}

func TestTotal(t *testing.T) {
	t.Parallel()
	policy := catalog.DefaultFlex
	jugo := NewExtra(catalog.JugoNatural, 2)
	tabla := NewExtra(catalog.TablaGrande, 1)

	c := Cart{Items: []Item{reservation(2), jugo, tabla}, Flex: true}
	// 139980 + 20000 + 25000 + round(13998)
	assert.Equal(t, 139980+20000+25000+13998, c.Total(policy))
	assert.Equal(t, 13998, c.FlexAmount(policy))

	reordered := Cart{Items: []Item{tabla, reservation(2), jugo}, Flex: true}
	assert.Equal(t, c.Total(policy), reordered.Total(policy))

	more := Cart{Items: []Item{reservation(2), jugo, tabla, NewExtra(catalog.Chalas, 3)}, Flex: true}
	assert.Equal(t, c.FlexAmount(policy), more.FlexAmount(policy), "flex ignores extras")

	noReservation := Cart{Items: []Item{jugo}, Flex: true}
	assert.Zero(t, noReservation.FlexAmount(policy))
	assert.Equal(t, 20000, noReservation.Total(policy))

	assert.Zero(t, Cart{}.Total(policy))
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Parallel()
	c := Cart{
		Items: []Item{
			reservation(3),
			NewExtra(catalog.WithFlavor(catalog.FlavorCookies), 2),
			{Kind: KindAccommodation, Name: "Open Sky", UnitPrice: 100000, Quantity: 1, Metadata: Metadata{"nights": "1"}},
		},
		Flex: true,
	}

	data, err := Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name":"Reserva FLEX (+10%)"`)
	assert.Contains(t, string(data), `"item_type":"reservation"`)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestUnmarshal_LegacyRows(t *testing.T) {
	t.Parallel()
	legacy := `[
		{"item_type":"reservation","name":"HotBoat Trip - 2 personas","price":69990,"quantity":2,
		 "metadata":{"date":"sábado 8 de noviembre","time":"15:00","capacity":2,"service_name":"HotBoat Trip"}},
		{"item_type":"extra","name":"Reserva FLEX (+10%)","price":0,"quantity":1,"metadata":{}},
		{"item_type":"extra","name":"Agua Mineral 1.5L","price":2500,"quantity":1,"metadata":null}
	]`

	c, err := Unmarshal([]byte(legacy))
	require.NoError(t, err)
	assert.True(t, c.Flex)
	require.Len(t, c.Items, 2)
	assert.Equal(t, "2", c.Items[0].Metadata[MetaCapacity])
	assert.Equal(t, "Agua Mineral 1.5L", c.Items[1].Name)

	empty, err := Unmarshal(nil)
	require.NoError(t, err)
	assert.True(t, empty.Empty())

	_, err = Unmarshal([]byte("{not json"))
	assert.Error(t, err)
}

func TestMoney(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   int
		want string
	}{
		{0, "$0"},
		{999, "$999"},
		{2500, "$2,500"},
		{139980, "$139,980"},
		{1234567, "$1,234,567"},
		{-3500, "-$3,500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Money(tt.in))
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()
	policy := catalog.DefaultFlex

	assert.Equal(t, EmptyMessage, Format(Cart{}, policy))

	c := Cart{Items: []Item{reservation(2), NewExtra(catalog.AguaMineral, 2)}, Flex: true}
	out := Format(c, policy)
	assert.Contains(t, out, "1. 📅 *Reserva HotBoat*")
	assert.Contains(t, out, "Fecha: 6 de noviembre 2025")
	assert.Contains(t, out, "Precio: $139,980")
	assert.Contains(t, out, "2. Agua Mineral 1.5L\n   $5,000 (2x $2,500)")
	assert.Contains(t, out, "🔒 Reserva FLEX (+10%)\n   $13,998")
	assert.Contains(t, out, "💰 *Total: $158,978*")
	assert.Contains(t, out, "*Eliminar [número]*")
}
