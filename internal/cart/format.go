package cart

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hotboat/whatsapp-bot/internal/catalog"
)

// EmptyMessage is shown for a cart with no lines.
const EmptyMessage = "🛒 Tu carrito está vacío, grumete ⚓\n\nEscribe *agregar* seguido del extra o servicio que quieras."

// SaveFailedMessage is shown when a cart change could not be stored.
const SaveFailedMessage = "🛒 No pude guardar el cambio en tu carrito, grumete. Tu carrito quedó como estaba.\n\n" +
	"Intenta de nuevo en un momento ⚓"

// Money renders whole CLP with thousands separators, e.g. "$139,980".
func Money(amount int) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.Itoa(amount)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + "$" + b.String()
}

// Format renders the cart with 1-based line numbers, the flex line, the
// total and the command footer.
func Format(c Cart, policy catalog.FlexPolicy) string {
	if c.Empty() {
		return EmptyMessage
	}

	var b strings.Builder
	b.WriteString("🛒 *Tu Carrito HotBoat*\n\n")

	for i, it := range c.Items {
		n := i + 1
		switch it.Kind {
		case KindReservation:
			fmt.Fprintf(&b, "%d. 📅 *Reserva HotBoat*\n", n)
			fmt.Fprintf(&b, "   Fecha: %s\n", metaOr(it, MetaDate))
			fmt.Fprintf(&b, "   Horario: %s\n", metaOr(it, MetaTime))
			fmt.Fprintf(&b, "   Personas: %d\n", it.Quantity)
			fmt.Fprintf(&b, "   Precio: %s\n\n", Money(it.Subtotal()))
		default:
			fmt.Fprintf(&b, "%d. %s\n", n, it.Name)
			fmt.Fprintf(&b, "   %s (%dx %s)\n\n", Money(it.Subtotal()), it.Quantity, Money(it.UnitPrice))
		}
	}

	if c.Flex {
		fmt.Fprintf(&b, "🔒 %s\n", catalog.FlexLineName)
		fmt.Fprintf(&b, "   %s\n\n", Money(c.FlexAmount(policy)))
	}

	b.WriteString("━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "💰 *Total: %s*\n\n", Money(c.Total(policy)))
	b.WriteString("📝 *Comandos:*\n")
	b.WriteString("• *Eliminar [número]* - Eliminar un item\n")
	b.WriteString("• *Confirmar* - Confirmar y proceder con el pago\n")
	b.WriteString("• *Vaciar* - Vaciar carrito\n")
	return b.String()
}

func metaOr(it Item, key string) string {
	if v := it.Metadata[key]; v != "" {
		return v
	}
	return "N/A"
}
