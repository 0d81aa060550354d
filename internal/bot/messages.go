package bot

import (
	"fmt"
	"strings"

	"github.com/hotboat/whatsapp-bot/internal/cart"
	"github.com/hotboat/whatsapp-bot/internal/catalog"
	"github.com/hotboat/whatsapp-bot/internal/dateparse"
	"github.com/hotboat/whatsapp-bot/internal/whatsapp"
)

// MainMenu is the welcome message and the fallback when nothing else applies.
const MainMenu = "🥬 ¡Ahoy, grumete! ⚓\n\n" +
	"Soy *Popeye el Marino*, cabo segundo del *HotBoat Chile* 🚤\n\n" +
	"Estoy al mando para ayudarte con todas tus consultas sobre nuestras experiencias flotantes 🌊\n\n" +
	"Puedes preguntarme por:\n\n" +
	"1️⃣ *Disponibilidad y horarios*\n\n" +
	"2️⃣ *Precios por persona*\n\n" +
	"3️⃣ *Características del HotBoat*\n\n" +
	"4️⃣ *Extras y promociones*\n\n" +
	"5️⃣ *Ubicación y reseñas*\n\n" +
	"Si prefieres hablar con el *Capitán Tomás*, escribe *Llamar a Tomás*, *Ayuda*, o simplemente *6️⃣* 👨‍✈️🌿\n\n" +
	"¿Listo para zarpar o qué número eliges, grumete?"

const clearedMenu = "🛒 *Carrito vaciado*, grumete ⚓\n\n" +
	"¿Listo para zarpar de nuevo? Elige una opción:\n\n" +
	"1️⃣ *Disponibilidad y horarios*\n" +
	"2️⃣ *Precios por persona*\n" +
	"3️⃣ *Características del HotBoat*\n" +
	"4️⃣ *Extras y promociones*\n" +
	"5️⃣ *Ubicación y reseñas*\n" +
	"6️⃣ *Hablar con el Capitán Tomás*\n\n" +
	"¿Qué número eliges? 🚤"

const askDate = "📅 *Vamos paso a paso para agendar tu HotBoat*.\n\n" +
	"¿Para qué fecha te gustaría navegar?\n" +
	"Puedes decirme:\n" +
	"• Un día específico (ej: 14 de noviembre)\n" +
	"• Un día de la semana (ej: viernes)\n" +
	"• *Hoy* o *mañana* 🚤"

const dateRetry = "Necesito la fecha exacta para continuar ⚓\n\n" +
	"Por ejemplo:\n" +
	"• *14 de noviembre*\n" +
	"• *viernes*\n" +
	"• *mañana*\n\n" +
	"¿Qué día prefieres?"

const (
	lostPendingDate     = "Perdí la fecha seleccionada. Empecemos de nuevo, ¿para qué día te gustaría reservar?"
	lostPendingBooking  = "Lo siento, no encontré la reserva pendiente. Por favor, inicia el proceso de nuevo."
	askPartySizeAgain   = "Por favor indica el número de personas (entre 2 y 7) 🚤"
	partySizeOutOfRange = "El HotBoat tiene capacidad para 2 a 7 personas. ¿Cuántas personas son? 🚤"
	minAdvanceShort     = "Necesitamos al menos 4 horas de anticipación. ¿Puedes elegir un horario más adelante?"
	hoursOutOfRange     = "⏰ Nuestros horarios de zarpe son 09:00, 12:00, 15:00, 18:00 y 21:00 ⚓\n\n¿Cuál prefieres?"
)

const minAdvanceNotice = "⏰ *Lo siento, grumete*\n\n" +
	"Las reservas deben hacerse con un mínimo de *4 horas de anticipación*.\n\n" +
	"Por favor, elige un horario con al menos 4 horas de anticipación 🚤"

const confirmationMissing = "No pude encontrar los detalles de la reserva. " +
	"Por favor, dime la fecha, hora y número de personas nuevamente. " +
	"Por ejemplo: 'El martes a las 16 para 3 personas' 🚤"

const (
	emptyCartCheckout   = "🛒 Tu carrito está vacío. Agrega items antes de confirmar."
	emptyCartShortcut   = "🛒 Tu carrito está vacío, grumete ⚓\n\n¿Qué te gustaría agregar? 🚤"
	needReservation     = "📅 Necesitas agregar una reserva primero. Consulta disponibilidad y luego agrega la fecha y horario que prefieras."
	noFlexInCart        = "⚓ No tienes Reserva FLEX en tu carrito actualmente."
	invalidCartLine     = "❌ Número de item inválido. Usa *carrito* para ver los números."
	unknownExtraOptions = "❌ *No reconocí ese extra*, grumete ⚓\n\n" +
		"¿Qué te gustaría hacer?\n\n" +
		"1️⃣ Ver todos los extras disponibles\n" +
		"2️⃣ Proceder con el pago (sin agregar más)\n" +
		"3️⃣ Vaciar el carrito\n\n" +
		"Escribe el número que prefieras 🚤"
)

const invalidExtraNumber = "❌ Por favor escribe un número válido del 1 al 17 para seleccionar un extra.\n" +
	"O elige:\n" +
	"1️⃣8️⃣ Ver extras (menú completo de nuevo)\n" +
	"1️⃣9️⃣ Menu principal\n" +
	"2️⃣0️⃣ Proceder con el pago\n" +
	"¿Qué número eliges? 🚤"

const nextSteps = "📋 *¿Qué deseas hacer?*\n\n" +
	"• Escribe 1-17 para agregar más extras\n" +
	"• 1️⃣8️⃣ Ver menú de extras completo\n" +
	"• 1️⃣9️⃣ Menú principal\n" +
	"• 2️⃣0️⃣ Proceder con el pago\n" +
	"• Escribe *vaciar* para vaciar el carrito\n\n" +
	"¿Qué opción eliges, grumete?"

const flexIncluded = "💡 *Hemos incluido la Reserva FLEX* que te permite cancelar o reprogramar cuando quieras " +
	"(+10% del costo de pasajeros)"

const cartHelp = "🛒 *Cómo agregar al carrito:*\n\n" +
	"Es muy sencillo, grumete ⚓\n\n" +
	"Solo dime la *fecha*, *hora* y *número de personas* que quieres reservar.\n\n" +
	"Por ejemplo:\n" +
	"• *\"El martes a las 16 para 3 personas\"*\n" +
	"• *\"4 de noviembre a las 15 para 2 personas\"*\n" +
	"• *\"Miércoles a las 12 para 4 personas\"*\n\n" +
	"Yo lo agrego automáticamente al carrito y luego puedes:\n" +
	"• Agregar extras (tablas, bebidas, etc.)\n" +
	"• Confirmar la reserva\n\n" +
	"¿Qué fecha y horario te gustaría? 🚤"

const captainNotified = "📞 *¡Listo, grumete!* ⚓\n\n" +
	"Le avisé al *Capitán Tomás* y te contactará muy pronto por WhatsApp 👨‍✈️\n\n" +
	"Mientras tanto, ¿hay algo más en que pueda ayudarte? 🚤"

const (
	genericApology     = "Disculpa, tuve un problema procesando tu mensaje. ¿Podrías intentar de nuevo?"
	storageApology     = "⚓ Tuvimos un problema guardando tu información, grumete. Intenta de nuevo en un momento 🚤"
	timeoutApology     = "⏳ Estoy tardando más de lo normal, grumete. ¿Puedes intentar de nuevo en un momento?"
	rateLimitedMessage = "⏳ Estás enviando muchos mensajes, grumete. Espera un momento y volvemos a zarpar ⚓"
)

const flavorOptions = "1️⃣ Cookies & Cream 🍪\n" +
	"2️⃣ Frambuesa a la Crema con Chocolate Belga 🍫"

func tooLongMessage(limit int) string {
	return fmt.Sprintf("❌ Tu mensaje es muy largo, grumete ⚓\n\nEscríbeme en menos de %d caracteres 🚤", limit)
}

// flavorPrompt asks which flavour the qty ice creams should be.
func flavorPrompt(qty int) string {
	return "🍦 *Tenemos 2 sabores de helado:*\n\n" + flavorOptions + "\n\n" +
		fmt.Sprintf("Precio: %s c/u\n\n", cart.Money(catalog.Helado.Price)) +
		fmt.Sprintf("¿Cuál sabor prefieres para %s? (escribe el número) 🚤", iceCreamLabel(qty))
}

func flavorRetry(qty int) string {
	return fmt.Sprintf("Por favor elige una opción válida para %s:\n\n%s\n\nEscribe el número que prefieras 🚤",
		iceCreamLabel(qty), flavorOptions)
}

func iceCreamLabel(qty int) string {
	if qty <= 1 {
		return "el helado"
	}
	return fmt.Sprintf("los %d helados", qty)
}

func reservationAdded(c cart.Cart, policy catalog.FlexPolicy) string {
	return "✅ *Reserva agregada al carrito*\n\n" +
		cart.Format(c, policy) + "\n\n" +
		flexIncluded + "\n\n" +
		cartOptions(c)
}

// cartOptions lists the numbered choices offered after a reservation lands
// in the cart. The numbers are interpreted by the cart_option rule.
func cartOptions(c cart.Cart) string {
	if c.Flex {
		return "📋 *¿Qué deseas hacer?*\n\n" +
			"1️⃣ Agregar extras\n" +
			"2️⃣ Proceder con el pago\n" +
			"3️⃣ Quitar la Reserva FLEX\n" +
			"4️⃣ Vaciar el carrito\n\n" +
			"• Escribe *quitar flex* para remover la Reserva FLEX\n\n" +
			"¿Qué número eliges, grumete?"
	}
	return "📋 *¿Qué deseas hacer?*\n\n" +
		"1️⃣ Agregar extras\n" +
		"2️⃣ Proceder con el pago\n" +
		"3️⃣ Vaciar el carrito\n\n" +
		"¿Qué número eliges, grumete?"
}

func flexRemoved(c cart.Cart, policy catalog.FlexPolicy) string {
	return "✅ *Reserva FLEX removida del carrito*\n\n" + cart.Format(c, policy) + "\n\n" + nextSteps
}

func extrasAdded(names []string, c cart.Cart, policy catalog.FlexPolicy) string {
	var b strings.Builder
	if len(names) == 1 {
		fmt.Fprintf(&b, "✅ *%s agregado al carrito*\n\n", names[0])
	} else {
		b.WriteString("✅ *Extras agregados al carrito:*\n")
		for _, n := range names {
			b.WriteString("  • ")
			b.WriteString(n)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	b.WriteString(cart.Format(c, policy))
	b.WriteString("\n\n")
	b.WriteString(nextSteps)
	return b.String()
}

// extrasAddedBeforeFlavor is the head of a reply that still needs a flavour.
func extrasAddedBeforeFlavor(names []string) string {
	if len(names) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("✅ *Extras agregados al carrito:*\n")
	for _, n := range names {
		b.WriteString("  • ")
		b.WriteString(n)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}

func noSlotsOn(dateLabel string) string {
	return fmt.Sprintf("❌ *No tenemos horarios disponibles el %s*.\n\n¿Te gustaría intentar con otra fecha?", dateLabel)
}

func slotTaken(dateLabel, timeLabel string) string {
	return fmt.Sprintf("😔 *El %s a las %s ya no está disponible*, grumete ⚓\n\n", dateLabel, timeLabel)
}

func timeRetry(times []string) string {
	return "No reconocí el horario ⚓\n\nRecuerda elegir uno de estos:\n" + bullets(times) +
		"\n\nEscribe por ejemplo: 15:00"
}

func timeUnavailable(dateLabel string, times []string) string {
	return fmt.Sprintf("Ese horario no está disponible para %s ⚓\n\nHorarios disponibles:\n%s\n\n¿Cuál prefieres?",
		dateLabel, bullets(times))
}

func askPartySize(dateLabel, timeLabel string) string {
	return fmt.Sprintf("⏰ ¡Listo! El %s a las %s.\n\n¿Para cuántas personas será la navegación? (2 a 7 personas)",
		dateLabel, timeLabel)
}

func dateTimeAck(dateLabel, timeLabel string) string {
	return fmt.Sprintf("✅ Perfecto, grumete ⚓\n\n📅 Fecha: %s\n🕐 Horario: %s\n\n¿Para cuántas personas? (2-7 personas) 🚤",
		dateLabel, timeLabel)
}

func bullets(lines []string) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("• ")
		b.WriteString(l)
	}
	return b.String()
}

// checkoutConfirmation is sent to the contact once the request is taken.
func checkoutConfirmation(c cart.Cart, policy catalog.FlexPolicy) string {
	res, _ := c.Reservation()
	var b strings.Builder
	b.WriteString("✅ *Solicitud de Reserva Recibida*\n\n")
	b.WriteString("📅 *Detalles de tu Solicitud:*\n")
	fmt.Fprintf(&b, "   Fecha: %s\n", res.Metadata[cart.MetaDate])
	fmt.Fprintf(&b, "   Horario: %s\n", res.Metadata[cart.MetaTime])
	fmt.Fprintf(&b, "   Personas: %d\n\n", res.Quantity)

	if extras := c.Extras(); len(extras) > 0 || c.Flex {
		b.WriteString("✨ *Extras solicitados:*\n")
		for _, e := range extras {
			fmt.Fprintf(&b, "   • %s\n", quantityName(e))
		}
		if c.Flex {
			fmt.Fprintf(&b, "   • %s\n", catalog.FlexLineName)
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "💰 *Total estimado: %s*\n\n", cart.Money(c.Total(policy)))
	b.WriteString("📞 *El Capitán Tomás se comunicará contigo pronto por WhatsApp o teléfono para confirmar tu reserva y coordinar el pago* 👨‍✈️\n\n")
	b.WriteString("¡Gracias por elegir HotBoat! 🚤🌊")
	return b.String()
}

// captainReservation is the operator notice for a checkout.
func captainReservation(name, phone string, c cart.Cart, policy catalog.FlexPolicy) string {
	phone = whatsapp.NormalizePhone(phone)
	res, _ := c.Reservation()
	var b strings.Builder
	b.WriteString("🚨 *Nueva Reserva Confirmada*\n\n")
	fmt.Fprintf(&b, "👤 *Cliente:* %s\n", displayName(name))
	fmt.Fprintf(&b, "📱 *Teléfono:* +%s\n\n", phone)
	fmt.Fprintf(&b, "📅 *Fecha:* %s\n", res.Metadata[cart.MetaDate])
	fmt.Fprintf(&b, "🕐 *Hora:* %s\n", res.Metadata[cart.MetaTime])
	fmt.Fprintf(&b, "👥 *Personas:* %d\n\n", res.Quantity)

	if extras := c.Extras(); len(extras) > 0 || c.Flex {
		b.WriteString("✨ *Extras:*\n")
		for _, e := range extras {
			fmt.Fprintf(&b, "   • %s (%s)\n", quantityName(e), cart.Money(e.Subtotal()))
		}
		if c.Flex {
			fmt.Fprintf(&b, "   • %s (%s)\n", catalog.FlexLineName, cart.Money(c.FlexAmount(policy)))
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "💰 *Total:* %s\n\n", cart.Money(c.Total(policy)))
	b.WriteString("🔗 *Responder al cliente:*\n")
	b.WriteString("https://wa.me/" + phone)
	return b.String()
}

// captainCallRequest is the operator notice for a human hand-off.
func captainCallRequest(name, phone string) string {
	phone = whatsapp.NormalizePhone(phone)
	return fmt.Sprintf("📞 *Solicitud de Contacto*\n\n"+
		"👤 *Cliente:* %s\n"+
		"📱 *Teléfono:* +%s\n\n"+
		"El cliente solicitó hablar con el Capitán Tomás 👨‍✈️\n\n"+
		"🔗 *Contactar al cliente:*\nhttps://wa.me/%s", displayName(name), phone, phone)
}

func aiUnavailable(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return fmt.Sprintf("Hola %s 👋 Gracias por contactarnos. ¿En qué puedo ayudarte con Hot Boat?", name)
	}
	return "Hola 👋 Gracias por contactarnos. ¿En qué puedo ayudarte con Hot Boat?"
}

func quantityName(it cart.Item) string {
	if it.Quantity > 1 {
		return fmt.Sprintf("%dx %s", it.Quantity, it.Name)
	}
	return it.Name
}

func displayName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "Sin nombre"
}

func timeLabels(hours []int) []string {
	out := make([]string, len(hours))
	for i, h := range hours {
		out[i] = dateparse.TimeLabel(h)
	}
	return out
}
