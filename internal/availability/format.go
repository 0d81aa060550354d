package availability

import (
	"fmt"
	"strings"
)

// NoSlotsMessage is shown when nothing can be offered.
const NoSlotsMessage = "😔 Por ahora no tenemos horarios disponibles en esas fechas.\n\n" +
	"Escríbenos otra fecha o escribe *ayuda* y el Capitán Tomás te contactará ⚓"

// CheckFailedMessage is shown when a requested departure cannot be verified.
const CheckFailedMessage = "⚓ No pude confirmar si esa salida sigue libre, grumete.\n\n" +
	"Intenta de nuevo en unos minutos o escribe *ayuda* y el Capitán Tomás te contactará 🚤"

// Group splits ascending slots by calendar date, preserving order.
func Group(slots []Slot) [][]Slot {
	var groups [][]Slot
	for _, s := range slots {
		n := len(groups)
		if n > 0 && dayKey(groups[n-1][0].Date) == dayKey(s.Date) {
			groups[n-1] = append(groups[n-1], s)
			continue
		}
		groups = append(groups, []Slot{s})
	}
	return groups
}

// Format renders slots grouped by date, showing at most maxDates dates and
// an overflow line for the rest. maxDates <= 0 shows every date.
func Format(slots []Slot, maxDates int) string {
	if len(slots) == 0 {
		return NoSlotsMessage
	}
	groups := Group(slots)
	shown := groups
	if maxDates > 0 && len(groups) > maxDates {
		shown = groups[:maxDates]
	}

	var b strings.Builder
	b.WriteString("📅 *Horarios disponibles HotBoat*\n")
	for _, g := range shown {
		b.WriteString("\n🗓️ *")
		b.WriteString(g[0].DateLabel())
		b.WriteString("*\n")
		labels := make([]string, len(g))
		for i, s := range g {
			labels[i] = s.TimeLabel()
		}
		b.WriteString("⏰ ")
		b.WriteString(strings.Join(labels, " | "))
		b.WriteString("\n")
	}
	if rest := len(groups) - len(shown); rest > 0 {
		if rest == 1 {
			b.WriteString("\n... y 1 fecha más\n")
		} else {
			fmt.Fprintf(&b, "\n... y %d fechas más\n", rest)
		}
	}
	b.WriteString("\n¿Qué fecha y horario prefieres? (ej: 15 de noviembre a las 15:00)")
	return b.String()
}

// FormatDay renders the free hours of one date.
func FormatDay(slots []Slot) string {
	if len(slots) == 0 {
		return NoSlotsMessage
	}
	labels := make([]string, len(slots))
	for i, s := range slots {
		labels[i] = s.TimeLabel()
	}
	return fmt.Sprintf("✅ *El %s tenemos cupos disponibles.*\n\n⏰ Horarios: %s\n\n¿Qué horario prefieres? (ej: 15:00)",
		slots[0].DateLabel(), strings.Join(labels, ", "))
}
