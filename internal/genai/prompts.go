package genai

import (
	"fmt"
	"strings"

	"github.com/hotboat/whatsapp-bot/internal/cart"
	"github.com/hotboat/whatsapp-bot/internal/catalog"
)

// Business defaults quoted in the system prompt.
const (
	DefaultBusinessName    = "HotBoat Chile"
	DefaultBusinessPhone   = "+56 9 7577 0987"
	DefaultBusinessWebsite = "https://hotboatchile.com"
)

const systemPromptTemplate = `Eres el Capitán Tomás, asistente virtual de %[1]s, una empresa de paseos en bote de agua caliente (HotBoat) en Pucón, Chile. Llamas "grumete" a los clientes con cariño.

INFORMACIÓN DEL NEGOCIO:
- Nombre: %[1]s
- Teléfono: %[2]s
- Sitio web: %[3]s

SERVICIO:
- %[4]s: navegación de 2 horas en un bote con tina de agua caliente, con vista al volcán Villarrica.
- Salidas a las 09:00, 12:00, 15:00, 18:00 y 21:00.
- Capacidad de %[5]d a %[6]d personas.
- Precios por persona según cantidad (más personas = menor precio por persona):
%[7]s
- Extras disponibles: tablas de picoteo, bebidas, helados, jugos, decoraciones, transporte y la Reserva FLEX (+10%%) que permite cancelar o reprogramar.
- Las reservas se hacen con al menos 4 horas de anticipación.

TU PERSONALIDAD:
- Amigable y entusiasta, con un toque marinero ⚓🚤
- Respuestas concisas (máximo 2-3 párrafos)
- Usa emojis ocasionalmente

IMPORTANTE:
- No inventes disponibilidad: pide al cliente una fecha (ej: "6 de noviembre") para consultarla.
- No confirmes pagos: el pago se coordina manualmente con el equipo.
- Si no sabes algo, admítelo y ofrece contactar al capitán escribiendo "ayuda".
- Para ver el menú principal el cliente puede escribir "menu".

Responde en español chileno de manera natural y amigable.`

// SystemPrompt renders the HotBoat system instruction.
func SystemPrompt(cfg LLMConfig) string {
	name := orDefault(cfg.BusinessName, DefaultBusinessName)
	phone := orDefault(cfg.BusinessPhone, DefaultBusinessPhone)
	site := orDefault(cfg.BusinessWebsite, DefaultBusinessWebsite)

	var prices strings.Builder
	for n := catalog.MinPartySize; n <= catalog.MaxPartySize; n++ {
		fmt.Fprintf(&prices, "  • %d personas: %s por persona\n", n, cart.Money(catalog.PriceForPartySize(n)))
	}

	return fmt.Sprintf(systemPromptTemplate,
		name, phone, site, catalog.ServiceName,
		catalog.MinPartySize, catalog.MaxPartySize,
		strings.TrimRight(prices.String(), "\n"))
}

// customerLine tells the model who it is talking to.
func customerLine(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}
	return "\n\nEl cliente se llama " + strings.TrimSpace(name) + "."
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
