// Package faq answers frequent questions from a fixed keyword table.
package faq

import (
	"fmt"
	"strings"

	"github.com/hotboat/whatsapp-bot/internal/cart"
	"github.com/hotboat/whatsapp-bot/internal/catalog"
	"github.com/hotboat/whatsapp-bot/internal/stringutil"
)

// ModuleName identifies the module in logs and metrics.
const ModuleName = "faq"

// Topic names an answer.
type Topic string

// Topics.
const (
	TopicFeatures     Topic = "caracteristicas"
	TopicPricing      Topic = "precio"
	TopicLocation     Topic = "ubicacion"
	TopicBring        Topic = "traer"
	TopicSeason       Topic = "clima"
	TopicContact      Topic = "contacto"
	TopicCancellation Topic = "cancelar"
	TopicExtras       Topic = "extras"
	TopicLodging      Topic = "alojamiento"
)

// entry maps folded keywords to a topic. Entries are matched in order and
// the first keyword contained in the message wins.
type entry struct {
	topic    Topic
	keywords []string
}

var entries = []entry{
	{TopicFeatures, []string{"caracteristicas", "en que consiste", "incluye", "info", "informacion", "dura", "duracion", "tiempo"}},
	{TopicPricing, []string{"precio", "valor", "valores", "cuanto cuesta", "cuanto sale", "cuanto vale"}},
	{TopicLocation, []string{"ubicacion", "donde", "donde estan", "como llegar"}},
	{TopicBring, []string{"traer", "llevar"}},
	{TopicSeason, []string{"clima", "temporada", "invierno", "verano"}},
	{TopicContact, []string{"contacto", "telefono", "correo", "email"}},
	{TopicCancellation, []string{"cancelar", "cancelacion", "reembolso", "reprogramar"}},
	{TopicExtras, []string{
		"extras", "tablas", "picoteo", "bebestibles", "alcohol", "rosas", "romantico",
		"cumpleanos", "iluminacion", "transporte", "toallas", "chalas", "servicios extra",
	}},
	{TopicLodging, []string{
		"alojamiento", "alojamientos", "hotel", "hoteles", "cabanas", "donde quedarse",
		"donde hospedarse", "hospedaje", "hostal",
	}},
}

var answers = map[Topic]string{
	TopicFeatures: `Estas son las características de la experiencia HotBoat 🚤🔥:

⚡ Motor eléctrico (silencioso y sustentable)
⏱️ Duración: 2 horas
🔥 Tú eliges la temperatura del agua (antes y durante el paseo)
🛥️ Fácil de navegar → ¡puedes manejarlo tú mismo!
🎶 Escucha tu propia música con parlante bluetooth + bolsas impermeables
🎥 Video cinematográfico de tu aventura disponible
🍹 ¡Disfruta bebestibles a bordo del HotBoat! Se mantendrán fríos en el cooler.
🧺 Opción de tablas de picoteo a bordo
🧼 Se limpia antes de cada uso, siempre impecable

¿Te gustaría reservar tu experiencia?`,

	TopicPricing: pricingAnswer(),

	TopicLocation: `📍 *Ubicación HotBoat:*

📍 Estamos entre Pucón y Curarrehue, en pleno corazón de La Araucanía 🌿

🗺️ Mira fotos, ubicación y más de 100 reseñas ⭐⭐⭐⭐⭐ de nuestros navegantes que vivieron la experiencia HotBoat!
https://maps.app.goo.gl/jVYVHRzekkmFRjEH7

🚗 Fácil acceso 100% pavimentado desde:
• Pucón: 25 min
• Villarrica centro: 50 min
• Temuco: 2 horas

¿Te gustaría reservar tu experiencia?`,

	TopicBring: `🎒 *¿Qué traer?*

📋 Recomendamos:
• Traje de baño 🩱
• Protector solar ☀️
• Lentes de sol 🕶️
• Ropa cómoda y una chaqueta
• Ganas de pasarlo bien 🎉

✅ Nosotros proporcionamos:
• Chalecos salvavidas
• Equipo de seguridad
• Instrucciones de navegación

¿Te gustaría reservar tu experiencia?`,

	TopicSeason: `🌤️ *Temporada:*

Navegamos todo el año 🔥 El agua caliente hace que el HotBoat se disfrute igual en invierno ❄️ que en verano ☀️

Con mal clima reprogramamos sin costo.

¿Para qué fecha te interesa?`,

	TopicContact: `📞 *Contáctanos:*

🌐 Web: https://hotboatchile.com
📍 Entre Pucón y Curarrehue, La Araucanía, Chile

Escribe *ayuda* y el Capitán Tomás te contactará personalmente ⚓`,

	TopicCancellation: `🔄 *Política de cancelación:*

• Cancelación gratuita hasta 48h antes
• Entre 24-48h: 50% de reembolso
• Menos de 24h: No reembolsable

⛈️ Mal clima: Reprogramamos sin costo

🔒 Con la *Reserva FLEX (+10%)* puedes cancelar o reprogramar cuando quieras.

¿Necesitas más información?`,

	TopicExtras: extrasAnswer(),

	TopicLodging: `🌊🔥 *HotBoat + Alojamiento en Pucón*

Arma tu experiencia a tu medida con HotBoat y nuestros alojamientos recomendados.

⭐ *Open Sky* – Para parejas románticas
Domos transparentes con vista a las estrellas 🌌

💰 $100.000 / noche – Domo con tina de baño interior (2 pers.)
💰 $120.000 / noche – Domo con hidromasaje interior (2 pers.)

🌿 *Raíces de Relikura* – Familiar con actividades
Hostal y cabañas junto al río, con tinaja y entorno natural 🍃

📲 Responde este mensaje con la fecha y alojamiento que prefieras`,
}

// Lookup returns the answer for the first keyword contained in text.
func Lookup(text string) (Topic, string, bool) {
	t := stringutil.Normalize(text)
	if t == "" {
		return "", "", false
	}
	for _, e := range entries {
		for _, kw := range e.keywords {
			if strings.Contains(t, kw) {
				return e.topic, answers[e.topic], true
			}
		}
	}
	return "", "", false
}

// Answer returns the canned text of a topic.
func Answer(topic Topic) string {
	return answers[topic]
}

func pricingAnswer() string {
	var b strings.Builder
	b.WriteString("💰 *Precios HotBoat:*\n\n")
	b.WriteString("Personas | Precio x Persona | Total\n")
	b.WriteString("———————————————————\n")
	for n := catalog.MinPartySize; n <= catalog.MaxPartySize; n++ {
		price := catalog.PriceForPartySize(n)
		fmt.Fprintf(&b, "%d        | %s          | %s\n", n, cart.Money(price), cart.Money(price*n))
	}
	b.WriteString("\n*niños pagan desde los 6 años\n\n")
	b.WriteString("Aquí puedes reservar tu horario directo 👇\nhttps://hotboatchile.com/es/book-hotboat/")
	return b.String()
}

func extrasAnswer() string {
	var b strings.Builder
	b.WriteString("✨ *Servicios Extra:*\n\n¿Quieres agregar algo especial a tu HotBoat?\n\n")
	for n := 1; n <= catalog.MenuSize(); n++ {
		e, _ := catalog.ExtraByNumber(n)
		if e.Flex {
			fmt.Fprintf(&b, "%d. 🔒 %s → cancela/reprograma cuando quieras\n", n, e.Name)
			continue
		}
		fmt.Fprintf(&b, "%d. %s → %s\n", n, e.Name, cart.Money(e.Price))
	}
	b.WriteString("\nResponde con el número o escribe *agregar* + el extra 🛒")
	return b.String()
}
