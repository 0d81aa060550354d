// Package lodging describes the partner accommodations offered with a trip
// and renders them as an ordered text and image payload.
package lodging

import (
	"fmt"
	"strings"

	"github.com/hotboat/whatsapp-bot/internal/cart"
	"github.com/hotboat/whatsapp-bot/internal/stringutil"
)

// ModuleName identifies the module in logs and metrics.
const ModuleName = "lodging"

// MediaKind tells the delivery layer how to send an item.
type MediaKind string

// Media kinds.
const (
	KindText  MediaKind = "text"
	KindImage MediaKind = "image"
)

// MediaItem is one outbound message of a structured reply.
type MediaItem struct {
	Kind     MediaKind
	Text     string // KindText body
	ImageURL string // KindImage link
	Caption  string // KindImage caption, sent as text when the image fails
}

// Option is a bookable accommodation.
type Option struct {
	Key           string
	Name          string
	Description   string
	PricePerNight int
	Capacity      int
	PerPerson     bool
	Features      []string
}

// Images maps option keys to public HTTPS image URLs.
type Images map[string]string

// DefaultImages are used when no URLs are configured.
var DefaultImages = Images{
	"open_sky_domo_bath":         "https://hotboatchile.com/images/open-sky-domo-bath.jpg",
	"open_sky_domo_hydromassage": "https://hotboatchile.com/images/open-sky-domo-hydromassage.jpg",
	"relikura_cabin_2":           "https://hotboatchile.com/images/relikura-cabin-2.jpg",
	"relikura_cabin_4":           "https://hotboatchile.com/images/relikura-cabin-4.jpg",
	"relikura_cabin_6":           "https://hotboatchile.com/images/relikura-cabin-6.jpg",
	"relikura_hostel":            "https://hotboatchile.com/images/relikura-hostel.jpg",
}

var (
	openSky = []Option{
		{
			Key:           "open_sky_domo_bath",
			Name:          "Open Sky - Domo con Tina de Baño",
			Description:   "Domo transparente con vista a las estrellas, perfecto para parejas románticas 🌌",
			PricePerNight: 100000,
			Capacity:      2,
			Features:      []string{"Domo transparente", "Tina de baño interior", "Vista a las estrellas", "Experiencia romántica"},
		},
		{
			Key:           "open_sky_domo_hydromassage",
			Name:          "Open Sky - Domo con Hidromasaje",
			Description:   "Domo transparente con hidromasaje interior, la experiencia más exclusiva 🌟",
			PricePerNight: 120000,
			Capacity:      2,
			Features:      []string{"Domo transparente", "Hidromasaje interior", "Vista a las estrellas", "Experiencia premium"},
		},
	}
	relikura = []Option{
		{
			Key:           "relikura_cabin_2",
			Name:          "Raíces de Relikura - Cabaña 2 personas",
			Description:   "Cabaña junto al río, con tinaja y entorno natural perfecto para parejas 🌿",
			PricePerNight: 60000,
			Capacity:      2,
			Features:      []string{"Cabaña junto al río", "Tinaja exterior", "Entorno natural", "Ideal para parejas"},
		},
		{
			Key:           "relikura_cabin_4",
			Name:          "Raíces de Relikura - Cabaña 4 personas",
			Description:   "Cabaña espaciosa junto al río, ideal para familias pequeñas 🏡",
			PricePerNight: 80000,
			Capacity:      4,
			Features:      []string{"Cabaña junto al río", "Tinaja exterior", "Entorno natural", "Ideal para familias"},
		},
		{
			Key:           "relikura_cabin_6",
			Name:          "Raíces de Relikura - Cabaña 6 personas",
			Description:   "Cabaña grande junto al río, perfecta para grupos y familias grandes 👨‍👩‍👧‍👦",
			PricePerNight: 100000,
			Capacity:      6,
			Features:      []string{"Cabaña junto al río", "Tinaja exterior", "Entorno natural", "Ideal para grupos"},
		},
		{
			Key:           "relikura_hostel",
			Name:          "Raíces de Relikura - Hostal",
			Description:   "Hostal económico junto al río, con tinaja y actividades 🎒",
			PricePerNight: 20000,
			Capacity:      1,
			PerPerson:     true,
			Features:      []string{"Hostal económico", "Tinaja compartida", "Entorno natural", "Actividades disponibles"},
		},
	}
)

// Options returns every accommodation in display order.
func Options() []Option {
	return append(append([]Option(nil), openSky...), relikura...)
}

// keywords are folded; "domo" and "open sky" name the partners directly.
var keywords = []string{
	"alojamiento", "hotel", "cabana", "donde quedarse", "donde hospedarse",
	"hospedaje", "hostal", "domo", "open sky", "relikura", "donde dormir",
}

// Matches reports whether text asks about accommodation.
func Matches(text string) bool {
	return stringutil.ContainsAny(stringutil.Normalize(text), keywords...)
}

// Caption renders the image caption of an option.
func (o Option) Caption() string {
	price := fmt.Sprintf("💰 %s / noche (%d pers.)", cart.Money(o.PricePerNight), o.Capacity)
	if o.PerPerson {
		price = fmt.Sprintf("💰 %s / noche por persona", cart.Money(o.PricePerNight))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n\n%s\n\n%s\n", o.Name, o.Description, price)
	for _, f := range o.Features {
		b.WriteString("\n• ")
		b.WriteString(f)
	}
	return b.String()
}

// Intro is the text reply that precedes the images.
const Intro = "🌊🔥 *HotBoat + Alojamiento en Pucón*\n\n" +
	"Arma tu experiencia a tu medida con HotBoat y nuestros alojamientos recomendados 👇"

// Payload returns the ordered messages describing every accommodation.
// Options without an image URL are sent as text.
func Payload(images Images) []MediaItem {
	if images == nil {
		images = DefaultImages
	}
	items := []MediaItem{
		{Kind: KindText, Text: "⭐ *Open Sky* – Para parejas románticas\nDomos transparentes con vista a las estrellas 🌌"},
	}
	items = appendOptions(items, openSky, images)
	items = append(items, MediaItem{
		Kind: KindText,
		Text: "🌿 *Raíces de Relikura* – Familiar con actividades\nHostal y cabañas junto al río, con tinaja y entorno natural 🍃",
	})
	items = appendOptions(items, relikura, images)
	items = append(items, MediaItem{
		Kind: KindText,
		Text: "📌 *Cómo funciona:*\n1. Me dices la fecha y la opción de alojamiento\n" +
			"2. Te confirmo disponibilidad\n3. Pagas todo en un solo link y quedas reservado\n\n" +
			"📲 Responde este mensaje con la fecha y alojamiento que prefieras",
	})
	return items
}

func appendOptions(items []MediaItem, opts []Option, images Images) []MediaItem {
	for _, o := range opts {
		url := images[o.Key]
		if url == "" {
			items = append(items, MediaItem{Kind: KindText, Text: o.Caption()})
			continue
		}
		items = append(items, MediaItem{Kind: KindImage, ImageURL: url, Caption: o.Caption()})
	}
	return items
}
