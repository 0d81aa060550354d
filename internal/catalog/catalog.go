// Package catalog holds the HotBoat price list: per-person trip pricing,
// the add-on extras with their Spanish synonyms, and the flex surcharge policy.
package catalog

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hotboat/whatsapp-bot/internal/stringutil"
)

// Party size bounds for one trip.
const (
	MinPartySize = 2
	MaxPartySize = 7
)

// DefaultPricePerPerson applies when the party size is outside the table.
const DefaultPricePerPerson = 69990

// ServiceName is the display name of the boat trip service.
const ServiceName = "HotBoat Trip"

var pricesPerPerson = map[int]int{
	2: 69990,
	3: 54990,
	4: 44990,
	5: 38990,
	6: 32990,
	7: 29990,
}

// PriceForPartySize returns the per-person price for a party of n.
func PriceForPartySize(n int) int {
	if p, ok := pricesPerPerson[n]; ok {
		return p
	}
	return DefaultPricePerPerson
}

// ValidPartySize reports whether n people fit on the boat.
func ValidPartySize(n int) bool {
	return n >= MinPartySize && n <= MaxPartySize
}

// Extra is a purchasable add-on.
type Extra struct {
	Key    string // Stable identifier, e.g. "tabla_grande"
	Name   string // Display name stored on the cart line
	Price  int    // Whole CLP
	Number int    // Position in the numbered extras menu (1-17)

	// NeedsFlavor marks the generic ice cream that must be resolved
	// into a flavoured variant before it is added.
	NeedsFlavor bool

	// Flex marks the cancellation surcharge, which is a cart adjustment
	// rather than a line item.
	Flex bool
}

// Extras in menu order.
var (
	TablaGrande   = Extra{Key: "tabla_grande", Name: "Tabla de Picoteo Grande (4 personas)", Price: 25000, Number: 1}
	TablaPequena  = Extra{Key: "tabla_pequena", Name: "Tabla de Picoteo Pequeña (2 personas)", Price: 20000, Number: 2}
	JugoNatural   = Extra{Key: "jugo_natural", Name: "Jugo Natural 1L", Price: 10000, Number: 3}
	LataBebida    = Extra{Key: "lata_bebida", Name: "Lata Bebida (Coca-Cola o Fanta)", Price: 2900, Number: 4}
	AguaMineral   = Extra{Key: "agua_mineral", Name: "Agua Mineral 1.5L", Price: 2500, Number: 5}
	Helado        = Extra{Key: "helado", Name: "Helado Individual", Price: 3500, Number: 6, NeedsFlavor: true}
	ModoRomantico = Extra{Key: "modo_romantico", Name: "Modo Romántico", Price: 25000, Number: 7}
	Velas         = Extra{Key: "velas", Name: "Velas LED Decorativas", Price: 10000, Number: 8}
	Letras        = Extra{Key: "letras", Name: "Letras Luminosas 'Te Amo' / 'Love'", Price: 15000, Number: 9}
	PackNocturno  = Extra{Key: "pack_nocturno", Name: "Pack Nocturno Completo (velas + letras)", Price: 20000, Number: 10}
	Video15       = Extra{Key: "video_15", Name: "Video Personalizado 15s", Price: 30000, Number: 11}
	Video60       = Extra{Key: "video_60", Name: "Video Personalizado 60s", Price: 40000, Number: 12}
	Transporte    = Extra{Key: "transporte", Name: "Transporte Ida y Vuelta desde Pucón", Price: 50000, Number: 13}
	ToallaNormal  = Extra{Key: "toalla_normal", Name: "Toalla Normal", Price: 9000, Number: 14}
	ToallaPoncho  = Extra{Key: "toalla_poncho", Name: "Toalla Poncho", Price: 10000, Number: 15}
	Chalas        = Extra{Key: "chalas", Name: "Chalas de Ducha", Price: 10000, Number: 16}
	ReservaFlex   = Extra{Key: "reserva_flex", Name: FlexLineName, Price: 0, Number: 17, Flex: true}
)

var menu = []Extra{
	TablaGrande, TablaPequena, JugoNatural, LataBebida, AguaMineral, Helado,
	ModoRomantico, Velas, Letras, PackNocturno, Video15, Video60,
	Transporte, ToallaNormal, ToallaPoncho, Chalas, ReservaFlex,
}

// ExtraByNumber resolves a numbered extras menu selection.
func ExtraByNumber(n int) (Extra, bool) {
	if n < 1 || n > len(menu) {
		return Extra{}, false
	}
	return menu[n-1], true
}

// MenuSize is the highest valid extras menu number.
func MenuSize() int { return len(menu) }

// Flavor is an ice cream variant.
type Flavor struct {
	Number int
	Label  string
}

// Ice cream flavours.
var (
	FlavorCookies   = Flavor{Number: 1, Label: "Cookies & Cream"}
	FlavorFrambuesa = Flavor{Number: 2, Label: "Frambuesa a la Crema con Chocolate Belga"}
)

// WithFlavor returns the ice cream extra for a flavour.
func WithFlavor(f Flavor) Extra {
	e := Helado
	e.Key = Helado.Key + "_" + strings.ToLower(strings.Fields(f.Label)[0])
	e.Name = Helado.Name + " (" + f.Label + ")"
	e.NeedsFlavor = false
	return e
}

// ParseFlavor resolves a flavour answer ("1", "dos", "cookies", "frambuesa").
func ParseFlavor(text string) (Flavor, bool) {
	t := stringutil.Normalize(text)
	switch t {
	case "1", "uno", "cookies", "cream", "cookies & cream", "cookies and cream":
		return FlavorCookies, true
	case "2", "dos", "frambuesa", "chocolate", "frambuesa chocolate":
		return FlavorFrambuesa, true
	}
	switch {
	case strings.Contains(t, "cookies"):
		return FlavorCookies, true
	case strings.Contains(t, "frambuesa"):
		return FlavorFrambuesa, true
	}
	return Flavor{}, false
}

// FlexLineName is the persisted name of the surcharge line.
const FlexLineName = "Reserva FLEX (+10%)"

// FlexPolicy computes the cancellation surcharge on the reservation subtotal.
type FlexPolicy struct {
	Percent int
}

// DefaultFlex is the surcharge applied by the HotBoat cart.
var DefaultFlex = FlexPolicy{Percent: 10}

// Amount returns round(Percent% of reservationSubtotal).
func (p FlexPolicy) Amount(reservationSubtotal int) int {
	if reservationSubtotal <= 0 || p.Percent <= 0 {
		return 0
	}
	return int(math.Round(float64(reservationSubtotal) * float64(p.Percent) / 100))
}

// synonym binds folded text to an extra. Higher rank wins; among equal
// ranks the longer synonym wins, then declaration order.
type synonym struct {
	text  string
	rank  int
	extra Extra
	order int
}

const (
	rankGeneric  = 0
	rankNamed    = 1
	rankSpecific = 2
)

var synonyms = buildSynonyms([]synonym{
	{text: "tabla grande", rank: rankSpecific, extra: TablaGrande},
	{text: "tabla 4 personas", rank: rankSpecific, extra: TablaGrande},
	{text: "tabla para 4", rank: rankSpecific, extra: TablaGrande},
	{text: "tabla pequena", rank: rankSpecific, extra: TablaPequena},
	{text: "tabla chica", rank: rankSpecific, extra: TablaPequena},
	{text: "tabla 2 personas", rank: rankSpecific, extra: TablaPequena},
	{text: "tabla para 2", rank: rankSpecific, extra: TablaPequena},
	{text: "tabla", rank: rankGeneric, extra: TablaPequena},
	{text: "picoteo", rank: rankGeneric, extra: TablaPequena},
	{text: "jugo natural", rank: rankSpecific, extra: JugoNatural},
	{text: "jugo", rank: rankNamed, extra: JugoNatural},
	{text: "lata bebida", rank: rankSpecific, extra: LataBebida},
	{text: "bebida", rank: rankNamed, extra: LataBebida},
	{text: "lata", rank: rankNamed, extra: LataBebida},
	{text: "coca", rank: rankNamed, extra: LataBebida},
	{text: "fanta", rank: rankNamed, extra: LataBebida},
	{text: "agua mineral", rank: rankSpecific, extra: AguaMineral},
	{text: "agua", rank: rankNamed, extra: AguaMineral},
	{text: "helado", rank: rankNamed, extra: Helado},
	{text: "modo romantico", rank: rankSpecific, extra: ModoRomantico},
	{text: "romantico", rank: rankNamed, extra: ModoRomantico},
	{text: "petalos", rank: rankNamed, extra: ModoRomantico},
	{text: "pack nocturno", rank: rankSpecific, extra: PackNocturno},
	{text: "pack completo", rank: rankSpecific, extra: PackNocturno},
	{text: "velas", rank: rankNamed, extra: Velas},
	{text: "letras", rank: rankNamed, extra: Letras},
	{text: "video 15", rank: rankSpecific, extra: Video15},
	{text: "video de 15", rank: rankSpecific, extra: Video15},
	{text: "video 60", rank: rankSpecific, extra: Video60},
	{text: "video de 60", rank: rankSpecific, extra: Video60},
	{text: "video", rank: rankGeneric, extra: Video15},
	{text: "transporte", rank: rankNamed, extra: Transporte},
	{text: "traslado", rank: rankNamed, extra: Transporte},
	{text: "toalla poncho", rank: rankSpecific, extra: ToallaPoncho},
	{text: "poncho", rank: rankNamed, extra: ToallaPoncho},
	{text: "toalla normal", rank: rankSpecific, extra: ToallaNormal},
	{text: "toalla", rank: rankGeneric, extra: ToallaNormal},
	{text: "chalas", rank: rankNamed, extra: Chalas},
	{text: "sandalias", rank: rankNamed, extra: Chalas},
	{text: "reserva flex", rank: rankSpecific, extra: ReservaFlex},
	{text: "flex", rank: rankNamed, extra: ReservaFlex},
})

func buildSynonyms(in []synonym) []synonym {
	for i := range in {
		in[i].order = i
	}
	slices.SortStableFunc(in, func(a, b synonym) int {
		if a.rank != b.rank {
			return b.rank - a.rank
		}
		if len(a.text) != len(b.text) {
			return len(b.text) - len(a.text)
		}
		return a.order - b.order
	})
	return in
}

// LookupExtra finds the most specific extra mentioned in text.
func LookupExtra(text string) (Extra, bool) {
	t := stringutil.Normalize(text)
	for _, s := range synonyms {
		if strings.Contains(t, s.text) {
			return s.extra, true
		}
	}
	return Extra{}, false
}

// Mention is one extra found in free text with its quantity.
type Mention struct {
	Extra    Extra
	Quantity int
}

// ExtractExtras finds every extra mentioned in text in reading order,
// honouring a leading quantity ("2 jugos", "3x helado"). Spans claimed by a
// more specific synonym are not matched again by a generic one.
func ExtractExtras(text string) []Mention {
	t := stringutil.DigitizeNumbers(stringutil.Normalize(text))
	type hit struct {
		start, end int
		m          Mention
	}
	var hits []hit
	claimed := make([]bool, len(t))

	for _, s := range synonyms {
		from := 0
		for {
			idx := strings.Index(t[from:], s.text)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(s.text)
			from = end
			if !wordBoundary(t, start, end) || overlaps(claimed, start, end) {
				continue
			}
			qty, qStart := leadingQuantity(t, start)
			for i := qStart; i < end; i++ {
				claimed[i] = true
			}
			hits = append(hits, hit{start: qStart, end: end, m: Mention{Extra: s.extra, Quantity: qty}})
		}
	}

	slices.SortFunc(hits, func(a, b hit) int { return a.start - b.start })
	out := make([]Mention, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.m)
	}
	return out
}

func overlaps(claimed []bool, start, end int) bool {
	return slices.Contains(claimed[start:end], true)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// wordBoundary allows a plural "s" or "es" after the synonym.
func wordBoundary(t string, start, end int) bool {
	if r, _ := utf8.DecodeLastRuneInString(t[:start]); start > 0 && isWordRune(r) {
		return false
	}
	rest := t[end:]
	if after, ok := strings.CutPrefix(rest, "es"); ok {
		rest = after
	} else {
		rest = strings.TrimPrefix(rest, "s")
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return rest == "" || !isWordRune(r)
}

// leadingQuantity parses "2 ", "2x ", "2 x ", "2 de ", "2 por " before start
// and returns the quantity with the position where it begins.
func leadingQuantity(t string, start int) (int, int) {
	head := strings.TrimRight(t[:start], " ")
	head = strings.TrimRight(strings.TrimSuffix(head, " de"), " ")
	if h, ok := strings.CutSuffix(head, "por"); ok {
		head = strings.TrimRight(h, " ")
	} else if h, ok := strings.CutSuffix(head, "x"); ok {
		head = strings.TrimRight(h, " ")
	}

	j := len(head)
	for j > 0 && head[j-1] >= '0' && head[j-1] <= '9' {
		j--
	}
	if j == len(head) {
		return 1, start
	}
	if r, _ := utf8.DecodeLastRuneInString(head[:j]); j > 0 && isWordRune(r) {
		return 1, start
	}
	n, err := strconv.Atoi(head[j:])
	if err != nil || n <= 0 || n > 50 {
		return 1, start
	}
	return n, j
}
