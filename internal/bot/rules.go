package bot

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/hotboat/whatsapp-bot/internal/catalog"
	"github.com/hotboat/whatsapp-bot/internal/modules/faq"
	"github.com/hotboat/whatsapp-bot/internal/modules/lodging"
	"github.com/hotboat/whatsapp-bot/internal/stringutil"
)

// Rule is one step of the cascade. Match must not change state.
type Rule struct {
	Name   string
	Match  func(ctx context.Context, t *Turn) bool
	Handle func(ctx context.Context, t *Turn) (Reply, error)
}

// Rule names, also used as the intent metric label.
const (
	RuleWelcome           = "welcome"
	RuleAwaitingPartySize = "awaiting_party_size"
	RuleAwaitingDate      = "awaiting_date"
	RuleAwaitingTime      = "awaiting_time"
	RuleAwaitingFlavor    = "awaiting_flavor"
	RuleAwaitingExtra     = "awaiting_extra"
	RuleGlobalShortcut    = "global_shortcut"
	RuleCartOption        = "cart_option"
	RuleMainMenu          = "main_menu"
	RuleAccommodation     = "accommodation"
	RuleReservationIntent = "reservation_intent"
	RuleCartCommand       = "cart_command"
	RuleHumanHelp         = "human_help"
	RuleFAQ               = "faq"
	RuleAvailability      = "availability"
	RuleConfirmation      = "confirmation"
	RuleDateTimeOnly      = "date_time_only"
	RuleFullReservation   = "full_reservation"
	RuleCartHelp          = "cart_help"
	RuleAIFallback        = "ai_fallback"
)

func (d *Dialogue) buildRules() []Rule {
	return []Rule{
		{Name: RuleWelcome, Match: isFirstContact, Handle: d.handleWelcome},
		{Name: RuleAwaitingPartySize, Match: awaitingPartySize, Handle: d.handlePartySize},
		{Name: RuleAwaitingDate, Match: awaitingDate, Handle: d.handleDateAnswer},
		{Name: RuleAwaitingTime, Match: awaitingTime, Handle: d.handleTimeAnswer},
		{Name: RuleAwaitingFlavor, Match: awaitingFlavor, Handle: d.handleFlavorAnswer},
		{Name: RuleAwaitingExtra, Match: awaitingExtra, Handle: d.handleExtraSelection},
		{Name: RuleGlobalShortcut, Match: isShortcut, Handle: d.handleShortcut},
		{Name: RuleCartOption, Match: d.isCartOption, Handle: d.handleCartOption},
		{Name: RuleMainMenu, Match: isMenuChoice, Handle: d.handleMainMenu},
		{Name: RuleAccommodation, Match: asksAccommodation, Handle: d.handleAccommodation},
		{Name: RuleReservationIntent, Match: wantsToReserve, Handle: d.handleReservationIntent},
		{Name: RuleCartCommand, Match: d.isCartCommand, Handle: d.handleCartCommand},
		{Name: RuleHumanHelp, Match: asksForHuman, Handle: d.handleHumanHelp},
		{Name: RuleFAQ, Match: isFAQ, Handle: d.handleFAQ},
		{Name: RuleAvailability, Match: asksAvailability, Handle: d.handleAvailability},
		{Name: RuleConfirmation, Match: isConfirmation, Handle: d.handleConfirmation},
		{Name: RuleDateTimeOnly, Match: hasDateTimeOnly, Handle: d.handleDateTimeOnly},
		{Name: RuleFullReservation, Match: hasFullReservation, Handle: d.handleFullReservation},
		{Name: RuleCartHelp, Match: asksCartHelp, Handle: d.handleCartHelp},
		{Name: RuleAIFallback, Match: always, Handle: d.handleFallback},
	}
}

func isFirstContact(_ context.Context, t *Turn) bool {
	return !t.Conv.HasUserMessages()
}

func awaitingPartySize(_ context.Context, t *Turn) bool {
	return t.Meta().AwaitingPartySize
}

// Shortcuts escape the date, time, flavour and extras questions.
func awaitingDate(_ context.Context, t *Turn) bool {
	return t.Meta().AwaitingDate && shortcutOf(t.Norm) == 0
}

func awaitingTime(_ context.Context, t *Turn) bool {
	return t.Meta().AwaitingTime && shortcutOf(t.Norm) == 0
}

func awaitingFlavor(_ context.Context, t *Turn) bool {
	return t.Meta().AwaitingFlavor > 0 && shortcutOf(t.Norm) == 0
}

func awaitingExtra(_ context.Context, t *Turn) bool {
	return t.Meta().AwaitingExtra && shortcutOf(t.Norm) == 0
}

// Shortcut numbers shown in the extras and cart menus.
const (
	shortcutExtras   = 18
	shortcutMainMenu = 19
	shortcutCheckout = 20
)

func shortcutOf(norm string) int {
	switch norm {
	case "18":
		return shortcutExtras
	case "19", "menu", "menu principal", "volver al menu":
		return shortcutMainMenu
	case "20":
		return shortcutCheckout
	}
	return 0
}

func isShortcut(_ context.Context, t *Turn) bool {
	return shortcutOf(t.Norm) != 0
}

func (d *Dialogue) isCartOption(ctx context.Context, t *Turn) bool {
	n, ok := singleDigit(t.Norm)
	if !ok || n < 1 || n > 4 {
		return false
	}
	c := d.cartOf(ctx, t)
	if c.Empty() {
		return false
	}
	return n <= 3 || c.Flex
}

func isMenuChoice(_ context.Context, t *Turn) bool {
	n, ok := singleDigit(t.Norm)
	return ok && n >= 1 && n <= 6
}

// singleDigit parses a message that is one number and nothing else.
func singleDigit(norm string) (int, bool) {
	norm = strings.Trim(norm, " .!")
	if len(norm) == 0 || len(norm) > 2 || !stringutil.IsNumeric(norm) {
		return 0, false
	}
	n, err := strconv.Atoi(norm)
	return n, err == nil
}

func asksAccommodation(_ context.Context, t *Turn) bool {
	return lodging.Matches(t.Text)
}

var reservationIntentPhrases = []string{
	"quiero reservar", "quisiera reservar", "me gustaria reservar",
	"puedo reservar", "se puede reservar", "podria reservar",
	"quiero hacer una reserva", "quisiera hacer una reserva",
	"me gustaria hacer una reserva", "hacer una reserva",
	"puedo hacer una reserva", "podria hacer una reserva",
	"reservar por aca", "reservar aqui", "me gustaria una reserva",
	"quisiera una reserva", "quiero una reserva", "quiero agendar",
}

// wantsToReserve matches an intent to book that names no date or hour.
func wantsToReserve(_ context.Context, t *Turn) bool {
	if t.Request.HasDate() || t.Request.HasHour {
		return false
	}
	if stringutil.ContainsAny(t.Norm, "como", "explicar", "que tengo") {
		return false
	}
	switch t.Norm {
	case "reservar", "reserva", "una reserva", "agendar":
		return true
	}
	return stringutil.ContainsAny(t.Norm, reservationIntentPhrases...)
}

func (d *Dialogue) isCartCommand(ctx context.Context, t *Turn) bool {
	t.cmd, t.cmdArg = d.classifyCartCommand(ctx, t)
	return t.cmd != cmdNone
}

var helpPhrases = []string{
	"hablar con tomas", "llamar a tomas", "contactar a tomas",
	"necesito a tomas", "capitan tomas", "hablar con una persona",
	"hablar con alguien",
}

func asksForHuman(_ context.Context, t *Turn) bool {
	if stringutil.HasWord(t.Norm, "ayuda") || stringutil.HasWord(t.Norm, "tomas") {
		return true
	}
	return stringutil.ContainsAny(t.Norm, helpPhrases...)
}

func isFAQ(_ context.Context, t *Turn) bool {
	_, _, ok := faq.Lookup(t.Text)
	return ok
}

var availabilityKeywords = []string{
	"disponibilidad", "disponible", "horario", "cuando", "reservar",
	"reserva", "agendar", "manana", "tomorrow", "today", "cupo",
}

func asksAvailability(_ context.Context, t *Turn) bool {
	if t.Request.HasHour {
		return false
	}
	if t.Request.HasDate() {
		return true
	}
	if stringutil.HasWord(t.Norm, "hoy") || stringutil.HasWord(t.Norm, "dia") || stringutil.HasWord(t.Norm, "fecha") {
		return true
	}
	return stringutil.ContainsAny(t.Norm, availabilityKeywords...)
}

var yesWords = map[string]bool{
	"si": true, "claro": true, "dale": true, "ok": true, "okay": true,
	"confirmo": true, "confirmar": true, "hagamosla": true, "yes": true,
}

func isYesWord(norm string) bool {
	return yesWords[strings.Trim(norm, " .!¡")]
}

func isConfirmation(_ context.Context, t *Turn) bool {
	if !isYesWord(t.Norm) {
		return false
	}
	for _, m := range t.Conv.Recent(5) {
		if m.IsUser() {
			continue
		}
		text := stringutil.Fold(m.Text)
		if stringutil.ContainsAny(text, "disponibilidad", "precio") &&
			strings.Contains(text, "personas") &&
			stringutil.ContainsAny(text, "reserva", "hacer", "decides") {
			return true
		}
	}
	return false
}

func hasDateTimeOnly(_ context.Context, t *Turn) bool {
	r := t.Request
	return r.HasDate() && r.HasHour && !r.HasParty && !strings.Contains(t.Norm, "persona")
}

func hasFullReservation(_ context.Context, t *Turn) bool {
	r := t.Request
	return r.HasDate() && r.HasHour && r.HasParty
}

var cartHelpPhrases = []string{
	"como agregar", "agregar al carro", "agregar al carrito", "como reservar",
	"como hacer", "que tengo que hacer", "que hago", "no entiendo",
	"como funciona", "como es", "explicame", "explica",
}

func asksCartHelp(_ context.Context, t *Turn) bool {
	if !stringutil.ContainsAny(t.Norm, cartHelpPhrases...) {
		return false
	}
	if strings.Contains(t.Norm, "carro") {
		return true
	}
	for _, m := range t.Conv.Recent(3) {
		if m.IsUser() {
			continue
		}
		if stringutil.ContainsAny(stringutil.Fold(m.Text), "disponib", "horario") {
			return true
		}
	}
	return false
}

func always(context.Context, *Turn) bool { return true }

type cartCommand int

const (
	cmdNone cartCommand = iota
	cmdView
	cmdClear
	cmdRemoveFlex
	cmdRemoveLine
	cmdAddExtras
	cmdUnknownExtra
	cmdCheckout
)

var (
	removeKeywordRe = BuildKeywordRegex([]string{"eliminar", "quitar", "sacar", "remover", "borrar"})
	lineNumberRe    = regexp.MustCompile(`^(?:el |la |item |linea |numero )?(\d{1,2})$`)
)

var addVerbs = []string{
	"agregar", "agrega", "agregame", "agregue", "anadir", "anade", "quiero",
	"quisiera", "necesito", "dame", "pon", "ponme", "sumar", "suma",
}

var explicitAddVerbs = []string{"agregar", "agrega", "agregame", "agregue", "anadir", "anade"}

var checkoutWords = []string{"confirmar", "confirmo", "pagar", "comprar", "finalizar"}

// classifyCartCommand recognises cart commands. The line number of
// cmdRemoveLine is returned 1-based.
func (d *Dialogue) classifyCartCommand(ctx context.Context, t *Turn) (cartCommand, int) {
	norm := t.Norm

	if kw := MatchKeyword(removeKeywordRe, norm); kw != "" {
		arg := ExtractSearchTerm(norm, kw)
		switch {
		case stringutil.ContainsAny(arg, "flex"):
			return cmdRemoveFlex, 0
		case arg == "todo" || strings.Contains(arg, "carrito"):
			return cmdClear, 0
		}
		if m := lineNumberRe.FindStringSubmatch(arg); m != nil {
			n, _ := strconv.Atoi(m[1])
			return cmdRemoveLine, n
		}
	}
	if stringutil.ContainsAny(norm, "quitar flex", "sacar flex", "remover flex", "quitar la flex", "sin flex") {
		return cmdRemoveFlex, 0
	}
	if stringutil.HasWord(norm, "vaciar") || stringutil.HasWord(norm, "limpiar") ||
		stringutil.ContainsAny(norm, "borrar carrito", "eliminar todo") {
		return cmdClear, 0
	}

	if !isQuestion(norm) {
		mentions := catalog.ExtractExtras(t.Text)
		if len(mentions) > 0 && (hasAnyWord(norm, addVerbs) || isDirectList(norm)) {
			return cmdAddExtras, 0
		}
		if len(mentions) == 0 && hasAnyWord(norm, explicitAddVerbs) &&
			!stringutil.ContainsAny(norm, "carrito", "carro", "reserva", "como") {
			return cmdUnknownExtra, 0
		}
	}

	if hasAnyWord(norm, checkoutWords) {
		// A bare "confirmo" with nothing to pay may answer a booking offer.
		if !isYesWord(norm) || !d.cartOf(ctx, t).Empty() {
			return cmdCheckout, 0
		}
	}

	if stringutil.ContainsAny(norm, "carrito", "ver carro", "mi carro", "que tengo") &&
		!stringutil.ContainsAny(norm, cartHelpPhrases...) {
		return cmdView, 0
	}
	return cmdNone, 0
}

// isQuestion reports whether a message asks about extras instead of
// ordering them.
func isQuestion(norm string) bool {
	return strings.Contains(norm, "?") ||
		hasAnyWord(norm, []string{"tienen", "hay", "saber", "cuanto", "precio", "valor", "incluye"})
}

// isDirectList matches "1 tabla grande y 2 jugos" without a verb.
func isDirectList(norm string) bool {
	return strings.ContainsAny(norm, "0123456789") &&
		(stringutil.HasWord(norm, "y") || strings.Contains(norm, ","))
}

func hasAnyWord(s string, words []string) bool {
	for _, w := range stringutil.Words(s) {
		for _, want := range words {
			if w == want {
				return true
			}
		}
	}
	return false
}
