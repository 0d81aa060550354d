package bot

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotboat/whatsapp-bot/internal/alert"
	"github.com/hotboat/whatsapp-bot/internal/availability"
	"github.com/hotboat/whatsapp-bot/internal/cart"
	"github.com/hotboat/whatsapp-bot/internal/catalog"
	domerrors "github.com/hotboat/whatsapp-bot/internal/errors"
	"github.com/hotboat/whatsapp-bot/internal/genai"
	"github.com/hotboat/whatsapp-bot/internal/logger"
	"github.com/hotboat/whatsapp-bot/internal/modules/faq"
	"github.com/hotboat/whatsapp-bot/internal/modules/lodging"
	"github.com/hotboat/whatsapp-bot/internal/session"
	"github.com/hotboat/whatsapp-bot/internal/storage"
)

var clt = time.FixedZone("CLT", -3*3600)

// Wednesday 5 November 2025, 10:00.
var now = time.Date(2025, time.November, 5, 10, 0, 0, 0, clt)

const testContact = "56912345678"

type memCartRepo struct {
	mu    sync.Mutex
	carts map[string][]byte
	err   error
}

func (r *memCartRepo) GetCart(_ context.Context, contact string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	data, ok := r.carts[contact]
	if !ok {
		return nil, domerrors.ErrNotFound
	}
	return data, nil
}

func (r *memCartRepo) SaveCart(_ context.Context, contact, _ string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.carts[contact] = data
	return nil
}

func (r *memCartRepo) DeleteCart(_ context.Context, contact string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, contact)
	return nil
}

type noAppointments struct{}

func (noAppointments) GetBookedAppointments(context.Context, time.Time, time.Time, []string) ([]storage.Appointment, error) {
	return nil, nil
}

type fakeChecker struct {
	mu     sync.Mutex
	reject map[time.Time]bool
	err    error
}

func (f *fakeChecker) IsSlotFree(_ context.Context, start time.Time, _, _ time.Duration, _ []string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return !f.reject[start], nil
}

type notice struct {
	msg      string
	priority alert.Priority
}

type fakeCaptain struct {
	mu      sync.Mutex
	notices []notice
}

func (c *fakeCaptain) NotifyCaptain(_ context.Context, msg string, priority alert.Priority) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, notice{msg: msg, priority: priority})
}

type fakeLeads struct {
	mu       sync.Mutex
	statuses map[string]string
	created  []string
}

func (l *fakeLeads) UpdateLeadStatus(_ context.Context, contact, status string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.statuses == nil {
		l.statuses = map[string]string{}
	}
	l.statuses[contact] = status
	return nil
}

func (l *fakeLeads) GetOrCreateLead(_ context.Context, contact, name string) (*storage.Lead, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.created = append(l.created, contact)
	return &storage.Lead{Contact: contact, Name: name, Status: storage.LeadUnknown}, nil
}

type scriptedAI struct {
	text    string
	err     error
	panics  bool
	history []genai.Turn
}

func (a *scriptedAI) Reply(_ context.Context, _ string, history []genai.Turn, _ string) (string, error) {
	if a.panics {
		panic("provider exploded")
	}
	a.history = history
	return a.text, a.err
}

func (a *scriptedAI) Provider() genai.Provider { return genai.ProviderGroq }
func (a *scriptedAI) Close() error             { return nil }

type harness struct {
	dialogue *Dialogue
	carts    *cart.Store
	checker  *fakeChecker
	captain  *fakeCaptain
	leads    *fakeLeads
	conv     *session.Conversation
}

func newHarness(t *testing.T, ai genai.Responder) *harness {
	t.Helper()
	var buf bytes.Buffer
	log := logger.NewWithWriter("error", &buf)

	cfg := availability.DefaultConfig(clt)
	cfg.LiveCheckTimeout = time.Second

	h := &harness{
		checker: &fakeChecker{reject: map[time.Time]bool{}},
		captain: &fakeCaptain{},
		leads:   &fakeLeads{},
	}
	h.carts = cart.NewStore(&memCartRepo{carts: map[string][]byte{}}, log, nil)
	slots := availability.NewResolver(cfg, noAppointments{}, h.checker, nil, log, nil,
		availability.WithClock(func() time.Time { return now }))

	h.dialogue = NewDialogue(DialogueConfig{
		Carts:   h.carts,
		Slots:   slots,
		Captain: h.captain,
		Leads:   h.leads,
		AI:      ai,
		Logger:  log,
	})

	h.conv = &session.Conversation{ContactID: testContact, DisplayName: "Ana"}
	h.conv.Append(storage.RoleUser, "hola", "", now)
	h.conv.Append(storage.RoleAssistant, MainMenu, "", now)
	return h
}

// say runs one turn and records it the way the processor does.
func (h *harness) say(t *testing.T, text string) (Reply, string) {
	t.Helper()
	reply, rule := h.dialogue.Respond(context.Background(), h.conv, text)
	h.conv.Append(storage.RoleUser, text, "", now)
	h.conv.Append(storage.RoleAssistant, reply.Text, "", now)
	return reply, rule
}

func (h *harness) cart(t *testing.T) cart.Cart {
	t.Helper()
	c, err := h.carts.Load(context.Background(), testContact)
	require.NoError(t, err)
	return c
}

func (h *harness) addReservation(t *testing.T, party int) {
	t.Helper()
	_, err := h.carts.Update(context.Background(), testContact, "Ana", func(c *cart.Cart) error {
		c.Add(cart.NewReservation("8 de noviembre 2025", "2025-11-08", "09:00", party))
		c.Flex = true
		return nil
	})
	require.NoError(t, err)
}

func TestRuleNames(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	assert.Equal(t, []string{
		"welcome", "awaiting_party_size", "awaiting_date", "awaiting_time",
		"awaiting_flavor", "awaiting_extra", "global_shortcut", "cart_option",
		"main_menu", "accommodation", "reservation_intent", "cart_command",
		"human_help", "faq", "availability", "confirmation", "date_time_only",
		"full_reservation", "cart_help", "ai_fallback",
	}, h.dialogue.RuleNames())
}

func TestRespond_Welcome(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.conv.Messages = nil

	reply, rule := h.say(t, "buenas")
	assert.Equal(t, RuleWelcome, rule)
	assert.Equal(t, MainMenu, reply.Text)
}

func TestRespond_DateTimeOnlyThenPartySize(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	reply, rule := h.say(t, "sábado a las 9:00")
	assert.Equal(t, RuleDateTimeOnly, rule)
	assert.Contains(t, reply.Text, "8 de noviembre 2025")

	meta := h.conv.Metadata
	assert.True(t, meta.AwaitingPartySize)
	require.NotNil(t, meta.PendingReservation)
	assert.Equal(t, "2025-11-08", meta.PendingReservation.DateISO)
	assert.Equal(t, "09:00", meta.PendingReservation.Time)

	reply, rule = h.say(t, "4 personas")
	assert.Equal(t, RuleAwaitingPartySize, rule)
	assert.Contains(t, reply.Text, "Reserva agregada al carrito")
	assert.True(t, h.conv.Metadata.Idle())

	c := h.cart(t)
	res, ok := c.Reservation()
	require.True(t, ok)
	assert.Equal(t, 4, res.Quantity)
	assert.Equal(t, catalog.PriceForPartySize(4), res.UnitPrice)
	assert.Equal(t, "09:00", res.Metadata[cart.MetaTime])
	assert.True(t, c.Flex)
}

func TestRespond_FullReservationSnapsHour(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	reply, rule := h.say(t, "el martes a las 16 para 3 personas")
	assert.Equal(t, RuleFullReservation, rule)
	assert.Contains(t, reply.Text, "Reserva agregada al carrito")

	c := h.cart(t)
	res, ok := c.Reservation()
	require.True(t, ok)
	assert.Equal(t, 3, res.Quantity)
	assert.Equal(t, 54990, res.UnitPrice)
	assert.Equal(t, "11 de noviembre 2025", res.Metadata[cart.MetaDate])
	assert.Equal(t, "2025-11-11", res.Metadata[cart.MetaDateISO])
	assert.Equal(t, "15:00", res.Metadata[cart.MetaTime])
	assert.True(t, c.Flex)
}

func TestRespond_FullReservationTooSoon(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	reply, rule := h.say(t, "hoy a las 12 para 2 personas")
	assert.Equal(t, RuleFullReservation, rule)
	assert.Equal(t, minAdvanceNotice, reply.Text)
	assert.True(t, h.cart(t).Empty())
}

func TestRespond_TakenSlotOffersRestOfDay(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.checker.reject[time.Date(2025, time.November, 8, 9, 0, 0, 0, clt)] = true

	reply, rule := h.say(t, "sábado a las 9:00 para 2 personas")
	assert.Equal(t, RuleFullReservation, rule)
	assert.Contains(t, reply.Text, "ya no está disponible")
	assert.Contains(t, reply.Text, "12:00")
	assert.NotContains(t, reply.Text, "09:00,")

	assert.True(t, h.conv.Metadata.AwaitingTime)
	assert.True(t, h.cart(t).Empty())
}

func TestRespond_GuidedFlow(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	reply, rule := h.say(t, "quiero reservar")
	assert.Equal(t, RuleReservationIntent, rule)
	assert.Equal(t, askDate, reply.Text)
	assert.True(t, h.conv.Metadata.AwaitingDate)

	_, rule = h.say(t, "mañana")
	assert.Equal(t, RuleAwaitingDate, rule)
	assert.True(t, h.conv.Metadata.AwaitingTime)
	require.NotNil(t, h.conv.Metadata.PendingReservation)
	assert.Equal(t, "2025-11-06", h.conv.Metadata.PendingReservation.DateISO)

	reply, rule = h.say(t, "15:00")
	assert.Equal(t, RuleAwaitingTime, rule)
	assert.Contains(t, reply.Text, "15:00")
	assert.True(t, h.conv.Metadata.AwaitingPartySize)

	_, rule = h.say(t, "somos 5")
	assert.Equal(t, RuleAwaitingPartySize, rule)

	res, ok := h.cart(t).Reservation()
	require.True(t, ok)
	assert.Equal(t, 5, res.Quantity)
	assert.Equal(t, "2025-11-06", res.Metadata[cart.MetaDateISO])
	assert.Equal(t, "15:00", res.Metadata[cart.MetaTime])
}

func TestRespond_PartySizeOutOfRangeKeepsWaiting(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	h.say(t, "sábado a las 9:00")
	reply, rule := h.say(t, "somos 12")
	assert.Equal(t, RuleAwaitingPartySize, rule)
	assert.Equal(t, partySizeOutOfRange, reply.Text)
	assert.True(t, h.conv.Metadata.AwaitingPartySize)

	reply, _ = h.say(t, "no sé")
	assert.Equal(t, askPartySizeAgain, reply.Text)
}

func TestRespond_MenuDigitWithEmptyCart(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	reply, rule := h.say(t, "3")
	assert.Equal(t, RuleMainMenu, rule)
	assert.Equal(t, faq.Answer(faq.TopicFeatures), reply.Text)
}

func TestRespond_CheckoutNotifiesCaptain(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.addReservation(t, 2)

	reply, rule := h.say(t, "2")
	assert.Equal(t, RuleCartOption, rule)
	assert.Contains(t, reply.Text, "Solicitud de Reserva Recibida")
	assert.Contains(t, reply.Text, "Personas: 2")

	require.Len(t, h.captain.notices, 1)
	assert.Equal(t, alert.PriorityHigh, h.captain.notices[0].priority)
	assert.Contains(t, h.captain.notices[0].msg, "Nueva Reserva Confirmada")
	assert.Contains(t, h.captain.notices[0].msg, "https://wa.me/"+testContact)

	assert.True(t, h.cart(t).Empty())
	assert.Equal(t, storage.LeadPotentialClient, h.leads.statuses[testContact])
}

func TestRespond_CheckoutWithoutReservation(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	reply, rule := h.say(t, "20")
	assert.Equal(t, RuleGlobalShortcut, rule)
	assert.Equal(t, emptyCartShortcut, reply.Text)
	assert.Empty(t, h.captain.notices)
}

func TestRespond_CartCommands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		wantRule string
		check    func(t *testing.T, h *harness, reply Reply)
	}{
		{
			name:     "invalid line",
			text:     "eliminar 5",
			wantRule: RuleCartCommand,
			check: func(t *testing.T, h *harness, reply Reply) {
				assert.Equal(t, invalidCartLine, reply.Text)
				assert.True(t, h.cart(t).HasReservation())
			},
		},
		{
			name:     "remove line",
			text:     "eliminar 1",
			wantRule: RuleCartCommand,
			check: func(t *testing.T, h *harness, reply Reply) {
				assert.Contains(t, reply.Text, "Item eliminado")
				assert.False(t, h.cart(t).HasReservation())
			},
		},
		{
			name:     "remove flex",
			text:     "quitar flex",
			wantRule: RuleCartCommand,
			check: func(t *testing.T, h *harness, reply Reply) {
				assert.Contains(t, reply.Text, "Reserva FLEX removida")
				assert.False(t, h.cart(t).Flex)
			},
		},
		{
			name:     "clear",
			text:     "vaciar carrito",
			wantRule: RuleCartCommand,
			check: func(t *testing.T, h *harness, reply Reply) {
				assert.Equal(t, clearedMenu, reply.Text)
				assert.True(t, h.cart(t).Empty())
			},
		},
		{
			name:     "view",
			text:     "ver carrito",
			wantRule: RuleCartCommand,
			check: func(t *testing.T, h *harness, reply Reply) {
				assert.Contains(t, reply.Text, nextSteps)
			},
		},
		{
			name:     "clear option with flex",
			text:     "4",
			wantRule: RuleCartOption,
			check: func(t *testing.T, h *harness, reply Reply) {
				assert.Equal(t, clearedMenu, reply.Text)
				assert.True(t, h.cart(t).Empty())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, nil)
			h.addReservation(t, 2)

			reply, rule := h.say(t, tt.text)
			assert.Equal(t, tt.wantRule, rule)
			tt.check(t, h, reply)
		})
	}
}

func TestRespond_ExtrasAndFlavor(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.addReservation(t, 2)

	reply, rule := h.say(t, "agregar 2 jugos")
	assert.Equal(t, RuleCartCommand, rule)
	assert.Contains(t, reply.Text, catalog.JugoNatural.Name)
	assert.True(t, h.conv.Metadata.AwaitingExtra)

	reply, rule = h.say(t, "quiero un helado")
	assert.Equal(t, RuleAwaitingExtra, rule)
	assert.Contains(t, reply.Text, "sabores de helado")
	assert.Equal(t, 1, h.conv.Metadata.AwaitingFlavor)

	_, rule = h.say(t, "1")
	assert.Equal(t, RuleAwaitingFlavor, rule)
	assert.Zero(t, h.conv.Metadata.AwaitingFlavor)

	extras := h.cart(t).Extras()
	require.Len(t, extras, 2)
	assert.Equal(t, catalog.JugoNatural.Name, extras[0].Name)
	assert.Equal(t, 2, extras[0].Quantity)
	assert.Equal(t, catalog.Helado.Price, extras[1].UnitPrice)
}

func TestRespond_ShortcutEscapesPendingQuestion(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	h.say(t, "quiero reservar")
	require.True(t, h.conv.Metadata.AwaitingDate)

	reply, rule := h.say(t, "19")
	assert.Equal(t, RuleGlobalShortcut, rule)
	assert.Equal(t, MainMenu, reply.Text)
	assert.True(t, h.conv.Metadata.Idle())
}

func TestRespond_HumanHelp(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	reply, rule := h.say(t, "quiero hablar con tomas")
	assert.Equal(t, RuleHumanHelp, rule)
	assert.Equal(t, captainNotified, reply.Text)

	require.Len(t, h.captain.notices, 1)
	assert.Equal(t, alert.PriorityCritical, h.captain.notices[0].priority)
	assert.Contains(t, h.captain.notices[0].msg, "Ana")
}

func TestRespond_Accommodation(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	reply, rule := h.say(t, "tienen alojamiento?")
	assert.Equal(t, RuleAccommodation, rule)
	assert.Equal(t, lodging.Intro, reply.Text)
	assert.NotEmpty(t, reply.Items)
}

func TestRespond_Confirmation(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	h.conv.Append(storage.RoleUser, "el martes a las 16 para 3 personas", "", now)
	h.conv.Append(storage.RoleAssistant, "Tenemos disponibilidad para 3 personas, ¿quieres hacer la reserva?", "", now)

	reply, rule := h.say(t, "sí")
	assert.Equal(t, RuleConfirmation, rule)
	assert.Contains(t, reply.Text, "Reserva agregada al carrito")
	assert.True(t, h.cart(t).HasReservation())
}

func TestRespond_AIFallback(t *testing.T) {
	t.Parallel()

	t.Run("reply", func(t *testing.T) {
		t.Parallel()
		ai := &scriptedAI{text: "¡Claro! El tour dura 2 horas."}
		h := newHarness(t, ai)

		reply, rule := h.say(t, "xyz qwerty")
		assert.Equal(t, RuleAIFallback, rule)
		assert.Equal(t, ai.text, reply.Text)
		require.Len(t, ai.history, 2)
		assert.Equal(t, genai.RoleUser, ai.history[0].Role)
		assert.Equal(t, genai.RoleAssistant, ai.history[1].Role)
	})

	t.Run("provider error", func(t *testing.T) {
		t.Parallel()
		ai := &scriptedAI{err: errors.Join(domerrors.ErrAIUnavailable, errors.New("503"))}
		h := newHarness(t, ai)

		reply, rule := h.say(t, "xyz qwerty")
		assert.Equal(t, RuleAIFallback, rule)
		assert.Equal(t, aiUnavailable("Ana"), reply.Text)
	})

	t.Run("no provider", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, nil)

		reply, rule := h.say(t, "xyz qwerty")
		assert.Equal(t, RuleAIFallback, rule)
		assert.Equal(t, MainMenu, reply.Text)
	})

	t.Run("panic recovered", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, &scriptedAI{panics: true})

		reply, rule := h.say(t, "xyz qwerty")
		assert.Equal(t, RuleAIFallback, rule)
		assert.Equal(t, genericApology, reply.Text)
	})
}

func TestRespond_LiveCheckErrorAbortsBooking(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	_, rule := h.say(t, "sábado a las 9:00")
	require.Equal(t, RuleDateTimeOnly, rule)
	require.True(t, h.conv.Metadata.AwaitingPartySize)

	h.checker.mu.Lock()
	h.checker.err = errors.New("dial tcp 10.0.0.5:5432: connection refused")
	h.checker.mu.Unlock()

	reply, rule := h.say(t, "3")
	assert.Equal(t, RuleAwaitingPartySize, rule)
	assert.Equal(t, availability.CheckFailedMessage, reply.Text)
	assert.True(t, h.conv.Metadata.Idle())
	assert.Nil(t, h.conv.Metadata.PendingReservation)

	_, ok := h.cart(t).Reservation()
	assert.False(t, ok)
}

func TestRespond_CartSaveErrorAbortsBooking(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	repo := &failingSaveRepo{memCartRepo: memCartRepo{carts: map[string][]byte{}}}
	h.dialogue.carts = cart.NewStore(repo, h.dialogue.logger, nil)

	_, rule := h.say(t, "sábado a las 9:00")
	require.Equal(t, RuleDateTimeOnly, rule)

	reply, rule := h.say(t, "4 personas")
	assert.Equal(t, RuleAwaitingPartySize, rule)
	assert.Equal(t, cart.SaveFailedMessage, reply.Text)
	assert.True(t, h.conv.Metadata.Idle())
}

type failingSaveRepo struct {
	memCartRepo
}

func (r *failingSaveRepo) SaveCart(context.Context, string, string, []byte) error {
	return errors.New("database is locked")
}

func TestRespond_StorageFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	repo := &memCartRepo{carts: map[string][]byte{}, err: errors.New("database is locked")}
	h.dialogue.carts = cart.NewStore(repo, h.dialogue.logger, nil)

	reply, _ := h.say(t, "el martes a las 16 para 3 personas")
	assert.Equal(t, storageApology, reply.Text)
	assert.False(t, strings.Contains(reply.Text, "Reserva agregada"))
}
