// Package bot decides the reply to each inbound WhatsApp message.
//
// A Dialogue walks an ordered list of rules. The first rule whose predicate
// matches handles the turn, so the order is part of the behaviour: pending
// questions are answered before shortcuts, shortcuts before keyword intents,
// and the AI reply comes last.
package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/hotboat/whatsapp-bot/internal/alert"
	"github.com/hotboat/whatsapp-bot/internal/availability"
	"github.com/hotboat/whatsapp-bot/internal/cart"
	"github.com/hotboat/whatsapp-bot/internal/config"
	"github.com/hotboat/whatsapp-bot/internal/dateparse"
	"github.com/hotboat/whatsapp-bot/internal/genai"
	"github.com/hotboat/whatsapp-bot/internal/logger"
	"github.com/hotboat/whatsapp-bot/internal/metrics"
	"github.com/hotboat/whatsapp-bot/internal/modules/lodging"
	"github.com/hotboat/whatsapp-bot/internal/session"
	"github.com/hotboat/whatsapp-bot/internal/stringutil"
)

// ModuleName identifies the bot in logs.
const ModuleName = "bot"

// Reply is what a turn sends back: a text and optional media sent after it.
type Reply struct {
	Text  string
	Items []lodging.MediaItem
}

// Empty reports whether there is nothing to send.
func (r Reply) Empty() bool {
	return strings.TrimSpace(r.Text) == "" && len(r.Items) == 0
}

// CaptainNotifier forwards hand-offs to the operators.
type CaptainNotifier interface {
	NotifyCaptain(ctx context.Context, msg string, priority alert.Priority)
}

// LeadUpdater records the sales stage of a contact.
type LeadUpdater interface {
	UpdateLeadStatus(ctx context.Context, contact, status string) error
}

// Turn is one inbound message with everything the rules look at.
type Turn struct {
	Contact string
	Name    string
	Text    string // sanitized message
	Norm    string // folded, keycaps turned into digits
	Now     time.Time
	Conv    *session.Conversation
	Request dateparse.Request

	cart   *cart.Cart
	cmd    cartCommand
	cmdArg int
}

// Meta is the slot-filling state of the contact.
func (t *Turn) Meta() *session.Metadata {
	return &t.Conv.Metadata
}

// Dialogue runs the rule cascade.
type Dialogue struct {
	rules     []Rule
	carts     *cart.Store
	slots     *availability.Resolver
	captain   CaptainNotifier
	leads     LeadUpdater
	ai        genai.Responder
	images    lodging.Images
	aiTimeout time.Duration
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// DialogueConfig holds the collaborators of a Dialogue. AI, Captain and
// Leads may be nil.
type DialogueConfig struct {
	Carts     *cart.Store
	Slots     *availability.Resolver
	Captain   CaptainNotifier
	Leads     LeadUpdater
	AI        genai.Responder
	Images    lodging.Images
	AITimeout time.Duration
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
}

// NewDialogue creates a Dialogue with the production rule order.
func NewDialogue(cfg DialogueConfig) *Dialogue {
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = config.AIReply
	}
	d := &Dialogue{
		carts:     cfg.Carts,
		slots:     cfg.Slots,
		captain:   cfg.Captain,
		leads:     cfg.Leads,
		ai:        cfg.AI,
		images:    cfg.Images,
		aiTimeout: cfg.AITimeout,
		logger:    cfg.Logger.WithModule(ModuleName),
		metrics:   cfg.Metrics,
	}
	d.rules = d.buildRules()
	return d
}

// RuleNames returns the cascade order.
func (d *Dialogue) RuleNames() []string {
	names := make([]string, len(d.rules))
	for i, r := range d.rules {
		names[i] = r.Name
	}
	return names
}

// Respond picks the reply for text. It never fails: handler errors and
// panics become an apology the contact can act on. The returned name is the
// rule that handled the turn.
func (d *Dialogue) Respond(ctx context.Context, conv *session.Conversation, text string) (reply Reply, rule string) {
	t := d.newTurn(conv, text)

	defer func() {
		if r := recover(); r != nil {
			d.logger.WithField("panic", fmt.Sprint(r)).
				WithField("rule", rule).
				WithField("stack", string(debug.Stack())).
				ErrorContext(ctx, "Rule panicked")
			t.Meta().Reset()
			reply = Reply{Text: genericApology}
		}
	}()

	for _, r := range d.rules {
		if !r.Match(ctx, t) {
			continue
		}
		rule = r.Name
		if d.metrics != nil {
			d.metrics.RecordIntent(r.Name)
		}
		d.logger.WithField("rule", r.Name).DebugContext(ctx, "Rule matched")

		out, err := r.Handle(ctx, t)
		if err != nil {
			// A failed turn aborts whatever question was pending.
			t.Meta().Reset()
			d.logger.WithError(err).WithField("rule", r.Name).WarnContext(ctx, "Rule failed")
			return Reply{Text: replyForError(err, t.Name)}, rule
		}
		return out, rule
	}
	return Reply{Text: MainMenu}, ""
}

func (d *Dialogue) newTurn(conv *session.Conversation, text string) *Turn {
	now := d.slots.Now()
	return &Turn{
		Contact: conv.ContactID,
		Name:    conv.DisplayName,
		Text:    text,
		Norm:    stringutil.Normalize(text),
		Now:     now,
		Conv:    conv,
		Request: dateparse.Parse(text, now),
	}
}

// cartOf loads the cart once per turn. A storage failure reads as empty
// so predicates can still run.
func (d *Dialogue) cartOf(ctx context.Context, t *Turn) cart.Cart {
	if t.cart == nil {
		c := d.carts.Get(ctx, t.Contact)
		t.cart = &c
	}
	return *t.cart
}

// updateCart applies fn and refreshes the cached cart.
func (d *Dialogue) updateCart(ctx context.Context, t *Turn, fn func(*cart.Cart) error) (cart.Cart, error) {
	c, err := d.carts.Update(ctx, t.Contact, t.Name, fn)
	if err != nil {
		t.cart = nil
		return c, err
	}
	t.cart = &c
	return c, nil
}

func (d *Dialogue) clearCart(ctx context.Context, t *Turn) {
	d.carts.Clear(ctx, t.Contact)
	t.cart = &cart.Cart{}
}

func (d *Dialogue) notifyCaptain(ctx context.Context, msg string, priority alert.Priority) {
	if d.captain == nil {
		d.logger.WarnContext(ctx, "No operator notifier configured, captain notice dropped")
		return
	}
	d.captain.NotifyCaptain(ctx, msg, priority)
}

func (d *Dialogue) setLeadStatus(ctx context.Context, contact, status string) {
	if d.leads == nil {
		return
	}
	if err := d.leads.UpdateLeadStatus(ctx, contact, status); err != nil {
		d.logger.WithError(err).WithField("status", status).WarnContext(ctx, "Lead status update failed")
	}
}
