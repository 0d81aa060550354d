package bot

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/hotboat/whatsapp-bot/internal/config"
	"github.com/hotboat/whatsapp-bot/internal/ctxutil"
	"github.com/hotboat/whatsapp-bot/internal/logger"
	"github.com/hotboat/whatsapp-bot/internal/ratelimit"
	"github.com/hotboat/whatsapp-bot/internal/session"
	"github.com/hotboat/whatsapp-bot/internal/storage"
)

// MaxInboundLength is the longest text message the bot reads, in runes.
const MaxInboundLength = 4096

// historyWriteTimeout bounds persisting a turn after the reply is decided.
const historyWriteTimeout = 5 * time.Second

// HistoryWriter persists conversation lines.
type HistoryWriter interface {
	AppendMessage(ctx context.Context, contact, role, text, messageID string) error
}

// LeadCreator registers first-time contacts.
type LeadCreator interface {
	GetOrCreateLead(ctx context.Context, contact, name string) (*storage.Lead, error)
}

// Inbound is one text message from a contact.
type Inbound struct {
	Contact   string // phone number, digits only
	Name      string // WhatsApp profile name
	Text      string
	MessageID string
}

// Processor handles the core logic of one inbound message: rate limiting,
// per-contact serialization, the rule cascade and history persistence.
type Processor struct {
	dialogue    *Dialogue
	sessions    *session.Store
	history     HistoryWriter
	leads       LeadCreator
	userLimiter *ratelimit.KeyedLimiter
	logger      *logger.Logger

	turnTimeout time.Duration
}

// ProcessorConfig holds configuration for creating a new Processor.
// History, Leads and UserLimiter may be nil.
type ProcessorConfig struct {
	Dialogue    *Dialogue
	Sessions    *session.Store
	History     HistoryWriter
	Leads       LeadCreator
	UserLimiter *ratelimit.KeyedLimiter
	Logger      *logger.Logger
	BotConfig   *config.BotConfig
}

// NewProcessor creates a new message processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	timeout := config.WebhookProcessing
	if cfg.BotConfig != nil && cfg.BotConfig.WebhookTimeout > 0 {
		timeout = cfg.BotConfig.WebhookTimeout
	}
	return &Processor{
		dialogue:    cfg.Dialogue,
		sessions:    cfg.Sessions,
		history:     cfg.History,
		leads:       cfg.Leads,
		userLimiter: cfg.UserLimiter,
		logger:      cfg.Logger.WithModule(ModuleName),
		turnTimeout: timeout,
	}
}

// ProcessMessage decides the reply to one message. The returned Reply is
// always safe to send; an empty Reply means nothing should be sent. The
// error reports a turn that could not run at all and is for logging only.
func (p *Processor) ProcessMessage(ctx context.Context, in Inbound) (Reply, error) {
	ctx = ctxutil.WithContactID(ctx, in.Contact)
	ctx = ctxutil.WithMessageID(ctx, in.MessageID)

	// Rejected turns skip the dialogue but are still recorded
	limited := !p.checkUserRateLimit(ctx, in.Contact)

	text := normalizeWhitespace(in.Text)
	if text == "" {
		if limited {
			return Reply{Text: rateLimitedMessage}, nil
		}
		return Reply{}, nil
	}

	var rejection string
	switch n := utf8.RuneCountInString(text); {
	case limited:
		rejection = rateLimitedMessage
	case n > MaxInboundLength:
		p.logger.WarnContext(ctx, "Text message too long", "length", n)
		rejection = tooLongMessage(MaxInboundLength)
	}

	processCtx, cancel := context.WithTimeout(ctx, p.turnTimeout)
	defer cancel()

	conv, release, err := p.sessions.Acquire(processCtx, in.Contact, in.Name)
	if err != nil {
		p.logger.WithError(err).WarnContext(ctx, "Could not acquire conversation")
		if rejection != "" {
			return Reply{Text: rejection}, nil
		}
		return Reply{Text: replyForError(err, in.Name)}, err
	}
	defer release()

	if rejection != "" {
		reply := Reply{Text: rejection}
		p.record(ctx, conv, in, truncateRunes(text, MaxInboundLength), reply)
		return reply, nil
	}

	if !conv.HasUserMessages() {
		p.registerLead(processCtx, in)
	}

	start := time.Now()
	reply, rule := p.dialogue.Respond(processCtx, conv, text)
	p.logger.WithField("rule", rule).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		DebugContext(ctx, "Turn handled")

	p.record(ctx, conv, in, text, reply)
	return reply, nil
}

// record appends the exchange to the conversation and to storage.
// Storage failures are logged; the turn already has its reply.
func (p *Processor) record(ctx context.Context, conv *session.Conversation, in Inbound, text string, reply Reply) {
	now := time.Now()
	assistantText := reply.Text
	if assistantText == "" && len(reply.Items) > 0 {
		assistantText = reply.Items[0].Text
	}

	conv.Append(storage.RoleUser, text, in.MessageID, now)
	conv.Append(storage.RoleAssistant, assistantText, "", now)

	if p.history == nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()

	if err := p.history.AppendMessage(writeCtx, in.Contact, storage.RoleUser, text, in.MessageID); err != nil {
		p.logger.WithError(err).WarnContext(ctx, "Failed to persist user message")
		return
	}
	if err := p.history.AppendMessage(writeCtx, in.Contact, storage.RoleAssistant, assistantText, ""); err != nil {
		p.logger.WithError(err).WarnContext(ctx, "Failed to persist assistant message")
	}
}

func (p *Processor) registerLead(ctx context.Context, in Inbound) {
	if p.leads == nil {
		return
	}
	if _, err := p.leads.GetOrCreateLead(ctx, in.Contact, in.Name); err != nil {
		p.logger.WithError(err).WarnContext(ctx, "Failed to register lead")
	}
}

// checkUserRateLimit checks if the contact has exceeded their rate limit.
func (p *Processor) checkUserRateLimit(ctx context.Context, contact string) bool {
	if p.userLimiter == nil || p.userLimiter.Allow(contact) {
		return true
	}

	logContact := contact
	if len(contact) > 8 {
		logContact = contact[:8] + "..."
	}
	p.logger.WithField("contact", logContact).WarnContext(ctx, "User rate limit exceeded")
	return false
}
