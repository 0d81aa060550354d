package bot

import (
	"context"

	"github.com/hotboat/whatsapp-bot/internal/alert"
	"github.com/hotboat/whatsapp-bot/internal/genai"
	"github.com/hotboat/whatsapp-bot/internal/modules/faq"
	"github.com/hotboat/whatsapp-bot/internal/modules/lodging"
	"github.com/hotboat/whatsapp-bot/internal/storage"
)

func (d *Dialogue) handleWelcome(_ context.Context, t *Turn) (Reply, error) {
	t.Meta().Reset()
	return Reply{Text: MainMenu}, nil
}

func (d *Dialogue) handleMainMenu(ctx context.Context, t *Turn) (Reply, error) {
	n, _ := singleDigit(t.Norm)
	switch n {
	case 1:
		return d.askForDate(t), nil
	case 2:
		return Reply{Text: faq.Answer(faq.TopicPricing)}, nil
	case 3:
		return Reply{Text: faq.Answer(faq.TopicFeatures)}, nil
	case 4:
		return d.showExtras(t), nil
	case 5:
		return Reply{Text: faq.Answer(faq.TopicLocation)}, nil
	default:
		return d.handleHumanHelp(ctx, t)
	}
}

func (d *Dialogue) handleAccommodation(_ context.Context, _ *Turn) (Reply, error) {
	return Reply{Text: lodging.Intro, Items: lodging.Payload(d.images)}, nil
}

func (d *Dialogue) handleHumanHelp(ctx context.Context, t *Turn) (Reply, error) {
	d.notifyCaptain(ctx, captainCallRequest(t.Name, t.Contact), alert.PriorityCritical)
	return Reply{Text: captainNotified}, nil
}

func (d *Dialogue) handleFAQ(_ context.Context, t *Turn) (Reply, error) {
	topic, answer, _ := faq.Lookup(t.Text)
	if topic == faq.TopicExtras {
		return d.showExtras(t), nil
	}
	return Reply{Text: answer}, nil
}

func (d *Dialogue) handleCartHelp(context.Context, *Turn) (Reply, error) {
	return Reply{Text: cartHelp}, nil
}

// handleFallback asks the AI collaborator. Without one the flow resets to
// the main menu so a half-finished question cannot trap the contact.
func (d *Dialogue) handleFallback(ctx context.Context, t *Turn) (Reply, error) {
	if d.ai == nil {
		t.Meta().Reset()
		return Reply{Text: MainMenu}, nil
	}

	history := make([]genai.Turn, 0, genai.HistoryTurns)
	for _, m := range t.Conv.Recent(genai.HistoryTurns) {
		role := genai.RoleAssistant
		if m.Role == storage.RoleUser {
			role = genai.RoleUser
		}
		history = append(history, genai.Turn{Role: role, Text: m.Text})
	}

	aiCtx, cancel := context.WithTimeout(ctx, d.aiTimeout)
	defer cancel()

	text, err := d.ai.Reply(aiCtx, t.Text, history, t.Name)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: text}, nil
}
