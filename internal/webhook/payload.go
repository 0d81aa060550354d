package webhook

import (
	"encoding/json"
	"fmt"
)

// objectWhatsApp is the only payload object the handler routes.
const objectWhatsApp = "whatsapp_business_account"

// defaultContactName is used when the payload carries no profile.
const defaultContactName = "Usuario"

// Message types sent by the Cloud API.
const (
	TypeText        = "text"
	TypeInteractive = "interactive"
)

// Payload is the body Meta posts to the webhook.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups the changes of one business account.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change is one notification. Field is "messages" for inbound traffic.
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value carries messages and delivery statuses.
type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Contacts         []Contact `json:"contacts"`
	Messages         []Message `json:"messages"`
	Statuses         []Status  `json:"statuses"`
}

// Contact is the sender profile.
type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// Message is one inbound message. Only Text is read; other types are
// answered with a notice.
type Message struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
}

// Status is a delivery receipt for an outbound message.
type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
}

// Event is one message with its sender resolved.
type Event struct {
	MessageID string
	From      string
	Name      string
	Type      string
	Text      string
}

// ParsePayload decodes a webhook body.
func ParsePayload(body []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Payload{}, fmt.Errorf("decode webhook payload: %w", err)
	}
	return p, nil
}

// Events flattens the payload into its messages, in delivery order.
// Payloads for other objects yield nothing.
func (p Payload) Events() []Event {
	if p.Object != objectWhatsApp {
		return nil
	}

	var events []Event
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			name := contactName(change.Value.Contacts)
			for _, m := range change.Value.Messages {
				ev := Event{
					MessageID: m.ID,
					From:      m.From,
					Name:      name,
					Type:      m.Type,
				}
				if m.Text != nil {
					ev.Text = m.Text.Body
				}
				events = append(events, ev)
			}
		}
	}
	return events
}

func contactName(contacts []Contact) string {
	if len(contacts) == 0 || contacts[0].Profile.Name == "" {
		return defaultContactName
	}
	return contacts[0].Profile.Name
}
