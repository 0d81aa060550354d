// Package session keeps per-contact dialogue state in memory: recent
// messages and the slot-filling flags of the reservation flow.
//
// A Store hands out one Conversation per contact under a lock that spans the
// whole turn, so a cart read-modify-write is never interleaved with another
// message from the same contact.
package session

import (
	"time"

	"github.com/hotboat/whatsapp-bot/internal/storage"
)

// Message is one line of history.
type Message struct {
	Role      string    `json:"role"` // storage.RoleUser or storage.RoleAssistant
	Text      string    `json:"text"`
	At        time.Time `json:"at"`
	MessageID string    `json:"message_id,omitempty"`
}

// IsUser reports whether the contact wrote the message.
func (m Message) IsUser() bool { return m.Role == storage.RoleUser }

// PendingReservation is a date and time waiting for a headcount. Time is
// empty while the flow is still asking for the hour.
type PendingReservation struct {
	Date    string `json:"date"`     // display label, "6 de noviembre 2025"
	DateISO string `json:"date_iso"` // YYYY-MM-DD
	Time    string `json:"time,omitempty"`
}

// Metadata is the slot-filling state carried between turns.
type Metadata struct {
	AwaitingPartySize  bool                `json:"awaiting_party_size,omitempty"`
	AwaitingDate       bool                `json:"awaiting_date,omitempty"`
	AwaitingTime       bool                `json:"awaiting_time,omitempty"`
	AwaitingExtra      bool                `json:"awaiting_extra,omitempty"`
	AwaitingFlavor     int                 `json:"awaiting_flavor,omitempty"` // ice cream quantity waiting for flavours
	PendingReservation *PendingReservation `json:"pending_reservation,omitempty"`
}

// Reset returns to the idle state.
func (m *Metadata) Reset() {
	*m = Metadata{}
}

// Idle reports whether no question is pending.
func (m Metadata) Idle() bool {
	return m == Metadata{}
}

// Conversation is the state of one contact.
type Conversation struct {
	ContactID       string
	DisplayName     string
	Messages        []Message
	Metadata        Metadata
	CreatedAt       time.Time
	LastInteraction time.Time

	limit int
}

// Append adds a message, keeping at most the configured number of lines.
func (c *Conversation) Append(role, text, messageID string, at time.Time) {
	c.Messages = append(c.Messages, Message{Role: role, Text: text, At: at, MessageID: messageID})
	if c.limit > 0 && len(c.Messages) > c.limit {
		c.Messages = append(c.Messages[:0:0], c.Messages[len(c.Messages)-c.limit:]...)
	}
	c.LastInteraction = at
}

// HasUserMessages reports whether the contact ever wrote before.
func (c *Conversation) HasUserMessages() bool {
	for _, m := range c.Messages {
		if m.IsUser() {
			return true
		}
	}
	return false
}

// Recent returns the last n messages, oldest first.
func (c *Conversation) Recent(n int) []Message {
	if n <= 0 || n >= len(c.Messages) {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-n:]
}

// RecentByRole returns the texts of the last n messages written by role,
// newest first.
func (c *Conversation) RecentByRole(role string, n int) []string {
	var out []string
	for i := len(c.Messages) - 1; i >= 0 && len(out) < n; i-- {
		if c.Messages[i].Role == role {
			out = append(out, c.Messages[i].Text)
		}
	}
	return out
}
