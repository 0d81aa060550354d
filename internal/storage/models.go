package storage

import "time"

// Appointment is a booked trip imported from the booking system.
type Appointment struct {
	ID            int64
	CustomerName  string
	CustomerEmail string
	ServiceName   string
	StartsAt      time.Time
	EndsAt        time.Time // Zero when the booking system left it empty
	Status        string
}

// Roles stored in the direction column.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one line of conversation history.
type Message struct {
	ID        int64
	Contact   string
	Role      string // RoleUser or RoleAssistant
	Text      string
	MessageID string // WhatsApp message id, user messages only
	CreatedAt time.Time
}

// Lead statuses.
const (
	LeadUnknown         = "unknown"
	LeadPotentialClient = "potential_client"
	LeadBadLead         = "bad_lead"
	LeadCustomer        = "customer"
)

// Lead is a contact as seen by sales.
type Lead struct {
	Contact   string
	Name      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConversationSummary aggregates recent activity of one contact for the
// admin listing.
type ConversationSummary struct {
	Contact      string    `json:"phone_number"`
	Name         string    `json:"customer_name"`
	LeadStatus   string    `json:"lead_status"`
	MessageCount int       `json:"message_count"`
	LastMessage  string    `json:"last_message"`
	LastAt       time.Time `json:"last_message_at"`
}

// ValidLeadStatus reports whether s is a known lead status.
func ValidLeadStatus(s string) bool {
	switch s {
	case LeadUnknown, LeadPotentialClient, LeadBadLead, LeadCustomer:
		return true
	}
	return false
}
