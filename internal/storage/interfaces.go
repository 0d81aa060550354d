package storage

import (
	"context"
	"time"
)

// CartRepository persists encoded carts.
type CartRepository interface {
	GetCart(ctx context.Context, contact string) ([]byte, error)
	SaveCart(ctx context.Context, contact, name string, data []byte) error
	DeleteCart(ctx context.Context, contact string) error
}

// AppointmentRepository reads booked trips.
type AppointmentRepository interface {
	GetBookedAppointments(ctx context.Context, start, end time.Time, excluded []string) ([]Appointment, error)
	IsSlotFree(ctx context.Context, start time.Time, duration, buffer time.Duration, excluded []string) (bool, error)
}

// ConversationRepository stores message history.
type ConversationRepository interface {
	AppendMessage(ctx context.Context, contact, role, text, messageID string) error
	LoadHistory(ctx context.Context, contact string, limit int) ([]Message, error)
	RecentConversations(ctx context.Context, since time.Time, limit int) ([]ConversationSummary, error)
}

// LeadRepository tracks contacts for sales follow-up.
type LeadRepository interface {
	GetOrCreateLead(ctx context.Context, contact, name string) (*Lead, error)
	UpdateLeadStatus(ctx context.Context, contact, status string) error
}

// Compile-time interface satisfaction checks.
var (
	_ CartRepository         = (*DB)(nil)
	_ AppointmentRepository  = (*DB)(nil)
	_ ConversationRepository = (*DB)(nil)
	_ LeadRepository         = (*DB)(nil)
)
