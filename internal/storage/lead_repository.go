package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	domerrors "github.com/hotboat/whatsapp-bot/internal/errors"
)

// GetOrCreateLead registers a contact on first contact and refreshes the
// display name when WhatsApp provides one.
func (db *DB) GetOrCreateLead(ctx context.Context, contact, name string) (*Lead, error) {
	now := time.Now().Unix()
	upsert := `
		INSERT INTO whatsapp_leads (phone_number, customer_name, lead_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(phone_number) DO UPDATE SET
			customer_name = CASE WHEN excluded.customer_name <> '' THEN excluded.customer_name ELSE whatsapp_leads.customer_name END,
			updated_at = excluded.updated_at
	`
	if _, err := db.exec(ctx, upsert, contact, name, LeadUnknown, now, now); err != nil {
		slog.ErrorContext(ctx, "failed to upsert lead",
			"contact", contact,
			"error", err)
		return nil, fmt.Errorf("upsert lead: %w", err)
	}

	var (
		lead             Lead
		created, updated int64
	)
	query := `SELECT phone_number, customer_name, lead_status, created_at, updated_at FROM whatsapp_leads WHERE phone_number = ?`
	if err := db.queryRow(ctx, query, contact).Scan(&lead.Contact, &lead.Name, &lead.Status, &created, &updated); err != nil {
		return nil, fmt.Errorf("query lead: %w", err)
	}
	lead.CreatedAt = time.Unix(created, 0)
	lead.UpdatedAt = time.Unix(updated, 0)
	return &lead, nil
}

// UpdateLeadStatus sets the sales status of a contact.
func (db *DB) UpdateLeadStatus(ctx context.Context, contact, status string) error {
	if !ValidLeadStatus(status) {
		return fmt.Errorf("invalid lead status %q", status)
	}
	res, err := db.exec(ctx, `UPDATE whatsapp_leads SET lead_status = ?, updated_at = ? WHERE phone_number = ?`,
		status, time.Now().Unix(), contact)
	if err != nil {
		slog.ErrorContext(ctx, "failed to update lead status",
			"contact", contact,
			"status", status,
			"error", err)
		return fmt.Errorf("update lead status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update lead status %s: %w", contact, domerrors.ErrNotFound)
	}
	return nil
}
