package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all SQLite tables and indexes.
// Postgres uses the embedded migrations instead (see Migrate).
// Timestamps are stored as unix seconds.
func InitSchema(ctx context.Context, db *sql.DB) error {
	steps := []struct {
		name  string
		query string
	}{
		{"whatsapp_carts", `
		CREATE TABLE IF NOT EXISTS whatsapp_carts (
			phone_number TEXT PRIMARY KEY,
			customer_name TEXT NOT NULL DEFAULT '',
			cart_data TEXT NOT NULL DEFAULT '[]',
			updated_at INTEGER NOT NULL
		);`},
		{"whatsapp_leads", `
		CREATE TABLE IF NOT EXISTS whatsapp_leads (
			phone_number TEXT PRIMARY KEY,
			customer_name TEXT NOT NULL DEFAULT '',
			lead_status TEXT NOT NULL DEFAULT 'unknown',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_leads_status ON whatsapp_leads(lead_status);`},
		{"whatsapp_conversations", `
		CREATE TABLE IF NOT EXISTS whatsapp_conversations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			phone_number TEXT NOT NULL,
			direction TEXT CHECK(direction IN ('user', 'assistant')) NOT NULL,
			message_text TEXT NOT NULL,
			message_id TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_conversations_phone ON whatsapp_conversations(phone_number, created_at);
		CREATE INDEX IF NOT EXISTS idx_conversations_created ON whatsapp_conversations(created_at);`},
		{"booknetic_appointments", `
		CREATE TABLE IF NOT EXISTS booknetic_appointments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			customer_name TEXT NOT NULL DEFAULT '',
			customer_email TEXT NOT NULL DEFAULT '',
			service_name TEXT NOT NULL DEFAULT '',
			starts_at INTEGER NOT NULL,
			ends_at INTEGER,
			status TEXT NOT NULL DEFAULT 'approved'
		);
		CREATE INDEX IF NOT EXISTS idx_appointments_starts ON booknetic_appointments(starts_at);`},
	}

	for _, s := range steps {
		if _, err := db.ExecContext(ctx, s.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", s.name, err)
		}
	}
	return nil
}
