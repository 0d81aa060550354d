package storage

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// AppendMessage stores one history line.
func (db *DB) AppendMessage(ctx context.Context, contact, role, text, messageID string) error {
	query := `
		INSERT INTO whatsapp_conversations (phone_number, direction, message_text, message_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	start := time.Now()
	if _, err := db.exec(ctx, query, contact, role, text, messageID, start.Unix()); err != nil {
		slog.ErrorContext(ctx, "failed to append message",
			"contact", contact,
			"role", role,
			"error", err)
		return fmt.Errorf("append message: %w", err)
	}
	warnSlow(ctx, "AppendMessage", start, "contact", contact)
	return nil
}

// LoadHistory returns the last limit messages of a contact, oldest first.
func (db *DB) LoadHistory(ctx context.Context, contact string, limit int) ([]Message, error) {
	query := `
		SELECT id, phone_number, direction, message_text, message_id, created_at
		FROM whatsapp_conversations
		WHERE phone_number = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	start := time.Now()
	rows, err := db.query(ctx, query, contact, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load history",
			"contact", contact,
			"error", err)
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Message
	for rows.Next() {
		var (
			m         Message
			createdAt int64
		)
		if err := rows.Scan(&m.ID, &m.Contact, &m.Role, &m.Text, &m.MessageID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	slices.Reverse(out)
	warnSlow(ctx, "LoadHistory", start, "contact", contact, "count", len(out))
	return out, nil
}

// RecentConversations summarises contacts active since the given time,
// most recent first.
func (db *DB) RecentConversations(ctx context.Context, since time.Time, limit int) ([]ConversationSummary, error) {
	query := `
		SELECT c.phone_number,
			COALESCE(l.customer_name, ''),
			COALESCE(l.lead_status, ''),
			COUNT(*),
			MAX(c.id),
			MAX(c.created_at)
		FROM whatsapp_conversations c
		LEFT JOIN whatsapp_leads l ON l.phone_number = c.phone_number
		WHERE c.created_at >= ?
		GROUP BY c.phone_number, l.customer_name, l.lead_status
		ORDER BY MAX(c.created_at) DESC
		LIMIT ?
	`
	start := time.Now()
	rows, err := db.query(ctx, query, since.Unix(), limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to query recent conversations", "error", err)
		return nil, fmt.Errorf("recent conversations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		out     []ConversationSummary
		lastIDs []int64
	)
	for rows.Next() {
		var (
			s      ConversationSummary
			lastID int64
			lastAt int64
		)
		if err := rows.Scan(&s.Contact, &s.Name, &s.LeadStatus, &s.MessageCount, &lastID, &lastAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		s.LastAt = time.Unix(lastAt, 0)
		out = append(out, s)
		lastIDs = append(lastIDs, lastID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	for i, id := range lastIDs {
		var text string
		if err := db.queryRow(ctx, `SELECT message_text FROM whatsapp_conversations WHERE id = ?`, id).Scan(&text); err != nil {
			return nil, fmt.Errorf("last message: %w", err)
		}
		out[i].LastMessage = text
	}

	warnSlow(ctx, "RecentConversations", start, "count", len(out))
	return out, nil
}
