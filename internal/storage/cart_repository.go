package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domerrors "github.com/hotboat/whatsapp-bot/internal/errors"
)

// GetCart returns the encoded cart of a contact, or errors.ErrNotFound.
func (db *DB) GetCart(ctx context.Context, contact string) ([]byte, error) {
	query := `SELECT cart_data FROM whatsapp_carts WHERE phone_number = ?`

	var data string
	err := db.queryRow(ctx, query, contact).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domerrors.ErrNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to query cart",
			"contact", contact,
			"error", err)
		return nil, fmt.Errorf("query cart: %w", err)
	}
	return []byte(data), nil
}

// SaveCart inserts or replaces the encoded cart of a contact.
func (db *DB) SaveCart(ctx context.Context, contact, name string, data []byte) error {
	query := `
		INSERT INTO whatsapp_carts (phone_number, customer_name, cart_data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(phone_number) DO UPDATE SET
			customer_name = excluded.customer_name,
			cart_data = excluded.cart_data,
			updated_at = excluded.updated_at
	`
	start := time.Now()
	if _, err := db.exec(ctx, query, contact, name, string(data), start.Unix()); err != nil {
		slog.ErrorContext(ctx, "failed to save cart",
			"contact", contact,
			"error", err)
		return fmt.Errorf("save cart: %w", err)
	}
	warnSlow(ctx, "SaveCart", start, "contact", contact)
	return nil
}

// DeleteCart removes the cart of a contact. Deleting a missing cart is not
// an error.
func (db *DB) DeleteCart(ctx context.Context, contact string) error {
	if _, err := db.exec(ctx, `DELETE FROM whatsapp_carts WHERE phone_number = ?`, contact); err != nil {
		slog.ErrorContext(ctx, "failed to delete cart",
			"contact", contact,
			"error", err)
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
