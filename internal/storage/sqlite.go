// Package storage persists the Discord status message ids in SQLite so a restart edits the same message.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/woozymasta/herald/internal/models"
	_ "modernc.org/sqlite" // Driver sqlite
)

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB
}

// New initializes a new SQLite connection, sets connection pool parameters, and runs migrations.
func New(ctx context.Context, dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Single process writer, a couple of connections is plenty
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// WebhookKey derives the storage key of a webhook URI.
// The URI carries the webhook token, so only its xxhash is stored.
func WebhookKey(webhookURI string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(strings.TrimRight(webhookURI, "/")))
}

// webhookID extracts the public webhook id from .../webhooks/<id>/<token>.
func webhookID(webhookURI string) string {
	u, err := url.Parse(webhookURI)
	if err != nil {
		return ""
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "webhooks" {
			return parts[i+1]
		}
	}

	return ""
}

// MessageID returns the stored message id of the webhook, or an empty string when none is stored.
func (r *Repository) MessageID(ctx context.Context, webhookURI string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT message_id FROM status_messages WHERE webhook_key = ?`,
		WebhookKey(webhookURI),
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return id, nil
}

// SaveMessageID stores the message id of the webhook, replacing a previous one.
func (r *Repository) SaveMessageID(ctx context.Context, webhookURI, messageID, serverName string) error {
	if messageID == "" {
		return errors.New("empty message id")
	}

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO status_messages (webhook_key, webhook_id, message_id, server_name, created_at, updated_at, updates)
	VALUES (?, ?, ?, ?, ?, ?, 0)
	ON CONFLICT(webhook_key) DO UPDATE SET
		message_id  = excluded.message_id,
		server_name = excluded.server_name,
		created_at  = excluded.created_at,
		updated_at  = excluded.updated_at,
		updates     = 0;
	`, WebhookKey(webhookURI), webhookID(webhookURI), messageID, serverName, now, now)

	return err
}

// TouchMessage records a successful edit of the stored message.
func (r *Repository) TouchMessage(ctx context.Context, webhookURI string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE status_messages SET updated_at = ?, updates = updates + 1 WHERE webhook_key = ?`,
		at.UTC(), WebhookKey(webhookURI),
	)

	return err
}

// DeleteMessage forgets the stored message of the webhook. The Discord message itself is left untouched.
func (r *Repository) DeleteMessage(ctx context.Context, webhookURI string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM status_messages WHERE webhook_key = ?`,
		WebhookKey(webhookURI),
	)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// Messages returns all stored status messages, most recently updated first.
func (r *Repository) Messages(ctx context.Context) ([]models.StoredMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT webhook_key, webhook_id, message_id, server_name, created_at, updated_at, updates
		FROM status_messages
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var messages []models.StoredMessage
	for rows.Next() {
		var m models.StoredMessage
		if err := rows.Scan(
			&m.WebhookKey, &m.WebhookID, &m.MessageID, &m.ServerName,
			&m.CreatedAt, &m.UpdatedAt, &m.Updates,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
