package repository

import (
	"context"
	"database/sql"
)

// EmailHistoryRepository records dispatch attempts in MySQL.
type EmailHistoryRepository struct {
	db *sql.DB
}

// NewEmailHistoryRepository constructs a repository backed by MySQL.
func NewEmailHistoryRepository(db *sql.DB) *EmailHistoryRepository {
	return &EmailHistoryRepository{db: db}
}

// Create inserts a history row for a broker message. A redelivered message
// reuses its row and restarts it at the given status.
func (r *EmailHistoryRepository) Create(ctx context.Context, requestID string, orderID string, recipient string, status int16) error {
	const query = `
		INSERT INTO email_history (request_id, order_id, recipient, status, attempts)
		VALUES (?, ?, ?, ?, 1)
		ON DUPLICATE KEY UPDATE status = VALUES(status), attempts = attempts + 1
	`
	_, err := r.db.ExecContext(ctx, query, requestID, orderID, recipient, status)
	return err
}

// UpdateStatus updates the status for a request ID.
func (r *EmailHistoryRepository) UpdateStatus(ctx context.Context, requestID string, status int16) error {
	const query = `
		UPDATE email_history
		SET status = ?
		WHERE request_id = ?
	`
	_, err := r.db.ExecContext(ctx, query, status, requestID)
	return err
}
