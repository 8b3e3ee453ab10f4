package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/contest-bot/internal/database"
	"gitlab.com/yelinaung/contest-bot/internal/models"
)

// HistoryRepository handles balance history rows.
type HistoryRepository struct {
	db database.PGXDB
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(db database.PGXDB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append inserts an immutable history entry.
func (r *HistoryRepository) Append(ctx context.Context, entry *models.BalanceHistoryEntry) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO balance_history (user_id, amount, kind, description, status, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, entry.UserID, entry.Amount, entry.Kind, entry.Description, entry.Status, entry.ReferenceID,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append balance history: %w", err)
	}
	return nil
}

// ResolvePending moves the pending entries of the given kind and reference
// to status. Entries already resolved are left untouched.
func (r *HistoryRepository) ResolvePending(
	ctx context.Context,
	kind models.HistoryKind,
	referenceID int64,
	status models.HistoryStatus,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE balance_history SET status = $3
		WHERE kind = $1 AND reference_id = $2 AND status = 'pending'
	`, kind, referenceID, status)
	if err != nil {
		return fmt.Errorf("failed to resolve balance history: %w", err)
	}
	return nil
}

// ListByUser returns the most recent entries for a user, newest first.
func (r *HistoryRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.BalanceHistoryEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, amount, kind, description, status, reference_id, created_at
		FROM balance_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list balance history: %w", err)
	}
	defer rows.Close()

	var entries []models.BalanceHistoryEntry
	for rows.Next() {
		var e models.BalanceHistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Kind, &e.Description, &e.Status,
			&e.ReferenceID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance history: %w", err)
	}
	return entries, nil
}
