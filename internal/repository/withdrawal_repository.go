package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/contest-bot/internal/database"
	"gitlab.com/yelinaung/contest-bot/internal/models"
)

const withdrawalColumns = `id, user_id, amount, commission, net_amount, method, account_details,
	status, processed_at, created_at`

// WithdrawalRepository handles withdrawal request rows.
type WithdrawalRepository struct {
	db database.PGXDB
}

// NewWithdrawalRepository creates a new WithdrawalRepository.
func NewWithdrawalRepository(db database.PGXDB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// Create inserts a pending withdrawal request.
func (r *WithdrawalRepository) Create(ctx context.Context, w *models.WithdrawalRequest) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO withdrawal_requests (user_id, amount, commission, net_amount, method, account_details, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING id, status, created_at
	`, w.UserID, w.Amount, w.Commission, w.NetAmount, w.Method, w.AccountDetails,
	).Scan(&w.ID, &w.Status, &w.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}
	return nil
}

func scanWithdrawal(row interface{ Scan(dest ...any) error }) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := row.Scan(&w.ID, &w.UserID, &w.Amount, &w.Commission, &w.NetAmount, &w.Method,
		&w.AccountDetails, &w.Status, &w.ProcessedAt, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetByID retrieves a withdrawal request.
func (r *WithdrawalRepository) GetByID(ctx context.Context, id int) (*models.WithdrawalRequest, error) {
	w, err := scanWithdrawal(r.db.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, id))
	if err != nil {
		return nil, wrapNoRows(err, "failed to get withdrawal request")
	}
	return w, nil
}

// GetByIDForUpdate retrieves and locks a withdrawal request.
func (r *WithdrawalRepository) GetByIDForUpdate(ctx context.Context, id int) (*models.WithdrawalRequest, error) {
	w, err := scanWithdrawal(r.db.QueryRow(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, wrapNoRows(err, "failed to lock withdrawal request")
	}
	return w, nil
}

// SetStatus updates the status and stamps processed_at.
func (r *WithdrawalRepository) SetStatus(ctx context.Context, id int, status models.WithdrawalStatus) error {
	_, err := r.db.Exec(ctx, `
		UPDATE withdrawal_requests SET status = $2, processed_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal status: %w", err)
	}
	return nil
}

// ListOpen returns pending and approved requests, oldest first.
func (r *WithdrawalRepository) ListOpen(ctx context.Context, limit int) ([]models.WithdrawalRequest, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawal_requests
		WHERE status IN ('pending', 'approved')
		ORDER BY created_at, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	defer rows.Close()

	var requests []models.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		requests = append(requests, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate withdrawal requests: %w", err)
	}
	return requests, nil
}

// HasOpen reports whether the user has a pending or approved request.
func (r *WithdrawalRepository) HasOpen(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM withdrawal_requests WHERE user_id = $1 AND status IN ('pending', 'approved')
		)
	`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check open withdrawals: %w", err)
	}
	return exists, nil
}
