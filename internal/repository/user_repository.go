package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/contest-bot/internal/database"
	"gitlab.com/yelinaung/contest-bot/internal/models"
)

const userColumns = `id, username, first_name, last_name, phone, region, language, referral_code,
	referred_by, balance, pending_balance, total_earned, total_withdrawn,
	last_withdrawal_account, is_active, created_at, updated_at`

// UserRepository handles user database operations.
type UserRepository struct {
	db database.PGXDB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db database.PGXDB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. Balances start at zero.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (id, username, first_name, last_name, phone, region, language, referral_code, referred_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING is_active, created_at, updated_at
	`, user.ID, user.Username, user.FirstName, user.LastName, user.Phone, user.Region,
		user.Language, user.ReferralCode, user.ReferredBy,
	).Scan(&user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Phone, &u.Region,
		&u.Language, &u.ReferralCode, &u.ReferredBy, &u.Balance, &u.PendingBalance,
		&u.TotalEarned, &u.TotalWithdrawn, &u.LastWithdrawalAccount, &u.IsActive,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID retrieves a user by their Telegram ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, wrapNoRows(err, "failed to get user")
	}
	return u, nil
}

// GetByIDForUpdate retrieves a user and locks the row until the enclosing
// transaction ends.
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, wrapNoRows(err, "failed to lock user")
	}
	return u, nil
}

// GetByReferralCode retrieves the owner of a referral code.
func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code))
	if err != nil {
		return nil, wrapNoRows(err, "failed to get user by referral code")
	}
	return u, nil
}

// Exists reports whether a user with the given ID is registered.
func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}

// UpdateIdentity refreshes the Telegram profile fields of an existing user.
func (r *UserRepository) UpdateIdentity(ctx context.Context, id int64, username, firstName, lastName string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET username = $2, first_name = $3, last_name = $4, updated_at = NOW()
		WHERE id = $1
	`, id, username, firstName, lastName)
	if err != nil {
		return fmt.Errorf("failed to update user identity: %w", err)
	}
	return nil
}

// Credit adds amount to balance and total_earned. Returns ErrNotFound when
// the user does not exist.
func (r *UserRepository) Credit(ctx context.Context, id int64, amount decimal.Decimal) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET balance = balance + $2, total_earned = total_earned + $2, updated_at = NOW()
		WHERE id = $1
	`, id, amount)
	if err != nil {
		return fmt.Errorf("failed to credit user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to credit user: %w", ErrNotFound)
	}
	return nil
}

// Reserve moves amount from balance to pending_balance and remembers the
// payout account.
func (r *UserRepository) Reserve(ctx context.Context, id int64, amount decimal.Decimal, account string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET balance = balance - $2, pending_balance = pending_balance + $2,
			last_withdrawal_account = $3, updated_at = NOW()
		WHERE id = $1
	`, id, amount, account)
	if err != nil {
		return fmt.Errorf("failed to reserve balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to reserve balance: %w", ErrNotFound)
	}
	return nil
}

// ReleasePending decrements pending_balance by amount, floored at zero.
func (r *UserRepository) ReleasePending(ctx context.Context, id int64, amount decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET pending_balance = GREATEST(pending_balance - $2, 0), updated_at = NOW()
		WHERE id = $1
	`, id, amount)
	if err != nil {
		return fmt.Errorf("failed to release pending balance: %w", err)
	}
	return nil
}

// Restore returns amount to balance and releases it from pending_balance,
// floored at zero. releasePending is false when the reservation was already
// released by an approval.
func (r *UserRepository) Restore(ctx context.Context, id int64, amount decimal.Decimal, releasePending bool) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET balance = balance + $2,
			pending_balance = CASE WHEN $3::boolean THEN GREATEST(pending_balance - $2, 0) ELSE pending_balance END,
			updated_at = NOW()
		WHERE id = $1
	`, id, amount, releasePending)
	if err != nil {
		return fmt.Errorf("failed to restore balance: %w", err)
	}
	return nil
}

// Settle zeroes balance and pending_balance and adds amount to
// total_withdrawn.
func (r *UserRepository) Settle(ctx context.Context, id int64, amount decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET balance = 0, pending_balance = 0, total_withdrawn = total_withdrawn + $2, updated_at = NOW()
		WHERE id = $1
	`, id, amount)
	if err != nil {
		return fmt.Errorf("failed to settle withdrawal: %w", err)
	}
	return nil
}

// ListActiveIDs returns the IDs of active users, optionally filtered by
// language ("" means all languages).
func (r *UserRepository) ListActiveIDs(ctx context.Context, language string) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id FROM users
		WHERE is_active AND ($1::text = '' OR language = $1)
		ORDER BY id
	`, language)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return ids, nil
}

// Deactivate marks users inactive so broadcasts skip them.
func (r *UserRepository) Deactivate(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("failed to deactivate users: %w", err)
	}
	return nil
}

// Reactivate marks a user active again, e.g. after they return to the bot.
func (r *UserRepository) Reactivate(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET is_active = TRUE, updated_at = NOW() WHERE id = $1 AND NOT is_active`, id)
	if err != nil {
		return fmt.Errorf("failed to reactivate user: %w", err)
	}
	return nil
}

// UserStats aggregates user-level totals.
type UserStats struct {
	Users          int
	ActiveUsers    int
	TotalBalance   decimal.Decimal
	TotalPending   decimal.Decimal
	TotalEarned    decimal.Decimal
	TotalWithdrawn decimal.Decimal
}

// Stats returns aggregate totals across all users.
func (r *UserRepository) Stats(ctx context.Context) (*UserStats, error) {
	var s UserStats
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active),
			COALESCE(SUM(balance), 0), COALESCE(SUM(pending_balance), 0),
			COALESCE(SUM(total_earned), 0), COALESCE(SUM(total_withdrawn), 0)
		FROM users
	`).Scan(&s.Users, &s.ActiveUsers, &s.TotalBalance, &s.TotalPending, &s.TotalEarned, &s.TotalWithdrawn)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return &s, nil
}
