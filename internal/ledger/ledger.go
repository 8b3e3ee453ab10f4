// Package ledger owns user balances and the append-only balance history.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/contest-bot/internal/database"
	"gitlab.com/yelinaung/contest-bot/internal/models"
	"gitlab.com/yelinaung/contest-bot/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	// ErrUserNotFound is returned when the credited user does not exist.
	ErrUserNotFound = errors.New("ledger: user not found")
	// ErrInvalidAmount is returned for non-positive credits.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
)

const tracerName = "gitlab.com/yelinaung/contest-bot/internal/ledger"

// DefaultHistoryLimit is the number of rows History returns when limit <= 0.
const DefaultHistoryLimit = 10

// Ledger applies credits and records history.
type Ledger struct {
	db database.DB
}

// New creates a Ledger over db.
func New(db database.DB) *Ledger {
	return &Ledger{db: db}
}

// Credit atomically increases balance and total_earned and appends an
// approved history entry.
func (l *Ledger) Credit(
	ctx context.Context,
	userID int64,
	amount decimal.Decimal,
	kind models.HistoryKind,
	description string,
) error {
	return database.WithTx(ctx, l.db, func(tx pgx.Tx) error {
		return l.CreditTx(ctx, tx, userID, amount, kind, description)
	})
}

// CreditTx is Credit inside a caller-owned transaction.
func (l *Ledger) CreditTx(
	ctx context.Context,
	tx database.PGXDB,
	userID int64,
	amount decimal.Decimal,
	kind models.HistoryKind,
	description string,
) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ledger.Credit")
	defer span.End()
	span.SetAttributes(attribute.String("ledger.kind", string(kind)))

	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	if err := repository.NewUserRepository(tx).Credit(ctx, userID, amount); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "credit failed")
		return fmt.Errorf("failed to credit user: %w", err)
	}

	entry := &models.BalanceHistoryEntry{
		UserID:      userID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		Status:      models.HistoryApproved,
	}
	if err := repository.NewHistoryRepository(tx).Append(ctx, entry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "history append failed")
		return err
	}

	return nil
}

// Record appends a history row without touching the balance.
func (l *Ledger) Record(
	ctx context.Context,
	userID int64,
	amount decimal.Decimal,
	kind models.HistoryKind,
	description string,
	status models.HistoryStatus,
) error {
	return l.RecordTx(ctx, l.db, userID, amount, kind, description, status, nil)
}

// RecordTx is Record inside a caller-owned transaction. referenceID links
// the row to the entity it describes, such as a withdrawal request.
func (l *Ledger) RecordTx(
	ctx context.Context,
	tx database.PGXDB,
	userID int64,
	amount decimal.Decimal,
	kind models.HistoryKind,
	description string,
	status models.HistoryStatus,
	referenceID *int64,
) error {
	entry := &models.BalanceHistoryEntry{
		UserID:      userID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		Status:      status,
		ReferenceID: referenceID,
	}
	return repository.NewHistoryRepository(tx).Append(ctx, entry)
}

// History returns the user's most recent history rows, newest first.
func (l *Ledger) History(ctx context.Context, userID int64, limit int) ([]models.BalanceHistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return repository.NewHistoryRepository(l.db).ListByUser(ctx, userID, limit)
}
