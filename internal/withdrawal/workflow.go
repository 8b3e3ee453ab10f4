// Package withdrawal implements the payout request state machine:
// pending -> approved -> completed, with rejection from pending or approved.
package withdrawal

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/contest-bot/internal/database"
	"gitlab.com/yelinaung/contest-bot/internal/ledger"
	"gitlab.com/yelinaung/contest-bot/internal/logger"
	"gitlab.com/yelinaung/contest-bot/internal/models"
	"gitlab.com/yelinaung/contest-bot/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrBelowMinimum is returned when the balance is zero or under the
	// configured minimum.
	ErrBelowMinimum = errors.New("withdrawal: balance below minimum")
	// ErrInvalidAccount is returned when the card or phone number does not
	// match its method's format.
	ErrInvalidAccount = errors.New("withdrawal: invalid account format")
	// ErrInvalidMethod is returned for a payout method other than card or phone.
	ErrInvalidMethod = errors.New("withdrawal: unknown method")
	// ErrRequestNotFound is returned when no request has the given ID.
	ErrRequestNotFound = errors.New("withdrawal: request not found")
	// ErrInvalidTransition is returned when the request's current status does
	// not allow the action.
	ErrInvalidTransition = errors.New("withdrawal: invalid status transition")
	// ErrUserNotFound is returned when the requesting user does not exist.
	ErrUserNotFound = errors.New("withdrawal: user not found")
	// ErrOpenRequest is returned when the user already has a pending or
	// approved request.
	ErrOpenRequest = errors.New("withdrawal: request already open")
)

const instrumentationName = "gitlab.com/yelinaung/contest-bot/internal/withdrawal"

// DefaultListLimit bounds ListOpen.
const DefaultListLimit = 20

// Workflow moves withdrawal requests through their lifecycle. Every
// transition runs in a single transaction.
type Workflow struct {
	db          database.DB
	ledger      *ledger.Ledger
	minimum     decimal.Decimal
	rate        decimal.Decimal
	transitions metric.Int64Counter
}

// NewWorkflow creates a Workflow with the minimum balance and commission rate.
func NewWorkflow(db database.DB, l *ledger.Ledger, minimum, rate decimal.Decimal) *Workflow {
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"withdrawal.transitions",
		metric.WithDescription("Withdrawal request status transitions"),
	)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create withdrawal transition counter")
	}
	return &Workflow{db: db, ledger: l, minimum: minimum, rate: rate, transitions: counter}
}

// Minimum returns the smallest balance that can be withdrawn.
func (w *Workflow) Minimum() decimal.Decimal { return w.minimum }

// QuoteFor returns the commission and net payout for amount at the
// configured rate.
func (w *Workflow) QuoteFor(amount decimal.Decimal) (commission, net decimal.Decimal) {
	return Quote(amount, w.rate)
}

// CheckEligible returns ErrBelowMinimum when balance cannot be withdrawn.
func (w *Workflow) CheckEligible(balance decimal.Decimal) error {
	if !balance.IsPositive() || balance.LessThan(w.minimum) {
		return ErrBelowMinimum
	}
	return nil
}

// Create snapshots the user's whole balance into a pending request and
// reserves it: balance moves to pending_balance in the same transaction as
// the request insert and its pending history row. A user holds at most one
// open request; a second one returns ErrOpenRequest.
func (w *Workflow) Create(
	ctx context.Context,
	userID int64,
	method models.WithdrawalMethod,
	account string,
) (*models.WithdrawalRequest, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "withdrawal.Create")
	defer span.End()

	account = NormalizeAccount(method, account)
	if err := ValidateAccount(method, account); err != nil {
		return nil, err
	}

	var req *models.WithdrawalRequest
	err := database.WithTx(ctx, w.db, func(tx pgx.Tx) error {
		users := repository.NewUserRepository(tx)
		user, err := users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		requests := repository.NewWithdrawalRepository(tx)
		open, err := requests.HasOpen(ctx, userID)
		if err != nil {
			return err
		}
		if open {
			return ErrOpenRequest
		}
		if err := w.CheckEligible(user.Balance); err != nil {
			return err
		}

		commission, net := w.QuoteFor(user.Balance)
		req = &models.WithdrawalRequest{
			UserID:         userID,
			Amount:         user.Balance,
			Commission:     commission,
			NetAmount:      net,
			Method:         method,
			AccountDetails: account,
		}

		if err := users.Reserve(ctx, userID, req.Amount, account); err != nil {
			return err
		}
		if err := requests.Create(ctx, req); err != nil {
			return err
		}
		ref := int64(req.ID)
		return w.ledger.RecordTx(ctx, tx, userID, req.Amount.Neg(), models.KindWithdrawal,
			fmt.Sprintf("withdrawal #%d via %s", req.ID, method), models.HistoryPending, &ref)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	w.count(ctx, models.WithdrawalPending)
	return req, nil
}

// Approve acknowledges a pending request and releases its reservation from
// pending_balance. The balance itself was already debited at creation.
func (w *Workflow) Approve(ctx context.Context, id int) (*models.WithdrawalRequest, error) {
	return w.transition(ctx, id, models.WithdrawalApproved, func(ctx context.Context, tx pgx.Tx, req *models.WithdrawalRequest) error {
		if req.Status != models.WithdrawalPending {
			return ErrInvalidTransition
		}
		return repository.NewUserRepository(tx).ReleasePending(ctx, req.UserID, req.Amount)
	})
}

// Complete confirms the payout of an approved request: balance and
// pending_balance are zeroed and total_withdrawn grows by the amount.
func (w *Workflow) Complete(ctx context.Context, id int) (*models.WithdrawalRequest, error) {
	return w.transition(ctx, id, models.WithdrawalCompleted, func(ctx context.Context, tx pgx.Tx, req *models.WithdrawalRequest) error {
		if req.Status != models.WithdrawalApproved {
			return ErrInvalidTransition
		}
		if err := repository.NewUserRepository(tx).Settle(ctx, req.UserID, req.Amount); err != nil {
			return err
		}
		return repository.NewHistoryRepository(tx).ResolvePending(ctx, models.KindWithdrawal, int64(req.ID), models.HistoryApproved)
	})
}

// Reject returns the reserved amount to balance. A pending request also
// releases its pending_balance; an approved one already did.
func (w *Workflow) Reject(ctx context.Context, id int) (*models.WithdrawalRequest, error) {
	return w.transition(ctx, id, models.WithdrawalRejected, func(ctx context.Context, tx pgx.Tx, req *models.WithdrawalRequest) error {
		var releasePending bool
		switch req.Status {
		case models.WithdrawalPending:
			releasePending = true
		case models.WithdrawalApproved:
		default:
			return ErrInvalidTransition
		}
		if err := repository.NewUserRepository(tx).Restore(ctx, req.UserID, req.Amount, releasePending); err != nil {
			return err
		}
		return repository.NewHistoryRepository(tx).ResolvePending(ctx, models.KindWithdrawal, int64(req.ID), models.HistoryRejected)
	})
}

type applyFunc func(ctx context.Context, tx pgx.Tx, req *models.WithdrawalRequest) error

func (w *Workflow) transition(
	ctx context.Context,
	id int,
	to models.WithdrawalStatus,
	apply applyFunc,
) (*models.WithdrawalRequest, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "withdrawal."+string(to))
	defer span.End()
	span.SetAttributes(attribute.Int("withdrawal.id", id))

	var req *models.WithdrawalRequest
	err := database.WithTx(ctx, w.db, func(tx pgx.Tx) error {
		repo := repository.NewWithdrawalRepository(tx)
		var err error
		req, err = repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if err := apply(ctx, tx, req); err != nil {
			return err
		}
		if err := repo.SetStatus(ctx, id, to); err != nil {
			return err
		}
		req.Status = to
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	w.count(ctx, to)
	return req, nil
}

func (w *Workflow) count(ctx context.Context, status models.WithdrawalStatus) {
	if w.transitions == nil {
		return
	}
	w.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
}

// Get returns a request by id.
func (w *Workflow) Get(ctx context.Context, id int) (*models.WithdrawalRequest, error) {
	req, err := repository.NewWithdrawalRepository(w.db).GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRequestNotFound
	}
	return req, err
}

// ListOpen returns pending and approved requests, oldest first.
func (w *Workflow) ListOpen(ctx context.Context, limit int) ([]models.WithdrawalRequest, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return repository.NewWithdrawalRepository(w.db).ListOpen(ctx, limit)
}
