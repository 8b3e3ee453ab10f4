// Package votes implements the vote registry: one vote per user, project
// and season, plus the admin review of vote proofs.
package votes

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/contest-bot/internal/database"
	"gitlab.com/yelinaung/contest-bot/internal/ledger"
	"gitlab.com/yelinaung/contest-bot/internal/models"
	"gitlab.com/yelinaung/contest-bot/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrAlreadyVoted is returned when the user already voted for the
	// project in the season.
	ErrAlreadyVoted = errors.New("votes: already voted for this project")
	// ErrVoteLimitReached is returned once the user has used every vote of
	// the season.
	ErrVoteLimitReached = errors.New("votes: season vote limit reached")
	// ErrSubmissionNotFound is returned when no submission has the given ID.
	ErrSubmissionNotFound = errors.New("votes: submission not found")
	// ErrAlreadyDecided is returned when a submission was already approved
	// or rejected.
	ErrAlreadyDecided = errors.New("votes: submission already decided")
	// ErrProjectNotFound is returned when the voted project was deleted
	// before the proof arrived.
	ErrProjectNotFound = errors.New("votes: project not found")
)

const tracerName = "gitlab.com/yelinaung/contest-bot/internal/votes"

// Registry registers votes and settles vote proofs.
type Registry struct {
	db        database.DB
	ledger    *ledger.Ledger
	voteBonus decimal.Decimal
}

// NewRegistry creates a Registry that pays voteBonus per approved proof.
func NewRegistry(db database.DB, l *ledger.Ledger, voteBonus decimal.Decimal) *Registry {
	return &Registry{db: db, ledger: l, voteBonus: voteBonus}
}

// RegisterVote records a vote. A repeated (user, project, season) triple
// returns ErrAlreadyVoted and writes nothing.
func (r *Registry) RegisterVote(ctx context.Context, userID int64, ref models.ProjectRef, seasonID int) error {
	return registerVote(ctx, r.db, userID, ref, seasonID)
}

func registerVote(ctx context.Context, db database.PGXDB, userID int64, ref models.ProjectRef, seasonID int) error {
	inserted, err := repository.NewVoteRepository(db).Insert(ctx, &models.Vote{
		UserID:   userID,
		Project:  ref,
		SeasonID: seasonID,
	})
	if err != nil {
		return err
	}
	if !inserted {
		return ErrAlreadyVoted
	}
	return nil
}

// CountVotes returns the number of votes the user cast in the season.
func (r *Registry) CountVotes(ctx context.Context, userID int64, seasonID int) (int, error) {
	return repository.NewVoteRepository(r.db).CountForSeason(ctx, userID, seasonID)
}

// HasVoted reports whether the user already voted for the project in the season.
func (r *Registry) HasVoted(ctx context.Context, userID int64, ref models.ProjectRef, seasonID int) (bool, error) {
	return repository.NewVoteRepository(r.db).Exists(ctx, userID, ref, seasonID)
}

// CheckEligible returns ErrVoteLimitReached or ErrAlreadyVoted when the user
// may not start a vote for the project.
func (r *Registry) CheckEligible(ctx context.Context, userID int64, ref models.ProjectRef, seasonID, maxVotes int) error {
	n, err := r.CountVotes(ctx, userID, seasonID)
	if err != nil {
		return err
	}
	if n >= maxVotes {
		return ErrVoteLimitReached
	}
	voted, err := r.HasVoted(ctx, userID, ref, seasonID)
	if err != nil {
		return err
	}
	if voted {
		return ErrAlreadyVoted
	}
	return nil
}

// Submit registers the vote and stores its proof for review in one
// transaction. The project must still exist and the cap is re-checked
// inside the transaction.
func (r *Registry) Submit(
	ctx context.Context,
	userID int64,
	ref models.ProjectRef,
	seasonID, maxVotes int,
	screenshots []string,
) (*models.VoteSubmission, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "votes.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("vote.project", ref.String()))

	sub := &models.VoteSubmission{
		UserID:      userID,
		Project:     ref,
		SeasonID:    seasonID,
		Screenshots: screenshots,
	}
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := repository.NewProjectRepository(tx).Get(ctx, ref); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrProjectNotFound
			}
			return err
		}
		repo := repository.NewVoteRepository(tx)
		n, err := repo.CountForSeason(ctx, userID, seasonID)
		if err != nil {
			return err
		}
		if n >= maxVotes {
			return ErrVoteLimitReached
		}
		if err := registerVote(ctx, tx, userID, ref, seasonID); err != nil {
			return err
		}
		return repo.CreateSubmission(ctx, sub)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return sub, nil
}

// Approve marks a pending submission approved, credits the vote bonus and
// records a payment entry, all in one transaction. A second approval of the
// same submission returns ErrAlreadyDecided and pays nothing. The project is
// not looked up again: a proof accepted while the project existed stays
// payable after the project is deleted.
func (r *Registry) Approve(ctx context.Context, submissionID int, adminID int64) (*models.VoteSubmission, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "votes.Approve")
	defer span.End()

	var sub *models.VoteSubmission
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		sub, err = r.decide(ctx, tx, submissionID, models.SubmissionApproved, adminID)
		if err != nil {
			return err
		}

		desc := fmt.Sprintf("vote for %s", sub.Project)
		if err := r.ledger.CreditTx(ctx, tx, sub.UserID, r.voteBonus, models.KindVoteBonus, desc); err != nil {
			return err
		}
		return r.ledger.RecordTx(ctx, tx, sub.UserID, r.voteBonus, models.KindPayment,
			"vote approved", models.HistoryApproved, nil)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return sub, nil
}

// Reject marks a pending submission rejected and frees the vote slot. The
// ledger is not touched.
func (r *Registry) Reject(ctx context.Context, submissionID int, adminID int64) (*models.VoteSubmission, error) {
	var sub *models.VoteSubmission
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		sub, err = r.decide(ctx, tx, submissionID, models.SubmissionRejected, adminID)
		if err != nil {
			return err
		}
		return repository.NewVoteRepository(tx).Delete(ctx, sub.UserID, sub.Project, sub.SeasonID)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *Registry) decide(
	ctx context.Context,
	tx database.PGXDB,
	submissionID int,
	status models.SubmissionStatus,
	adminID int64,
) (*models.VoteSubmission, error) {
	repo := repository.NewVoteRepository(tx)
	sub, err := repo.GetSubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	decided, err := repo.Decide(ctx, submissionID, status, adminID)
	if err != nil {
		return nil, err
	}
	if !decided {
		return nil, ErrAlreadyDecided
	}
	sub.Status = status
	sub.DecidedBy = &adminID
	return sub, nil
}

// Tally returns vote totals per project for a season.
func (r *Registry) Tally(ctx context.Context, seasonID int) ([]repository.ProjectVoteCount, error) {
	return repository.NewVoteRepository(r.db).CountByProject(ctx, seasonID)
}

// SubmissionCounts returns submission totals by status.
func (r *Registry) SubmissionCounts(ctx context.Context) (map[models.SubmissionStatus]int, error) {
	return repository.NewVoteRepository(r.db).CountSubmissions(ctx)
}
