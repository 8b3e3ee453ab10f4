package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/contest-bot/internal/database"
	"gitlab.com/yelinaung/contest-bot/internal/models"
	"gitlab.com/yelinaung/contest-bot/internal/repository"
)

func seedUser(t *testing.T, db database.PGXDB, id int64) {
	t.Helper()
	err := repository.NewUserRepository(db).Create(context.Background(), &models.User{
		ID:           id,
		Language:     "uz",
		ReferralCode: "LDG" + decimal.NewFromInt(id).String(),
	})
	require.NoError(t, err)
}

func TestLedger_Credit(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()
	seedUser(t, tx, 1001)
	l := New(tx)

	require.NoError(t, l.Credit(ctx, 1001, decimal.NewFromInt(5000), models.KindReferralBonus, "referral"))
	require.NoError(t, l.Credit(ctx, 1001, decimal.NewFromInt(10000), models.KindVoteBonus, "vote"))

	user, err := repository.NewUserRepository(tx).GetByID(ctx, 1001)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(15000).Equal(user.Balance))
	require.True(t, decimal.NewFromInt(15000).Equal(user.TotalEarned))

	history, err := l.History(ctx, 1001, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, e := range history {
		require.Equal(t, models.HistoryApproved, e.Status)
	}
	require.Equal(t, models.KindVoteBonus, history[0].Kind)
}

func TestLedger_CreditErrors(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()
	seedUser(t, tx, 1002)
	l := New(tx)

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		require.ErrorIs(t, l.Credit(ctx, 1002, decimal.Zero, models.KindVoteBonus, ""), ErrInvalidAmount)
		require.ErrorIs(t, l.Credit(ctx, 1002, decimal.NewFromInt(-1), models.KindVoteBonus, ""), ErrInvalidAmount)
	})

	t.Run("unknown user leaves no history", func(t *testing.T) {
		err := l.Credit(ctx, 999999, decimal.NewFromInt(10), models.KindVoteBonus, "")
		require.ErrorIs(t, err, ErrUserNotFound)

		history, err := l.History(ctx, 999999, 10)
		require.NoError(t, err)
		require.Empty(t, history)
	})
}

func TestLedger_Record(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()
	seedUser(t, tx, 1003)
	l := New(tx)

	err := l.Record(ctx, 1003, decimal.NewFromInt(10000), models.KindPayment, "vote approved", models.HistoryApproved)
	require.NoError(t, err)

	user, err := repository.NewUserRepository(tx).GetByID(ctx, 1003)
	require.NoError(t, err)
	require.True(t, user.Balance.IsZero(), "record does not move money")
	require.True(t, user.TotalEarned.IsZero())

	history, err := l.History(ctx, 1003, 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, models.KindPayment, history[0].Kind)
}
