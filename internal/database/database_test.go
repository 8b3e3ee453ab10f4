package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	t.Run("fails with invalid connection string", func(t *testing.T) {
		ctx := context.Background()
		pool, err := Connect(ctx, "invalid://connection")
		require.Error(t, err)
		require.Nil(t, pool)
	})

	t.Run("fails with unreachable host", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		pool, err := Connect(ctx, "postgres://localhost:59999/nonexistent?connect_timeout=1")
		require.Error(t, err)
		require.Nil(t, pool)
	})
}

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	require.True(t, IsUniqueViolation(errors.Join(errors.New("insert"), &pgconn.PgError{Code: "23505"})))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23514"}))
	require.False(t, IsUniqueViolation(errors.New("boom")))
	require.False(t, IsUniqueViolation(nil))
}

func TestWithTx(t *testing.T) {
	db := TestTx(t)
	ctx := context.Background()

	t.Run("rolls back on error", func(t *testing.T) {
		sentinel := errors.New("abort")
		err := WithTx(ctx, db, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `INSERT INTO users (id, referral_code) VALUES (900, 'ROLLBACK')`); err != nil {
				return err
			}
			return sentinel
		})
		require.ErrorIs(t, err, sentinel)

		var exists bool
		err = db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = 900)`).Scan(&exists)
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("commits on success", func(t *testing.T) {
		err := WithTx(ctx, db, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `INSERT INTO users (id, referral_code) VALUES (901, 'COMMITED')`)
			return err
		})
		require.NoError(t, err)

		var exists bool
		err = db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = 901)`).Scan(&exists)
		require.NoError(t, err)
		require.True(t, exists)
	})
}
