package database

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	pool := TestDB(t)
	ctx := context.Background()

	err := RunMigrations(ctx, pool)
	require.NoError(t, err)

	tables := []string{
		"users", "balance_history", "seasons", "projects", "approved_projects",
		"votes", "vote_submissions", "withdrawal_requests", "announcements",
	}
	for _, table := range tables {
		var tableExists bool
		err = pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_name = $1
			)
		`, table).Scan(&tableExists)
		require.NoError(t, err)
		require.True(t, tableExists, "table %s should exist", table)
	}
}

// TestRunMigrations_Idempotent tests that migrations can be run multiple times safely.
func TestRunMigrations_Idempotent(t *testing.T) {
	pool := TestDB(t)
	ctx := context.Background()

	require.NoError(t, RunMigrations(ctx, pool))
	require.NoError(t, RunMigrations(ctx, pool))

	var count int
	err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	require.NoError(t, err)
}

func TestMigrations_Constraints(t *testing.T) {
	db := TestTx(t)
	ctx := context.Background()

	_, err := db.Exec(ctx, `INSERT INTO users (id, referral_code) VALUES (1, 'AAAA1111')`)
	require.NoError(t, err)

	t.Run("balance cannot go negative", func(t *testing.T) {
		err := WithTx(ctx, db, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `UPDATE users SET balance = -1 WHERE id = 1`)
			return err
		})
		require.Error(t, err)
	})

	t.Run("pending balance cannot go negative", func(t *testing.T) {
		err := WithTx(ctx, db, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `UPDATE users SET pending_balance = -1 WHERE id = 1`)
			return err
		})
		require.Error(t, err)
	})

	t.Run("referral codes are unique", func(t *testing.T) {
		err := WithTx(ctx, db, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `INSERT INTO users (id, referral_code) VALUES (2, 'AAAA1111')`)
			return err
		})
		require.Error(t, err)
		require.True(t, IsUniqueViolation(err))
	})

	t.Run("vote triple is unique", func(t *testing.T) {
		_, err := db.Exec(ctx, `INSERT INTO votes (user_id, project_source, project_id, season_id) VALUES (1, 'adhoc', 7, 0)`)
		require.NoError(t, err)

		err = WithTx(ctx, db, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `INSERT INTO votes (user_id, project_source, project_id, season_id) VALUES (1, 'adhoc', 7, 0)`)
			return err
		})
		require.True(t, IsUniqueViolation(err))
	})
}
