package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates the database schema.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			region TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT 'uz',
			referral_code TEXT NOT NULL UNIQUE,
			referred_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
			balance NUMERIC(14, 2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			pending_balance NUMERIC(14, 2) NOT NULL DEFAULT 0 CHECK (pending_balance >= 0),
			total_earned NUMERIC(14, 2) NOT NULL DEFAULT 0,
			total_withdrawn NUMERIC(14, 2) NOT NULL DEFAULT 0,
			last_withdrawal_account TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_language ON users(language) WHERE is_active`,
		`CREATE TABLE IF NOT EXISTS balance_history (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			amount NUMERIC(14, 2) NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('referral_bonus', 'vote_bonus', 'payment', 'withdrawal')),
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
			reference_id BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_balance_history_user_id ON balance_history(user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS seasons (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			max_votes_per_user INTEGER NOT NULL CHECK (max_votes_per_user > 0),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (end_date >= start_date)
		)`,
		`CREATE TABLE IF NOT EXISTS projects (
			id SERIAL PRIMARY KEY,
			season_id INTEGER NOT NULL REFERENCES seasons(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			link TEXT NOT NULL DEFAULT '',
			region TEXT NOT NULL DEFAULT '',
			budget NUMERIC(16, 2) NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS approved_projects (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			link TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			created_by BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS votes (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			project_source TEXT NOT NULL CHECK (project_source IN ('season', 'adhoc')),
			project_id INTEGER NOT NULL,
			season_id INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, project_source, project_id, season_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_user_season ON votes(user_id, season_id)`,
		`CREATE TABLE IF NOT EXISTS vote_submissions (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			project_source TEXT NOT NULL,
			project_id INTEGER NOT NULL,
			season_id INTEGER NOT NULL DEFAULT 0,
			screenshots TEXT[] NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
			decided_by BIGINT,
			decided_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS withdrawal_requests (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			amount NUMERIC(14, 2) NOT NULL CHECK (amount > 0),
			commission NUMERIC(14, 2) NOT NULL,
			net_amount NUMERIC(14, 2) NOT NULL,
			method TEXT NOT NULL CHECK (method IN ('card', 'phone')),
			account_details TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected', 'completed')),
			processed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_status ON withdrawal_requests(status)`,
		`CREATE TABLE IF NOT EXISTS announcements (
			id SERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			language TEXT NOT NULL,
			created_by BIGINT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_announcements_language ON announcements(language, created_at DESC)`,
	}

	for i, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
