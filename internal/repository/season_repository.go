package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/contest-bot/internal/database"
	"gitlab.com/yelinaung/contest-bot/internal/models"
)

// SeasonRepository handles season database operations.
type SeasonRepository struct {
	db database.PGXDB
}

// NewSeasonRepository creates a new SeasonRepository.
func NewSeasonRepository(db database.PGXDB) *SeasonRepository {
	return &SeasonRepository{db: db}
}

// Create inserts a season.
func (r *SeasonRepository) Create(ctx context.Context, s *models.Season) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO seasons (name, start_date, end_date, max_votes_per_user, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, s.Name, s.StartDate, s.EndDate, s.MaxVotesPerUser, s.IsActive).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create season: %w", err)
	}
	return nil
}

// ListActive returns all active seasons, most recently started first.
func (r *SeasonRepository) ListActive(ctx context.Context) ([]models.Season, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, start_date, end_date, max_votes_per_user, is_active, created_at
		FROM seasons
		WHERE is_active
		ORDER BY start_date DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}
	defer rows.Close()

	var seasons []models.Season
	for rows.Next() {
		var s models.Season
		if err := rows.Scan(&s.ID, &s.Name, &s.StartDate, &s.EndDate, &s.MaxVotesPerUser,
			&s.IsActive, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan season: %w", err)
		}
		seasons = append(seasons, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate seasons: %w", err)
	}
	return seasons, nil
}

// Deactivate turns off a season.
func (r *SeasonRepository) Deactivate(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, `UPDATE seasons SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate season: %w", err)
	}
	return nil
}
