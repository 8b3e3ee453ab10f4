package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/contest-bot/internal/database"
	"gitlab.com/yelinaung/contest-bot/internal/models"
)

// VoteRepository handles votes and vote proof submissions.
type VoteRepository struct {
	db database.PGXDB
}

// NewVoteRepository creates a new VoteRepository.
func NewVoteRepository(db database.PGXDB) *VoteRepository {
	return &VoteRepository{db: db}
}

// Insert adds a vote. It returns false, with no error, when the
// (user, project, season) triple already exists.
func (r *VoteRepository) Insert(ctx context.Context, v *models.Vote) (bool, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO votes (user_id, project_source, project_id, season_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, project_source, project_id, season_id) DO NOTHING
		RETURNING id, created_at
	`, v.UserID, v.Project.Source, v.Project.ID, v.SeasonID).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert vote: %w", err)
	}
	return true, nil
}

// Exists reports whether the user already voted for the project in the season.
func (r *VoteRepository) Exists(ctx context.Context, userID int64, ref models.ProjectRef, seasonID int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM votes
			WHERE user_id = $1 AND project_source = $2 AND project_id = $3 AND season_id = $4
		)
	`, userID, ref.Source, ref.ID, seasonID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check vote: %w", err)
	}
	return exists, nil
}

// Delete removes a vote so the user can vote for the project again.
func (r *VoteRepository) Delete(ctx context.Context, userID int64, ref models.ProjectRef, seasonID int) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM votes
		WHERE user_id = $1 AND project_source = $2 AND project_id = $3 AND season_id = $4
	`, userID, ref.Source, ref.ID, seasonID)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}
	return nil
}

// CountForSeason returns how many votes the user cast in the season.
func (r *VoteRepository) CountForSeason(ctx context.Context, userID int64, seasonID int) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM votes WHERE user_id = $1 AND season_id = $2
	`, userID, seasonID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}

// ProjectVoteCount is the number of votes a project received.
type ProjectVoteCount struct {
	Project models.ProjectRef
	Name    string
	Votes   int
}

// CountByProject returns vote totals per project for a season, highest first.
func (r *VoteRepository) CountByProject(ctx context.Context, seasonID int) ([]ProjectVoteCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT v.project_source, v.project_id, COALESCE(p.name, ap.name, '?'), COUNT(*)
		FROM votes v
		LEFT JOIN projects p ON v.project_source = 'season' AND p.id = v.project_id
		LEFT JOIN approved_projects ap ON v.project_source = 'adhoc' AND ap.id = v.project_id
		WHERE v.season_id = $1
		GROUP BY 1, 2, 3
		ORDER BY 4 DESC, 3
	`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes by project: %w", err)
	}
	defer rows.Close()

	var counts []ProjectVoteCount
	for rows.Next() {
		var c ProjectVoteCount
		if err := rows.Scan(&c.Project.Source, &c.Project.ID, &c.Name, &c.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan vote count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vote counts: %w", err)
	}
	return counts, nil
}

// CreateSubmission stores a pending vote proof.
func (r *VoteRepository) CreateSubmission(ctx context.Context, s *models.VoteSubmission) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO vote_submissions (user_id, project_source, project_id, season_id, screenshots)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at
	`, s.UserID, s.Project.Source, s.Project.ID, s.SeasonID, s.Screenshots,
	).Scan(&s.ID, &s.Status, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create vote submission: %w", err)
	}
	return nil
}

// GetSubmission retrieves a vote submission by ID.
func (r *VoteRepository) GetSubmission(ctx context.Context, id int) (*models.VoteSubmission, error) {
	var s models.VoteSubmission
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, project_source, project_id, season_id, screenshots, status,
			decided_by, decided_at, created_at
		FROM vote_submissions WHERE id = $1
	`, id).Scan(&s.ID, &s.UserID, &s.Project.Source, &s.Project.ID, &s.SeasonID, &s.Screenshots,
		&s.Status, &s.DecidedBy, &s.DecidedAt, &s.CreatedAt)
	if err != nil {
		return nil, wrapNoRows(err, "failed to get vote submission")
	}
	return &s, nil
}

// Decide moves a pending submission to status. It returns false when the
// submission is missing or already decided.
func (r *VoteRepository) Decide(ctx context.Context, id int, status models.SubmissionStatus, decidedBy int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE vote_submissions
		SET status = $2, decided_by = $3, decided_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, status, decidedBy)
	if err != nil {
		return false, fmt.Errorf("failed to decide vote submission: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CountSubmissions returns submission totals grouped by status.
func (r *VoteRepository) CountSubmissions(ctx context.Context) (map[models.SubmissionStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM vote_submissions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.SubmissionStatus]int)
	for rows.Next() {
		var status models.SubmissionStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan submission count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submission counts: %w", err)
	}
	return counts, nil
}
