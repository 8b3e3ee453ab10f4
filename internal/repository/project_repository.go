package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/contest-bot/internal/database"
	"gitlab.com/yelinaung/contest-bot/internal/models"
)

// ProjectRepository stores both voteable project tables. Every method takes
// a models.ProjectRef so the caller never tries one table after the other.
type ProjectRepository struct {
	db database.PGXDB
}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(db database.PGXDB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// CreateSeasonProject inserts a season-scoped project.
func (r *ProjectRepository) CreateSeasonProject(ctx context.Context, p *models.VoteableProject) error {
	var id int
	err := r.db.QueryRow(ctx, `
		INSERT INTO projects (season_id, name, link, region, budget, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, p.SeasonID, p.Name, p.Link, p.Region, p.Budget, p.Status).Scan(&id, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create season project: %w", err)
	}
	p.Ref = models.ProjectRef{Source: models.SourceSeason, ID: id}
	return nil
}

// CreateAdhoc inserts an admin-submitted approved project.
func (r *ProjectRepository) CreateAdhoc(ctx context.Context, p *models.VoteableProject, createdBy int64) error {
	var id int
	err := r.db.QueryRow(ctx, `
		INSERT INTO approved_projects (name, link, status, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, p.Name, p.Link, p.Status, createdBy).Scan(&id, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create approved project: %w", err)
	}
	p.Ref = models.ProjectRef{Source: models.SourceAdhoc, ID: id}
	return nil
}

// Get resolves a project by ref.
func (r *ProjectRepository) Get(ctx context.Context, ref models.ProjectRef) (*models.VoteableProject, error) {
	p := models.VoteableProject{Ref: ref}
	var err error

	switch ref.Source {
	case models.SourceSeason:
		err = r.db.QueryRow(ctx, `
			SELECT season_id, name, link, region, budget, status, created_at
			FROM projects WHERE id = $1
		`, ref.ID).Scan(&p.SeasonID, &p.Name, &p.Link, &p.Region, &p.Budget, &p.Status, &p.CreatedAt)
	case models.SourceAdhoc:
		err = r.db.QueryRow(ctx, `
			SELECT name, link, status, created_at
			FROM approved_projects WHERE id = $1
		`, ref.ID).Scan(&p.Name, &p.Link, &p.Status, &p.CreatedAt)
	default:
		return nil, fmt.Errorf("failed to get project: unknown source %q: %w", ref.Source, ErrNotFound)
	}
	if err != nil {
		return nil, wrapNoRows(err, "failed to get project")
	}
	return &p, nil
}

// ListVoteable returns the active projects of the given season followed by
// all active ad-hoc projects. seasonID 0 lists ad-hoc projects only.
func (r *ProjectRepository) ListVoteable(ctx context.Context, seasonID int) ([]models.VoteableProject, error) {
	rows, err := r.db.Query(ctx, `
		SELECT 'season', id, season_id, name, link, region, budget, status, created_at
		FROM projects WHERE season_id = $1 AND status = 'active'
		UNION ALL
		SELECT 'adhoc', id, 0, name, link, '', 0, status, created_at
		FROM approved_projects WHERE status = 'active'
		ORDER BY 1 DESC, 2
	`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.VoteableProject
	for rows.Next() {
		var p models.VoteableProject
		if err := rows.Scan(&p.Ref.Source, &p.Ref.ID, &p.SeasonID, &p.Name, &p.Link, &p.Region,
			&p.Budget, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, nil
}

// Update changes the name and link of a project.
func (r *ProjectRepository) Update(ctx context.Context, ref models.ProjectRef, name, link string) error {
	var query string
	switch ref.Source {
	case models.SourceSeason:
		query = `UPDATE projects SET name = $2, link = $3 WHERE id = $1`
	case models.SourceAdhoc:
		query = `UPDATE approved_projects SET name = $2, link = $3 WHERE id = $1`
	default:
		return fmt.Errorf("failed to update project: unknown source %q: %w", ref.Source, ErrNotFound)
	}

	tag, err := r.db.Exec(ctx, query, ref.ID, name, link)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update project: %w", ErrNotFound)
	}
	return nil
}

// Delete removes a project.
func (r *ProjectRepository) Delete(ctx context.Context, ref models.ProjectRef) error {
	var query string
	switch ref.Source {
	case models.SourceSeason:
		query = `DELETE FROM projects WHERE id = $1`
	case models.SourceAdhoc:
		query = `DELETE FROM approved_projects WHERE id = $1`
	default:
		return fmt.Errorf("failed to delete project: unknown source %q: %w", ref.Source, ErrNotFound)
	}

	tag, err := r.db.Exec(ctx, query, ref.ID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete project: %w", ErrNotFound)
	}
	return nil
}
