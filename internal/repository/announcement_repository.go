package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/contest-bot/internal/database"
	"gitlab.com/yelinaung/contest-bot/internal/models"
)

// AnnouncementRepository handles news items.
type AnnouncementRepository struct {
	db database.PGXDB
}

// NewAnnouncementRepository creates a new AnnouncementRepository.
func NewAnnouncementRepository(db database.PGXDB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// Create inserts an active announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, a *models.Announcement) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO announcements (title, content, language, created_by, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, is_active, created_at
	`, a.Title, a.Content, a.Language, a.CreatedBy).Scan(&a.ID, &a.IsActive, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create announcement: %w", err)
	}
	return nil
}

// Latest returns the newest active announcement in a language.
func (r *AnnouncementRepository) Latest(ctx context.Context, language string) (*models.Announcement, error) {
	var a models.Announcement
	err := r.db.QueryRow(ctx, `
		SELECT id, title, content, language, created_by, is_active, created_at
		FROM announcements
		WHERE language = $1 AND is_active
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, language).Scan(&a.ID, &a.Title, &a.Content, &a.Language, &a.CreatedBy, &a.IsActive, &a.CreatedAt)
	if err != nil {
		return nil, wrapNoRows(err, "failed to get latest announcement")
	}
	return &a, nil
}
