// Package catalog holds the admin-curated content: voteable projects from
// both sources, seasons and announcements.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/contest-bot/internal/database"
	"gitlab.com/yelinaung/contest-bot/internal/models"
	"gitlab.com/yelinaung/contest-bot/internal/repository"
)

var (
	// ErrProjectNotFound is returned when no project matches the ref.
	ErrProjectNotFound = errors.New("catalog: project not found")
	// ErrNoAnnouncement is returned when no announcement exists in the
	// requested language.
	ErrNoAnnouncement = errors.New("catalog: no announcement")
	// ErrInvalidProject is returned when a project lacks a name or link.
	ErrInvalidProject = errors.New("catalog: project name and link are required")
	// ErrInvalidSeason is returned for a season with no name, no vote cap,
	// an end before its start, or a seasonal project with a bad season or
	// negative budget.
	ErrInvalidSeason = errors.New("catalog: invalid season")
)

// Catalog reads and writes curated content.
type Catalog struct {
	projects      *repository.ProjectRepository
	seasons       *repository.SeasonRepository
	announcements *repository.AnnouncementRepository
}

// New creates a Catalog over db.
func New(db database.PGXDB) *Catalog {
	return &Catalog{
		projects:      repository.NewProjectRepository(db),
		seasons:       repository.NewSeasonRepository(db),
		announcements: repository.NewAnnouncementRepository(db),
	}
}

func mapNotFound(err, sentinel error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return sentinel
	}
	return err
}

// ListProjects returns the season's projects followed by the ad-hoc ones.
// seasonID 0 lists ad-hoc projects only.
func (c *Catalog) ListProjects(ctx context.Context, seasonID int) ([]models.VoteableProject, error) {
	return c.projects.ListVoteable(ctx, seasonID)
}

// GetProject resolves a project by its tagged ref.
func (c *Catalog) GetProject(ctx context.Context, ref models.ProjectRef) (*models.VoteableProject, error) {
	p, err := c.projects.Get(ctx, ref)
	if err != nil {
		return nil, mapNotFound(err, ErrProjectNotFound)
	}
	return p, nil
}

// CreateProject publishes an ad-hoc project.
func (c *Catalog) CreateProject(ctx context.Context, name, link string, createdBy int64) (*models.VoteableProject, error) {
	name, link = strings.TrimSpace(name), strings.TrimSpace(link)
	if name == "" || link == "" {
		return nil, ErrInvalidProject
	}
	p := &models.VoteableProject{Name: name, Link: link, Status: models.ProjectStatusActive}
	if err := c.projects.CreateAdhoc(ctx, p, createdBy); err != nil {
		return nil, err
	}
	return p, nil
}

// SeasonProjectDraft carries the fields of a season-scoped project.
type SeasonProjectDraft struct {
	SeasonID int
	Name     string
	Link     string
	Region   string
	Budget   decimal.Decimal
}

// CreateSeasonProject publishes a project in a season.
func (c *Catalog) CreateSeasonProject(ctx context.Context, d SeasonProjectDraft) (*models.VoteableProject, error) {
	if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.Link) == "" {
		return nil, ErrInvalidProject
	}
	if d.SeasonID <= 0 || d.Budget.IsNegative() {
		return nil, ErrInvalidSeason
	}
	p := &models.VoteableProject{
		SeasonID: d.SeasonID,
		Name:     strings.TrimSpace(d.Name),
		Link:     strings.TrimSpace(d.Link),
		Region:   d.Region,
		Budget:   d.Budget,
		Status:   models.ProjectStatusActive,
	}
	if err := c.projects.CreateSeasonProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProject renames a project and replaces its link.
func (c *Catalog) UpdateProject(ctx context.Context, ref models.ProjectRef, name, link string) error {
	name, link = strings.TrimSpace(name), strings.TrimSpace(link)
	if name == "" || link == "" {
		return ErrInvalidProject
	}
	return mapNotFound(c.projects.Update(ctx, ref, name, link), ErrProjectNotFound)
}

// DeleteProject removes a project.
func (c *Catalog) DeleteProject(ctx context.Context, ref models.ProjectRef) error {
	return mapNotFound(c.projects.Delete(ctx, ref), ErrProjectNotFound)
}

// CurrentSeason returns the active season whose date range contains now,
// or nil when there is none.
func (c *Catalog) CurrentSeason(ctx context.Context, now time.Time) (*models.Season, error) {
	seasons, err := c.seasons.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for i := range seasons {
		if seasons[i].IsCurrent(now) {
			return &seasons[i], nil
		}
	}
	return nil, nil
}

// CreateSeason stores an active season.
func (c *Catalog) CreateSeason(ctx context.Context, s *models.Season) error {
	if strings.TrimSpace(s.Name) == "" || s.MaxVotesPerUser <= 0 || s.EndDate.Before(s.StartDate) {
		return ErrInvalidSeason
	}
	s.IsActive = true
	return c.seasons.Create(ctx, s)
}

// CreateAnnouncement publishes a news item, which becomes the latest for
// its language.
func (c *Catalog) CreateAnnouncement(ctx context.Context, a *models.Announcement) error {
	return c.announcements.Create(ctx, a)
}

// LatestAnnouncement returns the newest announcement in language.
func (c *Catalog) LatestAnnouncement(ctx context.Context, language string) (*models.Announcement, error) {
	a, err := c.announcements.Latest(ctx, language)
	if err != nil {
		return nil, mapNotFound(err, ErrNoAnnouncement)
	}
	return a, nil
}
