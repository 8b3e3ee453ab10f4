package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/contest-bot/internal/database"
	"gitlab.com/yelinaung/contest-bot/internal/models"
)

func TestCatalog_Projects(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()
	c := New(tx)

	p, err := c.CreateProject(ctx, "  Library  ", "https://example.org/lib", 1)
	require.NoError(t, err)
	require.Equal(t, "Library", p.Name)
	require.Equal(t, models.SourceAdhoc, p.Ref.Source)

	_, err = c.CreateProject(ctx, "", "https://example.org", 1)
	require.ErrorIs(t, err, ErrInvalidProject)

	got, err := c.GetProject(ctx, p.Ref)
	require.NoError(t, err)
	require.Equal(t, "https://example.org/lib", got.Link)

	require.NoError(t, c.UpdateProject(ctx, p.Ref, "Library 2", "https://example.org/lib2"))
	require.ErrorIs(t, c.UpdateProject(ctx, p.Ref, "", ""), ErrInvalidProject)

	require.NoError(t, c.DeleteProject(ctx, p.Ref))
	_, err = c.GetProject(ctx, p.Ref)
	require.ErrorIs(t, err, ErrProjectNotFound)
	require.ErrorIs(t, c.DeleteProject(ctx, p.Ref), ErrProjectNotFound)
}

func TestCatalog_Seasons(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()
	c := New(tx)
	now := time.Date(2026, 4, 10, 15, 0, 0, 0, time.UTC)

	season, err := c.CurrentSeason(ctx, now)
	require.NoError(t, err)
	require.Nil(t, season)

	past := &models.Season{
		Name:            "Winter",
		StartDate:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		MaxVotesPerUser: 3,
	}
	require.NoError(t, c.CreateSeason(ctx, past))

	spring := &models.Season{
		Name:            "Spring",
		StartDate:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
		MaxVotesPerUser: 2,
	}
	require.NoError(t, c.CreateSeason(ctx, spring))

	season, err = c.CurrentSeason(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, season)
	require.Equal(t, spring.ID, season.ID)
	require.Equal(t, 2, season.MaxVotesPerUser)

	t.Run("rejects inverted range", func(t *testing.T) {
		bad := &models.Season{Name: "Bad", StartDate: now, EndDate: now.AddDate(0, 0, -1), MaxVotesPerUser: 1}
		require.ErrorIs(t, c.CreateSeason(ctx, bad), ErrInvalidSeason)
	})

	t.Run("season projects", func(t *testing.T) {
		p, err := c.CreateSeasonProject(ctx, SeasonProjectDraft{
			SeasonID: spring.ID,
			Name:     "Bridge",
			Link:     "https://example.org/bridge",
			Region:   "Khorezm",
			Budget:   decimal.NewFromInt(90000000),
		})
		require.NoError(t, err)
		require.Equal(t, models.SourceSeason, p.Ref.Source)

		list, err := c.ListProjects(ctx, spring.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, "Khorezm", list[0].Region)

		_, err = c.CreateSeasonProject(ctx, SeasonProjectDraft{Name: "x", Link: "y"})
		require.ErrorIs(t, err, ErrInvalidSeason)
	})
}

func TestCatalog_Announcements(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()
	c := New(tx)

	_, err := c.LatestAnnouncement(ctx, "uz")
	require.ErrorIs(t, err, ErrNoAnnouncement)

	require.NoError(t, c.CreateAnnouncement(ctx, &models.Announcement{Title: "One", Content: "first", Language: "uz", CreatedBy: 1}))
	require.NoError(t, c.CreateAnnouncement(ctx, &models.Announcement{Title: "Two", Content: "second", Language: "uz", CreatedBy: 1}))
	require.NoError(t, c.CreateAnnouncement(ctx, &models.Announcement{Title: "Bir", Content: "ru", Language: "ru", CreatedBy: 1}))

	latest, err := c.LatestAnnouncement(ctx, "uz")
	require.NoError(t, err)
	require.Equal(t, "Two", latest.Title)

	latest, err = c.LatestAnnouncement(ctx, "ru")
	require.NoError(t, err)
	require.Equal(t, "Bir", latest.Title)
}
