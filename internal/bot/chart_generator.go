package bot

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-analyze/charts"
	"gitlab.com/yelinaung/contest-bot/internal/repository"
)

// errNoVotes is returned when there is nothing to chart.
var errNoVotes = errors.New("no votes to chart")

// GenerateVoteChart creates a pie chart of votes per project.
// Returns PNG image as bytes.
func GenerateVoteChart(counts []repository.ProjectVoteCount, title string) ([]byte, error) {
	if len(counts) == 0 {
		return nil, errNoVotes
	}

	values := make([]float64, 0, len(counts))
	names := make([]string, 0, len(counts))
	for _, c := range counts {
		names = append(names, fmt.Sprintf("%s (%d)", c.Name, c.Votes))
		values = append(values, float64(c.Votes))
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{
			Text: title,
		}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	// Render to PNG bytes
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	return buf, nil
}

// generateChartFilename creates filename like "votes_season_3_2026-10-16.png".
func generateChartFilename(seasonID int, now time.Time) string {
	return fmt.Sprintf("votes_season_%d_%s.png", seasonID, now.Format("2006-01-02"))
}
