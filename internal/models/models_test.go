package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSeason_IsCurrent(t *testing.T) {
	t.Parallel()

	season := Season{
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		IsActive:  true,
	}

	t.Run("inside range", func(t *testing.T) {
		t.Parallel()
		require.True(t, season.IsCurrent(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)))
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		t.Parallel()
		require.True(t, season.IsCurrent(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
		require.True(t, season.IsCurrent(time.Date(2026, 3, 31, 23, 59, 0, 0, time.UTC)))
	})

	t.Run("outside range", func(t *testing.T) {
		t.Parallel()
		require.False(t, season.IsCurrent(time.Date(2026, 2, 28, 23, 0, 0, 0, time.UTC)))
		require.False(t, season.IsCurrent(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("inactive season is never current", func(t *testing.T) {
		t.Parallel()
		inactive := season
		inactive.IsActive = false
		require.False(t, inactive.IsCurrent(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)))
	})
}

func TestParseProjectRef(t *testing.T) {
	t.Parallel()

	t.Run("season ref", func(t *testing.T) {
		t.Parallel()
		ref, err := ParseProjectRef("s12")
		require.NoError(t, err)
		require.Equal(t, ProjectRef{Source: SourceSeason, ID: 12}, ref)
	})

	t.Run("adhoc ref", func(t *testing.T) {
		t.Parallel()
		ref, err := ParseProjectRef("a7")
		require.NoError(t, err)
		require.Equal(t, ProjectRef{Source: SourceAdhoc, ID: 7}, ref)
	})

	t.Run("rejects malformed refs", func(t *testing.T) {
		t.Parallel()
		for _, in := range []string{"", "s", "x1", "s-1", "s0", "a1b", "12"} {
			_, err := ParseProjectRef(in)
			require.Error(t, err, in)
		}
	})

	t.Run("unknown source encodes empty", func(t *testing.T) {
		t.Parallel()
		require.Empty(t, ProjectRef{Source: "other", ID: 1}.String())
	})
}

func TestProjectRef_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ref := ProjectRef{
			Source: rapid.SampledFrom([]ProjectSource{SourceSeason, SourceAdhoc}).Draw(t, "source"),
			ID:     rapid.IntRange(1, 1<<30).Draw(t, "id"),
		}
		got, err := ParseProjectRef(ref.String())
		if err != nil {
			t.Fatalf("ParseProjectRef(%q): %v", ref.String(), err)
		}
		if got != ref {
			t.Fatalf("got %+v, want %+v", got, ref)
		}
	})
}
