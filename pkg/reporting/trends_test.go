package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterdash/reporting-engine/pkg/schema"
)

// tenWeeks builds W1..W10: consecutive weeks starting 2024-01-01, sorted
// ascending as the catalog guarantees.
func tenWeeks() []schema.WeekColumn {
	weeks := make([]schema.WeekColumn, 0, 10)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		s := start.AddDate(0, 0, i*7)
		e := s.AddDate(0, 0, 6)
		weeks = append(weeks, schema.WeekColumn{
			Raw:       s.Format("2006-01-02") + " - " + e.Format("2006-01-02"),
			Label:     s.Format("2006-01-02") + " - " + e.Format("2006-01-02"),
			StartDate: s,
			EndDate:   e,
		})
	}
	return weeks
}

func TestSelectTrendWeeks(t *testing.T) {
	weeks := tenWeeks()

	t.Run("no filter truncates to most recent", func(t *testing.T) {
		selected := selectTrendWeeks(weeks, nil, nil, 3)
		require.Len(t, selected, 3)
		assert.Equal(t, weeks[7], selected[0])
		assert.Equal(t, weeks[8], selected[1])
		assert.Equal(t, weeks[9], selected[2])
	})

	t.Run("date range narrows the catalog", func(t *testing.T) {
		// Bounds matching exactly W3..W5.
		start := weeks[2].StartDate
		end := weeks[4].EndDate
		selected := selectTrendWeeks(weeks, &start, &end, 10)
		require.Len(t, selected, 3)
		assert.Equal(t, weeks[2], selected[0])
		assert.Equal(t, weeks[4], selected[2])
	})

	t.Run("empty match falls back to recent weeks", func(t *testing.T) {
		start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		selected := selectTrendWeeks(weeks, &start, nil, 4)
		require.Len(t, selected, 4)
		assert.Equal(t, weeks[6], selected[0])
		assert.Equal(t, weeks[9], selected[3])
	})

	t.Run("oversized match truncates to its most recent entries", func(t *testing.T) {
		start := weeks[0].StartDate
		selected := selectTrendWeeks(weeks, &start, nil, 2)
		require.Len(t, selected, 2)
		assert.Equal(t, weeks[8], selected[0])
		assert.Equal(t, weeks[9], selected[1])
	})

	t.Run("fallback larger than catalog returns everything", func(t *testing.T) {
		selected := selectTrendWeeks(weeks, nil, nil, 52)
		assert.Len(t, selected, 10)
	})
}
