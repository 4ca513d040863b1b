package satellite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}

	return t
}

func TestPredictNextPass(t *testing.T) {
	p := NewPredictor(DefaultCatalog())

	tests := []struct {
		name      string
		satellite string
		from      string
		expected  string
	}{
		{
			name:      "epoch_is_a_pass_day",
			satellite: "Sentinel-2A",
			from:      "2024-01-03",
			expected:  "2024-01-03",
		},
		{
			name:      "whole_cycles_after_epoch",
			satellite: "Sentinel-2A",
			from:      "2024-02-02", // epoch + 3 revisits
			expected:  "2024-02-02",
		},
		{
			name:      "mid_cycle_rolls_forward",
			satellite: "Sentinel-2A",
			from:      "2024-01-05",
			expected:  "2024-01-13",
		},
		{
			name:      "landsat_sixteen_day_cycle",
			satellite: "Landsat-8",
			from:      "2024-01-06",
			expected:  "2024-01-21",
		},
		{
			name:      "reference_before_epoch",
			satellite: "Sentinel-2A",
			from:      "2023-12-30",
			expected:  "2024-01-03",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.PredictNextPass(tt.satellite, date(tt.from))
			require.NoError(t, err)
			assert.Equal(t, date(tt.expected), got)
		})
	}
}

func TestPredictNextPassUnknownSatellite(t *testing.T) {
	p := NewPredictor(DefaultCatalog())

	_, err := p.PredictNextPass("Worldview-3", date("2024-01-03"))
	assert.ErrorIs(t, err, ErrUnknownSatellite)
}

func TestPredictNextPassIsPeriodic(t *testing.T) {
	p := NewPredictor(DefaultCatalog())
	epoch := date("2024-01-03")

	for k := 0; k < 12; k++ {
		ref := epoch.AddDate(0, 0, k*10)

		got, err := p.PredictNextPass("Sentinel-2A", ref)
		require.NoError(t, err)
		assert.Equal(t, ref, got, "epoch + %d revisits must be a pass day", k)
	}
}

func TestClosestPass(t *testing.T) {
	p := NewPredictor(DefaultCatalog())

	tests := []struct {
		name         string
		satellite    string
		target       string
		expectedDate string
		expectedDays int
	}{
		{
			name:         "on_pass_day",
			satellite:    "Sentinel-2A",
			target:       "2024-01-13",
			expectedDate: "2024-01-13",
			expectedDays: 0,
		},
		{
			name:         "previous_pass_closer",
			satellite:    "Sentinel-2A",
			target:       "2024-01-05",
			expectedDate: "2024-01-03",
			expectedDays: 2,
		},
		{
			name:         "next_pass_closer",
			satellite:    "Sentinel-2A",
			target:       "2024-01-11",
			expectedDate: "2024-01-13",
			expectedDays: 2,
		},
		{
			name:         "never_more_than_half_the_revisit",
			satellite:    "Landsat-8",
			target:       "2024-01-13", // 8 days either way
			expectedDate: "2024-01-05",
			expectedDays: 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passDate, days, err := p.ClosestPass(tt.satellite, date(tt.target))
			require.NoError(t, err)
			assert.Equal(t, date(tt.expectedDate), passDate)
			assert.Equal(t, tt.expectedDays, days)
		})
	}
}

func TestScheduleOrdering(t *testing.T) {
	p := NewPredictor(DefaultCatalog())
	from := date("2024-01-03")

	passes := p.Schedule(30, from, map[string]bool{"imagery": true})
	require.NotEmpty(t, passes)

	for i := 1; i < len(passes); i++ {
		prev, cur := passes[i-1], passes[i]

		if prev.DaysUntil == cur.DaysUntil {
			assert.Less(t, prev.Priority, cur.Priority,
				"same-day passes must be ordered by priority")
		} else {
			assert.Less(t, prev.DaysUntil, cur.DaysUntil)
		}
	}

	// First pass is Sentinel-2A on the reference day itself.
	assert.Equal(t, "Sentinel-2A", passes[0].Satellite)
	assert.Equal(t, 0, passes[0].DaysUntil)
	assert.True(t, passes[0].HasProvider)
}

func TestScheduleSameDayTieBreak(t *testing.T) {
	catalog, err := NewCatalog([]Descriptor{
		{Name: "B", ResolutionM: 10, RevisitDays: 5, Epoch: date("2024-01-01"), Priority: 2, Provider: "imagery"},
		{Name: "A", ResolutionM: 10, RevisitDays: 5, Epoch: date("2024-01-01"), Priority: 1, Provider: "imagery"},
	})
	require.NoError(t, err)

	passes := NewPredictor(catalog).Schedule(10, date("2024-01-01"), nil)
	require.Len(t, passes, 6)

	assert.Equal(t, "A", passes[0].Satellite)
	assert.Equal(t, "B", passes[1].Satellite)
	assert.Equal(t, passes[0].PassDate, passes[1].PassDate)
}
