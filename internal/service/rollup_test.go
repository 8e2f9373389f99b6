package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/taxi-analytics/backend/internal/domain"
	"github.com/pkordes/taxi-analytics/backend/internal/service"
)

func derived(pickup, dropoff string, distance, fare, tip float64) domain.Trip {
	return service.Derive(trip(pickup, dropoff, distance, fare, tip))
}

func TestRollup_TwoTripsOneDay(t *testing.T) {
	rows := service.Rollup([]domain.Trip{
		derived("2025-01-01 08:00:00", "2025-01-01 08:20:00", 5, 15, 3),
		derived("2025-01-01 17:00:00", "2025-01-01 17:30:00", 10, 25, 0),
	}, domain.DateRange{})

	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), r.TripDate)
	assert.Equal(t, int64(2), r.TotalTrips)
	assert.Equal(t, 20.0, *r.AvgFare)
	assert.Equal(t, 7.5, *r.AvgDistanceKm)
	assert.Equal(t, 25.0, *r.AvgDurationMin)
	assert.Equal(t, 10.0, *r.AvgTipPct)
}

func TestRollup_UndefinedTipPctExcluded(t *testing.T) {
	rows := service.Rollup([]domain.Trip{
		derived("2025-01-01 08:00:00", "2025-01-01 08:20:00", 5, 15, 3), // 20%
		derived("2025-01-01 09:00:00", "2025-01-01 09:10:00", 1, 0, 2),  // fare 0: undefined
	}, domain.DateRange{})

	require.Len(t, rows, 1)
	assert.Equal(t, 20.0, *rows[0].AvgTipPct, "undefined tip_pct must not count as 0")
}

func TestRollup_AllTipPctUndefined(t *testing.T) {
	rows := service.Rollup([]domain.Trip{
		derived("2025-01-01 09:00:00", "2025-01-01 09:10:00", 1, 0, 0),
	}, domain.DateRange{})

	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].AvgTipPct)
}

func TestRollup_OrderedNewestFirstAndRangeFiltered(t *testing.T) {
	trips := []domain.Trip{
		derived("2025-01-02 08:00:00", "2025-01-02 08:10:00", 1, 5, 0),
		derived("2025-01-01 23:50:00", "2025-01-02 00:10:00", 1, 5, 0),
		derived("2025-01-03 08:00:00", "2025-01-03 08:10:00", 1, 5, 0),
	}

	rows := service.Rollup(trips, domain.DateRange{})
	require.Len(t, rows, 3)
	assert.Equal(t, 3, rows[0].TripDate.Day())
	assert.Equal(t, 2, rows[1].TripDate.Day())
	assert.Equal(t, 1, rows[2].TripDate.Day(), "trips are bucketed by pickup date")

	from := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	rows = service.Rollup(trips, domain.DateRange{From: &from, To: &to})
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].TripDate.Day())
}

func TestRollup_Empty(t *testing.T) {
	assert.Empty(t, service.Rollup(nil, domain.DateRange{}))
}

func TestOverall(t *testing.T) {
	stats := service.Overall([]domain.Trip{
		derived("2025-01-01 08:00:00", "2025-01-01 08:20:00", 5, 15, 3),
		derived("2025-01-02 08:00:00", "2025-01-02 08:20:00", 10, 25, 0),
	})

	assert.Equal(t, int64(2), stats.TotalTrips)
	assert.Equal(t, 7.5, *stats.AvgDistanceKm)
	assert.Equal(t, 20.0, *stats.AvgFare)

	empty := service.Overall(nil)
	assert.Zero(t, empty.TotalTrips)
	assert.Nil(t, empty.AvgFare)
}

func TestRound_HalfAwayFromZeroInDecimal(t *testing.T) {
	tests := []struct {
		in     float64
		places int
		want   float64
	}{
		{1.005, 2, 1.01},
		{2.675, 2, 2.68},
		{-2.675, 2, -2.68},
		{0.125, 2, 0.13},
		{12.25, 1, 12.3},
		{20.0 / 3, 2, 6.67},
		{7.5, 2, 7.5},
		{0, 2, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, service.Round(tt.in, tt.places), "Round(%v, %d)", tt.in, tt.places)
	}
}
