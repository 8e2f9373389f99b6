package service_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/taxi-analytics/backend/internal/domain"
	"github.com/pkordes/taxi-analytics/backend/internal/service"
)

func validDerived() domain.Trip {
	return service.Derive(trip("2025-01-01 08:00:00", "2025-01-01 08:20:00", 5, 15, 3))
}

func TestValidate_Accepts(t *testing.T) {
	assert.NoError(t, service.Validate(validDerived()))
}

func TestValidate_AcceptsZeroes(t *testing.T) {
	tr := service.Derive(trip("2025-01-01 08:00:00", "2025-01-01 08:00:00", 0, 0, 0))

	assert.NoError(t, service.Validate(tr))
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Trip)
		reason domain.ReasonCode
		field  string
	}{
		{
			name:   "dropoff before pickup",
			mutate: func(tr *domain.Trip) { *tr = service.Derive(trip("2025-01-01 08:20:00", "2025-01-01 08:00:00", 5, 15, 3)) },
			reason: domain.ReasonNegativeDuration,
			field:  "dropoff_datetime",
		},
		{
			name:   "negative passengers",
			mutate: func(tr *domain.Trip) { tr.PassengerCount = -1 },
			reason: domain.ReasonNegativePassengerCount,
			field:  "passenger_count",
		},
		{
			name:   "negative distance",
			mutate: func(tr *domain.Trip) { tr.TripDistanceKm = -0.1 },
			reason: domain.ReasonNegativeDistance,
			field:  "trip_distance_km",
		},
		{
			name:   "negative fare",
			mutate: func(tr *domain.Trip) { tr.FareAmount = -2 },
			reason: domain.ReasonNegativeFare,
			field:  "fare_amount",
		},
		{
			name:   "negative tip",
			mutate: func(tr *domain.Trip) { tr.TipAmount = -1 },
			reason: domain.ReasonNegativeTip,
			field:  "tip_amount",
		},
		{
			name:   "hour out of range",
			mutate: func(tr *domain.Trip) { tr.HourOfDay = 24 },
			reason: domain.ReasonHourOutOfRange,
			field:  "hour_of_day",
		},
		{
			name:   "NaN fare",
			mutate: func(tr *domain.Trip) { tr.FareAmount = math.NaN() },
			reason: domain.ReasonNonFiniteValue,
			field:  "fare_amount",
		},
		{
			name:   "infinite distance",
			mutate: func(tr *domain.Trip) { tr.TripDistanceKm = math.Inf(1) },
			reason: domain.ReasonNonFiniteValue,
			field:  "trip_distance_km",
		},
		{
			name:   "ten trillion km",
			mutate: func(tr *domain.Trip) { tr.TripDistanceKm = 1e13 },
			reason: domain.ReasonValueOutOfRange,
			field:  "trip_distance_km",
		},
		{
			name:   "missing pickup",
			mutate: func(tr *domain.Trip) { tr.PickupDatetime = time.Time{} },
			reason: domain.ReasonMissingTimestamp,
			field:  "pickup_datetime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := validDerived()
			tt.mutate(&tr)

			err := service.Validate(tr)

			var rej *domain.RejectionError
			require.ErrorAs(t, err, &rej)
			assert.Equal(t, tt.reason, rej.Reason)
			assert.Equal(t, tt.field, rej.Field)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestValidate_FirstViolationWins(t *testing.T) {
	tr := service.Derive(trip("2025-01-01 08:20:00", "2025-01-01 08:00:00", -5, -15, -3))
	tr.PassengerCount = -1

	assert.Equal(t, domain.ReasonNegativeDuration, domain.ReasonOf(service.Validate(tr)))
}

func TestValidate_RejectsOverflowingRatios(t *testing.T) {
	tests := []struct {
		name   string
		trip   domain.Trip
		reason domain.ReasonCode
		field  string
	}{
		{
			name:   "subnormal fare makes tip_pct infinite",
			trip:   trip("2025-01-01 08:00:00", "2025-01-01 08:20:00", 5, 1e-310, 1),
			reason: domain.ReasonNonFiniteValue,
			field:  "tip_pct",
		},
		{
			name:   "huge distance over one second",
			trip:   trip("2025-01-01 08:00:00", "2025-01-01 08:00:01", 1e308, 15, 0),
			reason: domain.ReasonNonFiniteValue,
			field:  "trip_speed_kmh",
		},
		{
			name:   "finite but oversized tip_pct",
			trip:   trip("2025-01-01 08:00:00", "2025-01-01 08:20:00", 5, 1e-9, 100),
			reason: domain.ReasonValueOutOfRange,
			field:  "tip_pct",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.Validate(service.Derive(tt.trip))

			var rej *domain.RejectionError
			require.ErrorAs(t, err, &rej)
			assert.Equal(t, tt.reason, rej.Reason)
			assert.Equal(t, tt.field, rej.Field)
		})
	}
}

func TestValidate_AcceptsLargeRealisticTrip(t *testing.T) {
	tr := service.Derive(trip("2025-01-01 08:00:00", "2025-01-02 08:00:00", 900, 2500, 400))

	assert.NoError(t, service.Validate(tr))
}
