package service

import (
	"math"

	"github.com/pkordes/taxi-analytics/backend/internal/domain"
)

// MaxValue bounds every numeric trip field, stored or derived. It keeps the
// rollup view's sums and averages finite across any realistic row count.
const MaxValue = 1e12

// Validate checks a fully derived trip against the domain constraints and
// returns a *domain.RejectionError for the first rule it violates, or nil.
// It only classifies; callers decide what to do with a rejection.
//
// Rules are checked in a fixed order so a record always gets the same reason:
// missing timestamps, non-finite numbers, the sign rules, then magnitude.
func Validate(t domain.Trip) error {
	reject := func(reason domain.ReasonCode, field string) error {
		return &domain.RejectionError{Reason: reason, Field: field}
	}

	if t.PickupDatetime.IsZero() {
		return reject(domain.ReasonMissingTimestamp, "pickup_datetime")
	}
	if t.DropoffDatetime.IsZero() {
		return reject(domain.ReasonMissingTimestamp, "dropoff_datetime")
	}

	type field struct {
		name  string
		value float64
	}
	values := []field{
		{"trip_distance_km", t.TripDistanceKm},
		{"fare_amount", t.FareAmount},
		{"tip_amount", t.TipAmount},
		{"trip_duration_seconds", t.TripDurationSeconds},
	}
	// Ratios can overflow even when every input is finite, e.g. a subnormal
	// fare under a one unit tip.
	for _, r := range []struct {
		name  string
		value *float64
	}{
		{"trip_speed_kmh", t.TripSpeedKmh},
		{"fare_per_km", t.FarePerKm},
		{"tip_pct", t.TipPct},
	} {
		if r.value != nil {
			values = append(values, field{r.name, *r.value})
		}
	}
	for _, f := range values {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return reject(domain.ReasonNonFiniteValue, f.name)
		}
	}

	switch {
	case t.DropoffDatetime.Before(t.PickupDatetime) || t.TripDurationSeconds < 0:
		return reject(domain.ReasonNegativeDuration, "dropoff_datetime")
	case t.PassengerCount < 0:
		return reject(domain.ReasonNegativePassengerCount, "passenger_count")
	case t.TripDistanceKm < 0:
		return reject(domain.ReasonNegativeDistance, "trip_distance_km")
	case t.FareAmount < 0:
		return reject(domain.ReasonNegativeFare, "fare_amount")
	case t.TipAmount < 0:
		return reject(domain.ReasonNegativeTip, "tip_amount")
	case t.HourOfDay < 0 || t.HourOfDay > 23:
		return reject(domain.ReasonHourOutOfRange, "hour_of_day")
	}

	for _, f := range values {
		if f.value > MaxValue {
			return reject(domain.ReasonValueOutOfRange, f.name)
		}
	}
	return nil
}
