package service

import "github.com/pkordes/taxi-analytics/backend/internal/domain"

// Derive fills every derived field of t from its stored fields and returns
// the result. It is pure: no I/O, no clock, no validation. A negative
// duration is computed as-is and left for Validate to reject.
//
// Ratios whose denominator is zero are left nil. Zero is an observed value;
// nil means "not computable".
func Derive(t domain.Trip) domain.Trip {
	t.TripDurationSeconds = t.DropoffDatetime.Sub(t.PickupDatetime).Seconds()

	t.TripSpeedKmh = nil
	if t.TripDurationSeconds > 0 {
		speed := t.TripDistanceKm * 3600 / t.TripDurationSeconds
		t.TripSpeedKmh = &speed
	}

	t.FarePerKm = nil
	if t.TripDistanceKm > 0 {
		perKm := t.FareAmount / t.TripDistanceKm
		t.FarePerKm = &perKm
	}

	t.TipPct = nil
	if t.FareAmount > 0 {
		pct := t.TipAmount * 100 / t.FareAmount
		t.TipPct = &pct
	}

	// Timestamps are naive wall-clock values; read the fields as stored.
	t.HourOfDay = int16(t.PickupDatetime.Hour())
	t.DayOfWeek = t.PickupDatetime.Weekday().String()

	return t
}
