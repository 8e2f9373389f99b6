package domain

import "time"

// DailySummary is one row of the trip_summary rollup.
// Averages are rounded exactly as the database view rounds them. A nil average
// means no trip on that date had the underlying field defined.
type DailySummary struct {
	TripDate       time.Time `json:"trip_date"`
	TotalTrips     int64     `json:"total_trips"`
	AvgDistanceKm  *float64  `json:"avg_distance_km"`
	AvgFare        *float64  `json:"avg_fare"`
	AvgDurationMin *float64  `json:"avg_duration_min"`
	AvgTipPct      *float64  `json:"avg_tip_pct"`
}

// DateRange bounds a summary query by trip date, inclusive on both ends.
// A nil bound is open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// OverallStats is the whole-dataset headline: trip count plus average
// distance and fare, rounded to 2 decimals.
type OverallStats struct {
	TotalTrips    int64    `json:"total_trips"`
	AvgDistanceKm *float64 `json:"avg_distance_km"`
	AvgFare       *float64 `json:"avg_fare"`
}
