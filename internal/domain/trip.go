// Package domain contains the core data types for the taxi analytics backend.
// It imports no other internal package and is imported by all of them
// (repo, service, handler, cli).
package domain

import "time"

// Trip is the normalized fact record for a single taxi ride.
//
// Pointer fields are optional: a nil reference means "no vendor/zone", a nil
// coordinate means the raw record carried none, and a nil derived metric means
// the value is not computable (e.g. speed for a zero-length trip). Zero is a
// valid observed value and never stands in for "absent".
//
// The derived fields (TripDurationSeconds through DayOfWeek) are owned by
// service.Derive. Callers never set them directly.
type Trip struct {
	ID       int64  `json:"id"`
	VendorID *int32 `json:"vendor_id,omitempty"`

	PickupDatetime  time.Time `json:"pickup_datetime"`
	DropoffDatetime time.Time `json:"dropoff_datetime"`

	PickupLat  *float64 `json:"pickup_lat,omitempty"`
	PickupLon  *float64 `json:"pickup_lon,omitempty"`
	DropoffLat *float64 `json:"dropoff_lat,omitempty"`
	DropoffLon *float64 `json:"dropoff_lon,omitempty"`

	PickupZoneID  *int32 `json:"pickup_zone_id,omitempty"`
	DropoffZoneID *int32 `json:"dropoff_zone_id,omitempty"`

	PassengerCount int32   `json:"passenger_count"`
	TripDistanceKm float64 `json:"trip_distance_km"`
	FareAmount     float64 `json:"fare_amount"`
	TipAmount      float64 `json:"tip_amount"`

	// Derived.
	TripDurationSeconds float64  `json:"trip_duration_seconds"`
	TripSpeedKmh        *float64 `json:"trip_speed_kmh"`
	FarePerKm           *float64 `json:"fare_per_km"`
	TipPct              *float64 `json:"tip_pct"`
	HourOfDay           int16    `json:"hour_of_day"`
	DayOfWeek           string   `json:"day_of_week"`
}

// RawTrip is one incoming record before resolution and derivation.
// Timestamps stay as strings here; parsing happens in the pipeline so that
// malformed input is reported per record instead of failing a whole batch.
type RawTrip struct {
	VendorCode      string   `json:"vendor_code,omitempty"`
	PickupDatetime  string   `json:"pickup_datetime"`
	DropoffDatetime string   `json:"dropoff_datetime"`
	PickupLat       *float64 `json:"pickup_lat,omitempty"`
	PickupLon       *float64 `json:"pickup_lon,omitempty"`
	DropoffLat      *float64 `json:"dropoff_lat,omitempty"`
	DropoffLon      *float64 `json:"dropoff_lon,omitempty"`
	PickupZoneName  string   `json:"pickup_zone_name,omitempty"`
	DropoffZoneName string   `json:"dropoff_zone_name,omitempty"`
	PassengerCount  int32    `json:"passenger_count"`
	TripDistanceKm  float64  `json:"trip_distance_km"`
	FareAmount      float64  `json:"fare_amount"`
	TipAmount       *float64 `json:"tip_amount,omitempty"` // nil means the schema default of 0
}

// TripFilter narrows a trip listing. Every field is optional and each one maps
// onto an indexed column, so any combination stays an index-backed query.
type TripFilter struct {
	PickupFrom    *time.Time
	PickupTo      *time.Time
	PickupZoneID  *int32
	DropoffZoneID *int32
	VendorID      *int32
	MinFare       *float64
	MaxFare       *float64
	MinSpeedKmh   *float64
	MaxSpeedKmh   *float64
}
