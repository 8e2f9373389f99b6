package service

import (
	"strings"
	"time"

	"github.com/pkordes/taxi-analytics/backend/internal/domain"
)

// timestampLayouts are tried in order. The space-separated forms are what the
// TLC extracts and the sample CSVs use.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseTimestamp parses a raw pickup or dropoff value into a naive wall-clock
// time carried in the UTC location.
//
// Timestamps are treated as local to wherever the trip happened. When the
// input carries an offset the offset is dropped and the wall clock kept, so
// "08:00:00-05:00" and "08:00:00" both derive hour_of_day 8.
func ParseTimestamp(field, raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, &domain.RejectionError{Reason: domain.ReasonMissingTimestamp, Field: field}
	}
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return wallClock(t), nil
		}
	}
	return time.Time{}, &domain.RejectionError{Reason: domain.ReasonMalformedTimestamp, Field: field}
}

// wallClock re-anchors t's calendar fields in UTC without shifting them and
// drops anything below a microsecond, the finest a timestamp column keeps.
// Durations derived from the result then match the stored timestamps.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC).
		Truncate(time.Microsecond)
}

// candidate builds the partially populated trip the resolver and deriver
// work on. Reference ids and derived fields are left unset.
func candidate(raw domain.RawTrip) (domain.Trip, error) {
	pickup, err := ParseTimestamp("pickup_datetime", raw.PickupDatetime)
	if err != nil {
		return domain.Trip{}, err
	}
	dropoff, err := ParseTimestamp("dropoff_datetime", raw.DropoffDatetime)
	if err != nil {
		return domain.Trip{}, err
	}

	t := domain.Trip{
		PickupDatetime:  pickup,
		DropoffDatetime: dropoff,
		PickupLat:       raw.PickupLat,
		PickupLon:       raw.PickupLon,
		DropoffLat:      raw.DropoffLat,
		DropoffLon:      raw.DropoffLon,
		PassengerCount:  raw.PassengerCount,
		TripDistanceKm:  raw.TripDistanceKm,
		FareAmount:      raw.FareAmount,
	}
	if raw.TipAmount != nil {
		t.TipAmount = *raw.TipAmount
	}
	return t, nil
}
