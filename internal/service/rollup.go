package service

import (
	"math/big"
	"sort"
	"strconv"
	"time"

	"github.com/pkordes/taxi-analytics/backend/internal/domain"
)

// Rollup computes the daily summary of trips in memory, row for row what the
// trip_summary view returns for the same trips: one row per pickup date,
// newest first, averages over defined values only, and the view's rounding.
// Rows outside dr are dropped.
func Rollup(trips []domain.Trip, dr domain.DateRange) []domain.DailySummary {
	type acc struct {
		n                    int64
		distance, fare, secs float64
		tipSum               float64
		tipN                 int64
	}
	days := map[time.Time]*acc{}

	for _, t := range trips {
		day := tripDate(t.PickupDatetime)
		if dr.From != nil && day.Before(tripDate(*dr.From)) {
			continue
		}
		if dr.To != nil && day.After(tripDate(*dr.To)) {
			continue
		}
		a := days[day]
		if a == nil {
			a = &acc{}
			days[day] = a
		}
		a.n++
		a.distance += t.TripDistanceKm
		a.fare += t.FareAmount
		a.secs += t.TripDurationSeconds
		if t.TipPct != nil {
			a.tipSum += *t.TipPct
			a.tipN++
		}
	}

	out := make([]domain.DailySummary, 0, len(days))
	for day, a := range days {
		n := float64(a.n)
		row := domain.DailySummary{
			TripDate:       day,
			TotalTrips:     a.n,
			AvgDistanceKm:  roundPtr(a.distance/n, 2),
			AvgFare:        roundPtr(a.fare/n, 2),
			AvgDurationMin: roundPtr(a.secs/n/60, 1),
		}
		if a.tipN > 0 {
			row.AvgTipPct = roundPtr(a.tipSum/float64(a.tipN), 2)
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TripDate.After(out[j].TripDate) })
	return out
}

// Overall computes the whole-dataset headline for trips in memory.
func Overall(trips []domain.Trip) domain.OverallStats {
	stats := domain.OverallStats{TotalTrips: int64(len(trips))}
	if len(trips) == 0 {
		return stats
	}
	var distance, fare float64
	for _, t := range trips {
		distance += t.TripDistanceKm
		fare += t.FareAmount
	}
	n := float64(len(trips))
	stats.AvgDistanceKm = roundPtr(distance/n, 2)
	stats.AvgFare = roundPtr(fare/n, 2)
	return stats
}

func tripDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func roundPtr(x float64, places int) *float64 {
	r := Round(x, places)
	return &r
}

// Round rounds x to places decimals the way PostgreSQL evaluates
// ROUND(x::numeric, places): the double is first converted to a 15
// significant digit decimal, then rounded half away from zero in decimal
// arithmetic. Rounding the binary value directly gets cases like 1.005 wrong.
func Round(x float64, places int) float64 {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(x, 'g', 15, 64))
	if !ok {
		// NaN and Inf have no decimal form.
		return x
	}
	scale := new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(places)), nil))
	r.Mul(r, scale)

	neg := r.Sign() < 0
	r.Abs(r)
	// floor(r + 1/2)
	r.Add(r, big.NewRat(1, 2))
	q := new(big.Int).Quo(r.Num(), r.Denom())
	if neg {
		q.Neg(q)
	}

	f, _ := new(big.Rat).SetFrac(q, scale.Num()).Float64()
	return f
}
