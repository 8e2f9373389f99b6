// Package geo holds the coordinate helpers the entity resolver needs: range
// checks, geohash cell keys, and great-circle distance.
package geo

import (
	"fmt"
	"math"

	"github.com/mmcloughlin/geohash"
)

// CellPrecision is the geohash length used for coordinate-only zones.
// Six characters give cells of roughly 1.2 km x 0.6 km.
const CellPrecision = 6

const earthRadiusKm = 6371.0

// Point is a WGS-84 latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// PointFrom builds a Point from optional raw coordinates.
// It returns (nil, nil) when both are absent, an error when only one is
// present or either is out of range, and the point otherwise.
func PointFrom(lat, lon *float64) (*Point, error) {
	switch {
	case lat == nil && lon == nil:
		return nil, nil
	case lat == nil || lon == nil:
		return nil, fmt.Errorf("latitude and longitude must be supplied together")
	}
	p := Point{Lat: *lat, Lon: *lon}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate reports whether the point is a finite coordinate inside
// [-90,90] x [-180,180].
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]", p.Lat)
	}
	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]", p.Lon)
	}
	return nil
}

// Cell returns the geohash of the cell containing p.
func (p Point) Cell() string {
	return geohash.EncodeWithPrecision(p.Lat, p.Lon, CellPrecision)
}

// CellCenter returns the centre of the named geohash cell.
func CellCenter(cell string) Point {
	lat, lon := geohash.DecodeCenter(cell)
	return Point{Lat: lat, Lon: lon}
}

// NeighborCells returns the eight cells surrounding cell.
func NeighborCells(cell string) []string {
	return geohash.Neighbors(cell)
}

// HaversineKm returns the great-circle distance between a and b in kilometres.
func HaversineKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
