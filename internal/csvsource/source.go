// Package csvsource reads raw trip records from CSV files. It understands the
// column names of the service's own sample files as well as the NYC TLC
// yellow and green trip extracts.
package csvsource

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/pkordes/taxi-analytics/backend/internal/domain"
)

const kmPerMile = 1.609344

// Columns maps a lower-cased, trimmed header onto the RawTrip field it feeds.
// Headers not listed here are ignored.
var Columns = map[string]string{
	"vendor_code":           "vendor_code",
	"vendor_id":             "vendor_code",
	"vendorid":              "vendor_code",
	"vendor_name":           "vendor_code",
	"pickup_datetime":       "pickup_datetime",
	"tpep_pickup_datetime":  "pickup_datetime",
	"lpep_pickup_datetime":  "pickup_datetime",
	"trip_pickup_datetime":  "pickup_datetime",
	"dropoff_datetime":      "dropoff_datetime",
	"tpep_dropoff_datetime": "dropoff_datetime",
	"lpep_dropoff_datetime": "dropoff_datetime",
	"trip_dropoff_datetime": "dropoff_datetime",
	"pickup_lat":            "pickup_lat",
	"pickup_latitude":       "pickup_lat",
	"start_lat":             "pickup_lat",
	"pickup_lon":            "pickup_lon",
	"pickup_longitude":      "pickup_lon",
	"start_lon":             "pickup_lon",
	"dropoff_lat":           "dropoff_lat",
	"dropoff_latitude":      "dropoff_lat",
	"end_lat":               "dropoff_lat",
	"dropoff_lon":           "dropoff_lon",
	"dropoff_longitude":     "dropoff_lon",
	"end_lon":               "dropoff_lon",
	"pickup_zone_name":      "pickup_zone_name",
	"pickup_zone":           "pickup_zone_name",
	"pulocationid":          "pickup_zone_name",
	"dropoff_zone_name":     "dropoff_zone_name",
	"dropoff_zone":          "dropoff_zone_name",
	"dolocationid":          "dropoff_zone_name",
	"passenger_count":       "passenger_count",
	"trip_distance_km":      "trip_distance_km",
	"trip_distance":         "trip_distance_mi", // TLC distances are in miles
	"fare_amount":           "fare_amount",
	"fare_amt":              "fare_amount",
	"tip_amount":            "tip_amount",
	"tip_amnt":              "tip_amount",
}

// RowError reports a data row that could not be read. Reading can continue
// past it.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string { return "line " + strconv.Itoa(e.Line) + ": " + e.Err.Error() }

func (e *RowError) Unwrap() error { return e.Err }

// Source yields one RawTrip per data row.
type Source struct {
	r      *csv.Reader
	fields []string // RawTrip field per column, "" for ignored columns
	line   int
}

// NewSource reads and validates the header row of r.
func NewSource(r io.Reader) (*Source, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	fields, err := mapHeader(header)
	if err != nil {
		return nil, errors.Wrap(err, "validating header")
	}
	return &Source{r: cr, fields: fields, line: 1}, nil
}

func mapHeader(header []string) ([]string, error) {
	fields := make([]string, len(header))
	seen := make(map[string]int)
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if name == "" {
			continue
		}
		f := Columns[name]
		if f == "" {
			continue
		}
		if pos, exists := seen[f]; exists {
			return nil, errors.Errorf("%s and %s both map to %s", header[pos], h, f)
		}
		seen[f] = i
		fields[i] = f
	}
	for _, required := range []string{"pickup_datetime", "dropoff_datetime"} {
		if _, ok := seen[required]; !ok {
			return nil, errors.Errorf("no %s column in header %v", required, header)
		}
	}
	if _, km := seen["trip_distance_km"]; km {
		if _, mi := seen["trip_distance_mi"]; mi {
			return nil, errors.New("header has both trip_distance_km and trip_distance")
		}
	}
	return fields, nil
}

// Next returns the next record. It returns io.EOF after the last row and a
// *RowError for a row whose values cannot be parsed; blank rows are skipped.
func (s *Source) Next() (domain.RawTrip, error) {
	for {
		row, err := s.r.Read()
		if err == io.EOF {
			return domain.RawTrip{}, io.EOF
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				s.line = perr.Line
				return domain.RawTrip{}, &RowError{Line: perr.Line, Err: perr.Err}
			}
			return domain.RawTrip{}, errors.Wrapf(err, "reading after line %d", s.line)
		}
		s.line, _ = s.r.FieldPos(0)
		if blank(row) {
			continue
		}
		raw, err := s.parseRecord(row)
		if err != nil {
			return domain.RawTrip{}, &RowError{Line: s.line, Err: err}
		}
		return raw, nil
	}
}

// Line returns the line on which the row last returned by Next starts.
func (s *Source) Line() int { return s.line }

func (s *Source) parseRecord(row []string) (domain.RawTrip, error) {
	var raw domain.RawTrip
	for i, f := range s.fields {
		if f == "" || i >= len(row) {
			continue
		}
		val := strings.TrimSpace(row[i])
		if val == "" {
			continue
		}

		var err error
		switch f {
		case "vendor_code":
			raw.VendorCode = val
		case "pickup_datetime":
			raw.PickupDatetime = val
		case "dropoff_datetime":
			raw.DropoffDatetime = val
		case "pickup_zone_name":
			raw.PickupZoneName = val
		case "dropoff_zone_name":
			raw.DropoffZoneName = val
		case "pickup_lat":
			raw.PickupLat, err = parseOptional(val)
		case "pickup_lon":
			raw.PickupLon, err = parseOptional(val)
		case "dropoff_lat":
			raw.DropoffLat, err = parseOptional(val)
		case "dropoff_lon":
			raw.DropoffLon, err = parseOptional(val)
		case "passenger_count":
			raw.PassengerCount, err = parseCount(val)
		case "trip_distance_km":
			raw.TripDistanceKm, err = strconv.ParseFloat(val, 64)
		case "trip_distance_mi":
			var mi float64
			mi, err = strconv.ParseFloat(val, 64)
			raw.TripDistanceKm = mi * kmPerMile
		case "fare_amount":
			raw.FareAmount, err = strconv.ParseFloat(val, 64)
		case "tip_amount":
			raw.TipAmount, err = parseOptional(val)
		}
		if err != nil {
			return domain.RawTrip{}, errors.Wrapf(err, "parsing %s at %q", f, val)
		}
	}
	return raw, nil
}

func parseOptional(val string) (*float64, error) {
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parseCount accepts "2" and the "2.0" pandas writes for integer columns
// that contained nulls.
func parseCount(val string) (int32, error) {
	if n, err := strconv.ParseInt(val, 10, 32); err == nil {
		return int32(n), nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, errors.Errorf("%s is not a whole number", val)
	}
	return int32(f), nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ReadAll drains src. Rows that fail to parse are collected instead of
// stopping the read; any other error aborts it.
func ReadAll(src *Source) ([]domain.RawTrip, []*RowError, error) {
	var (
		raws    []domain.RawTrip
		badRows []*RowError
	)
	for {
		raw, err := src.Next()
		if err == io.EOF {
			return raws, badRows, nil
		}
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			badRows = append(badRows, rowErr)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		raws = append(raws, raw)
	}
}
