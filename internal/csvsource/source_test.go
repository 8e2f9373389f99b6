package csvsource_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/taxi-analytics/backend/internal/csvsource"
)

func TestSource_SampleLayout(t *testing.T) {
	in := `pickup_datetime,dropoff_datetime,pickup_lat,pickup_lon,dropoff_lat,dropoff_lon,passenger_count,trip_distance_km,trip_duration_seconds,fare_amount,tip_amount,trip_speed_kmh
2024-01-05 13:20:00,2024-01-05 13:45:00,40.75,-73.98,40.76,-73.97,2,1.42,1500,12.5,2,3.4
`
	src, err := csvsource.NewSource(strings.NewReader(in))
	require.NoError(t, err)

	raw, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05 13:20:00", raw.PickupDatetime)
	assert.Equal(t, "2024-01-05 13:45:00", raw.DropoffDatetime)
	assert.Equal(t, 40.75, *raw.PickupLat)
	assert.Equal(t, -73.97, *raw.DropoffLon)
	assert.Equal(t, int32(2), raw.PassengerCount)
	assert.Equal(t, 1.42, raw.TripDistanceKm)
	assert.Equal(t, 12.5, raw.FareAmount)
	assert.Equal(t, 2.0, *raw.TipAmount)
	assert.Empty(t, raw.VendorCode)

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSource_TLCYellowHeader(t *testing.T) {
	in := `VendorID,tpep_pickup_datetime,tpep_dropoff_datetime,passenger_count,trip_distance,RatecodeID,PULocationID,DOLocationID,fare_amount,tip_amount
2,2019-03-01 00:24:41,2019-03-01 00:39:53,1.0,10,1,132,161,22.5,0
`
	src, err := csvsource.NewSource(strings.NewReader(in))
	require.NoError(t, err)

	raw, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "2", raw.VendorCode)
	assert.Equal(t, "2019-03-01 00:24:41", raw.PickupDatetime)
	assert.Equal(t, int32(1), raw.PassengerCount)
	assert.InDelta(t, 16.09344, raw.TripDistanceKm, 1e-9, "miles are converted to km")
	assert.Equal(t, "132", raw.PickupZoneName)
	assert.Equal(t, "161", raw.DropoffZoneName)
	require.NotNil(t, raw.TipAmount)
	assert.Equal(t, 0.0, *raw.TipAmount)
	assert.Nil(t, raw.PickupLat)
}

func TestSource_EmptyValuesStayAbsent(t *testing.T) {
	in := "pickup_datetime,dropoff_datetime,pickup_lat,pickup_lon,tip_amount\n" +
		"2024-01-01 10:00:00,2024-01-01 10:10:00,,,\n"
	src, err := csvsource.NewSource(strings.NewReader(in))
	require.NoError(t, err)

	raw, err := src.Next()
	require.NoError(t, err)
	assert.Nil(t, raw.PickupLat)
	assert.Nil(t, raw.PickupLon)
	assert.Nil(t, raw.TipAmount)
}

func TestSource_BadRowIsReportedAndSkippable(t *testing.T) {
	in := "pickup_datetime,dropoff_datetime,fare_amount\n" +
		"2024-01-01 10:00:00,2024-01-01 10:10:00,abc\n" +
		"\n" +
		"2024-01-01 11:00:00,2024-01-01 11:10:00,7\n"
	src, err := csvsource.NewSource(strings.NewReader(in))
	require.NoError(t, err)

	raws, bad, err := csvsource.ReadAll(src)

	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, 7.0, raws[0].FareAmount)
	require.Len(t, bad, 1)
	assert.Equal(t, 2, bad[0].Line)
	assert.Contains(t, bad[0].Error(), "fare_amount")
}

func TestSource_FractionalPassengerCountRejected(t *testing.T) {
	in := "pickup_datetime,dropoff_datetime,passenger_count\n2024-01-01 10:00:00,2024-01-01 10:10:00,1.5\n"
	src, err := csvsource.NewSource(strings.NewReader(in))
	require.NoError(t, err)

	_, err = src.Next()

	var rowErr *csvsource.RowError
	assert.True(t, errors.As(err, &rowErr))
}

func TestNewSource_HeaderErrors(t *testing.T) {
	tests := map[string]string{
		"missing dropoff":     "pickup_datetime,fare_amount\n",
		"duplicate pickup":    "tpep_pickup_datetime,lpep_pickup_datetime,dropoff_datetime\n",
		"both distance units": "pickup_datetime,dropoff_datetime,trip_distance,trip_distance_km\n",
		"empty input":         "",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := csvsource.NewSource(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

func TestNewSource_HeaderIsCaseAndSpaceInsensitive(t *testing.T) {
	in := "\ufeff Pickup_DateTime , DROPOFF_DATETIME\n2024-01-01 10:00:00,2024-01-01 10:10:00\n"
	src, err := csvsource.NewSource(strings.NewReader(in))
	require.NoError(t, err)

	raw, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01 10:10:00", raw.DropoffDatetime)
}

func TestSource_LineNumbersSurviveBlankLines(t *testing.T) {
	in := "pickup_datetime,dropoff_datetime,fare_amount\n" +
		"\n\n" +
		"2024-01-01 10:00:00,2024-01-01 10:10:00,x\n"
	src, err := csvsource.NewSource(strings.NewReader(in))
	require.NoError(t, err)

	_, bad, err := csvsource.ReadAll(src)

	require.NoError(t, err)
	require.Len(t, bad, 1)
	assert.Equal(t, 4, bad[0].Line)
}
