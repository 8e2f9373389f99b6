package domain

// Zone is a geographic cell used for pickup/dropoff grouping.
// ShapefileID carries the resolution key ("gh6:<geohash>" for coordinate
// cells, "name:<slug>" for named zones, or an externally supplied shapefile id)
// and is unique across zones.
type Zone struct {
	ZoneID      int32    `json:"zone_id"`
	ZoneName    string   `json:"zone_name"`
	Borough     string   `json:"borough"`
	CentroidLat *float64 `json:"centroid_lat,omitempty"`
	CentroidLon *float64 `json:"centroid_lon,omitempty"`
	ShapefileID string   `json:"shapefile_id"`
}
