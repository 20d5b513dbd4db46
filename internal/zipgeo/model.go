// Package zipgeo provides the ZIP-code centroid reference store used by
// the radius search: a PostGIS table of one geographic point per ZIP.
package zipgeo

import "github.com/rotisserie/eris"

// MetersPerMile is the standard miles-to-meters conversion factor.
const MetersPerMile = 1609.344

// ErrZipNotFound is returned when a ZIP has no stored centroid.
var ErrZipNotFound = eris.New("zipgeo: zip not found")

// Origin is a resolved ZIP centroid.
type Origin struct {
	Zip string
	Lng float64
	Lat float64
}

// RadiusQuery bounds a radius search. Miles and Limit are expected to be
// clamped by the caller before the query runs.
type RadiusQuery struct {
	Lng    float64
	Lat    float64
	Miles  float64
	Limit  int
	Unique bool
}

// Result is one reference point within the radius. City and state may be
// absent for sparsely attributed sources (e.g. ZCTA shapefile seeds).
type Result struct {
	Zip           string  `json:"zip"`
	City          *string `json:"city"`
	State         *string `json:"state"`
	DistanceMiles float64 `json:"distance_miles"`
}
