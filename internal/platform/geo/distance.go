// Package geo computes great-circle distances for attendance geofencing and
// ambulance ETA estimates. Callers validate coordinate ranges; non-finite
// inputs produce meaningless results.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by the Haversine formula.
const EarthRadiusMeters = 6371000.0

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// IsZero reports whether the point was never set.
func (p Point) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}

// Valid reports whether the coordinates are within the WGS84 ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lng)
}

// Verification is the outcome of a radius check.
type Verification struct {
	Verified bool `json:"verified"`
	Distance int  `json:"distance"`
}

// DistanceMeters returns the Haversine distance between two coordinates,
// rounded to the nearest meter.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) int {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return int(math.Round(EarthRadiusMeters * c))
}

// Distance is DistanceMeters for two points.
func Distance(from, to Point) int {
	return DistanceMeters(from.Lat, from.Lng, to.Lat, to.Lng)
}

// VerifyWithinRadius checks whether the first coordinate lies within
// radiusMeters of the second. The boundary is inclusive.
func VerifyWithinRadius(lat1, lng1, lat2, lng2 float64, radiusMeters int) Verification {
	d := DistanceMeters(lat1, lng1, lat2, lng2)
	return Verification{Verified: d <= radiusMeters, Distance: d}
}

// ETAMinutes estimates travel time at a constant speed, rounded to the
// nearest minute. A non-positive speed yields zero.
func ETAMinutes(distanceMeters int, speedKmh float64) int {
	if speedKmh <= 0 {
		return 0
	}
	km := float64(distanceMeters) / 1000
	return int(math.Round(km / speedKmh * 60))
}
