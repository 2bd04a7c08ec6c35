/*
Package geo implements great-circle distance on a mean-radius spherical Earth.
*/
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceKm returns the Haversine distance in kilometres between two WGS84 points.
// It is total: any finite inputs produce a finite, non-negative result.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Pow(math.Sin(dLng/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Meters rounds a kilometre distance to whole metres for presentation.
func Meters(km float64) uint {
	return uint(math.Round(km * 1000))
}

// metersPerDegreeLat approximates the length of one degree of latitude.
const metersPerDegreeLat = 111_000.0

// Offset moves a point northM metres north and eastM metres east using a flat
// local approximation. It is meant for small displacements.
func Offset(lat, lng, northM, eastM float64) (float64, float64) {
	dLat := northM / metersPerDegreeLat
	dLng := eastM / (metersPerDegreeLat * math.Cos(toRadians(lat)))

	return lat + dLat, lng + dLng
}
