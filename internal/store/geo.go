package store

import "math"

const earthRadiusM = 6371000.0

// haversineM returns the great-circle distance in meters between two
// coordinates.
func haversineM(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// speedKmh estimates the movement speed between two points dtSec apart.
func speedKmh(lat1, lon1, lat2, lon2 float64, dtSec int64) float64 {
	if dtSec <= 0 {
		return 0
	}
	return haversineM(lat1, lon1, lat2, lon2) / float64(dtSec) * 3.6
}
