package geo

import "math"

// InitialBearing returns the forward azimuth from one point to another in
// degrees clockwise from true north, normalised to [0, 360).
func InitialBearing(from Point, to Point) float64 {
	lat1 := toRadians(from.Latitude)
	lat2 := toRadians(to.Latitude)
	deltaLon := toRadians(to.Longitude - from.Longitude)

	y := math.Sin(deltaLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(deltaLon)

	return NormalizeBearing(toDegrees(math.Atan2(y, x)))
}

// NormalizeBearing maps any angle onto [0, 360).
func NormalizeBearing(bearing float64) float64 {
	normalized := math.Mod(bearing, 360)
	if normalized < 0 {
		normalized += 360
	}
	if normalized >= 360 {
		normalized = 0
	}
	return normalized
}

// AngleDifference is the smallest absolute angle between two bearings, in [0, 180].
func AngleDifference(a float64, b float64) float64 {
	diff := math.Abs(NormalizeBearing(a) - NormalizeBearing(b))
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}
