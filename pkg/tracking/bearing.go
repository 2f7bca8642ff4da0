package tracking

import (
	"github.com/moveaside/moveaside/pkg/geo"
)

// DefaultMinDisplacementMeters is the jitter threshold below which a new fix
// does not change the heading.
const DefaultMinDisplacementMeters = 5.0

// EstimateBearing derives the heading between two consecutive fixes.
// With no previous fix it returns 0. When the displacement is below
// minDisplacementMeters the previous bearing is carried over.
func EstimateBearing(previousFix *PositionFix, currentFix PositionFix, previousBearing float64, minDisplacementMeters float64) float64 {
	bearing, _ := estimateBearing(previousFix, currentFix, previousBearing, minDisplacementMeters)
	return bearing
}

// estimateBearing also reports whether the returned heading was measured from
// this pair of fixes rather than defaulted or carried over.
func estimateBearing(previousFix *PositionFix, currentFix PositionFix, previousBearing float64, minDisplacementMeters float64) (float64, bool) {
	if previousFix == nil {
		return 0, false
	}

	displacement := geo.HaversineDistance(previousFix.Location, currentFix.Location)
	if displacement < minDisplacementMeters {
		return previousBearing, false
	}

	return geo.InitialBearing(previousFix.Location, currentFix.Location), true
}

// EstimateSpeed returns metres per second between the two fixes, or 0 when
// the timestamps do not allow an estimate.
func EstimateSpeed(previousFix *PositionFix, currentFix PositionFix) float64 {
	if previousFix == nil || previousFix.ObservedAt.IsZero() || currentFix.ObservedAt.IsZero() {
		return 0
	}

	elapsed := currentFix.ObservedAt.Sub(previousFix.ObservedAt).Seconds()
	if elapsed <= 0 {
		return 0
	}

	return geo.HaversineDistance(previousFix.Location, currentFix.Location) / elapsed
}
