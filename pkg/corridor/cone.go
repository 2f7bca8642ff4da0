package corridor

import (
	"fmt"
	"math"

	"github.com/moveaside/moveaside/pkg/geo"
)

// BuildAlertZone builds the isosceles cone with its apex at the vehicle,
// opening coneAngleDegrees around headingDegrees and reaching
// coneDistanceMeters ahead. destination is only consulted by the low-speed
// builder and may be nil.
func BuildAlertZone(vehiclePosition geo.Point, headingDegrees float64, destination *geo.Point, coneAngleDegrees float64, coneDistanceMeters float64) (*AlertZone, error) {
	return buildCone(KindCone, vehiclePosition, headingDegrees, coneAngleDegrees, coneDistanceMeters)
}

// BuildLowSpeedZone is used while the vehicle has no reliable heading. The
// cone is widened to coneAngleDegrees and, when a destination is known,
// points at it instead of the carried-over heading.
func BuildLowSpeedZone(vehiclePosition geo.Point, headingDegrees float64, destination *geo.Point, coneAngleDegrees float64, coneDistanceMeters float64) (*AlertZone, error) {
	if destination != nil && destination.Validate() == nil && geo.HaversineDistance(vehiclePosition, *destination) > 0 {
		headingDegrees = geo.InitialBearing(vehiclePosition, *destination)
	}

	return buildCone(KindLowSpeedCone, vehiclePosition, headingDegrees, coneAngleDegrees, coneDistanceMeters)
}

func buildCone(kind Kind, apex geo.Point, headingDegrees float64, coneAngleDegrees float64, coneDistanceMeters float64) (*AlertZone, error) {
	if err := apex.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(coneDistanceMeters) || math.IsInf(coneDistanceMeters, 0) || coneDistanceMeters <= 0 {
		return nil, fmt.Errorf("%w: cone distance %v must be positive", ErrInvalidZoneParameters, coneDistanceMeters)
	}
	if math.IsNaN(coneAngleDegrees) || coneAngleDegrees <= 0 || coneAngleDegrees >= 180 {
		return nil, fmt.Errorf("%w: cone angle %v must be between 0 and 180 degrees", ErrInvalidZoneParameters, coneAngleDegrees)
	}
	if math.IsNaN(headingDegrees) || math.IsInf(headingDegrees, 0) {
		return nil, fmt.Errorf("%w: heading %v", ErrInvalidZoneParameters, headingDegrees)
	}

	heading := geo.NormalizeBearing(headingDegrees)
	halfAngle := coneAngleDegrees / 2

	left := geo.DestinationPoint(apex, heading-halfAngle, coneDistanceMeters)
	right := geo.DestinationPoint(apex, heading+halfAngle, coneDistanceMeters)

	polygon := geo.NewPolygon(apex, left, right)
	if polygon.Area() == 0 {
		return nil, fmt.Errorf("%w: cone collapsed to zero area", ErrInvalidZoneParameters)
	}

	return &AlertZone{
		Kind:           kind,
		Apex:           apex,
		Heading:        heading,
		AngleDegrees:   coneAngleDegrees,
		DistanceMeters: coneDistanceMeters,
		Polygons:       []geo.Polygon{polygon},
	}, nil
}
