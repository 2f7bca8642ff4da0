package corridor

import (
	"fmt"
	"math"

	"github.com/moveaside/moveaside/pkg/geo"
)

const jointSides = 8

// BuildRouteCorridor buffers a route polyline by halfWidthMeters on each
// side. Each segment becomes a rectangle and every vertex gets an octagon so
// bends and ends are covered.
func BuildRouteCorridor(route []geo.Point, halfWidthMeters float64) (*AlertZone, error) {
	if math.IsNaN(halfWidthMeters) || math.IsInf(halfWidthMeters, 0) || halfWidthMeters <= 0 {
		return nil, fmt.Errorf("%w: corridor half width %v must be positive", ErrInvalidZoneParameters, halfWidthMeters)
	}

	var points []geo.Point
	for _, point := range route {
		if err := point.Validate(); err != nil {
			return nil, err
		}
		if len(points) > 0 && geo.HaversineDistance(points[len(points)-1], point) == 0 {
			continue
		}
		points = append(points, point)
	}
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: route needs at least two distinct points", ErrInvalidZoneParameters)
	}

	zone := &AlertZone{
		Kind:           KindRoute,
		Apex:           points[0],
		Heading:        geo.InitialBearing(points[0], points[1]),
		AngleDegrees:   0,
		DistanceMeters: halfWidthMeters,
	}

	for i := 0; i < len(points)-1; i++ {
		start := points[i]
		end := points[i+1]

		forward := geo.InitialBearing(start, end)
		backward := geo.InitialBearing(end, start)

		zone.Polygons = append(zone.Polygons, geo.NewPolygon(
			geo.DestinationPoint(start, forward-90, halfWidthMeters),
			geo.DestinationPoint(end, backward+90, halfWidthMeters),
			geo.DestinationPoint(end, backward-90, halfWidthMeters),
			geo.DestinationPoint(start, forward+90, halfWidthMeters),
		))
	}

	for _, point := range points {
		zone.Polygons = append(zone.Polygons, joint(point, halfWidthMeters))
	}

	return zone, nil
}

// RouteAhead returns the part of route still ahead of position. It starts
// at position's projection onto the nearest segment and keeps the points
// after it. It returns nil when no distance is left, eg once the vehicle
// has passed the last point.
func RouteAhead(route []geo.Point, position geo.Point) []geo.Point {
	if len(route) < 2 {
		return nil
	}

	nearestSegment := 0
	nearestDistance := math.Inf(1)
	var projection geo.Point

	for i := 0; i < len(route)-1; i++ {
		projected := projectOntoSegment(position, route[i], route[i+1])

		distance := geo.HaversineDistance(position, projected)
		if distance < nearestDistance {
			nearestSegment = i
			nearestDistance = distance
			projection = projected
		}
	}

	ahead := []geo.Point{projection}
	for _, point := range route[nearestSegment+1:] {
		if geo.HaversineDistance(ahead[len(ahead)-1], point) == 0 {
			continue
		}
		ahead = append(ahead, point)
	}
	if len(ahead) < 2 {
		return nil
	}

	return ahead
}

// projectOntoSegment finds the closest point of the segment on a local
// equirectangular plane, which is accurate enough over street-length
// segments.
func projectOntoSegment(point geo.Point, start geo.Point, end geo.Point) geo.Point {
	scale := math.Cos(start.Latitude * math.Pi / 180)

	segmentX := (end.Longitude - start.Longitude) * scale
	segmentY := end.Latitude - start.Latitude
	pointX := (point.Longitude - start.Longitude) * scale
	pointY := point.Latitude - start.Latitude

	lengthSquared := segmentX*segmentX + segmentY*segmentY
	if lengthSquared == 0 {
		return start
	}

	fraction := (pointX*segmentX + pointY*segmentY) / lengthSquared
	switch {
	case fraction <= 0:
		return start
	case fraction >= 1:
		return end
	}

	return geo.Point{
		Latitude:  start.Latitude + fraction*(end.Latitude-start.Latitude),
		Longitude: start.Longitude + fraction*(end.Longitude-start.Longitude),
	}
}

func joint(center geo.Point, radiusMeters float64) geo.Polygon {
	vertices := make([]geo.Point, 0, jointSides)
	for i := 0; i < jointSides; i++ {
		vertices = append(vertices, geo.DestinationPoint(center, float64(i)*360/jointSides, radiusMeters))
	}
	return geo.NewPolygon(vertices...)
}
