package corridor

import (
	"errors"

	"github.com/moveaside/moveaside/pkg/geo"
)

var ErrInvalidZoneParameters = errors.New("invalid zone parameters")

type Kind string

const (
	KindCone         Kind = "CONE"
	KindLowSpeedCone Kind = "LOW_SPEED_CONE"
	KindRoute        Kind = "ROUTE"
)

// AlertZone is the region ahead of a vehicle for one classification pass.
// Cones have a single triangle polygon, route corridors are the union of
// their segment and joint polygons.
type AlertZone struct {
	Kind Kind `groups:"basic"`

	Apex           geo.Point `groups:"basic"`
	Heading        float64   `groups:"basic"`
	AngleDegrees   float64   `groups:"detailed"`
	DistanceMeters float64   `groups:"detailed"`

	Polygons []geo.Polygon `groups:"detailed"`
}

func (z *AlertZone) Contains(point geo.Point) bool {
	if z == nil {
		return false
	}

	for _, polygon := range z.Polygons {
		if polygon.Contains(point) {
			return true
		}
	}

	return false
}

// Polygon returns the primary polygon of the zone, the cone triangle for
// cone zones.
func (z *AlertZone) Polygon() geo.Polygon {
	if z == nil || len(z.Polygons) == 0 {
		return nil
	}
	return z.Polygons[0]
}

type MultiPolygonGeometry struct {
	Type        string           `json:"type"`
	Coordinates [][][][2]float64 `json:"coordinates"`
}

func (z *AlertZone) GeoJSON() MultiPolygonGeometry {
	geometry := MultiPolygonGeometry{Type: "MultiPolygon"}
	if z == nil {
		return geometry
	}

	for _, polygon := range z.Polygons {
		geometry.Coordinates = append(geometry.Coordinates, polygon.GeoJSON().Coordinates)
	}

	return geometry
}
