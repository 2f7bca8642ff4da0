package geo

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Latitude  float64 `json:"latitude" groups:"basic"`
	Longitude float64 `json:"longitude" groups:"basic"`
}

func (p Point) Validate() error {
	return ValidateCoordinate(p.Latitude, p.Longitude)
}

// ValidateCoordinate rejects latitudes outside [-90,90], longitudes outside
// [-180,180] and non-finite values.
func ValidateCoordinate(latitude float64, longitude float64) error {
	if math.IsNaN(latitude) || math.IsInf(latitude, 0) || latitude < -90 || latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinate, latitude)
	}
	if math.IsNaN(longitude) || math.IsInf(longitude, 0) || longitude < -180 || longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinate, longitude)
	}

	return nil
}

// Location is the GeoJSON point representation stored in MongoDB
// (coordinates are [longitude, latitude]).
type Location struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func NewLocation(p Point) Location {
	return Location{
		Type:        "Point",
		Coordinates: []float64{p.Longitude, p.Latitude},
	}
}

// Point returns false when the location does not hold a coordinate pair.
func (l Location) Point() (Point, bool) {
	if l.Type != "Point" || len(l.Coordinates) != 2 {
		return Point{}, false
	}

	return Point{Latitude: l.Coordinates[1], Longitude: l.Coordinates[0]}, true
}

func (l Location) Distance(other Location) float64 {
	a, okA := l.Point()
	b, okB := other.Point()
	if !okA || !okB {
		return math.NaN()
	}

	return HaversineDistance(a, b)
}
