package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bengaluru = Point{Latitude: 12.9716, Longitude: 77.5946}

func TestHaversineDistance(t *testing.T) {
	points := []Point{
		bengaluru,
		{Latitude: 12.9716, Longitude: 77.6070},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 51.5072, Longitude: -0.1276},
		{Latitude: 89.9, Longitude: 179.9},
	}

	for _, a := range points {
		assert.Equal(t, 0.0, HaversineDistance(a, a))

		for _, b := range points {
			assert.InDelta(t, HaversineDistance(a, b), HaversineDistance(b, a), 1e-6)
		}
	}

	// One degree of latitude along a meridian
	oneDegree := HaversineDistance(Point{Latitude: 0, Longitude: 0}, Point{Latitude: 1, Longitude: 0})
	assert.InDelta(t, EarthRadiusMeters*math.Pi/180, oneDegree, 1e-6)

	east := HaversineDistance(bengaluru, Point{Latitude: 12.9716, Longitude: 77.6070})
	assert.InDelta(t, 1345, east, 5)
}

func TestInitialBearing(t *testing.T) {
	tests := []struct {
		name     string
		to       Point
		expected float64
	}{
		{"north", Point{Latitude: 13.0716, Longitude: 77.5946}, 0},
		{"east", Point{Latitude: 12.9716, Longitude: 77.6946}, 90},
		{"south", Point{Latitude: 12.8716, Longitude: 77.5946}, 180},
		{"west", Point{Latitude: 12.9716, Longitude: 77.4946}, 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bearing := InitialBearing(bengaluru, tt.to)
			assert.InDelta(t, tt.expected, bearing, 0.5)
			assert.GreaterOrEqual(t, bearing, 0.0)
			assert.Less(t, bearing, 360.0)
		})
	}
}

func TestInitialBearingAlwaysInRange(t *testing.T) {
	for lat := -80.0; lat <= 80; lat += 20 {
		for lon := -170.0; lon <= 170; lon += 34 {
			bearing := InitialBearing(bengaluru, Point{Latitude: lat, Longitude: lon})
			assert.GreaterOrEqual(t, bearing, 0.0)
			assert.Less(t, bearing, 360.0)
		}
	}
}

func TestAngleDifference(t *testing.T) {
	assert.Equal(t, 20.0, AngleDifference(350, 10))
	assert.Equal(t, 20.0, AngleDifference(10, 350))
	assert.Equal(t, 180.0, AngleDifference(0, 180))
	assert.Equal(t, 0.0, AngleDifference(0, 360))
	assert.Equal(t, 90.0, AngleDifference(-45, 45))
	assert.InDelta(t, 45.0, AngleDifference(720+30, 345), 1e-9)
}

func TestNormalizeBearing(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeBearing(360))
	assert.Equal(t, 270.0, NormalizeBearing(-90))
	assert.Equal(t, 0.0, NormalizeBearing(-1e-15))
}

func TestDestinationPoint(t *testing.T) {
	for _, bearing := range []float64{0, 45, 90, 135, 180, 270, 359} {
		destination := DestinationPoint(bengaluru, bearing, 2000)

		assert.InDelta(t, 2000, HaversineDistance(bengaluru, destination), 1e-3)
		assert.InDelta(t, 0, AngleDifference(bearing, InitialBearing(bengaluru, destination)), 1e-6)
	}

	wrapped := DestinationPoint(Point{Latitude: 0, Longitude: 179.999}, 90, 1000)
	assert.Less(t, wrapped.Longitude, -179.0)
}

func TestPointInPolygon(t *testing.T) {
	square := NewPolygon(
		Point{Latitude: 0, Longitude: 0},
		Point{Latitude: 0, Longitude: 1},
		Point{Latitude: 1, Longitude: 1},
		Point{Latitude: 1, Longitude: 0},
	)

	assert.True(t, square.Contains(Point{Latitude: 0.5, Longitude: 0.5}))
	assert.False(t, square.Contains(Point{Latitude: 1.5, Longitude: 0.5}))
	assert.False(t, square.Contains(Point{Latitude: 0.5, Longitude: -0.1}))

	closed := append(Polygon{}, square...)
	closed = append(closed, square[0])
	assert.True(t, PointInPolygon(Point{Latitude: 0.25, Longitude: 0.75}, closed))

	assert.False(t, PointInPolygon(Point{}, Polygon{{0, 0}, {1, 1}}))
	assert.InDelta(t, 1.0, square.Area(), 1e-12)
}

func TestPolygonGeoJSONClosesRing(t *testing.T) {
	triangle := NewPolygon(bengaluru, Point{Latitude: 13, Longitude: 77.6}, Point{Latitude: 13, Longitude: 77.5})

	geometry := triangle.GeoJSON()
	require.Len(t, geometry.Coordinates, 1)
	assert.Equal(t, "Polygon", geometry.Type)
	assert.Len(t, geometry.Coordinates[0], 4)
	assert.Equal(t, geometry.Coordinates[0][0], geometry.Coordinates[0][3])
}

func TestValidateCoordinate(t *testing.T) {
	assert.NoError(t, ValidateCoordinate(90, 180))
	assert.NoError(t, ValidateCoordinate(-90, -180))

	for _, c := range [][2]float64{{90.1, 0}, {-91, 0}, {0, 180.5}, {0, -181}, {math.NaN(), 0}, {0, math.Inf(1)}} {
		err := ValidateCoordinate(c[0], c[1])
		assert.True(t, errors.Is(err, ErrInvalidCoordinate), "expected invalid coordinate for %v", c)
	}
}

func TestLocation(t *testing.T) {
	location := NewLocation(bengaluru)
	assert.Equal(t, []float64{77.5946, 12.9716}, location.Coordinates)

	point, ok := location.Point()
	require.True(t, ok)
	assert.Equal(t, bengaluru, point)

	_, ok = Location{}.Point()
	assert.False(t, ok)
	assert.True(t, math.IsNaN(Location{}.Distance(location)))
	assert.Equal(t, 0.0, location.Distance(location))
}
