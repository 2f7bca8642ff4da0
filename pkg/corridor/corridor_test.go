package corridor

import (
	"errors"
	"math"
	"testing"

	"github.com/moveaside/moveaside/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bengaluru = geo.Point{Latitude: 12.9716, Longitude: 77.5946}

func TestBuildAlertZoneGeometry(t *testing.T) {
	tests := []struct {
		name     string
		heading  float64
		angle    float64
		distance float64
	}{
		{"east", 90, 60, 2000},
		{"north", 0, 60, 500},
		{"wrapped", 350, 30, 250},
		{"wide", 200, 170, 1000},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			zone, err := BuildAlertZone(bengaluru, test.heading, nil, test.angle, test.distance)
			require.NoError(t, err)
			assert.Equal(t, KindCone, zone.Kind)

			polygon := zone.Polygon()
			require.Len(t, polygon, 3)
			assert.Equal(t, bengaluru, polygon.Vertex(0))

			for _, base := range polygon.Vertices()[1:] {
				assert.InDelta(t, test.distance, geo.HaversineDistance(bengaluru, base), 0.01)
				bearing := geo.InitialBearing(bengaluru, base)
				assert.InDelta(t, test.angle/2, geo.AngleDifference(bearing, test.heading), 0.01)
			}

			assert.Greater(t, polygon.Area(), 0.0)
		})
	}
}

func TestBuildAlertZoneContainment(t *testing.T) {
	zone, err := BuildAlertZone(bengaluru, 90, nil, 60, 2000)
	require.NoError(t, err)

	assert.True(t, zone.Contains(geo.Point{Latitude: 12.9716, Longitude: 77.6070}))
	assert.False(t, zone.Contains(geo.Point{Latitude: 12.9820, Longitude: 77.5946}))
	// Behind the vehicle
	assert.False(t, zone.Contains(geo.Point{Latitude: 12.9716, Longitude: 77.5846}))
}

func TestBuildAlertZoneRejectsDegenerateParameters(t *testing.T) {
	tests := []struct {
		name     string
		angle    float64
		distance float64
	}{
		{"zero distance", 60, 0},
		{"negative distance", 60, -10},
		{"nan distance", 60, math.NaN()},
		{"zero angle", 0, 500},
		{"negative angle", -30, 500},
		{"straight angle", 180, 500},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			zone, err := BuildAlertZone(bengaluru, 90, nil, test.angle, test.distance)
			assert.Nil(t, zone)
			assert.True(t, errors.Is(err, ErrInvalidZoneParameters))
		})
	}
}

func TestBuildAlertZoneRejectsInvalidApex(t *testing.T) {
	_, err := BuildAlertZone(geo.Point{Latitude: 95, Longitude: 0}, 0, nil, 60, 500)
	assert.True(t, errors.Is(err, geo.ErrInvalidCoordinate))
}

func TestBuildLowSpeedZoneUsesDestination(t *testing.T) {
	destination := geo.Point{Latitude: 12.9616, Longitude: 77.5946}

	zone, err := BuildLowSpeedZone(bengaluru, 0, &destination, 90, 500)
	require.NoError(t, err)
	assert.Equal(t, KindLowSpeedCone, zone.Kind)
	assert.InDelta(t, 180, zone.Heading, 0.01)
	assert.Equal(t, 90.0, zone.AngleDegrees)

	assert.True(t, zone.Contains(geo.Point{Latitude: 12.9686, Longitude: 77.5950}))
	assert.False(t, zone.Contains(geo.Point{Latitude: 12.9746, Longitude: 77.5946}))
}

func TestBuildLowSpeedZoneWithoutDestination(t *testing.T) {
	zone, err := BuildLowSpeedZone(bengaluru, 45, nil, 90, 500)
	require.NoError(t, err)
	assert.Equal(t, 45.0, zone.Heading)

	// Destination at the vehicle's own position cannot give a bearing
	zone, err = BuildLowSpeedZone(bengaluru, 45, &bengaluru, 90, 500)
	require.NoError(t, err)
	assert.Equal(t, 45.0, zone.Heading)
}

func TestBuildRouteCorridor(t *testing.T) {
	route := []geo.Point{
		bengaluru,
		{Latitude: 12.9716, Longitude: 77.5966},
		{Latitude: 12.9736, Longitude: 77.5966},
	}

	zone, err := BuildRouteCorridor(route, 6)
	require.NoError(t, err)
	assert.Equal(t, KindRoute, zone.Kind)
	assert.Len(t, zone.Polygons, 2+3)
	assert.InDelta(t, 90, zone.Heading, 0.01)

	// On the first segment, 4m to the north of it
	onRoute := geo.DestinationPoint(geo.Point{Latitude: 12.9716, Longitude: 77.5956}, 0, 4)
	assert.True(t, zone.Contains(onRoute))

	// 20m off the first segment
	offRoute := geo.DestinationPoint(geo.Point{Latitude: 12.9716, Longitude: 77.5956}, 0, 20)
	assert.False(t, zone.Contains(offRoute))

	// Around the bend
	assert.True(t, zone.Contains(geo.DestinationPoint(route[1], 45, 5)))
	// Along the second segment
	assert.True(t, zone.Contains(geo.Point{Latitude: 12.9726, Longitude: 77.5966}))
}

func TestRouteAhead(t *testing.T) {
	route := []geo.Point{
		bengaluru,
		{Latitude: 12.9716, Longitude: 77.5966},
		{Latitude: 12.9736, Longitude: 77.5966},
	}

	t.Run("MidRoute", func(t *testing.T) {
		// Slightly north of the first segment, halfway along it
		ahead := RouteAhead(route, geo.Point{Latitude: 12.97161, Longitude: 77.5956})
		require.Len(t, ahead, 3)
		assert.InDelta(t, 12.9716, ahead[0].Latitude, 1e-9)
		assert.InDelta(t, 77.5956, ahead[0].Longitude, 1e-9)
		assert.Equal(t, route[1:], ahead[1:])

		zone, err := BuildRouteCorridor(ahead, 6)
		require.NoError(t, err)
		assert.True(t, zone.Contains(geo.Point{Latitude: 12.9716, Longitude: 77.5960}))
		assert.False(t, zone.Contains(geo.Point{Latitude: 12.9716, Longitude: 77.5950}))
	})

	t.Run("BeforeStart", func(t *testing.T) {
		ahead := RouteAhead(route, geo.Point{Latitude: 12.9716, Longitude: 77.5940})
		assert.Equal(t, route, ahead)
	})

	t.Run("OnSecondSegment", func(t *testing.T) {
		ahead := RouteAhead(route, geo.Point{Latitude: 12.9726, Longitude: 77.5966})
		require.Len(t, ahead, 2)
		assert.InDelta(t, 12.9726, ahead[0].Latitude, 1e-9)
		assert.Equal(t, route[2], ahead[1])
	})

	t.Run("PastTheEnd", func(t *testing.T) {
		assert.Nil(t, RouteAhead(route, geo.Point{Latitude: 12.9800, Longitude: 77.5966}))
	})

	t.Run("TooShort", func(t *testing.T) {
		assert.Nil(t, RouteAhead([]geo.Point{bengaluru}, bengaluru))
	})
}

func TestBuildRouteCorridorRejectsBadRoutes(t *testing.T) {
	_, err := BuildRouteCorridor([]geo.Point{bengaluru}, 6)
	assert.True(t, errors.Is(err, ErrInvalidZoneParameters))

	_, err = BuildRouteCorridor([]geo.Point{bengaluru, bengaluru}, 6)
	assert.True(t, errors.Is(err, ErrInvalidZoneParameters))

	_, err = BuildRouteCorridor([]geo.Point{bengaluru, {Latitude: 12.98, Longitude: 77.6}}, 0)
	assert.True(t, errors.Is(err, ErrInvalidZoneParameters))

	_, err = BuildRouteCorridor([]geo.Point{bengaluru, {Latitude: 120, Longitude: 77.6}}, 6)
	assert.True(t, errors.Is(err, geo.ErrInvalidCoordinate))
}

func TestZoneGeoJSON(t *testing.T) {
	zone, err := BuildAlertZone(bengaluru, 90, nil, 60, 500)
	require.NoError(t, err)

	geometry := zone.GeoJSON()
	assert.Equal(t, "MultiPolygon", geometry.Type)
	require.Len(t, geometry.Coordinates, 1)
	require.Len(t, geometry.Coordinates[0][0], 4)
	assert.Equal(t, geometry.Coordinates[0][0][0], geometry.Coordinates[0][0][3])

	var nilZone *AlertZone
	assert.False(t, nilZone.Contains(bengaluru))
}
