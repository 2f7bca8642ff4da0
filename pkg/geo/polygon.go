package geo

import "math"

// Polygon is a simple ring of [longitude, latitude] pairs. The ring may be
// open or closed; Contains treats both the same.
type Polygon [][2]float64

func NewPolygon(points ...Point) Polygon {
	polygon := make(Polygon, 0, len(points))
	for _, p := range points {
		polygon = append(polygon, [2]float64{p.Longitude, p.Latitude})
	}
	return polygon
}

func (p Polygon) Vertex(i int) Point {
	return Point{Latitude: p[i][1], Longitude: p[i][0]}
}

func (p Polygon) Vertices() []Point {
	points := make([]Point, 0, len(p))
	for i := range p {
		points = append(points, p.Vertex(i))
	}
	return points
}

// Area is the planar shoelace area in square degrees. It is only meaningful
// as a degeneracy check.
func (p Polygon) Area() float64 {
	if len(p) < 3 {
		return 0
	}

	sum := 0.0
	for i := range p {
		j := (i + 1) % len(p)
		sum += p[i][0]*p[j][1] - p[j][0]*p[i][1]
	}
	return math.Abs(sum) / 2
}

// Contains runs a ray-casting test treating edges as straight lines in
// longitude/latitude space.
func (p Polygon) Contains(point Point) bool {
	return PointInPolygon(point, p)
}

func PointInPolygon(point Point, polygon Polygon) bool {
	if len(polygon) < 3 {
		return false
	}

	x := point.Longitude
	y := point.Latitude
	inside := false

	for i, j := 0, len(polygon)-1; i < len(polygon); j, i = i, i+1 {
		xi, yi := polygon[i][0], polygon[i][1]
		xj, yj := polygon[j][0], polygon[j][1]

		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}

	return inside
}

// PolygonGeometry is the GeoJSON form used for MongoDB $geoWithin queries
// and for indexing zones into Elasticsearch.
type PolygonGeometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

func (p Polygon) GeoJSON() PolygonGeometry {
	ring := make([][2]float64, 0, len(p)+1)
	ring = append(ring, p...)
	if len(p) > 0 && p[0] != p[len(p)-1] {
		ring = append(ring, p[0])
	}

	return PolygonGeometry{
		Type:        "Polygon",
		Coordinates: [][][2]float64{ring},
	}
}
