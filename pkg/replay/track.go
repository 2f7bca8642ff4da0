package replay

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/moveaside/moveaside/pkg/tracking"
)

// TrackPoint is one row of a recorded location track.
type TrackPoint struct {
	RecordedAt time.Time `csv:"recorded_at"`
	Role       string    `csv:"role"`
	EntityID   string    `csv:"entity_id"`
	Latitude   float64   `csv:"latitude"`
	Longitude  float64   `csv:"longitude"`

	// Vehicle rows only
	RideID       string `csv:"ride_id"`
	FirstContact bool   `csv:"first_contact"`

	// Candidate rows only, registers the device token for the user
	Token string `csv:"token"`
}

func (p TrackPoint) role() (tracking.Role, error) {
	switch tracking.Role(p.Role) {
	case tracking.RoleVehicle, tracking.RoleCandidate:
		return tracking.Role(p.Role), nil
	default:
		return "", fmt.Errorf("unknown role %q for %s", p.Role, p.EntityID)
	}
}

// ParseTrack reads a CSV track and returns its rows ordered by recorded_at.
// Rows with the same timestamp keep their file order.
func ParseTrack(reader io.Reader) ([]TrackPoint, error) {
	// Optional trailing columns may be left off
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.FieldsPerRecord = -1
		r.TrimLeadingSpace = true
		return r
	})

	var points []TrackPoint
	if err := gocsv.Unmarshal(reader, &points); err != nil {
		return nil, fmt.Errorf("failed to parse track: %w", err)
	}

	for _, point := range points {
		if _, err := point.role(); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].RecordedAt.Before(points[j].RecordedAt)
	})

	return points, nil
}
