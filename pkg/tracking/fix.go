package tracking

import (
	"errors"
	"time"

	"github.com/moveaside/moveaside/pkg/geo"
)

// ErrStaleFix is returned by location stores when a fix is older than the
// one they already hold.
var ErrStaleFix = errors.New("fix is older than the stored fix")

// PositionFix is a single GPS sample for a vehicle or candidate.
type PositionFix struct {
	EntityID   string    `groups:"detailed"`
	Location   geo.Point `groups:"basic"`
	ObservedAt time.Time `groups:"basic"`
}

func NewPositionFix(entityID string, latitude float64, longitude float64, observedAt time.Time) (*PositionFix, error) {
	if err := geo.ValidateCoordinate(latitude, longitude); err != nil {
		return nil, err
	}

	return &PositionFix{
		EntityID:   entityID,
		Location:   geo.Point{Latitude: latitude, Longitude: longitude},
		ObservedAt: observedAt,
	}, nil
}

func (f *PositionFix) Validate() error {
	return f.Location.Validate()
}

type Role string

const (
	RoleVehicle   Role = "VEHICLE"
	RoleCandidate Role = "CANDIDATE"
)
