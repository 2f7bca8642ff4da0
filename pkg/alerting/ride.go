package alerting

import (
	"time"

	"github.com/moveaside/moveaside/pkg/geo"
)

type RideStatus string

const (
	RideStatusPending   RideStatus = "PENDING"
	RideStatusStarted   RideStatus = "STARTED"
	RideStatusCompleted RideStatus = "COMPLETED"
)

// RideContext is the part of a ride record the engine reads. Route is an
// optional polyline; when present the zone is a buffered route corridor
// instead of a cone.
type RideContext struct {
	RideID    string `groups:"basic"`
	VehicleID string `groups:"basic"`

	PickupPoint *geo.Point `groups:"basic"`
	DropPoint   *geo.Point `groups:"basic"`

	Route []geo.Point `groups:"detailed"`

	Status RideStatus `groups:"basic"`

	LastNotification time.Time `groups:"detailed"`
}

func (r *RideContext) Active() bool {
	return r != nil && r.Status != RideStatusCompleted
}

// Destination returns the drop point when it holds a valid coordinate.
func (r *RideContext) Destination() *geo.Point {
	if r == nil || r.DropPoint == nil || r.DropPoint.Validate() != nil {
		return nil
	}
	return r.DropPoint
}
