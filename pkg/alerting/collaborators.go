package alerting

import (
	"context"
	"time"

	"github.com/moveaside/moveaside/pkg/geo"
	"github.com/moveaside/moveaside/pkg/tracking"
)

// LocationStore keeps the current and previous fix of every actor.
type LocationStore interface {
	// GetNearby returns actors whose current fix is within radiusMeters of
	// center, excluding excludeID.
	GetNearby(ctx context.Context, center geo.Point, radiusMeters float64, excludeID string) ([]tracking.TrackedActor, error)

	// UpdateFix moves the stored current fix to previous and stores fix as
	// current in a single operation. The returned actor still carries the
	// bearing stored before this update. A fix observed before the stored
	// one is not applied and returns tracking.ErrStaleFix.
	UpdateFix(ctx context.Context, id string, role tracking.Role, fix tracking.PositionFix) (*tracking.TrackedActor, error)

	// SetBearing stores the derived bearing, provided the current fix is
	// still the one observed at observedAt.
	SetBearing(ctx context.Context, id string, observedAt time.Time, bearing float64) error

	GetActor(ctx context.Context, id string) (*tracking.TrackedActor, error)
}

type RideStore interface {
	// GetRide returns ErrRideNotFound when no ride has the id.
	GetRide(ctx context.Context, rideID string) (*RideContext, error)
}

// Dispatcher sends the notifications for one cycle.
type Dispatcher interface {
	Dispatch(ctx context.Context, decisions []AlertDecision, vehicleID string, rideID string, message string, title string) DispatchReport
}

// Recorder persists that an alert cycle notified candidates.
type Recorder interface {
	RecordCycle(ctx context.Context, cycle *CycleResult) error
}

type DispatchReport struct {
	Notified []string `groups:"basic"`
	Skipped  []string `groups:"detailed"`

	Batches       int `groups:"detailed"`
	FailedBatches int `groups:"detailed"`
}
