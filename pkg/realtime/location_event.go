package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/moveaside/moveaside/pkg/tracking"
)

const QueueName = "location-queue"

// LocationEvent is the queue payload for one location update of a vehicle
// or candidate user.
type LocationEvent struct {
	EntityID string
	Role     tracking.Role

	Latitude  float64
	Longitude float64

	RecordedAt time.Time

	RideID       string
	FirstContact bool
}

func (e *LocationEvent) Fix() (*tracking.PositionFix, error) {
	if e.EntityID == "" {
		return nil, fmt.Errorf("location event has no entity id")
	}
	if e.Role != tracking.RoleVehicle && e.Role != tracking.RoleCandidate {
		return nil, fmt.Errorf("location event has unknown role %q", e.Role)
	}

	recordedAt := e.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	return tracking.NewPositionFix(e.EntityID, e.Latitude, e.Longitude, recordedAt)
}

func PublishLocationEvent(queue rmq.Queue, event LocationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return queue.PublishBytes(payload)
}
