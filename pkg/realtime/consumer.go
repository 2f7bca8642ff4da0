package realtime

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/adjust/rmq/v5"
	"github.com/moveaside/moveaside/pkg/alerting"
	"github.com/moveaside/moveaside/pkg/metrics"
	"github.com/moveaside/moveaside/pkg/tracking"
	"github.com/rs/zerolog/log"
)

type AlertEngine interface {
	UpdateCandidate(ctx context.Context, userID string, fix tracking.PositionFix) (*tracking.TrackedActor, error)
	ProcessVehicleFix(ctx context.Context, event alerting.VehicleFixEvent) (*alerting.CycleResult, error)
}

// ProcessWithEngine adapts the engine to the sequencer, logging cycle
// failures.
func ProcessWithEngine(engine AlertEngine) func(ctx context.Context, event alerting.VehicleFixEvent) {
	return func(ctx context.Context, event alerting.VehicleFixEvent) {
		_, err := engine.ProcessVehicleFix(ctx, event)
		if err == nil {
			return
		}
		if errors.Is(err, tracking.ErrStaleFix) {
			log.Debug().Str("vehicle", event.VehicleID).Time("observedat", event.Fix.ObservedAt).Msg("Dropping stale vehicle fix")
			metrics.LocationEvents.WithLabelValues(string(tracking.RoleVehicle), "stale").Inc()
			return
		}

		logEvent := log.Error().Err(err).Str("vehicle", event.VehicleID).Str("ride", event.RideID)
		switch {
		case errors.Is(err, alerting.ErrCandidateFetchFailed):
			logEvent.Msg("Alert cycle aborted, candidates unavailable")
		case errors.Is(err, alerting.ErrRideNotFound):
			logEvent.Msg("Alert cycle aborted, unknown ride")
		default:
			logEvent.Msg("Alert cycle failed")
		}
	}
}

// LocationBatchConsumer applies candidate updates directly and funnels
// vehicle updates through the sequencer.
type LocationBatchConsumer struct {
	engine    AlertEngine
	sequencer *Sequencer
}

func NewLocationBatchConsumer(engine AlertEngine, sequencer *Sequencer) *LocationBatchConsumer {
	return &LocationBatchConsumer{engine: engine, sequencer: sequencer}
}

func (c *LocationBatchConsumer) Consume(batch rmq.Deliveries) {
	for _, delivery := range batch {
		if c.handle(delivery.Payload()) {
			if err := delivery.Ack(); err != nil {
				log.Error().Err(err).Msg("Failed to ack location event")
			}
		} else {
			if err := delivery.Reject(); err != nil {
				log.Error().Err(err).Msg("Failed to reject location event")
			}
		}
	}
}

func (c *LocationBatchConsumer) handle(payload string) bool {
	var event LocationEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		log.Error().Err(err).Msg("Failed to decode location event")
		metrics.LocationEvents.WithLabelValues("unknown", "invalid").Inc()
		return false
	}

	fix, err := event.Fix()
	if err != nil {
		log.Error().Err(err).Str("id", event.EntityID).Msg("Invalid location event")
		metrics.LocationEvents.WithLabelValues(string(event.Role), "invalid").Inc()
		return false
	}

	switch event.Role {
	case tracking.RoleCandidate:
		if _, err := c.engine.UpdateCandidate(context.Background(), event.EntityID, *fix); errors.Is(err, tracking.ErrStaleFix) {
			log.Debug().Str("candidate", event.EntityID).Time("observedat", fix.ObservedAt).Msg("Dropping stale candidate fix")
			metrics.LocationEvents.WithLabelValues(string(event.Role), "stale").Inc()
			return true
		} else if err != nil {
			log.Error().Err(err).Str("candidate", event.EntityID).Msg("Failed to update candidate location")
			metrics.LocationEvents.WithLabelValues(string(event.Role), "failed").Inc()
			return false
		}
	case tracking.RoleVehicle:
		result := c.sequencer.Submit(alerting.VehicleFixEvent{
			VehicleID:    event.EntityID,
			RideID:       event.RideID,
			Fix:          *fix,
			FirstContact: event.FirstContact,
		})
		if result == SubmitStale {
			metrics.LocationEvents.WithLabelValues(string(event.Role), "stale").Inc()
			return true
		}
	}

	metrics.LocationEvents.WithLabelValues(string(event.Role), "ok").Inc()
	return true
}
