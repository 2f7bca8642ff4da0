package siri_vm

import (
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/moveaside/moveaside/pkg/geo"
	"github.com/moveaside/moveaside/pkg/realtime"
	"github.com/moveaside/moveaside/pkg/tracking"
	"github.com/rs/zerolog/log"
)

// SiriVM is a SIRI Vehicle Monitoring delivery as published by AVL systems.
type SiriVM struct {
	ServiceDelivery struct {
		ResponseTimestamp string
		ProducerRef       string

		VehicleMonitoringDelivery struct {
			ResponseTimestamp     string
			RequestMessageRef     string
			ValidUntil            string
			ShortestPossibleCycle string

			VehicleActivity []*VehicleActivity
		}
	}
}

// LocationEvents converts the vehicle activities into vehicle location
// events. Activities without a vehicle, with an invalid location or
// recorded more than maxAge before now are skipped. Journey refs are not
// ride ids, so events carry no ride.
func (s *SiriVM) LocationEvents(now time.Time, maxAge time.Duration) []realtime.LocationEvent {
	var events []realtime.LocationEvent

	for _, vehicle := range s.ServiceDelivery.VehicleMonitoringDelivery.VehicleActivity {
		journey := vehicle.MonitoredVehicleJourney
		if journey == nil || journey.VehicleRef == "" {
			continue
		}

		recordedAtTime, err := time.Parse(time.RFC3339, vehicle.RecordedAtTime)
		if err != nil {
			recordedAtTime = now
		}

		// Skip any records that haven't been updated recently
		if maxAge > 0 && now.Sub(recordedAtTime) > maxAge {
			continue
		}

		latitude := journey.VehicleLocation.Latitude
		longitude := journey.VehicleLocation.Longitude
		if err := geo.ValidateCoordinate(latitude, longitude); err != nil || (latitude == 0 && longitude == 0) {
			log.Debug().Str("vehicle", journey.VehicleRef).Msg("Skipping SIRI-VM activity without a location")
			continue
		}

		events = append(events, realtime.LocationEvent{
			EntityID:   journey.VehicleRef,
			Role:       tracking.RoleVehicle,
			Latitude:   latitude,
			Longitude:  longitude,
			RecordedAt: recordedAtTime,
		})
	}

	return events
}

// SubmitToProcessQueue publishes the delivery's location events and returns
// how many were queued.
func (s *SiriVM) SubmitToProcessQueue(queue rmq.Queue, now time.Time, maxAge time.Duration) int {
	events := s.LocationEvents(now, maxAge)

	log.Info().Msgf("Submitting the %d activity records in %s to processing queue", len(events), s.ServiceDelivery.VehicleMonitoringDelivery.RequestMessageRef)

	submitted := 0
	for _, event := range events {
		if err := realtime.PublishLocationEvent(queue, event); err != nil {
			log.Error().Err(err).Str("vehicle", event.EntityID).Msg("Failed to queue SIRI-VM location event")
			continue
		}
		submitted++
	}

	return submitted
}
