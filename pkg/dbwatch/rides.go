package dbwatch

import (
	"context"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/cenkalti/backoff/v4"
	"github.com/moveaside/moveaside/pkg/alerting"
	"github.com/moveaside/moveaside/pkg/realtime"
	"github.com/moveaside/moveaside/pkg/store"
	"github.com/moveaside/moveaside/pkg/tracking"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type rideDocument struct {
	PrimaryIdentifier string
	VehicleID         string
	Status            alerting.RideStatus
}

type rideUpdate struct {
	OperationType            string       `bson:"operationType"`
	FullDocument             rideDocument `bson:"fullDocument"`
	FullDocumentBeforeChange rideDocument `bson:"fullDocumentBeforeChange"`
}

type ActorLookup interface {
	GetActor(ctx context.Context, id string) (*tracking.TrackedActor, error)
}

// RidesWatch queues a first contact location event for the vehicle whenever
// a ride moves to STARTED, so every nearby candidate hears about the ride
// once regardless of direction.
type RidesWatch struct {
	LocationQueue rmq.Queue
	Actors        ActorLookup

	now func() time.Time
}

func NewRidesWatch(locationQueue rmq.Queue, actors ActorLookup) *RidesWatch {
	return &RidesWatch{
		LocationQueue: locationQueue,
		Actors:        actors,
		now:           time.Now,
	}
}

// Run watches the rides collection until ctx is done, reopening the change
// stream with backoff when it fails.
func (w *RidesWatch) Run(ctx context.Context, database *mongo.Database) {
	log.Info().Msg("Starting dbwatch on collection rides")
	collection := database.Collection(store.RidesCollection)

	matchPipeline := bson.D{
		{
			Key: "$match", Value: bson.D{
				{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"insert", "update", "replace"}}}},
				{Key: "fullDocument.status", Value: alerting.RideStatusStarted},
			},
		},
	}
	opts := options.ChangeStream().SetFullDocumentBeforeChange(options.WhenAvailable).SetFullDocument(options.UpdateLookup)

	watch := func() error {
		stream, err := collection.Watch(ctx, mongo.Pipeline{matchPipeline}, opts)
		if err != nil {
			return err
		}
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var data rideUpdate
			if err := stream.Decode(&data); err != nil {
				log.Error().Err(err).Msg("Failed to decode ride change")
				continue
			}

			if err := w.handleRideUpdate(ctx, data); err != nil {
				log.Error().Err(err).Str("ride", data.FullDocument.PrimaryIdentifier).Msg("Failed to announce ride start")
			}
		}

		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return stream.Err()
	}

	notify := func(err error, wait time.Duration) {
		log.Error().Err(err).Str("retry", wait.String()).Msg("Rides watch fell over")
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0

	_ = backoff.RetryNotify(watch, backoff.WithContext(policy, ctx), notify)
}

// handleRideUpdate publishes the first contact event for a ride that just
// started. Rides that were already started, and vehicles with no known
// position yet, are ignored.
func (w *RidesWatch) handleRideUpdate(ctx context.Context, data rideUpdate) error {
	ride := data.FullDocument
	if ride.Status != alerting.RideStatusStarted || ride.VehicleID == "" {
		return nil
	}
	if data.OperationType != "insert" && data.FullDocumentBeforeChange.Status == alerting.RideStatusStarted {
		return nil
	}

	vehicle, err := w.Actors.GetActor(ctx, ride.VehicleID)
	if err != nil {
		return err
	}
	if vehicle == nil || !vehicle.HasFix() {
		log.Info().Str("ride", ride.PrimaryIdentifier).Str("vehicle", ride.VehicleID).Msg("Ride started before the vehicle reported a location")
		return nil
	}

	position := vehicle.Position()

	log.Info().Str("ride", ride.PrimaryIdentifier).Str("vehicle", ride.VehicleID).Msg("Ride started, announcing to nearby candidates")

	return realtime.PublishLocationEvent(w.LocationQueue, realtime.LocationEvent{
		EntityID:     ride.VehicleID,
		Role:         tracking.RoleVehicle,
		Latitude:     position.Latitude,
		Longitude:    position.Longitude,
		RecordedAt:   w.now(),
		RideID:       ride.PrimaryIdentifier,
		FirstContact: true,
	})
}
