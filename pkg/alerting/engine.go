package alerting

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/moveaside/moveaside/pkg/corridor"
	"github.com/moveaside/moveaside/pkg/metrics"
	"github.com/moveaside/moveaside/pkg/tracking"
	"github.com/rs/zerolog/log"
)

// VehicleFixEvent is one vehicle location update. FirstContact requests the
// ride-start announcement mode where only the distance gate applies.
type VehicleFixEvent struct {
	VehicleID    string
	RideID       string
	Fix          tracking.PositionFix
	FirstContact bool
}

// CycleResult describes one pass of the engine for a vehicle update.
type CycleResult struct {
	CycleID string `groups:"basic"`

	VehicleID string `groups:"basic"`
	RideID    string `groups:"basic"`

	Vehicle tracking.TrackedActor `groups:"detailed"`
	Zone    *corridor.AlertZone   `groups:"detailed"`

	Decisions []AlertDecision `groups:"basic"`
	Report    DispatchReport  `groups:"basic"`

	Title   string `groups:"detailed"`
	Message string `groups:"detailed"`

	FirstContact bool   `groups:"detailed"`
	Skipped      bool   `groups:"basic"`
	SkipReason   string `groups:"basic"`

	StartedAt time.Time `groups:"detailed"`
}

// Alerted returns the decisions with ShouldAlert set.
func (r *CycleResult) Alerted() []AlertDecision {
	var alerted []AlertDecision
	for _, decision := range r.Decisions {
		if decision.ShouldAlert {
			alerted = append(alerted, decision)
		}
	}
	return alerted
}

type Engine struct {
	config     Config
	classifier Classifier

	locations  LocationStore
	rides      RideStore
	dispatcher Dispatcher
	recorders  []Recorder

	now func() time.Time
}

func NewEngine(config Config, locations LocationStore, rides RideStore, dispatcher Dispatcher, recorders ...Recorder) *Engine {
	return &Engine{
		config: config,
		classifier: Classifier{
			MaxDestinationDistanceMeters: config.MaxDestinationDistanceMeters,
			MovementAlignmentDegrees:     config.MovementAlignmentDegrees,
		},
		locations:  locations,
		rides:      rides,
		dispatcher: dispatcher,
		recorders:  recorders,
		now:        time.Now,
	}
}

func (e *Engine) Config() Config {
	return e.config
}

// UpdateCandidate stores a candidate user's fix and its derived bearing. A
// fix older than the stored one returns tracking.ErrStaleFix.
func (e *Engine) UpdateCandidate(ctx context.Context, userID string, fix tracking.PositionFix) (*tracking.TrackedActor, error) {
	if err := fix.Validate(); err != nil {
		return nil, err
	}

	return e.applyFix(ctx, userID, tracking.RoleCandidate, fix)
}

// ProcessVehicleFix runs a full cycle for one vehicle update: store the fix,
// estimate the heading, build the zone, select and classify candidates, then
// dispatch. Updates for the same vehicle must not be processed concurrently.
func (e *Engine) ProcessVehicleFix(ctx context.Context, event VehicleFixEvent) (*CycleResult, error) {
	startTime := e.now()
	defer func() {
		metrics.AlertCycleDuration.Observe(time.Since(startTime).Seconds())
	}()

	if err := event.Fix.Validate(); err != nil {
		metrics.AlertCycles.WithLabelValues("failed").Inc()
		return nil, err
	}

	vehicle, err := e.applyFix(ctx, event.VehicleID, tracking.RoleVehicle, event.Fix)
	if err != nil {
		metrics.AlertCycles.WithLabelValues("failed").Inc()
		return nil, err
	}

	result := &CycleResult{
		CycleID:      uuid.NewString(),
		VehicleID:    event.VehicleID,
		RideID:       event.RideID,
		Vehicle:      *vehicle,
		Title:        e.config.AlertTitle,
		Message:      e.config.AlertMessage,
		FirstContact: event.FirstContact,
		StartedAt:    startTime,
	}

	ride, err := e.lookupRide(ctx, event.RideID)
	if err != nil {
		metrics.AlertCycles.WithLabelValues("failed").Inc()
		return nil, err
	}
	if ride != nil && !ride.Active() {
		result.Skipped = true
		result.SkipReason = "ride completed"
		metrics.AlertCycles.WithLabelValues("skipped").Inc()

		log.Debug().Str("vehicle", event.VehicleID).Str("ride", event.RideID).Msg("Skipping alert cycle for completed ride")
		return result, nil
	}

	if err := e.evaluate(ctx, result, ride); err != nil {
		metrics.AlertCycles.WithLabelValues("failed").Inc()
		return nil, err
	}

	if len(result.Alerted()) > 0 {
		result.Report = e.dispatcher.Dispatch(ctx, result.Decisions, result.VehicleID, result.RideID, result.Message, result.Title)
	}

	if len(result.Report.Notified) > 0 {
		metrics.AlertCycles.WithLabelValues("alerted").Inc()

		for _, recorder := range e.recorders {
			if err := recorder.RecordCycle(ctx, result); err != nil {
				log.Error().Err(err).Str("cycle", result.CycleID).Str("vehicle", result.VehicleID).Msg("Failed to record alert cycle")
			}
		}
	} else {
		metrics.AlertCycles.WithLabelValues("quiet").Inc()
	}

	log.Info().
		Str("cycle", result.CycleID).
		Str("vehicle", result.VehicleID).
		Str("ride", result.RideID).
		Str("zone", string(result.Zone.Kind)).
		Int("candidates", len(result.Decisions)).
		Int("notified", len(result.Report.Notified)).
		Int("failedbatches", result.Report.FailedBatches).
		Msg("Alert cycle complete")

	return result, nil
}

// Preview classifies candidates against the vehicle's stored state without
// updating it or sending anything.
func (e *Engine) Preview(ctx context.Context, vehicleID string, rideID string) (*CycleResult, error) {
	stored, err := e.locations.GetActor(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if stored == nil || !stored.HasFix() {
		return nil, ErrVehicleNotFound
	}

	vehicle := tracking.Observe(stored.ID, tracking.RoleVehicle, stored.CurrentFix, stored.PreviousFix, stored.CurrentBearing, e.config.MinDisplacementMeters)

	ride, err := e.lookupRide(ctx, rideID)
	if err != nil {
		return nil, err
	}

	result := &CycleResult{
		CycleID:   uuid.NewString(),
		VehicleID: vehicleID,
		RideID:    rideID,
		Vehicle:   vehicle,
		Title:     e.config.AlertTitle,
		Message:   e.config.AlertMessage,
		StartedAt: e.now(),
	}

	if err := e.evaluate(ctx, result, ride); err != nil {
		return nil, err
	}

	return result, nil
}

// BuildZone picks the zone for the vehicle: the corridor along the rest of
// the ride's route when one is known, the low-speed cone when the vehicle
// has no reliable heading, otherwise the default cone.
func (e *Engine) BuildZone(vehicle tracking.TrackedActor, ride *RideContext) (*corridor.AlertZone, error) {
	if ride != nil && len(ride.Route) >= 2 {
		if ahead := corridor.RouteAhead(ride.Route, vehicle.Position()); ahead != nil {
			return corridor.BuildRouteCorridor(ahead, e.config.RouteCorridorHalfWidthMeters)
		}
	}

	if e.isLowSpeed(vehicle) {
		return corridor.BuildLowSpeedZone(vehicle.Position(), vehicle.CurrentBearing, ride.Destination(), e.config.LowSpeedConeAngleDegrees, e.config.ConeDistanceMeters)
	}

	return corridor.BuildAlertZone(vehicle.Position(), vehicle.CurrentBearing, ride.Destination(), e.config.ConeAngleDegrees, e.config.ConeDistanceMeters)
}

func (e *Engine) isLowSpeed(vehicle tracking.TrackedActor) bool {
	return !vehicle.BearingReliable || vehicle.Speed() < e.config.LowSpeedThresholdMetersPerSecond
}

func (e *Engine) evaluate(ctx context.Context, result *CycleResult, ride *RideContext) error {
	zone, err := e.BuildZone(result.Vehicle, ride)
	if err != nil {
		log.Error().Err(err).Str("cycle", result.CycleID).Str("vehicle", result.VehicleID).Msg("Failed to build alert zone")
		return err
	}
	result.Zone = zone

	candidates, err := FindCandidates(ctx, e.locations, result.Vehicle.Position(), e.config.CandidateRadiusMeters, result.VehicleID, e.config.MinDisplacementMeters)
	if err != nil {
		log.Error().Err(err).Str("cycle", result.CycleID).Str("vehicle", result.VehicleID).Msg("Failed to fetch candidates")
		return err
	}

	result.Decisions = make([]AlertDecision, 0, len(candidates))
	for _, candidate := range candidates {
		decision := e.classifier.Classify(result.Vehicle, candidate, zone, result.FirstContact)
		result.Decisions = append(result.Decisions, decision)

		if decision.ShouldAlert {
			metrics.AlertDecisions.WithLabelValues("alert").Inc()
		} else {
			metrics.AlertDecisions.WithLabelValues("suppressed").Inc()
		}

		log.Debug().
			Str("cycle", result.CycleID).
			Str("candidate", decision.CandidateID).
			Float64("distance", decision.DistanceMeters).
			Float64("bearing", decision.BearingToCandidate).
			Bool("insidezone", decision.InsideZone).
			Bool("alert", decision.ShouldAlert).
			Msg("Classified candidate")
	}

	return nil
}

func (e *Engine) lookupRide(ctx context.Context, rideID string) (*RideContext, error) {
	if rideID == "" || e.rides == nil {
		return nil, nil
	}

	ride, err := e.rides.GetRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride == nil {
		return nil, ErrRideNotFound
	}

	return ride, nil
}

func (e *Engine) applyFix(ctx context.Context, id string, role tracking.Role, fix tracking.PositionFix) (*tracking.TrackedActor, error) {
	fix.EntityID = id

	stored, err := e.locations.UpdateFix(ctx, id, role, fix)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, errors.New("location store returned no record")
	}

	actor := tracking.Observe(id, role, stored.CurrentFix, stored.PreviousFix, stored.CurrentBearing, e.config.MinDisplacementMeters)

	if actor.CurrentBearing != stored.CurrentBearing {
		if err := e.locations.SetBearing(ctx, id, fix.ObservedAt, actor.CurrentBearing); err != nil {
			log.Error().Err(err).Str("id", id).Msg("Failed to store bearing")
		}
	}

	return &actor, nil
}
