package alerting

import (
	"github.com/moveaside/moveaside/pkg/corridor"
	"github.com/moveaside/moveaside/pkg/geo"
	"github.com/moveaside/moveaside/pkg/tracking"
)

const DefaultMovementAlignmentDegrees = 45.0

// AlertDecision is the outcome for one candidate in one cycle, with every
// measurement that led to it.
type AlertDecision struct {
	CandidateID string `groups:"basic"`

	DistanceMeters     float64 `groups:"basic"`
	BearingToCandidate float64 `groups:"basic"`

	VehicleBearing           float64 `groups:"detailed"`
	CandidateBearing         float64 `groups:"detailed"`
	CandidateBearingReliable bool    `groups:"detailed"`
	HeadingDifference        float64 `groups:"detailed"`

	WithinDistance  bool `groups:"detailed"`
	InsideZone      bool `groups:"basic"`
	MovementAligned bool `groups:"detailed"`
	FirstContact    bool `groups:"detailed"`

	ShouldAlert bool `groups:"basic"`
}

// Classifier applies the alert rule: the candidate must be within
// MaxDestinationDistanceMeters, inside the zone and, when its bearing is
// reliable, moving within MovementAlignmentDegrees of the vehicle's
// heading. A MovementAlignmentDegrees of zero or less turns the movement
// check off.
type Classifier struct {
	MaxDestinationDistanceMeters float64
	MovementAlignmentDegrees     float64
}

// Classify uses the default movement alignment threshold.
func Classify(vehicle tracking.TrackedActor, candidate tracking.TrackedActor, zone *corridor.AlertZone, maxDestinationDistanceMeters float64) AlertDecision {
	classifier := Classifier{
		MaxDestinationDistanceMeters: maxDestinationDistanceMeters,
		MovementAlignmentDegrees:     DefaultMovementAlignmentDegrees,
	}

	return classifier.Classify(vehicle, candidate, zone, false)
}

// Classify evaluates one candidate. With firstContact set only the
// distance gate applies.
func (c Classifier) Classify(vehicle tracking.TrackedActor, candidate tracking.TrackedActor, zone *corridor.AlertZone, firstContact bool) AlertDecision {
	vehiclePosition := vehicle.Position()
	candidatePosition := candidate.Position()

	decision := AlertDecision{
		CandidateID: candidate.ID,

		DistanceMeters:     geo.HaversineDistance(vehiclePosition, candidatePosition),
		BearingToCandidate: geo.InitialBearing(vehiclePosition, candidatePosition),

		VehicleBearing:           vehicle.CurrentBearing,
		CandidateBearing:         candidate.CurrentBearing,
		CandidateBearingReliable: candidate.BearingReliable,
		HeadingDifference:        geo.AngleDifference(candidate.CurrentBearing, vehicle.CurrentBearing),

		FirstContact: firstContact,
	}

	if !vehicle.HasFix() || !candidate.HasFix() {
		return decision
	}

	decision.WithinDistance = decision.DistanceMeters <= c.MaxDestinationDistanceMeters
	decision.InsideZone = zone.Contains(candidatePosition)
	decision.MovementAligned = !candidate.BearingReliable ||
		c.MovementAlignmentDegrees <= 0 ||
		decision.HeadingDifference <= c.MovementAlignmentDegrees

	if firstContact {
		decision.ShouldAlert = decision.WithinDistance
	} else {
		decision.ShouldAlert = decision.WithinDistance && decision.InsideZone && decision.MovementAligned
	}

	return decision
}
