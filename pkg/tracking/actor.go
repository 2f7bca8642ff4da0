package tracking

import (
	"github.com/jinzhu/copier"
	"github.com/moveaside/moveaside/pkg/geo"
)

// TrackedActor is the tracked state of a vehicle or candidate user. The
// bearing fields are derived by ApplyFix / Observe and should not be set
// directly.
type TrackedActor struct {
	ID   string `groups:"basic"`
	Role Role   `groups:"basic"`

	CurrentFix  *PositionFix `groups:"basic"`
	PreviousFix *PositionFix `groups:"detailed"`

	CurrentBearing  float64 `groups:"basic"`
	BearingReliable bool    `groups:"detailed"`
}

// Observe rebuilds an actor from a stored current/previous pair, deriving the
// bearing from the pair.
func Observe(id string, role Role, currentFix *PositionFix, previousFix *PositionFix, previousBearing float64, minDisplacementMeters float64) TrackedActor {
	actor := TrackedActor{
		ID:             id,
		Role:           role,
		CurrentFix:     currentFix,
		PreviousFix:    previousFix,
		CurrentBearing: previousBearing,
	}

	if currentFix != nil {
		actor.CurrentBearing, actor.BearingReliable = estimateBearing(previousFix, *currentFix, previousBearing, minDisplacementMeters)
	}

	return actor
}

// ApplyFix returns the actor after receiving fix: the old current fix becomes
// the previous fix and the bearing is re-estimated. The receiver is not
// modified.
func (a TrackedActor) ApplyFix(fix PositionFix, minDisplacementMeters float64) TrackedActor {
	next := a.Clone()

	next.PreviousFix = next.CurrentFix
	next.CurrentFix = &fix
	next.CurrentBearing, next.BearingReliable = estimateBearing(next.PreviousFix, fix, a.CurrentBearing, minDisplacementMeters)

	return next
}

func (a TrackedActor) HasFix() bool {
	return a.CurrentFix != nil && a.CurrentFix.Validate() == nil
}

func (a TrackedActor) Position() geo.Point {
	if a.CurrentFix == nil {
		return geo.Point{}
	}
	return a.CurrentFix.Location
}

func (a TrackedActor) Speed() float64 {
	if a.CurrentFix == nil {
		return 0
	}
	return EstimateSpeed(a.PreviousFix, *a.CurrentFix)
}

// Clone deep copies the actor so the fix pointers are not shared.
func (a TrackedActor) Clone() TrackedActor {
	var clone TrackedActor
	if err := copier.CopyWithOption(&clone, &a, copier.Option{DeepCopy: true}); err != nil {
		clone = a
		if a.CurrentFix != nil {
			currentFix := *a.CurrentFix
			clone.CurrentFix = &currentFix
		}
		if a.PreviousFix != nil {
			previousFix := *a.PreviousFix
			clone.PreviousFix = &previousFix
		}
	}

	return clone
}
