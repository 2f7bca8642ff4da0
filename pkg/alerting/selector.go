package alerting

import (
	"context"
	"fmt"

	"github.com/moveaside/moveaside/pkg/geo"
	"github.com/moveaside/moveaside/pkg/tracking"
	"github.com/moveaside/moveaside/pkg/util"
)

// FindCandidates returns the candidate users within radiusMeters of center,
// regardless of direction. Actors that are not candidates or have no valid
// fix are dropped. Bearings are re-derived from each actor's stored fixes
// so BearingReliable reflects the last movement.
func FindCandidates(ctx context.Context, store LocationStore, center geo.Point, radiusMeters float64, excludeID string, minDisplacementMeters float64) ([]tracking.TrackedActor, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}

	nearby, err := store.GetNearby(ctx, center, radiusMeters, excludeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCandidateFetchFailed, err)
	}

	util.InPlaceFilter(&nearby, func(actor tracking.TrackedActor) bool {
		return actor.ID != excludeID &&
			actor.Role == tracking.RoleCandidate &&
			actor.HasFix() &&
			geo.HaversineDistance(center, actor.Position()) <= radiusMeters
	})

	candidates := make([]tracking.TrackedActor, 0, len(nearby))
	for _, actor := range nearby {
		candidates = append(candidates, tracking.Observe(actor.ID, actor.Role, actor.CurrentFix, actor.PreviousFix, actor.CurrentBearing, minDisplacementMeters))
	}

	return candidates, nil
}
