package replay

import (
	"context"
	"errors"

	"github.com/moveaside/moveaside/pkg/alerting"
	"github.com/moveaside/moveaside/pkg/notify"
	"github.com/moveaside/moveaside/pkg/store"
	"github.com/moveaside/moveaside/pkg/tracking"
	"github.com/rs/zerolog/log"
)

// Replayer feeds a recorded track through an engine backed by in-memory
// stores. Pushes are captured instead of sent.
type Replayer struct {
	Engine *alerting.Engine
	Memory *store.MemoryStore
	Sender *notify.LogSender
}

func NewReplayer(config alerting.Config) *Replayer {
	memory := store.NewMemoryStore()
	sender := &notify.LogSender{}
	dispatcher := notify.NewDispatcher(memory, sender, config.DispatchChunkSize)

	return &Replayer{
		Engine: alerting.NewEngine(config, memory, memory, dispatcher, memory),
		Memory: memory,
		Sender: sender,
	}
}

type Summary struct {
	Points int
	Cycles int
	Failed int

	// Number of cycles in which each candidate was notified
	Notified map[string]int

	Batches       int
	Notifications int

	Results []*alerting.CycleResult
}

// Run replays the points in order. A failing cycle is counted and the
// replay carries on; invalid rows abort it.
func (r *Replayer) Run(ctx context.Context, points []TrackPoint) (*Summary, error) {
	summary := &Summary{
		Notified: map[string]int{},
	}

	for _, point := range points {
		role, err := point.role()
		if err != nil {
			return summary, err
		}

		fix, err := tracking.NewPositionFix(point.EntityID, point.Latitude, point.Longitude, point.RecordedAt)
		if err != nil {
			return summary, err
		}
		summary.Points++

		switch role {
		case tracking.RoleCandidate:
			if point.Token != "" {
				r.Memory.SetToken(point.EntityID, point.Token)
			}

			if _, err := r.Engine.UpdateCandidate(ctx, point.EntityID, *fix); err != nil {
				return summary, err
			}
		case tracking.RoleVehicle:
			result, err := r.Engine.ProcessVehicleFix(ctx, alerting.VehicleFixEvent{
				VehicleID:    point.EntityID,
				RideID:       point.RideID,
				Fix:          *fix,
				FirstContact: point.FirstContact,
			})
			summary.Cycles++

			if err != nil {
				if errors.Is(err, context.Canceled) {
					return summary, err
				}

				log.Warn().Err(err).Str("vehicle", point.EntityID).Time("recordedat", point.RecordedAt).Msg("Replay cycle failed")
				summary.Failed++
				continue
			}

			for _, userID := range result.Report.Notified {
				summary.Notified[userID]++
			}
			summary.Results = append(summary.Results, result)
		}
	}

	summary.Batches = len(r.Sender.Batches())
	summary.Notifications = len(r.Memory.Notifications())

	return summary, nil
}
