package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/moveaside/moveaside/pkg/alerting"
	"github.com/moveaside/moveaside/pkg/metrics"
	"github.com/rs/zerolog/log"
)

type SubmitResult int

const (
	SubmitAccepted SubmitResult = iota
	// SubmitCoalesced means a pending event for the vehicle was replaced
	SubmitCoalesced
	// SubmitStale means the fix was older than one already seen
	SubmitStale
)

// DefaultIdleExpiry is how long a vehicle with no new fixes is remembered.
const DefaultIdleExpiry = 30 * time.Minute

type vehicleState struct {
	pending      *alerting.VehicleFixEvent
	lastObserved time.Time
	running      bool
	idleSince    time.Time
}

// Sequencer runs at most one cycle at a time per vehicle, in fix order.
// Each vehicle has a single pending slot: an event submitted while a cycle
// is running replaces any event still waiting. Different vehicles run in
// parallel. A vehicle's goroutine exits once its slot is empty, and its
// state is forgotten after IdleExpiry without new fixes.
type Sequencer struct {
	ctx     context.Context
	process func(ctx context.Context, event alerting.VehicleFixEvent)

	IdleExpiry time.Duration

	mutex     sync.Mutex
	vehicles  map[string]*vehicleState
	lastSweep time.Time

	wg  sync.WaitGroup
	now func() time.Time
}

func NewSequencer(ctx context.Context, process func(ctx context.Context, event alerting.VehicleFixEvent)) *Sequencer {
	return &Sequencer{
		ctx:        ctx,
		process:    process,
		IdleExpiry: DefaultIdleExpiry,
		vehicles:   map[string]*vehicleState{},
		now:        time.Now,
	}
}

// sweep drops idle vehicles, at most once per IdleExpiry. Callers hold the
// mutex.
func (s *Sequencer) sweep() {
	now := s.now()
	if s.IdleExpiry <= 0 || now.Sub(s.lastSweep) < s.IdleExpiry {
		return
	}
	s.lastSweep = now

	for vehicleID, state := range s.vehicles {
		if !state.running && state.pending == nil && now.Sub(state.idleSince) >= s.IdleExpiry {
			delete(s.vehicles, vehicleID)
		}
	}
}

// Tracked returns how many vehicles the sequencer currently remembers.
func (s *Sequencer) Tracked() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.vehicles)
}

func (s *Sequencer) Submit(event alerting.VehicleFixEvent) SubmitResult {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sweep()

	state, exists := s.vehicles[event.VehicleID]
	if !exists {
		state = &vehicleState{}
		s.vehicles[event.VehicleID] = state
	}

	observedAt := event.Fix.ObservedAt
	if observedAt.Before(state.lastObserved) || (state.pending != nil && observedAt.Before(state.pending.Fix.ObservedAt)) {
		log.Debug().Str("vehicle", event.VehicleID).Time("observedat", observedAt).Msg("Dropping stale vehicle fix")
		return SubmitStale
	}

	result := SubmitAccepted
	if state.pending != nil {
		result = SubmitCoalesced
		metrics.CoalescedEvents.Inc()

		// Keep the ride-start announcement if the replaced event asked for it
		event.FirstContact = event.FirstContact || state.pending.FirstContact
	}
	state.pending = &event

	if !state.running {
		state.running = true
		s.wg.Add(1)
		go s.run(event.VehicleID, state)
	}

	return result
}

func (s *Sequencer) run(vehicleID string, state *vehicleState) {
	defer s.wg.Done()

	for {
		s.mutex.Lock()
		event := state.pending
		if event == nil {
			state.running = false
			state.idleSince = s.now()
			s.mutex.Unlock()
			return
		}
		state.pending = nil
		state.lastObserved = event.Fix.ObservedAt
		s.mutex.Unlock()

		s.process(s.ctx, *event)
	}
}

// Wait blocks until every vehicle goroutine has drained its slot.
func (s *Sequencer) Wait() {
	s.wg.Wait()
}
