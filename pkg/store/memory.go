package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/moveaside/moveaside/pkg/alerting"
	"github.com/moveaside/moveaside/pkg/geo"
	"github.com/moveaside/moveaside/pkg/tracking"
)

// MemoryStore keeps actors, rides, tokens and notifications in process. A
// single mutex guards every record so fix swaps are atomic.
type MemoryStore struct {
	mutex sync.Mutex

	actors        map[string]*tracking.TrackedActor
	rides         map[string]*alerting.RideContext
	tokens        map[string]string
	notifications []Notification

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		actors: map[string]*tracking.TrackedActor{},
		rides:  map[string]*alerting.RideContext{},
		tokens: map[string]string{},
		now:    time.Now,
	}
}

func (s *MemoryStore) GetNearby(ctx context.Context, center geo.Point, radiusMeters float64, excludeID string) ([]tracking.TrackedActor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	var nearby []tracking.TrackedActor
	for id, actor := range s.actors {
		if id == excludeID || actor.CurrentFix == nil {
			continue
		}
		if geo.HaversineDistance(center, actor.CurrentFix.Location) <= radiusMeters {
			nearby = append(nearby, actor.Clone())
		}
	}

	return nearby, nil
}

func (s *MemoryStore) UpdateFix(ctx context.Context, id string, role tracking.Role, fix tracking.PositionFix) (*tracking.TrackedActor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	actor, exists := s.actors[id]
	if !exists {
		actor = &tracking.TrackedActor{ID: id}
		s.actors[id] = actor
	}

	if actor.CurrentFix != nil && fix.ObservedAt.Before(actor.CurrentFix.ObservedAt) {
		return nil, fmt.Errorf("%w: %s observed at %s", tracking.ErrStaleFix, id, fix.ObservedAt)
	}

	actor.Role = role
	actor.PreviousFix = actor.CurrentFix
	actor.CurrentFix = &fix

	updated := actor.Clone()
	return &updated, nil
}

func (s *MemoryStore) SetBearing(ctx context.Context, id string, observedAt time.Time, bearing float64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	actor, exists := s.actors[id]
	if !exists || actor.CurrentFix == nil || !actor.CurrentFix.ObservedAt.Equal(observedAt) {
		return nil
	}

	actor.CurrentBearing = bearing
	return nil
}

func (s *MemoryStore) GetActor(ctx context.Context, id string) (*tracking.TrackedActor, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	actor, exists := s.actors[id]
	if !exists {
		return nil, nil
	}

	clone := actor.Clone()
	return &clone, nil
}

func (s *MemoryStore) PutRide(ride alerting.RideContext) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.rides[ride.RideID] = &ride
}

func (s *MemoryStore) GetRide(ctx context.Context, rideID string) (*alerting.RideContext, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ride, exists := s.rides[rideID]
	if !exists {
		return nil, alerting.ErrRideNotFound
	}

	copied := *ride
	return &copied, nil
}

func (s *MemoryStore) SetToken(userID string, token string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if token == "" {
		delete(s.tokens, userID)
		return
	}
	s.tokens[userID] = token
}

func (s *MemoryStore) GetToken(ctx context.Context, userID string) (string, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	token, exists := s.tokens[userID]
	return token, exists && token != "", nil
}

// RecordCycle stores one notification per notified candidate and stamps
// the ride's last notification time.
func (s *MemoryStore) RecordCycle(ctx context.Context, cycle *alerting.CycleResult) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	s.notifications = append(s.notifications, notificationsForCycle(cycle, now)...)

	if ride, exists := s.rides[cycle.RideID]; exists {
		ride.LastNotification = now
	}

	return nil
}

func (s *MemoryStore) Notifications() []Notification {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return append([]Notification(nil), s.notifications...)
}
