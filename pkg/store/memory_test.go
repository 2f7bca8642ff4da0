package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/moveaside/moveaside/pkg/alerting"
	"github.com/moveaside/moveaside/pkg/geo"
	"github.com/moveaside/moveaside/pkg/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var observedAt = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func fix(lat, lon float64, offset time.Duration) tracking.PositionFix {
	return tracking.PositionFix{Location: geo.Point{Latitude: lat, Longitude: lon}, ObservedAt: observedAt.Add(offset)}
}

func TestMemoryStoreUpdateFixSwapsPrevious(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first, err := store.UpdateFix(ctx, "user-1", tracking.RoleCandidate, fix(12.9716, 77.5946, 0))
	require.NoError(t, err)
	assert.Nil(t, first.PreviousFix)
	assert.Equal(t, tracking.RoleCandidate, first.Role)

	second, err := store.UpdateFix(ctx, "user-1", tracking.RoleCandidate, fix(12.9726, 77.5946, time.Second))
	require.NoError(t, err)
	require.NotNil(t, second.PreviousFix)
	assert.Equal(t, 12.9716, second.PreviousFix.Location.Latitude)
	assert.Equal(t, 12.9726, second.CurrentFix.Location.Latitude)

	// Returned records are copies
	second.CurrentFix.Location.Latitude = 0
	stored, err := store.GetActor(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 12.9726, stored.CurrentFix.Location.Latitude)
}

func TestMemoryStoreConcurrentUpdatesNeverMix(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.UpdateFix(ctx, "user-1", tracking.RoleCandidate, fix(float64(i), float64(i), time.Duration(i)*time.Second))
			if err != nil {
				assert.ErrorIs(t, err, tracking.ErrStaleFix)
			}
		}(i)
	}
	wg.Wait()

	actor, err := store.GetActor(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, actor.CurrentFix)
	assert.Equal(t, 49.0, actor.CurrentFix.Location.Latitude)
	assert.Equal(t, actor.CurrentFix.Location.Latitude, actor.CurrentFix.Location.Longitude)

	if actor.PreviousFix != nil {
		assert.Equal(t, actor.PreviousFix.Location.Latitude, actor.PreviousFix.Location.Longitude)
		assert.True(t, actor.PreviousFix.ObservedAt.Before(actor.CurrentFix.ObservedAt))
	}
}

func TestMemoryStoreUpdateFixRejectsStaleFix(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.UpdateFix(ctx, "user-1", tracking.RoleCandidate, fix(12.9716, 77.5946, 0))
	require.NoError(t, err)
	_, err = store.UpdateFix(ctx, "user-1", tracking.RoleCandidate, fix(12.9716, 77.5966, 10*time.Second))
	require.NoError(t, err)

	// Delivered late, after the fix at 10s
	_, err = store.UpdateFix(ctx, "user-1", tracking.RoleCandidate, fix(12.9716, 77.5956, 5*time.Second))
	assert.ErrorIs(t, err, tracking.ErrStaleFix)

	stored, err := store.GetActor(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 77.5966, stored.CurrentFix.Location.Longitude)
	assert.Equal(t, 77.5946, stored.PreviousFix.Location.Longitude)

	// A repeat of the current timestamp is still accepted
	_, err = store.UpdateFix(ctx, "user-1", tracking.RoleCandidate, fix(12.9716, 77.5970, 10*time.Second))
	assert.NoError(t, err)
}

func TestMemoryStoreSetBearingGuardsOnFix(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.UpdateFix(ctx, "vehicle-1", tracking.RoleVehicle, fix(12.9716, 77.5946, 0))
	require.NoError(t, err)

	require.NoError(t, store.SetBearing(ctx, "vehicle-1", observedAt.Add(time.Minute), 90))
	actor, _ := store.GetActor(ctx, "vehicle-1")
	assert.Equal(t, 0.0, actor.CurrentBearing)

	require.NoError(t, store.SetBearing(ctx, "vehicle-1", observedAt, 90))
	actor, _ = store.GetActor(ctx, "vehicle-1")
	assert.Equal(t, 90.0, actor.CurrentBearing)

	require.NoError(t, store.SetBearing(ctx, "missing", observedAt, 90))
}

func TestMemoryStoreGetNearby(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.UpdateFix(ctx, "vehicle-1", tracking.RoleVehicle, fix(12.9716, 77.5946, 0))
	store.UpdateFix(ctx, "near", tracking.RoleCandidate, fix(12.9726, 77.5946, 0))
	store.UpdateFix(ctx, "far", tracking.RoleCandidate, fix(13.5, 77.5946, 0))

	nearby, err := store.GetNearby(ctx, geo.Point{Latitude: 12.9716, Longitude: 77.5946}, 2000, "vehicle-1")
	require.NoError(t, err)
	require.Len(t, nearby, 1)
	assert.Equal(t, "near", nearby[0].ID)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = store.GetNearby(cancelled, geo.Point{}, 2000, "")
	assert.Error(t, err)
}

func TestMemoryStoreRidesAndTokens(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.GetRide(ctx, "ride-1")
	assert.True(t, errors.Is(err, alerting.ErrRideNotFound))

	store.PutRide(alerting.RideContext{RideID: "ride-1", Status: alerting.RideStatusStarted})
	ride, err := store.GetRide(ctx, "ride-1")
	require.NoError(t, err)
	assert.Equal(t, alerting.RideStatusStarted, ride.Status)

	store.SetToken("user-1", "token-1")
	token, ok, err := store.GetToken(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "token-1", token)

	_, ok, err = store.GetToken(ctx, "user-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreRecordCycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.now = func() time.Time { return observedAt }
	store.PutRide(alerting.RideContext{RideID: "ride-1", Status: alerting.RideStatusStarted})

	cycle := &alerting.CycleResult{
		CycleID:   "cycle-1",
		VehicleID: "vehicle-1",
		RideID:    "ride-1",
		Title:     "Emergency Vehicle Alert",
		Message:   "An ambulance is coming. Please move aside",
		Report:    alerting.DispatchReport{Notified: []string{"user-1", "user-2"}},
	}
	require.NoError(t, store.RecordCycle(ctx, cycle))

	notifications := store.Notifications()
	require.Len(t, notifications, 2)
	assert.Equal(t, Notification{
		UserID:           "user-1",
		DriverID:         "vehicle-1",
		RideID:           "ride-1",
		CycleID:          "cycle-1",
		Title:            "Emergency Vehicle Alert",
		Message:          "An ambulance is coming. Please move aside",
		Status:           NotificationStatusSent,
		CreationDateTime: observedAt,
	}, notifications[0])

	ride, _ := store.GetRide(ctx, "ride-1")
	assert.Equal(t, observedAt, ride.LastNotification)
}
