package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/moveaside/moveaside/pkg/alerting"
	"github.com/moveaside/moveaside/pkg/geo"
	"github.com/moveaside/moveaside/pkg/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func vehicleEvent(vehicleID string, offset time.Duration) alerting.VehicleFixEvent {
	return alerting.VehicleFixEvent{
		VehicleID: vehicleID,
		Fix: tracking.PositionFix{
			EntityID:   vehicleID,
			Location:   geo.Point{Latitude: 12.9716, Longitude: 77.5946},
			ObservedAt: baseTime.Add(offset),
		},
	}
}

type blockingProcessor struct {
	mutex     sync.Mutex
	processed map[string][]time.Time

	started chan string
	release chan struct{}
	block   map[string]bool
}

func newBlockingProcessor(block ...string) *blockingProcessor {
	processor := &blockingProcessor{
		processed: map[string][]time.Time{},
		started:   make(chan string, 10),
		release:   make(chan struct{}),
		block:     map[string]bool{},
	}
	for _, vehicleID := range block {
		processor.block[vehicleID] = true
	}
	return processor
}

func (p *blockingProcessor) process(ctx context.Context, event alerting.VehicleFixEvent) {
	p.mutex.Lock()
	p.processed[event.VehicleID] = append(p.processed[event.VehicleID], event.Fix.ObservedAt)
	shouldBlock := p.block[event.VehicleID]
	p.block[event.VehicleID] = false
	p.mutex.Unlock()

	p.started <- event.VehicleID
	if shouldBlock {
		<-p.release
	}
}

func (p *blockingProcessor) times(vehicleID string) []time.Time {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]time.Time(nil), p.processed[vehicleID]...)
}

func waitStarted(t *testing.T, started chan string) string {
	select {
	case vehicleID := <-started:
		return vehicleID
	case <-time.After(5 * time.Second):
		require.FailNow(t, "processing did not start")
		return ""
	}
}

func TestSequencerCoalescesPendingEvents(t *testing.T) {
	processor := newBlockingProcessor("vehicle-1")
	sequencer := NewSequencer(context.Background(), processor.process)

	assert.Equal(t, SubmitAccepted, sequencer.Submit(vehicleEvent("vehicle-1", 0)))
	waitStarted(t, processor.started)

	assert.Equal(t, SubmitAccepted, sequencer.Submit(vehicleEvent("vehicle-1", 1*time.Second)))
	assert.Equal(t, SubmitCoalesced, sequencer.Submit(vehicleEvent("vehicle-1", 3*time.Second)))
	assert.Equal(t, SubmitStale, sequencer.Submit(vehicleEvent("vehicle-1", 2*time.Second)))
	assert.Equal(t, SubmitStale, sequencer.Submit(vehicleEvent("vehicle-1", -time.Second)))

	close(processor.release)
	sequencer.Wait()

	assert.Equal(t, []time.Time{baseTime, baseTime.Add(3 * time.Second)}, processor.times("vehicle-1"))
}

func TestSequencerDropsFixesOlderThanProcessed(t *testing.T) {
	processor := newBlockingProcessor()
	sequencer := NewSequencer(context.Background(), processor.process)

	sequencer.Submit(vehicleEvent("vehicle-1", 10*time.Second))
	waitStarted(t, processor.started)
	sequencer.Wait()

	assert.Equal(t, SubmitStale, sequencer.Submit(vehicleEvent("vehicle-1", 5*time.Second)))
	assert.Equal(t, SubmitAccepted, sequencer.Submit(vehicleEvent("vehicle-1", 20*time.Second)))
	waitStarted(t, processor.started)
	sequencer.Wait()

	assert.Equal(t, []time.Time{baseTime.Add(10 * time.Second), baseTime.Add(20 * time.Second)}, processor.times("vehicle-1"))
}

func TestSequencerRunsVehiclesInParallel(t *testing.T) {
	processor := newBlockingProcessor("vehicle-1", "vehicle-2")
	sequencer := NewSequencer(context.Background(), processor.process)

	sequencer.Submit(vehicleEvent("vehicle-1", 0))
	sequencer.Submit(vehicleEvent("vehicle-2", 0))

	// Both are inside process at the same time
	started := []string{waitStarted(t, processor.started), waitStarted(t, processor.started)}
	assert.ElementsMatch(t, []string{"vehicle-1", "vehicle-2"}, started)

	close(processor.release)
	sequencer.Wait()
}

func TestSequencerKeepsFirstContactWhenCoalescing(t *testing.T) {
	var mutex sync.Mutex
	var events []alerting.VehicleFixEvent
	release := make(chan struct{})
	started := make(chan struct{}, 10)

	sequencer := NewSequencer(context.Background(), func(ctx context.Context, event alerting.VehicleFixEvent) {
		mutex.Lock()
		events = append(events, event)
		first := len(events) == 1
		mutex.Unlock()

		started <- struct{}{}
		if first {
			<-release
		}
	})

	sequencer.Submit(vehicleEvent("vehicle-1", 0))
	<-started

	firstContact := vehicleEvent("vehicle-1", time.Second)
	firstContact.FirstContact = true
	sequencer.Submit(firstContact)
	sequencer.Submit(vehicleEvent("vehicle-1", 2*time.Second))

	close(release)
	sequencer.Wait()

	require.Len(t, events, 2)
	assert.True(t, events[1].FirstContact)
	assert.Equal(t, baseTime.Add(2*time.Second), events[1].Fix.ObservedAt)
}

type fakeClock struct {
	mutex sync.Mutex
	now   time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = now
}

func TestSequencerForgetsIdleVehicles(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	processor := newBlockingProcessor()
	sequencer := NewSequencer(context.Background(), processor.process)
	sequencer.now = clock.Now

	sequencer.Submit(vehicleEvent("vehicle-1", 0))
	waitStarted(t, processor.started)
	sequencer.Wait()

	clock.Set(baseTime.Add(10 * time.Minute))
	sequencer.Submit(vehicleEvent("vehicle-2", 10*time.Minute))
	waitStarted(t, processor.started)
	sequencer.Wait()
	assert.Equal(t, 2, sequencer.Tracked())

	// vehicle-1 has been idle past the horizon, vehicle-2 has not
	clock.Set(baseTime.Add(DefaultIdleExpiry + 5*time.Minute))
	sequencer.Submit(vehicleEvent("vehicle-3", DefaultIdleExpiry+5*time.Minute))
	waitStarted(t, processor.started)
	sequencer.Wait()
	assert.Equal(t, 2, sequencer.Tracked())

	sequencer.mutex.Lock()
	_, forgotten := sequencer.vehicles["vehicle-1"]
	_, kept := sequencer.vehicles["vehicle-2"]
	sequencer.mutex.Unlock()
	assert.False(t, forgotten)
	assert.True(t, kept)

	// A forgotten vehicle starts over
	assert.Equal(t, SubmitAccepted, sequencer.Submit(vehicleEvent("vehicle-1", DefaultIdleExpiry+6*time.Minute)))
	waitStarted(t, processor.started)
	sequencer.Wait()
}
