package siri_vm

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/moveaside/moveaside/pkg/realtime"
	"github.com/moveaside/moveaside/pkg/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const delivery = `<?xml version="1.0" encoding="UTF-8"?>
<Siri xmlns="http://www.siri.org.uk/siri" version="2.0">
  <ServiceDelivery>
    <ResponseTimestamp>2025-03-14T09:00:30+00:00</ResponseTimestamp>
    <ProducerRef>AVL</ProducerRef>
    <VehicleMonitoringDelivery>
      <RequestMessageRef>request-1</RequestMessageRef>
      <VehicleActivity>
        <RecordedAtTime>2025-03-14T09:00:00+00:00</RecordedAtTime>
        <MonitoredVehicleJourney>
          <FramedVehicleJourneyRef>
            <DataFrameRef>2025-03-14</DataFrameRef>
            <DatedVehicleJourneyRef>ride-1</DatedVehicleJourneyRef>
          </FramedVehicleJourneyRef>
          <VehicleLocation>
            <Longitude>77.5946</Longitude>
            <Latitude>12.9716</Latitude>
          </VehicleLocation>
          <Bearing>90</Bearing>
          <VehicleRef>ambulance-1</VehicleRef>
        </MonitoredVehicleJourney>
      </VehicleActivity>
      <VehicleActivity>
        <RecordedAtTime>2025-03-14T07:00:00+00:00</RecordedAtTime>
        <MonitoredVehicleJourney>
          <VehicleLocation>
            <Longitude>77.6</Longitude>
            <Latitude>12.98</Latitude>
          </VehicleLocation>
          <VehicleRef>ambulance-2</VehicleRef>
        </MonitoredVehicleJourney>
      </VehicleActivity>
      <VehicleActivity>
        <RecordedAtTime>2025-03-14T09:00:00+00:00</RecordedAtTime>
        <MonitoredVehicleJourney>
          <VehicleRef>ambulance-3</VehicleRef>
        </MonitoredVehicleJourney>
      </VehicleActivity>
    </VehicleMonitoringDelivery>
  </ServiceDelivery>
</Siri>`

func TestSiriVMLocationEvents(t *testing.T) {
	siriVM, err := ParseXMLFile(strings.NewReader(delivery))
	require.NoError(t, err)
	require.Len(t, siriVM.ServiceDelivery.VehicleMonitoringDelivery.VehicleActivity, 3)

	now := time.Date(2025, 3, 14, 9, 1, 0, 0, time.UTC)
	events := siriVM.LocationEvents(now, 20*time.Minute)
	require.Len(t, events, 1)

	assert.Equal(t, "ambulance-1", events[0].EntityID)
	assert.Equal(t, tracking.RoleVehicle, events[0].Role)
	assert.Equal(t, 12.9716, events[0].Latitude)
	assert.Equal(t, 77.5946, events[0].Longitude)
	assert.Empty(t, events[0].RideID)
	assert.True(t, events[0].RecordedAt.Equal(time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)))

	assert.Len(t, siriVM.LocationEvents(now, 0), 2)
}

func TestSiriVMSubmitToProcessQueue(t *testing.T) {
	siriVM, err := ParseXMLFile(strings.NewReader(delivery))
	require.NoError(t, err)

	connection := rmq.NewTestConnection()
	queue, err := connection.OpenQueue(realtime.QueueName)
	require.NoError(t, err)

	submitted := siriVM.SubmitToProcessQueue(queue, time.Date(2025, 3, 14, 9, 1, 0, 0, time.UTC), 20*time.Minute)
	assert.Equal(t, 1, submitted)

	deliveries := connection.GetDeliveries(realtime.QueueName)
	require.Len(t, deliveries, 1)

	var event realtime.LocationEvent
	require.NoError(t, json.Unmarshal([]byte(deliveries[0]), &event))
	assert.Equal(t, "ambulance-1", event.EntityID)
}

func TestParseXMLFileInvalid(t *testing.T) {
	_, err := ParseXMLFile(strings.NewReader("not xml"))
	assert.Error(t, err)
}
