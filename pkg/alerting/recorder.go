package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/moveaside/moveaside/pkg/elastic_client"
	"github.com/moveaside/moveaside/pkg/geo"
)

type AlertCycleElasticEvent struct {
	Timestamp time.Time

	CycleID   string
	VehicleID string
	RideID    string

	Location geo.Location
	Heading  float64
	ZoneKind string

	Candidates    int
	Alerted       int
	Notified      int
	Batches       int
	FailedBatches int

	FirstContact bool
}

// ElasticRecorder indexes a summary of each notifying cycle into a weekly
// alert-cycles index.
type ElasticRecorder struct{}

func (r ElasticRecorder) RecordCycle(ctx context.Context, cycle *CycleResult) error {
	event := AlertCycleElasticEvent{
		Timestamp: cycle.StartedAt,

		CycleID:   cycle.CycleID,
		VehicleID: cycle.VehicleID,
		RideID:    cycle.RideID,

		Location: geo.NewLocation(cycle.Vehicle.Position()),
		Heading:  cycle.Vehicle.CurrentBearing,

		Candidates:    len(cycle.Decisions),
		Alerted:       len(cycle.Alerted()),
		Notified:      len(cycle.Report.Notified),
		Batches:       cycle.Report.Batches,
		FailedBatches: cycle.Report.FailedBatches,

		FirstContact: cycle.FirstContact,
	}
	if cycle.Zone != nil {
		event.ZoneKind = string(cycle.Zone.Kind)
	}

	elasticEvent, err := json.Marshal(event)
	if err != nil {
		return err
	}

	elastic_client.IndexRequest(elastic_client.WeeklyIndexName("alert-cycles", cycle.StartedAt), bytes.NewReader(elasticEvent))

	return nil
}
