package realtime

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/adjust/rmq/v5"
	"github.com/moveaside/moveaside/pkg/geo"
	"github.com/moveaside/moveaside/pkg/tracking"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/proto"
)

// GTFSRealtimeIngest polls a GTFS-realtime VehiclePositions feed and
// publishes a vehicle location event for every new position.
type GTFSRealtimeIngest struct {
	URL    string
	APIKey string

	Queue  rmq.Queue
	Client *http.Client

	// Positions older than MaxAge are ignored
	MaxAge time.Duration

	lastPublished map[string]time.Time
}

// ParseVehiclePositions decodes a feed into vehicle location events,
// skipping entities without a vehicle id, a valid position or a recent
// enough timestamp. Feed trips have no ride records, so events carry no
// ride id.
func ParseVehiclePositions(body []byte, now time.Time, maxAge time.Duration) ([]LocationEvent, error) {
	feed := gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed parsing GTFS-RT protobuf: %w", err)
	}

	var events []LocationEvent
	for _, entity := range feed.Entity {
		vehiclePosition := entity.GetVehicle()
		if vehiclePosition == nil || vehiclePosition.GetPosition() == nil {
			continue
		}

		vehicleID := vehiclePosition.GetVehicle().GetId()
		if vehicleID == "" {
			vehicleID = entity.GetId()
		}
		if vehicleID == "" {
			continue
		}

		recordedAt := now
		if vehiclePosition.Timestamp != nil {
			recordedAt = time.Unix(int64(vehiclePosition.GetTimestamp()), 0).UTC()
		}
		if maxAge > 0 && now.Sub(recordedAt) > maxAge {
			continue
		}

		position := vehiclePosition.GetPosition()
		latitude := float64(position.GetLatitude())
		longitude := float64(position.GetLongitude())
		if err := geo.ValidateCoordinate(latitude, longitude); err != nil {
			log.Debug().Err(err).Str("vehicle", vehicleID).Msg("Skipping GTFS-RT position")
			continue
		}

		events = append(events, LocationEvent{
			EntityID:   vehicleID,
			Role:       tracking.RoleVehicle,
			Latitude:   latitude,
			Longitude:  longitude,
			RecordedAt: recordedAt,
		})
	}

	return events, nil
}

func (g *GTFSRealtimeIngest) Poll(ctx context.Context) (int, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, g.URL, nil)
	if err != nil {
		return 0, err
	}
	if g.APIKey != "" {
		request.Header.Set("Authorization", g.APIKey)
	}

	client := g.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	response, err := client.Do(request)
	if err != nil {
		return 0, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("GTFS-RT feed returned %s", response.Status)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, err
	}

	events, err := ParseVehiclePositions(body, time.Now().UTC(), g.MaxAge)
	if err != nil {
		return 0, err
	}

	if g.lastPublished == nil {
		g.lastPublished = map[string]time.Time{}
	}

	published := 0
	for _, event := range events {
		if last, exists := g.lastPublished[event.EntityID]; exists && !event.RecordedAt.After(last) {
			continue
		}

		if err := PublishLocationEvent(g.Queue, event); err != nil {
			return published, err
		}
		g.lastPublished[event.EntityID] = event.RecordedAt
		published++
	}

	return published, nil
}

func (g *GTFSRealtimeIngest) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		published, err := g.Poll(ctx)
		if err != nil {
			log.Error().Err(err).Str("url", g.URL).Msg("Failed to poll GTFS-RT feed")
		} else {
			log.Info().Int("published", published).Str("url", g.URL).Msg("Polled GTFS-RT feed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
