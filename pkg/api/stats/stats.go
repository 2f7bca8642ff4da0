package stats

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/moveaside/moveaside/pkg/alerting"
	"github.com/moveaside/moveaside/pkg/store"
	"github.com/moveaside/moveaside/pkg/tracking"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type RecordsStats struct {
	Vehicles   int64
	Candidates int64

	ActiveRides int64

	NotificationsLastDay int64

	UpdatedAt time.Time
}

var currentRecordsStats atomic.Pointer[RecordsStats]

// Current returns the last computed stats, or nil before the first update.
func Current() *RecordsStats {
	return currentRecordsStats.Load()
}

func CountRecords(ctx context.Context, database *mongo.Database, now time.Time) (*RecordsStats, error) {
	recordsStats := &RecordsStats{UpdatedAt: now}

	usersCollection := database.Collection(store.UsersCollection)

	numberVehicles, err := usersCollection.CountDocuments(ctx, bson.M{"role": tracking.RoleVehicle})
	if err != nil {
		return nil, err
	}
	recordsStats.Vehicles = numberVehicles

	numberCandidates, err := usersCollection.CountDocuments(ctx, bson.M{"role": tracking.RoleCandidate})
	if err != nil {
		return nil, err
	}
	recordsStats.Candidates = numberCandidates

	numberActiveRides, err := database.Collection(store.RidesCollection).CountDocuments(ctx, bson.M{"status": bson.M{"$ne": alerting.RideStatusCompleted}})
	if err != nil {
		return nil, err
	}
	recordsStats.ActiveRides = numberActiveRides

	numberNotifications, err := database.Collection(store.NotificationsCollection).CountDocuments(ctx, bson.M{"creationdatetime": bson.M{"$gte": now.Add(-24 * time.Hour)}})
	if err != nil {
		return nil, err
	}
	recordsStats.NotificationsLastDay = numberNotifications

	return recordsStats, nil
}

// UpdateRecordsStats recomputes the stats every interval until ctx is done.
func UpdateRecordsStats(ctx context.Context, database *mongo.Database, interval time.Duration) {
	for {
		recordsStats, err := CountRecords(ctx, database, time.Now())
		if err != nil {
			log.Error().Err(err).Msg("Failed to update record stats")
		} else {
			currentRecordsStats.Store(recordsStats)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
