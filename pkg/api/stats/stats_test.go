package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func countResponse(namespace string, count int64) bson.D {
	return mtest.CreateCursorResponse(0, namespace, mtest.FirstBatch, bson.D{{Key: "n", Value: count}})
}

func TestCountRecords(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("Counts", func(mt *mtest.T) {
		mt.AddMockResponses(
			countResponse("moveaside.users", 4),
			countResponse("moveaside.users", 120),
			countResponse("moveaside.rides", 2),
			countResponse("moveaside.notifications", 37),
		)

		now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
		recordsStats, err := CountRecords(context.Background(), mt.DB, now)
		require.NoError(t, err)

		assert.Equal(t, &RecordsStats{
			Vehicles:             4,
			Candidates:           120,
			ActiveRides:          2,
			NotificationsLastDay: 37,
			UpdatedAt:            now,
		}, recordsStats)
	})

	mt.Run("Error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11600, Message: "interrupted"}))

		_, err := CountRecords(context.Background(), mt.DB, time.Now())
		assert.Error(t, err)
	})
}
