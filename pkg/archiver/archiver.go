package archiver

import (
	"archive/tar"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/moveaside/moveaside/pkg/store"
	"github.com/rs/zerolog/log"
	"github.com/ulikunitz/xz"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Archiver moves notification records older than the retention period out
// of MongoDB into a tar.xz bundle, optionally uploading it to a bucket.
type Archiver struct {
	OutputDirectory string
	RetentionPeriod time.Duration

	CloudUpload     bool
	CloudBucketName string
}

// Perform writes the bundle and deletes the archived records. It returns
// the number of records archived.
func (a *Archiver) Perform(ctx context.Context, notificationsCollection *mongo.Collection, currentTime time.Time) (int, error) {
	cutOffTime := currentTime.Add(-a.RetentionPeriod)
	log.Info().Msgf("Archiving notifications older than %s", cutOffTime)

	searchFilter := bson.M{"creationdatetime": bson.M{"$lt": cutOffTime}}
	cursor, err := notificationsCollection.Find(ctx, searchFilter)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	bundleFilename := fmt.Sprintf("notifications-%s.tar.xz", currentTime.UTC().Format("20060102T150405Z"))

	bundleFile, err := os.Create(path.Join(a.OutputDirectory, bundleFilename))
	if err != nil {
		return 0, err
	}
	defer bundleFile.Close()

	xzWriter, err := xz.NewWriter(bundleFile)
	if err != nil {
		return 0, err
	}
	tarWriter := tar.NewWriter(xzWriter)

	recordCount := 0
	for cursor.Next(ctx) {
		var notification store.Notification
		if err := cursor.Decode(&notification); err != nil {
			log.Error().Err(err).Msg("Failed to decode Notification")
			continue
		}

		notificationJSON, err := json.Marshal(notification)
		if err != nil {
			return recordCount, err
		}

		filename := fmt.Sprintf("%s_%s.json", notification.CycleID, notification.UserID)

		header := &tar.Header{
			Name:    filename,
			Size:    int64(len(notificationJSON)),
			Mode:    0o644,
			ModTime: notification.CreationDateTime,
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			return recordCount, err
		}
		if _, err := tarWriter.Write(notificationJSON); err != nil {
			return recordCount, err
		}

		recordCount += 1
	}
	if err := cursor.Err(); err != nil {
		return recordCount, err
	}

	if err := tarWriter.Close(); err != nil {
		return recordCount, err
	}
	if err := xzWriter.Close(); err != nil {
		return recordCount, err
	}

	log.Info().Int("recordCount", recordCount).Str("bundle", bundleFilename).Msg("Archive document generation complete")

	if recordCount == 0 {
		return 0, nil
	}

	if a.CloudUpload {
		if err := a.uploadToStorage(ctx, bundleFilename); err != nil {
			return recordCount, err
		}
	}

	if _, err := notificationsCollection.DeleteMany(ctx, searchFilter); err != nil {
		return recordCount, err
	}

	return recordCount, nil
}

func (a *Archiver) uploadToStorage(ctx context.Context, filename string) error {
	fullBundlePath := path.Join(a.OutputDirectory, filename)

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("could not create GCP storage client: %w", err)
	}
	defer client.Close()

	object := client.Bucket(a.CloudBucketName).Object(filename)

	reader, err := os.Open(fullBundlePath)
	if err != nil {
		return err
	}
	defer reader.Close()

	writer := object.NewWriter(ctx)
	if _, err := io.Copy(writer, reader); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to write file to GCP: %w", err)
	}

	log.Info().Msgf("Written file %s to bucket %s", object.ObjectName(), object.BucketName())

	return nil
}
